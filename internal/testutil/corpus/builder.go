// Package corpus provides a fluent builder for settlement histories used in tests.
//
// Example usage:
//
//	txns := corpus.NewBuilder(t).
//		WithFixture(corpus.FixtureCafe).
//		With("Pizza Place", 20, 30000, "Gina").
//		Transactions()
package corpus

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/Veraticus/the-split-must-flow/internal/model"
	"github.com/Veraticus/the-split-must-flow/internal/service"
)

// BaseDate is the calendar day every built settlement falls on.
var BaseDate = time.Date(2024, 7, 12, 0, 0, 0, 0, time.UTC)

// Builder accumulates settlements in corpus order.
type Builder struct {
	t    *testing.T
	rows []Row
}

// NewBuilder creates an empty builder.
func NewBuilder(t *testing.T) *Builder {
	t.Helper()
	return &Builder{t: t}
}

// With appends one settlement.
func (b *Builder) With(place string, hour int, amount int64, participants ...string) *Builder {
	b.t.Helper()
	if hour < 0 || hour > 23 {
		b.t.Fatalf("corpus: hour %d out of range for %q", hour, place)
	}
	b.rows = append(b.rows, Row{Place: place, Hour: hour, Amount: amount, Participants: participants})
	return b
}

// WithFixture appends every row of a fixture.
func (b *Builder) WithFixture(f Fixture) *Builder {
	b.t.Helper()
	for _, r := range f.Rows {
		b.With(r.Place, r.Hour, r.Amount, r.Participants...)
	}
	return b
}

// Transactions returns the built settlements. Each row gets its own minute
// so that otherwise identical rows hash differently.
func (b *Builder) Transactions() []model.Transaction {
	txns := make([]model.Transaction, len(b.rows))
	for i, r := range b.rows {
		participants := make([]string, len(r.Participants))
		copy(participants, r.Participants)

		txns[i] = model.Transaction{
			ID:           fmt.Sprintf("txn-%03d", i+1),
			Place:        r.Place,
			DateTime:     BaseDate.Add(time.Duration(r.Hour)*time.Hour + time.Duration(i%60)*time.Minute),
			Amount:       r.Amount,
			Participants: participants,
		}
		txns[i].Hash = txns[i].GenerateHash()
	}
	return txns
}

// Build saves the settlements to storage and returns them.
func (b *Builder) Build(ctx context.Context, storage service.Storage) ([]model.Transaction, error) {
	txns := b.Transactions()
	if len(txns) == 0 {
		return txns, nil
	}
	if _, err := storage.SaveTransactions(ctx, txns); err != nil {
		return nil, fmt.Errorf("failed to seed corpus: %w", err)
	}
	return txns, nil
}
