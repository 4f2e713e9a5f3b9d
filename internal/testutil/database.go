// Package testutil provides test helpers for the split-must-flow project:
// isolated in-memory databases seeded with settlement history.
package testutil

import (
	"context"
	"testing"

	"github.com/Veraticus/the-split-must-flow/internal/model"
	"github.com/Veraticus/the-split-must-flow/internal/service"
	"github.com/Veraticus/the-split-must-flow/internal/storage"
	"github.com/Veraticus/the-split-must-flow/internal/testutil/corpus"
)

// TestDB represents a test database with associated test utilities.
type TestDB struct {
	Storage      *storage.SQLiteStorage
	t            *testing.T
	Transactions []model.Transaction
}

// SetupTestDB creates a new in-memory test database seeded with the given
// settlements. It automatically handles migrations and cleanup.
func SetupTestDB(t *testing.T, transactions []model.Transaction) *TestDB {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})

	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	if len(transactions) > 0 {
		if _, err := store.SaveTransactions(ctx, transactions); err != nil {
			t.Fatalf("failed to seed transactions: %v", err)
		}
	}

	return &TestDB{
		Storage:      store,
		Transactions: transactions,
		t:            t,
	}
}

// SetupTestDBWithBuilder creates a test database using a corpus builder.
//
// Example:
//
//	db := testutil.SetupTestDBWithBuilder(t, func(b *corpus.Builder) *corpus.Builder {
//		return b.WithFixture(corpus.FixtureCafe)
//	})
func SetupTestDBWithBuilder(t *testing.T, configure func(*corpus.Builder) *corpus.Builder) *TestDB {
	t.Helper()

	builder := corpus.NewBuilder(t)
	if configure != nil {
		builder = configure(builder)
	}
	return SetupTestDB(t, builder.Transactions())
}

// MustCorpus loads the stored corpus in insertion order or fails the test.
func (db *TestDB) MustCorpus() []model.Transaction {
	db.t.Helper()
	txns, err := db.Storage.GetTransactions(context.Background(), service.TransactionFilter{})
	if err != nil {
		db.t.Fatalf("failed to load corpus: %v", err)
	}
	return txns
}
