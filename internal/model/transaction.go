package model

import (
	"crypto/sha256"
	"fmt"
	"strings"
	"time"
)

// DateTimeLayout is how settlement timestamps are rendered in reports.
const DateTimeLayout = "2006-01-02 15:04:05"

// ParticipantSeparator joins participant identifiers in flat storage formats.
const ParticipantSeparator = "|"

// Transaction represents a past shared-expense settlement.
type Transaction struct {
	DateTime     time.Time
	ID           string
	Place        string // Where the expense happened
	Hash         string
	Participants []string // Who took part, in recorded order
	Amount       int64    // Whole currency units, no conversion
}

// Hour returns the hour of day the settlement happened, in [0,23].
func (t *Transaction) Hour() int {
	return t.DateTime.Hour()
}

// JoinedParticipants returns the participants in their flat, pipe-delimited form.
func (t *Transaction) JoinedParticipants() string {
	return strings.Join(t.Participants, ParticipantSeparator)
}

// GenerateHash creates a unique hash for duplicate detection.
func (t *Transaction) GenerateHash() string {
	data := fmt.Sprintf("%s:%d:%s:%s",
		t.DateTime.Format(time.RFC3339),
		t.Amount,
		t.Place,
		t.JoinedParticipants())
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", hash)
}

// SplitParticipants parses a pipe-delimited participant list.
// Surrounding whitespace is trimmed and empty entries are dropped.
func SplitParticipants(raw string) []string {
	parts := strings.Split(raw, ParticipantSeparator)
	participants := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		participants = append(participants, p)
	}
	return participants
}

// Payment is a single debit taken from a bank or card statement.
// It carries everything needed to ask for participant suggestions.
type Payment struct {
	Date      time.Time
	ID        string
	Name      string // Raw statement description
	Place     string // Cleaned merchant name
	AccountID string
	Amount    int64
}

// Query builds a recommendation query for this payment.
func (p *Payment) Query(k int) Query {
	return Query{
		Place:  p.Place,
		Hour:   p.Date.Hour(),
		Amount: p.Amount,
		K:      k,
	}
}
