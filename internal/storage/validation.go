// Package storage provides the data persistence layer for settlement history
// and recommendation runs.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/the-split-must-flow/internal/model"
)

// Validation errors.
var (
	ErrNilContext            = errors.New("context cannot be nil")
	ErrEmptyString           = errors.New("string parameter cannot be empty")
	ErrNilParameter          = errors.New("parameter cannot be nil")
	ErrEmptySlice            = errors.New("slice cannot be empty")
	ErrInvalidTransaction    = errors.New("invalid transaction")
	ErrInvalidRecommendation = errors.New("invalid recommendation")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

func validateTransactions(transactions []model.Transaction) error {
	if transactions == nil {
		return fmt.Errorf("%w: transactions", ErrNilParameter)
	}
	if len(transactions) == 0 {
		return fmt.Errorf("%w: transactions", ErrEmptySlice)
	}

	for i := range transactions {
		if err := validateTransaction(&transactions[i]); err != nil {
			return fmt.Errorf("transaction at index %d: %w", i, err)
		}
	}
	return nil
}

func validateTransaction(txn *model.Transaction) error {
	if txn == nil {
		return fmt.Errorf("%w: transaction", ErrNilParameter)
	}
	if strings.TrimSpace(txn.Place) == "" {
		return fmt.Errorf("%w: missing place", ErrInvalidTransaction)
	}
	if txn.DateTime.IsZero() {
		return fmt.Errorf("%w: missing datetime", ErrInvalidTransaction)
	}
	if len(txn.Participants) == 0 {
		return fmt.Errorf("%w: no participants", ErrInvalidTransaction)
	}
	for _, p := range txn.Participants {
		if strings.TrimSpace(p) == "" {
			return fmt.Errorf("%w: empty participant", ErrInvalidTransaction)
		}
		if strings.Contains(p, model.ParticipantSeparator) {
			return fmt.Errorf("%w: participant %q contains %q", ErrInvalidTransaction, p, model.ParticipantSeparator)
		}
	}
	return nil
}

func validateRecommendation(key string, rec *model.Recommendation) error {
	if err := validateString(key, "key"); err != nil {
		return err
	}
	if rec == nil {
		return fmt.Errorf("%w: recommendation", ErrNilParameter)
	}
	if len(rec.RecommendedParticipants) != len(rec.ConfidenceScores) {
		return fmt.Errorf("%w: %d participants but %d scores", ErrInvalidRecommendation,
			len(rec.RecommendedParticipants), len(rec.ConfidenceScores))
	}
	return nil
}
