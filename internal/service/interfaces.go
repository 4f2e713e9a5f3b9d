// Package service defines the interfaces for all application services.
package service

import (
	"context"

	"github.com/Veraticus/the-split-must-flow/internal/model"
)

// TransactionFilter defines filtering options for transaction queries.
type TransactionFilter struct {
	Place       string // Exact place match
	Participant string // Settlements that include this participant
	Limit       int
}

// Storage defines the contract for our persistence layer.
type Storage interface {
	// Settlement history
	SaveTransactions(ctx context.Context, transactions []model.Transaction) (int, error)
	GetTransactions(ctx context.Context, filter TransactionFilter) ([]model.Transaction, error)
	CountTransactions(ctx context.Context) (int, error)
	GetParticipants(ctx context.Context) ([]string, error)

	// Recommendation runs
	SaveRecommendation(ctx context.Context, key string, query model.Query, rec *model.Recommendation) (string, error)
	GetRecommendation(ctx context.Context, id string) (*model.RecommendationRun, error)
	ListRecommendations(ctx context.Context, limit int) ([]model.RecommendationRun, error)

	// Maintenance
	Migrate(ctx context.Context) error
	Close() error
}

// Recommender answers participant queries against a fitted corpus.
type Recommender interface {
	Recommend(q model.Query) (*model.Recommendation, error)
}
