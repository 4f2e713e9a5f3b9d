package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/viper"

	"github.com/Veraticus/the-split-must-flow/internal/config"
	"github.com/Veraticus/the-split-must-flow/internal/engine"
	"github.com/Veraticus/the-split-must-flow/internal/model"
	"github.com/Veraticus/the-split-must-flow/internal/service"
	"github.com/Veraticus/the-split-must-flow/internal/storage"
)

// loadSettings resolves the configuration from viper.
func loadSettings() (*config.Settings, error) {
	return config.Load(viper.GetViper())
}

// initStorage opens the configured database and brings its schema up to date.
func initStorage(ctx context.Context, settings *config.Settings) (*storage.SQLiteStorage, error) {
	store, err := storage.NewSQLiteStorage(settings.DatabasePath)
	if err != nil {
		return nil, err
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// fitEngine trains an engine on every stored settlement.
func fitEngine(ctx context.Context, store service.Storage, settings *config.Settings) (*engine.Engine, error) {
	corpus, err := store.GetTransactions(ctx, service.TransactionFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to load settlement history: %w", err)
	}

	eng := engine.New(settings.EngineConfig())
	if err := eng.Fit(corpus); err != nil {
		return nil, fmt.Errorf("failed to fit recommender: %w", err)
	}

	slog.Debug("Recommender fitted", "settlements", len(corpus))
	return eng, nil
}

// recordSettlement stores a confirmed settlement so future recommendations learn from it.
func recordSettlement(ctx context.Context, store service.Storage, place string, when time.Time, amount int64, participants []string) (bool, error) {
	txn := model.Transaction{
		Place:        place,
		DateTime:     when,
		Amount:       amount,
		Participants: participants,
	}
	inserted, err := store.SaveTransactions(ctx, []model.Transaction{txn})
	if err != nil {
		return false, fmt.Errorf("failed to record settlement: %w", err)
	}
	return inserted == 1, nil
}

func writeLine(w io.Writer, s string) {
	if _, err := fmt.Fprintln(w, s); err != nil {
		slog.Warn("Failed to write output", "error", err)
	}
}
