package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/Veraticus/the-split-must-flow/internal/common"
	"github.com/Veraticus/the-split-must-flow/internal/model"
)

// SaveRecommendation records a recommendation run and returns its id.
func (s *SQLiteStorage) SaveRecommendation(ctx context.Context, key string, query model.Query, rec *model.Recommendation) (string, error) {
	if err := validateContext(ctx); err != nil {
		return "", err
	}
	if err := validateRecommendation(key, rec); err != nil {
		return "", err
	}

	queryJSON, err := json.Marshal(query)
	if err != nil {
		return "", fmt.Errorf("failed to encode query: %w", err)
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		return "", fmt.Errorf("failed to encode recommendation: %w", err)
	}

	id := uuid.NewString()
	createdAt := time.Now().UTC().Format(time.RFC3339Nano)
	err = withWriteRetry(ctx, func() error {
		_, execErr := s.db.ExecContext(ctx, `
			INSERT INTO recommendations (id, key, query, payload, created_at)
			VALUES (?, ?, ?, ?, ?)
		`, id, key, string(queryJSON), string(payload), createdAt)
		return execErr
	})
	if err != nil {
		return "", fmt.Errorf("failed to save recommendation %s: %w", key, err)
	}

	return id, nil
}

// GetRecommendation loads a stored run by id.
func (s *SQLiteStorage) GetRecommendation(ctx context.Context, id string) (*model.RecommendationRun, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT id, key, query, payload, created_at FROM recommendations WHERE id = ?
	`, id)

	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("recommendation %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return run, nil
}

// ListRecommendations returns the most recent runs first.
// A non-positive limit returns every run.
func (s *SQLiteStorage) ListRecommendations(ctx context.Context, limit int) ([]model.RecommendationRun, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := `SELECT id, key, query, payload, created_at FROM recommendations ORDER BY seq DESC`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query recommendations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []model.RecommendationRun
	for rows.Next() {
		run, scanErr := scanRun(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate recommendations: %w", err)
	}

	return runs, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*model.RecommendationRun, error) {
	var (
		run       model.RecommendationRun
		queryJSON string
		payload   string
		createdAt string
	)
	if err := row.Scan(&run.ID, &run.Key, &queryJSON, &payload, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan recommendation: %w", err)
	}

	if err := json.Unmarshal([]byte(queryJSON), &run.Query); err != nil {
		return nil, fmt.Errorf("recommendation %s has invalid query: %w", run.ID, err)
	}
	run.Recommendation = &model.Recommendation{}
	if err := json.Unmarshal([]byte(payload), run.Recommendation); err != nil {
		return nil, fmt.Errorf("recommendation %s has invalid payload: %w", run.ID, err)
	}

	parsed, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, fmt.Errorf("recommendation %s has invalid timestamp: %w", run.ID, err)
	}
	run.CreatedAt = parsed

	return &run, nil
}
