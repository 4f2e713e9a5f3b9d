package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Veraticus/the-split-must-flow/internal/model"
	"github.com/Veraticus/the-split-must-flow/internal/service"
)

// SaveTransactions stores settlements, skipping any whose hash is already
// present. It returns how many rows were actually inserted.
func (s *SQLiteStorage) SaveTransactions(ctx context.Context, transactions []model.Transaction) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	if err := validateTransactions(transactions); err != nil {
		return 0, err
	}

	var inserted int
	err := withWriteRetry(ctx, func() error {
		n, saveErr := s.saveTransactionsOnce(ctx, transactions)
		inserted = n
		return saveErr
	})
	if err != nil {
		return 0, err
	}

	slog.Debug("Saved settlements",
		"received", len(transactions),
		"inserted", inserted)
	return inserted, nil
}

func (s *SQLiteStorage) saveTransactionsOnce(ctx context.Context, transactions []model.Transaction) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	inserted, err := s.saveTransactionsTx(ctx, tx, transactions)
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transactions: %w", err)
	}
	return inserted, nil
}

func (s *SQLiteStorage) saveTransactionsTx(ctx context.Context, tx *sql.Tx, transactions []model.Transaction) (int, error) {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO transactions (
			id, hash, place, datetime, amount, participants
		) VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	inserted := 0
	for _, txn := range transactions {
		if txn.Hash == "" {
			txn.Hash = txn.GenerateHash()
		}
		if txn.ID == "" {
			txn.ID = uuid.NewString()
		}

		result, execErr := stmt.ExecContext(ctx,
			txn.ID,
			txn.Hash,
			txn.Place,
			txn.DateTime.Format(time.RFC3339Nano),
			txn.Amount,
			txn.JoinedParticipants(),
		)
		if execErr != nil {
			return 0, fmt.Errorf("failed to insert transaction %s: %w", txn.ID, execErr)
		}

		n, raErr := result.RowsAffected()
		if raErr != nil {
			return 0, fmt.Errorf("failed to read affected rows: %w", raErr)
		}
		inserted += int(n)
	}

	return inserted, nil
}

// GetTransactions returns stored settlements in insertion order.
func (s *SQLiteStorage) GetTransactions(ctx context.Context, filter service.TransactionFilter) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := `SELECT id, hash, place, datetime, amount, participants FROM transactions`
	var (
		conditions []string
		args       []any
	)
	if filter.Place != "" {
		conditions = append(conditions, "place = ?")
		args = append(args, filter.Place)
	}
	if filter.Participant != "" {
		conditions = append(conditions, "instr('|' || participants || '|', '|' || ? || '|') > 0")
		args = append(args, filter.Participant)
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY seq ASC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var transactions []model.Transaction
	for rows.Next() {
		txn, scanErr := scanTransaction(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		transactions = append(transactions, txn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transactions: %w", err)
	}

	return transactions, nil
}

func scanTransaction(rows *sql.Rows) (model.Transaction, error) {
	var (
		txn          model.Transaction
		datetime     string
		participants string
	)
	if err := rows.Scan(&txn.ID, &txn.Hash, &txn.Place, &datetime, &txn.Amount, &participants); err != nil {
		return txn, fmt.Errorf("failed to scan transaction: %w", err)
	}

	parsed, err := time.Parse(time.RFC3339Nano, datetime)
	if err != nil {
		return txn, fmt.Errorf("transaction %s has invalid datetime %q: %w", txn.ID, datetime, err)
	}
	txn.DateTime = parsed
	txn.Participants = model.SplitParticipants(participants)
	return txn, nil
}

// CountTransactions returns the number of stored settlements.
func (s *SQLiteStorage) CountTransactions(ctx context.Context) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}

	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM transactions`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count transactions: %w", err)
	}
	return count, nil
}

// GetParticipants returns every distinct participant in order of first appearance.
func (s *SQLiteStorage) GetParticipants(ctx context.Context) ([]string, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT participants FROM transactions ORDER BY seq ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query participants: %w", err)
	}
	defer func() { _ = rows.Close() }()

	seen := make(map[string]bool)
	participants := []string{}
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("failed to scan participants: %w", err)
		}
		for _, p := range model.SplitParticipants(raw) {
			if seen[p] {
				continue
			}
			seen[p] = true
			participants = append(participants, p)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate participants: %w", err)
	}

	return participants, nil
}

var _ service.Storage = (*SQLiteStorage)(nil)
