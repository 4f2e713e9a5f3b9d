// Package ingest reads settlement history from flat files.
package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/Veraticus/the-split-must-flow/internal/model"
)

// Column names expected in the header row.
const (
	ColumnPlace        = "place"
	ColumnDateTime     = "datetime"
	ColumnAmount       = "amount"
	ColumnParticipants = "participants"
)

var requiredColumns = []string{ColumnPlace, ColumnDateTime, ColumnAmount, ColumnParticipants}

// DateTimeLayouts are tried in order when parsing the datetime column.
var DateTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
}

// Ingestion errors.
var (
	ErrMissingColumn = errors.New("missing required column")
	ErrEmptyField    = errors.New("field is empty")
	ErrBadDateTime   = errors.New("unrecognised datetime")
	ErrBadAmount     = errors.New("amount must be a whole number")
)

// RowError reports a malformed field. Line is 1-based and counts the header.
type RowError struct {
	Err   error
	Field string
	Line  int
}

func (e *RowError) Error() string {
	return fmt.Sprintf("line %d, column %s: %v", e.Line, e.Field, e.Err)
}

func (e *RowError) Unwrap() error {
	return e.Err
}

// ReadCSV parses settlements from CSV with a header row naming at least the
// place, datetime, amount and participants columns. Column order is free and
// extra columns are ignored. Participants are pipe-delimited.
func ReadCSV(r io.Reader) ([]model.Transaction, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: empty input", ErrMissingColumn)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	columns, err := mapColumns(header)
	if err != nil {
		return nil, err
	}

	transactions := []model.Transaction{}
	for {
		record, readErr := reader.Read()
		if errors.Is(readErr, io.EOF) {
			break
		}
		if readErr != nil {
			return nil, fmt.Errorf("failed to read settlements: %w", readErr)
		}
		line, _ := reader.FieldPos(0)
		if isBlank(record) {
			continue
		}

		txn, parseErr := parseRecord(record, columns, line)
		if parseErr != nil {
			return nil, parseErr
		}
		transactions = append(transactions, txn)
	}

	slog.Debug("Read settlements from CSV", "rows", len(transactions))
	return transactions, nil
}

func mapColumns(header []string) (map[string]int, error) {
	columns := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		if _, dup := columns[name]; !dup {
			columns[name] = i
		}
	}

	var missing []string
	for _, col := range requiredColumns {
		if _, ok := columns[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, strings.Join(missing, ", "))
	}
	return columns, nil
}

func parseRecord(record []string, columns map[string]int, line int) (model.Transaction, error) {
	field := func(name string) string {
		i := columns[name]
		if i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	var txn model.Transaction

	txn.Place = field(ColumnPlace)
	if txn.Place == "" {
		return txn, &RowError{Line: line, Field: ColumnPlace, Err: ErrEmptyField}
	}

	dt, err := ParseDateTime(field(ColumnDateTime))
	if err != nil {
		return txn, &RowError{Line: line, Field: ColumnDateTime, Err: err}
	}
	txn.DateTime = dt

	amount, err := ParseAmount(field(ColumnAmount))
	if err != nil {
		return txn, &RowError{Line: line, Field: ColumnAmount, Err: err}
	}
	txn.Amount = amount

	txn.Participants = model.SplitParticipants(field(ColumnParticipants))
	if len(txn.Participants) == 0 {
		return txn, &RowError{Line: line, Field: ColumnParticipants, Err: ErrEmptyField}
	}

	txn.Hash = txn.GenerateHash()
	return txn, nil
}

// ParseDateTime parses a settlement timestamp in any of DateTimeLayouts.
// Layouts without a zone are read as UTC wall-clock time.
func ParseDateTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, ErrEmptyField
	}
	for _, layout := range DateTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrBadDateTime, s)
}

// ParseAmount parses a whole-unit amount. Thousands separators and a zero
// fractional part ("10000.0") are accepted. Refunds may be negative.
func ParseAmount(s string) (int64, error) {
	if s == "" {
		return 0, ErrEmptyField
	}
	s = strings.ReplaceAll(s, ",", "")

	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, nil
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) || math.Abs(f) > math.MaxInt64 {
		return 0, fmt.Errorf("%w: %q", ErrBadAmount, s)
	}
	return int64(f), nil
}

func isBlank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
