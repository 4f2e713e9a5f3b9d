package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/Veraticus/the-split-must-flow/internal/cli"
	"github.com/Veraticus/the-split-must-flow/internal/ingest"
	"github.com/Veraticus/the-split-must-flow/internal/model"
	"github.com/Veraticus/the-split-must-flow/internal/service"
)

const importBatchSize = 500

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Import past settlements from CSV",
		Long: `Import past settlements into the local database.

The CSV needs a header with place, datetime, amount and participants columns.
Participants are separated by '|'. Rows already in the database are skipped,
so the same file can be imported twice safely.`,
		Args: cobra.ExactArgs(1),
		RunE: runImport,
	}

	cmd.Flags().Bool("dry-run", false, "Show what would be imported without saving")

	return cmd
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", args[0], err)
	}
	defer func() { _ = f.Close() }()

	transactions, err := ingest.ReadCSV(f)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", args[0], err)
	}

	out := cmd.OutOrStdout()
	if dryRun {
		writeLine(out, cli.FormatWarning("Dry run mode - not saving to database"))
		writeLine(out, cli.RenderTransactions(transactions))
		return nil
	}

	settings, err := loadSettings()
	if err != nil {
		return err
	}
	store, err := initStorage(ctx, settings)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	inserted, err := importTransactions(ctx, store, transactions, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	writeLine(out, cli.FormatSuccess(fmt.Sprintf("Imported %d settlements (%d already known)",
		inserted, len(transactions)-inserted)))
	return nil
}

// importTransactions saves transactions in batches and returns how many were new.
func importTransactions(ctx context.Context, store service.Storage, transactions []model.Transaction, progress io.Writer) (int, error) {
	if len(transactions) == 0 {
		return 0, nil
	}

	bar := cli.NewProgress(progress, len(transactions), "Importing settlements...")
	inserted := 0
	for start := 0; start < len(transactions); start += importBatchSize {
		end := min(start+importBatchSize, len(transactions))

		n, err := store.SaveTransactions(ctx, transactions[start:end])
		if err != nil {
			return inserted, fmt.Errorf("failed to save settlements: %w", err)
		}
		inserted += n
		bar.Add(end - start)
	}
	bar.Finish()

	slog.Info("Import complete", "read", len(transactions), "inserted", inserted)
	return inserted, nil
}
