package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Veraticus/the-split-must-flow/internal/cli"
	"github.com/Veraticus/the-split-must-flow/internal/config"
	"github.com/Veraticus/the-split-must-flow/internal/storage"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		Long: `Initialize or update the database schema to the latest version.

Use --backup to copy the database to a new file before migrating.`,
		RunE: runMigrate,
	}

	cmd.Flags().Bool("status", false, "Show current migration status without applying changes")
	cmd.Flags().String("backup", "", "Absolute path to write a backup to before migrating")

	return cmd
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	status, _ := cmd.Flags().GetBool("status")
	backup, _ := cmd.Flags().GetString("backup")

	settings, err := loadSettings()
	if err != nil {
		return err
	}

	slog.Info("Starting database migration",
		"database", settings.DatabasePath,
		"status_only", status)

	store, err := storage.NewSQLiteStorage(settings.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = store.Close() }()

	if backup != "" {
		if backup, err = config.ResolvePath(backup); err != nil {
			return err
		}
		if err := store.Backup(cmd.Context(), backup); err != nil {
			return fmt.Errorf("backup failed: %w", err)
		}
		writeLine(cmd.OutOrStdout(), cli.FormatSuccess("Backup written to "+backup))
	}

	return migrate(cmd.Context(), store, status, cmd.OutOrStdout())
}

func migrate(ctx context.Context, store *storage.SQLiteStorage, statusOnly bool, out io.Writer) error {
	current, err := store.SchemaVersion(ctx)
	if err != nil {
		return err
	}

	if statusOnly {
		content := fmt.Sprintf("Database: %s\nCurrent version: %d\nLatest version: %d",
			store.Path(), current, storage.ExpectedSchemaVersion)
		writeLine(out, cli.RenderBox("Database Migration Status", content))
		return nil
	}

	if current >= storage.ExpectedSchemaVersion {
		writeLine(out, cli.FormatInfo(fmt.Sprintf("Database already at version %d", current)))
		return nil
	}

	if err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	writeLine(out, cli.FormatSuccess(fmt.Sprintf("Migrated database from version %d to %d", current, storage.ExpectedSchemaVersion)))
	return nil
}
