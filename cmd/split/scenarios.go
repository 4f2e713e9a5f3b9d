package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/Veraticus/the-split-must-flow/internal/cli"
	"github.com/Veraticus/the-split-must-flow/internal/model"
	"github.com/Veraticus/the-split-must-flow/internal/report"
	"github.com/Veraticus/the-split-must-flow/internal/service"
)

func scenariosCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scenarios",
		Short: "Run a batch of recommendation queries",
		Long: `Answer a list of queries and write every recommendation to one JSON file,
keyed by place_hour_amount.

Queries come from a YAML file, or a built-in set when no file is given.`,
		RunE: runScenarios,
	}

	cmd.Flags().StringP("file", "f", "", "YAML file with scenarios")
	cmd.Flags().StringP("output", "o", "", "Where to write the JSON results (default from config)")
	cmd.Flags().Bool("no-save", false, "Do not keep the results in history")

	return cmd
}

func runScenarios(cmd *cobra.Command, _ []string) error {
	file, _ := cmd.Flags().GetString("file")
	output, _ := cmd.Flags().GetString("output")
	noSave, _ := cmd.Flags().GetBool("no-save")

	queries, err := loadQueries(file)
	if err != nil {
		return err
	}

	settings, err := loadSettings()
	if err != nil {
		return err
	}
	if output == "" {
		output = settings.OutputPath
	}

	handler := cli.NewInterruptHandler(cmd.ErrOrStderr(), "Scenario run")
	ctx := handler.HandleInterrupts(cmd.Context(), "No results were written.")

	store, err := initStorage(ctx, settings)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	eng, err := fitEngine(ctx, store, settings)
	if err != nil {
		return err
	}

	results, err := runBatch(ctx, store, eng, queries, !noSave, cmd.ErrOrStderr())
	if err != nil {
		if handler.WasInterrupted() {
			return nil
		}
		return err
	}

	if err := report.WriteRecommendationsFile(output, results); err != nil {
		return err
	}

	writeLine(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Wrote %d recommendations to %s", len(results), output)))
	return nil
}

func loadQueries(file string) ([]model.Query, error) {
	if file == "" {
		return report.DefaultScenarios, nil
	}

	f, err := os.Open(file)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", file, err)
	}
	defer func() { _ = f.Close() }()

	return report.LoadScenarios(f)
}

// runBatch answers every query in order. Queries that differ in any field,
// K included, get distinct keys; exact duplicates collapse to one entry.
func runBatch(ctx context.Context, store service.Storage, rec service.Recommender, queries []model.Query, save bool, progress io.Writer) (map[string]*model.Recommendation, error) {
	results := make(map[string]*model.Recommendation, len(queries))
	if len(queries) == 0 {
		return results, nil
	}

	bar := cli.NewProgress(progress, len(queries), "Recommending...")
	for _, q := range queries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		result, err := rec.Recommend(q)
		if err != nil {
			return nil, fmt.Errorf("scenario %q: %w", report.ScenarioKey(q), err)
		}

		key := report.ScenarioKey(q)
		results[key] = result
		if save {
			if _, err := store.SaveRecommendation(ctx, key, q, result); err != nil {
				return nil, fmt.Errorf("failed to save recommendation: %w", err)
			}
		}
		bar.Step()
	}
	bar.Finish()

	slog.Info("Scenario run complete", "queries", len(queries), "results", len(results))
	return results, nil
}
