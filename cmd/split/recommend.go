package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/Veraticus/the-split-must-flow/internal/cli"
	"github.com/Veraticus/the-split-must-flow/internal/model"
	"github.com/Veraticus/the-split-must-flow/internal/report"
	"github.com/Veraticus/the-split-must-flow/internal/service"
)

func recommendCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recommend",
		Short: "Suggest participants for a new settlement",
		Long: `Find the most similar past settlements and rank who took part in them.

Place, hour of day and amount describe the new settlement. The nearest K
past settlements vote for their participants, weighted by similarity.`,
		Example: `  split recommend --place "Cafe X" --hour 18 --amount 10200
  split recommend --place "Cafe X" --hour 18 --amount 10200 --k 5 --json`,
		RunE: runRecommend,
	}

	addQueryFlags(cmd)
	cmd.Flags().Bool("json", false, "Print the recommendation as JSON")
	cmd.Flags().Bool("save", false, "Keep the recommendation in history")

	return cmd
}

func addQueryFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("place", "p", "", "Where the settlement happened")
	cmd.Flags().Int("hour", 0, "Hour of day, 0-23")
	cmd.Flags().Int64P("amount", "a", 0, "Total amount in whole currency units")
	cmd.Flags().IntP("k", "k", 0, "Number of similar settlements to consult (default from config)")
	_ = cmd.MarkFlagRequired("place")
	_ = cmd.MarkFlagRequired("hour")
	_ = cmd.MarkFlagRequired("amount")
}

func queryFromFlags(cmd *cobra.Command) model.Query {
	place, _ := cmd.Flags().GetString("place")
	hour, _ := cmd.Flags().GetInt("hour")
	amount, _ := cmd.Flags().GetInt64("amount")
	k, _ := cmd.Flags().GetInt("k")
	return model.Query{Place: place, Hour: hour, Amount: amount, K: k}
}

type recommendOptions struct {
	asJSON bool
	save   bool
}

func runRecommend(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	asJSON, _ := cmd.Flags().GetBool("json")
	save, _ := cmd.Flags().GetBool("save")

	settings, err := loadSettings()
	if err != nil {
		return err
	}
	store, err := initStorage(ctx, settings)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	eng, err := fitEngine(ctx, store, settings)
	if err != nil {
		return err
	}

	return recommendAndRender(ctx, store, eng, queryFromFlags(cmd),
		recommendOptions{asJSON: asJSON, save: save}, cmd.OutOrStdout())
}

// recommendAndRender answers one query, optionally records it, and prints it.
func recommendAndRender(ctx context.Context, store service.Storage, rec service.Recommender, q model.Query, opts recommendOptions, out io.Writer) error {
	result, err := rec.Recommend(q)
	if err != nil {
		return err
	}

	key := report.ScenarioKey(q)
	if opts.save {
		id, saveErr := store.SaveRecommendation(ctx, key, q, result)
		if saveErr != nil {
			return fmt.Errorf("failed to save recommendation: %w", saveErr)
		}
		if !opts.asJSON {
			writeLine(out, cli.FormatInfo("Saved as "+id))
		}
	}

	if opts.asJSON {
		return report.WriteRecommendation(out, result)
	}

	writeLine(out, cli.RenderRecommendation(q, result))
	return nil
}
