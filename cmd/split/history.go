package main

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	"github.com/Veraticus/the-split-must-flow/internal/cli"
	"github.com/Veraticus/the-split-must-flow/internal/model"
	"github.com/Veraticus/the-split-must-flow/internal/report"
	"github.com/Veraticus/the-split-must-flow/internal/service"
)

func historyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Browse stored settlements and past recommendations",
	}

	cmd.AddCommand(historySettlementsCmd())
	cmd.AddCommand(historyRunsCmd())
	cmd.AddCommand(historyShowCmd())

	return cmd
}

func historySettlementsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "settlements",
		Aliases: []string{"list"},
		Short:   "List stored settlements",
		RunE: func(cmd *cobra.Command, _ []string) error {
			place, _ := cmd.Flags().GetString("place")
			participant, _ := cmd.Flags().GetString("participant")
			limit, _ := cmd.Flags().GetInt("limit")

			return withStorage(cmd, func(ctx context.Context, store service.Storage) error {
				return listSettlements(ctx, store, service.TransactionFilter{
					Place:       place,
					Participant: participant,
					Limit:       limit,
				}, cmd.OutOrStdout())
			})
		},
	}

	cmd.Flags().String("place", "", "Only settlements at this place")
	cmd.Flags().String("participant", "", "Only settlements this participant joined")
	cmd.Flags().IntP("limit", "n", 0, "Maximum rows to show")

	return cmd
}

func historyRunsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List saved recommendations, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			limit, _ := cmd.Flags().GetInt("limit")

			return withStorage(cmd, func(ctx context.Context, store service.Storage) error {
				runs, err := store.ListRecommendations(ctx, limit)
				if err != nil {
					return err
				}
				if len(runs) == 0 {
					writeLine(cmd.OutOrStdout(), cli.FormatInfo("No saved recommendations"))
					return nil
				}
				writeLine(cmd.OutOrStdout(), cli.RenderRuns(runs))
				return nil
			})
		},
	}

	cmd.Flags().IntP("limit", "n", 20, "Maximum rows to show")

	return cmd
}

func historyShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Print a saved recommendation as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStorage(cmd, func(ctx context.Context, store service.Storage) error {
				return showRun(ctx, store, args[0], cmd.OutOrStdout())
			})
		},
	}
}

func withStorage(cmd *cobra.Command, fn func(context.Context, service.Storage) error) error {
	ctx := cmd.Context()
	settings, err := loadSettings()
	if err != nil {
		return err
	}
	store, err := initStorage(ctx, settings)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	return fn(ctx, store)
}

func listSettlements(ctx context.Context, store service.Storage, filter service.TransactionFilter, out io.Writer) error {
	txns, err := store.GetTransactions(ctx, filter)
	if err != nil {
		return err
	}
	if len(txns) == 0 {
		writeLine(out, cli.FormatInfo("No settlements found"))
		return nil
	}
	writeLine(out, cli.RenderTransactions(txns))
	return nil
}

func showRun(ctx context.Context, store service.Storage, id string, out io.Writer) error {
	run, err := store.GetRecommendation(ctx, id)
	if err != nil {
		return err
	}
	return report.WriteRecommendations(out, map[string]*model.Recommendation{run.Key: run.Recommendation})
}
