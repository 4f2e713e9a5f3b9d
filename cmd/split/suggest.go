package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/Veraticus/the-split-must-flow/internal/cli"
	"github.com/Veraticus/the-split-must-flow/internal/model"
	"github.com/Veraticus/the-split-must-flow/internal/ofx"
	"github.com/Veraticus/the-split-must-flow/internal/service"
	"github.com/Veraticus/the-split-must-flow/internal/tui"
)

func suggestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "suggest <statement.ofx>",
		Aliases: []string{"suggest-ofx"},
		Short:   "Suggest participants for payments in a bank statement",
		Long: `Read debits from an OFX/QFX statement and suggest who shared each one.

With --interactive, each payment opens a picker and the confirmed
participants are recorded as a new settlement.`,
		Args:    cobra.ExactArgs(1),
		RunE:    runSuggest,
	}

	cmd.Flags().IntP("k", "k", 0, "Number of similar settlements to consult (default from config)")
	cmd.Flags().BoolP("interactive", "i", false, "Confirm participants for each payment and record them")

	return cmd
}

func runSuggest(cmd *cobra.Command, args []string) error {
	k, _ := cmd.Flags().GetInt("k")
	interactive, _ := cmd.Flags().GetBool("interactive")

	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", args[0], err)
	}
	defer func() { _ = f.Close() }()

	handler := cli.NewInterruptHandler(cmd.ErrOrStderr(), "Suggestions")
	ctx := handler.HandleInterrupts(cmd.Context(), "Settlements confirmed so far were kept.")

	payments, err := ofx.NewParser().ParsePayments(ctx, f)
	if err != nil {
		return fmt.Errorf("failed to parse statement: %w", err)
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

	eng, err := fitEngine(ctx, store, settings)
	if err != nil {
		return err
	}

	var pick pickFunc
	if interactive {
		pick = interactivePick
	}

	recorded, err := suggestPayments(ctx, store, eng, payments, k, pick, cmd.OutOrStdout())
	if err != nil && !handler.WasInterrupted() {
		return err
	}
	if interactive {
		writeLine(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Recorded %d settlements", recorded)))
	}
	return nil
}

// pickFunc asks the user to confirm participants.
type pickFunc func(ctx context.Context, title string, rec *model.Recommendation, known []string) ([]string, error)

func interactivePick(ctx context.Context, title string, rec *model.Recommendation, known []string) ([]string, error) {
	return tui.Pick(ctx, title, rec, known)
}

// suggestPayments prints a recommendation for each payment. When pick is set,
// confirmed selections are recorded and the number recorded is returned.
// A cancelled pick skips that payment.
func suggestPayments(ctx context.Context, store service.Storage, rec service.Recommender, payments []model.Payment, k int, pick pickFunc, out io.Writer) (int, error) {
	if len(payments) == 0 {
		writeLine(out, cli.FormatWarning("No payments found in statement"))
		return 0, nil
	}

	recorded := 0
	for _, p := range payments {
		if err := ctx.Err(); err != nil {
			return recorded, err
		}

		q := p.Query(k)
		result, err := rec.Recommend(q)
		if err != nil {
			return recorded, fmt.Errorf("payment %s: %w", p.ID, err)
		}

		writeLine(out, cli.FormatTitle(fmt.Sprintf("%s  %s", p.Date.Format(model.DateTimeLayout), p.Name)))
		writeLine(out, cli.RenderRecommendation(q, result))

		if pick == nil {
			continue
		}

		known, err := store.GetParticipants(ctx)
		if err != nil {
			return recorded, fmt.Errorf("failed to load participants: %w", err)
		}
		selected, err := pick(ctx, "Who shared "+p.Place+"?", result, known)
		if errors.Is(err, tui.ErrCancelled) || (err == nil && len(selected) == 0) {
			writeLine(out, cli.FormatInfo("Skipped"))
			continue
		}
		if err != nil {
			return recorded, err
		}

		added, err := recordSettlement(ctx, store, p.Place, p.Date, p.Amount, selected)
		if err != nil {
			return recorded, err
		}
		if added {
			recorded++
		}
	}
	return recorded, nil
}
