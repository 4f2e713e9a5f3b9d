package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Veraticus/the-split-must-flow/internal/cli"
	"github.com/Veraticus/the-split-must-flow/internal/tui"
)

func pickCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pick",
		Short: "Choose participants for a new settlement interactively",
		Long: `Open an interactive checklist seeded with the recommendation for a new
settlement. With --save, confirmed participants are recorded as a settlement
so the next recommendation learns from it.`,
		Example: `  split pick --place "Cafe X" --hour 18 --amount 10200 --date 2024-07-12 --save`,
		RunE:    runPick,
	}

	addQueryFlags(cmd)
	cmd.Flags().String("date", "", "Settlement date, 2006-01-02 (default: today)")
	cmd.Flags().Bool("save", false, "Record the confirmed participants as a settlement")

	return cmd
}

func runPick(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	q := queryFromFlags(cmd)
	dateStr, _ := cmd.Flags().GetString("date")
	save, _ := cmd.Flags().GetBool("save")

	when, err := settlementTime(dateStr, q.Hour, time.Now())
	if err != nil {
		return err
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

	result, err := eng.Recommend(q)
	if err != nil {
		return err
	}
	known, err := store.GetParticipants(ctx)
	if err != nil {
		return err
	}

	selected, err := tui.Pick(ctx, "Who joined at "+q.Place+"?", result, known)
	if errors.Is(err, tui.ErrCancelled) {
		writeLine(cmd.OutOrStdout(), cli.FormatWarning("Nothing recorded"))
		return nil
	}
	if err != nil {
		return err
	}
	if len(selected) == 0 {
		writeLine(cmd.OutOrStdout(), cli.FormatWarning("No participants selected, nothing recorded"))
		return nil
	}

	if !save {
		writeLine(cmd.OutOrStdout(), cli.FormatInfo("Selected: "+strings.Join(selected, ", ")))
		return nil
	}

	added, err := recordSettlement(ctx, store, q.Place, when, q.Amount, selected)
	if err != nil {
		return err
	}
	if !added {
		writeLine(cmd.OutOrStdout(), cli.FormatInfo("This settlement was already recorded"))
		return nil
	}

	writeLine(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Recorded %s with %d participants", q.Place, len(selected))))
	return nil
}

// settlementTime combines a date flag and an hour into a local timestamp.
// An empty date means the day of now.
func settlementTime(date string, hour int, now time.Time) (time.Time, error) {
	day := now
	if date != "" {
		parsed, err := time.ParseInLocation("2006-01-02", date, now.Location())
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid date %q: %w", date, err)
		}
		day = parsed
	}
	return time.Date(day.Year(), day.Month(), day.Day(), hour, 0, 0, 0, now.Location()), nil
}
