package tui

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Veraticus/the-split-must-flow/internal/model"
)

// ErrCancelled is returned when the user leaves the picker without confirming.
var ErrCancelled = errors.New("selection cancelled")

// Pick runs the picker until the user confirms or cancels and returns the
// chosen participants. Extra program options let callers redirect input and
// output.
func Pick(ctx context.Context, title string, rec *model.Recommendation, known []string, opts ...tea.ProgramOption) ([]string, error) {
	picker := NewPicker(title, rec, known)

	opts = append([]tea.ProgramOption{tea.WithContext(ctx)}, opts...)
	final, err := tea.NewProgram(picker, opts...).Run()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("picker failed: %w", err)
	}

	result, ok := final.(Picker)
	if !ok {
		return nil, fmt.Errorf("unexpected picker model %T", final)
	}
	if !result.Confirmed() {
		return nil, ErrCancelled
	}
	return result.Selected(), nil
}
