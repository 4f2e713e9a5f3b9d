// Package tui provides an interactive participant picker built on bubbletea.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Veraticus/the-split-must-flow/internal/model"
)

// Option is one participant row in the picker.
type Option struct {
	Name        string
	Score       float64
	Recommended bool
}

// Picker is a checklist of participants. Recommended participants come
// first, in rank order, and start selected.
type Picker struct {
	selected  map[int]bool
	title     string
	theme     Theme
	keys      KeyMap
	options   []Option
	help      help.Model
	cursor    int
	confirmed bool
	cancelled bool
}

// NewPicker builds a picker from a recommendation and the full set of known
// participants. Unknown recommended names are still listed.
func NewPicker(title string, rec *model.Recommendation, known []string) Picker {
	p := Picker{
		title:    title,
		theme:    DefaultTheme,
		keys:     DefaultKeyMap(),
		help:     help.New(),
		selected: make(map[int]bool),
	}

	listed := make(map[string]bool)
	if rec != nil {
		for _, s := range rec.Scores() {
			p.selected[len(p.options)] = true
			p.options = append(p.options, Option{Name: s.Participant, Score: s.Score, Recommended: true})
			listed[s.Participant] = true
		}
	}
	for _, name := range known {
		if listed[name] {
			continue
		}
		listed[name] = true
		p.options = append(p.options, Option{Name: name})
	}

	return p
}

// Init initializes the model.
func (p Picker) Init() tea.Cmd {
	return nil
}

// Update handles key presses.
func (p Picker) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		p.help.Width = msg.Width

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, p.keys.ForceCancel), key.Matches(msg, p.keys.Cancel):
			p.cancelled = true
			return p, tea.Quit

		case key.Matches(msg, p.keys.Confirm):
			p.confirmed = true
			return p, tea.Quit

		case key.Matches(msg, p.keys.Up):
			if p.cursor > 0 {
				p.cursor--
			}

		case key.Matches(msg, p.keys.Down):
			if p.cursor < len(p.options)-1 {
				p.cursor++
			}

		case key.Matches(msg, p.keys.Toggle):
			if len(p.options) > 0 {
				p.selected[p.cursor] = !p.selected[p.cursor]
			}

		case key.Matches(msg, p.keys.SelectAll):
			for i := range p.options {
				p.selected[i] = true
			}

		case key.Matches(msg, p.keys.SelectNone):
			p.selected = make(map[int]bool)

		case key.Matches(msg, p.keys.ToggleHelp):
			p.help.ShowAll = !p.help.ShowAll
		}
	}

	return p, nil
}

// View renders the checklist.
func (p Picker) View() string {
	var b strings.Builder
	b.WriteString(p.theme.Title.Render(p.title))
	b.WriteString("\n")

	if len(p.options) == 0 {
		b.WriteString(p.theme.Unchecked.Render("No known participants yet."))
		b.WriteString("\n")
	}

	for i, opt := range p.options {
		cursor := "  "
		if i == p.cursor {
			cursor = p.theme.Cursor.Render("> ")
		}

		box := p.theme.Unchecked.Render("[ ]")
		if p.selected[i] {
			box = p.theme.Checked.Render("[x]")
		}

		name := opt.Name
		if opt.Recommended {
			name = p.theme.Recommended.Render(name) + " " + p.theme.Score.Render(fmt.Sprintf("%.3f", opt.Score))
		}

		fmt.Fprintf(&b, "%s%s %s\n", cursor, box, name)
	}

	b.WriteString(p.theme.Footer.Render(fmt.Sprintf("%d selected", len(p.Selected()))))
	b.WriteString("\n")
	b.WriteString(p.help.View(p.keys))
	return b.String()
}

// Selected returns the chosen participants in list order.
func (p Picker) Selected() []string {
	names := []string{}
	for i, opt := range p.options {
		if p.selected[i] {
			names = append(names, opt.Name)
		}
	}
	return names
}

// Options returns the rows in display order.
func (p Picker) Options() []Option {
	out := make([]Option, len(p.options))
	copy(out, p.options)
	return out
}

// Confirmed reports whether the user accepted the selection.
func (p Picker) Confirmed() bool {
	return p.confirmed
}

// Cancelled reports whether the user backed out.
func (p Picker) Cancelled() bool {
	return p.cancelled
}
