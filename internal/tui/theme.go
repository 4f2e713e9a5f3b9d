package tui

import "github.com/charmbracelet/lipgloss"

// Theme defines the visual style of the picker.
type Theme struct {
	Title       lipgloss.Style
	Cursor      lipgloss.Style
	Checked     lipgloss.Style
	Unchecked   lipgloss.Style
	Recommended lipgloss.Style
	Score       lipgloss.Style
	Footer      lipgloss.Style
}

// DefaultTheme is the picker's default look.
var DefaultTheme = Theme{
	Title:       lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C9EFF")).MarginBottom(1),
	Cursor:      lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C9EFF")),
	Checked:     lipgloss.NewStyle().Foreground(lipgloss.Color("#4ECDC4")),
	Unchecked:   lipgloss.NewStyle().Foreground(lipgloss.Color("#666666")),
	Recommended: lipgloss.NewStyle().Bold(true),
	Score:       lipgloss.NewStyle().Foreground(lipgloss.Color("#95E1D3")),
	Footer:      lipgloss.NewStyle().Foreground(lipgloss.Color("#666666")).MarginTop(1),
}
