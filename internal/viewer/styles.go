package viewer

import (
	"github.com/charmbracelet/lipgloss"
)

// Theme is the viewer colour palette.
type Theme struct {
	Foreground lipgloss.Color
	Muted      lipgloss.Color
	Changed    lipgloss.Color
	Unchanged  lipgloss.Color
	Error      lipgloss.Color
	Bar        lipgloss.Color
	Border     lipgloss.Color
}

// DefaultTheme returns the default colour theme. Changed and Unchanged
// follow the thumbnail marker colours.
func DefaultTheme() *Theme {
	return &Theme{
		Foreground: lipgloss.Color("#CDD6F4"),
		Muted:      lipgloss.Color("#6C7086"),
		Changed:    lipgloss.Color("#FF0000"),
		Unchanged:  lipgloss.Color("#AAE682"),
		Error:      lipgloss.Color("#F38BA8"),
		Bar:        lipgloss.Color("#313244"),
		Border:     lipgloss.Color("#45475A"),
	}
}

// Styles holds the pre-configured lipgloss styles.
type Styles struct {
	StatusBar  lipgloss.Style
	StatusInfo lipgloss.Style
	Help       lipgloss.Style
	Gutter     lipgloss.Style
	Changed    lipgloss.Style
	Unchanged  lipgloss.Style
	Current    lipgloss.Style
	Error      lipgloss.Style
}

// DefaultStyles returns styles built from the default theme.
func DefaultStyles() *Styles {
	return NewStyles(DefaultTheme())
}

// NewStyles builds styles from a theme.
func NewStyles(t *Theme) *Styles {
	return &Styles{
		StatusBar: lipgloss.NewStyle().
			Foreground(t.Foreground).
			Background(t.Bar),
		StatusInfo: lipgloss.NewStyle().
			Foreground(t.Foreground).
			Background(t.Bar).
			Bold(true),
		Help: lipgloss.NewStyle().
			Foreground(t.Muted).
			Background(t.Bar),
		Gutter: lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderRight(true).
			BorderForeground(t.Border),
		Changed:   lipgloss.NewStyle().Foreground(t.Changed),
		Unchanged: lipgloss.NewStyle().Foreground(t.Unchanged),
		Current:   lipgloss.NewStyle().Bold(true).Reverse(true),
		Error:     lipgloss.NewStyle().Foreground(t.Error).Bold(true),
	}
}
