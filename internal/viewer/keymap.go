package viewer

import (
	"github.com/charmbracelet/bubbles/key"
)

// KeyMap defines the viewer keybindings.
type KeyMap struct {
	PrevPage key.Binding
	NextPage key.Binding
	PrevDiff key.Binding
	NextDiff key.Binding

	ZoomIn  key.Binding
	ZoomOut key.Binding

	ScrollUp    key.Binding
	ScrollDown  key.Binding
	ScrollLeft  key.Binding
	ScrollRight key.Binding

	// Offset bindings move the second document by one pixel.
	OffsetUp    key.Binding
	OffsetDown  key.Binding
	OffsetLeft  key.Binding
	OffsetRight key.Binding
	OffsetReset key.Binding

	Quit key.Binding
}

// DefaultKeyMap returns the default keybindings.
func DefaultKeyMap() *KeyMap {
	return &KeyMap{
		PrevPage: key.NewBinding(
			key.WithKeys("pgup"),
			key.WithHelp("pgup", "prev page"),
		),
		NextPage: key.NewBinding(
			key.WithKeys("pgdown"),
			key.WithHelp("pgdn", "next page"),
		),
		PrevDiff: key.NewBinding(
			key.WithKeys("N"),
			key.WithHelp("N", "prev diff"),
		),
		NextDiff: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "next diff"),
		),
		ZoomIn: key.NewBinding(
			key.WithKeys("+", "="),
			key.WithHelp("+", "zoom in"),
		),
		ZoomOut: key.NewBinding(
			key.WithKeys("-"),
			key.WithHelp("-", "zoom out"),
		),
		ScrollUp: key.NewBinding(
			key.WithKeys("up"),
		),
		ScrollDown: key.NewBinding(
			key.WithKeys("down"),
		),
		ScrollLeft: key.NewBinding(
			key.WithKeys("left"),
		),
		ScrollRight: key.NewBinding(
			key.WithKeys("right"),
		),
		OffsetUp: key.NewBinding(
			key.WithKeys("ctrl+up", "K"),
			key.WithHelp("H/J/K/L", "offset"),
		),
		OffsetDown: key.NewBinding(
			key.WithKeys("ctrl+down", "J"),
		),
		OffsetLeft: key.NewBinding(
			key.WithKeys("ctrl+left", "H"),
		),
		OffsetRight: key.NewBinding(
			key.WithKeys("ctrl+right", "L"),
		),
		OffsetReset: key.NewBinding(
			key.WithKeys("0"),
			key.WithHelp("0", "reset offset"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// ShortHelp returns the bindings shown in the status bar.
func (k *KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.NextPage, k.NextDiff, k.ZoomIn, k.OffsetUp, k.OffsetReset, k.Quit}
}
