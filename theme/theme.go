package theme

import (
	"github.com/charmbracelet/lipgloss"

	"volca-seq/panel"
)

// Theme styles the terminal simulator from the key palette
type Theme struct {
	Palette *Palette
	Symbols Symbols
}

// Symbols are the glyphs the simulator draws keys and transport state with
type Symbols struct {
	Pad      rune // ■ lit key
	PadOff   rune // □ dark key
	Playhead rune // ▶ transport running
	Stopped  rune // ■ transport stopped
}

func New(palette *Palette) *Theme {
	return &Theme{
		Palette: palette,
		Symbols: Symbols{
			Pad:      '■',
			PadOff:   '□',
			Playhead: '▶',
			Stopped:  '■',
		},
	}
}

// Style helpers

func (t *Theme) FG() lipgloss.Color {
	return Lipgloss(panel.RGB{0xdd, 0xdd, 0xdd})
}

func (t *Theme) Accent() lipgloss.Color {
	return Lipgloss(t.Palette.SelectedFor(0))
}

// Off is the outline color of a dark key
func (t *Theme) Off() lipgloss.Color {
	return lipgloss.Color("#444444")
}

func (t *Theme) Muted() lipgloss.Color {
	return Lipgloss(t.Palette.DimFor(0))
}

func (t *Theme) Active() lipgloss.Color {
	return Lipgloss(t.Palette.Armed)
}

func (t *Theme) Cursor() lipgloss.Color {
	return Lipgloss(t.Palette.CursorFor(0))
}

func (t *Theme) Warning() lipgloss.Color {
	return Lipgloss(t.Palette.CursorFor(len(t.Palette.Cursor) - 1))
}

// Lipgloss converts a key color for terminal output
func Lipgloss(c panel.RGB) lipgloss.Color {
	return lipgloss.Color(c.String())
}
