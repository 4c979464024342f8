package widgets

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"volca-seq/panel"
	"volca-seq/router"
	"volca-seq/theme"
)

// RenderPad renders a single colored key
func RenderPad(th *theme.Theme, c panel.RGB) string {
	if c == panel.Off {
		return lipgloss.NewStyle().Foreground(th.Off()).Render(string(th.Symbols.PadOff))
	}
	style := lipgloss.NewStyle().Foreground(theme.Lipgloss(c))
	return style.Render(string(th.Symbols.Pad))
}

// RenderPadRow renders a row of colored keys with spacing
func RenderPadRow(th *theme.Theme, colors []panel.RGB) string {
	var out strings.Builder
	for i, c := range colors {
		if i > 0 {
			out.WriteString(" ")
		}
		out.WriteString(RenderPad(th, c))
	}
	return out.String()
}

// RenderKeypad lays the keys out as three labelled rows: steps, channel
// select, channel arm
func RenderKeypad(th *theme.Theme, colors map[int]panel.RGB, l router.Layout) string {
	row := func(n int, key func(int) int) string {
		cs := make([]panel.RGB, n)
		for i := range cs {
			cs[i] = colors[key(i)]
		}
		return RenderPadRow(th, cs)
	}
	return strings.Join([]string{
		"steps  " + row(l.Steps, l.StepKey),
		"select " + row(l.Channels, l.SelectKey),
		"arm    " + row(l.Channels, l.ArmKey),
	}, "\n")
}

// RenderDisplay draws the character display inside a border
func RenderDisplay(lines []string, fg lipgloss.Color) string {
	style := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(fg).
		Padding(0, 1)
	return style.Render(strings.Join(lines, "\n"))
}

// RenderKeyHelp formats key bindings in a friendly way
func RenderKeyHelp(sections []KeySection) string {
	var lines []string
	for _, sec := range sections {
		if sec.Title != "" {
			lines = append(lines, sec.Title)
		}
		for _, k := range sec.Keys {
			lines = append(lines, fmt.Sprintf("  %-12s %s", k.Key, k.Desc))
		}
	}
	return strings.Join(lines, "\n")
}

// KeySection groups related key bindings
type KeySection struct {
	Title string
	Keys  []KeyBinding
}

// KeyBinding is a single key and its description
type KeyBinding struct {
	Key  string
	Desc string
}
