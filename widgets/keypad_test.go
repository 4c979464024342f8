package widgets

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"volca-seq/grid"
	"volca-seq/panel"
	"volca-seq/router"
	"volca-seq/theme"
)

func TestRenderPadUsesThemeSymbols(t *testing.T) {
	th := theme.New(theme.Default())
	th.Symbols.Pad = '#'
	th.Symbols.PadOff = '.'

	assert.Contains(t, RenderPad(th, panel.RGB{0xff, 0, 0}), "#")
	assert.Contains(t, RenderPad(th, panel.Off), ".")
}

func TestRenderKeypadRows(t *testing.T) {
	th := theme.New(theme.Default())
	l := router.NewLayout(grid.Size{Banks: 1, Channels: 2, Steps: 4})
	colors := map[int]panel.RGB{
		l.StepKey(1):   {0xff, 0, 0},
		l.SelectKey(0): {0, 0xff, 0},
	}

	rows := strings.Split(RenderKeypad(th, colors, l), "\n")
	assert.Len(t, rows, 3)
	assert.Equal(t, 1, strings.Count(rows[0], string(th.Symbols.Pad)))
	assert.Equal(t, 3, strings.Count(rows[0], string(th.Symbols.PadOff)))
	assert.Equal(t, 1, strings.Count(rows[1], string(th.Symbols.Pad)))
	assert.Equal(t, 2, strings.Count(rows[2], string(th.Symbols.PadOff)))
}
