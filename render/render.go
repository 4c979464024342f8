// Package render computes what the keypad and the display should show. It
// never talks to hardware; the sequencer pushes the Frame.
package render

import (
	"fmt"
	"strings"

	"volca-seq/grid"
	"volca-seq/panel"
	"volca-seq/router"
	"volca-seq/theme"
	"volca-seq/transport"
)

// Display geometry: 128px OLED, 8px font
const (
	DisplayCols  = 16
	DisplayLines = 2
)

// Status is the transport and error state the renderer shows
type Status struct {
	Playing bool
	BPM     int
	Err     bool // a rejected operation is being flagged
}

// Frame is one complete picture: a color for every mapped key and the
// display text (DisplayLines lines of DisplayCols columns, newline separated).
type Frame struct {
	KeyColors   map[int]panel.RGB
	DisplayText string
	Playing     bool
	Editing     bool
}

// Lines splits DisplayText into its fixed-width lines
func (f Frame) Lines() []string {
	return strings.Split(f.DisplayText, "\n")
}

// Renderer is pure: the same inputs always give the same Frame
type Renderer struct {
	palette *theme.Palette
}

func New(palette *theme.Palette) *Renderer {
	return &Renderer{palette: palette}
}

// Render builds the frame for a grid snapshot and playhead
func (r *Renderer) Render(v grid.View, ph transport.Playhead, st Status) Frame {
	layout := router.NewLayout(v.Size)
	f := Frame{
		KeyColors: make(map[int]panel.RGB, layout.Keys()),
		Playing:   st.Playing,
		Editing:   v.Editing,
	}

	for pos := 0; pos < v.Size.Steps; pos++ {
		f.KeyColors[layout.StepKey(pos)] = r.stepColor(v, ph, st, pos)
	}
	for ch := 0; ch < v.Size.Channels; ch++ {
		sel := r.palette.DimFor(ch)
		if ch == v.ActiveChannel {
			sel = r.palette.SelectedFor(ch)
		}
		f.KeyColors[layout.SelectKey(ch)] = sel

		arm := panel.Off
		if ch == v.ArmedChannel {
			arm = r.palette.Armed
		}
		f.KeyColors[layout.ArmKey(ch)] = arm
	}

	f.DisplayText = displayText(v, st)
	return f
}

// stepColor applies the precedence edit cursor > playhead > armed > viewed > off
func (r *Renderer) stepColor(v grid.View, ph transport.Playhead, st Status, pos int) panel.RGB {
	ch := v.ActiveChannel
	step := v.Step(ch, pos)

	switch {
	case v.Editing && pos == v.Cursor:
		return r.palette.SelectedFor(ch)
	case st.Playing && pos == ph.CurrentStep:
		return r.palette.CursorFor(ch)
	case step.Enabled && ch == v.ArmedChannel:
		return r.palette.Armed
	case step.Enabled:
		return r.palette.DimFor(ch)
	}
	return panel.Off
}

func displayText(v grid.View, st Status) string {
	state := "STOP"
	if st.Playing {
		state = "PLAY"
	}
	top := fmt.Sprintf("B%d C%d A%d %s", v.ActiveBank+1, v.ActiveChannel+1, v.ArmedChannel+1, state)

	var bottom string
	if v.Editing {
		bottom = fmt.Sprintf("S%d N%03d EDIT", v.Cursor+1, v.Step(v.ActiveChannel, v.Cursor).Value)
	} else {
		bottom = fmt.Sprintf("%dBPM", st.BPM)
	}
	bottom = pad(bottom)
	if st.Err {
		bottom = bottom[:DisplayCols-3] + "ERR"
	}
	return pad(top) + "\n" + bottom
}

func pad(s string) string {
	if len(s) > DisplayCols {
		return s[:DisplayCols]
	}
	return s + strings.Repeat(" ", DisplayCols-len(s))
}

// Intro returns the key colors of one frame of the startup sweep: every
// mapped key takes a slice of the color wheel, rotated by offset.
func Intro(size grid.Size, offset uint8) map[int]panel.RGB {
	keys := router.NewLayout(size).Keys()
	colors := make(map[int]panel.RGB, keys)
	for pos := 0; pos < keys; pos++ {
		colors[pos] = theme.Wheel(uint8(pos*256/keys) + offset)
	}
	return colors
}
