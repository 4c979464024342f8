package router

import "volca-seq/grid"

// KeyKind is what a keypad position does
type KeyKind int

const (
	KeyUnmapped KeyKind = iota
	KeyStep
	KeySelect // select the viewed/edited channel
	KeyArm    // arm a channel for playback
)

// Layout maps keypad positions onto the grid: one key per step, then one
// select key per channel, then one arm key per channel.
type Layout struct {
	Steps    int
	Channels int
}

// NewLayout derives the layout for a grid size
func NewLayout(size grid.Size) Layout {
	return Layout{Steps: size.Steps, Channels: size.Channels}
}

// Keys is the number of mapped positions
func (l Layout) Keys() int {
	return l.Steps + 2*l.Channels
}

// Classify returns the role of position and its index within that role
func (l Layout) Classify(position int) (KeyKind, int) {
	switch {
	case position < 0:
		return KeyUnmapped, -1
	case position < l.Steps:
		return KeyStep, position
	case position < l.Steps+l.Channels:
		return KeySelect, position - l.Steps
	case position < l.Keys():
		return KeyArm, position - l.Steps - l.Channels
	}
	return KeyUnmapped, -1
}

func (l Layout) StepKey(step int) int      { return step }
func (l Layout) SelectKey(channel int) int { return l.Steps + channel }
func (l Layout) ArmKey(channel int) int    { return l.Steps + l.Channels + channel }
