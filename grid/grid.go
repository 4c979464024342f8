// Package grid holds the pattern state of the sequencer: banks of channels
// of steps, plus the bank/channel cursor and the armed channel of each bank.
package grid

import (
	"fmt"
	"sync"

	"volca-seq/debug"
)

const (
	MinValue     = 0
	MaxValue     = 127
	DefaultValue = 60 // C4
)

// Step is one cell of the grid
type Step struct {
	Enabled bool
	Value   uint8 // note number, 0-127
}

// Size is the fixed shape of a Grid
type Size struct {
	Banks    int
	Channels int
	Steps    int
}

// Validate checks every dimension is positive
func (s Size) Validate() error {
	if s.Banks < 1 || s.Channels < 1 || s.Steps < 1 {
		return fmt.Errorf("grid size %dx%dx%d: every dimension must be positive", s.Banks, s.Channels, s.Steps)
	}
	return nil
}

// Grid is the single owner of every Step. All methods are atomic with
// respect to each other.
type Grid struct {
	mu   sync.RWMutex
	size Size

	steps [][][]Step // [bank][channel][position]

	activeBank    int
	activeChannel int
	armed         []int // armed channel per bank
	cursor        int   // edit target position
	editing       bool
}

// New creates a grid with every step disabled at DefaultValue and
// channel 0 armed in every bank.
func New(size Size) (*Grid, error) {
	if err := size.Validate(); err != nil {
		return nil, err
	}
	g := &Grid{
		size:  size,
		steps: make([][][]Step, size.Banks),
		armed: make([]int, size.Banks),
	}
	for b := range g.steps {
		g.steps[b] = make([][]Step, size.Channels)
		for c := range g.steps[b] {
			g.steps[b][c] = make([]Step, size.Steps)
			for s := range g.steps[b][c] {
				g.steps[b][c][s] = Step{Value: DefaultValue}
			}
		}
	}
	return g, nil
}

// Size returns the grid dimensions
func (g *Grid) Size() Size {
	return g.size
}

func (g *Grid) checkBank(b int) error {
	if b < 0 || b >= g.size.Banks {
		return outOfRange("bank", b, g.size.Banks)
	}
	return nil
}

func (g *Grid) checkChannel(c int) error {
	if c < 0 || c >= g.size.Channels {
		return outOfRange("channel", c, g.size.Channels)
	}
	return nil
}

func (g *Grid) checkPosition(p int) error {
	if p < 0 || p >= g.size.Steps {
		return outOfRange("step", p, g.size.Steps)
	}
	return nil
}

func (g *Grid) check(bank, channel, position int) error {
	if err := g.checkBank(bank); err != nil {
		return err
	}
	if err := g.checkChannel(channel); err != nil {
		return err
	}
	return g.checkPosition(position)
}

// ToggleStep flips the enabled flag of one step. The value is untouched.
func (g *Grid) ToggleStep(bank, channel, position int) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.check(bank, channel, position); err != nil {
		return err
	}
	st := &g.steps[bank][channel][position]
	st.Enabled = !st.Enabled
	debug.Log("grid", "toggle b=%d c=%d s=%d -> %v", bank, channel, position, st.Enabled)
	return nil
}

// AdjustStepValue adds delta to the value of the edit target
// (active bank, active channel, cursor), saturating at 0 and 127.
// Outside edit mode it does nothing.
func (g *Grid) AdjustStepValue(delta int) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.editing || delta == 0 {
		return
	}
	st := &g.steps[g.activeBank][g.activeChannel][g.cursor]
	st.Value = clampValue(int(st.Value) + delta)
}

// SetStepValue writes a value directly, clamped to 0-127
func (g *Grid) SetStepValue(bank, channel, position, value int) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.check(bank, channel, position); err != nil {
		return err
	}
	g.steps[bank][channel][position].Value = clampValue(value)
	return nil
}

func clampValue(v int) uint8 {
	if v < MinValue {
		return MinValue
	}
	if v > MaxValue {
		return MaxValue
	}
	return uint8(v)
}

// SetActiveBank moves the bank cursor
func (g *Grid) SetActiveBank(bank int) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.checkBank(bank); err != nil {
		return err
	}
	g.activeBank = bank
	return nil
}

// SetActiveChannel moves the channel cursor
func (g *Grid) SetActiveChannel(channel int) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.checkChannel(channel); err != nil {
		return err
	}
	g.activeChannel = channel
	return nil
}

// SetArmedChannel arms channel in the active bank. The previously armed
// channel of that bank is disarmed in the same step.
func (g *Grid) SetArmedChannel(channel int) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.checkChannel(channel); err != nil {
		return err
	}
	g.armed[g.activeBank] = channel
	return nil
}

// SetCursor selects the step position edited by AdjustStepValue
func (g *Grid) SetCursor(position int) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.checkPosition(position); err != nil {
		return err
	}
	g.cursor = position
	return nil
}

// SetEditing mirrors the parameter-edit mode decided by the input router
func (g *Grid) SetEditing(on bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.editing = on
}

// ClearChannel disables every step of a channel, keeping values
func (g *Grid) ClearChannel(bank, channel int) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.check(bank, channel, 0); err != nil {
		return err
	}
	for i := range g.steps[bank][channel] {
		g.steps[bank][channel][i].Enabled = false
	}
	return nil
}

// StepsOf returns a position-ordered copy of a channel's steps
func (g *Grid) StepsOf(bank, channel int) ([]Step, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if err := g.check(bank, channel, 0); err != nil {
		return nil, err
	}
	out := make([]Step, len(g.steps[bank][channel]))
	copy(out, g.steps[bank][channel])
	return out, nil
}

// ActiveBank returns the bank cursor
func (g *Grid) ActiveBank() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.activeBank
}

// ActiveChannel returns the channel cursor
func (g *Grid) ActiveChannel() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.activeChannel
}

// ArmedChannel returns the armed channel of a bank (-1 for a bad bank)
func (g *Grid) ArmedChannel(bank int) int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if bank < 0 || bank >= g.size.Banks {
		return -1
	}
	return g.armed[bank]
}

// Cursor returns the edit target position
func (g *Grid) Cursor() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.cursor
}

// Editing reports whether parameter-edit mode is on
func (g *Grid) Editing() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.editing
}
