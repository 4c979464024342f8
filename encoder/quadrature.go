// Package encoder decodes the two-phase signal of a mechanical rotary
// encoder into signed detent ticks.
package encoder

import (
	"sync"

	"volca-seq/debug"
)

// PhasePair packs the two phase bits as A<<1 | B
type PhasePair uint8

// Pair builds a PhasePair from pin levels
func Pair(a, b bool) PhasePair {
	var p PhasePair
	if a {
		p |= 0b10
	}
	if b {
		p |= 0b01
	}
	return p
}

// transitions maps prev<<2|cur to a quarter-step delta.
// Clockwise is the Gray sequence 00 -> 01 -> 11 -> 10 -> 00.
var transitions = [16]int{
	0b0001: +1,
	0b0111: +1,
	0b1110: +1,
	0b1000: +1,
	0b0010: -1,
	0b1011: -1,
	0b1101: -1,
	0b0100: -1,
}

// Decode classifies a single transition. Unchanged pairs and double jumps
// (both bits flipped at once) are not legal and report ok=false.
func Decode(prev, cur PhasePair) (delta int, ok bool) {
	delta = transitions[(prev&0b11)<<2|(cur&0b11)]
	return delta, delta != 0
}

// State is the encoder cell shared between the edge handler and the main
// loop. Every access goes through mu, the only critical section in the core.
type State struct {
	mu          sync.Mutex
	last        PhasePair
	accumulated int

	precision int
	invert    bool
}

// Option configures a State
type Option func(*State)

// WithPrecision sets how many legal transitions make one reported tick.
// Mechanical detent encoders go through a full cycle (4) per click.
func WithPrecision(n int) Option {
	return func(s *State) {
		if n == 1 || n == 2 || n == 4 {
			s.precision = n
		}
	}
}

// WithInvert flips the rotation direction (swapped pin wiring)
func WithInvert(invert bool) Option {
	return func(s *State) {
		s.invert = invert
	}
}

// NewState creates encoder state resting at phase pair 00
func NewState(opts ...Option) *State {
	s := &State{precision: 4}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Edge is the transition handler, called once per physical edge on either
// pin. The observed pair is always stored, legal or not, so a bounce never
// poisons the next real transition.
func (s *State) Edge(a, b bool) (int, bool) {
	cur := Pair(a, b)

	s.mu.Lock()
	defer s.mu.Unlock()

	delta, ok := Decode(s.last, cur)
	s.last = cur
	if !ok {
		return 0, false
	}
	if s.invert {
		delta = -delta
	}
	s.accumulated += delta
	return delta, true
}

// Take returns the whole ticks accumulated since the last call and clears
// them. A partial tick stays behind for the next call.
func (s *State) Take() int {
	s.mu.Lock()
	ticks := s.accumulated / s.precision
	s.accumulated -= ticks * s.precision
	rest := s.accumulated
	s.mu.Unlock()

	if ticks != 0 {
		debug.LogEvery(16, "enc", "take ticks=%d rest=%d", ticks, rest)
	}
	return ticks
}

// Raw returns the accumulated quarter steps without clearing them
func (s *State) Raw() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accumulated
}

// Last returns the most recently observed phase pair
func (s *State) Last() PhasePair {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// Precision returns transitions per tick
func (s *State) Precision() int {
	return s.precision
}
