package encoder

// gray is the clockwise phase sequence
var gray = [4]PhasePair{0b00, 0b01, 0b11, 0b10}

// EdgeFunc receives pin levels after each simulated edge
type EdgeFunc func(a, b bool)

// Emulator produces the pin edges a real encoder would, for front ends
// without one (terminal keys, Launchpad buttons, tests).
type Emulator struct {
	edge      EdgeFunc
	rest      func() PhasePair // nil: track position locally
	pos       int              // index into gray
	perDetent int
	bounce    bool
}

// NewEmulator drives edge with transitionsPerDetent edges per click.
// With bounce set every edge chatters once before settling.
func NewEmulator(edge EdgeFunc, transitionsPerDetent int, bounce bool) *Emulator {
	if transitionsPerDetent <= 0 {
		transitionsPerDetent = 4
	}
	return &Emulator{edge: edge, perDetent: transitionsPerDetent, bounce: bounce}
}

// Attach returns an emulator feeding s. Each Turn starts from the pair s
// last observed, so several sources (GPIO pins, keys, pads) can share s.
func Attach(s *State, bounce bool) *Emulator {
	e := NewEmulator(func(a, b bool) { s.Edge(a, b) }, s.Precision(), bounce)
	e.rest = s.Last
	return e
}

// Turn rotates by detents clicks; positive is clockwise
func (e *Emulator) Turn(detents int) {
	if e.rest != nil {
		e.pos = grayIndex(e.rest())
	}
	dir := 1
	if detents < 0 {
		dir, detents = -1, -detents
	}
	for i := 0; i < detents*e.perDetent; i++ {
		prev := e.pos
		e.pos = (e.pos + dir + 4) % 4
		if e.bounce {
			e.emit(gray[e.pos])
			e.emit(gray[prev])
		}
		e.emit(gray[e.pos])
	}
}

// Phase returns the pair the emulated pins currently rest at
func (e *Emulator) Phase() PhasePair {
	return gray[e.pos]
}

func (e *Emulator) emit(p PhasePair) {
	e.edge(p&0b10 != 0, p&0b01 != 0)
}

func grayIndex(p PhasePair) int {
	for i, g := range gray {
		if g == p&0b11 {
			return i
		}
	}
	return 0
}
