package grid

// View is a consistent copy of everything the renderer needs
type View struct {
	Size          Size
	ActiveBank    int
	ActiveChannel int
	ArmedChannel  int // armed channel of the active bank
	Cursor        int
	Editing       bool

	// Channels holds every channel of the active bank
	Channels [][]Step
}

// Snapshot copies the active bank and cursor state under one read lock
func (g *Grid) Snapshot() View {
	g.mu.RLock()
	defer g.mu.RUnlock()

	v := View{
		Size:          g.size,
		ActiveBank:    g.activeBank,
		ActiveChannel: g.activeChannel,
		ArmedChannel:  g.armed[g.activeBank],
		Cursor:        g.cursor,
		Editing:       g.editing,
		Channels:      make([][]Step, g.size.Channels),
	}
	for c, steps := range g.steps[g.activeBank] {
		v.Channels[c] = append([]Step(nil), steps...)
	}
	return v
}

// Step returns one step of the active bank, or the zero Step when out of range
func (v View) Step(channel, position int) Step {
	if channel < 0 || channel >= len(v.Channels) {
		return Step{}
	}
	if position < 0 || position >= len(v.Channels[channel]) {
		return Step{}
	}
	return v.Channels[channel][position]
}
