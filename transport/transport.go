// Package transport is the playback clock: it walks a playhead through the
// grid at a fixed tempo and turns enabled steps into MIDI notes.
package transport

import (
	"sort"
	"time"

	"volca-seq/debug"
	"volca-seq/grid"
)

// Out receives the MIDI notes. Channels are 1-16.
type Out interface {
	NoteOn(channel, note, velocity uint8) error
	NoteOff(channel, note uint8) error
}

// PlayMode selects which channels of the active bank are played
type PlayMode string

const (
	PlayArmed PlayMode = "armed"
	PlayBank  PlayMode = "bank"
)

// Fallbacks for a Tempo left unset
const (
	DefaultBPM         = 220
	DefaultBeatsPerBar = 4
)

// Tempo is fixed once playback is configured
type Tempo struct {
	BPM         int
	BeatsPerBar int
	Steps       int // steps per bar (one pass through a channel)
}

// StepsPerBeat is the musical subdivision implied by the bar length
func (t Tempo) StepsPerBeat() float64 {
	if t.BeatsPerBar <= 0 {
		return 0
	}
	return float64(t.Steps) / float64(t.BeatsPerBar)
}

// Interval is the duration of one step, 0 when any field is unset
func (t Tempo) Interval() time.Duration {
	if t.BPM <= 0 || t.BeatsPerBar <= 0 || t.Steps <= 0 {
		return 0
	}
	return time.Minute * time.Duration(t.BeatsPerBar) / time.Duration(t.BPM*t.Steps)
}

// Playhead is the step whose interval is in progress and how far into it
// the clock is.
type Playhead struct {
	CurrentStep     int
	TickAccumulator time.Duration
}

// Config holds the playback settings
type Config struct {
	Tempo       Tempo
	GatePercent int // note length as a share of the step interval
	Mode        PlayMode
	Velocity    uint8
	Channels    []uint8 // grid channel -> MIDI channel
}

type noteOff struct {
	due     time.Duration
	channel uint8
	note    uint8
}

// Transport is driven by Tick from the main loop. It never sleeps: every
// deadline is compared against the free-running time passed in.
type Transport struct {
	grid *grid.Grid
	out  Out
	cfg  Config

	interval time.Duration
	gate     time.Duration

	playing  bool
	start    time.Duration
	fired    int64 // step boundaries fired since Start
	playhead Playhead
	bars     int

	pending   []noteOff // sorted by due
	listeners []func(bar int)
	errors    int
}

// New creates a stopped transport reading g and writing to out
func New(g *grid.Grid, out Out, cfg Config) *Transport {
	if cfg.Tempo.Steps <= 0 {
		cfg.Tempo.Steps = g.Size().Steps
	}
	if cfg.Tempo.BPM <= 0 {
		cfg.Tempo.BPM = DefaultBPM
	}
	if cfg.Tempo.BeatsPerBar <= 0 {
		cfg.Tempo.BeatsPerBar = DefaultBeatsPerBar
	}
	t := &Transport{
		grid:     g,
		out:      out,
		cfg:      cfg,
		interval: cfg.Tempo.Interval(),
	}
	gate := cfg.GatePercent
	if gate < 1 {
		gate = 1
	}
	if gate > 95 {
		gate = 95
	}
	t.gate = t.interval * time.Duration(gate) / 100
	return t
}

// Interval returns the step duration
func (t *Transport) Interval() time.Duration {
	return t.interval
}

// Gate returns the note length
func (t *Transport) Gate() time.Duration {
	return t.gate
}

// OnBarComplete registers fn to run each time the playhead wraps to 0.
// It runs before the first step of the new bar is read.
func (t *Transport) OnBarComplete(fn func(bar int)) {
	t.listeners = append(t.listeners, fn)
}

// Start begins playback with step 0 due at now
func (t *Transport) Start(now time.Duration) {
	if t.playing {
		return
	}
	t.playing = true
	t.start = now
	t.fired = 0
	t.bars = 0
	t.playhead = Playhead{}
	debug.Log("clock", "start at=%v interval=%v gate=%v", now, t.interval, t.gate)
}

// Stop halts playback and sends every outstanding note-off immediately
func (t *Transport) Stop() {
	for _, n := range t.pending {
		t.send(n.channel, n.note, 0, false)
	}
	t.pending = t.pending[:0]
	if t.playing {
		debug.Log("clock", "stop after %d steps", t.fired)
	}
	t.playing = false
	t.playhead = Playhead{}
}

// Toggle starts or stops playback
func (t *Transport) Toggle(now time.Duration) {
	if t.playing {
		t.Stop()
	} else {
		t.Start(now)
	}
}

// Playing reports whether the clock is running
func (t *Transport) Playing() bool {
	return t.playing
}

// Playhead returns the current position
func (t *Transport) Playhead() Playhead {
	return t.playhead
}

// Pending returns the number of scheduled note-offs
func (t *Transport) Pending() int {
	return len(t.pending)
}

// Errors returns how many MIDI sends failed
func (t *Transport) Errors() int {
	return t.errors
}

func (t *Transport) nextStepAt() time.Duration {
	return t.start + time.Duration(t.fired)*t.interval
}

// Tick emits everything due at or before now, in time order. A late call
// catches up one step at a time so no step is skipped and no boundary
// drifts.
func (t *Transport) Tick(now time.Duration) {
	if !t.playing {
		t.releaseDue(now)
		return
	}
	for {
		next := t.nextStepAt()
		if len(t.pending) > 0 && t.pending[0].due <= now && t.pending[0].due <= next {
			t.releaseFirst()
			continue
		}
		if next > now {
			break
		}
		t.fire(next)
	}
	if t.fired > 0 {
		t.playhead.TickAccumulator = now - (t.nextStepAt() - t.interval)
	}
}

func (t *Transport) releaseDue(now time.Duration) {
	for len(t.pending) > 0 && t.pending[0].due <= now {
		t.releaseFirst()
	}
}

func (t *Transport) releaseFirst() {
	n := t.pending[0]
	t.pending = t.pending[1:]
	t.send(n.channel, n.note, 0, false)
}

func (t *Transport) fire(at time.Duration) {
	steps := t.cfg.Tempo.Steps
	step := int(t.fired % int64(steps))
	if step == 0 && t.fired > 0 {
		t.bars++
		for _, fn := range t.listeners {
			fn(t.bars)
		}
	}
	t.playhead = Playhead{CurrentStep: step}
	t.fired++

	bank := t.grid.ActiveBank()
	for _, ch := range t.channels(bank) {
		cells, err := t.grid.StepsOf(bank, ch)
		if err != nil || step >= len(cells) {
			continue
		}
		cell := cells[step]
		if !cell.Enabled {
			continue
		}
		t.noteOn(t.midiChannel(ch), cell.Value, at)
	}
}

func (t *Transport) channels(bank int) []int {
	if t.cfg.Mode == PlayBank {
		all := make([]int, t.grid.Size().Channels)
		for i := range all {
			all[i] = i
		}
		return all
	}
	armed := t.grid.ArmedChannel(bank)
	if armed < 0 {
		return nil
	}
	return []int{armed}
}

func (t *Transport) midiChannel(ch int) uint8 {
	if ch < len(t.cfg.Channels) {
		return t.cfg.Channels[ch]
	}
	return uint8(ch%16) + 1
}

func (t *Transport) noteOn(channel, note uint8, at time.Duration) {
	// A still-sounding copy of this note is closed before it retriggers.
	for i, n := range t.pending {
		if n.channel == channel && n.note == note {
			t.pending = append(t.pending[:i], t.pending[i+1:]...)
			t.send(channel, note, 0, false)
			break
		}
	}

	t.send(channel, note, t.cfg.Velocity, true)

	off := noteOff{due: at + t.gate, channel: channel, note: note}
	i := sort.Search(len(t.pending), func(i int) bool { return t.pending[i].due > off.due })
	t.pending = append(t.pending, noteOff{})
	copy(t.pending[i+1:], t.pending[i:])
	t.pending[i] = off
}

func (t *Transport) send(channel, note, velocity uint8, on bool) {
	var err error
	if on {
		err = t.out.NoteOn(channel, note, velocity)
	} else {
		err = t.out.NoteOff(channel, note)
	}
	if err != nil {
		t.errors++
		debug.Warn("clock", err, "send ch=%d note=%d on=%v", channel, note, on)
	}
}
