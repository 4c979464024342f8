package sequencer

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"volca-seq/config"
	"volca-seq/debug"
	"volca-seq/encoder"
	"volca-seq/grid"
	"volca-seq/panel"
	"volca-seq/render"
	"volca-seq/router"
	"volca-seq/theme"
	"volca-seq/transport"
)

// loopPeriod is the main loop tick; note timing resolution follows from it
const loopPeriod = time.Millisecond

// Manager runs the control loop: it polls the panel, routes input, drives
// the clock and pushes rendered frames. Everything except Encoder and Frame
// belongs to the loop and must not be touched from other goroutines while
// Run is active.
type Manager struct {
	cfg      *config.Config
	grid     *grid.Grid
	enc      *encoder.State
	router   *router.Router
	clock    *transport.Transport
	renderer *render.Renderer

	keypad  panel.Keypad
	display panel.Display

	// frame rendering at fixed FPS
	frameInterval time.Duration
	nextFrame     time.Duration
	prevKeys      map[int]panel.RGB // for diffing
	prevLines     []string

	mu    sync.RWMutex // guards frame for readers outside the loop
	frame render.Frame

	// Notify TUI of updates
	UpdateChan chan struct{}
}

// New wires a sequencer for cfg. keypad and display may be nil.
func New(cfg *config.Config, keypad panel.Keypad, display panel.Display, out transport.Out) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	g, err := grid.New(grid.Size{Banks: cfg.Banks, Channels: cfg.Channels, Steps: cfg.Steps})
	if err != nil {
		return nil, err
	}
	palette, err := theme.FromConfig(cfg.Palette)
	if err != nil {
		return nil, fmt.Errorf("palette: %w", err)
	}

	channels := make([]uint8, cfg.Channels)
	for i := range channels {
		channels[i] = cfg.MIDIChannel(i)
	}
	clock := transport.New(g, out, transport.Config{
		Tempo:       transport.Tempo{BPM: cfg.BPM, BeatsPerBar: cfg.BeatsPerBar, Steps: cfg.Steps},
		GatePercent: cfg.GatePercent,
		Mode:        transport.PlayMode(cfg.PlayMode),
		Velocity:    cfg.MIDI.Velocity,
		Channels:    channels,
	})

	m := &Manager{
		cfg:           cfg,
		grid:          g,
		enc:           encoder.NewState(encoder.WithPrecision(cfg.Controller.Precision), encoder.WithInvert(cfg.Controller.Invert)),
		router:        router.New(g, clock, cfg.EditTimeout()),
		clock:         clock,
		renderer:      render.New(palette),
		keypad:        keypad,
		display:       display,
		frameInterval: cfg.FrameInterval(),
		prevKeys:      make(map[int]panel.RGB),
		UpdateChan:    make(chan struct{}, 1),
	}
	if cfg.AutoAdvanceBank {
		clock.OnBarComplete(m.advanceBank)
	}
	debug.Log("main", "sequencer %dx%dx%d at %d bpm, step %v", cfg.Banks, cfg.Channels, cfg.Steps, cfg.BPM, clock.Interval())
	return m, nil
}

// advanceBank moves to the next bank before the new bar's first step plays
func (m *Manager) advanceBank(bar int) {
	next := (m.grid.ActiveBank() + 1) % m.cfg.Banks
	if err := m.grid.SetActiveBank(next); err != nil {
		debug.Warn("main", err, "auto-advance")
		return
	}
	debug.Log("main", "bar %d: bank %d", bar, next+1)
}

// Step runs one loop iteration at the free-running time now
func (m *Manager) Step(now time.Duration) {
	if m.keypad != nil {
		for _, ev := range m.keypad.Poll() {
			m.router.Handle(ev, now)
		}
	}
	if delta := m.enc.Take(); delta != 0 {
		m.router.HandleEncoder(delta, now)
	}
	m.router.Tick(now)
	m.clock.Tick(now)

	if now >= m.nextFrame {
		m.flushFrame(now)
		m.nextFrame = now + m.frameInterval
	}
}

// Run loops Step until ctx ends, then stops the clock so no note is left
// sounding.
func (m *Manager) Run(ctx context.Context) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	start := time.Now()
	ticker := time.NewTicker(loopPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.clock.Stop()
			m.flushFrame(time.Since(start))
			debug.Log("main", "loop stopped: %v", ctx.Err())
			return
		case <-ticker.C:
			m.Step(time.Since(start))
		}
	}
}

// Intro plays the startup color sweep for the given number of frames. It
// blocks, so call it before Run.
func (m *Manager) Intro(frames int) {
	if m.keypad == nil {
		return
	}
	size := m.grid.Size()
	for i := 0; i < frames; i++ {
		m.pushKeys(render.Intro(size, uint8(i*8)))
		time.Sleep(m.frameInterval)
	}
}

// flushFrame renders and sends only the keys and lines that changed
func (m *Manager) flushFrame(now time.Duration) {
	frame := m.renderer.Render(m.grid.Snapshot(), m.clock.Playhead(), render.Status{
		Playing: m.clock.Playing(),
		BPM:     m.cfg.BPM,
		Err:     m.router.ErrorActive(now),
	})

	m.pushKeys(frame.KeyColors)

	if m.display != nil {
		lines := frame.Lines()
		for i, line := range lines {
			if i < len(m.prevLines) && m.prevLines[i] == line {
				continue
			}
			m.display.DrawString(0, i, line)
		}
		m.prevLines = lines
	}

	m.mu.Lock()
	m.frame = frame
	m.mu.Unlock()

	select {
	case m.UpdateChan <- struct{}{}:
	default:
	}
}

func (m *Manager) pushKeys(colors map[int]panel.RGB) {
	if m.keypad == nil {
		return
	}
	changed := 0
	for pos, c := range colors {
		if prev, ok := m.prevKeys[pos]; ok && prev == c {
			continue
		}
		m.keypad.SetPixel(pos, c)
		m.prevKeys[pos] = c
		changed++
	}
	if changed > 0 {
		m.keypad.Show()
		debug.LogEvery(100, "render", "keys changed=%d", changed)
	}
}

// Frame returns the last rendered frame. Safe from any goroutine.
func (m *Manager) Frame() render.Frame {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.frame
}

// Encoder is the decoder state shared with asynchronous edge sources
func (m *Manager) Encoder() *encoder.State {
	return m.enc
}

func (m *Manager) Grid() *grid.Grid {
	return m.grid
}

func (m *Manager) Router() *router.Router {
	return m.router
}

func (m *Manager) Transport() *transport.Transport {
	return m.clock
}

func (m *Manager) Config() *config.Config {
	return m.cfg
}
