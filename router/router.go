// Package router turns front-panel edges and encoder turns into grid and
// transport operations. It is the only place that knows what an input means
// in the current mode.
package router

import (
	"time"

	"volca-seq/debug"
	"volca-seq/grid"
	"volca-seq/panel"
)

// Mode is the router state
type Mode int

const (
	Navigate  Mode = iota // keys toggle steps of the armed channel
	EditParam             // keys pick the edited step, the encoder changes its value
)

func (m Mode) String() string {
	if m == EditParam {
		return "EDIT_PARAM"
	}
	return "NAVIGATE"
}

// errorFlash is how long a rejected operation stays flagged
const errorFlash = time.Second

// Transport is the part of the clock the Play button drives
type Transport interface {
	Toggle(now time.Duration)
	Playing() bool
}

// Router is driven from the main loop only and is not safe for concurrent use
type Router struct {
	grid      *grid.Grid
	transport Transport
	layout    Layout
	timeout   time.Duration

	mode         Mode
	lastActivity time.Duration

	dropped int
	lastErr error
	errAt   time.Duration
}

// New creates a router in Navigate mode. transport may be nil; a timeout of
// 0 disables the edit-mode idle revert.
func New(g *grid.Grid, transport Transport, editTimeout time.Duration) *Router {
	return &Router{
		grid:      g,
		transport: transport,
		layout:    NewLayout(g.Size()),
		timeout:   editTimeout,
	}
}

// Layout returns the keypad layout in use
func (r *Router) Layout() Layout {
	return r.layout
}

// Handle dispatches one polled panel event
func (r *Router) Handle(ev panel.Event, now time.Duration) {
	switch {
	case ev.Key != nil:
		r.HandleKey(*ev.Key, now)
	case ev.Button != nil:
		r.HandleButton(*ev.Button, now)
	default:
		r.drop("empty event")
	}
}

// HandleKey acts on key-down edges; releases are ignored
func (r *Router) HandleKey(ev panel.KeyEvent, now time.Duration) {
	if !ev.Pressed {
		return
	}
	r.touch(now)

	kind, idx := r.layout.Classify(ev.Position)
	switch kind {
	case KeyStep:
		if r.mode == EditParam {
			r.check(r.grid.SetCursor(idx), now)
			return
		}
		bank := r.grid.ActiveBank()
		r.check(r.grid.ToggleStep(bank, r.grid.ArmedChannel(bank), idx), now)
	case KeySelect:
		r.check(r.grid.SetActiveChannel(idx), now)
	case KeyArm:
		r.check(r.grid.SetArmedChannel(idx), now)
	default:
		r.drop("key %d unmapped", ev.Position)
	}
}

// HandleButton acts on the dedicated buttons. Only Options uses releases.
func (r *Router) HandleButton(ev panel.ButtonEvent, now time.Duration) {
	r.touch(now)

	if ev.Button == panel.ButtonOptions {
		if ev.Pressed {
			r.setMode(EditParam)
		} else {
			r.setMode(Navigate)
		}
		return
	}
	if !ev.Pressed {
		return
	}

	switch ev.Button {
	case panel.ButtonBankA:
		r.check(r.grid.SetActiveBank(r.grid.ActiveBank()-1), now)
	case panel.ButtonBankB:
		r.check(r.grid.SetActiveBank(r.grid.ActiveBank()+1), now)
	case panel.ButtonPlay:
		if r.transport == nil {
			r.drop("play without transport")
			return
		}
		r.transport.Toggle(now)
	case panel.ButtonEncoder:
		r.check(r.grid.SetArmedChannel(r.grid.ActiveChannel()), now)
	default:
		r.drop("button %s unmapped", ev.Button)
	}
}

// HandleEncoder routes detents to the edited step; ignored in Navigate
func (r *Router) HandleEncoder(delta int, now time.Duration) {
	if delta == 0 || r.mode != EditParam {
		return
	}
	r.touch(now)
	r.grid.AdjustStepValue(delta)
}

// Tick reverts an idle edit session
func (r *Router) Tick(now time.Duration) {
	if r.mode != EditParam || r.timeout <= 0 {
		return
	}
	if now-r.lastActivity >= r.timeout {
		debug.Log("router", "edit timeout after %v", now-r.lastActivity)
		r.setMode(Navigate)
	}
}

func (r *Router) setMode(m Mode) {
	if r.mode == m {
		return
	}
	debug.Log("router", "%s -> %s", r.mode, m)
	r.mode = m
	r.grid.SetEditing(m == EditParam)
}

func (r *Router) touch(now time.Duration) {
	r.lastActivity = now
}

func (r *Router) check(err error, now time.Duration) {
	if err == nil {
		return
	}
	r.dropped++
	r.lastErr = err
	r.errAt = now
	debug.Warn("router", err, "rejected in %s", r.mode)
}

func (r *Router) drop(format string, args ...any) {
	r.dropped++
	debug.Log("router", "dropped: "+format, args...)
}

// Mode returns the current state
func (r *Router) Mode() Mode {
	return r.mode
}

// Dropped counts unmapped and rejected events
func (r *Router) Dropped() int {
	return r.dropped
}

// LastError returns the most recent rejected grid operation
func (r *Router) LastError() error {
	return r.lastErr
}

// ErrorActive reports whether a rejection happened recently enough to flag
func (r *Router) ErrorActive(now time.Duration) bool {
	return r.lastErr != nil && now-r.errAt < errorFlash
}
