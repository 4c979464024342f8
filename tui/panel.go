package tui

import (
	"strings"
	"sync"

	"volca-seq/panel"
	"volca-seq/render"
)

// Panel is the terminal's stand-in for the keypad and display hardware.
// The bubbletea goroutine pushes edges and reads what was shown; the
// sequencer loop polls and draws.
type Panel struct {
	mu     sync.Mutex
	events []panel.Event
	staged map[int]panel.RGB
	shown  map[int]panel.RGB
	lines  []string
}

func NewPanel() *Panel {
	return &Panel{
		staged: make(map[int]panel.RGB),
		shown:  make(map[int]panel.RGB),
		lines:  make([]string, render.DisplayLines),
	}
}

// Push queues input edges for the next Poll
func (p *Panel) Push(evs ...panel.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evs...)
}

// Pending reports how many pushed edges the sequencer has not polled yet
func (p *Panel) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

func (p *Panel) Poll() []panel.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	evs := p.events
	p.events = nil
	return evs
}

func (p *Panel) SetPixel(position int, c panel.RGB) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.staged[position] = c
}

func (p *Panel) Show() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for pos, c := range p.staged {
		p.shown[pos] = c
	}
	clear(p.staged)
}

// DrawString overwrites text starting at col on line row
func (p *Panel) DrawString(col, row int, text string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if row < 0 || row >= len(p.lines) || col < 0 {
		return
	}
	line := []rune(p.lines[row])
	for len(line) < col+len([]rune(text)) {
		line = append(line, ' ')
	}
	copy(line[col:], []rune(text))
	p.lines[row] = string(line)
}

// Pixels returns a copy of the shown key colors
func (p *Panel) Pixels() map[int]panel.RGB {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[int]panel.RGB, len(p.shown))
	for k, v := range p.shown {
		out[k] = v
	}
	return out
}

// Lines returns the display contents
func (p *Panel) Lines() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.lines...)
}

func (p *Panel) String() string {
	return strings.Join(p.Lines(), "\n")
}
