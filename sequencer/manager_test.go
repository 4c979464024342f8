package sequencer

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"volca-seq/config"
	"volca-seq/encoder"
	"volca-seq/midi"
	"volca-seq/panel"
	"volca-seq/router"
)

type fakeKeypad struct {
	mu     sync.Mutex
	queue  []panel.Event
	pixels map[int]panel.RGB
	sets   int
	shows  int
}

func newFakeKeypad() *fakeKeypad {
	return &fakeKeypad{pixels: make(map[int]panel.RGB)}
}

func (k *fakeKeypad) push(evs ...panel.Event) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.queue = append(k.queue, evs...)
}

func (k *fakeKeypad) Poll() []panel.Event {
	k.mu.Lock()
	defer k.mu.Unlock()
	evs := k.queue
	k.queue = nil
	return evs
}

func (k *fakeKeypad) SetPixel(pos int, c panel.RGB) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.pixels[pos] = c
	k.sets++
}

func (k *fakeKeypad) Show() {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.shows++
}

type fakeDisplay struct {
	lines map[int]string
	draws int
}

func (d *fakeDisplay) DrawString(col, row int, text string) {
	d.lines[row] = text
	d.draws++
}

func setup(t *testing.T, mutate func(*config.Config)) (*Manager, *fakeKeypad, *fakeDisplay, *midi.Recorder) {
	t.Helper()
	cfg := config.DefaultConfig()
	if mutate != nil {
		mutate(cfg)
	}
	kp := newFakeKeypad()
	disp := &fakeDisplay{lines: map[int]string{}}
	rec := midi.NewRecorder(0)
	m, err := New(cfg, kp, disp, rec)
	require.NoError(t, err)
	return m, kp, disp, rec
}

func turn(m *Manager, detents int) {
	enc := m.Encoder()
	encoder.Attach(enc, true).Turn(detents)
}

// runFor steps the loop once per millisecond in [from, to] and returns to
func runFor(m *Manager, from, to time.Duration) time.Duration {
	for now := from; now < to; now += time.Millisecond {
		m.Step(now)
	}
	m.Step(to)
	return to
}

func TestEditAndPlayOneBar(t *testing.T) {
	m, kp, _, rec := setup(t, nil)
	layout := m.Router().Layout()

	// enable step 3 on the armed channel, then set its note to 64
	kp.push(panel.KeyEdge(layout.StepKey(3), true), panel.KeyEdge(layout.StepKey(3), false))
	kp.push(panel.ButtonEdge(panel.ButtonOptions, true))
	kp.push(panel.KeyEdge(layout.StepKey(3), true))
	m.Step(0)
	turn(m, 4)
	m.Step(time.Millisecond)
	kp.push(panel.ButtonEdge(panel.ButtonOptions, false))
	m.Step(2 * time.Millisecond)
	require.Equal(t, router.Navigate, m.Router().Mode())

	bars := 0
	m.Transport().OnBarComplete(func(int) { bars++ })

	start := 10 * time.Millisecond
	kp.push(panel.ButtonEdge(panel.ButtonPlay, true))
	runFor(m, start, start+8*m.Transport().Interval())

	assert.Equal(t, []midi.Event{
		{Type: midi.NoteOn, Channel: 1, Note: 64, Velocity: 100},
		{Type: midi.NoteOff, Channel: 1, Note: 64},
	}, rec.Events())
	assert.Equal(t, 0, m.Transport().Playhead().CurrentStep)
	assert.Equal(t, 1, bars)
}

func TestStepPushesOnlyChangedKeys(t *testing.T) {
	m, kp, disp, _ := setup(t, nil)
	keys := m.Router().Layout().Keys()

	m.Step(0)
	assert.Equal(t, keys, kp.sets, "first frame paints every key")
	assert.Equal(t, 1, kp.shows)
	assert.Equal(t, 2, disp.draws)
	assert.Equal(t, "220BPM          ", disp.lines[1])

	// nothing changed: the next frame sends nothing
	m.Step(time.Second)
	assert.Equal(t, keys, kp.sets)
	assert.Equal(t, 1, kp.shows)
	assert.Equal(t, 2, disp.draws)

	kp.push(panel.KeyEdge(0, true))
	m.Step(2 * time.Second)
	assert.Equal(t, keys+1, kp.sets)
	assert.Equal(t, m.Frame().KeyColors[0], kp.pixels[0])
}

func TestFramesAreRateLimited(t *testing.T) {
	m, kp, _, _ := setup(t, nil)
	m.Step(0)
	kp.push(panel.KeyEdge(0, true))
	m.Step(time.Millisecond)
	assert.Equal(t, 1, kp.shows, "next frame not due yet")

	m.Step(m.cfg.FrameInterval())
	assert.Equal(t, 2, kp.shows)
}

func TestEncoderIgnoredOutsideEdit(t *testing.T) {
	m, _, _, _ := setup(t, nil)
	turn(m, 3)
	m.Step(0)

	steps, err := m.Grid().StepsOf(0, 0)
	require.NoError(t, err)
	assert.Equal(t, uint8(60), steps[0].Value)
	assert.Zero(t, m.Encoder().Raw(), "detents are consumed even when ignored")
}

func TestBankErrorFlagsDisplay(t *testing.T) {
	m, kp, disp, _ := setup(t, nil)
	kp.push(panel.ButtonEdge(panel.ButtonBankA, true))
	m.Step(0)
	assert.Equal(t, "ERR", disp.lines[1][13:])

	m.Step(2 * time.Second)
	assert.Equal(t, "220BPM          ", disp.lines[1])
}

func TestAutoAdvanceBank(t *testing.T) {
	m, kp, _, rec := setup(t, func(c *config.Config) { c.AutoAdvanceBank = true })
	g := m.Grid()
	require.NoError(t, g.ToggleStep(1, 0, 0))
	require.NoError(t, g.SetStepValue(1, 0, 0, 72))

	kp.push(panel.ButtonEdge(panel.ButtonPlay, true))
	runFor(m, 0, 8*m.Transport().Interval())

	assert.Equal(t, 1, g.ActiveBank())
	ons := 0
	for _, e := range rec.Events() {
		if e.Type == midi.NoteOn {
			ons++
			assert.Equal(t, uint8(72), e.Note)
		}
	}
	assert.Equal(t, 1, ons, "the new bank's first step plays on the wrap")
}

func TestRunStopsClockOnCancel(t *testing.T) {
	m, _, _, rec := setup(t, func(c *config.Config) { c.PlayMode = config.PlayBank })
	require.NoError(t, m.Grid().ToggleStep(0, 2, 0))
	m.Transport().Start(0)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(done)
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return")
	}
	assert.False(t, m.Transport().Playing())
	assert.Empty(t, rec.Sounding())
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Steps = 0
	_, err := New(cfg, nil, nil, midi.NewRecorder(0))
	assert.ErrorIs(t, err, config.ErrInvalid)
}

func TestIntroPaintsWheel(t *testing.T) {
	m, kp, _, _ := setup(t, func(c *config.Config) { c.FPS = 1000 })
	m.Intro(3)
	assert.Equal(t, 3, kp.shows)
	assert.Len(t, kp.pixels, m.Router().Layout().Keys())
}
