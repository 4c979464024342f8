package router

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"volca-seq/grid"
	"volca-seq/panel"
)

type fakeTransport struct {
	playing bool
	toggles []time.Duration
}

func (f *fakeTransport) Toggle(now time.Duration) {
	f.playing = !f.playing
	f.toggles = append(f.toggles, now)
}

func (f *fakeTransport) Playing() bool { return f.playing }

func setup(t *testing.T) (*grid.Grid, *fakeTransport, *Router) {
	t.Helper()
	g, err := grid.New(grid.Size{Banks: 4, Channels: 4, Steps: 8})
	require.NoError(t, err)
	tr := &fakeTransport{}
	return g, tr, New(g, tr, 3*time.Second)
}

func press(r *Router, pos int) {
	r.HandleKey(panel.KeyEvent{Position: pos, Pressed: true}, 0)
	r.HandleKey(panel.KeyEvent{Position: pos, Pressed: false}, 0)
}

func button(r *Router, b panel.Button, pressed bool, now time.Duration) {
	r.HandleButton(panel.ButtonEvent{Button: b, Pressed: pressed}, now)
}

func stepsOf(t *testing.T, g *grid.Grid, bank, ch int) []grid.Step {
	t.Helper()
	s, err := g.StepsOf(bank, ch)
	require.NoError(t, err)
	return s
}

func TestLayoutClassify(t *testing.T) {
	l := Layout{Steps: 8, Channels: 4}
	cases := []struct {
		pos  int
		kind KeyKind
		idx  int
	}{
		{0, KeyStep, 0},
		{7, KeyStep, 7},
		{8, KeySelect, 0},
		{11, KeySelect, 3},
		{12, KeyArm, 0},
		{15, KeyArm, 3},
		{16, KeyUnmapped, -1},
		{-1, KeyUnmapped, -1},
	}
	for _, tc := range cases {
		kind, idx := l.Classify(tc.pos)
		assert.Equal(t, tc.kind, kind, "pos %d", tc.pos)
		assert.Equal(t, tc.idx, idx, "pos %d", tc.pos)
	}
	assert.Equal(t, 16, l.Keys())
	assert.Equal(t, 10, l.SelectKey(2))
	assert.Equal(t, 13, l.ArmKey(1))
}

func TestNavigateTogglesArmedChannel(t *testing.T) {
	g, _, r := setup(t)
	l := r.Layout()

	press(r, l.ArmKey(2))
	press(r, l.SelectKey(1)) // viewing a different channel does not redirect toggles
	press(r, l.StepKey(5))

	assert.True(t, stepsOf(t, g, 0, 2)[5].Enabled)
	assert.False(t, stepsOf(t, g, 0, 1)[5].Enabled)
	assert.Equal(t, 1, g.ActiveChannel())

	press(r, l.StepKey(5))
	assert.False(t, stepsOf(t, g, 0, 2)[5].Enabled)
}

func TestReleaseEdgesDoNothing(t *testing.T) {
	g, _, r := setup(t)
	r.HandleKey(panel.KeyEvent{Position: 0, Pressed: false}, 0)
	assert.False(t, stepsOf(t, g, 0, 0)[0].Enabled)
	assert.Zero(t, r.Dropped())
}

func TestEditModeSelectsStepAndAdjusts(t *testing.T) {
	g, _, r := setup(t)
	l := r.Layout()

	r.HandleEncoder(5, 0)
	assert.Equal(t, uint8(grid.DefaultValue), stepsOf(t, g, 0, 0)[0].Value, "ignored in navigate")

	button(r, panel.ButtonOptions, true, 0)
	require.Equal(t, EditParam, r.Mode())
	assert.True(t, g.Editing())

	press(r, l.StepKey(4))
	assert.Equal(t, 4, g.Cursor())
	assert.False(t, stepsOf(t, g, 0, 0)[4].Enabled, "edit mode never toggles")

	r.HandleEncoder(4, 0)
	r.HandleEncoder(-1, 0)
	assert.Equal(t, uint8(grid.DefaultValue+3), stepsOf(t, g, 0, 0)[4].Value)

	button(r, panel.ButtonOptions, false, 0)
	assert.Equal(t, Navigate, r.Mode())
	assert.False(t, g.Editing())
}

func TestEditTimeout(t *testing.T) {
	_, _, r := setup(t)
	button(r, panel.ButtonOptions, true, time.Second)

	r.Tick(3 * time.Second)
	assert.Equal(t, EditParam, r.Mode())

	// activity restarts the idle period
	r.HandleEncoder(1, 3*time.Second)
	r.Tick(5 * time.Second)
	assert.Equal(t, EditParam, r.Mode())

	r.Tick(6 * time.Second)
	assert.Equal(t, Navigate, r.Mode())
}

func TestZeroTimeoutNeverReverts(t *testing.T) {
	g, err := grid.New(grid.Size{Banks: 1, Channels: 1, Steps: 4})
	require.NoError(t, err)
	r := New(g, nil, 0)
	button(r, panel.ButtonOptions, true, 0)
	r.Tick(time.Hour)
	assert.Equal(t, EditParam, r.Mode())
}

func TestBankButtonsRejectAtEnds(t *testing.T) {
	g, _, r := setup(t)

	button(r, panel.ButtonBankA, true, 0)
	assert.Equal(t, 0, g.ActiveBank())
	assert.ErrorIs(t, r.LastError(), grid.ErrIndexOutOfRange)
	assert.Equal(t, 1, r.Dropped())
	assert.True(t, r.ErrorActive(500*time.Millisecond))
	assert.False(t, r.ErrorActive(2*time.Second))

	for i := 0; i < 5; i++ {
		button(r, panel.ButtonBankB, true, 0)
	}
	assert.Equal(t, 3, g.ActiveBank(), "never clamped past the last bank")
	assert.Equal(t, 3, r.Dropped())

	button(r, panel.ButtonBankA, true, 0)
	button(r, panel.ButtonBankA, false, 0)
	assert.Equal(t, 2, g.ActiveBank())
}

func TestPlayTogglesTransport(t *testing.T) {
	_, tr, r := setup(t)
	button(r, panel.ButtonPlay, true, 10*time.Millisecond)
	button(r, panel.ButtonPlay, false, 20*time.Millisecond)
	button(r, panel.ButtonPlay, true, 30*time.Millisecond)

	assert.Equal(t, []time.Duration{10 * time.Millisecond, 30 * time.Millisecond}, tr.toggles)
	assert.False(t, tr.Playing())
}

func TestPlayWithoutTransportIsDropped(t *testing.T) {
	g, err := grid.New(grid.Size{Banks: 1, Channels: 1, Steps: 4})
	require.NoError(t, err)
	r := New(g, nil, 0)
	button(r, panel.ButtonPlay, true, 0)
	assert.Equal(t, 1, r.Dropped())
}

func TestEncoderSwitchArmsActiveChannel(t *testing.T) {
	g, _, r := setup(t)
	press(r, r.Layout().SelectKey(3))
	button(r, panel.ButtonEncoder, true, 0)
	assert.Equal(t, 3, g.ArmedChannel(0))
}

func TestUnmappedInputIsDropped(t *testing.T) {
	g, _, r := setup(t)
	before := g.Snapshot()

	press(r, 40)
	button(r, panel.Button(42), true, 0)
	r.Handle(panel.Event{}, 0)

	assert.Equal(t, 3, r.Dropped())
	assert.Nil(t, r.LastError())
	assert.Equal(t, before, g.Snapshot())
}

func TestHandleDispatches(t *testing.T) {
	g, _, r := setup(t)
	r.Handle(panel.KeyEdge(2, true), 0)
	r.Handle(panel.ButtonEdge(panel.ButtonOptions, true), 0)

	assert.True(t, stepsOf(t, g, 0, 0)[2].Enabled)
	assert.Equal(t, EditParam, r.Mode())
}
