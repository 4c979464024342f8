package grid

import (
	"errors"
	"math/rand"
	"sync"
	"testing"

	"github.com/Southclaws/fault/ftag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGrid(t *testing.T) *Grid {
	t.Helper()
	g, err := New(Size{Banks: 4, Channels: 4, Steps: 8})
	require.NoError(t, err)
	return g
}

func TestNewDefaults(t *testing.T) {
	g := newTestGrid(t)

	for b := 0; b < 4; b++ {
		assert.Equal(t, 0, g.ArmedChannel(b))
		for c := 0; c < 4; c++ {
			steps, err := g.StepsOf(b, c)
			require.NoError(t, err)
			require.Len(t, steps, 8)
			for _, s := range steps {
				assert.False(t, s.Enabled)
				assert.Equal(t, uint8(DefaultValue), s.Value)
			}
		}
	}
	assert.Equal(t, 0, g.ActiveBank())
	assert.Equal(t, 0, g.ActiveChannel())
	assert.False(t, g.Editing())
}

func TestNewRejectsEmptySize(t *testing.T) {
	_, err := New(Size{Banks: 1, Channels: 0, Steps: 8})
	assert.Error(t, err)
}

func TestToggleIsInvolution(t *testing.T) {
	g := newTestGrid(t)

	require.NoError(t, g.ToggleStep(1, 2, 3))
	steps, _ := g.StepsOf(1, 2)
	assert.True(t, steps[3].Enabled)

	require.NoError(t, g.ToggleStep(1, 2, 3))
	steps, _ = g.StepsOf(1, 2)
	assert.False(t, steps[3].Enabled)
	assert.Equal(t, uint8(DefaultValue), steps[3].Value, "toggle leaves value alone")
}

func TestOutOfRange(t *testing.T) {
	g := newTestGrid(t)

	cases := []struct {
		name string
		err  error
	}{
		{"bank high", g.ToggleStep(4, 0, 0)},
		{"bank negative", g.ToggleStep(-1, 0, 0)},
		{"channel", g.ToggleStep(0, 4, 0)},
		{"step", g.ToggleStep(0, 0, 8)},
		{"active bank", g.SetActiveBank(9)},
		{"active channel", g.SetActiveChannel(-1)},
		{"armed", g.SetArmedChannel(4)},
		{"cursor", g.SetCursor(8)},
		{"value", g.SetStepValue(0, 0, 8, 10)},
		{"clear", g.ClearChannel(0, 7)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Error(t, tc.err)
			assert.True(t, errors.Is(tc.err, ErrIndexOutOfRange))
			assert.Equal(t, ftag.InvalidArgument, ftag.Get(tc.err))
		})
	}

	_, err := g.StepsOf(0, 4)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)

	// nothing moved
	assert.Equal(t, 0, g.ActiveBank())
	assert.Equal(t, 0, g.ActiveChannel())
	assert.Equal(t, 0, g.ArmedChannel(0))
	assert.Equal(t, 0, g.Cursor())
}

func TestAdjustOnlyInEditMode(t *testing.T) {
	g := newTestGrid(t)
	require.NoError(t, g.SetActiveChannel(2))
	require.NoError(t, g.SetCursor(5))

	g.AdjustStepValue(10)
	steps, _ := g.StepsOf(0, 2)
	assert.Equal(t, uint8(DefaultValue), steps[5].Value)

	g.SetEditing(true)
	g.AdjustStepValue(10)
	steps, _ = g.StepsOf(0, 2)
	assert.Equal(t, uint8(DefaultValue+10), steps[5].Value)
}

func TestAdjustSaturates(t *testing.T) {
	g := newTestGrid(t)
	g.SetEditing(true)

	g.AdjustStepValue(1000)
	steps, _ := g.StepsOf(0, 0)
	assert.Equal(t, uint8(MaxValue), steps[0].Value)

	g.AdjustStepValue(-1000)
	steps, _ = g.StepsOf(0, 0)
	assert.Equal(t, uint8(MinValue), steps[0].Value)
}

func TestAdjustNeverLeavesRange(t *testing.T) {
	g := newTestGrid(t)
	g.SetEditing(true)
	r := rand.New(rand.NewSource(7))

	for i := 0; i < 2000; i++ {
		g.AdjustStepValue(r.Intn(401) - 200)
		steps, _ := g.StepsOf(0, 0)
		require.LessOrEqual(t, steps[0].Value, uint8(MaxValue))
	}
}

func TestArmedChannelIsExclusive(t *testing.T) {
	g := newTestGrid(t)
	require.NoError(t, g.SetActiveBank(2))

	for _, c := range []int{3, 1, 1, 0, 2} {
		require.NoError(t, g.SetArmedChannel(c))
		assert.Equal(t, c, g.ArmedChannel(2))
	}
	// other banks untouched
	assert.Equal(t, 0, g.ArmedChannel(0))
	assert.Equal(t, -1, g.ArmedChannel(4))
}

func TestStepsOfIsACopy(t *testing.T) {
	g := newTestGrid(t)
	steps, _ := g.StepsOf(0, 0)
	steps[0].Enabled = true

	again, _ := g.StepsOf(0, 0)
	assert.False(t, again[0].Enabled)
}

func TestClearChannel(t *testing.T) {
	g := newTestGrid(t)
	require.NoError(t, g.ToggleStep(0, 1, 0))
	require.NoError(t, g.ToggleStep(0, 1, 7))
	require.NoError(t, g.SetStepValue(0, 1, 7, 99))

	require.NoError(t, g.ClearChannel(0, 1))
	steps, _ := g.StepsOf(0, 1)
	for _, s := range steps {
		assert.False(t, s.Enabled)
	}
	assert.Equal(t, uint8(99), steps[7].Value)
}

func TestSetStepValueClamps(t *testing.T) {
	g := newTestGrid(t)
	require.NoError(t, g.SetStepValue(0, 0, 0, 300))
	require.NoError(t, g.SetStepValue(0, 0, 1, -4))
	steps, _ := g.StepsOf(0, 0)
	assert.Equal(t, uint8(127), steps[0].Value)
	assert.Equal(t, uint8(0), steps[1].Value)
}

func TestSnapshot(t *testing.T) {
	g := newTestGrid(t)
	require.NoError(t, g.SetActiveBank(1))
	require.NoError(t, g.SetArmedChannel(3))
	require.NoError(t, g.ToggleStep(1, 3, 4))
	g.SetEditing(true)

	v := g.Snapshot()
	assert.Equal(t, 1, v.ActiveBank)
	assert.Equal(t, 3, v.ArmedChannel)
	assert.True(t, v.Editing)
	assert.True(t, v.Step(3, 4).Enabled)
	assert.Equal(t, Step{}, v.Step(9, 0))

	// later writes do not leak into the snapshot
	require.NoError(t, g.ToggleStep(1, 3, 4))
	assert.True(t, v.Step(3, 4).Enabled)
}

func TestConcurrentReadersSeeWholeToggles(t *testing.T) {
	g := newTestGrid(t)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			g.ToggleStep(0, 0, i%8)
		}
	}()
	for i := 0; i < 1000; i++ {
		v := g.Snapshot()
		require.Len(t, v.Channels[0], 8)
	}
	wg.Wait()
}
