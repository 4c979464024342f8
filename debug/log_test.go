package debug

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogWritesCategory(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(nil)

	Log("grid", "toggle bank=%d", 2)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "grid", rec["cat"])
	assert.Equal(t, "toggle bank=2", rec["message"])
	assert.Equal(t, "debug", rec["level"])
}

func TestWarnCarriesError(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(nil)

	Warn("router", errors.New("boom"), "dropped key %d", 40)
	assert.Contains(t, buf.String(), `"error":"boom"`)
	assert.Contains(t, buf.String(), `"level":"warn"`)
}

func TestDisabledIsSilent(t *testing.T) {
	SetOutput(nil)
	assert.False(t, Enabled())
	Log("grid", "nothing")
	LogEvery(1, "grid", "nothing")
}

func TestLogEvery(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(nil)

	for i := 0; i < 10; i++ {
		LogEvery(5, "enc", "tick")
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 2)
}
