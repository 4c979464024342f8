package debug

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"
)

var (
	file    *os.File
	mu      sync.Mutex
	logger  = zerolog.Nop()
	enabled bool
)

// Enable starts debug logging to path (truncated). An empty path uses
// ~/.config/volca-seq/debug.log.
func Enable(path string) error {
	mu.Lock()
	defer mu.Unlock()

	if enabled {
		return nil
	}

	if path == "" {
		homeDir, _ := os.UserHomeDir()
		path = filepath.Join(homeDir, ".config", "volca-seq", "debug.log")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}

	file = f
	setOutputLocked(f)
	logger.Info().Str("cat", "debug").Msg("=== Debug logging started ===")
	return nil
}

// SetOutput sends debug logs to w (nil disables logging)
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	closeFileLocked()
	if w == nil {
		logger = zerolog.Nop()
		enabled = false
		return
	}
	setOutputLocked(w)
}

func setOutputLocked(w io.Writer) {
	zerolog.TimeFieldFormat = "15:04:05.000"
	logger = zerolog.New(w).With().Timestamp().Logger()
	enabled = true
}

// Disable stops debug logging
func Disable() {
	mu.Lock()
	defer mu.Unlock()

	closeFileLocked()
	logger = zerolog.Nop()
	enabled = false
}

func closeFileLocked() {
	if file != nil {
		file.Close()
		file = nil
	}
}

// Enabled reports whether logs are being written
func Enabled() bool {
	mu.Lock()
	defer mu.Unlock()
	return enabled
}

// Log writes a message to the debug log
func Log(category, format string, args ...any) {
	mu.Lock()
	defer mu.Unlock()

	if !enabled {
		return
	}
	logger.Debug().Str("cat", category).Msg(fmt.Sprintf(format, args...))
}

// Warn writes a message at warn level (dropped events, rejected operations)
func Warn(category string, err error, format string, args ...any) {
	mu.Lock()
	defer mu.Unlock()

	if !enabled {
		return
	}
	logger.Warn().Str("cat", category).Err(err).Msg(fmt.Sprintf(format, args...))
}

// LogEvery logs only every N calls (use for high-frequency events)
var counters = make(map[string]int)

func LogEvery(n int, category, format string, args ...any) {
	mu.Lock()
	if !enabled {
		mu.Unlock()
		return
	}
	key := category + format
	counters[key]++
	count := counters[key]
	mu.Unlock()

	if count%n == 0 {
		Log(category, format+" (every %d, count=%d)", append(args, n, count)...)
	}
}
