package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fmsg"
	"github.com/Southclaws/fault/ftag"
	"gopkg.in/yaml.v3"
)

// ErrInvalid is wrapped by every Validate failure
var ErrInvalid = errors.New("invalid config")

// PlayMode selects which channels the transport reads
type PlayMode string

const (
	PlayArmed PlayMode = "armed" // armed channel of the active bank
	PlayBank  PlayMode = "bank"  // every channel of the active bank
)

// PaletteConfig holds key colors as #rrggbb strings
type PaletteConfig struct {
	Selected []string `json:"selected" yaml:"selected"` // per channel: view + edit target
	Armed    string   `json:"armed" yaml:"armed"`
	Cursor   []string `json:"cursor" yaml:"cursor"` // per channel: playhead
}

// MIDIConfig selects the MIDI output(s)
type MIDIConfig struct {
	PortName   string `json:"portName,omitempty" yaml:"port_name,omitempty"`
	SerialPort string `json:"serialPort,omitempty" yaml:"serial_port,omitempty"`
	Baud       int    `json:"baud,omitempty" yaml:"baud,omitempty"`
	Channels   []int  `json:"channels" yaml:"channels"` // grid channel -> MIDI channel 1-16
	Velocity   uint8  `json:"velocity" yaml:"velocity"`
}

// ControllerConfig selects the input hardware
type ControllerConfig struct {
	Launchpad   string `json:"launchpad,omitempty" yaml:"launchpad,omitempty"` // port name substring
	EncoderPinA string `json:"encoderPinA,omitempty" yaml:"encoder_pin_a,omitempty"`
	EncoderPinB string `json:"encoderPinB,omitempty" yaml:"encoder_pin_b,omitempty"`
	Precision   int    `json:"precision" yaml:"precision"` // quadrature transitions per tick
	Invert      bool   `json:"invert,omitempty" yaml:"invert,omitempty"`
}

// Config is the main configuration structure
type Config struct {
	Banks    int `json:"banks" yaml:"banks"`
	Channels int `json:"channels" yaml:"channels"` // CHANNEL_MAX_SIZE
	Steps    int `json:"steps" yaml:"steps"`       // STEP_MAX_SIZE

	BPM             int      `json:"bpm" yaml:"bpm"`
	BeatsPerBar     int      `json:"beatsPerBar" yaml:"beats_per_bar"`
	GatePercent     int      `json:"gatePercent" yaml:"gate_percent"`
	PlayMode        PlayMode `json:"playMode" yaml:"play_mode"`
	AutoAdvanceBank bool     `json:"autoAdvanceBank,omitempty" yaml:"auto_advance_bank,omitempty"`

	EditTimeoutMs int `json:"editTimeoutMs" yaml:"edit_timeout_ms"`
	FPS           int `json:"fps" yaml:"fps"`

	Palette    PaletteConfig    `json:"palette" yaml:"palette"`
	MIDI       MIDIConfig       `json:"midi" yaml:"midi"`
	Controller ControllerConfig `json:"controller" yaml:"controller"`
}

// DefaultConfig returns the stock volca-boy settings
func DefaultConfig() *Config {
	return &Config{
		Banks:       4,
		Channels:    4,
		Steps:       8,
		BPM:         220,
		BeatsPerBar: 4,
		GatePercent: 80,
		PlayMode:    PlayArmed,

		EditTimeoutMs: 3000,
		FPS:           30,

		Palette: PaletteConfig{
			Selected: []string{"#00d9ec", "#17e5db", "#57efc1", "#8df6a3"},
			Armed:    "#1300ec",
			Cursor:   []string{"#ffc800", "#ff6900", "#ff3600", "#ff1300"},
		},
		MIDI: MIDIConfig{
			Baud:     31250,
			Channels: []int{1, 2, 3, 4},
			Velocity: 100,
		},
		Controller: ControllerConfig{
			Precision: 4,
		},
	}
}

// EditTimeout is the idle period after which edit mode reverts
func (c *Config) EditTimeout() time.Duration {
	return time.Duration(c.EditTimeoutMs) * time.Millisecond
}

// FrameInterval is the display/illumination refresh period
func (c *Config) FrameInterval() time.Duration {
	if c.FPS <= 0 {
		return time.Second / 30
	}
	return time.Second / time.Duration(c.FPS)
}

// MIDIChannel maps a grid channel to its MIDI channel (1-16)
func (c *Config) MIDIChannel(channel int) uint8 {
	if channel >= 0 && channel < len(c.MIDI.Channels) {
		return uint8(c.MIDI.Channels[channel])
	}
	return uint8(channel%16) + 1
}

func invalid(format string, args ...any) error {
	return fault.Wrap(ErrInvalid,
		fmsg.With(fmt.Sprintf(format, args...)),
		ftag.With(ftag.InvalidArgument),
	)
}

// Validate checks ranges and palette completeness
func (c *Config) Validate() error {
	switch {
	case c.Banks < 1 || c.Banks > 16:
		return invalid("banks %d not in 1-16", c.Banks)
	case c.Channels < 1 || c.Channels > 16:
		return invalid("channels %d not in 1-16", c.Channels)
	case c.Steps < 1 || c.Steps > 64:
		return invalid("steps %d not in 1-64", c.Steps)
	case c.BPM < 20 || c.BPM > 300:
		return invalid("bpm %d not in 20-300", c.BPM)
	case c.BeatsPerBar < 1:
		return invalid("beats per bar %d must be positive", c.BeatsPerBar)
	case c.GatePercent < 1 || c.GatePercent > 95:
		return invalid("gate %d%% not in 1-95", c.GatePercent)
	case c.PlayMode != PlayArmed && c.PlayMode != PlayBank:
		return invalid("play mode %q", c.PlayMode)
	case c.EditTimeoutMs < 0:
		return invalid("edit timeout %dms is negative", c.EditTimeoutMs)
	case c.MIDI.Velocity > 127:
		return invalid("velocity %d above 127", c.MIDI.Velocity)
	}
	switch c.Controller.Precision {
	case 1, 2, 4:
	default:
		return invalid("encoder precision %d not 1, 2 or 4", c.Controller.Precision)
	}
	for i, ch := range c.MIDI.Channels {
		if ch < 1 || ch > 16 {
			return invalid("midi channel %d for track %d not in 1-16", ch, i+1)
		}
	}
	if len(c.Palette.Selected) < c.Channels || len(c.Palette.Cursor) < c.Channels {
		return invalid("palette needs %d selected and cursor colors", c.Channels)
	}
	return nil
}

// ConfigDir returns the config directory path
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "volca-seq"), nil
}

// ConfigPath returns the full path to config.json
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads the default config file, or returns defaults if not found
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return DefaultConfig(), nil
	}
	return LoadFile(path)
}

// LoadFile reads path (JSON, or YAML for .yaml/.yml) over the defaults.
// A missing file yields the defaults.
func LoadFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if isYAML(path) {
		err = yaml.Unmarshal(data, cfg)
	} else {
		err = json.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fault.Wrap(err, fmsg.With(fmt.Sprintf("parse %s", path)))
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the config to the default path
func (c *Config) Save() error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return c.SaveFile(path)
}

// SaveFile writes the config to path, format chosen by extension
func (c *Config) SaveFile(path string) error {
	// Create directory if it doesn't exist
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}
