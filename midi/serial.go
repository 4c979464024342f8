package midi

import (
	"fmt"
	"io"
	"sync"

	gomidi "gitlab.com/gomidi/midi/v2"
	"go.bug.st/serial"

	"volca-seq/debug"
)

// DefaultBaud is the MIDI DIN current-loop rate
const DefaultBaud = 31250

// SerialOut writes raw MIDI bytes to a serial line, using running status
// (a repeated status byte is left out) like hardware MIDI senders do.
type SerialOut struct {
	mu      sync.Mutex
	w       io.Writer
	closer  io.Closer
	status  byte
	running bool
}

// OpenSerial opens device at baud (0 = 31250)
func OpenSerial(device string, baud int) (*SerialOut, error) {
	if baud == 0 {
		baud = DefaultBaud
	}
	port, err := serial.Open(device, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, fmt.Errorf("open serial %s: %w", device, err)
	}
	debug.Log("midi", "serial %s at %d baud", device, baud)
	s := NewSerialOut(port, true)
	s.closer = port
	return s, nil
}

// SerialDevices lists serial ports present on the host
func SerialDevices() ([]string, error) {
	return serial.GetPortsList()
}

// NewSerialOut frames notes onto w
func NewSerialOut(w io.Writer, runningStatus bool) *SerialOut {
	return &SerialOut{w: w, running: runningStatus}
}

func (s *SerialOut) write(msg gomidi.Message) error {
	b := []byte(msg)
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running && len(b) > 1 && b[0] == s.status {
		b = b[1:]
	} else {
		s.status = b[0]
	}
	if _, err := s.w.Write(b); err != nil {
		// resync the receiver with a full status byte next time
		s.status = 0
		return err
	}
	return nil
}

func (s *SerialOut) NoteOn(channel, note, velocity uint8) error {
	if err := checkChannel(channel); err != nil {
		return err
	}
	return s.write(gomidi.NoteOn(channel-1, note, velocity))
}

func (s *SerialOut) NoteOff(channel, note uint8) error {
	if err := checkChannel(channel); err != nil {
		return err
	}
	return s.write(gomidi.NoteOff(channel-1, note))
}

func (s *SerialOut) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}
