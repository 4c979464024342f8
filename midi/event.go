package midi

import (
	"fmt"

	gomidi "gitlab.com/gomidi/midi/v2"
)

// MIDI message types
const (
	NoteOn  uint8 = 0x90
	NoteOff uint8 = 0x80
)

// Event is one note message as seen on the wire
type Event struct {
	Type     uint8 // NoteOn, NoteOff
	Channel  uint8 // MIDI channel 1-16
	Note     uint8
	Velocity uint8
}

// Message encodes the event with gomidi (which counts channels from 0)
func (e Event) Message() gomidi.Message {
	if e.Type == NoteOn {
		return gomidi.NoteOn(e.Channel-1, e.Note, e.Velocity)
	}
	return gomidi.NoteOff(e.Channel-1, e.Note)
}

func (e Event) String() string {
	if e.Type == NoteOn {
		return fmt.Sprintf("on  ch%-2d %3d v%d", e.Channel, e.Note, e.Velocity)
	}
	return fmt.Sprintf("off ch%-2d %3d", e.Channel, e.Note)
}

func checkChannel(ch uint8) error {
	if ch < 1 || ch > 16 {
		return fmt.Errorf("midi channel %d not in 1-16", ch)
	}
	return nil
}
