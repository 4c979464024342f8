package midi

import "sync"

// Recorder keeps every note it is sent. It backs the simulator's MIDI log
// and the tests.
type Recorder struct {
	mu     sync.Mutex
	events []Event
	limit  int
}

// NewRecorder keeps at most limit events (0 = unbounded)
func NewRecorder(limit int) *Recorder {
	return &Recorder{limit: limit}
}

func (r *Recorder) add(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	if r.limit > 0 && len(r.events) > r.limit {
		r.events = r.events[len(r.events)-r.limit:]
	}
}

func (r *Recorder) NoteOn(channel, note, velocity uint8) error {
	if err := checkChannel(channel); err != nil {
		return err
	}
	r.add(Event{Type: NoteOn, Channel: channel, Note: note, Velocity: velocity})
	return nil
}

func (r *Recorder) NoteOff(channel, note uint8) error {
	if err := checkChannel(channel); err != nil {
		return err
	}
	r.add(Event{Type: NoteOff, Channel: channel, Note: note})
	return nil
}

// Events returns a copy of the recorded events, oldest first
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Reset forgets everything
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

// Sounding returns notes whose note-on has no later note-off, keyed by
// channel<<8 | note
func (r *Recorder) Sounding() map[uint16]bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	open := make(map[uint16]bool)
	for _, e := range r.events {
		key := uint16(e.Channel)<<8 | uint16(e.Note)
		if e.Type == NoteOn {
			open[key] = true
		} else {
			delete(open, key)
		}
	}
	return open
}
