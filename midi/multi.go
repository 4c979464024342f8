package midi

import "errors"

// Note is the output contract shared by every sink in this package
type Note interface {
	NoteOn(channel, note, velocity uint8) error
	NoteOff(channel, note uint8) error
}

// Multi fans every note out to several sinks. A failing sink does not stop
// the others.
type Multi []Note

func (m Multi) NoteOn(channel, note, velocity uint8) error {
	var errs []error
	for _, o := range m {
		if err := o.NoteOn(channel, note, velocity); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) NoteOff(channel, note uint8) error {
	var errs []error
	for _, o := range m {
		if err := o.NoteOff(channel, note); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
