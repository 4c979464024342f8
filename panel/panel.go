// Package panel describes the front-panel hardware the sequencer core talks
// to: the illuminated keypad, the mode buttons and the character display.
package panel

import "fmt"

// RGB is a pixel color pushed to the keypad
type RGB [3]uint8

// Off is the unlit key color
var Off = RGB{0, 0, 0}

// RGBFromHex converts a packed 0xRRGGBB value (the form used by pixel drivers)
func RGBFromHex(v uint32) RGB {
	return RGB{uint8(v >> 16), uint8(v >> 8), uint8(v)}
}

// Hex returns the packed 0xRRGGBB value
func (c RGB) Hex() uint32 {
	return uint32(c[0])<<16 | uint32(c[1])<<8 | uint32(c[2])
}

func (c RGB) String() string {
	return fmt.Sprintf("#%02x%02x%02x", c[0], c[1], c[2])
}

// Button identifies one of the dedicated front-panel controls
type Button int

const (
	ButtonBankA Button = iota
	ButtonBankB
	ButtonOptions
	ButtonPlay
	ButtonEncoder // push switch on the rotary encoder
)

var buttonNames = []string{"bank-a", "bank-b", "options", "play", "encoder"}

func (b Button) String() string {
	if b < 0 || int(b) >= len(buttonNames) {
		return fmt.Sprintf("button(%d)", int(b))
	}
	return buttonNames[b]
}

// KeyEvent is a single keypad edge
type KeyEvent struct {
	Position int
	Pressed  bool
}

// ButtonEvent is a single edge on a dedicated button
type ButtonEvent struct {
	Button  Button
	Pressed bool
}

// Event is one polled input edge: exactly one of Key or Button is set
type Event struct {
	Key    *KeyEvent
	Button *ButtonEvent
}

// KeyEdge builds a keypad Event
func KeyEdge(position int, pressed bool) Event {
	return Event{Key: &KeyEvent{Position: position, Pressed: pressed}}
}

// ButtonEdge builds a button Event
func ButtonEdge(b Button, pressed bool) Event {
	return Event{Button: &ButtonEvent{Button: b, Pressed: pressed}}
}

// Keypad is the keypad scanning/illumination driver.
//
// Poll never blocks; it returns whatever edges arrived since the last call.
// SetPixel stages a color and Show pushes staged colors to the hardware.
type Keypad interface {
	Poll() []Event
	SetPixel(position int, c RGB)
	Show()
}

// Display renders monospaced text at a cell origin. Fire-and-forget.
type Display interface {
	DrawString(col, row int, text string)
}

// Keypads drives several keypads as one: edges from all of them are merged
// and every pixel goes to each.
type Keypads []Keypad

func (ks Keypads) Poll() []Event {
	var evs []Event
	for _, k := range ks {
		evs = append(evs, k.Poll()...)
	}
	return evs
}

func (ks Keypads) SetPixel(position int, c RGB) {
	for _, k := range ks {
		k.SetPixel(position, c)
	}
}

func (ks Keypads) Show() {
	for _, k := range ks {
		k.Show()
	}
}
