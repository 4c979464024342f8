package midi

import (
	"fmt"
	"sync"
	"sync/atomic"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"

	"volca-seq/debug"
	"volca-seq/encoder"
	"volca-seq/panel"
)

var ledSendCount uint64

// Top row CCs mapped onto the front-panel buttons
var ccButtons = map[uint8]panel.Button{
	91: panel.ButtonBankA,
	92: panel.ButtonBankB,
	93: panel.ButtonOptions,
	94: panel.ButtonPlay,
	95: panel.ButtonEncoder,
}

// Right-hand scene buttons that turn the emulated encoder
const (
	sideUp   = 89
	sideDown = 79
)

// LaunchpadPads is the number of keypad positions the 8x8 grid offers
const LaunchpadPads = 64

// Programmer-mode LED lighting: F0 00 20 29 02 0C 03 then one colour spec
// per pad. Spec type 3 is <3, led, r, g, b> with 7-bit components.
var lightingHeader = []byte{0x00, 0x20, 0x29, 0x02, 0x0C, 0x03}

const rgbSpec = 0x03

// Launchpad drives a Novation Launchpad X as the keypad, the front-panel
// buttons and the encoder. Key positions run left to right from the top row.
type Launchpad struct {
	name   string
	out    drivers.Out
	in     drivers.In
	send   func(msg gomidi.Message) error
	stop   func()
	events chan panel.Event

	mu     sync.Mutex
	emu    *encoder.Emulator
	staged map[int]panel.RGB
	shown  map[int]panel.RGB
}

// OpenLaunchpad finds the in/out ports whose names contain name, switches
// the device to programmer mode and starts listening. Side buttons feed enc.
func OpenLaunchpad(name string, enc *encoder.State) (*Launchpad, error) {
	out, err := findOut(name)
	if err != nil {
		return nil, err
	}
	in, err := gomidi.FindInPort(name)
	if err != nil {
		return nil, fmt.Errorf("no midi input matching %q: %w", name, err)
	}
	send, err := gomidi.SendTo(out)
	if err != nil {
		return nil, fmt.Errorf("open output: %w", err)
	}

	lp := newLaunchpad(send, enc)
	lp.name = out.String()
	lp.out = out
	lp.in = in
	lp.programmerMode()

	stop, err := gomidi.ListenTo(in, func(msg gomidi.Message, timestampms int32) {
		lp.handle(msg)
	})
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	lp.stop = stop
	debug.Log("lp", "opened %s", lp.name)
	return lp, nil
}

func newLaunchpad(send func(msg gomidi.Message) error, enc *encoder.State) *Launchpad {
	lp := &Launchpad{
		send:   send,
		events: make(chan panel.Event, 64),
		staged: make(map[int]panel.RGB),
		shown:  make(map[int]panel.RGB),
	}
	if enc != nil {
		lp.AttachEncoder(enc)
	}
	return lp
}

// AttachEncoder makes the side buttons turn enc
func (lp *Launchpad) AttachEncoder(enc *encoder.State) {
	lp.mu.Lock()
	defer lp.mu.Unlock()
	lp.emu = encoder.Attach(enc, false)
}

func (lp *Launchpad) programmerMode() {
	// F0 00 20 29 02 0C 00 7F F7
	lp.send(gomidi.SysEx([]byte{0x00, 0x20, 0x29, 0x02, 0x0C, 0x00, 0x7F}))
	// brightness max
	lp.send(gomidi.SysEx([]byte{0x00, 0x20, 0x29, 0x02, 0x0C, 0x08, 0x7F}))
}

func (lp *Launchpad) handle(msg gomidi.Message) {
	var channel, note, velocity, cc, value uint8

	switch {
	case msg.GetNoteStart(&channel, &note, &velocity):
		lp.note(note, true)
	case msg.GetNoteEnd(&channel, &note):
		lp.note(note, false)
	case msg.GetControlChange(&channel, &cc, &value):
		lp.control(cc, value > 0)
	}
}

func (lp *Launchpad) note(note uint8, pressed bool) {
	row, col := noteToRowCol(note)
	if row < 0 {
		return
	}
	if col == 8 {
		lp.side(note, pressed)
		return
	}
	lp.push(panel.KeyEdge(rowColToPosition(row, col), pressed))
}

func (lp *Launchpad) control(cc uint8, pressed bool) {
	if b, ok := ccButtons[cc]; ok {
		lp.push(panel.ButtonEdge(b, pressed))
		return
	}
	// firmware revisions differ on whether scene buttons send notes or CCs
	lp.side(cc, pressed)
}

func (lp *Launchpad) side(id uint8, pressed bool) {
	lp.mu.Lock()
	defer lp.mu.Unlock()
	if !pressed || lp.emu == nil {
		return
	}
	switch id {
	case sideUp:
		lp.emu.Turn(1)
	case sideDown:
		lp.emu.Turn(-1)
	}
}

func (lp *Launchpad) push(ev panel.Event) {
	select {
	case lp.events <- ev:
	default:
		debug.Log("lp", "event queue full, dropped %+v", ev)
	}
}

// Poll returns every edge received since the last call without blocking
func (lp *Launchpad) Poll() []panel.Event {
	var evs []panel.Event
	for {
		select {
		case ev := <-lp.events:
			evs = append(evs, ev)
		default:
			return evs
		}
	}
}

// SetPixel stages a pad color for the next Show
func (lp *Launchpad) SetPixel(position int, c panel.RGB) {
	if position < 0 || position >= LaunchpadPads {
		return
	}
	lp.mu.Lock()
	lp.staged[position] = c
	lp.mu.Unlock()
}

// Show sends every pad whose color changed in one RGB lighting message
func (lp *Launchpad) Show() {
	lp.mu.Lock()
	defer lp.mu.Unlock()

	data := append([]byte(nil), lightingHeader...)
	var changed []int
	for pos := 0; pos < LaunchpadPads; pos++ {
		c, ok := lp.staged[pos]
		if !ok {
			continue
		}
		if prev, ok := lp.shown[pos]; ok && ledColor(prev) == ledColor(c) {
			continue
		}
		row, col := positionToRowCol(pos)
		v := ledColor(c)
		data = append(data, rgbSpec, rowColToNote(row, col), v[0], v[1], v[2])
		changed = append(changed, pos)
	}
	if len(changed) == 0 {
		clear(lp.staged)
		return
	}
	if err := lp.send(gomidi.SysEx(data)); err != nil {
		// keep them staged so the next Show retries
		debug.Warn("lp", err, "leds %d", len(changed))
		return
	}
	for _, pos := range changed {
		lp.shown[pos] = lp.staged[pos]
	}
	clear(lp.staged)

	sent := len(changed)
	count := atomic.AddUint64(&ledSendCount, uint64(sent))
	if count%100 < uint64(sent) {
		debug.Log("lp", "led count=%d (this batch=%d)", count, sent)
	}
}

// Name returns the output port name
func (lp *Launchpad) Name() string {
	return lp.name
}

// Close darkens every lit pad and releases the ports
func (lp *Launchpad) Close() error {
	for pos := 0; pos < LaunchpadPads; pos++ {
		lp.SetPixel(pos, panel.Off)
	}
	lp.Show()
	if lp.stop != nil {
		lp.stop()
	}
	if lp.in != nil {
		lp.in.Close()
	}
	if lp.out != nil {
		return lp.out.Close()
	}
	return nil
}

// ledColor scales a key color to the 7-bit components the lighting
// message carries
func ledColor(c panel.RGB) [3]uint8 {
	return [3]uint8{c[0] >> 1, c[1] >> 1, c[2] >> 1}
}

// Launchpad X note mapping
// 8x8 Grid:  Row 0 (bottom) = notes 11-18, Row 7 = notes 81-88
// Side col:  Col 8 (right side scene buttons) = notes 19, 29, ... 89

func rowColToNote(row, col int) uint8 {
	return uint8((row+1)*10 + col + 1)
}

func noteToRowCol(note uint8) (row, col int) {
	row = int(note/10) - 1
	col = int(note%10) - 1
	if row < 0 || row > 7 || col < 0 || col > 8 {
		return -1, -1
	}
	return row, col
}

// keypad positions count from the top-left pad
func rowColToPosition(row, col int) int {
	return (7-row)*8 + col
}

func positionToRowCol(pos int) (row, col int) {
	return 7 - pos/8, pos % 8
}
