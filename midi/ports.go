package midi

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"

	"volca-seq/debug"
)

// scanTimeout bounds a port scan (CoreMIDI can hang)
const scanTimeout = 3 * time.Second

// Ports lists the names of the MIDI ports seen by the registered driver
type Ports struct {
	In  []string
	Out []string
}

// ListPorts scans inputs and outputs with a timeout
func ListPorts() (Ports, error) {
	ch := make(chan Ports, 1)
	go func() {
		var p Ports
		for _, in := range gomidi.GetInPorts() {
			p.In = append(p.In, in.String())
		}
		for _, out := range gomidi.GetOutPorts() {
			p.Out = append(p.Out, out.String())
		}
		ch <- p
	}()

	select {
	case p := <-ch:
		return p, nil
	case <-time.After(scanTimeout):
		return Ports{}, errors.New("midi port scan timed out")
	}
}

// PortOut sends notes to a host MIDI output port
type PortOut struct {
	mu   sync.Mutex
	port drivers.Out
	send func(msg gomidi.Message) error
}

// OpenPort opens the first output whose name contains name
func OpenPort(name string) (*PortOut, error) {
	port, err := findOut(name)
	if err != nil {
		return nil, err
	}
	send, err := gomidi.SendTo(port)
	if err != nil {
		return nil, fmt.Errorf("failed to open port: %w", err)
	}
	debug.Log("midi", "opened output %q", port.String())
	return &PortOut{port: port, send: send}, nil
}

func findOut(name string) (drivers.Out, error) {
	if out, err := gomidi.FindOutPort(name); err == nil {
		return out, nil
	}
	lower := strings.ToLower(name)
	for _, out := range gomidi.GetOutPorts() {
		if strings.Contains(strings.ToLower(out.String()), lower) {
			return out, nil
		}
	}
	return nil, fmt.Errorf("no midi output matching %q", name)
}

func (p *PortOut) NoteOn(channel, note, velocity uint8) error {
	if err := checkChannel(channel); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.send(gomidi.NoteOn(channel-1, note, velocity))
}

func (p *PortOut) NoteOff(channel, note uint8) error {
	if err := checkChannel(channel); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.send(gomidi.NoteOff(channel-1, note))
}

// Name returns the port name
func (p *PortOut) Name() string {
	return p.port.String()
}

func (p *PortOut) Close() error {
	return p.port.Close()
}
