package encoder

import (
	"context"
	"fmt"
	"sync"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"

	"volca-seq/debug"
)

// edgePoll bounds how long a watcher blocks before rechecking ctx
const edgePoll = 100 * time.Millisecond

// OpenPins initialises the host drivers and looks up both encoder pins by
// name (e.g. "GPIO17").
func OpenPins(nameA, nameB string) (gpio.PinIn, gpio.PinIn, error) {
	if _, err := host.Init(); err != nil {
		return nil, nil, fmt.Errorf("host init: %w", err)
	}
	a := gpioreg.ByName(nameA)
	if a == nil {
		return nil, nil, fmt.Errorf("no such pin %q", nameA)
	}
	b := gpioreg.ByName(nameB)
	if b == nil {
		return nil, nil, fmt.Errorf("no such pin %q", nameB)
	}
	return a, b, nil
}

// WatchGPIO feeds s from two real pins. Each pin gets its own goroutine
// waiting for edges, so the handler is driven by two independent trigger
// sources exactly as with pin-change interrupts. Blocks until ctx ends.
func WatchGPIO(ctx context.Context, s *State, a, b gpio.PinIn) error {
	for _, p := range []gpio.PinIn{a, b} {
		if err := p.In(gpio.PullUp, gpio.BothEdges); err != nil {
			return fmt.Errorf("configure %s: %w", p, err)
		}
	}
	// Sync to the resting position so the first edge decodes correctly.
	s.Edge(bool(a.Read()), bool(b.Read()))

	var wg sync.WaitGroup
	for _, p := range []gpio.PinIn{a, b} {
		wg.Add(1)
		go func(p gpio.PinIn) {
			defer wg.Done()
			for ctx.Err() == nil {
				if !p.WaitForEdge(edgePoll) {
					continue
				}
				s.Edge(bool(a.Read()), bool(b.Read()))
			}
			debug.Log("enc", "watcher on %s stopped", p)
		}(p)
	}
	wg.Wait()

	for _, p := range []gpio.PinIn{a, b} {
		p.Halt()
	}
	return ctx.Err()
}
