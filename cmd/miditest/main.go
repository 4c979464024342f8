// Command miditest exercises the panel hardware one piece at a time.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	"volca-seq/encoder"
	"volca-seq/grid"
	"volca-seq/midi"
	"volca-seq/render"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		return
	}

	var err error
	switch os.Args[1] {
	case "list":
		err = listPorts()
	case "leds":
		err = testLEDs(arg(2, "launchpad"))
	case "poll":
		err = pollLaunchpad(arg(2, "launchpad"))
	case "encoder":
		err = watchEncoder(arg(2, "GPIO17"), arg(3, "GPIO27"))
	case "serial":
		err = testSerial(arg(2, "/dev/ttyAMA0"))
	default:
		usage()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func arg(i int, def string) string {
	if len(os.Args) > i {
		return os.Args[i]
	}
	return def
}

func usage() {
	fmt.Println("Panel Test Scripts")
	fmt.Println("")
	fmt.Println("Commands:")
	fmt.Println("  list               - List MIDI ports and serial devices")
	fmt.Println("  leds [name]        - Color wheel sweep on a Launchpad")
	fmt.Println("  poll [name]        - Print Launchpad keys, buttons and encoder turns")
	fmt.Println("  encoder [a] [b]    - Print detents from a quadrature encoder on GPIO")
	fmt.Println("  serial [device]    - Send a test note over serial MIDI")
}

func listPorts() error {
	fmt.Println("=== MIDI Ports ===")
	fmt.Println("(waiting up to 3 seconds...)")
	ports, err := midi.ListPorts()
	if err != nil {
		fmt.Println("Fix: sudo killall coreaudiod midiserver")
		return err
	}
	for i, p := range ports.In {
		fmt.Printf("  in  %d: %s\n", i, p)
	}
	for i, p := range ports.Out {
		fmt.Printf("  out %d: %s\n", i, p)
	}

	fmt.Println("\n=== Serial Devices ===")
	devs, err := midi.SerialDevices()
	if err != nil {
		return err
	}
	for _, d := range devs {
		fmt.Printf("  %s\n", d)
	}
	return nil
}

func testLEDs(name string) error {
	lp, err := midi.OpenLaunchpad(name, nil)
	if err != nil {
		return err
	}
	defer lp.Close()

	fmt.Printf("Sweeping %s...\n", lp.Name())
	size := grid.Size{Banks: 1, Channels: 4, Steps: 8}
	for i := 0; i < 64; i++ {
		for pos, c := range render.Intro(size, uint8(i*4)) {
			lp.SetPixel(pos, c)
		}
		lp.Show()
		time.Sleep(30 * time.Millisecond)
	}

	fmt.Println("Press Enter to clear...")
	fmt.Scanln()
	return nil
}

func pollLaunchpad(name string) error {
	enc := encoder.NewState()
	lp, err := midi.OpenLaunchpad(name, enc)
	if err != nil {
		return err
	}
	defer lp.Close()

	fmt.Printf("Listening on %s. Ctrl+C to exit.\n", lp.Name())
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			for _, ev := range lp.Poll() {
				if ev.Key != nil {
					fmt.Printf("key %2d pressed=%v\n", ev.Key.Position, ev.Key.Pressed)
				} else if ev.Button != nil {
					fmt.Printf("%-8s pressed=%v\n", ev.Button.Button, ev.Button.Pressed)
				}
			}
			if d := enc.Take(); d != 0 {
				fmt.Printf("encoder %+d\n", d)
			}
		}
	}
}

func watchEncoder(pinA, pinB string) error {
	a, b, err := encoder.OpenPins(pinA, pinB)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	enc := encoder.NewState()
	go encoder.WatchGPIO(ctx, enc, a, b)

	fmt.Printf("Turn the encoder on %s/%s. Ctrl+C to exit.\n", pinA, pinB)
	total := 0
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if d := enc.Take(); d != 0 {
				total += d
				fmt.Printf("delta %+d total %d (raw %d)\n", d, total, enc.Raw())
			}
		}
	}
}

func testSerial(device string) error {
	out, err := midi.OpenSerial(device, midi.DefaultBaud)
	if err != nil {
		return err
	}
	defer out.Close()

	fmt.Printf("Sending middle C on channel 1 via %s\n", device)
	if err := out.NoteOn(1, 60, 100); err != nil {
		return err
	}
	time.Sleep(500 * time.Millisecond)
	return out.NoteOff(1, 60)
}
