package main

import (
	"context"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	"volca-seq/config"
	"volca-seq/debug"
	"volca-seq/encoder"
	"volca-seq/midi"
	"volca-seq/panel"
	"volca-seq/sequencer"
	"volca-seq/theme"
	"volca-seq/transport"
	"volca-seq/tui"
)

// introFrames is the length of the startup color sweep
const introFrames = 32

var (
	Version = "dev"

	// Command-line configuration
	flags struct {
		config    string
		bpm       int
		port      string
		serial    string
		launchpad string
		gpioA     string
		gpioB     string
		debug     bool
		channel   int
		note      int
	}
)

var rootCmd = &cobra.Command{
	Use:   "volca-seq",
	Short: "Four-channel, four-bank MIDI step sequencer",
	Long: `volca-seq is a step sequencer for the volca family: an 8-step grid per
channel, four channels per bank, edited from an illuminated keypad and a
rotary encoder, playing over USB MIDI ports or a 31250 baud serial line.

Without hardware the terminal stands in for the keypad and display.`,
	Version:      Version,
	SilenceUsage: true,
	RunE:         runSequencer,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the sequencer (default)",
	RunE:  runSequencer,
}

var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "List MIDI ports and serial devices",
	RunE:  listPorts,
}

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Send one test note to the configured output",
	RunE:  probe,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Write the effective configuration to the config file",
	RunE:  writeConfig,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flags.config, "config", "c", "",
		"Config file (.json, .yaml or .yml); default ~/.config/volca-seq/config.json")
	pf.IntVar(&flags.bpm, "bpm", 0,
		"Tempo override")
	pf.StringVarP(&flags.port, "port", "p", "",
		"MIDI output port name (substring match)")
	pf.StringVarP(&flags.serial, "serial", "s", "",
		"Serial device for DIN MIDI at 31250 baud")
	pf.StringVar(&flags.launchpad, "launchpad", "",
		"Use a Launchpad whose port name contains this as the keypad")
	pf.StringVar(&flags.gpioA, "gpio-a", "",
		"Encoder phase A pin (e.g. GPIO17)")
	pf.StringVar(&flags.gpioB, "gpio-b", "",
		"Encoder phase B pin (e.g. GPIO27)")
	pf.BoolVarP(&flags.debug, "debug", "d", false,
		"Write debug logs to ~/.config/volca-seq/debug.log")

	probeCmd.Flags().IntVar(&flags.channel, "channel", 1, "MIDI channel 1-16")
	probeCmd.Flags().IntVar(&flags.note, "note", 60, "Note number")

	rootCmd.AddCommand(runCmd, portsCmd, probeCmd, configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads the config file and applies flag overrides
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if flags.config != "" {
		cfg, err = config.LoadFile(flags.config)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	changed := cmd.Flags().Changed
	if changed("bpm") {
		cfg.BPM = flags.bpm
	}
	if changed("port") {
		cfg.MIDI.PortName = flags.port
	}
	if changed("serial") {
		cfg.MIDI.SerialPort = flags.serial
	}
	if changed("launchpad") {
		cfg.Controller.Launchpad = flags.launchpad
	}
	if changed("gpio-a") {
		cfg.Controller.EncoderPinA = flags.gpioA
	}
	if changed("gpio-b") {
		cfg.Controller.EncoderPinB = flags.gpioB
	}
	return cfg, cfg.Validate()
}

// openOutputs opens every configured MIDI sink. The returned closer
// releases them.
func openOutputs(cfg *config.Config, extra ...midi.Note) (midi.Multi, func(), error) {
	outs := midi.Multi(extra)
	var closers []func() error

	if cfg.MIDI.PortName != "" {
		p, err := midi.OpenPort(cfg.MIDI.PortName)
		if err != nil {
			return nil, nil, err
		}
		outs = append(outs, p)
		closers = append(closers, p.Close)
	}
	if cfg.MIDI.SerialPort != "" {
		s, err := midi.OpenSerial(cfg.MIDI.SerialPort, cfg.MIDI.Baud)
		if err != nil {
			for _, c := range closers {
				c()
			}
			return nil, nil, err
		}
		outs = append(outs, s)
		closers = append(closers, s.Close)
	}
	return outs, func() {
		for _, c := range closers {
			c()
		}
	}, nil
}

func runSequencer(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if flags.debug {
		if err := debug.Enable(""); err != nil {
			return err
		}
		defer debug.Disable()
	}

	palette, err := theme.FromConfig(cfg.Palette)
	if err != nil {
		return err
	}

	rec := midi.NewRecorder(64)
	outs, closeOutputs, err := openOutputs(cfg, rec)
	if err != nil {
		return err
	}
	defer closeOutputs()

	screen := tui.NewPanel()
	keypads := panel.Keypads{screen}

	var lp *midi.Launchpad
	if cfg.Controller.Launchpad != "" {
		lp, err = midi.OpenLaunchpad(cfg.Controller.Launchpad, nil)
		if err != nil {
			return err
		}
		defer lp.Close()
		keypads = append(keypads, lp)
	}

	manager, err := sequencer.New(cfg, keypads, screen, outs)
	if err != nil {
		return err
	}
	if lp != nil {
		lp.AttachEncoder(manager.Encoder())
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Controller.EncoderPinA != "" && cfg.Controller.EncoderPinB != "" {
		a, b, err := encoder.OpenPins(cfg.Controller.EncoderPinA, cfg.Controller.EncoderPinB)
		if err != nil {
			return err
		}
		go func() {
			if err := encoder.WatchGPIO(ctx, manager.Encoder(), a, b); err != nil && ctx.Err() == nil {
				debug.Warn("main", err, "encoder watcher")
			}
		}()
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		manager.Intro(introFrames)
		manager.Run(ctx)
	}()

	m := tui.NewModel(manager, screen, rec, theme.New(palette))
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())
	_, err = p.Run()

	cancel()
	<-done
	return err
}

func listPorts(cmd *cobra.Command, args []string) error {
	ports, err := midi.ListPorts()
	if err != nil {
		return err
	}
	fmt.Println("=== MIDI Output Ports ===")
	for i, name := range ports.Out {
		fmt.Printf("  %d: %s\n", i, name)
	}
	fmt.Println("\n=== MIDI Input Ports ===")
	for i, name := range ports.In {
		fmt.Printf("  %d: %s\n", i, name)
	}

	devs, err := midi.SerialDevices()
	if err != nil {
		return err
	}
	fmt.Println("\n=== Serial Devices ===")
	for _, d := range devs {
		fmt.Printf("  %s\n", d)
	}
	return nil
}

func probe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.MIDI.PortName == "" && cfg.MIDI.SerialPort == "" {
		return fmt.Errorf("no output: pass --port or --serial")
	}
	if flags.channel < 1 || flags.channel > 16 || flags.note < 0 || flags.note > 127 {
		return fmt.Errorf("channel 1-16 and note 0-127 required")
	}

	outs, closeOutputs, err := openOutputs(cfg)
	if err != nil {
		return err
	}
	defer closeOutputs()

	ch, note := uint8(flags.channel), uint8(flags.note)
	fmt.Printf("note %d on channel %d\n", note, ch)
	if err := outs.NoteOn(ch, note, cfg.MIDI.Velocity); err != nil {
		return err
	}
	// hold for one gated step at the configured tempo
	step := transport.Tempo{BPM: cfg.BPM, BeatsPerBar: cfg.BeatsPerBar, Steps: cfg.Steps}.Interval()
	time.Sleep(step * time.Duration(cfg.GatePercent) / 100)
	return outs.NoteOff(ch, note)
}

func writeConfig(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if flags.config != "" {
		err = cfg.SaveFile(flags.config)
	} else {
		err = cfg.Save()
	}
	if err != nil {
		return err
	}
	fmt.Println("config written")
	return nil
}
