package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"volca-seq/encoder"
	"volca-seq/midi"
	"volca-seq/panel"
	"volca-seq/sequencer"
	"volca-seq/theme"
	"volca-seq/widgets"
)

// midiLogLines is how many recent notes the view lists
const midiLogLines = 8

var (
	selectKeys = "qwertyui"
	armKeys    = "asdfghjk"
)

type Model struct {
	Manager  *sequencer.Manager
	Panel    *Panel
	Recorder *midi.Recorder // may be nil
	Theme    *theme.Theme

	emu         *encoder.Emulator
	optionsHeld bool
	quitting    bool
}

type UpdateMsg struct{}

func NewModel(manager *sequencer.Manager, p *Panel, rec *midi.Recorder, th *theme.Theme) Model {
	enc := manager.Encoder()
	return Model{
		Manager:  manager,
		Panel:    p,
		Recorder: rec,
		Theme:    th,
		emu:      encoder.Attach(enc, false),
	}
}

func ListenForUpdates(manager *sequencer.Manager) tea.Cmd {
	return func() tea.Msg {
		<-manager.UpdateChan
		return UpdateMsg{}
	}
}

func (m Model) Init() tea.Cmd {
	return ListenForUpdates(m.Manager)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg.String())

	case tea.MouseMsg:
		if msg.Action != tea.MouseActionPress {
			break
		}
		switch msg.Button {
		case tea.MouseButtonWheelUp:
			m.emu.Turn(1)
		case tea.MouseButtonWheelDown:
			m.emu.Turn(-1)
		}

	case UpdateMsg:
		// the edit timeout releases Options without a key; adopt the
		// router's mode once every pushed edge has been handled
		if m.Panel.Pending() == 0 {
			m.optionsHeld = m.Manager.Frame().Editing
		}
		return m, ListenForUpdates(m.Manager)
	}

	return m, nil
}

func (m Model) handleKey(key string) (tea.Model, tea.Cmd) {
	layout := m.Manager.Router().Layout()

	switch key {
	case "ctrl+c", "esc":
		m.quitting = true
		return m, tea.Quit

	case "tab":
		m.optionsHeld = !m.optionsHeld
		m.Panel.Push(panel.ButtonEdge(panel.ButtonOptions, m.optionsHeld))

	case " ", "space":
		m.click(panel.ButtonPlay)
	case "z":
		m.click(panel.ButtonBankA)
	case "x":
		m.click(panel.ButtonBankB)
	case "enter":
		m.click(panel.ButtonEncoder)

	case "[":
		m.emu.Turn(-1)
	case "]":
		m.emu.Turn(1)

	default:
		if len(key) != 1 {
			break
		}
		c := key[0]
		switch {
		case c >= '1' && c <= '9' && int(c-'1') < layout.Steps:
			m.tap(layout.StepKey(int(c - '1')))
		case strings.IndexByte(selectKeys, c) >= 0 && strings.IndexByte(selectKeys, c) < layout.Channels:
			m.tap(layout.SelectKey(strings.IndexByte(selectKeys, c)))
		case strings.IndexByte(armKeys, c) >= 0 && strings.IndexByte(armKeys, c) < layout.Channels:
			m.tap(layout.ArmKey(strings.IndexByte(armKeys, c)))
		}
	}
	return m, nil
}

// terminals report no key releases, so a key press is a full tap
func (m Model) tap(position int) {
	m.Panel.Push(panel.KeyEdge(position, true), panel.KeyEdge(position, false))
}

func (m Model) click(b panel.Button) {
	m.Panel.Push(panel.ButtonEdge(b, true), panel.ButtonEdge(b, false))
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	headerStyle := lipgloss.NewStyle().Foreground(m.Theme.Accent())
	dimStyle := lipgloss.NewStyle().Foreground(m.Theme.Muted())
	warnStyle := lipgloss.NewStyle().Foreground(m.Theme.Warning())

	state := m.Theme.Symbols.Stopped
	if m.Manager.Frame().Playing {
		state = m.Theme.Symbols.Playhead
	}
	header := string(state) + " volca-seq"
	if m.optionsHeld {
		header += "  " + warnStyle.Render("OPTIONS")
	}

	keypad := widgets.RenderKeypad(m.Theme, m.Panel.Pixels(), m.Manager.Router().Layout())
	display := widgets.RenderDisplay(m.Panel.Lines(), m.Theme.Accent())

	help := widgets.RenderKeyHelp([]widgets.KeySection{
		{Title: "keys", Keys: []widgets.KeyBinding{
			{Key: "1-8", Desc: "step"},
			{Key: "q w e r", Desc: "select channel"},
			{Key: "a s d f", Desc: "arm channel"},
		}},
		{Title: "buttons", Keys: []widgets.KeyBinding{
			{Key: "z / x", Desc: "bank down / up"},
			{Key: "tab", Desc: "hold options (edit)"},
			{Key: "[ ] wheel", Desc: "encoder"},
			{Key: "enter", Desc: "encoder switch (arm)"},
			{Key: "space", Desc: "play / stop"},
			{Key: "esc", Desc: "quit"},
		}},
	})

	var out strings.Builder
	out.WriteString("\n")
	out.WriteString(headerStyle.Render(header))
	out.WriteString("\n\n")
	out.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, keypad, "   ", display))
	out.WriteString("\n\n")
	out.WriteString(m.midiLog())
	out.WriteString("\n\n")
	out.WriteString(dimStyle.Render(help))

	return out.String()
}

func (m Model) midiLog() string {
	if m.Recorder == nil {
		return ""
	}
	evs := m.Recorder.Events()
	lines := []string{fmt.Sprintf("midi (%d)", len(evs))}
	if len(evs) > midiLogLines {
		evs = evs[len(evs)-midiLogLines:]
	}
	for _, e := range evs {
		lines = append(lines, "  "+e.String())
	}
	return strings.Join(lines, "\n")
}
