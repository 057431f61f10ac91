package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/0xlemi/bertcam/internal/audio"
	"github.com/0xlemi/bertcam/internal/camera"
	"github.com/0xlemi/bertcam/internal/capture"
)

// DefaultSplashDuration is how long the logo shows before the camera screen.
const DefaultSplashDuration = 1200 * time.Millisecond

type screen int

const (
	screenSplash screen = iota
	screenLoading
	screenMain
)

// TickMsg represents a timer tick
type TickMsg time.Time

// LevelsMsg carries a fresh analysis of the monitored microphone.
type LevelsMsg struct {
	Levels audio.Levels
	Device string
}

// FrameMsg carries the latest camera preview frame. OK is false once the
// preview has stopped.
type FrameMsg struct {
	Frame capture.Frame
	OK    bool
}

type splashDoneMsg struct{}

// Model represents the UI state
type Model struct {
	state *State
	keys  keyMap

	screen         screen
	splashDuration time.Duration
	splashDone     bool
	initialized    bool

	spinner spinner.Model
	picker  list.Model
	help    help.Model

	camera      string
	frame       *capture.Frame
	levels      audio.Levels
	meterDevice string
	blinkOn     bool

	status      string
	statusIsErr bool

	width  int
	height int
}

// NewModel creates the camera screen for ctrl.
func NewModel(ctrl Controller, splashDuration time.Duration) Model {
	sp := spinner.New(
		spinner.WithSpinner(spinner.Dot),
		spinner.WithStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("#FAFAFA"))),
	)

	picker := list.New(nil, list.NewDefaultDelegate(), 40, 12)
	picker.Title = "Select Audio Input"
	picker.SetShowStatusBar(false)
	picker.SetFilteringEnabled(false)
	picker.SetShowHelp(false)

	return Model{
		state:          NewState(ctrl),
		keys:           defaultKeys(),
		splashDuration: splashDuration,
		spinner:        sp,
		picker:         picker,
		help:           help.New(),
	}
}

// State exposes the adapter, mainly for tests.
func (m Model) State() *State { return m.state }

// Init initializes the UI model
func (m Model) Init() tea.Cmd {
	splash := func() tea.Msg { return splashDoneMsg{} }
	if m.splashDuration > 0 {
		splash = tea.Tick(m.splashDuration, func(time.Time) tea.Msg { return splashDoneMsg{} })
	}
	return tea.Batch(
		splash,
		m.spinner.Tick,
		m.state.Initialize(),
		tick(),
	)
}

func tick() tea.Cmd {
	return tea.Tick(500*time.Millisecond, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

// Update updates the UI model based on messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.picker.SetSize(min(msg.Width-4, 60), min(msg.Height-6, 16))
		m.help.Width = msg.Width

	case TickMsg:
		m.blinkOn = !m.blinkOn
		return m, tick()

	case spinner.TickMsg:
		if m.screen == screenMain {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case splashDoneMsg:
		m.splashDone = true
		m.screen = screenLoading
		if m.initialized {
			m.screen = screenMain
		}

	case InitializedMsg:
		m.initialized = true
		if m.splashDone {
			m.screen = screenMain
		}
		if msg.Err != nil {
			m.setStatus(fmt.Sprintf("Camera setup failed: %v", msg.Err), true)
			return m, nil
		}
		if !msg.Configured {
			m.setStatus("No camera available", true)
			return m, m.state.LoadInputs()
		}
		m.camera = msg.Camera.Name
		return m, tea.Batch(m.state.StartSession(), m.state.LoadInputs())

	case SessionStartedMsg:
		if msg.Err != nil {
			m.setStatus(fmt.Sprintf("Capture session did not start: %v", msg.Err), true)
		}

	case InputsLoadedMsg:
		if msg.Err != nil {
			m.setStatus(fmt.Sprintf("Could not list audio inputs: %v", msg.Err), true)
			return m, nil
		}
		cmd := m.refreshPicker()
		return m, cmd

	case InputSelectedMsg:
		if msg.Err != nil {
			m.setStatus(fmt.Sprintf("Could not switch to %s: %v", msg.Input.Name, msg.Err), true)
		} else {
			m.setStatus("Audio input: "+msg.Input.Name, false)
		}
		cmd := m.refreshPicker()
		return m, cmd

	case ElapsedTickMsg:
		return m, m.state.Tick(msg)

	case RecordingStartedMsg:
		if msg.Err != nil {
			m.setStatus(fmt.Sprintf("Recording did not start: %v", msg.Err), true)
		} else {
			m.setStatus("", false)
		}

	case RecordingStoppedMsg:
		if msg.Err != nil {
			m.setStatus(fmt.Sprintf("Stopping failed: %v", msg.Err), true)
		}

	case RecordingFinishedMsg:
		m.setStatus(describeResult(msg.Result))

	case LevelsMsg:
		m.levels = msg.Levels
		m.meterDevice = msg.Device

	case FrameMsg:
		m.frame = nil
		if msg.OK {
			f := msg.Frame
			m.frame = &f
		}
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		return m, tea.Quit
	}
	if m.screen != screenMain {
		if key.Matches(msg, m.keys.Quit) {
			return m, tea.Quit
		}
		return m, nil
	}

	if m.state.ShowingPicker {
		switch {
		case key.Matches(msg, m.keys.Back), key.Matches(msg, m.keys.Quit):
			m.state.ClosePicker()
			return m, nil
		case key.Matches(msg, m.keys.Select):
			item, ok := m.picker.SelectedItem().(inputItem)
			if !ok {
				return m, nil
			}
			return m, m.state.SelectAudioInput(item.input)
		}
		var cmd tea.Cmd
		m.picker, cmd = m.picker.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Record):
		if m.state.IsRecording() {
			m.setStatus("Saving…", false)
		}
		return m, m.state.ToggleRecording()
	case key.Matches(msg, m.keys.Picker):
		return m, m.state.OpenPicker()
	}
	return m, nil
}

func (m *Model) setStatus(text string, isErr bool) {
	m.status = text
	m.statusIsErr = isErr
}

func describeResult(res camera.Result) (string, bool) {
	switch res.Stage {
	case camera.StageSaved:
		return fmt.Sprintf("Saved to library (%s)", shortID(res.Asset.ID)), false
	case camera.StageStart:
		return fmt.Sprintf("Recording did not start: %v", res.Err), true
	case camera.StageRecord:
		return fmt.Sprintf("Recording failed: %v", res.Err), true
	default:
		return fmt.Sprintf("Not saved (%s), kept at %s: %v", res.Stage, res.Path, res.Err), true
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// inputItem is one row in the audio picker.
type inputItem struct {
	input    capture.AudioInput
	selected bool
}

func (i inputItem) Title() string {
	if i.selected {
		return i.input.Name + "  ✓"
	}
	return i.input.Name
}

func (i inputItem) Description() string { return i.input.UID }
func (i inputItem) FilterValue() string { return i.input.Name }

func (m *Model) refreshPicker() tea.Cmd {
	selected, hasSelected := m.state.SelectedAudioInput()
	inputs := m.state.AvailableAudioInputs()
	items := make([]list.Item, len(inputs))
	cursor := 0
	for i, in := range inputs {
		isSel := hasSelected && in.UID == selected.UID
		if isSel {
			cursor = i
		}
		items[i] = inputItem{input: in, selected: isSel}
	}
	cmd := m.picker.SetItems(items)
	m.picker.Select(cursor)
	return cmd
}

// View renders the UI
func (m Model) View() string {
	switch m.screen {
	case screenSplash:
		return renderSplash(m.width, m.height)
	case screenLoading:
		return renderLoading(m.width, m.height, m.spinner.View())
	}

	if m.state.ShowingPicker {
		return m.pickerView()
	}

	recording := m.state.IsRecording()
	var sections []string

	header := titleStyle.Render("BertCam")
	if recording {
		header += "  " + renderRecordingIndicator(m.state.ElapsedSeconds, m.blinkOn)
	}
	sections = append(sections, header, "")

	width := m.width
	if width == 0 {
		width = 60
	}
	sections = append(sections, renderPreview(m.camera, m.frame, m.meterDevice, m.levels, min(width, 72)), "")

	if !recording {
		selected, ok := m.state.SelectedAudioInput()
		sections = append(sections, renderAudioInputButton(selected, ok), "")
	}
	sections = append(sections, renderRecordButton(recording))
	if recording {
		sections = append(sections, renderTimer(m.state.ElapsedSeconds))
	}

	if status := renderStatus(m.status, m.statusIsErr); status != "" {
		sections = append(sections, "", status)
	}
	sections = append(sections, "", m.help.View(mainKeys{keys: m.keys, recording: recording}))

	return strings.Join(sections, "\n")
}

func (m Model) pickerView() string {
	return m.picker.View() + "\n\n" + m.help.View(pickerKeys{keys: m.keys})
}
