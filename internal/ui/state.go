package ui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/0xlemi/bertcam/internal/camera"
	"github.com/0xlemi/bertcam/internal/capture"
)

// Controller is what the screen needs from the camera controller.
type Controller interface {
	Initialize(ctx context.Context) error
	StartSession() *camera.Op
	StartRecording() *camera.Recording
	StopRecording() *camera.Op
	SelectAudioInput(in capture.AudioInput) *camera.Op
	ListAudioInputs(ctx context.Context) ([]capture.AudioInput, error)
	IsRecording() bool
	SelectedAudioInput() (capture.AudioInput, bool)
	AvailableAudioInputs() []capture.AudioInput
	Configured() bool
	Camera() (capture.Device, bool)
}

// Messages produced by State commands. They are delivered on the bubbletea
// loop, so handlers may touch the model freely.

type InitializedMsg struct {
	Configured bool
	Camera     capture.Device
	Err        error
}

type SessionStartedMsg struct{ Err error }

type InputsLoadedMsg struct {
	Inputs []capture.AudioInput
	Err    error
}

type InputSelectedMsg struct {
	Input capture.AudioInput
	Err   error
}

type RecordingStartedMsg struct{ Err error }

type RecordingStoppedMsg struct{ Err error }

type RecordingFinishedMsg struct{ Result camera.Result }

// ElapsedTickMsg advances the recording timer. Ticks from an earlier start or
// stop are ignored.
type ElapsedTickMsg struct{ generation int }

// State projects the controller for the screen. Recording state and the
// audio selection are read through from the controller; only the picker
// and the elapsed counter live here.
type State struct {
	ctrl Controller

	ShowingPicker  bool
	ElapsedSeconds int

	generation   int
	tickInterval time.Duration
}

func NewState(ctrl Controller) *State {
	return &State{ctrl: ctrl, tickInterval: time.Second}
}

func (s *State) IsRecording() bool { return s.ctrl.IsRecording() }

func (s *State) SelectedAudioInput() (capture.AudioInput, bool) {
	return s.ctrl.SelectedAudioInput()
}

func (s *State) AvailableAudioInputs() []capture.AudioInput {
	return s.ctrl.AvailableAudioInputs()
}

func (s *State) Camera() (capture.Device, bool) { return s.ctrl.Camera() }

func (s *State) Initialize() tea.Cmd {
	return func() tea.Msg {
		err := s.ctrl.Initialize(context.Background())
		cam, _ := s.ctrl.Camera()
		return InitializedMsg{Configured: s.ctrl.Configured(), Camera: cam, Err: err}
	}
}

func (s *State) StartSession() tea.Cmd {
	op := s.ctrl.StartSession()
	return func() tea.Msg {
		return SessionStartedMsg{Err: op.Wait(context.Background())}
	}
}

// LoadInputs refreshes the list of audio inputs.
func (s *State) LoadInputs() tea.Cmd {
	return func() tea.Msg {
		inputs, err := s.ctrl.ListAudioInputs(context.Background())
		return InputsLoadedMsg{Inputs: inputs, Err: err}
	}
}

// ToggleRecording starts or stops depending on the controller's state.
func (s *State) ToggleRecording() tea.Cmd {
	if s.IsRecording() {
		return s.StopRecording()
	}
	return s.StartRecording()
}

func (s *State) StartRecording() tea.Cmd {
	s.resetElapsed()
	rec := s.ctrl.StartRecording()
	return tea.Batch(
		func() tea.Msg {
			<-rec.Started()
			return RecordingStartedMsg{Err: rec.StartErr()}
		},
		func() tea.Msg {
			res, _ := rec.Wait(context.Background())
			return RecordingFinishedMsg{Result: res}
		},
		s.tick(),
	)
}

func (s *State) StopRecording() tea.Cmd {
	s.resetElapsed()
	op := s.ctrl.StopRecording()
	return func() tea.Msg {
		return RecordingStoppedMsg{Err: op.Wait(context.Background())}
	}
}

func (s *State) resetElapsed() {
	s.ElapsedSeconds = 0
	s.generation++
}

func (s *State) tick() tea.Cmd {
	gen := s.generation
	return tea.Tick(s.tickInterval, func(time.Time) tea.Msg {
		return ElapsedTickMsg{generation: gen}
	})
}

// Tick advances the elapsed counter while the current recording runs.
func (s *State) Tick(msg ElapsedTickMsg) tea.Cmd {
	if msg.generation != s.generation || !s.IsRecording() {
		return nil
	}
	s.ElapsedSeconds++
	return s.tick()
}

// OpenPicker shows the audio input picker and refreshes its contents. The
// picker is not available while recording.
func (s *State) OpenPicker() tea.Cmd {
	if s.IsRecording() {
		return nil
	}
	s.ShowingPicker = true
	return s.LoadInputs()
}

func (s *State) ClosePicker() { s.ShowingPicker = false }

func (s *State) SelectAudioInput(in capture.AudioInput) tea.Cmd {
	s.ShowingPicker = false
	op := s.ctrl.SelectAudioInput(in)
	return func() tea.Msg {
		return InputSelectedMsg{Input: in, Err: op.Wait(context.Background())}
	}
}
