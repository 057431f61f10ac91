package capture

import (
	"fmt"
	"log/slog"
	"sync"
)

// Monitor is started with the session to drive the live audio meter. It receives
// the session's audio device, or nil when the session has none.
type Monitor interface {
	Start(audio *Device) error
	Stop() error
}

// DeviceInput feeds one device into a session.
type DeviceInput struct {
	device Device
}

func NewDeviceInput(d Device) *DeviceInput {
	return &DeviceInput{device: d}
}

func (i *DeviceInput) Device() Device   { return i.device }
func (i *DeviceInput) Media() MediaType { return i.device.Media }

// Session coordinates device inputs and recording outputs. Inputs may only
// change while the session is stopped.
type Session struct {
	mu      sync.Mutex
	inputs  []*DeviceInput
	outputs []*MovieFileOutput
	running bool
	monitor Monitor
	logger  *slog.Logger

	previewer  Previewer
	preview    PreviewSpec
	previewJob Job
}

func NewSession(logger *slog.Logger) *Session {
	return &Session{logger: logger}
}

// SetMonitor installs the audio monitor. It takes effect on the next start.
func (s *Session) SetMonitor(m Monitor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.monitor = m
}

// SetPreview installs a camera preview that runs while the session does and
// pauses while a recording owns the camera. It takes effect on the next start.
func (s *Session) SetPreview(p Previewer, spec PreviewSpec) error {
	if err := spec.valid(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.previewer, s.preview = p, spec
	return nil
}

// previewSpec returns the installed preview, or nil.
func (s *Session) previewSpec() *PreviewSpec {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.previewer == nil {
		return nil
	}
	spec := s.preview
	return &spec
}

func (s *Session) startPreviewLocked() {
	if s.previewer == nil || s.previewJob != nil || !s.running {
		return
	}
	video, ok := s.inputLocked(MediaVideo)
	if !ok {
		return
	}
	job, err := s.previewer.Preview(video.Device(), s.preview)
	if err != nil {
		s.logger.Warn("camera preview did not start", "error", err)
		return
	}
	s.previewJob = job
}

// pausePreview stops the preview stream and waits for it to release the
// camera. The last frame stays in the sink.
func (s *Session) pausePreview() {
	s.mu.Lock()
	job := s.previewJob
	s.previewJob = nil
	s.mu.Unlock()

	if job == nil {
		return
	}
	if err := job.Stop(); err != nil {
		s.logger.Debug("stopping camera preview", "error", err)
	}
	if err := job.Wait(); err != nil {
		s.logger.Debug("camera preview exited", "error", err)
	}
}

// resumePreview restarts the preview if the session is still running.
func (s *Session) resumePreview() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.startPreviewLocked()
}

// CanAddInput reports whether in could be attached now: the session is
// stopped and holds no other input of the same media type.
func (s *Session) CanAddInput(in *DeviceInput) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.canAddInputLocked(in) == nil
}

func (s *Session) canAddInputLocked(in *DeviceInput) error {
	if s.running {
		return ErrSessionRunning
	}
	for _, existing := range s.inputs {
		if existing == in || existing.Media() == in.Media() {
			return fmt.Errorf("%w: already has a %s input", ErrCannotAddInput, in.Media())
		}
	}
	return nil
}

func (s *Session) AddInput(in *DeviceInput) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.canAddInputLocked(in); err != nil {
		return err
	}
	s.inputs = append(s.inputs, in)
	s.logger.Debug("session input added", "media", in.Media(), "device", in.device.Name)
	return nil
}

func (s *Session) RemoveInput(in *DeviceInput) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return ErrSessionRunning
	}
	for i, existing := range s.inputs {
		if existing == in {
			s.inputs = append(s.inputs[:i], s.inputs[i+1:]...)
			s.logger.Debug("session input removed", "media", in.Media(), "device", in.device.Name)
			return nil
		}
	}
	return ErrInputNotAttached
}

// Input returns the attached input of the given media type.
func (s *Session) Input(media MediaType) (*DeviceInput, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inputLocked(media)
}

func (s *Session) inputLocked(media MediaType) (*DeviceInput, bool) {
	for _, in := range s.inputs {
		if in.Media() == media {
			return in, true
		}
	}
	return nil, false
}

func (s *Session) AddOutput(o *MovieFileOutput) error {
	s.mu.Lock()
	for _, existing := range s.outputs {
		if existing == o {
			s.mu.Unlock()
			return fmt.Errorf("output already attached")
		}
	}
	s.outputs = append(s.outputs, o)
	s.mu.Unlock()

	o.attach(s)
	return nil
}

// StartRunning starts the pipeline. Calling it on a running session does nothing.
func (s *Session) StartRunning() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	monitor := s.monitor
	var audio *Device
	if in, ok := s.inputLocked(MediaAudio); ok {
		d := in.Device()
		audio = &d
	}
	s.startPreviewLocked()
	s.mu.Unlock()

	s.logger.Info("session started")
	if monitor != nil {
		if err := monitor.Start(audio); err != nil {
			s.logger.Warn("audio monitor did not start", "error", err)
		}
	}
}

// StopRunning stops the pipeline, finalizing any recording in progress
// before returning. Calling it on a stopped session does nothing.
func (s *Session) StopRunning() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	outputs := append([]*MovieFileOutput(nil), s.outputs...)
	monitor := s.monitor
	sink := s.preview.Sink
	s.mu.Unlock()

	for _, o := range outputs {
		<-o.StopRecording()
	}
	s.pausePreview()
	if sink != nil {
		sink.Clear()
	}
	if monitor != nil {
		if err := monitor.Stop(); err != nil {
			s.logger.Warn("audio monitor did not stop cleanly", "error", err)
		}
	}
	s.logger.Info("session stopped")
}

func (s *Session) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}
