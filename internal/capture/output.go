package capture

import (
	"sync"
)

// RecordingDelegate receives the lifecycle of one recording. Both methods are
// called on a goroutine owned by the output, never on the caller's.
type RecordingDelegate interface {
	DidStartRecording(path string)
	DidFinishRecording(path string, err error)
}

// Connection carries one media type from the session into an output.
type Connection struct {
	media   MediaType
	mu      sync.Mutex
	enabled bool
}

func (c *Connection) Media() MediaType { return c.media }

func (c *Connection) Enabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.enabled
}

func (c *Connection) SetEnabled(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.enabled = enabled
}

// OutputSettings are the encoding parameters for every recording.
type OutputSettings struct {
	VideoSize string
	Framerate int
	Preset    string
}

// MovieFileOutput writes the session's audio and video to a file.
type MovieFileOutput struct {
	encoder  Encoder
	settings OutputSettings

	mu          sync.Mutex
	session     *Session
	connections map[MediaType]*Connection
	job         Job
	finished    chan struct{}
}

func NewMovieFileOutput(encoder Encoder, settings OutputSettings) *MovieFileOutput {
	return &MovieFileOutput{encoder: encoder, settings: settings}
}

func (o *MovieFileOutput) attach(s *Session) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.session = s
	o.connections = map[MediaType]*Connection{
		MediaVideo: {media: MediaVideo, enabled: true},
		MediaAudio: {media: MediaAudio, enabled: true},
	}
}

// Connection returns the output's connection for media, or nil when the
// output is not attached to a session.
func (o *MovieFileOutput) Connection(media MediaType) *Connection {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.connections[media]
}

func (o *MovieFileOutput) IsRecording() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.job != nil
}

// IsReady reports whether StartRecording can succeed: attached to a running
// session that has a video input, and not already recording.
func (o *MovieFileOutput) IsReady() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.job != nil {
		return false
	}
	_, err := o.specLocked("")
	return err == nil
}

func (o *MovieFileOutput) specLocked(path string) (RecordSpec, error) {
	if o.session == nil {
		return RecordSpec{}, ErrOutputNotReady
	}
	s := o.session
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return RecordSpec{}, ErrOutputNotReady
	}
	video, ok := s.inputLocked(MediaVideo)
	if !ok {
		return RecordSpec{}, ErrOutputNotReady
	}

	spec := RecordSpec{
		Video:     video.Device(),
		Path:      path,
		VideoSize: o.settings.VideoSize,
		Framerate: o.settings.Framerate,
		Preset:    o.settings.Preset,
	}
	if audio, ok := s.inputLocked(MediaAudio); ok && o.connections[MediaAudio].Enabled() {
		d := audio.Device()
		spec.Audio = &d
	}
	return spec, nil
}

// StartRecording begins writing to path. The delegate is told when writing
// has started and when the file is closed.
func (o *MovieFileOutput) StartRecording(path string, delegate RecordingDelegate) error {
	o.mu.Lock()
	if o.job != nil {
		o.mu.Unlock()
		return ErrOutputBusy
	}
	spec, err := o.specLocked(path)
	if err != nil {
		o.mu.Unlock()
		return err
	}

	// Most capture devices take one reader at a time: the recording hands
	// frames to the preview sink until it ends.
	s := o.session
	s.pausePreview()
	spec.Preview = s.previewSpec()

	job, err := o.encoder.Start(spec)
	if err != nil {
		s.resumePreview()
		o.mu.Unlock()
		return err
	}
	finished := make(chan struct{})
	o.job, o.finished = job, finished
	o.mu.Unlock()

	go func() {
		defer close(finished)
		delegate.DidStartRecording(path)
		err := job.Wait()

		// Resumed under o.mu so a new recording cannot slip in between.
		o.mu.Lock()
		o.job = nil
		s.resumePreview()
		o.mu.Unlock()

		delegate.DidFinishRecording(path, err)
	}()
	return nil
}

// StopRecording asks the current recording to finalize. The returned channel
// is closed once the delegate has been told the file is finished; it is
// already closed when nothing is recording.
func (o *MovieFileOutput) StopRecording() <-chan struct{} {
	o.mu.Lock()
	job, finished := o.job, o.finished
	o.mu.Unlock()

	if job == nil {
		if finished != nil {
			return finished
		}
		closed := make(chan struct{})
		close(closed)
		return closed
	}
	if err := job.Stop(); err != nil {
		o.session.logger.Warn("stopping recording", "error", err)
	}
	return finished
}
