// Package camera owns the capture session: device discovery, input and output
// wiring, audio input switching, and recording start and stop. Finished
// recordings are handed to the library.
package camera

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/0xlemi/bertcam/internal/capture"
	"github.com/0xlemi/bertcam/internal/library"
)

var (
	ErrNotConfigured     = errors.New("capture session is not configured")
	ErrAlreadyRecording  = errors.New("already recording")
	ErrUnknownAudioInput = errors.New("audio input is not available")
	ErrClosed            = errors.New("camera controller closed")
)

// Library stores finished recordings.
type Library interface {
	RequestAuthorization(ctx context.Context) library.AuthorizationStatus
	CreateVideoAsset(ctx context.Context, src string) (library.Asset, error)
}

type Options struct {
	// DocumentsDir receives the temporary file of each recording.
	DocumentsDir string
	// Camera selects a video device by ID or name. Empty picks the default.
	Camera string
	// AudioInput is preferred at startup when present. Empty picks the first.
	AudioInput string
	Output     capture.OutputSettings
	// Monitor, if set, runs whenever the session runs.
	Monitor capture.Monitor
	// Previewer, if set, streams Preview frames while the session runs and
	// no recording holds the camera.
	Previewer capture.Previewer
	Preview   capture.PreviewSpec
	// Now is the clock used for temp file names.
	Now func() time.Time
}

// Controller is the single owner of the capture session. Every operation that
// changes the session runs on one serial queue in call order.
type Controller struct {
	discoverer capture.Discoverer
	library    Library
	opts       Options
	logger     *slog.Logger

	session *capture.Session
	output  *capture.MovieFileOutput
	audio   *capture.AudioSession

	queue     *queue
	inflight  singleflight.Group
	finishing sync.WaitGroup
	closeOnce sync.Once

	mu         sync.Mutex
	configured bool
	camera     *capture.Device
	available  []capture.AudioInput
	selected   *capture.AudioInput
	recording  bool
	latest     *Recording
}

func New(d capture.Discoverer, enc capture.Encoder, lib Library, opts Options, logger *slog.Logger) *Controller {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	c := &Controller{
		discoverer: d,
		library:    lib,
		opts:       opts,
		logger:     logger,
		session:    capture.NewSession(logger),
		output:     capture.NewMovieFileOutput(enc, opts.Output),
		audio:      capture.NewAudioSession(d, logger),
		queue:      newQueue(),
	}
	if opts.Monitor != nil {
		c.session.SetMonitor(opts.Monitor)
	}
	if opts.Previewer != nil {
		spec := opts.Preview
		if spec.VideoSize == "" {
			spec.VideoSize = opts.Output.VideoSize
		}
		if spec.Framerate == 0 {
			spec.Framerate = opts.Output.Framerate
		}
		if err := c.session.SetPreview(opts.Previewer, spec); err != nil {
			logger.Warn("camera preview disabled", "error", err)
		}
	}
	return c
}

// submit queues fn and returns its completion.
func (c *Controller) submit(fn func() error) *Op {
	op := newOp()
	if !c.queue.submit(func() { op.resolve(fn()) }) {
		op.resolve(ErrClosed)
	}
	return op
}

// Initialize discovers the camera and the default microphone and wires them
// into the session with a movie file output. Without a camera the session
// stays unconfigured; that is logged, not returned. The session is left
// stopped unless selecting the first audio input restarted it.
func (c *Controller) Initialize(ctx context.Context) error {
	return c.submit(func() error {
		c.initialize(ctx)
		return nil
	}).Wait(ctx)
}

func (c *Controller) initialize(ctx context.Context) {
	if c.Configured() {
		return
	}

	if err := c.audio.SetCategory(capture.CategoryPlayAndRecord, 0); err != nil {
		c.logger.Error("failed to set audio session category", "error", err)
	}
	if err := c.audio.SetActive(true); err != nil {
		c.logger.Error("failed to activate audio session", "error", err)
	}

	var (
		camera *capture.Device
		mic    *capture.Device
		micErr error
		g      errgroup.Group
	)
	g.Go(func() error {
		var err error
		camera, err = c.findCamera(ctx)
		return err
	})
	g.Go(func() error {
		mic, micErr = c.findMicrophone(ctx)
		return nil
	})
	if err := g.Wait(); err != nil {
		c.logger.Error("no usable camera, capture session left unconfigured", "error", err)
		return
	}

	if err := c.session.AddInput(capture.NewDeviceInput(*camera)); err != nil {
		c.logger.Error("failed to add camera input", "device", camera.Name, "error", err)
		return
	}
	if micErr != nil {
		c.logger.Warn("no microphone, recording video only", "error", micErr)
	} else if err := c.session.AddInput(capture.NewDeviceInput(*mic)); err != nil {
		c.logger.Warn("failed to add microphone input", "device", mic.Name, "error", err)
	}
	if err := c.session.AddOutput(c.output); err != nil {
		c.logger.Error("failed to add movie output", "error", err)
		return
	}
	if conn := c.output.Connection(capture.MediaAudio); conn != nil {
		conn.SetEnabled(true)
	}

	c.mu.Lock()
	c.configured = true
	c.camera = camera
	c.mu.Unlock()
	c.logger.Info("capture session configured", "camera", camera.Name, "position", camera.Position)

	inputs, err := c.refreshInputs(ctx)
	if err != nil {
		c.logger.Error("failed to load audio inputs", "error", err)
		return
	}
	if len(inputs) == 0 {
		return
	}
	first := inputs[0]
	if pref, ok := c.audio.PreferredInput(); ok {
		first = pref
	}
	if err := c.selectAudioInput(ctx, first); err != nil {
		c.logger.Error("failed to select audio input", "uid", first.UID, "error", err)
	}
}

func (c *Controller) findCamera(ctx context.Context) (*capture.Device, error) {
	if c.opts.Camera == "" {
		return capture.DefaultVideoDevice(ctx, c.discoverer, capture.PositionBack)
	}
	devices, err := c.discoverer.VideoDevices(ctx)
	if err != nil {
		return nil, err
	}
	d, ok := capture.FindDevice(devices, c.opts.Camera)
	if !ok {
		return nil, fmt.Errorf("camera %q: %w", c.opts.Camera, capture.ErrNoVideoDevice)
	}
	return d, nil
}

func (c *Controller) findMicrophone(ctx context.Context) (*capture.Device, error) {
	if c.opts.AudioInput != "" {
		devices, err := c.discoverer.AudioDevices(ctx)
		if err != nil {
			return nil, err
		}
		if d, ok := capture.FindDevice(devices, c.opts.AudioInput); ok {
			if err := c.audio.SetPreferredInput(ctx, d.AudioInput()); err != nil {
				c.logger.Warn("failed to prefer configured audio input", "input", c.opts.AudioInput, "error", err)
			}
		} else {
			c.logger.Warn("configured audio input not found", "input", c.opts.AudioInput)
		}
	}
	return c.audio.DefaultAudioDevice(ctx)
}

// refreshInputs asks the audio session for the current inputs. Concurrent
// callers share one lookup.
func (c *Controller) refreshInputs(ctx context.Context) ([]capture.AudioInput, error) {
	v, err, _ := c.inflight.Do("inputs", func() (any, error) {
		return c.audio.AvailableInputs(ctx)
	})
	if err != nil {
		return nil, err
	}
	inputs := v.([]capture.AudioInput)

	c.mu.Lock()
	c.available = inputs
	c.mu.Unlock()
	return append([]capture.AudioInput(nil), inputs...), nil
}

// ListAudioInputs returns the inputs available right now. If none is selected
// yet, the first one is selected in the background.
func (c *Controller) ListAudioInputs(ctx context.Context) ([]capture.AudioInput, error) {
	inputs, err := c.refreshInputs(ctx)
	if err != nil {
		return nil, err
	}
	if _, ok := c.SelectedAudioInput(); !ok && len(inputs) > 0 {
		c.SelectAudioInput(inputs[0])
	}
	return inputs, nil
}

// SelectAudioInput switches the session's microphone. The session is stopped,
// rewired and restarted; an input that is not currently available is
// rejected without touching the session.
func (c *Controller) SelectAudioInput(in capture.AudioInput) *Op {
	return c.submit(func() error {
		return c.selectAudioInput(context.Background(), in)
	})
}

func (c *Controller) selectAudioInput(ctx context.Context, in capture.AudioInput) error {
	inputs, err := c.refreshInputs(ctx)
	if err != nil {
		return err
	}
	if !containsInput(inputs, in) {
		c.logger.Warn("ignoring unknown audio input", "uid", in.UID, "name", in.Name)
		return fmt.Errorf("%w: %s", ErrUnknownAudioInput, in.Name)
	}

	configured := c.Configured()
	if configured {
		c.session.StopRunning()
		defer c.session.StartRunning()
	}

	if err := c.audio.SetPreferredInput(ctx, in); err != nil {
		c.logger.Error("failed to set preferred audio input", "uid", in.UID, "error", err)
		return err
	}

	if configured {
		if existing, ok := c.session.Input(capture.MediaAudio); ok {
			if err := c.session.RemoveInput(existing); err != nil {
				return fmt.Errorf("removing audio input: %w", err)
			}
		}
	}

	opts := capture.OptionAllowBluetooth | capture.OptionAllowBluetoothA2DP | capture.OptionDefaultToSpeaker
	if err := c.audio.SetCategory(capture.CategoryPlayAndRecord, opts); err != nil {
		c.logger.Error("failed to set audio session category", "error", err)
		return err
	}
	if err := c.audio.SetActive(true); err != nil {
		c.logger.Error("failed to activate audio session", "error", err)
		return err
	}

	if configured {
		mic, err := c.audio.DefaultAudioDevice(ctx)
		if err != nil {
			return fmt.Errorf("resolving audio device: %w", err)
		}
		input := capture.NewDeviceInput(*mic)
		if c.session.CanAddInput(input) {
			if err := c.session.AddInput(input); err != nil {
				return fmt.Errorf("adding audio input: %w", err)
			}
			if conn := c.output.Connection(capture.MediaAudio); conn != nil {
				conn.SetEnabled(true)
			}
		}
	}

	selected := in
	var fallback error
	if configured {
		// The preferred input can vanish between the availability check and
		// wiring; record what the session actually uses.
		if wired, ok := c.session.Input(capture.MediaAudio); ok && wired.Device().ID != in.UID {
			selected = wired.Device().AudioInput()
			c.logger.Warn("audio input unplugged during switch", "uid", in.UID, "using", selected.Name)
			fallback = fmt.Errorf("%w: %s unplugged, using %s", ErrUnknownAudioInput, in.Name, selected.Name)
		}
	}

	c.mu.Lock()
	c.selected = &selected
	c.mu.Unlock()
	if fallback != nil {
		return fallback
	}
	c.logger.Info("audio input selected", "uid", in.UID, "name", in.Name)
	return nil
}

func containsInput(inputs []capture.AudioInput, in capture.AudioInput) bool {
	for _, candidate := range inputs {
		if candidate.UID == in.UID {
			return true
		}
	}
	return false
}

// StartSession starts the capture pipeline. It does nothing if it is running.
func (c *Controller) StartSession() *Op {
	return c.submit(func() error {
		if !c.Configured() {
			return ErrNotConfigured
		}
		c.session.StartRunning()
		return nil
	})
}

// StopSession stops the pipeline, finalizing any recording in progress.
func (c *Controller) StopSession() *Op {
	return c.submit(func() error {
		c.session.StopRunning()
		return nil
	})
}

// StartRecording begins a new recording into a temp file under the documents
// directory. While one recording is requested, further calls return a
// Recording already failed with ErrAlreadyRecording.
func (c *Controller) StartRecording() *Recording {
	c.mu.Lock()
	if c.recording {
		c.mu.Unlock()
		return failedRecording(ErrAlreadyRecording)
	}
	rec := newRecording()
	c.recording = true
	c.latest = rec
	c.mu.Unlock()

	if !c.queue.submit(func() { c.startRecording(rec) }) {
		c.fail(rec, "", ErrClosed)
	}
	return rec
}

func (c *Controller) startRecording(rec *Recording) {
	if !c.output.IsReady() {
		c.fail(rec, "", capture.ErrOutputNotReady)
		return
	}
	path, err := c.tempPath()
	if err != nil {
		c.fail(rec, "", err)
		return
	}
	if err := c.output.StartRecording(path, &recordingDelegate{c: c, rec: rec}); err != nil {
		c.fail(rec, path, err)
		return
	}
}

func (c *Controller) fail(rec *Recording, path string, err error) {
	c.logger.Error("recording did not start", "error", err)
	c.settle(rec)
	rec.resolve(Result{Path: path, Stage: StageStart, Err: err})
}

// settle clears the recording flag if rec is still the latest recording.
func (c *Controller) settle(rec *Recording) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.latest == rec {
		c.recording = false
	}
}

// StopRecording asks the output to finalize. The Op completes once the file
// is closed; saving to the library continues in the background and resolves
// the Recording.
func (c *Controller) StopRecording() *Op {
	c.mu.Lock()
	c.recording = false
	c.mu.Unlock()

	return c.submit(func() error {
		<-c.output.StopRecording()
		return nil
	})
}

// tempPath names a new file recording-<unix seconds>.<micros>.mov that does
// not exist yet.
func (c *Controller) tempPath() (string, error) {
	if err := os.MkdirAll(c.opts.DocumentsDir, 0o755); err != nil {
		return "", fmt.Errorf("creating documents directory: %w", err)
	}
	now := c.opts.Now()
	sec, micros := now.Unix(), now.Nanosecond()/1000
	for {
		name := fmt.Sprintf("recording-%d.%06d.mov", sec, micros)
		path := filepath.Join(c.opts.DocumentsDir, name)
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			return path, nil
		}
		micros++
		if micros == 1_000_000 {
			sec, micros = sec+1, 0
		}
	}
}

type recordingDelegate struct {
	c   *Controller
	rec *Recording
}

func (d *recordingDelegate) DidStartRecording(path string) {
	d.c.logger.Info("recording started", "path", path)
	d.rec.markStarted(nil)
}

func (d *recordingDelegate) DidFinishRecording(path string, err error) {
	d.c.settle(d.rec)
	d.c.finishing.Add(1)
	go d.c.finish(d.rec, path, err)
}

// finish saves a finished recording into the library. The temp file is only
// removed once the asset exists.
func (c *Controller) finish(rec *Recording, path string, recErr error) {
	defer c.finishing.Done()
	ctx := context.Background()
	res := Result{Path: path}

	switch {
	case recErr != nil:
		c.logger.Error("error recording video", "path", path, "error", recErr)
		res.Stage, res.Err = StageRecord, recErr
	default:
		status := c.library.RequestAuthorization(ctx)
		if status != library.Authorized {
			c.logger.Warn("permission denied to save video to library", "status", status, "path", path)
			res.Stage, res.Err = StageAuthorize, fmt.Errorf("%w: %s", library.ErrNotAuthorized, status)
			break
		}
		asset, err := c.library.CreateVideoAsset(ctx, path)
		if err != nil {
			c.logger.Error("error saving video to library", "path", path, "error", err)
			res.Stage, res.Err = StageSave, err
			break
		}
		c.logger.Info("video saved to library", "asset", asset.ID)
		if err := os.Remove(path); err != nil {
			c.logger.Warn("failed to remove temp recording", "path", path, "error", err)
		}
		res.Stage, res.Asset = StageSaved, &asset
	}
	rec.resolve(res)
}

// Close stops the session, finalizing any recording, and waits for finished
// recordings to reach the library.
func (c *Controller) Close() error {
	c.closeOnce.Do(func() {
		c.StopSession().Wait(context.Background())
		c.queue.close()
		c.finishing.Wait()
		c.logger.Debug("camera controller closed")
	})
	return nil
}

// IsRecording reports whether a recording has been requested and not yet
// stopped or ended.
func (c *Controller) IsRecording() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.recording
}

func (c *Controller) SelectedAudioInput() (capture.AudioInput, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.selected == nil {
		return capture.AudioInput{}, false
	}
	return *c.selected, true
}

// AvailableAudioInputs returns the inputs found by the last listing.
func (c *Controller) AvailableAudioInputs() []capture.AudioInput {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]capture.AudioInput(nil), c.available...)
}

func (c *Controller) Configured() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.configured
}

// Camera returns the video device in use.
func (c *Controller) Camera() (capture.Device, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.camera == nil {
		return capture.Device{}, false
	}
	return *c.camera, true
}

// SessionRunning reports whether the capture pipeline is running.
func (c *Controller) SessionRunning() bool {
	return c.session.IsRunning()
}
