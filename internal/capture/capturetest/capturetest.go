// Package capturetest provides in-memory devices, a previewer and an encoder that writes
// placeholder files, for testing code built on package capture.
package capturetest

import (
	"context"
	"os"
	"sync"

	"github.com/0xlemi/bertcam/internal/capture"
)

// Discoverer serves fixed device lists.
type Discoverer struct {
	mu         sync.Mutex
	video      []capture.Device
	audio      []capture.Device
	audioQueue [][]capture.Device
	audioCalls int
}

func NewDiscoverer(video, audio []capture.Device) *Discoverer {
	return &Discoverer{video: video, audio: audio}
}

func (d *Discoverer) VideoDevices(context.Context) ([]capture.Device, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]capture.Device(nil), d.video...), nil
}

func (d *Discoverer) AudioDevices(context.Context) ([]capture.Device, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.audioCalls++
	if len(d.audioQueue) > 0 {
		d.audio = d.audioQueue[0]
		d.audioQueue = d.audioQueue[1:]
	}
	return append([]capture.Device(nil), d.audio...), nil
}

// QueueAudio scripts the next AudioDevices calls: each call takes the next
// list, and the last one sticks.
func (d *Discoverer) QueueAudio(lists ...[]capture.Device) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.audioQueue = append(d.audioQueue, lists...)
}

// SetAudio replaces the audio device list, as if a device was plugged or unplugged.
func (d *Discoverer) SetAudio(audio []capture.Device) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.audio = audio
}

func (d *Discoverer) AudioCalls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.audioCalls
}

// Camera and Mic build devices for tests.
func Camera(id, name string) capture.Device {
	return capture.Device{ID: id, Name: name, Media: capture.MediaVideo}
}

func Mic(id, name string) capture.Device {
	return capture.Device{ID: id, Name: name, Media: capture.MediaAudio}
}

// Encoder creates the output file on Start and keeps the job open until Stop.
type Encoder struct {
	mu        sync.Mutex
	specs     []capture.RecordSpec
	active    int
	maxActive int

	// StartErr fails every Start when set.
	StartErr error
	// FinishErr is returned from Wait when set.
	FinishErr error
}

func (e *Encoder) Start(spec capture.RecordSpec) (capture.Job, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.StartErr != nil {
		return nil, e.StartErr
	}
	if err := os.WriteFile(spec.Path, []byte("fake movie"), 0o644); err != nil {
		return nil, err
	}
	e.specs = append(e.specs, spec)
	if spec.Preview != nil {
		spec.Preview.Sink.Store(Frame(spec.Preview.Width, spec.Preview.Height, 200))
	}
	e.active++
	if e.active > e.maxActive {
		e.maxActive = e.active
	}
	return &job{encoder: e, stop: make(chan struct{}), err: e.FinishErr}, nil
}

// Specs returns every spec passed to Start.
func (e *Encoder) Specs() []capture.RecordSpec {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]capture.RecordSpec(nil), e.specs...)
}

// MaxActive is the largest number of jobs that were writing at once.
func (e *Encoder) MaxActive() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.maxActive
}

func (e *Encoder) Active() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.active
}

type job struct {
	encoder *Encoder
	once    sync.Once
	stop    chan struct{}
	err     error
}

func (j *job) Stop() error {
	j.once.Do(func() {
		j.encoder.mu.Lock()
		j.encoder.active--
		j.encoder.mu.Unlock()
		close(j.stop)
	})
	return nil
}

func (j *job) Wait() error {
	<-j.stop
	return j.err
}

// Previewer stores one gray frame in the sink when a preview starts and keeps
// the job open until Stop.
type Previewer struct {
	mu     sync.Mutex
	starts int
	active int

	// StartErr fails every Preview when set.
	StartErr error
}

func (p *Previewer) Preview(video capture.Device, spec capture.PreviewSpec) (capture.Job, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.StartErr != nil {
		return nil, p.StartErr
	}
	p.starts++
	p.active++
	spec.Sink.Store(Frame(spec.Width, spec.Height, 100))
	return &previewJob{previewer: p, stop: make(chan struct{})}, nil
}

func (p *Previewer) Starts() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.starts
}

// Active is the number of previews holding the camera.
func (p *Previewer) Active() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active
}

type previewJob struct {
	previewer *Previewer
	once      sync.Once
	stop      chan struct{}
}

func (j *previewJob) Stop() error {
	j.once.Do(func() {
		j.previewer.mu.Lock()
		j.previewer.active--
		j.previewer.mu.Unlock()
		close(j.stop)
	})
	return nil
}

func (j *previewJob) Wait() error {
	<-j.stop
	return nil
}

// Frame returns a width x height frame filled with one gray level.
func Frame(width, height int, level byte) capture.Frame {
	pix := make([]byte, width*height*3)
	for i := range pix {
		pix[i] = level
	}
	return capture.Frame{Width: width, Height: height, Pix: pix}
}
