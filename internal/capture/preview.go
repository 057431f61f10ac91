package capture

import (
	"errors"
	"fmt"
	"io"
	"sync"
)

// Frame is one RGB24 preview image, row-major, three bytes per pixel.
type Frame struct {
	Width  int
	Height int
	Pix    []byte
}

// RGB returns the color at x, y. Pixels outside the frame are black.
func (f Frame) RGB(x, y int) (r, g, b uint8) {
	if x < 0 || y < 0 || x >= f.Width || y >= f.Height {
		return 0, 0, 0
	}
	i := (y*f.Width + x) * 3
	if i+2 >= len(f.Pix) {
		return 0, 0, 0
	}
	return f.Pix[i], f.Pix[i+1], f.Pix[i+2]
}

// FrameSink receives preview frames as they are decoded.
type FrameSink interface {
	Store(Frame)
	// Clear drops the last frame, e.g. when the session stops.
	Clear()
}

// FrameBuffer is a FrameSink that keeps only the latest frame.
type FrameBuffer struct {
	mu    sync.Mutex
	frame Frame
	ok    bool
	seq   uint64
}

func (b *FrameBuffer) Store(f Frame) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.frame, b.ok = f, true
	b.seq++
}

func (b *FrameBuffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.frame, b.ok = Frame{}, false
	b.seq++
}

// Latest returns the current frame and a sequence number that changes on
// every Store and Clear.
func (b *FrameBuffer) Latest() (Frame, uint64, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.frame, b.seq, b.ok
}

// PreviewSpec describes the low-resolution stream shown while the session runs.
type PreviewSpec struct {
	// VideoSize and Framerate open the camera; they match the recording
	// settings so the device is not renegotiated between preview and record.
	VideoSize string
	Framerate int

	Width  int
	Height int
	Rate   int // frames per second delivered to Sink
	Sink   FrameSink
}

func (p PreviewSpec) valid() error {
	if p.Width <= 0 || p.Height <= 0 {
		return fmt.Errorf("invalid preview size %dx%d", p.Width, p.Height)
	}
	if p.Sink == nil {
		return errors.New("preview has no sink")
	}
	return nil
}

func (p PreviewSpec) frameSize() int {
	return p.Width * p.Height * 3
}

// Previewer streams frames from a camera until the returned job is stopped.
type Previewer interface {
	Preview(video Device, spec PreviewSpec) (Job, error)
}

// readFrames decodes fixed-size RGB24 frames from r into sink until r ends.
// Whatever follows a short read is discarded so the writer never blocks.
func readFrames(r io.Reader, width, height int, sink FrameSink) error {
	size := width * height * 3
	for {
		pix := make([]byte, size)
		if _, err := io.ReadFull(r, pix); err != nil {
			_, _ = io.Copy(io.Discard, r)
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		sink.Store(Frame{Width: width, Height: height, Pix: pix})
	}
}
