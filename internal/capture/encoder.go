package capture

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os/exec"
	"sync"
	"time"
)

// gracefulStopTimeout is how long ffmpeg gets to finalize a file after being
// asked to quit before it is killed.
const gracefulStopTimeout = 10 * time.Second

// Encoder turns a RecordSpec into a running job writing the file.
type Encoder interface {
	Start(spec RecordSpec) (Job, error)
}

// Job is one running recording.
type Job interface {
	// Stop asks the job to finalize the file. It does not wait.
	Stop() error
	// Wait blocks until the file is closed and returns the job's error.
	Wait() error
}

// FFmpegEncoder records by running ffmpeg with the OS capture format. It
// also serves previews.
type FFmpegEncoder struct {
	ffmpegPath  string
	format      string
	stopTimeout time.Duration
	logger      *slog.Logger
}

func NewFFmpegEncoder(ffmpegPath string, logger *slog.Logger) *FFmpegEncoder {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	return &FFmpegEncoder{
		ffmpegPath:  ffmpegPath,
		format:      getPlatformConfig().format,
		stopTimeout: gracefulStopTimeout,
		logger:      logger,
	}
}

func (e *FFmpegEncoder) Start(spec RecordSpec) (Job, error) {
	j, err := e.start(buildRecordArgs(e.format, spec), spec.Preview)
	if err != nil {
		return nil, err
	}
	e.logger.Info("ffmpeg started", "pid", j.cmd.Process.Pid, "path", spec.Path, "video", spec.Video.Name)
	return j, nil
}

// Preview streams scaled frames from video into spec.Sink.
func (e *FFmpegEncoder) Preview(video Device, spec PreviewSpec) (Job, error) {
	if err := spec.valid(); err != nil {
		return nil, err
	}
	j, err := e.start(buildPreviewArgs(e.format, video, spec), &spec)
	if err != nil {
		return nil, err
	}
	e.logger.Debug("ffmpeg preview started", "pid", j.cmd.Process.Pid, "video", video.Name, "size", fmt.Sprintf("%dx%d", spec.Width, spec.Height))
	return j, nil
}

func (e *FFmpegEncoder) start(args []string, preview *PreviewSpec) (*ffmpegJob, error) {
	cmd := exec.Command(e.ffmpegPath, args...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("creating stdin pipe: %w", err)
	}
	var stdout io.ReadCloser
	if preview != nil {
		if stdout, err = cmd.StdoutPipe(); err != nil {
			return nil, fmt.Errorf("creating stdout pipe: %w", err)
		}
	}
	stderr := &tailBuffer{max: 4096}
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		if errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) {
			return nil, &deviceError{wrapped: ErrFFmpegNotFound, help: installHint}
		}
		return nil, fmt.Errorf("starting ffmpeg: %w", err)
	}

	j := &ffmpegJob{
		cmd:         cmd,
		stdin:       stdin,
		stderr:      stderr,
		stopTimeout: e.stopTimeout,
		logger:      e.logger,
		done:        make(chan struct{}),
	}
	if preview != nil {
		j.frames = make(chan struct{})
		go func() {
			defer close(j.frames)
			if err := readFrames(stdout, preview.Width, preview.Height, preview.Sink); err != nil {
				e.logger.Debug("preview stream ended", "error", err)
			}
		}()
	}
	go j.wait()
	return j, nil
}

type ffmpegJob struct {
	cmd         *exec.Cmd
	stdin       io.WriteCloser
	stderr      *tailBuffer
	stopTimeout time.Duration
	logger      *slog.Logger

	// frames is closed once stdout has been drained; nil without a preview.
	frames chan struct{}

	stopOnce sync.Once
	done     chan struct{}
	err      error
}

func (j *ffmpegJob) wait() {
	// Wait closes stdout, so every read has to finish first.
	if j.frames != nil {
		<-j.frames
	}
	err := j.cmd.Wait()
	if err != nil {
		err = fmt.Errorf("ffmpeg exited: %w: %s", err, bytes.TrimSpace(j.stderr.Bytes()))
	}
	j.err = err
	close(j.done)
}

// Stop sends "q" on stdin, which makes ffmpeg write the trailer and exit.
// If it has not exited after the stop timeout it is killed.
func (j *ffmpegJob) Stop() error {
	var err error
	j.stopOnce.Do(func() {
		if _, err = io.WriteString(j.stdin, "q"); err != nil {
			err = fmt.Errorf("asking ffmpeg to quit: %w", err)
		}
		_ = j.stdin.Close()

		go func() {
			select {
			case <-j.done:
			case <-time.After(j.stopTimeout):
				j.logger.Warn("ffmpeg did not exit in time, killing", "pid", j.cmd.Process.Pid)
				if kerr := j.cmd.Process.Kill(); kerr != nil {
					j.logger.Error("killing ffmpeg", "error", kerr)
				}
			}
		}()
	})
	return err
}

func (j *ffmpegJob) Wait() error {
	<-j.done
	return j.err
}

// tailBuffer keeps the last max bytes written to it.
type tailBuffer struct {
	mu  sync.Mutex
	buf []byte
	max int
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf = append(t.buf, p...)
	if over := len(t.buf) - t.max; over > 0 {
		t.buf = t.buf[over:]
	}
	return len(p), nil
}

func (t *tailBuffer) Bytes() []byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]byte(nil), t.buf...)
}
