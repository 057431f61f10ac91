package capture

import (
	"errors"
	"fmt"
)

var (
	ErrNoVideoDevice     = errors.New("no video capture device found")
	ErrNoAudioDevice     = errors.New("no audio input device found")
	ErrFFmpegNotFound    = errors.New("ffmpeg not found")
	ErrSessionRunning    = errors.New("session inputs cannot change while running")
	ErrCannotAddInput    = errors.New("session cannot accept input")
	ErrInputNotAttached  = errors.New("input is not attached to the session")
	ErrOutputNotReady    = errors.New("output is not ready to record")
	ErrOutputBusy        = errors.New("output is already recording")
	ErrInvalidOptions    = errors.New("audio session options are not valid for category")
	ErrSessionInactive   = errors.New("audio session is not active for recording")
	ErrInputNotAvailable = errors.New("audio input is not available")
)

// deviceError wraps an error with actionable help text.
type deviceError struct {
	wrapped error
	help    string
}

func (e *deviceError) Error() string {
	return fmt.Sprintf("%v: %s", e.wrapped, e.help)
}

func (e *deviceError) Unwrap() error {
	return e.wrapped
}
