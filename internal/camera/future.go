package camera

import (
	"context"
	"sync"

	"github.com/0xlemi/bertcam/internal/library"
)

// Op is the completion of one queued controller operation.
type Op struct {
	once sync.Once
	done chan struct{}
	err  error
}

func newOp() *Op {
	return &Op{done: make(chan struct{})}
}

func (o *Op) resolve(err error) {
	o.once.Do(func() {
		o.err = err
		close(o.done)
	})
}

// Done is closed when the operation has finished.
func (o *Op) Done() <-chan struct{} { return o.done }

// Err returns the operation's error. Only meaningful after Done is closed.
func (o *Op) Err() error {
	select {
	case <-o.done:
		return o.err
	default:
		return nil
	}
}

// Wait blocks until the operation finishes or ctx is done.
func (o *Op) Wait(ctx context.Context) error {
	select {
	case <-o.done:
		return o.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stage is how far a recording got.
type Stage int

const (
	// StageStart: the recording never began writing.
	StageStart Stage = iota
	// StageRecord: the file was not finalized cleanly.
	StageRecord
	// StageAuthorize: the library refused access; the file was kept.
	StageAuthorize
	// StageSave: the library could not store the file; it was kept.
	StageSave
	// StageSaved: the file is in the library and the temp file is gone.
	StageSaved
)

func (s Stage) String() string {
	switch s {
	case StageStart:
		return "start"
	case StageRecord:
		return "record"
	case StageAuthorize:
		return "authorize"
	case StageSave:
		return "save"
	case StageSaved:
		return "saved"
	default:
		return "unknown"
	}
}

// Result is the outcome of one recording.
type Result struct {
	Path  string         // temp file, empty if none was created
	Asset *library.Asset // set when Stage is StageSaved
	Stage Stage
	Err   error
}

// Recording is one start/stop cycle. It is resolved exactly once, after the
// file has been finalized and handed to the library.
type Recording struct {
	startOnce sync.Once
	started   chan struct{}
	startErr  error

	once   sync.Once
	done   chan struct{}
	result Result
}

func newRecording() *Recording {
	return &Recording{started: make(chan struct{}), done: make(chan struct{})}
}

// failedRecording returns a Recording that is already resolved with err.
func failedRecording(err error) *Recording {
	r := newRecording()
	r.markStarted(err)
	r.resolve(Result{Stage: StageStart, Err: err})
	return r
}

func (r *Recording) markStarted(err error) {
	r.startOnce.Do(func() {
		r.startErr = err
		close(r.started)
	})
}

func (r *Recording) resolve(res Result) {
	r.once.Do(func() {
		r.markStarted(res.Err)
		r.result = res
		close(r.done)
	})
}

// Started is closed once the file is being written, or the start failed.
func (r *Recording) Started() <-chan struct{} { return r.started }

// StartErr is the reason the recording did not start, after Started is closed.
func (r *Recording) StartErr() error {
	select {
	case <-r.started:
		return r.startErr
	default:
		return nil
	}
}

// Done is closed when the Result is available.
func (r *Recording) Done() <-chan struct{} { return r.done }

// Result returns the outcome. Only meaningful after Done is closed.
func (r *Recording) Result() Result {
	select {
	case <-r.done:
		return r.result
	default:
		return Result{}
	}
}

// Wait blocks until the recording is resolved or ctx is done.
func (r *Recording) Wait(ctx context.Context) (Result, error) {
	select {
	case <-r.done:
		return r.result, nil
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}
