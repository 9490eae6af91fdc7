// Package worker runs one model request at a time off the view goroutine and
// reports the outcome through the task queue.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"go.klb.dev/reclip/internal/content"
	"go.klb.dev/reclip/internal/processor"
	"go.klb.dev/reclip/internal/task"
	"go.klb.dev/reclip/internal/template"
)

// DefaultTimeout bounds a single request.
const DefaultTimeout = 2 * time.Minute

// ErrBusy is returned by Execute while a previous run is still in flight.
var ErrBusy = errors.New("a request is already in progress")

// Worker executes requests one at a time.
type Worker struct {
	proc    processor.Processor
	post    task.Poster
	timeout time.Duration

	busy atomic.Bool
	wg   sync.WaitGroup
}

// New returns a Worker that posts completions to post. A negative timeout
// disables the deadline; zero selects DefaultTimeout.
func New(proc processor.Processor, post task.Poster, timeout time.Duration) *Worker {
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	return &Worker{proc: proc, post: post, timeout: timeout}
}

// Busy reports whether a run is in flight.
func (w *Worker) Busy() bool { return w.busy.Load() }

// Execute starts processing c with tmpl in the background. Exactly one
// ProcessingComplete event is posted for every call that returns nil.
func (w *Worker) Execute(tmpl *template.Template, c content.Content) error {
	if !w.busy.CompareAndSwap(false, true) {
		slog.Warn("request rejected, worker busy", "template", tmpl.Name)
		return ErrBusy
	}
	w.wg.Add(1)
	go w.run(tmpl, c)
	return nil
}

// Wait blocks until the in-flight run, if any, has posted its completion.
func (w *Worker) Wait() { w.wg.Wait() }

func (w *Worker) run(tmpl *template.Template, c content.Content) {
	defer w.wg.Done()

	var (
		out string
		err error
	)
	defer func() {
		if r := recover(); r != nil {
			slog.Error("request panicked", "template", tmpl.Name, "panic", r)
			out, err = "", fmt.Errorf("%w: panic: %v", processor.ErrProcessingFailure, r)
		}
		// The completion is queued before the flag clears, so no later run
		// can post ahead of it.
		w.post.Post(task.Completed(tmpl.Name, c, out, err))
		w.busy.Store(false)
	}()

	ctx := context.Background()
	if w.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.timeout)
		defer cancel()
	}
	out, err = w.proc.Process(ctx, tmpl, c)
}
