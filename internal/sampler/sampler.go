// Package sampler turns clipboard change signals into a stream of
// timestamped samples for the repeat-gesture detector.
package sampler

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.klb.dev/reclip/internal/clip"
	"go.klb.dev/reclip/internal/content"
)

// Strategy selects how clipboard changes are noticed.
type Strategy string

const (
	// StrategyPoll reads the backend's change sequence on a fixed interval.
	StrategyPoll Strategy = "poll"
	// StrategyEvent samples on each backend change notification.
	StrategyEvent Strategy = "event"
)

const (
	DefaultPollInterval = 100 * time.Millisecond
	DefaultReadTimeout  = 500 * time.Millisecond
	sampleBuffer        = 16
)

// ErrReadTimeout is recorded on a sample whose clipboard read did not return
// within the read timeout.
var ErrReadTimeout = errors.New("clipboard read timed out")

// ParseStrategy converts a config string to a Strategy.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case StrategyPoll, StrategyEvent:
		return Strategy(s), nil
	case "":
		return StrategyEvent, nil
	default:
		return "", fmt.Errorf("unknown sampler strategy %q (want poll|event)", s)
	}
}

// Sample is one observation of the clipboard. Text and Image may both be set
// when the platform offers both representations at once. Err is set when the
// read failed; such a sample is empty.
type Sample struct {
	Text       string
	Image      *content.Image
	ObservedAt time.Time
	Err        error
}

// Empty reports whether the sample carries neither text nor an image.
func (s Sample) Empty() bool { return s.Text == "" && s.Image == nil }

// Config tunes a Sampler. Zero values select defaults.
type Config struct {
	Strategy     Strategy
	PollInterval time.Duration
	ReadTimeout  time.Duration
	Now          func() time.Time
}

// Sampler reads the clipboard off the caller's goroutine and publishes
// samples on a channel. It can be stopped and started again.
type Sampler struct {
	backend clip.Backend
	cfg     Config

	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

// New returns a stopped Sampler over backend.
func New(backend clip.Backend, cfg Config) *Sampler {
	if cfg.Strategy == "" {
		cfg.Strategy = StrategyEvent
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Sampler{backend: backend, cfg: cfg}
}

// Start launches the sampling loop and returns the channel it publishes on.
// The channel is closed when the loop exits after Stop. Calling Start on a
// running sampler returns nil.
func (s *Sampler) Start() <-chan Sample {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop != nil {
		return nil
	}
	out := make(chan Sample, sampleBuffer)
	s.stop = make(chan struct{})
	s.done = make(chan struct{})

	slog.Info("clipboard sampler started",
		"backend", s.backend.Name(),
		"strategy", s.cfg.Strategy,
	)

	switch s.cfg.Strategy {
	case StrategyPoll:
		go s.pollLoop(s.stop, s.done, out, s.backend.Sequence())
	default:
		go s.eventLoop(s.stop, s.done, out)
	}
	return out
}

// Stop ends the sampling loop and waits for it to exit. It is safe to call
// more than once and from any goroutine.
func (s *Sampler) Stop() {
	s.mu.Lock()
	stop, done := s.stop, s.done
	s.stop, s.done = nil, nil
	s.mu.Unlock()

	if stop == nil {
		return
	}
	close(stop)
	<-done
	slog.Info("clipboard sampler stopped")
}

// running reports whether the loop is active.
func (s *Sampler) running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stop != nil
}

func (s *Sampler) eventLoop(stop <-chan struct{}, done chan<- struct{}, out chan<- Sample) {
	defer close(done)
	defer close(out)
	watch := s.backend.Watch()
	for {
		select {
		case <-stop:
			return
		case <-watch:
			if !s.publish(stop, out, s.sample()) {
				return
			}
		}
	}
}

func (s *Sampler) pollLoop(stop <-chan struct{}, done chan<- struct{}, out chan<- Sample, last uint64) {
	defer close(done)
	defer close(out)
	t := time.NewTicker(s.cfg.PollInterval)
	defer t.Stop()
	for {
		select {
		case <-stop:
			return
		case <-t.C:
			seq := s.backend.Sequence()
			if seq == last {
				continue
			}
			last = seq
			if !s.publish(stop, out, s.sample()) {
				return
			}
		}
	}
}

// publish hands a sample to the consumer, giving up if stopped meanwhile.
func (s *Sampler) publish(stop <-chan struct{}, out chan<- Sample, smp Sample) bool {
	select {
	case out <- smp:
		return true
	case <-stop:
		return false
	}
}

// sample reads the clipboard and stamps the result. Failures are logged and
// produce an empty sample.
func (s *Sampler) sample() Sample {
	snap, err := s.read()
	now := s.cfg.Now()
	if err != nil {
		slog.Warn("clipboard read failed, treating as empty", "err", err)
		return Sample{ObservedAt: now, Err: err}
	}
	smp := Sample{Text: snap.Text, ObservedAt: now}
	if snap.Empty() {
		slog.Debug("clipboard empty")
		return smp
	}
	if len(snap.PNG) > 0 {
		img, err := content.NewImage(snap.PNG)
		if err != nil {
			slog.Debug("clipboard image unreadable, ignoring", "err", err)
		} else {
			smp.Image = img
		}
	}
	return smp
}

// ReadImage reads the clipboard once, with the same timeout and panic
// recovery as sampling, and returns the image it holds or nil.
func (s *Sampler) ReadImage() *content.Image {
	snap, err := s.read()
	if err != nil || len(snap.PNG) == 0 {
		if err != nil {
			slog.Debug("clipboard image read failed", "err", err)
		}
		return nil
	}
	img, err := content.NewImage(snap.PNG)
	if err != nil {
		return nil
	}
	return img
}

type readResult struct {
	snap clip.Snapshot
	err  error
}

// read calls the backend with a deadline and panic recovery so a wedged or
// crashing platform call never stalls the loop.
func (s *Sampler) read() (clip.Snapshot, error) {
	ch := make(chan readResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- readResult{err: &clip.ReadError{Err: fmt.Errorf("panic: %v", r)}}
			}
		}()
		snap, err := s.backend.Read()
		if err != nil {
			err = &clip.ReadError{Err: err}
		}
		ch <- readResult{snap: snap, err: err}
	}()

	t := time.NewTimer(s.cfg.ReadTimeout)
	defer t.Stop()
	select {
	case r := <-ch:
		return r.snap, r.err
	case <-t.C:
		return clip.Snapshot{}, ErrReadTimeout
	}
}
