package app

import (
	"context"
	"log/slog"

	"go.klb.dev/reclip/internal/detect"
	"go.klb.dev/reclip/internal/sampler"
	"go.klb.dev/reclip/internal/task"
)

// Monitor feeds clipboard samples to the detector and posts a Trigger for
// each recognised repeat. It owns the detector for its lifetime.
type Monitor struct {
	sampler  *sampler.Sampler
	detector *detect.Detector
	post     task.Poster
}

// NewMonitor wires a sampler to a detector.
func NewMonitor(s *sampler.Sampler, d *detect.Detector, post task.Poster) *Monitor {
	return &Monitor{sampler: s, detector: d, post: post}
}

// Run samples until ctx is done, then stops the sampler.
func (m *Monitor) Run(ctx context.Context) {
	samples := m.sampler.Start()
	if samples == nil {
		slog.Warn("clipboard monitor already running")
		return
	}
	defer m.sampler.Stop()

	slog.Info("clipboard monitor started")
	for {
		select {
		case <-ctx.Done():
			slog.Info("clipboard monitor stopped")
			return
		case s, ok := <-samples:
			if !ok {
				return
			}
			m.Feed(s)
		}
	}
}

// Feed runs one sample through the detector and reports whether it
// triggered. A panic inside detection is logged and the baseline dropped.
func (m *Monitor) Feed(s sampler.Sample) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("clipboard detection panicked", "panic", r)
			m.detector.Reset()
			ok = false
		}
	}()
	trig, ok := m.detector.Observe(s)
	if ok {
		m.post.Post(task.NewTrigger(trig.Content))
	}
	return ok
}
