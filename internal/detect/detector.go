// Package detect recognises the double-copy gesture: the same text copied
// twice in quick succession.
package detect

import (
	"log/slog"
	"time"

	"go.klb.dev/reclip/internal/content"
	"go.klb.dev/reclip/internal/sampler"
)

const (
	// DefaultMinGap is the spacing below which two identical samples are
	// taken to be one copy reported twice.
	DefaultMinGap = 90 * time.Millisecond
	// DefaultThreshold is the widest spacing still counted as a repeat.
	DefaultThreshold = 500 * time.Millisecond
)

// ImageProbe fetches an image from the clipboard when a text trigger fires.
// It returns nil when there is none.
type ImageProbe func() *content.Image

// Config tunes a Detector. Zero durations select the defaults.
type Config struct {
	MinGap    time.Duration
	Threshold time.Duration
	// Suppressor, when set, is consulted once per sample.
	Suppressor *Suppressor
	// Probe, when set, is asked for an image on trigger.
	Probe ImageProbe
}

// Trigger is emitted when a repeat is recognised.
type Trigger struct {
	Content content.Content
	At      time.Time
}

// Detector holds the baseline sample. It is not safe for concurrent use;
// feed it from the goroutine that drains the sampler.
type Detector struct {
	cfg Config

	lastText string
	lastAt   time.Time
}

// New returns a Detector with an empty baseline.
func New(cfg Config) *Detector {
	if cfg.MinGap <= 0 {
		cfg.MinGap = DefaultMinGap
	}
	if cfg.Threshold <= 0 {
		cfg.Threshold = DefaultThreshold
	}
	return &Detector{cfg: cfg}
}

// Observe feeds one sample and reports whether it completes a repeat.
func (d *Detector) Observe(s sampler.Sample) (Trigger, bool) {
	if d.cfg.Suppressor != nil && d.cfg.Suppressor.ShouldSuppress() {
		slog.Debug("self-echo absorbed")
		d.rebaseline(s)
		return Trigger{}, false
	}

	if s.Err != nil || s.Text == "" {
		d.Reset()
		return Trigger{}, false
	}

	if d.lastText == "" || s.Text != d.lastText {
		d.rebaseline(s)
		return Trigger{}, false
	}

	elapsed := s.ObservedAt.Sub(d.lastAt)
	switch {
	case elapsed <= d.cfg.MinGap:
		slog.Debug("duplicate notification ignored", "elapsed", elapsed)
		return Trigger{}, false
	case elapsed >= d.cfg.Threshold:
		d.rebaseline(s)
		return Trigger{}, false
	}

	t := Trigger{Content: d.payload(s), At: s.ObservedAt}
	d.Reset()
	slog.Info("repeated copy detected",
		"elapsed", elapsed,
		"kind", t.Content.Kind,
	)
	return t, true
}

// Reset clears the baseline.
func (d *Detector) Reset() {
	d.lastText = ""
	d.lastAt = time.Time{}
}

func (d *Detector) rebaseline(s sampler.Sample) {
	if s.Err != nil || s.Text == "" {
		d.Reset()
		return
	}
	d.lastText = s.Text
	d.lastAt = s.ObservedAt
}

// payload picks what the trigger carries: an image in the sample, then one
// from the probe, then the text.
func (d *Detector) payload(s sampler.Sample) content.Content {
	if s.Image != nil {
		return content.FromImage(s.Image)
	}
	if d.cfg.Probe != nil {
		if img := d.cfg.Probe(); img != nil {
			return content.FromImage(img)
		}
	}
	return content.Text(s.Text)
}
