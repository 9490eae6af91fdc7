package detect

import (
	"sync/atomic"
	"time"
)

// DefaultEchoTTL bounds how long an armed Suppressor waits for the echo of
// its own write.
const DefaultEchoTTL = 2 * time.Second

// Suppressor marks the next clipboard change as one reclip caused itself.
// Arm is called on the goroutine that writes the clipboard and ShouldSuppress
// on the sampler's, so the state lives in a single atomic.
type Suppressor struct {
	ttl time.Duration
	now func() time.Time

	// armedAt holds UnixNano of the last Arm, or 0 when disarmed.
	armedAt atomic.Int64
}

// NewSuppressor returns a disarmed Suppressor. A non-positive ttl selects
// DefaultEchoTTL. now may be nil.
func NewSuppressor(ttl time.Duration, now func() time.Time) *Suppressor {
	if ttl <= 0 {
		ttl = DefaultEchoTTL
	}
	if now == nil {
		now = time.Now
	}
	return &Suppressor{ttl: ttl, now: now}
}

// Arm flags the next observed change as a self-echo.
func (s *Suppressor) Arm() {
	s.armedAt.Store(s.now().UnixNano())
}

// Disarm clears the flag, for a write that failed.
func (s *Suppressor) Disarm() {
	s.armedAt.Store(0)
}

// Armed reports whether the flag is set and has not expired.
func (s *Suppressor) Armed() bool {
	at := s.armedAt.Load()
	return at != 0 && s.now().Sub(time.Unix(0, at)) < s.ttl
}

// ShouldSuppress reports whether the current change is a self-echo and
// clears the flag either way.
func (s *Suppressor) ShouldSuppress() bool {
	at := s.armedAt.Swap(0)
	if at == 0 {
		return false
	}
	return s.now().Sub(time.Unix(0, at)) < s.ttl
}
