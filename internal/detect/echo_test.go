package detect

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestSuppressorAutoResets(t *testing.T) {
	s := NewSuppressor(0, nil)
	require.False(t, s.ShouldSuppress())

	s.Arm()
	require.True(t, s.Armed())
	require.True(t, s.ShouldSuppress())
	require.False(t, s.ShouldSuppress(), "one arm suppresses one change")
}

func TestSuppressorDisarm(t *testing.T) {
	s := NewSuppressor(0, nil)
	s.Arm()
	s.Disarm()
	require.False(t, s.Armed())
	require.False(t, s.ShouldSuppress())
}

func TestSuppressorExpires(t *testing.T) {
	clk := &fakeClock{now: t0}
	s := NewSuppressor(time.Second, clk.Now)
	s.Arm()

	clk.Advance(999 * time.Millisecond)
	require.True(t, s.Armed())

	clk.Advance(time.Millisecond)
	require.False(t, s.Armed())
	require.False(t, s.ShouldSuppress(), "stale arm does not swallow a real copy")
}

func TestSuppressorConcurrentUse(t *testing.T) {
	s := NewSuppressor(0, nil)
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(2)
		go func() { defer wg.Done(); s.Arm() }()
		go func() { defer wg.Done(); s.ShouldSuppress() }()
	}
	wg.Wait()
}
