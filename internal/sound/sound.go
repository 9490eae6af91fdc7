// Package sound plays the short chimes that bracket a model request.
package sound

import (
	"encoding/binary"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/gen2brain/malgo"
)

const (
	sampleRate = 44100
	channels   = 1
)

// Player plays the request chimes. Implementations must not block the caller.
type Player interface {
	PlayIn()
	PlayOut()
	Close() error
}

// Nop is a silent Player.
type Nop struct{}

func (Nop) PlayIn()      {}
func (Nop) PlayOut()     {}
func (Nop) Close() error { return nil }

// Chime describes one tone sequence.
type Chime struct {
	Freqs []float64
	Note  time.Duration
}

var (
	// In rises; it plays when a request starts.
	In = Chime{Freqs: []float64{660, 880}, Note: 70 * time.Millisecond}
	// Out falls; it plays when a request completes.
	Out = Chime{Freqs: []float64{880, 660}, Note: 70 * time.Millisecond}
)

// PCM renders c as signed 16-bit little-endian mono samples with a short
// linear fade on each note to avoid clicks.
func (c Chime) PCM(rate int) []byte {
	perNote := int(float64(rate) * c.Note.Seconds())
	fade := perNote / 10
	buf := make([]byte, 0, perNote*len(c.Freqs)*2)
	for _, f := range c.Freqs {
		for i := range perNote {
			amp := 0.3
			switch {
			case i < fade:
				amp *= float64(i) / float64(fade)
			case i >= perNote-fade:
				amp *= float64(perNote-i) / float64(fade)
			}
			v := int16(amp * math.MaxInt16 * math.Sin(2*math.Pi*f*float64(i)/float64(rate)))
			buf = binary.LittleEndian.AppendUint16(buf, uint16(v))
		}
	}
	return buf
}

// Speaker plays chimes on the default output device.
type Speaker struct {
	mu  sync.Mutex
	ctx *malgo.AllocatedContext
}

// NewSpeaker initialises the audio backend.
func NewSpeaker() (*Speaker, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("initialize audio context: %w", err)
	}
	return &Speaker{ctx: ctx}, nil
}

// PlayIn implements Player.
func (s *Speaker) PlayIn() { go s.play("in", In) }

// PlayOut implements Player.
func (s *Speaker) PlayOut() { go s.play("out", Out) }

// Close releases the audio backend.
func (s *Speaker) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctx == nil {
		return nil
	}
	_ = s.ctx.Uninit()
	s.ctx.Free()
	s.ctx = nil
	return nil
}

// play opens a playback device for the length of one chime. Chimes are
// serialized so overlapping requests do not stack.
func (s *Speaker) play(name string, c Chime) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctx == nil {
		return
	}
	slog.Debug("playing sound", "sound", name)

	pcm := c.PCM(sampleRate)
	var (
		pos      int
		finished = make(chan struct{})
		once     sync.Once
	)
	cfg := malgo.DefaultDeviceConfig(malgo.Playback)
	cfg.Playback.Format = malgo.FormatS16
	cfg.Playback.Channels = channels
	cfg.SampleRate = sampleRate
	cfg.Alsa.NoMMap = 1

	onData := func(out, _ []byte, _ uint32) {
		n := copy(out, pcm[pos:])
		pos += n
		clear(out[n:])
		if pos >= len(pcm) {
			once.Do(func() { close(finished) })
		}
	}

	dev, err := malgo.InitDevice(s.ctx.Context, cfg, malgo.DeviceCallbacks{Data: onData})
	if err != nil {
		slog.Warn("could not play sound", "sound", name, "err", err)
		return
	}
	defer dev.Uninit()
	if err := dev.Start(); err != nil {
		slog.Warn("could not play sound", "sound", name, "err", err)
		return
	}

	select {
	case <-finished:
	case <-time.After(c.Note*time.Duration(len(c.Freqs)) + time.Second):
	}
	_ = dev.Stop()
}
