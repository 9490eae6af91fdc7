//go:build darwin

package clip

// #cgo CFLAGS: -x objective-c
// #cgo LDFLAGS: -framework Cocoa
// #import <Cocoa/Cocoa.h>
//
// NSInteger reclip_changeCount() {
//     return [[NSPasteboard generalPasteboard] changeCount];
// }
import "C"

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.design/x/clipboard"
)

const darwinPollInterval = 50 * time.Millisecond

type darwinBackend struct {
	lastChange C.NSInteger
	seq        atomic.Uint64
	watchCh    chan struct{}
	done       chan struct{}
	closeOnce  sync.Once
}

// New returns the macOS clipboard backend.
// NSPasteboard has no change notification, but changeCount moves on every
// copy, identical content included, so polling it is enough to see repeats.
func New() Backend {
	if err := clipboard.Init(); err != nil {
		slog.Warn("clipboard init failed", "err", err)
	}
	b := &darwinBackend{
		lastChange: C.reclip_changeCount(),
		watchCh:    make(chan struct{}, 1),
		done:       make(chan struct{}),
	}
	b.seq.Store(uint64(b.lastChange))
	go b.poll()
	return b
}

func (b *darwinBackend) Name() string { return "macOS NSPasteboard" }

func (b *darwinBackend) poll() {
	t := time.NewTicker(darwinPollInterval)
	defer t.Stop()
	for {
		select {
		case <-b.done:
			return
		case <-t.C:
			cc := C.reclip_changeCount()
			if cc != b.lastChange {
				b.lastChange = cc
				b.seq.Store(uint64(cc))
				notify(b.watchCh)
			}
		}
	}
}

func (b *darwinBackend) Read() (Snapshot, error) { return readFormats(), nil }

func (b *darwinBackend) WriteText(text string) error {
	writeText(text)
	return nil
}

func (b *darwinBackend) Watch() <-chan struct{} { return b.watchCh }
func (b *darwinBackend) Sequence() uint64       { return b.seq.Load() }
func (b *darwinBackend) Close()                 { b.closeOnce.Do(func() { close(b.done) }) }
