// Package clip provides a unified interface to the system clipboard across
// platforms. Build constraints select the appropriate implementation:
//
//	clip_darwin.go  : macOS via golang.design/x/clipboard + cgo changeCount
//	clip_windows.go : Windows via golang.design/x/clipboard + AddClipboardFormatListener
//	clip_linux.go   : Linux via golang.design/x/clipboard, polling only
//	clip_other.go   : headless / container stub
package clip

import (
	"fmt"

	"golang.design/x/clipboard"
)

// Snapshot is what the clipboard held at one read. Some platforms offer text
// and an image at the same time, so both are kept.
type Snapshot struct {
	Text string
	PNG  []byte
}

// Empty reports whether the snapshot holds neither text nor an image.
func (s Snapshot) Empty() bool { return s.Text == "" && len(s.PNG) == 0 }

// ReadError is a transient failure reading the clipboard.
type ReadError struct {
	Err error
}

func (e *ReadError) Error() string { return fmt.Sprintf("clipboard read: %v", e.Err) }
func (e *ReadError) Unwrap() error { return e.Err }

// Backend is the interface that all platform clipboard implementations satisfy.
type Backend interface {
	// Name returns a human-readable name for the backend.
	Name() string

	// Read returns the current clipboard contents.
	Read() (Snapshot, error)

	// WriteText replaces the clipboard contents with text.
	WriteText(text string) error

	// Watch returns a channel that receives a signal whenever the clipboard
	// changes. The channel is never closed and holds at most one pending
	// signal, so bursts of notifications coalesce.
	Watch() <-chan struct{}

	// Sequence returns a counter that moves on every clipboard change. On
	// macOS and Windows it moves even when identical content is copied again;
	// on Linux it only moves when the content differs.
	Sequence() uint64

	// Close releases any resources held by the backend.
	Close()
}

// readFormats reads text and image through golang.design/x/clipboard.
func readFormats() Snapshot {
	var s Snapshot
	if text := clipboard.Read(clipboard.FmtText); text != nil {
		s.Text = string(text)
	}
	if img := clipboard.Read(clipboard.FmtImage); len(img) > 0 {
		s.PNG = img
	}
	return s
}

// writeText writes through golang.design/x/clipboard. The returned channel
// from the library is only useful for ownership tracking, which we don't need.
func writeText(text string) {
	clipboard.Write(clipboard.FmtText, []byte(text))
}

// notify performs a non-blocking send on a one-slot signal channel.
func notify(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}
