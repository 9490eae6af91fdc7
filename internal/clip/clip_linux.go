//go:build linux

package clip

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"
	"time"

	"golang.design/x/clipboard"
)

const linuxPollInterval = 100 * time.Millisecond

type linuxBackend struct {
	watchCh   chan struct{}
	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
	seq       atomic.Uint64
	source    atomic.Value // string
	lastText  []byte
	lastImg   []byte
}

// New returns the Linux clipboard backend, or a headless no-op backend if
// the display environment is unavailable (e.g. a headless server without X11
// or Wayland).
//
// Changes come from a per-copy event source when one is installed:
// wl-paste --watch on Wayland, clipnotify on X11. Both fire on every
// selection ownership change, so an identical re-copy moves Sequence.
// Without either, the backend polls and compares content, and an identical
// re-copy is invisible.
func New() Backend {
	if err := clipboard.Init(); err != nil {
		slog.Warn("clipboard unavailable, running headless", "err", err)
		return newHeadless()
	}
	ctx, cancel := context.WithCancel(context.Background())
	b := &linuxBackend{
		watchCh: make(chan struct{}, 1),
		ctx:     ctx,
		cancel:  cancel,
	}
	w := pickWatcher()
	b.source.Store("poll")
	if w != nil {
		b.source.Store(w.name)
	}
	go b.run(w)
	return b
}

// watcher is a per-copy event source. watch delivers changes until the
// backend is closed and returns an error when the source fails.
type watcher struct {
	name  string
	watch func(b *linuxBackend) error
}

func pickWatcher() *watcher {
	if os.Getenv("WAYLAND_DISPLAY") != "" {
		if _, err := exec.LookPath("wl-paste"); err == nil {
			return &watcher{name: "wl-paste", watch: (*linuxBackend).watchWayland}
		}
	}
	if os.Getenv("DISPLAY") != "" {
		if _, err := exec.LookPath("clipnotify"); err == nil {
			return &watcher{name: "clipnotify", watch: (*linuxBackend).watchClipnotify}
		}
	}
	return nil
}

func (b *linuxBackend) Name() string {
	return "Linux clipboard (" + b.source.Load().(string) + ")"
}

func (b *linuxBackend) run(w *watcher) {
	if w != nil {
		err := w.watch(b)
		if b.ctx.Err() != nil {
			return
		}
		slog.Warn("clipboard event source failed, polling instead", "source", w.name, "err", err)
		b.source.Store("poll")
	} else {
		slog.Info("no clipboard event source found, polling; identical re-copies are not seen",
			"want", "wl-paste (Wayland) or clipnotify (X11)")
	}
	b.poll()
}

// watchWayland runs wl-paste, which runs echo on every clipboard offer and
// so prints one line per copy.
func (b *linuxBackend) watchWayland() error {
	cmd := exec.CommandContext(b.ctx, "wl-paste", "--watch", "echo")
	out, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("wl-paste: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start wl-paste: %w", err)
	}
	b.watchLines(out)
	werr := cmd.Wait()
	if b.ctx.Err() != nil {
		return nil
	}
	if werr != nil {
		return fmt.Errorf("wl-paste: %w", werr)
	}
	return errors.New("wl-paste exited")
}

// watchLines bumps the sequence once per line read from r.
func (b *linuxBackend) watchLines(r io.Reader) {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		b.changed()
	}
}

// watchClipnotify runs clipnotify in a loop; each run exits after one
// selection change.
func (b *linuxBackend) watchClipnotify() error {
	for {
		if err := exec.CommandContext(b.ctx, "clipnotify").Run(); err != nil {
			if b.ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("clipnotify: %w", err)
		}
		b.changed()
	}
}

func (b *linuxBackend) poll() {
	t := time.NewTicker(linuxPollInterval)
	defer t.Stop()
	for {
		select {
		case <-b.ctx.Done():
			return
		case <-t.C:
			text := clipboard.Read(clipboard.FmtText)
			img := clipboard.Read(clipboard.FmtImage)
			if !bytes.Equal(text, b.lastText) || !bytes.Equal(img, b.lastImg) {
				b.lastText = text
				b.lastImg = img
				b.changed()
			}
		}
	}
}

func (b *linuxBackend) changed() {
	b.seq.Add(1)
	notify(b.watchCh)
}

func (b *linuxBackend) Read() (Snapshot, error) { return readFormats(), nil }

func (b *linuxBackend) WriteText(text string) error {
	writeText(text)
	return nil
}

func (b *linuxBackend) Watch() <-chan struct{} { return b.watchCh }
func (b *linuxBackend) Sequence() uint64       { return b.seq.Load() }
func (b *linuxBackend) Close()                 { b.closeOnce.Do(b.cancel) }
