// Package hotkey registers the global key combination that toggles the view.
package hotkey

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	hook "github.com/robotn/gohook"
)

// gohook entry points, replaced in tests.
var (
	hookRegister = hook.Register
	hookStart    = hook.Start
	hookProcess  = hook.Process
	hookEnd      = hook.End
)

// DefaultCombo is the toggle combination when none is configured.
const DefaultCombo = "ctrl+shift+space"

var aliases = map[string]string{
	"control": "ctrl",
	"ctl":     "ctrl",
	"option":  "alt",
	"opt":     "alt",
	"super":   "cmd",
	"win":     "cmd",
	"meta":    "cmd",
	"command": "cmd",
	"return":  "enter",
	"esc":     "escape",
}

var modifiers = map[string]bool{"ctrl": true, "shift": true, "alt": true, "cmd": true}

// ParseCombo turns "ctrl+shift+space" (or "<ctrl>+<shift>+<space>") into the
// key names gohook expects. Exactly one non-modifier key is required.
func ParseCombo(s string) ([]string, error) {
	if strings.TrimSpace(s) == "" {
		return nil, fmt.Errorf("empty hotkey")
	}
	var (
		keys []string
		main int
		seen = map[string]bool{}
	)
	for _, part := range strings.Split(s, "+") {
		k := strings.ToLower(strings.TrimSpace(part))
		k = strings.TrimSuffix(strings.TrimPrefix(k, "<"), ">")
		if k == "" {
			return nil, fmt.Errorf("hotkey %q: empty key", s)
		}
		if a, ok := aliases[k]; ok {
			k = a
		}
		if seen[k] {
			return nil, fmt.Errorf("hotkey %q: %s repeated", s, k)
		}
		seen[k] = true
		if !modifiers[k] {
			main++
		}
		keys = append(keys, k)
	}
	if main != 1 {
		return nil, fmt.Errorf("hotkey %q: want exactly one non-modifier key", s)
	}
	return keys, nil
}

// Listener calls a function each time the combination is pressed.
type Listener struct {
	combo string
	keys  []string
	fire  func()

	mu         sync.Mutex
	running    bool
	registered bool
	done       chan struct{}
}

// New parses combo and returns a stopped Listener.
func New(combo string, fire func()) (*Listener, error) {
	keys, err := ParseCombo(combo)
	if err != nil {
		return nil, err
	}
	return &Listener{combo: combo, keys: keys, fire: fire}, nil
}

// Keys returns the parsed key names.
func (l *Listener) Keys() []string { return append([]string(nil), l.keys...) }

// Start installs the global hook. Calling Start on a running listener does
// nothing. gohook keeps registrations across End, so the combination is
// registered on the first Start only.
func (l *Listener) Start() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.running {
		return
	}
	l.running = true
	l.done = make(chan struct{})

	if !l.registered {
		hookRegister(hook.KeyDown, l.keys, func(hook.Event) {
			slog.Info("global hotkey activated", "hotkey", l.combo)
			l.fire()
		})
		l.registered = true
	}
	evs := hookStart()
	go func(done chan struct{}) {
		defer close(done)
		<-hookProcess(evs)
	}(l.done)
	slog.Info("hotkey listener started", "hotkey", l.combo, "keys", l.Keys())
}

// Stop removes the hook and waits for its event loop to exit. It is safe to
// call more than once.
func (l *Listener) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.running {
		return
	}
	l.running = false
	hookEnd()
	<-l.done
	slog.Info("hotkey listener stopped")
}
