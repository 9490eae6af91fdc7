// Package app owns the view and everything that touches it. Background
// goroutines reach it only through the task queue, which the App drains on
// a fixed tick from the goroutine that created the view.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.klb.dev/reclip/internal/content"
	"go.klb.dev/reclip/internal/detect"
	"go.klb.dev/reclip/internal/history"
	"go.klb.dev/reclip/internal/processor"
	"go.klb.dev/reclip/internal/sound"
	"go.klb.dev/reclip/internal/task"
	"go.klb.dev/reclip/internal/template"
	"go.klb.dev/reclip/internal/worker"
)

const (
	DefaultTick       = 100 * time.Millisecond
	DefaultMaxPerTick = 4
)

// View is the presentation layer. All methods are called from the App's
// goroutine only.
type View interface {
	Visible() bool
	Show()
	Hide()
	SetTemplates(names []string, selected string)
	SetInput(c content.Content)
	SetOutput(text string)
	SetBusy(busy bool)
	ShowError(msg string)
	SetHistory(labels []string)
}

// Clipboard is where results are written.
type Clipboard interface {
	WriteText(text string) error
}

// Store persists history and the selected template. Optional.
type Store interface {
	Save(ctx context.Context, e history.Entry) error
	Prune(ctx context.Context, keep int) error
	SetSetting(ctx context.Context, key, value string) error
}

// Config tunes the consumption loop.
type Config struct {
	Tick       time.Duration
	MaxPerTick int
	Now        func() time.Time
}

// Deps are the collaborators an App drives.
type Deps struct {
	View       View
	Queue      *task.Queue
	Worker     *worker.Worker
	Templates  *template.Set
	History    *history.Ring
	Store      Store
	Clipboard  Clipboard
	Suppressor *detect.Suppressor
	Sound      sound.Player
}

// App is the consumer side of the task queue.
type App struct {
	Deps
	cfg Config

	mu        sync.RWMutex
	selected  string
	input     content.Content
	visible   bool
	lastError string
}

// New returns an App with template selected, or the first template when
// selected is unknown.
func New(d Deps, cfg Config, selected string) *App {
	if cfg.Tick <= 0 {
		cfg.Tick = DefaultTick
	}
	if cfg.MaxPerTick <= 0 {
		cfg.MaxPerTick = DefaultMaxPerTick
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if d.Sound == nil {
		d.Sound = sound.Nop{}
	}
	if d.History == nil {
		d.History = history.NewRing(0)
	}
	if _, err := d.Templates.Get(selected); err != nil {
		selected = d.Templates.Default()
	}
	a := &App{Deps: d, cfg: cfg, selected: selected}
	a.View.SetTemplates(d.Templates.Names(), selected)
	a.View.SetHistory(d.History.Display())
	a.visible = a.View.Visible()
	return a
}

// Run ticks until ctx is done.
func (a *App) Run(ctx context.Context) error {
	t := time.NewTicker(a.cfg.Tick)
	defer t.Stop()
	slog.Info("consumption loop started", "tick", a.cfg.Tick, "max_per_tick", a.cfg.MaxPerTick)
	for {
		select {
		case <-ctx.Done():
			slog.Info("consumption loop stopped")
			return ctx.Err()
		case <-t.C:
			a.Tick()
		}
	}
}

// Tick handles up to MaxPerTick queued events. It returns how many it
// handled.
func (a *App) Tick() int {
	evs := a.Queue.Drain(a.cfg.MaxPerTick)
	for _, ev := range evs {
		a.handle(ev)
	}
	return len(evs)
}

func (a *App) handle(ev task.Event) {
	slog.Debug("handling event", "kind", ev.Kind)
	switch ev.Kind {
	case task.Trigger:
		a.onTrigger(ev.Content)
	case task.ProcessingComplete:
		a.onComplete(ev)
	case task.ToggleVisibility:
		a.toggle()
	case task.SelectTemplate:
		a.selectTemplate(ev.Template)
	case task.RestoreHistory:
		a.restore(ev.ID)
	default:
		slog.Warn("unknown event", "kind", ev.Kind)
	}
}

func (a *App) onTrigger(c content.Content) {
	content.Log("clipboard trigger", c)
	if !a.View.Visible() {
		a.show()
	}
	a.setInput(c)
	a.Execute()
}

// Execute runs the selected template over the current input. It is the path
// both a trigger and a direct user request take.
func (a *App) Execute() {
	a.mu.RLock()
	in, name := a.input, a.selected
	a.mu.RUnlock()

	if in.IsEmpty() {
		a.fail("No input to process.")
		return
	}
	tmpl, err := a.Templates.Get(name)
	if err != nil {
		a.fail(fmt.Sprintf("Template %q not found.", name))
		return
	}

	if err := a.Worker.Execute(tmpl, in); err != nil {
		if errors.Is(err, worker.ErrBusy) {
			return
		}
		a.fail(err.Error())
		return
	}
	a.clearError()
	a.View.SetBusy(true)
	a.View.SetOutput("")
	a.Sound.PlayIn()
}

func (a *App) onComplete(ev task.Event) {
	a.View.SetBusy(false)
	a.Sound.PlayOut()

	if ev.Err != nil {
		a.fail(userMessage(ev.Err))
		return
	}

	a.View.SetOutput(ev.Result)
	a.Suppressor.Arm()
	if err := a.Clipboard.WriteText(ev.Result); err != nil {
		a.Suppressor.Disarm()
		slog.Error("clipboard write failed", "err", err)
		a.fail("Could not copy the result to the clipboard.")
	} else {
		content.Log("result copied", content.Text(ev.Result), "template", ev.Template)
	}

	entry := history.NewEntry(ev.Content, ev.Template, ev.Result, a.cfg.Now())
	a.History.Add(entry)
	if a.Store != nil {
		ctx := context.Background()
		if err := a.Store.Save(ctx, entry); err != nil {
			slog.Error("history not persisted", "err", err)
		} else if err := a.Store.Prune(ctx, history.DefaultCapacity); err != nil {
			slog.Warn("history prune failed", "err", err)
		}
	}
	a.View.SetHistory(a.History.Display())
}

func (a *App) toggle() {
	if a.View.Visible() {
		a.View.Hide()
		a.setVisible(false)
		return
	}
	a.show()
}

func (a *App) show() {
	a.View.Show()
	a.setVisible(true)
}

// selectTemplate changes the selection and remembers it across restarts.
func (a *App) selectTemplate(name string) {
	if _, err := a.Templates.Get(name); err != nil {
		a.fail(fmt.Sprintf("Template %q not found.", name))
		return
	}
	a.mu.Lock()
	a.selected = name
	a.mu.Unlock()
	a.View.SetTemplates(a.Templates.Names(), name)
	slog.Info("template selected", "template", name)

	if a.Store != nil {
		if err := a.Store.SetSetting(context.Background(), history.SettingLastTemplate, name); err != nil {
			slog.Warn("selected template not saved", "err", err)
		}
	}
}

func (a *App) restore(id string) {
	e, ok := a.History.Find(id)
	if !ok {
		e, ok = a.History.FindLabel(id)
	}
	if !ok {
		a.fail("History entry not found.")
		return
	}
	a.setInput(e.Source)
	if _, err := a.Templates.Get(e.Template); err == nil {
		a.selectTemplate(e.Template)
	}
	a.View.SetOutput(e.Result)
	slog.Info("history entry restored", "id", id, "template", e.Template)
}

func (a *App) setInput(c content.Content) {
	a.mu.Lock()
	a.input = c
	a.mu.Unlock()
	a.View.SetInput(c)
}

func (a *App) setVisible(v bool) {
	a.mu.Lock()
	a.visible = v
	a.mu.Unlock()
}

func (a *App) fail(msg string) {
	a.mu.Lock()
	a.lastError = msg
	a.mu.Unlock()
	a.View.ShowError(msg)
}

func (a *App) clearError() {
	a.mu.Lock()
	a.lastError = ""
	a.mu.Unlock()
}

func userMessage(err error) string {
	var mm *processor.MismatchedInputTypeError
	switch {
	case errors.As(err, &mm):
		return fmt.Sprintf("Error: Template requires %s, but received different content type.", mm.Want)
	case errors.Is(err, processor.ErrEmptyInput):
		return "No input to process."
	case errors.Is(err, context.DeadlineExceeded):
		return "The request timed out."
	case errors.Is(err, processor.ErrUnsupportedProvider):
		return err.Error()
	default:
		return "Failed to get a response from the model. See the log for details."
	}
}

// Status is a point-in-time view of the App for the control surface.
type Status struct {
	Busy      bool     `json:"busy"`
	Visible   bool     `json:"visible"`
	Template  string   `json:"template"`
	Templates []string `json:"templates"`
	InputKind string   `json:"input_kind"`
	History   int      `json:"history"`
	Pending   int      `json:"pending"`
	LastError string   `json:"last_error,omitempty"`
}

// Status snapshots the App. It is safe to call from any goroutine.
func (a *App) Status() Status {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return Status{
		Busy:      a.Worker.Busy(),
		Visible:   a.visible,
		Template:  a.selected,
		Templates: a.Templates.Names(),
		InputKind: string(a.input.Kind),
		History:   a.History.Len(),
		Pending:   a.Queue.Len(),
		LastError: a.lastError,
	}
}

// Post queues e for the next tick. It is safe to call from any goroutine.
func (a *App) Post(e task.Event) { a.Queue.Post(e) }

// HistoryEntries returns the in-memory history, newest first.
func (a *App) HistoryEntries() []history.Entry { return a.History.Entries() }
