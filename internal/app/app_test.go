package app

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"go.klb.dev/reclip/internal/clip"
	"go.klb.dev/reclip/internal/content"
	"go.klb.dev/reclip/internal/detect"
	"go.klb.dev/reclip/internal/history"
	"go.klb.dev/reclip/internal/processor"
	"go.klb.dev/reclip/internal/sampler"
	"go.klb.dev/reclip/internal/task"
	"go.klb.dev/reclip/internal/template"
	"go.klb.dev/reclip/internal/worker"
)

type fakeView struct {
	visible   bool
	shows     int
	input     content.Content
	output    string
	busy      bool
	errors    []string
	history   []string
	selected  string
	templates []string
}

func (v *fakeView) Visible() bool { return v.visible }
func (v *fakeView) Show()         { v.visible = true; v.shows++ }
func (v *fakeView) Hide()         { v.visible = false }
func (v *fakeView) SetTemplates(names []string, selected string) {
	v.templates, v.selected = names, selected
}
func (v *fakeView) SetInput(c content.Content) { v.input = c }
func (v *fakeView) SetOutput(text string)      { v.output = text }
func (v *fakeView) SetBusy(busy bool)          { v.busy = busy }
func (v *fakeView) ShowError(msg string)       { v.errors = append(v.errors, msg) }
func (v *fakeView) SetHistory(labels []string) { v.history = labels }

type fakeClipboard struct {
	mu     sync.Mutex
	writes []string
	err    error
}

func (c *fakeClipboard) WriteText(s string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.writes = append(c.writes, s)
	return nil
}

type fakeStore struct {
	saved    []history.Entry
	settings map[string]string
}

func (s *fakeStore) Save(_ context.Context, e history.Entry) error {
	s.saved = append(s.saved, e)
	return nil
}
func (s *fakeStore) Prune(context.Context, int) error { return nil }
func (s *fakeStore) SetSetting(_ context.Context, k, v string) error {
	if s.settings == nil {
		s.settings = map[string]string{}
	}
	s.settings[k] = v
	return nil
}

type stubProvider struct {
	out string
	err error
}

func (p *stubProvider) Name() string { return "gemini" }
func (p *stubProvider) Complete(context.Context, processor.Request) (string, error) {
	return p.out, p.err
}

type sounds struct{ in, out int }

func (s *sounds) PlayIn()      { s.in++ }
func (s *sounds) PlayOut()     { s.out++ }
func (s *sounds) Close() error { return nil }

type harness struct {
	app   *App
	view  *fakeView
	queue *task.Queue
	work  *worker.Worker
	clip  *fakeClipboard
	store *fakeStore
	sup   *detect.Suppressor
	sound *sounds
}

func loadTemplates(t *testing.T) *template.Set {
	t.Helper()
	dir := t.TempDir()
	write := func(name, body string) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}
	write("fix.toml", `
name = "Fix"
description = "fix grammar"
api_provider = "gemini"
model = "m"
input_type = "text"
prompt = "Fix: {clipboard_text}"
`)
	write("describe.toml", `
name = "Describe"
description = "describe image"
api_provider = "gemini"
model = "m"
input_type = "image"
prompt = "Describe."
`)
	s, err := template.Load(dir)
	require.NoError(t, err)
	return s
}

func newHarness(t *testing.T, p *stubProvider, selected string) *harness {
	t.Helper()
	h := &harness{
		view:  &fakeView{},
		queue: task.NewQueue(),
		clip:  &fakeClipboard{},
		store: &fakeStore{},
		sup:   detect.NewSuppressor(0, nil),
		sound: &sounds{},
	}
	h.work = worker.New(processor.NewRouter(p), h.queue, 0)
	h.app = New(Deps{
		View:       h.view,
		Queue:      h.queue,
		Worker:     h.work,
		Templates:  loadTemplates(t),
		History:    history.NewRing(0),
		Store:      h.store,
		Clipboard:  h.clip,
		Suppressor: h.sup,
		Sound:      h.sound,
	}, Config{Now: func() time.Time { return time.Date(2026, 5, 1, 12, 0, 0, 0, time.Local) }}, selected)
	return h
}

// settle runs ticks until the worker's completion has been handled.
func (h *harness) settle() {
	h.app.Tick()
	h.work.Wait()
	h.app.Tick()
}

func TestNewFallsBackToFirstTemplate(t *testing.T) {
	h := newHarness(t, &stubProvider{}, "missing")
	require.Equal(t, "Describe", h.app.Status().Template)
	require.Equal(t, []string{"Describe", "Fix"}, h.view.templates)
}

func TestTriggerShowsViewAndWritesResult(t *testing.T) {
	h := newHarness(t, &stubProvider{out: "Fixed text"}, "Fix")

	h.queue.Post(task.NewTrigger(content.Text("fixd text")))
	h.settle()

	require.True(t, h.view.visible)
	require.Equal(t, "fixd text", h.view.input.Text)
	require.Equal(t, "Fixed text", h.view.output)
	require.False(t, h.view.busy)
	require.Empty(t, h.view.errors)

	require.Equal(t, []string{"Fixed text"}, h.clip.writes)
	require.True(t, h.sup.Armed(), "the write is flagged as our own")

	require.Len(t, h.store.saved, 1)
	require.Equal(t, "Fix", h.store.saved[0].Template)
	require.Len(t, h.view.history, 1)
	require.Equal(t, "2026-05-01 12:00 | Fix | fixd text...", h.view.history[0])
	require.Equal(t, 1, h.sound.in)
	require.Equal(t, 1, h.sound.out)
}

func TestTriggerOnVisibleViewDoesNotReshow(t *testing.T) {
	h := newHarness(t, &stubProvider{out: "x"}, "Fix")
	h.view.visible = true
	h.queue.Post(task.NewTrigger(content.Text("a")))
	h.settle()
	require.Zero(t, h.view.shows)
}

func TestFailureWritesNothing(t *testing.T) {
	h := newHarness(t, &stubProvider{err: errors.New("503")}, "Fix")

	h.queue.Post(task.NewTrigger(content.Text("hello")))
	h.settle()

	require.Empty(t, h.clip.writes)
	require.False(t, h.sup.Armed())
	require.Empty(t, h.store.saved)
	require.Zero(t, h.app.History.Len())
	require.Len(t, h.view.errors, 1)
	require.False(t, h.view.busy, "input re-enabled after failure")
	require.Equal(t, h.view.errors[0], h.app.Status().LastError)
}

func TestMismatchProducesNoHistory(t *testing.T) {
	h := newHarness(t, &stubProvider{out: "never"}, "Describe")

	h.queue.Post(task.NewTrigger(content.Text("just text")))
	h.settle()

	require.Empty(t, h.clip.writes)
	require.Zero(t, h.app.History.Len())
	require.Len(t, h.view.errors, 1)
	require.Contains(t, h.view.errors[0], "Template requires image")
}

func TestEmptyInputStartsNothing(t *testing.T) {
	h := newHarness(t, &stubProvider{out: "x"}, "Fix")
	h.app.Execute()
	require.Equal(t, []string{"No input to process."}, h.view.errors)
	require.False(t, h.work.Busy())
	require.Zero(t, h.sound.in)
}

func TestBusyRejectionIsSilent(t *testing.T) {
	h := newHarness(t, &stubProvider{out: "x"}, "Fix")
	h.queue.Post(task.NewTrigger(content.Text("one")))
	h.queue.Post(task.NewTrigger(content.Text("two")))
	h.app.Tick()
	h.work.Wait()
	h.app.Tick()

	// Depending on timing the second trigger either ran after the first or
	// was rejected; a rejection never reaches the user.
	require.Empty(t, h.view.errors)
	require.LessOrEqual(t, len(h.clip.writes), 2)
	require.GreaterOrEqual(t, len(h.clip.writes), 1)
}

func TestToggle(t *testing.T) {
	h := newHarness(t, &stubProvider{}, "Fix")
	h.queue.Post(task.Toggle())
	h.app.Tick()
	require.True(t, h.view.visible)
	require.True(t, h.app.Status().Visible)

	h.queue.Post(task.Toggle())
	h.app.Tick()
	require.False(t, h.view.visible)
}

func TestSelectTemplatePersists(t *testing.T) {
	h := newHarness(t, &stubProvider{}, "Fix")
	h.queue.Post(task.Select("Describe"))
	h.queue.Post(task.Select("Nope"))
	h.app.Tick()

	require.Equal(t, "Describe", h.app.Status().Template)
	require.Equal(t, "Describe", h.store.settings[history.SettingLastTemplate])
	require.Len(t, h.view.errors, 1)
}

func TestRestoreHistory(t *testing.T) {
	h := newHarness(t, &stubProvider{out: "result one"}, "Fix")
	h.queue.Post(task.NewTrigger(content.Text("source one")))
	h.settle()
	id := h.app.History.Entries()[0].ID

	h.queue.Post(task.Select("Describe"))
	h.queue.Post(task.Restore(id))
	h.app.Tick()

	require.Equal(t, "source one", h.view.input.Text)
	require.Equal(t, "result one", h.view.output)
	require.Equal(t, "Fix", h.app.Status().Template)
}

func TestRestoreHistoryByLabel(t *testing.T) {
	h := newHarness(t, &stubProvider{out: "result two"}, "Fix")
	h.queue.Post(task.NewTrigger(content.Text("source two")))
	h.settle()
	label := h.view.history[0]

	h.view.output = ""
	h.queue.Post(task.Restore(label))
	h.queue.Post(task.Restore("missing"))
	h.app.Tick()

	require.Equal(t, "result two", h.view.output)
	require.Equal(t, []string{"History entry not found."}, h.view.errors)
}

func TestTickIsBounded(t *testing.T) {
	h := newHarness(t, &stubProvider{}, "Fix")
	for range 10 {
		h.queue.Post(task.Toggle())
	}
	require.Equal(t, DefaultMaxPerTick, h.app.Tick())
	require.Equal(t, 6, h.app.Status().Pending)
}

func TestClipboardWriteFailureDisarms(t *testing.T) {
	h := newHarness(t, &stubProvider{out: "r"}, "Fix")
	h.clip.err = errors.New("locked")
	h.queue.Post(task.NewTrigger(content.Text("s")))
	h.settle()

	require.False(t, h.sup.Armed())
	require.Len(t, h.view.errors, 1)
	require.Equal(t, 1, h.app.History.Len())
}

func TestMonitorDoubleCopyScenario(t *testing.T) {
	q := task.NewQueue()
	m := NewMonitor(nil, detect.New(detect.Config{}), q)
	base := time.Now()

	require.False(t, m.Feed(sampler.Sample{Text: "hello", ObservedAt: base}))
	require.True(t, m.Feed(sampler.Sample{Text: "hello", ObservedAt: base.Add(200 * time.Millisecond)}))
	require.False(t, m.Feed(sampler.Sample{Text: "hello", ObservedAt: base.Add(300 * time.Millisecond)}))

	evs := q.Drain(0)
	require.Len(t, evs, 1)
	require.Equal(t, task.Trigger, evs[0].Kind)
	require.Equal(t, "hello", evs[0].Content.Text)
}

func TestMonitorSurvivesPanickingImageRead(t *testing.T) {
	q := task.NewQueue()
	det := detect.New(detect.Config{Probe: func() *content.Image { panic("read crashed") }})
	m := NewMonitor(nil, det, q)
	base := time.Now()

	require.NotPanics(t, func() {
		require.False(t, m.Feed(sampler.Sample{Text: "x", ObservedAt: base}))
		require.False(t, m.Feed(sampler.Sample{Text: "x", ObservedAt: base.Add(200 * time.Millisecond)}))
	})
	require.Zero(t, q.Len())

	// Detection carries on from a clean baseline.
	require.False(t, m.Feed(sampler.Sample{Text: "y", ObservedAt: base.Add(time.Second)}))
}

// recopyBackend moves its sequence on every copy, identical content
// included, like a backend driven by selection ownership events.
type recopyBackend struct {
	mu      sync.Mutex
	text    string
	seq     uint64
	watched bool
	watchCh chan struct{}
}

func (b *recopyBackend) Name() string { return "recopy" }
func (b *recopyBackend) Read() (clip.Snapshot, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return clip.Snapshot{Text: b.text}, nil
}
func (b *recopyBackend) WriteText(string) error { return nil }
func (b *recopyBackend) Watch() <-chan struct{} {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.watched = true
	return b.watchCh
}
func (b *recopyBackend) Sequence() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.watched = true
	return b.seq
}
func (b *recopyBackend) Close() {}

// started reports whether a sampler has begun watching.
func (b *recopyBackend) started() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.watched
}

func (b *recopyBackend) copy(text string) {
	b.mu.Lock()
	b.text = text
	b.seq++
	b.mu.Unlock()
	select {
	case b.watchCh <- struct{}{}:
	default:
	}
}

func TestMonitorDetectsIdenticalRecopy(t *testing.T) {
	for _, strategy := range []sampler.Strategy{sampler.StrategyEvent, sampler.StrategyPoll} {
		t.Run(string(strategy), func(t *testing.T) {
			b := &recopyBackend{watchCh: make(chan struct{}, 1)}
			smp := sampler.New(b, sampler.Config{Strategy: strategy, PollInterval: 10 * time.Millisecond})
			q := task.NewQueue()
			m := NewMonitor(smp, detect.New(detect.Config{}), q)

			ctx, cancel := context.WithCancel(context.Background())
			done := make(chan struct{})
			go func() {
				defer close(done)
				m.Run(ctx)
			}()
			defer func() {
				cancel()
				<-done
			}()

			require.Eventually(t, b.started, time.Second, time.Millisecond)
			b.copy("hello")
			time.Sleep(200 * time.Millisecond)
			b.copy("hello")

			require.Eventually(t, func() bool { return q.Len() == 1 }, 2*time.Second, 10*time.Millisecond)
			evs := q.Drain(0)
			require.Equal(t, task.Trigger, evs[0].Kind)
			require.Equal(t, "hello", evs[0].Content.Text)
		})
	}
}

func TestConsoleView(t *testing.T) {
	var buf bytes.Buffer
	v := NewConsoleView(&buf)
	require.False(t, v.Visible())
	v.Show()
	require.True(t, v.Visible())
	v.SetInput(content.Text("a\nb"))
	v.SetOutput("done")
	v.ShowError("oops")
	v.Hide()

	out := buf.String()
	require.True(t, strings.Contains(out, "input:\n  a\n  b"))
	require.Contains(t, out, "output:\n  done")
	require.Contains(t, out, "error: oops")
	require.False(t, v.Visible())
}
