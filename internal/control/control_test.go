package control

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"go.klb.dev/reclip/internal/app"
	"go.klb.dev/reclip/internal/content"
	"go.klb.dev/reclip/internal/history"
	"go.klb.dev/reclip/internal/task"
)

type fakeDaemon struct {
	mu      sync.Mutex
	posted  []task.Event
	entries []history.Entry
}

func (d *fakeDaemon) Status() app.Status {
	return app.Status{Template: "Fix", Templates: []string{"Describe", "Fix"}, History: len(d.entries)}
}

func (d *fakeDaemon) Post(e task.Event) {
	d.mu.Lock()
	d.posted = append(d.posted, e)
	d.mu.Unlock()
}

func (d *fakeDaemon) HistoryEntries() []history.Entry { return d.entries }

func (d *fakeDaemon) events() []task.Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]task.Event(nil), d.posted...)
}

func setup(t *testing.T, d *fakeDaemon) *Client {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	srv := NewServer(NewService(d, "/tmp/reclip.sock"))
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	c, err := DialWith(func(ctx context.Context, _ string) (net.Conn, error) {
		return lis.DialContext(ctx)
	})
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func ctx(t *testing.T) context.Context {
	c, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return c
}

func TestStatus(t *testing.T) {
	c := setup(t, &fakeDaemon{})
	st, err := c.Status(ctx(t))
	require.NoError(t, err)
	require.Equal(t, "Fix", st.Template)
	require.Equal(t, []string{"Describe", "Fix"}, st.Templates)
	require.Equal(t, "/tmp/reclip.sock", st.Socket)
}

func TestToggleAndSelect(t *testing.T) {
	d := &fakeDaemon{}
	c := setup(t, d)

	require.NoError(t, c.Toggle(ctx(t)))
	require.NoError(t, c.Select(ctx(t), "Describe"))

	err := c.Select(ctx(t), "Nope")
	require.Equal(t, codes.NotFound, status.Code(err))

	evs := d.events()
	require.Len(t, evs, 2)
	require.Equal(t, task.ToggleVisibility, evs[0].Kind)
	require.Equal(t, task.SelectTemplate, evs[1].Kind)
	require.Equal(t, "Describe", evs[1].Template)
}

func TestProcess(t *testing.T) {
	d := &fakeDaemon{}
	c := setup(t, d)

	require.NoError(t, c.Process(ctx(t), &ProcessRequest{Text: "hello", Template: "Fix"}))

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 2, 2))))
	require.NoError(t, c.Process(ctx(t), &ProcessRequest{PNG: buf.Bytes()}))

	err := c.Process(ctx(t), &ProcessRequest{Text: "   "})
	require.Equal(t, codes.InvalidArgument, status.Code(err))
	err = c.Process(ctx(t), &ProcessRequest{PNG: []byte("not a png")})
	require.Equal(t, codes.InvalidArgument, status.Code(err))

	evs := d.events()
	require.Len(t, evs, 3)
	require.Equal(t, task.SelectTemplate, evs[0].Kind)
	require.Equal(t, task.Trigger, evs[1].Kind)
	require.Equal(t, "hello", evs[1].Content.Text)
	require.Equal(t, content.KindImage, evs[2].Content.Kind)
}

func TestHistoryAndRestore(t *testing.T) {
	at := time.Date(2026, 2, 3, 4, 5, 0, 0, time.Local)
	d := &fakeDaemon{entries: []history.Entry{
		history.NewEntry(content.Text("b"), "Fix", "B", at.Add(time.Minute)),
		history.NewEntry(content.Text("a"), "Fix", "A", at),
	}}
	c := setup(t, d)

	items, err := c.History(ctx(t), 1)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, "B", items[0].Result)
	require.Equal(t, "2026-02-03 04:06 | Fix | b...", items[0].Label)
	require.True(t, items[0].Timestamp.Equal(at.Add(time.Minute)))

	require.NoError(t, c.Restore(ctx(t), d.entries[1].ID))
	err = c.Restore(ctx(t), "missing")
	require.Equal(t, codes.NotFound, status.Code(err))

	evs := d.events()
	require.Len(t, evs, 1)
	require.Equal(t, task.RestoreHistory, evs[0].Kind)
}
