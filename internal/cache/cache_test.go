package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"go.klb.dev/reclip/internal/content"
	"go.klb.dev/reclip/internal/template"
)

type countingProcessor struct {
	calls int
	out   string
	err   error
}

func (p *countingProcessor) Process(context.Context, *template.Template, content.Content) (string, error) {
	p.calls++
	return p.out, p.err
}

func tmpl() *template.Template {
	return &template.Template{Name: "t", APIProvider: "gemini", Model: "m", InputType: content.KindText, Prompt: "{clipboard_text}"}
}

func TestWrapServesRepeatFromCache(t *testing.T) {
	c, err := Open(t.TempDir(), time.Hour)
	require.NoError(t, err)
	defer c.Close()

	next := &countingProcessor{out: "answer"}
	p := c.Wrap(next)

	for range 3 {
		out, err := p.Process(context.Background(), tmpl(), content.Text("q"))
		require.NoError(t, err)
		require.Equal(t, "answer", out)
	}
	require.Equal(t, 1, next.calls)

	_, err = p.Process(context.Background(), tmpl(), content.Text("other"))
	require.NoError(t, err)
	require.Equal(t, 2, next.calls)
}

func TestWrapDoesNotCacheFailures(t *testing.T) {
	c, err := Open(t.TempDir(), 0)
	require.NoError(t, err)
	defer c.Close()

	next := &countingProcessor{err: errors.New("down")}
	p := c.Wrap(next)

	_, err = p.Process(context.Background(), tmpl(), content.Text("q"))
	require.Error(t, err)
	_, err = p.Process(context.Background(), tmpl(), content.Text("q"))
	require.Error(t, err)
	require.Equal(t, 2, next.calls)
}

func TestKeyDependsOnTemplateAndInput(t *testing.T) {
	a := tmpl()
	b := tmpl()
	b.Model = "m2"
	require.Equal(t, Key(a, content.Text("x")), Key(tmpl(), content.Text("x")))
	require.NotEqual(t, Key(a, content.Text("x")), Key(b, content.Text("x")))
	require.NotEqual(t, Key(a, content.Text("x")), Key(a, content.Text("y")))
}

func TestGetMissing(t *testing.T) {
	c, err := Open(t.TempDir(), 0)
	require.NoError(t, err)
	defer c.Close()

	_, ok, err := c.Get([]byte("resp/none"))
	require.NoError(t, err)
	require.False(t, ok)
}
