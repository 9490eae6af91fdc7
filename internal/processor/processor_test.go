package processor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/openai/openai-go/v3/option"
	"github.com/stretchr/testify/require"

	"go.klb.dev/reclip/internal/content"
	"go.klb.dev/reclip/internal/template"
)

func pngImage(t *testing.T) *content.Image {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 3, 2))))
	img, err := content.NewImage(buf.Bytes())
	require.NoError(t, err)
	return img
}

type stubProvider struct {
	name string
	got  Request
	out  string
	err  error
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) Complete(_ context.Context, req Request) (string, error) {
	s.got = req
	return s.out, s.err
}

func textTemplate(provider string) *template.Template {
	return &template.Template{
		Name:        "fix",
		APIProvider: provider,
		Model:       "m-1",
		InputType:   content.KindText,
		Prompt:      "Fix: {clipboard_text}",
	}
}

func TestRouterRendersAndTrims(t *testing.T) {
	stub := &stubProvider{name: "gemini", out: "  fixed\n"}
	r := NewRouter(stub, nil)

	out, err := r.Process(context.Background(), textTemplate("gemini"), content.Text("teh cat"))
	require.NoError(t, err)
	require.Equal(t, "fixed", out)
	require.Equal(t, Request{Model: "m-1", Prompt: "Fix: teh cat"}, stub.got)
	require.Equal(t, []string{"gemini"}, r.Providers())
}

func TestRouterImageDropsPlaceholder(t *testing.T) {
	stub := &stubProvider{name: "openai", out: "a cat"}
	r := NewRouter(stub)
	tmpl := textTemplate("openai")
	tmpl.InputType = content.KindImage
	img := pngImage(t)

	_, err := r.Process(context.Background(), tmpl, content.FromImage(img))
	require.NoError(t, err)
	require.Equal(t, "Fix: ", stub.got.Prompt)
	require.Same(t, img, stub.got.Image)
}

func TestRouterErrors(t *testing.T) {
	stub := &stubProvider{name: "gemini", err: errors.New("quota")}
	r := NewRouter(stub)
	ctx := context.Background()

	_, err := r.Process(ctx, textTemplate("gemini"), content.Text("  "))
	require.ErrorIs(t, err, ErrEmptyInput)

	_, err = r.Process(ctx, textTemplate("gemini"), content.FromImage(pngImage(t)))
	var mm *MismatchedInputTypeError
	require.ErrorAs(t, err, &mm)
	require.Equal(t, content.KindText, mm.Want)
	require.Equal(t, content.KindImage, mm.Got)
	require.Contains(t, err.Error(), `template "fix" requires text input`)

	_, err = r.Process(ctx, textTemplate("mistral"), content.Text("x"))
	require.ErrorIs(t, err, ErrUnsupportedProvider)

	_, err = r.Process(ctx, textTemplate("gemini"), content.Text("x"))
	require.ErrorIs(t, err, ErrProcessingFailure)
	require.ErrorContains(t, err, "quota")
}

func TestGeminiComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/gemini-2.5-flash:generateContent", r.URL.Path)
		require.Equal(t, "gk", r.Header.Get("x-goog-api-key"))

		var req geminiRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Contents, 1)
		require.Len(t, req.Contents[0].Parts, 2)
		require.Equal(t, "describe", req.Contents[0].Parts[0].Text)
		require.Equal(t, "image/png", req.Contents[0].Parts[1].InlineData.MimeType)

		_, _ = io.WriteString(w, `{"candidates":[{"content":{"parts":[{"text":"a "},{"text":"square"}]}}]}`)
	}))
	defer srv.Close()

	g := NewGemini("gk", srv.URL, srv.Client())
	out, err := g.Complete(context.Background(), Request{Model: "gemini-2.5-flash", Prompt: "describe", Image: pngImage(t)})
	require.NoError(t, err)
	require.Equal(t, "a square", out)
}

func TestGeminiAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error":{"code":400,"message":"API key not valid"}}`)
	}))
	defer srv.Close()

	_, err := NewGemini("bad", srv.URL, nil).Complete(context.Background(), Request{Model: "m", Prompt: "p"})
	require.ErrorContains(t, err, "API key not valid")
}

func TestClaudeComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "ak", r.Header.Get("x-api-key"))
		require.Equal(t, claudeAPIVersion, r.Header.Get("anthropic-version"))

		var req claudeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "claude-sonnet", req.Model)
		require.Equal(t, defaultClaudeMaxTokens, req.MaxTokens)
		require.Len(t, req.Messages[0].Content, 1)
		require.Equal(t, "hello", req.Messages[0].Content[0].Text)

		_, _ = io.WriteString(w, `{"content":[{"type":"text","text":"hi there"}]}`)
	}))
	defer srv.Close()

	out, err := NewClaude("ak", srv.URL, nil).Complete(context.Background(), Request{Model: "claude-sonnet", Prompt: "hello"})
	require.NoError(t, err)
	require.Equal(t, "hi there", out)
}

func TestClaudeAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"type":"error","error":{"type":"authentication_error","message":"invalid x-api-key"}}`)
	}))
	defer srv.Close()

	_, err := NewClaude("bad", srv.URL, nil).Complete(context.Background(), Request{Model: "m", Prompt: "p"})
	require.ErrorContains(t, err, "authentication_error")
}

func TestOpenAIComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/chat/completions", r.URL.Path)
		require.Equal(t, "Bearer ok", r.Header.Get("Authorization"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "gpt-4o-mini", body["model"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"created": 1,
			"model": "gpt-4o-mini",
			"choices": [{"index": 0, "finish_reason": "stop", "message": {"role": "assistant", "content": "done"}}]
		}`)
	}))
	defer srv.Close()

	p := NewOpenAI("ok", srv.URL+"/v1/", option.WithMaxRetries(0))
	out, err := p.Complete(context.Background(), Request{Model: "gpt-4o-mini", Prompt: "go", Image: pngImage(t)})
	require.NoError(t, err)
	require.Equal(t, "done", out)
}

func TestOpenAIServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, `{"error":{"message":"overloaded","type":"server_error"}}`)
	}))
	defer srv.Close()

	_, err := NewOpenAI("ok", srv.URL+"/v1/", option.WithMaxRetries(0)).Complete(context.Background(), Request{Model: "m", Prompt: "p"})
	require.Error(t, err)
}
