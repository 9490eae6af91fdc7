// Package processor sends captured content to a language-model provider as
// directed by a template and returns the model's text.
package processor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go.klb.dev/reclip/internal/content"
	"go.klb.dev/reclip/internal/template"
)

var (
	// ErrProcessingFailure wraps every provider-side failure.
	ErrProcessingFailure = errors.New("processing failed")
	// ErrEmptyInput is returned for content with nothing to send.
	ErrEmptyInput = errors.New("no input to process")
	// ErrUnsupportedProvider is returned for a template naming a provider
	// that is not configured.
	ErrUnsupportedProvider = errors.New("unsupported api provider")
)

// MismatchedInputTypeError reports content whose kind the template does not
// accept.
type MismatchedInputTypeError struct {
	Template string
	Want     content.Kind
	Got      content.Kind
}

func (e *MismatchedInputTypeError) Error() string {
	return fmt.Sprintf("template %q requires %s input, but received %s", e.Template, e.Want, e.Got)
}

// Processor runs one template against one piece of content.
type Processor interface {
	Process(ctx context.Context, tmpl *template.Template, c content.Content) (string, error)
}

// Request is what a Provider receives: the rendered prompt plus an optional
// image.
type Request struct {
	Model  string
	Prompt string
	Image  *content.Image
}

// Provider is one model API.
type Provider interface {
	Name() string
	Complete(ctx context.Context, req Request) (string, error)
}

// Router dispatches to a Provider by the template's api_provider.
type Router struct {
	providers map[string]Provider
}

// NewRouter returns a Router over the given providers. Nil providers are
// skipped so unconfigured ones can be passed through unconditionally.
func NewRouter(providers ...Provider) *Router {
	r := &Router{providers: make(map[string]Provider)}
	for _, p := range providers {
		if p == nil {
			continue
		}
		r.providers[p.Name()] = p
	}
	return r
}

// Providers lists the configured provider names.
func (r *Router) Providers() []string {
	names := make([]string, 0, len(r.providers))
	for n := range r.providers {
		names = append(names, n)
	}
	return names
}

// Process validates c against tmpl and forwards it to the provider.
func (r *Router) Process(ctx context.Context, tmpl *template.Template, c content.Content) (string, error) {
	if c.IsEmpty() {
		return "", ErrEmptyInput
	}
	if !tmpl.Accepts(c) {
		err := &MismatchedInputTypeError{Template: tmpl.Name, Want: tmpl.InputType, Got: c.Kind}
		slog.Error("mismatched input type", "err", err)
		return "", err
	}
	p, ok := r.providers[tmpl.APIProvider]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedProvider, tmpl.APIProvider)
	}

	req := Request{Model: tmpl.Model}
	if c.Kind == content.KindImage {
		req.Prompt = tmpl.Render("")
		req.Image = c.Image
	} else {
		req.Prompt = tmpl.Render(c.Text)
	}

	slog.Info("executing request",
		"provider", p.Name(),
		"model", tmpl.Model,
		"input_type", tmpl.InputType,
	)
	start := time.Now()
	out, err := p.Complete(ctx, req)
	if err != nil {
		slog.Error("request failed", "provider", p.Name(), "err", err)
		return "", fmt.Errorf("%w: %s: %w", ErrProcessingFailure, p.Name(), err)
	}
	out = strings.TrimSpace(out)
	slog.Info("response received", "provider", p.Name(), "chars", len(out), "elapsed", time.Since(start))
	return out, nil
}

// httpConfig holds what the hand-written HTTP providers share.
type httpConfig struct {
	http    *http.Client
	apiKey  string
	baseURL string
}

func newHTTPConfig(apiKey, baseURL string, client *http.Client) httpConfig {
	if client == nil {
		client = &http.Client{}
	}
	return httpConfig{http: client, apiKey: apiKey, baseURL: baseURL}
}
