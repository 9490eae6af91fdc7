// Package template loads the prompt templates that tell reclip which model to
// call and how to phrase the request.
package template

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"

	"go.klb.dev/reclip/internal/content"
)

// Placeholder is replaced by the clipboard text when a prompt is rendered.
const Placeholder = "{clipboard_text}"

// RequiredKeys lists the keys every template file must define.
var RequiredKeys = []string{"name", "description", "api_provider", "model", "input_type", "prompt"}

// ErrNotFound is returned by Get for an unknown template name.
var ErrNotFound = errors.New("template not found")

// Template describes one request recipe.
type Template struct {
	Name        string       `json:"name"         toml:"name"`
	Description string       `json:"description"  toml:"description"`
	APIProvider string       `json:"api_provider" toml:"api_provider"`
	Model       string       `json:"model"        toml:"model"`
	InputType   content.Kind `json:"input_type"   toml:"input_type"`
	Prompt      string       `json:"prompt"       toml:"prompt"`

	// Path is the file the template was loaded from.
	Path string `json:"-" toml:"-"`
}

// Render substitutes text for the placeholder in the prompt.
func (t *Template) Render(text string) string {
	return strings.ReplaceAll(t.Prompt, Placeholder, text)
}

// Accepts reports whether c matches the template's input type.
func (t *Template) Accepts(c content.Content) bool {
	return c.Kind == t.InputType
}

// Set is the immutable collection of loaded templates.
type Set struct {
	byName map[string]*Template
	names  []string
}

// Load reads every .json and .toml file in dir. Files that fail to parse or
// lack a required key are skipped with a warning. A missing directory is
// created and yields an empty Set.
func Load(dir string) (*Set, error) {
	s := &Set{byName: make(map[string]*Template)}

	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		slog.Warn("templates directory not found, creating it", "dir", dir)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create templates dir: %w", err)
		}
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read templates dir: %w", err)
	}

	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		path := filepath.Join(dir, e.Name())
		var (
			t   *Template
			err error
		)
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".json":
			t, err = loadJSON(path)
		case ".toml":
			t, err = loadTOML(path)
		default:
			continue
		}
		if err != nil {
			slog.Warn("skipping template", "path", path, "err", err)
			continue
		}
		if prev, ok := s.byName[t.Name]; ok {
			slog.Warn("duplicate template name, later file wins",
				"name", t.Name,
				"previous", prev.Path,
				"path", path,
			)
		} else {
			s.names = append(s.names, t.Name)
		}
		s.byName[t.Name] = t
		slog.Debug("template loaded", "name", t.Name, "path", path)
	}
	slices.Sort(s.names)

	slog.Info("templates loaded", "dir", dir, "count", len(s.names))
	return s, nil
}

// Names returns the template names in sorted order.
func (s *Set) Names() []string {
	return slices.Clone(s.names)
}

// Len returns the number of templates.
func (s *Set) Len() int { return len(s.names) }

// Get looks a template up by name.
func (s *Set) Get(name string) (*Template, error) {
	t, ok := s.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return t, nil
}

// Default returns the first template name, or "" if the set is empty.
func (s *Set) Default() string {
	if len(s.names) == 0 {
		return ""
	}
	return s.names[0]
}

func loadJSON(path string) (*Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse json: %w", err)
	}
	for _, k := range RequiredKeys {
		if _, ok := raw[k]; !ok {
			return nil, fmt.Errorf("missing required key %q", k)
		}
	}
	var t Template
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parse json: %w", err)
	}
	return finish(&t, path)
}

func loadTOML(path string) (*Template, error) {
	var t Template
	md, err := toml.DecodeFile(path, &t)
	if err != nil {
		return nil, fmt.Errorf("parse toml: %w", err)
	}
	for _, k := range RequiredKeys {
		if !md.IsDefined(k) {
			return nil, fmt.Errorf("missing required key %q", k)
		}
	}
	return finish(&t, path)
}

func finish(t *Template, path string) (*Template, error) {
	kind, err := content.ParseKind(string(t.InputType))
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(t.Name) == "" {
		return nil, errors.New("empty name")
	}
	t.InputType = kind
	t.APIProvider = strings.ToLower(strings.TrimSpace(t.APIProvider))
	t.Path = path
	return t, nil
}
