// Package content defines the clipboard payloads reclip captures and
// processes: plain text or a PNG image.
package content

import (
	"bytes"
	"fmt"
	"image"
	_ "image/png" // registers the PNG decoder for DecodeConfig
	"strings"
)

// Kind identifies what a Content carries. The string values double as the
// template input_type vocabulary.
type Kind string

const (
	KindEmpty Kind = ""
	KindText  Kind = "text"
	KindImage Kind = "image"
)

// ParseKind converts a template input_type to a Kind.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "text":
		return KindText, nil
	case "image":
		return KindImage, nil
	default:
		return KindEmpty, fmt.Errorf("unknown input type %q", s)
	}
}

// Image is a PNG-encoded clipboard image.
type Image struct {
	Width  int
	Height int
	PNG    []byte
}

// NewImage wraps PNG bytes, reading the dimensions from the header.
func NewImage(png []byte) (*Image, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(png))
	if err != nil {
		return nil, fmt.Errorf("decode image header: %w", err)
	}
	return &Image{Width: cfg.Width, Height: cfg.Height, PNG: png}, nil
}

// Content is an immutable text or image payload.
type Content struct {
	Kind  Kind
	Text  string
	Image *Image
}

// Text returns text content. An empty string yields empty content.
func Text(s string) Content {
	if s == "" {
		return Content{}
	}
	return Content{Kind: KindText, Text: s}
}

// FromImage returns image content. A nil image yields empty content.
func FromImage(img *Image) Content {
	if img == nil || len(img.PNG) == 0 {
		return Content{}
	}
	return Content{Kind: KindImage, Image: img}
}

// IsEmpty reports whether c carries nothing processable.
func (c Content) IsEmpty() bool {
	switch c.Kind {
	case KindText:
		return strings.TrimSpace(c.Text) == ""
	case KindImage:
		return c.Image == nil || len(c.Image.PNG) == 0
	default:
		return true
	}
}

// Size returns the payload size in bytes.
func (c Content) Size() int {
	if c.Kind == KindImage && c.Image != nil {
		return len(c.Image.PNG)
	}
	return len(c.Text)
}

// Preview renders a single-line summary of at most n runes of text followed
// by "...", or "[Image]" for images.
func (c Content) Preview(n int) string {
	switch c.Kind {
	case KindImage:
		return "[Image]"
	case KindText:
		r := []rune(c.Text)
		if len(r) > n {
			r = r[:n]
		}
		return strings.ReplaceAll(string(r), "\n", " ") + "..."
	default:
		return ""
	}
}

// Describe is the human label shown in an input area.
func (c Content) Describe() string {
	switch c.Kind {
	case KindText:
		return c.Text
	case KindImage:
		if c.Image == nil {
			return "[Image detected]"
		}
		return fmt.Sprintf("[Image detected: %dx%d]", c.Image.Width, c.Image.Height)
	default:
		return "[No text or image in clipboard]"
	}
}
