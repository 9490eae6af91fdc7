package content

import (
	"context"
	"log/slog"
)

const previewLen = 120

// Log logs a content event at INFO (kind, size) and, when DEBUG is enabled,
// a text preview of up to 120 chars.
func Log(event string, c Content, attrs ...any) {
	args := append([]any{"kind", string(c.Kind), "size_bytes", c.Size()}, attrs...)
	slog.Info(event, args...)

	if !slog.Default().Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	switch c.Kind {
	case KindText:
		preview := c.Text
		if len(preview) > previewLen {
			preview = preview[:previewLen] + "…"
		}
		slog.Debug("content preview", "preview", preview)
	case KindImage:
		if c.Image == nil {
			return
		}
		slog.Debug("content preview", "width", c.Image.Width, "height", c.Image.Height)
	}
}
