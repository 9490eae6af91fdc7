package control

import (
	"time"

	"go.klb.dev/reclip/internal/app"
	"go.klb.dev/reclip/internal/history"
)

type Empty struct{}

type StatusResponse struct {
	app.Status
	Socket string `json:"socket"`
}

type SelectRequest struct {
	Template string `json:"template"`
}

// ProcessRequest submits content as if it had been double-copied. PNG takes
// precedence over Text. Template, when set, is selected first.
type ProcessRequest struct {
	Text     string `json:"text,omitempty"`
	PNG      []byte `json:"png,omitempty"`
	Template string `json:"template,omitempty"`
}

type HistoryRequest struct {
	Limit int `json:"limit"`
}

type HistoryItem struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Template  string    `json:"template"`
	Label     string    `json:"label"`
	Kind      string    `json:"kind"`
	Source    string    `json:"source,omitempty"`
	Result    string    `json:"result"`
}

type HistoryResponse struct {
	Entries []HistoryItem `json:"entries"`
}

type RestoreRequest struct {
	ID string `json:"id"`
}

// NewHistoryItem flattens an entry for the wire.
func NewHistoryItem(e history.Entry) HistoryItem {
	return HistoryItem{
		ID:        e.ID,
		Timestamp: e.Timestamp,
		Template:  e.Template,
		Label:     e.String(),
		Kind:      string(e.Source.Kind),
		Source:    e.Source.Text,
		Result:    e.Result,
	}
}
