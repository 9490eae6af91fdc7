// Package history keeps the most recent processing results, in memory for the
// view and in SQLite across restarts.
package history

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"go.klb.dev/reclip/internal/content"
)

// DefaultCapacity is how many entries a Ring keeps.
const DefaultCapacity = 20

const (
	displayTime  = "2006-01-02 15:04"
	previewRunes = 50
)

// Entry is one completed run.
type Entry struct {
	ID        string
	Source    content.Content
	Template  string
	Result    string
	Timestamp time.Time
}

// NewEntry stamps a fresh entry with a random ID.
func NewEntry(src content.Content, tmpl, result string, at time.Time) Entry {
	return Entry{
		ID:        uuid.NewString(),
		Source:    src,
		Template:  tmpl,
		Result:    result,
		Timestamp: at,
	}
}

// String is the single-line label shown in history lists.
func (e Entry) String() string {
	return fmt.Sprintf("%s | %s | %s", e.Timestamp.Format(displayTime), e.Template, e.Source.Preview(previewRunes))
}

// Ring holds up to a fixed number of entries, newest first. Adding to a full
// ring silently drops the oldest.
type Ring struct {
	mu      sync.RWMutex
	cap     int
	entries []Entry
}

// NewRing returns an empty Ring. A non-positive capacity selects
// DefaultCapacity.
func NewRing(capacity int) *Ring {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Ring{cap: capacity, entries: make([]Entry, 0, capacity)}
}

// Add inserts e at the front.
func (r *Ring) Add(e Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.entries) == r.cap {
		r.entries = r.entries[:r.cap-1]
	}
	r.entries = append(r.entries, Entry{})
	copy(r.entries[1:], r.entries)
	r.entries[0] = e
	slog.Info("history entry added", "template", e.Template, "size", len(r.entries))
}

// Load replaces the contents with entries given newest first, keeping at most
// the ring's capacity.
func (r *Ring) Load(entries []Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(entries) > r.cap {
		entries = entries[:r.cap]
	}
	r.entries = append(r.entries[:0], entries...)
}

// Entries returns a copy, newest first.
func (r *Ring) Entries() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Len returns the number of entries held.
func (r *Ring) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Display returns each entry's label, newest first.
func (r *Ring) Display() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.String()
	}
	return out
}

// Find returns the entry with the given ID.
func (r *Ring) Find(id string) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, e := range r.entries {
		if e.ID == id {
			return e, true
		}
	}
	return Entry{}, false
}

// FindLabel returns the entry whose display label is s.
func (r *Ring) FindLabel(s string) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, e := range r.entries {
		if e.String() == s {
			return e, true
		}
	}
	slog.Warn("history entry not found", "label", s)
	return Entry{}, false
}
