// Package task carries work from background goroutines to the goroutine that
// owns the view. Producers Post; the single consumer Drains on its tick.
package task

import (
	"fmt"
	"sync"

	"go.klb.dev/reclip/internal/content"
)

// Kind names an Event variant.
type Kind int

const (
	// Trigger carries content captured by the double-copy gesture.
	Trigger Kind = iota + 1
	// ProcessingComplete carries the outcome of one worker run.
	ProcessingComplete
	// ToggleVisibility flips the view between shown and hidden.
	ToggleVisibility
	// SelectTemplate changes the selected template.
	SelectTemplate
	// RestoreHistory reloads a history entry into the view.
	RestoreHistory
)

func (k Kind) String() string {
	switch k {
	case Trigger:
		return "trigger"
	case ProcessingComplete:
		return "processing-complete"
	case ToggleVisibility:
		return "toggle-visibility"
	case SelectTemplate:
		return "select-template"
	case RestoreHistory:
		return "restore-history"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Event is one unit of work for the consumer. Which fields are set depends
// on Kind.
type Event struct {
	Kind Kind

	// Content is the captured input for Trigger and the source of a
	// ProcessingComplete.
	Content content.Content

	// Result and Err are the outcome of a ProcessingComplete. Exactly one is
	// meaningful: Err when non-nil, Result otherwise.
	Result string
	Err    error

	// Template names the template of a ProcessingComplete or SelectTemplate.
	Template string

	// ID is the history entry for RestoreHistory.
	ID string
}

// NewTrigger returns a Trigger event.
func NewTrigger(c content.Content) Event {
	return Event{Kind: Trigger, Content: c}
}

// Completed returns a ProcessingComplete event.
func Completed(tmpl string, src content.Content, result string, err error) Event {
	return Event{Kind: ProcessingComplete, Template: tmpl, Content: src, Result: result, Err: err}
}

// Toggle returns a ToggleVisibility event.
func Toggle() Event { return Event{Kind: ToggleVisibility} }

// Select returns a SelectTemplate event.
func Select(name string) Event { return Event{Kind: SelectTemplate, Template: name} }

// Restore returns a RestoreHistory event.
func Restore(id string) Event { return Event{Kind: RestoreHistory, ID: id} }

// Poster is what producers need from a Queue.
type Poster interface {
	Post(Event)
}

// Queue is an unbounded FIFO safe for many producers and one consumer.
type Queue struct {
	mu     sync.Mutex
	events []Event
}

// NewQueue returns an empty Queue.
func NewQueue() *Queue {
	return &Queue{}
}

// Post appends e. It never blocks on the consumer.
func (q *Queue) Post(e Event) {
	q.mu.Lock()
	q.events = append(q.events, e)
	q.mu.Unlock()
}

// Drain removes and returns up to limit events in the order they were posted.
// A non-positive limit drains everything available.
func (q *Queue) Drain(limit int) []Event {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := len(q.events)
	if n == 0 {
		return nil
	}
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]Event, n)
	copy(out, q.events)
	rest := copy(q.events, q.events[n:])
	clear(q.events[rest:])
	q.events = q.events[:rest]
	return out
}

// Len reports how many events are waiting.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}
