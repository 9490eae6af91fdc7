package app

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"go.klb.dev/reclip/internal/content"
)

// ConsoleView renders the App as lines on a writer. It is the shipped View
// for running without a window system.
type ConsoleView struct {
	mu      sync.Mutex
	w       io.Writer
	visible bool
}

// NewConsoleView writes to w.
func NewConsoleView(w io.Writer) *ConsoleView {
	return &ConsoleView{w: w}
}

func (v *ConsoleView) printf(format string, args ...any) {
	v.mu.Lock()
	defer v.mu.Unlock()
	fmt.Fprintf(v.w, format+"\n", args...)
}

func (v *ConsoleView) Visible() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.visible
}

func (v *ConsoleView) Show() {
	v.mu.Lock()
	v.visible = true
	v.mu.Unlock()
	v.printf("== reclip ==")
}

func (v *ConsoleView) Hide() {
	v.mu.Lock()
	v.visible = false
	v.mu.Unlock()
	v.printf("== hidden ==")
}

func (v *ConsoleView) SetTemplates(names []string, selected string) {
	v.printf("template: %s (%d available)", selected, len(names))
}

func (v *ConsoleView) SetInput(c content.Content) {
	v.printf("input:\n%s", indent(c.Describe()))
}

func (v *ConsoleView) SetOutput(text string) {
	if text == "" {
		return
	}
	v.printf("output:\n%s", indent(text))
}

func (v *ConsoleView) SetBusy(busy bool) {
	if busy {
		v.printf("processing...")
	}
}

func (v *ConsoleView) ShowError(msg string) {
	v.printf("error: %s", msg)
}

func (v *ConsoleView) SetHistory(labels []string) {
	if len(labels) == 0 {
		return
	}
	v.printf("history: %s", labels[0])
}

func indent(s string) string {
	return "  " + strings.ReplaceAll(s, "\n", "\n  ")
}
