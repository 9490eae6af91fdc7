package history

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// Diff renders the changes from the entry's source text to its result. With
// color the output uses ANSI escapes; without, deletions are wrapped in [-..-]
// and insertions in {+..+}. Image entries have no textual source and return
// the result unchanged.
func (e Entry) Diff(color bool) string {
	if e.Source.Text == "" {
		return e.Result
	}
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(e.Source.Text, e.Result, false)
	diffs = dmp.DiffCleanupSemantic(diffs)
	if color {
		return dmp.DiffPrettyText(diffs)
	}

	var sb strings.Builder
	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			sb.WriteString("[-" + d.Text + "-]")
		case diffmatchpatch.DiffInsert:
			sb.WriteString("{+" + d.Text + "+}")
		default:
			sb.WriteString(d.Text)
		}
	}
	return sb.String()
}
