package cst

import (
	"fmt"
	"sort"
	"strings"
)

// Edit replaces the source byte range [Start,End) with NewText. Rewriting in
// this engine is always expressed as a list of Edits applied to the original
// source rather than a full re-print of the tree — see the package doc in
// token.go for why that makes format preservation free instead of a
// pretty-printer implementation.
type Edit struct {
	Start   int
	End     int
	NewText string

	// Reason is a short human-readable description of why this edit was
	// made. Reprint ignores it; it is not part of the edit's identity.
	Reason string
}

// Reprint applies edits to source and returns the resulting text. Edits must
// describe non-overlapping ranges; overlapping edits are a programmer error
// in the pass that produced them, not a recoverable input condition, so
// Reprint panics rather than silently picking a winner.
func Reprint(source string, edits []Edit) string {
	if len(edits) == 0 {
		return source
	}
	sorted := make([]Edit, len(edits))
	copy(sorted, edits)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	var b strings.Builder
	cursor := 0
	for i, e := range sorted {
		if e.Start < cursor {
			panic(fmt.Sprintf("cst.Reprint: overlapping edit at byte %d (previous edit ended at %d)", e.Start, cursor))
		}
		if i > 0 && e.Start < sorted[i-1].End {
			panic(fmt.Sprintf("cst.Reprint: overlapping edit at byte %d", e.Start))
		}
		b.WriteString(source[cursor:e.Start])
		b.WriteString(e.NewText)
		cursor = e.End
	}
	b.WriteString(source[cursor:])
	return b.String()
}

// Overlaps reports whether two edits touch the same byte range, the
// condition a Rewriter pass must check for before emitting a second edit
// that would conflict with one already queued for a file.
func (e Edit) Overlaps(other Edit) bool {
	return e.Start < other.End && other.Start < e.End
}
