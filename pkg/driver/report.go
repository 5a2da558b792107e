package driver

import (
	"fmt"
	"io"
	"sort"
)

// Warning is a recoverable, file-scoped diagnostic: spec.md §7's
// CollectorError/BindingError rows are "Yes" under Recovered locally? but
// still owed a PATH:LINE:COLUMN-identified line in user-visible output.
type Warning struct {
	File    string
	Line    int
	Column  int
	Message string
}

// FileOutcome records what happened to one file during a Migrate/Cleanup/
// Check run, enough for Report to produce spec.md §7's summary lines and
// for the Driver to compute the exit code.
type FileOutcome struct {
	Path     string
	Modified bool
	Error    *Error
	Warnings []Warning

	// ReplaceableCount is the number of @replace_me constructs found in
	// info mode, the number of sites rewritten in migrate mode, or the
	// number of definitions removed in cleanup mode.
	ReplaceableCount int
}

// Report renders spec.md §7's summary lines to w, sorted by path so output
// is stable across runs regardless of the worker pool's completion order,
// mirroring the teacher's own "stable before emission" discipline
// (SPEC_FULL.md §5).
func Report(w io.Writer, outcomes []FileOutcome, infoMode bool) {
	sorted := make([]FileOutcome, len(outcomes))
	copy(sorted, outcomes)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Path < sorted[j].Path })

	for _, o := range sorted {
		for _, warn := range o.Warnings {
			fmt.Fprintf(w, "%s:%d:%d: %s\n", warn.File, warn.Line, warn.Column, warn.Message)
		}
		switch {
		case o.Error != nil:
			fmt.Fprintf(w, "%s: %s\n", o.Path, o.Error.Message)
		case infoMode:
			fmt.Fprintf(w, "%s: %d @replace_me function(s) can be replaced\n", o.Path, o.ReplaceableCount)
		case o.Modified:
			fmt.Fprintf(w, "Modified: %s\n", o.Path)
		default:
			fmt.Fprintf(w, "Unchanged: %s\n", o.Path)
		}
	}
}

// ExitCode implements spec.md §6's exit-code table: 0 success/no-op, 1 if
// --check found changes or any file failed, 2 reserved for invalid
// arguments (returned directly by cmd/molt before the Driver ever runs).
func ExitCode(outcomes []FileOutcome, checkMode bool) int {
	for _, o := range outcomes {
		if o.Error != nil {
			return 1
		}
		if checkMode && o.Modified {
			return 1
		}
	}
	return 0
}
