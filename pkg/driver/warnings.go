package driver

import (
	"fmt"
	"sort"

	"github.com/moltlang/molt/pkg/cst"
	"github.com/moltlang/molt/pkg/marker"
)

// unreplaceableWarnings turns every construct in result.Unreplaceable that
// belongs to file into a Warning, the CollectorError(reason) diagnostic
// spec.md §7 requires: the construct is recoverable (the engine proceeds
// with everything else) but still owed a PATH:LINE:COLUMN-identified line
// in user-visible output. Constructs picked up only because
// CollectionResult.Merge folded in a transitively imported module are
// excluded — each file reports its own unreplaceable constructs only.
func unreplaceableWarnings(source, file string, result *marker.CollectionResult) []Warning {
	var warnings []Warning
	for _, u := range result.Unreplaceable {
		if u.File != file {
			continue
		}
		line, col := cst.LineCol(source, u.Pos)
		msg := u.Message
		if msg == "" {
			msg = string(u.FailureReason)
		}
		warnings = append(warnings, Warning{
			File:    file,
			Line:    line,
			Column:  col,
			Message: fmt.Sprintf("%s %q cannot be replaced: %s", u.ConstructKind, u.QualifiedName, msg),
		})
	}
	sort.Slice(warnings, func(i, j int) bool {
		if warnings[i].Line != warnings[j].Line {
			return warnings[i].Line < warnings[j].Line
		}
		return warnings[i].Column < warnings[j].Column
	})
	return warnings
}
