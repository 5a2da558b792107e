package driver

import (
	"strings"

	"github.com/moltlang/molt/pkg/cst"
	"github.com/moltlang/molt/pkg/marker"
)

// deprecatedDef pairs a located definition node with the qualified name it
// would be registered under by the Collector, so cleanup mode can match it
// against a CollectionResult's since/remove_in metadata without needing
// the Collector to export its own node references (ReplaceInfo only
// carries Pos, enough for diagnostics, not for deletion).
type deprecatedDef struct {
	QualifiedName string
	Node          cst.Stmt
}

// findDeprecatedDefs walks mod's top level and every class body looking
// for a FuncDef, ClassDef, or attribute Assign decorated or wrapped with
// replace_me, mirroring the qualified-name construction the Collector
// itself uses (declaringClass prefix, then name) so the two agree on
// which qualified name refers to which definition.
func findDeprecatedDefs(mod *cst.Module, moduleQualified string) []deprecatedDef {
	var defs []deprecatedDef
	walkBody(mod.Body, moduleQualified, "", &defs)
	return defs
}

func walkBody(body []cst.Stmt, moduleQualified, declaringClass string, out *[]deprecatedDef) {
	for _, stmt := range body {
		switch s := stmt.(type) {
		case *cst.FuncDef:
			if hasMarkerDecorator(s.Decorators) {
				*out = append(*out, deprecatedDef{QualifiedName: qualify(moduleQualified, declaringClass, s.Name), Node: s})
			}
		case *cst.ClassDef:
			if hasMarkerDecorator(s.Decorators) {
				*out = append(*out, deprecatedDef{QualifiedName: qualify(moduleQualified, declaringClass, s.Name), Node: s})
			}
			walkBody(s.Body, moduleQualified, s.Name, out)
		case *cst.Assign:
			if name, ok := s.Target.(*cst.Name); ok {
				if call, ok := s.Value.(*cst.Call); ok && isMarkerCall(call) {
					*out = append(*out, deprecatedDef{QualifiedName: qualify(moduleQualified, declaringClass, name.Id), Node: s})
				}
			}
		}
	}
}

func qualify(moduleQualified, declaringClass, name string) string {
	if declaringClass == "" {
		return moduleQualified + "." + name
	}
	return moduleQualified + "." + declaringClass + "." + name
}

func hasMarkerDecorator(decorators []*cst.Decorator) bool {
	for _, d := range decorators {
		if isMarkerCallExpr(d.Call) {
			return true
		}
	}
	return false
}

func isMarkerCall(call *cst.Call) bool { return isMarkerCallExpr(call) }

func isMarkerCallExpr(e cst.Expr) bool {
	switch v := e.(type) {
	case *cst.Name:
		return v.Id == "replace_me"
	case *cst.Call:
		if n, ok := v.Func.(*cst.Name); ok {
			return n.Id == "replace_me"
		}
	}
	return false
}

// sinceRemoveIn locates qualifiedName's since/remove_in metadata regardless
// of whether the Collector could derive a usable replacement template for
// it: a construct with a complex_body, no_return, recursive_call, or lambda
// body is still a deprecated definition subject to cleanup's --all/--before/
// --current-version boundary, even though pkg/rewrite could never rewrite
// its call sites. ok is false when qualifiedName belongs to neither map, or
// was collected from a different file (via a transitively imported module)
// — cleanup only ever deletes definitions that live in the file being
// processed.
func sinceRemoveIn(result *marker.CollectionResult, qualifiedName, file string) (since, removeIn string, ok bool) {
	if info, present := result.Replacements[qualifiedName]; present {
		if info.File != file {
			return "", "", false
		}
		return info.Since, info.RemoveIn, true
	}
	if u, present := result.Unreplaceable[qualifiedName]; present {
		if u.File != file {
			return "", "", false
		}
		return u.Since, u.RemoveIn, true
	}
	return "", "", false
}

// cleanupEdits returns the byte-range deletions cleanup mode makes for
// one file: every located deprecated definition whose since/remove_in
// satisfies cfg's boundary mode, per spec.md §4.5. This covers both
// replaceable and unreplaceable constructs — spec.md §6's "Remove every
// deprecated construct" applies to anything findDeprecatedDefs locates,
// not just the subset pkg/rewrite could also have rewritten call sites
// for. Definitions belonging to a different file (picked up only because
// CollectionResult.Merge folded in a transitively imported module) are
// never deleted — cleanup only ever touches the file being processed.
func cleanupEdits(cfg *Config, mod *cst.Module, file, moduleQualified, source string, result *marker.CollectionResult) ([]cst.Edit, error) {
	var edits []cst.Edit
	for _, def := range findDeprecatedDefs(mod, moduleQualified) {
		since, removeIn, ok := sinceRemoveIn(result, def.QualifiedName, file)
		if !ok {
			continue
		}
		remove, err := shouldCleanup(cfg, since, removeIn)
		if err != nil {
			return nil, err
		}
		if !remove {
			continue
		}
		start, end := deletionRange(source, def.Node.Start(), def.Node.End())
		edits = append(edits, cst.Edit{Start: start, End: end, NewText: "", Reason: "cleanup: " + def.QualifiedName})
	}
	return edits, nil
}

// deletionRange widens [start,end) — a definition node's own byte range,
// which never includes the newline terminating its last line — so removing
// the whole source between the two offsets leaves neither a dangling blank
// line where the definition used to be nor its trailing line ending. It
// consumes the single newline ending the definition's last line, and at
// most one fully-blank line immediately preceding the definition (so two
// adjacent removed definitions don't collapse into a double blank line nor
// leave one).
func deletionRange(source string, start, end int) (int, int) {
	if end < len(source) && source[end] == '\n' {
		end++
	}
	if start > 0 && source[start-1] == '\n' {
		lineEnd := start - 1
		lineStart := lineEnd
		for lineStart > 0 && source[lineStart-1] != '\n' {
			lineStart--
		}
		if strings.TrimSpace(source[lineStart:lineEnd]) == "" {
			start = lineStart
		}
	}
	return start, end
}
