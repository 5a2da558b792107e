package rewrite

import (
	"context"
	"strings"

	"github.com/moltlang/molt/pkg/cst"
	"github.com/moltlang/molt/pkg/marker"
	"github.com/moltlang/molt/pkg/typeresolve"
)

// AppliedReplacement is one rewrite actually made to a file, recorded for
// the Driver's summary report (spec.md §4.4's output contract).
type AppliedReplacement struct {
	Line, Column int
	OldText      string
	NewText      string
	Info         *marker.ReplaceInfo
}

// Warning is a recoverable, site-scoped problem: the site is skipped but
// the rest of the file proceeds, per spec.md §7's recoverability rules.
type Warning struct {
	Line, Column int
	Message      string
}

// Decision is the Driver's answer to an interactive prompt for one site.
type Decision int

const (
	Apply Decision = iota
	SkipSite
	ApplyAll
	AbortFile
)

// InteractiveFunc is called before each rewrite when interactive mode is
// on; nil means every site is applied without prompting.
type InteractiveFunc func(file string, line, column int, oldText, newText string) Decision

// Rewriter is the Call-site Rewriter: given a parsed file and the
// aggregated CollectionResult for it, it finds every site a deprecated
// construct is used at and substitutes the construct's replacement
// template.
type Rewriter struct {
	Resolver    *typeresolve.Resolver
	Interactive InteractiveFunc
}

// NewRewriter constructs a Rewriter. resolver may be nil, in which case
// every attribute-call/attribute-access/builtin-call site that requires
// type resolution is left unrewritten (the Resolver's own degrade-to-off
// behavior propagates up rather than being special-cased here).
func NewRewriter(resolver *typeresolve.Resolver, interactive InteractiveFunc) *Rewriter {
	return &Rewriter{Resolver: resolver, Interactive: interactive}
}

// Rewrite runs the full per-file pipeline: discover sites, resolve each
// against result, bind arguments, substitute the template, and produce
// the reprinted source plus the applied-replacement and warning records.
// progress is advanced through Collected/Rewritten/Reprinted/Unchanged
// only; the Written/Previewed/Failed states are not set here, and the
// Driver discards progress without setting them either.
func (rw *Rewriter) Rewrite(ctx context.Context, file, moduleQualified, source string, mod *cst.Module, result *marker.CollectionResult) (string, []AppliedReplacement, []Warning, *FileProgress) {
	progress := &FileProgress{File: file, State: Collected}

	sites := DiscoverSites(mod)
	locals := LocalBindings(mod)

	var edits []cst.Edit
	var applied []AppliedReplacement
	var warnings []Warning
	applyAll := false

sites:
	for _, site := range sites {
		info, bound, ok, warnMsg := rw.resolveSite(ctx, file, moduleQualified, source, locals, result, site)
		if warnMsg != "" {
			line, col := cst.LineCol(source, site.Node.Start())
			warnings = append(warnings, Warning{Line: line, Column: col, Message: warnMsg})
		}
		if !ok {
			continue
		}

		newText, err := Render(info.ReplacementTemplate, bound, source)
		if err != nil {
			line, col := cst.LineCol(source, site.Node.Start())
			warnings = append(warnings, Warning{Line: line, Column: col, Message: err.Error()})
			continue
		}
		oldText := source[site.Node.Start():site.Node.End()]
		if newText == oldText {
			continue
		}

		line, col := cst.LineCol(source, site.Node.Start())
		if rw.Interactive != nil && !applyAll {
			switch rw.Interactive(file, line, col, oldText, newText) {
			case SkipSite:
				continue
			case AbortFile:
				edits, applied = nil, nil
				break sites
			case ApplyAll:
				applyAll = true
			}
		}

		edits = append(edits, cst.Edit{Start: site.Node.Start(), End: site.Node.End(), NewText: newText, Reason: info.QualifiedName})
		applied = append(applied, AppliedReplacement{Line: line, Column: col, OldText: oldText, NewText: newText, Info: info})
	}

	if len(edits) == 0 {
		progress.Advance(Unchanged, 0)
		return source, applied, warnings, progress
	}

	progress.Advance(Rewritten, len(applied))
	newSource := cst.Reprint(source, edits)
	progress.Advance(Reprinted, len(applied))
	return newSource, applied, warnings, progress
}

// resolveSite decides whether a candidate site is actually a use of a
// known deprecated construct and, if so, binds its arguments. ok is false
// for any site that is not a match — never itself an error, since most
// candidates DiscoverSites returns are ordinary calls/attribute accesses
// that happen to share shape with a rewrite site.
func (rw *Rewriter) resolveSite(ctx context.Context, file, moduleQualified, source string, locals map[string]bool, result *marker.CollectionResult, site Candidate) (*marker.ReplaceInfo, map[string]BoundValue, bool, string) {
	switch site.Kind {
	case DirectCall:
		return rw.resolveDirectCall(result, moduleQualified, locals, site)
	case BuiltinCall:
		return rw.resolveBuiltinCall(ctx, file, source, result, site)
	case AttributeCall:
		return rw.resolveAttributeCall(ctx, file, source, result, site)
	case AttributeAccess:
		return rw.resolveAttributeAccess(ctx, file, source, locals, result, site)
	case BareName:
		return rw.resolveBareName(result, moduleQualified, locals, site)
	default:
		return nil, nil, false, ""
	}
}

// resolveQualifiedName finds the ReplaceInfo bound to name within the
// current file's scope: either an imported deprecated construct — shadowed,
// per spec.md's name-binding rule, by any module-level reassignment of the
// same name — or one declared directly in this same file, whose qualified
// name is simply moduleQualified + "." + name without any import needed
// (and which the module-level "reassignment" LocalBindings detects is, in
// that case, the construct's own definition, not a shadow).
func resolveQualifiedName(result *marker.CollectionResult, moduleQualified string, locals map[string]bool, name string) (*marker.ReplaceInfo, bool) {
	if qualified, isImport := result.ImportBindings[name]; isImport {
		if locals[name] {
			return nil, false
		}
		info, ok := result.Replacements[qualified]
		return info, ok
	}
	info, ok := result.Replacements[moduleQualified+"."+name]
	return info, ok
}

func (rw *Rewriter) resolveDirectCall(result *marker.CollectionResult, moduleQualified string, locals map[string]bool, site Candidate) (*marker.ReplaceInfo, map[string]BoundValue, bool, string) {
	info, ok := resolveQualifiedName(result, moduleQualified, locals, site.Name)
	if !ok {
		return nil, nil, false, ""
	}
	switch info.ConstructKind {
	case marker.FreeFunction, marker.AsyncFunction, marker.Class:
	default:
		// A direct call can only resolve to a plain function or a class
		// instantiation per spec.md §4.4; methods always require a
		// receiver and are reached through AttributeCall instead.
		return nil, nil, false, ""
	}
	bound, err := BindArguments(info.Parameters, callArgsFrom(site.Call))
	if err != nil {
		return nil, nil, false, err.Error()
	}
	return info, bound, true, ""
}

func (rw *Rewriter) resolveBuiltinCall(ctx context.Context, file, source string, result *marker.CollectionResult, site Candidate) (*marker.ReplaceInfo, map[string]BoundValue, bool, string) {
	class, ok := rw.resolveClass(ctx, file, source, site.Receiver)
	if !ok {
		return nil, nil, false, ""
	}
	info, ok := lookupInMRO(result, result.Inheritance, class, site.Name, methodKinds)
	if !ok {
		return nil, nil, false, ""
	}
	if len(info.Parameters) == 0 {
		return nil, nil, false, ""
	}
	if refCount(info.ReplacementTemplate, info.Parameters[0].Name) > 1 && hasSideEffects(site.Receiver) {
		return nil, nil, false, "receiver used more than once in the replacement with a potentially side-effecting expression"
	}
	bound := make(map[string]BoundValue)
	remaining := CallArgs{Positional: site.Call.Args[1:], Keywords: site.Call.Keywords, Star: site.Call.Star, DoubleStar: site.Call.DoubleStar}
	rest, err := BindArguments(info.Parameters[1:], remaining)
	if err != nil {
		return nil, nil, false, err.Error()
	}
	for k, v := range rest {
		bound[k] = v
	}
	if err := BindReceiver(info.Parameters, site.Receiver, "", bound); err != nil {
		return nil, nil, false, err.Error()
	}
	return info, bound, true, ""
}

func (rw *Rewriter) resolveAttributeCall(ctx context.Context, file, source string, result *marker.CollectionResult, site Candidate) (*marker.ReplaceInfo, map[string]BoundValue, bool, string) {
	class, ok := rw.resolveClass(ctx, file, source, site.Receiver)
	if !ok {
		return nil, nil, false, ""
	}
	info, ok := lookupInMRO(result, result.Inheritance, class, site.Name, methodKinds)
	if !ok {
		return nil, nil, false, ""
	}

	bound := make(map[string]BoundValue)
	var err error
	var rest map[string]BoundValue
	switch info.ConstructKind {
	case marker.StaticMethod:
		rest, err = BindArguments(info.Parameters, callArgsFrom(site.Call))
	case marker.ClassMethod:
		rest, err = BindArguments(info.Parameters[1:], callArgsFrom(site.Call))
		if err == nil {
			err = BindReceiver(info.Parameters, nil, simpleName(class), bound)
		}
	default: // InstanceMethod, Property
		rest, err = BindArguments(info.Parameters[1:], callArgsFrom(site.Call))
		if err == nil {
			err = BindReceiver(info.Parameters, site.Receiver, "", bound)
		}
	}
	if err != nil {
		return nil, nil, false, err.Error()
	}
	for k, v := range rest {
		bound[k] = v
	}
	return info, bound, true, ""
}

func (rw *Rewriter) resolveAttributeAccess(ctx context.Context, file, source string, locals map[string]bool, result *marker.CollectionResult, site Candidate) (*marker.ReplaceInfo, map[string]BoundValue, bool, string) {
	if name, ok := site.Attr.Value.(*cst.Name); ok && !locals[name.Id] {
		if moduleQualified, ok := result.ImportBindings[name.Id]; ok {
			qualified := moduleQualified + "." + site.Name
			if info, ok := result.Replacements[qualified]; ok && info.ConstructKind == marker.ModuleAttribute {
				return info, map[string]BoundValue{}, true, ""
			}
		}
	}
	class, ok := rw.resolveClass(ctx, file, source, site.Receiver)
	if !ok {
		return nil, nil, false, ""
	}
	info, ok := lookupInMRO(result, result.Inheritance, class, site.Name, attrKinds)
	if !ok {
		return nil, nil, false, ""
	}
	return info, map[string]BoundValue{}, true, ""
}

// resolveBareName implements scenario 5 of spec.md §8: a module attribute
// referenced by its bare name (no `M.` prefix needed, whether because it
// is imported directly or simply defined in the same file) is itself a
// rewrite site, not just a use via `M.A`.
func (rw *Rewriter) resolveBareName(result *marker.CollectionResult, moduleQualified string, locals map[string]bool, site Candidate) (*marker.ReplaceInfo, map[string]BoundValue, bool, string) {
	info, ok := resolveQualifiedName(result, moduleQualified, locals, site.Name)
	if !ok || info.ConstructKind != marker.ModuleAttribute {
		return nil, nil, false, ""
	}
	return info, map[string]BoundValue{}, true, ""
}

func (rw *Rewriter) resolveClass(ctx context.Context, file, source string, receiver cst.Expr) (string, bool) {
	if rw.Resolver == nil || receiver == nil {
		return "", false
	}
	offset := receiver.End() - 1
	if offset < receiver.Start() {
		offset = receiver.Start()
	}
	text := source[receiver.Start():receiver.End()]
	return rw.Resolver.ResolveReceiverType(ctx, file, offset, text)
}

var methodKinds = map[marker.ConstructKind]bool{
	marker.InstanceMethod: true,
	marker.ClassMethod:    true,
	marker.StaticMethod:   true,
	marker.Property:       true,
}

var attrKinds = map[marker.ConstructKind]bool{
	marker.ClassAttribute: true,
}

// lookupInMRO walks class's linearized method-resolution order looking
// for a Replacements entry named "<ancestor>.<name>" whose kind is one of
// wantKinds, returning the first (most-derived) match.
func lookupInMRO(result *marker.CollectionResult, inheritance map[string][]string, class, name string, wantKinds map[marker.ConstructKind]bool) (*marker.ReplaceInfo, bool) {
	for _, ancestor := range marker.Linearize(inheritance, class) {
		qualified := ancestor + "." + name
		if info, ok := result.Replacements[qualified]; ok && wantKinds[info.ConstructKind] {
			return info, true
		}
	}
	return nil, false
}

func callArgsFrom(call *cst.Call) CallArgs {
	return CallArgs{Positional: call.Args, Keywords: call.Keywords, Star: call.Star, DoubleStar: call.DoubleStar}
}

func simpleName(qualified string) string {
	if i := strings.LastIndex(qualified, "."); i >= 0 {
		return qualified[i+1:]
	}
	return qualified
}

func refCount(tmpl cst.Expr, name string) int {
	n := 0
	cst.Walk(tmpl, func(node cst.Node) bool {
		if id, ok := node.(*cst.Name); ok && id.Id == name {
			n++
		}
		return true
	})
	return n
}

// hasSideEffects is a conservative approximation: only a bare name or
// literal constant is assumed free of side effects, so any compound
// receiver expression (a call, an attribute chain, a subscript) blocks a
// multi-use builtin-dispatch rewrite per spec.md §4.4's magic-method
// rule.
func hasSideEffects(e cst.Expr) bool {
	switch e.(type) {
	case *cst.Name, *cst.Constant:
		return false
	default:
		return true
	}
}
