package marker

import (
	"fmt"
	"strings"

	"github.com/moltlang/molt/pkg/cst"
)

// markerName is the decorator/function-call name that flags a construct as
// deprecated (spec's "deprecation marker format").
const markerName = "replace_me"

// Collector walks one parsed module and produces a CollectionResult for it.
// A Collector instance is scoped to a single file; merging results across
// a file's transitive imports is done by CollectTransitive (imports.go).
type Collector struct {
	file          string // for diagnostics
	moduleQualified string // dotted path prefix used to build qualified names
}

// NewCollector returns a Collector for one file, identified by its dotted
// module path (e.g. "pkg.mod" for pkg/mod.<ext>).
func NewCollector(file, moduleQualified string) *Collector {
	return &Collector{file: file, moduleQualified: moduleQualified}
}

// Collect walks mod's top level and every class body one level deep,
// looking for marker applications, and returns everything it found. It
// never returns an error: a malformed individual construct is recorded as
// an UnreplaceableConstruct rather than aborting the whole collection,
// matching spec.md §7's "maximally non-fatal" policy at this layer.
func (c *Collector) Collect(mod *cst.Module) *CollectionResult {
	res := NewCollectionResult()
	c.collectImportBindings(mod, res)
	for _, stmt := range mod.Body {
		switch s := stmt.(type) {
		case *cst.FuncDef:
			c.collectFuncDef(s, "", res)
		case *cst.ClassDef:
			c.collectClassDef(s, res)
		case *cst.Assign:
			c.collectAssign(s, "", res)
		}
	}
	return res
}

func (c *Collector) qualify(parts ...string) string {
	all := append([]string{c.moduleQualified}, parts...)
	return strings.Join(all, ".")
}

// markerDecorator reports whether d applies the marker, either as a bare
// `@replace_me` or as `@replace_me(...)`, and returns the Call node to pull
// keyword arguments from (nil for the bare form, which carries none).
func markerDecorator(d *cst.Decorator) (*cst.Call, bool) {
	switch v := d.Call.(type) {
	case *cst.Name:
		return nil, v.Id == markerName
	case *cst.Call:
		if callNamed(v, markerName) != nil {
			return v, true
		}
	}
	return nil, false
}

// callNamed returns call if its callee is a bare Name equal to name
// (decorators are never written as `@pkg.replace_me` in this grammar's
// marker convention), and nil otherwise.
func callNamed(call *cst.Call, name string) *cst.Call {
	if n, ok := call.Func.(*cst.Name); ok && n.Id == name {
		return call
	}
	return nil
}

// findMarker returns the marker Call (nil for a bare `@replace_me`) and
// whether any decorator in decorators applied the marker at all.
func findMarker(decorators []*cst.Decorator) (*cst.Call, bool) {
	for _, d := range decorators {
		if call, found := markerDecorator(d); found {
			return call, true
		}
	}
	return nil, false
}

// markerArgs extracts since/remove_in/message from a marker call's keyword
// arguments. Per spec.md §4.2 step 2, every argument must be evaluable as a
// literal; anything else is reported via ok=false so the caller can record
// dynamic_marker_args. call is nil for a bare `@replace_me` decorator, which
// carries no arguments at all.
func markerArgs(call *cst.Call) (since, removeIn, message string, ok bool) {
	ok = true
	if call == nil {
		return
	}
	for _, kw := range call.Keywords {
		lit, isLit := literalString(kw.Value)
		if !isLit {
			ok = false
			continue
		}
		switch kw.Name {
		case "since":
			since = lit
		case "remove_in":
			removeIn = lit
		case "message":
			message = lit
		}
	}
	return
}

// literalString returns the unquoted contents of a string-constant
// expression, or ok=false if e is not a simple string literal.
func literalString(e cst.Expr) (string, bool) {
	c, ok := e.(*cst.Constant)
	if !ok {
		return "", false
	}
	lit := c.Literal
	if len(lit) < 2 {
		return "", false
	}
	if lit[0] != '"' && lit[0] != '\'' {
		return "", false
	}
	return strings.Trim(lit, `"'`), true
}

func (c *Collector) collectFuncDef(fn *cst.FuncDef, declaringClass string, res *CollectionResult) {
	marker, found := findMarker(fn.Decorators)
	if !found {
		return
	}
	kind := c.funcKind(fn, declaringClass)
	qualified := c.qualify(qualParts(declaringClass, fn.Name)...)

	since, removeIn, message, literalOK := markerArgs(marker)
	if !literalOK {
		res.AddUnreplaceable(&UnreplaceableConstruct{
			QualifiedName: qualified, ConstructKind: kind,
			FailureReason: DynamicMarkerArgs,
			Message:       "marker arguments must be string literals",
			File:          c.file, Pos: fn.Start(),
			Since: since, RemoveIn: removeIn,
		})
		return
	}

	template, reason, msg := extractFuncTemplate(fn)
	if reason != "" {
		res.AddUnreplaceable(&UnreplaceableConstruct{
			QualifiedName: qualified, ConstructKind: kind,
			FailureReason: reason, Message: msg,
			File: c.file, Pos: fn.Start(),
			Since: since, RemoveIn: removeIn,
		})
		return
	}

	params := paramInfos(fn.Params, kind)
	res.Add(&ReplaceInfo{
		QualifiedName:       qualified,
		SimpleName:          fn.Name,
		ConstructKind:       kind,
		Parameters:          params,
		ReplacementTemplate: template,
		Since:               since,
		RemoveIn:            removeIn,
		Message:             message,
		DeclaringClass:      declaringClassQualified(declaringClass, c.moduleQualified),
		File:                c.file,
		Pos:                 fn.Start(),
	})
}

func qualParts(declaringClass, name string) []string {
	if declaringClass == "" {
		return []string{name}
	}
	return []string{declaringClass, name}
}

func declaringClassQualified(declaringClass, moduleQualified string) string {
	if declaringClass == "" {
		return ""
	}
	return moduleQualified + "." + declaringClass
}

// funcKind classifies a FuncDef by its own decorators and nesting, per the
// construct_kind taxonomy in spec.md §3.
func (c *Collector) funcKind(fn *cst.FuncDef, declaringClass string) ConstructKind {
	hasDecorator := func(name string) bool {
		for _, d := range fn.Decorators {
			if n, ok := d.Call.(*cst.Name); ok && n.Id == name {
				return true
			}
		}
		return false
	}
	switch {
	case declaringClass == "":
		if fn.Async {
			return AsyncFunction
		}
		return FreeFunction
	case hasDecorator("property"):
		return Property
	case hasDecorator("classmethod"):
		return ClassMethod
	case hasDecorator("staticmethod"):
		return StaticMethod
	case fn.Async:
		return AsyncFunction
	default:
		return InstanceMethod
	}
}

// extractFuncTemplate implements spec.md §4.2 step 3's function/method rule:
// the body must be exactly one return (or return-await) statement.
func extractFuncTemplate(fn *cst.FuncDef) (cst.Expr, FailureReason, string) {
	if len(fn.Body) != 1 {
		return nil, ComplexBody, "marked construct body must be a single return statement"
	}
	ret, ok := fn.Body[0].(*cst.Return)
	if !ok {
		return nil, ComplexBody, "marked construct body must be a single return statement"
	}
	if ret.Value == nil {
		return nil, NoReturn, "return has no value"
	}
	if containsSelfCall(ret.Value, fn.Name) {
		return nil, RecursiveCall, fmt.Sprintf("template calls %q recursively", fn.Name)
	}
	if _, isLambda := ret.Value.(*cst.Lambda); isLambda {
		// A template that IS a lambda (as opposed to one that merely
		// contains one, e.g. `sorted(xs, key=lambda x: x.y)`) has no
		// coherent call-site substitution: the construct is being called
		// like a function, not assigned like a value. A lambda nested
		// inside an otherwise normal template is fine and is substituted
		// hygienically by pkg/rewrite.
		return nil, LambdaBody, "replacement template is itself a bare lambda expression"
	}
	return ret.Value, "", ""
}

// containsSelfCall reports whether expr contains a call whose callee is a
// bare or attribute reference to name, approximating spec.md's "calls the
// construct's own name with the same arity" check: any same-name call
// inside the template is rejected, not just exact-arity ones, since an
// author writing a genuinely different-arity same-name call inside a
// one-line template would be unusual and this stays safely conservative.
func containsSelfCall(expr cst.Expr, name string) bool {
	found := false
	cst.Walk(expr, func(n cst.Node) bool {
		if found {
			return false
		}
		call, ok := n.(*cst.Call)
		if !ok {
			return true
		}
		switch fn := call.Func.(type) {
		case *cst.Name:
			if fn.Id == name {
				found = true
			}
		case *cst.Attribute:
			if fn.Attr == name {
				found = true
			}
		}
		return true
	})
	return found
}

// paramInfos converts parsed cst.Param values into ParameterInfo, one per
// declared parameter and in declaration order, so a method's declared
// self/cls parameter ends up as parameters[0]; nothing is inserted.
func paramInfos(params []cst.Param, kind ConstructKind) []ParameterInfo {
	// The first declared parameter of an instance/class method (self/cls)
	// already serves as the receiver slot; no synthetic insertion needed.
	out := make([]ParameterInfo, 0, len(params))
	for _, p := range params {
		info := ParameterInfo{
			Name:               p.Name,
			HasDefault:         p.Default != nil,
			VariadicPositional: p.Star,
			VariadicKeyword:    p.DoubleStar,
			KeywordOnly:        p.KeywordOnly,
		}
		if p.Default != nil {
			info.DefaultSourceText = p.Default.Raw()
		}
		out = append(out, info)
	}
	return out
}

func (c *Collector) collectClassDef(cd *cst.ClassDef, res *CollectionResult) {
	// Record inheritance regardless of whether the class itself is marked
	// deprecated — the Rewriter needs the full class graph for MRO walks.
	var bases []string
	for _, b := range cd.Bases {
		if n, ok := b.(*cst.Name); ok {
			bases = append(bases, c.moduleQualified+"."+n.Id)
		} else if a, ok := b.(*cst.Attribute); ok {
			bases = append(bases, flattenAttribute(a))
		}
	}
	if len(bases) > 0 {
		res.Inheritance[c.moduleQualified+"."+cd.Name] = bases
	}

	if marker, found := findMarker(cd.Decorators); found {
		c.collectMarkedClass(cd, marker, res)
	}

	for _, stmt := range cd.Body {
		switch s := stmt.(type) {
		case *cst.FuncDef:
			c.collectFuncDef(s, cd.Name, res)
		case *cst.Assign:
			c.collectAssign(s, cd.Name, res)
		}
	}
}

func flattenAttribute(a *cst.Attribute) string {
	switch v := a.Value.(type) {
	case *cst.Name:
		return v.Id + "." + a.Attr
	case *cst.Attribute:
		return flattenAttribute(v) + "." + a.Attr
	default:
		return a.Attr
	}
}

// collectMarkedClass implements spec.md §4.2 step 3's class rule: look for
// an __init__ satisfying the function rule (ignoring `self.X = ...`
// assignments), whose single effective statement is either a
// `Replacement(...)` marker call or a bare call to another class.
func (c *Collector) collectMarkedClass(cd *cst.ClassDef, marker *cst.Call, res *CollectionResult) {
	qualified := c.moduleQualified + "." + cd.Name
	since, removeIn, message, literalOK := markerArgs(marker)
	if !literalOK {
		res.AddUnreplaceable(&UnreplaceableConstruct{
			QualifiedName: qualified, ConstructKind: Class,
			FailureReason: DynamicMarkerArgs, Message: "marker arguments must be string literals",
			File: c.file, Pos: cd.Start(),
			Since: since, RemoveIn: removeIn,
		})
		return
	}

	var init *cst.FuncDef
	for _, stmt := range cd.Body {
		if fn, ok := stmt.(*cst.FuncDef); ok && fn.Name == "__init__" {
			init = fn
			break
		}
	}
	if init == nil {
		res.AddUnreplaceable(&UnreplaceableConstruct{
			QualifiedName: qualified, ConstructKind: Class,
			FailureReason: ComplexBody, Message: "no __init__ to derive a replacement template from",
			File: c.file, Pos: cd.Start(),
			Since: since, RemoveIn: removeIn,
		})
		return
	}

	template, reason, msg := extractClassTemplate(init)
	if reason != "" {
		res.AddUnreplaceable(&UnreplaceableConstruct{
			QualifiedName: qualified, ConstructKind: Class,
			FailureReason: reason, Message: msg,
			File: c.file, Pos: cd.Start(),
			Since: since, RemoveIn: removeIn,
		})
		return
	}

	res.Add(&ReplaceInfo{
		QualifiedName:       qualified,
		SimpleName:          cd.Name,
		ConstructKind:       Class,
		Parameters:          paramInfos(init.Params, Class),
		ReplacementTemplate: template,
		Since:               since,
		RemoveIn:            removeIn,
		Message:             message,
		File:                c.file,
		Pos:                 cd.Start(),
	})
}

func extractClassTemplate(init *cst.FuncDef) (cst.Expr, FailureReason, string) {
	var candidate cst.Expr
	for _, stmt := range init.Body {
		if isSelfAssign(stmt) {
			continue
		}
		exprStmt, ok := stmt.(*cst.ExprStmt)
		if !ok {
			return nil, ComplexBody, "__init__ body has a statement that is not a self-assignment or a single call"
		}
		call, isCall := exprStmt.X.(*cst.Call)
		if !isCall {
			return nil, ComplexBody, "__init__ body must reduce to a single call expression"
		}
		if replacement := callNamed(call, "Replacement"); replacement != nil && len(replacement.Args) == 1 {
			candidate = replacement.Args[0]
			continue
		}
		if candidate != nil {
			return nil, ComplexBody, "__init__ contains more than one candidate replacement call"
		}
		candidate = call
	}
	if candidate == nil {
		return nil, ComplexBody, "no replacement call found in __init__"
	}
	return candidate, "", ""
}

func isSelfAssign(stmt cst.Stmt) bool {
	a, ok := stmt.(*cst.Assign)
	if !ok {
		return false
	}
	attr, ok := a.Target.(*cst.Attribute)
	if !ok {
		return false
	}
	n, ok := attr.Value.(*cst.Name)
	return ok && n.Id == "self"
}

// collectAssign handles the attribute-deprecation form `NAME = replace_me(VALUE)`.
func (c *Collector) collectAssign(a *cst.Assign, declaringClass string, res *CollectionResult) {
	name, ok := a.Target.(*cst.Name)
	if !ok {
		return
	}
	call, ok := a.Value.(*cst.Call)
	if !ok {
		return
	}
	marker := callNamed(call, markerName)
	if marker == nil {
		return
	}
	kind := ModuleAttribute
	if declaringClass != "" {
		kind = ClassAttribute
	}
	qualified := c.qualify(qualParts(declaringClass, name.Id)...)

	if len(marker.Args) != 1 {
		res.AddUnreplaceable(&UnreplaceableConstruct{
			QualifiedName: qualified, ConstructKind: kind,
			FailureReason: SyntacticallyInvalidTemplate,
			Message:       "attribute marker must take exactly one value argument",
			File:          c.file, Pos: a.Start(),
		})
		return
	}
	res.Add(&ReplaceInfo{
		QualifiedName:       qualified,
		SimpleName:          name.Id,
		ConstructKind:       kind,
		ReplacementTemplate: marker.Args[0],
		DeclaringClass:      declaringClassQualified(declaringClass, c.moduleQualified),
		File:                c.file,
		Pos:                 a.Start(),
	})
}

// collectImportBindings populates res.ImportBindings from the module's
// top-level import statements, ahead of the recursive import walk in
// imports.go which resolves each binding's target module into a
// CollectionResult of its own.
func (c *Collector) collectImportBindings(mod *cst.Module, res *CollectionResult) {
	for _, stmt := range mod.Body {
		switch s := stmt.(type) {
		case *cst.Import:
			for _, alias := range s.Names {
				local := alias.Name
				if alias.AsName != "" {
					local = alias.AsName
				}
				res.ImportBindings[local] = alias.Name
			}
		case *cst.ImportFrom:
			for _, alias := range s.Names {
				local := alias.Name
				if alias.AsName != "" {
					local = alias.AsName
				}
				qualified := alias.Name
				if s.Module != "" {
					qualified = s.Module + "." + alias.Name
				}
				res.ImportBindings[local] = qualified
			}
		}
	}
}
