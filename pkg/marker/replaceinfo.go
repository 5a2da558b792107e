// Package marker implements the Marker Collector: it walks a parsed source
// file (and, up to a bounded depth, the files it imports) looking for
// deprecated constructs and extracts a replacement template for each one it
// can. The two-phase shape — collect every candidate across a file set,
// then let a later phase (pkg/rewrite) consume the aggregated result — is
// carried over from the teacher's own TranspileFiles collect/apply split.
package marker

import "github.com/moltlang/molt/pkg/cst"

// ConstructKind enumerates the shapes a deprecated construct can take.
type ConstructKind int

const (
	FreeFunction ConstructKind = iota
	AsyncFunction
	InstanceMethod
	ClassMethod
	StaticMethod
	Property
	Class
	ClassAttribute
	ModuleAttribute
)

func (k ConstructKind) String() string {
	switch k {
	case FreeFunction:
		return "free function"
	case AsyncFunction:
		return "async function"
	case InstanceMethod:
		return "instance method"
	case ClassMethod:
		return "class method"
	case StaticMethod:
		return "static method"
	case Property:
		return "property"
	case Class:
		return "class"
	case ClassAttribute:
		return "class attribute"
	case ModuleAttribute:
		return "module attribute"
	default:
		return "unknown"
	}
}

// ParameterInfo describes one formal parameter of a replaceable construct.
// For methods, the implicit receiver is recorded as parameters[0].
type ParameterInfo struct {
	Name               string
	HasDefault         bool
	DefaultSourceText  string
	VariadicPositional bool // *args
	VariadicKeyword    bool // **kwargs
	KeywordOnly        bool
}

// ReplaceInfo is the immutable record produced for one successfully
// collected deprecated construct. Values are created once per collection
// run and never mutated afterward — the Rewriter only ever reads them.
type ReplaceInfo struct {
	QualifiedName string
	SimpleName    string
	ConstructKind ConstructKind
	Parameters    []ParameterInfo

	// ReplacementTemplate is the parsed expression extracted from the
	// construct's body. Normalize (template.go) checks that none of its
	// free identifiers is both a parameter name and a global name.
	ReplacementTemplate cst.Expr

	Since    string // "" if not specified
	RemoveIn string // "" if not specified
	Message  string // "" if not specified

	DeclaringClass string // "" if not nested in a class

	// File and Pos locate the construct's definition for diagnostics.
	File string
	Pos  int
}

// FailureReason enumerates why a candidate marker could not produce a
// ReplaceInfo.
type FailureReason string

const (
	ComplexBody                 FailureReason = "complex_body"
	NoReturn                    FailureReason = "no_return"
	RecursiveCall                FailureReason = "recursive_call"
	LambdaBody                  FailureReason = "lambda"
	DynamicMarkerArgs            FailureReason = "dynamic_marker_args"
	SyntacticallyInvalidTemplate FailureReason = "syntactically_invalid_template"
)

// UnreplaceableConstruct is recorded when the Collector recognizes a marker
// application but cannot derive a usable template from it.
type UnreplaceableConstruct struct {
	QualifiedName string
	ConstructKind ConstructKind
	FailureReason FailureReason
	Message       string
	File          string
	Pos           int

	// Since/RemoveIn carry whatever literal marker arguments the Collector
	// managed to parse before giving up on the template itself, so cleanup
	// mode can still evaluate a version boundary against a construct it
	// could never have rewritten a call site for.
	Since    string
	RemoveIn string
}

// CollectionResult is everything the Collector learned about one module:
// its own deprecated constructs plus, transitively, those of its imports up
// to the configured depth.
type CollectionResult struct {
	Replacements  map[string]*ReplaceInfo
	Unreplaceable map[string]*UnreplaceableConstruct

	// Inheritance maps a class's qualified name to its immediate base
	// classes' qualified names, as written in the source (not linearized);
	// MRO linearization happens at lookup time in pkg/rewrite.
	Inheritance map[string][]string

	// ImportBindings maps a name bound into the file's scope (via `import`
	// or `from ... import ...`) to the qualified name it refers to. The
	// Rewriter's name-binding analysis consults this to resolve bare
	// identifiers at call sites back to a ReplaceInfo.
	ImportBindings map[string]string
}

// NewCollectionResult returns an empty, ready-to-populate result.
func NewCollectionResult() *CollectionResult {
	return &CollectionResult{
		Replacements:   make(map[string]*ReplaceInfo),
		Unreplaceable:  make(map[string]*UnreplaceableConstruct),
		Inheritance:    make(map[string][]string),
		ImportBindings: make(map[string]string),
	}
}

// Merge folds other into r, keeping r's entries on collision (the file
// being collected first — typically the target file itself — wins over a
// transitively imported module of the same qualified name; a duplicate
// qualified name across modules is not itself an error, and the collision
// is resolved silently: Merge reports nothing about it).
func (r *CollectionResult) Merge(other *CollectionResult) {
	for name, info := range other.Replacements {
		if _, exists := r.Replacements[name]; !exists {
			r.Replacements[name] = info
		}
	}
	for name, u := range other.Unreplaceable {
		if _, exists := r.Unreplaceable[name]; !exists {
			r.Unreplaceable[name] = u
		}
	}
	for class, bases := range other.Inheritance {
		if _, exists := r.Inheritance[class]; !exists {
			r.Inheritance[class] = bases
		}
	}
	for local, qualified := range other.ImportBindings {
		if _, exists := r.ImportBindings[local]; !exists {
			r.ImportBindings[local] = qualified
		}
	}
}

// Add records a successfully collected construct, enforcing the invariant
// that a qualified name never appears in both Replacements and
// Unreplaceable (spec data-model invariant #1).
func (r *CollectionResult) Add(info *ReplaceInfo) {
	delete(r.Unreplaceable, info.QualifiedName)
	r.Replacements[info.QualifiedName] = info
}

// AddUnreplaceable records a recognized-but-unusable marker, respecting the
// same invariant from the other direction.
func (r *CollectionResult) AddUnreplaceable(u *UnreplaceableConstruct) {
	if _, ok := r.Replacements[u.QualifiedName]; ok {
		return
	}
	r.Unreplaceable[u.QualifiedName] = u
}
