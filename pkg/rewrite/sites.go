package rewrite

import (
	"sort"

	"github.com/moltlang/molt/pkg/cst"
)

// SiteKind classifies a candidate rewrite site per spec.md §4.4's
// call-site identification paragraph.
type SiteKind int

const (
	DirectCall SiteKind = iota
	AttributeCall
	AttributeAccess
	BuiltinCall
	BareName
)

func (k SiteKind) String() string {
	switch k {
	case DirectCall:
		return "direct_call"
	case AttributeCall:
		return "attribute_call"
	case AttributeAccess:
		return "attribute_access"
	case BuiltinCall:
		return "builtin_call"
	case BareName:
		return "bare_name"
	default:
		return "unknown"
	}
}

// Candidate is one syntactic site that might be a deprecated construct's
// use, before name-binding/type resolution decides whether it actually is
// one. Sites are returned in lexical source order (DiscoverSites sorts
// them by start offset), which is the order the interactive prompt loop
// offers them in.
type Candidate struct {
	Kind SiteKind

	// Node is the full expression that a successful rewrite replaces:
	// the Call for DirectCall/AttributeCall/BuiltinCall, the Attribute
	// itself for AttributeAccess.
	Node cst.Expr

	Call *cst.Call      // non-nil for DirectCall, AttributeCall, BuiltinCall
	Attr *cst.Attribute // non-nil for AttributeCall (its Func) and AttributeAccess

	// Name is the bare identifier for DirectCall, the method/attribute
	// name for AttributeCall/AttributeAccess, or the dunder method name
	// (already translated via dunderFor) for BuiltinCall.
	Name string

	// Receiver is the expression whose resolved class matters: the
	// object e in e.m(...)/e.a/g(e). Nil for DirectCall.
	Receiver cst.Expr
}

// DiscoverSites walks mod and returns every candidate site, in source
// order. It performs no name-binding or type resolution — that is the
// Rewriter's job, since it alone has the CollectionResult and Resolver a
// candidate must be checked against.
func DiscoverSites(mod *cst.Module) []Candidate {
	var sites []Candidate
	consumedAttr := make(map[*cst.Attribute]bool)
	consumedName := make(map[*cst.Name]bool)

	cst.Walk(mod, func(n cst.Node) bool {
		switch node := n.(type) {
		case *cst.Call:
			switch fn := node.Func.(type) {
			case *cst.Name:
				consumedName[fn] = true
				if dunder, ok := dunderFor(fn.Id); ok && len(node.Args) >= 1 {
					sites = append(sites, Candidate{
						Kind:     BuiltinCall,
						Node:     node,
						Call:     node,
						Name:     dunder,
						Receiver: node.Args[0],
					})
				} else {
					sites = append(sites, Candidate{
						Kind: DirectCall,
						Node: node,
						Call: node,
						Name: fn.Id,
					})
				}
			case *cst.Attribute:
				consumedAttr[fn] = true
				sites = append(sites, Candidate{
					Kind:     AttributeCall,
					Node:     node,
					Call:     node,
					Attr:     fn,
					Name:     fn.Attr,
					Receiver: fn.Value,
				})
			}
		case *cst.Assign:
			// The left-hand side of an assignment is a binding site, not a
			// use, and must never be substituted.
			if n, ok := node.Target.(*cst.Name); ok {
				consumedName[n] = true
			}
		}
		return true
	})

	cst.Walk(mod, func(n cst.Node) bool {
		attr, ok := n.(*cst.Attribute)
		if !ok {
			return true
		}
		if consumedAttr[attr] {
			return true
		}
		sites = append(sites, Candidate{
			Kind:     AttributeAccess,
			Node:     attr,
			Attr:     attr,
			Name:     attr.Attr,
			Receiver: attr.Value,
		})
		return true
	})

	cst.Walk(mod, func(n cst.Node) bool {
		name, ok := n.(*cst.Name)
		if !ok || consumedName[name] {
			return true
		}
		sites = append(sites, Candidate{
			Kind: BareName,
			Node: name,
			Name: name.Id,
		})
		return true
	})

	sort.SliceStable(sites, func(i, j int) bool {
		return sites[i].Node.Start() < sites[j].Node.Start()
	})
	return sites
}

// LocalBindings returns every name reassigned, redefined as a function, or
// redefined as a class anywhere at mod's top level. An import-bound name
// that also appears here is shadowed for the whole file: spec.md's
// name-binding rule is scope-chain-precise ("no local definition shadows
// it in the enclosing scope chain up to that use" and "x is not assigned
// to before the use in its own scope"); this collapses both conditions to
// a single module-level check rather than tracking per-function scopes
// and per-use position, a deliberate simplification documented alongside
// the rest of the Rewriter's grounding.
func LocalBindings(mod *cst.Module) map[string]bool {
	locals := make(map[string]bool)
	for _, stmt := range mod.Body {
		switch s := stmt.(type) {
		case *cst.Assign:
			if n, ok := s.Target.(*cst.Name); ok {
				locals[n.Id] = true
			}
		case *cst.FuncDef:
			locals[s.Name] = true
		case *cst.ClassDef:
			locals[s.Name] = true
		}
	}
	return locals
}
