// Package rewrite implements the Call-site Rewriter: given a parsed file,
// the aggregated CollectionResult for it and its reachable imports, and a
// Type Resolver, it finds every call/attribute site whose target is a known
// deprecated construct, binds arguments to the construct's parameters, and
// substitutes the resulting expression.
package rewrite

// dunderBuiltins maps a builtin dispatching function name to the magic
// method it invokes on its single argument, per spec.md §4.4's fixed set.
var dunderBuiltins = map[string]string{
	"str":   "__str__",
	"repr":  "__repr__",
	"len":   "__len__",
	"bool":  "__bool__",
	"int":   "__int__",
	"float": "__float__",
	"bytes": "__bytes__",
	"hash":  "__hash__",
	"iter":  "__iter__",
	"next":  "__next__",
}

// dunderFor returns the magic method name a builtin dispatches to, and
// whether name is one of the recognized dunder-dispatching builtins.
func dunderFor(name string) (string, bool) {
	m, ok := dunderBuiltins[name]
	return m, ok
}
