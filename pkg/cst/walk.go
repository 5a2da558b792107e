package cst

// Walk traverses node and every descendant in depth-first pre-order, calling
// fn on each. If fn returns false, Walk does not descend into that node's
// children (but continues with its siblings). This is the single visitor
// the tree passes in the pipeline (Collector, Rewriter) build on,
// rather than each package hand-rolling its own tree recursion.
func Walk(node Node, fn func(Node) bool) {
	if node == nil {
		return
	}
	if !fn(node) {
		return
	}
	for _, child := range node.children() {
		Walk(child, fn)
	}
}

// Find returns the first node for which match returns true, in pre-order,
// or nil if none matches.
func Find(node Node, match func(Node) bool) Node {
	var found Node
	Walk(node, func(n Node) bool {
		if found != nil {
			return false
		}
		if match(n) {
			found = n
			return false
		}
		return true
	})
	return found
}

// FuncDefs collects every function definition reachable from node, including
// methods nested inside class bodies.
func FuncDefs(node Node) []*FuncDef {
	var out []*FuncDef
	Walk(node, func(n Node) bool {
		if fd, ok := n.(*FuncDef); ok {
			out = append(out, fd)
		}
		return true
	})
	return out
}

// ClassDefs collects every class definition reachable from node.
func ClassDefs(node Node) []*ClassDef {
	var out []*ClassDef
	Walk(node, func(n Node) bool {
		if cd, ok := n.(*ClassDef); ok {
			out = append(out, cd)
		}
		return true
	})
	return out
}
