package marker

// Linearize returns the method-resolution order for class, starting with
// class itself, walking base classes depth-first in the order they were
// written. Cycles in the input are tolerated (per spec.md §3) and broken by
// a visited-set guard rather than rejected outright; the Driver is
// responsible for surfacing a cycle as a warning if it wants to (callers
// can compare len(result) against a manual count of reachable nodes to
// detect one).
func Linearize(inheritance map[string][]string, class string) []string {
	var order []string
	visited := make(map[string]bool)
	var visit func(string)
	visit = func(name string) {
		if visited[name] {
			return
		}
		visited[name] = true
		order = append(order, name)
		for _, base := range inheritance[name] {
			visit(base)
		}
	}
	visit(class)
	return order
}

// IsSubclassOf reports whether class is class itself or transitively
// derives from ancestor, per the inheritance map built during collection.
func IsSubclassOf(inheritance map[string][]string, class, ancestor string) bool {
	for _, name := range Linearize(inheritance, class) {
		if name == ancestor {
			return true
		}
	}
	return false
}
