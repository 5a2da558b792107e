package marker

import (
	"github.com/moltlang/molt/pkg/cst"
)

// MaxImportDepth is the default bound on how far the Collector follows
// `import`/`from ... import ...` chains (spec.md §4.2 step 6).
const MaxImportDepth = 2

// ModuleResolver maps a dotted module name, as written in an import
// statement of fromFile, to the file path and qualified module name the
// Collector should parse next. ok is false if the module could not be
// located by the target language's module resolution order (package
// __init__ file, sibling file, then search roots) — the Driver supplies a
// concrete implementation of this policy (pkg/driver/resolve.go's
// newModuleResolver, which probes Config.SearchRoots), keeping the
// path-probing filesystem logic out of this package.
type ModuleResolver func(moduleName, fromFile string) (path, qualified string, ok bool)

// CollectTransitive collects file's own constructs and, up to maxDepth,
// those of every module it imports, merging everything into one result.
// Imported modules are memoized by resolved path so an import cycle
// terminates instead of recursing forever, grounded in the teacher's
// findPeakFiles walk generalized from a directory walk to a module graph
// walk.
func CollectTransitive(mod *cst.Module, file, qualified string, resolve ModuleResolver, parse func(path string) (*cst.Module, error), maxDepth int) *CollectionResult {
	visited := make(map[string]bool)
	return collectTransitive(mod, file, qualified, resolve, parse, maxDepth, visited)
}

func collectTransitive(mod *cst.Module, file, qualified string, resolve ModuleResolver, parse func(string) (*cst.Module, error), depth int, visited map[string]bool) *CollectionResult {
	visited[file] = true
	res := NewCollector(file, qualified).Collect(mod)
	if depth <= 0 {
		return res
	}

	for _, name := range importedModuleNames(mod) {
		path, theirQualified, ok := resolve(name, file)
		if !ok || visited[path] {
			continue
		}
		theirMod, err := parse(path)
		if err != nil {
			continue // a malformed imported module contributes nothing; not fatal here
		}
		theirResult := collectTransitive(theirMod, path, theirQualified, resolve, parse, depth-1, visited)
		res.Merge(theirResult)
	}
	return res
}

// importedModuleNames returns every distinct module named by an import
// statement at mod's top level, in source order.
func importedModuleNames(mod *cst.Module) []string {
	var names []string
	seen := make(map[string]bool)
	add := func(n string) {
		if n != "" && !seen[n] {
			seen[n] = true
			names = append(names, n)
		}
	}
	for _, stmt := range mod.Body {
		switch s := stmt.(type) {
		case *cst.Import:
			for _, alias := range s.Names {
				add(alias.Name)
			}
		case *cst.ImportFrom:
			add(s.Module)
		}
	}
	return names
}
