package driver

import (
	"os"
	"path/filepath"
	"strings"
)

// initFileName is the package-marker file probed before falling back to a
// plain sibling module file, mirroring the target language's own package
// resolution (a directory with an __init__ file is a package; otherwise a
// same-named file is a plain module).
const initFileName = "__init__" + SourceExtension

// newModuleResolver returns a marker.ModuleResolver implementing spec.md
// §4.2 step 6's probing order — package init file, sibling module file,
// then cfg's search roots — relative first to the importing file's own
// directory, then to each configured root in order.
func newModuleResolver(cfg *Config) func(moduleName, fromFile string) (string, string, bool) {
	return func(moduleName, fromFile string) (string, string, bool) {
		segments := strings.Split(moduleName, ".")
		bases := append([]string{filepath.Dir(fromFile)}, cfg.SearchRoots...)
		for _, base := range bases {
			if path, ok := probeModule(base, segments); ok {
				return path, moduleName, true
			}
		}
		return "", "", false
	}
}

func probeModule(base string, segments []string) (string, bool) {
	pkgDir := filepath.Join(append([]string{base}, segments...)...)
	initPath := filepath.Join(pkgDir, initFileName)
	if fileExists(initPath) {
		return initPath, true
	}
	modulePath := pkgDir + SourceExtension
	if fileExists(modulePath) {
		return modulePath, true
	}
	return "", false
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// qualifiedModuleName derives the dotted module name a file is addressed
// by, relative to the nearest search root (or its own directory if none
// contains it), the same dotted-path convention import resolution itself
// uses.
func qualifiedModuleName(file string, cfg *Config) string {
	abs, err := filepath.Abs(file)
	if err != nil {
		abs = file
	}
	for _, root := range cfg.SearchRoots {
		if rel, err := filepath.Rel(root, abs); err == nil && !strings.HasPrefix(rel, "..") {
			return dottedFromRel(rel)
		}
	}
	base := filepath.Base(abs)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func dottedFromRel(rel string) string {
	rel = strings.TrimSuffix(rel, SourceExtension)
	rel = strings.TrimSuffix(rel, string(filepath.Separator)+"__init__")
	parts := strings.Split(rel, string(filepath.Separator))
	return strings.Join(parts, ".")
}
