package driver

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/moltlang/molt/pkg/cst"
	"github.com/moltlang/molt/pkg/marker"
	"github.com/moltlang/molt/pkg/rewrite"
	"github.com/moltlang/molt/pkg/typeresolve"
)

// Driver ties the Source Model, Marker Collector, Type Resolver, and
// Call-site Rewriter together across a set of files, the orchestration
// role the teacher's compileDirectory plays for a single directory of
// .peak files, generalized to a bounded worker pool over an arbitrary
// file/dir argument list (spec.md §4.5).
type Driver struct {
	Config *Config
	Logger *zap.Logger
}

// New returns a Driver ready to run any of Migrate/Cleanup/Check/Info.
func New(cfg *Config, logger *zap.Logger) *Driver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Driver{Config: cfg, Logger: logger}
}

func parseFile(path string) (*cst.Module, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return cst.Parse(string(data), path)
}

func backendFor(cfg *Config) typeresolve.Backend {
	switch cfg.Backend {
	case BackendPyright:
		return &typeresolve.LSPBackend{
			Command: func(ctx context.Context) *exec.Cmd {
				return exec.CommandContext(ctx, "pyright-langserver", "--stdio")
			},
		}
	case BackendMypy:
		return &typeresolve.DaemonBackend{
			Command: func(ctx context.Context, file string, offset int, receiverText string) *exec.Cmd {
				return exec.CommandContext(ctx, "mypy", "--resolve-at", fmt.Sprintf("%s:%d", file, offset), receiverText)
			},
		}
	default:
		return nil
	}
}

func (d *Driver) newResolver() *typeresolve.Resolver {
	return typeresolve.New(typeresolve.Config{
		Backend: backendFor(d.Config),
		Timeout: time.Duration(d.Config.Timeout) * time.Second,
		Logger:  d.Logger,
	})
}

// Migrate rewrites every deprecated construct's call sites across roots,
// writing changes to disk if cfg.Write is set, or printing the rewritten
// source to stdout otherwise (spec.md §6's default behavior).
func (d *Driver) Migrate(ctx context.Context, roots []string) ([]FileOutcome, error) {
	files, err := discoverFiles(roots)
	if err != nil {
		return nil, wrapError(IOError, "", err)
	}

	resolver := d.newResolver()
	resolve := newModuleResolver(d.Config)

	var interactive rewrite.InteractiveFunc
	if d.Config.Interactive {
		interactive = PromptLoop(os.Stdin, os.Stdout)
	}

	p := newPool(ctx, d.Config.Jobs)
	outcomes := make([]FileOutcome, len(files))
	for i, file := range files {
		i, file := i, file
		p.Go(func(ctx context.Context) error {
			outcomes[i] = d.migrateOne(ctx, file, resolver, resolve, interactive)
			return nil
		})
	}
	_ = p.Wait()
	return outcomes, nil
}

func (d *Driver) migrateOne(ctx context.Context, file string, resolver *typeresolve.Resolver, resolve func(string, string) (string, string, bool), interactive rewrite.InteractiveFunc) FileOutcome {
	mod, source, err := d.parseAndRead(file)
	if err != nil {
		d.Logger.Warn("parse failed, skipping file", zap.String("file", file), zap.Error(err))
		return FileOutcome{Path: file, Error: wrapError(ParseError, file, err)}
	}

	moduleQualified := qualifiedModuleName(file, d.Config)
	result := marker.CollectTransitive(mod, file, moduleQualified, resolve, parseFile, d.Config.ImportMaxDepth)

	resolver.OpenFile(ctx, file, source)
	defer resolver.CloseFile(file)

	rw := rewrite.NewRewriter(resolver, interactive)
	out, applied, warnings, progress := rw.Rewrite(ctx, file, moduleQualified, source, mod, result)

	fileWarnings := make([]Warning, 0, len(warnings))
	for _, w := range warnings {
		d.Logger.Warn(w.Message, zap.String("file", file), zap.Int("line", w.Line), zap.Int("column", w.Column))
		fileWarnings = append(fileWarnings, Warning{File: file, Line: w.Line, Column: w.Column, Message: w.Message})
	}
	for _, w := range unreplaceableWarnings(source, file, result) {
		d.Logger.Warn(w.Message, zap.String("file", file), zap.Int("line", w.Line), zap.Int("column", w.Column))
		fileWarnings = append(fileWarnings, w)
	}

	modified := out != source
	if modified && !d.Config.Check {
		if d.Config.Write {
			if err := atomicWrite(file, out); err != nil {
				return FileOutcome{Path: file, Error: wrapError(IOError, file, err)}
			}
		} else {
			fmt.Println(out)
		}
	}

	_ = progress
	return FileOutcome{Path: file, Modified: modified, ReplaceableCount: len(applied), Warnings: fileWarnings}
}

// Check behaves exactly like Migrate but never writes, regardless of
// cfg.Write — the `check` subcommand's whole purpose is the dry-run exit
// code spec.md §6 defines for --check.
func (d *Driver) Check(ctx context.Context, roots []string) ([]FileOutcome, error) {
	checkCfg := *d.Config
	checkCfg.Write = false
	checkCfg.Check = true
	sub := &Driver{Config: &checkCfg, Logger: d.Logger}
	return sub.Migrate(ctx, roots)
}

// Cleanup removes deprecated definitions whose since/remove_in satisfy
// cfg's boundary mode, per spec.md §4.5.
func (d *Driver) Cleanup(ctx context.Context, roots []string) ([]FileOutcome, error) {
	files, err := discoverFiles(roots)
	if err != nil {
		return nil, wrapError(IOError, "", err)
	}
	resolve := newModuleResolver(d.Config)

	p := newPool(ctx, d.Config.Jobs)
	outcomes := make([]FileOutcome, len(files))
	for i, file := range files {
		i, file := i, file
		p.Go(func(ctx context.Context) error {
			outcomes[i] = d.cleanupOne(file, resolve)
			return nil
		})
	}
	_ = p.Wait()
	return outcomes, nil
}

func (d *Driver) cleanupOne(file string, resolve func(string, string) (string, string, bool)) FileOutcome {
	mod, source, err := d.parseAndRead(file)
	if err != nil {
		return FileOutcome{Path: file, Error: wrapError(ParseError, file, err)}
	}

	moduleQualified := qualifiedModuleName(file, d.Config)
	result := marker.CollectTransitive(mod, file, moduleQualified, resolve, parseFile, d.Config.ImportMaxDepth)

	warnings := unreplaceableWarnings(source, file, result)
	for _, w := range warnings {
		d.Logger.Warn(w.Message, zap.String("file", file), zap.Int("line", w.Line), zap.Int("column", w.Column))
	}

	edits, err := cleanupEdits(d.Config, mod, file, moduleQualified, source, result)
	if err != nil {
		return FileOutcome{Path: file, Error: newError(FatalConfigurationError, file, "%v", err)}
	}
	if len(edits) == 0 {
		return FileOutcome{Path: file, Modified: false, Warnings: warnings}
	}

	out := cst.Reprint(source, edits)
	if !d.Config.Check {
		if d.Config.Write {
			if err := atomicWrite(file, out); err != nil {
				return FileOutcome{Path: file, Error: wrapError(IOError, file, err)}
			}
		} else {
			fmt.Println(out)
		}
	}
	return FileOutcome{Path: file, Modified: true, ReplaceableCount: len(edits), Warnings: warnings}
}

// Info reports how many @replace_me constructs each file declares,
// without resolving call sites or rewriting anything.
func (d *Driver) Info(ctx context.Context, roots []string) ([]FileOutcome, error) {
	files, err := discoverFiles(roots)
	if err != nil {
		return nil, wrapError(IOError, "", err)
	}

	p := newPool(ctx, d.Config.Jobs)
	outcomes := make([]FileOutcome, len(files))
	for i, file := range files {
		i, file := i, file
		p.Go(func(ctx context.Context) error {
			outcomes[i] = d.infoOne(file)
			return nil
		})
	}
	_ = p.Wait()
	return outcomes, nil
}

func (d *Driver) infoOne(file string) FileOutcome {
	mod, source, err := d.parseAndRead(file)
	if err != nil {
		return FileOutcome{Path: file, Error: wrapError(ParseError, file, err)}
	}
	moduleQualified := qualifiedModuleName(file, d.Config)
	result := marker.NewCollector(file, moduleQualified).Collect(mod)
	warnings := unreplaceableWarnings(source, file, result)
	for _, w := range warnings {
		d.Logger.Warn(w.Message, zap.String("file", file), zap.Int("line", w.Line), zap.Int("column", w.Column))
	}
	return FileOutcome{Path: file, ReplaceableCount: len(result.Replacements), Warnings: warnings}
}

func (d *Driver) parseAndRead(file string) (*cst.Module, string, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, "", err
	}
	source := string(data)
	mod, err := cst.Parse(source, file)
	if err != nil {
		return nil, "", err
	}
	return mod, source, nil
}

// atomicWrite writes contents to path via a temp-file-then-rename
// sequence in the same directory, so an interrupted write never leaves a
// half-written source file in place, per spec.md §6's file I/O contract.
func atomicWrite(path, contents string) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".molt-"+filepath.Base(path)+"-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.WriteString(contents); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if info, statErr := os.Stat(path); statErr == nil {
		os.Chmod(tmpName, info.Mode())
	}
	return os.Rename(tmpName, path)
}
