package rewrite

import (
	"context"
	"testing"
	"time"

	"github.com/moltlang/molt/pkg/cst"
	"github.com/moltlang/molt/pkg/marker"
	"github.com/moltlang/molt/pkg/typeresolve"
)

func mustParse(t *testing.T, src string) *cst.Module {
	t.Helper()
	mod, err := cst.Parse(src, "site.mod")
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	return mod
}

func collect(t *testing.T, mod *cst.Module) *marker.CollectionResult {
	t.Helper()
	return marker.NewCollector("site.mod", "site").Collect(mod)
}

// fakeBackend/fakeSession let a test pin the declaring class a receiver
// resolves to without spawning a real type checker.
type fakeBackend struct {
	class string
	ok    bool
}

func (b *fakeBackend) Open(ctx context.Context, file, contents string) (typeresolve.Session, error) {
	return &fakeSession{class: b.class, ok: b.ok}, nil
}

type fakeSession struct {
	class string
	ok    bool
}

func (s *fakeSession) Query(ctx context.Context, offset int, receiverText string) (string, bool, error) {
	return s.class, s.ok, nil
}

func (s *fakeSession) Close() error { return nil }

func newResolver(class string, ok bool) *typeresolve.Resolver {
	r := typeresolve.New(typeresolve.Config{Backend: &fakeBackend{class: class, ok: ok}, Timeout: time.Second})
	r.OpenFile(context.Background(), "site.mod", "")
	return r
}

func TestRewriteRenameOfFreeFunction(t *testing.T) {
	src := "@replace_me(since=\"0.1.0\")\ndef inc(x):\n    return x + 1\n\nresult = inc(x=3)\n"
	mod := mustParse(t, src)
	result := collect(t, mod)

	rw := NewRewriter(nil, nil)
	out, applied, warnings, progress := rw.Rewrite(context.Background(), "site.mod", "site", src, mod, result)

	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}
	want := "@replace_me(since=\"0.1.0\")\ndef inc(x):\n    return x + 1\n\nresult = 3 + 1\n"
	if out != want {
		t.Fatalf("Rewrite() source = %q, want %q", out, want)
	}
	if len(applied) != 1 {
		t.Fatalf("expected 1 applied replacement, got %d", len(applied))
	}
	if progress.State != Reprinted || progress.Applied != 1 {
		t.Errorf("progress = %+v, want Reprinted/1", progress)
	}
}

func TestRewriteMethodWithKnownReceiver(t *testing.T) {
	src := "class C:\n    @replace_me\n    def old(self, n):\n        return self.new(n*2)\n\nobj.old(5)\n"
	mod := mustParse(t, src)
	result := collect(t, mod)

	rw := NewRewriter(newResolver("site.C", true), nil)
	out, applied, _, _ := rw.Rewrite(context.Background(), "site.mod", "site", src, mod, result)

	want := "class C:\n    @replace_me\n    def old(self, n):\n        return self.new(n*2)\n\nobj.new(5 * 2)\n"
	if out != want {
		t.Fatalf("Rewrite() source = %q, want %q", out, want)
	}
	if len(applied) != 1 {
		t.Fatalf("expected 1 applied replacement, got %d", len(applied))
	}
}

func TestRewriteMethodWithUnknownReceiverLeftUnchanged(t *testing.T) {
	src := "class C:\n    @replace_me\n    def old(self, n):\n        return self.new(n*2)\n\nobj.old(5)\n"
	mod := mustParse(t, src)
	result := collect(t, mod)

	rw := NewRewriter(newResolver("", false), nil)
	out, applied, _, progress := rw.Rewrite(context.Background(), "site.mod", "site", src, mod, result)

	if out != src {
		t.Fatalf("expected source unchanged, got %q", out)
	}
	if len(applied) != 0 {
		t.Fatalf("expected no applied replacements, got %d", len(applied))
	}
	if progress.State != Unchanged {
		t.Errorf("progress.State = %v, want Unchanged", progress.State)
	}
}

func TestRewriteClassmethod(t *testing.T) {
	src := "class C:\n    @classmethod\n    @replace_me\n    def old_cm(cls, d):\n        return cls.new_cm(d.strip())\n\nC.old_cm(\"  hi  \")\n"
	mod := mustParse(t, src)
	result := collect(t, mod)

	rw := NewRewriter(newResolver("site.C", true), nil)
	out, applied, _, _ := rw.Rewrite(context.Background(), "site.mod", "site", src, mod, result)

	want := "class C:\n    @classmethod\n    @replace_me\n    def old_cm(cls, d):\n        return cls.new_cm(d.strip())\n\nC.new_cm(\"  hi  \".strip())\n"
	if out != want {
		t.Fatalf("Rewrite() source = %q, want %q", out, want)
	}
	if len(applied) != 1 {
		t.Fatalf("expected 1 applied replacement, got %d", len(applied))
	}
}

func TestRewriteAsyncAwait(t *testing.T) {
	src := "@replace_me\nasync def old(url):\n    return await new(url, timeout=30)\n\nawait old(\"u\")\n"
	mod := mustParse(t, src)
	result := collect(t, mod)

	rw := NewRewriter(nil, nil)
	out, applied, _, _ := rw.Rewrite(context.Background(), "site.mod", "site", src, mod, result)

	want := "@replace_me\nasync def old(url):\n    return await new(url, timeout=30)\n\nawait new(\"u\", timeout=30)\n"
	if out != want {
		t.Fatalf("Rewrite() source = %q, want %q", out, want)
	}
	if len(applied) != 1 {
		t.Fatalf("expected 1 applied replacement, got %d", len(applied))
	}
}

func TestRewriteModuleAttribute(t *testing.T) {
	src := "OLD_URL = replace_me(\"https://x/v2\")\n\nu = OLD_URL\n"
	mod := mustParse(t, src)
	result := collect(t, mod)

	rw := NewRewriter(nil, nil)
	out, applied, _, _ := rw.Rewrite(context.Background(), "site.mod", "site", src, mod, result)

	want := "OLD_URL = replace_me(\"https://x/v2\")\n\nu = \"https://x/v2\"\n"
	if out != want {
		t.Fatalf("Rewrite() source = %q, want %q", out, want)
	}
	if len(applied) != 1 {
		t.Fatalf("expected 1 applied replacement, got %d", len(applied))
	}
}

func TestRewriteShadowedImportNotRewritten(t *testing.T) {
	src := "from m import inc\n\ndef inc(x):\n    return x\n\ninc(3)\n"
	mod := mustParse(t, src)
	result := collect(t, mod)
	// Simulate the transitively-collected deprecated "inc" the import refers to.
	result.Replacements["m.inc"] = &marker.ReplaceInfo{
		QualifiedName:       "m.inc",
		SimpleName:          "inc",
		ConstructKind:       marker.FreeFunction,
		Parameters:          []marker.ParameterInfo{{Name: "x"}},
		ReplacementTemplate: mustExpr(t, "x + 1"),
	}

	rw := NewRewriter(nil, nil)
	out, applied, _, progress := rw.Rewrite(context.Background(), "site.mod", "site", src, mod, result)

	if out != src {
		t.Fatalf("expected shadowed call left unchanged, got %q", out)
	}
	if len(applied) != 0 {
		t.Fatalf("expected no applied replacements, got %d", len(applied))
	}
	if progress.State != Unchanged {
		t.Errorf("progress.State = %v, want Unchanged", progress.State)
	}
}

func mustExpr(t *testing.T, src string) cst.Expr {
	t.Helper()
	mod, err := cst.Parse(src+"\n", "tmpl.mod")
	if err != nil {
		t.Fatalf("parse template expr: %v", err)
	}
	stmt, ok := mod.Body[0].(*cst.ExprStmt)
	if !ok {
		t.Fatalf("expected expression statement, got %T", mod.Body[0])
	}
	return stmt.X
}
