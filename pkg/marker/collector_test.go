package marker

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/moltlang/molt/pkg/cst"
)

func mustParse(t *testing.T, src string) *cst.Module {
	t.Helper()
	mod, err := cst.Parse(src, "test.mod")
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	return mod
}

func TestCollectFreeFunction(t *testing.T) {
	src := "@replace_me(since=\"0.1.0\")\ndef inc(x):\n    return x + 1\n"
	mod := mustParse(t, src)
	res := NewCollector("pkg.mod", "pkg.mod").Collect(mod)

	info, ok := res.Replacements["pkg.mod.inc"]
	if !ok {
		t.Fatalf("expected pkg.mod.inc in replacements, got %v", res.Replacements)
	}
	if info.ConstructKind != FreeFunction {
		t.Errorf("expected FreeFunction, got %v", info.ConstructKind)
	}
	if info.Since != "0.1.0" {
		t.Errorf("expected since=0.1.0, got %q", info.Since)
	}
	if len(info.Parameters) != 1 || info.Parameters[0].Name != "x" {
		t.Errorf("expected single parameter 'x', got %#v", info.Parameters)
	}
}

func TestCollectRecursiveTemplateRejected(t *testing.T) {
	src := "@replace_me\ndef old(n):\n    return old(n-1)\n"
	mod := mustParse(t, src)
	res := NewCollector("pkg.mod", "pkg.mod").Collect(mod)

	if _, ok := res.Replacements["pkg.mod.old"]; ok {
		t.Fatalf("expected pkg.mod.old NOT in replacements")
	}
	u, ok := res.Unreplaceable["pkg.mod.old"]
	if !ok {
		t.Fatalf("expected pkg.mod.old in unreplaceable")
	}
	if u.FailureReason != RecursiveCall {
		t.Errorf("expected recursive_call, got %v", u.FailureReason)
	}
}

func TestCollectComplexBodyRejected(t *testing.T) {
	src := "@replace_me\ndef old(n):\n    x = n + 1\n    return x\n"
	mod := mustParse(t, src)
	res := NewCollector("pkg.mod", "pkg.mod").Collect(mod)

	u, ok := res.Unreplaceable["pkg.mod.old"]
	if !ok {
		t.Fatalf("expected pkg.mod.old in unreplaceable")
	}
	if u.FailureReason != ComplexBody {
		t.Errorf("expected complex_body, got %v", u.FailureReason)
	}
}

func TestCollectMethodWithReceiver(t *testing.T) {
	src := "class C:\n    @replace_me\n    def old(self, n):\n        return self.new(n * 2)\n"
	mod := mustParse(t, src)
	res := NewCollector("pkg.mod", "pkg.mod").Collect(mod)

	info, ok := res.Replacements["pkg.mod.C.old"]
	if !ok {
		t.Fatalf("expected pkg.mod.C.old in replacements, got %v", res.Replacements)
	}
	if info.ConstructKind != InstanceMethod {
		t.Errorf("expected InstanceMethod, got %v", info.ConstructKind)
	}
	if info.DeclaringClass != "pkg.mod.C" {
		t.Errorf("expected declaring class pkg.mod.C, got %q", info.DeclaringClass)
	}
	if len(info.Parameters) != 2 || info.Parameters[0].Name != "self" {
		t.Errorf("expected receiver parameter 'self' first, got %#v", info.Parameters)
	}
}

func TestCollectClassMethod(t *testing.T) {
	src := "class C:\n    @classmethod\n    @replace_me\n    def old_cm(cls, d):\n        return cls.new_cm(d.strip())\n"
	mod := mustParse(t, src)
	res := NewCollector("pkg.mod", "pkg.mod").Collect(mod)

	info, ok := res.Replacements["pkg.mod.C.old_cm"]
	if !ok {
		t.Fatalf("expected pkg.mod.C.old_cm in replacements")
	}
	if info.ConstructKind != ClassMethod {
		t.Errorf("expected ClassMethod, got %v", info.ConstructKind)
	}
}

func TestCollectAsyncFunction(t *testing.T) {
	src := "@replace_me\nasync def old(url):\n    return await new(url, timeout=30)\n"
	mod := mustParse(t, src)
	res := NewCollector("pkg.mod", "pkg.mod").Collect(mod)

	info, ok := res.Replacements["pkg.mod.old"]
	if !ok {
		t.Fatalf("expected pkg.mod.old in replacements")
	}
	if info.ConstructKind != AsyncFunction {
		t.Errorf("expected AsyncFunction, got %v", info.ConstructKind)
	}
}

func TestCollectModuleAttribute(t *testing.T) {
	src := "OLD_URL = replace_me(\"https://x/v2\")\n"
	mod := mustParse(t, src)
	res := NewCollector("pkg.mod", "pkg.mod").Collect(mod)

	info, ok := res.Replacements["pkg.mod.OLD_URL"]
	if !ok {
		t.Fatalf("expected pkg.mod.OLD_URL in replacements")
	}
	if info.ConstructKind != ModuleAttribute {
		t.Errorf("expected ModuleAttribute, got %v", info.ConstructKind)
	}
	lit, ok := literalString(info.ReplacementTemplate)
	if !ok || lit != "https://x/v2" {
		t.Errorf("expected template literal https://x/v2, got %q (ok=%v)", lit, ok)
	}
}

func TestCollectImportBindings(t *testing.T) {
	src := "from m import inc\nimport other.pkg as op\n"
	mod := mustParse(t, src)
	res := NewCollector("pkg.mod", "pkg.mod").Collect(mod)

	if res.ImportBindings["inc"] != "m.inc" {
		t.Errorf("expected inc -> m.inc, got %q", res.ImportBindings["inc"])
	}
	if res.ImportBindings["op"] != "other.pkg" {
		t.Errorf("expected op -> other.pkg, got %q", res.ImportBindings["op"])
	}
}

func TestInheritanceCollectedAndLinearized(t *testing.T) {
	src := "class A:\n    pass\n\nclass B(A):\n    pass\n\nclass C(B):\n    pass\n"
	mod := mustParse(t, src)
	res := NewCollector("pkg.mod", "pkg.mod").Collect(mod)

	order := Linearize(res.Inheritance, "pkg.mod.C")
	want := []string{"pkg.mod.C", "pkg.mod.B", "pkg.mod.A"}
	if diff := cmp.Diff(want, order); diff != "" {
		t.Errorf("Linearize() mismatch (-want +got):\n%s", diff)
	}
	if !IsSubclassOf(res.Inheritance, "pkg.mod.C", "pkg.mod.A") {
		t.Errorf("expected C to be a subclass of A")
	}
}

func TestNormalizeRejectsAmbiguousFreeName(t *testing.T) {
	src := "@replace_me\ndef old(n):\n    return n + g\n"
	mod := mustParse(t, src)
	res := NewCollector("pkg.mod", "pkg.mod").Collect(mod)
	info := res.Replacements["pkg.mod.old"]

	if err := Normalize(info, map[string]bool{"n": true}); err == nil {
		t.Fatalf("expected ambiguous-free-name error when 'n' is both param and global")
	}
	if err := Normalize(info, map[string]bool{"g": true}); err != nil {
		t.Errorf("expected no error when only 'g' is global: %v", err)
	}
}
