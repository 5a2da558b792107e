package cst

import "testing"

func TestParseModule(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		shouldError bool
	}{
		{
			name:  "simple function",
			input: "def inc(x):\n    return x + 1\n",
		},
		{
			name:  "decorated function with marker",
			input: "@replace_me(since=\"0.1.0\")\ndef inc(x):\n    return x + 1\n\nresult = inc(x=3)\n",
		},
		{
			name:  "class with init",
			input: "class C:\n    def __init__(self, n):\n        self.n = n\n",
		},
		{
			name:  "async function with await",
			input: "async def old(url):\n    return await new(url, timeout=30)\n",
		},
		{
			name:  "import forms",
			input: "import a.b.c\nfrom m import inc\nfrom . import sibling\n",
		},
		{
			name:  "mismatched indentation",
			input: "def f():\n    x = 1\n  y = 2\n",
			shouldError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.input, "test.mod")
			if tt.shouldError {
				if err == nil {
					t.Fatalf("expected parse error, got none")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected parse error: %v", err)
			}
		})
	}
}

func TestFormatPreservation(t *testing.T) {
	// No edits applied: Reprint must return the exact input, the
	// universal "format preservation" invariant from spec.md §8.
	inputs := []string{
		"def inc(x):\n    return x + 1\n",
		"x = 1  # trailing comment\ny = 2\n",
		"class C(Base):\n    def m(self):\n        pass\n",
	}
	for _, src := range inputs {
		mod, err := Parse(src, "test.mod")
		if err != nil {
			t.Fatalf("parse error: %v", err)
		}
		_ = mod
		got := Reprint(src, nil)
		if got != src {
			t.Errorf("Reprint with no edits changed source:\nwant %q\ngot  %q", src, got)
		}
	}
}

func TestReprintSingleEdit(t *testing.T) {
	src := "result = inc(x=3)\n"
	edits := []Edit{{Start: 9, End: 17, NewText: "3 + 1"}}
	got := Reprint(src, edits)
	want := "result = 3 + 1\n"
	if got != want {
		t.Errorf("Reprint() = %q, want %q", got, want)
	}
}

func TestReprintOverlappingEditsPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic on overlapping edits")
		}
	}()
	edits := []Edit{
		{Start: 0, End: 5, NewText: "a"},
		{Start: 3, End: 8, NewText: "b"},
	}
	Reprint("0123456789", edits)
}

func TestWalkVisitsFuncDefsAndClassDefs(t *testing.T) {
	src := "def f():\n    pass\n\nclass C:\n    def m(self):\n        pass\n"
	mod, err := Parse(src, "test.mod")
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	funcs := FuncDefs(mod)
	if len(funcs) != 2 {
		t.Fatalf("expected 2 func defs (f, m), got %d", len(funcs))
	}
	classes := ClassDefs(mod)
	if len(classes) != 1 || classes[0].Name != "C" {
		t.Fatalf("expected 1 class def C, got %v", classes)
	}
}

func TestParseExpressionPrecedence(t *testing.T) {
	src := "x = 1 + 2 * 3\n"
	mod, err := Parse(src, "test.mod")
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	assign, ok := mod.Body[0].(*Assign)
	if !ok {
		t.Fatalf("expected Assign, got %T", mod.Body[0])
	}
	bin, ok := assign.Value.(*BinOp)
	if !ok || bin.Op != "+" {
		t.Fatalf("expected top-level '+' BinOp, got %#v", assign.Value)
	}
	right, ok := bin.Right.(*BinOp)
	if !ok || right.Op != "*" {
		t.Fatalf("expected right-hand side to be a '*' BinOp (precedence), got %#v", bin.Right)
	}
}

func TestParseCallWithKeywordsAndStar(t *testing.T) {
	src := "f(1, 2, *rest, key=value, **extra)\n"
	mod, err := Parse(src, "test.mod")
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	stmt, ok := mod.Body[0].(*ExprStmt)
	if !ok {
		t.Fatalf("expected ExprStmt, got %T", mod.Body[0])
	}
	call, ok := stmt.X.(*Call)
	if !ok {
		t.Fatalf("expected Call, got %T", stmt.X)
	}
	if len(call.Args) != 2 {
		t.Errorf("expected 2 positional args, got %d", len(call.Args))
	}
	if call.Star == nil {
		t.Errorf("expected Star arg to be set")
	}
	if call.DoubleStar == nil {
		t.Errorf("expected DoubleStar arg to be set")
	}
	if len(call.Keywords) != 1 || call.Keywords[0].Name != "key" {
		t.Errorf("expected one keyword arg 'key', got %#v", call.Keywords)
	}
}

func TestLambdaHygieneShapeParses(t *testing.T) {
	src := "f = lambda x: g(x)\n"
	mod, err := Parse(src, "test.mod")
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	assign := mod.Body[0].(*Assign)
	lam, ok := assign.Value.(*Lambda)
	if !ok {
		t.Fatalf("expected Lambda, got %T", assign.Value)
	}
	if len(lam.Params) != 1 || lam.Params[0].Name != "x" {
		t.Fatalf("expected single param 'x', got %#v", lam.Params)
	}
}
