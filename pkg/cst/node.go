package cst

// Node is implemented by every concrete syntax tree node. Positions are
// byte offsets into the source text the node was parsed from.
type Node interface {
	Start() int
	End() int
	Raw() string // exact original source text for Name/Constant/Opaque leaves; "" for every other node
	children() []Node
}

type base struct {
	start, end int
	raw        string
}

func (b base) Start() int  { return b.start }
func (b base) End() int    { return b.end }
func (b base) Raw() string { return b.raw }

// Module is the root of a parsed file.
type Module struct {
	base
	Body []Stmt
}

func (m *Module) children() []Node {
	out := make([]Node, len(m.Body))
	for i, s := range m.Body {
		out[i] = s
	}
	return out
}

// Stmt is any statement-level node.
type Stmt interface {
	Node
	stmtNode()
}

// Expr is any expression-level node.
type Expr interface {
	Node
	exprNode()
}

// Decorator is a single `@name(...)` application.
type Decorator struct {
	base
	Call Expr // Name or Call
}

func (d *Decorator) children() []Node { return []Node{d.Call} }

// Param describes one formal parameter of a function or lambda.
type Param struct {
	Name       string
	Default    Expr // nil if no default
	Star       bool // *args
	DoubleStar bool // **kwargs
	KeywordOnly bool
}

// FuncDef is `[async] def name(params): body`.
type FuncDef struct {
	base
	Name       string
	Async      bool
	Params     []Param
	Decorators []*Decorator
	Body       []Stmt
	HeaderEnd  int // byte offset just past the ':' ending the signature
}

func (f *FuncDef) stmtNode() {}
func (f *FuncDef) children() []Node {
	out := make([]Node, 0, len(f.Decorators)+len(f.Body))
	for _, d := range f.Decorators {
		out = append(out, d)
	}
	for _, s := range f.Body {
		out = append(out, s)
	}
	return out
}

// ClassDef is `class Name(bases): body`.
type ClassDef struct {
	base
	Name       string
	Bases      []Expr
	Decorators []*Decorator
	Body       []Stmt
}

func (c *ClassDef) stmtNode() {}
func (c *ClassDef) children() []Node {
	out := make([]Node, 0, len(c.Decorators)+len(c.Bases)+len(c.Body))
	for _, d := range c.Decorators {
		out = append(out, d)
	}
	for _, b := range c.Bases {
		out = append(out, b)
	}
	for _, s := range c.Body {
		out = append(out, s)
	}
	return out
}

// Assign is `target = value`.
type Assign struct {
	base
	Target Expr
	Value  Expr
}

func (a *Assign) stmtNode() {}
func (a *Assign) children() []Node { return []Node{a.Target, a.Value} }

// Return is `return [await] [value]`.
type Return struct {
	base
	Await bool
	Value Expr // nil for bare `return`
}

func (r *Return) stmtNode() {}
func (r *Return) children() []Node {
	if r.Value == nil {
		return nil
	}
	return []Node{r.Value}
}

// ExprStmt is a bare expression used as a statement (e.g. a call site).
type ExprStmt struct {
	base
	X Expr
}

func (e *ExprStmt) stmtNode() {}
func (e *ExprStmt) children() []Node { return []Node{e.X} }

// Pass is the no-op statement.
type Pass struct{ base }

func (p *Pass) stmtNode()         {}
func (p *Pass) children() []Node { return nil }

// ImportAlias is one `name [as asname]` entry in an import statement.
type ImportAlias struct {
	Name   string
	AsName string // "" if no `as` clause
}

// Import is `import a.b.c [as x], ...`.
type Import struct {
	base
	Names []ImportAlias
}

func (i *Import) stmtNode()         {}
func (i *Import) children() []Node { return nil }

// ImportFrom is `from [.]module import a [as x], ...` or `from m import *`.
type ImportFrom struct {
	base
	Level  int // number of leading dots (relative import depth)
	Module string
	Star   bool
	Names  []ImportAlias
}

func (i *ImportFrom) stmtNode()         {}
func (i *ImportFrom) children() []Node { return nil }

// --- Expressions ---

// Name is a bare identifier reference.
type Name struct {
	base
	Id string
}

func (n *Name) exprNode()        {}
func (n *Name) children() []Node { return nil }

// Constant is a literal: string, number, True/False/None.
type Constant struct {
	base
	Literal string // exact source text of the literal, quoting preserved
}

func (c *Constant) exprNode()        {}
func (c *Constant) children() []Node { return nil }

// Attribute is `value.attr`.
type Attribute struct {
	base
	Value Expr
	Attr  string
}

func (a *Attribute) exprNode()        {}
func (a *Attribute) children() []Node { return []Node{a.Value} }

// Keyword is a `name=value` call argument.
type Keyword struct {
	Name  string // "" for **kwargs
	Value Expr
}

// Call is `func(args, *star, name=kw, **dstar)`.
type Call struct {
	base
	Func     Expr
	Args     []Expr
	Keywords []Keyword
	Star     Expr // *args expansion, nil if absent
	DoubleStar Expr // **kwargs expansion, nil if absent
}

func (c *Call) exprNode() {}
func (c *Call) children() []Node {
	out := []Node{c.Func}
	for _, a := range c.Args {
		out = append(out, a)
	}
	for _, k := range c.Keywords {
		out = append(out, k.Value)
	}
	if c.Star != nil {
		out = append(out, c.Star)
	}
	if c.DoubleStar != nil {
		out = append(out, c.DoubleStar)
	}
	return out
}

// BinOp is `left op right`.
type BinOp struct {
	base
	Left  Expr
	Op    string
	Right Expr
}

func (b *BinOp) exprNode()        {}
func (b *BinOp) children() []Node { return []Node{b.Left, b.Right} }

// UnaryOp is `op operand`.
type UnaryOp struct {
	base
	Op      string
	Operand Expr
}

func (u *UnaryOp) exprNode()        {}
func (u *UnaryOp) children() []Node { return []Node{u.Operand} }

// Await is `await value`.
type Await struct {
	base
	Value Expr
}

func (a *Await) exprNode()        {}
func (a *Await) children() []Node { return []Node{a.Value} }

// Starred is `*value` used inside a call argument list.
type Starred struct {
	base
	Value Expr
}

func (s *Starred) exprNode()        {}
func (s *Starred) children() []Node { return []Node{s.Value} }

// Lambda is `lambda params: body`. Its Params introduce a new binding scope
// that hygienic substitution must not reach into (spec.md's hygiene rule).
type Lambda struct {
	base
	Params []Param
	Body   Expr
}

func (l *Lambda) exprNode() {}
func (l *Lambda) children() []Node {
	return []Node{l.Body}
}

// Comprehension is a list/set/dict/generator comprehension. Like Lambda, its
// loop variables introduce a binding scope that substitution must respect.
type Comprehension struct {
	base
	Element Expr   // the projected element (or key for dict comprehensions)
	Value   Expr   // dict-comprehension value part, nil otherwise
	Vars    []string
	Iter    Expr
	Ifs     []Expr
}

func (c *Comprehension) exprNode() {}
func (c *Comprehension) children() []Node {
	out := []Node{c.Element}
	if c.Value != nil {
		out = append(out, c.Value)
	}
	out = append(out, c.Iter)
	for _, cond := range c.Ifs {
		out = append(out, cond)
	}
	return out
}

// Opaque is a syntax form the grammar recognizes structurally (balanced
// brackets, a subscript, a list/dict/set display, an f-string) but does not
// decompose further. It is treated as a black box by substitution: it is
// never itself a substitution target unless its Raw text is exactly a
// parameter name, and free names inside it are not rewritten. This keeps
// the parser's scope bounded to what the Collector/Rewriter actually need
// (see SPEC_FULL.md, Source Model) without pretending to be a complete
// grammar for the target language.
type Opaque struct {
	base
}

func (o *Opaque) exprNode()        {}
func (o *Opaque) children() []Node { return nil }

// String renders a Param's name with its `*`/`**` prefix, without its default.
func (p Param) String() string {
	switch {
	case p.Star:
		return "*" + p.Name
	case p.DoubleStar:
		return "**" + p.Name
	default:
		return p.Name
	}
}
