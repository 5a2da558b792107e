package cst

import (
	"fmt"
	"strings"
)

// Parser turns a token stream into a Module. It is a plain recursive-descent
// parser with a Pratt expression core; there is no error recovery — a
// malformed file yields one ParseError and nothing else, per spec.md §4.1
// ("the engine never attempts to repair").
type Parser struct {
	toks []Token
	pos  int
	src  string
	file string
}

// Parse parses a complete source file into a Module.
func Parse(src, file string) (*Module, error) {
	toks, err := Tokenize(src, file)
	if err != nil {
		return nil, err
	}
	p := &Parser{toks: toks, src: src, file: file}
	return p.parseModule()
}

func (p *Parser) cur() Token  { return p.toks[p.pos] }
func (p *Parser) at(k Kind) bool { return p.cur().Kind == k }
func (p *Parser) atOp(text string) bool { return p.cur().Kind == OP && p.cur().Text == text }
func (p *Parser) atName(text string) bool { return p.cur().Kind == NAME && p.cur().Text == text }

func (p *Parser) advance() Token {
	t := p.cur()
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *Parser) errf(format string, args ...any) error {
	t := p.cur()
	return &ParseError{Line: t.Line, Column: t.Column, Message: fmt.Sprintf(format, args...), File: p.file}
}

func (p *Parser) expectOp(text string) (Token, error) {
	if !p.atOp(text) {
		return Token{}, p.errf("expected %q, got %q", text, p.cur().Text)
	}
	return p.advance(), nil
}

func (p *Parser) expectName(what string) (Token, error) {
	if !p.at(NAME) {
		return Token{}, p.errf("expected %s, got %q", what, p.cur().Text)
	}
	return p.advance(), nil
}

func (p *Parser) skipNewlines() {
	for p.at(NEWLINE) {
		p.advance()
	}
}

func (p *Parser) parseModule() (*Module, error) {
	m := &Module{base: base{start: 0, end: len(p.src)}}
	p.skipNewlines()
	for !p.at(EOF) {
		s, err := p.parseStmt()
		if err != nil {
			return nil, err
		}
		m.Body = append(m.Body, s)
		p.skipNewlines()
	}
	return m, nil
}

// parseSuite parses an indented block: `:` NEWLINE INDENT {stmt} DEDENT, or
// a single simple statement on the same line as the header's colon.
func (p *Parser) parseSuite() ([]Stmt, error) {
	if _, err := p.expectOp(":"); err != nil {
		return nil, err
	}
	if !p.at(NEWLINE) {
		s, err := p.parseSimpleStmt()
		if err != nil {
			return nil, err
		}
		return []Stmt{s}, nil
	}
	p.skipNewlines()
	if !p.at(INDENT) {
		return nil, p.errf("expected an indented block")
	}
	p.advance()
	var body []Stmt
	for !p.at(DEDENT) && !p.at(EOF) {
		s, err := p.parseStmt()
		if err != nil {
			return nil, err
		}
		body = append(body, s)
		p.skipNewlines()
	}
	if p.at(DEDENT) {
		p.advance()
	}
	return body, nil
}

func (p *Parser) parseStmt() (Stmt, error) {
	var decorators []*Decorator
	for p.atOp("@") {
		d, err := p.parseDecorator()
		if err != nil {
			return nil, err
		}
		decorators = append(decorators, d)
		p.skipNewlines()
	}

	switch {
	case p.atName("def"):
		return p.parseFuncDef(false, decorators)
	case p.atName("async"):
		save := p.pos
		p.advance()
		if p.atName("def") {
			p.pos = save
			return p.parseFuncDef(true, decorators)
		}
		p.pos = save
	case p.atName("class"):
		return p.parseClassDef(decorators)
	}

	if len(decorators) > 0 {
		return nil, p.errf("decorator not followed by a function or class definition")
	}
	return p.parseSimpleStmt()
}

func (p *Parser) parseDecorator() (*Decorator, error) {
	start := p.cur().Start
	if _, err := p.expectOp("@"); err != nil {
		return nil, err
	}
	expr, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if p.at(NEWLINE) {
		p.advance()
	}
	return &Decorator{base: base{start: start, end: expr.End()}, Call: expr}, nil
}

func (p *Parser) parseParams() ([]Param, error) {
	var params []Param
	keywordOnly := false
	for !p.atOp(")") {
		if p.atOp("*") {
			p.advance()
			if p.atOp(",") { // bare `*` marks subsequent params keyword-only
				keywordOnly = true
				p.advance()
				continue
			}
			name, err := p.expectName("parameter name")
			if err != nil {
				return nil, err
			}
			params = append(params, Param{Name: name.Text, Star: true})
			keywordOnly = true
		} else if p.atOp("**") {
			p.advance()
			name, err := p.expectName("parameter name")
			if err != nil {
				return nil, err
			}
			params = append(params, Param{Name: name.Text, DoubleStar: true})
		} else {
			name, err := p.expectName("parameter name")
			if err != nil {
				return nil, err
			}
			param := Param{Name: name.Text, KeywordOnly: keywordOnly}
			if p.atOp(":") { // type annotation, skip
				p.advance()
				if _, err := p.parseExprNoTuple(); err != nil {
					return nil, err
				}
			}
			if p.atOp("=") {
				p.advance()
				def, err := p.parseExprNoTuple()
				if err != nil {
					return nil, err
				}
				param.Default = def
			}
			params = append(params, param)
		}
		if p.atOp(",") {
			p.advance()
			continue
		}
		break
	}
	return params, nil
}

func (p *Parser) parseFuncDef(async bool, decorators []*Decorator) (*FuncDef, error) {
	start := p.cur().Start
	if len(decorators) > 0 {
		start = decorators[0].Start()
	}
	if async {
		p.advance() // 'async'
	}
	p.advance() // 'def'
	name, err := p.expectName("function name")
	if err != nil {
		return nil, err
	}
	if _, err := p.expectOp("("); err != nil {
		return nil, err
	}
	params, err := p.parseParams()
	if err != nil {
		return nil, err
	}
	if _, err := p.expectOp(")"); err != nil {
		return nil, err
	}
	if p.atOp("->") { // return type annotation, skip
		p.advance()
		if _, err := p.parseExprNoTuple(); err != nil {
			return nil, err
		}
	}
	headerEnd := p.cur().Start
	body, err := p.parseSuite()
	if err != nil {
		return nil, err
	}
	end := headerEnd
	if len(body) > 0 {
		end = body[len(body)-1].End()
	}
	return &FuncDef{
		base:       base{start: start, end: end},
		Name:       name.Text,
		Async:      async,
		Params:     params,
		Decorators: decorators,
		Body:       body,
		HeaderEnd:  headerEnd,
	}, nil
}

func (p *Parser) parseClassDef(decorators []*Decorator) (*ClassDef, error) {
	start := p.cur().Start
	if len(decorators) > 0 {
		start = decorators[0].Start()
	}
	p.advance() // 'class'
	name, err := p.expectName("class name")
	if err != nil {
		return nil, err
	}
	var bases []Expr
	if p.atOp("(") {
		p.advance()
		for !p.atOp(")") {
			b, err := p.parseExprNoTuple()
			if err != nil {
				return nil, err
			}
			bases = append(bases, b)
			if p.atOp(",") {
				p.advance()
				continue
			}
			break
		}
		if _, err := p.expectOp(")"); err != nil {
			return nil, err
		}
	}
	body, err := p.parseSuite()
	if err != nil {
		return nil, err
	}
	end := p.cur().Start
	if len(body) > 0 {
		end = body[len(body)-1].End()
	}
	return &ClassDef{base: base{start: start, end: end}, Name: name.Text, Bases: bases, Decorators: decorators, Body: body}, nil
}

func (p *Parser) parseSimpleStmt() (Stmt, error) {
	start := p.cur().Start
	switch {
	case p.atName("pass"):
		p.advance()
		end := p.cur().Start
		p.consumeStmtEnd()
		return &Pass{base{start: start, end: end}}, nil
	case p.atName("return"):
		return p.parseReturn()
	case p.atName("import"):
		return p.parseImport()
	case p.atName("from"):
		return p.parseImportFrom()
	case p.atName("global"), p.atName("nonlocal"):
		p.advance()
		for p.at(NAME) {
			p.advance()
			if p.atOp(",") {
				p.advance()
				continue
			}
			break
		}
		end := p.cur().Start
		p.consumeStmtEnd()
		return &Pass{base{start: start, end: end}}, nil
	}

	expr, err := p.parseExprListAsTuple()
	if err != nil {
		return nil, err
	}
	if p.atOp("=") {
		p.advance()
		value, err := p.parseExprListAsTuple()
		for p.atOp("=") { // chained assignment a = b = value: keep rightmost
			p.advance()
			value, err = p.parseExprListAsTuple()
			if err != nil {
				return nil, err
			}
		}
		if err != nil {
			return nil, err
		}
		end := value.End()
		p.consumeStmtEnd()
		return &Assign{base: base{start: start, end: end}, Target: expr, Value: value}, nil
	}
	if isAugAssignOp(p.cur()) {
		p.advance()
		value, err := p.parseExprListAsTuple()
		if err != nil {
			return nil, err
		}
		end := value.End()
		p.consumeStmtEnd()
		return &Assign{base: base{start: start, end: end}, Target: expr, Value: value}, nil
	}
	end := expr.End()
	p.consumeStmtEnd()
	return &ExprStmt{base: base{start: start, end: end}, X: expr}, nil
}

func isAugAssignOp(t Token) bool {
	if t.Kind != OP {
		return false
	}
	switch t.Text {
	case "+=", "-=", "*=", "/=", "//=", "%=", "**=", "&=", "|=", "^=", "<<=", ">>=":
		return true
	}
	return false
}

// consumeStmtEnd allows `;`-separated simple statements on one logical line
// by only consuming up to the next NEWLINE/DEDENT/EOF.
func (p *Parser) consumeStmtEnd() {
	if p.atOp(";") {
		p.advance()
		return
	}
	if p.at(NEWLINE) {
		p.advance()
	}
}

func (p *Parser) parseReturn() (*Return, error) {
	start := p.cur().Start
	p.advance() // 'return'
	await := false
	if p.atName("await") {
		await = true
		p.advance()
	}
	if p.at(NEWLINE) || p.atOp(";") || p.at(DEDENT) || p.at(EOF) {
		end := p.cur().Start
		p.consumeStmtEnd()
		return &Return{base: base{start: start, end: end}, Await: await}, nil
	}
	value, err := p.parseExprListAsTuple()
	if err != nil {
		return nil, err
	}
	end := value.End()
	p.consumeStmtEnd()
	return &Return{base: base{start: start, end: end}, Await: await, Value: value}, nil
}

func (p *Parser) parseDottedName() (string, error) {
	var parts []string
	n, err := p.expectName("module name")
	if err != nil {
		return "", err
	}
	parts = append(parts, n.Text)
	for p.atOp(".") {
		p.advance()
		n, err := p.expectName("module name segment")
		if err != nil {
			return "", err
		}
		parts = append(parts, n.Text)
	}
	return strings.Join(parts, "."), nil
}

func (p *Parser) parseImportAliasList() ([]ImportAlias, error) {
	var names []ImportAlias
	for {
		n, err := p.expectName("imported name")
		if err != nil {
			return nil, err
		}
		alias := ImportAlias{Name: n.Text}
		if p.atName("as") {
			p.advance()
			as, err := p.expectName("alias")
			if err != nil {
				return nil, err
			}
			alias.AsName = as.Text
		}
		names = append(names, alias)
		if p.atOp(",") {
			p.advance()
			continue
		}
		break
	}
	return names, nil
}

func (p *Parser) parseImport() (*Import, error) {
	start := p.cur().Start
	p.advance() // 'import'
	var names []ImportAlias
	for {
		mod, err := p.parseDottedName()
		if err != nil {
			return nil, err
		}
		alias := ImportAlias{Name: mod}
		if p.atName("as") {
			p.advance()
			as, err := p.expectName("alias")
			if err != nil {
				return nil, err
			}
			alias.AsName = as.Text
		}
		names = append(names, alias)
		if p.atOp(",") {
			p.advance()
			continue
		}
		break
	}
	end := p.cur().Start
	p.consumeStmtEnd()
	return &Import{base: base{start: start, end: end}, Names: names}, nil
}

func (p *Parser) parseImportFrom() (*ImportFrom, error) {
	start := p.cur().Start
	p.advance() // 'from'
	level := 0
	for p.atOp(".") {
		level++
		p.advance()
	}
	module := ""
	if p.at(NAME) && !p.atName("import") {
		m, err := p.parseDottedName()
		if err != nil {
			return nil, err
		}
		module = m
	}
	if _, err := p.expectName2("import"); err != nil {
		return nil, err
	}
	f := &ImportFrom{Level: level, Module: module}
	if p.atOp("*") {
		p.advance()
		f.Star = true
	} else if p.atOp("(") {
		p.advance()
		names, err := p.parseImportAliasList()
		if err != nil {
			return nil, err
		}
		f.Names = names
		if p.atOp(",") {
			p.advance()
		}
		if _, err := p.expectOp(")"); err != nil {
			return nil, err
		}
	} else {
		names, err := p.parseImportAliasList()
		if err != nil {
			return nil, err
		}
		f.Names = names
	}
	end := p.cur().Start
	f.base = base{start: start, end: end}
	p.consumeStmtEnd()
	return f, nil
}

func (p *Parser) expectName2(kw string) (Token, error) {
	if !p.atName(kw) {
		return Token{}, p.errf("expected %q, got %q", kw, p.cur().Text)
	}
	return p.advance(), nil
}
