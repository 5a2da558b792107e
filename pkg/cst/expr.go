package cst

// Expression parsing is a standard precedence-climbing (Pratt) parser,
// implemented as a cascade of one function per precedence level, lowest to
// highest: or < and < not < comparisons < | < ^ < & < shift < additive <
// multiplicative < unary < power < await/trailers.

// parseExprListAsTuple parses a comma-separated expression list; if more
// than one element is present the result is wrapped in an Opaque node that
// preserves the raw tuple text verbatim (tuple targets are not substitution
// targets in this engine).
func (p *Parser) parseExprListAsTuple() (Expr, error) {
	start := p.cur().Start
	first, err := p.parseExprNoTuple()
	if err != nil {
		return nil, err
	}
	if !p.atOp(",") {
		return first, nil
	}
	for p.atOp(",") {
		p.advance()
		if p.at(NEWLINE) || p.atOp("=") || p.atOp(";") {
			break
		}
		if _, err := p.parseExprNoTuple(); err != nil {
			return nil, err
		}
	}
	end := p.toks[p.pos-1].End
	return &Opaque{base{start: start, end: end, raw: p.src[start:end]}}, nil
}

// parseExpr is the public single-expression entry point (decorators, etc).
func (p *Parser) parseExpr() (Expr, error) { return p.parseExprNoTuple() }

func (p *Parser) parseExprNoTuple() (Expr, error) {
	if p.atName("lambda") {
		return p.parseLambda()
	}
	return p.parseOr()
}

func (p *Parser) parseLambda() (Expr, error) {
	start := p.cur().Start
	p.advance() // 'lambda'
	var params []Param
	if !p.atOp(":") {
		ps, err := p.parseLambdaParams()
		if err != nil {
			return nil, err
		}
		params = ps
	}
	if _, err := p.expectOp(":"); err != nil {
		return nil, err
	}
	body, err := p.parseExprNoTuple()
	if err != nil {
		return nil, err
	}
	return &Lambda{base: base{start: start, end: body.End()}, Params: params, Body: body}, nil
}

func (p *Parser) parseLambdaParams() ([]Param, error) {
	var params []Param
	for !p.atOp(":") {
		if p.atOp("*") {
			p.advance()
			n, err := p.expectName("parameter name")
			if err != nil {
				return nil, err
			}
			params = append(params, Param{Name: n.Text, Star: true})
		} else if p.atOp("**") {
			p.advance()
			n, err := p.expectName("parameter name")
			if err != nil {
				return nil, err
			}
			params = append(params, Param{Name: n.Text, DoubleStar: true})
		} else {
			n, err := p.expectName("parameter name")
			if err != nil {
				return nil, err
			}
			param := Param{Name: n.Text}
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

func (p *Parser) parseOr() (Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.atName("or") {
		op := p.advance().Text
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &BinOp{base: base{start: left.Start(), end: right.End()}, Left: left, Op: op, Right: right}
	}
	return left, nil
}

func (p *Parser) parseAnd() (Expr, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.atName("and") {
		op := p.advance().Text
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = &BinOp{base: base{start: left.Start(), end: right.End()}, Left: left, Op: op, Right: right}
	}
	return left, nil
}

func (p *Parser) parseNot() (Expr, error) {
	if p.atName("not") {
		start := p.cur().Start
		p.advance()
		operand, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return &UnaryOp{base: base{start: start, end: operand.End()}, Op: "not", Operand: operand}, nil
	}
	return p.parseComparison()
}

func (p *Parser) parseComparison() (Expr, error) {
	left, err := p.parseBitOr()
	if err != nil {
		return nil, err
	}
	for {
		op := ""
		switch {
		case p.cur().Kind == OP && (p.cur().Text == "<" || p.cur().Text == ">" || p.cur().Text == "<=" || p.cur().Text == ">=" || p.cur().Text == "==" || p.cur().Text == "!="):
			op = p.advance().Text
		case p.atName("in"):
			op = p.advance().Text
		case p.atName("not"):
			save := p.pos
			p.advance()
			if p.atName("in") {
				p.advance()
				op = "not in"
			} else {
				p.pos = save
			}
		case p.atName("is"):
			p.advance()
			if p.atName("not") {
				p.advance()
				op = "is not"
			} else {
				op = "is"
			}
		}
		if op == "" {
			break
		}
		right, err := p.parseBitOr()
		if err != nil {
			return nil, err
		}
		left = &BinOp{base: base{start: left.Start(), end: right.End()}, Left: left, Op: op, Right: right}
	}
	return left, nil
}

func (p *Parser) parseBitOr() (Expr, error)  { return p.parseBinLevel([]string{"|"}, (*Parser).parseBitXor) }
func (p *Parser) parseBitXor() (Expr, error) { return p.parseBinLevel([]string{"^"}, (*Parser).parseBitAnd) }
func (p *Parser) parseBitAnd() (Expr, error) { return p.parseBinLevel([]string{"&"}, (*Parser).parseShift) }
func (p *Parser) parseShift() (Expr, error)  { return p.parseBinLevel([]string{"<<", ">>"}, (*Parser).parseAdditive) }
func (p *Parser) parseAdditive() (Expr, error) {
	return p.parseBinLevel([]string{"+", "-"}, (*Parser).parseMultiplicative)
}
func (p *Parser) parseMultiplicative() (Expr, error) {
	return p.parseBinLevel([]string{"*", "/", "//", "%"}, (*Parser).parseUnary)
}

func (p *Parser) parseBinLevel(ops []string, next func(*Parser) (Expr, error)) (Expr, error) {
	left, err := next(p)
	if err != nil {
		return nil, err
	}
	for p.cur().Kind == OP && containsOp(ops, p.cur().Text) {
		op := p.advance().Text
		right, err := next(p)
		if err != nil {
			return nil, err
		}
		left = &BinOp{base: base{start: left.Start(), end: right.End()}, Left: left, Op: op, Right: right}
	}
	return left, nil
}

func containsOp(ops []string, s string) bool {
	for _, o := range ops {
		if o == s {
			return true
		}
	}
	return false
}

func (p *Parser) parseUnary() (Expr, error) {
	if p.cur().Kind == OP && (p.cur().Text == "-" || p.cur().Text == "+" || p.cur().Text == "~") {
		start := p.cur().Start
		op := p.advance().Text
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &UnaryOp{base: base{start: start, end: operand.End()}, Op: op, Operand: operand}, nil
	}
	return p.parsePower()
}

func (p *Parser) parsePower() (Expr, error) {
	left, err := p.parseAwait()
	if err != nil {
		return nil, err
	}
	if p.atOp("**") {
		p.advance()
		right, err := p.parseUnary() // right-associative
		if err != nil {
			return nil, err
		}
		return &BinOp{base: base{start: left.Start(), end: right.End()}, Left: left, Op: "**", Right: right}, nil
	}
	return left, nil
}

func (p *Parser) parseAwait() (Expr, error) {
	if p.atName("await") {
		start := p.cur().Start
		p.advance()
		value, err := p.parsePostfix()
		if err != nil {
			return nil, err
		}
		return &Await{base: base{start: start, end: value.End()}, Value: value}, nil
	}
	return p.parsePostfix()
}

// parsePostfix parses an atom followed by any number of trailers:
// attribute access, call, or subscript.
func (p *Parser) parsePostfix() (Expr, error) {
	expr, err := p.parseAtom()
	if err != nil {
		return nil, err
	}
	for {
		switch {
		case p.atOp("."):
			p.advance()
			attr, err := p.expectName("attribute name")
			if err != nil {
				return nil, err
			}
			expr = &Attribute{base: base{start: expr.Start(), end: attr.End}, Value: expr, Attr: attr.Text}
		case p.atOp("("):
			expr, err = p.parseCall(expr)
			if err != nil {
				return nil, err
			}
		case p.atOp("["):
			expr, err = p.parseSubscript(expr)
			if err != nil {
				return nil, err
			}
		default:
			return expr, nil
		}
	}
}

// peekIsOp reports whether the token one past the current one is the given
// operator, without risking a read past the EOF sentinel at the end of the
// token stream.
func (p *Parser) peekIsOp(text string) bool {
	if p.pos+1 >= len(p.toks) {
		return false
	}
	t := p.toks[p.pos+1]
	return t.Kind == OP && t.Text == text
}

func (p *Parser) parseCall(fn Expr) (Expr, error) {
	p.advance() // '('
	call := &Call{base: base{start: fn.Start()}, Func: fn}
	for !p.atOp(")") {
		if p.atOp("*") {
			p.advance()
			e, err := p.parseExprNoTuple()
			if err != nil {
				return nil, err
			}
			call.Star = e
		} else if p.atOp("**") {
			p.advance()
			e, err := p.parseExprNoTuple()
			if err != nil {
				return nil, err
			}
			call.DoubleStar = e
		} else if p.at(NAME) && p.peekIsOp("=") {
			name := p.advance().Text
			p.advance() // '='
			val, err := p.parseExprNoTuple()
			if err != nil {
				return nil, err
			}
			call.Keywords = append(call.Keywords, Keyword{Name: name, Value: val})
		} else {
			e, err := p.parseComprehensionOrExpr()
			if err != nil {
				return nil, err
			}
			call.Args = append(call.Args, e)
		}
		if p.atOp(",") {
			p.advance()
			continue
		}
		break
	}
	closeTok, err := p.expectOp(")")
	if err != nil {
		return nil, err
	}
	call.end = closeTok.End
	return call, nil
}

// parseComprehensionOrExpr parses a single call argument, recognizing a
// trailing `for x in iter [if cond]` clause as a Comprehension so that its
// loop variables can be tracked as a hygiene scope.
func (p *Parser) parseComprehensionOrExpr() (Expr, error) {
	start := p.cur().Start
	element, err := p.parseExprNoTuple()
	if err != nil {
		return nil, err
	}
	if !p.atName("for") {
		return element, nil
	}
	p.advance()
	vars, err := p.parseCompTargets()
	if err != nil {
		return nil, err
	}
	if _, err := p.expectName2("in"); err != nil {
		return nil, err
	}
	iter, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	var ifs []Expr
	for p.atName("if") {
		p.advance()
		cond, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		ifs = append(ifs, cond)
	}
	end := iter.End()
	if len(ifs) > 0 {
		end = ifs[len(ifs)-1].End()
	}
	return &Comprehension{base: base{start: start, end: end}, Element: element, Vars: vars, Iter: iter, Ifs: ifs}, nil
}

func (p *Parser) parseCompTargets() ([]string, error) {
	var vars []string
	n, err := p.expectName("comprehension variable")
	if err != nil {
		return nil, err
	}
	vars = append(vars, n.Text)
	for p.atOp(",") {
		save := p.pos
		p.advance()
		if !p.at(NAME) {
			p.pos = save
			break
		}
		n, err := p.expectName("comprehension variable")
		if err != nil {
			return nil, err
		}
		vars = append(vars, n.Text)
	}
	return vars, nil
}

func (p *Parser) parseSubscript(target Expr) (Expr, error) {
	start := target.Start()
	p.advance() // '['
	depth := 1
	for depth > 0 {
		if p.at(EOF) {
			return nil, p.errf("unterminated subscript")
		}
		if p.atOp("[") {
			depth++
		} else if p.atOp("]") {
			depth--
		}
		if depth == 0 {
			break
		}
		p.advance()
	}
	end := p.advance().End // consume final ']'
	return &Opaque{base{start: start, end: end, raw: p.src[start:end]}}, nil
}

// parseAtom parses a single atom: name, literal, parenthesized expression,
// or a bracketed display treated as opaque.
func (p *Parser) parseAtom() (Expr, error) {
	t := p.cur()
	switch {
	case t.Kind == NAME && (t.Text == "True" || t.Text == "False" || t.Text == "None"):
		p.advance()
		return &Constant{base: base{start: t.Start, end: t.End, raw: t.Text}, Literal: t.Text}, nil
	case t.Kind == NAME && !IsKeyword(t.Text):
		p.advance()
		return &Name{base: base{start: t.Start, end: t.End, raw: t.Text}, Id: t.Text}, nil
	case t.Kind == NUMBER:
		p.advance()
		return &Constant{base: base{start: t.Start, end: t.End, raw: t.Text}, Literal: t.Text}, nil
	case t.Kind == STRING:
		start := t.Start
		end := t.End
		p.advance()
		for p.at(STRING) { // implicit string concatenation
			end = p.cur().End
			p.advance()
		}
		return &Constant{base: base{start: start, end: end, raw: p.src[start:end]}, Literal: p.src[start:end]}, nil
	case t.Kind == OP && t.Text == "(":
		return p.parseParenthesized()
	case t.Kind == OP && (t.Text == "[" || t.Text == "{"):
		return p.parseBracketedOpaque()
	case t.Kind == NAME && t.Text == "lambda":
		return p.parseLambda()
	}
	return nil, p.errf("unexpected token %q", t.Text)
}

func (p *Parser) parseParenthesized() (Expr, error) {
	start := p.cur().Start
	p.advance() // '('
	if p.atOp(")") {
		end := p.advance().End
		return &Opaque{base{start: start, end: end, raw: p.src[start:end]}}, nil
	}
	inner, err := p.parseComprehensionOrExpr()
	if err != nil {
		return nil, err
	}
	if p.atOp(",") {
		for p.atOp(",") {
			p.advance()
			if p.atOp(")") {
				break
			}
			if _, err := p.parseExprNoTuple(); err != nil {
				return nil, err
			}
		}
		end := p.advance().End // ')'
		return &Opaque{base{start: start, end: end, raw: p.src[start:end]}}, nil
	}
	if _, err := p.expectOp(")"); err != nil {
		return nil, err
	}
	_ = inner
	return inner, nil
}

// parseBracketedOpaque consumes a balanced [...] or {...} display (list,
// dict, set, or a comprehension thereof) as a single Opaque node. The
// engine never needs to substitute inside a display — only whole-argument
// binding is observable to a deprecated call's template — so decomposing
// these forms further is out of scope (see SPEC_FULL.md Source Model).
func (p *Parser) parseBracketedOpaque() (Expr, error) {
	start := p.cur().Start
	open := p.cur().Text
	close := "]"
	if open == "{" {
		close = "}"
	}
	depth := 0
	for {
		if p.at(EOF) {
			return nil, p.errf("unterminated %q display", open)
		}
		if p.atOp(open) {
			depth++
		} else if p.atOp(close) {
			depth--
		}
		end := p.cur().End
		p.advance()
		if depth == 0 {
			return &Opaque{base{start: start, end: end, raw: p.src[start:end]}}, nil
		}
	}
}
