package rewrite

import (
	"fmt"
	"strings"

	"github.com/moltlang/molt/pkg/cst"
)

// Render produces the source text of tmpl with every parameter reference
// replaced by its bound value, respecting the hygiene rule that a Lambda's
// or Comprehension's own bound names shadow the substitution (spec.md §8's
// Hygiene testable property: a template may legally contain a nested
// lambda, and that lambda's parameter must not be substituted even if its
// name collides with one of the template's own parameters).
//
// Leaf template nodes (Name, Constant, Opaque) carry their own Raw() text
// and are emitted directly. Compound template nodes (BinOp, Call,
// Attribute, ...) never carry Raw() text — see cst.Node's doc comment — so
// they are reconstructed structurally from their typed fields instead of
// byte-sliced. A bound value taken from the call site, by contrast, is
// sliced directly out of targetSource by its Start()/End() offsets: it was
// parsed from that file and is always verbatim, unmodified text, so no
// structural reconstruction is needed for it even when it is itself a
// compound expression (e.g. binding a parameter to `a + b`).
func Render(tmpl cst.Expr, bound map[string]BoundValue, targetSource string) (string, error) {
	return renderNode(tmpl, bound, targetSource, map[string]bool{})
}

func renderNode(e cst.Expr, bound map[string]BoundValue, src string, shadow map[string]bool) (string, error) {
	switch v := e.(type) {
	case *cst.Name:
		if shadow[v.Id] {
			return v.Id, nil
		}
		if bv, ok := bound[v.Id]; ok {
			return renderBoundValue(bv, src)
		}
		return v.Id, nil

	case *cst.Constant:
		return v.Literal, nil

	case *cst.Opaque:
		return v.Raw(), nil

	case *cst.Attribute:
		val, err := renderNode(v.Value, bound, src, shadow)
		if err != nil {
			return "", err
		}
		return wrapChild(v.Value, bound, val) + "." + v.Attr, nil

	case *cst.Call:
		return renderCall(v, bound, src, shadow)

	case *cst.BinOp:
		left, err := renderNode(v.Left, bound, src, shadow)
		if err != nil {
			return "", err
		}
		right, err := renderNode(v.Right, bound, src, shadow)
		if err != nil {
			return "", err
		}
		return wrapChild(v.Left, bound, left) + " " + v.Op + " " + wrapChild(v.Right, bound, right), nil

	case *cst.UnaryOp:
		operand, err := renderNode(v.Operand, bound, src, shadow)
		if err != nil {
			return "", err
		}
		wrapped := wrapChild(v.Operand, bound, operand)
		if isWordOp(v.Op) {
			return v.Op + " " + wrapped, nil
		}
		return v.Op + wrapped, nil

	case *cst.Await:
		val, err := renderNode(v.Value, bound, src, shadow)
		if err != nil {
			return "", err
		}
		return "await " + wrapChild(v.Value, bound, val), nil

	case *cst.Starred:
		val, err := renderNode(v.Value, bound, src, shadow)
		if err != nil {
			return "", err
		}
		return "*" + val, nil

	case *cst.Lambda:
		return renderLambda(v, bound, src, shadow)

	case *cst.Comprehension:
		return renderComprehension(v, bound, src, shadow)

	default:
		return "", fmt.Errorf("rewrite: unsupported template expression type %T", e)
	}
}

// renderBoundValue emits a parameter's bound value: the verbatim call-site
// source text for a real argument, or the template's own
// DefaultSourceText when the parameter was left unfilled at the call
// site.
func renderBoundValue(bv BoundValue, src string) (string, error) {
	if bv.Expr != nil {
		if bv.Expr.Start() < 0 || bv.Expr.End() > len(src) || bv.Expr.Start() > bv.Expr.End() {
			return "", fmt.Errorf("rewrite: bound expression has invalid source range")
		}
		return src[bv.Expr.Start():bv.Expr.End()], nil
	}
	return bv.Text, nil
}

// wrapChild parenthesizes text when child is a template Name bound to a
// compound call-site expression, or is itself a compound template node —
// in both cases splicing it bare into an operator/attribute/call position
// could silently change precedence (e.g. a parameter bound to `a + b`
// spliced into `n * 2` must render `(a + b) * 2`, not `a + b * 2`).
func wrapChild(child cst.Expr, bound map[string]BoundValue, text string) string {
	target := child
	if n, ok := child.(*cst.Name); ok {
		bv, isBound := bound[n.Id]
		if !isBound || bv.Expr == nil {
			return text
		}
		target = bv.Expr
	}
	if needsParen(target) {
		return "(" + text + ")"
	}
	return text
}

// needsParen reports whether e's own syntax is not self-delimiting and so
// requires parentheses when spliced into a tighter-binding position.
func needsParen(e cst.Expr) bool {
	switch e.(type) {
	case *cst.BinOp, *cst.UnaryOp, *cst.Lambda, *cst.Await, *cst.Comprehension, *cst.Starred:
		return true
	default:
		return false
	}
}

func isWordOp(op string) bool {
	return op == "not"
}

func renderCall(c *cst.Call, bound map[string]BoundValue, src string, shadow map[string]bool) (string, error) {
	fn, err := renderNode(c.Func, bound, src, shadow)
	if err != nil {
		return "", err
	}
	fnText := wrapChild(c.Func, bound, fn)

	var parts []string
	for _, a := range c.Args {
		s, err := renderNode(a, bound, src, shadow)
		if err != nil {
			return "", err
		}
		parts = append(parts, s)
	}
	for _, kw := range c.Keywords {
		s, err := renderNode(kw.Value, bound, src, shadow)
		if err != nil {
			return "", err
		}
		parts = append(parts, kw.Name+"="+s)
	}
	if c.Star != nil {
		s, err := renderNode(c.Star, bound, src, shadow)
		if err != nil {
			return "", err
		}
		parts = append(parts, "*"+s)
	}
	if c.DoubleStar != nil {
		s, err := renderNode(c.DoubleStar, bound, src, shadow)
		if err != nil {
			return "", err
		}
		parts = append(parts, "**"+s)
	}
	return fnText + "(" + strings.Join(parts, ", ") + ")", nil
}

func renderLambda(l *cst.Lambda, bound map[string]BoundValue, src string, shadow map[string]bool) (string, error) {
	inner := extendShadow(shadow, l.Params)
	body, err := renderNode(l.Body, bound, src, inner)
	if err != nil {
		return "", err
	}
	if len(l.Params) == 0 {
		return "lambda: " + body, nil
	}
	names := make([]string, len(l.Params))
	for i, p := range l.Params {
		names[i] = p.String()
	}
	return "lambda " + strings.Join(names, ", ") + ": " + body, nil
}

func renderComprehension(c *cst.Comprehension, bound map[string]BoundValue, src string, shadow map[string]bool) (string, error) {
	inner := extendShadowNames(shadow, c.Vars)
	element, err := renderNode(c.Element, bound, src, inner)
	if err != nil {
		return "", err
	}
	iter, err := renderNode(c.Iter, bound, src, inner)
	if err != nil {
		return "", err
	}
	out := element
	if c.Value != nil {
		value, err := renderNode(c.Value, bound, src, inner)
		if err != nil {
			return "", err
		}
		out = element + ": " + value
	}
	out += " for " + strings.Join(c.Vars, ", ") + " in " + iter
	for _, cond := range c.Ifs {
		condText, err := renderNode(cond, bound, src, inner)
		if err != nil {
			return "", err
		}
		out += " if " + condText
	}
	return out, nil
}

func extendShadow(shadow map[string]bool, params []cst.Param) map[string]bool {
	names := make([]string, len(params))
	for i, p := range params {
		names[i] = p.Name
	}
	return extendShadowNames(shadow, names)
}

func extendShadowNames(shadow map[string]bool, names []string) map[string]bool {
	out := make(map[string]bool, len(shadow)+len(names))
	for k, v := range shadow {
		out[k] = v
	}
	for _, n := range names {
		out[n] = true
	}
	return out
}
