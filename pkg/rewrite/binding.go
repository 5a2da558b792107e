package rewrite

import (
	"fmt"

	"github.com/moltlang/molt/pkg/cst"
	"github.com/moltlang/molt/pkg/marker"
)

// BindingError reports why a call site's arguments could not be bound to a
// ReplaceInfo's parameters (spec.md §7's BindingError kind). The site is
// skipped, a warning recorded, and every other site in the file proceeds.
type BindingError struct {
	Reason  string
	Message string
}

func (e *BindingError) Error() string { return fmt.Sprintf("%s: %s", e.Reason, e.Message) }

// bindErr builds a *BindingError, kept as a function rather than inlined
// constructions to keep every failure path's reason string in one place.
func bindErr(reason, format string, args ...any) *BindingError {
	return &BindingError{Reason: reason, Message: fmt.Sprintf(format, args...)}
}

// BoundValue is what a template parameter name is bound to: either a real
// expression node taken from the call site (rendered as the call site's
// source text between its Start() and End(), see substitute.go) or fixed text — used for an unfilled
// parameter's default_source_text, which was never a parsed call-site
// expression to begin with.
type BoundValue struct {
	Expr cst.Expr
	Text string
}

// CallArgs is the generalized shape of a call site's actual arguments,
// covering both ordinary calls and the synthetic "call" a dunder-builtin
// dispatch represents.
type CallArgs struct {
	Positional []cst.Expr
	Keywords   []cst.Keyword
	Star       cst.Expr // *args expansion at the call site, nil if absent
	DoubleStar cst.Expr // **kwargs expansion at the call site, nil if absent
}

// BindArguments implements spec.md §4.4's argument-binding paragraph:
// positional args fill non-variadic positional params in order, named args
// fill the matching parameter by name, a starred/double-starred call
// argument maps to the template's variadic positional/keyword parameter,
// and any parameter left unfilled takes its DefaultSourceText.
func BindArguments(params []marker.ParameterInfo, call CallArgs) (map[string]BoundValue, error) {
	bound := make(map[string]BoundValue, len(params))
	filled := make(map[string]bool, len(params))

	positionalParams := make([]marker.ParameterInfo, 0, len(params))
	var varPositional, varKeyword *marker.ParameterInfo
	byName := make(map[string]*marker.ParameterInfo, len(params))
	for i := range params {
		p := &params[i]
		byName[p.Name] = p
		switch {
		case p.VariadicPositional:
			varPositional = p
		case p.VariadicKeyword:
			varKeyword = p
		default:
			positionalParams = append(positionalParams, *p)
		}
	}

	pi := 0
	for _, arg := range call.Positional {
		for pi < len(positionalParams) && (filled[positionalParams[pi].Name] || positionalParams[pi].KeywordOnly) {
			pi++
		}
		if pi >= len(positionalParams) {
			return nil, bindErr("arity", "too many positional arguments for %d parameter(s)", len(positionalParams))
		}
		p := positionalParams[pi]
		if p.KeywordOnly {
			return nil, bindErr("keyword_only", "positional argument targets keyword-only parameter %q", p.Name)
		}
		bound[p.Name] = BoundValue{Expr: arg}
		filled[p.Name] = true
		pi++
	}

	for _, kw := range call.Keywords {
		p, ok := byName[kw.Name]
		if !ok {
			return nil, bindErr("unknown_keyword", "keyword argument %q does not match any parameter", kw.Name)
		}
		if filled[p.Name] {
			return nil, bindErr("duplicate", "parameter %q bound more than once", p.Name)
		}
		bound[p.Name] = BoundValue{Expr: kw.Value}
		filled[p.Name] = true
	}

	if call.Star != nil {
		if varPositional == nil {
			return nil, bindErr("no_variadic", "call uses *args but template declares no variadic positional parameter")
		}
		bound[varPositional.Name] = BoundValue{Expr: call.Star}
		filled[varPositional.Name] = true
	}
	if call.DoubleStar != nil {
		if varKeyword == nil {
			return nil, bindErr("no_variadic", "call uses **kwargs but template declares no variadic keyword parameter")
		}
		bound[varKeyword.Name] = BoundValue{Expr: call.DoubleStar}
		filled[varKeyword.Name] = true
	}

	for _, p := range positionalParams {
		if filled[p.Name] || p.VariadicPositional || p.VariadicKeyword {
			continue
		}
		if !p.HasDefault {
			return nil, bindErr("arity", "no argument supplied for required parameter %q", p.Name)
		}
		bound[p.Name] = BoundValue{Text: p.DefaultSourceText}
	}
	if varPositional != nil && !filled[varPositional.Name] {
		bound[varPositional.Name] = BoundValue{Text: ""}
	}
	if varKeyword != nil && !filled[varKeyword.Name] {
		bound[varKeyword.Name] = BoundValue{Text: ""}
	}

	return bound, nil
}

// BindReceiver binds the implicit first parameter of a method's
// ReplaceInfo to receiver (an instance method/property call) or to
// classLiteralText (a classmethod call, spec.md's "For classmethods it is
// bound to the class literal"). Staticmethods have no receiver parameter
// and this is not called for them.
func BindReceiver(params []marker.ParameterInfo, receiver cst.Expr, classLiteralText string, bound map[string]BoundValue) error {
	if len(params) == 0 {
		return bindErr("arity", "method template declares no receiver parameter")
	}
	name := params[0].Name
	if classLiteralText != "" {
		bound[name] = BoundValue{Text: classLiteralText}
		return nil
	}
	bound[name] = BoundValue{Expr: receiver}
	return nil
}
