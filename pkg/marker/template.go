package marker

import (
	"fmt"

	"github.com/moltlang/molt/pkg/cst"
)

// ambiguousFreeNameError reports a template identifier that is both a
// declared parameter and a name in the caller-supplied globals set —
// spec.md §3's "not both" half of the third data-model invariant.
type ambiguousFreeNameError struct{ Name string }

func (e *ambiguousFreeNameError) Error() string {
	return fmt.Sprintf("template identifier %q is both a parameter and a global name", e.Name)
}

// Normalize checks that no free identifier of a replacement template is
// both one of the construct's declared parameter names and a name in
// globals (the "not both" half of spec.md §3's third invariant); a free
// identifier that is neither is not reported. It implements step 4 of the collection algorithm ("rewrite
// parameter references to a canonical form"). Because the parser already
// represents every parameter reference as a bare cst.Name — there is no
// qualified or decorated form a parameter reference could take in this
// grammar — the canonical form is the parse result itself; this pass only
// needs to check the invariant, not rewrite anything.
func Normalize(info *ReplaceInfo, globals map[string]bool) error {
	paramNames := make(map[string]bool, len(info.Parameters))
	for _, p := range info.Parameters {
		paramNames[p.Name] = true
	}
	return checkFreeNames(info.ReplacementTemplate, paramNames, globals, nil)
}

// checkFreeNames walks expr verifying every free cst.Name is either a
// parameter or a recognized global, never both, skipping identifiers that a
// lambda or comprehension inside the template rebinds locally (those are
// bound, not free, from the template's own point of view).
func checkFreeNames(expr cst.Expr, params, globals map[string]bool, bound map[string]bool) error {
	var walkErr error
	cst.Walk(expr, func(n cst.Node) bool {
		if walkErr != nil {
			return false
		}
		switch v := n.(type) {
		case *cst.Lambda:
			inner := extendBound(bound, v.Params)
			if err := checkFreeNames(v.Body, params, globals, inner); err != nil {
				walkErr = err
			}
			return false
		case *cst.Comprehension:
			inner := cloneBound(bound)
			for _, name := range v.Vars {
				inner[name] = true
			}
			if err := checkFreeNames(v.Element, params, globals, inner); err != nil {
				walkErr = err
				return false
			}
			if err := checkFreeNames(v.Iter, params, globals, bound); err != nil {
				walkErr = err
			}
			return false
		case *cst.Name:
			if bound[v.Id] {
				return true
			}
			if params[v.Id] && globals[v.Id] {
				walkErr = &ambiguousFreeNameError{Name: v.Id}
				return false
			}
		}
		return true
	})
	return walkErr
}

func extendBound(bound map[string]bool, params []cst.Param) map[string]bool {
	out := cloneBound(bound)
	for _, p := range params {
		out[p.Name] = true
	}
	return out
}

func cloneBound(bound map[string]bool) map[string]bool {
	out := make(map[string]bool, len(bound)+2)
	for k, v := range bound {
		out[k] = v
	}
	return out
}
