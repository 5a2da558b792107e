package driver

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/moltlang/molt/pkg/rewrite"
)

// PromptLoop builds a rewrite.InteractiveFunc that asks the user, via out
// and in, whether to apply each replacement, per spec.md §4.4's
// interactive mode: y applies this one, n skips it, a applies this one and
// every remaining site in the file without asking again, q aborts the
// file leaving it untouched. Sites are offered in the lexical source order
// DiscoverSites already returns them in.
func PromptLoop(in io.Reader, out io.Writer) rewrite.InteractiveFunc {
	reader := bufio.NewReader(in)
	return func(file string, line, column int, oldText, newText string) rewrite.Decision {
		for {
			fmt.Fprintf(out, "%s:%d:%d\n- %s\n+ %s\nApply? [y,n,a,q] ", file, line, column, oldText, newText)
			resp, err := reader.ReadString('\n')
			if err != nil && resp == "" {
				return rewrite.AbortFile
			}
			switch strings.ToLower(strings.TrimSpace(resp)) {
			case "y":
				return rewrite.Apply
			case "n":
				return rewrite.SkipSite
			case "a":
				return rewrite.ApplyAll
			case "q":
				return rewrite.AbortFile
			default:
				fmt.Fprintln(out, "please answer y, n, a, or q")
			}
		}
	}
}
