package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/moltlang/molt/internal/logging"
)

var logger = logging.BootstrapLogger()

var rootCmd = &cobra.Command{
	Use:   "molt",
	Short: "Migrate deprecated constructs and their call sites",
	Long: `molt finds functions, methods, classes, and module attributes marked
deprecated with replace_me, rewrites their call sites to use the
replacement the marker's own body describes, and can remove the
deprecated definitions themselves once they age out.`,
}

// Execute runs the root command, exiting with the code the chosen
// subcommand returns via os.Exit (set through exitCode below) rather than
// cobra's own error-return exit(1), since spec.md §6 needs exit codes 0,
// 1, and 2 to mean different things.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}
	os.Exit(exitCode)
}

// exitCode is set by whichever subcommand ran, then consulted by Execute
// after cobra returns control — cobra's RunE contract has no room for a
// distinct "ran fine but found changes" exit code, so it's threaded
// through this package-level variable instead of a return value.
var exitCode int

func init() {
	rootCmd.PersistentFlags().IntVar(&jobs, "jobs", 0, "parallel worker count (default: number of CPUs)")
	rootCmd.PersistentFlags().StringVar(&searchRootsFlag, "search-root", "", "module search root (a single path; when unset, the roots listed in MOLTPATH are used)")
	rootCmd.PersistentFlags().IntVar(&importDepth, "import-depth", 2, "max import-following depth for the marker collector")
}

var (
	jobs            int
	searchRootsFlag string
	importDepth     int
)

func searchRoots() []string {
	if searchRootsFlag == "" {
		return nil
	}
	return []string{searchRootsFlag}
}
