package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/moltlang/molt/internal/logging"
	"github.com/moltlang/molt/pkg/driver"
)

var checkTypeMethod string

var checkCmd = &cobra.Command{
	Use:   "check [paths...]",
	Short: "Report which files migrate would change, without writing",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.Flags().StringVar(&checkTypeMethod, "type-method", "none", "type resolver backend: pyright|mypy|none")
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg := driver.LoadConfig(driver.CLIFlags{
		Check:          true,
		TypeMethod:     checkTypeMethod,
		SearchRoots:    searchRoots(),
		Jobs:           jobs,
		ImportMaxDepth: importDepth,
	})
	if verr := cfg.Validate(); verr != nil {
		exitCode = 2
		return verr
	}

	log := logging.MustBuildLogger()
	defer log.Sync()
	d := driver.New(cfg, log)

	outcomes, err := d.Check(cmd.Context(), args)
	if err != nil {
		exitCode = 2
		return err
	}
	driver.Report(os.Stdout, outcomes, false)
	exitCode = driver.ExitCode(outcomes, true)
	return nil
}
