package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/moltlang/molt/internal/logging"
	"github.com/moltlang/molt/pkg/driver"
)

var (
	cleanupWrite          bool
	cleanupCheck          bool
	cleanupAll            bool
	cleanupBefore         string
	cleanupCurrentVersion string
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup [paths...]",
	Short: "Remove deprecated definitions that have aged out",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runCleanup,
}

func init() {
	rootCmd.AddCommand(cleanupCmd)
	cleanupCmd.Flags().BoolVarP(&cleanupWrite, "write", "w", false, "overwrite source files in place")
	cleanupCmd.Flags().BoolVar(&cleanupCheck, "check", false, "report which files would change; exit 1 if any")
	cleanupCmd.Flags().BoolVar(&cleanupAll, "all", false, "remove every deprecated construct unconditionally")
	cleanupCmd.Flags().StringVar(&cleanupBefore, "before", "", "remove constructs whose since < VERSION")
	cleanupCmd.Flags().StringVar(&cleanupCurrentVersion, "current-version", "", "remove constructs whose remove_in <= VERSION")
}

func runCleanup(cmd *cobra.Command, args []string) error {
	cfg := driver.LoadConfig(driver.CLIFlags{
		Write:          cleanupWrite,
		Check:          cleanupCheck,
		All:            cleanupAll,
		Before:         cleanupBefore,
		CurrentVersion: cleanupCurrentVersion,
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

	outcomes, err := d.Cleanup(cmd.Context(), args)
	if err != nil {
		exitCode = 2
		return err
	}
	driver.Report(os.Stdout, outcomes, false)
	exitCode = driver.ExitCode(outcomes, cleanupCheck)
	return nil
}
