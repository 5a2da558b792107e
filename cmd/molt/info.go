package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/moltlang/molt/internal/logging"
	"github.com/moltlang/molt/pkg/driver"
)

var infoCmd = &cobra.Command{
	Use:   "info [paths...]",
	Short: "List how many replace_me constructs each file declares",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runInfo,
}

func init() {
	rootCmd.AddCommand(infoCmd)
}

func runInfo(cmd *cobra.Command, args []string) error {
	cfg := driver.LoadConfig(driver.CLIFlags{
		SearchRoots:    searchRoots(),
		Jobs:           jobs,
		ImportMaxDepth: importDepth,
	})

	log := logging.MustBuildLogger()
	defer log.Sync()
	d := driver.New(cfg, log)

	outcomes, err := d.Info(cmd.Context(), args)
	if err != nil {
		exitCode = 2
		return err
	}
	driver.Report(os.Stdout, outcomes, true)
	exitCode = 0
	return nil
}
