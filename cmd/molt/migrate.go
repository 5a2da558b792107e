package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/moltlang/molt/internal/logging"
	"github.com/moltlang/molt/pkg/driver"
)

var (
	migrateWrite       bool
	migrateCheck       bool
	migrateInteractive bool
	migrateTypeMethod  string
	migrateTimeout     int
	migrateWatch       bool
)

var migrateCmd = &cobra.Command{
	Use:   "migrate [paths...]",
	Short: "Rewrite call sites of deprecated constructs to their replacements",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.Flags().BoolVarP(&migrateWrite, "write", "w", false, "overwrite source files in place")
	migrateCmd.Flags().BoolVar(&migrateCheck, "check", false, "report which files would change; exit 1 if any")
	migrateCmd.Flags().BoolVar(&migrateInteractive, "interactive", false, "prompt before applying each replacement")
	migrateCmd.Flags().StringVar(&migrateTypeMethod, "type-method", "none", "type resolver backend: pyright|mypy|none")
	migrateCmd.Flags().IntVar(&migrateTimeout, "timeout", 10, "per-query type resolver deadline in seconds")
	migrateCmd.Flags().BoolVar(&migrateWatch, "watch", false, "re-run on save")
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg := driver.LoadConfig(driver.CLIFlags{
		Write:          migrateWrite,
		Check:          migrateCheck,
		Interactive:    migrateInteractive,
		TypeMethod:     migrateTypeMethod,
		TimeoutSeconds: migrateTimeout,
		SearchRoots:    searchRoots(),
		Jobs:           jobs,
		Watch:          migrateWatch,
		ImportMaxDepth: importDepth,
	})
	if verr := cfg.Validate(); verr != nil {
		exitCode = 2
		return verr
	}

	log := logging.MustBuildLogger()
	defer log.Sync()
	d := driver.New(cfg, log)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if migrateWatch {
		return d.Watch(ctx, args)
	}

	outcomes, err := d.Migrate(ctx, args)
	if err != nil {
		exitCode = 2
		return err
	}
	driver.Report(os.Stdout, outcomes, false)
	exitCode = driver.ExitCode(outcomes, migrateCheck)
	return nil
}
