package app

import (
	"context"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/idr/idrstat/cmd/idrstat/cmd/orphans"
	"github.com/idr/idrstat/cmd/idrstat/cmd/plates"
	"github.com/idr/idrstat/cmd/idrstat/cmd/screens"
	"github.com/idr/idrstat/cmd/idrstat/cmd/search"
	"github.com/idr/idrstat/cmd/idrstat/cmd/unknown"
	"github.com/idr/idrstat/internal/cmd/output"
	"github.com/idr/idrstat/internal/metrics"
	"github.com/idr/idrstat/pkg/constants"
	"github.com/idr/idrstat/pkg/logging"
)

// Execute runs the idrstat CLI with the given arguments.
func (a *App) Execute(ctx context.Context, args []string) error {
	rootCmd := a.createRootCommand()
	rootCmd.SetArgs(args)
	rootCmd.SetOut(a.stdout)
	rootCmd.SetErr(a.stderr)
	return rootCmd.ExecuteContext(ctx)
}

func (a *App) createRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "idrstat [screen]",
		Short: "Reconcile the IDR study tree with the OMERO catalog",
		Long: `idrstat compares the idr*/screen*/plates/* tree under the configured root
with the objects registered in the catalog.

Without arguments it prints per-screen statistics. With a screen argument
(for example idr0001-a/screenA) it prints per-plate statistics for that
screen. The --orphans, --unknown and --search flags select the other
modes and are kept for compatibility with the subcommands.`,
		Version:           a.version,
		Args:              cobra.MaximumNArgs(1),
		PersistentPreRunE: a.setupCommand,
		RunE:              a.runLegacy,
		SilenceUsage:      true,
		SilenceErrors:     true,
	}

	rootCmd.AddGroup(&cobra.Group{ID: "reports", Title: "Report Commands:"})
	rootCmd.AddGroup(&cobra.Group{ID: "listings", Title: "Listing Commands:"})

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "config file (default is $HOME/.idrstat.yaml)")
	pf.BoolP("verbose", "v", false, "verbose output (shortcut for --log-level=debug)")
	pf.BoolP("quiet", "q", false, "minimal output (shortcut for --log-level=warn)")
	pf.Bool("no-color", false, "disable colored output")
	pf.StringP("format", "o", "", "output format: table, json, yaml")
	pf.String("log-level", "", "log level: trace, debug, info, warn, error (overrides -v/-q)")
	pf.String("root", "", "directory holding the idr* studies (default \".\")")
	pf.String("catalog-driver", "", "catalog database driver: postgres, sqlite")
	pf.String("catalog-dsn", "", "catalog connection string")
	pf.String("metrics-file", "", "write Prometheus textfile metrics to this path")
	pf.String("report", "", "search report target, a path or s3://bucket/key (default \"no_matches.txt\")")

	f := rootCmd.Flags()
	f.Bool("orphans", false, "list filesets not linked to any plate")
	f.Bool("unknown", false, "list on-disk names the catalog does not know")
	f.Bool("search", false, "audit full-text search coverage of map-annotation values")
	rootCmd.MarkFlagsMutuallyExclusive("orphans", "unknown", "search")

	rootCmd.SetVersionTemplate("idrstat {{.Version}}\n")

	a.registerCommands(rootCmd)
	return rootCmd
}

// setupCommand applies flags to the config and prepares the logger and
// metrics for the run.
func (a *App) setupCommand(cmd *cobra.Command, _ []string) error {
	flags := cmd.Flags()
	if flags.Changed("config") {
		path, _ := flags.GetString("config")
		config, err := LoadConfig(path)
		if err != nil {
			return err
		}
		a.config = config
	}
	if err := a.config.UpdateFromFlags(flags); err != nil {
		return err
	}
	if _, err := output.ParseFormat(a.config.Format); err != nil {
		return err
	}

	logger := NewLogger(a.config)
	a.logger = &logger
	logging.SetDefault(logger)

	if a.config.MetricsFile != "" && a.metrics == nil {
		a.metrics = metrics.New()
	}

	ctx := logging.WithLogger(cmd.Context(), a.logger)
	ctx = logging.WithRunID(ctx, uuid.NewString())
	cmd.SetContext(ctx)
	return nil
}

// runLegacy dispatches the flag-selected modes. The order matches the
// historical tool: orphans, unknown, search, then plates or screens.
func (a *App) runLegacy(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	flags := cmd.Flags()
	switch {
	case flagSet(flags.GetBool("orphans")):
		return orphans.Run(ctx, a)
	case flagSet(flags.GetBool("unknown")):
		return unknown.Run(ctx, a)
	case flagSet(flags.GetBool("search")):
		return search.Run(ctx, a)
	case len(args) == 1:
		return plates.Run(ctx, a, args[0])
	default:
		return screens.Run(ctx, a)
	}
}

func flagSet(v bool, err error) bool {
	return err == nil && v
}

func (a *App) registerCommands(rootCmd *cobra.Command) {
	rootCmd.AddCommand(screens.NewCommand(a))
	rootCmd.AddCommand(plates.NewCommand(a))
	rootCmd.AddCommand(orphans.NewCommand(a))
	rootCmd.AddCommand(unknown.NewCommand(a))
	rootCmd.AddCommand(search.NewCommand(a))
	rootCmd.AddCommand(a.newVersionCommand())
}

// ExitOnError prints err and exits with status 1.
func ExitOnError(err error) {
	if err != nil {
		_, _ = os.Stderr.WriteString(constants.AppName + ": " + err.Error() + "\n")
		os.Exit(1)
	}
}
