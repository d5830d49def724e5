package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vervegrand/feedsync/config"
	"github.com/vervegrand/feedsync/internal/app"
	"github.com/vervegrand/feedsync/internal/domain"
	"github.com/vervegrand/feedsync/internal/logging"
)

// ErrRunHadErrors is returned by sync --strict when any product failed
var ErrRunHadErrors = errors.New("sync finished with item errors")

// cli carries state shared by all subcommands
type cli struct {
	configFile string
	logLevel   string
	cfg        *config.Config
}

func newRootCommand() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:   "feedsync",
		Short: "Vendor feed to Shopify catalog sync",
		Long: `feedsync reads the vendor XML product feed and reconciles it into a
Shopify store: missing products are created, existing ones are updated
according to the selected sync options.`,
		PersistentPreRunE: c.setup,
		SilenceUsage:      true,
		SilenceErrors:     true,
	}

	root.PersistentFlags().StringVar(&c.configFile, "config", "", "config file (default ./config.yaml)")
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "", "log level: debug, info, warn, error (overrides config)")

	root.AddCommand(c.newSyncCommand(), c.newStatsCommand(), c.newStatusCommand(), c.newRunsCommand(), c.newServeCommand())
	return root
}

// setup loads configuration and installs the logger before any command runs.
func (c *cli) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(c.configFile)
	if err != nil {
		return err
	}
	if c.logLevel != "" {
		cfg.Log.Level = c.logLevel
	}
	logging.SetDefault(logging.NewFromConfig(cfg.Log.Level, cfg.Log.Format, cmd.ErrOrStderr()))
	c.cfg = cfg
	return nil
}

func (c *cli) newSyncCommand() *cobra.Command {
	var (
		opts   domain.SyncOptions
		quiet  bool
		strict bool
	)

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Run one reconciliation pass",
		Long: `Run one reconciliation pass. Without option flags the configured
default options apply; if those are empty a full sync is performed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.IsZero() {
				opts = c.cfg.Sync.DefaultOptions
			}

			var sink domain.LogSink
			if !quiet {
				sink = progressSink(cmd.ErrOrStderr())
			}

			a, err := app.New(c.cfg, app.Options{Sink: sink, DisableSchedule: true})
			if err != nil {
				return err
			}
			defer a.Close()

			summary, runErr := a.Sync.RunSync(cmd.Context(), opts)
			if summary != nil {
				if err := printSummary(cmd.OutOrStdout(), summary); err != nil {
					return err
				}
			}
			if runErr != nil {
				return runErr
			}
			if strict && summary.ErrorCount > 0 {
				return fmt.Errorf("%w: %d", ErrRunHadErrors, summary.ErrorCount)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&opts.Full, "full", false, "sync everything and create missing variants")
	cmd.Flags().BoolVar(&opts.Price, "price", false, "sync variant prices")
	cmd.Flags().BoolVar(&opts.Inventory, "inventory", false, "sync variant stock")
	cmd.Flags().BoolVar(&opts.Details, "details", false, "sync title, description, type, tags and category")
	cmd.Flags().BoolVar(&opts.Images, "images", false, "sync product images")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "suppress per-product progress")
	cmd.Flags().BoolVar(&strict, "strict", false, "exit non-zero when any product failed")
	return cmd
}

func (c *cli) newStatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Count products and variants in the vendor feed",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.New(c.cfg, app.Options{DisableSchedule: true})
			if err != nil {
				return err
			}
			defer a.Close()

			stats, err := a.Feed.Stats(cmd.Context())
			if err != nil {
				return err
			}
			return printStats(cmd.OutOrStdout(), c.cfg.Feed.URL, stats)
		},
	}
}

func (c *cli) newStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check feed and store connectivity",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.New(c.cfg, app.Options{DisableSchedule: true})
			if err != nil {
				return err
			}
			defer a.Close()

			status := a.Status.Check(cmd.Context())
			if err := printStatus(cmd.OutOrStdout(), status); err != nil {
				return err
			}
			if !status.OK() {
				return errors.New("connection check failed")
			}
			return nil
		},
	}
}

func (c *cli) newRunsCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recent sync runs from the run store",
		RunE: func(cmd *cobra.Command, args []string) error {
			if c.cfg.Store.Driver == "" {
				return errors.New("no run store configured (set store.driver and store.dsn)")
			}

			a, err := app.New(c.cfg, app.Options{DisableSchedule: true})
			if err != nil {
				return err
			}
			defer a.Close()

			runs, err := a.Sync.History(cmd.Context(), limit)
			if err != nil {
				return err
			}
			return printRuns(cmd.OutOrStdout(), runs)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of runs to show")
	return cmd
}

func (c *cli) newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.New(c.cfg, app.Options{})
			if err != nil {
				return err
			}
			defer a.Close()
			return a.Serve(cmd.Context())
		},
	}
}
