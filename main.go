// Command microgel evaluates microgel trajectory scripts and prints, for
// every snapshot, the convex hull volume, the equivalent ellipsoid volume
// and the three semi-axes of the particle cloud.
package main

import (
	"fmt"
	"os"

	"github.com/chazu/microgel/pkg/config"
	"github.com/chazu/microgel/pkg/logging"
	"github.com/chazu/microgel/pkg/metrics"
	"github.com/spf13/cobra"
)

// Build-time variables injected via ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// rootOptions holds the global flags.
type rootOptions struct {
	ConfigPath string
	LogLevel   string
}

// cli carries the dependencies built once per invocation.
type cli struct {
	opts    rootOptions
	cfg     *config.Config
	log     logging.Logger
	metrics *metrics.Metrics
	app     *App
}

// newRootCommand creates the root command with its global flags and
// subcommands.
func newRootCommand() *cobra.Command {
	c := &cli{}

	cmd := &cobra.Command{
		Use:     "microgel",
		Short:   "Shape analysis of microgel particle clouds",
		Long:    "microgel evaluates trajectory scripts and measures, per snapshot, the convex hull\nvolume, the volume of the equivalent ellipsoid and its three semi-axes.",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildDate),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.init()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&c.opts.ConfigPath, "config", "c", "", "config file path (default: MICROGEL_* environment only)")
	pf.StringVar(&c.opts.LogLevel, "log-level", "", "log level (debug, info, warn, error); overrides the config file")

	cmd.AddCommand(
		newAnalyzeCmd(c),
		newMeshCmd(c),
		newValidateCmd(c),
		newVersionCmd(c),
	)
	return cmd
}

// init loads the configuration and builds the logger, metrics and app.
func (c *cli) init() error {
	cfg, err := config.Load(c.opts.ConfigPath)
	if err != nil {
		return err
	}
	if c.opts.LogLevel != "" {
		cfg.Log.Level = c.opts.LogLevel
	}
	log, err := logging.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	c.cfg = cfg
	c.log = log
	c.metrics = metrics.New()
	c.app = NewApp(cfg, log, c.metrics)
	return nil
}

// runE wraps a command body so that finish runs after it on every exit
// path. Cobra skips post-run hooks when RunE fails, and failed runs are
// the ones whose metrics matter most.
func (c *cli) runE(fn func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		defer func() {
			if ferr := c.finish(); err == nil {
				err = ferr
			}
		}()
		return fn(cmd, args)
	}
}

// finish writes the metrics textfile, if configured, and flushes the log.
func (c *cli) finish() error {
	if c.cfg == nil {
		return nil
	}
	if path := c.cfg.Metrics.Textfile; path != "" {
		if err := c.metrics.WriteTextfile(path); err != nil {
			return err
		}
		c.log.Debug("metrics written", logging.String("path", path))
	}
	_ = c.log.Sync()
	return nil
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "microgel:", err)
		os.Exit(1)
	}
}
