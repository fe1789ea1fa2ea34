// memfs is an in-memory namespace of drives, folders, zip files and text
// files. It can be driven from an interactive shell, a scripted demo or an
// HTTP API.
package main

import (
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fruitsalade/memfs/internal/config"
	"github.com/fruitsalade/memfs/internal/logging"
	"github.com/fruitsalade/memfs/internal/metrics"
	"github.com/fruitsalade/memfs/pkg/namespace"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// app carries state shared by every subcommand.
type app struct {
	envFile  string
	logLevel string
	cfg      *config.Config
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:          "memfs",
		Short:        "In-memory namespace of drives, folders, zip files and text files",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup()
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			_ = logging.Sync()
		},
	}
	root.PersistentFlags().StringVar(&a.envFile, "env-file", "", "load environment variables from this file (default .env if present)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "override LOG_LEVEL (debug, info, warn, error)")

	root.AddCommand(newShellCmd(a), newDemoCmd(a), newServeCmd(a), newWatchCmd(a))
	return root
}

func (a *app) setup() error {
	var files []string
	if a.envFile != "" {
		files = append(files, a.envFile)
	}
	cfg, err := config.Load(files...)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}

	// Logs go to stderr so shell output on stdout stays clean.
	if err := logging.Init(logging.Config{
		Level:      cfg.LogLevel,
		Format:     cfg.LogFormat,
		OutputPath: "stderr",
	}); err != nil {
		return err
	}
	a.cfg = cfg
	return nil
}

// newManager builds a namespace manager reporting to the metrics observer
// and any extra observers.
func (a *app) newManager(extra ...namespace.Observer) *namespace.Manager {
	observers := append([]namespace.Observer{metrics.Observer()}, extra...)
	return namespace.New(
		namespace.WithLogger(logging.Named("namespace")),
		namespace.WithObserver(namespace.Observers(observers...)),
	)
}

func closeStore(closeFn func() error) {
	if err := closeFn(); err != nil {
		logging.Warn("closing snapshot store", zap.Error(err))
	}
}
