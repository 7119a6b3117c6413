// Package cli implements the pipeline command line.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"go-cloud-etl/internal/app"
	"go-cloud-etl/internal/config"
	"go-cloud-etl/internal/logging"
)

// options is shared by every subcommand
type options struct {
	configPath string
	logLevel   string
	logOutput  io.Writer

	cfg    *config.Config
	logger *slog.Logger

	// stores overrides backends built from config
	stores app.Stores
}

func (o *options) load(cmd *cobra.Command) error {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return err
	}
	if o.logLevel != "" {
		cfg.Logging.Level = o.logLevel
	}
	out := o.logOutput
	if out == nil {
		out = os.Stderr
	}
	logger, err := logging.New(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format}, out)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)
	o.cfg = cfg
	o.logger = logger
	return nil
}

func (o *options) newApp(ctx context.Context) (*app.App, error) {
	return app.New(ctx, o.cfg, o.logger, o.stores)
}

// NewRootCommand builds the pipeline CLI
func NewRootCommand() *cobra.Command {
	return newRootCommand(&options{})
}

func newRootCommand(o *options) *cobra.Command {
	root := &cobra.Command{
		Use:           "pipeline",
		Short:         "Batch ETL for sales extracts",
		Long:          "pipeline selects the day's CSV extracts from blob storage, cleans and aggregates them, writes a columnar summary to the data lake and archives the sources.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return o.load(cmd)
		},
	}
	root.PersistentFlags().StringVarP(&o.configPath, "config", "c", "", "config file (default ./config.yaml)")
	root.PersistentFlags().StringVar(&o.logLevel, "log-level", "", "override logging.level")

	root.AddCommand(newRunCommand(o), newServeCommand(o), newRunsCommand(o))
	return root
}

// Execute runs the CLI and exits non-zero on error
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
