package cli

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"go-cloud-etl/internal/api"
)

const shutdownTimeout = 30 * time.Second

func newServeCommand(o *options) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP trigger and run tracking API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr != "" {
				o.cfg.Server.Addr = addr
			}
			return serve(cmd.Context(), o)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default server.addr)")
	return cmd
}

// NewServerCommand is a standalone command that only serves HTTP
func NewServerCommand() *cobra.Command {
	o := &options{}
	cmd := &cobra.Command{
		Use:           "pipeline-api",
		Short:         "HTTP trigger and run tracking API for the ETL pipeline",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := o.load(cmd); err != nil {
				return err
			}
			return serve(cmd.Context(), o)
		},
	}
	cmd.Flags().StringVarP(&o.configPath, "config", "c", "", "config file (default ./config.yaml)")
	return cmd
}

func serve(ctx context.Context, o *options) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := o.newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	r := api.NewRouter(a)
	errCh := make(chan error, 1)
	go func() { errCh <- r.Start(o.cfg.Server.Addr) }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := r.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
		o.logger.Error("graceful shutdown failed", slog.Any("error", err))
		return err
	}
	return <-errCh
}
