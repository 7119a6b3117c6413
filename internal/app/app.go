// Package app assembles stores, tracking and the pipeline from config.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azdatalake/filesystem"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"go-cloud-etl/internal/config"
	"go-cloud-etl/internal/etlerr"
	"go-cloud-etl/internal/metrics"
	"go-cloud-etl/internal/model"
	"go-cloud-etl/internal/pipeline"
	"go-cloud-etl/internal/storage"
	"go-cloud-etl/internal/storage/adls"
	"go-cloud-etl/internal/storage/azureblob"
	"go-cloud-etl/internal/storage/localfs"
	"go-cloud-etl/internal/storage/s3store"
	"go-cloud-etl/internal/store"
)

// App holds everything a command needs
type App struct {
	Config   *config.Config
	Logger   *slog.Logger
	Runs     *store.Store
	Metrics  *metrics.Metrics
	Registry *prometheus.Registry
	Pipeline *pipeline.Pipeline
}

// Stores lets callers inject backends instead of building them from config
type Stores struct {
	Source storage.ObjectStore
	Output storage.OutputStore
}

// New builds the application. Nil fields in stores are built from cfg.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger, stores Stores) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	a := &App{Config: cfg, Logger: logger}

	a.Registry = prometheus.NewRegistry()
	a.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	a.Metrics = metrics.New(a.Registry)

	if cfg.Database.Path != "" {
		runs, err := store.Open(cfg.Database.Path)
		if err != nil {
			return nil, etlerr.Wrap(err, etlerr.KindConfig, "open run database").With("path", cfg.Database.Path)
		}
		a.Runs = runs
	}

	var cred azcore.TokenCredential
	azureCred := func() (azcore.TokenCredential, error) {
		if cred != nil {
			return cred, nil
		}
		c, err := azidentity.NewDefaultAzureCredential(nil)
		if err != nil {
			return nil, etlerr.Wrap(err, etlerr.KindConfig, "azure credentials")
		}
		cred = c
		return cred, nil
	}

	var err error
	if stores.Source == nil {
		if stores.Source, err = sourceStore(cfg, logger, azureCred); err != nil {
			a.Close()
			return nil, err
		}
	}
	if stores.Output == nil {
		if stores.Output, err = outputStore(cfg, azureCred); err != nil {
			a.Close()
			return nil, err
		}
	}

	var recorder pipeline.RunRecorder
	if a.Runs != nil {
		recorder = a.Runs
	}
	a.Pipeline = pipeline.New(pipeline.Options{
		Source:            stores.Source,
		Output:            stores.Output,
		SourcePrefix:      cfg.Source.Prefix,
		DateLayout:        cfg.Run.DateFormat,
		Delimiter:         cfg.Delimiter(),
		ReadWorkers:       cfg.Source.Workers,
		Columns:           cfg.Clean.Columns,
		DateLayouts:       cfg.Clean.DateLayouts,
		GroupBy:           cfg.Clean.GroupBy,
		OutputDir:         cfg.Output.Directory,
		OutputPrefix:      cfg.Output.Prefix,
		OutputFormat:      cfg.Output.Format,
		OutputPartitioned: cfg.Output.Partitioned,
		ArchiveContainer:  cfg.Archive.Container,
		ArchiveTier:       model.StorageTier(cfg.Archive.Tier),
		ArchiveWorkers:    cfg.Archive.Workers,
		Timeout:           cfg.Run.Timeout,
		Observer:          pipeline.NewTracker(recorder, a.Metrics, logger),
		Logger:            logger,
	})

	logger.InfoContext(ctx, "application initialized",
		slog.String("source_backend", cfg.Source.Backend),
		slog.String("output_backend", cfg.Output.Backend),
		slog.Bool("tracking", a.Runs != nil))
	return a, nil
}

// Close releases the run database
func (a *App) Close() error {
	if a.Runs == nil {
		return nil
	}
	return a.Runs.Close()
}

func sourceStore(cfg *config.Config, logger *slog.Logger, azureCred func() (azcore.TokenCredential, error)) (storage.ObjectStore, error) {
	src := cfg.Source
	switch src.Backend {
	case "azure":
		cred, err := azureCred()
		if err != nil {
			return nil, err
		}
		client, err := azblob.NewClient(azureblob.AccountURL(src.Account), cred, nil)
		if err != nil {
			return nil, etlerr.Wrap(err, etlerr.KindConfig, "blob client").With("account", src.Account)
		}
		return azureblob.New(client, src.Container,
			azureblob.WithPollInterval(cfg.Archive.PollInterval),
			azureblob.WithLogger(logger)), nil
	case "s3":
		awsCfg := aws.NewConfig()
		if src.Region != "" {
			awsCfg = awsCfg.WithRegion(src.Region)
		}
		if src.Endpoint != "" {
			awsCfg = awsCfg.WithEndpoint(src.Endpoint).WithS3ForcePathStyle(true)
		}
		sess, err := session.NewSession(awsCfg)
		if err != nil {
			return nil, etlerr.Wrap(err, etlerr.KindConfig, "aws session")
		}
		return s3store.New(s3.New(sess), src.Container), nil
	case "local":
		s, err := localfs.New(src.Root, src.Container)
		if err != nil {
			return nil, etlerr.Wrap(err, etlerr.KindConfig, "local source").With("root", src.Root)
		}
		return s, nil
	}
	return nil, etlerr.New(etlerr.KindConfig, "unknown source backend %q", src.Backend)
}

func outputStore(cfg *config.Config, azureCred func() (azcore.TokenCredential, error)) (storage.OutputStore, error) {
	out := cfg.Output
	switch out.Backend {
	case "adls":
		cred, err := azureCred()
		if err != nil {
			return nil, err
		}
		fsURL := adls.AccountURL(out.Account) + out.FileSystem
		client, err := filesystem.NewClient(fsURL, cred, nil)
		if err != nil {
			return nil, etlerr.Wrap(err, etlerr.KindConfig, "data lake client").With("url", fsURL)
		}
		return adls.New(client, out.FileSystem), nil
	case "local":
		s, err := localfs.New(out.Root, "")
		if err != nil {
			return nil, etlerr.Wrap(err, etlerr.KindConfig, "local output").With("root", out.Root)
		}
		return s, nil
	}
	return nil, etlerr.New(etlerr.KindConfig, "unknown output backend %q", out.Backend)
}

// Summary renders a one-line outcome of a run for the trigger and the CLI
func Summary(res *model.RunResult, err error) string {
	if err != nil {
		return fmt.Sprintf("Run %s failed in %s: %v", res.RunID, res.FailedStage, err)
	}
	if len(res.Selected) == 0 {
		return fmt.Sprintf("Run %s: no source objects for %s, nothing to do", res.RunID, res.ReferenceDate)
	}
	return fmt.Sprintf("Run %s: processed %d objects into %d groups, wrote %s, archived %d",
		res.RunID, len(res.Selected), res.Groups, res.OutputPath, len(res.Archived))
}

var errNoTracking = errors.New("run tracking is disabled (database.path is empty)")

// RequireRuns returns the run store or an error when tracking is off
func (a *App) RequireRuns() (*store.Store, error) {
	if a.Runs == nil {
		return nil, errNoTracking
	}
	return a.Runs, nil
}
