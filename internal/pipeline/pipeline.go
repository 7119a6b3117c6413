package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"go-cloud-etl/internal/etlerr"
	"go-cloud-etl/internal/logging"
	"go-cloud-etl/internal/model"
	"go-cloud-etl/internal/storage"
)

// Observer is notified as a run moves through its states. res is the live
// run result; res.State is the state just entered.
type Observer interface {
	RunStarted(ctx context.Context, res *model.RunResult)
	StateChanged(ctx context.Context, res *model.RunResult, from model.State)
	RunFinished(ctx context.Context, res *model.RunResult)
}

type noopObserver struct{}

func (noopObserver) RunStarted(context.Context, *model.RunResult)                {}
func (noopObserver) StateChanged(context.Context, *model.RunResult, model.State) {}
func (noopObserver) RunFinished(context.Context, *model.RunResult)               {}

// Options wires a Pipeline
type Options struct {
	Source storage.ObjectStore
	Output storage.OutputStore

	SourcePrefix string
	DateLayout   string
	Delimiter    rune
	ReadWorkers  int

	Columns     []string
	DateLayouts []string
	GroupBy     []string

	OutputDir         string
	OutputPrefix      string
	OutputFormat      string
	OutputPartitioned bool

	ArchiveContainer string
	ArchiveTier      model.StorageTier
	ArchiveWorkers   int

	Timeout  time.Duration
	Now      func() time.Time
	Observer Observer
	Logger   *slog.Logger
}

// Pipeline runs select, load, clean, aggregate, write and archive in
// sequence. It never retries and never compensates: a failed run is
// re-invoked as a whole by the caller.
type Pipeline struct {
	source       storage.ObjectStore
	sourcePrefix string
	dateLayout   string
	loader       *Loader
	cleaner      *Cleaner
	groupBy      []string
	writer       *Writer
	archiver     *Archiver
	timeout      time.Duration
	now          func() time.Time
	observer     Observer
	logger       *slog.Logger
}

// New builds a pipeline from opts
func New(opts Options) *Pipeline {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	observer := opts.Observer
	if observer == nil {
		observer = noopObserver{}
	}
	layout := opts.DateLayout
	if layout == "" {
		layout = time.DateOnly
	}
	return &Pipeline{
		source:       opts.Source,
		sourcePrefix: opts.SourcePrefix,
		dateLayout:   layout,
		loader: &Loader{
			Store:     opts.Source,
			Delimiter: opts.Delimiter,
			Workers:   opts.ReadWorkers,
			Logger:    logger,
		},
		cleaner: &Cleaner{
			Columns:     opts.Columns,
			DateLayouts: opts.DateLayouts,
			Logger:      logger,
		},
		groupBy: opts.GroupBy,
		writer: &Writer{
			Store:       opts.Output,
			Directory:   opts.OutputDir,
			Prefix:      opts.OutputPrefix,
			Format:      opts.OutputFormat,
			Partitioned: opts.OutputPartitioned,
			Now:         now,
			Logger:      logger,
		},
		archiver: &Archiver{
			Store:     opts.Source,
			Container: opts.ArchiveContainer,
			Tier:      opts.ArchiveTier,
			Workers:   opts.ArchiveWorkers,
			Logger:    logger,
		},
		timeout:  opts.Timeout,
		now:      now,
		observer: observer,
		logger:   logger,
	}
}

// ------------------- Pipeline Runner -------------------

// Run executes one batch for referenceDate. The returned result is always
// non-nil; on failure its State is StateFailed and the error is also
// returned.
func (p *Pipeline) Run(ctx context.Context, referenceDate string) (*model.RunResult, error) {
	res := &model.RunResult{
		RunID:         uuid.New().String(),
		ReferenceDate: referenceDate,
		State:         model.StateIdle,
		StartedAt:     p.now().UTC(),
	}
	ctx = logging.WithRunID(ctx, res.RunID)

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	p.logger.InfoContext(ctx, "pipeline run started", slog.String("reference_date", referenceDate))
	p.observer.RunStarted(ctx, res)

	err := p.run(ctx, res)
	if err != nil {
		res.Err = err
		p.enter(ctx, res, model.StateFailed)
		p.logger.ErrorContext(ctx, "pipeline run failed",
			slog.String("kind", string(etlerr.KindOf(err))),
			slog.Any("result", res),
			slog.Any("error", err))
	} else {
		p.enter(ctx, res, model.StateDone)
		p.logger.InfoContext(ctx, "pipeline run completed", slog.Any("result", res))
	}
	res.FinishedAt = p.now().UTC()
	p.observer.RunFinished(ctx, res)
	return res, err
}

func (p *Pipeline) run(ctx context.Context, res *model.RunResult) error {
	p.enter(ctx, res, model.StateSelecting)
	listing, err := p.source.List(ctx, p.sourcePrefix)
	if err != nil {
		return etlerr.Wrap(err, etlerr.KindSourceRead, "list source objects")
	}
	selected, err := SelectSources(listing, res.ReferenceDate, p.dateLayout)
	if err != nil {
		return err
	}
	res.Selected = selected
	if len(selected) == 0 {
		p.logger.InfoContext(ctx, "no source objects in window")
		return nil
	}

	p.enter(ctx, res, model.StateLoading)
	raw, err := p.loader.Load(ctx, selected)
	if err != nil {
		return err
	}
	res.RawRows = len(raw.Rows)

	p.enter(ctx, res, model.StateCleaning)
	clean, err := p.cleaner.Clean(raw)
	if err != nil {
		return err
	}
	res.Clean = clean.Report

	p.enter(ctx, res, model.StateAggregating)
	agg, err := Aggregate(clean, p.groupBy)
	if err != nil {
		return err
	}
	res.Groups = len(agg.Records)

	p.enter(ctx, res, model.StateWriting)
	out, err := p.writer.Write(ctx, agg)
	if err != nil {
		return err
	}
	res.OutputPath = out

	// output is committed; a failure from here on leaves it in place and a
	// re-run overwrites it under a new timestamp
	p.enter(ctx, res, model.StateArchiving)
	archived, err := p.archiver.Archive(ctx, selected)
	res.Archived = archived
	return err
}

func (p *Pipeline) enter(ctx context.Context, res *model.RunResult, to model.State) {
	from := res.State
	if from.Terminal() {
		return
	}
	res.State = to
	if to == model.StateFailed {
		res.FailedStage = from
	}
	p.observer.StateChanged(ctx, res, from)
}
