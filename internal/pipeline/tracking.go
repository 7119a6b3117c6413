package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go-cloud-etl/internal/etlerr"
	"go-cloud-etl/internal/metrics"
	"go-cloud-etl/internal/model"
)

// RunRecorder persists run state. *store.Store implements it.
type RunRecorder interface {
	SaveRun(ctx context.Context, runID, referenceDate string) error
	UpdateRunStatus(ctx context.Context, runID, status string) error
	FinishRun(ctx context.Context, rec model.RunRecord) error
	SaveRunError(ctx context.Context, runID string, err error) error
	SaveRunLog(ctx context.Context, entry model.RunLog) error
}

// Tracker is the Observer that mirrors runs into the run database, the
// prometheus collectors and the log. Recorder and Metrics are optional.
// Tracking failures are logged and never fail the run.
type Tracker struct {
	Recorder RunRecorder
	Metrics  *metrics.Metrics
	Logger   *slog.Logger

	now     func() time.Time
	mu      sync.Mutex
	entered map[string]time.Time
}

// NewTracker creates a tracker
func NewTracker(rec RunRecorder, m *metrics.Metrics, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{
		Recorder: rec,
		Metrics:  m,
		Logger:   logger,
		now:      time.Now,
		entered:  make(map[string]time.Time),
	}
}

func (t *Tracker) RunStarted(ctx context.Context, res *model.RunResult) {
	t.mark(res.RunID)
	if t.Recorder == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	if err := t.Recorder.SaveRun(ctx, res.RunID, res.ReferenceDate); err != nil {
		t.Logger.WarnContext(ctx, "failed to record run", slog.Any("error", err))
	}
}

func (t *Tracker) StateChanged(ctx context.Context, res *model.RunResult, from model.State) {
	elapsed := t.mark(res.RunID)
	if t.Metrics != nil && from != model.StateIdle {
		t.Metrics.ObserveStage(string(from), elapsed)
	}

	level := "info"
	if res.State == model.StateFailed {
		level = "error"
	}
	details := stateDetails(res)
	t.Logger.DebugContext(ctx, "state changed",
		slog.String("from", string(from)),
		slog.String("to", string(res.State)),
		slog.Duration("elapsed", elapsed))

	if t.Recorder == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	if err := t.Recorder.UpdateRunStatus(ctx, res.RunID, string(res.State)); err != nil {
		t.Logger.WarnContext(ctx, "failed to update run status", slog.Any("error", err))
	}
	entry := model.RunLog{
		RunID:   res.RunID,
		Stage:   string(res.State),
		Level:   level,
		Message: "entered " + string(res.State),
		Details: details,
	}
	if err := t.Recorder.SaveRunLog(ctx, entry); err != nil {
		t.Logger.WarnContext(ctx, "failed to record run log", slog.Any("error", err))
	}
}

func (t *Tracker) RunFinished(ctx context.Context, res *model.RunResult) {
	t.mu.Lock()
	delete(t.entered, res.RunID)
	t.mu.Unlock()

	if t.Metrics != nil {
		t.Metrics.RunFinished(Outcome(res), res.FinishedAt)
		t.Metrics.SetRows("raw", res.RawRows)
		t.Metrics.SetRows("dropped_missing", res.Clean.DroppedMissing)
		t.Metrics.SetRows("dropped_bad_date", res.Clean.DroppedBadDate)
		t.Metrics.SetRows("clean", res.Clean.OutputRows)
		t.Metrics.SetRows("groups", res.Groups)
		t.Metrics.ObjectsArchived.Add(float64(len(res.Archived)))
	}

	if t.Recorder == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	rec := model.RunRecord{
		ID:            res.RunID,
		ReferenceDate: res.ReferenceDate,
		Status:        string(res.State),
		Selected:      len(res.Selected),
		Groups:        res.Groups,
		OutputPath:    res.OutputPath,
	}
	if res.Err != nil {
		rec.Error = res.Err.Error()
		if err := t.Recorder.SaveRunError(ctx, res.RunID, res.Err); err != nil {
			t.Logger.WarnContext(ctx, "failed to record run error", slog.Any("error", err))
		}
	}
	if err := t.Recorder.FinishRun(ctx, rec); err != nil {
		t.Logger.WarnContext(ctx, "failed to finish run record", slog.Any("error", err))
	}
}

// Outcome classifies a finished run for metrics
func Outcome(res *model.RunResult) string {
	switch {
	case !res.Succeeded():
		return metrics.OutcomeFailed
	case len(res.Selected) == 0:
		return metrics.OutcomeNoop
	}
	return metrics.OutcomeSucceeded
}

// mark stamps the current state entry time and returns the time spent in
// the previous state
func (t *Tracker) mark(runID string) time.Duration {
	now := t.now()
	t.mu.Lock()
	defer t.mu.Unlock()
	var elapsed time.Duration
	if prev, ok := t.entered[runID]; ok {
		elapsed = now.Sub(prev)
	}
	t.entered[runID] = now
	return elapsed
}

func stateDetails(res *model.RunResult) map[string]any {
	switch res.State {
	case model.StateLoading:
		return map[string]any{"selected": len(res.Selected)}
	case model.StateCleaning:
		return map[string]any{"raw_rows": res.RawRows}
	case model.StateAggregating:
		return map[string]any{
			"clean_rows":       res.Clean.OutputRows,
			"dropped_missing":  res.Clean.DroppedMissing,
			"dropped_bad_date": res.Clean.DroppedBadDate,
		}
	case model.StateWriting:
		return map[string]any{"groups": res.Groups}
	case model.StateArchiving:
		return map[string]any{"output_path": res.OutputPath}
	case model.StateDone:
		return map[string]any{"selected": len(res.Selected), "archived": len(res.Archived)}
	case model.StateFailed:
		details := map[string]any{"archived": len(res.Archived), "stage": string(res.FailedStage)}
		if res.Err != nil {
			details["error"] = res.Err.Error()
			details["kind"] = string(etlerr.KindOf(res.Err))
		}
		return details
	}
	return nil
}
