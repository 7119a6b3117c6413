package model

import (
	"log/slog"
	"time"
)

// State is a pipeline run state
type State string

const (
	StateIdle        State = "idle"
	StateSelecting   State = "selecting"
	StateLoading     State = "loading"
	StateCleaning    State = "cleaning"
	StateAggregating State = "aggregating"
	StateWriting     State = "writing"
	StateArchiving   State = "archiving"
	StateDone        State = "done"
	StateFailed      State = "failed"
)

// Terminal reports whether no further transition can happen
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}

// RunResult summarises one pipeline invocation
type RunResult struct {
	RunID         string              `json:"run_id"`
	ReferenceDate string              `json:"reference_date"`
	State         State               `json:"state"`
	FailedStage   State               `json:"failed_stage,omitempty"`
	Selected      []SourceObject      `json:"selected"`
	RawRows       int                 `json:"raw_rows"`
	Clean         CleanReport         `json:"clean"`
	Groups        int                 `json:"groups"`
	OutputPath    string              `json:"output_path,omitempty"`
	Archived      []ArchiveTransition `json:"archived"`
	StartedAt     time.Time           `json:"started_at"`
	FinishedAt    time.Time           `json:"finished_at"`
	Err           error               `json:"-"`
}

// Succeeded reports whether the run reached StateDone
func (r *RunResult) Succeeded() bool {
	return r != nil && r.State == StateDone
}

// LogValue implements slog.LogValuer
func (r *RunResult) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.String("run_id", r.RunID),
		slog.String("state", string(r.State)),
		slog.Int("selected", len(r.Selected)),
		slog.Int("raw_rows", r.RawRows),
		slog.Int("clean_rows", r.Clean.OutputRows),
		slog.Int("groups", r.Groups),
		slog.Int("archived", len(r.Archived)),
	}
	if r.OutputPath != "" {
		attrs = append(attrs, slog.String("output", r.OutputPath))
	}
	if r.FailedStage != "" {
		attrs = append(attrs, slog.String("failed_stage", string(r.FailedStage)))
	}
	return slog.GroupValue(attrs...)
}
