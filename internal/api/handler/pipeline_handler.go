package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"go-cloud-etl/internal/model"
	"go-cloud-etl/internal/store"
	"go-cloud-etl/pkg/utils"
)

const (
	runsPrefix = "/api/v1/runs/"
	logsSuffix = "/logs"

	triggerSucceeded = "This HTTP triggered function executed successfully."
	triggerFailed    = "!! This HTTP triggered function executed unsuccessfully."
	triggerBusy      = "!! A pipeline run is already in progress, try again later."
)

// Runner executes one pipeline batch
type Runner interface {
	Run(ctx context.Context, referenceDate string) (*model.RunResult, error)
}

// RunReader reads tracked runs
type RunReader interface {
	ListRuns(ctx context.Context, limit int) ([]model.RunRecord, error)
	GetRun(ctx context.Context, runID string) (*model.RunRecord, error)
	GetRunLogs(ctx context.Context, runID string) ([]model.RunLog, error)
}

// TriggerRequest is the optional JSON body of the trigger
type TriggerRequest struct {
	Date string `json:"date" example:"2014-07-01"`
}

// ErrorResponse is returned by the JSON endpoints on failure
type ErrorResponse struct {
	Error string `json:"error"`
}

// RunDetail is a tracked run with its stage log
type RunDetail struct {
	model.RunRecord
	Logs []model.RunLog `json:"logs"`
}

// Handler serves the trigger and the run tracking API
type Handler struct {
	Runner      Runner
	Runs        RunReader
	DefaultDate string
	Summarize   func(*model.RunResult, error) string
	Logger      *slog.Logger

	running sync.Mutex
}

func (h *Handler) logger() *slog.Logger {
	if h.Logger == nil {
		return slog.Default()
	}
	return h.Logger
}

// TriggerCloudETL runs the pipeline synchronously
// @Summary Run the ETL batch
// @Description Select, clean, aggregate, write and archive the extracts for a reference date. The response is always 200; the body says whether the run succeeded.
// @Tags trigger
// @Accept json
// @Produce plain
// @Param date query string false "Reference date in the configured format"
// @Param timeout query string false "Run deadline such as 5m, on top of the configured timeout"
// @Param request body TriggerRequest false "Reference date (alternative to the query parameter)"
// @Success 200 {string} string "Run outcome"
// @Router /cloudetl [get]
// @Router /cloudetl [post]
func (h *Handler) TriggerCloudETL(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" && r.Method == http.MethodPost && r.ContentLength != 0 {
		var req TriggerRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err == nil {
			date = req.Date
		}
	}
	if date == "" {
		date = h.DefaultDate
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if !h.running.TryLock() {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, triggerBusy)
		return
	}
	defer h.running.Unlock()

	ctx := r.Context()
	if timeout := utils.ParseDuration(r.URL.Query().Get("timeout"), 0); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	res, err := h.Runner.Run(ctx, date)
	w.WriteHeader(http.StatusOK)
	if err != nil {
		h.logger().ErrorContext(ctx, "triggered run failed", slog.Any("error", err))
		fmt.Fprintf(w, "%s \n\t %v \n", triggerFailed, err)
		return
	}
	fmt.Fprintln(w, triggerSucceeded)
	if h.Summarize != nil {
		fmt.Fprintln(w, h.Summarize(res, nil))
	}
}

// ListRuns retrieves tracked runs
// @Summary List runs
// @Description Get the most recent pipeline runs with their status
// @Tags runs
// @Produce json
// @Param limit query int false "Maximum number of runs" default(50)
// @Success 200 {array} model.RunRecord "List of runs"
// @Failure 400 {object} ErrorResponse "Invalid limit"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Failure 503 {object} ErrorResponse "Run tracking disabled"
// @Router /v1/runs [get]
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	if !h.trackingEnabled(w) {
		return
	}
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	runs, err := h.Runs.ListRuns(r.Context(), limit)
	if err != nil {
		h.logger().ErrorContext(r.Context(), "failed to list runs", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "Failed to fetch runs")
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

// GetRun retrieves one tracked run
// @Summary Get run
// @Description Retrieve a pipeline run and its stage log
// @Tags runs
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {object} RunDetail "Run details"
// @Failure 400 {object} ErrorResponse "Invalid run ID"
// @Failure 404 {object} ErrorResponse "Run not found"
// @Failure 503 {object} ErrorResponse "Run tracking disabled"
// @Router /v1/runs/{id} [get]
func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	if !h.trackingEnabled(w) {
		return
	}
	runID, ok := extractRunID(w, r.URL.Path, "")
	if !ok {
		return
	}

	run, ok := h.fetchRun(w, r, runID)
	if !ok {
		return
	}
	logs, err := h.Runs.GetRunLogs(r.Context(), runID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to fetch run logs")
		return
	}
	writeJSON(w, http.StatusOK, RunDetail{RunRecord: *run, Logs: logs})
}

// GetRunLogs retrieves the stage log of a run
// @Summary Get run logs
// @Description Retrieve the state transitions recorded for a run
// @Tags runs
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {array} model.RunLog "Run logs"
// @Failure 400 {object} ErrorResponse "Invalid run ID"
// @Failure 404 {object} ErrorResponse "Run not found"
// @Failure 503 {object} ErrorResponse "Run tracking disabled"
// @Router /v1/runs/{id}/logs [get]
func (h *Handler) GetRunLogs(w http.ResponseWriter, r *http.Request) {
	if !h.trackingEnabled(w) {
		return
	}
	runID, ok := extractRunID(w, r.URL.Path, logsSuffix)
	if !ok {
		return
	}
	if _, ok := h.fetchRun(w, r, runID); !ok {
		return
	}

	logs, err := h.Runs.GetRunLogs(r.Context(), runID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to fetch run logs")
		return
	}
	writeJSON(w, http.StatusOK, logs)
}

// Health reports liveness
// @Summary Health check
// @Tags system
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *Handler) trackingEnabled(w http.ResponseWriter) bool {
	if h.Runs == nil {
		writeError(w, http.StatusServiceUnavailable, "Run tracking is disabled")
		return false
	}
	return true
}

func (h *Handler) fetchRun(w http.ResponseWriter, r *http.Request, runID string) (*model.RunRecord, bool) {
	run, err := h.Runs.GetRun(r.Context(), runID)
	if errors.Is(err, store.ErrRunNotFound) {
		writeError(w, http.StatusNotFound, "Run not found")
		return nil, false
	}
	if err != nil {
		h.logger().ErrorContext(r.Context(), "failed to fetch run", slog.String("run", runID), slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "Failed to fetch run")
		return nil, false
	}
	return run, true
}

// extractRunID pulls the ID out of /api/v1/runs/{id}{suffix}
func extractRunID(w http.ResponseWriter, path, suffix string) (string, bool) {
	if !strings.HasPrefix(path, runsPrefix) || !strings.HasSuffix(path, suffix) {
		writeError(w, http.StatusBadRequest, "Invalid path")
		return "", false
	}
	runID := strings.TrimSuffix(path[len(runsPrefix):], suffix)
	if runID == "" || strings.Contains(runID, "/") {
		writeError(w, http.StatusBadRequest, "Run ID is required")
		return "", false
	}
	return runID, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}
