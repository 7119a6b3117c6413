package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunFinished(t *testing.T) {
	m := New(nil)
	at := time.Date(2014, 7, 1, 0, 0, 0, 0, time.UTC)

	m.RunFinished(OutcomeSucceeded, at)
	m.RunFinished(OutcomeFailed, at.Add(time.Hour))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RunsTotal.WithLabelValues(OutcomeSucceeded)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RunsTotal.WithLabelValues(OutcomeFailed)))
	assert.Equal(t, float64(at.Unix()), testutil.ToFloat64(m.LastSuccess))
}

func TestRowsAndArchived(t *testing.T) {
	m := New(nil)
	m.SetRows("raw", 10)
	m.SetRows("raw", 4)
	m.ObjectsArchived.Add(3)

	assert.Equal(t, 4.0, testutil.ToFloat64(m.Rows.WithLabelValues("raw")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.ObjectsArchived))
}

func TestRegistryExposition(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.ObserveStage("loading", 250*time.Millisecond)
	m.RunFinished(OutcomeNoop, time.Now())

	expected := `
# HELP etl_runs_total Pipeline runs by outcome.
# TYPE etl_runs_total counter
etl_runs_total{outcome="noop"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "etl_runs_total"))

	n, err := testutil.GatherAndCount(reg, "etl_stage_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
