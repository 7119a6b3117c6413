package api

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-cloud-etl/internal/app"
	"go-cloud-etl/internal/config"
	"go-cloud-etl/internal/storage/memstore"
	"go-cloud-etl/pkg/router"
)

func newTestApp(t *testing.T) (*app.App, *memstore.Store) {
	t.Helper()
	cfg := &config.Config{
		Run:     config.RunConfig{ReferenceDate: "2014-07-01", DateFormat: "%Y-%m-%d"},
		Source:  config.SourceConfig{Backend: "local", Delimiter: ",", Workers: 1},
		Output:  config.OutputConfig{Backend: "local", Prefix: "financial_demo", Format: "csv"},
		Archive: config.ArchiveConfig{Container: "archive", Tier: "cool", Workers: 1},
	}
	source := memstore.New("ingest")
	source.Put("ingest", "sales.csv",
		[]byte("Segment,Country,Units Sold,Gross Sales,Date\nGovernment,Canada,10,$100,2014-06-30\n"),
		time.Date(2014, 7, 1, 1, 0, 0, 0, time.UTC))

	a, err := app.New(context.Background(), cfg, nil, app.Stores{Source: source, Output: source})
	require.NoError(t, err)
	return a, source
}

func serve(r http.Handler, method, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestRouterTriggerAndMetrics(t *testing.T) {
	a, source := newTestApp(t)
	r := NewRouter(a, router.WithOutput(&bytes.Buffer{}))

	rec := serve(r, http.MethodPost, "/api/cloudetl")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "executed successfully")
	assert.Equal(t, []string{"sales.csv"}, source.Names("archive"))

	rec = serve(r, http.MethodGet, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `etl_runs_total{outcome="succeeded"} 1`)
	assert.Contains(t, rec.Body.String(), "etl_objects_archived_total 1")
}

func TestRouterTriggerInvalidDate(t *testing.T) {
	a, source := newTestApp(t)
	r := NewRouter(a, router.WithOutput(&bytes.Buffer{}))

	rec := serve(r, http.MethodGet, "/api/cloudetl?date=01-07-2014")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "executed unsuccessfully")
	assert.Contains(t, rec.Body.String(), "InvalidDateFormat")
	assert.Empty(t, source.Names("archive"))
}

func TestRouterRunsWithoutTracking(t *testing.T) {
	a, _ := newTestApp(t)
	r := NewRouter(a, router.WithOutput(&bytes.Buffer{}))

	assert.Equal(t, http.StatusServiceUnavailable, serve(r, http.MethodGet, "/api/v1/runs").Code)
	assert.Equal(t, http.StatusServiceUnavailable, serve(r, http.MethodGet, "/api/v1/runs/abc/logs").Code)
	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/api/health").Code)
}

func TestRouterSwagger(t *testing.T) {
	a, _ := newTestApp(t)
	r := NewRouter(a, router.WithOutput(&bytes.Buffer{}))

	rec := serve(r, http.MethodGet, "/swagger/doc.json")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Cloud ETL API")
	assert.Contains(t, rec.Body.String(), "/v1/runs/{id}/logs")
}
