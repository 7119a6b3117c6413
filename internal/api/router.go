package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "go-cloud-etl/docs"
	"go-cloud-etl/internal/api/handler"
	"go-cloud-etl/internal/app"
	"go-cloud-etl/pkg/router"
)

// NewHandler builds the API handler for a
func NewHandler(a *app.App) *handler.Handler {
	h := &handler.Handler{
		Runner:      a.Pipeline,
		DefaultDate: a.Config.Run.ReferenceDate,
		Summarize:   app.Summary,
		Logger:      a.Logger,
	}
	if a.Runs != nil {
		h.Runs = a.Runs
	}
	return h
}

// NewRouter wires every route for a
func NewRouter(a *app.App, opts ...router.Option) *router.Router {
	r := router.New(append([]router.Option{router.WithLogger(a.Logger)}, opts...)...)
	RegisterRoutes(r, NewHandler(a), a.Registry)
	return r
}

func RegisterRoutes(r *router.Router, h *handler.Handler, reg *prometheus.Registry) {
	r.GET("/api/cloudetl", h.TriggerCloudETL)
	r.POST("/api/cloudetl", h.TriggerCloudETL)
	r.GET("/api/health", h.Health)
	r.GET("/api/v1/runs", h.ListRuns)
	// More specific routes first
	r.GET("/api/v1/runs/*/logs", h.GetRunLogs)
	r.GET("/api/v1/runs/*", h.GetRun)

	var metrics http.Handler = promhttp.Handler()
	if reg != nil {
		metrics = promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
	}
	r.Handle("/metrics", metrics)
	r.Handle("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))
}
