package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jjenkins/rtharvest/internal/logger"
	"github.com/jjenkins/rtharvest/internal/service"
	"github.com/jjenkins/rtharvest/internal/store"
	"github.com/prometheus/client_golang/prometheus"
)

// Deps holds what the web UI reads from.
type Deps struct {
	Acts    *store.ActStore
	Runs    *store.RunStore
	Metrics *service.MetricsService
	Log     logger.Logger
}

// Register mounts every route on app and returns the registry behind /metrics.
func Register(app *fiber.App, d Deps) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(service.NewArchiveCollector(d.Acts, d.Log))

	app.Get("/", HomeHandler(d.Metrics, d.Runs, d.Log))

	// Act routes
	app.Get("/acts", ActsHandler(d.Acts, d.Log))
	app.Get("/acts/:id", ActDetailHandler(d.Acts, d.Log))

	app.Get("/runs", RunsHandler(d.Runs, d.Log))
	app.Get("/metrics", MetricsHandler(reg))

	return reg
}
