package handlers

import (
	"github.com/a-h/templ"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/jjenkins/rtharvest/internal/logger"
	"github.com/jjenkins/rtharvest/internal/service"
	"github.com/jjenkins/rtharvest/internal/store"
	"github.com/jjenkins/rtharvest/internal/templates"
)

func HomeHandler(metricsService *service.MetricsService, runStore *store.RunStore, log logger.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := c.UserContext()

		metrics := templates.HomeMetrics{}

		stats, err := metricsService.Calculate(ctx)
		if err != nil {
			log.Error("Error calculating archive stats", logger.Error(err))
		} else {
			metrics.TotalActs = stats.TotalActs
			metrics.WithPlain = stats.WithPlain
			metrics.WithMarkup = stats.WithMarkup
			metrics.ByStatus = stats.ByStatus
			metrics.HasData = stats.TotalActs > 0
		}

		if metrics.HasData {
			runs, err := runStore.ListRecent(ctx, 1)
			if err != nil {
				log.Error("Error loading harvest runs", logger.Error(err))
			} else if len(runs) > 0 {
				metrics.LastRun = &runs[0]
			}
		}

		page := templates.Home(metrics)
		handler := adaptor.HTTPHandler(templ.Handler(page))

		return handler(c)
	}
}
