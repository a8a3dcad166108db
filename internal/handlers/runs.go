package handlers

import (
	"github.com/a-h/templ"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/jjenkins/rtharvest/internal/logger"
	"github.com/jjenkins/rtharvest/internal/store"
	"github.com/jjenkins/rtharvest/internal/templates"
)

func RunsHandler(runStore *store.RunStore, log logger.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		runs, err := runStore.ListRecent(c.UserContext(), c.QueryInt("limit", 50))
		if err != nil {
			log.Error("Error listing harvest runs", logger.Error(err))
			return c.Status(fiber.StatusInternalServerError).SendString("Error loading harvest runs")
		}

		page := templates.Runs(runs)
		handler := adaptor.HTTPHandler(templ.Handler(page))

		return handler(c)
	}
}
