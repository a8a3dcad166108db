package handlers

import (
	"github.com/a-h/templ"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/jjenkins/rtharvest/internal/logger"
	"github.com/jjenkins/rtharvest/internal/model"
	"github.com/jjenkins/rtharvest/internal/store"
	"github.com/jjenkins/rtharvest/internal/templates"
)

const actsPerPage = 50

func ActsHandler(actStore *store.ActStore, log logger.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := c.UserContext()

		view := templates.ActsView{
			Status: model.Status(c.Query("status")),
			SortBy: c.Query("sort", "title"),
			Order:  c.Query("order", "asc"),
			Page:   c.QueryInt("page", 1),
			Limit:  actsPerPage,
		}
		if view.Page < 1 {
			view.Page = 1
		}

		acts, err := actStore.ListSorted(ctx, store.ListFilter{
			Status: view.Status,
			SortBy: view.SortBy,
			Order:  view.Order,
			Limit:  view.Limit,
			Offset: (view.Page - 1) * view.Limit,
		})
		if err != nil {
			log.Error("Error listing acts", logger.Error(err))
			return c.Status(fiber.StatusInternalServerError).SendString("Error loading acts")
		}

		// Check if this is an HTMX request for just the table body
		if c.Get("HX-Request") == "true" {
			page := templates.ActsTableBody(acts)
			handler := adaptor.HTTPHandler(templ.Handler(page))
			return handler(c)
		}

		view.Total, err = actStore.CountActs(ctx, view.Status)
		if err != nil {
			log.Error("Error counting acts", logger.Error(err))
			return c.Status(fiber.StatusInternalServerError).SendString("Error loading acts")
		}

		page := templates.Acts(acts, view)
		handler := adaptor.HTTPHandler(templ.Handler(page))

		return handler(c)
	}
}

func ActDetailHandler(actStore *store.ActStore, log logger.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := c.UserContext()

		id := c.Params("id")
		if id == "" {
			return c.Status(fiber.StatusBadRequest).SendString("Invalid act id")
		}

		act, err := actStore.GetByUniqueID(ctx, id)
		if err != nil {
			log.Error("Error loading act", logger.String("unique_id", id), logger.Error(err))
			return c.Status(fiber.StatusInternalServerError).SendString("Error loading act")
		}
		if act == nil {
			return c.Status(fiber.StatusNotFound).SendString("Act not found")
		}

		page := templates.ActDetail(act)
		handler := adaptor.HTTPHandler(templ.Handler(page))

		return handler(c)
	}
}
