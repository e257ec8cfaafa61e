package httpapi

import (
	"errors"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/abnvle/ha-imgw-pib-monitor/internal/imgw"
	"github.com/abnvle/ha-imgw-pib-monitor/internal/monitor"
)

var validate = validator.New()

// RegisterRoutes wires the HTTP handlers into the Fiber app. location may be
// nil when dynamic tracking is not in use.
func RegisterRoutes(app *fiber.App, hub *monitor.Hub, client *imgw.Client, location *monitor.PointSource) {
	v1 := app.Group("/api/v1")

	v1.Put("/location", func(c *fiber.Ctx) error {
		if location == nil {
			return fiber.NewError(fiber.StatusNotFound, "location tracking disabled")
		}

		var body struct {
			Lat float64 `json:"lat" validate:"required,gte=-90,lte=90"`
			Lon float64 `json:"lon" validate:"required,gte=-180,lte=180"`
		}
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := validate.Struct(body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		location.Set(body.Lat, body.Lon)
		return c.SendStatus(fiber.StatusNoContent)
	})

	v1.Post("/subscriptions", func(c *fiber.Ctx) error {
		var sub monitor.Subscription
		if err := c.BodyParser(&sub); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		handle, err := hub.Register(sub)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"handle": handle,
		})
	})

	v1.Get("/subscriptions", func(c *fiber.Ctx) error {
		return c.JSON(hub.Subscriptions())
	})

	v1.Put("/subscriptions/:id", func(c *fiber.Ctx) error {
		var sub monitor.Subscription
		if err := c.BodyParser(&sub); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		err := hub.Update(c.Params("id"), sub)
		if errors.Is(err, monitor.ErrUnknownHandle) {
			return fiber.NewError(fiber.StatusNotFound, "unknown subscription")
		}
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	v1.Delete("/subscriptions/:id", func(c *fiber.Ctx) error {
		err := hub.Unregister(c.Params("id"))
		if errors.Is(err, monitor.ErrUnknownHandle) {
			return fiber.NewError(fiber.StatusNotFound, "unknown subscription")
		}
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to unregister")
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	v1.Get("/subscriptions/:id/snapshot", func(c *fiber.Ctx) error {
		snapshot, err := hub.Snapshot(c.Params("id"))
		if errors.Is(err, monitor.ErrUnknownHandle) {
			return fiber.NewError(fiber.StatusNotFound, "unknown subscription")
		}
		if errors.Is(err, monitor.ErrUpdateFailed) {
			return fiber.NewError(fiber.StatusServiceUnavailable, "data unavailable")
		}
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to read snapshot")
		}
		return c.JSON(snapshot)
	})

	v1.Get("/subscriptions/:id/forecast", func(c *fiber.Ctx) error {
		snapshot, err := hub.ForecastSnapshot(c.Params("id"))
		if errors.Is(err, monitor.ErrUnknownHandle) {
			return fiber.NewError(fiber.StatusNotFound, "unknown subscription or forecast disabled")
		}
		if errors.Is(err, monitor.ErrUpdateFailed) {
			return fiber.NewError(fiber.StatusServiceUnavailable, "forecast unavailable")
		}
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to read forecast")
		}
		return c.JSON(snapshot)
	})

	v1.Get("/locations/search", func(c *fiber.Ctx) error {
		var q searchQuery
		if err := q.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		results, err := client.SearchLocations(c.Context(), q.Name, q.Limit)
		if err != nil {
			return fiber.NewError(fiber.StatusBadGateway, "location search failed")
		}
		return c.JSON(results)
	})
}

// searchQuery holds query parameters for the location search endpoint.
type searchQuery struct {
	Name  string `validate:"required"`
	Limit int    `validate:"gte=0,lte=50"`
}

func (q *searchQuery) bind(c *fiber.Ctx) error {
	q.Name = c.Query("name")

	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			return errors.New("limit must be an integer")
		}
		q.Limit = limit
	} else {
		q.Limit = 10
	}

	return validate.Struct(q)
}
