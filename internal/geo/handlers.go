package geo

import "github.com/gofiber/fiber/v2"

func RegisterRoutes(r fiber.Router, c *Client) {
	r.Get("/loader", func(ctx *fiber.Ctx) error {
		body, err := c.LoaderJS(ctx.Context())
		if err != nil {
			return fiber.NewError(fiber.StatusBadGateway, "maps api unavailable")
		}
		ctx.Set("Content-Type", "application/x-javascript")
		return ctx.SendString(body)
	})

	r.Get("/geocode", func(ctx *fiber.Ctx) error {
		query := ctx.Query("q")
		if query == "" {
			return fiber.NewError(fiber.StatusBadRequest, "q required")
		}
		point, err := c.Geocode(ctx.Context(), query)
		if err != nil {
			return fiber.NewError(fiber.StatusBadGateway, "geocoder unavailable")
		}
		return ctx.JSON(point)
	})
}
