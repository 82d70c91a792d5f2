package route

import (
	"context"
	"errors"
	"log"

	"github.com/maroonlid/Tutunovka-HSE/internal/geo"

	"github.com/gofiber/fiber/v2"
)

// Geocoder resolves a dot's free-text location for the map view.
type Geocoder interface {
	Geocode(ctx context.Context, query string) (geo.Point, error)
}

type dotVis struct {
	Name string    `json:"name"`
	Geo  geo.Point `json:"geo"`
	Date string    `json:"date,omitempty"`
}

func RegisterRoutes(r fiber.Router, svc *Service, geocoder Geocoder, authMiddleware fiber.Handler) {
	r.Post("/", authMiddleware, func(c *fiber.Ctx) error {
		var req RouteInput
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if req.Name == "" {
			return fiber.NewError(fiber.StatusBadRequest, "name required")
		}
		if len(req.Dots) == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "at least one dot required")
		}
		route, err := svc.CreateRoute(c.Context(), c.Locals("user_id").(string), req)
		if errors.Is(err, ErrDotDateOutOfRange) {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.Status(fiber.StatusCreated).JSON(route)
	})

	r.Get("/", authMiddleware, func(c *fiber.Ctx) error {
		routes, err := svc.RoutesByAuthor(c.Context(), c.Locals("user_id").(string))
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(routes)
	})

	r.Get("/:id", authMiddleware, func(c *fiber.Ctx) error {
		route, err := svc.GetRoute(c.Context(), c.Params("id"))
		if errors.Is(err, ErrRouteNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "route not found")
		}
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(fiber.Map{
			"route":    route,
			"dots_vis": geocodeDots(c.Context(), geocoder, route.Dots),
		})
	})

	r.Put("/:id", authMiddleware, func(c *fiber.Ctx) error {
		var req RouteInput
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := requireAuthor(c, svc); err != nil {
			return err
		}
		route, err := svc.UpdateRoute(c.Context(), c.Params("id"), req)
		if errors.Is(err, ErrDotDateOutOfRange) {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(route)
	})

	r.Delete("/:id", authMiddleware, func(c *fiber.Ctx) error {
		if err := requireAuthor(c, svc); err != nil {
			return err
		}
		if err := svc.DeleteRoute(c.Context(), c.Params("id")); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	r.Post("/:id/dots", authMiddleware, func(c *fiber.Ctx) error {
		var req DotInput
		if err := c.BodyParser(&req); err != nil || req.Name == "" {
			return fiber.NewError(fiber.StatusBadRequest, "dot name required")
		}
		if err := requireAuthor(c, svc); err != nil {
			return err
		}
		dot, err := svc.AddDot(c.Context(), c.Params("id"), req)
		switch {
		case errors.Is(err, ErrRouteNotFound):
			return fiber.NewError(fiber.StatusNotFound, "route not found")
		case errors.Is(err, ErrDotDateOutOfRange):
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		case err != nil:
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.Status(fiber.StatusCreated).JSON(dot)
	})

	r.Put("/:id/dots/:dotID", authMiddleware, func(c *fiber.Ctx) error {
		var req DotInput
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := requireAuthor(c, svc); err != nil {
			return err
		}
		dot, err := svc.UpdateDot(c.Context(), c.Params("id"), c.Params("dotID"), req)
		switch {
		case errors.Is(err, ErrRouteNotFound), errors.Is(err, ErrDotNotFound):
			return fiber.NewError(fiber.StatusNotFound, err.Error())
		case errors.Is(err, ErrDotDateOutOfRange):
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		case err != nil:
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(dot)
	})

	r.Post("/:id/notes", authMiddleware, func(c *fiber.Ctx) error {
		var body struct {
			Text string `json:"text"`
		}
		if err := c.BodyParser(&body); err != nil || body.Text == "" {
			return fiber.NewError(fiber.StatusBadRequest, "text required")
		}
		if err := requireAuthor(c, svc); err != nil {
			return err
		}
		note, err := svc.AddNote(c.Context(), c.Params("id"), body.Text)
		if errors.Is(err, ErrRouteNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "route not found")
		}
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.Status(fiber.StatusCreated).JSON(note)
	})

	r.Patch("/notes/:noteID", authMiddleware, func(c *fiber.Ctx) error {
		var body struct {
			Done bool `json:"done"`
		}
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := svc.SetNoteDone(c.Context(), c.Params("noteID"), body.Done); err != nil {
			if errors.Is(err, ErrNoteNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "note not found")
			}
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(fiber.Map{"status": "success"})
	})

	r.Post("/:id/publish", authMiddleware, func(c *fiber.Ctx) error {
		if err := requireAuthor(c, svc); err != nil {
			return err
		}
		pub, err := svc.PublishRoute(c.Context(), c.Params("id"))
		if errors.Is(err, ErrRouteNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "route not found")
		}
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.Status(fiber.StatusCreated).JSON(pub)
	})
}

func RegisterPublicRoutes(r fiber.Router, svc *Service, geocoder Geocoder, authMiddleware fiber.Handler) {
	r.Get("/", func(c *fiber.Ctx) error {
		routes, err := svc.PublicRoutes(c.Context())
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(routes)
	})

	r.Get("/search", func(c *fiber.Ctx) error {
		routes, err := svc.SearchPublicRoutes(c.Context(), c.Query("q"))
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(routes)
	})

	r.Get("/tags/:tag", func(c *fiber.Ctx) error {
		routes, err := svc.PublicRoutesByTag(c.Context(), c.Params("tag"))
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(routes)
	})

	r.Get("/:id", func(c *fiber.Ctx) error {
		route, err := svc.GetPublicRoute(c.Context(), c.Params("id"))
		if errors.Is(err, ErrRouteNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "route not found")
		}
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		var dots []Dot
		for _, d := range route.Dots {
			dots = append(dots, Dot{Name: d.Name, Information: d.Information})
		}
		return c.JSON(fiber.Map{
			"route":    route,
			"dots_vis": geocodeDots(c.Context(), geocoder, dots),
		})
	})

	r.Post("/:id/save", authMiddleware, func(c *fiber.Ctx) error {
		route, err := svc.SavePublicRoute(c.Context(), c.Params("id"), c.Locals("user_id").(string))
		if errors.Is(err, ErrRouteNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "route not found")
		}
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.Status(fiber.StatusCreated).JSON(route)
	})
}

func requireAuthor(c *fiber.Ctx, svc *Service) error {
	route, err := svc.GetRoute(c.Context(), c.Params("id"))
	if errors.Is(err, ErrRouteNotFound) {
		return fiber.NewError(fiber.StatusNotFound, "route not found")
	}
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	if route.AuthorID != c.Locals("user_id").(string) {
		return fiber.NewError(fiber.StatusForbidden, "not the route author")
	}
	return nil
}

func geocodeDots(ctx context.Context, geocoder Geocoder, dots []Dot) []dotVis {
	if geocoder == nil {
		return nil
	}
	var vis []dotVis
	for _, dot := range dots {
		point, err := geocoder.Geocode(ctx, dot.Information)
		if err != nil {
			log.Printf("geocode %q: %v", dot.Information, err)
			continue
		}
		v := dotVis{Name: dot.Name, Geo: point}
		if dot.Date != nil {
			v.Date = dot.Date.Format("2006-01-02")
		}
		vis = append(vis, v)
	}
	return vis
}
