package complaint

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
)

// AdminChecker reports whether the authenticated user may see and answer all
// complaints.
type AdminChecker func(ctx context.Context, userID string) (bool, error)

func RegisterRoutes(r fiber.Router, svc *Service, isAdmin AdminChecker, authMiddleware fiber.Handler) {
	r.Post("/", authMiddleware, func(c *fiber.Ctx) error {
		var body struct {
			Text string `json:"text"`
		}
		if err := c.BodyParser(&body); err != nil || body.Text == "" {
			return fiber.NewError(fiber.StatusBadRequest, "text required")
		}
		created, err := svc.Create(c.Context(), c.Locals("user_id").(string), body.Text)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.Status(fiber.StatusCreated).JSON(created)
	})

	r.Get("/", authMiddleware, func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		admin, err := isAdmin(c.Context(), userID)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		list, err := svc.List(c.Context(), userID, admin)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(list)
	})

	r.Post("/:id/answer", authMiddleware, func(c *fiber.Ctx) error {
		admin, err := isAdmin(c.Context(), c.Locals("user_id").(string))
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		if !admin {
			return fiber.NewError(fiber.StatusForbidden, "admin only")
		}

		var body struct {
			Answer string `json:"answer"`
		}
		if err := c.BodyParser(&body); err != nil || body.Answer == "" {
			return fiber.NewError(fiber.StatusBadRequest, "answer required")
		}
		answered, err := svc.Answer(c.Context(), c.Params("id"), body.Answer)
		if errors.Is(err, ErrComplaintNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "complaint not found")
		}
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(answered)
	})
}
