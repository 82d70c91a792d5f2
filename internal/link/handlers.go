package link

import "github.com/gofiber/fiber/v2"

// RegisterRoutes exposes the token-issuance page backing "get a bot token"
// on the site. The caller must already be logged in.
func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	r.Get("/token", authMiddleware, func(c *fiber.Ctx) error {
		username, _ := c.Locals("username").(string)
		if username == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "username missing from token")
		}
		token, err := svc.Issue(username)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(fiber.Map{"token": token, "expires_in": int(linkTokenTTL.Seconds())})
	})
}
