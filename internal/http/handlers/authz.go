package handlers

import (
	"github.com/gofiber/fiber/v2"

	applog "storefront/internal/log"
	"storefront/internal/services"
)

const AdminKeyHeader = "X-Admin-Key"

// RequireAdmin lets a request through only when it carries the admin key.
func RequireAdmin(auth *services.AdminAuth) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := auth.Verify(c.Get(AdminKeyHeader)); err != nil {
			applog.Security(c, "admin.denied", map[string]any{
				"enabled":     auth.Enabled(),
				"key_present": c.Get(AdminKeyHeader) != "",
			})
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "access denied"})
		}
		return c.Next()
	}
}
