package middleware

import (
	"os"
	"strings"

	"github.com/afya-ehr/afya-backend/internal/utils"
	"github.com/gofiber/fiber/v2"
)

// RequireAdmin validates the bearer token issued by the admin login
// endpoint and rejects everything else.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		secret := os.Getenv("JWT_SECRET")
		if secret == "" {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Server configuration error",
			})
		}

		header := c.Get("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Missing bearer token",
			})
		}

		claims, err := utils.ValidateAdminToken(strings.TrimPrefix(header, "Bearer "), secret)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid or expired token",
			})
		}

		c.Locals("admin", claims.Subject)
		return c.Next()
	}
}
