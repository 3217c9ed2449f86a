package middleware

import (
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"

	"dimria/internal/services"
)

// UserIDKey is the locals key carrying the authenticated user's id.
const UserIDKey = "user_id"

// AuthRequired is a Fiber middleware that checks for a valid bearer token
// on the JSON API and stores the authenticated user id in locals.
func AuthRequired(accounts *services.AccountService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"error":   "Authorization header is required",
			})
		}

		// Expected format: "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if !(len(parts) == 2 && parts[0] == "Bearer") {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"error":   "Authorization header format must be 'Bearer <token>'",
			})
		}

		claims, err := accounts.ValidateToken(parts[1])
		if err != nil {
			log.Printf("middleware: token validation failed: %v", err)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"error":   "Invalid or expired token",
			})
		}

		id, ok := claims["user_id"].(float64)
		if !ok || id <= 0 {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"error":   "Invalid or expired token",
			})
		}

		c.Locals(UserIDKey, uint(id))
		return c.Next()
	}
}

// UserID extracts the authenticated user id set by AuthRequired.
func UserID(c *fiber.Ctx) (uint, bool) {
	id, ok := c.Locals(UserIDKey).(uint)
	return id, ok && id > 0
}
