package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// ConfirmAuthMiddleware gates the order-confirmation endpoint behind a
// shared bearer key. An unset key disables the endpoint entirely rather
// than leaving it open.
func ConfirmAuthMiddleware(confirmKey string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if confirmKey == "" {
			return unauthorizedConfirm(c)
		}

		authHeader := c.Get("Authorization")
		token := ""
		if strings.HasPrefix(authHeader, "Bearer ") {
			token = strings.TrimPrefix(authHeader, "Bearer ")
		}

		if subtle.ConstantTimeCompare([]byte(token), []byte(confirmKey)) != 1 {
			return unauthorizedConfirm(c)
		}

		return c.Next()
	}
}

func unauthorizedConfirm(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"ok":    false,
		"error": "Unauthorized",
	})
}
