package middleware

import (
	"github.com/gofiber/fiber/v2"
)

// NoCache disables client-side caching on every response.
func NoCache() fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()
		c.Set(fiber.HeaderCacheControl, "no-cache, no-store, must-revalidate")
		c.Set("Pragma", "no-cache")
		c.Set(fiber.HeaderExpires, "0")
		return err
	}
}
