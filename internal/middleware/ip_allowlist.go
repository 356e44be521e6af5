package middleware

import (
	"log"

	"github.com/gofiber/fiber/v2"
)

// AllowIPs is a Fiber middleware restricting a route to a set of source
// IPs. Used as the coarse trust boundary on the payment webhook, whose
// payload is otherwise unauthenticated.
func AllowIPs(allowed []string) fiber.Handler {
	allowedSet := make(map[string]bool, len(allowed))
	for _, ip := range allowed {
		allowedSet[ip] = true
	}

	return func(c *fiber.Ctx) error {
		clientIP := c.IP()
		if !allowedSet[clientIP] {
			log.Printf("Rejected webhook request from untrusted IP %s", clientIP)
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"message": "Requests from this address are not allowed",
			})
		}
		return c.Next()
	}
}
