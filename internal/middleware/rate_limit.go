package middleware

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/noah-isme/gema-grader/internal/utils"
)

// RateLimit caps the requests a caller may make against scope within window.
// Authenticated callers get their own budget; anonymous ones share one per IP.
func RateLimit(scope string, max int, window time.Duration) fiber.Handler {
	if max <= 0 {
		max = 10
	}
	if window <= 0 {
		window = time.Second
	}
	message := fmt.Sprintf("%s is limited to %d requests per %s, retry later", scope, max, window)

	return limiter.New(limiter.Config{
		Max:        max,
		Expiration: window,
		KeyGenerator: func(c *fiber.Ctx) string {
			return rateLimitKey(scope, c)
		},
		LimitReached: func(c *fiber.Ctx) error {
			return utils.SendErrorKind(c, fiber.StatusTooManyRequests, message, "rate_limited")
		},
	})
}

func rateLimitKey(scope string, c *fiber.Ctx) string {
	if userID := UserID(c); userID != "" {
		return scope + ":user:" + userID
	}
	return scope + ":ip:" + c.IP()
}
