package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/gema-grader/internal/utils"
)

// Grading roles. Teachers and admins manage the archive and settings; assistants
// may only submit and read.
const (
	RoleAdmin     = "admin"
	RoleTeacher   = "teacher"
	RoleAssistant = "assistant"
)

func isGradingRole(role string) bool {
	switch role {
	case RoleAdmin, RoleTeacher, RoleAssistant:
		return true
	}
	return false
}

func normalizeRole(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

// RequireRole admits callers whose token granted one of roles.
func RequireRole(roles ...string) fiber.Handler {
	allowed := make(map[string]struct{}, len(roles))
	names := make([]string, 0, len(roles))
	for _, role := range roles {
		normalized := normalizeRole(role)
		if normalized == "" {
			continue
		}
		if _, seen := allowed[normalized]; !seen {
			names = append(names, normalized)
		}
		allowed[normalized] = struct{}{}
	}
	message := "this grading action requires the " + strings.Join(names, " or ") + " role"

	return func(c *fiber.Ctx) error {
		if _, ok := allowed[UserRole(c)]; !ok {
			return utils.SendError(c, fiber.StatusForbidden, message)
		}
		return c.Next()
	}
}
