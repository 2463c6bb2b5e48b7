package middleware

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/noah-isme/gema-grader/internal/utils"
)

// Locals populated by JWTProtected.
const (
	LocalUserID   = "user_id"
	LocalUserRole = "user_role"
)

const tokenLeeway = 30 * time.Second

// JWTProtected admits requests carrying an HMAC signed bearer token. The token
// subject is stored under LocalUserID and the first grading role named in the
// role or roles claim under LocalUserRole. Roles outside the grading set are
// ignored, so such callers pass authentication but fail RequireRole.
func JWTProtected(secret string) fiber.Handler {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}),
		jwt.WithLeeway(tokenLeeway),
	)
	key := []byte(secret)
	keyFunc := func(*jwt.Token) (interface{}, error) { return key, nil }

	return func(c *fiber.Ctx) error {
		raw, ok := bearerToken(c.Get(fiber.HeaderAuthorization))
		if !ok {
			return utils.SendError(c, fiber.StatusUnauthorized, "grading api requires a bearer token")
		}

		claims := jwt.MapClaims{}
		if _, err := parser.ParseWithClaims(raw, claims, keyFunc); err != nil {
			return utils.SendError(c, fiber.StatusUnauthorized, "bearer token is invalid or expired")
		}

		if subject := subjectFromClaims(claims); subject != "" {
			c.Locals(LocalUserID, subject)
		}
		if role := gradingRoleFromClaims(claims); role != "" {
			c.Locals(LocalUserRole, role)
		}
		return c.Next()
	}
}

// UserID returns the authenticated caller, or "" for anonymous requests.
func UserID(c *fiber.Ctx) string {
	id, _ := c.Locals(LocalUserID).(string)
	return strings.TrimSpace(id)
}

// UserRole returns the caller's grading role, or "" when none was granted.
func UserRole(c *fiber.Ctx) string {
	role, _ := c.Locals(LocalUserRole).(string)
	return normalizeRole(role)
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func subjectFromClaims(claims jwt.MapClaims) string {
	for _, key := range []string{"sub", "user_id", "email"} {
		switch v := claims[key].(type) {
		case string:
			if trimmed := strings.TrimSpace(v); trimmed != "" {
				return trimmed
			}
		case float64:
			if v >= 0 {
				return strconv.FormatFloat(v, 'f', -1, 64)
			}
		}
	}
	return ""
}

func gradingRoleFromClaims(claims jwt.MapClaims) string {
	for _, key := range []string{"role", "roles"} {
		var values []interface{}
		switch v := claims[key].(type) {
		case string:
			values = []interface{}{v}
		case []interface{}:
			values = v
		}
		for _, value := range values {
			name, _ := value.(string)
			if role := normalizeRole(name); isGradingRole(role) {
				return role
			}
		}
	}
	return ""
}
