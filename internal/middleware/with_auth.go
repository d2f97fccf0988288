package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/trombinoscope-api/internal/utils"
)

// Roles allowed to modify the roster.
const (
	RoleTeacher = "teacher"
	RoleAdmin   = "admin"
)

// WriteAccess guards mutating requests behind a bearer token carrying one of
// roles. Reads always pass. An empty secret disables the guard.
func WriteAccess(secret string, roles ...string) fiber.Handler {
	if strings.TrimSpace(secret) == "" {
		return func(c *fiber.Ctx) error {
			return c.Next()
		}
	}
	if len(roles) == 0 {
		roles = []string{RoleTeacher, RoleAdmin}
	}
	allowed := roleSet(roles)

	return func(c *fiber.Ctx) error {
		if isReadOnly(c.Method()) {
			return c.Next()
		}
		if message, ok := authenticate(c, secret); !ok {
			return utils.Fail(c, fiber.StatusUnauthorized, message, nil)
		}
		if !hasRole(c, allowed) {
			return utils.Fail(c, fiber.StatusForbidden, "insufficient permissions", nil)
		}
		return c.Next()
	}
}

func isReadOnly(method string) bool {
	switch method {
	case fiber.MethodGet, fiber.MethodHead, fiber.MethodOptions:
		return true
	default:
		return false
	}
}
