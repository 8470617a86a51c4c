package middleware

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/moderation-api/internal/models"
	"github.com/noah-isme/moderation-api/internal/utils"
)

// RequireCapability ensures the authenticated user's role grants the capability.
func RequireCapability(capability models.Capability) fiber.Handler {
	return func(c *fiber.Ctx) error {
		kind, ok := ActorKind(c)
		if !ok {
			return utils.SendError(c, fiber.StatusForbidden, "insufficient permissions")
		}
		if !kind.Can(capability) {
			return utils.SendError(c, fiber.StatusForbidden, "insufficient permissions")
		}
		return c.Next()
	}
}

// ActorKind maps the user_role local onto a role kind.
func ActorKind(c *fiber.Ctx) (models.RoleKind, bool) {
	role := normalizeRoleValue(c.Locals("user_role"))
	if role == "" {
		return "", false
	}
	kind, err := models.ParseRoleKind(role)
	if err != nil {
		return "", false
	}
	return kind, true
}

// ActorID returns the user_id local, or zero when absent.
func ActorID(c *fiber.Ctx) uint {
	switch id := c.Locals("user_id").(type) {
	case uint:
		return id
	case int:
		if id < 0 {
			return 0
		}
		return uint(id)
	default:
		return 0
	}
}

func normalizeRoleValue(value interface{}) string {
	switch v := value.(type) {
	case string:
		return strings.ToLower(strings.TrimSpace(v))
	case models.RoleKind:
		return string(v)
	case fmt.Stringer:
		return strings.ToLower(strings.TrimSpace(v.String()))
	default:
		if value == nil {
			return ""
		}
		return strings.ToLower(strings.TrimSpace(fmt.Sprintf("%v", value)))
	}
}
