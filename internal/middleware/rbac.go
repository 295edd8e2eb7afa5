package middleware

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/atlas-logistics-api/internal/models"
	"github.com/noah-isme/atlas-logistics-api/internal/utils"
)

// RequireRole ensures that the authenticated user possesses one of the allowed roles.
// Missing or foreign roles are answered with 401, matching the session failure response.
func RequireRole(roles ...models.UserRole) fiber.Handler {
	allowed := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		normalized := normalizeRoleValue(string(role))
		if normalized != "" {
			allowed[normalized] = struct{}{}
		}
	}

	return func(c *fiber.Ctx) error {
		role := normalizeRoleValue(c.Locals("user_role"))
		if _, ok := allowed[role]; !ok {
			return utils.SendError(c, fiber.StatusUnauthorized, "insufficient permissions")
		}
		return c.Next()
	}
}

func normalizeRoleValue(value interface{}) string {
	switch v := value.(type) {
	case string:
		return strings.ToUpper(strings.TrimSpace(v))
	case []interface{}:
		for _, item := range v {
			if str, ok := item.(string); ok {
				if role := strings.ToUpper(strings.TrimSpace(str)); role != "" {
					return role
				}
			}
		}
		return ""
	case fmt.Stringer:
		return strings.ToUpper(strings.TrimSpace(v.String()))
	default:
		if value == nil {
			return ""
		}
		return strings.ToUpper(strings.TrimSpace(fmt.Sprintf("%v", value)))
	}
}
