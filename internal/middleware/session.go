package middleware

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/noah-isme/atlas-logistics-api/internal/models"
	"github.com/noah-isme/atlas-logistics-api/internal/utils"
)

// SessionVerifier confirms that a token subject still maps to an active account.
// It returns the role currently stored for the user.
type SessionVerifier interface {
	VerifySession(ctx context.Context, userID uint) (models.UserRole, error)
}

// SessionConfig configures the Session middleware.
type SessionConfig struct {
	Secret     string
	CookieName string
	Verifier   SessionVerifier
}

// Session validates the signed session token carried by the cookie or the bearer header.
func Session(cfg SessionConfig) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString := sessionToken(c, cfg.CookieName)
		if tokenString == "" {
			return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
		}

		token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method")
			}
			return []byte(cfg.Secret), nil
		})
		if err != nil || !token.Valid {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid session")
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid session claims")
		}

		userID := extractUserIDFromClaims(claims)
		if userID == nil || *userID == 0 {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid session claims")
		}
		role := extractUserRoleFromClaims(claims)

		if cfg.Verifier != nil {
			current, err := cfg.Verifier.VerifySession(c.UserContext(), *userID)
			if err != nil {
				return utils.SendError(c, fiber.StatusUnauthorized, "session is no longer valid")
			}
			role = string(current)
		}

		c.Locals("user_id", *userID)
		c.Locals("user_role", role)

		return c.Next()
	}
}

func sessionToken(c *fiber.Ctx, cookieName string) string {
	if cookieName != "" {
		if value := strings.TrimSpace(c.Cookies(cookieName)); value != "" {
			return value
		}
	}

	authorization := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
	const bearer = "bearer "
	if len(authorization) > len(bearer) && strings.EqualFold(authorization[:len(bearer)], bearer) {
		return strings.TrimSpace(authorization[len(bearer):])
	}

	return ""
}

// UserID returns the authenticated user identifier stored by Session.
func UserID(c *fiber.Ctx) (uint, error) {
	switch v := c.Locals("user_id").(type) {
	case uint:
		if v == 0 {
			return 0, errors.New("missing user")
		}
		return v, nil
	case nil:
		return 0, errors.New("missing user")
	default:
		return normalizeUserID(v)
	}
}

// UserRole returns the authenticated role stored by Session.
func UserRole(c *fiber.Ctx) models.UserRole {
	return models.UserRole(normalizeRoleValue(c.Locals("user_role")))
}

func extractUserIDFromClaims(claims jwt.MapClaims) *uint {
	keys := []string{"sub", "user_id", "id"}
	for _, key := range keys {
		if value, ok := claims[key]; ok {
			if normalized, err := normalizeUserID(value); err == nil {
				return &normalized
			}
		}
	}

	return nil
}

func normalizeUserID(value interface{}) (uint, error) {
	switch v := value.(type) {
	case float64:
		if v < 0 {
			return 0, fmt.Errorf("invalid subject")
		}
		return uint(v), nil
	case string:
		parsed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return 0, err
		}
		return uint(parsed), nil
	case int:
		if v < 0 {
			return 0, fmt.Errorf("invalid subject")
		}
		return uint(v), nil
	case uint:
		return v, nil
	default:
		return 0, fmt.Errorf("unsupported subject type")
	}
}

func extractUserRoleFromClaims(claims jwt.MapClaims) string {
	candidates := []string{"role", "roles"}
	for _, key := range candidates {
		if value, ok := claims[key]; ok {
			if role := normalizeRoleValue(value); role != "" {
				return role
			}
		}
	}
	return ""
}
