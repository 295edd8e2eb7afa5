package handler

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/atlas-logistics-api/internal/dto"
	"github.com/noah-isme/atlas-logistics-api/internal/service"
	"github.com/noah-isme/atlas-logistics-api/internal/utils"
)

// SessionCookie describes the cookie carrying the session token.
type SessionCookie struct {
	Name   string
	Secure bool
}

// AuthHandler signs admins in and out.
type AuthHandler struct {
	auth   service.AuthService
	users  service.UserService
	cookie SessionCookie
	logger zerolog.Logger
}

// NewAuthHandler constructs the auth handler.
func NewAuthHandler(auth service.AuthService, users service.UserService, cookie SessionCookie, logger zerolog.Logger) *AuthHandler {
	if cookie.Name == "" {
		cookie.Name = "atlas_session"
	}
	return &AuthHandler{
		auth:   auth,
		users:  users,
		cookie: cookie,
		logger: logger.With().Str("component", "auth_handler").Logger(),
	}
}

// Register wires the public login and logout routes. limiter guards the login endpoint and may be nil.
func (h *AuthHandler) Register(router fiber.Router, limiter fiber.Handler) {
	router.Post("/login", orPassthrough(limiter), h.login)
	router.Post("/logout", h.logout)
}

// RegisterSession wires routes that need an authenticated session.
func (h *AuthHandler) RegisterSession(router fiber.Router) {
	router.Get("/me", h.me)
}

func (h *AuthHandler) login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c)
	}

	resp, err := h.auth.Login(c.UserContext(), req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			return utils.SendError(c, fiber.StatusUnauthorized, err.Error())
		}
		return respondError(c, h.logger, err, "failed to sign in")
	}

	c.Cookie(&fiber.Cookie{
		Name:     h.cookie.Name,
		Value:    resp.Token,
		Path:     "/",
		Expires:  resp.ExpiresAt,
		HTTPOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})

	return utils.SendSuccess(c, "signed in", resp)
}

func (h *AuthHandler) logout(c *fiber.Ctx) error {
	c.Cookie(&fiber.Cookie{
		Name:     h.cookie.Name,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HTTPOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	return utils.SendSuccess(c, "signed out", nil)
}

func (h *AuthHandler) me(c *fiber.Ctx) error {
	user, err := h.users.Me(c.UserContext(), actorFromContext(c))
	if err != nil {
		return respondError(c, h.logger, err, "failed to load profile")
	}
	return utils.SendSuccess(c, "profile retrieved", user)
}
