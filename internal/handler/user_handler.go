package handler

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/atlas-logistics-api/internal/dto"
	"github.com/noah-isme/atlas-logistics-api/internal/service"
	"github.com/noah-isme/atlas-logistics-api/internal/utils"
)

// UserHandler manages admin accounts.
type UserHandler struct {
	service service.UserService
	logger  zerolog.Logger
}

// NewUserHandler constructs the handler.
func NewUserHandler(service service.UserService, logger zerolog.Logger) *UserHandler {
	return &UserHandler{
		service: service,
		logger:  logger.With().Str("component", "user_handler").Logger(),
	}
}

// Register attaches routes.
func (h *UserHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Post("", h.create)
	router.Patch("/password", h.updatePassword)
	router.Delete("/:id", h.delete)
	router.Patch("/:id/restore", h.restore)
	router.Delete("/:id/force-delete", h.forceDelete)
}

func (h *UserHandler) list(c *fiber.Ctx) error {
	deleted := strings.EqualFold(c.Query("deleted"), "true")

	users, err := h.service.List(c.UserContext(), actorFromContext(c), deleted)
	if err != nil {
		return respondError(c, h.logger, err, "failed to list users")
	}

	return utils.SendSuccess(c, "users retrieved", users)
}

func (h *UserHandler) create(c *fiber.Ctx) error {
	var req dto.CreateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c)
	}

	user, err := h.service.Create(c.UserContext(), actorFromContext(c), req)
	if err != nil {
		return respondError(c, h.logger, err, "failed to create user")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "user created", user)
}

func (h *UserHandler) delete(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.service.Delete(c.UserContext(), actorFromContext(c), id); err != nil {
		return respondError(c, h.logger, err, "failed to delete user")
	}

	return utils.SendSuccess(c, "user deleted", nil)
}

func (h *UserHandler) restore(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	user, err := h.service.Restore(c.UserContext(), actorFromContext(c), id)
	if err != nil {
		return respondError(c, h.logger, err, "failed to restore user")
	}

	return utils.SendSuccess(c, "user restored", user)
}

func (h *UserHandler) forceDelete(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.service.ForceDelete(c.UserContext(), actorFromContext(c), id); err != nil {
		return respondError(c, h.logger, err, "failed to delete user")
	}

	return utils.SendSuccess(c, "user permanently deleted", nil)
}

func (h *UserHandler) updatePassword(c *fiber.Ctx) error {
	var req dto.UpdatePasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c)
	}

	if err := h.service.UpdatePassword(c.UserContext(), actorFromContext(c), req); err != nil {
		return respondError(c, h.logger, err, "failed to update password")
	}

	return utils.SendSuccess(c, "password updated", nil)
}
