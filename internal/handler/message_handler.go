package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/atlas-logistics-api/internal/dto"
	"github.com/noah-isme/atlas-logistics-api/internal/middleware"
	"github.com/noah-isme/atlas-logistics-api/internal/models"
	"github.com/noah-isme/atlas-logistics-api/internal/service"
	"github.com/noah-isme/atlas-logistics-api/internal/utils"
)

// MessageHandler serves the admin side of shipment chat.
type MessageHandler struct {
	service service.MessageService
	logger  zerolog.Logger
}

// NewMessageHandler constructs the handler.
func NewMessageHandler(service service.MessageService, logger zerolog.Logger) *MessageHandler {
	return &MessageHandler{
		service: service,
		logger:  logger.With().Str("component", "message_handler").Logger(),
	}
}

// RegisterShipmentRoutes attaches thread routes to the shipments group.
func (h *MessageHandler) RegisterShipmentRoutes(router fiber.Router) {
	router.Get("/:id/messages", h.thread)
	router.Post("/:id/messages", h.post)
	router.Post("/:id/messages/read", h.markRead)
}

// Register attaches per-message routes.
func (h *MessageHandler) Register(router fiber.Router) {
	adminOnly := middleware.RequireRole(models.RoleAdmin, models.RoleSuperAdmin)
	router.Patch("/:id", adminOnly, h.edit)
	router.Delete("/:id", adminOnly, h.delete)
}

func (h *MessageHandler) thread(c *fiber.Ctx) error {
	shipmentID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	messages, meta, err := h.service.Thread(c.UserContext(), actorFromContext(c), shipmentID)
	if err != nil {
		return respondError(c, h.logger, err, "failed to load messages")
	}

	return utils.OK(c, messages, "messages retrieved", meta)
}

func (h *MessageHandler) post(c *fiber.Ctx) error {
	shipmentID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var req dto.PostMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c)
	}

	message, err := h.service.PostAsAdmin(c.UserContext(), actorFromContext(c), shipmentID, req)
	if err != nil {
		return respondError(c, h.logger, err, "failed to post message")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "message posted", message)
}

func (h *MessageHandler) markRead(c *fiber.Ctx) error {
	shipmentID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	result, err := h.service.MarkRead(c.UserContext(), actorFromContext(c), shipmentID)
	if err != nil {
		return respondError(c, h.logger, err, "failed to mark messages read")
	}

	return utils.SendSuccess(c, "messages marked read", result)
}

func (h *MessageHandler) edit(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var req dto.EditMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c)
	}

	message, err := h.service.Edit(c.UserContext(), actorFromContext(c), id, req)
	if err != nil {
		return respondError(c, h.logger, err, "failed to edit message")
	}

	return utils.SendSuccess(c, "message updated", message)
}

func (h *MessageHandler) delete(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.service.Delete(c.UserContext(), actorFromContext(c), id); err != nil {
		return respondError(c, h.logger, err, "failed to delete message")
	}

	return utils.SendSuccess(c, "message deleted", nil)
}
