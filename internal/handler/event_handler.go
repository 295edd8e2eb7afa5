package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/atlas-logistics-api/internal/dto"
	"github.com/noah-isme/atlas-logistics-api/internal/service"
	"github.com/noah-isme/atlas-logistics-api/internal/utils"
)

// EventHandler exposes timeline edits nested under a shipment.
type EventHandler struct {
	service service.EventService
	logger  zerolog.Logger
}

// NewEventHandler constructs the handler.
func NewEventHandler(service service.EventService, logger zerolog.Logger) *EventHandler {
	return &EventHandler{
		service: service,
		logger:  logger.With().Str("component", "event_handler").Logger(),
	}
}

// Register attaches routes to the shipments group.
func (h *EventHandler) Register(router fiber.Router) {
	router.Post("/:id/events", h.create)
	router.Patch("/:id/events/:eventId", h.update)
	router.Delete("/:id/events/:eventId", h.delete)
}

func (h *EventHandler) ids(c *fiber.Ctx, withEvent bool) (uint, uint, error) {
	shipmentID, err := parseUintParam(c, "id")
	if err != nil {
		return 0, 0, err
	}
	if !withEvent {
		return shipmentID, 0, nil
	}
	eventID, err := parseUintParam(c, "eventId")
	if err != nil {
		return 0, 0, err
	}
	return shipmentID, eventID, nil
}

func (h *EventHandler) create(c *fiber.Ctx) error {
	shipmentID, _, err := h.ids(c, false)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var req dto.CreateEventRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c)
	}

	result, err := h.service.Create(c.UserContext(), actorFromContext(c), shipmentID, req)
	if err != nil {
		return respondError(c, h.logger, err, "failed to add event")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "event added", result)
}

func (h *EventHandler) update(c *fiber.Ctx) error {
	shipmentID, eventID, err := h.ids(c, true)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var req dto.UpdateEventRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c)
	}

	result, err := h.service.Update(c.UserContext(), actorFromContext(c), shipmentID, eventID, req)
	if err != nil {
		return respondError(c, h.logger, err, "failed to update event")
	}

	return utils.SendSuccess(c, "event updated", result)
}

func (h *EventHandler) delete(c *fiber.Ctx) error {
	shipmentID, eventID, err := h.ids(c, true)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	result, err := h.service.Delete(c.UserContext(), actorFromContext(c), shipmentID, eventID)
	if err != nil {
		return respondError(c, h.logger, err, "failed to delete event")
	}

	return utils.SendSuccess(c, "event deleted", result)
}
