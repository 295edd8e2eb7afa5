package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/atlas-logistics-api/internal/dto"
	"github.com/noah-isme/atlas-logistics-api/internal/service"
	"github.com/noah-isme/atlas-logistics-api/internal/utils"
)

// TrackingHandler serves the customer-facing tracking page and chat widget.
type TrackingHandler struct {
	shipments service.ShipmentService
	messages  service.MessageService
	uploads   service.UploadService
	logger    zerolog.Logger
}

// NewTrackingHandler constructs the public tracking handler.
func NewTrackingHandler(shipments service.ShipmentService, messages service.MessageService, uploads service.UploadService, logger zerolog.Logger) *TrackingHandler {
	return &TrackingHandler{
		shipments: shipments,
		messages:  messages,
		uploads:   uploads,
		logger:    logger.With().Str("component", "tracking_handler").Logger(),
	}
}

// Register wires the public routes. limiter guards customer writes and may be nil.
func (h *TrackingHandler) Register(router fiber.Router, limiter fiber.Handler) {
	limit := orPassthrough(limiter)
	router.Post("/upload", limit, h.upload)
	router.Get("/:trackingNumber", h.track)
	router.Get("/:trackingNumber/messages", h.thread)
	router.Post("/:trackingNumber/messages", limit, h.post)
}

func (h *TrackingHandler) track(c *fiber.Ctx) error {
	shipment, err := h.shipments.Track(c.UserContext(), c.Params("trackingNumber"))
	if err != nil {
		return respondError(c, h.logger, err, "failed to load shipment")
	}
	return utils.SendSuccess(c, "shipment retrieved", shipment)
}

func (h *TrackingHandler) thread(c *fiber.Ctx) error {
	messages, meta, err := h.messages.CustomerThread(c.UserContext(), c.Params("trackingNumber"))
	if err != nil {
		return respondError(c, h.logger, err, "failed to load messages")
	}
	return utils.OK(c, messages, "messages retrieved", meta)
}

func (h *TrackingHandler) post(c *fiber.Ctx) error {
	var req dto.PostMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c)
	}

	message, err := h.messages.PostAsCustomer(c.UserContext(), c.Params("trackingNumber"), req)
	if err != nil {
		return respondError(c, h.logger, err, "failed to post message")
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "message posted", message)
}

func (h *TrackingHandler) upload(c *fiber.Ctx) error {
	input, err := uploadInputFromRequest(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "file is required")
	}
	defer input.close()

	input.Public = true
	result, err := h.uploads.Upload(c.UserContext(), input.UploadInput)
	if err != nil {
		return respondError(c, h.logger, err, "upload failed")
	}
	return utils.SendSuccess(c, "upload successful", result)
}
