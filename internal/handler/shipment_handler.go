package handler

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/atlas-logistics-api/internal/dto"
	"github.com/noah-isme/atlas-logistics-api/internal/middleware"
	"github.com/noah-isme/atlas-logistics-api/internal/models"
	"github.com/noah-isme/atlas-logistics-api/internal/service"
	"github.com/noah-isme/atlas-logistics-api/internal/utils"
)

// ShipmentHandler exposes shipment management to admins.
type ShipmentHandler struct {
	service service.ShipmentService
	logger  zerolog.Logger
}

// NewShipmentHandler constructs the handler.
func NewShipmentHandler(service service.ShipmentService, logger zerolog.Logger) *ShipmentHandler {
	return &ShipmentHandler{
		service: service,
		logger:  logger.With().Str("component", "shipment_handler").Logger(),
	}
}

// Register attaches routes.
func (h *ShipmentHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Post("", h.create)
	router.Get("/:id", h.get)
	router.Patch("/:id", h.update)
	router.Delete("/:id", h.delete)
	router.Patch("/:id/restore", h.restore)
	router.Delete("/:id/force-delete", h.forceDelete)
	router.Post("/:id/clone", middleware.RequireRole(models.RoleAdmin, models.RoleSuperAdmin), h.clone)
	router.Get("/:id/label", h.label)
}

func (h *ShipmentHandler) list(c *fiber.Ctx) error {
	page, err := parseQueryInt(c, "page")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid page")
	}
	pageSize, err := parseQueryInt(c, "pageSize")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid page size")
	}
	viewAs, err := parseViewAs(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	req := dto.ShipmentListRequest{
		ViewAs:   viewAs,
		Deleted:  strings.EqualFold(c.Query("deleted"), "true"),
		Status:   strings.ToUpper(strings.TrimSpace(c.Query("status"))),
		Search:   c.Query("search"),
		Page:     page,
		PageSize: pageSize,
	}

	result, err := h.service.List(c.UserContext(), actorFromContext(c), req)
	if err != nil {
		return respondError(c, h.logger, err, "failed to list shipments")
	}

	meta := fiber.Map{
		"pagination": result.Pagination,
		"filters": fiber.Map{
			"status":  req.Status,
			"search":  req.Search,
			"deleted": req.Deleted,
		},
	}

	return utils.OK(c, result.Items, "shipments retrieved", meta)
}

func (h *ShipmentHandler) create(c *fiber.Ctx) error {
	var req dto.CreateShipmentRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c)
	}

	shipment, err := h.service.Create(c.UserContext(), actorFromContext(c), req)
	if err != nil {
		return respondError(c, h.logger, err, "failed to create shipment")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "shipment created", shipment)
}

func (h *ShipmentHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	shipment, err := h.service.Get(c.UserContext(), actorFromContext(c), id)
	if err != nil {
		return respondError(c, h.logger, err, "failed to fetch shipment")
	}

	return utils.SendSuccess(c, "shipment retrieved", shipment)
}

func (h *ShipmentHandler) update(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var req dto.UpdateShipmentRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c)
	}

	shipment, err := h.service.Update(c.UserContext(), actorFromContext(c), id, req)
	if err != nil {
		return respondError(c, h.logger, err, "failed to update shipment")
	}

	return utils.SendSuccess(c, "shipment updated", shipment)
}

func (h *ShipmentHandler) delete(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.service.Delete(c.UserContext(), actorFromContext(c), id); err != nil {
		return respondError(c, h.logger, err, "failed to delete shipment")
	}

	return utils.SendSuccess(c, "shipment moved to recycle bin", nil)
}

func (h *ShipmentHandler) restore(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	shipment, err := h.service.Restore(c.UserContext(), actorFromContext(c), id)
	if err != nil {
		return respondError(c, h.logger, err, "failed to restore shipment")
	}

	return utils.SendSuccess(c, "shipment restored", shipment)
}

func (h *ShipmentHandler) forceDelete(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.service.ForceDelete(c.UserContext(), actorFromContext(c), id); err != nil {
		return respondError(c, h.logger, err, "failed to delete shipment")
	}

	return utils.SendSuccess(c, "shipment permanently deleted", nil)
}

func (h *ShipmentHandler) clone(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	shipment, err := h.service.Clone(c.UserContext(), actorFromContext(c), id)
	if err != nil {
		return respondError(c, h.logger, err, "failed to clone shipment")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "shipment cloned", shipment)
}

func (h *ShipmentHandler) label(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	pdf, trackingNumber, err := h.service.Label(c.UserContext(), actorFromContext(c), id)
	if err != nil {
		return respondError(c, h.logger, err, "failed to render label")
	}

	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s.pdf"`, trackingNumber))
	return c.Status(fiber.StatusOK).Send(pdf)
}
