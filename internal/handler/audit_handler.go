package handler

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/atlas-logistics-api/internal/dto"
	"github.com/noah-isme/atlas-logistics-api/internal/service"
	"github.com/noah-isme/atlas-logistics-api/internal/utils"
)

// AuditHandler exposes the audit trail to super admins.
type AuditHandler struct {
	service service.AuditService
	logger  zerolog.Logger
}

// NewAuditHandler constructs the handler.
func NewAuditHandler(service service.AuditService, logger zerolog.Logger) *AuditHandler {
	return &AuditHandler{
		service: service,
		logger:  logger.With().Str("component", "audit_handler").Logger(),
	}
}

// Register attaches routes.
func (h *AuditHandler) Register(router fiber.Router) {
	router.Get("", h.list)
}

func (h *AuditHandler) list(c *fiber.Ctx) error {
	page, err := parseQueryInt(c, "page")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid page")
	}
	pageSize, err := parseQueryInt(c, "pageSize")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid page size")
	}

	req := dto.AuditLogListRequest{
		Page:     page,
		PageSize: pageSize,
		Action:   strings.TrimSpace(c.Query("action")),
	}
	if raw := strings.TrimSpace(c.Query("adminId")); raw != "" {
		adminID, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid adminId")
		}
		req.AdminID = uint(adminID)
	}

	result, err := h.service.List(c.UserContext(), actorFromContext(c), req)
	if err != nil {
		return respondError(c, h.logger, err, "failed to list audit logs")
	}

	return utils.OK(c, result.Items, "audit logs retrieved", fiber.Map{"pagination": result.Pagination})
}
