package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/atlas-logistics-api/internal/service"
	"github.com/noah-isme/atlas-logistics-api/internal/utils"
)

// AnalyticsHandler serves the dashboard counters and chart aggregates.
type AnalyticsHandler struct {
	service service.AnalyticsService
	logger  zerolog.Logger
}

// NewAnalyticsHandler constructs the handler.
func NewAnalyticsHandler(service service.AnalyticsService, logger zerolog.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{
		service: service,
		logger:  logger.With().Str("component", "analytics_handler").Logger(),
	}
}

// Register attaches routes.
func (h *AnalyticsHandler) Register(router fiber.Router) {
	router.Get("/dashboard", h.dashboard)
	router.Get("/analytics", h.analytics)
}

func (h *AnalyticsHandler) dashboard(c *fiber.Ctx) error {
	viewAs, err := parseViewAs(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	stats, err := h.service.Dashboard(c.UserContext(), actorFromContext(c), viewAs)
	if err != nil {
		return respondError(c, h.logger, err, "failed to load dashboard")
	}

	return utils.SendSuccess(c, "dashboard retrieved", stats)
}

func (h *AnalyticsHandler) analytics(c *fiber.Ctx) error {
	viewAs, err := parseViewAs(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	result, err := h.service.Analytics(c.UserContext(), actorFromContext(c), viewAs)
	if err != nil {
		return respondError(c, h.logger, err, "failed to load analytics")
	}

	return utils.SendSuccess(c, "analytics retrieved", result)
}
