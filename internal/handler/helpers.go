package handler

import (
	"errors"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/atlas-logistics-api/internal/middleware"
	"github.com/noah-isme/atlas-logistics-api/internal/policy"
	"github.com/noah-isme/atlas-logistics-api/internal/service"
	"github.com/noah-isme/atlas-logistics-api/internal/utils"
)

func parseQueryInt(c *fiber.Ctx, key string) (int, error) {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return 0, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}
	return parsed, nil
}

func parseUintParam(c *fiber.Ctx, name string) (uint, error) {
	value := c.Params(name)
	parsed, err := strconv.ParseUint(value, 10, 64)
	if err != nil || parsed == 0 {
		return 0, errors.New("invalid identifier")
	}
	return uint(parsed), nil
}

// parseViewAs reads the optional viewAs query parameter used by super admins.
func parseViewAs(c *fiber.Ctx) (*uint, error) {
	value := strings.TrimSpace(c.Query("viewAs"))
	if value == "" {
		return nil, nil
	}
	parsed, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return nil, errors.New("invalid viewAs")
	}
	id := uint(parsed)
	return &id, nil
}

func actorFromContext(c *fiber.Ctx) policy.Actor {
	id, err := middleware.UserID(c)
	if err != nil {
		return policy.Actor{}
	}
	return policy.Actor{ID: id, Role: middleware.UserRole(c)}
}

func requestLogger(base zerolog.Logger, c *fiber.Ctx) *zerolog.Logger {
	logger := base
	if c != nil {
		if correlation := middleware.GetCorrelationID(c); correlation != "" {
			logger = base.With().Str("correlation_id", correlation).Logger()
		}
	}
	return &logger
}

func isValidationError(err error) bool {
	var validationErrors validator.ValidationErrors
	return errors.As(err, &validationErrors)
}

func validationDetails(err error) []fiber.Map {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return nil
	}
	details := make([]fiber.Map, 0, len(validationErrors))
	for _, fieldErr := range validationErrors {
		details = append(details, fiber.Map{
			"field": fieldErr.Field(),
			"rule":  fieldErr.Tag(),
		})
	}
	return details
}

// respondError maps service errors onto HTTP status codes. Anything unrecognised
// is logged and reported as a generic 500 with fallback as the message.
func respondError(c *fiber.Ctx, logger zerolog.Logger, err error, fallback string) error {
	switch {
	case errors.Is(err, policy.ErrUnauthorized):
		return utils.SendError(c, fiber.StatusUnauthorized, "unauthorized")
	case errors.Is(err, service.ErrShipmentNotFound),
		errors.Is(err, service.ErrEventNotFound),
		errors.Is(err, service.ErrMessageNotFound),
		errors.Is(err, service.ErrUserNotFound):
		return utils.SendError(c, fiber.StatusNotFound, err.Error())
	case isValidationError(err):
		return utils.Fail(c, fiber.StatusBadRequest, "validation failed", validationDetails(err))
	case errors.Is(err, service.ErrEmptyMessage),
		errors.Is(err, service.ErrSelfDelete),
		errors.Is(err, service.ErrPasswordTooLong),
		errors.Is(err, service.ErrUploadEmpty),
		errors.Is(err, service.ErrUploadTypeNotAllowed):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrEmailTaken),
		errors.Is(err, service.ErrUserHasShipments):
		return utils.SendError(c, fiber.StatusConflict, err.Error())
	case errors.Is(err, service.ErrUploadTooLarge):
		return utils.SendError(c, fiber.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, service.ErrUploadUnavailable):
		return utils.SendError(c, fiber.StatusServiceUnavailable, err.Error())
	default:
		requestLogger(logger, c).Error().Err(err).
			Str("method", c.Method()).
			Str("path", c.Path()).
			Msg(fallback)
		return utils.SendError(c, fiber.StatusInternalServerError, fallback)
	}
}

func invalidBody(c *fiber.Ctx) error {
	return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
}

func passthrough(c *fiber.Ctx) error {
	return c.Next()
}

func orPassthrough(h fiber.Handler) fiber.Handler {
	if h == nil {
		return passthrough
	}
	return h
}
