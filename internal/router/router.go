package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/atlas-logistics-api/internal/config"
	"github.com/noah-isme/atlas-logistics-api/internal/handler"
	"github.com/noah-isme/atlas-logistics-api/internal/middleware"
	"github.com/noah-isme/atlas-logistics-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	AuthHandler      *handler.AuthHandler
	TrackingHandler  *handler.TrackingHandler
	ShipmentHandler  *handler.ShipmentHandler
	EventHandler     *handler.EventHandler
	MessageHandler   *handler.MessageHandler
	UserHandler      *handler.UserHandler
	UploadHandler    *handler.UploadHandler
	AnalyticsHandler *handler.AnalyticsHandler
	AuditHandler     *handler.AuditHandler
	SessionVerifier  middleware.SessionVerifier
	HealthProbes     []handler.HealthProbe
	// DisableRateLimit turns the public limiters off, which tests rely on.
	DisableRateLimit bool
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg, deps.HealthProbes...))
	app.Get("/metrics", observability.MetricsHandler())

	var loginLimiter, trackLimiter fiber.Handler
	if !deps.DisableRateLimit {
		loginLimiter = middleware.RateLimit("auth-login", 10, time.Minute)
		trackLimiter = middleware.RateLimit("track-write", 20, time.Minute)
	}

	// Public surfaces
	if deps.AuthHandler != nil {
		deps.AuthHandler.Register(app.Group("/api/auth"), loginLimiter)
	}
	if deps.TrackingHandler != nil {
		deps.TrackingHandler.Register(app.Group("/api/track"), trackLimiter)
	}

	admin := app.Group("/api/admin", middleware.Session(middleware.SessionConfig{
		Secret:     cfg.JWTSecret,
		CookieName: cfg.SessionCookieName,
		Verifier:   deps.SessionVerifier,
	}))

	if deps.AuthHandler != nil {
		deps.AuthHandler.RegisterSession(admin.Group("/auth"))
	}

	// Shipments with nested events and threads
	if deps.ShipmentHandler != nil {
		shipments := admin.Group("/shipments")
		if deps.EventHandler != nil {
			deps.EventHandler.Register(shipments)
		}
		if deps.MessageHandler != nil {
			deps.MessageHandler.RegisterShipmentRoutes(shipments)
		}
		deps.ShipmentHandler.Register(shipments)
	}

	if deps.MessageHandler != nil {
		deps.MessageHandler.Register(admin.Group("/messages"))
	}
	if deps.UserHandler != nil {
		deps.UserHandler.Register(admin.Group("/users"))
	}
	if deps.UploadHandler != nil {
		deps.UploadHandler.Register(admin.Group("/upload"))
	}
	if deps.AnalyticsHandler != nil {
		deps.AnalyticsHandler.Register(admin)
	}
	if deps.AuditHandler != nil {
		deps.AuditHandler.Register(admin.Group("/audit-logs"))
	}
}
