package main

import (
	"context"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/noah-isme/atlas-logistics-api/internal/config"
	"github.com/noah-isme/atlas-logistics-api/internal/database"
	"github.com/noah-isme/atlas-logistics-api/internal/handler"
	"github.com/noah-isme/atlas-logistics-api/internal/middleware"
	"github.com/noah-isme/atlas-logistics-api/internal/repository"
	"github.com/noah-isme/atlas-logistics-api/internal/router"
	"github.com/noah-isme/atlas-logistics-api/internal/service"
	"github.com/noah-isme/atlas-logistics-api/pkg/broker"
	cloud "github.com/noah-isme/atlas-logistics-api/pkg/cloudinary"
	"github.com/noah-isme/atlas-logistics-api/pkg/mailer"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger, logSink := newLogger(cfg)
	if logSink != nil {
		defer logSink.Close()
	}

	db, err := database.Open(cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := database.Migrate(db); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("failed to access database pool: %v", err)
	}
	defer sqlDB.Close()
	probes := []handler.HealthProbe{{Name: "database", Check: sqlDB.PingContext}}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(cfg.RedisURL)
		if err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		defer redisClient.Close()
		probes = append(probes, handler.HealthProbe{Name: "redis", Check: func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}})
	} else {
		logger.Warn().Msg("redis url not set, caching disabled")
	}

	var publisher service.StatusPublisher
	if cfg.NATSURL != "" {
		natsPublisher, err := broker.Connect(cfg.NATSURL, cfg.AppName, cfg.NATSSubjectPrefix, logger)
		if err != nil {
			log.Fatalf("failed to connect to nats: %v", err)
		}
		defer natsPublisher.Close()
		publisher = service.NewNATSStatusPublisher(natsPublisher)
	}

	var storage service.FileStorage
	cloudCfg := cloud.Config{
		CloudName: cfg.CloudinaryCloudName,
		APIKey:    cfg.CloudinaryAPIKey,
		APISecret: cfg.CloudinaryAPISecret,
		Folder:    cfg.CloudinaryUploadFolder,
	}
	if cloudCfg.Configured() {
		uploader, err := cloud.New(cloudCfg, logger)
		if err != nil {
			log.Fatalf("failed to create cloudinary client: %v", err)
		}
		storage = uploader
	} else {
		logger.Warn().Msg("cloudinary credentials missing, uploads disabled")
	}

	var sender mailer.Sender = mailer.NewLogSender(logger)
	if cfg.SMTPHost != "" {
		smtpSender, err := mailer.NewSMTPSender(mailer.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
		}, logger)
		if err != nil {
			log.Fatalf("failed to configure smtp: %v", err)
		}
		sender = smtpSender
	}
	notifier := service.NewMailNotifier(sender, cfg.PublicBaseURL, logger)

	validate := validator.New(validator.WithRequiredStructEnabled())

	store := repository.NewStore(db)
	userRepo := repository.NewUserRepository(db)
	uploadRepo := repository.NewUploadRepository(db)
	analyticsRepo := repository.NewAnalyticsRepository(db)
	auditRepo := repository.NewAuditLogRepository(db)

	if cfg.SeedSuperAdminEmail != "" && cfg.SeedSuperAdminPassword != "" {
		seeder := service.NewSeedService(userRepo, logger)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		_, _, err := seeder.SeedSuperAdmin(ctx, service.SuperAdminSeed{
			Email:    cfg.SeedSuperAdminEmail,
			Password: cfg.SeedSuperAdminPassword,
			Name:     cfg.SeedSuperAdminName,
		})
		cancel()
		if err != nil {
			log.Fatalf("failed to seed super admin: %v", err)
		}
	}

	authService := service.NewAuthService(userRepo, validate, service.AuthConfig{Secret: cfg.JWTSecret, TTL: cfg.SessionTTL}, logger)
	userService := service.NewUserService(store, validate, logger)
	shipmentService := service.NewShipmentService(store, validate, notifier, publisher, logger)
	eventService := service.NewEventService(store, validate, notifier, publisher, logger)
	messageService := service.NewMessageService(store.Shipments(), store.Messages(), validate, redisClient, service.MessageConfig{
		PollInterval: cfg.ChatPollInterval,
		CacheTTL:     cfg.MessageCacheTTL,
		CachePrefix:  cfg.CachePrefix,
	}, logger)
	uploadService := service.NewUploadService(storage, uploadRepo, cfg.UploadMaxSizeMB, logger)
	analyticsService := service.NewAnalyticsService(analyticsRepo, redisClient, service.AnalyticsConfig{
		CacheTTL:    cfg.AnalyticsCacheTTL,
		CachePrefix: cfg.CachePrefix,
	}, logger)
	auditService := service.NewAuditService(auditRepo, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
		BodyLimit:    (cfg.UploadMaxSizeMB + 1) * 1024 * 1024,
	})

	middleware.Register(app, middleware.Config{
		Logger:       &logger,
		AllowOrigins: cfg.CORSAllowOrigins,
		AccessLog:    !cfg.IsProduction(),
	})
	router.Register(app, cfg, router.Dependencies{
		AuthHandler: handler.NewAuthHandler(authService, userService, handler.SessionCookie{
			Name:   cfg.SessionCookieName,
			Secure: cfg.SessionCookieSecure,
		}, logger),
		TrackingHandler:  handler.NewTrackingHandler(shipmentService, messageService, uploadService, logger),
		ShipmentHandler:  handler.NewShipmentHandler(shipmentService, logger),
		EventHandler:     handler.NewEventHandler(eventService, logger),
		MessageHandler:   handler.NewMessageHandler(messageService, logger),
		UserHandler:      handler.NewUserHandler(userService, logger),
		UploadHandler:    handler.NewUploadHandler(uploadService, logger),
		AnalyticsHandler: handler.NewAnalyticsHandler(analyticsService, logger),
		AuditHandler:     handler.NewAuditHandler(auditService, logger),
		SessionVerifier:  authService,
		HealthProbes:     probes,
	})

	go func() {
		logger.Info().Str("addr", cfg.HTTPAddress()).Msg("http server listening")
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app)
}

// newLogger writes JSON to stdout and, when a log file is configured, to a rotating file.
func newLogger(cfg config.Config) (zerolog.Logger, io.Closer) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || cfg.LogLevel == "" {
		level = zerolog.InfoLevel
	}

	var writer io.Writer = os.Stdout
	var sink *lumberjack.Logger
	if cfg.LogFile != "" {
		sink = &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    50,
			MaxBackups: 5,
			MaxAge:     14,
			Compress:   true,
		}
		writer = zerolog.MultiLevelWriter(os.Stdout, sink)
	}

	logger := zerolog.New(writer).Level(level).With().Timestamp().Str("app", cfg.AppName).Logger()
	if sink == nil {
		return logger, nil
	}
	return logger, sink
}

func waitForShutdown(app *fiber.App) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
