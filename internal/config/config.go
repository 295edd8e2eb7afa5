package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName                string
	AppEnv                 string
	AppPort                string
	PublicBaseURL          string
	CORSAllowOrigins       string
	DatabaseDriver         string
	DatabaseURL            string
	RedisURL               string
	CachePrefix            string
	NATSURL                string
	NATSSubjectPrefix      string
	JWTSecret              string
	SessionTTL             time.Duration
	SessionCookieName      string
	SessionCookieSecure    bool
	CloudinaryCloudName    string
	CloudinaryAPIKey       string
	CloudinaryAPISecret    string
	CloudinaryUploadFolder string
	UploadMaxSizeMB        int
	SMTPHost               string
	SMTPPort               int
	SMTPUsername           string
	SMTPPassword           string
	SMTPFrom               string
	AnalyticsCacheTTL      time.Duration
	MessageCacheTTL        time.Duration
	ChatPollInterval       time.Duration
	SeedSuperAdminEmail    string
	SeedSuperAdminPassword string
	SeedSuperAdminName     string
	LogLevel               string
	LogFile                string
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// IsProduction reports whether the service runs with production settings.
func (c Config) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, "production")
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("ATLAS")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "Atlas Logistics API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("public.base_url", "http://localhost:8080")
	v.SetDefault("cors.allow_origins", "*")
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("cache.prefix", "atlas")
	v.SetDefault("nats.subject_prefix", "atlas")
	v.SetDefault("session.ttl", "24h")
	v.SetDefault("session.cookie_name", "atlas_session")
	v.SetDefault("cloudinary.folder", "atlas/attachments")
	v.SetDefault("upload.max_size_mb", 10)
	v.SetDefault("smtp.port", 587)
	v.SetDefault("smtp.from", "Atlas Logistics <no-reply@atlas-logistics.local>")
	v.SetDefault("analytics.cache_ttl", "1m")
	v.SetDefault("messages.cache_ttl", "30s")
	v.SetDefault("chat.poll_interval", "5s")
	v.SetDefault("seed.super_admin_name", "Super Admin")
	v.SetDefault("log.level", "info")

	sessionTTL, err := parseDuration(v, "session.ttl")
	if err != nil {
		return Config{}, err
	}
	analyticsTTL, err := parseDuration(v, "analytics.cache_ttl")
	if err != nil {
		return Config{}, err
	}
	messageTTL, err := parseDuration(v, "messages.cache_ttl")
	if err != nil {
		return Config{}, err
	}
	pollInterval, err := parseDuration(v, "chat.poll_interval")
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		AppName:                v.GetString("app.name"),
		AppEnv:                 v.GetString("app.env"),
		AppPort:                v.GetString("app.port"),
		PublicBaseURL:          strings.TrimRight(v.GetString("public.base_url"), "/"),
		CORSAllowOrigins:       v.GetString("cors.allow_origins"),
		DatabaseDriver:         strings.ToLower(v.GetString("database.driver")),
		DatabaseURL:            v.GetString("database.url"),
		RedisURL:               v.GetString("redis.url"),
		CachePrefix:            v.GetString("cache.prefix"),
		NATSURL:                v.GetString("nats.url"),
		NATSSubjectPrefix:      v.GetString("nats.subject_prefix"),
		JWTSecret:              v.GetString("jwt.secret"),
		SessionTTL:             sessionTTL,
		SessionCookieName:      v.GetString("session.cookie_name"),
		SessionCookieSecure:    v.GetBool("session.cookie_secure"),
		CloudinaryCloudName:    v.GetString("cloudinary.cloud_name"),
		CloudinaryAPIKey:       v.GetString("cloudinary.api_key"),
		CloudinaryAPISecret:    v.GetString("cloudinary.api_secret"),
		CloudinaryUploadFolder: v.GetString("cloudinary.folder"),
		UploadMaxSizeMB:        v.GetInt("upload.max_size_mb"),
		SMTPHost:               v.GetString("smtp.host"),
		SMTPPort:               v.GetInt("smtp.port"),
		SMTPUsername:           v.GetString("smtp.username"),
		SMTPPassword:           v.GetString("smtp.password"),
		SMTPFrom:               v.GetString("smtp.from"),
		AnalyticsCacheTTL:      analyticsTTL,
		MessageCacheTTL:        messageTTL,
		ChatPollInterval:       pollInterval,
		SeedSuperAdminEmail:    strings.ToLower(strings.TrimSpace(v.GetString("seed.super_admin_email"))),
		SeedSuperAdminPassword: v.GetString("seed.super_admin_password"),
		SeedSuperAdminName:     v.GetString("seed.super_admin_name"),
		LogLevel:               strings.ToLower(v.GetString("log.level")),
		LogFile:                v.GetString("log.file"),
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	switch cfg.DatabaseDriver {
	case "postgres", "sqlite":
	default:
		return Config{}, fmt.Errorf("unsupported database driver %q", cfg.DatabaseDriver)
	}

	if cfg.UploadMaxSizeMB <= 0 {
		cfg.UploadMaxSizeMB = 10
	}

	if cfg.ChatPollInterval <= 0 {
		cfg.ChatPollInterval = 5 * time.Second
	}

	return cfg, nil
}

func parseDuration(v *viper.Viper, key string) (time.Duration, error) {
	raw := strings.TrimSpace(v.GetString(key))
	if raw == "" {
		return 0, nil
	}

	value, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}

	return value, nil
}
