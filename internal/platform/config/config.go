package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Addr                       string
	DatabaseURL                string
	IdPJWTSecret               string
	IdPAudience                string
	FrontendDir                string
	Environment                string
	LogLevel                   string
	AdminEmails                []string
	SyncSecretHash             string
	RedisURL                   string
	RoleCacheTTL               time.Duration
	KafkaBrokers               []string
	AnnouncementTopic          string
	EmailFrom                  string
	EmailEnabled               bool
	SMTPHost                   string
	SMTPPort                   int
	SMTPUser                   string
	SMTPPassword               string
	SMTPUseTLS                 bool
	RunMigrations              bool
	MigrationsDir              string
	RunSeed                    bool
	MaxBodyBytes               int64
	RateLimitPerMinute         int
	DeptReconcileInterval      time.Duration
	AnnouncementExpiryInterval time.Duration
	MetricsEnabled             bool
}

// Load reads the process environment. A .env file in the working directory,
// when present, fills variables that are not already set.
func Load() Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("dotenv load failed", "err", err)
	}

	return Config{
		Addr:                       getEnv("APP_ADDR", ":8080"),
		DatabaseURL:                getEnv("DATABASE_URL", ""),
		IdPJWTSecret:               getEnv("IDP_JWT_SECRET", ""),
		IdPAudience:                getEnv("IDP_AUDIENCE", ""),
		FrontendDir:                getEnv("FRONTEND_DIR", "frontend/dist"),
		Environment:                getEnv("APP_ENV", "development"),
		LogLevel:                   getEnv("LOG_LEVEL", "info"),
		AdminEmails:                getEnvList("ADMIN_EMAILS"),
		SyncSecretHash:             getEnv("SYNC_SECRET_HASH", ""),
		RedisURL:                   getEnv("REDIS_URL", ""),
		RoleCacheTTL:               getEnvDuration("ROLE_CACHE_TTL", time.Minute),
		KafkaBrokers:               getEnvList("KAFKA_BROKERS"),
		AnnouncementTopic:          getEnv("ANNOUNCEMENT_TOPIC", "ems.announcements"),
		EmailFrom:                  getEnv("EMAIL_FROM", "no-reply@example.com"),
		EmailEnabled:               getEnvBool("EMAIL_ENABLED", false),
		SMTPHost:                   getEnv("SMTP_HOST", ""),
		SMTPPort:                   getEnvInt("SMTP_PORT", 587),
		SMTPUser:                   getEnv("SMTP_USER", ""),
		SMTPPassword:               getEnv("SMTP_PASSWORD", ""),
		SMTPUseTLS:                 getEnvBool("SMTP_USE_TLS", true),
		RunMigrations:              getEnvBool("RUN_MIGRATIONS", false),
		MigrationsDir:              getEnv("MIGRATIONS_DIR", "migrations"),
		RunSeed:                    getEnvBool("RUN_SEED", false),
		MaxBodyBytes:               int64(getEnvInt("MAX_BODY_BYTES", 1048576)),
		RateLimitPerMinute:         getEnvInt("RATE_LIMIT_PER_MINUTE", 60),
		DeptReconcileInterval:      getEnvDuration("DEPT_RECONCILE_INTERVAL", 6*time.Hour),
		AnnouncementExpiryInterval: getEnvDuration("ANNOUNCEMENT_EXPIRY_INTERVAL", time.Hour),
		MetricsEnabled:             getEnvBool("METRICS_ENABLED", true),
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

// getEnvList splits a comma separated variable, dropping blanks.
func getEnvList(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (c Config) IsProduction() bool {
	return c.Environment == "production"
}

func (c Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if strings.TrimSpace(c.IdPJWTSecret) == "" {
		return fmt.Errorf("IDP_JWT_SECRET is required to verify identity provider tokens")
	}
	if c.IsProduction() {
		if len(c.IdPJWTSecret) < 32 {
			return fmt.Errorf("IDP_JWT_SECRET must be at least 32 characters in production")
		}
		if strings.TrimSpace(c.SyncSecretHash) == "" {
			return fmt.Errorf("SYNC_SECRET_HASH must be set in production")
		}
	}
	if c.MaxBodyBytes < 1024 {
		return fmt.Errorf("MAX_BODY_BYTES must be at least 1024")
	}
	if c.RateLimitPerMinute <= 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must be positive")
	}
	if c.EmailEnabled && c.SMTPHost == "" {
		return fmt.Errorf("SMTP_HOST must be set when EMAIL_ENABLED is true")
	}
	if c.RoleCacheTTL < 0 {
		return fmt.Errorf("ROLE_CACHE_TTL must not be negative")
	}
	return nil
}
