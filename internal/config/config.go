package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv         string
	Port           string
	AllowedOrigins []string

	DBHost     string
	DBUser     string
	DBPassword string
	DBName     string
	DBPort     string
	RedisURL   string

	JWTSecret string
	JWTTTL    time.Duration

	MeiliSearchHost string
	MeiliMasterKey  string

	CloudinaryURL          string
	CloudinaryUploadFolder string

	RateLimitMessage   time.Duration
	RateLimitAuthRPS   float64
	RateLimitAuthBurst int

	BroadcastBatchSize int
	OnlineWindow       time.Duration

	AdminEmail    string
	AdminPassword string
}

func Load() (*Config, error) {
	// Don't fail if .env doesn't exist (might be prod env vars)
	_ = godotenv.Load()

	cfg := &Config{
		AppEnv:         getEnv("APP_ENV", "development"),
		Port:           getEnv("PORT", "8080"),
		AllowedOrigins: splitList(getEnv("ALLOWED_ORIGINS", "http://localhost:3000")),

		DBHost:     getEnv("DB_HOST", "localhost"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: os.Getenv("DB_PASS"),
		DBName:     getEnv("DB_NAME", "bazaar"),
		DBPort:     getEnv("DB_PORT", "5432"),
		RedisURL:   os.Getenv("REDIS_URL"),

		JWTSecret: getEnv("JWT_SECRET", "change-me"),

		MeiliSearchHost: os.Getenv("MEILISEARCH_HOST"),
		MeiliMasterKey:  os.Getenv("MEILI_MASTER_KEY"),

		CloudinaryURL:          getEnv("CLOUDINARY_URL", os.Getenv("CLOUDINARY_CLOUD_NAME")),
		CloudinaryUploadFolder: getEnv("CLOUDINARY_UPLOAD_FOLDER", "bazaar"),

		AdminEmail:    getEnv("ADMIN_EMAIL", "admin@bazaar.local"),
		AdminPassword: getEnv("ADMIN_PASSWORD", "admin123"),
	}

	var err error
	if cfg.JWTTTL, err = parseDuration(getEnv("JWT_TTL", "24h")); err != nil {
		return nil, fmt.Errorf("invalid JWT_TTL: %w", err)
	}
	if cfg.RateLimitMessage, err = parseDuration(getEnv("RATE_LIMIT_MESSAGE", "1s")); err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_MESSAGE: %w", err)
	}
	if cfg.OnlineWindow, err = parseDuration(getEnv("ONLINE_WINDOW", "5m")); err != nil {
		return nil, fmt.Errorf("invalid ONLINE_WINDOW: %w", err)
	}
	if cfg.RateLimitAuthRPS, err = strconv.ParseFloat(getEnv("RATE_LIMIT_AUTH_RPS", "1"), 64); err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_AUTH_RPS: %w", err)
	}
	if cfg.RateLimitAuthBurst, err = strconv.Atoi(getEnv("RATE_LIMIT_AUTH_BURST", "5")); err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_AUTH_BURST: %w", err)
	}
	if cfg.BroadcastBatchSize, err = strconv.Atoi(getEnv("BROADCAST_BATCH_SIZE", "500")); err != nil {
		return nil, fmt.Errorf("invalid BROADCAST_BATCH_SIZE: %w", err)
	}
	if cfg.BroadcastBatchSize <= 0 {
		return nil, fmt.Errorf("invalid BROADCAST_BATCH_SIZE: must be positive")
	}

	return cfg, nil
}

func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func parseDuration(s string) (time.Duration, error) {
	return time.ParseDuration(s)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
