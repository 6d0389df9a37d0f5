package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const DefaultAPIKey = "dev-api-key-12345"

type Config struct {
	Port            string
	APIKey          string
	LogLevel        string
	LogFormat       string
	DataDir         string
	Database        DatabaseConfig
	RateLimit       RateLimitConfig
	Redis           RedisConfig
	MaxBodyBytes    int64
	AllowedOrigins  []string
	BaseURL         string
	ShareSecret     string
	ShareTTL        time.Duration
	MetricsEnabled  bool
	ShutdownTimeout time.Duration
}

type DatabaseConfig struct {
	Driver       string
	DSN          string
	MaxOpenConns int
}

type RateLimitConfig struct {
	Max    int64
	Window time.Duration
}

// RedisConfig is optional; an empty Addr keeps rate-limit counters in process.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

func (r RedisConfig) Enabled() bool {
	return r.Addr != ""
}

func LoadConfig() (Config, error) {
	cfg := Config{}

	cfg.Port = envOrDefault("PORT", "3000")
	cfg.APIKey = envOrDefault("API_KEY", DefaultAPIKey)
	cfg.LogLevel = strings.ToLower(envOrDefault("LOG_LEVEL", "info"))
	cfg.LogFormat = strings.ToLower(envOrDefault("LOG_FORMAT", "json"))
	cfg.DataDir = envOrDefault("DATA_DIR", "data")

	absDataDir, err := filepath.Abs(cfg.DataDir)
	if err != nil {
		return Config{}, fmt.Errorf("resolve data dir: %w", err)
	}
	cfg.DataDir = absDataDir

	cfg.Database.Driver = strings.ToLower(envOrDefault("DB_DRIVER", "sqlite"))
	switch cfg.Database.Driver {
	case "sqlite", "postgres", "pgx":
	default:
		return Config{}, fmt.Errorf("unsupported DB_DRIVER %q", cfg.Database.Driver)
	}
	cfg.Database.DSN = envOrDefault("DATABASE_URL", "")
	if cfg.Database.DSN == "" {
		if cfg.Database.Driver != "sqlite" {
			return Config{}, fmt.Errorf("DATABASE_URL is required for driver %s", cfg.Database.Driver)
		}
		cfg.Database.DSN = filepath.Join(cfg.DataDir, "data.db")
	}

	defaultConns := int64(10)
	if cfg.Database.Driver == "sqlite" {
		defaultConns = 1
	}
	maxConns, err := parseIntEnv("DB_MAX_OPEN_CONNS", defaultConns)
	if err != nil {
		return Config{}, fmt.Errorf("parse DB_MAX_OPEN_CONNS: %w", err)
	}
	cfg.Database.MaxOpenConns = int(maxConns)

	cfg.RateLimit.Max, err = parseIntEnv("RATE_LIMIT_MAX", 100)
	if err != nil {
		return Config{}, fmt.Errorf("parse RATE_LIMIT_MAX: %w", err)
	}
	windowSeconds, err := parseIntEnv("RATE_LIMIT_WINDOW_SECONDS", 15*60)
	if err != nil {
		return Config{}, fmt.Errorf("parse RATE_LIMIT_WINDOW_SECONDS: %w", err)
	}
	if cfg.RateLimit.Max <= 0 || windowSeconds <= 0 {
		return Config{}, fmt.Errorf("rate limit max and window must be positive")
	}
	cfg.RateLimit.Window = time.Duration(windowSeconds) * time.Second

	cfg.Redis.Addr = os.Getenv("REDIS_ADDR")
	cfg.Redis.Password = os.Getenv("REDIS_PASSWORD")
	redisDB, err := parseIntEnv("REDIS_DB", 0)
	if err != nil {
		return Config{}, fmt.Errorf("parse REDIS_DB: %w", err)
	}
	cfg.Redis.DB = int(redisDB)

	cfg.MaxBodyBytes, err = parseIntEnv("MAX_BODY_BYTES", 1024*1024)
	if err != nil {
		return Config{}, fmt.Errorf("parse MAX_BODY_BYTES: %w", err)
	}

	cfg.AllowedOrigins = splitList(os.Getenv("CORS_ALLOWED_ORIGINS"))

	cfg.BaseURL = strings.TrimSuffix(envOrDefault("BASE_URL", fmt.Sprintf("http://localhost:%s", cfg.Port)), "/")
	cfg.ShareSecret = envOrDefault("SHARE_SECRET", "change-me")

	shareTTLSeconds, err := parseIntEnv("SHARE_TTL_SECONDS", 86400)
	if err != nil {
		return Config{}, fmt.Errorf("parse SHARE_TTL_SECONDS: %w", err)
	}
	cfg.ShareTTL = time.Duration(shareTTLSeconds) * time.Second

	cfg.MetricsEnabled, err = parseBoolEnv("METRICS_ENABLED", true)
	if err != nil {
		return Config{}, fmt.Errorf("parse METRICS_ENABLED: %w", err)
	}

	shutdownSeconds, err := parseIntEnv("SHUTDOWN_TIMEOUT_SECONDS", 10)
	if err != nil {
		return Config{}, fmt.Errorf("parse SHUTDOWN_TIMEOUT_SECONDS: %w", err)
	}
	cfg.ShutdownTimeout = time.Duration(shutdownSeconds) * time.Second

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		return val
	}
	return fallback
}

func parseIntEnv(key string, fallback int64) (int64, error) {
	value := envOrDefault(key, "")
	if value == "" {
		return fallback, nil
	}

	num, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, err
	}
	return num, nil
}

func parseBoolEnv(key string, fallback bool) (bool, error) {
	value := envOrDefault(key, "")
	if value == "" {
		return fallback, nil
	}
	return strconv.ParseBool(value)
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
