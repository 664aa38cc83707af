package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	DatabaseURL        string
	RedisURL           string
	JWTSecret          string
	CORSAllowedOrigins []string

	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	// Order defaults applied when the client omits the percentages.
	DefaultDiscountPercent float64
	DefaultTaxPercent      float64
	DueDateOffset          time.Duration

	CatalogCacheTTL time.Duration
	IdempotencyTTL  time.Duration

	AuthRateLimit string

	// Object storage for pre-signed uploads.
	S3Endpoint     string
	S3Region       string
	S3Bucket       string
	S3AccessKey    string
	S3SecretKey    string
	UploadURLTTL   time.Duration
	UploadMaxBytes int64

	InviteEmailFrom string
	// Optional ops mailbox that receives a copy of every domain event.
	EventNotifyEmail string

	SessionSweepInterval time.Duration

	DBMaxConns int32
	DBMinConns int32
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:             valueOrDefault(k.String("APP_ENV"), "development"),
		Port:               valueOrDefault(k.String("PORT"), "8080"),
		DatabaseURL:        k.String("DATABASE_URL"),
		RedisURL:           k.String("REDIS_URL"),
		JWTSecret:          k.String("JWT_SECRET"),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),

		AccessTokenTTL:  parseDuration(k.String("ACCESS_TOKEN_TTL"), "15m"),
		RefreshTokenTTL: parseDuration(k.String("REFRESH_TOKEN_TTL"), "720h"),

		DefaultDiscountPercent: parseFloat(k.String("ORDER_DEFAULT_DISCOUNT_PERCENT"), 10),
		DefaultTaxPercent:      parseFloat(k.String("ORDER_DEFAULT_TAX_PERCENT"), 20),
		DueDateOffset:          parseDuration(k.String("ORDER_DUE_DATE_OFFSET"), "168h"),

		CatalogCacheTTL: parseDuration(k.String("CATALOG_CACHE_TTL"), "5m"),
		IdempotencyTTL:  parseDuration(k.String("IDEMPOTENCY_TTL"), "24h"),

		AuthRateLimit: valueOrDefault(k.String("AUTH_RATE_LIMIT"), "20-M"),

		S3Endpoint:     strings.TrimSpace(k.String("S3_ENDPOINT")),
		S3Region:       valueOrDefault(k.String("S3_REGION"), "auto"),
		S3Bucket:       strings.TrimSpace(k.String("S3_BUCKET")),
		S3AccessKey:    k.String("S3_ACCESS_KEY"),
		S3SecretKey:    k.String("S3_SECRET_KEY"),
		UploadURLTTL:   parseDuration(k.String("UPLOAD_URL_TTL"), "15m"),
		UploadMaxBytes: parseInt64(k.String("UPLOAD_MAX_BYTES"), 10<<20),

		InviteEmailFrom:  valueOrDefault(k.String("INVITE_EMAIL_FROM"), "no-reply@supplier.local"),
		EventNotifyEmail: strings.TrimSpace(k.String("EVENTS_NOTIFY_EMAIL")),

		SessionSweepInterval: parseDuration(k.String("SESSION_SWEEP_INTERVAL"), "1h"),

		DBMaxConns: int32(parseInt64(k.String("DB_MAX_CONNS"), 0)),
		DBMinConns: int32(parseInt64(k.String("DB_MIN_CONNS"), 0)),
	}

	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}

	return cfg, nil
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func parseFloat(value string, fallback float64) float64 {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func parseInt64(value string, fallback int64) int64 {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fallback
	}
	parsed, err := strconv.ParseInt(trimmed, 10, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

// MustLoad behaves like Load but panics on error. Useful for tests and command entrypoints.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadForTests allows tests to override environment variables without touching the real environment.
func LoadForTests(env map[string]string) (*Config, error) {
	original := make(map[string]string, len(env))
	for key := range env {
		original[key] = os.Getenv(key)
		if err := setEnvVar(key, env[key]); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()
	restoreErr := restoreEnv(original)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func setEnvVar(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}

func restoreEnv(values map[string]string) error {
	var errs []string
	for key, value := range values {
		if err := setEnvVar(key, value); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("restore env: %s", strings.Join(errs, "; "))
	}
	return nil
}
