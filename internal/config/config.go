package config

import (
	"errors"
	"fmt"
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

	LogFormat string
	LogLevel  string

	OTELEndpoint      string
	OTELSamplingRatio float64

	StoreHeader  string
	RootDomain   string
	DefaultStore string

	WhatsAppAPIURL        string
	WhatsAppAPIKey        string
	WhatsAppCountryPrefix string
	SupportPhone          string

	RateLimitWindow time.Duration
	RateLimitMax    int

	NotifyMaxRetry int
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

		LogFormat: valueOrDefault(k.String("LOG_FORMAT"), "json"),
		LogLevel:  valueOrDefault(k.String("LOG_LEVEL"), "info"),

		OTELEndpoint:      k.String("OTEL_EXPORTER_OTLP_ENDPOINT"),
		OTELSamplingRatio: floatOrDefault(k.Float64("OTEL_SAMPLING_RATIO"), 1.0),

		StoreHeader:  valueOrDefault(k.String("STORE_HEADER"), "X-Store-ID"),
		RootDomain:   strings.TrimSpace(k.String("ROOT_DOMAIN")),
		DefaultStore: strings.TrimSpace(k.String("DEFAULT_STORE")),

		WhatsAppAPIURL:        k.String("WHATSAPP_API_URL"),
		WhatsAppAPIKey:        k.String("WHATSAPP_API_KEY"),
		WhatsAppCountryPrefix: valueOrDefault(k.String("WHATSAPP_COUNTRY_PREFIX"), "967"),
		SupportPhone:          k.String("SUPPORT_PHONE"),

		RateLimitWindow: parseDuration(k.String("RATE_LIMIT_WINDOW"), "1m"),
		RateLimitMax:    intOrDefault(k.Int("RATE_LIMIT_MAX"), 120),

		NotifyMaxRetry: intOrDefault(k.Int("NOTIFY_MAX_RETRY"), 5),
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

func floatOrDefault(value, fallback float64) float64 {
	if value > 0 {
		return value
	}
	return fallback
}

func intOrDefault(value, fallback int) int {
	if value > 0 {
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
