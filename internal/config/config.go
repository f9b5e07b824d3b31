package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
// Values are loaded from environment variables with defaults.
type Config struct {
	// Server
	Port         int
	LogLevel     string
	MaxUploadMB  int
	WriteTimeout time.Duration
	CORSOrigins  []string

	// Reconciliation defaults
	LocalCurrency    string
	HeaderRow        int
	InvoiceKeyDigits int

	// Templates
	TemplatePath string

	// Sessions
	SessionTTL    time.Duration
	SessionSecret string

	// Resilience
	MaxConcurrentRuns int
	ReadRetries       int
	ReadBackoff       time.Duration

	// Observability
	OTLPEndpoint   string
	TracingEnabled bool
}

// Load reads configuration from environment variables with defaults.
func Load() *Config {
	return &Config{
		Port:         getEnvInt("PORT", 8080),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		MaxUploadMB:  getEnvInt("MAX_UPLOAD_MB", 32),
		WriteTimeout: getEnvDuration("WRITE_TIMEOUT", 60*time.Second),
		CORSOrigins:  getEnvList("CORS_ALLOWED_ORIGINS", []string{"*"}),

		LocalCurrency:    strings.ToUpper(getEnv("LOCAL_CURRENCY", "TRY")),
		HeaderRow:        getEnvInt("HEADER_ROW", 1),
		InvoiceKeyDigits: getEnvInt("INVOICE_KEY_DIGITS", 0),

		TemplatePath: getEnv("TEMPLATE_PATH", "templates.json"),

		SessionTTL:    getEnvDuration("SESSION_TTL", 2*time.Hour),
		SessionSecret: getEnv("SESSION_SECRET", "recomatch-dev-secret-change-me"),

		MaxConcurrentRuns: getEnvInt("MAX_CONCURRENT_RUNS", 4),
		ReadRetries:       getEnvInt("READ_RETRIES", 2),
		ReadBackoff:       getEnvDuration("READ_BACKOFF", 50*time.Millisecond),

		OTLPEndpoint:   getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		TracingEnabled: getEnvBool("TRACING_ENABLED", false),
	}
}

// Validate rejects values the service cannot start with.
func (c *Config) Validate() error {
	switch {
	case c.Port <= 0 || c.Port > 65535:
		return fmt.Errorf("PORT out of range: %d", c.Port)
	case c.HeaderRow < 1:
		return fmt.Errorf("HEADER_ROW must be at least 1, got %d", c.HeaderRow)
	case c.InvoiceKeyDigits < 0:
		return fmt.Errorf("INVOICE_KEY_DIGITS must not be negative, got %d", c.InvoiceKeyDigits)
	case c.MaxConcurrentRuns < 1:
		return fmt.Errorf("MAX_CONCURRENT_RUNS must be at least 1, got %d", c.MaxConcurrentRuns)
	case c.MaxUploadMB < 1:
		return fmt.Errorf("MAX_UPLOAD_MB must be at least 1, got %d", c.MaxUploadMB)
	case len(c.SessionSecret) < 16:
		return fmt.Errorf("SESSION_SECRET must be at least 16 bytes")
	}
	return nil
}

// MaxUploadBytes is MaxUploadMB in bytes.
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) << 20
}

// TracingEndpoint is the OTLP endpoint, or "" when tracing is off.
func (c *Config) TracingEndpoint() string {
	if !c.TracingEnabled {
		return ""
	}
	if c.OTLPEndpoint == "" {
		return "localhost:4317"
	}
	return c.OTLPEndpoint
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
