// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// DefaultModel is used when GEMINI_MODEL is unset.
const DefaultModel = "gemini-2.0-flash-001"

// Config holds all application configuration.
type Config struct {
	Port           string
	FrontendURL    string
	DBPath         string // SQLite DSN path; in-memory by default so sessions die with the process
	SessionTTL     time.Duration
	GRPCHealthPort string // "" disables the gRPC health server
	AllowedOrigins []string
	Generation     GenerationConfig
	RateLimit      RateLimitConfig
}

// GenerationConfig controls access to the text-generation service.
type GenerationConfig struct {
	APIKey        string
	Model         string
	Temperature   float32
	Timeout       time.Duration
	KnowledgePath string // "" uses the embedded knowledge blob
}

// RateLimitConfig bounds chat turns per anonymous user.
type RateLimitConfig struct {
	RequestsPerWindow int
	WindowDuration    time.Duration
}

// Load reads configuration from environment variables.
//
// A missing GOOGLE_API_KEY is not an error: the agent runs in degraded mode
// and answers every turn with a configuration-error reply.
func Load() (*Config, error) {
	requests := getEnvInt("RATE_LIMIT_REQUESTS", 20)
	if requests <= 0 {
		requests = 20
	}

	cfg := &Config{
		Port:           getEnv("PORT", "8080"),
		FrontendURL:    getEnv("FRONTEND_URL", ""),
		DBPath:         getEnv("DB_PATH", "file:upsell?mode=memory&cache=shared"),
		SessionTTL:     getEnvDuration("SESSION_TTL", 60*time.Minute),
		GRPCHealthPort: getEnv("GRPC_HEALTH_PORT", "9090"),
		AllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		Generation: GenerationConfig{
			APIKey:        strings.TrimSpace(getEnv("GOOGLE_API_KEY", "")),
			Model:         getEnv("GEMINI_MODEL", DefaultModel),
			Temperature:   float32(getEnvFloat("GEMINI_TEMPERATURE", 0.7)),
			Timeout:       getEnvDuration("GENERATION_TIMEOUT", 30*time.Second),
			KnowledgePath: getEnv("KNOWLEDGE_PATH", ""),
		},
		RateLimit: RateLimitConfig{
			RequestsPerWindow: requests,
			WindowDuration:    getEnvDuration("RATE_LIMIT_WINDOW", time.Minute),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH cannot be empty")
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be > 0")
	}
	if c.Generation.Model == "" {
		return fmt.Errorf("GEMINI_MODEL cannot be empty")
	}
	if c.Generation.Timeout <= 0 {
		return fmt.Errorf("GENERATION_TIMEOUT must be > 0")
	}
	if c.Generation.Temperature < 0 || c.Generation.Temperature > 2 {
		return fmt.Errorf("GEMINI_TEMPERATURE must be within [0, 2]")
	}
	if c.RateLimit.WindowDuration <= 0 {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be > 0")
	}
	return nil
}

// HasCredential reports whether a generation API key is configured.
func (c *Config) HasCredential() bool {
	return c.Generation.APIKey != ""
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.FrontendURL == "" ||
		strings.Contains(c.FrontendURL, "localhost") ||
		strings.Contains(c.FrontendURL, "127.0.0.1")
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64) float64 {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 32)
	if err != nil {
		return fallback
	}
	return f
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return d
}

func getEnvList(key string, fallback []string) []string {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
