// Package config provides environment configuration for the API server and the
// operator CLI.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store drivers.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

// Config holds all configuration for the application.
type Config struct {
	// Server settings
	ServerPort         string
	ServerReadTimeout  time.Duration
	ServerWriteTimeout time.Duration
	SSEHeartbeat       time.Duration
	CORSOrigins        []string

	// Direct database access
	StoreDriver string
	DatabaseURL string

	// Database change feed (LISTEN/NOTIFY) republished on the realtime bus
	ChangeFeed        bool
	ChangeFeedInstall bool

	// Remote admin API
	AdminAPIURL string
	AdminAPIKey string

	// BaaS JWT secret used to verify admin bearer tokens
	JWTSecret string

	// NATS settings. An empty URL runs realtime in-process.
	NATSURL      string
	NATSCAFile   string
	NATSCertFile string
	NATSKeyFile  string
	NATSToken    string

	// Analytics cache
	RedisURL          string
	AnalyticsCacheTTL time.Duration

	// Export
	ExportMaxRows  int
	ExportBucket   string
	ExportRegion   string
	ExportPrefix   string
	ExportEndpoint string

	// LLM settings
	LLMProvider     string
	AnthropicAPIKey string
	OpenAIAPIKey    string
	LLMBaseURL      string
	SummaryModel    string

	// Rate limiting
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// Logging
	LogLevel string

	// Tracing
	TracingEndpoint string
	TracingEnabled  bool
}

// Load reads configuration from environment variables after loading an optional
// .env file from the working directory.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		// Server
		ServerPort:         getEnv("PORT", "8080"),
		ServerReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 30*time.Second),
		ServerWriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 0),
		SSEHeartbeat:       getDurationEnv("SSE_HEARTBEAT", 30*time.Second),
		CORSOrigins:        getListEnv("CORS_ORIGINS"),

		// Store
		StoreDriver: getEnv("STORE_DRIVER", StorePostgres),
		DatabaseURL: getEnv("DATABASE_URL", ""),

		// Change feed
		ChangeFeed:        getBoolEnv("CHANGE_FEED", false),
		ChangeFeedInstall: getBoolEnv("CHANGE_FEED_INSTALL", false),

		// Admin API
		AdminAPIURL: getEnv("ADMIN_API_URL", ""),
		AdminAPIKey: getEnv("ADMIN_API_KEY", ""),

		// JWT
		JWTSecret: getEnv("BAAS_JWT_SECRET", ""),

		// NATS
		NATSURL:      getEnv("NATS_URL", ""),
		NATSCAFile:   getEnv("NATS_CA_FILE", ""),
		NATSCertFile: getEnv("NATS_CERT_FILE", ""),
		NATSKeyFile:  getEnv("NATS_KEY_FILE", ""),
		NATSToken:    getEnv("NATS_TOKEN", ""),

		// Redis
		RedisURL:          getEnv("REDIS_URL", ""),
		AnalyticsCacheTTL: getDurationEnv("ANALYTICS_CACHE_TTL", 5*time.Minute),

		// Export
		ExportMaxRows:  getIntEnv("EXPORT_MAX_ROWS", 10000),
		ExportBucket:   getEnv("EXPORT_BUCKET", ""),
		ExportRegion:   getEnv("EXPORT_REGION", "us-east-1"),
		ExportPrefix:   getEnv("EXPORT_PREFIX", "exports"),
		ExportEndpoint: getEnv("EXPORT_ENDPOINT", ""),

		// LLM
		LLMProvider:     getEnv("LLM_PROVIDER", "anthropic"),
		AnthropicAPIKey: getEnv("ANTHROPIC_API_KEY", ""),
		OpenAIAPIKey:    getEnv("OPENAI_API_KEY", ""),
		LLMBaseURL:      getEnv("LLM_BASE_URL", ""),
		SummaryModel:    getEnv("SUMMARY_MODEL", ""),

		// Rate limiting
		RateLimitRequests: getIntEnv("RATE_LIMIT_REQUESTS", 120),
		RateLimitWindow:   getDurationEnv("RATE_LIMIT_WINDOW", time.Minute),

		// Logging
		LogLevel: getEnv("LOG_LEVEL", "info"),

		// Tracing
		TracingEndpoint: getEnv("TRACING_ENDPOINT", "localhost:4318"),
		TracingEnabled:  getBoolEnv("TRACING_ENABLED", false),
	}
}

// LLMAPIKey returns the key of the configured provider.
func (c *Config) LLMAPIKey() string {
	if c.LLMProvider == "openai" {
		return c.OpenAIAPIKey
	}
	return c.AnthropicAPIKey
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getListEnv(key string) []string {
	var out []string
	for _, s := range strings.Split(os.Getenv(key), ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
