package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Session store backends
const (
	StoreKeyring = "keyring"
	StoreFile    = "file"
	StoreSQLite  = "sqlite"
	StoreRedis   = "redis"
	StoreMemory  = "memory"
)

const (
	defaultAppName   = "Template"
	defaultPortBack  = "8000"
	defaultPortAuth  = "8001"
	defaultPortFront = "5173"
)

// Config holds all configuration for the application
type Config struct {
	AppName string

	// Endpoints Configuration
	Endpoints EndpointsConfig

	// Session Configuration
	Session SessionConfig

	// HTTP Configuration
	HTTP HTTPConfig

	// Logging Configuration
	Logging LoggingConfig
}

// EndpointsConfig holds the base URLs of the services the client talks to
type EndpointsConfig struct {
	BackendURL  string
	AuthURL     string
	FrontendURL string
}

// SessionConfig selects where the session is persisted
type SessionConfig struct {
	Store        string // keyring, file, sqlite, redis, memory
	FilePath     string
	SQLitePath   string
	RedisAddress string
}

// HTTPConfig holds gateway tuning
type HTTPConfig struct {
	Timeout   time.Duration // 0 disables the client timeout
	RateLimit float64       // requests per second, 0 disables limiting
	RateBurst int
}

// LoggingConfig holds logging-related configuration
type LoggingConfig struct {
	Level  string
	Format string // json, console
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env files (fails silently if files don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	configDir, err := defaultConfigDir()
	if err != nil {
		return nil, err
	}

	timeout, err := durationEnv("PORTAL_HTTP_TIMEOUT", 0)
	if err != nil {
		return nil, err
	}

	rateLimit, err := floatEnv("PORTAL_RATE_LIMIT", 0)
	if err != nil {
		return nil, err
	}

	rateBurst, err := intEnv("PORTAL_RATE_BURST", 1)
	if err != nil {
		return nil, err
	}

	store := getEnv("PORTAL_SESSION_STORE", StoreKeyring)
	switch store {
	case StoreKeyring, StoreFile, StoreSQLite, StoreRedis, StoreMemory:
	default:
		return nil, fmt.Errorf("invalid PORTAL_SESSION_STORE %q, must be one of: keyring, file, sqlite, redis, memory", store)
	}

	return &Config{
		AppName: getEnv("APP_NAME", defaultAppName),
		Endpoints: EndpointsConfig{
			BackendURL:  serviceURL("PORTAL_BACKEND_URL", "PORTAL_PORT_BACK", defaultPortBack),
			AuthURL:     serviceURL("PORTAL_AUTH_URL", "PORTAL_PORT_AUTH", defaultPortAuth),
			FrontendURL: serviceURL("PORTAL_FRONTEND_URL", "PORT_FRONT", defaultPortFront),
		},
		Session: SessionConfig{
			Store:        store,
			FilePath:     getEnv("PORTAL_SESSION_FILE", filepath.Join(configDir, "session.json")),
			SQLitePath:   getEnv("PORTAL_SESSION_SQLITE", filepath.Join(configDir, "session.sqlite")),
			RedisAddress: getEnv("PORTAL_REDIS_ADDRESS", "localhost:6379"),
		},
		HTTP: HTTPConfig{
			Timeout:   timeout,
			RateLimit: rateLimit,
			RateBurst: rateBurst,
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "console"),
		},
	}, nil
}

// serviceURL prefers an explicit URL and falls back to localhost on the configured port
func serviceURL(urlKey, portKey, defaultPort string) string {
	if u := os.Getenv(urlKey); u != "" {
		return u
	}
	return fmt.Sprintf("http://localhost:%s", getEnv(portKey, defaultPort))
}

func defaultConfigDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "portal"), nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func floatEnv(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}

func intEnv(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return i, nil
}
