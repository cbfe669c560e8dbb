package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/saborytradicion/storefront/pkg/database"
)

// Config holds the application configuration shared by the server and the CLI
type Config struct {
	Environment string
	LogLevel    string

	// Reference API server
	ServerPort         int
	JWTSecret          string
	TokenTTL           time.Duration
	CORSAllowedOrigins []string
	LoginRateLimit     int
	SeedDemoData       bool
	RedisURL           string
	Database           *database.Config // nil when DB_HOST is unset

	// Storefront client
	APIBaseURL       string
	TenantDomain     string
	StorageBackend   string
	StatePath        string
	StorageNamespace string
	HTTPTimeout      time.Duration
	RetryMaxAttempts int
	BreakerFailures  int
	BreakerTimeout   time.Duration
	MenuCacheTTL     time.Duration
}

// Storage backends accepted in STORAGE_BACKEND
const (
	StorageFile     = "file"
	StorageMemory   = "memory"
	StorageRedis    = "redis"
	StoragePostgres = "postgres"
)

// Load reads configuration from environment variables
func Load() (*Config, error) {
	port, err := strconv.Atoi(getEnv("SERVER_PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT: %w", err)
	}

	tokenTTLMinutes, err := strconv.Atoi(getEnv("TOKEN_TTL_MINUTES", "720"))
	if err != nil {
		return nil, fmt.Errorf("invalid TOKEN_TTL_MINUTES: %w", err)
	}

	loginRateLimit, err := strconv.Atoi(getEnv("LOGIN_RATE_LIMIT", "10"))
	if err != nil {
		return nil, fmt.Errorf("invalid LOGIN_RATE_LIMIT: %w", err)
	}

	timeoutSeconds, err := strconv.Atoi(getEnv("HTTP_TIMEOUT_SECONDS", "10"))
	if err != nil {
		return nil, fmt.Errorf("invalid HTTP_TIMEOUT_SECONDS: %w", err)
	}

	retryAttempts, err := strconv.Atoi(getEnv("RETRY_MAX_ATTEMPTS", "3"))
	if err != nil {
		return nil, fmt.Errorf("invalid RETRY_MAX_ATTEMPTS: %w", err)
	}
	if retryAttempts < 1 {
		return nil, fmt.Errorf("invalid RETRY_MAX_ATTEMPTS: must be at least 1")
	}

	breakerFailures, err := strconv.Atoi(getEnv("BREAKER_FAILURE_THRESHOLD", "5"))
	if err != nil {
		return nil, fmt.Errorf("invalid BREAKER_FAILURE_THRESHOLD: %w", err)
	}

	breakerTimeout, err := strconv.Atoi(getEnv("BREAKER_TIMEOUT_SECONDS", "30"))
	if err != nil {
		return nil, fmt.Errorf("invalid BREAKER_TIMEOUT_SECONDS: %w", err)
	}

	menuCacheSeconds, err := strconv.Atoi(getEnv("MENU_CACHE_SECONDS", "60"))
	if err != nil {
		return nil, fmt.Errorf("invalid MENU_CACHE_SECONDS: %w", err)
	}

	backend := strings.ToLower(getEnv("STORAGE_BACKEND", StorageFile))
	switch backend {
	case StorageFile, StorageMemory, StorageRedis, StoragePostgres:
	default:
		return nil, fmt.Errorf("invalid STORAGE_BACKEND %q", backend)
	}

	db, err := loadDatabase()
	if err != nil {
		return nil, err
	}
	if backend == StoragePostgres && db == nil {
		return nil, fmt.Errorf("STORAGE_BACKEND=postgres requires DB_HOST")
	}

	return &Config{
		Environment:        getEnv("ENVIRONMENT", "development"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		ServerPort:         port,
		JWTSecret:          os.Getenv("JWT_SECRET"),
		TokenTTL:           time.Duration(tokenTTLMinutes) * time.Minute,
		CORSAllowedOrigins: parseCSVEnv("CORS_ALLOWED_ORIGINS", []string{"http://localhost:5173", "http://localhost:3000"}),
		LoginRateLimit:     loginRateLimit,
		SeedDemoData:       parseBoolEnv("SEED_DEMO_DATA", true),
		RedisURL:           os.Getenv("REDIS_URL"),
		Database:           db,
		APIBaseURL:         strings.TrimRight(getEnv("API_BASE_URL", "http://localhost:8080"), "/"),
		TenantDomain:       getEnv("TENANT_DOMAIN", "localhost"),
		StorageBackend:     backend,
		StatePath:          getEnv("STATE_PATH", defaultStatePath()),
		StorageNamespace:   getEnv("STORAGE_NAMESPACE", "default"),
		HTTPTimeout:        time.Duration(timeoutSeconds) * time.Second,
		RetryMaxAttempts:   retryAttempts,
		BreakerFailures:    breakerFailures,
		BreakerTimeout:     time.Duration(breakerTimeout) * time.Second,
		MenuCacheTTL:       time.Duration(menuCacheSeconds) * time.Second,
	}, nil
}

func loadDatabase() (*database.Config, error) {
	host := os.Getenv("DB_HOST")
	if host == "" {
		return nil, nil
	}

	cfg := database.DefaultConfig()
	cfg.Host = host

	port, err := strconv.Atoi(getEnv("DB_PORT", strconv.Itoa(cfg.Port)))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}
	cfg.Port = port
	cfg.User = getEnv("DB_USER", cfg.User)
	cfg.Password = getEnv("DB_PASSWORD", cfg.Password)
	cfg.Database = getEnv("DB_NAME", cfg.Database)
	cfg.SSLMode = getEnv("DB_SSLMODE", cfg.SSLMode)
	return cfg, nil
}

func defaultStatePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".storefront", "state.json")
	}
	return filepath.Join(home, ".storefront", "state.json")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseBoolEnv(key string, defaultValue bool) bool {
	switch strings.ToLower(os.Getenv(key)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return defaultValue
	}
}

func parseCSVEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			trimmed := strings.TrimSpace(p)
			if trimmed != "" {
				out = append(out, trimmed)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return defaultValue
}
