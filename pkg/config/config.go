package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/moviecrew/moviecrew/pkg/observability"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig

	// Storage configuration
	Storage StorageConfig

	// Access control configuration
	Access AccessConfig

	// Observability configuration
	Observability ObservabilityConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// Health/metrics server (separate port for k8s probes)
	HealthPort string
}

// StorageConfig holds database and cache settings
type StorageConfig struct {
	// Type selects the backend: memory, postgres or sqlite
	Type string

	PostgresURL string
	SQLitePath  string

	RedisURL      string
	RedisPassword string
	RedisDB       int

	CacheEnabled bool
	CacheTTL     time.Duration
}

// AccessConfig holds decision engine settings
type AccessConfig struct {
	// PolicyFile optionally overrides the built-in policy with a YAML
	// grant table
	PolicyFile string

	DecisionCacheSize int
	DecisionCacheTTL  time.Duration
	ResolveTimeout    time.Duration
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	// Logging
	LogLevel observability.LogLevel

	// Metrics
	MetricsEnabled bool

	// Counter drift audit ("" disables; cron spec, e.g. "@every 5m")
	AuditSchedule string

	// OpenTelemetry
	OTelEnabled        bool
	OTelEndpoint       string
	OTelServiceName    string
	OTelServiceVersion string
	OTelInsecure       bool // Use insecure gRPC connection
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server:        loadServerConfig(),
		Storage:       loadStorageConfig(),
		Access:        loadAccessConfig(),
		Observability: loadObservabilityConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// loadServerConfig loads server configuration from environment
func loadServerConfig() ServerConfig {
	return ServerConfig{
		Host:            getEnv("MOVIECREW_HOST", "0.0.0.0"),
		Port:            getEnv("MOVIECREW_PORT", "8080"),
		ReadTimeout:     getEnvDuration("MOVIECREW_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:    getEnvDuration("MOVIECREW_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:     getEnvDuration("MOVIECREW_IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout: getEnvDuration("MOVIECREW_SHUTDOWN_TIMEOUT", 30*time.Second),
		HealthPort:      getEnv("MOVIECREW_HEALTH_PORT", "9090"),
	}
}

// loadStorageConfig loads storage configuration from environment
func loadStorageConfig() StorageConfig {
	return StorageConfig{
		Type:          getEnv("MOVIECREW_STORAGE_TYPE", "memory"),
		PostgresURL:   getEnv("MOVIECREW_POSTGRES_URL", ""),
		SQLitePath:    getEnv("MOVIECREW_SQLITE_PATH", ""),
		RedisURL:      getEnv("MOVIECREW_REDIS_URL", ""),
		RedisPassword: getEnv("MOVIECREW_REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("MOVIECREW_REDIS_DB", 0),
		CacheEnabled:  getEnvBool("MOVIECREW_CACHE_ENABLED", false),
		CacheTTL:      getEnvDuration("MOVIECREW_CACHE_TTL", 5*time.Minute),
	}
}

// loadAccessConfig loads decision engine configuration from environment
func loadAccessConfig() AccessConfig {
	return AccessConfig{
		PolicyFile:        getEnv("MOVIECREW_POLICY_FILE", ""),
		DecisionCacheSize: getEnvInt("MOVIECREW_DECISION_CACHE_SIZE", 1024),
		DecisionCacheTTL:  getEnvDuration("MOVIECREW_DECISION_CACHE_TTL", 30*time.Second),
		ResolveTimeout:    getEnvDuration("MOVIECREW_RESOLVE_TIMEOUT", 3*time.Second),
	}
}

// loadObservabilityConfig loads observability configuration from environment
func loadObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		LogLevel:           observability.ParseLogLevel(getEnv("MOVIECREW_LOG_LEVEL", "info")),
		MetricsEnabled:     getEnvBool("MOVIECREW_METRICS_ENABLED", true),
		AuditSchedule:      getEnv("MOVIECREW_AUDIT_SCHEDULE", "@every 5m"),
		OTelEnabled:        getEnvBool("MOVIECREW_OTEL_ENABLED", false),
		OTelEndpoint:       getEnv("MOVIECREW_OTEL_ENDPOINT", "localhost:4317"),
		OTelServiceName:    getEnv("MOVIECREW_OTEL_SERVICE_NAME", "moviecrew"),
		OTelServiceVersion: getEnv("MOVIECREW_OTEL_SERVICE_VERSION", "1.0.0"),
		OTelInsecure:       getEnvBool("MOVIECREW_OTEL_INSECURE", true),
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	// Validate server config
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}

	// Validate storage config based on type
	switch c.Storage.Type {
	case "memory":
		// no external requirements
	case "postgres":
		if c.Storage.PostgresURL == "" {
			return fmt.Errorf("postgres URL is required for postgres storage")
		}
	case "sqlite":
		if c.Storage.SQLitePath == "" {
			return fmt.Errorf("sqlite path is required for sqlite storage")
		}
	default:
		return fmt.Errorf("invalid storage type: %s (must be memory, postgres, or sqlite)", c.Storage.Type)
	}

	if c.Storage.CacheEnabled && c.Storage.RedisURL == "" {
		return fmt.Errorf("redis URL is required when the entity cache is enabled")
	}

	if c.Access.DecisionCacheSize < 0 {
		return fmt.Errorf("decision cache size must not be negative")
	}

	// Validate OpenTelemetry config
	if c.Observability.OTelEnabled {
		if c.Observability.OTelEndpoint == "" {
			return fmt.Errorf("OpenTelemetry endpoint is required when OTel is enabled")
		}
		if c.Observability.OTelServiceName == "" {
			return fmt.Errorf("OpenTelemetry service name is required when OTel is enabled")
		}
	}

	return nil
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
