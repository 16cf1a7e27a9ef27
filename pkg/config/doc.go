// Package config provides application configuration management from environment variables.
//
// # Overview
//
// This package loads and validates configuration from environment variables with
// sensible defaults for all settings.
//
// # Configuration Structure
//
// Server settings:
//
//	MOVIECREW_HOST="0.0.0.0"
//	MOVIECREW_PORT="8080"
//	MOVIECREW_HEALTH_PORT="9090"
//	MOVIECREW_READ_TIMEOUT="15s"
//	MOVIECREW_WRITE_TIMEOUT="15s"
//
// Storage settings:
//
//	MOVIECREW_STORAGE_TYPE="postgres"  # memory, postgres, sqlite
//	MOVIECREW_POSTGRES_URL="postgres://localhost/moviecrew"
//	MOVIECREW_SQLITE_PATH="/var/moviecrew/data.db"
//
// Cache settings:
//
//	MOVIECREW_CACHE_ENABLED="true"
//	MOVIECREW_CACHE_TTL="5m"
//	MOVIECREW_REDIS_URL="redis://localhost:6379"
//
// Access control settings:
//
//	MOVIECREW_POLICY_FILE="/etc/moviecrew/policy.yaml"
//	MOVIECREW_DECISION_CACHE_SIZE="1024"
//	MOVIECREW_DECISION_CACHE_TTL="30s"
//	MOVIECREW_RESOLVE_TIMEOUT="3s"
//
// Observability settings:
//
//	MOVIECREW_LOG_LEVEL="info"  # debug, info, warn, error
//	MOVIECREW_METRICS_ENABLED="true"
//	MOVIECREW_AUDIT_SCHEDULE="@every 5m"
//	MOVIECREW_OTEL_ENABLED="true"
//	MOVIECREW_OTEL_ENDPOINT="otel-collector:4317"
//
// # Usage Example
//
// Load configuration:
//
//	cfg, err := config.LoadConfig()
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	fmt.Printf("Server: %s:%s\n", cfg.Server.Host, cfg.Server.Port)
//	fmt.Printf("Storage: %s\n", cfg.Storage.Type)
//	fmt.Printf("Log level: %s\n", cfg.Observability.LogLevel)
//
// # Related Packages
//
//   - pkg/store: Uses storage configuration
//   - pkg/access: Uses access control configuration
//   - pkg/observability: Uses observability configuration
package config
