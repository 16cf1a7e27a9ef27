// Package observability provides structured logging, Prometheus
// metrics, health checks, and OpenTelemetry integration.
//
// # Structured Logging
//
// JSON logger over slog:
//
//	logger := observability.NewLogger(observability.InfoLevel, os.Stdout)
//	logger.WithField("group_id", id).Info("join request approved")
//	logger.WithError(err).Error("edge mutation failed")
//
// # Prometheus Metrics
//
// All metrics live on one Metrics struct bound to a registry, so tests
// can use an isolated registry:
//
//	metrics := observability.NewMetrics(prometheus.NewRegistry())
//	metrics.ObserveAuthzDecision(true, "")
//	metrics.ObserveEdgeMutation("follow", "create")
//
// # Health Checks
//
// HealthChecker serves /healthz (liveness) and /readyz (readiness,
// probing the database and redis when configured).
//
// # OpenTelemetry
//
// InitOTel wires OTLP trace and metric exporters over gRPC; disabled
// providers are no-ops so call sites never branch on it.
//
// # Related Packages
//
//   - pkg/config: Observability configuration
//   - pkg/middleware: Request logging middleware
package observability
