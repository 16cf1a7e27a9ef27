package middleware

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/moviecrew/moviecrew/pkg/contextkeys"
	"github.com/moviecrew/moviecrew/pkg/observability"
)

// statusRecorder captures the response status for logging and metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// RequestLogger assigns each request an id, logs its outcome and
// records HTTP metrics. Metrics use the mux route template rather than
// the raw URL so per-id paths do not explode label cardinality.
type RequestLogger struct {
	logger  *observability.Logger
	metrics *observability.Metrics
}

// NewRequestLogger creates the logging middleware.
func NewRequestLogger(logger *observability.Logger, metrics *observability.Metrics) *RequestLogger {
	return &RequestLogger{logger: logger, metrics: metrics}
}

// Handler wraps an HTTP handler with request logging.
func (l *RequestLogger) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", requestID)

		ctx := contextkeys.WithRequestID(r.Context(), requestID)
		reqLogger := l.logger.WithField("request_id", requestID)
		ctx = observability.WithLogger(ctx, reqLogger)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r.WithContext(ctx))
		duration := time.Since(start)

		path := r.URL.Path
		if route := mux.CurrentRoute(r); route != nil {
			if tmpl, err := route.GetPathTemplate(); err == nil {
				path = tmpl
			}
		}

		if l.metrics != nil {
			l.metrics.ObserveHTTPRequest(r.Method, path, rec.status, duration)
		}

		reqLogger.WithFields(map[string]interface{}{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      rec.status,
			"duration_ms": duration.Milliseconds(),
		}).Info("request completed")
	})
}
