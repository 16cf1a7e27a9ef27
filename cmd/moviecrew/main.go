package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-redis/redis/v8"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/errgroup"

	"github.com/moviecrew/moviecrew/pkg/access"
	"github.com/moviecrew/moviecrew/pkg/api"
	"github.com/moviecrew/moviecrew/pkg/auth"
	"github.com/moviecrew/moviecrew/pkg/config"
	"github.com/moviecrew/moviecrew/pkg/middleware"
	"github.com/moviecrew/moviecrew/pkg/observability"
	"github.com/moviecrew/moviecrew/pkg/social"
	"github.com/moviecrew/moviecrew/pkg/store"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "moviecrew: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)
	metrics := observability.NewMetrics(prometheus.NewRegistry())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	otelProviders, err := observability.InitOTel(ctx, observability.OTelConfig{
		Enabled:        cfg.Observability.OTelEnabled,
		Endpoint:       cfg.Observability.OTelEndpoint,
		ServiceName:    cfg.Observability.OTelServiceName,
		ServiceVersion: cfg.Observability.OTelServiceVersion,
		Insecure:       cfg.Observability.OTelInsecure,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}
	defer func() {
		if err := observability.ShutdownOTel(context.Background(), otelProviders, logger); err != nil {
			logger.WithError(err).Error("OpenTelemetry shutdown failed")
		}
	}()

	var redisClient *redis.Client
	if cfg.Storage.RedisURL != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Storage.RedisURL,
			Password: cfg.Storage.RedisPassword,
			DB:       cfg.Storage.RedisDB,
		})
		defer redisClient.Close()
	}

	entityStore, edgeStore, db, err := buildStores(ctx, cfg, logger, metrics, redisClient)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}

	policy := access.DefaultPolicy()
	if cfg.Access.PolicyFile != "" {
		policy, err = access.LoadPolicyFile(cfg.Access.PolicyFile)
		if err != nil {
			return err
		}
		logger.WithFields(map[string]interface{}{"path": cfg.Access.PolicyFile}).Info("policy loaded from file")
	}

	resolver := access.NewStoreResolver(entityStore, store.NewEdgeResolver(edgeStore)).
		WithTimeout(cfg.Access.ResolveTimeout)
	engineOpts := []access.EngineOption{access.WithMetrics(metrics)}
	if cfg.Access.DecisionCacheSize > 0 {
		engineOpts = append(engineOpts, access.WithDecisionCache(cfg.Access.DecisionCacheSize, cfg.Access.DecisionCacheTTL))
	}
	engine := access.NewEngine(policy, resolver, engineOpts...)

	socialService := social.NewService(edgeStore, logger, metrics)
	tokens := auth.NewTokenManager(auth.NewMemoryTokenStore())

	server := api.NewServer(entityStore, socialService, engine, tokens, logger, metrics)

	router := server.Router()
	router.Use(middleware.NewRequestLogger(logger, metrics).Handler)
	router.Use(middleware.NewAuthMiddleware(tokens, true).Handler)
	if redisClient != nil {
		router.Use(middleware.NewDistributedRateLimitMiddleware(redisClient).Handler)
	} else {
		router.Use(middleware.NewRateLimitMiddleware().Handler)
	}

	var handler http.Handler = server
	if cfg.Observability.OTelEnabled {
		handler = otelhttp.NewHandler(server, "moviecrew")
	}

	if source, ok := entityStore.(social.CounterSource); ok && cfg.Observability.AuditSchedule != "" {
		auditor := social.NewAuditor(edgeStore, source, logger, metrics)
		if err := auditor.Start(cfg.Observability.AuditSchedule); err != nil {
			return err
		}
		defer auditor.Stop()
		logger.WithFields(map[string]interface{}{"schedule": cfg.Observability.AuditSchedule}).Info("counter audit scheduled")
	}

	apiServer := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	health := observability.NewHealthChecker(db, redisClient)
	healthMux := http.NewServeMux()
	healthMux.HandleFunc("/healthz", health.Liveness)
	healthMux.HandleFunc("/readyz", health.Readiness)
	if cfg.Observability.MetricsEnabled {
		healthMux.Handle("/metrics", metrics.Handler())
	}
	healthServer := &http.Server{
		Addr:    net.JoinHostPort(cfg.Server.Host, cfg.Server.HealthPort),
		Handler: healthMux,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.WithFields(map[string]interface{}{"addr": apiServer.Addr}).Info("API server listening")
		if err := apiServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		logger.WithFields(map[string]interface{}{"addr": healthServer.Addr}).Info("health server listening")
		if err := healthServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		logger.Info("shutting down")
		err := apiServer.Shutdown(shutdownCtx)
		if herr := healthServer.Shutdown(shutdownCtx); err == nil {
			err = herr
		}
		return err
	})

	return g.Wait()
}

// buildStores creates the entity and edge stores for the configured
// backend. The returned db is nil for the memory backend. The cache
// wrap happens here rather than in run so the edge store can be wired
// to invalidate cached entities when it adjusts their counters.
func buildStores(ctx context.Context, cfg *config.Config, logger *observability.Logger, metrics *observability.Metrics, redisClient *redis.Client) (store.Store, social.Store, *sql.DB, error) {
	cacheEnabled := cfg.Storage.CacheEnabled && redisClient != nil

	switch cfg.Storage.Type {
	case "memory":
		var entityStore store.Store = store.NewMemoryStore()
		if cacheEnabled {
			entityStore = store.NewCachedStore(entityStore, redisClient, cfg.Storage.CacheTTL, logger, metrics)
			logger.Info("entity cache enabled")
		}
		// The (possibly cached) entity store is the counter applier, so
		// edge mutations invalidate the records they adjust.
		return entityStore, social.NewMemoryStore(entityStore), nil, nil

	case "postgres", "sqlite":
		driver, dsn := "postgres", cfg.Storage.PostgresURL
		if cfg.Storage.Type == "sqlite" {
			driver, dsn = "sqlite3", cfg.Storage.SQLitePath
		}
		db, err := sql.Open(driver, dsn)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to open %s database: %w", cfg.Storage.Type, err)
		}
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, nil, nil, fmt.Errorf("failed to reach %s database: %w", cfg.Storage.Type, err)
		}
		for _, schema := range []string{store.Schema(), social.Schema()} {
			if _, err := db.ExecContext(ctx, schema); err != nil {
				db.Close()
				return nil, nil, nil, fmt.Errorf("failed to apply schema: %w", err)
			}
		}
		logger.WithFields(map[string]interface{}{"backend": cfg.Storage.Type}).Info("database ready")

		var entityStore store.Store = store.NewSQLStore(db)
		edges := social.NewSQLStore(db)
		if cacheEnabled {
			cached := store.NewCachedStore(entityStore, redisClient, cfg.Storage.CacheTTL, logger, metrics)
			edges.WithInvalidator(cached)
			entityStore = cached
			logger.Info("entity cache enabled")
		}
		return entityStore, edges, db, nil
	}
	return nil, nil, nil, fmt.Errorf("unknown storage type %q", cfg.Storage.Type)
}
