// Package middleware provides HTTP middleware for authentication, request
// logging, and rate limiting.
//
// # Overview
//
// This package implements request processing middleware including bearer
// token authentication, request id assignment with structured logging,
// and rate limiting (in-memory and Redis-backed).
//
// # Middleware Components
//
// AuthMiddleware: Token-based authentication
//
//	authMW := middleware.NewAuthMiddleware(tokenManager, false)
//	router.Use(authMW.Handler)
//	// Extracts Bearer token, validates, adds the principal to the request
//
// RequestLogger: request ids, logging, HTTP metrics
//
//	logMW := middleware.NewRequestLogger(logger, metrics)
//	router.Use(logMW.Handler)
//
// RateLimitMiddleware: In-memory rate limiting
//
//	router.Use(middleware.NewRateLimitMiddleware().Handler)
//
// DistributedRateLimitMiddleware: Redis-backed rate limiting
//
//	router.Use(middleware.NewDistributedRateLimitMiddleware(redisClient).Handler)
//
// # Rate Limiting
//
// Default (Anonymous): 100 req/min, 10 burst
// Per-User: 1000 req/min, 50 burst
// Staff (moderator/admin): 5000 req/min, 100 burst
//
// # Related Packages
//
//   - pkg/auth: Token validation
//   - pkg/access: Per-route authorization (applied after authentication)
//   - pkg/observability: Logging and metrics
package middleware
