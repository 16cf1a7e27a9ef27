// Package api implements the HTTP API server.
//
// # Overview
//
// The server exposes a versioned REST surface under /api/v1 for users,
// movies and groups, plus the social edges between them (follows,
// friendships, likes, group membership and join requests).
//
// Authorization is handled two ways. Entity CRUD routes are wrapped in
// access.Middleware.Require, which runs the decision engine against
// the id path variable before the handler executes. Edge routes
// authorize inside the handler because their resource ids are composed
// at request time from the caller and the target.
//
// Handlers stay thin: persistence lives in pkg/store and all edge and
// counter semantics live in pkg/social.
//
// # Related Packages
//
//   - pkg/access: the decision engine and per-route middleware
//   - pkg/social: edge mutations and counter consistency
//   - pkg/store: entity persistence
//   - pkg/middleware: authentication, logging, rate limiting
package api
