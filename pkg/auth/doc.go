// Package auth provides API token management and account roles.
//
// # Overview
//
// Authentication is opaque bearer tokens. A token is generated once,
// shown to the caller once, and stored only as a SHA256 hash; the
// first characters are retained as a display prefix so callers can
// tell their tokens apart.
//
// # Tokens
//
// Issue a token:
//
//	manager := auth.NewTokenManager(auth.NewMemoryTokenStore())
//	token, plaintext, err := manager.IssueToken(userID, auth.RoleUser, "laptop", nil)
//	// plaintext: mc_[base64url(32 random bytes)], returned exactly once
//
// Authenticate a request:
//
//	principal, err := manager.Authenticate(bearer)
//	if errors.Is(err, auth.ErrInvalidToken) { ... }
//
// # Roles
//
//	RoleUser      - Regular account
//	RoleModerator - Can act on any social-graph resource
//	RoleAdmin     - Full access
//
// Roles carry no permissions themselves; the policy table in
// pkg/access maps them onto grants.
//
// # Related Packages
//
//   - pkg/access: Role-based authorization decisions
//   - pkg/middleware: Bearer token extraction
package auth
