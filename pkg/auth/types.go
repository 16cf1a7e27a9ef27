package auth

import "time"

// Role represents an account-level role.
type Role string

const (
	RoleUser      Role = "user"      // Regular account
	RoleModerator Role = "moderator" // Can act on any social-graph resource
	RoleAdmin     Role = "admin"     // Full access
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleModerator, RoleAdmin:
		return true
	}
	return false
}

// Principal is the authenticated identity attached to a request.
// It is immutable for the lifetime of the request.
type Principal struct {
	ID   string `json:"id"`
	Role Role   `json:"role"`
}

// APIToken represents an opaque API token record.
type APIToken struct {
	ID          int64      `json:"id"`
	UserID      string     `json:"user_id"`
	Role        Role       `json:"role"`
	TokenHash   string     `json:"-"` // Never expose hash
	TokenPrefix string     `json:"token_prefix"`
	Name        string     `json:"name"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	LastUsedAt  *time.Time `json:"last_used_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	RevokedAt   *time.Time `json:"revoked_at,omitempty"`
}

// Expired reports whether the token is past its expiry.
func (t *APIToken) Expired(now time.Time) bool {
	return t.ExpiresAt != nil && now.After(*t.ExpiresAt)
}

// Revoked reports whether the token has been revoked.
func (t *APIToken) Revoked() bool {
	return t.RevokedAt != nil
}
