package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

const (
	// TokenPrefix identifies moviecrew tokens
	TokenPrefix = "mc_"
	// TokenLength is the number of random bytes (32 bytes = 256 bits)
	TokenLength = 32
)

// ErrInvalidToken is returned when a presented token cannot be resolved
// to an active principal.
var ErrInvalidToken = errors.New("invalid or expired token")

// TokenStore persists token records, keyed by token hash.
type TokenStore interface {
	SaveToken(t *APIToken) error
	LookupToken(tokenHash string) (*APIToken, error)
	RevokeToken(tokenHash string, at time.Time) error
}

// TokenManager issues and validates opaque API tokens. Tokens are stored
// only as SHA256 hashes; the plaintext is returned exactly once at issue
// time.
type TokenManager struct {
	store TokenStore
}

// NewTokenManager creates a new token manager backed by the given store.
func NewTokenManager(store TokenStore) *TokenManager {
	return &TokenManager{store: store}
}

// IssueToken creates a new API token for the given user.
// Format: mc_<base64url(32 random bytes)>
func (tm *TokenManager) IssueToken(userID string, role Role, name string, expiresAt *time.Time) (*APIToken, string, error) {
	randomBytes := make([]byte, TokenLength)
	if _, err := rand.Read(randomBytes); err != nil {
		return nil, "", fmt.Errorf("failed to generate random bytes: %w", err)
	}

	encoded := base64.RawURLEncoding.EncodeToString(randomBytes)
	token := TokenPrefix + encoded

	record := &APIToken{
		UserID:      userID,
		Role:        role,
		TokenHash:   HashToken(token),
		TokenPrefix: TokenPrefix + encoded[:8],
		Name:        name,
		ExpiresAt:   expiresAt,
		CreatedAt:   time.Now(),
	}

	if err := tm.store.SaveToken(record); err != nil {
		return nil, "", fmt.Errorf("failed to save token: %w", err)
	}

	return record, token, nil
}

// Authenticate resolves a presented token to a principal.
// All failure modes collapse to ErrInvalidToken so callers cannot
// distinguish unknown, revoked and expired tokens.
func (tm *TokenManager) Authenticate(token string) (*Principal, error) {
	if err := validateTokenFormat(token); err != nil {
		return nil, ErrInvalidToken
	}

	record, err := tm.store.LookupToken(HashToken(token))
	if err != nil {
		return nil, ErrInvalidToken
	}
	if record.Revoked() || record.Expired(time.Now()) {
		return nil, ErrInvalidToken
	}

	return &Principal{ID: record.UserID, Role: record.Role}, nil
}

// Revoke revokes the token with the given plaintext value.
func (tm *TokenManager) Revoke(token string) error {
	return tm.store.RevokeToken(HashToken(token), time.Now())
}

// HashToken computes the SHA256 hash of a token for storage and lookup.
func HashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}

func validateTokenFormat(token string) error {
	if !strings.HasPrefix(token, TokenPrefix) {
		return fmt.Errorf("token must start with %q", TokenPrefix)
	}
	encoded := strings.TrimPrefix(token, TokenPrefix)
	if len(encoded) == 0 {
		return fmt.Errorf("token is too short")
	}
	if _, err := base64.RawURLEncoding.DecodeString(encoded); err != nil {
		return fmt.Errorf("invalid token encoding: %w", err)
	}
	return nil
}

// MemoryTokenStore is an in-memory TokenStore for tests and local
// development.
type MemoryTokenStore struct {
	mu     sync.Mutex
	nextID int64
	tokens map[string]*APIToken
}

// NewMemoryTokenStore creates an empty in-memory token store.
func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{tokens: make(map[string]*APIToken)}
}

// SaveToken stores a token record.
func (s *MemoryTokenStore) SaveToken(t *APIToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	t.ID = s.nextID
	copied := *t
	s.tokens[t.TokenHash] = &copied
	return nil
}

// LookupToken retrieves a token record by hash.
func (s *MemoryTokenStore) LookupToken(tokenHash string) (*APIToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tokens[tokenHash]
	if !ok {
		return nil, fmt.Errorf("token not found")
	}
	copied := *t
	return &copied, nil
}

// RevokeToken marks a token as revoked.
func (s *MemoryTokenStore) RevokeToken(tokenHash string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tokens[tokenHash]
	if !ok {
		return fmt.Errorf("token not found")
	}
	t.RevokedAt = &at
	return nil
}
