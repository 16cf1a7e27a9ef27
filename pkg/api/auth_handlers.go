package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/moviecrew/moviecrew/pkg/auth"
	"github.com/moviecrew/moviecrew/pkg/httputil"
	"github.com/moviecrew/moviecrew/pkg/store"
)

type issueTokenRequest struct {
	UserID    string     `json:"user_id"`
	Role      auth.Role  `json:"role"`
	Name      string     `json:"name"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

type issueTokenResponse struct {
	Token *auth.APIToken `json:"token"`
	// Plaintext is returned exactly once; only its hash is stored.
	Plaintext string `json:"plaintext"`
}

// issueToken handles POST /api/v1/tokens. Only admins mint tokens; the
// plaintext is returned once and never stored.
func (s *Server) issueToken(w http.ResponseWriter, r *http.Request) {
	p := s.principal(w, r)
	if p == nil {
		return
	}
	if p.Role != auth.RoleAdmin {
		httputil.WriteForbidden(w, "insufficient permissions")
		return
	}

	var req issueTokenRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	if req.UserID == "" {
		httputil.WriteBadRequest(w, "user_id is required")
		return
	}
	if req.Role == "" {
		req.Role = auth.RoleUser
	}
	if !req.Role.Valid() {
		httputil.WriteBadRequest(w, "invalid role")
		return
	}
	if _, err := s.store.GetUser(r.Context(), req.UserID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			httputil.WriteNotFound(w, "user not found")
			return
		}
		httputil.WriteInternalError(w, err)
		return
	}

	token, plaintext, err := s.tokens.IssueToken(req.UserID, req.Role, req.Name, req.ExpiresAt)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteCreated(w, issueTokenResponse{Token: token, Plaintext: plaintext})
}

type revokeTokenRequest struct {
	Token string `json:"token"`
}

// revokeToken handles DELETE /api/v1/tokens. Callers revoke their own
// token by presenting it; admins can revoke any token.
func (s *Server) revokeToken(w http.ResponseWriter, r *http.Request) {
	p := s.principal(w, r)
	if p == nil {
		return
	}

	var req revokeTokenRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	if req.Token == "" {
		httputil.WriteBadRequest(w, "token is required")
		return
	}

	if p.Role != auth.RoleAdmin {
		owner, err := s.tokens.Authenticate(req.Token)
		if err != nil || owner.ID != p.ID {
			httputil.WriteForbidden(w, "insufficient permissions")
			return
		}
	}

	if err := s.tokens.Revoke(req.Token); err != nil {
		if errors.Is(err, auth.ErrInvalidToken) {
			httputil.WriteNotFound(w, "token not found")
			return
		}
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteNoContent(w)
}
