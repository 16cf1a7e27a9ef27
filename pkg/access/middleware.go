package access

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/moviecrew/moviecrew/pkg/contextkeys"
	"github.com/moviecrew/moviecrew/pkg/httputil"
	"github.com/moviecrew/moviecrew/pkg/observability"
)

// Middleware gates route handlers on access decisions.
type Middleware struct {
	engine *Engine
	logger *observability.Logger
}

// NewMiddleware creates access-control middleware around the engine.
func NewMiddleware(engine *Engine, logger *observability.Logger) *Middleware {
	return &Middleware{engine: engine, logger: logger}
}

// Require gates a route on the decision for (action, resource). idVar
// names the mux path variable carrying the resource id; pass "" for
// create routes where the instance does not exist yet.
//
// Denials map to transport statuses as follows: a missing resource is
// 404, a malformed id is 400, everything else is 403. NotOwner and
// NotFound stay distinguishable: resource existence is public in this
// domain, so the distinction leaks nothing.
func (m *Middleware) Require(base BaseAction, resource Resource, idVar string) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal := contextkeys.PrincipalFrom(r.Context())
			if principal == nil {
				httputil.WriteUnauthorized(w, "authentication required")
				return
			}

			var resourceID string
			if idVar != "" {
				resourceID = mux.Vars(r)[idVar]
			}

			decision, err := m.engine.Authorize(r.Context(), principal, base, resource, resourceID)
			if err != nil {
				m.logger.WithError(err).Error("access decision failed")
				httputil.WriteInternalError(w, err)
				return
			}

			if !decision.Granted {
				m.writeDenial(w, decision.Reason)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func (m *Middleware) writeDenial(w http.ResponseWriter, reason DenialReason) {
	switch reason {
	case DenialNotFound:
		httputil.WriteNotFound(w, "resource not found")
	case DenialInvalidReference:
		httputil.WriteBadRequest(w, "invalid resource id")
	case DenialNotOwner:
		httputil.WriteForbidden(w, "not the resource owner")
	default:
		httputil.WriteForbidden(w, "insufficient permissions")
	}
}
