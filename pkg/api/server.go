package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/moviecrew/moviecrew/pkg/access"
	"github.com/moviecrew/moviecrew/pkg/auth"
	"github.com/moviecrew/moviecrew/pkg/contextkeys"
	"github.com/moviecrew/moviecrew/pkg/httputil"
	"github.com/moviecrew/moviecrew/pkg/observability"
	"github.com/moviecrew/moviecrew/pkg/social"
	"github.com/moviecrew/moviecrew/pkg/store"
)

// Server is the HTTP API server. Handlers stay thin: authentication and
// authorization happen in middleware, entity persistence in the store,
// and edge/counter semantics in the social service.
type Server struct {
	router  *mux.Router
	store   store.Store
	social  *social.Service
	engine  *access.Engine
	access  *access.Middleware
	tokens  *auth.TokenManager
	logger  *observability.Logger
	metrics *observability.Metrics
}

// NewServer creates the API server and wires its routes.
func NewServer(
	entityStore store.Store,
	socialService *social.Service,
	engine *access.Engine,
	tokens *auth.TokenManager,
	logger *observability.Logger,
	metrics *observability.Metrics,
) *Server {
	s := &Server{
		router:  mux.NewRouter(),
		store:   entityStore,
		social:  socialService,
		engine:  engine,
		access:  access.NewMiddleware(engine, logger),
		tokens:  tokens,
		logger:  logger,
		metrics: metrics,
	}
	s.setupRoutes()
	return s
}

// Router exposes the underlying router so the entrypoint can attach
// global middleware.
func (s *Server) Router() *mux.Router {
	return s.router
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// setupRoutes configures all the API routes
func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api/v1").Subrouter()

	// Registration is open; everything else under /users requires a
	// decision from the engine.
	api.HandleFunc("/users", s.createUser).Methods("POST")
	api.HandleFunc("/users", s.listUsers).Methods("GET")
	api.HandleFunc("/users/me", s.getCurrentUser).Methods("GET")

	s.handle(api, "/users/{id}", s.getUser, "GET",
		s.access.Require(access.ActionRead, access.ResourceUser, "id"))
	s.handle(api, "/users/{id}", s.updateUser, "PATCH",
		s.access.Require(access.ActionUpdate, access.ResourceUser, "id"))
	s.handle(api, "/users/{id}", s.deleteUser, "DELETE",
		s.access.Require(access.ActionDelete, access.ResourceUser, "id"))

	// Social graph: follows, friendships
	api.HandleFunc("/users/{id}/follow", s.followUser).Methods("POST")
	api.HandleFunc("/users/{id}/follow", s.unfollowUser).Methods("DELETE")
	api.HandleFunc("/users/{id}/friend", s.befriendUser).Methods("POST")
	api.HandleFunc("/users/{id}/friend", s.unfriendUser).Methods("DELETE")
	s.handle(api, "/users/{id}/followers", s.listFollowers, "GET",
		s.access.Require(access.ActionRead, access.ResourceUser, "id"))
	s.handle(api, "/users/{id}/followed", s.listFollowed, "GET",
		s.access.Require(access.ActionRead, access.ResourceUser, "id"))
	s.handle(api, "/users/{id}/friends", s.listFriends, "GET",
		s.access.Require(access.ActionRead, access.ResourceUser, "id"))
	s.handle(api, "/users/{id}/movies/liked", s.listLikedMovies, "GET",
		s.access.Require(access.ActionRead, access.ResourceUser, "id"))
	s.handle(api, "/users/{id}/movies/own", s.listOwnMovies, "GET",
		s.access.Require(access.ActionRead, access.ResourceUser, "id"))

	// Movies
	s.handle(api, "/movies", s.createMovie, "POST",
		s.access.Require(access.ActionCreate, access.ResourceMovie, ""))
	api.HandleFunc("/movies", s.listMovies).Methods("GET")
	s.handle(api, "/movies/{id}", s.getMovie, "GET",
		s.access.Require(access.ActionRead, access.ResourceMovie, "id"))
	s.handle(api, "/movies/{id}", s.updateMovie, "PATCH",
		s.access.Require(access.ActionUpdate, access.ResourceMovie, "id"))
	s.handle(api, "/movies/{id}", s.deleteMovie, "DELETE",
		s.access.Require(access.ActionDelete, access.ResourceMovie, "id"))
	api.HandleFunc("/movies/{id}/like", s.likeMovie).Methods("POST")
	api.HandleFunc("/movies/{id}/like", s.unlikeMovie).Methods("DELETE")

	// Groups
	s.handle(api, "/groups", s.createGroup, "POST",
		s.access.Require(access.ActionCreate, access.ResourceGroup, ""))
	api.HandleFunc("/groups", s.listGroups).Methods("GET")
	api.HandleFunc("/groups/own", s.listOwnGroups).Methods("GET")
	api.HandleFunc("/groups/slug/{slug}", s.getGroupBySlug).Methods("GET")
	s.handle(api, "/groups/{id}", s.getGroup, "GET",
		s.access.Require(access.ActionRead, access.ResourceGroup, "id"))
	s.handle(api, "/groups/{id}", s.updateGroup, "PATCH",
		s.access.Require(access.ActionUpdate, access.ResourceGroup, "id"))
	s.handle(api, "/groups/{id}", s.deleteGroup, "DELETE",
		s.access.Require(access.ActionDelete, access.ResourceGroup, "id"))

	// Membership lifecycle. Join/cancel/leave act on the caller's own
	// edges; approving, rejecting and listing requests are management
	// actions gated on updating the group itself.
	api.HandleFunc("/groups/{id}/join", s.requestJoin).Methods("POST")
	api.HandleFunc("/groups/{id}/join", s.cancelJoinRequest).Methods("DELETE")
	api.HandleFunc("/groups/{id}/leave", s.leaveGroup).Methods("DELETE")
	s.handle(api, "/groups/{id}/members", s.listGroupMembers, "GET",
		s.access.Require(access.ActionRead, access.ResourceGroup, "id"))
	s.handle(api, "/groups/{id}/requests", s.listJoinRequests, "GET",
		s.access.Require(access.ActionUpdate, access.ResourceGroup, "id"))
	s.handle(api, "/groups/{id}/requests/{userID}/approve", s.approveJoinRequest, "POST",
		s.access.Require(access.ActionUpdate, access.ResourceGroup, "id"))
	s.handle(api, "/groups/{id}/requests/{userID}/reject", s.rejectJoinRequest, "POST",
		s.access.Require(access.ActionUpdate, access.ResourceGroup, "id"))

	// Token administration
	api.HandleFunc("/tokens", s.issueToken).Methods("POST")
	api.HandleFunc("/tokens", s.revokeToken).Methods("DELETE")
}

// handle registers a route with per-route middleware applied.
func (s *Server) handle(r *mux.Router, path string, h http.HandlerFunc, method string, mw mux.MiddlewareFunc) {
	r.Handle(path, mw(h)).Methods(method)
}

// principal returns the authenticated principal or writes a 401.
func (s *Server) principal(w http.ResponseWriter, r *http.Request) *auth.Principal {
	p := contextkeys.PrincipalFrom(r.Context())
	if p == nil {
		httputil.WriteUnauthorized(w, "authentication required")
	}
	return p
}

// authorize runs an engine decision inside a handler, for operations
// whose resource id is composed at request time (edge resources). It
// writes the denial response and returns false when the caller must
// stop.
func (s *Server) authorize(w http.ResponseWriter, r *http.Request, p *auth.Principal, base access.BaseAction, resource access.Resource, resourceID string) bool {
	decision, err := s.engine.Authorize(r.Context(), p, base, resource, resourceID)
	if err != nil {
		s.logger.WithError(err).Error("access decision failed")
		httputil.WriteInternalError(w, err)
		return false
	}
	if !decision.Granted {
		s.writeDenial(w, decision.Reason)
		return false
	}
	return true
}

func (s *Server) writeDenial(w http.ResponseWriter, reason access.DenialReason) {
	switch reason {
	case access.DenialNotFound:
		httputil.WriteNotFound(w, "resource not found")
	case access.DenialInvalidReference:
		httputil.WriteBadRequest(w, "invalid resource id")
	case access.DenialNotOwner:
		httputil.WriteForbidden(w, "not the resource owner")
	default:
		httputil.WriteForbidden(w, "insufficient permissions")
	}
}
