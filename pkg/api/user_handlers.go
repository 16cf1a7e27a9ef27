package api

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/moviecrew/moviecrew/pkg/access"
	"github.com/moviecrew/moviecrew/pkg/auth"
	"github.com/moviecrew/moviecrew/pkg/httputil"
	"github.com/moviecrew/moviecrew/pkg/store"
)

type createUserRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

// createUser handles POST /api/v1/users. Registration is open and
// always produces a regular user; role escalation is an admin concern.
func (s *Server) createUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	if req.Username == "" {
		httputil.WriteBadRequest(w, "username is required")
		return
	}

	user := &store.User{
		Username: req.Username,
		Email:    req.Email,
		Role:     auth.RoleUser,
	}
	if err := s.store.CreateUser(r.Context(), user); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			httputil.WriteConflict(w, "user already exists")
			return
		}
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteCreated(w, user)
}

// listUsers handles GET /api/v1/users
func (s *Server) listUsers(w http.ResponseWriter, r *http.Request) {
	if p := s.principal(w, r); p == nil {
		return
	}
	users, err := s.store.ListUsers(r.Context())
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteSuccess(w, users)
}

// getCurrentUser handles GET /api/v1/users/me
func (s *Server) getCurrentUser(w http.ResponseWriter, r *http.Request) {
	p := s.principal(w, r)
	if p == nil {
		return
	}
	user, err := s.store.GetUser(r.Context(), p.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			httputil.WriteNotFound(w, "user not found")
			return
		}
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteSuccess(w, user)
}

// getUser handles GET /api/v1/users/{id}
func (s *Server) getUser(w http.ResponseWriter, r *http.Request) {
	user, err := s.store.GetUser(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			httputil.WriteNotFound(w, "user not found")
			return
		}
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteSuccess(w, user)
}

// updateUser handles PATCH /api/v1/users/{id}
func (s *Server) updateUser(w http.ResponseWriter, r *http.Request) {
	var upd store.UserUpdate
	if err := httputil.DecodeJSON(r, &upd); err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	user, err := s.store.UpdateUser(r.Context(), mux.Vars(r)["id"], upd)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			httputil.WriteNotFound(w, "user not found")
			return
		}
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteSuccess(w, user)
}

// deleteUser handles DELETE /api/v1/users/{id}
func (s *Server) deleteUser(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteUser(r.Context(), mux.Vars(r)["id"]); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			httputil.WriteNotFound(w, "user not found")
			return
		}
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteNoContent(w)
}

// targetUser resolves the {id} path variable to an existing user,
// writing 404 when absent.
func (s *Server) targetUser(w http.ResponseWriter, r *http.Request) *store.User {
	user, err := s.store.GetUser(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			httputil.WriteNotFound(w, "user not found")
			return nil
		}
		httputil.WriteInternalError(w, err)
		return nil
	}
	return user
}

// followUser handles POST /api/v1/users/{id}/follow
func (s *Server) followUser(w http.ResponseWriter, r *http.Request) {
	p := s.principal(w, r)
	if p == nil {
		return
	}
	if !s.authorize(w, r, p, access.ActionCreate, access.ResourceFollowUser, "") {
		return
	}
	target := s.targetUser(w, r)
	if target == nil {
		return
	}
	if target.ID == p.ID {
		httputil.WriteBadRequest(w, "cannot follow yourself")
		return
	}

	edge, err := s.social.FollowUser(r.Context(), p.ID, target.ID)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteCreated(w, edge)
}

// unfollowUser handles DELETE /api/v1/users/{id}/follow. Edge deletes
// are authorized against the composite "fromID:toID" id, so deleting an
// edge that does not exist surfaces as a 404 from the engine.
func (s *Server) unfollowUser(w http.ResponseWriter, r *http.Request) {
	p := s.principal(w, r)
	if p == nil {
		return
	}
	target := s.targetUser(w, r)
	if target == nil {
		return
	}
	if !s.authorize(w, r, p, access.ActionDelete, access.ResourceFollowUser, p.ID+":"+target.ID) {
		return
	}

	if _, err := s.social.UnfollowUser(r.Context(), p.ID, target.ID); err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteNoContent(w)
}

// befriendUser handles POST /api/v1/users/{id}/friend
func (s *Server) befriendUser(w http.ResponseWriter, r *http.Request) {
	p := s.principal(w, r)
	if p == nil {
		return
	}
	if !s.authorize(w, r, p, access.ActionCreate, access.ResourceFriend, "") {
		return
	}
	target := s.targetUser(w, r)
	if target == nil {
		return
	}
	if target.ID == p.ID {
		httputil.WriteBadRequest(w, "cannot befriend yourself")
		return
	}

	edge, err := s.social.Befriend(r.Context(), p.ID, target.ID)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteCreated(w, edge)
}

// unfriendUser handles DELETE /api/v1/users/{id}/friend
func (s *Server) unfriendUser(w http.ResponseWriter, r *http.Request) {
	p := s.principal(w, r)
	if p == nil {
		return
	}
	target := s.targetUser(w, r)
	if target == nil {
		return
	}
	if !s.authorize(w, r, p, access.ActionDelete, access.ResourceFriend, p.ID+":"+target.ID) {
		return
	}

	if _, err := s.social.Unfriend(r.Context(), p.ID, target.ID); err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteNoContent(w)
}

// listFollowers handles GET /api/v1/users/{id}/followers
func (s *Server) listFollowers(w http.ResponseWriter, r *http.Request) {
	edges, err := s.social.Followers(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteSuccess(w, edges)
}

// listFollowed handles GET /api/v1/users/{id}/followed
func (s *Server) listFollowed(w http.ResponseWriter, r *http.Request) {
	edges, err := s.social.Following(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteSuccess(w, edges)
}

// listFriends handles GET /api/v1/users/{id}/friends
func (s *Server) listFriends(w http.ResponseWriter, r *http.Request) {
	edges, err := s.social.Friends(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteSuccess(w, edges)
}

// listLikedMovies handles GET /api/v1/users/{id}/movies/liked. Like
// edges are resolved to their movies; a movie deleted after the like
// is silently skipped.
func (s *Server) listLikedMovies(w http.ResponseWriter, r *http.Request) {
	edges, err := s.social.LikedMovies(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	movies := make([]*store.Movie, 0, len(edges))
	for _, e := range edges {
		m, err := s.store.GetMovie(r.Context(), e.ToID)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			httputil.WriteInternalError(w, err)
			return
		}
		movies = append(movies, m)
	}
	httputil.WriteSuccess(w, movies)
}

// listOwnMovies handles GET /api/v1/users/{id}/movies/own, returning
// movies the user submitted.
func (s *Server) listOwnMovies(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["id"]
	movies, err := s.store.ListMovies(r.Context())
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	own := make([]*store.Movie, 0)
	for _, m := range movies {
		if m.CreatorID == userID {
			own = append(own, m)
		}
	}
	httputil.WriteSuccess(w, own)
}
