package api

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/moviecrew/moviecrew/pkg/httputil"
	"github.com/moviecrew/moviecrew/pkg/social"
	"github.com/moviecrew/moviecrew/pkg/store"
)

type createGroupRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// createGroup handles POST /api/v1/groups. The caller becomes the
// group's creator; the slug is derived from the name at creation and
// never changes.
func (s *Server) createGroup(w http.ResponseWriter, r *http.Request) {
	p := s.principal(w, r)
	if p == nil {
		return
	}

	var req createGroupRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	if req.Name == "" {
		httputil.WriteBadRequest(w, "name is required")
		return
	}

	group := &store.Group{
		CreatorID:   p.ID,
		Name:        req.Name,
		Description: req.Description,
	}
	if err := s.store.CreateGroup(r.Context(), group); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			httputil.WriteConflict(w, "group name already taken")
			return
		}
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteCreated(w, group)
}

// listGroups handles GET /api/v1/groups
func (s *Server) listGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := s.store.ListGroups(r.Context())
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteSuccess(w, groups)
}

// listOwnGroups handles GET /api/v1/groups/own, returning groups the
// caller created.
func (s *Server) listOwnGroups(w http.ResponseWriter, r *http.Request) {
	p := s.principal(w, r)
	if p == nil {
		return
	}
	groups, err := s.store.ListGroups(r.Context())
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	own := make([]*store.Group, 0)
	for _, g := range groups {
		if g.CreatorID == p.ID {
			own = append(own, g)
		}
	}
	httputil.WriteSuccess(w, own)
}

// getGroupBySlug handles GET /api/v1/groups/slug/{slug}
func (s *Server) getGroupBySlug(w http.ResponseWriter, r *http.Request) {
	group, err := s.store.GetGroupBySlug(r.Context(), mux.Vars(r)["slug"])
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			httputil.WriteNotFound(w, "group not found")
			return
		}
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteSuccess(w, group)
}

// getGroup handles GET /api/v1/groups/{id}
func (s *Server) getGroup(w http.ResponseWriter, r *http.Request) {
	group, err := s.store.GetGroup(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			httputil.WriteNotFound(w, "group not found")
			return
		}
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteSuccess(w, group)
}

// updateGroup handles PATCH /api/v1/groups/{id}
func (s *Server) updateGroup(w http.ResponseWriter, r *http.Request) {
	var upd store.GroupUpdate
	if err := httputil.DecodeJSON(r, &upd); err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	group, err := s.store.UpdateGroup(r.Context(), mux.Vars(r)["id"], upd)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			httputil.WriteNotFound(w, "group not found")
			return
		}
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteSuccess(w, group)
}

// deleteGroup handles DELETE /api/v1/groups/{id}
func (s *Server) deleteGroup(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteGroup(r.Context(), mux.Vars(r)["id"]); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			httputil.WriteNotFound(w, "group not found")
			return
		}
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteNoContent(w)
}

// targetGroup resolves the {id} path variable to an existing group,
// writing 404 when absent.
func (s *Server) targetGroup(w http.ResponseWriter, r *http.Request) *store.Group {
	group, err := s.store.GetGroup(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			httputil.WriteNotFound(w, "group not found")
			return nil
		}
		httputil.WriteInternalError(w, err)
		return nil
	}
	return group
}

// requestJoin handles POST /api/v1/groups/{id}/join. Retrying a
// pending request is a no-op.
func (s *Server) requestJoin(w http.ResponseWriter, r *http.Request) {
	p := s.principal(w, r)
	if p == nil {
		return
	}
	group := s.targetGroup(w, r)
	if group == nil {
		return
	}
	if group.CreatorID == p.ID {
		httputil.WriteBadRequest(w, "cannot request to join your own group")
		return
	}

	edge, err := s.social.RequestJoin(r.Context(), p.ID, group.ID)
	if err != nil {
		s.writeSocialError(w, err)
		return
	}
	httputil.WriteCreated(w, edge)
}

// cancelJoinRequest handles DELETE /api/v1/groups/{id}/join
func (s *Server) cancelJoinRequest(w http.ResponseWriter, r *http.Request) {
	p := s.principal(w, r)
	if p == nil {
		return
	}

	if _, err := s.social.CancelJoinRequest(r.Context(), p.ID, mux.Vars(r)["id"]); err != nil {
		s.writeSocialError(w, err)
		return
	}
	httputil.WriteNoContent(w)
}

// leaveGroup handles DELETE /api/v1/groups/{id}/leave
func (s *Server) leaveGroup(w http.ResponseWriter, r *http.Request) {
	p := s.principal(w, r)
	if p == nil {
		return
	}

	if _, err := s.social.LeaveGroup(r.Context(), p.ID, mux.Vars(r)["id"]); err != nil {
		s.writeSocialError(w, err)
		return
	}
	httputil.WriteNoContent(w)
}

// listGroupMembers handles GET /api/v1/groups/{id}/members
func (s *Server) listGroupMembers(w http.ResponseWriter, r *http.Request) {
	edges, err := s.social.GroupMembers(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteSuccess(w, edges)
}

// listJoinRequests handles GET /api/v1/groups/{id}/requests
func (s *Server) listJoinRequests(w http.ResponseWriter, r *http.Request) {
	edges, err := s.social.PendingRequests(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteSuccess(w, edges)
}

// approveJoinRequest handles POST /api/v1/groups/{id}/requests/{userID}/approve
func (s *Server) approveJoinRequest(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	edge, err := s.social.ApproveJoinRequest(r.Context(), vars["userID"], vars["id"])
	if err != nil {
		s.writeSocialError(w, err)
		return
	}
	httputil.WriteSuccess(w, edge)
}

// rejectJoinRequest handles POST /api/v1/groups/{id}/requests/{userID}/reject
func (s *Server) rejectJoinRequest(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	edge, err := s.social.RejectJoinRequest(r.Context(), vars["userID"], vars["id"])
	if err != nil {
		s.writeSocialError(w, err)
		return
	}
	httputil.WriteSuccess(w, edge)
}

// writeSocialError maps social store errors onto HTTP responses.
func (s *Server) writeSocialError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, social.ErrNotFound):
		httputil.WriteNotFound(w, "no pending request")
	case errors.Is(err, social.ErrConflictingState):
		httputil.WriteConflict(w, "request already resolved")
	case errors.Is(err, social.ErrSelfEdge):
		httputil.WriteBadRequest(w, err.Error())
	default:
		httputil.WriteInternalError(w, err)
	}
}
