package api

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/moviecrew/moviecrew/pkg/access"
	"github.com/moviecrew/moviecrew/pkg/httputil"
	"github.com/moviecrew/moviecrew/pkg/store"
)

type createMovieRequest struct {
	Title    string `json:"title"`
	Overview string `json:"overview"`
}

// createMovie handles POST /api/v1/movies. The authenticated caller
// becomes the movie's creator.
func (s *Server) createMovie(w http.ResponseWriter, r *http.Request) {
	p := s.principal(w, r)
	if p == nil {
		return
	}

	var req createMovieRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	if req.Title == "" {
		httputil.WriteBadRequest(w, "title is required")
		return
	}

	movie := &store.Movie{
		Title:     req.Title,
		Overview:  req.Overview,
		CreatorID: p.ID,
	}
	if err := s.store.CreateMovie(r.Context(), movie); err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteCreated(w, movie)
}

// listMovies handles GET /api/v1/movies
func (s *Server) listMovies(w http.ResponseWriter, r *http.Request) {
	movies, err := s.store.ListMovies(r.Context())
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteSuccess(w, movies)
}

// getMovie handles GET /api/v1/movies/{id}
func (s *Server) getMovie(w http.ResponseWriter, r *http.Request) {
	movie, err := s.store.GetMovie(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			httputil.WriteNotFound(w, "movie not found")
			return
		}
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteSuccess(w, movie)
}

// updateMovie handles PATCH /api/v1/movies/{id}
func (s *Server) updateMovie(w http.ResponseWriter, r *http.Request) {
	var upd store.MovieUpdate
	if err := httputil.DecodeJSON(r, &upd); err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	movie, err := s.store.UpdateMovie(r.Context(), mux.Vars(r)["id"], upd)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			httputil.WriteNotFound(w, "movie not found")
			return
		}
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteSuccess(w, movie)
}

// deleteMovie handles DELETE /api/v1/movies/{id}
func (s *Server) deleteMovie(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteMovie(r.Context(), mux.Vars(r)["id"]); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			httputil.WriteNotFound(w, "movie not found")
			return
		}
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteNoContent(w)
}

// likeMovie handles POST /api/v1/movies/{id}/like. Liking twice is a
// no-op: the edge and the likes counter stay where they are.
func (s *Server) likeMovie(w http.ResponseWriter, r *http.Request) {
	p := s.principal(w, r)
	if p == nil {
		return
	}
	if !s.authorize(w, r, p, access.ActionCreate, access.ResourceLike, "") {
		return
	}

	movieID := mux.Vars(r)["id"]
	if _, err := s.store.GetMovie(r.Context(), movieID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			httputil.WriteNotFound(w, "movie not found")
			return
		}
		httputil.WriteInternalError(w, err)
		return
	}

	edge, err := s.social.LikeMovie(r.Context(), p.ID, movieID)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteCreated(w, edge)
}

// unlikeMovie handles DELETE /api/v1/movies/{id}/like
func (s *Server) unlikeMovie(w http.ResponseWriter, r *http.Request) {
	p := s.principal(w, r)
	if p == nil {
		return
	}
	movieID := mux.Vars(r)["id"]
	if !s.authorize(w, r, p, access.ActionDelete, access.ResourceLike, p.ID+":"+movieID) {
		return
	}

	if _, err := s.social.UnlikeMovie(r.Context(), p.ID, movieID); err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteNoContent(w)
}
