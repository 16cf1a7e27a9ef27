package access

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"

	"github.com/moviecrew/moviecrew/pkg/auth"
	"github.com/moviecrew/moviecrew/pkg/contextkeys"
	"github.com/moviecrew/moviecrew/pkg/observability"
)

func newTestRouter(resolver Resolver) *mux.Router {
	logger := observability.NewLogger(observability.ErrorLevel, io.Discard)
	engine := NewEngine(DefaultPolicy(), resolver)
	mw := NewMiddleware(engine, logger)

	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	r := mux.NewRouter()
	r.Handle("/movies/{id}", mw.Require(ActionUpdate, ResourceMovie, "id")(ok)).Methods("PATCH")
	r.Handle("/movies", mw.Require(ActionCreate, ResourceMovie, "")(ok)).Methods("POST")
	return r
}

func doAs(router *mux.Router, method, path string, p *auth.Principal) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if p != nil {
		req = req.WithContext(contextkeys.WithPrincipal(req.Context(), p))
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestRequire_StatusMapping(t *testing.T) {
	user := &auth.Principal{ID: "u-1", Role: auth.RoleUser}

	tests := []struct {
		name     string
		resolver *fakeResolver
		p        *auth.Principal
		want     int
	}{
		{"anonymous", &fakeResolver{}, nil, http.StatusUnauthorized},
		{"owner granted", &fakeResolver{owners: []string{"u-1"}}, user, http.StatusOK},
		{"not owner", &fakeResolver{owners: []string{"u-2"}}, user, http.StatusForbidden},
		{"missing instance", &fakeResolver{err: ErrNotFound}, user, http.StatusNotFound},
		{"malformed id", &fakeResolver{err: ErrInvalidReference}, user, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(tt.resolver)
			rec := doAs(router, http.MethodPatch, "/movies/m-1", tt.p)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestRequire_InsufficientRole(t *testing.T) {
	router := newTestRouter(&fakeResolver{})

	mod := &auth.Principal{ID: "m-1", Role: auth.RoleModerator}
	rec := doAs(router, http.MethodPost, "/movies", mod)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequire_CreateRoute(t *testing.T) {
	router := newTestRouter(&fakeResolver{})

	user := &auth.Principal{ID: "u-1", Role: auth.RoleUser}
	rec := doAs(router, http.MethodPost, "/movies", user)
	assert.Equal(t, http.StatusOK, rec.Code)
}
