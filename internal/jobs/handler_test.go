package jobs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bissquit/job-garden/internal/domain"
	"github.com/bissquit/job-garden/internal/pkg/httputil"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tokenTable maps bearer tokens to identities.
type tokenTable map[string]struct {
	id   string
	role domain.Role
}

func (t tokenTable) ValidateToken(_ context.Context, token string) (string, domain.Role, error) {
	if v, ok := t[token]; ok {
		return v.id, v.role, nil
	}
	return "", "", errors.New("invalid token")
}

func newTestRouter(s *Service) http.Handler {
	tokens := tokenTable{
		"employer":  {employer.ID, employer.Role},
		"candidate": {candidate.ID, candidate.Role},
		"admin":     {admin.ID, admin.Role},
	}
	h := NewHandler(s)

	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(httputil.OptionalAuthMiddleware(tokens))
		h.RegisterPublicRoutes(r)
	})
	r.Group(func(r chi.Router) {
		r.Use(httputil.AuthMiddleware(tokens))
		h.RegisterProtectedRoutes(r)
	})
	return r
}

func doRequest(t *testing.T, h http.Handler, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandler_CandidateCreateReturnsRoleRequired(t *testing.T) {
	router := newTestRouter(NewService(newMockRepository()))

	rec := doRequest(t, router, http.MethodPost, "/jobs", "candidate", map[string]string{
		"title":       "Go engineer",
		"company":     "Acme",
		"description": "Build things",
	})

	require.Equal(t, http.StatusForbidden, rec.Code)

	var body struct {
		Error struct {
			Message       string   `json:"message"`
			Code          string   `json:"code"`
			RequiredRoles []string `json:"required_roles"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "role_required", body.Error.Code)
	assert.Equal(t, []string{"employer", "admin"}, body.Error.RequiredRoles)
}

func TestHandler_CreateAndFetch(t *testing.T) {
	router := newTestRouter(NewService(newMockRepository()))

	rec := doRequest(t, router, http.MethodPost, "/jobs", "employer", map[string]string{
		"title":           "Go engineer",
		"company":         "Acme",
		"description":     "Build things",
		"employment_type": "contract",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var created struct {
		Data domain.Job `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, employer.ID, created.Data.EmployerID)

	rec = doRequest(t, router, http.MethodGet, "/jobs/"+created.Data.ID, "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandler_Validation(t *testing.T) {
	router := newTestRouter(NewService(newMockRepository()))

	rec := doRequest(t, router, http.MethodPost, "/jobs", "employer", map[string]string{"title": "no company"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, router, http.MethodGet, "/jobs?employer_id=abc", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_ForbiddenVersusNotFound(t *testing.T) {
	s := NewService(newMockRepository())
	router := newTestRouter(s)
	job := createJob(t, s, employer, "job")

	rec := doRequest(t, router, http.MethodDelete, "/jobs/"+job.ID, "candidate", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doRequest(t, router, http.MethodDelete, "/jobs/6f1c2a9e-0000-4000-8000-000000000000", "candidate", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doRequest(t, router, http.MethodDelete, "/jobs/"+job.ID, "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandler_AdminListingIncludesFlagged(t *testing.T) {
	s := NewService(newMockRepository())
	router := newTestRouter(s)
	job := createJob(t, s, employer, "job")

	rec := doRequest(t, router, http.MethodPut, "/jobs/"+job.ID+"/flag", "admin", map[string]bool{"flagged": true})
	require.Equal(t, http.StatusOK, rec.Code)

	var list struct {
		Data []domain.Job `json:"data"`
	}

	rec = doRequest(t, router, http.MethodGet, "/jobs", "", nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Empty(t, list.Data)

	rec = doRequest(t, router, http.MethodGet, "/jobs", "admin", nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list.Data, 1)
}
