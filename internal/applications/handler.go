package applications

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/bissquit/job-garden/internal/domain"
	"github.com/bissquit/job-garden/internal/jobs"
	"github.com/bissquit/job-garden/internal/pkg/httputil"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

// Handler handles HTTP requests for applications.
type Handler struct {
	service   *Service
	validator *validator.Validate
	limiter   httputil.Limiter
}

// NewHandler creates a new applications handler. limiter may be nil.
func NewHandler(service *Service, limiter httputil.Limiter) *Handler {
	return &Handler{
		service:   service,
		validator: validator.New(),
		limiter:   limiter,
	}
}

var errorMappings = append([]httputil.ErrorMapping{
	{Error: ErrApplicationNotFound, Status: http.StatusNotFound},
	{Error: jobs.ErrJobNotFound, Status: http.StatusNotFound},
	{Error: ErrDuplicateApplication, Status: http.StatusConflict},
	{Error: ErrInvalidStatus, Status: http.StatusBadRequest},
}, httputil.AuthzMappings...)

// RegisterRoutes registers application routes. All of them require authentication.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.With(httputil.RateLimitMiddleware(h.limiter, "application_submit")).
		Post("/jobs/{id}/applications", h.Submit)
	r.Get("/jobs/{id}/applications", h.ListForJob)

	r.Route("/applications", func(r chi.Router) {
		r.Get("/mine", h.ListMine)
		r.Get("/received", h.ListReceived)
		r.Get("/{id}", h.Get)
		r.Put("/{id}/status", h.SetStatus)
	})
}

// SubmitRequest represents the request body for applying to a job.
type SubmitRequest struct {
	CoverLetter string  `json:"cover_letter" validate:"max=10000"`
	ResumeURL   *string `json:"resume_url" validate:"omitempty,url,max=2048"`
}

// StatusRequest represents the request body for a status change.
type StatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// Submit handles POST /jobs/{id}/applications.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	var req SubmitRequest
	// An empty body submits with the profile resume and no cover letter.
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	app, err := h.service.Submit(r.Context(), httputil.ActorFromContext(r.Context()), chi.URLParam(r, "id"), SubmitInput{
		CoverLetter: req.CoverLetter,
		ResumeURL:   req.ResumeURL,
	})
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusCreated, app)
}

// Get handles GET /applications/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	app, err := h.service.Get(r.Context(), httputil.ActorFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, app)
}

// SetStatus handles PUT /applications/{id}/status.
func (h *Handler) SetStatus(w http.ResponseWriter, r *http.Request) {
	var req StatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	app, err := h.service.SetStatus(r.Context(), httputil.ActorFromContext(r.Context()),
		chi.URLParam(r, "id"), domain.ApplicationStatus(req.Status))
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, app)
}

// ListMine handles GET /applications/mine.
func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	filter, ok := parseListFilter(w, r)
	if !ok {
		return
	}

	apps, err := h.service.ListForCandidate(r.Context(), httputil.ActorFromContext(r.Context()), filter)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, apps)
}

// ListReceived handles GET /applications/received.
func (h *Handler) ListReceived(w http.ResponseWriter, r *http.Request) {
	filter, ok := parseListFilter(w, r)
	if !ok {
		return
	}

	apps, err := h.service.ListForEmployer(r.Context(), httputil.ActorFromContext(r.Context()), filter)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, apps)
}

// ListForJob handles GET /jobs/{id}/applications.
func (h *Handler) ListForJob(w http.ResponseWriter, r *http.Request) {
	filter, ok := parseListFilter(w, r)
	if !ok {
		return
	}

	apps, err := h.service.ListForJob(r.Context(), httputil.ActorFromContext(r.Context()), chi.URLParam(r, "id"), filter)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, apps)
}

func parseListFilter(w http.ResponseWriter, r *http.Request) (ListFilter, bool) {
	q := r.URL.Query()
	var filter ListFilter

	if v := q.Get("status"); v != "" {
		status := domain.ApplicationStatus(v)
		if !status.IsValid() {
			httputil.Error(w, http.StatusBadRequest, "invalid status")
			return filter, false
		}
		filter.Status = &status
	}
	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 1 {
			httputil.Error(w, http.StatusBadRequest, "invalid limit")
			return filter, false
		}
		filter.Limit = limit
	}
	if v := q.Get("offset"); v != "" {
		offset, err := strconv.Atoi(v)
		if err != nil || offset < 0 {
			httputil.Error(w, http.StatusBadRequest, "invalid offset")
			return filter, false
		}
		filter.Offset = offset
	}

	return filter, true
}
