package jobs

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/bissquit/job-garden/internal/domain"
	"github.com/bissquit/job-garden/internal/pkg/httputil"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

// Handler handles HTTP requests for job postings.
type Handler struct {
	service   *Service
	validator *validator.Validate
}

// NewHandler creates a new jobs handler.
func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: validator.New(),
	}
}

var errorMappings = append([]httputil.ErrorMapping{
	{Error: ErrJobNotFound, Status: http.StatusNotFound},
	{Error: ErrInvalidEmploymentType, Status: http.StatusBadRequest},
}, httputil.AuthzMappings...)

// RegisterPublicRoutes registers listing and detail routes. Mount them
// behind optional authentication so admins see flagged postings.
func (h *Handler) RegisterPublicRoutes(r chi.Router) {
	r.Get("/jobs", h.List)
	r.Get("/jobs/{id}", h.Get)
}

// RegisterProtectedRoutes registers routes that require authentication.
func (h *Handler) RegisterProtectedRoutes(r chi.Router) {
	r.Post("/jobs", h.Create)
	r.Patch("/jobs/{id}", h.Update)
	r.Delete("/jobs/{id}", h.Delete)
	r.Put("/jobs/{id}/verification", h.SetVerified)
	r.Put("/jobs/{id}/flag", h.SetFlagged)
}

// CreateJobRequest represents the request body for creating a posting.
type CreateJobRequest struct {
	Title          string `json:"title" validate:"required,min=1,max=200"`
	Company        string `json:"company" validate:"required,min=1,max=200"`
	Location       string `json:"location" validate:"max=200"`
	Description    string `json:"description" validate:"required,max=20000"`
	Salary         string `json:"salary" validate:"max=100"`
	EmploymentType string `json:"employment_type" validate:"omitempty,oneof=full_time part_time contract internship"`
}

// UpdateJobRequest represents the request body for editing a posting.
type UpdateJobRequest struct {
	Title          *string `json:"title" validate:"omitempty,min=1,max=200"`
	Company        *string `json:"company" validate:"omitempty,min=1,max=200"`
	Location       *string `json:"location" validate:"omitempty,max=200"`
	Description    *string `json:"description" validate:"omitempty,max=20000"`
	Salary         *string `json:"salary" validate:"omitempty,max=100"`
	EmploymentType *string `json:"employment_type" validate:"omitempty,oneof=full_time part_time contract internship"`
}

// ToUpdate converts the request to a JobUpdate.
func (r *UpdateJobRequest) ToUpdate() JobUpdate {
	update := JobUpdate{
		Title:       r.Title,
		Company:     r.Company,
		Location:    r.Location,
		Description: r.Description,
		Salary:      r.Salary,
	}
	if r.EmploymentType != nil {
		t := domain.EmploymentType(*r.EmploymentType)
		update.EmploymentType = &t
	}
	return update
}

// Create handles POST /jobs.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	job, err := h.service.Create(r.Context(), httputil.ActorFromContext(r.Context()), CreateInput{
		Title:          req.Title,
		Company:        req.Company,
		Location:       req.Location,
		Description:    req.Description,
		Salary:         req.Salary,
		EmploymentType: domain.EmploymentType(req.EmploymentType),
	})
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusCreated, job)
}

// Get handles GET /jobs/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	job, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, job)
}

// List handles GET /jobs.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := ListFilter{
		EmployerID: q.Get("employer_id"),
	}

	if filter.EmployerID != "" && !validID(filter.EmployerID) {
		httputil.Error(w, http.StatusBadRequest, "invalid employer_id")
		return
	}
	if v := q.Get("employment_type"); v != "" {
		t := domain.EmploymentType(v)
		if !t.IsValid() {
			httputil.Error(w, http.StatusBadRequest, "invalid employment_type")
			return
		}
		filter.EmploymentType = t
	}
	if q.Get("verified_only") == "true" {
		filter.VerifiedOnly = true
	}
	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 1 {
			httputil.Error(w, http.StatusBadRequest, "invalid limit")
			return
		}
		filter.Limit = limit
	}
	if v := q.Get("offset"); v != "" {
		offset, err := strconv.Atoi(v)
		if err != nil || offset < 0 {
			httputil.Error(w, http.StatusBadRequest, "invalid offset")
			return
		}
		filter.Offset = offset
	}

	jobs, err := h.service.List(r.Context(), httputil.ActorFromContext(r.Context()), filter)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, jobs)
}

// Update handles PATCH /jobs/{id}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var req UpdateJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	job, err := h.service.Update(r.Context(), httputil.ActorFromContext(r.Context()), chi.URLParam(r, "id"), req.ToUpdate())
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, job)
}

// Delete handles DELETE /jobs/{id}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), httputil.ActorFromContext(r.Context()), chi.URLParam(r, "id")); err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// VerificationRequest toggles the verified flag.
type VerificationRequest struct {
	Verified *bool `json:"verified" validate:"required"`
}

// SetVerified handles PUT /jobs/{id}/verification.
func (h *Handler) SetVerified(w http.ResponseWriter, r *http.Request) {
	var req VerificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	job, err := h.service.SetVerified(r.Context(), httputil.ActorFromContext(r.Context()), chi.URLParam(r, "id"), *req.Verified)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, job)
}

// FlagRequest toggles the moderation flag.
type FlagRequest struct {
	Flagged *bool `json:"flagged" validate:"required"`
}

// SetFlagged handles PUT /jobs/{id}/flag.
func (h *Handler) SetFlagged(w http.ResponseWriter, r *http.Request) {
	var req FlagRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	job, err := h.service.SetFlagged(r.Context(), httputil.ActorFromContext(r.Context()), chi.URLParam(r, "id"), *req.Flagged)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, job)
}
