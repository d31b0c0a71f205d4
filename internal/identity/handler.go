package identity

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/bissquit/job-garden/internal/domain"
	"github.com/bissquit/job-garden/internal/pkg/ctxlog"
	"github.com/bissquit/job-garden/internal/pkg/httputil"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

// CookieSettings contains settings for authentication cookies.
type CookieSettings struct {
	Secure               bool
	Domain               string
	AccessTokenDuration  time.Duration
	RefreshTokenDuration time.Duration
}

// Handler handles HTTP requests for the identity module.
type Handler struct {
	service        *Service
	validator      *validator.Validate
	cookieSettings CookieSettings
	limiter        httputil.Limiter
}

// NewHandler creates a new identity handler. limiter may be nil.
func NewHandler(service *Service, cookieSettings CookieSettings, limiter httputil.Limiter) *Handler {
	return &Handler{
		service:        service,
		validator:      validator.New(),
		cookieSettings: cookieSettings,
		limiter:        limiter,
	}
}

var errorMappings = append([]httputil.ErrorMapping{
	{Error: ErrUserNotFound, Status: http.StatusNotFound},
	{Error: ErrEmailExists, Status: http.StatusConflict},
	{Error: ErrInvalidCredentials, Status: http.StatusUnauthorized},
	{Error: ErrInvalidToken, Status: http.StatusUnauthorized},
	{Error: ErrInvalidRole, Status: http.StatusBadRequest},
	{Error: ErrInvalidRoleTransition, Status: http.StatusUnprocessableEntity},
}, httputil.AuthzMappings...)

// RegisterRoutes registers public auth routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/auth", func(r chi.Router) {
		r.With(httputil.RateLimitMiddleware(h.limiter, "auth_register")).Post("/register", h.Register)
		r.With(httputil.RateLimitMiddleware(h.limiter, "auth_login")).Post("/login", h.Login)
		r.Post("/refresh", h.Refresh)
		r.Post("/logout", h.Logout)
	})
}

// RegisterProtectedRoutes registers self-service routes that require authentication.
func (h *Handler) RegisterProtectedRoutes(r chi.Router) {
	r.Get("/me", h.Me)
	r.Patch("/me/profile", h.UpdateProfile)
	r.Put("/me/role", h.ChangeOwnRole)
}

// RegisterAdminRoutes registers user management routes.
// The service authorizes every call; no role middleware is needed.
func (h *Handler) RegisterAdminRoutes(r chi.Router) {
	r.Route("/users", func(r chi.Router) {
		r.Get("/", h.ListUsers)
		r.Get("/{id}", h.GetUser)
		r.Put("/{id}/role", h.SetUserRole)
		r.Put("/{id}/verification", h.SetUserVerified)
		r.Put("/{id}/flag", h.SetUserFlagged)
		r.Delete("/{id}", h.DeleteUser)
	})
}

// RegisterRequest represents registration request body.
type RegisterRequest struct {
	Email     string `json:"email" validate:"required,email,max=255"`
	Password  string `json:"password" validate:"required,min=8,max=72"`
	FirstName string `json:"first_name" validate:"max=100"`
	LastName  string `json:"last_name" validate:"max=100"`
	Role      string `json:"role" validate:"omitempty,oneof=candidate employer admin"`
}

// Register handles POST /auth/register.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !h.decode(w, r, &req) {
		return
	}

	user, err := h.service.Register(r.Context(), RegisterInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Role:      domain.Role(req.Role),
	})
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusCreated, user)
}

// LoginRequest represents login request body.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse represents login response. The access token is also set
// as a cookie; it is returned for clients using the Authorization header.
type LoginResponse struct {
	User        *domain.User `json:"user"`
	AccessToken string       `json:"access_token"`
}

// Login handles POST /auth/login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !h.decode(w, r, &req) {
		return
	}

	user, tokens, err := h.service.Login(r.Context(), LoginInput(req))
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	h.setAuthCookies(w, tokens)

	httputil.Success(w, http.StatusOK, LoginResponse{
		User:        user,
		AccessToken: tokens.AccessToken,
	})
}

// Refresh handles POST /auth/refresh.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	refreshToken := h.getRefreshTokenFromRequest(r)
	if refreshToken == "" {
		httputil.Error(w, http.StatusBadRequest, "missing refresh token")
		return
	}

	tokens, err := h.service.RefreshTokens(r.Context(), refreshToken)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	h.setAuthCookies(w, tokens)

	w.WriteHeader(http.StatusNoContent)
}

// Logout handles POST /auth/logout.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	refreshToken := h.getRefreshTokenFromRequest(r)
	if refreshToken != "" {
		if err := h.service.Logout(r.Context(), refreshToken); err != nil {
			ctxlog.FromContext(r.Context()).Warn("logout error", "error", err)
		}
	}

	h.clearAuthCookies(w)

	w.WriteHeader(http.StatusNoContent)
}

// Me handles GET /me.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.GetUserByID(r.Context(), httputil.GetUserID(r.Context()))
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, user)
}

// UpdateProfileRequest represents the profile update body. Omitted fields are kept.
type UpdateProfileRequest struct {
	FirstName *string `json:"first_name" validate:"omitempty,max=100"`
	LastName  *string `json:"last_name" validate:"omitempty,max=100"`
	ResumeURL *string `json:"resume_url" validate:"omitempty,url,max=2048"`
}

// UpdateProfile handles PATCH /me/profile.
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req UpdateProfileRequest
	if !h.decode(w, r, &req) {
		return
	}

	user, err := h.service.UpdateProfile(r.Context(), httputil.GetUserID(r.Context()), ProfileUpdate(req))
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, user)
}

// RoleRequest carries a role value. Self-service values are checked by the
// service so that any other string yields an invalid transition.
type RoleRequest struct {
	Role string `json:"role" validate:"required"`
}

// ChangeOwnRole handles PUT /me/role.
func (h *Handler) ChangeOwnRole(w http.ResponseWriter, r *http.Request) {
	var req RoleRequest
	if !h.decode(w, r, &req) {
		return
	}

	user, err := h.service.ChangeOwnRole(r.Context(), httputil.ActorFromContext(r.Context()), domain.Role(req.Role))
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, user)
}

// ListUsers handles GET /users.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	filter := UserFilter{}
	q := r.URL.Query()

	if v := q.Get("role"); v != "" {
		role := domain.Role(v)
		if !role.IsValid() {
			httputil.Error(w, http.StatusBadRequest, "invalid role filter")
			return
		}
		filter.Role = &role
	}
	if v := q.Get("flagged"); v != "" {
		flagged, err := strconv.ParseBool(v)
		if err != nil {
			httputil.Error(w, http.StatusBadRequest, "invalid flagged filter")
			return
		}
		filter.Flagged = &flagged
	}
	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
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

	users, err := h.service.ListUsers(r.Context(), httputil.ActorFromContext(r.Context()), filter)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, users)
}

// GetUser handles GET /users/{id}.
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.GetUser(r.Context(), httputil.ActorFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, user)
}

// SetUserRole handles PUT /users/{id}/role.
func (h *Handler) SetUserRole(w http.ResponseWriter, r *http.Request) {
	var req RoleRequest
	if !h.decode(w, r, &req) {
		return
	}

	user, err := h.service.SetUserRole(r.Context(), httputil.ActorFromContext(r.Context()), chi.URLParam(r, "id"), domain.Role(req.Role))
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, user)
}

// VerificationRequest toggles the verified flag.
type VerificationRequest struct {
	Verified *bool `json:"verified" validate:"required"`
}

// SetUserVerified handles PUT /users/{id}/verification.
func (h *Handler) SetUserVerified(w http.ResponseWriter, r *http.Request) {
	var req VerificationRequest
	if !h.decode(w, r, &req) {
		return
	}

	user, err := h.service.SetUserVerified(r.Context(), httputil.ActorFromContext(r.Context()), chi.URLParam(r, "id"), *req.Verified)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, user)
}

// FlagRequest toggles the moderation flag.
type FlagRequest struct {
	Flagged *bool `json:"flagged" validate:"required"`
}

// SetUserFlagged handles PUT /users/{id}/flag.
func (h *Handler) SetUserFlagged(w http.ResponseWriter, r *http.Request) {
	var req FlagRequest
	if !h.decode(w, r, &req) {
		return
	}

	user, err := h.service.SetUserFlagged(r.Context(), httputil.ActorFromContext(r.Context()), chi.URLParam(r, "id"), *req.Flagged)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, user)
}

// DeleteUser handles DELETE /users/{id}.
func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteUser(r.Context(), httputil.ActorFromContext(r.Context()), chi.URLParam(r, "id")); err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return false
	}
	if err := h.validator.Struct(v); err != nil {
		httputil.ValidationError(w, err)
		return false
	}
	return true
}

// setAuthCookies sets access_token, refresh_token, and csrf_token cookies.
func (h *Handler) setAuthCookies(w http.ResponseWriter, tokens *TokenPair) {
	http.SetCookie(w, &http.Cookie{
		Name:     httputil.AccessTokenCookie,
		Value:    tokens.AccessToken,
		Path:     "/",
		Domain:   h.cookieSettings.Domain,
		MaxAge:   int(h.cookieSettings.AccessTokenDuration.Seconds()),
		HttpOnly: true,
		Secure:   h.cookieSettings.Secure,
		SameSite: http.SameSiteLaxMode,
	})

	// Refresh token is only sent to auth endpoints.
	http.SetCookie(w, &http.Cookie{
		Name:     httputil.RefreshTokenCookie,
		Value:    tokens.RefreshToken,
		Path:     "/api/v1/auth",
		Domain:   h.cookieSettings.Domain,
		MaxAge:   int(h.cookieSettings.RefreshTokenDuration.Seconds()),
		HttpOnly: true,
		Secure:   h.cookieSettings.Secure,
		SameSite: http.SameSiteStrictMode,
	})

	// Readable by JavaScript, echoed back in X-CSRF-Token.
	http.SetCookie(w, &http.Cookie{
		Name:     httputil.CSRFTokenCookie,
		Value:    generateCSRFToken(),
		Path:     "/",
		Domain:   h.cookieSettings.Domain,
		MaxAge:   int(h.cookieSettings.AccessTokenDuration.Seconds()),
		HttpOnly: false,
		Secure:   h.cookieSettings.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// clearAuthCookies expires all auth cookies.
func (h *Handler) clearAuthCookies(w http.ResponseWriter) {
	for _, c := range []struct {
		name     string
		path     string
		httpOnly bool
		sameSite http.SameSite
	}{
		{httputil.AccessTokenCookie, "/", true, http.SameSiteLaxMode},
		{httputil.RefreshTokenCookie, "/api/v1/auth", true, http.SameSiteStrictMode},
		{httputil.CSRFTokenCookie, "/", false, http.SameSiteLaxMode},
	} {
		http.SetCookie(w, &http.Cookie{
			Name:     c.name,
			Value:    "",
			Path:     c.path,
			Domain:   h.cookieSettings.Domain,
			MaxAge:   -1,
			HttpOnly: c.httpOnly,
			Secure:   h.cookieSettings.Secure,
			SameSite: c.sameSite,
		})
	}
}

// getRefreshTokenFromRequest reads the refresh token from its cookie,
// falling back to a JSON body for API clients.
func (h *Handler) getRefreshTokenFromRequest(r *http.Request) string {
	if cookie, err := r.Cookie(httputil.RefreshTokenCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	var body struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err == nil && body.RefreshToken != "" {
		return body.RefreshToken
	}

	return ""
}

func generateCSRFToken() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return hex.EncodeToString([]byte(time.Now().String()))
	}
	return hex.EncodeToString(b)
}
