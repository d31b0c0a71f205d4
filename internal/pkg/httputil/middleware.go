package httputil

import (
	"context"
	"crypto/subtle"
	"net/http"
	"slices"
	"strings"

	"github.com/bissquit/job-garden/internal/authz"
	"github.com/bissquit/job-garden/internal/domain"
	"github.com/bissquit/job-garden/internal/pkg/ctxlog"
)

// Cookie and header names used for cookie-based authentication.
const (
	AccessTokenCookie  = "access_token"
	RefreshTokenCookie = "refresh_token"
	CSRFTokenCookie    = "csrf_token"
	CSRFTokenHeader    = "X-CSRF-Token"
)

// CORSMiddleware creates CORS middleware that handles preflight requests
// and adds appropriate CORS headers to responses.
func CORSMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	originsSet := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		originsSet[o] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			if originsSet[origin] || originsSet["*"] {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Credentials", "true")
			}

			if r.Method == http.MethodOptions {
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, "+CSRFTokenHeader)
				w.Header().Set("Access-Control-Max-Age", "86400")
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

type contextKey string

// Context keys for storing user information.
const (
	UserIDKey contextKey = "user_id"
	RoleKey   contextKey = "role"
)

// TokenValidator validates an access token and returns the user's
// current id and role as persisted at the time of the call.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (userID string, role domain.Role, err error)
}

// AuthMiddleware creates authentication middleware.
// The token is read from the Authorization header, falling back to the
// access_token cookie. Cookie-authenticated state-changing requests must
// echo the csrf_token cookie in the X-CSRF-Token header.
func AuthMiddleware(validator TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, fromCookie, errMsg := extractToken(r)
			if errMsg != "" {
				Error(w, http.StatusUnauthorized, errMsg)
				return
			}

			if fromCookie && isStateChanging(r.Method) && !validCSRF(r) {
				Error(w, http.StatusForbidden, "invalid csrf token")
				return
			}

			userID, role, err := validator.ValidateToken(r.Context(), token)
			if err != nil {
				Error(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}

			next.ServeHTTP(w, r.WithContext(withIdentity(r.Context(), userID, role)))
		})
	}
}

// OptionalAuthMiddleware identifies the caller when a valid token is present
// and otherwise lets the request through anonymously.
func OptionalAuthMiddleware(validator TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, _, errMsg := extractToken(r)
			if errMsg != "" {
				next.ServeHTTP(w, r)
				return
			}

			userID, role, err := validator.ValidateToken(r.Context(), token)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(withIdentity(r.Context(), userID, role)))
		})
	}
}

// RequireRole creates RBAC middleware admitting only the listed roles.
func RequireRole(roles ...domain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role, ok := r.Context().Value(RoleKey).(domain.Role)
			if !ok {
				Error(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			if !slices.Contains(roles, role) {
				required := make([]string, len(roles))
				for i, want := range roles {
					required[i] = string(want)
				}
				ErrorWithCode(w, http.StatusForbidden, "insufficient permissions", "role_required",
					map[string]interface{}{"required_roles": required})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// GetUserID extracts user ID from context.
func GetUserID(ctx context.Context) string {
	if id, ok := ctx.Value(UserIDKey).(string); ok {
		return id
	}
	return ""
}

// GetRole extracts role from context.
func GetRole(ctx context.Context) domain.Role {
	if role, ok := ctx.Value(RoleKey).(domain.Role); ok {
		return role
	}
	return ""
}

func withIdentity(ctx context.Context, userID string, role domain.Role) context.Context {
	ctx = context.WithValue(ctx, UserIDKey, userID)
	ctx = context.WithValue(ctx, RoleKey, role)
	return ctxlog.With(ctx, "user_id", userID)
}

func extractToken(r *http.Request) (token string, fromCookie bool, errMsg string) {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" || parts[1] == "" {
			return "", false, "invalid authorization header format"
		}
		return parts[1], false, ""
	}

	if cookie, err := r.Cookie(AccessTokenCookie); err == nil && cookie.Value != "" {
		return cookie.Value, true, ""
	}

	return "", false, "missing authorization header"
}

func validCSRF(r *http.Request) bool {
	cookie, err := r.Cookie(CSRFTokenCookie)
	if err != nil || cookie.Value == "" {
		return false
	}
	header := r.Header.Get(CSRFTokenHeader)
	return subtle.ConstantTimeCompare([]byte(cookie.Value), []byte(header)) == 1
}

func isStateChanging(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

// ActorFromContext returns the authenticated caller as an authz.Actor.
// The role is the one loaded by AuthMiddleware for this request.
func ActorFromContext(ctx context.Context) authz.Actor {
	return authz.Actor{ID: GetUserID(ctx), Role: GetRole(ctx)}
}
