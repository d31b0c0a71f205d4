package httputil

import (
	"context"
	"errors"
	"net/http"

	"github.com/bissquit/job-garden/internal/authz"
	"github.com/bissquit/job-garden/internal/pkg/ctxlog"
)

// ErrorMapping defines how a domain error maps to an HTTP response.
type ErrorMapping struct {
	Error   error
	Status  int
	Message string // if empty, uses err.Error()
}

// AuthzMappings maps authorization denials. Append them to module mappings.
var AuthzMappings = []ErrorMapping{
	{Error: authz.ErrUnauthenticated, Status: http.StatusUnauthorized},
	{Error: authz.ErrAdminProtected, Status: http.StatusConflict},
	{Error: authz.ErrForbidden, Status: http.StatusForbidden},
}

// CodedError is implemented by errors that carry a machine-readable code
// and extra fields for the response body.
type CodedError interface {
	error
	ErrorCode() string
	ErrorFields() map[string]interface{}
}

// HandleError maps a domain error to an HTTP response using provided mappings.
// If no mapping matches, logs the error and returns 500 Internal Server Error.
func HandleError(ctx context.Context, w http.ResponseWriter, err error, mappings []ErrorMapping) {
	for _, m := range mappings {
		if errors.Is(err, m.Error) {
			msg := m.Message
			if msg == "" {
				msg = err.Error()
			}

			var coded CodedError
			if errors.As(err, &coded) {
				ErrorWithCode(w, m.Status, msg, coded.ErrorCode(), coded.ErrorFields())
				return
			}

			Error(w, m.Status, msg)
			return
		}
	}
	ctxlog.FromContext(ctx).Error("internal error", "error", err)
	Error(w, http.StatusInternalServerError, "internal error")
}
