// Package httputil provides HTTP response helpers and middleware.
package httputil

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
)

// FieldError describes one rejected request field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "status", status, "error", err)
	}
}

// JSON writes v without an envelope.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	writeJSON(w, status, v)
}

// Text writes a plain text response.
func Text(w http.ResponseWriter, status int, text string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	if _, err := w.Write([]byte(text)); err != nil {
		slog.Error("failed to write response", "error", err)
	}
}

// Success writes {"data": v}.
func Success(w http.ResponseWriter, status int, v interface{}) {
	writeJSON(w, status, map[string]interface{}{"data": v})
}

// Error writes {"error": {"message": message}}.
func Error(w http.ResponseWriter, status int, message string) {
	ErrorWithCode(w, status, message, "", nil)
}

// ErrorWithCode writes an error envelope that also carries a machine-readable
// code and extra fields, e.g. {"error": {"message", "code", "required_roles"}}.
// An empty code is omitted.
func ErrorWithCode(w http.ResponseWriter, status int, message, code string, fields map[string]interface{}) {
	body := make(map[string]interface{}, len(fields)+2)
	for k, v := range fields {
		body[k] = v
	}
	body["message"] = message
	if code != "" {
		body["code"] = code
	}
	writeJSON(w, status, map[string]interface{}{"error": body})
}

// ValidationError writes a 400 with per-field details when err comes from
// the validator, or the raw message otherwise.
func ValidationError(w http.ResponseWriter, err error) {
	var details interface{} = err.Error()

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make([]FieldError, 0, len(verrs))
		for _, e := range verrs {
			fields = append(fields, FieldError{Field: e.Field(), Message: e.Tag()})
		}
		details = fields
	}

	ErrorWithCode(w, http.StatusBadRequest, "validation error", "", map[string]interface{}{"details": details})
}
