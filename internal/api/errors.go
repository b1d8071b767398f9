package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nerrad567/gray-logic-av/internal/adapter"
)

// Error represents a structured error response.
type Error struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Common error codes. Command failures pass the dispatch pipeline's own
// codes through unchanged.
const (
	ErrCodeBadRequest   = "bad_request"
	ErrCodeNotFound     = "not_found"
	ErrCodeUnauthorized = "unauthorised"
	ErrCodeInternal     = "internal_error"
)

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

// writeError writes a structured error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, Error{
		Status:  status,
		Code:    code,
		Message: message,
	})
}

// writeBadRequest writes a 400 error response.
func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

// writeNotFound writes a 404 error response.
func writeNotFound(w http.ResponseWriter, message string) {
	writeError(w, http.StatusNotFound, ErrCodeNotFound, message)
}

// writeUnauthorized writes a 401 error response.
func writeUnauthorized(w http.ResponseWriter, message string) {
	writeError(w, http.StatusUnauthorized, ErrCodeUnauthorized, message)
}

// writeInternalError writes a 500 error response.
func writeInternalError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusInternalServerError, ErrCodeInternal, message)
}

// writeCommandError maps a dispatch failure onto an HTTP error response,
// preserving the command error code in the body.
func writeCommandError(w http.ResponseWriter, err error) {
	var ce *adapter.CommandError
	if !errors.As(err, &ce) {
		writeInternalError(w, err.Error())
		return
	}
	writeError(w, commandStatus(ce.Code), ce.Code, ce.Message)
}

// commandStatus maps command error codes onto HTTP status codes. Transient
// core failures surface as bad gateway and an open breaker as service
// unavailable so load balancers and callers back off correctly.
func commandStatus(code string) int {
	switch code {
	case adapter.CodeInvalidParams, adapter.CodeValidationFailed:
		return http.StatusBadRequest
	case adapter.CodeNotFound:
		return http.StatusNotFound
	case adapter.CodeTransient:
		return http.StatusBadGateway
	case adapter.CodeCircuitOpen:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
