package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"llmchatd/internal/chat"
	"llmchatd/internal/manager"
	"llmchatd/pkg/types"
)

// HTTPError allows services to provide an HTTP status code for an error.
type HTTPError interface {
	error
	StatusCode() int
}

// statusFor maps well-known domain errors to HTTP status codes.
func statusFor(err error) int {
	var he HTTPError
	switch {
	case errors.As(err, &he):
		return he.StatusCode()
	case manager.IsModelNotFound(err), errors.Is(err, chat.ErrNotFound):
		return http.StatusNotFound
	case manager.IsBusy(err):
		return http.StatusTooManyRequests
	case manager.IsNotReady(err), manager.IsDependencyUnavailable(err):
		return http.StatusServiceUnavailable
	case errors.Is(err, chat.ErrEmptyPrompt):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// writeError writes err with its mapped status code.
func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusTooManyRequests {
		IncrementBackpressure("session_busy")
	}
	writeJSONError(w, status, err.Error())
}

// writeJSONError writes a consistent JSON error payload.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(types.ErrorResponse{Error: msg, Code: status})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger().Error().Err(err).Msg("http event=encode_failed")
	}
}
