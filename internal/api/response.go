package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/hackgods/medical-appointment-scheduling/internal/sentinel"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, details string) {
	writeJSON(w, status, ErrorResponse{Error: code, Details: details})
}

// errorCode pairs a domain error with the code clients see.
type errorCode struct {
	err  error
	code string
}

// handleError maps err to a status with errors.Is. specific codes are tried
// first; anything else falls back to the sentinel categories.
func handleError(w http.ResponseWriter, r *http.Request, err error, specific ...errorCode) {
	for _, s := range specific {
		if errors.Is(err, s.err) {
			writeError(w, statusFor(err), s.code, err.Error())
			return
		}
	}

	switch status := statusFor(err); status {
	case http.StatusBadRequest:
		writeError(w, status, "validation_error", err.Error())
	case http.StatusNotFound:
		writeError(w, status, "not_found", err.Error())
	case http.StatusConflict:
		if errors.Is(err, sentinel.ErrInvalidState) {
			writeError(w, status, "invalid_state", err.Error())
			return
		}
		writeError(w, status, "conflict", err.Error())
	case http.StatusServiceUnavailable:
		writeError(w, status, "upstream_unavailable", err.Error())
	default:
		requestLogger(r.Context()).WithError(err).Error("request failed")
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, sentinel.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, sentinel.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, sentinel.ErrConflict), errors.Is(err, sentinel.ErrInvalidState):
		return http.StatusConflict
	case errors.Is(err, sentinel.ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
