// SPDX-License-Identifier: MIT

package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Aathif-M/workpulse/internal/auth"
	"github.com/Aathif-M/workpulse/internal/breaks"
	"github.com/Aathif-M/workpulse/internal/log"
)

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps domain errors onto HTTP status codes. Unrecognised errors
// become opaque 500s; the detail stays in the server log.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var code int
	switch {
	case errors.Is(err, breaks.ErrConflict):
		code = http.StatusConflict
	case errors.Is(err, breaks.ErrForbidden):
		code = http.StatusForbidden
	case errors.Is(err, breaks.ErrInvalidState), errors.Is(err, breaks.ErrInactiveBreakType):
		code = http.StatusBadRequest
	case errors.Is(err, breaks.ErrNotFound):
		code = http.StatusNotFound
	case errors.Is(err, auth.ErrUnauthorized):
		code = http.StatusUnauthorized
	default:
		logger := log.WithComponentFromContext(r.Context(), "api")
		logger.Error().Err(err).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Msg("request failed")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

// writeBadRequest rejects malformed request bodies.
func writeBadRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
}

// writeUnauthorized writes a 401 Unauthorized response.
func writeUnauthorized(w http.ResponseWriter) {
	writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
}

// writeForbidden writes a 403 Forbidden response.
func writeForbidden(w http.ResponseWriter) {
	writeJSON(w, http.StatusForbidden, map[string]string{"error": "forbidden"})
}
