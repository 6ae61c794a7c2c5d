// SPDX-License-Identifier: MIT

package middleware

import (
	"net/http"
	"time"

	"github.com/Aathif-M/workpulse/internal/log"
)

// AccessLog creates a middleware that logs one structured line per request
// after the handler completes, so the full latency is captured.
func AccessLog() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			rw := &responseWriter{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			next.ServeHTTP(rw, r)

			logger := log.WithComponentFromContext(r.Context(), "http")
			evt := logger.Info()
			if rw.statusCode >= 500 {
				evt = logger.Error()
			}
			evt.
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", rw.statusCode).
				Dur("duration", time.Since(start)).
				Str("remote_addr", r.RemoteAddr).
				Msg("request handled")
		})
	}
}
