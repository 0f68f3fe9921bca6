package server

import (
	"log/slog"
	"net/http"

	"github.com/felixge/httpsnoop"
	"github.com/gorilla/mux"
)

// logRequests logs method, url, status and duration of every request.
func logRequests(logger *slog.Logger) mux.MiddlewareFunc {
	return func(handler http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			m := httpsnoop.CaptureMetrics(handler, w, r)
			logger.Debug("handled",
				"method", r.Method,
				"url", r.URL.String(),
				"duration", m.Duration,
				"status", m.Code,
				"bytes", m.Written,
			)
		})
	}
}
