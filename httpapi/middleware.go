package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

// Header names shared with the transport's callers.
const (
	headerOrganization  = "organization"
	headerClientID      = "client-id"
	headerCorrelationID = "correlation-id"
)

// correlate ensures every request carries a correlation id, echoes it back
// to the caller and logs the request outcome with it.
func (h *Handler) correlate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		correlationID := r.Header.Get(headerCorrelationID)
		if correlationID == "" {
			correlationID = uuid.NewString()
		}
		w.Header().Set(headerCorrelationID, correlationID)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		h.logger.InfoContext(r.Context(), "request handled",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", ww.Status()),
			slog.Duration("duration", time.Since(start)),
			slog.String("correlation_id", correlationID))
	})
}
