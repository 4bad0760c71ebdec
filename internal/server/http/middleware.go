package httpserver

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/helixir/helpdesk-triage-service/internal/observability"
)

const correlationHeader = "X-Correlation-ID"

// correlationID resolves the request's correlation ID from the header, chi's
// request ID, or a fresh random one, echoes it back, and attaches a logger
// tagged with it to the request context.
func (s *Server) correlationID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(correlationHeader)
		if id == "" {
			id = middleware.GetReqID(r.Context())
		}
		if id == "" {
			id = observability.NewCorrelationID()
		}

		w.Header().Set(correlationHeader, id)
		ctx := observability.WithCorrelationID(r.Context(), id)
		ctx = observability.WithLogger(ctx, s.logger.With().Str("correlation_id", id).Logger())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func jsonContentTypeMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

// requestLogger logs one line per request at debug level, or warn for 5xx.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		logger := s.log(r)
		event := logger.Debug()
		if ww.Status() >= http.StatusInternalServerError {
			event = logger.Warn()
		}
		event.
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}

// log returns the request-scoped logger.
func (s *Server) log(r *http.Request) *zerolog.Logger {
	l := observability.LoggerFromContext(r.Context(), s.logger)
	return &l
}
