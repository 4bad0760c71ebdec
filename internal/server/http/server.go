// Package httpserver provides the HTTP intake API for the triage service.
//
// Tickets submitted here are stored in the processing state before their
// triage workflow starts, so a reader never sees an untriaged ticket as open.
package httpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/helixir/helpdesk-triage-service/internal/database"
	"github.com/helixir/helpdesk-triage-service/internal/repository"
	"github.com/helixir/helpdesk-triage-service/internal/temporal"
)

// WorkflowClient defines the workflow operations used by the HTTP server.
// It is satisfied by *temporal.TriageWorkflowClient.
type WorkflowClient interface {
	StartTriage(ctx context.Context, input temporal.TriageInput) (*temporal.StartResult, error)
	StartWelcome(ctx context.Context, userID uuid.UUID) (*temporal.StartResult, error)
	QueryProgress(ctx context.Context, ticketID uuid.UUID) (*temporal.TriageProgress, error)
	Health(ctx context.Context) error
}

// HealthChecker reports database health. It is satisfied by *database.DB.
type HealthChecker interface {
	Health(ctx context.Context) database.HealthStatus
}

// Server is the HTTP REST API server.
type Server struct {
	router         chi.Router
	httpServer     *http.Server
	workflowClient WorkflowClient
	tickets        repository.TicketRepository
	users          repository.UserRepository
	db             HealthChecker
	validate       *validator.Validate
	logger         zerolog.Logger
}

// Config holds HTTP server configuration.
type Config struct {
	Address         string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// NewServer creates a new HTTP server with all dependencies.
func NewServer(
	cfg Config,
	workflowClient WorkflowClient,
	tickets repository.TicketRepository,
	users repository.UserRepository,
	db HealthChecker,
	logger zerolog.Logger,
) *Server {
	s := &Server{
		workflowClient: workflowClient,
		tickets:        tickets,
		users:          users,
		db:             db,
		validate:       newValidator(),
		logger:         logger.With().Str("component", "http-server").Logger(),
	}

	s.router = s.buildRouter()

	s.httpServer = &http.Server{
		Addr:         cfg.Address,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return s
}

// buildRouter creates the chi router with all middleware and routes.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.correlationID)
	r.Use(jsonContentTypeMiddleware)
	r.Use(s.requestLogger)

	r.Get("/healthz", s.healthHandler)
	r.Get("/readyz", s.readinessHandler)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/tickets", s.createTicket)
		r.Get("/tickets", s.listTickets)
		r.Get("/tickets/{ticketID}", s.getTicket)
		r.Get("/tickets/{ticketID}/triage", s.getTriageProgress)
		r.Post("/tickets/{ticketID}/triage", s.retriggerTriage)

		r.Post("/users", s.createUser)
		r.Get("/users/{userID}", s.getUser)
	})

	return r
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.Info().Str("address", s.httpServer.Addr).Msg("HTTP server starting")
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listen on HTTP address: %w", err)
	}
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// healthHandler returns basic liveness status.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// readinessHandler reports ready only when both the database and Temporal
// answer.
func (s *Server) readinessHandler(w http.ResponseWriter, r *http.Request) {
	health := s.db.Health(r.Context())
	if !health.Healthy() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status":   "not_ready",
			"database": health.Status,
			"error":    health.Error,
		})
		return
	}
	if err := s.workflowClient.Health(r.Context()); err != nil {
		s.log(r).Warn().Err(err).Msg("temporal health check failed")
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status":   "not_ready",
			"database": "healthy",
			"temporal": "unhealthy",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":   "ready",
		"database": "healthy",
		"temporal": "healthy",
	})
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Best-effort log; headers already sent.
		_ = err
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{
		"error": message,
	})
}
