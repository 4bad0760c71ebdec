package httpserver

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/helixir/helpdesk-triage-service/internal/domain"
	"github.com/helixir/helpdesk-triage-service/internal/observability"
	"github.com/helixir/helpdesk-triage-service/internal/repository"
	"github.com/helixir/helpdesk-triage-service/internal/temporal"
)

// Pagination and validation constants.
const (
	defaultPageSize    = 50
	maxPageSize        = 100
	maxRequestBodySize = 1 << 20 // 1 MB limit for request bodies
)

// SourceHTTP is recorded as the triage source for tickets submitted here.
const SourceHTTP = "http"

// createTicketRequest is the JSON request body for submitting a ticket.
type createTicketRequest struct {
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description" validate:"required,max=10000"`
	CreatedBy   string `json:"created_by" validate:"required,uuid"`
}

// createTicket handles POST /tickets.
// It stores the ticket in the processing state and starts its triage workflow.
func (s *Server) createTicket(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req createTicketRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	req.Description = strings.TrimSpace(req.Description)
	if !s.validateRequest(w, &req) {
		return
	}

	ticket := domain.NewTicket(req.Title, req.Description, uuid.MustParse(req.CreatedBy))
	if err := s.tickets.Create(ctx, ticket); err != nil {
		s.log(r).Error().Err(err).Msg("failed to create ticket")
		writeDomainError(w, err)
		return
	}

	result, err := s.workflowClient.StartTriage(ctx, temporal.TriageInput{
		TicketID:      ticket.ID,
		Source:        SourceHTTP,
		CorrelationID: observability.CorrelationIDFromContext(ctx),
	})
	if err != nil {
		// The row stays in processing; POST /tickets/{id}/triage starts it later.
		s.log(r).Error().Err(err).
			Str("ticket_id", ticket.ID.String()).
			Msg("ticket stored but triage could not be started")
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error":     "triage could not be started",
			"ticket_id": ticket.ID.String(),
		})
		return
	}

	writeJSON(w, http.StatusCreated, createTicketResponse{
		TicketID:     ticket.ID.String(),
		WorkflowID:   result.WorkflowID,
		Status:       string(ticket.Status),
		CreatedAt:    ticket.CreatedAt,
		Deduplicated: result.Deduplicated,
	})
}

// getTicket handles GET /tickets/{ticketID}.
func (s *Server) getTicket(w http.ResponseWriter, r *http.Request) {
	ticketID, ok := parseUUID(w, chi.URLParam(r, "ticketID"), "ticket_id")
	if !ok {
		return
	}

	ticket, err := s.tickets.Get(r.Context(), ticketID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, domainTicketToResponse(ticket))
}

// listTickets handles GET /tickets.
// Query parameters: status (repeatable or comma-separated), assignee_id,
// page_size, page_token.
func (s *Server) listTickets(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePaginationParams(r)

	filter := repository.TicketFilter{Limit: limit, Offset: offset}
	for _, raw := range r.URL.Query()["status"] {
		for _, part := range strings.Split(raw, ",") {
			if part = strings.TrimSpace(part); part != "" {
				filter.Status = append(filter.Status, domain.TicketStatus(part))
			}
		}
	}
	if raw := r.URL.Query().Get("assignee_id"); raw != "" {
		id, ok := parseUUID(w, raw, "assignee_id")
		if !ok {
			return
		}
		filter.AssigneeID = &id
	}
	if err := filter.Validate(); err != nil {
		writeDomainError(w, err)
		return
	}

	tickets, total, err := s.tickets.List(r.Context(), filter)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	resp := listTicketsResponse{
		Tickets:       make([]ticketResponse, 0, len(tickets)),
		NextPageToken: encodeHTTPPageToken(offset, limit, int(total)),
		TotalCount:    int(total),
	}
	for _, t := range tickets {
		resp.Tickets = append(resp.Tickets, domainTicketToResponse(t))
	}
	writeJSON(w, http.StatusOK, resp)
}

// getTriageProgress handles GET /tickets/{ticketID}/triage by querying the
// ticket's latest triage run.
func (s *Server) getTriageProgress(w http.ResponseWriter, r *http.Request) {
	ticketID, ok := parseUUID(w, chi.URLParam(r, "ticketID"), "ticket_id")
	if !ok {
		return
	}

	progress, err := s.workflowClient.QueryProgress(r.Context(), ticketID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, progressToResponse(progress))
}

// retriggerTriage handles POST /tickets/{ticketID}/triage. It starts triage
// for a ticket whose start failed or whose last run failed. A run already in
// flight is reported as deduplicated.
func (s *Server) retriggerTriage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ticketID, ok := parseUUID(w, chi.URLParam(r, "ticketID"), "ticket_id")
	if !ok {
		return
	}

	ticket, err := s.tickets.Get(ctx, ticketID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if ticket.Status.IsTerminal() {
		writeError(w, http.StatusConflict, fmt.Sprintf("ticket is %s", ticket.Status))
		return
	}

	result, err := s.workflowClient.StartTriage(ctx, temporal.TriageInput{
		TicketID:      ticketID,
		Source:        SourceHTTP,
		CorrelationID: observability.CorrelationIDFromContext(ctx),
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, startTriageResponse{
		TicketID:     ticketID.String(),
		WorkflowID:   result.WorkflowID,
		RunID:        result.RunID,
		Deduplicated: result.Deduplicated,
	})
}

// decodeBody reads a size-limited JSON body into v, writing a 400 on failure.
func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	defer r.Body.Close()
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBodySize+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return false
	}
	if len(body) > maxRequestBodySize {
		writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		return false
	}
	if err := json.Unmarshal(body, v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON request body")
		return false
	}
	return true
}

// writeDomainError maps domain and temporal errors to appropriate HTTP status codes
// and writes a JSON error response. Internal error details are not leaked to clients.
func writeDomainError(w http.ResponseWriter, err error) {
	if err == nil {
		return
	}

	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "resource not found")
	case errors.Is(err, domain.ErrInvalidInput):
		var ve *domain.ValidationError
		if errors.As(err, &ve) {
			writeError(w, http.StatusBadRequest, ve.Error())
		} else {
			writeError(w, http.StatusBadRequest, "invalid input")
		}
	case errors.Is(err, domain.ErrAlreadyExists):
		writeError(w, http.StatusConflict, "resource already exists")
	case errors.Is(err, domain.ErrInvalidTransition):
		writeError(w, http.StatusConflict, "invalid status transition")
	case errors.Is(err, domain.ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, "rate limited")
	case errors.Is(err, domain.ErrServiceUnavailable):
		writeError(w, http.StatusServiceUnavailable, "service unavailable")
	case errors.Is(err, temporal.ErrWorkflowNotFound):
		writeError(w, http.StatusNotFound, "workflow not found")
	case errors.Is(err, temporal.ErrInvalidArgument):
		writeError(w, http.StatusBadRequest, "invalid argument")
	case errors.Is(err, temporal.ErrConnectionFailed),
		errors.Is(err, temporal.ErrClientClosed),
		errors.Is(err, temporal.ErrDeadlineExceeded):
		writeError(w, http.StatusServiceUnavailable, "workflow service unavailable")
	case errors.Is(err, temporal.ErrQueryFailed):
		writeError(w, http.StatusBadGateway, "workflow query failed")
	default:
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// parseUUID parses a UUID from a string, writing a 400 error response if invalid.
// Returns the parsed UUID and true on success, or uuid.Nil and false on failure.
// The parse error details are not included to avoid echoing potentially malicious input.
func parseUUID(w http.ResponseWriter, s, fieldName string) (uuid.UUID, bool) {
	id, err := uuid.Parse(s)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("%s must be a valid UUID", fieldName))
		return uuid.Nil, false
	}
	return id, true
}

// parsePaginationParams extracts page_size and page_token from query parameters.
// It applies default and maximum bounds to the page size.
func parsePaginationParams(r *http.Request) (limit, offset int) {
	limit = defaultPageSize
	if pageSizeStr := r.URL.Query().Get("page_size"); pageSizeStr != "" {
		if parsed, err := strconv.Atoi(pageSizeStr); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	if pageToken := r.URL.Query().Get("page_token"); pageToken != "" {
		decoded, err := base64.StdEncoding.DecodeString(pageToken)
		if err == nil {
			if parsed, parseErr := strconv.Atoi(string(decoded)); parseErr == nil && parsed > 0 {
				offset = parsed
			}
		}
	}

	return limit, offset
}

// encodeHTTPPageToken encodes the next offset as a base64 page token.
// Returns an empty string if there are no more results.
func encodeHTTPPageToken(offset, limit, totalCount int) string {
	nextOffset := offset + limit
	if nextOffset < totalCount {
		return base64.StdEncoding.EncodeToString([]byte(strconv.Itoa(nextOffset)))
	}
	return ""
}
