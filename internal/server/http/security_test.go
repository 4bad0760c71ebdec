package httpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/helixir/helpdesk-triage-service/internal/domain"
)

// TestSQLInjection_TicketFields verifies that SQL payloads in ticket fields
// are stored verbatim and never cause a 500.
func TestSQLInjection_TicketFields(t *testing.T) {
	payloads := []struct {
		name  string
		value string
	}{
		{"drop table", "'; DROP TABLE tickets; --"},
		{"boolean tautology", "1 OR 1=1"},
		{"union select", "' UNION SELECT * FROM users --"},
		{"stacked queries", "'; UPDATE users SET role='admin'; --"},
		{"batch separator", "title\nGO\nDROP TABLE tickets"},
	}

	for _, tc := range payloads {
		t.Run(tc.name, func(t *testing.T) {
			var stored *domain.Ticket
			tickets := &mockTicketRepo{
				createFn: func(_ context.Context, ticket *domain.Ticket) error {
					stored = ticket
					return nil
				},
			}
			srv := newTestHTTPServer(&mockWorkflowClient{}, tickets, &mockUserRepo{})

			body, _ := json.Marshal(map[string]string{
				"title":       tc.value,
				"description": tc.value,
				"created_by":  uuid.New().String(),
			})
			rr := serveHTTP(srv, postJSON("/api/v1/tickets", string(body)))

			if rr.Code != http.StatusCreated {
				t.Fatalf("expected status 201, got %d: %s", rr.Code, rr.Body.String())
			}
			if stored.Title != strings.TrimSpace(tc.value) {
				t.Errorf("expected title stored verbatim, got %q", stored.Title)
			}
		})
	}
}

// TestXSSPayload_IsEscapedInResponses verifies that markup stored in a ticket
// comes back JSON-escaped.
func TestXSSPayload_IsEscapedInResponses(t *testing.T) {
	ticket := sampleTicket(domain.TicketStatusOpen)
	ticket.Title = `<script>alert("x")</script>`
	tickets := &mockTicketRepo{
		getFn: func(_ context.Context, _ uuid.UUID) (*domain.Ticket, error) { return ticket, nil },
	}
	srv := newTestHTTPServer(&mockWorkflowClient{}, tickets, &mockUserRepo{})

	rr := serveHTTP(srv, httptest.NewRequest(http.MethodGet, "/api/v1/tickets/"+ticket.ID.String(), nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if strings.Contains(rr.Body.String(), "<script>") {
		t.Errorf("response contains unescaped markup: %s", rr.Body.String())
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected application/json, got %q", ct)
	}
}

// TestInvalidPathIDs_NotEchoed verifies that malformed IDs are rejected
// without reflecting the input.
func TestInvalidPathIDs_NotEchoed(t *testing.T) {
	srv := newTestHTTPServer(&mockWorkflowClient{}, &mockTicketRepo{}, &mockUserRepo{})
	for _, path := range []string{
		"/api/v1/tickets/%3Cimg%20src%3Dx%3E",
		"/api/v1/tickets/1%20OR%201%3D1/triage",
		"/api/v1/users/abc%27%3B--",
	} {
		rr := serveHTTP(srv, httptest.NewRequest(http.MethodGet, path, nil))
		if rr.Code != http.StatusBadRequest {
			t.Errorf("%s: expected status 400, got %d", path, rr.Code)
		}
		if strings.Contains(rr.Body.String(), "<img") || strings.Contains(rr.Body.String(), "OR 1=1") {
			t.Errorf("%s: response echoes input: %s", path, rr.Body.String())
		}
	}
}

// TestWriteDomainError_NeverLeaksInternalDetails ensures that writeDomainError
// maps arbitrary error messages to generic responses and never reflects internal
// error text in the response body.
func TestWriteDomainError_NeverLeaksInternalDetails(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		expectedStatus int
		expectedBody   string
	}{
		{
			name:           "generic error with DB details",
			err:            fmt.Errorf("FATAL: password authentication failed for user \"admin\""),
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   "internal server error",
		},
		{
			name:           "wrapped postgres error",
			err:            fmt.Errorf("repository: %w", fmt.Errorf("relation \"tickets\" does not exist")),
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   "internal server error",
		},
		{
			name:           "not found with id",
			err:            fmt.Errorf("load: %w", domain.NewNotFoundError("ticket", "secret-id-123")),
			expectedStatus: http.StatusNotFound,
			expectedBody:   "resource not found",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			writeDomainError(rr, tc.err)

			if rr.Code != tc.expectedStatus {
				t.Errorf("expected status %d, got %d", tc.expectedStatus, rr.Code)
			}

			var resp map[string]string
			if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if resp["error"] != tc.expectedBody {
				t.Errorf("expected error %q, got %q", tc.expectedBody, resp["error"])
			}
			if strings.Contains(rr.Body.String(), tc.err.Error()) {
				t.Errorf("response body contains raw error message: %s", rr.Body.String())
			}
		})
	}

	rr := httptest.NewRecorder()
	writeDomainError(rr, nil)
	if rr.Code != http.StatusOK || rr.Body.Len() != 0 {
		t.Errorf("expected nil error to be a no-op")
	}
}
