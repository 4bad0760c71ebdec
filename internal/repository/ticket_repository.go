package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/helixir/helpdesk-triage-service/internal/domain"
)

// TicketRepository handles ticket persistence. Every write is a full
// overwrite of the fields it owns, so repeating a write with the same
// arguments leaves the row unchanged.
type TicketRepository interface {
	// Create inserts a new ticket.
	// Returns domain.ErrInvalidInput if the ticket fails validation and
	// domain.ErrAlreadyExists if the ID is taken.
	Create(ctx context.Context, ticket *domain.Ticket) error

	// Get retrieves a ticket by ID.
	// Returns domain.ErrNotFound if no ticket exists.
	Get(ctx context.Context, id uuid.UUID) (*domain.Ticket, error)

	// SaveTriage overwrites status, priority, summary, notes and required
	// skills under a row lock after checking the status transition.
	// Returns domain.ErrNotFound or domain.ErrInvalidTransition.
	SaveTriage(ctx context.Context, id uuid.UUID, update TriageUpdate) error

	// SaveAssignment overwrites the assignee (nil clears it).
	// Returns domain.ErrNotFound if no ticket exists.
	SaveAssignment(ctx context.Context, id uuid.UUID, assigneeID *uuid.UUID) error

	// MarkError moves the ticket to the error status with priority reset to
	// medium. Marking a ticket that is already in error only refreshes the reason.
	// Returns domain.ErrNotFound or domain.ErrInvalidTransition.
	MarkError(ctx context.Context, id uuid.UUID, reason string) error

	// List returns tickets matching the filter, newest first, and the total
	// number of matches.
	List(ctx context.Context, filter TicketFilter) ([]*domain.Ticket, int64, error)
}

// TriageUpdate carries the classification outcome written to a ticket.
type TriageUpdate struct {
	Status         domain.TicketStatus
	Priority       domain.Priority
	Summary        string
	Notes          string
	RequiredSkills []string
}

// TicketFilter specifies criteria for listing tickets.
type TicketFilter struct {
	// Status filters by one or more statuses (optional).
	Status []domain.TicketStatus
	// AssigneeID filters by assigned handler (optional).
	AssigneeID *uuid.UUID
	// Limit specifies maximum number of results (default: 50, max: 500).
	Limit int
	// Offset specifies number of results to skip.
	Offset int
}

// Validate checks the filter and applies pagination defaults.
func (f *TicketFilter) Validate() error {
	for _, s := range f.Status {
		if !s.IsValid() {
			return domain.NewValidationError("status", "unknown status "+string(s))
		}
	}
	applyPaginationDefaults(&f.Limit, &f.Offset)
	return nil
}
