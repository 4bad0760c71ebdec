// Package domain provides the ticket, user, and classification models of the triage service.
package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// TicketStatus is the lifecycle state of a support ticket.
type TicketStatus string

// Ticket status constants.
const (
	// TicketStatusProcessing is set by intake before triage starts.
	TicketStatusProcessing TicketStatus = "processing"
	// TicketStatusOpen means triage finished without a usable AI classification.
	TicketStatusOpen TicketStatus = "open"
	// TicketStatusInProgress means triage finished with an AI classification.
	TicketStatusInProgress TicketStatus = "in_progress"
	// TicketStatusResolved is set by a human handler.
	TicketStatusResolved TicketStatus = "resolved"
	// TicketStatusClosed is set by a human handler.
	TicketStatusClosed TicketStatus = "closed"
	// TicketStatusError means triage halted on an unexpected failure.
	TicketStatusError TicketStatus = "error"
)

// validTransitions lists the statuses reachable from each status.
// A re-run of triage may rewrite Open, and may rewrite InProgress only with
// another AI classification; a fallback never downgrades InProgress to Open.
var validTransitions = map[TicketStatus][]TicketStatus{
	TicketStatusProcessing: {TicketStatusOpen, TicketStatusInProgress, TicketStatusError},
	TicketStatusOpen: {
		TicketStatusOpen, TicketStatusInProgress,
		TicketStatusResolved, TicketStatusClosed, TicketStatusError,
	},
	TicketStatusInProgress: {
		TicketStatusInProgress,
		TicketStatusResolved, TicketStatusClosed, TicketStatusError,
	},
}

// IsTerminal reports whether no further automated transition may leave this status.
func (s TicketStatus) IsTerminal() bool {
	switch s {
	case TicketStatusResolved, TicketStatusClosed, TicketStatusError:
		return true
	default:
		return false
	}
}

// IsValid reports whether s is a known status.
func (s TicketStatus) IsValid() bool {
	switch s {
	case TicketStatusProcessing, TicketStatusOpen, TicketStatusInProgress,
		TicketStatusResolved, TicketStatusClosed, TicketStatusError:
		return true
	default:
		return false
	}
}

// CanTransition reports whether a ticket in status from may move to status to.
func CanTransition(from, to TicketStatus) bool {
	for _, allowed := range validTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Priority is the urgency of a ticket.
type Priority string

// Priority constants.
const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// DefaultPriority is used whenever no valid priority is available.
const DefaultPriority = PriorityMedium

// ParsePriority matches raw case-insensitively against the known priorities.
func ParsePriority(raw string) (Priority, bool) {
	switch Priority(strings.ToLower(strings.TrimSpace(raw))) {
	case PriorityLow:
		return PriorityLow, true
	case PriorityMedium:
		return PriorityMedium, true
	case PriorityHigh:
		return PriorityHigh, true
	default:
		return DefaultPriority, false
	}
}

// Ticket is a unit of submitted support work.
type Ticket struct {
	ID             uuid.UUID    `json:"id"`
	Title          string       `json:"title"`
	Description    string       `json:"description"`
	Status         TicketStatus `json:"status"`
	Priority       Priority     `json:"priority"`
	Summary        string       `json:"summary,omitempty"`
	Notes          string       `json:"notes,omitempty"`
	RequiredSkills []string     `json:"required_skills"`
	AssigneeID     *uuid.UUID   `json:"assignee_id,omitempty"`
	CreatedBy      uuid.UUID    `json:"created_by"`
	ErrorReason    string       `json:"error_reason,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

// NewTicket returns a ticket in the processing state, ready for triage.
func NewTicket(title, description string, createdBy uuid.UUID) *Ticket {
	now := time.Now().UTC()
	return &Ticket{
		ID:             uuid.New(),
		Title:          title,
		Description:    description,
		Status:         TicketStatusProcessing,
		Priority:       DefaultPriority,
		RequiredSkills: []string{},
		CreatedBy:      createdBy,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// Validate checks the fields intake is responsible for.
func (t *Ticket) Validate() error {
	if strings.TrimSpace(t.Title) == "" {
		return NewValidationError("title", "must not be empty")
	}
	if strings.TrimSpace(t.Description) == "" {
		return NewValidationError("description", "must not be empty")
	}
	if !t.Status.IsValid() {
		return NewValidationError("status", "unknown status "+string(t.Status))
	}
	if _, ok := ParsePriority(string(t.Priority)); !ok {
		return NewValidationError("priority", "unknown priority "+string(t.Priority))
	}
	return nil
}
