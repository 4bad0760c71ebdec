package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Inbound event types consumed from the intake topic.
const (
	EventTypeTicketCreated = "ticket.created"
	EventTypeUserSignedUp  = "user.signed_up"
)

// Outbound event types published after triage.
const (
	EventTypeTriageCompleted = "ticket.triage_completed"
	EventTypeTriageFailed    = "ticket.triage_failed"
)

// EventEnvelope is the wire shape of intake messages.
type EventEnvelope struct {
	Type       string          `json:"type"`
	Data       json.RawMessage `json:"data"`
	OccurredAt time.Time       `json:"occurred_at,omitempty"`
}

// TicketCreatedEvent triggers triage. It may be delivered more than once for the same ticket.
type TicketCreatedEvent struct {
	TicketID    uuid.UUID `json:"ticketId"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	CreatedBy   uuid.UUID `json:"createdBy"`
}

// UserSignedUpEvent triggers the welcome mail.
type UserSignedUpEvent struct {
	UserID uuid.UUID `json:"userId"`
}

// TriageCompletedPayload is the payload for ticket.triage_completed events.
type TriageCompletedPayload struct {
	TicketID     uuid.UUID    `json:"ticket_id"`
	Status       TicketStatus `json:"status"`
	Priority     Priority     `json:"priority"`
	Skills       []string     `json:"skills"`
	AssigneeID   *uuid.UUID   `json:"assignee_id,omitempty"`
	UsedFallback bool         `json:"used_fallback"`
	Notified     bool         `json:"notified"`
}

// TriageFailedPayload is the payload for ticket.triage_failed events.
type TriageFailedPayload struct {
	TicketID uuid.UUID `json:"ticket_id"`
	Stage    string    `json:"stage"`
	Error    string    `json:"error"`
}
