// Package activities provides Temporal activity implementations for the
// ticket triage and welcome workflows.
//
// Activity inputs and outputs are serializable structs that cross the
// Temporal serialization boundary. All fields must be exported for JSON
// serialization by the Temporal SDK's default data converter.
package activities

import (
	"github.com/google/uuid"

	"github.com/helixir/helpdesk-triage-service/internal/domain"
	"github.com/helixir/helpdesk-triage-service/internal/llm"
)

// LoadTicketInput identifies the ticket to read.
type LoadTicketInput struct {
	TicketID uuid.UUID
}

// ClassifyInput contains the ticket text sent to the classifier.
type ClassifyInput struct {
	TicketID    uuid.UUID
	Title       string
	Description string
}

// ClassifyOutput carries either a raw classification or the reason there is none.
// Exactly one of Result and Failure is set.
type ClassifyOutput struct {
	Result   *domain.ClassificationResult
	Failure  *llm.ClassifierFailure
	Provider string
	Model    string
}

// SaveTriageInput is the classification outcome to persist.
type SaveTriageInput struct {
	TicketID       uuid.UUID
	PreviousStatus domain.TicketStatus
	Status         domain.TicketStatus
	Priority       domain.Priority
	Summary        string
	Notes          string
	Skills         []string

	// UsedFallback and FallbackReason only feed metrics.
	UsedFallback   bool
	FallbackReason string
}

// SelectHandlerInput contains the skills a handler should have.
type SelectHandlerInput struct {
	TicketID uuid.UUID
	Skills   []string
}

// Assignment outcomes.
const (
	AssignmentModerator = "moderator"
	AssignmentAdmin     = "admin"
	AssignmentNone      = "none"
)

// SelectHandlerOutput is the chosen handler, if any.
type SelectHandlerOutput struct {
	Handler *domain.User
	Outcome string
}

// SaveAssignmentInput overwrites the ticket's assignee.
type SaveAssignmentInput struct {
	TicketID   uuid.UUID
	AssigneeID *uuid.UUID
}

// MarkErrorInput moves a ticket to the error status.
type MarkErrorInput struct {
	TicketID       uuid.UUID
	PreviousStatus domain.TicketStatus
	Stage          string
	Reason         string
}

// NotifyAssigneeInput is the assignment mail to send.
type NotifyAssigneeInput struct {
	TicketID     uuid.UUID
	Title        string
	Summary      string
	Priority     domain.Priority
	Notes        string
	HandlerID    uuid.UUID
	HandlerEmail string
}

// NotifyOutput reports what the dispatcher did.
type NotifyOutput struct {
	Outcome string
}

// LoadUserInput identifies a user.
type LoadUserInput struct {
	UserID uuid.UUID
}

// SendWelcomeInput is the user to greet.
type SendWelcomeInput struct {
	User *domain.User
}

// PublishTriageEventInput describes the outcome event of one triage run.
type PublishTriageEventInput struct {
	EventType string
	TicketID  uuid.UUID

	// Completed carries the payload of ticket.triage_completed events.
	Completed *domain.TriageCompletedPayload
	// Failed carries the payload of ticket.triage_failed events.
	Failed *domain.TriageFailedPayload

	// DurationSeconds is the workflow run time so far, for metrics.
	DurationSeconds float64
}
