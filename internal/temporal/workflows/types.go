// Package workflows defines the Temporal workflows of the triage pipeline.
package workflows

import (
	"github.com/google/uuid"

	"github.com/helixir/helpdesk-triage-service/internal/domain"
	"github.com/helixir/helpdesk-triage-service/internal/temporal/resilience"
	"github.com/helixir/helpdesk-triage-service/internal/triage"
)

// Settings are the worker-side knobs the workflows read. They must not change
// between a run and its replay in ways that alter the command sequence; the
// fallback mode and retry settings only change activity inputs and options.
type Settings struct {
	// FallbackMode decides what replaces an unusable classification.
	FallbackMode triage.FallbackMode
	// Steps sizes the per-step retry policies.
	Steps resilience.StepSettings
}

// TriageResult is what TicketTriageWorkflow returns.
type TriageResult struct {
	TicketID     uuid.UUID           `json:"ticket_id"`
	Status       domain.TicketStatus `json:"status"`
	Priority     domain.Priority     `json:"priority,omitempty"`
	Skills       []string            `json:"skills,omitempty"`
	AssigneeID   *uuid.UUID          `json:"assignee_id,omitempty"`
	UsedFallback bool                `json:"used_fallback"`
	Notified     bool                `json:"notified"`
	// Skipped is true when the ticket was already terminal and nothing ran.
	Skipped      bool     `json:"skipped"`
	SkippedSteps []string `json:"skipped_steps,omitempty"`
}

// WelcomeResult is what WelcomeWorkflow returns.
type WelcomeResult struct {
	UserID  uuid.UUID `json:"user_id"`
	Outcome string    `json:"outcome"`
}
