package activities

import (
	"context"
	"fmt"

	"go.temporal.io/sdk/activity"

	"github.com/helixir/helpdesk-triage-service/internal/domain"
	"github.com/helixir/helpdesk-triage-service/internal/observability"
	"github.com/helixir/helpdesk-triage-service/internal/repository"
	"github.com/helixir/helpdesk-triage-service/internal/temporal/resilience"
)

// TicketActivities reads and writes tickets on behalf of the triage workflow.
// Every write is a full overwrite, so an activity retried after a lost
// response converges to the same row.
type TicketActivities struct {
	tickets repository.TicketRepository
	metrics *observability.Metrics
}

// NewTicketActivities creates a new TicketActivities instance.
// The metrics parameter may be nil (metrics recording will be skipped).
func NewTicketActivities(tickets repository.TicketRepository, metrics *observability.Metrics) *TicketActivities {
	return &TicketActivities{tickets: tickets, metrics: metrics}
}

// LoadTicket reads the ticket a triage run works on. A missing ticket is a
// non-retryable TicketNotFound error.
func (a *TicketActivities) LoadTicket(ctx context.Context, input LoadTicketInput) (*domain.Ticket, error) {
	logger := activity.GetLogger(ctx)

	ticket, err := a.tickets.Get(ctx, input.TicketID)
	if err != nil {
		logger.Error("failed to load ticket", "ticketID", input.TicketID, "error", err)
		return nil, resilience.ToActivityError(fmt.Errorf("load ticket: %w", err))
	}

	if a.metrics != nil {
		if ticket.Status.IsTerminal() {
			a.metrics.RecordTriageSkipped()
		} else {
			a.metrics.RecordTriageStarted()
		}
	}

	logger.Info("ticket loaded", "ticketID", ticket.ID, "status", ticket.Status)
	return ticket, nil
}

// SaveTriage persists the classification outcome.
func (a *TicketActivities) SaveTriage(ctx context.Context, input SaveTriageInput) error {
	logger := activity.GetLogger(ctx)
	logger.Info("saving triage result",
		"ticketID", input.TicketID,
		"status", input.Status,
		"priority", input.Priority,
		"skillCount", len(input.Skills),
		"usedFallback", input.UsedFallback,
	)

	err := a.tickets.SaveTriage(ctx, input.TicketID, repository.TriageUpdate{
		Status:         input.Status,
		Priority:       input.Priority,
		Summary:        input.Summary,
		Notes:          input.Notes,
		RequiredSkills: input.Skills,
	})
	if err != nil {
		logger.Error("failed to save triage result", "ticketID", input.TicketID, "error", err)
		return resilience.ToActivityError(fmt.Errorf("save triage: %w", err))
	}

	if a.metrics != nil {
		a.metrics.RecordSkills(len(input.Skills))
		if input.UsedFallback {
			a.metrics.RecordFallback(input.FallbackReason)
		}
		if input.PreviousStatus != "" {
			a.metrics.RecordStatusTransition(string(input.PreviousStatus), string(input.Status))
		}
	}
	return nil
}

// SaveAssignment persists the assignee. A handler deleted between selection
// and this write surfaces as a non-retryable HandlerNotFound error.
func (a *TicketActivities) SaveAssignment(ctx context.Context, input SaveAssignmentInput) error {
	logger := activity.GetLogger(ctx)

	err := a.tickets.SaveAssignment(ctx, input.TicketID, input.AssigneeID)
	if err != nil {
		logger.Error("failed to save assignment", "ticketID", input.TicketID, "error", err)
		if nf, ok := asNotFound(err); ok && nf.Entity == "user" {
			return resilience.HandlerNotFound(fmt.Errorf("save assignment: %w", err))
		}
		return resilience.ToActivityError(fmt.Errorf("save assignment: %w", err))
	}

	logger.Info("assignment saved", "ticketID", input.TicketID, "assigned", input.AssigneeID != nil)
	return nil
}

// MarkTicketError moves the ticket to the error status. It is called from the
// workflow's failure path; a ticket that no longer exists is left alone.
func (a *TicketActivities) MarkTicketError(ctx context.Context, input MarkErrorInput) error {
	logger := activity.GetLogger(ctx)
	logger.Warn("marking ticket as errored",
		"ticketID", input.TicketID,
		"stage", input.Stage,
		"reason", input.Reason,
	)

	err := a.tickets.MarkError(ctx, input.TicketID, input.Reason)
	if err != nil {
		return resilience.ToActivityError(fmt.Errorf("mark ticket error: %w", err))
	}

	if a.metrics != nil {
		from := string(input.PreviousStatus)
		if from == "" {
			from = "unknown"
		}
		a.metrics.RecordStatusTransition(from, string(domain.TicketStatusError))
	}
	return nil
}
