package activities

import (
	"context"
	"fmt"

	"go.temporal.io/sdk/activity"

	"github.com/helixir/helpdesk-triage-service/internal/domain"
	"github.com/helixir/helpdesk-triage-service/internal/observability"
	"github.com/helixir/helpdesk-triage-service/internal/temporal/resilience"
)

// HandlerSelector picks the handler for a set of skills.
type HandlerSelector interface {
	Assign(ctx context.Context, skills []string) (*domain.User, error)
}

// AssignmentActivities selects ticket handlers.
type AssignmentActivities struct {
	selector HandlerSelector
	metrics  *observability.Metrics
}

// NewAssignmentActivities creates a new AssignmentActivities instance.
func NewAssignmentActivities(selector HandlerSelector, metrics *observability.Metrics) *AssignmentActivities {
	return &AssignmentActivities{selector: selector, metrics: metrics}
}

// SelectHandler returns a moderator sharing one of the skills, else an admin,
// else no handler. Store errors are returned for the retry policy.
func (a *AssignmentActivities) SelectHandler(ctx context.Context, input SelectHandlerInput) (*SelectHandlerOutput, error) {
	logger := activity.GetLogger(ctx)

	handler, err := a.selector.Assign(ctx, input.Skills)
	if err != nil {
		logger.Error("handler selection failed", "ticketID", input.TicketID, "error", err)
		return nil, resilience.ToActivityError(fmt.Errorf("select handler: %w", err))
	}

	out := &SelectHandlerOutput{Handler: handler, Outcome: AssignmentNone}
	if handler != nil {
		out.Outcome = string(handler.Role)
	}

	if a.metrics != nil {
		a.metrics.RecordAssignment(out.Outcome)
	}

	if handler == nil {
		logger.Info("no handler available, ticket stays unassigned", "ticketID", input.TicketID)
	} else {
		logger.Info("handler selected",
			"ticketID", input.TicketID,
			"handlerID", handler.ID,
			"role", handler.Role,
		)
	}
	return out, nil
}
