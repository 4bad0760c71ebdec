package activities

import (
	"context"
	"fmt"

	"go.temporal.io/sdk/activity"

	"github.com/helixir/helpdesk-triage-service/internal/domain"
	"github.com/helixir/helpdesk-triage-service/internal/observability"
	"github.com/helixir/helpdesk-triage-service/internal/outbox"
)

// EventPublisher is the interface used by EventActivities to publish events.
type EventPublisher interface {
	Publish(ctx context.Context, params outbox.EmitParams) error
}

// EventActivities publishes triage outcome events. Methods on this struct are
// registered as Temporal activities via the worker.
type EventActivities struct {
	publisher EventPublisher
	metrics   *observability.Metrics
}

// NewEventActivities creates a new EventActivities with the given publisher.
func NewEventActivities(publisher EventPublisher, metrics *observability.Metrics) *EventActivities {
	return &EventActivities{publisher: publisher, metrics: metrics}
}

// PublishTriageEvent publishes ticket.triage_completed or ticket.triage_failed
// and records the run's outcome metrics. The workflow calls it with
// fire-and-forget semantics.
func (a *EventActivities) PublishTriageEvent(ctx context.Context, input PublishTriageEventInput) error {
	logger := activity.GetLogger(ctx)

	var payload any
	switch input.EventType {
	case domain.EventTypeTriageCompleted:
		if input.Completed == nil {
			return fmt.Errorf("publish %s: missing payload", input.EventType)
		}
		payload = input.Completed
	case domain.EventTypeTriageFailed:
		if input.Failed == nil {
			return fmt.Errorf("publish %s: missing payload", input.EventType)
		}
		payload = input.Failed
	default:
		return fmt.Errorf("publish event: unknown type %q", input.EventType)
	}

	info := activity.GetInfo(ctx)

	// Outcome metrics are recorded on the first attempt only.
	if a.metrics != nil && info.Attempt == 1 {
		if input.Completed != nil {
			a.metrics.RecordTriageCompleted(string(input.Completed.Status), input.DurationSeconds)
		} else {
			a.metrics.RecordTriageFailed(input.Failed.Stage, input.DurationSeconds)
		}
	}

	err := a.publisher.Publish(ctx, outbox.EmitParams{
		TicketID:      input.TicketID.String(),
		EventType:     input.EventType,
		Payload:       payload,
		CorrelationID: info.WorkflowExecution.ID,
		TraceID:       info.WorkflowExecution.RunID,
	})
	if err != nil {
		if a.metrics != nil {
			a.metrics.RecordEventPublished(input.EventType, "failed")
		}
		logger.Error("failed to publish event", "eventType", input.EventType, "ticketID", input.TicketID, "error", err)
		return fmt.Errorf("publish event %s: %w", input.EventType, err)
	}

	if a.metrics != nil {
		a.metrics.RecordEventPublished(input.EventType, "published")
	}
	logger.Info("event published", "eventType", input.EventType, "ticketID", input.TicketID)
	return nil
}
