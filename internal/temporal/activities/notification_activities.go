package activities

import (
	"context"
	"fmt"

	"go.temporal.io/sdk/activity"

	"github.com/helixir/helpdesk-triage-service/internal/domain"
	"github.com/helixir/helpdesk-triage-service/internal/notify"
	"github.com/helixir/helpdesk-triage-service/internal/observability"
	"github.com/helixir/helpdesk-triage-service/internal/repository"
	"github.com/helixir/helpdesk-triage-service/internal/temporal/resilience"
)

// Notifier sends triage and signup mail.
type Notifier interface {
	NotifyAssignment(ctx context.Context, a notify.Assignment) (notify.Outcome, error)
	NotifyWelcome(ctx context.Context, user *domain.User) (notify.Outcome, error)
}

// NotificationActivities delivers mail and reads the users it goes to.
type NotificationActivities struct {
	notifier Notifier
	users    repository.UserRepository
	metrics  *observability.Metrics
	enabled  bool
}

// NewNotificationActivities creates a new NotificationActivities instance.
// When enabled is false assignment mail is skipped; welcome mail is always sent.
func NewNotificationActivities(
	notifier Notifier,
	users repository.UserRepository,
	metrics *observability.Metrics,
	enabled bool,
) *NotificationActivities {
	return &NotificationActivities{
		notifier: notifier,
		users:    users,
		metrics:  metrics,
		enabled:  enabled,
	}
}

// NotifyAssignee mails the assigned handler. The workflow treats any error as
// best-effort and continues.
func (a *NotificationActivities) NotifyAssignee(ctx context.Context, input NotifyAssigneeInput) (*NotifyOutput, error) {
	logger := activity.GetLogger(ctx)

	if !a.enabled {
		a.record("assignment", string(notify.OutcomeSkipped))
		return &NotifyOutput{Outcome: string(notify.OutcomeSkipped)}, nil
	}

	outcome, err := a.notifier.NotifyAssignment(ctx, notify.Assignment{
		TicketID:  input.TicketID,
		Title:     input.Title,
		Summary:   input.Summary,
		Priority:  input.Priority,
		Notes:     input.Notes,
		HandlerID: input.HandlerID,
		HandlerTo: input.HandlerEmail,
	})
	if err != nil {
		a.record("assignment", "failed")
		logger.Warn("assignment mail failed", "ticketID", input.TicketID, "error", err)
		return nil, fmt.Errorf("notify assignee: %w", err)
	}

	a.record("assignment", string(outcome))
	logger.Info("assignment notification handled", "ticketID", input.TicketID, "outcome", outcome)
	return &NotifyOutput{Outcome: string(outcome)}, nil
}

// LoadUser reads a user. A missing user is a non-retryable UserNotFound error.
func (a *NotificationActivities) LoadUser(ctx context.Context, input LoadUserInput) (*domain.User, error) {
	user, err := a.users.Get(ctx, input.UserID)
	if err != nil {
		activity.GetLogger(ctx).Error("failed to load user", "userID", input.UserID, "error", err)
		return nil, resilience.ToActivityError(fmt.Errorf("load user: %w", err))
	}
	return user, nil
}

// SendWelcome sends the signup welcome mail.
func (a *NotificationActivities) SendWelcome(ctx context.Context, input SendWelcomeInput) (*NotifyOutput, error) {
	if input.User == nil {
		return nil, resilience.ToActivityError(domain.NewValidationError("user", "is required"))
	}

	outcome, err := a.notifier.NotifyWelcome(ctx, input.User)
	if err != nil {
		a.record("welcome", "failed")
		return nil, fmt.Errorf("send welcome: %w", err)
	}

	a.record("welcome", string(outcome))
	activity.GetLogger(ctx).Info("welcome mail handled", "userID", input.User.ID, "outcome", outcome)
	return &NotifyOutput{Outcome: string(outcome)}, nil
}

func (a *NotificationActivities) record(kind, outcome string) {
	if a.metrics != nil {
		a.metrics.RecordNotification(kind, outcome)
	}
}
