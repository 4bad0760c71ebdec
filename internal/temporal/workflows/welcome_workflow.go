package workflows

import (
	"fmt"

	"go.temporal.io/sdk/workflow"

	"github.com/helixir/helpdesk-triage-service/internal/domain"
	triagetemporal "github.com/helixir/helpdesk-triage-service/internal/temporal"
	"github.com/helixir/helpdesk-triage-service/internal/temporal/activities"
	"github.com/helixir/helpdesk-triage-service/internal/temporal/resilience"
)

// WelcomeWorkflow sends the signup welcome mail to a new user. A user that
// does not exist fails the run without retries.
func (w *Workflows) WelcomeWorkflow(ctx workflow.Context, input triagetemporal.WelcomeInput) (*WelcomeResult, error) {
	logger := workflow.GetLogger(ctx)
	var notifyAct *activities.NotificationActivities

	var user domain.User
	res := resilience.ExecuteStep(ctx, w.steps[resilience.StepLoadUser], nil, func(sctx workflow.Context) error {
		return workflow.ExecuteActivity(sctx, notifyAct.LoadUser, activities.LoadUserInput{
			UserID: input.UserID,
		}).Get(sctx, &user)
	})
	if res.Failed {
		return nil, fmt.Errorf("welcome %s: %w", input.UserID, res.Err)
	}

	var sent activities.NotifyOutput
	res = resilience.ExecuteStep(ctx, w.steps[resilience.StepSendWelcome], nil, func(sctx workflow.Context) error {
		return workflow.ExecuteActivity(sctx, notifyAct.SendWelcome, activities.SendWelcomeInput{
			User: &user,
		}).Get(sctx, &sent)
	})
	if res.Failed {
		return nil, fmt.Errorf("welcome %s: %w", input.UserID, res.Err)
	}

	logger.Info("welcome handled", "userID", input.UserID, "outcome", sent.Outcome)
	return &WelcomeResult{UserID: input.UserID, Outcome: sent.Outcome}, nil
}
