package workflows

import (
	"fmt"

	"github.com/google/uuid"
	"go.temporal.io/sdk/log"
	"go.temporal.io/sdk/workflow"

	"github.com/helixir/helpdesk-triage-service/internal/domain"
	"github.com/helixir/helpdesk-triage-service/internal/notify"
	triagetemporal "github.com/helixir/helpdesk-triage-service/internal/temporal"
	"github.com/helixir/helpdesk-triage-service/internal/temporal/activities"
	"github.com/helixir/helpdesk-triage-service/internal/temporal/resilience"
	"github.com/helixir/helpdesk-triage-service/internal/triage"
)

// Fallback reasons recorded when the classification step yields nothing usable
// without the classifier itself reporting why.
const (
	fallbackReasonStepFailed     = "step_failed"
	fallbackReasonUnusableOutput = "unusable_output"
)

// Workflows holds the triage and welcome workflow definitions. Register the
// methods, not the struct, so the workflow types keep their method names.
type Workflows struct {
	settings Settings
	steps    map[string]resilience.StepConfig
}

// New creates the workflow definitions for the given settings.
func New(settings Settings) *Workflows {
	return &Workflows{
		settings: settings,
		steps:    resilience.DefaultStepConfigs(settings.Steps),
	}
}

// triageState is the mutable state behind the progress query.
type triageState struct {
	progress triagetemporal.TriageProgress
	steps    resilience.Progress
}

func (s *triageState) snapshot() triagetemporal.TriageProgress {
	p := s.progress
	if s.steps.Stage != "" {
		p.Stage = s.steps.Stage
	}
	p.LastError = s.steps.LastError
	p.SkippedSteps = uniqueSorted(s.steps.SkippedSteps)
	return p
}

// TicketTriageWorkflow triages one ticket:
//  1. load the ticket, stopping early if it is already terminal
//  2. classify it, falling back when the classifier yields nothing usable
//  3. persist the classification (in_progress or open), keeping an existing
//     in_progress classification when this run only produced a fallback
//  4. select a handler and persist the assignment, which may be empty
//  5. mail the handler, best-effort
//  6. publish ticket.triage_completed, best-effort
//
// Any critical step that exhausts its retries moves the ticket to error and
// publishes ticket.triage_failed. Every write overwrites its fields, so a
// second run for the same ticket converges to the same record.
func (w *Workflows) TicketTriageWorkflow(ctx workflow.Context, input triagetemporal.TriageInput) (*TriageResult, error) {
	logger := workflow.GetLogger(ctx)
	if input.CorrelationID != "" {
		logger = log.With(logger, "correlationID", input.CorrelationID)
	}
	startTime := workflow.Now(ctx)

	state := &triageState{
		progress: triagetemporal.TriageProgress{TicketID: input.TicketID, Stage: "starting"},
	}
	err := workflow.SetQueryHandler(ctx, triagetemporal.QueryTriageProgress, func() (triagetemporal.TriageProgress, error) {
		return state.snapshot(), nil
	})
	if err != nil {
		logger.Error("failed to register progress query handler", "error", err)
		return nil, fmt.Errorf("register query handler: %w", err)
	}

	var ticketAct *activities.TicketActivities
	var classifyAct *activities.ClassifyActivities
	var assignAct *activities.AssignmentActivities
	var notifyAct *activities.NotificationActivities
	var eventAct *activities.EventActivities

	elapsed := func() float64 {
		return workflow.Now(ctx).Sub(startTime).Seconds()
	}

	var previousStatus domain.TicketStatus

	// handleFailure marks the ticket as errored, publishes the failure and
	// returns the original error. It runs on a disconnected context so a
	// cancelled run still records its outcome.
	handleFailure := func(stage string, originalErr error) (*TriageResult, error) {
		logger.Error("triage failed", "ticketID", input.TicketID, "stage", stage, "error", originalErr)

		failCtx, _ := workflow.NewDisconnectedContext(ctx)
		markCtx := workflow.WithActivityOptions(failCtx, w.steps[resilience.StepMarkError].ActivityOptions())
		err := workflow.ExecuteActivity(markCtx, ticketAct.MarkTicketError, activities.MarkErrorInput{
			TicketID:       input.TicketID,
			PreviousStatus: previousStatus,
			Stage:          stage,
			Reason:         originalErr.Error(),
		}).Get(markCtx, nil)
		if err != nil {
			// The ticket keeps its last status; the run still fails below.
			logger.Error("failed to mark ticket as errored", "ticketID", input.TicketID, "error", err)
		} else {
			state.progress.Status = domain.TicketStatusError
		}

		publishCtx := workflow.WithActivityOptions(failCtx, w.steps[resilience.StepPublish].ActivityOptions())
		_ = workflow.ExecuteActivity(publishCtx, eventAct.PublishTriageEvent, activities.PublishTriageEventInput{
			EventType: domain.EventTypeTriageFailed,
			TicketID:  input.TicketID,
			Failed: &domain.TriageFailedPayload{
				TicketID: input.TicketID,
				Stage:    stage,
				Error:    originalErr.Error(),
			},
			DurationSeconds: elapsed(),
		}).Get(publishCtx, nil)

		state.progress.Done = true
		return nil, originalErr
	}

	// =========================================================================
	// Load
	// =========================================================================

	var ticket domain.Ticket
	res := resilience.ExecuteStep(ctx, w.steps[resilience.StepLoadTicket], &state.steps, func(sctx workflow.Context) error {
		return workflow.ExecuteActivity(sctx, ticketAct.LoadTicket, activities.LoadTicketInput{
			TicketID: input.TicketID,
		}).Get(sctx, &ticket)
	})
	if res.Failed {
		return handleFailure(resilience.StepLoadTicket, res.Err)
	}
	previousStatus = ticket.Status
	state.progress.Status = ticket.Status

	if ticket.Status.IsTerminal() {
		logger.Info("ticket already terminal, skipping triage", "ticketID", ticket.ID, "status", ticket.Status)
		state.progress.Done = true
		return &TriageResult{TicketID: ticket.ID, Status: ticket.Status, Skipped: true}, nil
	}

	// =========================================================================
	// Classify and normalize
	// =========================================================================

	var classified activities.ClassifyOutput
	res = resilience.ExecuteStep(ctx, w.steps[resilience.StepClassify], &state.steps, func(sctx workflow.Context) error {
		return workflow.ExecuteActivity(sctx, classifyAct.ClassifyTicket, activities.ClassifyInput{
			TicketID:    ticket.ID,
			Title:       ticket.Title,
			Description: ticket.Description,
		}).Get(sctx, &classified)
	})
	if res.Failed {
		return handleFailure(resilience.StepClassify, res.Err)
	}

	var raw *domain.ClassificationResult
	var fallbackReason string
	switch {
	case res.Skipped:
		fallbackReason = fallbackReasonStepFailed
	case classified.Failure != nil:
		fallbackReason = string(classified.Failure.Kind)
		logger.Warn("classifier failed, using fallback",
			"ticketID", ticket.ID,
			"kind", classified.Failure.Kind,
			"message", classified.Failure.Message,
		)
	default:
		raw = classified.Result
	}

	outcome := triage.Resolve(raw, w.settings.FallbackMode, ticket.Title, ticket.Description)
	if outcome.UsedFallback && fallbackReason == "" {
		fallbackReason = fallbackReasonUnusableOutput
	}

	// A redelivered run must not replace an AI classification with a fallback.
	keepExisting := ticket.Status == domain.TicketStatusInProgress && outcome.Status != domain.TicketStatusInProgress
	if keepExisting {
		logger.Info("ticket already classified, keeping existing classification",
			"ticketID", ticket.ID,
			"fallbackReason", fallbackReason,
		)
		outcome = existingOutcome(&ticket)
	}
	skills := sortedSkills(outcome.Result.Skills)
	state.progress.UsedFallback = outcome.UsedFallback

	if !keepExisting {
		res = resilience.ExecuteStep(ctx, w.steps[resilience.StepPersistClassification], &state.steps, func(sctx workflow.Context) error {
			return workflow.ExecuteActivity(sctx, ticketAct.SaveTriage, activities.SaveTriageInput{
				TicketID:       ticket.ID,
				PreviousStatus: ticket.Status,
				Status:         outcome.Status,
				Priority:       outcome.Result.Priority,
				Summary:        outcome.Result.Summary,
				Notes:          outcome.Result.Notes,
				Skills:         skills,
				UsedFallback:   outcome.UsedFallback,
				FallbackReason: fallbackReason,
			}).Get(sctx, nil)
		})
		if res.Failed {
			return handleFailure(resilience.StepPersistClassification, res.Err)
		}
	}
	previousStatus = outcome.Status
	state.progress.Status = outcome.Status

	// =========================================================================
	// Assign
	// =========================================================================

	var selected activities.SelectHandlerOutput
	res = resilience.ExecuteStep(ctx, w.steps[resilience.StepAssign], &state.steps, func(sctx workflow.Context) error {
		return workflow.ExecuteActivity(sctx, assignAct.SelectHandler, activities.SelectHandlerInput{
			TicketID: ticket.ID,
			Skills:   skills,
		}).Get(sctx, &selected)
	})
	if res.Failed {
		return handleFailure(resilience.StepAssign, res.Err)
	}

	var assigneeID *uuid.UUID
	if selected.Handler != nil {
		id := selected.Handler.ID
		assigneeID = &id
	}

	res = resilience.ExecuteStep(ctx, w.steps[resilience.StepPersistAssignment], &state.steps, func(sctx workflow.Context) error {
		return workflow.ExecuteActivity(sctx, ticketAct.SaveAssignment, activities.SaveAssignmentInput{
			TicketID:   ticket.ID,
			AssigneeID: assigneeID,
		}).Get(sctx, nil)
	})
	if res.Failed {
		return handleFailure(resilience.StepPersistAssignment, res.Err)
	}
	state.progress.AssigneeID = assigneeID

	// =========================================================================
	// Notify
	// =========================================================================

	notified := false
	if selected.Handler != nil {
		var sent activities.NotifyOutput
		res = resilience.ExecuteStep(ctx, w.steps[resilience.StepNotify], &state.steps, func(sctx workflow.Context) error {
			return workflow.ExecuteActivity(sctx, notifyAct.NotifyAssignee, activities.NotifyAssigneeInput{
				TicketID:     ticket.ID,
				Title:        ticket.Title,
				Summary:      outcome.Result.Summary,
				Priority:     outcome.Result.Priority,
				Notes:        outcome.Result.Notes,
				HandlerID:    selected.Handler.ID,
				HandlerEmail: selected.Handler.Email,
			}).Get(sctx, &sent)
		})
		if res.Failed {
			// Only cancellation fails a best-effort step.
			return handleFailure(resilience.StepNotify, res.Err)
		}
		notified = !res.Skipped && sent.Outcome == string(notify.OutcomeSent)
	}

	// =========================================================================
	// Publish
	// =========================================================================

	completed := &domain.TriageCompletedPayload{
		TicketID:     ticket.ID,
		Status:       outcome.Status,
		Priority:     outcome.Result.Priority,
		Skills:       skills,
		AssigneeID:   assigneeID,
		UsedFallback: outcome.UsedFallback,
		Notified:     notified,
	}
	res = resilience.ExecuteStep(ctx, w.steps[resilience.StepPublish], &state.steps, func(sctx workflow.Context) error {
		return workflow.ExecuteActivity(sctx, eventAct.PublishTriageEvent, activities.PublishTriageEventInput{
			EventType:       domain.EventTypeTriageCompleted,
			TicketID:        ticket.ID,
			Completed:       completed,
			DurationSeconds: elapsed(),
		}).Get(sctx, nil)
	})
	if res.Failed {
		return handleFailure(resilience.StepPublish, res.Err)
	}

	state.progress.Stage = "completed"
	state.steps.Stage = ""
	state.progress.Done = true

	logger.Info("triage completed",
		"ticketID", ticket.ID,
		"status", outcome.Status,
		"priority", outcome.Result.Priority,
		"assigned", assigneeID != nil,
		"usedFallback", outcome.UsedFallback,
		"notified", notified,
	)

	return &TriageResult{
		TicketID:     ticket.ID,
		Status:       outcome.Status,
		Priority:     outcome.Result.Priority,
		Skills:       skills,
		AssigneeID:   assigneeID,
		UsedFallback: outcome.UsedFallback,
		Notified:     notified,
		SkippedSteps: uniqueSorted(state.steps.SkippedSteps),
	}, nil
}

// existingOutcome rebuilds the outcome already stored on a classified ticket.
func existingOutcome(t *domain.Ticket) triage.Outcome {
	return triage.Outcome{
		Result: domain.NormalizedResult{
			Summary:  t.Summary,
			Priority: t.Priority,
			Notes:    t.Notes,
			Skills:   t.RequiredSkills,
		},
		Status: t.Status,
	}
}
