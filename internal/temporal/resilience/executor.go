package resilience

import (
	"fmt"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// StepResult contains the outcome of a step execution.
type StepResult struct {
	// Failed is true when a critical step failed. The workflow should call
	// its failure handler with Err.
	Failed bool

	// Skipped is true when a best-effort step failed. The workflow continues.
	Skipped bool

	// Err is the error that ended the step. Non-nil when Failed or Skipped is true.
	Err error
}

// Progress records which step a workflow is in, for the progress query.
type Progress struct {
	// Stage is the name of the step currently running.
	Stage string

	// LastError is the most recent step error, including skipped ones.
	LastError string

	// SkippedSteps lists best-effort steps that failed.
	SkippedSteps []string
}

// ExecuteStep runs fn under the step's activity options. Retries happen inside
// Temporal according to cfg's retry policy; ExecuteStep only decides what a
// final error means for the workflow based on cfg.Criticality.
func ExecuteStep(ctx workflow.Context, cfg StepConfig, progress *Progress, fn func(workflow.Context) error) StepResult {
	logger := workflow.GetLogger(ctx)

	if progress != nil {
		progress.Stage = cfg.Name
	}

	stepCtx := workflow.WithActivityOptions(ctx, cfg.ActivityOptions())
	err := fn(stepCtx)
	if err == nil {
		return StepResult{}
	}

	if progress != nil {
		progress.LastError = err.Error()
	}

	// Cancellation is never degraded into a skip.
	if temporal.IsCanceledError(err) || ctx.Err() != nil {
		return StepResult{Failed: true, Err: fmt.Errorf("%s: cancelled: %w", cfg.Name, err)}
	}

	category := Classify(err)
	logger.Warn("step failed",
		"step", cfg.Name,
		"criticality", cfg.Criticality.String(),
		"errorCategory", category.String(),
		"errorType", ErrorType(err),
		"error", err,
	)

	if cfg.Criticality == BestEffort {
		if progress != nil {
			progress.SkippedSteps = append(progress.SkippedSteps, cfg.Name)
		}
		return StepResult{Skipped: true, Err: fmt.Errorf("%s: skipped: %w", cfg.Name, err)}
	}
	return StepResult{Failed: true, Err: fmt.Errorf("%s: %w", cfg.Name, err)}
}
