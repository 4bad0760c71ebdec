package activities

import (
	"context"
	"time"

	"go.temporal.io/sdk/activity"

	"github.com/helixir/helpdesk-triage-service/internal/llm"
	"github.com/helixir/helpdesk-triage-service/internal/observability"
)

// TicketClassifier is the classifier adapter as seen by the activity.
type TicketClassifier interface {
	Classify(ctx context.Context, title, description string) (*llm.Classification, *llm.ClassifierFailure)
	Provider() string
	Model() string
}

// ClassifyActivities runs the external classifier.
type ClassifyActivities struct {
	classifier TicketClassifier
	metrics    *observability.Metrics
}

// NewClassifyActivities creates a new ClassifyActivities instance. A nil
// classifier makes every call report an auth failure, which sends tickets
// down the fallback path; the service runs this way without an API key.
func NewClassifyActivities(classifier TicketClassifier, metrics *observability.Metrics) *ClassifyActivities {
	return &ClassifyActivities{classifier: classifier, metrics: metrics}
}

// ClassifyTicket asks the classifier for a summary, priority, notes and
// skills. Classifier failure is returned as data, never as an error, so the
// workflow can fall back instead of retrying or failing.
func (a *ClassifyActivities) ClassifyTicket(ctx context.Context, input ClassifyInput) (*ClassifyOutput, error) {
	logger := activity.GetLogger(ctx)

	if a.classifier == nil {
		logger.Warn("no classifier configured, using fallback", "ticketID", input.TicketID)
		if a.metrics != nil {
			a.metrics.RecordClassification("none", string(llm.FailureAuth), 0)
		}
		return &ClassifyOutput{
			Failure: &llm.ClassifierFailure{Kind: llm.FailureAuth, Message: "no classifier configured"},
		}, nil
	}

	provider, model := a.classifier.Provider(), a.classifier.Model()
	logger.Info("classifying ticket",
		"ticketID", input.TicketID,
		"provider", provider,
		"model", model,
		"descriptionLength", len(input.Description),
	)

	start := time.Now()
	classification, failure := a.classifier.Classify(ctx, input.Title, input.Description)
	elapsed := time.Since(start).Seconds()

	out := &ClassifyOutput{Provider: provider, Model: model}
	if failure != nil {
		logger.Warn("classification failed",
			"ticketID", input.TicketID,
			"kind", failure.Kind,
			"attempts", failure.Attempts,
			"error", failure.Message,
		)
		if a.metrics != nil {
			a.metrics.RecordClassification(provider, string(failure.Kind), elapsed)
			a.metrics.RecordLLMRequestFailed(provider, model, string(failure.Kind))
		}
		out.Failure = failure
		return out, nil
	}

	if a.metrics != nil {
		a.metrics.RecordClassification(provider, "success", elapsed)
		a.metrics.RecordLLMRequest(provider, model, classification.InputTokens, classification.OutputTokens)
	}

	logger.Info("ticket classified",
		"ticketID", input.TicketID,
		"priority", classification.Result.Priority,
		"skillCount", len(classification.Result.Skills),
		"attempts", classification.Attempts,
	)

	result := classification.Result
	out.Result = &result
	return out, nil
}
