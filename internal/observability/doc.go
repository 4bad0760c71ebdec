// Package observability provides logging, metrics, and context helpers for
// the helpdesk triage service.
//
// # Logging
//
// Create a logger from configuration:
//
//	logger := observability.NewLogger(observability.LoggingConfig{
//	    Level:  "info",
//	    Format: "json",
//	    Output: "stdout",
//	})
//	logger = observability.WithTicketContext(logger, ticketID.String())
//
// Temporal workers receive the same logger through NewTemporalLogger.
//
// # Metrics
//
//	metrics := observability.NewMetrics("helpdesk_triage")
//	metrics.RecordClassification("openai", "success", elapsed.Seconds())
//	metrics.RecordAssignment("moderator")
//
// # Standard Fields
//
//   - correlation_id: HTTP request or intake message, carried into workflows
//   - ticket_id: Ticket identifier
//   - provider, model: LLM classifier in use
//   - topic, event_type: Message bus coordinates
//   - workflow_id, workflow_run_id: Temporal execution
//
// All components are safe for concurrent use from multiple goroutines.
package observability
