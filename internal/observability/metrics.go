package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the helpdesk triage service.
// Metrics are grouped by pipeline stage: triage runs, classification,
// assignment, notification, intake, and LLM provider calls. Every collector is
// registered through promauto with the default Prometheus registry.
type Metrics struct {
	// TriagesStarted counts triage workflows that began running.
	TriagesStarted prometheus.Counter

	// TriagesCompleted counts triage runs that finished, labeled by resulting status.
	TriagesCompleted *prometheus.CounterVec

	// TriagesFailed counts triage runs that ended in failure, labeled by stage.
	TriagesFailed *prometheus.CounterVec

	// TriagesSkipped counts triage runs skipped because the ticket was already terminal.
	TriagesSkipped prometheus.Counter

	// TriageDuration observes the end-to-end duration of triage runs in seconds.
	TriageDuration prometheus.Histogram

	// ClassificationsTotal counts classification attempts by provider and outcome.
	ClassificationsTotal *prometheus.CounterVec

	// ClassificationDuration observes classifier latency in seconds by provider.
	ClassificationDuration *prometheus.HistogramVec

	// FallbacksTotal counts fallback classifications by reason.
	FallbacksTotal *prometheus.CounterVec

	// SkillsPerTicket observes how many skills a ticket ends up requiring.
	SkillsPerTicket prometheus.Histogram

	// AssignmentsTotal counts assignment decisions by outcome (moderator, admin, none).
	AssignmentsTotal *prometheus.CounterVec

	// NotificationsTotal counts notification attempts by kind and outcome.
	NotificationsTotal *prometheus.CounterVec

	// StatusTransitions counts ticket status changes by from and to status.
	StatusTransitions *prometheus.CounterVec

	// IntakeEvents counts events consumed from the message bus by type and outcome.
	IntakeEvents *prometheus.CounterVec

	// EventsPublished counts outbound events by type and outcome.
	EventsPublished *prometheus.CounterVec

	// LLMRequestsTotal counts LLM API requests by provider and model.
	LLMRequestsTotal *prometheus.CounterVec

	// LLMRequestsFailed counts failed LLM API requests by provider, model, and error kind.
	LLMRequestsFailed *prometheus.CounterVec

	// LLMTokensUsed counts tokens consumed by provider, model, and direction.
	LLMTokensUsed *prometheus.CounterVec
}

// NewMetrics creates and registers all metrics under the given namespace.
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		// Triage runs
		TriagesStarted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "triages_started_total",
			Help:      "Total number of ticket triage runs started",
		}),
		TriagesCompleted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "triages_completed_total",
			Help:      "Total number of ticket triage runs completed by resulting status",
		}, []string{"status"}),
		TriagesFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "triages_failed_total",
			Help:      "Total number of ticket triage runs that failed by stage",
		}, []string{"stage"}),
		TriagesSkipped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "triages_skipped_total",
			Help:      "Total number of triage runs skipped for terminal tickets",
		}),
		TriageDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "triage_duration_seconds",
			Help:      "Duration of ticket triage runs in seconds",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		}),

		// Classification
		ClassificationsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "classifications_total",
			Help:      "Total number of ticket classifications by provider and outcome",
		}, []string{"provider", "outcome"}),
		ClassificationDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "classification_duration_seconds",
			Help:      "Duration of ticket classification calls in seconds by provider",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"provider"}),
		FallbacksTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "classification_fallbacks_total",
			Help:      "Total number of fallback classifications by reason",
		}, []string{"reason"}),
		SkillsPerTicket: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "skills_per_ticket",
			Help:      "Number of required skills per triaged ticket",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13},
		}),

		// Assignment and notification
		AssignmentsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "assignments_total",
			Help:      "Total number of handler assignments by outcome",
		}, []string{"outcome"}),
		NotificationsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Total number of notifications by kind and outcome",
		}, []string{"kind", "outcome"}),
		StatusTransitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "status_transitions_total",
			Help:      "Total number of ticket status transitions",
		}, []string{"from", "to"}),

		// Event plumbing
		IntakeEvents: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "intake_events_total",
			Help:      "Total number of intake events consumed by type and outcome",
		}, []string{"type", "outcome"}),
		EventsPublished: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Total number of outbound events by type and outcome",
		}, []string{"type", "outcome"}),

		// LLM
		LLMRequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_requests_total",
			Help:      "Total number of LLM API requests",
		}, []string{"provider", "model"}),
		LLMRequestsFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_requests_failed_total",
			Help:      "Total number of failed LLM API requests",
		}, []string{"provider", "model", "error_kind"}),
		LLMTokensUsed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_tokens_used_total",
			Help:      "Total number of LLM tokens used",
		}, []string{"provider", "model", "direction"}),
	}
}

// RecordTriageStarted records that a triage run has started.
func (m *Metrics) RecordTriageStarted() {
	m.TriagesStarted.Inc()
}

// RecordTriageCompleted records a finished triage run and its duration.
func (m *Metrics) RecordTriageCompleted(status string, durationSeconds float64) {
	m.TriagesCompleted.WithLabelValues(status).Inc()
	m.TriageDuration.Observe(durationSeconds)
}

// RecordTriageFailed records a triage run that failed at the given stage.
func (m *Metrics) RecordTriageFailed(stage string, durationSeconds float64) {
	m.TriagesFailed.WithLabelValues(stage).Inc()
	m.TriageDuration.Observe(durationSeconds)
}

// RecordTriageSkipped records a triage run skipped for a terminal ticket.
func (m *Metrics) RecordTriageSkipped() {
	m.TriagesSkipped.Inc()
}

// RecordClassification records a classifier call outcome and latency.
func (m *Metrics) RecordClassification(provider, outcome string, durationSeconds float64) {
	m.ClassificationsTotal.WithLabelValues(provider, outcome).Inc()
	m.ClassificationDuration.WithLabelValues(provider).Observe(durationSeconds)
}

// RecordFallback records a fallback classification.
func (m *Metrics) RecordFallback(reason string) {
	m.FallbacksTotal.WithLabelValues(reason).Inc()
}

// RecordSkills records the number of skills attached to a ticket.
func (m *Metrics) RecordSkills(count int) {
	m.SkillsPerTicket.Observe(float64(count))
}

// RecordAssignment records an assignment decision.
func (m *Metrics) RecordAssignment(outcome string) {
	m.AssignmentsTotal.WithLabelValues(outcome).Inc()
}

// RecordNotification records a notification attempt.
func (m *Metrics) RecordNotification(kind, outcome string) {
	m.NotificationsTotal.WithLabelValues(kind, outcome).Inc()
}

// RecordStatusTransition records a ticket status change.
func (m *Metrics) RecordStatusTransition(from, to string) {
	m.StatusTransitions.WithLabelValues(from, to).Inc()
}

// RecordIntakeEvent records an event consumed from the message bus.
func (m *Metrics) RecordIntakeEvent(eventType, outcome string) {
	m.IntakeEvents.WithLabelValues(eventType, outcome).Inc()
}

// RecordEventPublished records an outbound event publish attempt.
func (m *Metrics) RecordEventPublished(eventType, outcome string) {
	m.EventsPublished.WithLabelValues(eventType, outcome).Inc()
}

// RecordLLMRequest records an LLM request.
func (m *Metrics) RecordLLMRequest(provider, model string, inputTokens, outputTokens int) {
	m.LLMRequestsTotal.WithLabelValues(provider, model).Inc()
	m.LLMTokensUsed.WithLabelValues(provider, model, "input").Add(float64(inputTokens))
	m.LLMTokensUsed.WithLabelValues(provider, model, "output").Add(float64(outputTokens))
}

// RecordLLMRequestFailed records a failed LLM request.
func (m *Metrics) RecordLLMRequestFailed(provider, model, errorKind string) {
	m.LLMRequestsFailed.WithLabelValues(provider, model, errorKind).Inc()
}
