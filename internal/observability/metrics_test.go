package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Note: prometheus/promauto registers metrics globally, so we need to use
// unique namespaces per test to avoid registration conflicts.

func TestNewMetrics(t *testing.T) {
	m := NewMetrics("test_helpdesk_triage_new")

	assert.NotNil(t, m.TriagesStarted)
	assert.NotNil(t, m.TriagesCompleted)
	assert.NotNil(t, m.TriagesFailed)
	assert.NotNil(t, m.TriagesSkipped)
	assert.NotNil(t, m.TriageDuration)
	assert.NotNil(t, m.ClassificationsTotal)
	assert.NotNil(t, m.ClassificationDuration)
	assert.NotNil(t, m.FallbacksTotal)
	assert.NotNil(t, m.SkillsPerTicket)
	assert.NotNil(t, m.AssignmentsTotal)
	assert.NotNil(t, m.NotificationsTotal)
	assert.NotNil(t, m.StatusTransitions)
	assert.NotNil(t, m.IntakeEvents)
	assert.NotNil(t, m.EventsPublished)
	assert.NotNil(t, m.LLMRequestsTotal)
	assert.NotNil(t, m.LLMTokensUsed)
}

func TestRecordTriageStarted(t *testing.T) {
	m := NewMetrics("test_triage_started")

	initial := testutil.ToFloat64(m.TriagesStarted)
	m.RecordTriageStarted()
	assert.Equal(t, initial+1, testutil.ToFloat64(m.TriagesStarted))
}

func TestRecordTriageCompleted(t *testing.T) {
	m := NewMetrics("test_triage_completed")

	m.RecordTriageCompleted("in_progress", 2.5)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.TriagesCompleted.WithLabelValues("in_progress")))

	histCount, err := getHistogramSampleCount(m.TriageDuration)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), histCount)
}

func TestRecordTriageFailed(t *testing.T) {
	m := NewMetrics("test_triage_failed")

	m.RecordTriageFailed("load_ticket", 0.2)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.TriagesFailed.WithLabelValues("load_ticket")))

	histCount, err := getHistogramSampleCount(m.TriageDuration)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), histCount)
}

func TestRecordTriageSkipped(t *testing.T) {
	m := NewMetrics("test_triage_skipped")

	m.RecordTriageSkipped()
	m.RecordTriageSkipped()
	assert.Equal(t, float64(2), testutil.ToFloat64(m.TriagesSkipped))
}

func TestRecordClassification(t *testing.T) {
	m := NewMetrics("test_classification")

	m.RecordClassification("openai", "success", 1.2)
	m.RecordClassification("openai", "failure", 0.4)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.ClassificationsTotal.WithLabelValues("openai", "success")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.ClassificationsTotal.WithLabelValues("openai", "failure")))
}

func TestRecordFallback(t *testing.T) {
	m := NewMetrics("test_fallback")

	m.RecordFallback("timeout")
	assert.Equal(t, float64(1), testutil.ToFloat64(m.FallbacksTotal.WithLabelValues("timeout")))
}

func TestRecordSkills(t *testing.T) {
	m := NewMetrics("test_skills")

	m.RecordSkills(3)

	histCount, err := getHistogramSampleCount(m.SkillsPerTicket)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), histCount)
}

func TestRecordAssignment(t *testing.T) {
	m := NewMetrics("test_assignment")

	m.RecordAssignment("moderator")
	m.RecordAssignment("admin")
	m.RecordAssignment("moderator")
	assert.Equal(t, float64(2), testutil.ToFloat64(m.AssignmentsTotal.WithLabelValues("moderator")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.AssignmentsTotal.WithLabelValues("admin")))
}

func TestRecordNotification(t *testing.T) {
	m := NewMetrics("test_notification")

	m.RecordNotification("assignment", "sent")
	assert.Equal(t, float64(1), testutil.ToFloat64(m.NotificationsTotal.WithLabelValues("assignment", "sent")))
}

func TestRecordStatusTransition(t *testing.T) {
	m := NewMetrics("test_status_transition")

	m.RecordStatusTransition("processing", "open")
	assert.Equal(t, float64(1), testutil.ToFloat64(m.StatusTransitions.WithLabelValues("processing", "open")))
}

func TestRecordIntakeEvent(t *testing.T) {
	m := NewMetrics("test_intake_event")

	m.RecordIntakeEvent("ticket.created", "started")
	assert.Equal(t, float64(1), testutil.ToFloat64(m.IntakeEvents.WithLabelValues("ticket.created", "started")))
}

func TestRecordEventPublished(t *testing.T) {
	m := NewMetrics("test_event_published")

	m.RecordEventPublished("ticket.triage_completed", "ok")
	assert.Equal(t, float64(1), testutil.ToFloat64(m.EventsPublished.WithLabelValues("ticket.triage_completed", "ok")))
}

func TestRecordLLMRequest(t *testing.T) {
	m := NewMetrics("test_llm_request")

	m.RecordLLMRequest("anthropic", "claude-3-5-haiku-latest", 120, 40)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.LLMRequestsTotal.WithLabelValues("anthropic", "claude-3-5-haiku-latest")))
	assert.Equal(t, float64(120), testutil.ToFloat64(m.LLMTokensUsed.WithLabelValues("anthropic", "claude-3-5-haiku-latest", "input")))
	assert.Equal(t, float64(40), testutil.ToFloat64(m.LLMTokensUsed.WithLabelValues("anthropic", "claude-3-5-haiku-latest", "output")))
}

func TestRecordLLMRequestFailed(t *testing.T) {
	m := NewMetrics("test_llm_request_failed")

	m.RecordLLMRequestFailed("openai", "gpt-4o", "rate_limited")
	assert.Equal(t, float64(1), testutil.ToFloat64(m.LLMRequestsFailed.WithLabelValues("openai", "gpt-4o", "rate_limited")))
}

// Helper to get histogram sample count
func getHistogramSampleCount(h prometheus.Histogram) (uint64, error) {
	ch := make(chan prometheus.Metric, 1)
	h.Collect(ch)
	close(ch)

	var m prometheus.Metric
	for m = range ch {
		break
	}

	var dto = &dto.Metric{}
	if err := m.Write(dto); err != nil {
		return 0, err
	}

	return dto.Histogram.GetSampleCount(), nil
}
