package activities

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/testsuite"

	"github.com/helixir/helpdesk-triage-service/internal/domain"
	"github.com/helixir/helpdesk-triage-service/internal/observability"
)

func TestPublishTriageEvent_Completed(t *testing.T) {
	suite := &testsuite.WorkflowTestSuite{}
	env := suite.NewTestActivityEnvironment()

	pub := &mockEventPublisher{}
	metrics := observability.NewMetrics("act_publish_completed")
	act := NewEventActivities(pub, metrics)
	env.RegisterActivity(act.PublishTriageEvent)

	ticketID := uuid.New()
	_, err := env.ExecuteActivity(act.PublishTriageEvent, PublishTriageEventInput{
		EventType: domain.EventTypeTriageCompleted,
		TicketID:  ticketID,
		Completed: &domain.TriageCompletedPayload{
			TicketID: ticketID,
			Status:   domain.TicketStatusInProgress,
			Priority: domain.PriorityHigh,
			Skills:   []string{"networking"},
		},
		DurationSeconds: 2.5,
	})
	require.NoError(t, err)

	require.Len(t, pub.published, 1)
	params := pub.published[0]
	assert.Equal(t, ticketID.String(), params.TicketID)
	assert.Equal(t, domain.EventTypeTriageCompleted, params.EventType)

	payload, ok := params.Payload.(*domain.TriageCompletedPayload)
	require.True(t, ok)
	assert.Equal(t, domain.TicketStatusInProgress, payload.Status)

	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.TriagesCompleted.WithLabelValues("in_progress")))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.EventsPublished.WithLabelValues(domain.EventTypeTriageCompleted, "published")))
}

func TestPublishTriageEvent_Failed(t *testing.T) {
	suite := &testsuite.WorkflowTestSuite{}
	env := suite.NewTestActivityEnvironment()

	pub := &mockEventPublisher{}
	metrics := observability.NewMetrics("act_publish_failed")
	act := NewEventActivities(pub, metrics)
	env.RegisterActivity(act.PublishTriageEvent)

	ticketID := uuid.New()
	_, err := env.ExecuteActivity(act.PublishTriageEvent, PublishTriageEventInput{
		EventType: domain.EventTypeTriageFailed,
		TicketID:  ticketID,
		Failed:    &domain.TriageFailedPayload{TicketID: ticketID, Stage: "persist_classification", Error: "boom"},
	})
	require.NoError(t, err)

	require.Len(t, pub.published, 1)
	assert.Equal(t, domain.EventTypeTriageFailed, pub.published[0].EventType)
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.TriagesFailed.WithLabelValues("persist_classification")))
}

func TestPublishTriageEvent_Rejected(t *testing.T) {
	tests := []struct {
		name  string
		input PublishTriageEventInput
	}{
		{name: "unknown type", input: PublishTriageEventInput{EventType: "ticket.deleted", TicketID: uuid.New()}},
		{name: "completed without payload", input: PublishTriageEventInput{EventType: domain.EventTypeTriageCompleted, TicketID: uuid.New()}},
		{name: "failed without payload", input: PublishTriageEventInput{EventType: domain.EventTypeTriageFailed, TicketID: uuid.New()}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			suite := &testsuite.WorkflowTestSuite{}
			env := suite.NewTestActivityEnvironment()

			pub := &mockEventPublisher{}
			act := NewEventActivities(pub, nil)
			env.RegisterActivity(act.PublishTriageEvent)

			_, err := env.ExecuteActivity(act.PublishTriageEvent, tt.input)
			require.Error(t, err)
			assert.Empty(t, pub.published)
		})
	}
}

func TestPublishTriageEvent_PublisherError(t *testing.T) {
	suite := &testsuite.WorkflowTestSuite{}
	env := suite.NewTestActivityEnvironment()

	pub := &mockEventPublisher{err: errors.New("broker unavailable")}
	metrics := observability.NewMetrics("act_publish_error")
	act := NewEventActivities(pub, metrics)
	env.RegisterActivity(act.PublishTriageEvent)

	ticketID := uuid.New()
	_, err := env.ExecuteActivity(act.PublishTriageEvent, PublishTriageEventInput{
		EventType: domain.EventTypeTriageFailed,
		TicketID:  ticketID,
		Failed:    &domain.TriageFailedPayload{TicketID: ticketID, Stage: "load_ticket", Error: "x"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker unavailable")
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.EventsPublished.WithLabelValues(domain.EventTypeTriageFailed, "failed")))
}
