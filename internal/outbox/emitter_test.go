package outbox

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEmitter(t *testing.T) {
	t.Run("uses default service name when empty", func(t *testing.T) {
		emitter := NewEmitter(EmitterConfig{})
		assert.Equal(t, "helpdesk-triage-service", emitter.config.ServiceName)
	})

	t.Run("uses provided service name", func(t *testing.T) {
		emitter := NewEmitter(EmitterConfig{ServiceName: "custom-service"})
		assert.Equal(t, "custom-service", emitter.config.ServiceName)
	})
}

func TestEmitter_Emit(t *testing.T) {
	emitter := NewEmitter(EmitterConfig{ServiceName: "test-service"})
	fixed := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
	emitter.now = func() time.Time { return fixed }

	t.Run("creates event with all fields", func(t *testing.T) {
		params := EmitParams{
			TicketID:      "ticket-123",
			EventType:     "ticket.triage_completed",
			Payload:       map[string]string{"key": "value"},
			CorrelationID: "corr-abc",
			TraceID:       "trace-xyz",
		}

		event, err := emitter.Emit(params)
		require.NoError(t, err)

		assert.NotEmpty(t, event.EventID)
		assert.Equal(t, "ticket-123", event.AggregateID)
		assert.Equal(t, AggregateTypeTicket, event.AggregateType)
		assert.Equal(t, "ticket.triage_completed", event.EventType)
		assert.Equal(t, fixed, event.OccurredAt)
		assert.Equal(t, "test-service", event.Metadata.Source)
		assert.Equal(t, "corr-abc", event.Metadata.CorrelationID)
		assert.Equal(t, "trace-xyz", event.Metadata.TraceID)

		var decoded map[string]string
		require.NoError(t, json.Unmarshal(event.Payload, &decoded))
		assert.Equal(t, "value", decoded["key"])
	})

	t.Run("keeps explicit occurred_at", func(t *testing.T) {
		at := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
		event, err := emitter.Emit(EmitParams{TicketID: "t", EventType: "e", Payload: nil, OccurredAt: at})
		require.NoError(t, err)
		assert.Equal(t, at, event.OccurredAt)
	})

	t.Run("errors when ticket_id is empty", func(t *testing.T) {
		_, err := emitter.Emit(EmitParams{EventType: "ticket.triage_completed"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "ticket_id is required")
	})

	t.Run("errors when event_type is empty", func(t *testing.T) {
		_, err := emitter.Emit(EmitParams{TicketID: "ticket-123"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "event_type is required")
	})

	t.Run("errors when payload cannot be marshaled", func(t *testing.T) {
		_, err := emitter.Emit(EmitParams{
			TicketID:  "ticket-123",
			EventType: "ticket.triage_completed",
			Payload:   make(chan int),
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "marshal payload")
	})

	t.Run("omits empty tracing fields from metadata", func(t *testing.T) {
		event, err := emitter.Emit(EmitParams{TicketID: "t", EventType: "e", Payload: map[string]string{}})
		require.NoError(t, err)

		raw, err := json.Marshal(event)
		require.NoError(t, err)
		var decoded map[string]any
		require.NoError(t, json.Unmarshal(raw, &decoded))
		metadata := decoded["metadata"].(map[string]any)
		_, hasCorrelationID := metadata["correlation_id"]
		_, hasTraceID := metadata["trace_id"]
		assert.False(t, hasCorrelationID)
		assert.False(t, hasTraceID)
	})
}
