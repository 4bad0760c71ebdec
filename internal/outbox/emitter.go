package outbox

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	// AggregateTypeTicket is the aggregate type for ticket events.
	AggregateTypeTicket = "ticket"

	defaultServiceName = "helpdesk-triage-service"
)

// Event is the envelope written to the events topic.
type Event struct {
	EventID       string          `json:"event_id"`
	AggregateID   string          `json:"aggregate_id"`
	AggregateType string          `json:"aggregate_type"`
	EventType     string          `json:"event_type"`
	Payload       json.RawMessage `json:"payload"`
	Metadata      Metadata        `json:"metadata"`
	OccurredAt    time.Time       `json:"occurred_at"`
}

// Metadata carries the source and tracing context of an event.
type Metadata struct {
	Source        string `json:"source"`
	CorrelationID string `json:"correlation_id,omitempty"`
	TraceID       string `json:"trace_id,omitempty"`
}

// EmitterConfig configures the Emitter with service context.
type EmitterConfig struct {
	// ServiceName identifies the source service.
	ServiceName string
}

// EmitParams contains the parameters for emitting an event.
type EmitParams struct {
	// TicketID is the aggregate ID.
	TicketID string
	// EventType is the type of event (e.g., "ticket.triage_completed").
	EventType string
	// Payload is the event payload that will be JSON-serialized.
	Payload any
	// CorrelationID for request tracing (optional).
	CorrelationID string
	// TraceID for distributed tracing (optional).
	TraceID string
	// OccurredAt overrides the event time (optional).
	OccurredAt time.Time
}

// Emitter creates events enriched with service context.
type Emitter struct {
	config EmitterConfig
	now    func() time.Time
}

// NewEmitter creates a new Emitter with the given service configuration.
func NewEmitter(config EmitterConfig) *Emitter {
	if config.ServiceName == "" {
		config.ServiceName = defaultServiceName
	}
	return &Emitter{config: config, now: time.Now}
}

// Emit creates an Event from the given parameters.
func (e *Emitter) Emit(params EmitParams) (Event, error) {
	if params.TicketID == "" {
		return Event{}, fmt.Errorf("ticket_id is required")
	}
	if params.EventType == "" {
		return Event{}, fmt.Errorf("event_type is required")
	}

	payloadBytes, err := json.Marshal(params.Payload)
	if err != nil {
		return Event{}, fmt.Errorf("marshal payload: %w", err)
	}

	occurred := params.OccurredAt
	if occurred.IsZero() {
		occurred = e.now()
	}

	return Event{
		EventID:       uuid.New().String(),
		AggregateID:   params.TicketID,
		AggregateType: AggregateTypeTicket,
		EventType:     params.EventType,
		Payload:       payloadBytes,
		Metadata: Metadata{
			Source:        e.config.ServiceName,
			CorrelationID: params.CorrelationID,
			TraceID:       params.TraceID,
		},
		OccurredAt: occurred.UTC(),
	}, nil
}
