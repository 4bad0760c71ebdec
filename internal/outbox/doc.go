// Package outbox publishes triage outcome events for downstream consumers.
//
// # Components
//
//   - Emitter: builds an Event envelope from service-specific parameters
//   - Publisher: emits an event and hands it to a Sink
//   - KafkaSink: writes events to the configured Kafka topic, keyed by ticket id
//   - NoopSink: drops events when Kafka is disabled
//
// # Event Types
//
//   - ticket.triage_completed: a triage run persisted its classification and assignment
//   - ticket.triage_failed: a triage run halted and the ticket was marked as errored
//
// # Usage
//
//	publisher := outbox.NewPublisher(
//	    outbox.NewEmitter(outbox.EmitterConfig{ServiceName: "helpdesk-triage-service"}),
//	    outbox.NewKafkaSink(writer),
//	)
//
//	err := publisher.Publish(ctx, outbox.EmitParams{
//	    TicketID:  ticketID.String(),
//	    EventType: domain.EventTypeTriageCompleted,
//	    Payload:   payload,
//	})
package outbox
