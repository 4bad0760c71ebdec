package outbox

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"
)

// Sink delivers emitted events.
type Sink interface {
	Write(ctx context.Context, event Event) error
}

// MessageWriter is the subset of *kafka.Writer used by KafkaSink.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// KafkaSink writes events to Kafka keyed by aggregate id, so all events for
// one ticket land on the same partition in order.
type KafkaSink struct {
	writer MessageWriter
}

// NewKafkaSink creates a KafkaSink.
func NewKafkaSink(writer MessageWriter) *KafkaSink {
	return &KafkaSink{writer: writer}
}

// KafkaWriterConfig configures NewKafkaWriter.
type KafkaWriterConfig struct {
	Brokers []string
	Topic   string
}

// NewKafkaWriter builds a kafka-go writer for the events topic.
func NewKafkaWriter(cfg KafkaWriterConfig) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	}
}

// Write implements Sink.
func (s *KafkaSink) Write(ctx context.Context, event Event) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(event.AggregateID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
			{Key: "event_id", Value: []byte(event.EventID)},
		},
	}
	if err := s.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka write %s: %w", event.EventType, err)
	}
	return nil
}

// NoopSink discards events.
type NoopSink struct{}

// Write implements Sink.
func (NoopSink) Write(context.Context, Event) error { return nil }

// Publisher combines the Emitter and a Sink.
type Publisher struct {
	emitter *Emitter
	sink    Sink
}

// NewPublisher creates a new Publisher with the given emitter and sink.
func NewPublisher(emitter *Emitter, sink Sink) *Publisher {
	if sink == nil {
		sink = NoopSink{}
	}
	return &Publisher{emitter: emitter, sink: sink}
}

// Publish emits an event and writes it to the sink.
func (p *Publisher) Publish(ctx context.Context, params EmitParams) error {
	event, err := p.emitter.Emit(params)
	if err != nil {
		return fmt.Errorf("emit event: %w", err)
	}
	if err := p.sink.Write(ctx, event); err != nil {
		return fmt.Errorf("store event: %w", err)
	}
	return nil
}

// Emitter returns the underlying emitter for direct event creation.
func (p *Publisher) Emitter() *Emitter {
	return p.emitter
}
