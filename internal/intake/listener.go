// Package intake consumes ticket.created and user.signed_up events from Kafka
// and starts the matching workflows.
//
// Offsets are committed only after an event has been handled or rejected as
// permanently invalid. A transient failure (database or Temporal unavailable)
// is retried with backoff on the same message, so an event is never dropped
// while the consumer is running. Redelivery is harmless: ticket rows are
// created with the event's ID and workflow starts deduplicate on the workflow ID.
package intake

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/helixir/helpdesk-triage-service/internal/domain"
	"github.com/helixir/helpdesk-triage-service/internal/observability"
	triagetemporal "github.com/helixir/helpdesk-triage-service/internal/temporal"
)

// SourceKafka is recorded as the triage source for bus-delivered tickets.
const SourceKafka = "kafka"

const correlationHeader = "X-Correlation-ID"

// Intake outcomes recorded per event.
const (
	outcomeStarted      = "started"
	outcomeDeduplicated = "deduplicated"
	outcomeInvalid      = "invalid"
	outcomeIgnored      = "ignored"
	outcomeRetried      = "retried"
)

// MessageReader is the subset of *kafka.Reader used by the listener.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// WorkflowStarter starts triage and welcome workflows.
type WorkflowStarter interface {
	StartTriage(ctx context.Context, input triagetemporal.TriageInput) (*triagetemporal.StartResult, error)
	StartWelcome(ctx context.Context, userID uuid.UUID) (*triagetemporal.StartResult, error)
}

// TicketCreator inserts the ticket row for a ticket.created event.
type TicketCreator interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
}

// Config holds configuration for the intake listener.
type Config struct {
	// Brokers is the list of Kafka broker addresses.
	Brokers []string
	// Topic is the intake topic.
	Topic string
	// GroupID is the consumer group ID.
	GroupID string
	// MaxRetryInterval caps the backoff between attempts on one message.
	MaxRetryInterval time.Duration
}

// Listener consumes intake events and starts workflows.
type Listener struct {
	reader           MessageReader
	starter          WorkflowStarter
	tickets          TicketCreator
	metrics          *observability.Metrics
	logger           zerolog.Logger
	retryInterval    time.Duration
	maxRetryInterval time.Duration
	now              func() time.Time
}

// NewListener creates an intake listener reading from Kafka.
// tickets may be nil when the producer of ticket.created already stores the
// row; metrics may be nil.
func NewListener(
	cfg Config,
	starter WorkflowStarter,
	tickets TicketCreator,
	metrics *observability.Metrics,
	logger zerolog.Logger,
) *Listener {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		Topic:    cfg.Topic,
		GroupID:  cfg.GroupID,
		MinBytes: 1,
		MaxBytes: 10e6,
		MaxWait:  3 * time.Second,
	})
	return newListener(reader, starter, tickets, metrics, logger, cfg.MaxRetryInterval)
}

func newListener(
	reader MessageReader,
	starter WorkflowStarter,
	tickets TicketCreator,
	metrics *observability.Metrics,
	logger zerolog.Logger,
	maxRetryInterval time.Duration,
) *Listener {
	if maxRetryInterval <= 0 {
		maxRetryInterval = 30 * time.Second
	}
	return &Listener{
		reader:           reader,
		starter:          starter,
		tickets:          tickets,
		metrics:          metrics,
		logger:           logger.With().Str("component", "intake_listener").Logger(),
		retryInterval:    500 * time.Millisecond,
		maxRetryInterval: maxRetryInterval,
		now:              func() time.Time { return time.Now().UTC() },
	}
}

// Run consumes messages until ctx is cancelled.
func (l *Listener) Run(ctx context.Context) error {
	l.logger.Info().Msg("starting intake listener")

	for {
		msg, err := l.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				l.logger.Info().Msg("intake listener stopped via context cancellation")
				return ctx.Err()
			}
			l.logger.Error().Err(err).Msg("failed to fetch message from Kafka")
			continue
		}

		l.logger.Debug().
			Int("partition", msg.Partition).
			Int64("offset", msg.Offset).
			Msg("received intake event")

		if err := l.process(ctx, msg); err != nil {
			// Only cancellation gets here; the message stays uncommitted.
			return err
		}

		if err := l.reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			l.logger.Error().Err(err).
				Int64("offset", msg.Offset).
				Msg("failed to commit intake offset")
		}
	}
}

// Close closes the underlying reader.
func (l *Listener) Close() error {
	return l.reader.Close()
}

// process handles one message, retrying transient failures until they
// succeed or ctx is cancelled.
func (l *Listener) process(ctx context.Context, msg kafka.Message) error {
	corrID := correlationIDOf(msg)
	logger := l.logger.With().
		Str("correlation_id", corrID).
		Int("partition", msg.Partition).
		Int64("offset", msg.Offset).
		Logger()
	ctx = observability.WithCorrelationID(ctx, corrID)
	ctx = observability.WithLogger(ctx, logger)

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = l.retryInterval
	bo.MaxInterval = l.maxRetryInterval
	bo.MaxElapsedTime = 0

	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		err := l.handle(ctx, msg)
		if err == nil {
			return nil
		}
		var perm *backoff.PermanentError
		if errors.As(err, &perm) {
			return err
		}
		l.record(eventTypeOf(msg), outcomeRetried)
		logger.Warn().Err(err).
			Int("attempt", attempt).
			Msg("intake event failed, retrying")
		return err
	}, backoff.WithContext(bo, ctx))

	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	// Permanent: log and let the caller commit past it.
	logger.Error().Err(err).
		Str("raw_value", truncate(string(msg.Value), 512)).
		Msg("discarding invalid intake event")
	return nil
}

// handle decodes and dispatches one event. Errors wrapped in
// backoff.Permanent are not retried.
func (l *Listener) handle(ctx context.Context, msg kafka.Message) error {
	var env domain.EventEnvelope
	if err := json.Unmarshal(msg.Value, &env); err != nil {
		l.record("unknown", outcomeInvalid)
		return backoff.Permanent(fmt.Errorf("decode envelope: %w", err))
	}

	logger := observability.WithEventContext(observability.LoggerFromContext(ctx, l.logger), msg.Topic, env.Type)
	ctx = observability.WithLogger(ctx, logger)

	switch env.Type {
	case domain.EventTypeTicketCreated:
		return l.handleTicketCreated(ctx, env.Data)
	case domain.EventTypeUserSignedUp:
		return l.handleUserSignedUp(ctx, env.Data)
	default:
		logger.Debug().Msg("ignoring unhandled event type")
		l.record(env.Type, outcomeIgnored)
		return nil
	}
}

func (l *Listener) handleTicketCreated(ctx context.Context, data json.RawMessage) error {
	var event domain.TicketCreatedEvent
	if err := json.Unmarshal(data, &event); err != nil {
		l.record(domain.EventTypeTicketCreated, outcomeInvalid)
		return backoff.Permanent(fmt.Errorf("decode %s: %w", domain.EventTypeTicketCreated, err))
	}
	if event.TicketID == uuid.Nil {
		l.record(domain.EventTypeTicketCreated, outcomeInvalid)
		return backoff.Permanent(domain.NewValidationError("ticketId", "must not be empty"))
	}

	if err := l.ensureTicket(ctx, event); err != nil {
		return err
	}

	result, err := l.starter.StartTriage(ctx, triagetemporal.TriageInput{
		TicketID:      event.TicketID,
		Source:        SourceKafka,
		CorrelationID: observability.CorrelationIDFromContext(ctx),
	})
	if err != nil {
		if errors.Is(err, triagetemporal.ErrInvalidArgument) {
			l.record(domain.EventTypeTicketCreated, outcomeInvalid)
			return backoff.Permanent(err)
		}
		return fmt.Errorf("start triage for ticket %s: %w", event.TicketID, err)
	}

	l.logStart(ctx, domain.EventTypeTicketCreated, event.TicketID, result)
	return nil
}

// ensureTicket stores the ticket in the processing state unless it already
// exists.
func (l *Listener) ensureTicket(ctx context.Context, event domain.TicketCreatedEvent) error {
	if l.tickets == nil {
		return nil
	}

	now := l.now()
	ticket := &domain.Ticket{
		ID:             event.TicketID,
		Title:          strings.TrimSpace(event.Title),
		Description:    strings.TrimSpace(event.Description),
		Status:         domain.TicketStatusProcessing,
		Priority:       domain.DefaultPriority,
		RequiredSkills: []string{},
		CreatedBy:      event.CreatedBy,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := ticket.Validate(); err != nil {
		l.record(domain.EventTypeTicketCreated, outcomeInvalid)
		return backoff.Permanent(err)
	}

	err := l.tickets.Create(ctx, ticket)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, domain.ErrAlreadyExists):
		logger := observability.LoggerFromContext(ctx, l.logger)
		logger.Debug().Str("ticket_id", event.TicketID.String()).Msg("ticket already stored")
		return nil
	case errors.Is(err, domain.ErrInvalidInput):
		l.record(domain.EventTypeTicketCreated, outcomeInvalid)
		return backoff.Permanent(err)
	default:
		return fmt.Errorf("store ticket %s: %w", event.TicketID, err)
	}
}

func (l *Listener) handleUserSignedUp(ctx context.Context, data json.RawMessage) error {
	var event domain.UserSignedUpEvent
	if err := json.Unmarshal(data, &event); err != nil {
		l.record(domain.EventTypeUserSignedUp, outcomeInvalid)
		return backoff.Permanent(fmt.Errorf("decode %s: %w", domain.EventTypeUserSignedUp, err))
	}

	result, err := l.starter.StartWelcome(ctx, event.UserID)
	if err != nil {
		if errors.Is(err, triagetemporal.ErrInvalidArgument) {
			l.record(domain.EventTypeUserSignedUp, outcomeInvalid)
			return backoff.Permanent(err)
		}
		return fmt.Errorf("start welcome for user %s: %w", event.UserID, err)
	}

	l.logStart(ctx, domain.EventTypeUserSignedUp, event.UserID, result)
	return nil
}

func (l *Listener) logStart(ctx context.Context, eventType string, id uuid.UUID, result *triagetemporal.StartResult) {
	outcome := outcomeStarted
	if result.Deduplicated {
		outcome = outcomeDeduplicated
	}
	l.record(eventType, outcome)

	logger := observability.LoggerFromContext(ctx, l.logger)
	logger.Info().
		Str("id", id.String()).
		Str("workflow_id", result.WorkflowID).
		Str("run_id", result.RunID).
		Bool("deduplicated", result.Deduplicated).
		Msg("workflow started for intake event")
}

// correlationIDOf prefers the producer's correlation header and otherwise
// derives a stable ID from the message coordinates, so redeliveries share it.
func correlationIDOf(msg kafka.Message) string {
	for _, h := range msg.Headers {
		if strings.EqualFold(h.Key, correlationHeader) && len(h.Value) > 0 {
			return string(h.Value)
		}
	}
	return fmt.Sprintf("%s-%d-%d", msg.Topic, msg.Partition, msg.Offset)
}

func (l *Listener) record(eventType, outcome string) {
	if l.metrics != nil {
		l.metrics.RecordIntakeEvent(eventType, outcome)
	}
}

// eventTypeOf peeks at the envelope type for metric labels.
func eventTypeOf(msg kafka.Message) string {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(msg.Value, &env); err != nil || env.Type == "" {
		return "unknown"
	}
	return env.Type
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
