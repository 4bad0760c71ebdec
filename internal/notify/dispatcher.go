package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/helixir/helpdesk-triage-service/internal/domain"
)

// Mail subjects.
const (
	AssignmentSubjectPrefix = "New Ticket Assigned: "
	WelcomeSubject          = "Welcome to Help Desk Pro!"
)

// Outcome describes what a notify call did.
type Outcome string

// Outcome constants.
const (
	OutcomeSent      Outcome = "sent"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeSkipped   Outcome = "skipped"
)

// DefaultDedupeTTL is used when the dispatcher is created without a TTL.
const DefaultDedupeTTL = 24 * time.Hour

// Assignment is the data needed to tell a handler about a newly assigned ticket.
type Assignment struct {
	TicketID  uuid.UUID
	Title     string
	Summary   string
	Priority  domain.Priority
	Notes     string
	HandlerID uuid.UUID
	HandlerTo string
}

// Dispatcher formats notifications and hands them to a Sender.
type Dispatcher struct {
	sender Sender
	dedupe Deduper
	ttl    time.Duration
	logger zerolog.Logger
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithDeduper enables duplicate suppression for assignment mail.
func WithDeduper(d Deduper, ttl time.Duration) Option {
	return func(disp *Dispatcher) {
		disp.dedupe = d
		if ttl > 0 {
			disp.ttl = ttl
		}
	}
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(sender Sender, logger zerolog.Logger, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		sender: sender,
		ttl:    DefaultDedupeTTL,
		logger: logger.With().Str("component", "notify").Logger(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// NotifyAssignment mails the handler about a ticket. When a Deduper is
// configured, a second call for the same ticket and handler within the TTL
// returns OutcomeDuplicate without sending.
func (d *Dispatcher) NotifyAssignment(ctx context.Context, a Assignment) (Outcome, error) {
	if strings.TrimSpace(a.HandlerTo) == "" {
		return OutcomeSkipped, nil
	}

	key := dedupeKey(a.TicketID, a.HandlerID)
	if d.dedupe != nil {
		claimed, err := d.dedupe.Claim(ctx, key, d.ttl)
		if err != nil {
			// Redis being down must not block delivery.
			d.logger.Warn().Err(err).Str("key", key).Msg("dedupe claim failed, sending anyway")
		} else if !claimed {
			d.logger.Debug().Str("ticket_id", a.TicketID.String()).Msg("assignment mail already sent")
			return OutcomeDuplicate, nil
		}
	}

	subject, body := AssignmentMessage(a)
	if err := d.sender.Send(ctx, a.HandlerTo, subject, body); err != nil {
		if d.dedupe != nil {
			if relErr := d.dedupe.Release(ctx, key); relErr != nil {
				d.logger.Warn().Err(relErr).Str("key", key).Msg("failed to release dedupe key")
			}
		}
		return "", fmt.Errorf("send assignment mail for ticket %s: %w", a.TicketID, err)
	}

	d.logger.Info().
		Str("ticket_id", a.TicketID.String()).
		Str("handler_id", a.HandlerID.String()).
		Msg("assignment mail sent")
	return OutcomeSent, nil
}

// NotifyWelcome sends the signup welcome mail.
func (d *Dispatcher) NotifyWelcome(ctx context.Context, user *domain.User) (Outcome, error) {
	if user == nil || strings.TrimSpace(user.Email) == "" {
		return OutcomeSkipped, nil
	}
	subject, body := WelcomeMessage(user)
	if err := d.sender.Send(ctx, user.Email, subject, body); err != nil {
		return "", fmt.Errorf("send welcome mail to user %s: %w", user.ID, err)
	}
	d.logger.Info().Str("user_id", user.ID.String()).Msg("welcome mail sent")
	return OutcomeSent, nil
}

// AssignmentMessage renders the subject and body of an assignment mail.
func AssignmentMessage(a Assignment) (string, string) {
	summary := a.Summary
	if strings.TrimSpace(summary) == "" {
		summary = "N/A"
	}
	priority := a.Priority
	if priority == "" {
		priority = domain.DefaultPriority
	}

	var b strings.Builder
	fmt.Fprintf(&b, "A new ticket titled %q has been assigned to you.\n\n", a.Title)
	fmt.Fprintf(&b, "AI Summary: %s\n", summary)
	fmt.Fprintf(&b, "Priority: %s\n", priority)
	if notes := strings.TrimSpace(a.Notes); notes != "" {
		fmt.Fprintf(&b, "\nNotes:\n%s\n", notes)
	}
	return AssignmentSubjectPrefix + a.Title, b.String()
}

// WelcomeMessage renders the subject and body of the signup mail. Users carry
// no display name, so the greeting uses the mailbox name when there is one.
func WelcomeMessage(user *domain.User) (string, string) {
	name := "there"
	if local, _, ok := strings.Cut(user.Email, "@"); ok && local != "" {
		name = local
	}
	body := fmt.Sprintf("Hi %s,\n\nThanks for signing up. We're glad to have you on board!", name)
	return WelcomeSubject, body
}

func dedupeKey(ticketID, handlerID uuid.UUID) string {
	return "triage:notified:" + ticketID.String() + ":" + handlerID.String()
}
