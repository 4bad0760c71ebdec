package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/helixir/helpdesk-triage-service/internal/domain"
)

// Compile-time interface verification.
var _ TicketRepository = (*PgTicketRepository)(nil)

const ticketColumns = `id, title, description, status, priority, summary, notes,
			required_skills, assignee_id, created_by, error_reason, created_at, updated_at`

// PgTicketRepository is a PostgreSQL implementation of TicketRepository.
type PgTicketRepository struct {
	db DBTX
}

// NewPgTicketRepository creates a new PostgreSQL ticket repository.
func NewPgTicketRepository(db DBTX) *PgTicketRepository {
	return &PgTicketRepository{db: db}
}

// Create inserts a new ticket.
func (r *PgTicketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	if ticket == nil {
		return domain.NewValidationError("ticket", "ticket cannot be nil")
	}
	if ticket.ID == uuid.Nil {
		return domain.NewValidationError("id", "ticket ID is required")
	}
	if err := ticket.Validate(); err != nil {
		return err
	}

	query := `
		INSERT INTO tickets (` + ticketColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err := r.db.Exec(ctx, query,
		ticket.ID, ticket.Title, ticket.Description, ticket.Status, ticket.Priority,
		ticket.Summary, ticket.Notes, skillsOrEmpty(ticket.RequiredSkills), ticket.AssigneeID,
		ticket.CreatedBy, ticket.ErrorReason, ticket.CreatedAt, ticket.UpdatedAt,
	)
	if err != nil {
		if isPgError(err, pgUniqueViolation) {
			return domain.NewAlreadyExistsError("ticket", ticket.ID.String())
		}
		return fmt.Errorf("failed to create ticket: %w", err)
	}

	return nil
}

// Get retrieves a ticket by ID.
func (r *PgTicketRepository) Get(ctx context.Context, id uuid.UUID) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id = $1`

	ticket, err := scanTicket(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("ticket", id.String())
		}
		return nil, fmt.Errorf("failed to get ticket: %w", err)
	}

	return ticket, nil
}

// SaveTriage overwrites the classification fields and status of a ticket.
func (r *PgTicketRepository) SaveTriage(ctx context.Context, id uuid.UUID, update TriageUpdate) error {
	if !update.Status.IsValid() {
		return domain.NewValidationError("status", "unknown status "+string(update.Status))
	}
	if _, ok := domain.ParsePriority(string(update.Priority)); !ok {
		return domain.NewValidationError("priority", "unknown priority "+string(update.Priority))
	}

	return r.update(ctx, id, func(t *domain.Ticket) error {
		if !domain.CanTransition(t.Status, update.Status) {
			return &domain.TransitionError{From: t.Status, To: update.Status}
		}
		t.Status = update.Status
		t.Priority = update.Priority
		t.Summary = update.Summary
		t.Notes = update.Notes
		t.RequiredSkills = skillsOrEmpty(update.RequiredSkills)
		return nil
	})
}

// SaveAssignment overwrites the assignee of a ticket.
func (r *PgTicketRepository) SaveAssignment(ctx context.Context, id uuid.UUID, assigneeID *uuid.UUID) error {
	query := `UPDATE tickets SET assignee_id = $2, updated_at = $3 WHERE id = $1`

	result, err := r.db.Exec(ctx, query, id, assigneeID, time.Now().UTC())
	if err != nil {
		if isPgError(err, pgForeignKeyViolation) {
			return domain.NewNotFoundError("user", assigneeID.String())
		}
		return fmt.Errorf("failed to save assignment: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.NewNotFoundError("ticket", id.String())
	}

	return nil
}

// MarkError moves a ticket to the error status.
func (r *PgTicketRepository) MarkError(ctx context.Context, id uuid.UUID, reason string) error {
	return r.update(ctx, id, func(t *domain.Ticket) error {
		if t.Status != domain.TicketStatusError && !domain.CanTransition(t.Status, domain.TicketStatusError) {
			return &domain.TransitionError{From: t.Status, To: domain.TicketStatusError}
		}
		t.Status = domain.TicketStatusError
		t.Priority = domain.PriorityMedium
		t.ErrorReason = reason
		return nil
	})
}

// List retrieves tickets matching the filter criteria.
func (r *PgTicketRepository) List(ctx context.Context, filter TicketFilter) ([]*domain.Ticket, int64, error) {
	if err := filter.Validate(); err != nil {
		return nil, 0, err
	}

	conditions := []string{"TRUE"}
	args := []interface{}{}
	argIndex := 1

	if len(filter.Status) > 0 {
		placeholders := make([]string, len(filter.Status))
		for i, s := range filter.Status {
			placeholders[i] = fmt.Sprintf("$%d", argIndex)
			args = append(args, s)
			argIndex++
		}
		conditions = append(conditions, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ", ")))
	}

	if filter.AssigneeID != nil {
		conditions = append(conditions, fmt.Sprintf("assignee_id = $%d", argIndex))
		args = append(args, *filter.AssigneeID)
		argIndex++
	}

	whereClause := strings.Join(conditions, " AND ")

	var totalCount int64
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM tickets WHERE %s", whereClause)
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&totalCount); err != nil {
		return nil, 0, fmt.Errorf("failed to count tickets: %w", err)
	}

	selectQuery := fmt.Sprintf(`
		SELECT %s
		FROM tickets
		WHERE %s
		ORDER BY created_at DESC, id
		LIMIT $%d OFFSET $%d`,
		ticketColumns, whereClause, argIndex, argIndex+1)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.Query(ctx, selectQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list tickets: %w", err)
	}
	defer rows.Close()

	tickets := make([]*domain.Ticket, 0, filter.Limit)
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan ticket: %w", err)
		}
		tickets = append(tickets, ticket)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating tickets: %w", err)
	}

	return tickets, totalCount, nil
}

// update locks the ticket row, applies fn, and writes the mutable fields back.
func (r *PgTicketRepository) update(ctx context.Context, id uuid.UUID, fn func(*domain.Ticket) error) error {
	return withTx(ctx, r.db, func(db DBTX) error {
		selectQuery := `SELECT ` + ticketColumns + ` FROM tickets WHERE id = $1 FOR UPDATE`

		ticket, err := scanTicket(db.QueryRow(ctx, selectQuery, id))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domain.NewNotFoundError("ticket", id.String())
			}
			return fmt.Errorf("failed to lock ticket: %w", err)
		}

		if err := fn(ticket); err != nil {
			return err
		}

		updateQuery := `
			UPDATE tickets
			SET status = $2, priority = $3, summary = $4, notes = $5,
				required_skills = $6, error_reason = $7, updated_at = $8
			WHERE id = $1`

		result, err := db.Exec(ctx, updateQuery,
			id, ticket.Status, ticket.Priority, ticket.Summary, ticket.Notes,
			ticket.RequiredSkills, ticket.ErrorReason, time.Now().UTC(),
		)
		if err != nil {
			return fmt.Errorf("failed to update ticket: %w", err)
		}
		if result.RowsAffected() == 0 {
			return domain.NewNotFoundError("ticket", id.String())
		}
		return nil
	})
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var t domain.Ticket
	err := row.Scan(
		&t.ID, &t.Title, &t.Description, &t.Status, &t.Priority, &t.Summary, &t.Notes,
		&t.RequiredSkills, &t.AssigneeID, &t.CreatedBy, &t.ErrorReason, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if t.RequiredSkills == nil {
		t.RequiredSkills = []string{}
	}
	return &t, nil
}

func skillsOrEmpty(skills []string) []string {
	if skills == nil {
		return []string{}
	}
	return skills
}
