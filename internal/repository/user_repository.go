package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/helixir/helpdesk-triage-service/internal/domain"
)

// UserRepository handles user and handler lookups.
type UserRepository interface {
	// Create inserts a user. Skills are stored as given.
	// Returns domain.ErrAlreadyExists if the ID or email is taken.
	Create(ctx context.Context, user *domain.User) error

	// Get retrieves a user by ID.
	// Returns domain.ErrNotFound if no user exists.
	Get(ctx context.Context, id uuid.UUID) (*domain.User, error)

	// FindModeratorsBySkills returns moderators having at least one of the
	// given skills (case-insensitive), ordered by created_at then id.
	FindModeratorsBySkills(ctx context.Context, skills []string) ([]*domain.User, error)

	// FindAdmin returns the earliest created admin.
	// Returns domain.ErrNotFound if there is none.
	FindAdmin(ctx context.Context) (*domain.User, error)
}
