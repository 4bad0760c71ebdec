package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/helixir/helpdesk-triage-service/internal/domain"
)

// Compile-time interface verification.
var _ UserRepository = (*PgUserRepository)(nil)

const userColumns = `id, email, role, skills, created_at`

// PgUserRepository is a PostgreSQL implementation of UserRepository.
type PgUserRepository struct {
	db DBTX
}

// NewPgUserRepository creates a new PostgreSQL user repository.
func NewPgUserRepository(db DBTX) *PgUserRepository {
	return &PgUserRepository{db: db}
}

// Create inserts a user.
func (r *PgUserRepository) Create(ctx context.Context, user *domain.User) error {
	if user == nil {
		return domain.NewValidationError("user", "user cannot be nil")
	}
	if user.ID == uuid.Nil {
		return domain.NewValidationError("id", "user ID is required")
	}
	if strings.TrimSpace(user.Email) == "" {
		return domain.NewValidationError("email", "must not be empty")
	}

	query := `INSERT INTO users (` + userColumns + `) VALUES ($1, $2, $3, $4, $5)`

	_, err := r.db.Exec(ctx, query, user.ID, user.Email, user.Role, skillsOrEmpty(user.Skills), user.CreatedAt)
	if err != nil {
		if isPgError(err, pgUniqueViolation) {
			return domain.NewAlreadyExistsError("user", user.Email)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// Get retrieves a user by ID.
func (r *PgUserRepository) Get(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	user, err := scanUser(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("user", id.String())
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// FindModeratorsBySkills returns moderators sharing at least one skill.
func (r *PgUserRepository) FindModeratorsBySkills(ctx context.Context, skills []string) ([]*domain.User, error) {
	wanted := make([]string, 0, len(skills))
	for _, s := range skills {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			wanted = append(wanted, s)
		}
	}
	if len(wanted) == 0 {
		return []*domain.User{}, nil
	}

	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE role = $1
			AND EXISTS (SELECT 1 FROM unnest(skills) AS s WHERE lower(s) = ANY($2))
		ORDER BY created_at, id`

	rows, err := r.db.Query(ctx, query, domain.RoleModerator, wanted)
	if err != nil {
		return nil, fmt.Errorf("failed to query moderators: %w", err)
	}
	defer rows.Close()

	users := []*domain.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan moderator: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating moderators: %w", err)
	}

	return users, nil
}

// FindAdmin returns the earliest created admin.
func (r *PgUserRepository) FindAdmin(ctx context.Context) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE role = $1 ORDER BY created_at, id LIMIT 1`

	user, err := scanUser(r.db.QueryRow(ctx, query, domain.RoleAdmin))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("user", "admin")
		}
		return nil, fmt.Errorf("failed to find admin: %w", err)
	}
	return user, nil
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	if err := row.Scan(&u.ID, &u.Email, &u.Role, &u.Skills, &u.CreatedAt); err != nil {
		return nil, err
	}
	if u.Skills == nil {
		u.Skills = []string{}
	}
	return &u, nil
}
