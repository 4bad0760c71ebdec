package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/helpdesk-triage-service/internal/domain"
)

var userRowColumns = []string{"id", "email", "role", "skills", "created_at"}

func newTestUser(role domain.Role, skills ...string) *domain.User {
	return &domain.User{
		ID:        uuid.New(),
		Email:     string(role) + "@example.com",
		Role:      role,
		Skills:    skills,
		CreatedAt: time.Now().UTC(),
	}
}

func TestPgUserRepository_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("inserts user", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		user := newTestUser(domain.RoleModerator, "hardware")
		mock.ExpectExec("INSERT INTO users").
			WithArgs(user.ID, user.Email, user.Role, []string{"hardware"}, user.CreatedAt).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		require.NoError(t, NewPgUserRepository(mock).Create(ctx, user))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate email is already exists", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		user := newTestUser(domain.RoleUser)
		mock.ExpectExec("INSERT INTO users").
			WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnError(&pgconn.PgError{Code: pgUniqueViolation})

		err = NewPgUserRepository(mock).Create(ctx, user)
		assert.True(t, errors.Is(err, domain.ErrAlreadyExists))
	})

	t.Run("empty email is invalid", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		user := newTestUser(domain.RoleUser)
		user.Email = ""
		err = NewPgUserRepository(mock).Create(ctx, user)
		assert.True(t, errors.Is(err, domain.ErrInvalidInput))
	})
}

func TestPgUserRepository_Get(t *testing.T) {
	ctx := context.Background()

	t.Run("returns not found", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		id := uuid.New()
		mock.ExpectQuery("SELECT .* FROM users WHERE id = \\$1").
			WithArgs(id).
			WillReturnError(pgx.ErrNoRows)

		_, err = NewPgUserRepository(mock).Get(ctx, id)
		assert.True(t, errors.Is(err, domain.ErrNotFound))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns user", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		user := newTestUser(domain.RoleUser)
		mock.ExpectQuery("SELECT .* FROM users WHERE id = \\$1").
			WithArgs(user.ID).
			WillReturnRows(pgxmock.NewRows(userRowColumns).
				AddRow(user.ID, user.Email, user.Role, []string{}, user.CreatedAt))

		got, err := NewPgUserRepository(mock).Get(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, user.Email, got.Email)
		assert.Equal(t, []string{}, got.Skills)
	})
}

func TestPgUserRepository_FindModeratorsBySkills(t *testing.T) {
	ctx := context.Background()

	t.Run("lower-cases skills and keeps store order", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		first := newTestUser(domain.RoleModerator, "Hardware")
		second := newTestUser(domain.RoleModerator, "hardware", "networking")
		second.CreatedAt = first.CreatedAt.Add(time.Second)

		mock.ExpectQuery("SELECT .* FROM users WHERE role = \\$1 .* ORDER BY created_at, id").
			WithArgs(domain.RoleModerator, []string{"hardware"}).
			WillReturnRows(pgxmock.NewRows(userRowColumns).
				AddRow(first.ID, first.Email, first.Role, first.Skills, first.CreatedAt).
				AddRow(second.ID, second.Email, second.Role, second.Skills, second.CreatedAt))

		users, err := NewPgUserRepository(mock).FindModeratorsBySkills(ctx, []string{" HARDWARE "})
		require.NoError(t, err)
		require.Len(t, users, 2)
		assert.Equal(t, first.ID, users[0].ID)
		assert.Equal(t, second.ID, users[1].ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("empty skills skip the query", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		users, err := NewPgUserRepository(mock).FindModeratorsBySkills(ctx, []string{"", "  "})
		require.NoError(t, err)
		assert.Empty(t, users)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("propagates store errors", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectQuery("SELECT .* FROM users").
			WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnError(errors.New("database error"))

		_, err = NewPgUserRepository(mock).FindModeratorsBySkills(ctx, []string{"hardware"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to query moderators")
	})
}

func TestPgUserRepository_FindAdmin(t *testing.T) {
	ctx := context.Background()

	t.Run("returns earliest admin", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		admin := newTestUser(domain.RoleAdmin)
		mock.ExpectQuery("SELECT .* FROM users WHERE role = \\$1 ORDER BY created_at, id LIMIT 1").
			WithArgs(domain.RoleAdmin).
			WillReturnRows(pgxmock.NewRows(userRowColumns).
				AddRow(admin.ID, admin.Email, admin.Role, []string{}, admin.CreatedAt))

		got, err := NewPgUserRepository(mock).FindAdmin(ctx)
		require.NoError(t, err)
		assert.Equal(t, admin.ID, got.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no admin is not found", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectQuery("SELECT .* FROM users WHERE role = \\$1").
			WithArgs(domain.RoleAdmin).
			WillReturnError(pgx.ErrNoRows)

		_, err = NewPgUserRepository(mock).FindAdmin(ctx)
		assert.True(t, errors.Is(err, domain.ErrNotFound))
	})
}
