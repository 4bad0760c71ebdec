package triage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/helixir/helpdesk-triage-service/internal/domain"
)

type mockHandlerFinder struct {
	mock.Mock
}

func (m *mockHandlerFinder) FindModeratorsBySkills(ctx context.Context, skills []string) ([]*domain.User, error) {
	args := m.Called(ctx, skills)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.User), args.Error(1)
}

func (m *mockHandlerFinder) FindAdmin(ctx context.Context) (*domain.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func newHandler(role domain.Role, createdAt time.Time, skills ...string) *domain.User {
	return &domain.User{
		ID:        uuid.New(),
		Email:     string(role) + "@example.com",
		Role:      role,
		Skills:    skills,
		CreatedAt: createdAt,
	}
}

func TestAssignmentPolicy_Assign(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	admin := newHandler(domain.RoleAdmin, base)

	t.Run("moderator with overlapping skill wins", func(t *testing.T) {
		hw := newHandler(domain.RoleModerator, base, "Hardware", "printers")
		finder := &mockHandlerFinder{}
		finder.On("FindModeratorsBySkills", mock.Anything, []string{"hardware"}).
			Return([]*domain.User{hw}, nil)

		got, err := NewAssignmentPolicy(finder).Assign(context.Background(), []string{"hardware"})
		require.NoError(t, err)
		assert.Equal(t, hw, got)
		finder.AssertNotCalled(t, "FindAdmin", mock.Anything)
	})

	t.Run("oldest qualifying moderator is chosen", func(t *testing.T) {
		newer := newHandler(domain.RoleModerator, base.Add(time.Hour), "networking")
		older := newHandler(domain.RoleModerator, base, "hardware")
		finder := &mockHandlerFinder{}
		finder.On("FindModeratorsBySkills", mock.Anything, mock.Anything).
			Return([]*domain.User{newer, older}, nil)

		policy := NewAssignmentPolicy(finder)
		for i := 0; i < 10; i++ {
			got, err := policy.Assign(context.Background(), []string{"hardware", "networking"})
			require.NoError(t, err)
			assert.Equal(t, older.ID, got.ID)
		}
	})

	t.Run("moderators without overlap are ignored", func(t *testing.T) {
		other := newHandler(domain.RoleModerator, base, "billing")
		finder := &mockHandlerFinder{}
		finder.On("FindModeratorsBySkills", mock.Anything, mock.Anything).
			Return([]*domain.User{other}, nil)
		finder.On("FindAdmin", mock.Anything).Return(admin, nil)

		got, err := NewAssignmentPolicy(finder).Assign(context.Background(), []string{"hardware"})
		require.NoError(t, err)
		assert.Equal(t, admin, got)
	})

	t.Run("empty skills go straight to admin", func(t *testing.T) {
		finder := &mockHandlerFinder{}
		finder.On("FindAdmin", mock.Anything).Return(admin, nil)

		got, err := NewAssignmentPolicy(finder).Assign(context.Background(), []string{" ", ""})
		require.NoError(t, err)
		assert.Equal(t, admin, got)
		finder.AssertNotCalled(t, "FindModeratorsBySkills", mock.Anything, mock.Anything)
	})

	t.Run("no admin leaves ticket unassigned", func(t *testing.T) {
		finder := &mockHandlerFinder{}
		finder.On("FindModeratorsBySkills", mock.Anything, mock.Anything).Return([]*domain.User{}, nil)
		finder.On("FindAdmin", mock.Anything).Return(nil, domain.NewNotFoundError("admin", "any"))

		got, err := NewAssignmentPolicy(finder).Assign(context.Background(), []string{"hardware"})
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("store failure is returned", func(t *testing.T) {
		finder := &mockHandlerFinder{}
		finder.On("FindModeratorsBySkills", mock.Anything, mock.Anything).
			Return(nil, errors.New("connection refused"))

		got, err := NewAssignmentPolicy(finder).Assign(context.Background(), []string{"hardware"})
		require.Error(t, err)
		assert.Nil(t, got)
		assert.Contains(t, err.Error(), "find moderators")
	})

	t.Run("admin lookup failure is returned", func(t *testing.T) {
		finder := &mockHandlerFinder{}
		finder.On("FindAdmin", mock.Anything).Return(nil, errors.New("timeout"))

		_, err := NewAssignmentPolicy(finder).Assign(context.Background(), nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "find admin")
	})
}
