package activities

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/helixir/helpdesk-triage-service/internal/domain"
	"github.com/helixir/helpdesk-triage-service/internal/llm"
	"github.com/helixir/helpdesk-triage-service/internal/notify"
	"github.com/helixir/helpdesk-triage-service/internal/outbox"
	"github.com/helixir/helpdesk-triage-service/internal/repository"
)

// ---------------------------------------------------------------------------
// Mock: TicketRepository
// ---------------------------------------------------------------------------

type mockTicketRepository struct {
	mock.Mock
}

func (m *mockTicketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	args := m.Called(ctx, ticket)
	return args.Error(0)
}

func (m *mockTicketRepository) Get(ctx context.Context, id uuid.UUID) (*domain.Ticket, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Ticket), args.Error(1)
}

func (m *mockTicketRepository) SaveTriage(ctx context.Context, id uuid.UUID, update repository.TriageUpdate) error {
	args := m.Called(ctx, id, update)
	return args.Error(0)
}

func (m *mockTicketRepository) SaveAssignment(ctx context.Context, id uuid.UUID, assigneeID *uuid.UUID) error {
	args := m.Called(ctx, id, assigneeID)
	return args.Error(0)
}

func (m *mockTicketRepository) MarkError(ctx context.Context, id uuid.UUID, reason string) error {
	args := m.Called(ctx, id, reason)
	return args.Error(0)
}

func (m *mockTicketRepository) List(ctx context.Context, filter repository.TicketFilter) ([]*domain.Ticket, int64, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*domain.Ticket), args.Get(1).(int64), args.Error(2)
}

// ---------------------------------------------------------------------------
// Mock: UserRepository
// ---------------------------------------------------------------------------

type mockUserRepository struct {
	mock.Mock
}

func (m *mockUserRepository) Create(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *mockUserRepository) Get(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepository) FindModeratorsBySkills(ctx context.Context, skills []string) ([]*domain.User, error) {
	args := m.Called(ctx, skills)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.User), args.Error(1)
}

func (m *mockUserRepository) FindAdmin(ctx context.Context) (*domain.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

// ---------------------------------------------------------------------------
// Fakes: classifier, selector, notifier, publisher
// ---------------------------------------------------------------------------

type fakeClassifier struct {
	classification *llm.Classification
	failure        *llm.ClassifierFailure
	calls          int
}

func (f *fakeClassifier) Classify(context.Context, string, string) (*llm.Classification, *llm.ClassifierFailure) {
	f.calls++
	return f.classification, f.failure
}

func (f *fakeClassifier) Provider() string { return "fake" }
func (f *fakeClassifier) Model() string    { return "fake-model" }

type fakeSelector struct {
	handler *domain.User
	err     error
	skills  []string
}

func (f *fakeSelector) Assign(_ context.Context, skills []string) (*domain.User, error) {
	f.skills = skills
	return f.handler, f.err
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) NotifyAssignment(ctx context.Context, a notify.Assignment) (notify.Outcome, error) {
	args := m.Called(ctx, a)
	return args.Get(0).(notify.Outcome), args.Error(1)
}

func (m *mockNotifier) NotifyWelcome(ctx context.Context, user *domain.User) (notify.Outcome, error) {
	args := m.Called(ctx, user)
	return args.Get(0).(notify.Outcome), args.Error(1)
}

type mockEventPublisher struct {
	published []outbox.EmitParams
	err       error
}

func (m *mockEventPublisher) Publish(_ context.Context, params outbox.EmitParams) error {
	if m.err != nil {
		return m.err
	}
	m.published = append(m.published, params)
	return nil
}
