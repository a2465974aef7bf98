package service

import (
	"context"
	"time"

	"ironforged/events"
	"ironforged/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockMemberRepository is a mock implementation of MemberRepository
type MockMemberRepository struct {
	mock.Mock
}

func (m *MockMemberRepository) Create(ctx context.Context, member *models.Member) error {
	args := m.Called(ctx, member)
	return args.Error(0)
}

func (m *MockMemberRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Member, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Member), args.Error(1)
}

func (m *MockMemberRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Member, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Member), args.Error(1)
}

func (m *MockMemberRepository) GetByDiscordID(ctx context.Context, discordID int64) (*models.Member, error) {
	args := m.Called(ctx, discordID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Member), args.Error(1)
}

func (m *MockMemberRepository) GetByDiscordIDForUpdate(ctx context.Context, discordID int64) (*models.Member, error) {
	args := m.Called(ctx, discordID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Member), args.Error(1)
}

func (m *MockMemberRepository) GetByNickname(ctx context.Context, nickname string) (*models.Member, error) {
	args := m.Called(ctx, nickname)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Member), args.Error(1)
}

func (m *MockMemberRepository) GetAllActive(ctx context.Context) ([]*models.Member, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Member), args.Error(1)
}

func (m *MockMemberRepository) Update(ctx context.Context, member *models.Member) error {
	args := m.Called(ctx, member)
	return args.Error(0)
}

func (m *MockMemberRepository) UpdateIngots(ctx context.Context, id uuid.UUID, ingots int64, changedAt time.Time) error {
	args := m.Called(ctx, id, ingots, changedAt)
	return args.Error(0)
}

// MockChangelogRepository is a mock implementation of ChangelogRepository
type MockChangelogRepository struct {
	mock.Mock
}

func (m *MockChangelogRepository) Record(ctx context.Context, entry *models.Changelog) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockChangelogRepository) GetByMember(ctx context.Context, memberID uuid.UUID, limit int) ([]*models.Changelog, error) {
	args := m.Called(ctx, memberID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Changelog), args.Error(1)
}

// MockRaffleTicketRepository is a mock implementation of RaffleTicketRepository
type MockRaffleTicketRepository struct {
	mock.Mock
}

func (m *MockRaffleTicketRepository) GetByMemberIDForUpdate(ctx context.Context, memberID uuid.UUID) (*models.RaffleTicket, error) {
	args := m.Called(ctx, memberID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.RaffleTicket), args.Error(1)
}

func (m *MockRaffleTicketRepository) Upsert(ctx context.Context, memberID uuid.UUID, quantity int64, changedAt time.Time) (*models.RaffleTicket, error) {
	args := m.Called(ctx, memberID, quantity, changedAt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.RaffleTicket), args.Error(1)
}

func (m *MockRaffleTicketRepository) GetAll(ctx context.Context) ([]*models.RaffleTicket, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.RaffleTicket), args.Error(1)
}

func (m *MockRaffleTicketRepository) DeleteAll(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

// MockEventPublisher is a mock implementation of EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(event events.Event) {
	m.Called(event)
}

// MockUnitOfWork is a mock implementation of UnitOfWork
type MockUnitOfWork struct {
	mock.Mock
	memberRepo    MemberRepository
	changelogRepo ChangelogRepository
	ticketRepo    RaffleTicketRepository
	eventBus      EventPublisher
}

// SetRepositories wires the repositories returned by the getters
func (m *MockUnitOfWork) SetRepositories(memberRepo MemberRepository, changelogRepo ChangelogRepository, ticketRepo RaffleTicketRepository, eventBus EventPublisher) {
	m.memberRepo = memberRepo
	m.changelogRepo = changelogRepo
	m.ticketRepo = ticketRepo
	m.eventBus = eventBus
}

func (m *MockUnitOfWork) Begin(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockUnitOfWork) Commit() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) Rollback() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) MemberRepository() MemberRepository {
	return m.memberRepo
}

func (m *MockUnitOfWork) ChangelogRepository() ChangelogRepository {
	return m.changelogRepo
}

func (m *MockUnitOfWork) RaffleTicketRepository() RaffleTicketRepository {
	return m.ticketRepo
}

func (m *MockUnitOfWork) EventBus() EventPublisher {
	return m.eventBus
}

// MockUnitOfWorkFactory is a mock implementation of UnitOfWorkFactory
type MockUnitOfWorkFactory struct {
	mock.Mock
}

func (m *MockUnitOfWorkFactory) Create() UnitOfWork {
	args := m.Called()
	return args.Get(0).(UnitOfWork)
}
