package service

import (
	"context"
	"testing"
	"time"

	"ironforged/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

const (
	TestDiscordID      = 111111
	TestOtherDiscordID = 222222
	TestAdminDiscordID = 999999
)

var testNow = time.Date(2024, 11, 5, 18, 30, 0, 0, time.UTC)

// TestMocks bundles a mocked unit of work and its repositories
type TestMocks struct {
	Factory        *MockUnitOfWorkFactory
	UoW            *MockUnitOfWork
	MemberRepo     *MockMemberRepository
	ChangelogRepo  *MockChangelogRepository
	TicketRepo     *MockRaffleTicketRepository
	EventPublisher *MockEventPublisher
}

// NewTestMocks wires a factory that hands out a single mocked unit of work
func NewTestMocks() *TestMocks {
	m := &TestMocks{
		Factory:        new(MockUnitOfWorkFactory),
		UoW:            new(MockUnitOfWork),
		MemberRepo:     new(MockMemberRepository),
		ChangelogRepo:  new(MockChangelogRepository),
		TicketRepo:     new(MockRaffleTicketRepository),
		EventPublisher: new(MockEventPublisher),
	}
	m.UoW.SetRepositories(m.MemberRepo, m.ChangelogRepo, m.TicketRepo, m.EventPublisher)
	return m
}

// ExpectTransaction sets up Create/Begin/Rollback and optionally Commit
func (m *TestMocks) ExpectTransaction(ctx context.Context, commit bool) {
	m.Factory.On("Create").Return(m.UoW)
	m.UoW.On("Begin", ctx).Return(nil)
	m.UoW.On("Rollback").Return(nil)
	if commit {
		m.UoW.On("Commit").Return(nil)
	}
}

// AssertAllExpectations asserts all mock expectations
func (m *TestMocks) AssertAllExpectations(t *testing.T) {
	m.Factory.AssertExpectations(t)
	m.UoW.AssertExpectations(t)
	m.MemberRepo.AssertExpectations(t)
	m.ChangelogRepo.AssertExpectations(t)
	m.TicketRepo.AssertExpectations(t)
	m.EventPublisher.AssertExpectations(t)
}

func newTestMember(discordID int64, nickname string, ingots int64) *models.Member {
	return &models.Member{
		ID:              uuid.New(),
		DiscordID:       discordID,
		Active:          true,
		Nickname:        nickname,
		Ingots:          ingots,
		Rank:            models.RankIron,
		Role:            models.RoleMember,
		JoinedDate:      testNow.Add(-30 * 24 * time.Hour),
		LastChangedDate: testNow.Add(-time.Hour),
	}
}

func changelogOf(changeType models.ChangeType, prev, next string) any {
	return mock.MatchedBy(func(entry *models.Changelog) bool {
		return entry.ChangeType == changeType && entry.PreviousValue == prev && entry.NewValue == next
	})
}

func fixedClock() func() time.Time {
	return func() time.Time { return testNow }
}
