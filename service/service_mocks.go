package service

import (
	"context"

	"ironforged/models"
	"ironforged/state"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockMemberService is a mock implementation of MemberService
type MockMemberService struct {
	mock.Mock
}

func (m *MockMemberService) CreateMember(ctx context.Context, discordID int64, nickname string, rank *models.Rank, actorID *uuid.UUID) (*models.Member, error) {
	args := m.Called(ctx, discordID, nickname, rank, actorID)
	return memberOrNil(args.Get(0)), args.Error(1)
}

func (m *MockMemberService) GetMemberByID(ctx context.Context, id uuid.UUID) (*models.Member, error) {
	args := m.Called(ctx, id)
	return memberOrNil(args.Get(0)), args.Error(1)
}

func (m *MockMemberService) GetMemberByDiscordID(ctx context.Context, discordID int64) (*models.Member, error) {
	args := m.Called(ctx, discordID)
	return memberOrNil(args.Get(0)), args.Error(1)
}

func (m *MockMemberService) GetMemberByNickname(ctx context.Context, nickname string) (*models.Member, error) {
	args := m.Called(ctx, nickname)
	return memberOrNil(args.Get(0)), args.Error(1)
}

func (m *MockMemberService) GetAllActiveMembers(ctx context.Context) ([]*models.Member, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Member), args.Error(1)
}

func (m *MockMemberService) ReactivateMember(ctx context.Context, id uuid.UUID, nickname string, rank *models.Rank) (*models.Member, error) {
	args := m.Called(ctx, id, nickname, rank)
	return memberOrNil(args.Get(0)), args.Error(1)
}

func (m *MockMemberService) DisableMember(ctx context.Context, id uuid.UUID) (*models.Member, error) {
	args := m.Called(ctx, id)
	return memberOrNil(args.Get(0)), args.Error(1)
}

func (m *MockMemberService) ChangeNickname(ctx context.Context, id uuid.UUID, nickname string) (*models.Member, error) {
	args := m.Called(ctx, id, nickname)
	return memberOrNil(args.Get(0)), args.Error(1)
}

func (m *MockMemberService) ChangeRank(ctx context.Context, id uuid.UUID, rank models.Rank) (*models.Member, error) {
	args := m.Called(ctx, id, rank)
	return memberOrNil(args.Get(0)), args.Error(1)
}

func (m *MockMemberService) ChangeRole(ctx context.Context, id uuid.UUID, role models.Role) (*models.Member, error) {
	args := m.Called(ctx, id, role)
	return memberOrNil(args.Get(0)), args.Error(1)
}

func (m *MockMemberService) GetChangelog(ctx context.Context, id uuid.UUID, limit int) ([]*models.Changelog, error) {
	args := m.Called(ctx, id, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Changelog), args.Error(1)
}

// MockIngotService is a mock implementation of IngotService
type MockIngotService struct {
	mock.Mock
}

func (m *MockIngotService) TryAddIngots(ctx context.Context, discordID int64, quantity int64, actorDiscordID *int64, reason string) (*models.IngotResult, error) {
	args := m.Called(ctx, discordID, quantity, actorDiscordID, reason)
	return resultOrNil(args.Get(0)), args.Error(1)
}

func (m *MockIngotService) TryRemoveIngots(ctx context.Context, discordID int64, quantity int64, actorDiscordID *int64, reason string) (*models.IngotResult, error) {
	args := m.Called(ctx, discordID, quantity, actorDiscordID, reason)
	return resultOrNil(args.Get(0)), args.Error(1)
}

func (m *MockIngotService) GetBalance(ctx context.Context, discordID int64) (*models.IngotResult, error) {
	args := m.Called(ctx, discordID)
	return resultOrNil(args.Get(0)), args.Error(1)
}

// MockRaffleService is a mock implementation of RaffleService
type MockRaffleService struct {
	mock.Mock
}

func (m *MockRaffleService) TryBuyTicket(ctx context.Context, discordID int64, ticketPrice int64, quantity int64) (*models.IngotResult, error) {
	args := m.Called(ctx, discordID, ticketPrice, quantity)
	return resultOrNil(args.Get(0)), args.Error(1)
}

func (m *MockRaffleService) GetTickets(ctx context.Context, discordID int64) (int64, error) {
	args := m.Called(ctx, discordID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRaffleService) TotalTickets(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRaffleService) PickWinner(ctx context.Context) (*RaffleDraw, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*RaffleDraw), args.Error(1)
}

func (m *MockRaffleService) DeleteAllTickets(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockGambleService is a mock implementation of GambleService
type MockGambleService struct {
	mock.Mock
}

func (m *MockGambleService) Offer(ctx context.Context, discordID int64, amount int64) (*state.Offer, *models.IngotResult, error) {
	args := m.Called(ctx, discordID, amount)
	var offer *state.Offer
	if args.Get(0) != nil {
		offer = args.Get(0).(*state.Offer)
	}
	return offer, resultOrNil(args.Get(1)), args.Error(2)
}

func (m *MockGambleService) Accept(ctx context.Context, offerID uuid.UUID, discordID int64) (*GambleOutcome, error) {
	args := m.Called(ctx, offerID, discordID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*GambleOutcome), args.Error(1)
}

func (m *MockGambleService) Decline(ctx context.Context, offerID uuid.UUID, discordID int64) bool {
	args := m.Called(ctx, offerID, discordID)
	return args.Bool(0)
}

func (m *MockGambleService) ExpireOffers(ctx context.Context) []*state.Offer {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]*state.Offer)
}

func memberOrNil(v any) *models.Member {
	if v == nil {
		return nil
	}
	return v.(*models.Member)
}

func resultOrNil(v any) *models.IngotResult {
	if v == nil {
		return nil
	}
	return v.(*models.IngotResult)
}
