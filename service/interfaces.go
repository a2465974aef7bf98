package service

import (
	"context"
	"time"

	"ironforged/events"
	"ironforged/models"
	"ironforged/state"

	"github.com/google/uuid"
)

// MemberRepository defines the interface for member data access.
// Uniqueness violations surface as *UniqueNicknameError or
// *UniqueDiscordIDError.
type MemberRepository interface {
	// Create inserts a new member and fills in its ID
	Create(ctx context.Context, member *models.Member) error

	// GetByID returns nil when no member has the id
	GetByID(ctx context.Context, id uuid.UUID) (*models.Member, error)

	// GetByIDForUpdate is GetByID holding a row lock until the transaction ends
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Member, error)

	// GetByDiscordID returns nil when no member has the Discord id
	GetByDiscordID(ctx context.Context, discordID int64) (*models.Member, error)

	// GetByDiscordIDForUpdate is GetByDiscordID holding a row lock
	GetByDiscordIDForUpdate(ctx context.Context, discordID int64) (*models.Member, error)

	// GetByNickname matches active and inactive members alike
	GetByNickname(ctx context.Context, nickname string) (*models.Member, error)

	// GetAllActive returns every active member ordered by nickname
	GetAllActive(ctx context.Context) ([]*models.Member, error)

	// Update writes every mutable column of member
	Update(ctx context.Context, member *models.Member) error

	// UpdateIngots sets a member's balance and last changed date
	UpdateIngots(ctx context.Context, id uuid.UUID, ingots int64, changedAt time.Time) error
}

// ChangelogRepository defines the interface for the member audit trail
type ChangelogRepository interface {
	// Record appends an entry and fills in its ID
	Record(ctx context.Context, entry *models.Changelog) error

	// GetByMember returns a member's most recent entries, newest first
	GetByMember(ctx context.Context, memberID uuid.UUID, limit int) ([]*models.Changelog, error)
}

// RaffleTicketRepository defines the interface for raffle ticket balances
type RaffleTicketRepository interface {
	// GetByMemberIDForUpdate returns nil when the member holds no ticket row
	GetByMemberIDForUpdate(ctx context.Context, memberID uuid.UUID) (*models.RaffleTicket, error)

	// Upsert sets a member's ticket quantity, creating the row when needed
	Upsert(ctx context.Context, memberID uuid.UUID, quantity int64, changedAt time.Time) (*models.RaffleTicket, error)

	// GetAll returns every ticket row with a positive quantity
	GetAll(ctx context.Context) ([]*models.RaffleTicket, error)

	// DeleteAll clears the table and returns the number of removed rows
	DeleteAll(ctx context.Context) (int64, error)
}

// EventPublisher defines the interface for publishing events
type EventPublisher interface {
	Publish(event events.Event)
}

// UnitOfWork manages one database transaction and the repositories bound to it
type UnitOfWork interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) error

	// Commit commits the transaction and flushes queued events
	Commit() error

	// Rollback rolls back the transaction; a no-op after Commit
	Rollback() error

	// Repository getters
	MemberRepository() MemberRepository
	ChangelogRepository() ChangelogRepository
	RaffleTicketRepository() RaffleTicketRepository
	EventBus() EventPublisher
}

// UnitOfWorkFactory defines the interface for creating UnitOfWork instances
type UnitOfWorkFactory interface {
	Create() UnitOfWork
}

// MemberService owns member identity and lifecycle state
type MemberService interface {
	// CreateMember adds an active member with no ingots. A nil rank means iron.
	CreateMember(ctx context.Context, discordID int64, nickname string, rank *models.Rank, actorID *uuid.UUID) (*models.Member, error)

	GetMemberByID(ctx context.Context, id uuid.UUID) (*models.Member, error)
	GetMemberByDiscordID(ctx context.Context, discordID int64) (*models.Member, error)
	GetMemberByNickname(ctx context.Context, nickname string) (*models.Member, error)
	GetAllActiveMembers(ctx context.Context) ([]*models.Member, error)

	// ReactivateMember brings a former member back. Ingots are zeroed when
	// the member has been gone at least the configured reset period.
	ReactivateMember(ctx context.Context, id uuid.UUID, nickname string, rank *models.Rank) (*models.Member, error)

	DisableMember(ctx context.Context, id uuid.UUID) (*models.Member, error)
	ChangeNickname(ctx context.Context, id uuid.UUID, nickname string) (*models.Member, error)
	ChangeRank(ctx context.Context, id uuid.UUID, rank models.Rank) (*models.Member, error)
	ChangeRole(ctx context.Context, id uuid.UUID, role models.Role) (*models.Member, error)

	// GetChangelog returns the member's most recent audit entries
	GetChangelog(ctx context.Context, id uuid.UUID, limit int) ([]*models.Changelog, error)
}

// IngotService is the ingot ledger
type IngotService interface {
	// TryAddIngots credits a positive quantity
	TryAddIngots(ctx context.Context, discordID int64, quantity int64, actorDiscordID *int64, reason string) (*models.IngotResult, error)

	// TryRemoveIngots debits a negative quantity, refusing to go below zero
	TryRemoveIngots(ctx context.Context, discordID int64, quantity int64, actorDiscordID *int64, reason string) (*models.IngotResult, error)

	// GetBalance returns the member's balance, Status false when unknown
	GetBalance(ctx context.Context, discordID int64) (*models.IngotResult, error)
}

// RaffleService manages ticket purchases for the running raffle round
type RaffleService interface {
	TryBuyTicket(ctx context.Context, discordID int64, ticketPrice int64, quantity int64) (*models.IngotResult, error)
	GetTickets(ctx context.Context, discordID int64) (int64, error)
	TotalTickets(ctx context.Context) (int64, error)

	// PickWinner draws a member weighted by tickets held. Returns nil when no
	// tickets were sold.
	PickWinner(ctx context.Context) (*RaffleDraw, error)

	// DeleteAllTickets ends the round; pay the winner before calling it
	DeleteAllTickets(ctx context.Context) error
}

// PayrollService credits every active member on a schedule
type PayrollService interface {
	PayActiveMembers(ctx context.Context, amount int64, reason string) (*PayrollSummary, error)
}

// GambleService runs the double-or-nothing mini-game
type GambleService interface {
	Offer(ctx context.Context, discordID int64, amount int64) (*state.Offer, *models.IngotResult, error)
	Accept(ctx context.Context, offerID uuid.UUID, discordID int64) (*GambleOutcome, error)
	Decline(ctx context.Context, offerID uuid.UUID, discordID int64) bool

	// ExpireOffers removes and returns every offer past its deadline
	ExpireOffers(ctx context.Context) []*state.Offer
}
