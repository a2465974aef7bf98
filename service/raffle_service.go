package service

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"strconv"
	"time"

	"ironforged/events"
	"ironforged/models"

	log "github.com/sirupsen/logrus"
)

// RaffleDraw is the result of picking a raffle winner
type RaffleDraw struct {
	Winner        *models.Member
	WinnerTickets int64
	TotalTickets  int64
}

type raffleService struct {
	uowFactory UnitOfWorkFactory
	now        func() time.Time
	randInt64N func(n int64) int64
}

// NewRaffleService creates a new raffle service
func NewRaffleService(uowFactory UnitOfWorkFactory) RaffleService {
	return &raffleService{
		uowFactory: uowFactory,
		now:        func() time.Time { return time.Now().UTC() },
		randInt64N: rand.Int64N,
	}
}

// TryBuyTicket spends price*quantity ingots and credits the tickets in one
// transaction. A failed debit is returned unchanged and nothing is written.
func (s *raffleService) TryBuyTicket(ctx context.Context, discordID int64, ticketPrice int64, quantity int64) (*models.IngotResult, error) {
	if ticketPrice <= 0 {
		return failed("Ticket price must be a positive number", 0), nil
	}
	if quantity <= 0 {
		return failed("Ticket quantity must be a positive number", 0), nil
	}
	if quantity > math.MaxInt64/ticketPrice {
		return failed("That is more tickets than anyone could ever afford", 0), nil
	}
	cost := ticketPrice * quantity

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	member, err := uow.MemberRepository().GetByDiscordIDForUpdate(ctx, discordID)
	if err != nil {
		return nil, fmt.Errorf("failed to get member %d: %w", discordID, err)
	}
	if member == nil {
		return failed(fmt.Sprintf("Member with Discord ID %d not found", discordID), 0), nil
	}

	ticket, err := uow.RaffleTicketRepository().GetByMemberIDForUpdate(ctx, member.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get raffle tickets for member %s: %w", member.ID, err)
	}
	var owned int64
	if ticket != nil {
		owned = ticket.Quantity
	}

	now := s.now()
	result, err := adjustIngots(ctx, uow, member, -cost, nil, fmt.Sprintf("Purchased %d raffle tickets", quantity), now)
	if err != nil || !result.Status {
		return result, err
	}

	newOwned := owned + quantity
	if _, err := uow.RaffleTicketRepository().Upsert(ctx, member.ID, newOwned, now); err != nil {
		return nil, fmt.Errorf("failed to credit raffle tickets for member %s: %w", member.ID, err)
	}

	if err := journal(ctx, uow, &models.Changelog{
		MemberID:      member.ID,
		ChangeType:    models.ChangeTypePurchaseRaffleTickets,
		PreviousValue: strconv.FormatInt(owned, 10),
		NewValue:      strconv.FormatInt(newOwned, 10),
		Comment:       fmt.Sprintf("Bought %d tickets at %d ingots each", quantity, ticketPrice),
		Timestamp:     now,
	}); err != nil {
		return nil, err
	}

	uow.EventBus().Publish(events.RaffleTicketsPurchasedEvent{
		MemberID:    member.ID,
		DiscordID:   member.DiscordID,
		Quantity:    quantity,
		TotalOwned:  newOwned,
		IngotsSpent: cost,
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return &models.IngotResult{
		Status:   true,
		Message:  fmt.Sprintf("%s bought %d tickets for %d ingots and now holds %d", member.Nickname, quantity, cost, newOwned),
		NewTotal: result.NewTotal,
	}, nil
}

func (s *raffleService) GetTickets(ctx context.Context, discordID int64) (int64, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	member, err := uow.MemberRepository().GetByDiscordID(ctx, discordID)
	if err != nil {
		return 0, fmt.Errorf("failed to get member %d: %w", discordID, err)
	}
	if member == nil {
		return 0, fmt.Errorf("%w: discord id %d", ErrMemberNotFound, discordID)
	}

	ticket, err := uow.RaffleTicketRepository().GetByMemberIDForUpdate(ctx, member.ID)
	if err != nil {
		return 0, fmt.Errorf("failed to get raffle tickets for member %s: %w", member.ID, err)
	}
	if ticket == nil {
		return 0, nil
	}
	return ticket.Quantity, nil
}

func (s *raffleService) TotalTickets(ctx context.Context) (int64, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	tickets, err := uow.RaffleTicketRepository().GetAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get raffle tickets: %w", err)
	}

	var total int64
	for _, ticket := range tickets {
		total += ticket.Quantity
	}
	return total, nil
}

func (s *raffleService) PickWinner(ctx context.Context) (*RaffleDraw, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	tickets, err := uow.RaffleTicketRepository().GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get raffle tickets: %w", err)
	}

	var total int64
	for _, ticket := range tickets {
		total += ticket.Quantity
	}
	if total == 0 {
		return nil, nil
	}

	pick := s.randInt64N(total)
	for _, ticket := range tickets {
		if pick >= ticket.Quantity {
			pick -= ticket.Quantity
			continue
		}

		winner, err := uow.MemberRepository().GetByID(ctx, ticket.MemberID)
		if err != nil {
			return nil, fmt.Errorf("failed to get raffle winner %s: %w", ticket.MemberID, err)
		}
		if winner == nil {
			return nil, fmt.Errorf("%w: raffle winner %s", ErrMemberNotFound, ticket.MemberID)
		}

		log.WithFields(log.Fields{
			"discordID":     winner.DiscordID,
			"winnerTickets": ticket.Quantity,
			"totalTickets":  total,
		}).Info("Picked raffle winner")

		return &RaffleDraw{Winner: winner, WinnerTickets: ticket.Quantity, TotalTickets: total}, nil
	}

	return nil, fmt.Errorf("raffle draw %d fell outside %d tickets", pick, total)
}

func (s *raffleService) DeleteAllTickets(ctx context.Context) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	deleted, err := uow.RaffleTicketRepository().DeleteAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete raffle tickets: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithField("deletedRows", deleted).Info("Cleared raffle tickets")
	return nil
}
