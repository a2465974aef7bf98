package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"ironforged/events"
	"ironforged/models"

	log "github.com/sirupsen/logrus"
)

type ingotService struct {
	uowFactory UnitOfWorkFactory
	now        func() time.Time
}

// NewIngotService creates a new ingot ledger service
func NewIngotService(uowFactory UnitOfWorkFactory) IngotService {
	return &ingotService{
		uowFactory: uowFactory,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (s *ingotService) TryAddIngots(ctx context.Context, discordID int64, quantity int64, actorDiscordID *int64, reason string) (*models.IngotResult, error) {
	if quantity <= 0 {
		return failed("Quantity to add must be a positive number", 0), nil
	}
	return s.apply(ctx, discordID, quantity, actorDiscordID, reason)
}

func (s *ingotService) TryRemoveIngots(ctx context.Context, discordID int64, quantity int64, actorDiscordID *int64, reason string) (*models.IngotResult, error) {
	// Removals are negative so both directions share new = balance + quantity
	if quantity >= 0 {
		return failed("Quantity to remove must be a negative number", 0), nil
	}
	return s.apply(ctx, discordID, quantity, actorDiscordID, reason)
}

func (s *ingotService) GetBalance(ctx context.Context, discordID int64) (*models.IngotResult, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	member, err := uow.MemberRepository().GetByDiscordID(ctx, discordID)
	if err != nil {
		return nil, fmt.Errorf("failed to get member %d: %w", discordID, err)
	}
	if member == nil {
		return failed(fmt.Sprintf("Member with Discord ID %d not found", discordID), 0), nil
	}
	return &models.IngotResult{Status: true, Message: "Balance retrieved", NewTotal: member.Ingots}, nil
}

func (s *ingotService) apply(ctx context.Context, discordID int64, quantity int64, actorDiscordID *int64, reason string) (*models.IngotResult, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	// Row lock serializes concurrent mutations of the same balance
	member, err := uow.MemberRepository().GetByDiscordIDForUpdate(ctx, discordID)
	if err != nil {
		return nil, fmt.Errorf("failed to get member %d: %w", discordID, err)
	}
	if member == nil {
		return failed(fmt.Sprintf("Member with Discord ID %d not found", discordID), 0), nil
	}

	var actor *models.Member
	if actorDiscordID != nil {
		actor, err = uow.MemberRepository().GetByDiscordID(ctx, *actorDiscordID)
		if err != nil {
			return nil, fmt.Errorf("failed to get acting member %d: %w", *actorDiscordID, err)
		}
		if actor == nil {
			return failed(fmt.Sprintf("Acting member with Discord ID %d not found", *actorDiscordID), member.Ingots), nil
		}
	}

	result, err := adjustIngots(ctx, uow, member, quantity, actor, reason, s.now())
	if err != nil || !result.Status {
		return result, err
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return result, nil
}

// adjustIngots applies quantity to a member row already locked by the
// caller's unit of work. It is the only place balances change: the new
// total is validated, written and journalled together. Insufficient funds
// come back as a failed result carrying the current balance.
func adjustIngots(ctx context.Context, uow UnitOfWork, member *models.Member, quantity int64, actor *models.Member, reason string, now time.Time) (*models.IngotResult, error) {
	previous := member.Ingots
	newTotal := previous + quantity
	if quantity < 0 && newTotal < 0 {
		return failed(fmt.Sprintf("%s does not have enough ingots: has %d, needs %d", member.Nickname, previous, -quantity), previous), nil
	}
	if quantity > 0 && newTotal < previous {
		return failed("Ingot balance would overflow", previous), nil
	}

	if err := uow.MemberRepository().UpdateIngots(ctx, member.ID, newTotal, now); err != nil {
		return nil, fmt.Errorf("failed to update ingots for member %s: %w", member.ID, err)
	}

	changeType := models.ChangeTypeAddIngots
	if quantity < 0 {
		changeType = models.ChangeTypeRemoveIngots
	}

	entry := &models.Changelog{
		MemberID:      member.ID,
		ChangeType:    changeType,
		PreviousValue: strconv.FormatInt(previous, 10),
		NewValue:      strconv.FormatInt(newTotal, 10),
		Comment:       reason,
		Timestamp:     now,
	}
	if actor != nil {
		entry.AdminID = &actor.ID
	}
	if err := journal(ctx, uow, entry); err != nil {
		return nil, err
	}

	member.Ingots = newTotal
	member.LastChangedDate = now

	uow.EventBus().Publish(events.IngotsChangeEvent{
		MemberID:   member.ID,
		DiscordID:  member.DiscordID,
		OldBalance: previous,
		NewBalance: newTotal,
		Quantity:   quantity,
		ChangeType: changeType,
		Reason:     reason,
	})

	log.WithFields(log.Fields{
		"discordID":  member.DiscordID,
		"quantity":   quantity,
		"oldBalance": previous,
		"newBalance": newTotal,
		"reason":     reason,
	}).Debug("Applied ingot change")

	return &models.IngotResult{
		Status:   true,
		Message:  fmt.Sprintf("%s now has %d ingots", member.Nickname, newTotal),
		NewTotal: newTotal,
	}, nil
}

func failed(message string, total int64) *models.IngotResult {
	return &models.IngotResult{Status: false, Message: message, NewTotal: total}
}
