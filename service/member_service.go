package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"ironforged/events"
	"ironforged/models"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// DefaultReactivationResetAfter is how long a member must have been gone
// before rejoining zeroes their ingots.
const DefaultReactivationResetAfter = 24 * time.Hour

type memberService struct {
	uowFactory UnitOfWorkFactory
	resetAfter time.Duration
	now        func() time.Time
}

// NewMemberService creates a new member service. resetAfter is the
// reactivation policy: returning after at least that long resets ingots.
func NewMemberService(uowFactory UnitOfWorkFactory, resetAfter time.Duration) MemberService {
	if resetAfter <= 0 {
		resetAfter = DefaultReactivationResetAfter
	}
	return &memberService{
		uowFactory: uowFactory,
		resetAfter: resetAfter,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (s *memberService) CreateMember(ctx context.Context, discordID int64, nickname string, rank *models.Rank, actorID *uuid.UUID) (*models.Member, error) {
	nickname = strings.TrimSpace(nickname)
	if nickname == "" {
		return nil, fmt.Errorf("nickname cannot be empty")
	}

	memberRank := models.RankIron
	if rank != nil {
		memberRank = *rank
	}
	if !memberRank.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRank, memberRank)
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	now := s.now()
	member := &models.Member{
		DiscordID:       discordID,
		Active:          true,
		Nickname:        nickname,
		Ingots:          0,
		Rank:            memberRank,
		Role:            models.RoleMember,
		JoinedDate:      now,
		LastChangedDate: now,
	}

	// Uniqueness is left to the storage constraints; the typed error bubbles up
	// and the deferred rollback discards the partial write.
	if err := uow.MemberRepository().Create(ctx, member); err != nil {
		return nil, err
	}

	if err := journal(ctx, uow, &models.Changelog{
		MemberID:   member.ID,
		AdminID:    actorID,
		ChangeType: models.ChangeTypeAddMember,
		NewValue:   nickname,
		Comment:    "Added member",
		Timestamp:  now,
	}); err != nil {
		return nil, err
	}

	uow.EventBus().Publish(events.MemberCreatedEvent{
		MemberID:  member.ID,
		DiscordID: member.DiscordID,
		Nickname:  member.Nickname,
		Rank:      member.Rank,
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"memberID":  member.ID,
		"discordID": discordID,
		"nickname":  nickname,
	}).Info("Created member")

	return member, nil
}

func (s *memberService) GetMemberByID(ctx context.Context, id uuid.UUID) (*models.Member, error) {
	return s.read(ctx, func(repo MemberRepository) (*models.Member, error) {
		return repo.GetByID(ctx, id)
	})
}

func (s *memberService) GetMemberByDiscordID(ctx context.Context, discordID int64) (*models.Member, error) {
	return s.read(ctx, func(repo MemberRepository) (*models.Member, error) {
		return repo.GetByDiscordID(ctx, discordID)
	})
}

func (s *memberService) GetMemberByNickname(ctx context.Context, nickname string) (*models.Member, error) {
	return s.read(ctx, func(repo MemberRepository) (*models.Member, error) {
		return repo.GetByNickname(ctx, strings.TrimSpace(nickname))
	})
}

func (s *memberService) GetAllActiveMembers(ctx context.Context) ([]*models.Member, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	members, err := uow.MemberRepository().GetAllActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get active members: %w", err)
	}
	return members, nil
}

func (s *memberService) GetChangelog(ctx context.Context, id uuid.UUID, limit int) ([]*models.Changelog, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	entries, err := uow.ChangelogRepository().GetByMember(ctx, id, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get changelog for member %s: %w", id, err)
	}
	return entries, nil
}

func (s *memberService) ReactivateMember(ctx context.Context, id uuid.UUID, nickname string, rank *models.Rank) (*models.Member, error) {
	nickname = strings.TrimSpace(nickname)
	if nickname == "" {
		return nil, fmt.Errorf("nickname cannot be empty")
	}
	if rank != nil && !rank.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRank, *rank)
	}

	return s.mutate(ctx, id, func(uow UnitOfWork, member *models.Member, now time.Time) error {
		entries := make([]*models.Changelog, 0, 5)
		record := func(changeType models.ChangeType, prev, next, comment string) {
			entries = append(entries, &models.Changelog{
				MemberID:      member.ID,
				ChangeType:    changeType,
				PreviousValue: prev,
				NewValue:      next,
				Comment:       comment,
				Timestamp:     now,
			})
		}

		wasActive := member.Active
		if !wasActive {
			record(models.ChangeTypeActivityChange, "false", "true", "Member rejoined")
			member.Active = true
		}

		record(models.ChangeTypeJoinedDateChange, formatTimestamp(member.JoinedDate), formatTimestamp(now), "Member rejoined")
		member.JoinedDate = now

		if member.Nickname != nickname {
			record(models.ChangeTypeNameChange, member.Nickname, nickname, "Nickname changed while rejoining")
			member.Nickname = nickname
		}

		if rank != nil && member.Rank != *rank {
			record(models.ChangeTypeRankChange, string(member.Rank), string(*rank), "Rank changed while rejoining")
			member.Rank = *rank
		}

		// last_changed_date approximates when the member left
		ingotsReset := false
		if now.Sub(member.LastChangedDate) >= s.resetAfter {
			record(models.ChangeTypeResetIngots, strconv.FormatInt(member.Ingots, 10), "0",
				fmt.Sprintf("Gone longer than %s, ingots reset", s.resetAfter))
			member.Ingots = 0
			ingotsReset = true
		}

		member.LastChangedDate = now
		if err := uow.MemberRepository().Update(ctx, member); err != nil {
			return err
		}

		for _, entry := range entries {
			if err := journal(ctx, uow, entry); err != nil {
				return err
			}
		}

		uow.EventBus().Publish(events.MemberStatusChangeEvent{
			MemberID:    member.ID,
			DiscordID:   member.DiscordID,
			Nickname:    member.Nickname,
			Active:      true,
			IngotsReset: ingotsReset,
		})
		return nil
	})
}

func (s *memberService) DisableMember(ctx context.Context, id uuid.UUID) (*models.Member, error) {
	return s.mutate(ctx, id, func(uow UnitOfWork, member *models.Member, now time.Time) error {
		if !member.Active {
			return errNoChange
		}

		member.Active = false
		member.LastChangedDate = now
		if err := uow.MemberRepository().Update(ctx, member); err != nil {
			return err
		}

		if err := journal(ctx, uow, &models.Changelog{
			MemberID:      member.ID,
			ChangeType:    models.ChangeTypeActivityChange,
			PreviousValue: "true",
			NewValue:      "false",
			Comment:       "Member left",
			Timestamp:     now,
		}); err != nil {
			return err
		}

		uow.EventBus().Publish(events.MemberStatusChangeEvent{
			MemberID:  member.ID,
			DiscordID: member.DiscordID,
			Nickname:  member.Nickname,
			Active:    false,
		})
		return nil
	})
}

func (s *memberService) ChangeNickname(ctx context.Context, id uuid.UUID, nickname string) (*models.Member, error) {
	nickname = strings.TrimSpace(nickname)
	if nickname == "" {
		return nil, fmt.Errorf("nickname cannot be empty")
	}

	return s.mutate(ctx, id, func(uow UnitOfWork, member *models.Member, now time.Time) error {
		if member.Nickname == nickname {
			return errNoChange
		}
		previous := member.Nickname
		member.Nickname = nickname
		return s.applyFieldChange(ctx, uow, member, now, models.ChangeTypeNameChange, previous, nickname)
	})
}

func (s *memberService) ChangeRank(ctx context.Context, id uuid.UUID, rank models.Rank) (*models.Member, error) {
	if !rank.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRank, rank)
	}

	return s.mutate(ctx, id, func(uow UnitOfWork, member *models.Member, now time.Time) error {
		if member.Rank == rank {
			return errNoChange
		}
		previous := member.Rank
		member.Rank = rank
		return s.applyFieldChange(ctx, uow, member, now, models.ChangeTypeRankChange, string(previous), string(rank))
	})
}

func (s *memberService) ChangeRole(ctx context.Context, id uuid.UUID, role models.Role) (*models.Member, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}

	return s.mutate(ctx, id, func(uow UnitOfWork, member *models.Member, now time.Time) error {
		if member.Role == role {
			return errNoChange
		}
		previous := member.Role
		member.Role = role
		return s.applyFieldChange(ctx, uow, member, now, models.ChangeTypeRoleChange, string(previous), string(role))
	})
}

// applyFieldChange persists a single-field mutation and its changelog entry
func (s *memberService) applyFieldChange(ctx context.Context, uow UnitOfWork, member *models.Member, now time.Time, changeType models.ChangeType, prev, next string) error {
	member.LastChangedDate = now
	if err := uow.MemberRepository().Update(ctx, member); err != nil {
		return err
	}

	if err := journal(ctx, uow, &models.Changelog{
		MemberID:      member.ID,
		ChangeType:    changeType,
		PreviousValue: prev,
		NewValue:      next,
		Timestamp:     now,
	}); err != nil {
		return err
	}

	uow.EventBus().Publish(events.MemberUpdatedEvent{
		MemberID:      member.ID,
		DiscordID:     member.DiscordID,
		ChangeType:    changeType,
		PreviousValue: prev,
		NewValue:      next,
	})
	return nil
}

// errNoChange lets a mutation bail out without writing or committing
var errNoChange = errors.New("no change")

// mutate locks the member row, applies fn and commits. A missing member
// yields ErrMemberNotFound; fn returning errNoChange returns the member
// untouched.
func (s *memberService) mutate(ctx context.Context, id uuid.UUID, fn func(uow UnitOfWork, member *models.Member, now time.Time) error) (*models.Member, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	member, err := uow.MemberRepository().GetByIDForUpdate(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get member %s: %w", id, err)
	}
	if member == nil {
		return nil, fmt.Errorf("%w: %s", ErrMemberNotFound, id)
	}

	if err := fn(uow, member, s.now()); err != nil {
		if errors.Is(err, errNoChange) {
			return member, nil
		}
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return member, nil
}

func (s *memberService) read(ctx context.Context, fn func(repo MemberRepository) (*models.Member, error)) (*models.Member, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	member, err := fn(uow.MemberRepository())
	if err != nil {
		return nil, fmt.Errorf("failed to get member: %w", err)
	}
	return member, nil
}

// journal appends one changelog entry inside the caller's transaction
func journal(ctx context.Context, uow UnitOfWork, entry *models.Changelog) error {
	entry.Timestamp = entry.Timestamp.UTC()
	if err := uow.ChangelogRepository().Record(ctx, entry); err != nil {
		return fmt.Errorf("failed to record %s changelog: %w", entry.ChangeType, err)
	}
	return nil
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
