package reconcile

import (
	"context"
	"errors"
	"fmt"

	"ironforged/models"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// ErrMissingPermission is returned by GuildRoles when the guild refuses a
// change because the bot's role is too low or lacks the permission
var ErrMissingPermission = errors.New("bot lacks permission")

// Handler reacts to one kind of member change. Matching handlers run in
// ascending Priority order, one at a time.
type Handler interface {
	Name() string
	Priority() int
	ShouldHandle(c *Change) bool

	// Execute applies the change. A non-empty message is posted to the
	// change's report channel.
	Execute(ctx context.Context, c *Change) (string, error)

	// OnError turns an Execute failure into the message to report
	OnError(ctx context.Context, c *Change, err error) string
}

// MemberService is the part of the member service the handlers drive
type MemberService interface {
	CreateMember(ctx context.Context, discordID int64, nickname string, rank *models.Rank, actorID *uuid.UUID) (*models.Member, error)
	GetMemberByDiscordID(ctx context.Context, discordID int64) (*models.Member, error)
	GetMemberByNickname(ctx context.Context, nickname string) (*models.Member, error)
	ReactivateMember(ctx context.Context, id uuid.UUID, nickname string, rank *models.Rank) (*models.Member, error)
	DisableMember(ctx context.Context, id uuid.UUID) (*models.Member, error)
	ChangeNickname(ctx context.Context, id uuid.UUID, nickname string) (*models.Member, error)
	ChangeRank(ctx context.Context, id uuid.UUID, rank models.Rank) (*models.Member, error)
	ChangeRole(ctx context.Context, id uuid.UUID, role models.Role) (*models.Member, error)
}

// GuildRoles performs guild-side changes. Implementations wrap
// ErrMissingPermission when the guild refuses.
type GuildRoles interface {
	AddRole(ctx context.Context, discordID int64, roleName string) error
	RemoveRole(ctx context.Context, discordID int64, roleName string) error
	SetNickname(ctx context.Context, discordID int64, nickname string) error

	// FindMemberByNickname returns nil when no guild member displays nickname
	FindMemberByNickname(ctx context.Context, nickname string) (*MemberSnapshot, error)
}

// Notifier posts reconciliation reports
type Notifier interface {
	Send(ctx context.Context, channelID string, text string) error
}

// baseHandler carries the fields and default error reporting every handler shares
type baseHandler struct {
	name     string
	priority int
}

func (h baseHandler) Name() string  { return h.name }
func (h baseHandler) Priority() int { return h.priority }

func (h baseHandler) OnError(ctx context.Context, c *Change, err error) string {
	log.WithFields(log.Fields{
		"handler":   h.name,
		"discordID": c.DiscordID(),
		"nickname":  c.After.Nickname,
	}).WithError(err).Error("Member update handler failed")

	if errors.Is(err, ErrMissingPermission) {
		return fmt.Sprintf(":no_entry: The bot lacks permission to finish %s for %s. Please fix this by hand.",
			h.name, mention(c.DiscordID()))
	}
	return fmt.Sprintf(":warning: %s failed for %s: %v", h.name, mention(c.DiscordID()), err)
}

// undo performs a corrective guild change, registering it with the ledger
// first so its echo is dropped. The returned text is empty on success.
func undo(ctx context.Context, ledger *CorrectiveActions, discordID int64, kind ActionKind, detail string, action func(context.Context) error, what string) string {
	ledger.Expect(discordID, kind, detail)

	err := action(ctx)
	if err == nil {
		return ""
	}

	// no echo is coming for a change that never happened
	ledger.Cancel(discordID, kind, detail)

	log.WithFields(log.Fields{
		"discordID": discordID,
		"action":    kind,
		"detail":    detail,
	}).WithError(err).Warn("Corrective guild change failed")

	if errors.Is(err, ErrMissingPermission) {
		return fmt.Sprintf(":no_entry: The bot lacks permission to %s for %s. Please do it by hand.", what, mention(discordID))
	}
	return fmt.Sprintf(":warning: Could not %s for %s: %v", what, mention(discordID), err)
}

// nicknameConflict describes who already holds nickname, both in the member
// records and among live guild members
func nicknameConflict(ctx context.Context, members MemberService, guild GuildRoles, discordID int64, nickname string) string {
	msg := fmt.Sprintf(":warning: The nickname **%s** wanted by %s is already taken.", nickname, mention(discordID))

	holder, err := members.GetMemberByNickname(ctx, nickname)
	switch {
	case err != nil:
		msg += fmt.Sprintf("\nCould not look up the member record holding it: %v", err)
	case holder != nil:
		status := "inactive"
		if holder.Active {
			status = "active"
		}
		msg += fmt.Sprintf("\nMember record: %s (%s, joined %s).",
			mention(holder.DiscordID), status, holder.JoinedDate.Format("2006-01-02"))
	}

	live, err := guild.FindMemberByNickname(ctx, nickname)
	switch {
	case err != nil:
		msg += fmt.Sprintf("\nCould not search the guild for it: %v", err)
	case live != nil && live.DiscordID != discordID:
		msg += fmt.Sprintf("\nGuild member currently showing it: %s.", mention(live.DiscordID))
	}

	return msg
}

func joinMessages(parts ...string) string {
	out := ""
	for _, part := range parts {
		if part == "" {
			continue
		}
		if out != "" {
			out += "\n"
		}
		out += part
	}
	return out
}

func mention(discordID int64) string {
	return fmt.Sprintf("<@%d>", discordID)
}

func rankPointer(roles []string) *models.Rank {
	rank, ok := models.RankFromRoleNames(roles)
	if !ok {
		return nil
	}
	return &rank
}
