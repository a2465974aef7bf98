package reconcile

import (
	"context"
	"fmt"

	"ironforged/service"
)

// AddMemberRole brings someone into the clan when the member role is granted
type AddMemberRole struct {
	baseHandler
	members    MemberService
	guild      GuildRoles
	ledger     *CorrectiveActions
	memberRole string
}

// NewAddMemberRole creates the handler for member role grants
func NewAddMemberRole(members MemberService, guild GuildRoles, ledger *CorrectiveActions, memberRole string) *AddMemberRole {
	return &AddMemberRole{
		baseHandler: baseHandler{name: "AddMemberRole", priority: 10},
		members:     members,
		guild:       guild,
		ledger:      ledger,
		memberRole:  memberRole,
	}
}

func (h *AddMemberRole) ShouldHandle(c *Change) bool {
	return c.RoleAdded(h.memberRole)
}

func (h *AddMemberRole) Execute(ctx context.Context, c *Change) (string, error) {
	discordID := c.DiscordID()
	nickname := c.After.Nickname
	rank := rankPointer(c.After.Roles)

	existing, err := h.members.GetMemberByDiscordID(ctx, discordID)
	if err != nil {
		return "", err
	}

	switch {
	case existing == nil:
		member, err := h.members.CreateMember(ctx, discordID, nickname, rank, nil)
		if err != nil {
			return h.failed(ctx, c, err)
		}
		return fmt.Sprintf(":tada: **%s** has joined the clan as %s.", member.Nickname, member.Rank.DisplayName()), nil

	case !existing.Active:
		member, err := h.members.ReactivateMember(ctx, existing.ID, nickname, rank)
		if err != nil {
			return h.failed(ctx, c, err)
		}
		msg := fmt.Sprintf(":wave: **%s** has rejoined the clan.", member.Nickname)
		if member.Ingots != existing.Ingots {
			msg += fmt.Sprintf(" They were away long enough that their %d ingots were reset.", existing.Ingots)
		}
		return msg, nil

	default:
		warning := fmt.Sprintf(":warning: **%s** (%s) is already an active member; removing the duplicate %s role.",
			existing.Nickname, mention(discordID), h.memberRole)
		return h.revert(ctx, c, warning), nil
	}
}

// OnError undoes the grant as well as reporting, since the member record
// was not written
func (h *AddMemberRole) OnError(ctx context.Context, c *Change, err error) string {
	report := h.baseHandler.OnError(ctx, c, err)
	return h.revert(ctx, c, report)
}

func (h *AddMemberRole) failed(ctx context.Context, c *Change, err error) (string, error) {
	if service.IsUniqueNicknameError(err) {
		conflict := nicknameConflict(ctx, h.members, h.guild, c.DiscordID(), c.After.Nickname)
		return h.revert(ctx, c, conflict), nil
	}
	return "", err
}

func (h *AddMemberRole) revert(ctx context.Context, c *Change, report string) string {
	c.MarkReverted(h.name)
	failure := undo(ctx, h.ledger, c.DiscordID(), ActionRoleRemoved, h.memberRole,
		func(ctx context.Context) error { return h.guild.RemoveRole(ctx, c.DiscordID(), h.memberRole) },
		fmt.Sprintf("remove the %s role", h.memberRole))
	return joinMessages(report, failure)
}
