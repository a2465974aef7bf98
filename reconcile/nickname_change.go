package reconcile

import (
	"context"
	"fmt"

	"ironforged/service"
)

// NicknameChange renames the member record when an active member's display
// name changes, restoring the old name when the new one is taken
type NicknameChange struct {
	baseHandler
	members    MemberService
	guild      GuildRoles
	ledger     *CorrectiveActions
	memberRole string
}

// NewNicknameChange creates the handler for display name edits
func NewNicknameChange(members MemberService, guild GuildRoles, ledger *CorrectiveActions, memberRole string) *NicknameChange {
	return &NicknameChange{
		baseHandler: baseHandler{name: "NicknameChange", priority: 50},
		members:     members,
		guild:       guild,
		ledger:      ledger,
		memberRole:  memberRole,
	}
}

// ShouldHandle skips fresh grants; AddMemberRole already stored the nickname
func (h *NicknameChange) ShouldHandle(c *Change) bool {
	return c.NicknameChanged() && c.After.HasRole(h.memberRole) && !c.RoleAdded(h.memberRole)
}

func (h *NicknameChange) Execute(ctx context.Context, c *Change) (string, error) {
	member, err := h.members.GetMemberByDiscordID(ctx, c.DiscordID())
	if err != nil {
		return "", err
	}
	if member == nil || !member.Active || member.Nickname == c.After.Nickname {
		return "", nil
	}

	previous := member.Nickname
	if _, err := h.members.ChangeNickname(ctx, member.ID, c.After.Nickname); err != nil {
		if !service.IsUniqueNicknameError(err) {
			return "", err
		}

		conflict := nicknameConflict(ctx, h.members, h.guild, c.DiscordID(), c.After.Nickname)
		c.MarkReverted(h.name)
		failure := undo(ctx, h.ledger, c.DiscordID(), ActionNicknameSet, previous,
			func(ctx context.Context) error { return h.guild.SetNickname(ctx, c.DiscordID(), previous) },
			fmt.Sprintf("restore the nickname %s", previous))
		if failure == "" {
			failure = fmt.Sprintf("Restored %s's nickname to **%s**.", mention(c.DiscordID()), previous)
		}
		return joinMessages(conflict, failure), nil
	}

	return fmt.Sprintf(":pencil: **%s** is now known as **%s**.", previous, c.After.Nickname), nil
}
