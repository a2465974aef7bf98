package reconcile

import (
	"context"
	"fmt"
)

// RemoveMemberRole disables the member record when the member role goes away
type RemoveMemberRole struct {
	baseHandler
	members    MemberService
	memberRole string
}

// NewRemoveMemberRole creates the handler for member role removals
func NewRemoveMemberRole(members MemberService, memberRole string) *RemoveMemberRole {
	return &RemoveMemberRole{
		baseHandler: baseHandler{name: "RemoveMemberRole", priority: 20},
		members:     members,
		memberRole:  memberRole,
	}
}

func (h *RemoveMemberRole) ShouldHandle(c *Change) bool {
	return c.RoleRemoved(h.memberRole)
}

func (h *RemoveMemberRole) Execute(ctx context.Context, c *Change) (string, error) {
	existing, err := h.members.GetMemberByDiscordID(ctx, c.DiscordID())
	if err != nil {
		return "", err
	}
	if existing == nil {
		return fmt.Sprintf(":warning: %s lost the %s role but has no member record.", mention(c.DiscordID()), h.memberRole), nil
	}
	if !existing.Active {
		return fmt.Sprintf(":warning: **%s** lost the %s role but was already inactive.", existing.Nickname, h.memberRole), nil
	}

	member, err := h.members.DisableMember(ctx, existing.ID)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(":door: **%s** has left the clan.", member.Nickname), nil
}
