package reconcile

import (
	"context"
	"fmt"

	"ironforged/models"
	"ironforged/service"
)

// UpdateMemberRank follows rank role changes of active members
type UpdateMemberRank struct {
	baseHandler
	members    MemberService
	memberRole string
}

// NewUpdateMemberRank creates the handler for rank role changes
func NewUpdateMemberRank(members MemberService, memberRole string) *UpdateMemberRank {
	return &UpdateMemberRank{
		baseHandler: baseHandler{name: "UpdateMemberRank", priority: 30},
		members:     members,
		memberRole:  memberRole,
	}
}

func (h *UpdateMemberRank) ShouldHandle(c *Change) bool {
	if !c.After.HasRole(h.memberRole) {
		return false
	}
	return c.RoleAdded(h.memberRole) || c.AnyRoleChanged(models.IsRankRole)
}

func (h *UpdateMemberRank) Execute(ctx context.Context, c *Change) (string, error) {
	rank, ok := models.RankFromRoleNames(c.After.Roles)
	if !ok {
		return "", nil
	}

	member, err := h.members.GetMemberByDiscordID(ctx, c.DiscordID())
	if err != nil {
		return "", err
	}
	if member == nil {
		return "", fmt.Errorf("%w: discord id %d", service.ErrMemberNotFound, c.DiscordID())
	}
	if member.Rank == rank {
		return "", nil
	}

	previous := member.Rank
	if _, err := h.members.ChangeRank(ctx, member.ID, rank); err != nil {
		return "", err
	}
	return fmt.Sprintf(":arrow_up: **%s** rank changed from %s to %s.",
		member.Nickname, previous.DisplayName(), rank.DisplayName()), nil
}
