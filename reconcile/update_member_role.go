package reconcile

import (
	"context"
	"fmt"

	"ironforged/models"
	"ironforged/service"
)

// UpdateMemberRole follows staff, leadership and owner role changes
type UpdateMemberRole struct {
	baseHandler
	members    MemberService
	memberRole string
}

// NewUpdateMemberRole creates the handler for role tier changes
func NewUpdateMemberRole(members MemberService, memberRole string) *UpdateMemberRole {
	return &UpdateMemberRole{
		baseHandler: baseHandler{name: "UpdateMemberRole", priority: 40},
		members:     members,
		memberRole:  memberRole,
	}
}

func (h *UpdateMemberRole) ShouldHandle(c *Change) bool {
	return c.After.HasRole(h.memberRole) && c.AnyRoleChanged(models.IsRoleTierRole)
}

func (h *UpdateMemberRole) Execute(ctx context.Context, c *Change) (string, error) {
	role := models.RoleFromRoleNames(c.After.Roles)

	member, err := h.members.GetMemberByDiscordID(ctx, c.DiscordID())
	if err != nil {
		return "", err
	}
	if member == nil {
		return "", fmt.Errorf("%w: discord id %d", service.ErrMemberNotFound, c.DiscordID())
	}
	if member.Role == role {
		return "", nil
	}

	previous := member.Role
	if _, err := h.members.ChangeRole(ctx, member.ID, role); err != nil {
		return "", err
	}
	return fmt.Sprintf("**%s** role changed from %s to %s.", member.Nickname, previous, role), nil
}
