package models

import "strings"

// Role is a member's standing inside the clan, independent of rank
type Role string

const (
	RoleProspect   Role = "prospect"
	RoleMember     Role = "member"
	RoleStaff      Role = "staff"
	RoleLeadership Role = "leadership"
	RoleOwner      Role = "owner"
)

var roleOrder = map[Role]int{
	RoleProspect:   0,
	RoleMember:     1,
	RoleStaff:      2,
	RoleLeadership: 3,
	RoleOwner:      4,
}

// Valid reports whether r is a known role
func (r Role) Valid() bool {
	_, ok := roleOrder[r]
	return ok
}

// AtLeast reports whether r ranks equal to or above other
func (r Role) AtLeast(other Role) bool {
	return roleOrder[r] >= roleOrder[other]
}

// IsRoleTierRole reports whether a guild role name maps to a clan role
// above or below plain membership
func IsRoleTierRole(roleName string) bool {
	switch Role(strings.ToLower(strings.TrimSpace(roleName))) {
	case RoleProspect, RoleStaff, RoleLeadership, RoleOwner:
		return true
	}
	return false
}

// RoleFromRoleNames derives the clan role from held guild roles. The
// highest of staff, leadership and owner wins; otherwise prospect if held,
// else plain member.
func RoleFromRoleNames(roleNames []string) Role {
	best := RoleMember
	prospect := false
	for _, name := range roleNames {
		role := Role(strings.ToLower(strings.TrimSpace(name)))
		switch role {
		case RoleProspect:
			prospect = true
		case RoleStaff, RoleLeadership, RoleOwner:
			if roleOrder[role] > roleOrder[best] {
				best = role
			}
		}
	}

	if best == RoleMember && prospect {
		return RoleProspect
	}
	return best
}
