// Package reconcile keeps member records in step with what the guild shows.
// Each observed role or nickname change is dispatched to prioritized
// handlers that apply it to the member service, or undo it when it cannot
// be applied.
package reconcile

import "strings"

// MemberSnapshot is what the guild showed for one member at a point in time
type MemberSnapshot struct {
	DiscordID int64
	Nickname  string
	Roles     []string
}

// HasRole reports whether the snapshot holds the named role. Role names
// compare case-insensitively.
func (s MemberSnapshot) HasRole(name string) bool {
	for _, role := range s.Roles {
		if strings.EqualFold(role, name) {
			return true
		}
	}
	return false
}

// Change is one observed before/after pair for a single member
type Change struct {
	Before          MemberSnapshot
	After           MemberSnapshot
	ReportChannelID string

	RolesAdded   []string
	RolesRemoved []string

	nicknameSuppressed bool
	revertedBy         string
}

// NewChange computes the role diff between before and after
func NewChange(before, after MemberSnapshot, reportChannelID string) *Change {
	c := &Change{
		Before:          before,
		After:           after,
		ReportChannelID: reportChannelID,
	}
	for _, role := range after.Roles {
		if !before.HasRole(role) {
			c.RolesAdded = append(c.RolesAdded, role)
		}
	}
	for _, role := range before.Roles {
		if !after.HasRole(role) {
			c.RolesRemoved = append(c.RolesRemoved, role)
		}
	}
	return c
}

// DiscordID is the member the change belongs to
func (c *Change) DiscordID() int64 {
	return c.After.DiscordID
}

// RoleAdded reports whether the named role was granted by this change
func (c *Change) RoleAdded(name string) bool {
	return containsFold(c.RolesAdded, name)
}

// RoleRemoved reports whether the named role was taken away by this change
func (c *Change) RoleRemoved(name string) bool {
	return containsFold(c.RolesRemoved, name)
}

// AnyRoleChanged reports whether a role matching match was added or removed
func (c *Change) AnyRoleChanged(match func(role string) bool) bool {
	for _, role := range c.RolesAdded {
		if match(role) {
			return true
		}
	}
	for _, role := range c.RolesRemoved {
		if match(role) {
			return true
		}
	}
	return false
}

// NicknameChanged reports whether the displayed nickname differs
func (c *Change) NicknameChanged() bool {
	return !c.nicknameSuppressed && c.Before.Nickname != c.After.Nickname
}

// Empty reports whether nothing is left for handlers to react to
func (c *Change) Empty() bool {
	return len(c.RolesAdded) == 0 && len(c.RolesRemoved) == 0 && !c.NicknameChanged()
}

// MarkReverted records that handler undid the change in the guild. Handlers
// after it in the sweep are skipped.
func (c *Change) MarkReverted(handler string) {
	if c.revertedBy == "" {
		c.revertedBy = handler
	}
}

// Reverted reports whether a handler undid the change
func (c *Change) Reverted() bool {
	return c.revertedBy != ""
}

// RevertedBy names the handler that undid the change
func (c *Change) RevertedBy() string {
	return c.revertedBy
}

func (c *Change) dropRoleAdded(name string) {
	c.RolesAdded = removeFold(c.RolesAdded, name)
}

func (c *Change) dropRoleRemoved(name string) {
	c.RolesRemoved = removeFold(c.RolesRemoved, name)
}

func containsFold(roles []string, name string) bool {
	for _, role := range roles {
		if strings.EqualFold(role, name) {
			return true
		}
	}
	return false
}

func removeFold(roles []string, name string) []string {
	kept := roles[:0:0]
	for _, role := range roles {
		if !strings.EqualFold(role, name) {
			kept = append(kept, role)
		}
	}
	return kept
}
