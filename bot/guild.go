package bot

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"ironforged/reconcile"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"
)

// guildMembersPageSize is the largest page the members endpoint returns
const guildMembersPageSize = 1000

// discordAPI is the slice of *discordgo.Session the guild adapters call
type discordAPI interface {
	GuildRoles(guildID string, options ...discordgo.RequestOption) ([]*discordgo.Role, error)
	GuildMembers(guildID string, after string, limit int, options ...discordgo.RequestOption) ([]*discordgo.Member, error)
	GuildMemberRoleAdd(guildID, userID, roleID string, options ...discordgo.RequestOption) error
	GuildMemberRoleRemove(guildID, userID, roleID string, options ...discordgo.RequestOption) error
	GuildMemberNickname(guildID, userID, nickname string, options ...discordgo.RequestOption) error
	ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// roleManager performs guild-side member changes over REST and keeps a
// cached id<->name view of the guild's roles
type roleManager struct {
	api     discordAPI
	guildID string

	mu    sync.RWMutex
	names map[string]string // role id -> name
}

func newRoleManager(api discordAPI, guildID string) *roleManager {
	return &roleManager{api: api, guildID: guildID}
}

// Invalidate drops the role cache; the next lookup refetches it
func (r *roleManager) Invalidate() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.names = nil
}

// RoleNames resolves role ids to names. Unknown ids are skipped.
func (r *roleManager) RoleNames(roleIDs []string) ([]string, error) {
	names, err := r.roles()
	if err != nil {
		return nil, err
	}

	resolved := make([]string, 0, len(roleIDs))
	for _, id := range roleIDs {
		if name, ok := names[id]; ok {
			resolved = append(resolved, name)
		}
	}
	return resolved, nil
}

// roleID finds a role by name, ignoring case
func (r *roleManager) roleID(name string) (string, error) {
	names, err := r.roles()
	if err != nil {
		return "", err
	}
	for id, roleName := range names {
		if strings.EqualFold(roleName, name) {
			return id, nil
		}
	}
	return "", fmt.Errorf("role %q does not exist in guild %s", name, r.guildID)
}

func (r *roleManager) roles() (map[string]string, error) {
	r.mu.RLock()
	names := r.names
	r.mu.RUnlock()
	if names != nil {
		return names, nil
	}

	roles, err := r.api.GuildRoles(r.guildID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch guild roles: %w", translateDiscordError(err))
	}

	names = make(map[string]string, len(roles))
	for _, role := range roles {
		names[role.ID] = role.Name
	}

	r.mu.Lock()
	r.names = names
	r.mu.Unlock()
	return names, nil
}

func (r *roleManager) AddRole(ctx context.Context, discordID int64, roleName string) error {
	roleID, err := r.roleID(roleName)
	if err != nil {
		return err
	}
	if err := r.api.GuildMemberRoleAdd(r.guildID, userID(discordID), roleID, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("failed to add role %s to %d: %w", roleName, discordID, translateDiscordError(err))
	}
	return nil
}

func (r *roleManager) RemoveRole(ctx context.Context, discordID int64, roleName string) error {
	roleID, err := r.roleID(roleName)
	if err != nil {
		return err
	}
	if err := r.api.GuildMemberRoleRemove(r.guildID, userID(discordID), roleID, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("failed to remove role %s from %d: %w", roleName, discordID, translateDiscordError(err))
	}
	return nil
}

func (r *roleManager) SetNickname(ctx context.Context, discordID int64, nickname string) error {
	if err := r.api.GuildMemberNickname(r.guildID, userID(discordID), nickname, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("failed to set nickname of %d: %w", discordID, translateDiscordError(err))
	}
	return nil
}

// FindMemberByNickname pages through the guild looking for a member whose
// display name matches nickname exactly
func (r *roleManager) FindMemberByNickname(ctx context.Context, nickname string) (*reconcile.MemberSnapshot, error) {
	after := ""
	for {
		page, err := r.api.GuildMembers(r.guildID, after, guildMembersPageSize, discordgo.WithContext(ctx))
		if err != nil {
			return nil, fmt.Errorf("failed to list guild members: %w", translateDiscordError(err))
		}

		for _, member := range page {
			if member.User == nil || displayName(member) != nickname {
				continue
			}
			snapshot, err := r.snapshot(member)
			if err != nil {
				return nil, err
			}
			return &snapshot, nil
		}

		if len(page) < guildMembersPageSize {
			return nil, nil
		}
		after = page[len(page)-1].User.ID
	}
}

// snapshot converts a guild member into the reconciler's view of it
func (r *roleManager) snapshot(member *discordgo.Member) (reconcile.MemberSnapshot, error) {
	id, err := strconv.ParseInt(member.User.ID, 10, 64)
	if err != nil {
		return reconcile.MemberSnapshot{}, fmt.Errorf("invalid member id %q: %w", member.User.ID, err)
	}
	roles, err := r.RoleNames(member.Roles)
	if err != nil {
		return reconcile.MemberSnapshot{}, err
	}
	return reconcile.MemberSnapshot{
		DiscordID: id,
		Nickname:  displayName(member),
		Roles:     roles,
	}, nil
}

// channelNotifier posts reconciliation reports as plain channel messages
type channelNotifier struct {
	api discordAPI
}

func (n *channelNotifier) Send(ctx context.Context, channelID string, text string) error {
	if channelID == "" {
		log.WithField("text", text).Warn("No report channel configured, dropping report")
		return nil
	}
	if _, err := n.api.ChannelMessageSend(channelID, text, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("failed to post report to %s: %w", channelID, translateDiscordError(err))
	}
	return nil
}

// translateDiscordError wraps reconcile.ErrMissingPermission around
// refusals caused by the bot's own role or permissions
func translateDiscordError(err error) error {
	var restErr *discordgo.RESTError
	if !errors.As(err, &restErr) {
		return err
	}

	forbidden := restErr.Response != nil && restErr.Response.StatusCode == http.StatusForbidden
	missing := restErr.Message != nil && restErr.Message.Code == discordgo.ErrCodeMissingPermissions
	if forbidden || missing {
		return fmt.Errorf("%w: %s", reconcile.ErrMissingPermission, err.Error())
	}
	return err
}

// displayName is the name a member shows in the guild
func displayName(member *discordgo.Member) string {
	if member.User == nil {
		return member.Nick
	}
	return member.DisplayName()
}

func userID(discordID int64) string {
	return strconv.FormatInt(discordID, 10)
}
