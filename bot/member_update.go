package bot

import (
	"context"
	"fmt"
	"strconv"

	"ironforged/reconcile"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"
)

// roleResolver maps role ids to names
type roleResolver interface {
	RoleNames(roleIDs []string) ([]string, error)
}

// changeFromUpdate turns a gateway member update into a reconcile.Change.
// It returns nil when the update cannot be diffed: the member was not in
// the state cache, so there is no before snapshot.
func changeFromUpdate(u *discordgo.GuildMemberUpdate, roles roleResolver, reportChannelID string) (*reconcile.Change, error) {
	if u.Member == nil || u.User == nil || u.BeforeUpdate == nil {
		return nil, nil
	}

	before, err := snapshotOf(u.BeforeUpdate, u.User, roles)
	if err != nil {
		return nil, err
	}
	after, err := snapshotOf(u.Member, u.User, roles)
	if err != nil {
		return nil, err
	}

	return reconcile.NewChange(before, after, reportChannelID), nil
}

// snapshotOf builds the reconciler's view of member. The cached before copy
// can carry a stale user, so user is taken from the update itself.
func snapshotOf(member *discordgo.Member, user *discordgo.User, roles roleResolver) (reconcile.MemberSnapshot, error) {
	id, err := parseUserID(user.ID)
	if err != nil {
		return reconcile.MemberSnapshot{}, err
	}

	names, err := roles.RoleNames(member.Roles)
	if err != nil {
		return reconcile.MemberSnapshot{}, fmt.Errorf("failed to resolve roles of %s: %w", user.ID, err)
	}

	withUser := *member
	withUser.User = user
	return reconcile.MemberSnapshot{
		DiscordID: id,
		Nickname:  displayName(&withUser),
		Roles:     names,
	}, nil
}

func (b *Bot) handleMemberUpdate(s *discordgo.Session, u *discordgo.GuildMemberUpdate) {
	if u.Member == nil || u.GuildID != b.config.GuildID || u.User == nil || u.User.Bot {
		return
	}

	change, err := changeFromUpdate(u, b.roles, b.config.ReportChannelID)
	if err != nil {
		log.WithField("userID", u.User.ID).WithError(err).Error("Failed to read member update")
		return
	}
	if change == nil {
		log.WithField("userID", u.User.ID).Debug("Member update without cached state, skipping")
		return
	}
	if change.Empty() {
		return
	}

	b.updates.push(change)
}

// dispatchUpdate runs on the member's queue, never concurrently with another
// change for the same member
func (b *Bot) dispatchUpdate(change *reconcile.Change) {
	dispatch := b.emitter.Emit(context.Background(), change)

	log.WithFields(log.Fields{
		"discordID":    change.DiscordID(),
		"rolesAdded":   change.RolesAdded,
		"rolesRemoved": change.RolesRemoved,
		"ran":          dispatch.Ran,
		"skipped":      dispatch.Skipped,
		"suppressed":   dispatch.Suppressed,
	}).Debug("Member update dispatched")
}

func parseUserID(id string) (int64, error) {
	parsed, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid user id %q: %w", id, err)
	}
	return parsed, nil
}
