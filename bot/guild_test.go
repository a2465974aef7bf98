package bot

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"testing"

	"ironforged/reconcile"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDiscord records REST calls and serves a fixed guild
type fakeDiscord struct {
	mu        sync.Mutex
	roles     []*discordgo.Role
	members   []*discordgo.Member
	roleCalls int
	calls     []string
	sent      []string
	failWith  error
}

func (f *fakeDiscord) GuildRoles(guildID string, _ ...discordgo.RequestOption) ([]*discordgo.Role, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.roleCalls++
	return f.roles, nil
}

func (f *fakeDiscord) GuildMembers(guildID string, after string, limit int, _ ...discordgo.RequestOption) ([]*discordgo.Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "members after="+after)

	start := 0
	if after != "" {
		for idx, m := range f.members {
			if m.User.ID == after {
				start = idx + 1
			}
		}
	}
	end := start + limit
	if end > len(f.members) {
		end = len(f.members)
	}
	return f.members[start:end], nil
}

func (f *fakeDiscord) GuildMemberRoleAdd(guildID, userID, roleID string, _ ...discordgo.RequestOption) error {
	return f.record(fmt.Sprintf("add %s %s", userID, roleID))
}

func (f *fakeDiscord) GuildMemberRoleRemove(guildID, userID, roleID string, _ ...discordgo.RequestOption) error {
	return f.record(fmt.Sprintf("remove %s %s", userID, roleID))
}

func (f *fakeDiscord) GuildMemberNickname(guildID, userID, nickname string, _ ...discordgo.RequestOption) error {
	return f.record(fmt.Sprintf("nick %s %s", userID, nickname))
}

func (f *fakeDiscord) ChannelMessageSend(channelID string, content string, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	if err := f.record("send " + channelID); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, content)
	return &discordgo.Message{Content: content}, nil
}

func (f *fakeDiscord) record(call string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return f.failWith
	}
	f.calls = append(f.calls, call)
	return nil
}

func restError(status int, code int) *discordgo.RESTError {
	return &discordgo.RESTError{
		Response:     &http.Response{StatusCode: status, Status: http.StatusText(status)},
		ResponseBody: []byte(`{"message":"refused"}`),
		Message:      &discordgo.APIErrorMessage{Code: code, Message: "refused"},
	}
}

func clanGuild() *fakeDiscord {
	return &fakeDiscord{
		roles: []*discordgo.Role{
			{ID: "10", Name: "Member"},
			{ID: "20", Name: "Leadership"},
			{ID: "30", Name: "Rune"},
		},
	}
}

func TestTranslateDiscordError(t *testing.T) {
	t.Parallel()

	forbidden := translateDiscordError(restError(http.StatusForbidden, 0))
	assert.ErrorIs(t, forbidden, reconcile.ErrMissingPermission)

	missing := translateDiscordError(restError(http.StatusBadRequest, discordgo.ErrCodeMissingPermissions))
	assert.ErrorIs(t, missing, reconcile.ErrMissingPermission)

	notFound := translateDiscordError(restError(http.StatusNotFound, discordgo.ErrCodeUnknownMember))
	assert.NotErrorIs(t, notFound, reconcile.ErrMissingPermission)

	plain := errors.New("connection reset")
	assert.Equal(t, plain, translateDiscordError(plain))
}

func TestRoleManager_ResolvesAndCachesRoles(t *testing.T) {
	t.Parallel()

	api := clanGuild()
	roles := newRoleManager(api, "guild")

	names, err := roles.RoleNames([]string{"30", "10", "999"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Rune", "Member"}, names)

	_, err = roles.RoleNames([]string{"20"})
	require.NoError(t, err)
	assert.Equal(t, 1, api.roleCalls)

	roles.Invalidate()
	_, err = roles.RoleNames(nil)
	require.NoError(t, err)
	assert.Equal(t, 2, api.roleCalls)
}

func TestRoleManager_GuildChanges(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	api := clanGuild()
	roles := newRoleManager(api, "guild")

	require.NoError(t, roles.AddRole(ctx, 555, "member"))
	require.NoError(t, roles.RemoveRole(ctx, 555, "Rune"))
	require.NoError(t, roles.SetNickname(ctx, 555, "Zezima"))
	assert.Equal(t, []string{"add 555 10", "remove 555 30", "nick 555 Zezima"}, api.calls)

	err := roles.AddRole(ctx, 555, "Dragon")
	assert.ErrorContains(t, err, "does not exist")
}

func TestRoleManager_PermissionRefusal(t *testing.T) {
	t.Parallel()

	api := clanGuild()
	api.failWith = restError(http.StatusForbidden, discordgo.ErrCodeMissingPermissions)
	roles := newRoleManager(api, "guild")

	err := roles.RemoveRole(context.Background(), 555, "Member")
	require.Error(t, err)
	assert.ErrorIs(t, err, reconcile.ErrMissingPermission)

	err = roles.SetNickname(context.Background(), 555, "Zezima")
	assert.ErrorIs(t, err, reconcile.ErrMissingPermission)
}

func TestRoleManager_FindMemberByNicknamePages(t *testing.T) {
	t.Parallel()

	api := clanGuild()
	for idx := 0; idx < guildMembersPageSize+5; idx++ {
		api.members = append(api.members, &discordgo.Member{
			User: &discordgo.User{ID: fmt.Sprint(1000 + idx), Username: fmt.Sprintf("user%d", idx)},
		})
	}
	last := api.members[len(api.members)-1]
	last.Nick = "Zezima"
	last.Roles = []string{"10", "30"}

	roles := newRoleManager(api, "guild")
	found, err := roles.FindMemberByNickname(context.Background(), "Zezima")

	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, int64(1000+guildMembersPageSize+4), found.DiscordID)
	assert.Equal(t, []string{"Member", "Rune"}, found.Roles)
	assert.Equal(t, "members after=", api.calls[0])
	assert.Len(t, api.calls, 2)

	missing, err := roles.FindMemberByNickname(context.Background(), "Woox")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestChannelNotifier(t *testing.T) {
	t.Parallel()

	api := clanGuild()
	notifier := &channelNotifier{api: api}

	require.NoError(t, notifier.Send(context.Background(), "reports", "hello"))
	require.NoError(t, notifier.Send(context.Background(), "", "dropped"))
	assert.Equal(t, []string{"hello"}, api.sent)

	api.failWith = restError(http.StatusForbidden, discordgo.ErrCodeMissingAccess)
	err := notifier.Send(context.Background(), "reports", "denied")
	assert.ErrorIs(t, err, reconcile.ErrMissingPermission)
}
