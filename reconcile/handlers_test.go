package reconcile

import (
	"context"
	"fmt"
	"testing"
	"time"

	"ironforged/models"
	"ironforged/service"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testMemberRole = "Member"

type handlerFixture struct {
	members  *service.MockMemberService
	guild    *MockGuildRoles
	ledger   *CorrectiveActions
	notifier *recordingNotifier
	emitter  *Emitter
}

func newHandlerFixture() *handlerFixture {
	f := &handlerFixture{
		members:  new(service.MockMemberService),
		guild:    new(MockGuildRoles),
		ledger:   NewCorrectiveActions(time.Minute),
		notifier: &recordingNotifier{},
	}
	f.emitter = NewEmitter(f.ledger, f.notifier)
	f.emitter.Register(NewAddMemberRole(f.members, f.guild, f.ledger, testMemberRole))
	f.emitter.Register(NewRemoveMemberRole(f.members, testMemberRole))
	f.emitter.Register(NewUpdateMemberRank(f.members, testMemberRole))
	f.emitter.Register(NewUpdateMemberRole(f.members, testMemberRole))
	f.emitter.Register(NewNicknameChange(f.members, f.guild, f.ledger, testMemberRole))
	return f
}

func member(discordID int64, nickname string, active bool, ingots int64) *models.Member {
	return &models.Member{
		ID:         uuid.New(),
		DiscordID:  discordID,
		Active:     active,
		Nickname:   nickname,
		Ingots:     ingots,
		Rank:       models.RankIron,
		Role:       models.RoleMember,
		JoinedDate: time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC),
	}
}

func snapshot(id int64, nickname string, roles ...string) MemberSnapshot {
	return MemberSnapshot{DiscordID: id, Nickname: nickname, Roles: roles}
}

func TestAddMemberRole_CreatesNewMember(t *testing.T) {
	ctx := context.Background()
	f := newHandlerFixture()

	created := member(555, "Zezima", true, 0)
	created.Rank = models.RankRune
	f.members.On("GetMemberByDiscordID", ctx, int64(555)).Return(nil, nil).Once()
	f.members.On("CreateMember", ctx, int64(555), "Zezima", mock.MatchedBy(func(r *models.Rank) bool {
		return r != nil && *r == models.RankRune
	}), (*uuid.UUID)(nil)).Return(created, nil)
	// rank handler sees the stored rank already matches
	f.members.On("GetMemberByDiscordID", ctx, int64(555)).Return(created, nil)

	dispatch := f.emitter.Emit(ctx, NewChange(snapshot(555, "Zezima"), snapshot(555, "Zezima", "Member", "Rune"), "report"))

	assert.Equal(t, []string{"AddMemberRole", "UpdateMemberRank"}, dispatch.Ran)
	require.Len(t, f.notifier.Messages(), 1)
	assert.Contains(t, f.notifier.Messages()[0], "has joined the clan as Rune")
	f.members.AssertNotCalled(t, "ChangeRank", mock.Anything, mock.Anything, mock.Anything)
	f.guild.AssertNotCalled(t, "RemoveRole", mock.Anything, mock.Anything, mock.Anything)
}

func TestAddMemberRole_ReactivatesFormerMember(t *testing.T) {
	ctx := context.Background()
	f := newHandlerFixture()

	former := member(555, "Zezima", false, 5000)
	returned := member(555, "Zezima", true, 0)
	returned.ID = former.ID
	f.members.On("GetMemberByDiscordID", ctx, int64(555)).Return(former, nil)
	f.members.On("ReactivateMember", ctx, former.ID, "Zezima", (*models.Rank)(nil)).Return(returned, nil)

	f.emitter.Emit(ctx, NewChange(snapshot(555, "Zezima"), snapshot(555, "Zezima", "Member"), "report"))

	messages := f.notifier.Messages()
	require.Len(t, messages, 1)
	assert.Contains(t, messages[0], "rejoined")
	assert.Contains(t, messages[0], "5000 ingots were reset")
}

func TestAddMemberRole_AlreadyActiveRevertsGrant(t *testing.T) {
	ctx := context.Background()
	f := newHandlerFixture()

	active := member(555, "Zezima", true, 1200)
	f.members.On("GetMemberByDiscordID", ctx, int64(555)).Return(active, nil)
	f.guild.On("RemoveRole", ctx, int64(555), testMemberRole).Return(nil)

	dispatch := f.emitter.Emit(ctx, NewChange(snapshot(555, "Zezima"), snapshot(555, "Zezima", "Member"), "report"))

	assert.Equal(t, []string{"AddMemberRole"}, dispatch.Ran)
	assert.Contains(t, dispatch.Skipped, "UpdateMemberRank")
	assert.Contains(t, f.notifier.Messages()[0], "already an active member")
	assert.Equal(t, 1, f.ledger.Pending())
	f.members.AssertNotCalled(t, "CreateMember", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.members.AssertNotCalled(t, "ReactivateMember", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestAddMemberRole_NicknameConflictRevertsWithoutRemovingMember(t *testing.T) {
	ctx := context.Background()
	f := newHandlerFixture()

	holder := member(777, "Zezima", false, 0)
	f.members.On("GetMemberByDiscordID", ctx, int64(555)).Return(nil, nil)
	f.members.On("CreateMember", ctx, int64(555), "Zezima", (*models.Rank)(nil), (*uuid.UUID)(nil)).
		Return(nil, &service.UniqueNicknameError{Nickname: "Zezima"})
	f.members.On("GetMemberByNickname", ctx, "Zezima").Return(holder, nil)
	f.guild.On("FindMemberByNickname", ctx, "Zezima").Return(&MemberSnapshot{DiscordID: 888, Nickname: "Zezima"}, nil)
	f.guild.On("RemoveRole", ctx, int64(555), testMemberRole).Return(nil)

	f.emitter.Emit(ctx, NewChange(snapshot(555, "Zezima"), snapshot(555, "Zezima", "Member"), "report"))

	messages := f.notifier.Messages()
	require.Len(t, messages, 1)
	assert.Contains(t, messages[0], "<@777>")
	assert.Contains(t, messages[0], "inactive")
	assert.Contains(t, messages[0], "<@888>")
	f.guild.AssertCalled(t, "RemoveRole", ctx, int64(555), testMemberRole)

	// the guild echoes the role removal; it must not disable anybody
	dispatch := f.emitter.Emit(ctx, NewChange(snapshot(555, "Zezima", "Member"), snapshot(555, "Zezima"), "report"))

	assert.True(t, dispatch.Suppressed)
	f.members.AssertNotCalled(t, "DisableMember", mock.Anything, mock.Anything)
	assert.Zero(t, f.ledger.Pending())
}

func TestAddMemberRole_RevertWithoutPermission(t *testing.T) {
	ctx := context.Background()
	f := newHandlerFixture()

	f.members.On("GetMemberByDiscordID", ctx, int64(555)).Return(member(555, "Zezima", true, 0), nil)
	f.guild.On("RemoveRole", ctx, int64(555), testMemberRole).
		Return(fmt.Errorf("discord refused: %w", ErrMissingPermission))

	f.emitter.Emit(ctx, NewChange(snapshot(555, "Zezima"), snapshot(555, "Zezima", "Member"), "report"))

	messages := f.notifier.Messages()
	require.Len(t, messages, 1)
	assert.Contains(t, messages[0], "already an active member")
	assert.Contains(t, messages[0], "lacks permission to remove the Member role")
	assert.Zero(t, f.ledger.Pending(), "no echo is expected when the removal failed")
}

func TestAddMemberRole_UnexpectedErrorRevertsGrant(t *testing.T) {
	ctx := context.Background()
	f := newHandlerFixture()

	f.members.On("GetMemberByDiscordID", ctx, int64(555)).Return(nil, nil)
	f.members.On("CreateMember", ctx, int64(555), "Zezima", (*models.Rank)(nil), (*uuid.UUID)(nil)).
		Return(nil, fmt.Errorf("connection reset"))
	f.guild.On("RemoveRole", ctx, int64(555), testMemberRole).Return(nil)

	f.emitter.Emit(ctx, NewChange(snapshot(555, "Zezima"), snapshot(555, "Zezima", "Member"), "report"))

	messages := f.notifier.Messages()
	require.Len(t, messages, 1)
	assert.Contains(t, messages[0], "connection reset")
	f.guild.AssertCalled(t, "RemoveRole", ctx, int64(555), testMemberRole)
}

func TestRemoveMemberRole(t *testing.T) {
	tests := []struct {
		name     string
		existing *models.Member
		expect   string
	}{
		{"unknown member", nil, "has no member record"},
		{"already inactive", member(555, "Zezima", false, 0), "already inactive"},
		{"active member leaves", member(555, "Zezima", true, 0), "has left the clan"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			f := newHandlerFixture()

			f.members.On("GetMemberByDiscordID", ctx, int64(555)).Return(tt.existing, nil)
			if tt.existing != nil && tt.existing.Active {
				f.members.On("DisableMember", ctx, tt.existing.ID).Return(member(555, "Zezima", false, 0), nil)
			}

			f.emitter.Emit(ctx, NewChange(snapshot(555, "Zezima", "Member"), snapshot(555, "Zezima"), "report"))

			messages := f.notifier.Messages()
			require.Len(t, messages, 1)
			assert.Contains(t, messages[0], tt.expect)
			f.members.AssertExpectations(t)
		})
	}
}

func TestUpdateMemberRank(t *testing.T) {
	ctx := context.Background()
	f := newHandlerFixture()

	current := member(555, "Zezima", true, 0)
	f.members.On("GetMemberByDiscordID", ctx, int64(555)).Return(current, nil)
	f.members.On("ChangeRank", ctx, current.ID, models.RankGodZamorak).Return(current, nil)

	f.emitter.Emit(ctx, NewChange(
		snapshot(555, "Zezima", "Member", "Iron"),
		snapshot(555, "Zezima", "Member", "God", "Zamorak"),
		"report",
	))

	messages := f.notifier.Messages()
	require.Len(t, messages, 1)
	assert.Contains(t, messages[0], "from Iron to God (Zamorak)")
}

func TestUpdateMemberRank_IgnoresNonMembers(t *testing.T) {
	t.Parallel()

	h := NewUpdateMemberRank(new(service.MockMemberService), testMemberRole)
	assert.False(t, h.ShouldHandle(NewChange(snapshot(1, "x", "Iron"), snapshot(1, "x", "Rune"), "")))
	assert.True(t, h.ShouldHandle(NewChange(snapshot(1, "x", "Member", "Iron"), snapshot(1, "x", "Member", "Rune"), "")))
	assert.False(t, h.ShouldHandle(NewChange(snapshot(1, "x", "Member"), snapshot(1, "x", "Member", "Staff"), "")))
}

func TestUpdateMemberRole(t *testing.T) {
	ctx := context.Background()
	f := newHandlerFixture()

	current := member(555, "Zezima", true, 0)
	f.members.On("GetMemberByDiscordID", ctx, int64(555)).Return(current, nil)
	f.members.On("ChangeRole", ctx, current.ID, models.RoleLeadership).Return(current, nil)

	dispatch := f.emitter.Emit(ctx, NewChange(
		snapshot(555, "Zezima", "Member", "Staff"),
		snapshot(555, "Zezima", "Member", "Staff", "Leadership"),
		"report",
	))

	assert.Equal(t, []string{"UpdateMemberRole"}, dispatch.Ran)
	f.members.AssertExpectations(t)
}

func TestNicknameChange(t *testing.T) {
	ctx := context.Background()
	f := newHandlerFixture()

	current := member(555, "Zezima", true, 0)
	f.members.On("GetMemberByDiscordID", ctx, int64(555)).Return(current, nil)
	f.members.On("ChangeNickname", ctx, current.ID, "Woox").Return(current, nil)

	f.emitter.Emit(ctx, NewChange(snapshot(555, "Zezima", "Member"), snapshot(555, "Woox", "Member"), "report"))

	messages := f.notifier.Messages()
	require.Len(t, messages, 1)
	assert.Contains(t, messages[0], "**Zezima** is now known as **Woox**")
}

func TestNicknameChange_ConflictRestoresOldName(t *testing.T) {
	ctx := context.Background()
	f := newHandlerFixture()

	current := member(555, "Zezima", true, 0)
	f.members.On("GetMemberByDiscordID", ctx, int64(555)).Return(current, nil)
	f.members.On("ChangeNickname", ctx, current.ID, "Woox").Return(nil, &service.UniqueNicknameError{Nickname: "Woox"})
	f.members.On("GetMemberByNickname", ctx, "Woox").Return(member(999, "Woox", true, 0), nil)
	f.guild.On("FindMemberByNickname", ctx, "Woox").Return(&MemberSnapshot{DiscordID: 555, Nickname: "Woox"}, nil)
	f.guild.On("SetNickname", ctx, int64(555), "Zezima").Return(nil)

	f.emitter.Emit(ctx, NewChange(snapshot(555, "Zezima", "Member"), snapshot(555, "Woox", "Member"), "report"))

	messages := f.notifier.Messages()
	require.Len(t, messages, 1)
	assert.Contains(t, messages[0], "<@999>")
	assert.Contains(t, messages[0], "Restored <@555>'s nickname to **Zezima**")

	// the restore echoes back as a nickname change
	dispatch := f.emitter.Emit(ctx, NewChange(snapshot(555, "Woox", "Member"), snapshot(555, "Zezima", "Member"), "report"))
	assert.True(t, dispatch.Suppressed)
	f.members.AssertNumberOfCalls(t, "ChangeNickname", 1)
}

func TestNicknameChange_SkippedOnFreshGrant(t *testing.T) {
	t.Parallel()

	h := NewNicknameChange(new(service.MockMemberService), new(MockGuildRoles), NewCorrectiveActions(time.Minute), testMemberRole)
	assert.False(t, h.ShouldHandle(NewChange(snapshot(1, "Old"), snapshot(1, "New", "Member"), "")))
	assert.False(t, h.ShouldHandle(NewChange(snapshot(1, "Old"), snapshot(1, "New"), "")))
	assert.True(t, h.ShouldHandle(NewChange(snapshot(1, "Old", "Member"), snapshot(1, "New", "Member"), "")))
}
