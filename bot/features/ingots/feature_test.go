package ingots

import (
	"context"
	"errors"
	"testing"
	"time"

	"ironforged/models"
	"ironforged/service"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	adminID  int64 = 900
	memberID int64 = 555
)

func zezima() *models.Member {
	return &models.Member{ID: uuid.New(), DiscordID: memberID, Nickname: "Zezima", Active: true, Ingots: 1000}
}

func TestFeature_Balance(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("own balance", func(t *testing.T) {
		members := new(service.MockMemberService)
		ledger := new(service.MockIngotService)
		ledger.On("GetBalance", ctx, memberID).Return(&models.IngotResult{Status: true, NewTotal: 12500}, nil)

		message, botErr := New(members, ledger).balance(ctx, memberID, "")

		require.Nil(t, botErr)
		assert.Equal(t, "You have **12,500 ingots**", message)
		members.AssertNotCalled(t, "GetMemberByNickname", mock.Anything, mock.Anything)
	})

	t.Run("another player", func(t *testing.T) {
		members := new(service.MockMemberService)
		ledger := new(service.MockIngotService)
		members.On("GetMemberByNickname", ctx, "Zezima").Return(zezima(), nil)
		ledger.On("GetBalance", ctx, memberID).Return(&models.IngotResult{Status: true, NewTotal: 1000}, nil)

		message, botErr := New(members, ledger).balance(ctx, adminID, " Zezima ")

		require.Nil(t, botErr)
		assert.Equal(t, "**Zezima** has **1,000 ingots**", message)
	})

	t.Run("unknown player", func(t *testing.T) {
		members := new(service.MockMemberService)
		members.On("GetMemberByNickname", ctx, "Nobody").Return(nil, nil)

		_, botErr := New(members, new(service.MockIngotService)).balance(ctx, adminID, "Nobody")

		require.NotNil(t, botErr)
		assert.Contains(t, botErr.UserMessage, "not a clan member")
	})

	t.Run("caller not in the ledger", func(t *testing.T) {
		ledger := new(service.MockIngotService)
		ledger.On("GetBalance", ctx, memberID).Return(&models.IngotResult{Status: false, Message: "Member not found"}, nil)

		_, botErr := New(new(service.MockMemberService), ledger).balance(ctx, memberID, "")

		require.NotNil(t, botErr)
		assert.Equal(t, "Member not found", botErr.UserMessage)
	})
}

func TestFeature_Adjust(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("positive amount credits", func(t *testing.T) {
		members := new(service.MockMemberService)
		ledger := new(service.MockIngotService)
		members.On("GetMemberByNickname", ctx, "Zezima").Return(zezima(), nil)
		ledger.On("TryAddIngots", ctx, memberID, int64(500), mock.MatchedBy(func(actor *int64) bool {
			return actor != nil && *actor == adminID
		}), "Raid reward").Return(&models.IngotResult{Status: true, Message: "Zezima now has 1500 ingots", NewTotal: 1500}, nil)

		message, botErr := New(members, ledger).adjust(ctx, adminID, "Zezima", 500, "Raid reward")

		require.Nil(t, botErr)
		assert.Contains(t, message, "1,500 ingots")
		ledger.AssertExpectations(t)
	})

	t.Run("negative amount debits", func(t *testing.T) {
		members := new(service.MockMemberService)
		ledger := new(service.MockIngotService)
		members.On("GetMemberByNickname", ctx, "Zezima").Return(zezima(), nil)
		ledger.On("TryRemoveIngots", ctx, memberID, int64(-1500), mock.Anything, "Shop").
			Return(&models.IngotResult{Status: false, Message: "Zezima does not have enough ingots", NewTotal: 1000}, nil)

		message, botErr := New(members, ledger).adjust(ctx, adminID, "Zezima", -1500, "Shop")

		require.Nil(t, botErr)
		assert.Equal(t, "❌ Zezima does not have enough ingots", message)
		ledger.AssertNotCalled(t, "TryAddIngots", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("validation", func(t *testing.T) {
		feature := New(new(service.MockMemberService), new(service.MockIngotService))

		_, botErr := feature.adjust(ctx, adminID, "Zezima", 0, "Nothing")
		assert.NotNil(t, botErr)

		_, botErr = feature.adjust(ctx, adminID, "Zezima", 10, "  ")
		assert.NotNil(t, botErr)

		_, botErr = feature.adjust(ctx, adminID, "", 10, "Reason")
		assert.NotNil(t, botErr)
	})

	t.Run("ledger error", func(t *testing.T) {
		members := new(service.MockMemberService)
		ledger := new(service.MockIngotService)
		members.On("GetMemberByNickname", ctx, "Zezima").Return(zezima(), nil)
		ledger.On("TryAddIngots", ctx, memberID, int64(10), mock.Anything, "Gift").Return(nil, errors.New("connection lost"))

		_, botErr := New(members, ledger).adjust(ctx, adminID, "Zezima", 10, "Gift")

		require.NotNil(t, botErr)
		assert.ErrorContains(t, botErr, "connection lost")
	})
}

func TestFeature_Changelog(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	member := zezima()
	members := new(service.MockMemberService)
	members.On("GetMemberByNickname", ctx, "Zezima").Return(member, nil)
	members.On("GetChangelog", ctx, member.ID, changelogPageSize).Return([]*models.Changelog{
		{ChangeType: models.ChangeTypeAddIngots, PreviousValue: "500", NewValue: "1000", Comment: "Raid reward", Timestamp: time.Now()},
		{ChangeType: models.ChangeTypeAddMember, NewValue: "Zezima", Timestamp: time.Now()},
	}, nil)

	message, botErr := New(members, new(service.MockIngotService)).changelog(ctx, "Zezima")

	require.Nil(t, botErr)
	assert.Contains(t, message, "`add_ingots` 500 → 1000 (Raid reward)")
	assert.Contains(t, message, "`add_member` - → Zezima")
}
