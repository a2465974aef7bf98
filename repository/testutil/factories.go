package testutil

import (
	"context"
	"testing"
	"time"

	"ironforged/database"
	"ironforged/models"

	"github.com/stretchr/testify/require"
)

// CreateTestMember creates an active iron member with default values
func CreateTestMember(discordID int64, nickname string) *models.Member {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &models.Member{
		DiscordID:       discordID,
		Active:          true,
		Nickname:        nickname,
		Rank:            models.RankIron,
		Role:            models.RoleMember,
		JoinedDate:      now,
		LastChangedDate: now,
	}
}

// CreateTestMemberWithIngots creates a test member with a specific balance
func CreateTestMemberWithIngots(discordID int64, nickname string, ingots int64) *models.Member {
	member := CreateTestMember(discordID, nickname)
	member.Ingots = ingots
	return member
}

// InsertMember writes member straight to the members table and fills in its id
func InsertMember(t *testing.T, db *database.DB, member *models.Member) *models.Member {
	t.Helper()

	err := db.QueryRow(context.Background(), `
		INSERT INTO members (discord_id, active, nickname, ingots, rank, role, joined_date, last_changed_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`,
		member.DiscordID,
		member.Active,
		member.Nickname,
		member.Ingots,
		member.Rank,
		member.Role,
		member.JoinedDate,
		member.LastChangedDate,
	).Scan(&member.ID)
	require.NoError(t, err)

	return member
}
