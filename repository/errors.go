package repository

import (
	"errors"

	"ironforged/service"

	"github.com/jackc/pgx/v5/pgconn"
)

const (
	uniqueViolationCode = "23505"

	constraintMemberDiscordID = "members_discord_id_key"
	constraintMemberNickname  = "members_nickname_key"
)

// translateMemberError maps unique constraint violations on the members
// table to the service's typed errors. Anything else is returned unchanged.
func translateMemberError(err error, member memberKey) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolationCode {
		return err
	}

	switch pgErr.ConstraintName {
	case constraintMemberNickname:
		return &service.UniqueNicknameError{Nickname: member.nickname}
	case constraintMemberDiscordID:
		return &service.UniqueDiscordIDError{DiscordID: member.discordID}
	}
	return err
}

type memberKey struct {
	discordID int64
	nickname  string
}
