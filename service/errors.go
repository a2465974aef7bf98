package service

import (
	"errors"
	"fmt"
)

var (
	// ErrMemberNotFound is returned by member operations that have no
	// sensible fallback when the target member does not exist.
	ErrMemberNotFound = errors.New("member not found")

	// ErrInvalidRank is returned when asked to store an unknown rank
	ErrInvalidRank = errors.New("invalid rank")

	// ErrInvalidRole is returned when asked to store an unknown role
	ErrInvalidRole = errors.New("invalid role")
)

// UniqueNicknameError reports a nickname already held by another member,
// active or not. The transaction that hit it has been rolled back.
type UniqueNicknameError struct {
	Nickname string
}

func (e *UniqueNicknameError) Error() string {
	return fmt.Sprintf("nickname %q is already taken by another member", e.Nickname)
}

// UniqueDiscordIDError reports a Discord id that already has a member record
type UniqueDiscordIDError struct {
	DiscordID int64
}

func (e *UniqueDiscordIDError) Error() string {
	return fmt.Sprintf("discord id %d already has a member record", e.DiscordID)
}

// IsUniqueNicknameError reports whether err is or wraps a *UniqueNicknameError
func IsUniqueNicknameError(err error) bool {
	var target *UniqueNicknameError
	return errors.As(err, &target)
}

// IsUniqueDiscordIDError reports whether err is or wraps a *UniqueDiscordIDError
func IsUniqueDiscordIDError(err error) bool {
	var target *UniqueDiscordIDError
	return errors.As(err, &target)
}
