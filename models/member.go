package models

import (
	"time"

	"github.com/google/uuid"
)

// Member is a clan participant's durable record. Leaving the clan flips
// Active to false; the row and its ledger are never deleted.
type Member struct {
	ID              uuid.UUID `db:"id"`
	DiscordID       int64     `db:"discord_id"`
	Active          bool      `db:"active"`
	Nickname        string    `db:"nickname"`
	Ingots          int64     `db:"ingots"`
	Rank            Rank      `db:"rank"`
	Role            Role      `db:"role"`
	JoinedDate      time.Time `db:"joined_date"`
	LastChangedDate time.Time `db:"last_changed_date"`
}

// IngotResult is the outcome of a ledger mutation. Status false covers the
// expected business failures (validation, unknown member, insufficient
// funds); NewTotal then carries the unchanged balance when it is known.
type IngotResult struct {
	Status   bool
	Message  string
	NewTotal int64
}

// RaffleTicket is a member's ticket balance for the running raffle round
type RaffleTicket struct {
	ID              int64     `db:"id"`
	MemberID        uuid.UUID `db:"member_id"`
	Quantity        int64     `db:"quantity"`
	LastChangedDate time.Time `db:"last_changed_date"`
}
