package models

import (
	"time"

	"github.com/google/uuid"
)

// ChangeType identifies which member field a changelog entry journals
type ChangeType string

const (
	ChangeTypeAddMember             ChangeType = "add_member"
	ChangeTypeNameChange            ChangeType = "name_change"
	ChangeTypeActivityChange        ChangeType = "activity_change"
	ChangeTypeJoinedDateChange      ChangeType = "joined_date_change"
	ChangeTypeResetIngots           ChangeType = "reset_ingots"
	ChangeTypeAddIngots             ChangeType = "add_ingots"
	ChangeTypeRemoveIngots          ChangeType = "remove_ingots"
	ChangeTypeRankChange            ChangeType = "rank_change"
	ChangeTypeRoleChange            ChangeType = "role_change"
	ChangeTypePurchaseRaffleTickets ChangeType = "purchase_raffle_tickets"
)

// Changelog is one append-only audit entry. PreviousValue and NewValue are
// string snapshots whose format depends on ChangeType.
type Changelog struct {
	ID            int64      `db:"id"`
	MemberID      uuid.UUID  `db:"member_id"`
	AdminID       *uuid.UUID `db:"admin_id"`
	ChangeType    ChangeType `db:"change_type"`
	PreviousValue string     `db:"previous_value"`
	NewValue      string     `db:"new_value"`
	Comment       string     `db:"comment"`
	Timestamp     time.Time  `db:"timestamp"`
}
