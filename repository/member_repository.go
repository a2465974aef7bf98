package repository

import (
	"context"
	"fmt"
	"time"

	"ironforged/database"
	"ironforged/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const memberColumns = `id, discord_id, active, nickname, ingots, rank, role, joined_date, last_changed_date`

// MemberRepository implements the MemberRepository interface
type MemberRepository struct {
	q queryable
}

// NewMemberRepository creates a new member repository
func NewMemberRepository(db *database.DB) *MemberRepository {
	return &MemberRepository{q: db.Pool}
}

// newMemberRepositoryWithTx creates a new member repository with a transaction
func newMemberRepositoryWithTx(tx queryable) *MemberRepository {
	return &MemberRepository{q: tx}
}

// Create inserts a member and fills in the generated id
func (r *MemberRepository) Create(ctx context.Context, member *models.Member) error {
	query := `
		INSERT INTO members (discord_id, active, nickname, ingots, rank, role, joined_date, last_changed_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`

	err := r.q.QueryRow(ctx, query,
		member.DiscordID,
		member.Active,
		member.Nickname,
		member.Ingots,
		member.Rank,
		member.Role,
		member.JoinedDate,
		member.LastChangedDate,
	).Scan(&member.ID)
	if err != nil {
		return translateMemberError(
			fmt.Errorf("failed to create member with discord ID %d: %w", member.DiscordID, err),
			memberKey{discordID: member.DiscordID, nickname: member.Nickname},
		)
	}

	return nil
}

// GetByID retrieves a member by id
func (r *MemberRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Member, error) {
	return r.getOne(ctx, `SELECT `+memberColumns+` FROM members WHERE id = $1`, id)
}

// GetByIDForUpdate retrieves a member by id and locks the row
func (r *MemberRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Member, error) {
	return r.getOne(ctx, `SELECT `+memberColumns+` FROM members WHERE id = $1 FOR UPDATE`, id)
}

// GetByDiscordID retrieves a member by Discord id
func (r *MemberRepository) GetByDiscordID(ctx context.Context, discordID int64) (*models.Member, error) {
	return r.getOne(ctx, `SELECT `+memberColumns+` FROM members WHERE discord_id = $1`, discordID)
}

// GetByDiscordIDForUpdate retrieves a member by Discord id and locks the row
func (r *MemberRepository) GetByDiscordIDForUpdate(ctx context.Context, discordID int64) (*models.Member, error) {
	return r.getOne(ctx, `SELECT `+memberColumns+` FROM members WHERE discord_id = $1 FOR UPDATE`, discordID)
}

// GetByNickname retrieves a member by nickname regardless of activity
func (r *MemberRepository) GetByNickname(ctx context.Context, nickname string) (*models.Member, error) {
	return r.getOne(ctx, `SELECT `+memberColumns+` FROM members WHERE nickname = $1`, nickname)
}

// GetAllActive returns every active member ordered by nickname
func (r *MemberRepository) GetAllActive(ctx context.Context) ([]*models.Member, error) {
	query := `SELECT ` + memberColumns + ` FROM members WHERE active ORDER BY nickname`

	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get active members: %w", err)
	}
	defer rows.Close()

	var members []*models.Member
	for rows.Next() {
		member, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, member)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate members: %w", err)
	}

	return members, nil
}

// Update writes every mutable column of the member
func (r *MemberRepository) Update(ctx context.Context, member *models.Member) error {
	query := `
		UPDATE members
		SET active = $2,
			nickname = $3,
			ingots = $4,
			rank = $5,
			role = $6,
			joined_date = $7,
			last_changed_date = $8
		WHERE id = $1
	`

	result, err := r.q.Exec(ctx, query,
		member.ID,
		member.Active,
		member.Nickname,
		member.Ingots,
		member.Rank,
		member.Role,
		member.JoinedDate,
		member.LastChangedDate,
	)
	if err != nil {
		return translateMemberError(
			fmt.Errorf("failed to update member %s: %w", member.ID, err),
			memberKey{discordID: member.DiscordID, nickname: member.Nickname},
		)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("member %s not found", member.ID)
	}

	return nil
}

// UpdateIngots sets the member's balance. The CHECK constraint on the table
// rejects negative balances even if a caller skips validation.
func (r *MemberRepository) UpdateIngots(ctx context.Context, id uuid.UUID, ingots int64, changedAt time.Time) error {
	query := `
		UPDATE members
		SET ingots = $2, last_changed_date = $3
		WHERE id = $1
	`

	result, err := r.q.Exec(ctx, query, id, ingots, changedAt)
	if err != nil {
		return fmt.Errorf("failed to update ingots for member %s: %w", id, err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("member %s not found", id)
	}

	return nil
}

func (r *MemberRepository) getOne(ctx context.Context, query string, arg any) (*models.Member, error) {
	member, err := scanMember(r.q.QueryRow(ctx, query, arg))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get member by %v: %w", arg, err)
	}
	return member, nil
}

func scanMember(row pgx.Row) (*models.Member, error) {
	var member models.Member
	err := row.Scan(
		&member.ID,
		&member.DiscordID,
		&member.Active,
		&member.Nickname,
		&member.Ingots,
		&member.Rank,
		&member.Role,
		&member.JoinedDate,
		&member.LastChangedDate,
	)
	if err != nil {
		return nil, err
	}
	member.JoinedDate = member.JoinedDate.UTC()
	member.LastChangedDate = member.LastChangedDate.UTC()
	return &member, nil
}
