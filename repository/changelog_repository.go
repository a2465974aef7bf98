package repository

import (
	"context"
	"fmt"

	"ironforged/database"
	"ironforged/models"

	"github.com/google/uuid"
)

// ChangelogRepository implements the ChangelogRepository interface
type ChangelogRepository struct {
	q queryable
}

// NewChangelogRepository creates a new changelog repository
func NewChangelogRepository(db *database.DB) *ChangelogRepository {
	return &ChangelogRepository{q: db.Pool}
}

// newChangelogRepositoryWithTx creates a new changelog repository with a transaction
func newChangelogRepositoryWithTx(tx queryable) *ChangelogRepository {
	return &ChangelogRepository{q: tx}
}

// Record appends an entry to the audit trail
func (r *ChangelogRepository) Record(ctx context.Context, entry *models.Changelog) error {
	query := `
		INSERT INTO changelog (member_id, admin_id, change_type, previous_value, new_value, comment, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	err := r.q.QueryRow(ctx, query,
		entry.MemberID,
		entry.AdminID,
		entry.ChangeType,
		entry.PreviousValue,
		entry.NewValue,
		entry.Comment,
		entry.Timestamp,
	).Scan(&entry.ID)
	if err != nil {
		return fmt.Errorf("failed to record %s for member %s: %w", entry.ChangeType, entry.MemberID, err)
	}

	return nil
}

// GetByMember returns the member's newest entries first
func (r *ChangelogRepository) GetByMember(ctx context.Context, memberID uuid.UUID, limit int) ([]*models.Changelog, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, member_id, admin_id, change_type, previous_value, new_value, comment, timestamp
		FROM changelog
		WHERE member_id = $1
		ORDER BY timestamp DESC, id DESC
		LIMIT $2
	`

	rows, err := r.q.Query(ctx, query, memberID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get changelog for member %s: %w", memberID, err)
	}
	defer rows.Close()

	var entries []*models.Changelog
	for rows.Next() {
		var entry models.Changelog
		err := rows.Scan(
			&entry.ID,
			&entry.MemberID,
			&entry.AdminID,
			&entry.ChangeType,
			&entry.PreviousValue,
			&entry.NewValue,
			&entry.Comment,
			&entry.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan changelog entry: %w", err)
		}
		entry.Timestamp = entry.Timestamp.UTC()
		entries = append(entries, &entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate changelog entries: %w", err)
	}

	return entries, nil
}
