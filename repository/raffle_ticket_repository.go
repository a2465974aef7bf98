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

// RaffleTicketRepository implements the RaffleTicketRepository interface
type RaffleTicketRepository struct {
	q queryable
}

// NewRaffleTicketRepository creates a new raffle ticket repository
func NewRaffleTicketRepository(db *database.DB) *RaffleTicketRepository {
	return &RaffleTicketRepository{q: db.Pool}
}

// newRaffleTicketRepositoryWithTx creates a new raffle ticket repository with a transaction
func newRaffleTicketRepositoryWithTx(tx queryable) *RaffleTicketRepository {
	return &RaffleTicketRepository{q: tx}
}

// GetByMemberIDForUpdate retrieves and locks a member's ticket row
func (r *RaffleTicketRepository) GetByMemberIDForUpdate(ctx context.Context, memberID uuid.UUID) (*models.RaffleTicket, error) {
	query := `
		SELECT id, member_id, quantity, last_changed_date
		FROM raffle_tickets
		WHERE member_id = $1
		FOR UPDATE
	`

	var ticket models.RaffleTicket
	err := r.q.QueryRow(ctx, query, memberID).Scan(
		&ticket.ID,
		&ticket.MemberID,
		&ticket.Quantity,
		&ticket.LastChangedDate,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get raffle tickets for member %s: %w", memberID, err)
	}

	ticket.LastChangedDate = ticket.LastChangedDate.UTC()
	return &ticket, nil
}

// Upsert sets the member's ticket quantity, inserting the row on first purchase
func (r *RaffleTicketRepository) Upsert(ctx context.Context, memberID uuid.UUID, quantity int64, changedAt time.Time) (*models.RaffleTicket, error) {
	query := `
		INSERT INTO raffle_tickets (member_id, quantity, last_changed_date)
		VALUES ($1, $2, $3)
		ON CONFLICT (member_id) DO UPDATE
		SET quantity = EXCLUDED.quantity, last_changed_date = EXCLUDED.last_changed_date
		RETURNING id, member_id, quantity, last_changed_date
	`

	var ticket models.RaffleTicket
	err := r.q.QueryRow(ctx, query, memberID, quantity, changedAt).Scan(
		&ticket.ID,
		&ticket.MemberID,
		&ticket.Quantity,
		&ticket.LastChangedDate,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert raffle tickets for member %s: %w", memberID, err)
	}

	ticket.LastChangedDate = ticket.LastChangedDate.UTC()
	return &ticket, nil
}

// GetAll returns every row holding at least one ticket, oldest buyer first
func (r *RaffleTicketRepository) GetAll(ctx context.Context) ([]*models.RaffleTicket, error) {
	query := `
		SELECT id, member_id, quantity, last_changed_date
		FROM raffle_tickets
		WHERE quantity > 0
		ORDER BY id
	`

	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get raffle tickets: %w", err)
	}
	defer rows.Close()

	var tickets []*models.RaffleTicket
	for rows.Next() {
		var ticket models.RaffleTicket
		if err := rows.Scan(&ticket.ID, &ticket.MemberID, &ticket.Quantity, &ticket.LastChangedDate); err != nil {
			return nil, fmt.Errorf("failed to scan raffle ticket: %w", err)
		}
		ticket.LastChangedDate = ticket.LastChangedDate.UTC()
		tickets = append(tickets, &ticket)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate raffle tickets: %w", err)
	}

	return tickets, nil
}

// DeleteAll removes every ticket row
func (r *RaffleTicketRepository) DeleteAll(ctx context.Context) (int64, error) {
	result, err := r.q.Exec(ctx, `DELETE FROM raffle_tickets`)
	if err != nil {
		return 0, fmt.Errorf("failed to delete raffle tickets: %w", err)
	}
	return result.RowsAffected(), nil
}
