package repository

import (
	"context"
	"errors"
	"fmt"

	"ironforged/database"
	"ironforged/events"
	"ironforged/service"

	"github.com/jackc/pgx/v5"
)

const errNotStarted = "unit of work not started - call Begin() first"

// unitOfWork implements the UnitOfWork interface
type unitOfWork struct {
	db               *database.DB
	tx               pgx.Tx
	ctx              context.Context
	transactionalBus *events.TransactionalBus
	memberRepo       service.MemberRepository
	changelogRepo    service.ChangelogRepository
	ticketRepo       service.RaffleTicketRepository
}

// NewUnitOfWorkFactory creates a new UnitOfWork factory
func NewUnitOfWorkFactory(db *database.DB, eventBus *events.Bus) service.UnitOfWorkFactory {
	return &unitOfWorkFactory{
		db:       db,
		eventBus: eventBus,
	}
}

type unitOfWorkFactory struct {
	db       *database.DB
	eventBus *events.Bus
}

func (f *unitOfWorkFactory) Create() service.UnitOfWork {
	return &unitOfWork{
		db:               f.db,
		transactionalBus: events.NewTransactionalBus(f.eventBus),
	}
}

// Begin starts a new transaction
func (u *unitOfWork) Begin(ctx context.Context) error {
	if u.tx != nil {
		return fmt.Errorf("transaction already started")
	}

	tx, err := u.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	u.tx = tx
	u.ctx = ctx

	u.memberRepo = newMemberRepositoryWithTx(tx)
	u.changelogRepo = newChangelogRepositoryWithTx(tx)
	u.ticketRepo = newRaffleTicketRepositoryWithTx(tx)

	return nil
}

// Commit commits the transaction and only then releases queued events
func (u *unitOfWork) Commit() error {
	if u.tx == nil {
		return fmt.Errorf("no transaction to commit")
	}

	if err := u.tx.Commit(u.ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	u.tx = nil
	u.transactionalBus.Flush(u.ctx)

	return nil
}

// Rollback rolls back the transaction and drops queued events
func (u *unitOfWork) Rollback() error {
	if u.tx == nil {
		return nil
	}

	err := u.tx.Rollback(u.ctx)
	u.tx = nil
	u.transactionalBus.Discard()

	if err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}

	return nil
}

// MemberRepository returns the member repository for this unit of work
func (u *unitOfWork) MemberRepository() service.MemberRepository {
	if u.memberRepo == nil {
		panic(errNotStarted)
	}
	return u.memberRepo
}

// ChangelogRepository returns the changelog repository for this unit of work
func (u *unitOfWork) ChangelogRepository() service.ChangelogRepository {
	if u.changelogRepo == nil {
		panic(errNotStarted)
	}
	return u.changelogRepo
}

// RaffleTicketRepository returns the raffle ticket repository for this unit of work
func (u *unitOfWork) RaffleTicketRepository() service.RaffleTicketRepository {
	if u.ticketRepo == nil {
		panic(errNotStarted)
	}
	return u.ticketRepo
}

// EventBus returns the transactional event bus for this unit of work
func (u *unitOfWork) EventBus() service.EventPublisher {
	if u.tx == nil && u.memberRepo == nil {
		panic(errNotStarted)
	}
	return u.transactionalBus
}
