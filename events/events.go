package events

import (
	"context"
	"sync"

	"ironforged/models"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventTypeMemberCreated          EventType = "member_created"
	EventTypeMemberStatusChange     EventType = "member_status_change"
	EventTypeMemberUpdated          EventType = "member_updated"
	EventTypeIngotsChange           EventType = "ingots_change"
	EventTypeRaffleTicketsPurchased EventType = "raffle_tickets_purchased"
)

// AllEventTypes lists every event the services publish
func AllEventTypes() []EventType {
	return []EventType{
		EventTypeMemberCreated,
		EventTypeMemberStatusChange,
		EventTypeMemberUpdated,
		EventTypeIngotsChange,
		EventTypeRaffleTicketsPurchased,
	}
}

// Event is the base interface for all events
type Event interface {
	Type() EventType
}

// MemberCreatedEvent is published when a new member record is added
type MemberCreatedEvent struct {
	MemberID  uuid.UUID   `json:"memberId"`
	DiscordID int64       `json:"discordId"`
	Nickname  string      `json:"nickname"`
	Rank      models.Rank `json:"rank"`
}

func (e MemberCreatedEvent) Type() EventType {
	return EventTypeMemberCreated
}

// MemberStatusChangeEvent is published when a member leaves or rejoins
type MemberStatusChangeEvent struct {
	MemberID    uuid.UUID `json:"memberId"`
	DiscordID   int64     `json:"discordId"`
	Nickname    string    `json:"nickname"`
	Active      bool      `json:"active"`
	IngotsReset bool      `json:"ingotsReset"`
}

func (e MemberStatusChangeEvent) Type() EventType {
	return EventTypeMemberStatusChange
}

// MemberUpdatedEvent is published for single-field identity changes
type MemberUpdatedEvent struct {
	MemberID      uuid.UUID         `json:"memberId"`
	DiscordID     int64             `json:"discordId"`
	ChangeType    models.ChangeType `json:"changeType"`
	PreviousValue string            `json:"previousValue"`
	NewValue      string            `json:"newValue"`
}

func (e MemberUpdatedEvent) Type() EventType {
	return EventTypeMemberUpdated
}

// IngotsChangeEvent is published for every successful ledger mutation
type IngotsChangeEvent struct {
	MemberID   uuid.UUID         `json:"memberId"`
	DiscordID  int64             `json:"discordId"`
	OldBalance int64             `json:"oldBalance"`
	NewBalance int64             `json:"newBalance"`
	Quantity   int64             `json:"quantity"`
	ChangeType models.ChangeType `json:"changeType"`
	Reason     string            `json:"reason"`
}

func (e IngotsChangeEvent) Type() EventType {
	return EventTypeIngotsChange
}

// RaffleTicketsPurchasedEvent is published after a ticket purchase commits
type RaffleTicketsPurchasedEvent struct {
	MemberID    uuid.UUID `json:"memberId"`
	DiscordID   int64     `json:"discordId"`
	Quantity    int64     `json:"quantity"`
	TotalOwned  int64     `json:"totalOwned"`
	IngotsSpent int64     `json:"ingotsSpent"`
}

func (e RaffleTicketsPurchasedEvent) Type() EventType {
	return EventTypeRaffleTicketsPurchased
}

// Handler is a function that handles events
type Handler func(ctx context.Context, event Event)

// Bus manages event subscriptions and dispatching
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
}

// NewBus creates a new event bus
func NewBus() *Bus {
	return &Bus{
		handlers: make(map[EventType][]Handler),
	}
}

// Subscribe adds a handler for a specific event type
func (b *Bus) Subscribe(eventType EventType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[eventType] = append(b.handlers[eventType], handler)

	log.WithFields(log.Fields{
		"eventType":    eventType,
		"handlerCount": len(b.handlers[eventType]),
	}).Debug("Subscribed handler to event type")
}

// SubscribeAll adds a handler for every known event type
func (b *Bus) SubscribeAll(handler Handler) {
	for _, eventType := range AllEventTypes() {
		b.Subscribe(eventType, handler)
	}
}

// Emit publishes an event to all registered handlers. Handlers run
// asynchronously and a panicking handler never takes the caller down.
func (b *Bus) Emit(ctx context.Context, event Event) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers[event.Type()]))
	copy(handlers, b.handlers[event.Type()])
	b.mu.RUnlock()

	log.WithFields(log.Fields{
		"eventType":    event.Type(),
		"handlerCount": len(handlers),
	}).Debug("Emitting event to handlers")

	for i, handler := range handlers {
		go func(h Handler, handlerIndex int) {
			defer func() {
				if r := recover(); r != nil {
					log.WithFields(log.Fields{
						"eventType":    event.Type(),
						"handlerIndex": handlerIndex,
						"panic":        r,
					}).Error("Event handler panicked")
				}
			}()
			h(ctx, event)
		}(handler, i)
	}
}

// TransactionalBus holds events raised inside a unit of work until the
// transaction commits.
type TransactionalBus struct {
	real    *Bus
	pending []Event
}

func NewTransactionalBus(real *Bus) *TransactionalBus {
	return &TransactionalBus{real: real}
}

func (b *TransactionalBus) Publish(e Event) {
	b.pending = append(b.pending, e)
}

// Flush emits pending events; called after a successful commit
func (b *TransactionalBus) Flush(ctx context.Context) {
	log.WithField("pendingEventCount", len(b.pending)).Debug("Flushing transactional bus")

	// Handlers outlive the request that committed the transaction
	eventCtx := context.WithoutCancel(ctx)

	for _, ev := range b.pending {
		b.real.Emit(eventCtx, ev)
	}
	b.pending = nil
}

// Discard drops pending events; called after a rollback
func (b *TransactionalBus) Discard() {
	if len(b.pending) > 0 {
		log.WithField("discardedEventCount", len(b.pending)).Debug("Discarding events from rolled back transaction")
	}
	b.pending = nil
}

// Pending returns the number of queued events
func (b *TransactionalBus) Pending() int {
	return len(b.pending)
}
