package reconcile

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// Outcome labels how one handler run ended
type Outcome string

const (
	OutcomeOK       Outcome = "ok"
	OutcomeReverted Outcome = "reverted"
	OutcomeError    Outcome = "error"
	OutcomePanic    Outcome = "panic"
)

// Observer is told about every handler run and every dropped echo
type Observer interface {
	HandlerFinished(handler string, outcome Outcome, duration time.Duration)
	ChangeSuppressed(kind ActionKind)
}

// Dispatch summarises one Emit call
type Dispatch struct {
	Suppressed bool
	Ran        []string
	Skipped    []string
}

// Emitter routes member changes to the registered handlers
type Emitter struct {
	mu       sync.RWMutex
	handlers []Handler

	ledger   *CorrectiveActions
	notifier Notifier
	observer Observer
	locks    memberLocks
}

// NewEmitter creates an emitter reporting through notifier
func NewEmitter(ledger *CorrectiveActions, notifier Notifier) *Emitter {
	return &Emitter{
		ledger:   ledger,
		notifier: notifier,
		locks:    memberLocks{held: make(map[int64]*memberLock)},
	}
}

// SetObserver installs an observer, typically metrics
func (e *Emitter) SetObserver(o Observer) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.observer = o
}

// Register adds a handler. Handlers sharing a priority run in registration order.
func (e *Emitter) Register(h Handler) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.handlers = append(e.handlers, h)
	sort.SliceStable(e.handlers, func(i, j int) bool {
		return e.handlers[i].Priority() < e.handlers[j].Priority()
	})

	log.WithFields(log.Fields{
		"handler":  h.Name(),
		"priority": h.Priority(),
	}).Debug("Registered member update handler")
}

// Emit dispatches one change. Changes for the same member never run
// concurrently, but the lock does not queue them fairly: callers that need
// arrival order must emit a member's changes sequentially.
func (e *Emitter) Emit(ctx context.Context, change *Change) Dispatch {
	unlock := e.locks.lock(change.DiscordID())
	defer unlock()

	e.mu.RLock()
	handlers := make([]Handler, len(e.handlers))
	copy(handlers, e.handlers)
	observer := e.observer
	e.mu.RUnlock()

	var dispatch Dispatch
	if e.suppressEchoes(change, observer) {
		dispatch.Suppressed = true
		log.WithField("discordID", change.DiscordID()).Debug("Dropped echo of a corrective action")
		return dispatch
	}

	for _, h := range handlers {
		if change.Reverted() {
			dispatch.Skipped = append(dispatch.Skipped, h.Name())
			continue
		}
		if !h.ShouldHandle(change) {
			continue
		}

		dispatch.Ran = append(dispatch.Ran, h.Name())
		message, outcome, elapsed := e.run(ctx, h, change)
		if observer != nil {
			observer.HandlerFinished(h.Name(), outcome, elapsed)
		}
		e.report(ctx, change, message)
	}

	return dispatch
}

// suppressEchoes strips the parts of change the bot caused itself and
// reports whether anything is left to handle
func (e *Emitter) suppressEchoes(change *Change, observer Observer) bool {
	if e.ledger == nil {
		return false
	}
	id := change.DiscordID()

	for _, role := range append([]string(nil), change.RolesRemoved...) {
		if e.ledger.Consume(id, ActionRoleRemoved, role) {
			change.dropRoleRemoved(role)
			notify(observer, ActionRoleRemoved)
		}
	}
	for _, role := range append([]string(nil), change.RolesAdded...) {
		if e.ledger.Consume(id, ActionRoleAdded, role) {
			change.dropRoleAdded(role)
			notify(observer, ActionRoleAdded)
		}
	}
	if change.NicknameChanged() && e.ledger.Consume(id, ActionNicknameSet, change.After.Nickname) {
		change.nicknameSuppressed = true
		notify(observer, ActionNicknameSet)
	}

	return change.Empty()
}

func (e *Emitter) run(ctx context.Context, h Handler, change *Change) (message string, outcome Outcome, elapsed time.Duration) {
	start := time.Now()
	outcome = OutcomeOK

	defer func() {
		elapsed = time.Since(start)
		if r := recover(); r != nil {
			outcome = OutcomePanic
			log.WithFields(log.Fields{
				"handler":   h.Name(),
				"discordID": change.DiscordID(),
				"panic":     r,
			}).Error("Member update handler panicked")
			message = h.OnError(ctx, change, fmt.Errorf("handler panicked: %v", r))
		}
	}()

	message, err := h.Execute(ctx, change)
	if err != nil {
		outcome = OutcomeError
		message = h.OnError(ctx, change, err)
	} else if change.Reverted() {
		outcome = OutcomeReverted
	}

	log.WithFields(log.Fields{
		"handler":   h.Name(),
		"discordID": change.DiscordID(),
		"outcome":   outcome,
	}).Debug("Member update handler finished")

	return message, outcome, time.Since(start)
}

func (e *Emitter) report(ctx context.Context, change *Change, message string) {
	if message == "" || e.notifier == nil || change.ReportChannelID == "" {
		return
	}
	if err := e.notifier.Send(ctx, change.ReportChannelID, message); err != nil {
		log.WithFields(log.Fields{
			"channelID": change.ReportChannelID,
			"discordID": change.DiscordID(),
		}).WithError(err).Warn("Failed to post reconciliation report")
	}
}

func notify(observer Observer, kind ActionKind) {
	if observer != nil {
		observer.ChangeSuppressed(kind)
	}
}

// memberLocks hands out one mutex per member, freed when nobody holds it
type memberLocks struct {
	mu   sync.Mutex
	held map[int64]*memberLock
}

type memberLock struct {
	mu   sync.Mutex
	refs int
}

func (l *memberLocks) lock(discordID int64) (unlock func()) {
	l.mu.Lock()
	entry, ok := l.held[discordID]
	if !ok {
		entry = &memberLock{}
		l.held[discordID] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()
	return func() {
		entry.mu.Unlock()

		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.held, discordID)
		}
		l.mu.Unlock()
	}
}
