package reconcile

import (
	"strings"
	"sync"
	"time"
)

// ActionKind is a guild change the bot makes to undo a member update
type ActionKind string

const (
	ActionRoleAdded   ActionKind = "role_added"
	ActionRoleRemoved ActionKind = "role_removed"
	ActionNicknameSet ActionKind = "nickname_set"
)

// DefaultCorrectiveActionTTL bounds how long the ledger waits for the echo
// of a corrective action
const DefaultCorrectiveActionTTL = 30 * time.Second

type actionKey struct {
	discordID int64
	kind      ActionKind
	detail    string
}

// CorrectiveActions records guild changes the bot is about to make so the
// update event they cause is recognised and dropped instead of handled
// again. Entries expire after the TTL in case the echo never arrives.
type CorrectiveActions struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	pending map[actionKey][]time.Time
}

// NewCorrectiveActions creates an empty ledger
func NewCorrectiveActions(ttl time.Duration) *CorrectiveActions {
	if ttl <= 0 {
		ttl = DefaultCorrectiveActionTTL
	}
	return &CorrectiveActions{
		ttl:     ttl,
		now:     time.Now,
		pending: make(map[actionKey][]time.Time),
	}
}

// Expect registers one upcoming corrective action. detail is the role name
// or the nickname being restored.
func (l *CorrectiveActions) Expect(discordID int64, kind ActionKind, detail string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := newActionKey(discordID, kind, detail)
	l.pending[key] = append(l.pending[key], l.now().Add(l.ttl))
}

// Consume removes one live matching entry and reports whether there was one
func (l *CorrectiveActions) Consume(discordID int64, kind ActionKind, detail string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := newActionKey(discordID, kind, detail)
	now := l.now()
	expiries := l.pending[key]
	for i, expiresAt := range expiries {
		if now.Before(expiresAt) {
			l.set(key, append(expiries[:i:i], expiries[i+1:]...))
			return true
		}
	}
	delete(l.pending, key)
	return false
}

// Cancel forgets one entry for an action that did not happen after all
func (l *CorrectiveActions) Cancel(discordID int64, kind ActionKind, detail string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := newActionKey(discordID, kind, detail)
	if expiries := l.pending[key]; len(expiries) > 0 {
		l.set(key, expiries[1:])
	}
}

// Sweep drops expired entries and returns how many were dropped
func (l *CorrectiveActions) Sweep() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	dropped := 0
	for key, expiries := range l.pending {
		live := expiries[:0]
		for _, expiresAt := range expiries {
			if now.Before(expiresAt) {
				live = append(live, expiresAt)
			} else {
				dropped++
			}
		}
		l.set(key, live)
	}
	return dropped
}

// Pending returns the number of live and expired entries not yet swept
func (l *CorrectiveActions) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	n := 0
	for _, expiries := range l.pending {
		n += len(expiries)
	}
	return n
}

func (l *CorrectiveActions) set(key actionKey, expiries []time.Time) {
	if len(expiries) == 0 {
		delete(l.pending, key)
		return
	}
	l.pending[key] = expiries
}

func newActionKey(discordID int64, kind ActionKind, detail string) actionKey {
	if kind != ActionNicknameSet {
		detail = strings.ToLower(detail)
	}
	return actionKey{discordID: discordID, kind: kind, detail: detail}
}
