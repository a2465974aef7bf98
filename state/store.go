// Package state holds process-local, best-effort state: the raffle switch,
// the jackpot flag and pending double-or-nothing offers. The database stays
// the system of record; nothing here is assumed to survive a restart.
package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// Offer is a pending double-or-nothing bet waiting for the member to accept
type Offer struct {
	ID        uuid.UUID `json:"id"`
	DiscordID int64     `json:"discordId"`
	Amount    int64     `json:"amount"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Expired reports whether the offer can no longer be resolved at now
func (o *Offer) Expired(now time.Time) bool {
	return !now.Before(o.ExpiresAt)
}

// Store is safe for concurrent use
type Store struct {
	mu             sync.Mutex
	raffleOpen     bool
	rafflePrice    int64
	jackpotClaimed bool
	offers         map[uuid.UUID]*Offer
}

// snapshot is the on-disk layout
type snapshot struct {
	RaffleOpen     bool     `json:"raffleOpen"`
	RafflePrice    int64    `json:"rafflePrice"`
	JackpotClaimed bool     `json:"jackpotClaimed"`
	Offers         []*Offer `json:"offers"`
}

func NewStore() *Store {
	return &Store{offers: make(map[uuid.UUID]*Offer)}
}

// Raffle returns whether a raffle is running and its ticket price
func (s *Store) Raffle() (open bool, ticketPrice int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.raffleOpen, s.rafflePrice
}

// OpenRaffle starts a round. It returns false if one is already running.
func (s *Store) OpenRaffle(ticketPrice int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.raffleOpen {
		return false
	}
	s.raffleOpen = true
	s.rafflePrice = ticketPrice
	return true
}

// CloseRaffle ends the round and returns the price it ran with. Only the
// first caller gets ok == true.
func (s *Store) CloseRaffle() (ticketPrice int64, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.raffleOpen {
		return 0, false
	}
	ticketPrice = s.rafflePrice
	s.raffleOpen = false
	s.rafflePrice = 0
	return ticketPrice, true
}

// ClaimJackpot marks the jackpot claimed. Only the first caller wins.
func (s *Store) ClaimJackpot() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.jackpotClaimed {
		return false
	}
	s.jackpotClaimed = true
	return true
}

// JackpotClaimed reports whether the jackpot has been taken
func (s *Store) JackpotClaimed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jackpotClaimed
}

// ResetJackpot makes the jackpot claimable again
func (s *Store) ResetJackpot() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jackpotClaimed = false
}

// AddOffer records a new pending offer
func (s *Store) AddOffer(discordID int64, amount int64, ttl time.Duration, now time.Time) *Offer {
	offer := &Offer{
		ID:        uuid.New(),
		DiscordID: discordID,
		Amount:    amount,
		ExpiresAt: now.Add(ttl).UTC(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.offers[offer.ID] = offer
	return offer
}

// ResolveOffer removes and returns the offer if it exists, belongs to
// discordID and has not expired. It is a compare-and-remove: of any number
// of racing callers at most one receives ok == true. An expired offer is
// removed and reported as not found.
func (s *Store) ResolveOffer(id uuid.UUID, discordID int64, now time.Time) (*Offer, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	offer, exists := s.offers[id]
	if !exists || offer.DiscordID != discordID {
		return nil, false
	}

	delete(s.offers, id)
	if offer.Expired(now) {
		return nil, false
	}
	return offer, true
}

// ExpireOffers removes and returns every offer expired at now
func (s *Store) ExpireOffers(now time.Time) []*Offer {
	s.mu.Lock()
	defer s.mu.Unlock()

	var expired []*Offer
	for id, offer := range s.offers {
		if offer.Expired(now) {
			expired = append(expired, offer)
			delete(s.offers, id)
		}
	}
	return expired
}

// PendingOffers returns the number of offers not yet resolved or expired
func (s *Store) PendingOffers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.offers)
}

// Save writes the store to path atomically
func (s *Store) Save(path string) error {
	s.mu.Lock()
	snap := snapshot{
		RaffleOpen:     s.raffleOpen,
		RafflePrice:    s.rafflePrice,
		JackpotClaimed: s.jackpotClaimed,
		Offers:         make([]*Offer, 0, len(s.offers)),
	}
	for _, offer := range s.offers {
		snap.Offers = append(snap.Offers, offer)
	}
	s.mu.Unlock()

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".state-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp state file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close state file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace state file: %w", err)
	}
	return nil
}

// Load replaces the store's contents with the snapshot at path. A missing
// file leaves the store empty. Offers already expired at now are dropped.
func (s *Store) Load(path string, now time.Time) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		log.WithField("path", path).Info("No saved state found, starting fresh")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read state file: %w", err)
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("failed to parse state file %s: %w", path, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.raffleOpen = snap.RaffleOpen
	s.rafflePrice = snap.RafflePrice
	s.jackpotClaimed = snap.JackpotClaimed
	s.offers = make(map[uuid.UUID]*Offer, len(snap.Offers))

	dropped := 0
	for _, offer := range snap.Offers {
		if offer == nil || offer.Expired(now) {
			dropped++
			continue
		}
		s.offers[offer.ID] = offer
	}

	log.WithFields(log.Fields{
		"raffleOpen":     s.raffleOpen,
		"pendingOffers":  len(s.offers),
		"droppedOffers":  dropped,
		"jackpotClaimed": s.jackpotClaimed,
	}).Info("Loaded saved state")
	return nil
}
