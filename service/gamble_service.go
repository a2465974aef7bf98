package service

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"ironforged/models"
	"ironforged/state"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// GambleOutcome is the result of accepting a double-or-nothing offer.
// Result.Status is false when the offer was gone or the ledger refused.
type GambleOutcome struct {
	Won     bool
	Jackpot bool
	Amount  int64
	Result  *models.IngotResult
}

// jackpotOdds is the one-in-N chance that a win also claims the jackpot
const jackpotOdds = 100

type gambleService struct {
	ingotService IngotService
	store        *state.Store
	offerTTL     time.Duration
	now          func() time.Time
	roll         func() bool
	jackpotRoll  func() bool
}

// NewGambleService creates the double-or-nothing game on top of the ledger
func NewGambleService(ingotService IngotService, store *state.Store, offerTTL time.Duration) GambleService {
	return &gambleService{
		ingotService: ingotService,
		store:        store,
		offerTTL:     offerTTL,
		now:          func() time.Time { return time.Now().UTC() },
		roll:         func() bool { return rand.IntN(2) == 0 },
		jackpotRoll:  func() bool { return rand.IntN(jackpotOdds) == 0 },
	}
}

func (s *gambleService) Offer(ctx context.Context, discordID int64, amount int64) (*state.Offer, *models.IngotResult, error) {
	if amount <= 0 {
		return nil, failed("Amount must be a positive number", 0), nil
	}

	balance, err := s.ingotService.GetBalance(ctx, discordID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get balance: %w", err)
	}
	if !balance.Status {
		return nil, balance, nil
	}
	if balance.NewTotal < amount {
		return nil, failed(fmt.Sprintf("You only have %d ingots", balance.NewTotal), balance.NewTotal), nil
	}

	offer := s.store.AddOffer(discordID, amount, s.offerTTL, s.now())
	return offer, &models.IngotResult{Status: true, Message: "Offer created", NewTotal: balance.NewTotal}, nil
}

// Accept resolves the offer exactly once. A late click after expiry or a
// second click loses the compare-and-remove and changes nothing.
func (s *gambleService) Accept(ctx context.Context, offerID uuid.UUID, discordID int64) (*GambleOutcome, error) {
	offer, ok := s.store.ResolveOffer(offerID, discordID, s.now())
	if !ok {
		return &GambleOutcome{Result: failed("This offer has expired or was already played", 0)}, nil
	}

	outcome := &GambleOutcome{Won: s.roll(), Amount: offer.Amount}

	var err error
	if outcome.Won {
		outcome.Result, err = s.ingotService.TryAddIngots(ctx, discordID, offer.Amount, nil, "Double or nothing win")
	} else {
		outcome.Result, err = s.ingotService.TryRemoveIngots(ctx, discordID, -offer.Amount, nil, "Double or nothing loss")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to settle double or nothing: %w", err)
	}

	// The jackpot pays the stake once more and stays claimed until the next raffle round.
	if outcome.Won && outcome.Result.Status && s.jackpotRoll() && s.store.ClaimJackpot() {
		bonus, err := s.ingotService.TryAddIngots(ctx, discordID, offer.Amount, nil, "Double or nothing jackpot")
		if err != nil {
			return nil, fmt.Errorf("failed to pay jackpot: %w", err)
		}
		if bonus.Status {
			outcome.Jackpot = true
			outcome.Result = bonus
		} else {
			s.store.ResetJackpot()
		}
	}

	log.WithFields(log.Fields{
		"discordID": discordID,
		"amount":    offer.Amount,
		"won":       outcome.Won,
		"jackpot":   outcome.Jackpot,
		"settled":   outcome.Result.Status,
	}).Info("Double or nothing played")

	return outcome, nil
}

func (s *gambleService) Decline(ctx context.Context, offerID uuid.UUID, discordID int64) bool {
	_, ok := s.store.ResolveOffer(offerID, discordID, s.now())
	return ok
}

func (s *gambleService) ExpireOffers(ctx context.Context) []*state.Offer {
	expired := s.store.ExpireOffers(s.now())
	if len(expired) > 0 {
		log.WithField("count", len(expired)).Debug("Expired double or nothing offers")
	}
	return expired
}
