package state

import (
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2024, 10, 31, 12, 0, 0, 0, time.UTC)

func TestStore_ResolveOfferIsCompareAndRemove(t *testing.T) {
	t.Parallel()

	store := NewStore()
	offer := store.AddOffer(42, 1000, time.Minute, baseTime)

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, ok := store.ResolveOffer(offer.ID, 42, baseTime.Add(time.Second)); ok {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
	assert.Equal(t, 0, store.PendingOffers())
}

func TestStore_ResolveOffer(t *testing.T) {
	t.Parallel()

	t.Run("wrong owner leaves offer in place", func(t *testing.T) {
		t.Parallel()
		store := NewStore()
		offer := store.AddOffer(42, 1000, time.Minute, baseTime)

		_, ok := store.ResolveOffer(offer.ID, 7, baseTime)
		assert.False(t, ok)
		assert.Equal(t, 1, store.PendingOffers())

		resolved, ok := store.ResolveOffer(offer.ID, 42, baseTime)
		require.True(t, ok)
		assert.Equal(t, int64(1000), resolved.Amount)
	})

	t.Run("expired offer is removed and not resolvable", func(t *testing.T) {
		t.Parallel()
		store := NewStore()
		offer := store.AddOffer(42, 1000, time.Minute, baseTime)

		_, ok := store.ResolveOffer(offer.ID, 42, baseTime.Add(time.Minute))
		assert.False(t, ok)
		assert.Equal(t, 0, store.PendingOffers())
	})

	t.Run("unknown offer", func(t *testing.T) {
		t.Parallel()
		store := NewStore()
		_, ok := store.ResolveOffer(uuid.New(), 42, baseTime)
		assert.False(t, ok)
	})
}

func TestStore_ExpireOffersRacesWithResolve(t *testing.T) {
	t.Parallel()

	store := NewStore()
	offer := store.AddOffer(42, 1000, time.Minute, baseTime)
	store.AddOffer(43, 500, time.Hour, baseTime)

	expired := store.ExpireOffers(baseTime.Add(2 * time.Minute))
	require.Len(t, expired, 1)
	assert.Equal(t, offer.ID, expired[0].ID)

	// the late accept loses
	_, ok := store.ResolveOffer(offer.ID, 42, baseTime.Add(2*time.Minute))
	assert.False(t, ok)
	assert.Equal(t, 1, store.PendingOffers())
}

func TestStore_RaffleAndJackpot(t *testing.T) {
	t.Parallel()

	store := NewStore()

	open, _ := store.Raffle()
	assert.False(t, open)

	assert.True(t, store.OpenRaffle(5000))
	assert.False(t, store.OpenRaffle(10))
	open, price := store.Raffle()
	assert.True(t, open)
	assert.Equal(t, int64(5000), price)

	price, ok := store.CloseRaffle()
	assert.True(t, ok)
	assert.Equal(t, int64(5000), price)
	_, ok = store.CloseRaffle()
	assert.False(t, ok)

	assert.True(t, store.ClaimJackpot())
	assert.False(t, store.ClaimJackpot())
	assert.True(t, store.JackpotClaimed())
	store.ResetJackpot()
	assert.False(t, store.JackpotClaimed())
}

func TestStore_SaveAndLoad(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "state.json")

	store := NewStore()
	store.OpenRaffle(2500)
	store.ClaimJackpot()
	live := store.AddOffer(42, 1000, time.Hour, baseTime)
	store.AddOffer(43, 1000, time.Second, baseTime)
	require.NoError(t, store.Save(path))

	loaded := NewStore()
	require.NoError(t, loaded.Load(path, baseTime.Add(time.Minute)))

	open, price := loaded.Raffle()
	assert.True(t, open)
	assert.Equal(t, int64(2500), price)
	assert.True(t, loaded.JackpotClaimed())
	assert.Equal(t, 1, loaded.PendingOffers())

	resolved, ok := loaded.ResolveOffer(live.ID, 42, baseTime.Add(time.Minute))
	require.True(t, ok)
	assert.Equal(t, live.Amount, resolved.Amount)
}

func TestStore_LoadMissingFile(t *testing.T) {
	t.Parallel()

	store := NewStore()
	err := store.Load(filepath.Join(t.TempDir(), "missing.json"), baseTime)
	require.NoError(t, err)
	assert.Equal(t, 0, store.PendingOffers())
}
