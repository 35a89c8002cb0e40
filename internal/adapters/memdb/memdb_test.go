package memdb

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"motorline-auction-service/internal/domain/auction"
	"motorline-auction-service/internal/domain/bid"
	"motorline-auction-service/internal/domain/shared"
	"motorline-auction-service/internal/ports/outbound"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var start = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func seedAuction(t *testing.T, store *Store, price float64) *auction.Auction {
	t.Helper()
	a := &auction.Auction{
		ID:            uuid.New(),
		SellerID:      uuid.New(),
		Title:         "test auction",
		StartingPrice: price,
		CurrentPrice:  price,
		EndTime:       start.Add(time.Hour),
		Status:        auction.StatusActive,
		CreatedAt:     start,
		UpdatedAt:     start,
	}
	require.NoError(t, store.AuctionRepository().Create(context.Background(), a))
	return a
}

func TestPlaceBidEnforcesFloor(t *testing.T) {
	store := NewStore()
	a := seedAuction(t, store, 1000)
	ctx := context.Background()
	repo := store.BidRepository()

	require.NoError(t, repo.PlaceBid(ctx, bid.New(a.ID, uuid.New(), 1100, start), start))

	err := repo.PlaceBid(ctx, bid.New(a.ID, uuid.New(), 1100, start), start.Add(time.Second))
	require.ErrorIs(t, err, shared.ErrBidConflict)
	floor, ok := shared.BidFloor(err)
	require.True(t, ok)
	assert.Equal(t, 1100.0, floor)
}

func TestPlaceBidRejectsInactiveAndExpired(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	repo := store.BidRepository()

	ended := seedAuction(t, store, 1000)
	_, err := store.AuctionRepository().MarkEnded(ctx, ended.ID, start.Add(2*time.Hour))
	require.NoError(t, err)
	err = repo.PlaceBid(ctx, bid.New(ended.ID, uuid.New(), 1100, start), start)
	assert.ErrorIs(t, err, shared.ErrAuctionInactive)

	expired := seedAuction(t, store, 1000)
	err = repo.PlaceBid(ctx, bid.New(expired.ID, uuid.New(), 1100, start), start.Add(2*time.Hour))
	assert.ErrorIs(t, err, shared.ErrAuctionInactive)

	err = repo.PlaceBid(ctx, bid.New(uuid.New(), uuid.New(), 1100, start), start)
	assert.ErrorIs(t, err, shared.ErrAuctionNotFound)
}

func TestConcurrentBiddingKeepsPriceMonotonic(t *testing.T) {
	store := NewStore()
	a := seedAuction(t, store, 1000)
	ctx := context.Background()
	repo := store.BidRepository()

	const bidders = 50
	var wg sync.WaitGroup
	var mu sync.Mutex
	accepted := 0

	for i := 0; i < bidders; i++ {
		wg.Add(1)
		go func(amount float64) {
			defer wg.Done()
			err := repo.PlaceBid(ctx, bid.New(a.ID, uuid.New(), amount, start), start)
			if err == nil {
				mu.Lock()
				accepted++
				mu.Unlock()
			} else if !errors.Is(err, shared.ErrBidConflict) {
				t.Errorf("unexpected error: %v", err)
			}
		}(1000 + float64(i+1)*10)
	}
	wg.Wait()

	// the top amount always lands; every accepted bid raised the price
	fresh, err := store.AuctionRepository().GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 1500.0, fresh.CurrentPrice)

	bids, err := repo.GetByAuctionID(ctx, a.ID)
	require.NoError(t, err)
	require.Equal(t, accepted, len(bids))
	for i := 1; i < len(bids); i++ {
		assert.Greater(t, bids[i-1].Amount, bids[i].Amount)
	}
}

func TestMarkEndedResolvesWinner(t *testing.T) {
	store := NewStore()
	a := seedAuction(t, store, 1000)
	ctx := context.Background()

	winner := bid.New(a.ID, uuid.New(), 1500, start)
	require.NoError(t, store.BidRepository().PlaceBid(ctx, bid.New(a.ID, uuid.New(), 1200, start), start))
	require.NoError(t, store.BidRepository().PlaceBid(ctx, winner, start.Add(time.Second)))

	result, err := store.AuctionRepository().MarkEnded(ctx, a.ID, start.Add(2*time.Hour))
	require.NoError(t, err)
	require.NotNil(t, result)
	require.NotNil(t, result.WinningBidID)
	assert.Equal(t, winner.ID, *result.WinningBidID)
	assert.Equal(t, winner.BidderID, *result.WinnerID)
	assert.Equal(t, 1500.0, *result.FinalPrice)

	fresh, err := store.AuctionRepository().GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, fresh.IsEnded())

	// the transition already happened; the second call reports nothing to do
	again, err := store.AuctionRepository().MarkEnded(ctx, a.ID, start.Add(3*time.Hour))
	require.NoError(t, err)
	assert.Nil(t, again)
}

func TestUpdateKeepsLifecycleAndPriceFields(t *testing.T) {
	store := NewStore()
	a := seedAuction(t, store, 1000)
	ctx := context.Background()

	// snapshot taken while the auction was still live
	stale := *a

	require.NoError(t, store.BidRepository().PlaceBid(ctx, bid.New(a.ID, uuid.New(), 1500, start), start))
	_, err := store.AuctionRepository().MarkEnded(ctx, a.ID, start.Add(2*time.Hour))
	require.NoError(t, err)

	stale.Title = "edited after the fact"
	require.NoError(t, store.AuctionRepository().Update(ctx, &stale))

	fresh, err := store.AuctionRepository().GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "edited after the fact", fresh.Title)
	assert.True(t, fresh.IsEnded())
	assert.NotNil(t, fresh.WinningBidID)
	assert.Equal(t, 1500.0, fresh.CurrentPrice)
}

func TestMarkEndedBeforeExpiryIsNoOp(t *testing.T) {
	store := NewStore()
	a := seedAuction(t, store, 1000)

	result, err := store.AuctionRepository().MarkEnded(context.Background(), a.ID, start.Add(time.Minute))
	require.NoError(t, err)
	assert.Nil(t, result)

	fresh, err := store.AuctionRepository().GetByID(context.Background(), a.ID)
	require.NoError(t, err)
	assert.True(t, fresh.IsActive())
}

func TestDeleteSemantics(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	contested := seedAuction(t, store, 1000)
	require.NoError(t, store.BidRepository().PlaceBid(ctx, bid.New(contested.ID, uuid.New(), 1100, start), start))

	err := store.AuctionRepository().Delete(ctx, contested.ID)
	assert.ErrorIs(t, err, shared.ErrAuctionHasBids)

	require.NoError(t, store.AuctionRepository().ForceDelete(ctx, contested.ID))
	_, err = store.AuctionRepository().GetByID(ctx, contested.ID)
	assert.ErrorIs(t, err, shared.ErrAuctionNotFound)

	bids, err := store.BidRepository().GetByAuctionID(ctx, contested.ID)
	require.NoError(t, err)
	assert.Empty(t, bids)
}

func TestListFilterAndPagination(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		a := seedAuction(t, store, 1000)
		a.Category = "suv"
		a.CreatedAt = start.Add(time.Duration(i) * time.Minute)
		require.NoError(t, store.AuctionRepository().Update(ctx, a))
	}
	sedan := seedAuction(t, store, 1000)
	sedan.Category = "sedan"
	require.NoError(t, store.AuctionRepository().Update(ctx, sedan))

	suvs, err := store.AuctionRepository().List(ctx, outbound.AuctionFilter{Category: "suv"})
	require.NoError(t, err)
	assert.Len(t, suvs, 3)
	// newest first
	assert.True(t, suvs[0].CreatedAt.After(suvs[1].CreatedAt))

	page, err := store.AuctionRepository().List(ctx, outbound.AuctionFilter{Category: "suv", Page: 2, PageSize: 2})
	require.NoError(t, err)
	assert.Len(t, page, 1)
}
