package app

import (
	"context"
	"testing"
	"time"

	"motorline-auction-service/internal/ports/inbound"
	"motorline-auction-service/internal/ports/outbound"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaterializeLeavesLiveAuctionAlone(t *testing.T) {
	f := newFixture()
	a := f.addAuction(10000)

	got, err := f.lifecycle.Materialize(context.Background(), a)
	require.NoError(t, err)
	assert.True(t, got.IsActive())
	assert.Empty(t, f.broadcaster.published())
}

func TestMaterializeEndsExpiredAuctionWithWinner(t *testing.T) {
	f := newFixture()
	a := f.addAuction(10000)
	ctx := context.Background()

	placed, err := f.bids.PlaceBid(ctx, inbound.PlaceBidRequest{
		AuctionID: a.ID, BidderID: f.bidder.ID, Amount: 12000,
	})
	require.NoError(t, err)

	f.clock.Advance(2 * time.Hour)

	got, err := f.lifecycle.Materialize(ctx, a)
	require.NoError(t, err)
	assert.True(t, got.IsEnded())
	require.NotNil(t, got.WinningBidID)
	assert.Equal(t, placed.ID, *got.WinningBidID)

	// transition is durable, not only on the returned copy
	fresh, err := f.store.AuctionRepository().GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, fresh.IsEnded())

	events := f.broadcaster.published()
	var ended []outbound.Event
	for _, e := range events {
		if e.Type == outbound.EventTypeAuctionEnded {
			ended = append(ended, e)
		}
	}
	require.Len(t, ended, 1)
	assert.Equal(t, placed.ID.String(), ended[0].Data["winning_bid_id"])
	assert.Equal(t, f.bidder.ID.String(), ended[0].Data["winner_id"])
	assert.Equal(t, 12000.0, ended[0].Data["final_price"])
}

func TestMaterializeEndsAuctionWithoutBids(t *testing.T) {
	f := newFixture()
	a := f.addAuction(10000)

	f.clock.Advance(2 * time.Hour)

	got, err := f.lifecycle.Materialize(context.Background(), a)
	require.NoError(t, err)
	assert.True(t, got.IsEnded())
	assert.Nil(t, got.WinningBidID)

	events := f.broadcaster.published()
	require.Len(t, events, 1)
	_, hasWinner := events[0].Data["winning_bid_id"]
	assert.False(t, hasWinner)
}

func TestMaterializeIsIdempotent(t *testing.T) {
	f := newFixture()
	a := f.addAuction(10000)
	ctx := context.Background()

	f.clock.Advance(2 * time.Hour)

	// a second caller may still hold the stale-active record after the
	// first applies the transition
	stale := *a

	first, err := f.lifecycle.Materialize(ctx, a)
	require.NoError(t, err)
	require.True(t, first.IsEnded())

	second, err := f.lifecycle.Materialize(ctx, &stale)
	require.NoError(t, err)
	assert.True(t, second.IsEnded())

	events := f.broadcaster.published()
	assert.Len(t, events, 1)
}
