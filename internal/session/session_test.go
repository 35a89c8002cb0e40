package session

import (
	"context"
	"testing"
	"time"

	"motorline-auction-service/internal/domain/auction"
	"motorline-auction-service/internal/domain/bid"
	"motorline-auction-service/internal/domain/shared"
	"motorline-auction-service/internal/pkg/clock"
	"motorline-auction-service/internal/ports/inbound"
	"motorline-auction-service/internal/ports/outbound"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sessionStart = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type stubSubmitter struct {
	placed *bid.Bid
	err    error
	got    inbound.PlaceBidRequest
}

func (s *stubSubmitter) PlaceBid(ctx context.Context, req inbound.PlaceBidRequest) (*bid.Bid, error) {
	s.got = req
	return s.placed, s.err
}

func snapshot(auctionID, sellerID uuid.UUID, price float64, endTime time.Time) *inbound.AuctionSnapshot {
	return &inbound.AuctionSnapshot{
		Auction: &auction.Auction{
			ID:           auctionID,
			SellerID:     sellerID,
			Status:       auction.StatusActive,
			CurrentPrice: price,
			EndTime:      endTime,
		},
		TotalBids: 3,
	}
}

func newSession(t *testing.T, sub Submitter) (*Session, uuid.UUID, uuid.UUID, *clock.MockClock) {
	t.Helper()
	auctionID := uuid.New()
	sellerID := uuid.New()
	bidderID := uuid.New()
	mockClock := clock.NewMockClock(sessionStart)

	s := New(Params{
		Identity:  shared.Identity{UserID: bidderID, Role: shared.RoleUser},
		Snapshot:  snapshot(auctionID, sellerID, 10000, sessionStart.Add(time.Hour)),
		Submitter: sub,
		Clock:     mockClock,
		Logger:    zerolog.Nop(),
	})
	return s, auctionID, sellerID, mockClock
}

func bidEvent(auctionID uuid.UUID, newPrice float64) outbound.Event {
	return outbound.Event{
		Type:      outbound.EventTypeBidAccepted,
		AuctionID: auctionID,
		Data:      map[string]interface{}{"new_current_price": newPrice},
	}
}

func TestApplyRaisesPrice(t *testing.T) {
	s, auctionID, _, _ := newSession(t, nil)

	s.Apply(bidEvent(auctionID, 10500))

	v := s.View()
	assert.Equal(t, 10500.0, v.CurrentPrice)
	assert.Equal(t, 4, v.TotalBids)
	assert.Equal(t, 0, s.StaleEvents())
}

func TestApplyDiscardsStaleAndDuplicateEvents(t *testing.T) {
	s, auctionID, _, _ := newSession(t, nil)

	s.Apply(bidEvent(auctionID, 10500))
	// late arrival of an older event
	s.Apply(bidEvent(auctionID, 10200))
	// duplicate delivery
	s.Apply(bidEvent(auctionID, 10500))

	v := s.View()
	assert.Equal(t, 10500.0, v.CurrentPrice)
	assert.Equal(t, 4, v.TotalBids)
	assert.Equal(t, 2, s.StaleEvents())
}

func TestApplyIgnoresOtherAuctions(t *testing.T) {
	s, _, _, _ := newSession(t, nil)

	s.Apply(bidEvent(uuid.New(), 99999))

	assert.Equal(t, 10000.0, s.View().CurrentPrice)
	assert.Equal(t, 0, s.StaleEvents())
}

func TestApplyAuctionEnded(t *testing.T) {
	s, auctionID, _, _ := newSession(t, nil)
	winningBid := uuid.New()

	s.Apply(outbound.Event{
		Type:      outbound.EventTypeAuctionEnded,
		AuctionID: auctionID,
		Data: map[string]interface{}{
			"winning_bid_id": winningBid.String(),
			"final_price":    10800.0,
		},
	})

	v := s.View()
	assert.Equal(t, auction.StatusEnded, v.Status)
	require.NotNil(t, v.WinningBidID)
	assert.Equal(t, winningBid, *v.WinningBidID)
	assert.Equal(t, 10800.0, v.CurrentPrice)
	assert.False(t, s.CanBid())
}

func TestResyncReplacesViewAndClearsStaleCount(t *testing.T) {
	s, auctionID, sellerID, _ := newSession(t, nil)

	s.Apply(bidEvent(auctionID, 9000)) // stale
	require.Equal(t, 1, s.StaleEvents())

	s.Resync(snapshot(auctionID, sellerID, 12000, sessionStart.Add(30*time.Minute)))

	assert.Equal(t, 12000.0, s.View().CurrentPrice)
	assert.Equal(t, 0, s.StaleEvents())
}

func TestCountdownIsAdvisory(t *testing.T) {
	s, _, _, mockClock := newSession(t, nil)

	assert.Equal(t, time.Hour, s.TimeRemaining())
	assert.False(t, s.Expired())
	assert.True(t, s.CanBid())

	mockClock.Advance(2 * time.Hour)

	assert.Equal(t, time.Duration(0), s.TimeRemaining())
	assert.True(t, s.Expired())
	assert.False(t, s.CanBid())
	// the local view still says active; only the server flips the status
	assert.Equal(t, auction.StatusActive, s.View().Status)
}

func TestSellerCannotBidOnOwnAuction(t *testing.T) {
	auctionID := uuid.New()
	sellerID := uuid.New()

	s := New(Params{
		Identity: shared.Identity{UserID: sellerID, Role: shared.RoleUser},
		Snapshot: snapshot(auctionID, sellerID, 10000, sessionStart.Add(time.Hour)),
		Clock:    clock.NewMockClock(sessionStart),
		Logger:   zerolog.Nop(),
	})

	assert.False(t, s.CanBid())
}

func TestSubmitUsesSessionIdentity(t *testing.T) {
	accepted := &bid.Bid{ID: uuid.New(), Amount: 10500, CreatedAt: sessionStart}
	sub := &stubSubmitter{placed: accepted}
	s, auctionID, _, _ := newSession(t, sub)

	placed, err := s.Submit(context.Background(), 10500)
	require.NoError(t, err)
	assert.Equal(t, accepted.ID, placed.ID)

	assert.Equal(t, auctionID, sub.got.AuctionID)
	assert.Equal(t, 10500.0, sub.got.Amount)
	assert.Equal(t, 10500.0, s.View().CurrentPrice)
}

func TestSubmitFoldsRejectionFloorIntoView(t *testing.T) {
	sub := &stubSubmitter{err: shared.NewBidConflictError(11200)}
	s, _, _, _ := newSession(t, sub)

	_, err := s.Submit(context.Background(), 10500)
	require.ErrorIs(t, err, shared.ErrBidConflict)

	// the authoritative floor from the rejection becomes the local floor
	assert.Equal(t, 11200.0, s.Floor())
}
