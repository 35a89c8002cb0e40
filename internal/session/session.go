// Package session implements the client-side view of a live auction: a
// snapshot-seeded local state that folds in live events but never outruns
// the server. The server remains authoritative; the session is an advisory
// cache for rendering and precondition hints.
package session

import (
	"context"
	"sync"
	"time"

	"motorline-auction-service/internal/domain/auction"
	"motorline-auction-service/internal/domain/bid"
	"motorline-auction-service/internal/domain/shared"
	"motorline-auction-service/internal/pkg/clock"
	"motorline-auction-service/internal/ports/inbound"
	"motorline-auction-service/internal/ports/outbound"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Submitter sends a bid to the authority. inbound.BidService satisfies it
// directly for in-process use; remote clients wrap their HTTP transport.
type Submitter interface {
	PlaceBid(ctx context.Context, req inbound.PlaceBidRequest) (*bid.Bid, error)
}

// View is the session's local picture of the auction
type View struct {
	AuctionID    uuid.UUID
	SellerID     uuid.UUID
	Status       auction.Status
	CurrentPrice float64
	EndTime      time.Time
	TotalBids    int
	WinningBidID *uuid.UUID
}

// Session tracks one auction on behalf of one identified participant.
// Events may arrive late, duplicated, or out of order; the monotonic guard
// keeps the local price from ever moving backwards.
type Session struct {
	identity  shared.Identity
	submitter Submitter
	clock     clock.Clock
	logger    zerolog.Logger

	mu          sync.RWMutex
	view        View
	staleEvents int
}

type Params struct {
	Identity  shared.Identity
	Snapshot  *inbound.AuctionSnapshot
	Submitter Submitter
	Clock     clock.Clock
	Logger    zerolog.Logger
}

// New seeds a session from an authoritative snapshot. The identity is fixed
// at construction; a session never guesses who is bidding.
func New(params Params) *Session {
	c := params.Clock
	if c == nil {
		c = clock.NewRealClock()
	}

	s := &Session{
		identity:  params.Identity,
		submitter: params.Submitter,
		clock:     c,
		logger:    params.Logger.With().Str("component", "bidding_session").Logger(),
	}
	s.view = viewFromSnapshot(params.Snapshot)
	return s
}

func viewFromSnapshot(snap *inbound.AuctionSnapshot) View {
	a := snap.Auction
	return View{
		AuctionID:    a.ID,
		SellerID:     a.SellerID,
		Status:       a.Status,
		CurrentPrice: a.CurrentPrice,
		EndTime:      a.EndTime,
		TotalBids:    snap.TotalBids,
		WinningBidID: a.WinningBidID,
	}
}

// Apply folds a live event into the local view. Events that would move the
// price backwards or sideways are counted and dropped; a rising stale count
// is the signal to Resync.
func (s *Session) Apply(event outbound.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if event.AuctionID != s.view.AuctionID {
		return
	}

	switch event.Type {
	case outbound.EventTypeBidAccepted:
		price, ok := event.Data["new_current_price"].(float64)
		if !ok || price <= s.view.CurrentPrice {
			s.staleEvents++
			s.logger.Debug().
				Str("auction_id", event.AuctionID.String()).
				Float64("local_price", s.view.CurrentPrice).
				Msg("Discarded stale bid event")
			return
		}
		s.view.CurrentPrice = price
		s.view.TotalBids++

	case outbound.EventTypeAuctionEnded:
		s.view.Status = auction.StatusEnded
		if raw, ok := event.Data["winning_bid_id"].(string); ok {
			if id, err := uuid.Parse(raw); err == nil {
				s.view.WinningBidID = &id
			}
		}
		if price, ok := event.Data["final_price"].(float64); ok && price > s.view.CurrentPrice {
			s.view.CurrentPrice = price
		}
	}
}

// Resync replaces the local view with a fresh authoritative snapshot and
// clears the stale counter
func (s *Session) Resync(snap *inbound.AuctionSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.view = viewFromSnapshot(snap)
	s.staleEvents = 0
}

// View returns a copy of the current local view
func (s *Session) View() View {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view
}

// StaleEvents reports how many events were discarded since the last resync
func (s *Session) StaleEvents() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.staleEvents
}

// TimeRemaining is the advisory local countdown. Zero means locally expired;
// only the server decides the real outcome.
func (s *Session) TimeRemaining() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()

	remaining := s.view.EndTime.Sub(s.clock.Now())
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Expired reports whether the local countdown has run out
func (s *Session) Expired() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !s.clock.Now().Before(s.view.EndTime)
}

// CanBid is a rendering hint. It precomputes the obvious rejections so the
// UI can disable the control, but the submit path never trusts it.
func (s *Session) CanBid() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.view.Status != auction.StatusActive {
		return false
	}
	if !s.clock.Now().Before(s.view.EndTime) {
		return false
	}
	return s.identity.UserID != s.view.SellerID
}

// Floor returns the amount a new bid must exceed, per the local view
func (s *Session) Floor() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view.CurrentPrice
}

// Submit sends a bid as the session identity. The server re-validates
// everything; a locally plausible bid can still come back rejected with the
// fresh floor, which Submit folds into the view.
func (s *Session) Submit(ctx context.Context, amount float64) (*bid.Bid, error) {
	s.mu.RLock()
	req := inbound.PlaceBidRequest{
		AuctionID: s.view.AuctionID,
		BidderID:  s.identity.UserID,
		Amount:    amount,
	}
	s.mu.RUnlock()

	placed, err := s.submitter.PlaceBid(ctx, req)
	if err != nil {
		if floor, ok := shared.BidFloor(err); ok {
			s.mu.Lock()
			if floor > s.view.CurrentPrice {
				s.view.CurrentPrice = floor
			}
			s.mu.Unlock()
		}
		return nil, err
	}

	s.mu.Lock()
	if placed.Amount > s.view.CurrentPrice {
		s.view.CurrentPrice = placed.Amount
		s.view.TotalBids++
	}
	s.mu.Unlock()

	return placed, nil
}
