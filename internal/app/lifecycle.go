package app

import (
	"context"
	"time"

	"motorline-auction-service/internal/adapters/monitoring"
	"motorline-auction-service/internal/domain/auction"
	"motorline-auction-service/internal/domain/shared"
	"motorline-auction-service/internal/pkg/clock"
	"motorline-auction-service/internal/ports/outbound"

	"github.com/rs/zerolog"
)

// Lifecycle lazily materializes the ended state of expired auctions. There
// is no background timer: every read and write path that touches an auction
// runs through Materialize first, so an auction reaches ended before its
// final status is ever reported and before any further bid can land on it.
type Lifecycle struct {
	auctionRepo outbound.AuctionRepository
	broadcaster outbound.Broadcaster
	clock       clock.Clock
	logger      zerolog.Logger
}

type LifecycleParams struct {
	AuctionRepo outbound.AuctionRepository
	Broadcaster outbound.Broadcaster
	Clock       clock.Clock
	Logger      zerolog.Logger
}

// NewLifecycle creates the lazy expiry materializer
func NewLifecycle(params LifecycleParams) *Lifecycle {
	c := params.Clock
	if c == nil {
		c = clock.NewRealClock()
	}
	return &Lifecycle{
		auctionRepo: params.AuctionRepo,
		broadcaster: params.Broadcaster,
		clock:       c,
		logger:      params.Logger.With().Str("component", "lifecycle").Logger(),
	}
}

// Now exposes the materializer's clock so callers derive countdowns from the
// same time source the expiry decision uses
func (l *Lifecycle) Now() time.Time {
	return l.clock.Now()
}

// Materialize applies the ended transition to an active auction whose end
// time has passed and returns the up-to-date record. Idempotent; safe to
// call on every read path.
func (l *Lifecycle) Materialize(ctx context.Context, a *auction.Auction) (*auction.Auction, error) {
	now := l.clock.Now()
	if a.Status != auction.StatusActive || now.Before(a.EndTime) {
		return a, nil
	}

	result, err := l.auctionRepo.MarkEnded(ctx, a.ID, now)
	if err != nil {
		l.logger.Error().Err(err).Str("auction_id", a.ID.String()).Msg("Failed to materialize auction end")
		return nil, err
	}

	if result == nil {
		// another caller applied the transition between our read and the
		// locked re-check; serve the fresh record
		return l.auctionRepo.GetByID(ctx, a.ID)
	}

	a.End(result.WinningBidID, now)
	l.publishEnded(ctx, result)
	monitoring.RecordAuctionEnded()

	l.logger.Info().
		Str("auction_id", a.ID.String()).
		Bool("has_winner", result.WinningBidID != nil).
		Msg("Auction materialized as ended")

	return a, nil
}

// publishEnded broadcasts the lifecycle event after the transition is
// durable. A publish failure never unwinds the transition.
func (l *Lifecycle) publishEnded(ctx context.Context, result *shared.EndResult) {
	if l.broadcaster == nil {
		return
	}

	data := map[string]interface{}{
		"auction_id": result.AuctionID.String(),
		"status":     string(auction.StatusEnded),
	}
	if result.WinningBidID != nil {
		data["winning_bid_id"] = result.WinningBidID.String()
	}
	if result.WinnerID != nil {
		data["winner_id"] = result.WinnerID.String()
	}
	if result.FinalPrice != nil {
		data["final_price"] = *result.FinalPrice
	}

	event := outbound.Event{
		Type:      outbound.EventTypeAuctionEnded,
		AuctionID: result.AuctionID,
		Data:      data,
		Timestamp: l.clock.Now().Unix(),
	}

	if err := l.broadcaster.Publish(ctx, result.AuctionID, event); err != nil {
		l.logger.Error().Err(err).Str("auction_id", result.AuctionID.String()).Msg("Failed to broadcast auction end event")
	}
}
