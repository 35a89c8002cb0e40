package app

import (
	"context"
	"errors"

	"motorline-auction-service/internal/adapters/monitoring"
	"motorline-auction-service/internal/domain/bid"
	"motorline-auction-service/internal/domain/shared"
	"motorline-auction-service/internal/pkg/numeral"
	"motorline-auction-service/internal/ports/inbound"
	"motorline-auction-service/internal/ports/outbound"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// BidService implements the bid placement use cases. It is the only
// mutation path for bids; the live channel observes outcomes but never
// submits them.
type BidService struct {
	bidRepo     outbound.BidRepository
	auctionRepo outbound.AuctionRepository
	userRepo    outbound.UserRepository
	broadcaster outbound.Broadcaster
	lifecycle   *Lifecycle
	logger      zerolog.Logger
}

type BidServiceParams struct {
	BidRepo     outbound.BidRepository
	AuctionRepo outbound.AuctionRepository
	UserRepo    outbound.UserRepository
	Broadcaster outbound.Broadcaster
	Lifecycle   *Lifecycle
	Logger      zerolog.Logger
}

// NewBidService creates a new bid service
func NewBidService(params BidServiceParams) *BidService {
	return &BidService{
		bidRepo:     params.BidRepo,
		auctionRepo: params.AuctionRepo,
		userRepo:    params.UserRepo,
		broadcaster: params.Broadcaster,
		lifecycle:   params.Lifecycle,
		logger:      params.Logger.With().Str("component", "bid_service").Logger(),
	}
}

// PlaceBid validates and atomically commits a bid on an auction.
//
// Preconditions are checked in a fixed order, each with a distinct failure:
// auction exists, auction is effectively active (after lazy expiry), bidder
// exists and is not the seller, amount exceeds the floor. The floor check is
// then repeated inside the commit transaction against the locked row, which
// is what actually upholds the monotonic-price invariant under concurrency.
func (s *BidService) PlaceBid(ctx context.Context, req inbound.PlaceBidRequest) (*bid.Bid, error) {
	s.logger.Info().
		Str("auction_id", req.AuctionID.String()).
		Str("bidder_id", req.BidderID.String()).
		Float64("amount", req.Amount).
		Msg("Attempting to place bid")

	if !numeral.IsValidAmount(req.Amount) {
		s.logger.Warn().Float64("amount", req.Amount).Msg("Invalid bid amount")
		monitoring.RecordBidRejected("invalid_amount")
		return nil, shared.ErrInvalidAmount
	}

	a, err := s.auctionRepo.GetByID(ctx, req.AuctionID)
	if err != nil {
		s.logger.Warn().Err(err).Str("auction_id", req.AuctionID.String()).Msg("Auction not found")
		return nil, shared.ErrAuctionNotFound
	}

	// lazy expiry: a stale-active auction transitions to ended here, before
	// its status is consulted
	a, err = s.lifecycle.Materialize(ctx, a)
	if err != nil {
		return nil, err
	}

	now := s.lifecycle.Now()
	if !a.CanBid(now) {
		s.logger.Warn().
			Str("auction_id", a.ID.String()).
			Str("status", string(a.Status)).
			Msg("Auction not accepting bids")
		monitoring.RecordBidRejected("auction_inactive")
		return nil, shared.ErrAuctionInactive
	}

	bidder, err := s.userRepo.GetByID(ctx, req.BidderID)
	if err != nil {
		s.logger.Warn().Err(err).Str("bidder_id", req.BidderID.String()).Msg("Bidder not found")
		return nil, shared.ErrUserNotFound
	}

	if bidder.ID == a.SellerID {
		s.logger.Warn().
			Str("auction_id", a.ID.String()).
			Str("bidder_id", bidder.ID.String()).
			Msg("Seller attempted to bid on own auction")
		monitoring.RecordBidRejected("self_bid")
		return nil, shared.ErrSelfBid
	}

	if req.Amount <= a.Floor() {
		s.logger.Warn().
			Str("auction_id", a.ID.String()).
			Float64("floor", a.Floor()).
			Float64("amount", req.Amount).
			Msg("Bid amount does not exceed current price")
		monitoring.RecordBidRejected("bid_too_low")
		return nil, shared.NewBidTooLowError(a.Floor())
	}

	newBid := bid.New(req.AuctionID, bidder.ID, req.Amount, now)

	// the repository re-validates the floor against the locked auction row;
	// losing that race surfaces as a conflict with the fresh floor
	if err := s.bidRepo.PlaceBid(ctx, newBid, now); err != nil {
		s.logger.Warn().Err(err).
			Str("auction_id", a.ID.String()).
			Str("bid_id", newBid.ID.String()).
			Msg("Bid commit rejected")
		if errors.Is(err, shared.ErrBidConflict) {
			monitoring.RecordBidConflict()
		} else {
			monitoring.RecordBidRejected("commit_failed")
		}
		return nil, err
	}
	monitoring.RecordBidAccepted()

	// publish after, never inside, the transaction: a publish failure must
	// not unwind a committed bid
	s.publishAccepted(ctx, newBid)

	s.logger.Info().
		Str("bid_id", newBid.ID.String()).
		Str("auction_id", newBid.AuctionID.String()).
		Str("bidder_id", newBid.BidderID.String()).
		Float64("amount", newBid.Amount).
		Msg("Bid placed")

	return newBid, nil
}

func (s *BidService) publishAccepted(ctx context.Context, b *bid.Bid) {
	if s.broadcaster == nil {
		return
	}

	event := outbound.Event{
		Type:      outbound.EventTypeBidAccepted,
		AuctionID: b.AuctionID,
		Data: map[string]interface{}{
			"bid_id":            b.ID.String(),
			"bidder_id":         b.BidderID.String(),
			"amount":            b.Amount,
			"new_current_price": b.Amount,
		},
		Timestamp: b.CreatedAt.Unix(),
	}

	if err := s.broadcaster.Publish(ctx, b.AuctionID, event); err != nil {
		s.logger.Error().Err(err).Str("bid_id", b.ID.String()).Msg("Failed to broadcast bid event")
	}
}

// GetBids retrieves bids for an auction, highest first. Like every read
// path it materializes expiry first, so listing bids on a stale-active
// auction durably ends it.
func (s *BidService) GetBids(ctx context.Context, auctionID uuid.UUID) ([]*bid.Bid, error) {
	if err := s.materialize(ctx, auctionID); err != nil {
		return nil, err
	}
	return s.bidRepo.GetByAuctionID(ctx, auctionID)
}

// GetHighestBid retrieves the highest bid for an auction
func (s *BidService) GetHighestBid(ctx context.Context, auctionID uuid.UUID) (*bid.Bid, error) {
	if err := s.materialize(ctx, auctionID); err != nil {
		return nil, err
	}
	return s.bidRepo.GetHighestBid(ctx, auctionID)
}

func (s *BidService) materialize(ctx context.Context, auctionID uuid.UUID) error {
	a, err := s.auctionRepo.GetByID(ctx, auctionID)
	if err != nil {
		return shared.ErrAuctionNotFound
	}
	_, err = s.lifecycle.Materialize(ctx, a)
	return err
}
