package app

import (
	"context"
	"errors"
	"time"

	"motorline-auction-service/internal/config"
	"motorline-auction-service/internal/domain/auction"
	"motorline-auction-service/internal/domain/bid"
	"motorline-auction-service/internal/domain/shared"
	"motorline-auction-service/internal/ports/inbound"
	"motorline-auction-service/internal/ports/outbound"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// AuctionService implements the auction use cases
type AuctionService struct {
	auctionRepo outbound.AuctionRepository
	bidRepo     outbound.BidRepository
	userRepo    outbound.UserRepository
	lifecycle   *Lifecycle
	cfg         config.AuctionConfig
	logger      zerolog.Logger
}

type AuctionServiceParams struct {
	AuctionRepo outbound.AuctionRepository
	BidRepo     outbound.BidRepository
	UserRepo    outbound.UserRepository
	Lifecycle   *Lifecycle
	Config      config.AuctionConfig
	Logger      zerolog.Logger
}

// NewAuctionService creates a new auction service
func NewAuctionService(params AuctionServiceParams) *AuctionService {
	cfg := params.Config
	if cfg.DefaultPageSize <= 0 {
		cfg.DefaultPageSize = 10
	}
	if cfg.MaxPageSize <= 0 {
		cfg.MaxPageSize = 100
	}
	return &AuctionService{
		auctionRepo: params.AuctionRepo,
		bidRepo:     params.BidRepo,
		userRepo:    params.UserRepo,
		lifecycle:   params.Lifecycle,
		cfg:         cfg,
		logger:      params.Logger.With().Str("component", "auction_service").Logger(),
	}
}

// CreateAuction creates a new auction owned by the caller. The end time is
// fixed at creation as createdAt plus the requested duration.
func (s *AuctionService) CreateAuction(ctx context.Context, req inbound.CreateAuctionRequest) (*auction.Auction, error) {
	s.logger.Info().
		Str("seller_id", req.SellerID.String()).
		Str("title", req.Title).
		Float64("starting_price", req.StartingPrice).
		Dur("duration", req.Duration).
		Msg("Attempting to create auction")

	if req.Duration <= 0 {
		return nil, shared.ErrInvalidDuration
	}
	if req.StartingPrice <= 0 {
		return nil, shared.ErrInvalidStartingPrice
	}
	if req.ReservePrice != nil && *req.ReservePrice < req.StartingPrice {
		return nil, shared.ErrInvalidReservePrice
	}
	if req.Title == "" {
		return nil, shared.ErrInvalidRequest
	}

	seller, err := s.userRepo.GetByID(ctx, req.SellerID)
	if err != nil {
		s.logger.Warn().Err(err).Str("seller_id", req.SellerID.String()).Msg("Seller not found")
		return nil, shared.ErrUserNotFound
	}

	status := auction.StatusActive
	if req.Draft {
		status = auction.StatusDraft
	}

	now := s.lifecycle.Now()
	a := &auction.Auction{
		ID:            uuid.New(),
		SellerID:      seller.ID,
		Title:         req.Title,
		Description:   req.Description,
		Category:      req.Category,
		Car:           req.Car,
		StartingPrice: req.StartingPrice,
		ReservePrice:  req.ReservePrice,
		BuyNowPrice:   req.BuyNowPrice,
		CurrentPrice:  req.StartingPrice,
		EndTime:       now.Add(req.Duration),
		Status:        status,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.auctionRepo.Create(ctx, a); err != nil {
		s.logger.Error().Err(err).Str("auction_id", a.ID.String()).Msg("Failed to save auction")
		return nil, err
	}

	s.logger.Info().
		Str("auction_id", a.ID.String()).
		Time("end_time", a.EndTime).
		Str("status", string(a.Status)).
		Msg("Auction created")

	return a, nil
}

// GetAuction retrieves the authoritative snapshot of one auction,
// materializing expiry first
func (s *AuctionService) GetAuction(ctx context.Context, auctionID uuid.UUID, viewer *shared.Identity) (*inbound.AuctionSnapshot, error) {
	a, err := s.auctionRepo.GetByID(ctx, auctionID)
	if err != nil {
		return nil, err
	}

	a, err = s.lifecycle.Materialize(ctx, a)
	if err != nil {
		return nil, err
	}

	return s.buildSnapshot(ctx, a, viewer)
}

// ListAuctions retrieves a page of auction snapshots. Each listed auction is
// materialized, so an expired auction is already reported as ended on the
// list read that first touches it.
func (s *AuctionService) ListAuctions(ctx context.Context, req inbound.ListAuctionsRequest, viewer *shared.Identity) ([]*inbound.AuctionSnapshot, error) {
	if req.Page <= 0 {
		req.Page = 1
	}
	if req.PageSize <= 0 {
		req.PageSize = s.cfg.DefaultPageSize
	}
	if req.PageSize > s.cfg.MaxPageSize {
		req.PageSize = s.cfg.MaxPageSize
	}

	auctions, err := s.auctionRepo.List(ctx, outbound.AuctionFilter{
		Status:   req.Status,
		Category: req.Category,
		CarModel: req.CarModel,
		Page:     req.Page,
		PageSize: req.PageSize,
	})
	if err != nil {
		return nil, err
	}

	snapshots := make([]*inbound.AuctionSnapshot, 0, len(auctions))
	for _, a := range auctions {
		a, err = s.lifecycle.Materialize(ctx, a)
		if err != nil {
			return nil, err
		}
		snap, err := s.buildSnapshot(ctx, a, viewer)
		if err != nil {
			return nil, err
		}
		snapshots = append(snapshots, snap)
	}

	return snapshots, nil
}

// UpdateAuction applies a whitelisted field patch on behalf of the seller or
// an administrator
func (s *AuctionService) UpdateAuction(ctx context.Context, req inbound.UpdateAuctionRequest) (*auction.Auction, error) {
	a, err := s.auctionRepo.GetByID(ctx, req.AuctionID)
	if err != nil {
		return nil, err
	}

	a, err = s.lifecycle.Materialize(ctx, a)
	if err != nil {
		return nil, err
	}

	isSeller := req.Caller.UserID == a.SellerID
	if !isSeller && !req.Caller.IsAdmin() {
		return nil, shared.ErrNotAuthorized
	}

	// sellers edit only while the auction is live; admins override
	if !req.Caller.IsAdmin() && !a.IsActive() {
		return nil, shared.ErrAuctionInactive
	}

	patch := req.Patch
	if patch.Title != nil {
		a.Title = *patch.Title
	}
	if patch.Description != nil {
		a.Description = *patch.Description
	}
	if patch.Category != nil {
		a.Category = *patch.Category
	}
	if patch.ReservePrice != nil {
		if *patch.ReservePrice < a.StartingPrice {
			return nil, shared.ErrInvalidReservePrice
		}
		a.ReservePrice = patch.ReservePrice
	}
	if patch.BuyNowPrice != nil {
		a.BuyNowPrice = patch.BuyNowPrice
	}
	if patch.EndTime != nil {
		if !patch.EndTime.After(s.lifecycle.Now()) {
			return nil, shared.ErrInvalidEndTime
		}
		a.EndTime = *patch.EndTime
	}
	a.UpdatedAt = s.lifecycle.Now()

	if err := s.auctionRepo.Update(ctx, a); err != nil {
		s.logger.Error().Err(err).Str("auction_id", a.ID.String()).Msg("Failed to update auction")
		return nil, err
	}

	s.logger.Info().
		Str("auction_id", a.ID.String()).
		Str("caller_id", req.Caller.UserID.String()).
		Msg("Auction updated")

	return a, nil
}

// DeleteAuction removes an auction. Sellers may delete only when no bids
// exist; administrators force-delete with bid cascade.
func (s *AuctionService) DeleteAuction(ctx context.Context, auctionID uuid.UUID, caller shared.Identity) error {
	a, err := s.auctionRepo.GetByID(ctx, auctionID)
	if err != nil {
		return err
	}

	if _, err = s.lifecycle.Materialize(ctx, a); err != nil {
		return err
	}

	if caller.IsAdmin() {
		if err := s.auctionRepo.ForceDelete(ctx, auctionID); err != nil {
			return err
		}
		s.logger.Info().
			Str("auction_id", auctionID.String()).
			Str("caller_id", caller.UserID.String()).
			Msg("Auction force-deleted by administrator")
		return nil
	}

	if caller.UserID != a.SellerID {
		return shared.ErrNotAuthorized
	}

	if err := s.auctionRepo.Delete(ctx, auctionID); err != nil {
		return err
	}

	s.logger.Info().
		Str("auction_id", auctionID.String()).
		Str("caller_id", caller.UserID.String()).
		Msg("Auction deleted by seller")
	return nil
}

// buildSnapshot assembles the derived read model for one auction
func (s *AuctionService) buildSnapshot(ctx context.Context, a *auction.Auction, viewer *shared.Identity) (*inbound.AuctionSnapshot, error) {
	bids, err := s.bidRepo.GetByAuctionID(ctx, a.ID)
	if err != nil && !errors.Is(err, shared.ErrNoBidsFound) {
		return nil, err
	}

	now := s.lifecycle.Now()
	snap := &inbound.AuctionSnapshot{
		Auction:       a,
		TimeRemaining: int64(a.TimeRemaining(now).Seconds()),
		IsExpired:     a.IsExpired(now),
		TotalBids:     len(bids),
		Bids:          bids,
	}

	var currentBid *bid.Bid
	if len(bids) > 0 {
		// bids are ordered highest first with the earliest-created winning ties
		currentBid = bids[0]
		snap.CurrentBid = currentBid
	}

	seller, err := s.userRepo.GetByID(ctx, a.SellerID)
	if err != nil {
		return nil, err
	}

	withContacts := s.contactsVisible(a, currentBid, viewer, now)
	snap.Seller = userRef(seller, withContacts)

	if currentBid != nil {
		bidder, err := s.userRepo.GetByID(ctx, currentBid.BidderID)
		if err != nil {
			return nil, err
		}
		snap.HighestBidder = userRef(bidder, withContacts)
	}

	return snap, nil
}

// contactsVisible decides whether the viewer may see phone/whatsapp fields:
// the seller, the current highest bidder and administrators qualify. After
// an auction ends the entitlement persists for the configured retention
// window; zero retention means indefinitely.
func (s *AuctionService) contactsVisible(a *auction.Auction, currentBid *bid.Bid, viewer *shared.Identity, now time.Time) bool {
	if viewer == nil {
		return false
	}
	if viewer.IsAdmin() {
		return true
	}

	entitled := viewer.UserID == a.SellerID ||
		(currentBid != nil && viewer.UserID == currentBid.BidderID)
	if !entitled {
		return false
	}

	if a.IsEnded() && s.cfg.ContactRetention > 0 {
		if now.After(a.UpdatedAt.Add(s.cfg.ContactRetention)) {
			return false
		}
	}

	return true
}

func userRef(u *shared.User, withContacts bool) *inbound.UserRef {
	ref := &inbound.UserRef{
		ID:   u.ID,
		Name: u.Name,
	}
	if withContacts {
		ref.Phone = u.Phone
		ref.WhatsApp = u.WhatsApp
	}
	return ref
}
