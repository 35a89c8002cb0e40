package inbound

import (
	"context"
	"time"

	"motorline-auction-service/internal/domain/auction"
	"motorline-auction-service/internal/domain/bid"
	"motorline-auction-service/internal/domain/shared"

	"github.com/google/uuid"
)

// AuctionService defines the interface for auction operations
type AuctionService interface {
	// CreateAuction creates a new auction owned by the caller
	CreateAuction(ctx context.Context, req CreateAuctionRequest) (*auction.Auction, error)

	// GetAuction retrieves the authoritative snapshot of one auction,
	// materializing expiry before returning. viewer may be nil for
	// unauthenticated reads; contact details are then omitted.
	GetAuction(ctx context.Context, auctionID uuid.UUID, viewer *shared.Identity) (*AuctionSnapshot, error)

	// ListAuctions retrieves a page of auction snapshots
	ListAuctions(ctx context.Context, req ListAuctionsRequest, viewer *shared.Identity) ([]*AuctionSnapshot, error)

	// UpdateAuction applies a whitelisted field patch on behalf of the
	// seller or an administrator
	UpdateAuction(ctx context.Context, req UpdateAuctionRequest) (*auction.Auction, error)

	// DeleteAuction removes an auction. Sellers may only delete auctions
	// with zero bids; administrators force-delete with cascade.
	DeleteAuction(ctx context.Context, auctionID uuid.UUID, caller shared.Identity) error
}

// BidService defines the interface for bid operations
type BidService interface {
	// PlaceBid validates and atomically commits a bid
	PlaceBid(ctx context.Context, req PlaceBidRequest) (*bid.Bid, error)

	// GetBids retrieves bids for an auction, highest first
	GetBids(ctx context.Context, auctionID uuid.UUID) ([]*bid.Bid, error)

	// GetHighestBid retrieves the highest bid for an auction
	GetHighestBid(ctx context.Context, auctionID uuid.UUID) (*bid.Bid, error)
}

// request to create an auction
type CreateAuctionRequest struct {
	SellerID      uuid.UUID          `json:"seller_id"`
	Title         string             `json:"title"`
	Description   string             `json:"description"`
	Category      string             `json:"category"`
	Car           auction.CarDetails `json:"car"`
	StartingPrice float64            `json:"starting_price"`
	ReservePrice  *float64           `json:"reserve_price,omitempty"`
	BuyNowPrice   *float64           `json:"buy_now_price,omitempty"`
	Duration      time.Duration      `json:"duration"`
	Draft         bool               `json:"draft"`
}

// request to list auctions
type ListAuctionsRequest struct {
	Status   *auction.Status `json:"status,omitempty"`
	Category string          `json:"category,omitempty"`
	CarModel string          `json:"car_model,omitempty"`
	Page     int             `json:"page"`
	PageSize int             `json:"page_size"`
}

// AuctionPatch carries the whitelisted editable fields; nil fields are left
// untouched
type AuctionPatch struct {
	Title        *string    `json:"title,omitempty"`
	Description  *string    `json:"description,omitempty"`
	Category     *string    `json:"category,omitempty"`
	ReservePrice *float64   `json:"reserve_price,omitempty"`
	BuyNowPrice  *float64   `json:"buy_now_price,omitempty"`
	EndTime      *time.Time `json:"end_time,omitempty"`
}

// request to edit an auction
type UpdateAuctionRequest struct {
	AuctionID uuid.UUID       `json:"auction_id"`
	Caller    shared.Identity `json:"-"`
	Patch     AuctionPatch    `json:"patch"`
}

// request to place a bid
type PlaceBidRequest struct {
	AuctionID uuid.UUID `json:"auction_id"`
	BidderID  uuid.UUID `json:"bidder_id"`
	Amount    float64   `json:"amount"`
}

// UserRef is the public projection of a user inside a snapshot. Contact
// fields are populated only when the viewer is entitled to them.
type UserRef struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Phone    string    `json:"phone,omitempty"`
	WhatsApp string    `json:"whatsapp,omitempty"`
}

// AuctionSnapshot is the authoritative read model served to viewers: the
// auction record plus fields derived at read time.
type AuctionSnapshot struct {
	Auction       *auction.Auction `json:"auction"`
	TimeRemaining int64            `json:"time_remaining"`
	IsExpired     bool             `json:"is_expired"`
	CurrentBid    *bid.Bid         `json:"current_bid,omitempty"`
	HighestBidder *UserRef         `json:"highest_bidder,omitempty"`
	Seller        *UserRef         `json:"seller,omitempty"`
	TotalBids     int              `json:"total_bids"`
	Bids          []*bid.Bid       `json:"bids"`
}
