package outbound

import (
	"context"
	"time"

	"motorline-auction-service/internal/domain/auction"
	"motorline-auction-service/internal/domain/bid"
	"motorline-auction-service/internal/domain/shared"

	"github.com/google/uuid"
)

// AuctionFilter narrows List results. Nil/zero fields are ignored.
type AuctionFilter struct {
	Status   *auction.Status
	Category string
	CarModel string
	Page     int
	PageSize int
}

// AuctionRepository defines the interface for auction data operations.
// The repository is the single source of truth; current_price and status
// are written only through PlaceBid and MarkEnded respectively.
type AuctionRepository interface {
	// Create creates a new auction
	Create(ctx context.Context, auction *auction.Auction) error

	// GetByID retrieves an auction by ID
	GetByID(ctx context.Context, id uuid.UUID) (*auction.Auction, error)

	// List retrieves a page of auctions matching the filter, newest first
	List(ctx context.Context, filter AuctionFilter) ([]*auction.Auction, error)

	// Update persists editable fields of an auction
	Update(ctx context.Context, auction *auction.Auction) error

	// MarkEnded transitions an active, expired auction to ended and records
	// the winning bid, all in one transaction with the auction row locked.
	// Returns the end result when the transition was applied by this call,
	// or nil when the auction was already terminal or not yet expired.
	MarkEnded(ctx context.Context, id uuid.UUID, now time.Time) (*shared.EndResult, error)

	// Delete removes an auction that has no bids
	Delete(ctx context.Context, id uuid.UUID) error

	// ForceDelete removes an auction regardless of bids, clearing the
	// winning-bid reference and cascading bid deletion first
	ForceDelete(ctx context.Context, id uuid.UUID) error
}

// BidRepository defines the interface for bid data operations
type BidRepository interface {
	// PlaceBid atomically commits a bid: locks the auction row, re-validates
	// status, expiry and floor against the committed state, inserts the bid
	// and raises current_price. The returned error distinguishes a stale
	// floor (shared.ErrBidConflict) from the ordinary precondition failures.
	PlaceBid(ctx context.Context, newBid *bid.Bid, now time.Time) error

	// GetByID retrieves a bid by ID
	GetByID(ctx context.Context, id uuid.UUID) (*bid.Bid, error)

	// GetByAuctionID retrieves all bids for an auction, highest first
	GetByAuctionID(ctx context.Context, auctionID uuid.UUID) ([]*bid.Bid, error)

	// GetHighestBid retrieves the highest bid for an auction, ties broken by
	// earliest creation time. Returns shared.ErrNoBidsFound when none exist.
	GetHighestBid(ctx context.Context, auctionID uuid.UUID) (*bid.Bid, error)

	// CountByAuctionID returns the number of bids on an auction
	CountByAuctionID(ctx context.Context, auctionID uuid.UUID) (int, error)
}

// UserRepository defines the interface for user data operations
type UserRepository interface {
	// GetByID retrieves a user by ID
	GetByID(ctx context.Context, id uuid.UUID) (*shared.User, error)

	// Create creates a new user (seed and test helper)
	Create(ctx context.Context, user *shared.User) error
}
