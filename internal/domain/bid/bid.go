package bid

import (
	"time"

	"github.com/google/uuid"
)

// Bid represents a committed offer on an auction. Bids are immutable once
// created; there are no edits or retractions.
type Bid struct {
	ID        uuid.UUID `json:"id"`
	AuctionID uuid.UUID `json:"auction_id"`
	BidderID  uuid.UUID `json:"bidder_id"`
	Amount    float64   `json:"amount"`
	CreatedAt time.Time `json:"created_at"`
}

// New creates a bid record for an auction. CreatedAt is assigned at commit
// time by the repository, so it is taken as a parameter rather than read from
// the clock here.
func New(auctionID, bidderID uuid.UUID, amount float64, createdAt time.Time) *Bid {
	return &Bid{
		ID:        uuid.New(),
		AuctionID: auctionID,
		BidderID:  bidderID,
		Amount:    amount,
		CreatedAt: createdAt,
	}
}

// IsValid returns true if the bid amount is a positive number
func (b *Bid) IsValid() bool {
	return b.Amount > 0
}

// Beats reports whether this bid outranks other under the auction ordering:
// higher amount wins, ties broken by earliest creation time.
func (b *Bid) Beats(other *Bid) bool {
	if other == nil {
		return true
	}
	if b.Amount != other.Amount {
		return b.Amount > other.Amount
	}
	return b.CreatedAt.Before(other.CreatedAt)
}
