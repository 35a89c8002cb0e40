package shared

import "github.com/google/uuid"

// EndResult represents the outcome of materializing an auction's ended state
type EndResult struct {
	AuctionID    uuid.UUID
	WinningBidID *uuid.UUID
	WinnerID     *uuid.UUID
	FinalPrice   *float64
}
