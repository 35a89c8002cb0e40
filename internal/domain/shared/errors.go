package shared

import (
	"errors"
	"fmt"
)

// Domain-specific errors
var (
	// Auction errors
	ErrAuctionNotFound      = errors.New("auction not found")
	ErrAuctionInactive      = errors.New("auction is not accepting bids")
	ErrAuctionHasBids       = errors.New("auction with bids cannot be deleted")
	ErrInvalidDuration      = errors.New("auction duration must be positive")
	ErrInvalidStartingPrice = errors.New("starting price must be greater than 0")
	ErrInvalidReservePrice  = errors.New("reserve price must not be below starting price")
	ErrInvalidEndTime       = errors.New("end time must be in the future")

	// Bid errors
	ErrBidTooLow     = errors.New("bid amount must exceed the current price")
	ErrBidConflict   = errors.New("a higher bid was committed concurrently")
	ErrInvalidAmount = errors.New("bid amount must be a positive number")
	ErrSelfBid       = errors.New("sellers cannot bid on their own auction")
	ErrNoBidsFound   = errors.New("no bids found")

	// User / authorization errors
	ErrUserNotFound  = errors.New("user not found")
	ErrNotAuthorized = errors.New("caller is not allowed to perform this action")

	// Validation errors
	ErrInvalidRequest = errors.New("invalid request")

	// Database errors
	ErrDatabaseQuery       = errors.New("database query failed")
	ErrDatabaseTransaction = errors.New("database transaction failed")

	// Live channel errors
	ErrObserveOnlyChannel = errors.New("bids must be submitted through the HTTP API, the live channel is observe-only")
	ErrUserNotSubscribed  = errors.New("user not subscribed to auction")

	// Live channel message validation errors
	ErrMessageTypeRequired = errors.New("message type is required")
	ErrAuctionIDRequired   = errors.New("auction_id is required")
	ErrUnknownMessageType  = errors.New("unknown message type")
)

// FloorError wraps a bid rejection with the floor the bid had to exceed, so
// the caller can retry with a correct amount. Unwraps to ErrBidTooLow or
// ErrBidConflict.
type FloorError struct {
	Reason error
	Floor  float64
}

func (e *FloorError) Error() string {
	return fmt.Sprintf("%s (current price is %.2f)", e.Reason, e.Floor)
}

func (e *FloorError) Unwrap() error {
	return e.Reason
}

// NewBidTooLowError builds the rejection for a bid not exceeding the floor
func NewBidTooLowError(floor float64) error {
	return &FloorError{Reason: ErrBidTooLow, Floor: floor}
}

// NewBidConflictError builds the rejection for a bid that lost the
// in-transaction re-validation against a fresher committed bid
func NewBidConflictError(floor float64) error {
	return &FloorError{Reason: ErrBidConflict, Floor: floor}
}

// BidFloor extracts the floor from a bid rejection, if the error carries one
func BidFloor(err error) (float64, bool) {
	var fe *FloorError
	if errors.As(err, &fe) {
		return fe.Floor, true
	}
	return 0, false
}
