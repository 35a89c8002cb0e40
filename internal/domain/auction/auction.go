package auction

import (
	"time"

	"github.com/google/uuid"
)

// Status represents the current status of an auction
type Status string

const (
	StatusDraft     Status = "draft"
	StatusActive    Status = "active"
	StatusEnded     Status = "ended"
	StatusCancelled Status = "cancelled"
)

// IsTerminal returns true for statuses that never transition again
func (s Status) IsTerminal() bool {
	return s == StatusEnded || s == StatusCancelled
}

// CanTransitionTo reports whether the status is allowed to move to next.
// Status only moves forward: draft -> active -> ended, or -> cancelled
// from any non-terminal state.
func (s Status) CanTransitionTo(next Status) bool {
	switch {
	case s == next:
		return false
	case s.IsTerminal():
		return false
	case next == StatusCancelled:
		return true
	case s == StatusDraft && next == StatusActive:
		return true
	case s == StatusActive && next == StatusEnded:
		return true
	default:
		return false
	}
}

// CarDetails holds optional vehicle metadata attached to an auction listing
type CarDetails struct {
	Make    string `json:"make,omitempty"`
	Model   string `json:"model,omitempty"`
	Year    int    `json:"year,omitempty"`
	Mileage int    `json:"mileage,omitempty"`
}

// Auction represents a timed sale of a vehicle or part
type Auction struct {
	ID            uuid.UUID  `json:"id"`
	SellerID      uuid.UUID  `json:"seller_id"`
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	Category      string     `json:"category"`
	Car           CarDetails `json:"car,omitempty"`
	StartingPrice float64    `json:"starting_price"`
	ReservePrice  *float64   `json:"reserve_price,omitempty"`
	BuyNowPrice   *float64   `json:"buy_now_price,omitempty"`
	CurrentPrice  float64    `json:"current_price"`
	EndTime       time.Time  `json:"end_time"`
	Status        Status     `json:"status"`
	WinningBidID  *uuid.UUID `json:"winning_bid_id,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// IsActive returns true if the auction is currently accepting bids
func (a *Auction) IsActive() bool {
	return a.Status == StatusActive
}

// IsEnded returns true if the auction has ended
func (a *Auction) IsEnded() bool {
	return a.Status == StatusEnded
}

// IsExpired reports whether the auction's end time has passed at now.
// Expiry is a fact about the clock; the ended status transition is applied
// separately when the record is next materialized.
func (a *Auction) IsExpired(now time.Time) bool {
	return !now.Before(a.EndTime)
}

// CanBid returns true if a bid can be placed on this auction at now
func (a *Auction) CanBid(now time.Time) bool {
	return a.Status == StatusActive && !a.IsExpired(now)
}

// Floor returns the amount a new bid must exceed
func (a *Auction) Floor() float64 {
	return a.CurrentPrice
}

// TimeRemaining returns the time left until the auction ends, floored at zero
func (a *Auction) TimeRemaining(now time.Time) time.Duration {
	if a.IsExpired(now) {
		return 0
	}
	return a.EndTime.Sub(now)
}

// UpdateCurrentPrice raises the current price of the auction.
// The price never decreases.
func (a *Auction) UpdateCurrentPrice(newPrice float64, now time.Time) {
	if newPrice > a.CurrentPrice {
		a.CurrentPrice = newPrice
		a.UpdatedAt = now
	}
}

// End marks the auction as ended with the given winning bid, if any
func (a *Auction) End(winningBidID *uuid.UUID, now time.Time) {
	a.Status = StatusEnded
	a.WinningBidID = winningBidID
	a.UpdatedAt = now
}

// Cancel marks the auction as cancelled
func (a *Auction) Cancel(now time.Time) {
	a.Status = StatusCancelled
	a.UpdatedAt = now
}
