package outbound

import (
	"context"

	"github.com/google/uuid"
)

// EventType represents the type of event being broadcast
type EventType string

const (
	EventTypeBidAccepted  EventType = "bid.accepted"
	EventTypeAuctionEnded EventType = "auction.ended"
)

// Event represents a broadcast event for one auction. Delivery is
// best-effort and at-most-once; consumers resynchronize from the repository
// whenever they need an authoritative view.
type Event struct {
	Type      EventType              `json:"type"`
	AuctionID uuid.UUID              `json:"auction_id"`
	Data      map[string]interface{} `json:"data"`
	Timestamp int64                  `json:"timestamp"`
}

// Broadcaster defines the per-auction publish/subscribe channel used to fan
// out bid and lifecycle events to connected viewers. The channel carries no
// mutation capability; all writes go through the services.
type Broadcaster interface {
	// Subscribe subscribes a client to events for a specific auction.
	// Events for every auction the client joins are delivered to the same
	// channel.
	Subscribe(ctx context.Context, auctionID uuid.UUID, clientID string, eventChan chan Event) error

	// Unsubscribe removes a client's subscription to an auction. Idempotent.
	Unsubscribe(ctx context.Context, auctionID uuid.UUID, clientID string) error

	// Publish publishes an event to all subscribers of an auction
	Publish(ctx context.Context, auctionID uuid.UUID, event Event) error

	// IsSubscribed checks if a client is subscribed to an auction
	IsSubscribed(ctx context.Context, auctionID uuid.UUID, clientID string) bool

	// Close releases the broadcaster's resources
	Close() error
}
