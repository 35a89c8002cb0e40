package broadcaster

import (
	"context"
	"sync"
	"time"

	"motorline-auction-service/internal/ports/outbound"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// LocalBroadcaster implements the live notification hub in process memory.
// Single-node deployments and tests use it instead of Redis; the delivery
// semantics are identical (best-effort, at-most-once, drop on slow consumer).
type LocalBroadcaster struct {
	mu          sync.RWMutex
	subscribers map[string]chan outbound.Event // clientID -> local channel
	auctions    map[string]map[string]bool     // auctionID -> clientID -> subscribed
	closed      bool
	logger      zerolog.Logger
}

func NewLocalBroadcaster(logger zerolog.Logger) *LocalBroadcaster {
	return &LocalBroadcaster{
		subscribers: make(map[string]chan outbound.Event),
		auctions:    make(map[string]map[string]bool),
		logger:      logger.With().Str("component", "local_broadcaster").Logger(),
	}
}

// Subscribe subscribes a client to events for a specific auction
func (l *LocalBroadcaster) Subscribe(ctx context.Context, auctionID uuid.UUID, clientID string, eventChan chan outbound.Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}

	if l.subscribers[clientID] == nil {
		l.subscribers[clientID] = eventChan
	}

	key := auctionID.String()
	if l.auctions[key] == nil {
		l.auctions[key] = make(map[string]bool)
	}
	l.auctions[key][clientID] = true

	l.logger.Debug().
		Str("client_id", clientID).
		Str("auction_id", key).
		Msg("Client joined auction channel")
	return nil
}

// Unsubscribe removes a client's subscription to an auction. Idempotent.
// The event channel belongs to the caller and stays open; a client that
// leaves one auction can reuse it to join another.
func (l *LocalBroadcaster) Unsubscribe(ctx context.Context, auctionID uuid.UUID, clientID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := auctionID.String()
	if clients, ok := l.auctions[key]; ok {
		delete(clients, clientID)
		if len(clients) == 0 {
			delete(l.auctions, key)
		}
	}

	// forget the channel once the client observes nothing at all
	if !l.subscribedToAnyLocked(clientID) {
		delete(l.subscribers, clientID)
	}

	return nil
}

func (l *LocalBroadcaster) subscribedToAnyLocked(clientID string) bool {
	for _, clients := range l.auctions {
		if clients[clientID] {
			return true
		}
	}
	return false
}

// Publish delivers an event to every subscriber of the auction
func (l *LocalBroadcaster) Publish(ctx context.Context, auctionID uuid.UUID, event outbound.Event) error {
	if event.Timestamp == 0 {
		event.Timestamp = time.Now().Unix()
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	for clientID := range l.auctions[auctionID.String()] {
		eventChan, ok := l.subscribers[clientID]
		if !ok {
			continue
		}
		select {
		case eventChan <- event:
		default:
			l.logger.Warn().Str("client_id", clientID).Msg("Local channel full, dropping event")
		}
	}

	return nil
}

// IsSubscribed checks if a client is subscribed to an auction
func (l *LocalBroadcaster) IsSubscribed(ctx context.Context, auctionID uuid.UUID, clientID string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()

	clients, ok := l.auctions[auctionID.String()]
	return ok && clients[clientID]
}

// Close shuts the hub down and forgets every subscription. Subscriber
// channels are owned by their callers and are left open.
func (l *LocalBroadcaster) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}
	l.closed = true

	l.subscribers = make(map[string]chan outbound.Event)
	l.auctions = make(map[string]map[string]bool)

	return nil
}
