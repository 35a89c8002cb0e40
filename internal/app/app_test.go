package app

import (
	"context"
	"sync"
	"time"

	"motorline-auction-service/internal/adapters/memdb"
	"motorline-auction-service/internal/config"
	"motorline-auction-service/internal/domain/auction"
	"motorline-auction-service/internal/domain/shared"
	"motorline-auction-service/internal/pkg/clock"
	"motorline-auction-service/internal/ports/outbound"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// captureBroadcaster records published events for assertions
type captureBroadcaster struct {
	mu     sync.Mutex
	events []outbound.Event
}

func (c *captureBroadcaster) Subscribe(ctx context.Context, auctionID uuid.UUID, clientID string, eventChan chan outbound.Event) error {
	return nil
}

func (c *captureBroadcaster) Unsubscribe(ctx context.Context, auctionID uuid.UUID, clientID string) error {
	return nil
}

func (c *captureBroadcaster) Publish(ctx context.Context, auctionID uuid.UUID, event outbound.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
	return nil
}

func (c *captureBroadcaster) IsSubscribed(ctx context.Context, auctionID uuid.UUID, clientID string) bool {
	return false
}

func (c *captureBroadcaster) Close() error { return nil }

func (c *captureBroadcaster) published() []outbound.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]outbound.Event, len(c.events))
	copy(out, c.events)
	return out
}

// fixture wires the services against the in-memory store with a frozen clock
type fixture struct {
	store       *memdb.Store
	clock       *clock.MockClock
	broadcaster *captureBroadcaster
	lifecycle   *Lifecycle
	auctions    *AuctionService
	bids        *BidService

	seller *shared.User
	bidder *shared.User
	rival  *shared.User
}

var testStart = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newFixture() *fixture {
	store := memdb.NewStore()
	mockClock := clock.NewMockClock(testStart)
	capture := &captureBroadcaster{}
	logger := zerolog.Nop()

	lifecycle := NewLifecycle(LifecycleParams{
		AuctionRepo: store.AuctionRepository(),
		Broadcaster: capture,
		Clock:       mockClock,
		Logger:      logger,
	})

	f := &fixture{
		store:       store,
		clock:       mockClock,
		broadcaster: capture,
		lifecycle:   lifecycle,
		auctions: NewAuctionService(AuctionServiceParams{
			AuctionRepo: store.AuctionRepository(),
			BidRepo:     store.BidRepository(),
			UserRepo:    store.UserRepository(),
			Lifecycle:   lifecycle,
			Config:      config.AuctionConfig{DefaultPageSize: 10, MaxPageSize: 100},
			Logger:      logger,
		}),
		bids: NewBidService(BidServiceParams{
			BidRepo:     store.BidRepository(),
			AuctionRepo: store.AuctionRepository(),
			UserRepo:    store.UserRepository(),
			Broadcaster: capture,
			Lifecycle:   lifecycle,
			Logger:      logger,
		}),
	}

	f.seller = f.addUser("Layla", shared.RoleUser)
	f.bidder = f.addUser("Omar", shared.RoleUser)
	f.rival = f.addUser("Sami", shared.RoleUser)
	return f
}

func (f *fixture) addUser(name string, role shared.Role) *shared.User {
	u := &shared.User{
		ID:       uuid.New(),
		Name:     name,
		Role:     role,
		Phone:    "+96170000000",
		WhatsApp: "+96170000000",
	}
	_ = f.store.UserRepository().Create(context.Background(), u)
	return u
}

// addAuction seeds an active auction ending one hour from the frozen clock
func (f *fixture) addAuction(startingPrice float64) *auction.Auction {
	now := f.clock.Now()
	a := &auction.Auction{
		ID:            uuid.New(),
		SellerID:      f.seller.ID,
		Title:         "2019 Toyota Land Cruiser",
		Category:      "suv",
		Car:           auction.CarDetails{Make: "Toyota", Model: "Land Cruiser", Year: 2019, Mileage: 85000},
		StartingPrice: startingPrice,
		CurrentPrice:  startingPrice,
		EndTime:       now.Add(time.Hour),
		Status:        auction.StatusActive,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	_ = f.store.AuctionRepository().Create(context.Background(), a)
	return a
}

func (f *fixture) identity(u *shared.User) *shared.Identity {
	return &shared.Identity{UserID: u.ID, Role: u.Role}
}
