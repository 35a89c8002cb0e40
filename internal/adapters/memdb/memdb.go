// Package memdb provides concurrency-safe in-memory implementations of the
// repository ports. They back unit tests and the storage-free development
// mode; the postgres adapter remains the production authority.
package memdb

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"motorline-auction-service/internal/domain/auction"
	"motorline-auction-service/internal/domain/bid"
	"motorline-auction-service/internal/domain/shared"
	"motorline-auction-service/internal/ports/outbound"

	"github.com/google/uuid"
)

// Store holds all in-memory state behind one mutex so the bid commit path
// gets the same read-check-write atomicity the postgres adapter gets from
// its row lock.
type Store struct {
	mu       sync.RWMutex
	auctions map[uuid.UUID]*auction.Auction
	bids     map[uuid.UUID][]*bid.Bid // auctionID -> bids in commit order
	users    map[uuid.UUID]*shared.User
}

// NewStore creates an empty in-memory store
func NewStore() *Store {
	return &Store{
		auctions: make(map[uuid.UUID]*auction.Auction),
		bids:     make(map[uuid.UUID][]*bid.Bid),
		users:    make(map[uuid.UUID]*shared.User),
	}
}

// AuctionRepository returns the auction repository view of the store
func (s *Store) AuctionRepository() outbound.AuctionRepository { return (*AuctionRepo)(s) }

// BidRepository returns the bid repository view of the store
func (s *Store) BidRepository() outbound.BidRepository { return (*BidRepo)(s) }

// UserRepository returns the user repository view of the store
func (s *Store) UserRepository() outbound.UserRepository { return (*UserRepo)(s) }

func cloneAuction(a *auction.Auction) *auction.Auction {
	c := *a
	return &c
}

func cloneBid(b *bid.Bid) *bid.Bid {
	c := *b
	return &c
}

// highestLocked returns the winning bid under the auction ordering; caller
// holds the lock.
func (s *Store) highestLocked(auctionID uuid.UUID) *bid.Bid {
	var best *bid.Bid
	for _, b := range s.bids[auctionID] {
		if b.Beats(best) {
			best = b
		}
	}
	return best
}

// AuctionRepo implements outbound.AuctionRepository on the shared store
type AuctionRepo Store

func (r *AuctionRepo) store() *Store { return (*Store)(r) }

func (r *AuctionRepo) Create(ctx context.Context, a *auction.Auction) error {
	s := r.store()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.auctions[a.ID] = cloneAuction(a)
	return nil
}

func (r *AuctionRepo) GetByID(ctx context.Context, id uuid.UUID) (*auction.Auction, error) {
	s := r.store()
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.auctions[id]
	if !ok {
		return nil, shared.ErrAuctionNotFound
	}
	return cloneAuction(a), nil
}

func (r *AuctionRepo) List(ctx context.Context, filter outbound.AuctionFilter) ([]*auction.Auction, error) {
	s := r.store()
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*auction.Auction
	for _, a := range s.auctions {
		if filter.Status != nil && a.Status != *filter.Status {
			continue
		}
		if filter.Category != "" && !strings.EqualFold(a.Category, filter.Category) {
			continue
		}
		if filter.CarModel != "" && !strings.EqualFold(a.Car.Model, filter.CarModel) {
			continue
		}
		matched = append(matched, cloneAuction(a))
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	page := filter.Page
	if page <= 0 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = 10
	}

	start := (page - 1) * pageSize
	if start >= len(matched) {
		return nil, nil
	}
	end := start + pageSize
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], nil
}

func (r *AuctionRepo) Update(ctx context.Context, a *auction.Auction) error {
	s := r.store()
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.auctions[a.ID]
	if !ok {
		return shared.ErrAuctionNotFound
	}
	updated := cloneAuction(a)
	// Status and the winning bid are owned by MarkEnded, the price counters
	// by the bid commit path. An edit carrying a stale snapshot must not
	// roll back a terminal transition or an accepted bid.
	updated.Status = stored.Status
	updated.WinningBidID = stored.WinningBidID
	updated.CurrentPrice = stored.CurrentPrice
	s.auctions[a.ID] = updated
	return nil
}

func (r *AuctionRepo) MarkEnded(ctx context.Context, id uuid.UUID, now time.Time) (*shared.EndResult, error) {
	s := r.store()
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.auctions[id]
	if !ok {
		return nil, shared.ErrAuctionNotFound
	}

	if a.Status != auction.StatusActive || now.Before(a.EndTime) {
		return nil, nil
	}

	result := &shared.EndResult{AuctionID: id}
	if winner := s.highestLocked(id); winner != nil {
		result.WinningBidID = &winner.ID
		result.WinnerID = &winner.BidderID
		result.FinalPrice = &winner.Amount
		a.End(&winner.ID, now)
	} else {
		a.End(nil, now)
	}

	return result, nil
}

func (r *AuctionRepo) Delete(ctx context.Context, id uuid.UUID) error {
	s := r.store()
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.auctions[id]; !ok {
		return shared.ErrAuctionNotFound
	}
	if len(s.bids[id]) > 0 {
		return shared.ErrAuctionHasBids
	}
	delete(s.auctions, id)
	return nil
}

func (r *AuctionRepo) ForceDelete(ctx context.Context, id uuid.UUID) error {
	s := r.store()
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.auctions[id]; !ok {
		return shared.ErrAuctionNotFound
	}
	delete(s.bids, id)
	delete(s.auctions, id)
	return nil
}

// BidRepo implements outbound.BidRepository on the shared store
type BidRepo Store

func (r *BidRepo) store() *Store { return (*Store)(r) }

func (r *BidRepo) PlaceBid(ctx context.Context, newBid *bid.Bid, now time.Time) error {
	s := r.store()
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.auctions[newBid.AuctionID]
	if !ok {
		return shared.ErrAuctionNotFound
	}

	if a.Status != auction.StatusActive || !now.Before(a.EndTime) {
		return shared.ErrAuctionInactive
	}

	if newBid.Amount <= a.CurrentPrice {
		return shared.NewBidConflictError(a.CurrentPrice)
	}

	newBid.CreatedAt = now
	s.bids[newBid.AuctionID] = append(s.bids[newBid.AuctionID], cloneBid(newBid))
	a.UpdateCurrentPrice(newBid.Amount, now)
	return nil
}

func (r *BidRepo) GetByID(ctx context.Context, id uuid.UUID) (*bid.Bid, error) {
	s := r.store()
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, bids := range s.bids {
		for _, b := range bids {
			if b.ID == id {
				return cloneBid(b), nil
			}
		}
	}
	return nil, shared.ErrNoBidsFound
}

func (r *BidRepo) GetByAuctionID(ctx context.Context, auctionID uuid.UUID) ([]*bid.Bid, error) {
	s := r.store()
	s.mu.RLock()
	defer s.mu.RUnlock()

	bids := make([]*bid.Bid, 0, len(s.bids[auctionID]))
	for _, b := range s.bids[auctionID] {
		bids = append(bids, cloneBid(b))
	}

	sort.Slice(bids, func(i, j int) bool {
		return bids[i].Beats(bids[j])
	})
	return bids, nil
}

func (r *BidRepo) GetHighestBid(ctx context.Context, auctionID uuid.UUID) (*bid.Bid, error) {
	s := r.store()
	s.mu.RLock()
	defer s.mu.RUnlock()

	best := s.highestLocked(auctionID)
	if best == nil {
		return nil, shared.ErrNoBidsFound
	}
	return cloneBid(best), nil
}

func (r *BidRepo) CountByAuctionID(ctx context.Context, auctionID uuid.UUID) (int, error) {
	s := r.store()
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.bids[auctionID]), nil
}

// UserRepo implements outbound.UserRepository on the shared store
type UserRepo Store

func (r *UserRepo) store() *Store { return (*Store)(r) }

func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*shared.User, error) {
	s := r.store()
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, shared.ErrUserNotFound
	}
	c := *u
	return &c, nil
}

func (r *UserRepo) Create(ctx context.Context, user *shared.User) error {
	s := r.store()
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *user
	s.users[user.ID] = &c
	return nil
}
