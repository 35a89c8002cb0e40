package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"motorline-auction-service/internal/domain/auction"
	"motorline-auction-service/internal/domain/bid"
	"motorline-auction-service/internal/domain/shared"

	"github.com/google/uuid"
)

// BidRepository implements the bid repository interface
type BidRepository struct {
	conn *Connection
}

// NewBidRepository creates a new bid repository
func NewBidRepository(conn *Connection) *BidRepository {
	return &BidRepository{conn: conn}
}

/*
PlaceBid atomically commits a bid:
 1. Lock the auction row (SELECT ... FOR UPDATE)
 2. Re-validate status, expiry and floor against the committed state
 3. Insert the bid
 4. Raise current_price on the auction

The in-transaction re-validation is the load-bearing step: two bidders that
both passed the service-level floor check against the same stale snapshot
serialize on the row lock here, and the second one fails with a conflict
carrying the fresh floor.
*/
func (r *BidRepository) PlaceBid(ctx context.Context, newBid *bid.Bid, now time.Time) error {
	return r.conn.ExecuteTransaction(func(tx *sql.Tx) error {
		var currentPrice float64
		var status string
		var endTime time.Time
		err := tx.QueryRowContext(ctx, `
			SELECT current_price, status, end_time
			FROM auctions
			WHERE id = $1
			FOR UPDATE
		`, newBid.AuctionID).Scan(&currentPrice, &status, &endTime)
		if err != nil {
			if err == sql.ErrNoRows {
				return shared.ErrAuctionNotFound
			}
			return fmt.Errorf("failed to lock auction for bid: %w", err)
		}

		// an auction past its end time is inactive even if the lazy sweep
		// has not persisted the ended status yet
		if status != string(auction.StatusActive) || !now.Before(endTime) {
			return shared.ErrAuctionInactive
		}

		if newBid.Amount <= currentPrice {
			return shared.NewBidConflictError(currentPrice)
		}

		newBid.CreatedAt = now

		_, err = tx.ExecContext(ctx, `
			INSERT INTO bids (id, auction_id, bidder_id, amount, created_at)
			VALUES ($1, $2, $3, $4, $5)
		`,
			newBid.ID,
			newBid.AuctionID,
			newBid.BidderID,
			newBid.Amount,
			newBid.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert bid: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE auctions
			SET current_price = $2, updated_at = $3
			WHERE id = $1
		`, newBid.AuctionID, newBid.Amount, now)
		if err != nil {
			return fmt.Errorf("failed to update auction price: %w", err)
		}

		return nil
	})
}

// GetByID retrieves a bid by ID
func (r *BidRepository) GetByID(ctx context.Context, id uuid.UUID) (*bid.Bid, error) {
	query := `
		SELECT id, auction_id, bidder_id, amount, created_at
		FROM bids
		WHERE id = $1
	`

	var b bid.Bid
	err := r.conn.GetDB().QueryRowContext(ctx, query, id).Scan(
		&b.ID,
		&b.AuctionID,
		&b.BidderID,
		&b.Amount,
		&b.CreatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, shared.ErrNoBidsFound
		}
		return nil, fmt.Errorf("failed to get bid: %w", err)
	}

	return &b, nil
}

// GetByAuctionID retrieves all bids for an auction, highest first
func (r *BidRepository) GetByAuctionID(ctx context.Context, auctionID uuid.UUID) ([]*bid.Bid, error) {
	query := `
		SELECT id, auction_id, bidder_id, amount, created_at
		FROM bids
		WHERE auction_id = $1
		ORDER BY amount DESC, created_at ASC
	`

	rows, err := r.conn.GetDB().QueryContext(ctx, query, auctionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get bids: %w", err)
	}
	defer rows.Close()

	var bids []*bid.Bid
	for rows.Next() {
		var b bid.Bid
		err := rows.Scan(
			&b.ID,
			&b.AuctionID,
			&b.BidderID,
			&b.Amount,
			&b.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bid: %w", err)
		}
		bids = append(bids, &b)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating bids: %w", err)
	}

	return bids, nil
}

// GetHighestBid retrieves the highest bid for an auction, ties broken by
// earliest creation time
func (r *BidRepository) GetHighestBid(ctx context.Context, auctionID uuid.UUID) (*bid.Bid, error) {
	query := `
		SELECT id, auction_id, bidder_id, amount, created_at
		FROM bids
		WHERE auction_id = $1
		ORDER BY amount DESC, created_at ASC
		LIMIT 1
	`

	var b bid.Bid
	err := r.conn.GetDB().QueryRowContext(ctx, query, auctionID).Scan(
		&b.ID,
		&b.AuctionID,
		&b.BidderID,
		&b.Amount,
		&b.CreatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, shared.ErrNoBidsFound
		}
		return nil, fmt.Errorf("failed to get highest bid: %w", err)
	}

	return &b, nil
}

// CountByAuctionID returns the number of bids on an auction
func (r *BidRepository) CountByAuctionID(ctx context.Context, auctionID uuid.UUID) (int, error) {
	var count int
	err := r.conn.GetDB().QueryRowContext(ctx,
		`SELECT COUNT(*) FROM bids WHERE auction_id = $1`, auctionID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count bids: %w", err)
	}
	return count, nil
}
