package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"motorline-auction-service/internal/domain/auction"
	"motorline-auction-service/internal/domain/shared"
	"motorline-auction-service/internal/ports/outbound"

	"github.com/google/uuid"
)

// AuctionRepository implements the auction repository interface
type AuctionRepository struct {
	conn *Connection
}

// NewAuctionRepository creates a new auction repository
func NewAuctionRepository(conn *Connection) *AuctionRepository {
	return &AuctionRepository{conn: conn}
}

const auctionColumns = `id, seller_id, title, description, category,
	car_make, car_model, car_year, car_mileage,
	starting_price, reserve_price, buy_now_price, current_price,
	end_time, status, winning_bid_id, created_at, updated_at`

func scanAuction(row interface {
	Scan(dest ...interface{}) error
}) (*auction.Auction, error) {
	var a auction.Auction
	err := row.Scan(
		&a.ID,
		&a.SellerID,
		&a.Title,
		&a.Description,
		&a.Category,
		&a.Car.Make,
		&a.Car.Model,
		&a.Car.Year,
		&a.Car.Mileage,
		&a.StartingPrice,
		&a.ReservePrice,
		&a.BuyNowPrice,
		&a.CurrentPrice,
		&a.EndTime,
		&a.Status,
		&a.WinningBidID,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// Create creates a new auction
func (r *AuctionRepository) Create(ctx context.Context, a *auction.Auction) error {
	query := `
		INSERT INTO auctions (` + auctionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`

	_, err := r.conn.GetDB().ExecContext(ctx, query,
		a.ID,
		a.SellerID,
		a.Title,
		a.Description,
		a.Category,
		a.Car.Make,
		a.Car.Model,
		a.Car.Year,
		a.Car.Mileage,
		a.StartingPrice,
		a.ReservePrice,
		a.BuyNowPrice,
		a.CurrentPrice,
		a.EndTime,
		a.Status,
		a.WinningBidID,
		a.CreatedAt,
		a.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create auction: %w", err)
	}

	return nil
}

// GetByID retrieves an auction by ID
func (r *AuctionRepository) GetByID(ctx context.Context, id uuid.UUID) (*auction.Auction, error) {
	query := `SELECT ` + auctionColumns + ` FROM auctions WHERE id = $1`

	a, err := scanAuction(r.conn.GetDB().QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, shared.ErrAuctionNotFound
		}
		return nil, fmt.Errorf("failed to get auction: %w", err)
	}

	return a, nil
}

// List retrieves a page of auctions matching the filter, newest first
func (r *AuctionRepository) List(ctx context.Context, filter outbound.AuctionFilter) ([]*auction.Auction, error) {
	query := `SELECT ` + auctionColumns + ` FROM auctions`

	var clauses []string
	var args []interface{}

	if filter.Status != nil {
		args = append(args, *filter.Status)
		clauses = append(clauses, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.Category != "" {
		args = append(args, filter.Category)
		clauses = append(clauses, fmt.Sprintf("category = $%d", len(args)))
	}
	if filter.CarModel != "" {
		args = append(args, filter.CarModel)
		clauses = append(clauses, fmt.Sprintf("car_model = $%d", len(args)))
	}

	for i, clause := range clauses {
		if i == 0 {
			query += " WHERE " + clause
		} else {
			query += " AND " + clause
		}
	}

	page := filter.Page
	if page <= 0 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = 10
	}

	args = append(args, pageSize, (page-1)*pageSize)
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.conn.GetDB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list auctions: %w", err)
	}
	defer rows.Close()

	var auctions []*auction.Auction
	for rows.Next() {
		a, err := scanAuction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan auction: %w", err)
		}
		auctions = append(auctions, a)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating auctions: %w", err)
	}

	return auctions, nil
}

// Update persists editable fields of an auction
// Update writes the editable listing fields. Status and winning_bid_id are
// deliberately absent from the SET list: those columns are written only by
// MarkEnded, so an edit racing the ended transition can never revert a
// terminal status.
func (r *AuctionRepository) Update(ctx context.Context, a *auction.Auction) error {
	query := `
		UPDATE auctions
		SET title = $2, description = $3, category = $4,
		    car_make = $5, car_model = $6, car_year = $7, car_mileage = $8,
		    reserve_price = $9, buy_now_price = $10,
		    end_time = $11, updated_at = $12
		WHERE id = $1
	`

	result, err := r.conn.GetDB().ExecContext(ctx, query,
		a.ID,
		a.Title,
		a.Description,
		a.Category,
		a.Car.Make,
		a.Car.Model,
		a.Car.Year,
		a.Car.Mileage,
		a.ReservePrice,
		a.BuyNowPrice,
		a.EndTime,
		a.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to update auction: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return shared.ErrAuctionNotFound
	}

	return nil
}

// MarkEnded transitions an active, expired auction to ended and records the
// winning bid. The auction row is locked for the whole transition so a
// concurrent bid commit on the same auction serializes against it: a bid can
// never land on an auction that has, in the same instant, become ended.
func (r *AuctionRepository) MarkEnded(ctx context.Context, id uuid.UUID, now time.Time) (*shared.EndResult, error) {
	var result *shared.EndResult

	err := r.conn.ExecuteTransaction(func(tx *sql.Tx) error {
		var status string
		var endTime time.Time
		err := tx.QueryRowContext(ctx,
			`SELECT status, end_time FROM auctions WHERE id = $1 FOR UPDATE`,
			id,
		).Scan(&status, &endTime)
		if err != nil {
			if err == sql.ErrNoRows {
				return shared.ErrAuctionNotFound
			}
			return fmt.Errorf("failed to lock auction: %w", err)
		}

		// idempotent: only an active auction past its end time transitions
		if status != string(auction.StatusActive) || now.Before(endTime) {
			return nil
		}

		var winningBidID *uuid.UUID
		var winnerID *uuid.UUID
		var finalPrice *float64

		var bidID, bidderID uuid.UUID
		var amount float64
		err = tx.QueryRowContext(ctx, `
			SELECT id, bidder_id, amount
			FROM bids
			WHERE auction_id = $1
			ORDER BY amount DESC, created_at ASC
			LIMIT 1
		`, id).Scan(&bidID, &bidderID, &amount)
		switch err {
		case nil:
			winningBidID = &bidID
			winnerID = &bidderID
			finalPrice = &amount
		case sql.ErrNoRows:
			// ended with no bids
		default:
			return fmt.Errorf("failed to resolve winning bid: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE auctions
			SET status = $2, winning_bid_id = $3, updated_at = $4
			WHERE id = $1
		`, id, auction.StatusEnded, winningBidID, now)
		if err != nil {
			return fmt.Errorf("failed to mark auction ended: %w", err)
		}

		result = &shared.EndResult{
			AuctionID:    id,
			WinningBidID: winningBidID,
			WinnerID:     winnerID,
			FinalPrice:   finalPrice,
		}
		return nil
	})

	if err != nil {
		return nil, err
	}
	return result, nil
}

// Delete removes an auction that has no bids
func (r *AuctionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.conn.ExecuteTransaction(func(tx *sql.Tx) error {
		var bidCount int
		err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM bids WHERE auction_id = $1`, id,
		).Scan(&bidCount)
		if err != nil {
			return fmt.Errorf("failed to count bids: %w", err)
		}

		if bidCount > 0 {
			return shared.ErrAuctionHasBids
		}

		result, err := tx.ExecContext(ctx, `DELETE FROM auctions WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("failed to delete auction: %w", err)
		}

		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rowsAffected == 0 {
			return shared.ErrAuctionNotFound
		}

		return nil
	})
}

// ForceDelete removes an auction regardless of bids. The winning-bid
// reference is cleared before the bids are deleted so the foreign key from
// auctions into bids never dangles mid-transaction.
func (r *AuctionRepository) ForceDelete(ctx context.Context, id uuid.UUID) error {
	return r.conn.ExecuteTransaction(func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`UPDATE auctions SET winning_bid_id = NULL WHERE id = $1`, id,
		); err != nil {
			return fmt.Errorf("failed to clear winning bid reference: %w", err)
		}

		if _, err := tx.ExecContext(ctx,
			`DELETE FROM bids WHERE auction_id = $1`, id,
		); err != nil {
			return fmt.Errorf("failed to cascade bid deletion: %w", err)
		}

		result, err := tx.ExecContext(ctx, `DELETE FROM auctions WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("failed to delete auction: %w", err)
		}

		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rowsAffected == 0 {
			return shared.ErrAuctionNotFound
		}

		return nil
	})
}
