package db

import (
	"fmt"
)

// schema migrations applied in order at startup; each statement is
// idempotent so a partially-migrated database converges.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY,
		name TEXT NOT NULL,
		role TEXT NOT NULL DEFAULT 'user',
		phone TEXT NOT NULL DEFAULT '',
		whatsapp TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS auctions (
		id UUID PRIMARY KEY,
		seller_id UUID NOT NULL REFERENCES users(id),
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL DEFAULT '',
		car_make TEXT NOT NULL DEFAULT '',
		car_model TEXT NOT NULL DEFAULT '',
		car_year INT NOT NULL DEFAULT 0,
		car_mileage INT NOT NULL DEFAULT 0,
		starting_price DOUBLE PRECISION NOT NULL,
		reserve_price DOUBLE PRECISION,
		buy_now_price DOUBLE PRECISION,
		current_price DOUBLE PRECISION NOT NULL,
		end_time TIMESTAMPTZ NOT NULL,
		status TEXT NOT NULL,
		winning_bid_id UUID,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS bids (
		id UUID PRIMARY KEY,
		auction_id UUID NOT NULL REFERENCES auctions(id),
		bidder_id UUID NOT NULL REFERENCES users(id),
		amount DOUBLE PRECISION NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_auctions_status ON auctions(status)`,
	`CREATE INDEX IF NOT EXISTS idx_auctions_category ON auctions(category)`,
	`CREATE INDEX IF NOT EXISTS idx_auctions_car_model ON auctions(car_model)`,
	`CREATE INDEX IF NOT EXISTS idx_bids_auction_amount ON bids(auction_id, amount DESC, created_at ASC)`,
}

// RunMigrations applies the schema to the connected database
func (c *Connection) RunMigrations() error {
	for i, stmt := range migrations {
		if _, err := c.db.Exec(stmt); err != nil {
			return fmt.Errorf("migration %d failed: %w", i, err)
		}
	}
	return nil
}
