package database

import (
	"context"
	"fmt"
	"log/slog"
)

func (db *DB) RunMigrations(ctx context.Context) error {
	slog.Info("Running database migrations...")

	migrations := []string{
		createUsersTable,
		createEventsTable,
		createBookingsTable,
		createEventsEndTimeIndex,
		createEventsCreatorIndex,
		createBookingsUserIndex,
		createBookingsEventIndex,
	}

	for i, migration := range migrations {
		slog.Info("Running migration", "step", i+1)
		if _, err := db.ExecContext(ctx, migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	slog.Info("All migrations completed successfully")
	return nil
}

const createUsersTable = `
CREATE TABLE IF NOT EXISTS users (
    id UUID PRIMARY KEY,
    email VARCHAR(255) UNIQUE NOT NULL,
    password_hash VARCHAR(64) NOT NULL,
    name VARCHAR(200) NOT NULL,
    role VARCHAR(20) NOT NULL DEFAULT 'USER',
    is_active BOOLEAN NOT NULL DEFAULT TRUE,
    registered_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),

    CHECK (role IN ('USER', 'ADMIN'))
);`

const createEventsTable = `
CREATE TABLE IF NOT EXISTS events (
    id UUID PRIMARY KEY,
    name VARCHAR(500) NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    start_time TIMESTAMPTZ NOT NULL,
    end_time TIMESTAMPTZ NOT NULL,
    venue VARCHAR(500) NOT NULL DEFAULT '',
    location VARCHAR(500) NOT NULL DEFAULT '',
    price_cents BIGINT NOT NULL DEFAULT 0,
    total_seats INTEGER NOT NULL,
    available_seats INTEGER NOT NULL,
    creator_id UUID NOT NULL REFERENCES users(id),
    archived BOOLEAN NOT NULL DEFAULT FALSE,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),

    CHECK (start_time < end_time),
    CHECK (price_cents >= 0),
    CHECK (total_seats > 0),
    CHECK (available_seats >= 0 AND available_seats <= total_seats)
);`

const createBookingsTable = `
CREATE TABLE IF NOT EXISTS bookings (
    id UUID PRIMARY KEY,
    event_id UUID NOT NULL REFERENCES events(id),
    user_id UUID NOT NULL REFERENCES users(id),
    seats_booked INTEGER NOT NULL,
    status VARCHAR(20) NOT NULL DEFAULT 'PENDING',
    total_price_cents BIGINT NOT NULL DEFAULT 0,
    confirmation_artifact TEXT,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    confirmed_at TIMESTAMPTZ,
    cancelled_at TIMESTAMPTZ,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),

    CHECK (seats_booked > 0),
    CHECK (status IN ('PENDING', 'CONFIRMED', 'CANCELLED'))
);`

const createEventsEndTimeIndex = `
CREATE INDEX IF NOT EXISTS idx_events_active_end_time ON events(end_time) WHERE NOT archived;`

const createEventsCreatorIndex = `
CREATE INDEX IF NOT EXISTS idx_events_creator ON events(creator_id);`

const createBookingsUserIndex = `
CREATE INDEX IF NOT EXISTS idx_bookings_user ON bookings(user_id, created_at DESC);`

const createBookingsEventIndex = `
CREATE INDEX IF NOT EXISTS idx_bookings_event ON bookings(event_id);`
