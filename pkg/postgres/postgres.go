package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ds124wfegd/WB_L3/6/config"

	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

func NewPostgresDB(cfg *config.DatabaseConfig) (*sql.DB, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"host":   cfg.Host,
		"dbname": cfg.DBName,
	}).Info("Successfully connected to PostgreSQL")
	return db, nil
}

// Migrations is the ordered schema of the ticket pool. Every statement is idempotent.
var Migrations = []string{
	`CREATE SEQUENCE IF NOT EXISTS waitlist_queue_id_seq START 1`,

	`CREATE TABLE IF NOT EXISTS events (
		id BIGSERIAL PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		total_tickets INTEGER NOT NULL CHECK (total_tickets >= 0),
		available_tickets INTEGER NOT NULL,
		last_ticket_number INTEGER NOT NULL DEFAULT 0,
		status VARCHAR(10) NOT NULL DEFAULT 'OPEN',
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		deleted_at TIMESTAMP,
		CONSTRAINT events_available_range CHECK (available_tickets >= 0 AND available_tickets <= total_tickets),
		CONSTRAINT events_status_matches CHECK ((status = 'CLOSED') = (available_tickets = 0))
	)`,

	`CREATE TABLE IF NOT EXISTS bookings (
		id BIGSERIAL PRIMARY KEY,
		event_id BIGINT NOT NULL REFERENCES events(id),
		owner_email VARCHAR(320) NOT NULL,
		ticket_number INTEGER NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		CONSTRAINT bookings_event_owner_key UNIQUE (event_id, owner_email)
	)`,

	`CREATE TABLE IF NOT EXISTS waitlist (
		id BIGSERIAL PRIMARY KEY,
		event_id BIGINT NOT NULL REFERENCES events(id),
		owner_email VARCHAR(320) NOT NULL,
		queue_id BIGINT NOT NULL DEFAULT nextval('waitlist_queue_id_seq'),
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		CONSTRAINT waitlist_event_owner_key UNIQUE (event_id, owner_email),
		CONSTRAINT waitlist_queue_id_key UNIQUE (queue_id)
	)`,

	// Indexes
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_events_name_alive ON events(name) WHERE deleted_at IS NULL`,
	`CREATE INDEX IF NOT EXISTS idx_bookings_event_id ON bookings(event_id)`,
	`CREATE INDEX IF NOT EXISTS idx_bookings_owner_email ON bookings(owner_email)`,
	`CREATE INDEX IF NOT EXISTS idx_waitlist_event_queue ON waitlist(event_id, queue_id)`,
}

func RunMigrations(ctx context.Context, db *sql.DB) error {
	for i, migration := range Migrations {
		if _, err := db.ExecContext(ctx, migration); err != nil {
			return fmt.Errorf("failed to execute migration %d: %w", i, err)
		}
	}

	logrus.WithField("count", len(Migrations)).Info("Database migrations completed successfully")
	return nil
}
