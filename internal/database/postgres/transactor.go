package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ds124wfegd/WB_L3/6/internal/entity"
	"github.com/lib/pq"
)

type transactor struct {
	db *sql.DB
}

func NewTransactor(db *sql.DB) Transactor {
	return &transactor{db: db}
}

func (t *transactor) WithinTx(ctx context.Context, fn func(ctx context.Context, repos *Repositories) error) error {
	// Read committed is enough: every mutation path locks the event row first.
	tx, err := t.db.BeginTx(ctx, &sql.TxOptions{
		Isolation: sql.LevelReadCommitted,
	})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(ctx, NewRepositories(tx)); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

const uniqueViolation = "23505"

// Constraint names from pkg/postgres migrations.
var uniqueConstraints = map[string]error{
	"bookings_event_owner_key": entity.ErrAlreadyBooked,
	"waitlist_event_owner_key": entity.ErrAlreadyWaitlisted,
	"idx_events_name_alive":    entity.ErrEventNameTaken,
}

// mapUniqueViolation translates a unique constraint violation into a conflict error.
// Other errors are returned unchanged.
func mapUniqueViolation(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != uniqueViolation {
		return err
	}
	if mapped, ok := uniqueConstraints[pqErr.Constraint]; ok {
		return mapped
	}
	return fmt.Errorf("%w: %s", entity.ErrConflict, pqErr.Message)
}
