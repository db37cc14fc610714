package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ds124wfegd/WB_L3/6/internal/entity"
)

type waitlistRepository struct {
	db DBTX
}

func NewWaitlistRepository(db DBTX) WaitlistRepository {
	return &waitlistRepository{db: db}
}

// Enqueue appends the owner to the event's waitlist. queue_id is drawn from
// waitlist_queue_id_seq and is never reused.
func (r *waitlistRepository) Enqueue(ctx context.Context, eventID int64, owner string) (*entity.WaitlistEntry, error) {
	query := `
		INSERT INTO waitlist (event_id, owner_email, queue_id, created_at)
		VALUES ($1, $2, nextval('waitlist_queue_id_seq'), $3)
		RETURNING id, queue_id
	`

	entry := &entity.WaitlistEntry{
		EventID:    eventID,
		OwnerEmail: normalizeEmail(owner),
		CreatedAt:  time.Now().UTC(),
	}

	err := r.db.QueryRowContext(ctx, query, entry.EventID, entry.OwnerEmail, entry.CreatedAt).
		Scan(&entry.ID, &entry.QueueID)
	if err != nil {
		return nil, fmt.Errorf("failed to add to waitlist: %w", mapUniqueViolation(err))
	}

	return entry, nil
}

func (r *waitlistRepository) GetByID(ctx context.Context, id int64) (*entity.WaitlistEntry, error) {
	query := `
		SELECT id, event_id, owner_email, queue_id, created_at
		FROM waitlist
		WHERE id = $1
	`

	var entry entity.WaitlistEntry
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&entry.ID,
		&entry.EventID,
		&entry.OwnerEmail,
		&entry.QueueID,
		&entry.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, entity.ErrWaitlistEntryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get waitlist entry: %w", err)
	}
	return &entry, nil
}

func (r *waitlistRepository) ExistsForOwner(ctx context.Context, eventID int64, owner string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM waitlist WHERE event_id = $1 AND owner_email = $2)`

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, eventID, normalizeEmail(owner)).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check waitlist: %w", err)
	}
	return exists, nil
}

func (r *waitlistRepository) Remove(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM waitlist WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete waitlist entry: %w", err)
	}
	return expectAffected(result, entity.ErrWaitlistEntryNotFound)
}

// ListByEvent returns the waitlist in promotion order.
func (r *waitlistRepository) ListByEvent(ctx context.Context, eventID int64) ([]*entity.WaitlistEntry, error) {
	query := `
		SELECT id, event_id, owner_email, queue_id, created_at
		FROM waitlist
		WHERE event_id = $1
		ORDER BY queue_id ASC
	`

	rows, err := r.db.QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to query waitlist: %w", err)
	}
	defer rows.Close()

	var entries []*entity.WaitlistEntry
	for rows.Next() {
		var entry entity.WaitlistEntry
		if err := rows.Scan(
			&entry.ID,
			&entry.EventID,
			&entry.OwnerEmail,
			&entry.QueueID,
			&entry.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan waitlist entry: %w", err)
		}
		entries = append(entries, &entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating waitlist: %w", err)
	}
	return entries, nil
}

func (r *waitlistRepository) CountByEvent(ctx context.Context, eventID int64) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM waitlist WHERE event_id = $1`, eventID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count waitlist: %w", err)
	}
	return count, nil
}

// EventsWithWaitlist lists live events that have at least one waiting owner.
func (r *waitlistRepository) EventsWithWaitlist(ctx context.Context) ([]int64, error) {
	query := `
		SELECT DISTINCT w.event_id
		FROM waitlist w
		JOIN events e ON e.id = w.event_id
		WHERE e.deleted_at IS NULL
		ORDER BY w.event_id
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query waitlisted events: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan event id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating waitlisted events: %w", err)
	}
	return ids, nil
}
