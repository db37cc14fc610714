package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ds124wfegd/WB_L3/6/internal/entity"
)

type eventRepository struct {
	db DBTX
}

func NewEventRepository(db DBTX) EventRepository {
	return &eventRepository{db: db}
}

const eventColumns = `id, name, total_tickets, available_tickets, last_ticket_number, status, created_at, updated_at, deleted_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEvent(row rowScanner) (*entity.Event, error) {
	var (
		event     entity.Event
		deletedAt sql.NullTime
	)
	err := row.Scan(
		&event.ID,
		&event.Name,
		&event.TotalTickets,
		&event.AvailableTickets,
		&event.LastTicketNumber,
		&event.Status,
		&event.CreatedAt,
		&event.UpdatedAt,
		&deletedAt,
	)
	if err != nil {
		return nil, err
	}
	if deletedAt.Valid {
		t := deletedAt.Time
		event.DeletedAt = &t
	}
	return &event, nil
}

func (r *eventRepository) Create(ctx context.Context, event *entity.Event) error {
	query := `
		INSERT INTO events (name, total_tickets, available_tickets, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	now := time.Now().UTC()
	err := r.db.QueryRowContext(ctx, query,
		event.Name,
		event.TotalTickets,
		event.AvailableTickets,
		event.Status,
		now,
		now,
	).Scan(&event.ID)
	if err != nil {
		return fmt.Errorf("failed to create event: %w", mapUniqueViolation(err))
	}

	event.CreatedAt = now
	event.UpdatedAt = now
	return nil
}

// GetByID returns a live (not soft-deleted) event.
func (r *eventRepository) GetByID(ctx context.Context, id int64) (*entity.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1 AND deleted_at IS NULL`

	event, err := scanEvent(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, entity.ErrEventNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	return event, nil
}

func (r *eventRepository) GetByIDUnscoped(ctx context.Context, id int64) (*entity.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1`

	event, err := scanEvent(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, entity.ErrEventNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	return event, nil
}

// GetForUpdate reads a live event and locks its row until the surrounding
// transaction ends. All inventory mutations serialize on this lock.
func (r *eventRepository) GetForUpdate(ctx context.Context, id int64) (*entity.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1 AND deleted_at IS NULL FOR UPDATE`

	event, err := scanEvent(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, entity.ErrEventNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock event: %w", err)
	}
	return event, nil
}

func (r *eventRepository) GetAll(ctx context.Context) ([]*entity.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE deleted_at IS NULL ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get events: %w", err)
	}
	defer rows.Close()

	var events []*entity.Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating events: %w", err)
	}
	return events, nil
}

// TryDecrement takes one ticket and issues the next ticket number in a single
// statement. It fails with ErrTicketsExhausted when nothing is left.
func (r *eventRepository) TryDecrement(ctx context.Context, id int64) (*entity.Decrement, error) {
	query := `
		UPDATE events
		SET available_tickets = available_tickets - 1,
			last_ticket_number = last_ticket_number + 1,
			status = CASE WHEN available_tickets - 1 = 0 THEN 'CLOSED' ELSE 'OPEN' END,
			updated_at = $2
		WHERE id = $1 AND deleted_at IS NULL AND available_tickets > 0
		RETURNING available_tickets, last_ticket_number
	`

	dec := entity.Decrement{EventID: id}
	err := r.db.QueryRowContext(ctx, query, id, time.Now().UTC()).Scan(&dec.NewAvailable, &dec.TicketNumber)
	if errors.Is(err, sql.ErrNoRows) {
		exists, existsErr := r.exists(ctx, id)
		if existsErr != nil {
			return nil, existsErr
		}
		if !exists {
			return nil, entity.ErrEventNotFound
		}
		return nil, entity.ErrTicketsExhausted
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decrement tickets: %w", err)
	}
	return &dec, nil
}

// Increment returns n tickets to the pool, never exceeding total_tickets,
// and reopens the event.
func (r *eventRepository) Increment(ctx context.Context, id int64, n int) (int, error) {
	if n <= 0 {
		return 0, fmt.Errorf("%w: increment must be positive, got %d", entity.ErrInvalidInput, n)
	}

	query := `
		UPDATE events
		SET available_tickets = LEAST(available_tickets + $2, total_tickets),
			status = CASE WHEN LEAST(available_tickets + $2, total_tickets) = 0 THEN 'CLOSED' ELSE 'OPEN' END,
			updated_at = $3
		WHERE id = $1
		RETURNING available_tickets
	`

	var available int
	err := r.db.QueryRowContext(ctx, query, id, n, time.Now().UTC()).Scan(&available)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, entity.ErrEventNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to increment tickets: %w", err)
	}
	return available, nil
}

// Update persists name, totals and status of an event that the caller has locked.
func (r *eventRepository) Update(ctx context.Context, event *entity.Event) error {
	query := `
		UPDATE events
		SET name = $1, total_tickets = $2, available_tickets = $3, status = $4, updated_at = $5
		WHERE id = $6 AND deleted_at IS NULL
	`

	now := time.Now().UTC()
	result, err := r.db.ExecContext(ctx, query,
		event.Name,
		event.TotalTickets,
		event.AvailableTickets,
		event.Status,
		now,
		event.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update event: %w", mapUniqueViolation(err))
	}

	if err := expectAffected(result, entity.ErrEventNotFound); err != nil {
		return err
	}
	event.UpdatedAt = now
	return nil
}

func (r *eventRepository) SoftDelete(ctx context.Context, id int64) error {
	query := `UPDATE events SET deleted_at = $1 WHERE id = $2 AND deleted_at IS NULL`

	result, err := r.db.ExecContext(ctx, query, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}
	return expectAffected(result, entity.ErrEventNotFound)
}

func (r *eventRepository) Restore(ctx context.Context, id int64) error {
	query := `UPDATE events SET deleted_at = NULL WHERE id = $1 AND deleted_at IS NOT NULL`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to restore event: %w", mapUniqueViolation(err))
	}
	return expectAffected(result, entity.ErrEventNotDeleted)
}

func (r *eventRepository) exists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM events WHERE id = $1 AND deleted_at IS NULL)`
	if err := r.db.QueryRowContext(ctx, query, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check event: %w", err)
	}
	return exists, nil
}

// expectAffected returns notFound when the statement touched no rows.
func expectAffected(result sql.Result, notFound error) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return notFound
	}
	return nil
}
