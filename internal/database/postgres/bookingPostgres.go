package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ds124wfegd/WB_L3/6/internal/entity"
)

type bookingRepository struct {
	db DBTX
}

func NewBookingRepository(db DBTX) BookingRepository {
	return &bookingRepository{db: db}
}

// Insert records a confirmed ticket. A second booking for the same
// (event, owner) fails with entity.ErrAlreadyBooked.
func (r *bookingRepository) Insert(ctx context.Context, eventID int64, owner string, ticketNumber int) (*entity.Booking, error) {
	query := `
		INSERT INTO bookings (event_id, owner_email, ticket_number, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`

	booking := &entity.Booking{
		EventID:      eventID,
		OwnerEmail:   normalizeEmail(owner),
		TicketNumber: ticketNumber,
		CreatedAt:    time.Now().UTC(),
	}

	err := r.db.QueryRowContext(ctx, query,
		booking.EventID,
		booking.OwnerEmail,
		booking.TicketNumber,
		booking.CreatedAt,
	).Scan(&booking.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to create booking: %w", mapUniqueViolation(err))
	}

	return booking, nil
}

// GetByID retrieves a booking by its ID
func (r *bookingRepository) GetByID(ctx context.Context, id int64) (*entity.Booking, error) {
	query := `
		SELECT id, event_id, owner_email, ticket_number, created_at
		FROM bookings
		WHERE id = $1
	`

	var booking entity.Booking
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&booking.ID,
		&booking.EventID,
		&booking.OwnerEmail,
		&booking.TicketNumber,
		&booking.CreatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, entity.ErrBookingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}

	return &booking, nil
}

func (r *bookingRepository) ExistsForOwner(ctx context.Context, eventID int64, owner string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM bookings WHERE event_id = $1 AND owner_email = $2)`

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, eventID, normalizeEmail(owner)).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check existing booking: %w", err)
	}
	return exists, nil
}

func (r *bookingRepository) Remove(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM bookings WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete booking: %w", err)
	}
	return expectAffected(result, entity.ErrBookingNotFound)
}

func (r *bookingRepository) RemoveByEvent(ctx context.Context, eventID int64, owner string) error {
	query := `DELETE FROM bookings WHERE event_id = $1 AND owner_email = $2`

	result, err := r.db.ExecContext(ctx, query, eventID, normalizeEmail(owner))
	if err != nil {
		return fmt.Errorf("failed to delete booking: %w", err)
	}
	return expectAffected(result, entity.ErrBookingNotFound)
}

// CountByEvent counts bookings for a specific event
func (r *bookingRepository) CountByEvent(ctx context.Context, eventID int64) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM bookings WHERE event_id = $1`, eventID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count bookings: %w", err)
	}
	return count, nil
}

func (r *bookingRepository) ListByEvent(ctx context.Context, eventID int64) ([]*entity.Booking, error) {
	query := `
		SELECT id, event_id, owner_email, ticket_number, created_at
		FROM bookings
		WHERE event_id = $1
		ORDER BY ticket_number
	`
	return r.queryBookings(ctx, query, eventID)
}

func (r *bookingRepository) ListByOwner(ctx context.Context, owner string) ([]*entity.Booking, error) {
	query := `
		SELECT id, event_id, owner_email, ticket_number, created_at
		FROM bookings
		WHERE owner_email = $1
		ORDER BY created_at DESC
	`
	return r.queryBookings(ctx, query, normalizeEmail(owner))
}

// queryBookings is a helper function to query multiple bookings
func (r *bookingRepository) queryBookings(ctx context.Context, query string, args ...interface{}) ([]*entity.Booking, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query bookings: %w", err)
	}
	defer rows.Close()

	var bookings []*entity.Booking
	for rows.Next() {
		var booking entity.Booking
		err := rows.Scan(
			&booking.ID,
			&booking.EventID,
			&booking.OwnerEmail,
			&booking.TicketNumber,
			&booking.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		bookings = append(bookings, &booking)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating bookings: %w", err)
	}

	return bookings, nil
}

// Emails are compared case-insensitively.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
