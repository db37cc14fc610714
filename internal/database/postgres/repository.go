package repository

import (
	"context"
	"database/sql"

	"github.com/ds124wfegd/WB_L3/6/internal/entity"
)

// DBTX is implemented by both *sql.DB and *sql.Tx, so every repository can
// run either on the pool or inside a caller's transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// EventRepository is the inventory store.
type EventRepository interface {
	Create(ctx context.Context, event *entity.Event) error
	GetByID(ctx context.Context, id int64) (*entity.Event, error)
	GetAll(ctx context.Context) ([]*entity.Event, error)

	// Deleted events are included
	GetByIDUnscoped(ctx context.Context, id int64) (*entity.Event, error)

	// Locking operations, only meaningful inside a transaction
	GetForUpdate(ctx context.Context, id int64) (*entity.Event, error)
	TryDecrement(ctx context.Context, id int64) (*entity.Decrement, error)
	Increment(ctx context.Context, id int64, n int) (int, error)

	// Административные операции
	Update(ctx context.Context, event *entity.Event) error
	SoftDelete(ctx context.Context, id int64) error
	Restore(ctx context.Context, id int64) error
}

// BookingRepository is the booking ledger.
type BookingRepository interface {
	Insert(ctx context.Context, eventID int64, owner string, ticketNumber int) (*entity.Booking, error)
	GetByID(ctx context.Context, id int64) (*entity.Booking, error)
	ExistsForOwner(ctx context.Context, eventID int64, owner string) (bool, error)
	Remove(ctx context.Context, id int64) error
	RemoveByEvent(ctx context.Context, eventID int64, owner string) error

	// Query operations
	CountByEvent(ctx context.Context, eventID int64) (int, error)
	ListByEvent(ctx context.Context, eventID int64) ([]*entity.Booking, error)
	ListByOwner(ctx context.Context, owner string) ([]*entity.Booking, error)
}

// WaitlistRepository is the FIFO waitlist. Entries are ordered by queue_id.
type WaitlistRepository interface {
	Enqueue(ctx context.Context, eventID int64, owner string) (*entity.WaitlistEntry, error)
	GetByID(ctx context.Context, id int64) (*entity.WaitlistEntry, error)
	ExistsForOwner(ctx context.Context, eventID int64, owner string) (bool, error)
	Remove(ctx context.Context, id int64) error

	ListByEvent(ctx context.Context, eventID int64) ([]*entity.WaitlistEntry, error)
	CountByEvent(ctx context.Context, eventID int64) (int, error)
	EventsWithWaitlist(ctx context.Context) ([]int64, error)
}

// Repositories groups the repositories bound to one connection or transaction.
type Repositories struct {
	Events   EventRepository
	Bookings BookingRepository
	Waitlist WaitlistRepository
}

func NewRepositories(db DBTX) *Repositories {
	return &Repositories{
		Events:   NewEventRepository(db),
		Bookings: NewBookingRepository(db),
		Waitlist: NewWaitlistRepository(db),
	}
}

// Transactor runs fn inside a single database transaction. The transaction
// commits when fn returns nil and rolls back otherwise.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, repos *Repositories) error) error
}
