package service

import (
	"context"

	"github.com/ds124wfegd/WB_L3/6/internal/entity"
)

type EventService interface {
	// Основные операции
	CreateEvent(ctx context.Context, req *CreateEventRequest) (*entity.Event, error)
	GetEvent(ctx context.Context, id int64) (*entity.Event, error)
	GetAllEvents(ctx context.Context) ([]*entity.Event, error)
	UpdateEvent(ctx context.Context, id int64, req *UpdateEventRequest) (*entity.Event, error)
	DeleteEvent(ctx context.Context, id int64) error
	RestoreEvent(ctx context.Context, id int64) (*entity.Event, error)

	// Bookings and waitlist of one event
	GetEventOverview(ctx context.Context, id int64) (*entity.EventOverview, error)
}

// BookingService is the booking allocator.
type BookingService interface {
	// SubmitTicketRequest validates the request and hands it to the dispatch queue.
	SubmitTicketRequest(ctx context.Context, req *TicketRequest) (*entity.TicketJob, error)
	// RequestTicket books a ticket or, when none are left, puts the owner on the waitlist.
	RequestTicket(ctx context.Context, eventID int64, owner string) (*entity.Allocation, error)
	CancelBooking(ctx context.Context, bookingID int64) error

	GetBooking(ctx context.Context, id int64) (*entity.Booking, error)
	GetEventBookings(ctx context.Context, eventID int64) ([]*entity.Booking, error)
	GetOwnerBookings(ctx context.Context, owner string) ([]*entity.Booking, error)
}

// WaitlistService is the waitlist promoter.
type WaitlistService interface {
	PromotionTrigger

	// PromoteEvent moves waitlisted owners to bookings in queue order while
	// the event has free tickets. Safe to call redundantly.
	PromoteEvent(ctx context.Context, eventID int64) (int, error)
	SweepAll(ctx context.Context) (*entity.SweepReport, error)
	// Wait blocks until promotions started by TriggerPromotion have finished.
	Wait()

	GetWaitlist(ctx context.Context, eventID int64) ([]*entity.WaitlistEntry, error)
	GetEntry(ctx context.Context, id int64) (*entity.WaitlistEntry, error)
	RemoveEntry(ctx context.Context, id int64) error
}

// PromotionTrigger starts a promotion attempt for an event without waiting for it.
type PromotionTrigger interface {
	TriggerPromotion(eventID int64)
}

// NotificationPublisher fans committed booking changes out to other services.
type NotificationPublisher interface {
	Publish(ctx context.Context, routingKey string, message interface{}) error
}
