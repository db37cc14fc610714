package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	repository "github.com/ds124wfegd/WB_L3/6/internal/database/postgres"
	"github.com/ds124wfegd/WB_L3/6/internal/entity"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// TicketRequest is a public request for one ticket. OwnerEmail is the
// identity verified by the auth gateway.
type TicketRequest struct {
	EventID    int64  `json:"event_id" validate:"required,gt=0"`
	OwnerEmail string `json:"owner_email" validate:"required,email,max=320"`
}

// TaskPublisher интерфейс для публикации задач в очередь
type TaskPublisher interface {
	Publish(ctx context.Context, task *Task) error
}

// Task представляет задачу для очереди
type Task struct {
	ID         string                 `json:"id"`
	Type       string                 `json:"type"`
	Data       map[string]interface{} `json:"data"`
	ExecuteAt  time.Time              `json:"execute_at"`
	MaxRetries int                    `json:"max_retries"`
	Attempts   int                    `json:"attempts"`
}

// Константы типов задач
const (
	TaskTypeRequestTicket = "request_ticket"

	TaskKeyEventID    = "event_id"
	TaskKeyOwnerEmail = "owner_email"
)

const defaultRequestTimeout = 5 * time.Second

type bookingService struct {
	repos          *repository.Repositories
	tx             repository.Transactor
	queue          TaskPublisher
	promoter       PromotionTrigger
	publisher      NotificationPublisher
	requestTimeout time.Duration
}

func NewBookingService(
	repos *repository.Repositories,
	tx repository.Transactor,
	queue TaskPublisher,
	promoter PromotionTrigger,
	publisher NotificationPublisher,
	requestTimeout time.Duration,
) BookingService {
	if requestTimeout <= 0 {
		requestTimeout = defaultRequestTimeout
	}
	return &bookingService{
		repos:          repos,
		tx:             tx,
		queue:          queue,
		promoter:       promoter,
		publisher:      publisher,
		requestTimeout: requestTimeout,
	}
}

func (s *bookingService) SubmitTicketRequest(ctx context.Context, req *TicketRequest) (*entity.TicketJob, error) {
	owner, err := normalizeOwner(req.OwnerEmail)
	if err != nil {
		return nil, err
	}
	req.OwnerEmail = owner
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	// Unknown events are rejected before anything is queued
	if _, err := s.repos.Events.GetByID(ctx, req.EventID); err != nil {
		return nil, entity.Internal(err)
	}

	if s.queue == nil {
		return nil, fmt.Errorf("%w: dispatch queue is not configured", entity.ErrInternal)
	}

	task := &Task{
		ID:   uuid.NewString(),
		Type: TaskTypeRequestTicket,
		Data: map[string]interface{}{
			TaskKeyEventID:    req.EventID,
			TaskKeyOwnerEmail: req.OwnerEmail,
		},
		ExecuteAt: time.Now(),
	}

	if err := s.queue.Publish(ctx, task); err != nil {
		return nil, fmt.Errorf("%w: failed to enqueue ticket request: %v", entity.ErrInternal, err)
	}

	logrus.WithFields(logrus.Fields{
		"task_id":  task.ID,
		"event_id": req.EventID,
		"owner":    req.OwnerEmail,
	}).Info("Ticket request queued")

	return &entity.TicketJob{
		TaskID:      task.ID,
		EventID:     req.EventID,
		OwnerEmail:  req.OwnerEmail,
		SubmittedAt: task.ExecuteAt,
	}, nil
}

// RequestTicket runs the whole decision under the event row lock: the owner
// check, the capacity check and the resulting insert commit together.
func (s *bookingService) RequestTicket(ctx context.Context, eventID int64, owner string) (*entity.Allocation, error) {
	owner, err := normalizeOwner(owner)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.requestTimeout)
	defer cancel()

	var allocation *entity.Allocation
	err = s.tx.WithinTx(ctx, func(ctx context.Context, repos *repository.Repositories) error {
		event, err := repos.Events.GetForUpdate(ctx, eventID)
		if err != nil {
			return err
		}

		if err := ensureNotHolding(ctx, repos, eventID, owner); err != nil {
			return err
		}

		if event.AvailableTickets > 0 {
			booking, err := bookWithRetry(ctx, repos, eventID, owner)
			if err == nil {
				allocation = entity.Booked(booking)
				return nil
			}
			if !errors.Is(err, entity.ErrExhausted) {
				return err
			}
		}

		entry, err := repos.Waitlist.Enqueue(ctx, eventID, owner)
		if err != nil {
			return err
		}
		allocation = entity.Waitlisted(entry)
		return nil
	})
	if err != nil {
		return nil, entity.Internal(err)
	}

	fields := logrus.Fields{"event_id": eventID, "owner": owner}
	switch allocation.Outcome {
	case entity.OutcomeBooked:
		logrus.WithFields(fields).WithField("ticket_number", allocation.Booking.TicketNumber).Info("Ticket booked")
		notify(ctx, s.publisher, bookedNotification(entity.NotificationTicketBooked, allocation.Booking))
	case entity.OutcomeWaitlisted:
		logrus.WithFields(fields).WithField("queue_id", allocation.WaitlistEntry.QueueID).Info("Owner added to waitlist")
		notify(ctx, s.publisher, waitlistNotification(entity.NotificationTicketWaitlisted, allocation.WaitlistEntry))
	}

	return allocation, nil
}

// bookWithRetry takes a ticket and records the booking. An exhausted
// inventory is re-read once under the lock before giving up.
func bookWithRetry(ctx context.Context, repos *repository.Repositories, eventID int64, owner string) (*entity.Booking, error) {
	booking, err := book(ctx, repos, eventID, owner)
	if !errors.Is(err, entity.ErrExhausted) {
		return booking, err
	}

	event, err := repos.Events.GetForUpdate(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if event.AvailableTickets == 0 {
		return nil, entity.ErrTicketsExhausted
	}
	return book(ctx, repos, eventID, owner)
}

func book(ctx context.Context, repos *repository.Repositories, eventID int64, owner string) (*entity.Booking, error) {
	dec, err := repos.Events.TryDecrement(ctx, eventID)
	if err != nil {
		return nil, err
	}
	return repos.Bookings.Insert(ctx, eventID, owner, dec.TicketNumber)
}

// ensureNotHolding fails with a conflict if the owner already holds a ticket
// or a waitlist spot for the event.
func ensureNotHolding(ctx context.Context, repos *repository.Repositories, eventID int64, owner string) error {
	booked, err := repos.Bookings.ExistsForOwner(ctx, eventID, owner)
	if err != nil {
		return err
	}
	if booked {
		return entity.ErrAlreadyBooked
	}

	waiting, err := repos.Waitlist.ExistsForOwner(ctx, eventID, owner)
	if err != nil {
		return err
	}
	if waiting {
		return entity.ErrAlreadyWaitlisted
	}
	return nil
}

// CancelBooking returns the ticket to the pool and asks the promoter to
// hand it to the head of the waitlist.
func (s *bookingService) CancelBooking(ctx context.Context, bookingID int64) error {
	booking, err := s.repos.Bookings.GetByID(ctx, bookingID)
	if err != nil {
		return entity.Internal(err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.requestTimeout)
	defer cancel()

	var available int
	err = s.tx.WithinTx(ctx, func(ctx context.Context, repos *repository.Repositories) error {
		// Increment takes the event row lock before the booking row is touched
		n, err := repos.Events.Increment(ctx, booking.EventID, 1)
		if err != nil {
			return err
		}
		available = n
		return repos.Bookings.Remove(ctx, booking.ID)
	})
	if err != nil {
		return entity.Internal(err)
	}

	logrus.WithFields(logrus.Fields{
		"booking_id":        booking.ID,
		"event_id":          booking.EventID,
		"available_tickets": available,
	}).Info("Booking cancelled")

	notify(ctx, s.publisher, bookedNotification(entity.NotificationBookingCancelled, booking))

	if s.promoter != nil {
		s.promoter.TriggerPromotion(booking.EventID)
	}
	return nil
}

func (s *bookingService) GetBooking(ctx context.Context, id int64) (*entity.Booking, error) {
	booking, err := s.repos.Bookings.GetByID(ctx, id)
	if err != nil {
		return nil, entity.Internal(err)
	}
	return booking, nil
}

func (s *bookingService) GetEventBookings(ctx context.Context, eventID int64) ([]*entity.Booking, error) {
	if _, err := s.repos.Events.GetByID(ctx, eventID); err != nil {
		return nil, entity.Internal(err)
	}

	bookings, err := s.repos.Bookings.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, entity.Internal(err)
	}
	return bookings, nil
}

func (s *bookingService) GetOwnerBookings(ctx context.Context, owner string) ([]*entity.Booking, error) {
	owner, err := normalizeOwner(owner)
	if err != nil {
		return nil, err
	}

	bookings, err := s.repos.Bookings.ListByOwner(ctx, owner)
	if err != nil {
		return nil, entity.Internal(err)
	}
	return bookings, nil
}
