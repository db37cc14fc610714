package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	repository "github.com/ds124wfegd/WB_L3/6/internal/database/postgres"
	"github.com/ds124wfegd/WB_L3/6/internal/entity"

	"github.com/sirupsen/logrus"
)

const defaultPromotionTimeout = 30 * time.Second

type promotionResult int

const (
	promoted promotionResult = iota
	noCapacity
	entryGone
)

type waitlistService struct {
	repos            *repository.Repositories
	tx               repository.Transactor
	publisher        NotificationPublisher
	promotionTimeout time.Duration

	locks    *eventLocks
	sweeping atomic.Bool
	wg       sync.WaitGroup
}

func NewWaitlistService(
	repos *repository.Repositories,
	tx repository.Transactor,
	publisher NotificationPublisher,
	promotionTimeout time.Duration,
) WaitlistService {
	if promotionTimeout <= 0 {
		promotionTimeout = defaultPromotionTimeout
	}
	return &waitlistService{
		repos:            repos,
		tx:               tx,
		publisher:        publisher,
		promotionTimeout: promotionTimeout,
		locks:            newEventLocks(),
	}
}

func (s *waitlistService) PromoteEvent(ctx context.Context, eventID int64) (int, error) {
	unlock := s.locks.lock(eventID)
	defer unlock()

	event, err := s.repos.Events.GetByID(ctx, eventID)
	if errors.Is(err, entity.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, entity.Internal(err)
	}
	if event.AvailableTickets == 0 {
		return 0, nil
	}

	entries, err := s.repos.Waitlist.ListByEvent(ctx, eventID)
	if err != nil {
		return 0, entity.Internal(err)
	}

	count := 0
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return count, entity.Internal(err)
		}

		result, booking, err := s.promoteEntry(ctx, entry)
		if err != nil {
			// Stop here: skipping the head of the queue would break FIFO order
			logrus.WithFields(logrus.Fields{
				"event_id": eventID,
				"queue_id": entry.QueueID,
			}).WithError(err).Error("Waitlist promotion failed")
			return count, entity.Internal(err)
		}

		if result == noCapacity {
			break
		}
		if result == entryGone {
			continue
		}

		count++
		logrus.WithFields(logrus.Fields{
			"event_id":      eventID,
			"owner":         booking.OwnerEmail,
			"queue_id":      entry.QueueID,
			"ticket_number": booking.TicketNumber,
		}).Info("Waitlist entry promoted")
		notify(ctx, s.publisher, bookedNotification(entity.NotificationTicketPromoted, booking))
	}

	return count, nil
}

// promoteEntry converts one waitlist entry into a booking in its own
// transaction, re-checking capacity under the event row lock.
func (s *waitlistService) promoteEntry(ctx context.Context, entry *entity.WaitlistEntry) (promotionResult, *entity.Booking, error) {
	result := promoted
	var booking *entity.Booking

	err := s.tx.WithinTx(ctx, func(ctx context.Context, repos *repository.Repositories) error {
		event, err := repos.Events.GetForUpdate(ctx, entry.EventID)
		if errors.Is(err, entity.ErrNotFound) {
			result = noCapacity
			return nil
		}
		if err != nil {
			return err
		}
		if event.AvailableTickets == 0 {
			result = noCapacity
			return nil
		}

		if err := repos.Waitlist.Remove(ctx, entry.ID); err != nil {
			if errors.Is(err, entity.ErrWaitlistEntryNotFound) {
				// removed by its owner in the meantime
				result = entryGone
				return nil
			}
			return err
		}

		dec, err := repos.Events.TryDecrement(ctx, entry.EventID)
		if err != nil {
			return err
		}

		booking, err = repos.Bookings.Insert(ctx, entry.EventID, entry.OwnerEmail, dec.TicketNumber)
		return err
	})
	if err != nil {
		return promoted, nil, err
	}
	return result, booking, nil
}

// TriggerPromotion runs PromoteEvent in the background with its own deadline,
// so the caller's request context does not cut it short.
func (s *waitlistService) TriggerPromotion(eventID int64) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), s.promotionTimeout)
		defer cancel()

		n, err := s.PromoteEvent(ctx, eventID)
		entry := logrus.WithFields(logrus.Fields{"event_id": eventID, "promoted": n})
		if err != nil {
			entry.WithError(err).Warn("Promotion after cancellation failed, sweep will retry")
			return
		}
		entry.Debug("Promotion after cancellation finished")
	}()
}

func (s *waitlistService) Wait() {
	s.wg.Wait()
}

// SweepAll promotes waitlisted owners of every event. A call made while a
// previous sweep is still running returns a skipped report.
func (s *waitlistService) SweepAll(ctx context.Context) (*entity.SweepReport, error) {
	report := &entity.SweepReport{StartedAt: time.Now()}

	if !s.sweeping.CompareAndSwap(false, true) {
		report.Skipped = true
		return report, nil
	}
	defer s.sweeping.Store(false)

	eventIDs, err := s.repos.Waitlist.EventsWithWaitlist(ctx)
	if err != nil {
		return nil, entity.Internal(err)
	}

	for _, eventID := range eventIDs {
		// прерывание между мероприятиями безопасно: уже выполненные продвижения закоммичены
		if ctx.Err() != nil {
			break
		}

		report.EventsScanned++
		n, err := s.PromoteEvent(ctx, eventID)
		report.Promoted += n
		if err != nil {
			report.Failed++
		}
	}

	report.Duration = time.Since(report.StartedAt)
	return report, nil
}

func (s *waitlistService) GetWaitlist(ctx context.Context, eventID int64) ([]*entity.WaitlistEntry, error) {
	if _, err := s.repos.Events.GetByID(ctx, eventID); err != nil {
		return nil, entity.Internal(err)
	}

	entries, err := s.repos.Waitlist.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, entity.Internal(err)
	}
	return entries, nil
}

func (s *waitlistService) GetEntry(ctx context.Context, id int64) (*entity.WaitlistEntry, error) {
	entry, err := s.repos.Waitlist.GetByID(ctx, id)
	if err != nil {
		return nil, entity.Internal(err)
	}
	return entry, nil
}

// RemoveEntry takes an owner off the waitlist.
func (s *waitlistService) RemoveEntry(ctx context.Context, id int64) error {
	entry, err := s.repos.Waitlist.GetByID(ctx, id)
	if err != nil {
		return entity.Internal(err)
	}

	if err := s.repos.Waitlist.Remove(ctx, id); err != nil {
		return entity.Internal(err)
	}

	logrus.WithFields(logrus.Fields{
		"event_id": entry.EventID,
		"queue_id": entry.QueueID,
	}).Info("Waitlist entry removed")
	notify(ctx, s.publisher, waitlistNotification(entity.NotificationWaitlistLeft, entry))
	return nil
}

// eventLocks serializes promotions per event inside one process.
type eventLocks struct {
	mu    sync.Mutex
	locks map[int64]*eventLock
}

type eventLock struct {
	mu   sync.Mutex
	refs int
}

func newEventLocks() *eventLocks {
	return &eventLocks{locks: make(map[int64]*eventLock)}
}

func (l *eventLocks) lock(eventID int64) (unlock func()) {
	l.mu.Lock()
	el, ok := l.locks[eventID]
	if !ok {
		el = &eventLock{}
		l.locks[eventID] = el
	}
	el.refs++
	l.mu.Unlock()

	el.mu.Lock()

	return func() {
		el.mu.Unlock()

		l.mu.Lock()
		el.refs--
		if el.refs == 0 {
			delete(l.locks, eventID)
		}
		l.mu.Unlock()
	}
}
