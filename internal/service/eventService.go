package service

import (
	"context"
	"strings"

	repository "github.com/ds124wfegd/WB_L3/6/internal/database/postgres"
	"github.com/ds124wfegd/WB_L3/6/internal/entity"

	"github.com/sirupsen/logrus"
)

// CreateEventRequest represents the data needed to create an event
type CreateEventRequest struct {
	Name         string `json:"name" binding:"required,min=1,max=255" validate:"required,min=1,max=255"`
	TotalTickets int    `json:"total_tickets" binding:"min=0,max=1000000" validate:"min=0,max=1000000"`
}

// UpdateEventRequest represents the data needed to update an event
type UpdateEventRequest struct {
	Name         *string `json:"name,omitempty" validate:"omitempty,min=1,max=255"`
	TotalTickets *int    `json:"total_tickets,omitempty" validate:"omitempty,min=0,max=1000000"`
}

type eventService struct {
	repos    *repository.Repositories
	tx       repository.Transactor
	promoter PromotionTrigger
}

// NewEventService creates a new instance of EventService
func NewEventService(
	repos *repository.Repositories,
	tx repository.Transactor,
	promoter PromotionTrigger,
) EventService {
	return &eventService{
		repos:    repos,
		tx:       tx,
		promoter: promoter,
	}
}

func (s *eventService) CreateEvent(ctx context.Context, req *CreateEventRequest) (*entity.Event, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	event := &entity.Event{
		Name:             req.Name,
		TotalTickets:     req.TotalTickets,
		AvailableTickets: req.TotalTickets,
		Status:           entity.StatusFor(req.TotalTickets),
	}

	if err := s.repos.Events.Create(ctx, event); err != nil {
		return nil, entity.Internal(err)
	}

	logrus.WithFields(logrus.Fields{
		"event_id":      event.ID,
		"name":          event.Name,
		"total_tickets": event.TotalTickets,
	}).Info("Event created")
	return event, nil
}

func (s *eventService) GetEvent(ctx context.Context, id int64) (*entity.Event, error) {
	event, err := s.repos.Events.GetByID(ctx, id)
	if err != nil {
		return nil, entity.Internal(err)
	}
	return event, nil
}

func (s *eventService) GetAllEvents(ctx context.Context) ([]*entity.Event, error) {
	events, err := s.repos.Events.GetAll(ctx)
	if err != nil {
		return nil, entity.Internal(err)
	}
	return events, nil
}

// UpdateEvent renames an event or resizes its pool. Issued tickets stay
// issued, so the new total can not go below them.
func (s *eventService) UpdateEvent(ctx context.Context, id int64, req *UpdateEventRequest) (*entity.Event, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	var (
		updated *entity.Event
		grew    bool
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context, repos *repository.Repositories) error {
		event, err := repos.Events.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}

		if req.Name != nil {
			event.Name = strings.TrimSpace(*req.Name)
		}

		if req.TotalTickets != nil {
			booked := event.BookedTickets()
			if *req.TotalTickets < booked {
				return entity.ErrTotalBelowSold
			}
			available := *req.TotalTickets - booked
			grew = available > event.AvailableTickets
			event.TotalTickets = *req.TotalTickets
			event.AvailableTickets = available
			event.Status = entity.StatusFor(available)
		}

		if err := repos.Events.Update(ctx, event); err != nil {
			return err
		}
		updated = event
		return nil
	})
	if err != nil {
		return nil, entity.Internal(err)
	}

	logrus.WithFields(logrus.Fields{
		"event_id":          updated.ID,
		"total_tickets":     updated.TotalTickets,
		"available_tickets": updated.AvailableTickets,
	}).Info("Event updated")

	if grew && s.promoter != nil {
		s.promoter.TriggerPromotion(updated.ID)
	}
	return updated, nil
}

// DeleteEvent soft-deletes an event. Its bookings and waitlist are kept and
// come back on restore.
func (s *eventService) DeleteEvent(ctx context.Context, id int64) error {
	if err := s.repos.Events.SoftDelete(ctx, id); err != nil {
		return entity.Internal(err)
	}

	logrus.WithField("event_id", id).Info("Event deleted")
	return nil
}

func (s *eventService) RestoreEvent(ctx context.Context, id int64) (*entity.Event, error) {
	existing, err := s.repos.Events.GetByIDUnscoped(ctx, id)
	if err != nil {
		return nil, entity.Internal(err)
	}
	if !existing.IsDeleted() {
		return nil, entity.ErrEventNotDeleted
	}

	if err := s.repos.Events.Restore(ctx, id); err != nil {
		return nil, entity.Internal(err)
	}

	event, err := s.repos.Events.GetByID(ctx, id)
	if err != nil {
		return nil, entity.Internal(err)
	}

	logrus.WithField("event_id", id).Info("Event restored")

	// the waitlist may have been frozen while the event was deleted
	if event.AvailableTickets > 0 && s.promoter != nil {
		s.promoter.TriggerPromotion(id)
	}
	return event, nil
}

func (s *eventService) GetEventOverview(ctx context.Context, id int64) (*entity.EventOverview, error) {
	event, err := s.repos.Events.GetByID(ctx, id)
	if err != nil {
		return nil, entity.Internal(err)
	}

	bookings, err := s.repos.Bookings.ListByEvent(ctx, id)
	if err != nil {
		return nil, entity.Internal(err)
	}

	waitlist, err := s.repos.Waitlist.ListByEvent(ctx, id)
	if err != nil {
		return nil, entity.Internal(err)
	}

	return &entity.EventOverview{
		Event:    event,
		Bookings: bookings,
		Waitlist: waitlist,
		Stats:    entity.NewEventStats(event, len(bookings), len(waitlist)),
	}, nil
}
