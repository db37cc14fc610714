package worker

import (
	"context"
	"fmt"

	"github.com/ds124wfegd/WB_L3/6/internal/entity"
	"github.com/ds124wfegd/WB_L3/6/internal/service"
	"github.com/ds124wfegd/WB_L3/6/pkg/queue"

	"github.com/sirupsen/logrus"
)

// TaskHandler dispatches queued tasks to the booking allocator.
type TaskHandler struct {
	bookingService service.BookingService
}

func NewTaskHandler(bookingService service.BookingService) *TaskHandler {
	return &TaskHandler{bookingService: bookingService}
}

// HandleTask is a queue.Handler. Returned errors keep their kind, so the
// queue retries Internal failures and dead-letters the rest.
func (h *TaskHandler) HandleTask(ctx context.Context, task *queue.Task) error {
	switch task.Type {
	case queue.TaskTypeRequestTicket:
		return h.handleRequestTicket(ctx, task)
	default:
		return fmt.Errorf("%w: unknown task type %q", entity.ErrInvalidInput, task.Type)
	}
}

func (h *TaskHandler) handleRequestTicket(ctx context.Context, task *queue.Task) error {
	eventID := task.GetInt64(service.TaskKeyEventID)
	owner := task.GetString(service.TaskKeyOwnerEmail)
	if eventID <= 0 || owner == "" {
		return fmt.Errorf("%w: task %s has no event or owner", entity.ErrInvalidInput, task.ID)
	}

	log := logrus.WithFields(logrus.Fields{
		"task_id":  task.ID,
		"event_id": eventID,
		"owner":    owner,
		"attempt":  task.Attempts,
	})

	allocation, err := h.bookingService.RequestTicket(ctx, eventID, owner)
	if err != nil {
		// a redelivered task that already took effect ends here as a conflict
		log.WithField("kind", entity.KindOf(err)).WithError(err).Warn("Ticket request failed")
		return err
	}

	log.WithField("outcome", allocation.Outcome).Info("Ticket request processed")
	return nil
}
