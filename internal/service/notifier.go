package service

import (
	"context"
	"time"

	"github.com/ds124wfegd/WB_L3/6/internal/entity"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// notify publishes a committed change. Delivery is best effort: the change
// is already durable, so a failed publish is only logged.
func notify(ctx context.Context, publisher NotificationPublisher, n *entity.Notification) {
	if publisher == nil {
		return
	}

	n.ID = uuid.NewString()
	n.OccurredAt = time.Now().UTC()

	if err := publisher.Publish(ctx, string(n.Type), n); err != nil {
		logrus.WithFields(logrus.Fields{
			"type":     n.Type,
			"event_id": n.EventID,
			"owner":    n.OwnerEmail,
		}).WithError(err).Warn("Failed to publish notification")
	}
}

func bookedNotification(t entity.NotificationType, b *entity.Booking) *entity.Notification {
	return &entity.Notification{
		Type:         t,
		EventID:      b.EventID,
		OwnerEmail:   b.OwnerEmail,
		BookingID:    b.ID,
		TicketNumber: b.TicketNumber,
	}
}

func waitlistNotification(t entity.NotificationType, w *entity.WaitlistEntry) *entity.Notification {
	return &entity.Notification{
		Type:       t,
		EventID:    w.EventID,
		OwnerEmail: w.OwnerEmail,
		WaitlistID: w.ID,
		QueueID:    w.QueueID,
	}
}
