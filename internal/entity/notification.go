package entity

import (
	"time"
)

type NotificationType string

const (
	NotificationTicketBooked     NotificationType = "ticket.booked"
	NotificationTicketWaitlisted NotificationType = "ticket.waitlisted"
	NotificationTicketPromoted   NotificationType = "ticket.promoted"
	NotificationBookingCancelled NotificationType = "booking.cancelled"
	NotificationWaitlistLeft     NotificationType = "waitlist.left"
)

// Notification is a domain event emitted after a booking state change has
// been committed. Consumers must tolerate duplicates.
type Notification struct {
	ID           string           `json:"id"`
	Type         NotificationType `json:"type"`
	EventID      int64            `json:"event_id"`
	OwnerEmail   string           `json:"owner_email"`
	BookingID    int64            `json:"booking_id,omitempty"`
	TicketNumber int              `json:"ticket_number,omitempty"`
	WaitlistID   int64            `json:"waitlist_id,omitempty"`
	QueueID      int64            `json:"queue_id,omitempty"`
	OccurredAt   time.Time        `json:"occurred_at"`
}
