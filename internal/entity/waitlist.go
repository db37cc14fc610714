package entity

import (
	"time"
)

// WaitlistEntry is a pending request for an event that had no free tickets.
// QueueID comes from a global sequence and defines promotion order.
type WaitlistEntry struct {
	ID         int64     `json:"id" db:"id"`
	EventID    int64     `json:"event_id" db:"event_id"`
	OwnerEmail string    `json:"owner_email" db:"owner_email"`
	QueueID    int64     `json:"queue_id" db:"queue_id"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}
