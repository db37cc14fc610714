package entity

import (
	"time"
)

type EventStatus string

const (
	EventStatusOpen   EventStatus = "OPEN"
	EventStatusClosed EventStatus = "CLOSED"
)

// Event holds the ticket inventory of a single event.
// Status is CLOSED exactly when AvailableTickets is zero.
type Event struct {
	ID               int64       `json:"id" db:"id"`
	Name             string      `json:"name" db:"name"`
	TotalTickets     int         `json:"total_tickets" db:"total_tickets"`
	AvailableTickets int         `json:"available_tickets" db:"available_tickets"`
	LastTicketNumber int         `json:"last_ticket_number" db:"last_ticket_number"`
	Status           EventStatus `json:"status" db:"status"`
	CreatedAt        time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at" db:"updated_at"`
	DeletedAt        *time.Time  `json:"deleted_at,omitempty" db:"deleted_at"`
}

// StatusFor returns the status an event must have with the given number of free tickets.
func StatusFor(available int) EventStatus {
	if available == 0 {
		return EventStatusClosed
	}
	return EventStatusOpen
}

func (e *Event) IsDeleted() bool {
	return e.DeletedAt != nil
}

// BookedTickets is the number of tickets currently held by bookings.
func (e *Event) BookedTickets() int {
	return e.TotalTickets - e.AvailableTickets
}

// Decrement is the outcome of taking one ticket from the inventory.
type Decrement struct {
	EventID      int64
	NewAvailable int
	TicketNumber int
}
