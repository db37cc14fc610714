package entity

import (
	"time"
)

// Booking is a confirmed ticket, unique per (event, owner).
type Booking struct {
	ID           int64     `json:"id" db:"id"`
	EventID      int64     `json:"event_id" db:"event_id"`
	OwnerEmail   string    `json:"owner_email" db:"owner_email"`
	TicketNumber int       `json:"ticket_number" db:"ticket_number"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

type AllocationOutcome string

const (
	OutcomeBooked     AllocationOutcome = "booked"
	OutcomeWaitlisted AllocationOutcome = "waitlisted"
)

// Allocation is the result of a ticket request: exactly one of Booking or
// WaitlistEntry is set.
type Allocation struct {
	Outcome       AllocationOutcome `json:"outcome"`
	Booking       *Booking          `json:"booking,omitempty"`
	WaitlistEntry *WaitlistEntry    `json:"waitlist_entry,omitempty"`
}

func Booked(b *Booking) *Allocation {
	return &Allocation{Outcome: OutcomeBooked, Booking: b}
}

func Waitlisted(w *WaitlistEntry) *Allocation {
	return &Allocation{Outcome: OutcomeWaitlisted, WaitlistEntry: w}
}

// TicketJob is returned to the requester when a ticket request has been
// accepted for asynchronous processing.
type TicketJob struct {
	TaskID      string    `json:"task_id"`
	EventID     int64     `json:"event_id"`
	OwnerEmail  string    `json:"owner_email"`
	SubmittedAt time.Time `json:"submitted_at"`
}
