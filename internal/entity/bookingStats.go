package entity

import (
	"time"
)

// EventOverview combines an event with everything currently allocated against it.
type EventOverview struct {
	Event    *Event           `json:"event"`
	Bookings []*Booking       `json:"bookings"`
	Waitlist []*WaitlistEntry `json:"waitlist"`
	Stats    EventStats       `json:"stats"`
}

// EventStats содержит агрегированную статистику по мероприятию
type EventStats struct {
	BookedTickets   int     `json:"booked_tickets"`
	WaitlistLength  int     `json:"waitlist_length"`
	UtilizationRate float64 `json:"utilization_rate"` // доля проданных билетов 0-1
}

func NewEventStats(e *Event, bookings, waitlist int) EventStats {
	stats := EventStats{
		BookedTickets:  bookings,
		WaitlistLength: waitlist,
	}
	if e.TotalTickets > 0 {
		stats.UtilizationRate = float64(e.BookedTickets()) / float64(e.TotalTickets)
	}
	return stats
}

// SweepReport describes one pass of the periodic waitlist sweep.
type SweepReport struct {
	EventsScanned int           `json:"events_scanned"`
	Promoted      int           `json:"promoted"`
	Failed        int           `json:"failed"`
	Skipped       bool          `json:"skipped"`
	StartedAt     time.Time     `json:"started_at"`
	Duration      time.Duration `json:"duration"`
}
