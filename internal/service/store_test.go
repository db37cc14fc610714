package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	repository "github.com/ds124wfegd/WB_L3/6/internal/database/postgres"
	"github.com/ds124wfegd/WB_L3/6/internal/entity"
)

// memStore is an in-memory stand-in for Postgres. Transactions are
// serialized, which models the event row lock, and roll back to a snapshot
// when fn fails.
type memStore struct {
	txMu sync.Mutex
	mu   sync.Mutex

	events   map[int64]entity.Event
	bookings map[int64]entity.Booking
	waitlist map[int64]entity.WaitlistEntry

	nextEventID   int64
	nextBookingID int64
	nextEntryID   int64
	nextQueueID   int64

	// failInsert makes the next Bookings.Insert fail once
	failInsert error
}

func newMemStore() *memStore {
	return &memStore{
		events:   make(map[int64]entity.Event),
		bookings: make(map[int64]entity.Booking),
		waitlist: make(map[int64]entity.WaitlistEntry),
	}
}

func (s *memStore) repos() *repository.Repositories {
	return &repository.Repositories{
		Events:   &memEvents{s},
		Bookings: &memBookings{s},
		Waitlist: &memWaitlist{s},
	}
}

func (s *memStore) WithinTx(ctx context.Context, fn func(ctx context.Context, repos *repository.Repositories) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	events := copyMap(s.events)
	bookings := copyMap(s.bookings)
	waitlist := copyMap(s.waitlist)
	s.mu.Unlock()

	if err := fn(ctx, s.repos()); err != nil {
		s.mu.Lock()
		s.events, s.bookings, s.waitlist = events, bookings, waitlist
		s.mu.Unlock()
		return err
	}
	return nil
}

func copyMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// seedEvent creates an event with total tickets, all free.
func (s *memStore) seedEvent(name string, total int) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextEventID++
	s.events[s.nextEventID] = entity.Event{
		ID:               s.nextEventID,
		Name:             name,
		TotalTickets:     total,
		AvailableTickets: total,
		Status:           entity.StatusFor(total),
		CreatedAt:        time.Now(),
		UpdatedAt:        time.Now(),
	}
	return s.nextEventID
}

func (s *memStore) event(id int64) entity.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.events[id]
}

func (s *memStore) bookingCount(eventID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, b := range s.bookings {
		if b.EventID == eventID {
			n++
		}
	}
	return n
}

type memEvents struct{ s *memStore }

func (r *memEvents) nameTaken(name string, except int64) bool {
	for _, e := range r.s.events {
		if e.ID != except && e.DeletedAt == nil && e.Name == name {
			return true
		}
	}
	return false
}

func (r *memEvents) Create(ctx context.Context, event *entity.Event) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if r.nameTaken(event.Name, 0) {
		return entity.ErrEventNameTaken
	}
	r.s.nextEventID++
	event.ID = r.s.nextEventID
	event.CreatedAt = time.Now()
	event.UpdatedAt = event.CreatedAt
	r.s.events[event.ID] = *event
	return nil
}

func (r *memEvents) live(id int64) (entity.Event, error) {
	e, ok := r.s.events[id]
	if !ok || e.DeletedAt != nil {
		return entity.Event{}, entity.ErrEventNotFound
	}
	return e, nil
}

func (r *memEvents) GetByID(ctx context.Context, id int64) (*entity.Event, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	e, err := r.live(id)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *memEvents) GetAll(ctx context.Context) ([]*entity.Event, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var events []*entity.Event
	for _, e := range r.s.events {
		if e.DeletedAt == nil {
			e := e
			events = append(events, &e)
		}
	}
	sort.Slice(events, func(i, j int) bool { return events[i].ID < events[j].ID })
	return events, nil
}

func (r *memEvents) GetByIDUnscoped(ctx context.Context, id int64) (*entity.Event, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	e, ok := r.s.events[id]
	if !ok {
		return nil, entity.ErrEventNotFound
	}
	return &e, nil
}

func (r *memEvents) GetForUpdate(ctx context.Context, id int64) (*entity.Event, error) {
	return r.GetByID(ctx, id)
}

func (r *memEvents) TryDecrement(ctx context.Context, id int64) (*entity.Decrement, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	e, err := r.live(id)
	if err != nil {
		return nil, err
	}
	if e.AvailableTickets == 0 {
		return nil, entity.ErrTicketsExhausted
	}
	e.AvailableTickets--
	e.LastTicketNumber++
	e.Status = entity.StatusFor(e.AvailableTickets)
	r.s.events[id] = e
	return &entity.Decrement{EventID: id, NewAvailable: e.AvailableTickets, TicketNumber: e.LastTicketNumber}, nil
}

func (r *memEvents) Increment(ctx context.Context, id int64, n int) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	e, ok := r.s.events[id]
	if !ok {
		return 0, entity.ErrEventNotFound
	}
	e.AvailableTickets = min(e.AvailableTickets+n, e.TotalTickets)
	e.Status = entity.StatusFor(e.AvailableTickets)
	r.s.events[id] = e
	return e.AvailableTickets, nil
}

func (r *memEvents) Update(ctx context.Context, event *entity.Event) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, err := r.live(event.ID); err != nil {
		return err
	}
	if r.nameTaken(event.Name, event.ID) {
		return entity.ErrEventNameTaken
	}
	r.s.events[event.ID] = *event
	return nil
}

func (r *memEvents) SoftDelete(ctx context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	e, err := r.live(id)
	if err != nil {
		return err
	}
	now := time.Now()
	e.DeletedAt = &now
	r.s.events[id] = e
	return nil
}

func (r *memEvents) Restore(ctx context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	e, ok := r.s.events[id]
	if !ok || e.DeletedAt == nil {
		return entity.ErrEventNotDeleted
	}
	if r.nameTaken(e.Name, id) {
		return entity.ErrEventNameTaken
	}
	e.DeletedAt = nil
	r.s.events[id] = e
	return nil
}

type memBookings struct{ s *memStore }

func (r *memBookings) Insert(ctx context.Context, eventID int64, owner string, ticketNumber int) (*entity.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if err := r.s.failInsert; err != nil {
		r.s.failInsert = nil
		return nil, err
	}

	owner = strings.ToLower(strings.TrimSpace(owner))
	for _, b := range r.s.bookings {
		if b.EventID == eventID && b.OwnerEmail == owner {
			return nil, entity.ErrAlreadyBooked
		}
	}

	r.s.nextBookingID++
	b := entity.Booking{
		ID:           r.s.nextBookingID,
		EventID:      eventID,
		OwnerEmail:   owner,
		TicketNumber: ticketNumber,
		CreatedAt:    time.Now(),
	}
	r.s.bookings[b.ID] = b
	return &b, nil
}

func (r *memBookings) GetByID(ctx context.Context, id int64) (*entity.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	b, ok := r.s.bookings[id]
	if !ok {
		return nil, entity.ErrBookingNotFound
	}
	return &b, nil
}

func (r *memBookings) ExistsForOwner(ctx context.Context, eventID int64, owner string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, b := range r.s.bookings {
		if b.EventID == eventID && b.OwnerEmail == owner {
			return true, nil
		}
	}
	return false, nil
}

func (r *memBookings) Remove(ctx context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.bookings[id]; !ok {
		return entity.ErrBookingNotFound
	}
	delete(r.s.bookings, id)
	return nil
}

func (r *memBookings) RemoveByEvent(ctx context.Context, eventID int64, owner string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for id, b := range r.s.bookings {
		if b.EventID == eventID && b.OwnerEmail == owner {
			delete(r.s.bookings, id)
			return nil
		}
	}
	return entity.ErrBookingNotFound
}

func (r *memBookings) list(match func(entity.Booking) bool) []*entity.Booking {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []*entity.Booking
	for _, b := range r.s.bookings {
		if match(b) {
			b := b
			out = append(out, &b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TicketNumber < out[j].TicketNumber })
	return out
}

func (r *memBookings) CountByEvent(ctx context.Context, eventID int64) (int, error) {
	return len(r.list(func(b entity.Booking) bool { return b.EventID == eventID })), nil
}

func (r *memBookings) ListByEvent(ctx context.Context, eventID int64) ([]*entity.Booking, error) {
	return r.list(func(b entity.Booking) bool { return b.EventID == eventID }), nil
}

func (r *memBookings) ListByOwner(ctx context.Context, owner string) ([]*entity.Booking, error) {
	return r.list(func(b entity.Booking) bool { return b.OwnerEmail == owner }), nil
}

type memWaitlist struct{ s *memStore }

func (r *memWaitlist) Enqueue(ctx context.Context, eventID int64, owner string) (*entity.WaitlistEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, w := range r.s.waitlist {
		if w.EventID == eventID && w.OwnerEmail == owner {
			return nil, entity.ErrAlreadyWaitlisted
		}
	}

	r.s.nextEntryID++
	r.s.nextQueueID++
	w := entity.WaitlistEntry{
		ID:         r.s.nextEntryID,
		EventID:    eventID,
		OwnerEmail: owner,
		QueueID:    r.s.nextQueueID,
		CreatedAt:  time.Now(),
	}
	r.s.waitlist[w.ID] = w
	return &w, nil
}

func (r *memWaitlist) GetByID(ctx context.Context, id int64) (*entity.WaitlistEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	w, ok := r.s.waitlist[id]
	if !ok {
		return nil, entity.ErrWaitlistEntryNotFound
	}
	return &w, nil
}

func (r *memWaitlist) ExistsForOwner(ctx context.Context, eventID int64, owner string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, w := range r.s.waitlist {
		if w.EventID == eventID && w.OwnerEmail == owner {
			return true, nil
		}
	}
	return false, nil
}

func (r *memWaitlist) Remove(ctx context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.waitlist[id]; !ok {
		return entity.ErrWaitlistEntryNotFound
	}
	delete(r.s.waitlist, id)
	return nil
}

func (r *memWaitlist) ListByEvent(ctx context.Context, eventID int64) ([]*entity.WaitlistEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []*entity.WaitlistEntry
	for _, w := range r.s.waitlist {
		if w.EventID == eventID {
			w := w
			out = append(out, &w)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].QueueID < out[j].QueueID })
	return out, nil
}

func (r *memWaitlist) CountByEvent(ctx context.Context, eventID int64) (int, error) {
	entries, err := r.ListByEvent(ctx, eventID)
	return len(entries), err
}

func (r *memWaitlist) EventsWithWaitlist(ctx context.Context) ([]int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	seen := make(map[int64]bool)
	var ids []int64
	for _, w := range r.s.waitlist {
		e, ok := r.s.events[w.EventID]
		if !ok || e.DeletedAt != nil || seen[w.EventID] {
			continue
		}
		seen[w.EventID] = true
		ids = append(ids, w.EventID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// fakeTaskPublisher records queued tasks.
type fakeTaskPublisher struct {
	mu    sync.Mutex
	tasks []*Task
	err   error
}

func (p *fakeTaskPublisher) Publish(ctx context.Context, task *Task) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.tasks = append(p.tasks, task)
	return nil
}

// fakeNotifier records published notifications.
type fakeNotifier struct {
	mu       sync.Mutex
	messages []*entity.Notification
}

func (n *fakeNotifier) Publish(ctx context.Context, routingKey string, message interface{}) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if msg, ok := message.(*entity.Notification); ok {
		n.messages = append(n.messages, msg)
	}
	return nil
}

func (n *fakeNotifier) types() []entity.NotificationType {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]entity.NotificationType, 0, len(n.messages))
	for _, m := range n.messages {
		out = append(out, m.Type)
	}
	return out
}

// recordingTrigger remembers events passed to TriggerPromotion.
type recordingTrigger struct {
	mu     sync.Mutex
	events []int64
}

func (t *recordingTrigger) TriggerPromotion(eventID int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.events = append(t.events, eventID)
}

func (t *recordingTrigger) triggered() []int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]int64(nil), t.events...)
}

var errStoreDown = errors.New("connection reset")
