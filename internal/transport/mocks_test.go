package transport

import (
	"context"

	"github.com/ds124wfegd/WB_L3/6/internal/entity"
	"github.com/ds124wfegd/WB_L3/6/internal/service"
	"github.com/ds124wfegd/WB_L3/6/pkg/queue"

	"github.com/stretchr/testify/mock"
)

type mockEventService struct {
	mock.Mock
}

func (m *mockEventService) CreateEvent(ctx context.Context, req *service.CreateEventRequest) (*entity.Event, error) {
	args := m.Called(ctx, req)
	e, _ := args.Get(0).(*entity.Event)
	return e, args.Error(1)
}

func (m *mockEventService) GetEvent(ctx context.Context, id int64) (*entity.Event, error) {
	args := m.Called(ctx, id)
	e, _ := args.Get(0).(*entity.Event)
	return e, args.Error(1)
}

func (m *mockEventService) GetAllEvents(ctx context.Context) ([]*entity.Event, error) {
	args := m.Called(ctx)
	e, _ := args.Get(0).([]*entity.Event)
	return e, args.Error(1)
}

func (m *mockEventService) UpdateEvent(ctx context.Context, id int64, req *service.UpdateEventRequest) (*entity.Event, error) {
	args := m.Called(ctx, id, req)
	e, _ := args.Get(0).(*entity.Event)
	return e, args.Error(1)
}

func (m *mockEventService) DeleteEvent(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockEventService) RestoreEvent(ctx context.Context, id int64) (*entity.Event, error) {
	args := m.Called(ctx, id)
	e, _ := args.Get(0).(*entity.Event)
	return e, args.Error(1)
}

func (m *mockEventService) GetEventOverview(ctx context.Context, id int64) (*entity.EventOverview, error) {
	args := m.Called(ctx, id)
	o, _ := args.Get(0).(*entity.EventOverview)
	return o, args.Error(1)
}

type mockBookingService struct {
	mock.Mock
}

func (m *mockBookingService) SubmitTicketRequest(ctx context.Context, req *service.TicketRequest) (*entity.TicketJob, error) {
	args := m.Called(ctx, req)
	job, _ := args.Get(0).(*entity.TicketJob)
	return job, args.Error(1)
}

func (m *mockBookingService) RequestTicket(ctx context.Context, eventID int64, owner string) (*entity.Allocation, error) {
	args := m.Called(ctx, eventID, owner)
	a, _ := args.Get(0).(*entity.Allocation)
	return a, args.Error(1)
}

func (m *mockBookingService) CancelBooking(ctx context.Context, bookingID int64) error {
	return m.Called(ctx, bookingID).Error(0)
}

func (m *mockBookingService) GetBooking(ctx context.Context, id int64) (*entity.Booking, error) {
	args := m.Called(ctx, id)
	b, _ := args.Get(0).(*entity.Booking)
	return b, args.Error(1)
}

func (m *mockBookingService) GetEventBookings(ctx context.Context, eventID int64) ([]*entity.Booking, error) {
	args := m.Called(ctx, eventID)
	b, _ := args.Get(0).([]*entity.Booking)
	return b, args.Error(1)
}

func (m *mockBookingService) GetOwnerBookings(ctx context.Context, owner string) ([]*entity.Booking, error) {
	args := m.Called(ctx, owner)
	b, _ := args.Get(0).([]*entity.Booking)
	return b, args.Error(1)
}

type mockWaitlistService struct {
	mock.Mock
}

func (m *mockWaitlistService) TriggerPromotion(eventID int64) {
	m.Called(eventID)
}

func (m *mockWaitlistService) PromoteEvent(ctx context.Context, eventID int64) (int, error) {
	args := m.Called(ctx, eventID)
	return args.Int(0), args.Error(1)
}

func (m *mockWaitlistService) SweepAll(ctx context.Context) (*entity.SweepReport, error) {
	args := m.Called(ctx)
	r, _ := args.Get(0).(*entity.SweepReport)
	return r, args.Error(1)
}

func (m *mockWaitlistService) Wait() {}

func (m *mockWaitlistService) GetWaitlist(ctx context.Context, eventID int64) ([]*entity.WaitlistEntry, error) {
	args := m.Called(ctx, eventID)
	e, _ := args.Get(0).([]*entity.WaitlistEntry)
	return e, args.Error(1)
}

func (m *mockWaitlistService) GetEntry(ctx context.Context, id int64) (*entity.WaitlistEntry, error) {
	args := m.Called(ctx, id)
	e, _ := args.Get(0).(*entity.WaitlistEntry)
	return e, args.Error(1)
}

func (m *mockWaitlistService) RemoveEntry(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

type mockQueueInspector struct {
	mock.Mock
}

func (m *mockQueueInspector) GetQueueStats(ctx context.Context) (*queue.QueueStats, error) {
	args := m.Called(ctx)
	s, _ := args.Get(0).(*queue.QueueStats)
	return s, args.Error(1)
}

type mockDLQ struct {
	mock.Mock
}

func (m *mockDLQ) HandleFailedTask(ctx context.Context, task *queue.Task, reason queue.FailureReason, err error) {
	m.Called(ctx, task, reason, err)
}

func (m *mockDLQ) GetFailedTasks(ctx context.Context, limit int) ([]*queue.FailedTask, error) {
	args := m.Called(ctx, limit)
	t, _ := args.Get(0).([]*queue.FailedTask)
	return t, args.Error(1)
}

func (m *mockDLQ) RequeueFailedTask(ctx context.Context, taskID string) error {
	return m.Called(ctx, taskID).Error(0)
}

func (m *mockDLQ) DeleteFailedTask(ctx context.Context, taskID string) error {
	return m.Called(ctx, taskID).Error(0)
}

func (m *mockDLQ) GetDLQStats(ctx context.Context) (*queue.DLQStats, error) {
	args := m.Called(ctx)
	s, _ := args.Get(0).(*queue.DLQStats)
	return s, args.Error(1)
}

type staticStats map[string]interface{}

func (s staticStats) GetStats() map[string]interface{} { return s }
