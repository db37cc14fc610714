package worker

import (
	"context"

	"github.com/ds124wfegd/WB_L3/6/internal/entity"
	"github.com/ds124wfegd/WB_L3/6/internal/service"

	"github.com/stretchr/testify/mock"
)

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
	alloc, _ := args.Get(0).(*entity.Allocation)
	return alloc, args.Error(1)
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

type mockLocker struct {
	mock.Mock
}

func (m *mockLocker) TryAcquire(ctx context.Context) (string, bool, error) {
	args := m.Called(ctx)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *mockLocker) Release(ctx context.Context, token string) error {
	return m.Called(ctx, token).Error(0)
}
