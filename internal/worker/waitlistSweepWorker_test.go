package worker

import (
	"context"
	"errors"
	"testing"

	"github.com/ds124wfegd/WB_L3/6/internal/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestWaitlistSweepWorkerRun(t *testing.T) {
	t.Run("sweeps under the lease", func(t *testing.T) {
		waitlist := &mockWaitlistService{}
		locker := &mockLocker{}

		locker.On("TryAcquire", mock.Anything).Return("token", true, nil).Once()
		waitlist.On("SweepAll", mock.Anything).Return(&entity.SweepReport{EventsScanned: 2, Promoted: 3}, nil).Once()
		locker.On("Release", mock.Anything, "token").Return(nil).Once()

		w := NewWaitlistSweepWorker(waitlist, locker)
		require.NoError(t, w.Run(context.Background()))

		stats := w.GetStats()
		assert.Equal(t, 1, stats["runs"])
		assert.Equal(t, 0, stats["lock_misses"])
		report, ok := stats["last_run"].(*entity.SweepReport)
		require.True(t, ok)
		assert.Equal(t, 3, report.Promoted)

		waitlist.AssertExpectations(t)
		locker.AssertExpectations(t)
	})

	t.Run("another instance holds the lease", func(t *testing.T) {
		waitlist := &mockWaitlistService{}
		locker := &mockLocker{}
		locker.On("TryAcquire", mock.Anything).Return("", false, nil).Once()

		w := NewWaitlistSweepWorker(waitlist, locker)
		require.NoError(t, w.Run(context.Background()))

		assert.Equal(t, 1, w.GetStats()["lock_misses"])
		waitlist.AssertNotCalled(t, "SweepAll", mock.Anything)
		locker.AssertNotCalled(t, "Release", mock.Anything, mock.Anything)
	})

	t.Run("lease error", func(t *testing.T) {
		locker := &mockLocker{}
		locker.On("TryAcquire", mock.Anything).Return("", false, errors.New("redis down")).Once()

		w := NewWaitlistSweepWorker(&mockWaitlistService{}, locker)
		assert.Error(t, w.Run(context.Background()))
	})

	t.Run("sweep failure still releases the lease", func(t *testing.T) {
		waitlist := &mockWaitlistService{}
		locker := &mockLocker{}

		locker.On("TryAcquire", mock.Anything).Return("token", true, nil).Once()
		waitlist.On("SweepAll", mock.Anything).Return(nil, entity.Internal(errors.New("timeout"))).Once()
		locker.On("Release", mock.Anything, "token").Return(nil).Once()

		w := NewWaitlistSweepWorker(waitlist, locker)
		assert.Error(t, w.Run(context.Background()))
		locker.AssertExpectations(t)
	})

	t.Run("single instance without lease", func(t *testing.T) {
		waitlist := &mockWaitlistService{}
		waitlist.On("SweepAll", mock.Anything).Return(&entity.SweepReport{Skipped: true}, nil).Once()

		w := NewWaitlistSweepWorker(waitlist, nil)
		require.NoError(t, w.Run(context.Background()))
		waitlist.AssertExpectations(t)
	})
}
