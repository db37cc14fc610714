package queue

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// failTask pushes a task through a terminal failure so it lands in the DLQ.
func failTask(t *testing.T, q *testQueue, id string) {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, q.Publish(ctx, newTicketTask(id)))
	require.NoError(t, q.processNext(ctx, func(ctx context.Context, task *Task) error {
		return errTerminal
	}))
}

func TestDLQRequeue(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()
	failTask(t, q, "first")
	failTask(t, q, "second")

	stats, err := q.dlq.GetDLQStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.QueueSize)
	assert.False(t, stats.OldestFailure.After(stats.NewestFailure))

	require.NoError(t, q.dlq.RequeueFailedTask(ctx, "first"))
	assert.Equal(t, int64(1), q.zcard(t, q.cfg.DLQ()))
	assert.Equal(t, int64(1), q.llen(t, q.cfg.MainQueue()))

	// задача снова доступна обработчику с обнуленным счетчиком попыток
	var redelivered *Task
	require.NoError(t, q.processNext(ctx, func(ctx context.Context, task *Task) error {
		redelivered = task
		return nil
	}))
	require.NotNil(t, redelivered)
	assert.Equal(t, "first", redelivered.ID)
	assert.Equal(t, 1, redelivered.Attempts)
	assert.Empty(t, redelivered.LastError)

	err = q.dlq.RequeueFailedTask(ctx, "first")
	assert.ErrorIs(t, err, ErrTaskNotFound)
}

func TestDLQDelete(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()
	failTask(t, q, "doomed")

	require.NoError(t, q.dlq.DeleteFailedTask(ctx, "doomed"))
	assert.Equal(t, int64(0), q.zcard(t, q.cfg.DLQ()))
	assert.Equal(t, int64(0), q.llen(t, q.cfg.MainQueue()))

	assert.ErrorIs(t, q.dlq.DeleteFailedTask(ctx, "doomed"), ErrTaskNotFound)

	stats, err := q.dlq.GetDLQStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.QueueSize)
	assert.True(t, stats.OldestFailure.IsZero())
}

func TestDLQPurge(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()
	failTask(t, q, "a")
	failTask(t, q, "b")
	failTask(t, q, "c")

	limited, err := q.dlq.GetFailedTasks(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	purged, err := q.dlq.PurgeDLQ(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), purged)
	assert.Equal(t, int64(0), q.zcard(t, q.cfg.DLQ()))
}

func TestDLQAlert(t *testing.T) {
	q := newTestQueue(t)
	failTask(t, q, "alerted")

	require.Len(t, q.alerter.messages, 1)
	assert.Contains(t, q.alerter.messages[0], "ops: ")
	assert.Contains(t, q.alerter.messages[0], "alerted")
	assert.Contains(t, q.alerter.messages[0], string(ReasonTerminal))
}
