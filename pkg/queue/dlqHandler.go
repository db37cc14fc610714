package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

// FailureReason tells why a task ended up in the DLQ.
type FailureReason string

const (
	// ReasonTerminal marks a task whose error can not be fixed by retrying.
	ReasonTerminal FailureReason = "terminal"
	// ReasonRetriesExhausted marks a transient failure that kept failing.
	ReasonRetriesExhausted FailureReason = "retries_exhausted"
	ReasonCorrupted        FailureReason = "corrupted"
)

// DLQHandler handles failed tasks by moving them to Dead Letter Queue
type DLQHandler interface {
	HandleFailedTask(ctx context.Context, task *Task, reason FailureReason, err error)
	GetFailedTasks(ctx context.Context, limit int) ([]*FailedTask, error)
	RequeueFailedTask(ctx context.Context, taskID string) error
	DeleteFailedTask(ctx context.Context, taskID string) error
	GetDLQStats(ctx context.Context) (*DLQStats, error)
}

// Alerter delivers a short text to an operator chat.
type Alerter interface {
	SendMessage(chatID, text string) error
}

// DefaultDLQHandler is the default implementation of DLQHandler
type DefaultDLQHandler struct {
	client    *redis.Client
	dlq       string
	mainQueue string
	alerter   Alerter
	chatID    string
}

// FailedTask represents a task that failed execution
type FailedTask struct {
	Task     *Task         `json:"task"`
	Reason   FailureReason `json:"reason"`
	Error    string        `json:"error"`
	FailedAt time.Time     `json:"failed_at"`
	Attempts int           `json:"attempts"`
}

// DLQStats contains statistics about the Dead Letter Queue
type DLQStats struct {
	OldestFailure time.Time `json:"oldest_failure"`
	NewestFailure time.Time `json:"newest_failure"`
	QueueSize     int64     `json:"queue_size"`
}

// NewDefaultDLQHandler creates a new DefaultDLQHandler. Requeued tasks go back to mainQueue.
func NewDefaultDLQHandler(client *redis.Client, dlq, mainQueue string) *DefaultDLQHandler {
	return &DefaultDLQHandler{
		client:    client,
		dlq:       dlq,
		mainQueue: mainQueue,
	}
}

// WithAlerter sends a message to chatID for every task that lands in the DLQ.
func (d *DefaultDLQHandler) WithAlerter(alerter Alerter, chatID string) *DefaultDLQHandler {
	d.alerter = alerter
	d.chatID = chatID
	return d
}

// HandleFailedTask stores a failed task in the DLQ
func (d *DefaultDLQHandler) HandleFailedTask(ctx context.Context, task *Task, reason FailureReason, err error) {
	failedTask := &FailedTask{
		Task:     task,
		Reason:   reason,
		Error:    err.Error(),
		FailedAt: time.Now(),
		Attempts: task.Attempts,
	}

	log := logrus.WithFields(logrus.Fields{
		"task_id":   task.ID,
		"task_type": task.Type,
		"reason":    reason,
		"attempts":  task.Attempts,
	})

	taskData, marshalErr := json.Marshal(failedTask)
	if marshalErr != nil {
		log.WithError(marshalErr).Error("Failed to marshal failed task")
		return
	}

	// Store in DLQ with timestamp as score for sorting
	score := float64(failedTask.FailedAt.UnixNano()) / 1e9
	if redisErr := d.client.ZAdd(ctx, d.dlq, &redis.Z{
		Score:  score,
		Member: taskData,
	}).Err(); redisErr != nil {
		log.WithError(redisErr).Error("Failed to send task to DLQ")
		return
	}

	log.WithError(err).Warn("Task moved to DLQ")

	if d.alerter != nil && d.chatID != "" {
		text := fmt.Sprintf("Task %s (%s) moved to DLQ after %d attempt(s): %s: %v",
			task.ID, task.Type, task.Attempts, reason, err)
		if alertErr := d.alerter.SendMessage(d.chatID, text); alertErr != nil {
			log.WithError(alertErr).Warn("Failed to send DLQ alert")
		}
	}
}

// GetFailedTasks retrieves failed tasks from DLQ, newest first
func (d *DefaultDLQHandler) GetFailedTasks(ctx context.Context, limit int) ([]*FailedTask, error) {
	if limit <= 0 {
		limit = 50
	}

	tasks, err := d.client.ZRevRangeByScore(ctx, d.dlq, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   "+inf",
		Count: int64(limit),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get failed tasks: %w", err)
	}

	failedTasks := make([]*FailedTask, 0, len(tasks))
	for _, taskData := range tasks {
		var failedTask FailedTask
		if err := json.Unmarshal([]byte(taskData), &failedTask); err != nil {
			logrus.WithError(err).Warn("Failed to unmarshal failed task")
			continue
		}
		failedTasks = append(failedTasks, &failedTask)
	}

	return failedTasks, nil
}

// RequeueFailedTask moves a failed task back to the main queue for retry
func (d *DefaultDLQHandler) RequeueFailedTask(ctx context.Context, taskID string) error {
	member, failedTask, err := d.find(ctx, taskID)
	if err != nil {
		return err
	}

	// Reset attempt count for retry
	failedTask.Task.Attempts = 0
	failedTask.Task.LastError = ""
	failedTask.Task.ExecuteAt = time.Now()

	taskData, err := json.Marshal(failedTask.Task)
	if err != nil {
		return fmt.Errorf("failed to marshal task for requeue: %w", err)
	}

	pipe := d.client.TxPipeline()
	pipe.LPush(ctx, d.mainQueue, taskData)
	pipe.ZRem(ctx, d.dlq, member)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to requeue task: %w", err)
	}

	logrus.WithField("task_id", taskID).Info("Task requeued from DLQ")
	return nil
}

// DeleteFailedTask permanently removes a failed task from DLQ
func (d *DefaultDLQHandler) DeleteFailedTask(ctx context.Context, taskID string) error {
	member, _, err := d.find(ctx, taskID)
	if err != nil {
		return err
	}

	if err := d.client.ZRem(ctx, d.dlq, member).Err(); err != nil {
		return fmt.Errorf("failed to delete task from DLQ: %w", err)
	}

	logrus.WithField("task_id", taskID).Info("Task deleted from DLQ")
	return nil
}

// find returns the raw zset member holding taskID.
func (d *DefaultDLQHandler) find(ctx context.Context, taskID string) (string, *FailedTask, error) {
	tasks, err := d.client.ZRangeByScore(ctx, d.dlq, &redis.ZRangeBy{
		Min: "-inf",
		Max: "+inf",
	}).Result()
	if err != nil {
		return "", nil, fmt.Errorf("failed to get DLQ tasks: %w", err)
	}

	for _, taskData := range tasks {
		var failedTask FailedTask
		if err := json.Unmarshal([]byte(taskData), &failedTask); err != nil {
			continue
		}
		if failedTask.Task != nil && failedTask.Task.ID == taskID {
			return taskData, &failedTask, nil
		}
	}

	return "", nil, fmt.Errorf("task %s: %w", taskID, ErrTaskNotFound)
}

// GetDLQStats returns statistics about the DLQ
func (d *DefaultDLQHandler) GetDLQStats(ctx context.Context) (*DLQStats, error) {
	count, err := d.client.ZCard(ctx, d.dlq).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get DLQ count: %w", err)
	}

	stats := &DLQStats{QueueSize: count}
	if count == 0 {
		return stats, nil
	}

	oldest, err := d.client.ZRangeWithScores(ctx, d.dlq, 0, 0).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get oldest task: %w", err)
	}
	newest, err := d.client.ZRevRangeWithScores(ctx, d.dlq, 0, 0).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get newest task: %w", err)
	}

	if len(oldest) > 0 {
		stats.OldestFailure = scoreTime(oldest[0].Score)
	}
	if len(newest) > 0 {
		stats.NewestFailure = scoreTime(newest[0].Score)
	}
	return stats, nil
}

// PurgeDLQ clears all tasks from the DLQ
func (d *DefaultDLQHandler) PurgeDLQ(ctx context.Context) (int64, error) {
	count, err := d.client.ZCard(ctx, d.dlq).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to get DLQ count: %w", err)
	}

	if err := d.client.Del(ctx, d.dlq).Err(); err != nil {
		return 0, fmt.Errorf("failed to purge DLQ: %w", err)
	}

	logrus.WithField("count", count).Info("DLQ purged")
	return count, nil
}

func scoreTime(score float64) time.Time {
	sec := int64(score)
	return time.Unix(sec, int64((score-float64(sec))*1e9))
}
