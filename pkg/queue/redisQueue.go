package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	defaultMaxRetries     = 3
	defaultBaseDelay      = 2 * time.Second
	defaultQueueTimeout   = 5 * time.Second
	defaultDelayedPoll    = time.Second
	defaultAlertThreshold = 1000
)

var ErrTaskNotFound = errors.New("task not found")

// RedisQueue implements Queue on Redis lists. A task moves atomically from
// the main list to the processing list and is removed from there only after
// it has been acknowledged, retried or dead-lettered, so a crash in between
// leaves it for RecoverProcessing.
type RedisQueue struct {
	client          *redis.Client
	mainQueue       string
	delayedQueue    string
	processingQueue string
	dlq             string
	metricsPrefix   string
	retryManager    *RetryManager
	dlqHandler      DLQHandler
	config          *RedisQueueConfig
	stopChan        chan struct{}
	stopOnce        sync.Once
	wg              sync.WaitGroup
}

// RedisQueueConfig contains configuration for RedisQueue
type RedisQueueConfig struct {
	// Key prefix, e.g. "ticketing"
	Prefix string

	// Behavior
	MaxRetries          int
	BaseDelay           time.Duration
	QueueTimeout        time.Duration
	DelayedPollInterval time.Duration
	AlertThreshold      int
	EnableMetrics       bool
}

// DefaultRedisQueueConfig returns default configuration
func DefaultRedisQueueConfig() *RedisQueueConfig {
	return &RedisQueueConfig{
		Prefix:              "ticketing",
		MaxRetries:          defaultMaxRetries,
		BaseDelay:           defaultBaseDelay,
		QueueTimeout:        defaultQueueTimeout,
		DelayedPollInterval: defaultDelayedPoll,
		AlertThreshold:      defaultAlertThreshold,
		EnableMetrics:       true,
	}
}

// Key names derived from the prefix.
func (c *RedisQueueConfig) MainQueue() string       { return c.Prefix + ":tasks" }
func (c *RedisQueueConfig) DelayedQueue() string    { return c.Prefix + ":tasks:delayed" }
func (c *RedisQueueConfig) ProcessingQueue() string { return c.Prefix + ":tasks:processing" }
func (c *RedisQueueConfig) DLQ() string             { return c.Prefix + ":dlq" }

// NewRedisQueue creates a new RedisQueue on an already connected client.
func NewRedisQueue(client *redis.Client, cfg *RedisQueueConfig, retryManager *RetryManager, dlqHandler DLQHandler) *RedisQueue {
	if cfg == nil {
		cfg = DefaultRedisQueueConfig()
	}
	if cfg.QueueTimeout <= 0 {
		cfg.QueueTimeout = defaultQueueTimeout
	}
	if cfg.DelayedPollInterval <= 0 {
		cfg.DelayedPollInterval = defaultDelayedPoll
	}

	if retryManager == nil {
		retryManager = NewRetryManager(cfg.MaxRetries, cfg.BaseDelay, nil)
	}

	if dlqHandler == nil {
		dlqHandler = NewDefaultDLQHandler(client, cfg.DLQ(), cfg.MainQueue())
	}

	queue := &RedisQueue{
		client:          client,
		mainQueue:       cfg.MainQueue(),
		delayedQueue:    cfg.DelayedQueue(),
		processingQueue: cfg.ProcessingQueue(),
		dlq:             cfg.DLQ(),
		metricsPrefix:   cfg.Prefix + ":metrics:",
		retryManager:    retryManager,
		dlqHandler:      dlqHandler,
		config:          cfg,
		stopChan:        make(chan struct{}),
	}

	logrus.WithFields(logrus.Fields{
		"main":    queue.mainQueue,
		"delayed": queue.delayedQueue,
		"dlq":     queue.dlq,
	}).Info("RedisQueue initialized")

	return queue
}

// Publish sends a task to the queue
func (r *RedisQueue) Publish(ctx context.Context, task *Task) error {
	if task == nil {
		return fmt.Errorf("task cannot be nil")
	}

	// Validate and set default values
	if err := r.validateTask(task); err != nil {
		return fmt.Errorf("invalid task: %w", err)
	}

	taskData, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to marshal task: %w", err)
	}

	// Use Redis Sorted Set for delayed tasks
	if task.ExecuteAt.After(time.Now()) {
		if err := r.client.ZAdd(ctx, r.delayedQueue, &redis.Z{
			Score:  timeScore(task.ExecuteAt),
			Member: taskData,
		}).Err(); err != nil {
			return fmt.Errorf("failed to publish delayed task: %w", err)
		}

		r.incrementMetric(ctx, "tasks_delayed")
		logrus.WithFields(logrus.Fields{
			"task_id":    task.ID,
			"execute_at": task.ExecuteAt.Format(time.RFC3339),
		}).Debug("Task scheduled")
		return nil
	}

	// Use Redis List for immediate tasks
	if err := r.client.LPush(ctx, r.mainQueue, taskData).Err(); err != nil {
		return fmt.Errorf("failed to publish immediate task: %w", err)
	}

	r.incrementMetric(ctx, "tasks_queued")
	logrus.WithField("task_id", task.ID).Debug("Task published to main queue")
	return nil
}

// Subscribe starts consuming tasks from the queue. Tasks orphaned in the
// processing list by a previous run are redelivered first.
func (r *RedisQueue) Subscribe(ctx context.Context, handler Handler) error {
	if handler == nil {
		return fmt.Errorf("handler cannot be nil")
	}

	recovered, err := r.RecoverProcessing(ctx)
	if err != nil {
		return err
	}
	if recovered > 0 {
		logrus.WithField("count", recovered).Warn("Redelivering tasks left in processing queue")
	}

	// Start background processors
	r.wg.Add(3)
	go r.processDelayedTasks(ctx)
	go r.processMainQueue(ctx, handler)
	go r.monitorQueueMetrics(ctx)

	logrus.Info("RedisQueue subscriber started")
	return nil
}

// RecoverProcessing moves every task from the processing list back to the
// main list. Only call it while no consumer is running.
func (r *RedisQueue) RecoverProcessing(ctx context.Context) (int, error) {
	count := 0
	for {
		err := r.client.RPopLPush(ctx, r.processingQueue, r.mainQueue).Err()
		if errors.Is(err, redis.Nil) {
			return count, nil
		}
		if err != nil {
			return count, fmt.Errorf("failed to recover processing queue: %w", err)
		}
		count++
	}
}

// processMainQueue processes tasks from the main queue
func (r *RedisQueue) processMainQueue(ctx context.Context, handler Handler) {
	defer r.wg.Done()

	for {
		select {
		case <-ctx.Done():
			logrus.Info("Main queue processor stopped by context")
			return
		case <-r.stopChan:
			logrus.Info("Main queue processor stopped")
			return
		default:
			if err := r.processNext(ctx, handler); err != nil {
				if ctx.Err() != nil {
					continue
				}
				logrus.WithError(err).Error("Error processing task")
				time.Sleep(time.Second) // Backoff on error
			}
		}
	}
}

// processNext takes one task and settles it: acknowledged on success,
// rescheduled on a retryable failure, dead-lettered otherwise.
func (r *RedisQueue) processNext(ctx context.Context, handler Handler) error {
	// Move task from main queue to processing queue atomically
	taskData, err := r.client.BRPopLPush(ctx, r.mainQueue, r.processingQueue, r.config.QueueTimeout).Result()
	if errors.Is(err, redis.Nil) {
		return nil // Timeout, no tasks
	}
	if err != nil {
		return fmt.Errorf("failed to move task to processing queue: %w", err)
	}

	var task Task
	if err := json.Unmarshal([]byte(taskData), &task); err != nil {
		r.moveToDLQ(ctx, taskData, fmt.Errorf("invalid task format: %w", err))
		return r.ack(ctx, taskData)
	}

	task.Attempts++
	startTime := time.Now()
	handlerErr := handler(ctx, &task)

	if handlerErr == nil {
		r.recordTaskSuccess(ctx, &task, time.Since(startTime))
		logrus.WithFields(logrus.Fields{
			"task_id":  task.ID,
			"attempts": task.Attempts,
		}).Debug("Task completed")
		return r.ack(ctx, taskData)
	}

	if ctx.Err() != nil {
		// Shutting down: leave the task in the processing queue for redelivery
		return nil
	}

	r.recordTaskFailure(ctx, &task)
	task.LastError = handlerErr.Error()

	if retry, delay := r.retryManager.ShouldRetry(&task, handlerErr); retry {
		logrus.WithFields(logrus.Fields{
			"task_id":  task.ID,
			"attempts": task.Attempts,
			"delay":    delay,
		}).WithError(handlerErr).Warn("Task failed, scheduling retry")
		return r.reschedule(ctx, taskData, &task, delay)
	}

	reason := ReasonRetriesExhausted
	if !r.retryManager.IsRetryable(handlerErr) {
		reason = ReasonTerminal
	}
	r.dlqHandler.HandleFailedTask(ctx, &task, reason, handlerErr)
	r.incrementMetric(ctx, "tasks_dlq")
	return r.ack(ctx, taskData)
}

// ack removes a settled task from the processing queue
func (r *RedisQueue) ack(ctx context.Context, taskData string) error {
	if err := r.client.LRem(ctx, r.processingQueue, 1, taskData).Err(); err != nil {
		return fmt.Errorf("failed to remove task from processing queue: %w", err)
	}
	return nil
}

// reschedule swaps the in-flight copy of a task for a delayed one in a single MULTI.
func (r *RedisQueue) reschedule(ctx context.Context, taskData string, task *Task, delay time.Duration) error {
	task.ExecuteAt = time.Now().Add(delay)
	updated, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to marshal task for retry: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.ZAdd(ctx, r.delayedQueue, &redis.Z{Score: timeScore(task.ExecuteAt), Member: updated})
	pipe.LRem(ctx, r.processingQueue, 1, taskData)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to reschedule task: %w", err)
	}

	r.incrementMetric(ctx, "tasks_retried")
	return nil
}

// processDelayedTasks moves ready delayed tasks to main queue
func (r *RedisQueue) processDelayedTasks(ctx context.Context) {
	defer r.wg.Done()

	ticker := time.NewTicker(r.config.DelayedPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.stopChan:
			return
		case <-ticker.C:
			if _, err := r.moveReadyDelayedTasks(ctx); err != nil && ctx.Err() == nil {
				logrus.WithError(err).Error("Failed to process delayed tasks")
			}
		}
	}
}

// moveReadyDelayedTasks moves ready delayed tasks to main queue
func (r *RedisQueue) moveReadyDelayedTasks(ctx context.Context) (int, error) {
	maxScore := fmt.Sprintf("%f", timeScore(time.Now()))

	// Get tasks that are ready to execute
	tasks, err := r.client.ZRangeByScore(ctx, r.delayedQueue, &redis.ZRangeBy{
		Min: "-inf",
		Max: maxScore,
	}).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to get delayed tasks: %w", err)
	}

	if len(tasks) == 0 {
		return 0, nil
	}

	// Move to main queue; ZRem per member so tasks added meanwhile stay put
	pipe := r.client.TxPipeline()
	for _, taskData := range tasks {
		pipe.LPush(ctx, r.mainQueue, taskData)
		pipe.ZRem(ctx, r.delayedQueue, taskData)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("failed to move delayed tasks: %w", err)
	}

	r.incrementMetricBy(ctx, "tasks_delayed_processed", int64(len(tasks)))
	return len(tasks), nil
}

// moveToDLQ moves a task that could not be decoded to Dead Letter Queue
func (r *RedisQueue) moveToDLQ(ctx context.Context, taskData string, err error) {
	failedTask := &Task{
		ID:        "corrupted_" + uuid.NewString(),
		Type:      TaskTypeCorrupted,
		Data:      map[string]interface{}{"raw_data": taskData},
		CreatedAt: time.Now(),
	}
	r.dlqHandler.HandleFailedTask(ctx, failedTask, ReasonCorrupted, err)
	r.incrementMetric(ctx, "tasks_dlq")
}

// validateTask validates task structure and sets defaults
func (r *RedisQueue) validateTask(task *Task) error {
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	if task.MaxRetries == 0 {
		task.MaxRetries = r.retryManager.MaxRetries()
	}
	if task.CreatedAt.IsZero() {
		task.CreatedAt = time.Now()
	}
	if task.ExecuteAt.IsZero() {
		task.ExecuteAt = task.CreatedAt
	}

	return task.Validate()
}

// monitorQueueMetrics monitors queue metrics and health
func (r *RedisQueue) monitorQueueMetrics(ctx context.Context) {
	defer r.wg.Done()

	if !r.config.EnableMetrics {
		return
	}

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.stopChan:
			return
		case <-ticker.C:
			r.collectQueueMetrics(ctx)
		}
	}
}

// collectQueueMetrics stores a snapshot of queue lengths and warns on backlog
func (r *RedisQueue) collectQueueMetrics(ctx context.Context) {
	stats, err := r.GetQueueStats(ctx)
	if err != nil {
		logrus.WithError(err).Warn("Failed to collect queue metrics")
		return
	}

	if metricsData, err := json.Marshal(stats); err == nil {
		r.client.Set(ctx, r.metricsPrefix+"snapshot", metricsData, 2*time.Minute)
	}

	if stats.MainQueue > int64(r.config.AlertThreshold) {
		logrus.WithFields(logrus.Fields{
			"size":      stats.MainQueue,
			"threshold": r.config.AlertThreshold,
		}).Warn("Main queue size exceeds threshold")
	}
}

// incrementMetric increments a counter metric
func (r *RedisQueue) incrementMetric(ctx context.Context, metric string) {
	r.incrementMetricBy(ctx, metric, 1)
}

// incrementMetricBy increments a counter metric by specific value
func (r *RedisQueue) incrementMetricBy(ctx context.Context, metric string, value int64) {
	if !r.config.EnableMetrics {
		return
	}

	key := r.metricsPrefix + metric
	pipe := r.client.Pipeline()
	pipe.IncrBy(ctx, key, value)
	pipe.Expire(ctx, key, 24*time.Hour)
	pipe.Exec(ctx)
}

// recordTaskSuccess records successful task execution metrics
func (r *RedisQueue) recordTaskSuccess(ctx context.Context, task *Task, duration time.Duration) {
	if !r.config.EnableMetrics {
		return
	}
	r.incrementMetric(ctx, "tasks_success")
	r.incrementMetric(ctx, fmt.Sprintf("tasks_success_%s", task.Type))

	// Record execution time
	r.client.HIncrBy(ctx, r.metricsPrefix+"task_timing", string(task.Type), duration.Milliseconds())
}

// recordTaskFailure records failed task execution metrics
func (r *RedisQueue) recordTaskFailure(ctx context.Context, task *Task) {
	r.incrementMetric(ctx, "tasks_failure")
	r.incrementMetric(ctx, fmt.Sprintf("tasks_failure_%s", task.Type))
}

// GetQueueStats returns current queue statistics
func (r *RedisQueue) GetQueueStats(ctx context.Context) (*QueueStats, error) {
	pipe := r.client.Pipeline()

	mainLen := pipe.LLen(ctx, r.mainQueue)
	delayedLen := pipe.ZCard(ctx, r.delayedQueue)
	processingLen := pipe.LLen(ctx, r.processingQueue)
	dlqLen := pipe.ZCard(ctx, r.dlq)

	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to get queue stats: %w", err)
	}

	return &QueueStats{
		MainQueue:       mainLen.Val(),
		DelayedQueue:    delayedLen.Val(),
		ProcessingQueue: processingLen.Val(),
		DLQ:             dlqLen.Val(),
		Timestamp:       time.Now(),
	}, nil
}

// Close stops the consumers and waits for them. The Redis client is owned by the caller.
func (r *RedisQueue) Close() error {
	r.stopOnce.Do(func() {
		close(r.stopChan)
	})
	r.wg.Wait()

	logrus.Info("RedisQueue closed")
	return nil
}

// HealthCheck performs a health check on the queue
func (r *RedisQueue) HealthCheck(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis connection failed: %w", err)
	}
	return nil
}

// QueueStats contains statistics about queue state
type QueueStats struct {
	MainQueue       int64     `json:"main_queue"`
	DelayedQueue    int64     `json:"delayed_queue"`
	ProcessingQueue int64     `json:"processing_queue"`
	DLQ             int64     `json:"dlq"`
	Timestamp       time.Time `json:"timestamp"`
}

func timeScore(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}
