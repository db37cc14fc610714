package queue

import (
	"math/rand"
	"time"
)

// RetryClassifier reports whether a handler error is transient.
type RetryClassifier func(err error) bool

// RetryManager manages retry logic for failed tasks
type RetryManager struct {
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
	retryable  RetryClassifier
}

// NewRetryManager creates a new RetryManager. A nil classifier treats every error as retryable.
func NewRetryManager(maxRetries int, baseDelay time.Duration, retryable RetryClassifier) *RetryManager {
	if retryable == nil {
		retryable = func(err error) bool { return err != nil }
	}
	return &RetryManager{
		maxRetries: maxRetries,
		baseDelay:  baseDelay,
		maxDelay:   baseDelay * 16, // Maximum 16x base delay
		retryable:  retryable,
	}
}

// ShouldRetry determines if a task should be retried and returns the delay
func (r *RetryManager) ShouldRetry(task *Task, err error) (bool, time.Duration) {
	if task.Attempts >= r.limit(task) {
		return false, 0
	}

	if !r.retryable(err) {
		return false, 0
	}

	return true, r.calculateBackoff(task.Attempts)
}

// IsRetryable exposes the classifier to the queue.
func (r *RetryManager) IsRetryable(err error) bool {
	return r.retryable(err)
}

// MaxRetries returns the default attempt limit.
func (r *RetryManager) MaxRetries() int {
	return r.maxRetries
}

func (r *RetryManager) limit(task *Task) int {
	if task.MaxRetries > 0 {
		return task.MaxRetries
	}
	return r.maxRetries
}

// calculateBackoff calculates exponential backoff delay with jitter
func (r *RetryManager) calculateBackoff(attempt int) time.Duration {
	if attempt <= 0 {
		return r.baseDelay
	}

	// Exponential backoff: base * 2^(attempt-1)
	backoff := r.baseDelay * time.Duration(1<<(attempt-1))

	// Apply jitter (±25%)
	if quarter := int64(backoff / 4); quarter > 0 {
		jitter := time.Duration(rand.Int63n(quarter))
		if rand.Intn(2) == 0 {
			backoff += jitter
		} else {
			backoff -= jitter
		}
	}

	// Cap at maximum delay
	if backoff > r.maxDelay {
		backoff = r.maxDelay
	}

	return backoff
}
