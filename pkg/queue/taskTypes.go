package queue

import (
	"context"
)

// Handler processes one task. A nil error acknowledges the task.
type Handler func(ctx context.Context, task *Task) error

// Queue интерфейс очереди
type Queue interface {
	Publish(ctx context.Context, task *Task) error
	Subscribe(ctx context.Context, handler Handler) error
	Close() error
}
