package worker

import (
	"context"
	"sync"
	"time"

	"github.com/ds124wfegd/WB_L3/6/internal/entity"
	"github.com/ds124wfegd/WB_L3/6/internal/service"

	"github.com/sirupsen/logrus"
)

// Locker is a lease shared between service instances.
type Locker interface {
	TryAcquire(ctx context.Context) (string, bool, error)
	Release(ctx context.Context, token string) error
}

// WaitlistSweepWorker runs one sweep over all waitlisted events per call.
// It is driven by pkg/scheduler.
type WaitlistSweepWorker struct {
	waitlistService service.WaitlistService
	lock            Locker

	mu         sync.Mutex
	lastReport *entity.SweepReport
	runs       int
	lockMisses int
}

// NewWaitlistSweepWorker creates the worker. lock may be nil for a single instance deployment.
func NewWaitlistSweepWorker(waitlistService service.WaitlistService, lock Locker) *WaitlistSweepWorker {
	return &WaitlistSweepWorker{
		waitlistService: waitlistService,
		lock:            lock,
	}
}

func (w *WaitlistSweepWorker) Run(ctx context.Context) error {
	if w.lock != nil {
		token, ok, err := w.lock.TryAcquire(ctx)
		if err != nil {
			return err
		}
		if !ok {
			w.mu.Lock()
			w.lockMisses++
			w.mu.Unlock()
			logrus.Debug("Waitlist sweep is running on another instance")
			return nil
		}
		defer func() {
			// освобождаем с отдельным контекстом: ctx мог быть отменен
			releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := w.lock.Release(releaseCtx, token); err != nil {
				logrus.WithError(err).Warn("Failed to release sweep lock")
			}
		}()
	}

	report, err := w.waitlistService.SweepAll(ctx)
	if err != nil {
		return err
	}

	w.mu.Lock()
	w.runs++
	w.lastReport = report
	w.mu.Unlock()

	if report.Skipped {
		logrus.Warn("Waitlist sweep skipped, previous sweep still running")
		return nil
	}

	entry := logrus.WithFields(logrus.Fields{
		"events":   report.EventsScanned,
		"promoted": report.Promoted,
		"failed":   report.Failed,
		"duration": report.Duration.String(),
	})
	if report.Failed > 0 {
		entry.Warn("Waitlist sweep completed with failures")
	} else if report.Promoted > 0 {
		entry.Info("Waitlist sweep completed")
	} else {
		entry.Debug("Waitlist sweep completed")
	}
	return nil
}

// GetStats возвращает статистику работы воркера
func (w *WaitlistSweepWorker) GetStats() map[string]interface{} {
	w.mu.Lock()
	defer w.mu.Unlock()

	stats := map[string]interface{}{
		"worker_type": "waitlist_sweep",
		"runs":        w.runs,
		"lock_misses": w.lockMisses,
	}
	if w.lastReport != nil {
		stats["last_run"] = w.lastReport
	}
	return stats
}
