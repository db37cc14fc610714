package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// Job is the work triggered on every tick.
type Job interface {
	Run(ctx context.Context) error
}

// JobFunc adapts a function to Job.
type JobFunc func(ctx context.Context) error

func (f JobFunc) Run(ctx context.Context) error { return f(ctx) }

// Scheduler triggers a Job at a fixed interval. A tick that fires while the
// previous run is still in progress is skipped, so runs never overlap.
type Scheduler struct {
	name     string
	job      Job
	interval time.Duration

	running atomic.Bool
	skipped atomic.Int64
	wg      sync.WaitGroup
}

func NewScheduler(name string, job Job, interval time.Duration) *Scheduler {
	return &Scheduler{
		name:     name,
		job:      job,
		interval: interval,
	}
}

// Start blocks until ctx is done, then waits for the in-flight run.
func (s *Scheduler) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	logrus.WithFields(logrus.Fields{
		"scheduler": s.name,
		"interval":  s.interval.String(),
	}).Info("Scheduler started")

	for {
		select {
		case <-ticker.C:
			s.Trigger(ctx)
		case <-ctx.Done():
			s.wg.Wait()
			logrus.WithFields(logrus.Fields{
				"scheduler": s.name,
				"skipped":   s.skipped.Load(),
			}).Info("Scheduler stopped")
			return
		}
	}
}

// Trigger starts a run now unless one is already in progress.
// It reports whether a run was started.
func (s *Scheduler) Trigger(ctx context.Context) bool {
	if !s.running.CompareAndSwap(false, true) {
		s.skipped.Add(1)
		logrus.WithField("scheduler", s.name).Warn("Previous run still in progress, skipping tick")
		return false
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.running.Store(false)

		if err := s.job.Run(ctx); err != nil && ctx.Err() == nil {
			logrus.WithField("scheduler", s.name).WithError(err).Error("Scheduled run failed")
		}
	}()
	return true
}

// Wait blocks until the in-flight run, if any, has finished.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

// Skipped returns how many ticks were dropped because of overlap.
func (s *Scheduler) Skipped() int64 {
	return s.skipped.Load()
}
