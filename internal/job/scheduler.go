package job

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Schedule names a job kind and how often it should be enqueued.
// A zero or negative interval disables the schedule.
type Schedule struct {
	Kind     string
	Interval time.Duration
}

// Scheduler periodically enqueues the configured job kinds. It replaces an
// external beat process: each schedule runs on its own ticker and submits
// through the enqueuer, so scheduled work flows through the same persistent
// queue, retry and recovery path as request-triggered jobs.
type Scheduler struct {
	enqueuer   Enqueuer
	schedules  []Schedule
	ctx        context.Context
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
	logger     *slog.Logger
}

// NewScheduler creates a scheduler that enqueues through the given enqueuer.
func NewScheduler(enqueuer Enqueuer, schedules []Schedule, logger *slog.Logger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		enqueuer:   enqueuer,
		schedules:  schedules,
		ctx:        ctx,
		cancelFunc: cancel,
		logger:     logger.With(slog.String("component", "job_scheduler")),
	}
}

// Start launches one ticker goroutine per enabled schedule.
func (s *Scheduler) Start() {
	for _, schedule := range s.schedules {
		if schedule.Interval <= 0 {
			s.logger.Info("schedule disabled", "job_kind", schedule.Kind)
			continue
		}

		s.wg.Add(1)
		go s.run(schedule)
	}
}

// Stop cancels all schedules and waits for the ticker goroutines to exit.
func (s *Scheduler) Stop() {
	s.cancelFunc()
	s.wg.Wait()
}

func (s *Scheduler) run(schedule Schedule) {
	defer s.wg.Done()

	s.logger.Info("schedule started",
		"job_kind", schedule.Kind,
		"interval", schedule.Interval.String())

	ticker := time.NewTicker(schedule.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			s.logger.Debug("schedule stopped", "job_kind", schedule.Kind)
			return

		case <-ticker.C:
			if err := s.enqueuer.Enqueue(s.ctx, schedule.Kind, nil); err != nil {
				s.logger.Error("failed to enqueue scheduled job",
					"job_kind", schedule.Kind,
					"error", err)
			}
		}
	}
}
