package daemon

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"

	"git.home.luguber.info/inful/docrunner/internal/logfields"
	"git.home.luguber.info/inful/docrunner/internal/observability"
)

// Scheduler wraps gocron for periodic build triggers.
type Scheduler struct {
	scheduler gocron.Scheduler
}

func NewScheduler() (*Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}
	return &Scheduler{scheduler: s}, nil
}

// SchedulePeriodic registers task to run every interval.
func (s *Scheduler) SchedulePeriodic(interval time.Duration, task func()) error {
	_, err := s.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(task),
		gocron.WithName("periodic-build"),
	)
	if err != nil {
		return fmt.Errorf("create periodic build job: %w", err)
	}
	observability.InfoContext(context.Background(), "scheduled periodic builds",
		logfields.DurationMS(float64(interval.Milliseconds())))
	return nil
}

// Start begins dispatching scheduled jobs.
func (s *Scheduler) Start() {
	s.scheduler.Start()
}

// Stop waits for running jobs and shuts the scheduler down.
func (s *Scheduler) Stop() error {
	return s.scheduler.Shutdown()
}
