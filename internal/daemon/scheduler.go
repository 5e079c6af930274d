package daemon

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"

	"git.home.luguber.info/inful/docmake/internal/logfields"
)

// Scheduler wraps gocron for periodic full rebuilds.
type Scheduler struct {
	scheduler gocron.Scheduler
}

// NewScheduler creates a new scheduler instance.
func NewScheduler() (*Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}
	return &Scheduler{scheduler: s}, nil
}

// ScheduleRebuild registers a periodic rebuild task.
func (s *Scheduler) ScheduleRebuild(interval time.Duration, task func()) (string, error) {
	job, err := s.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(task),
		gocron.WithName("scheduled-rebuild"),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create rebuild job: %w", err)
	}
	slog.Info("Scheduled periodic rebuild",
		logfields.ScheduleName("scheduled-rebuild"),
		slog.Duration("interval", interval))
	return job.ID().String(), nil
}

// Start begins the scheduler.
func (s *Scheduler) Start() {
	s.scheduler.Start()
}

// Stop gracefully shuts down the scheduler.
func (s *Scheduler) Stop() error {
	return s.scheduler.Shutdown()
}
