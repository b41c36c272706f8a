package scheduler

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"
)

// Refresher is the part of the forecast service the scheduler drives.
type Refresher interface {
	RefreshAll(ctx context.Context) int
	PruneSessions() int
}

// Scheduler periodically refreshes session forecasts and prunes idle sessions.
type Scheduler struct {
	scheduler       *gocron.Scheduler
	service         Refresher
	refreshInterval time.Duration
	pruneInterval   time.Duration
	logger          *zap.Logger
}

// New creates a new Scheduler. A zero refreshInterval disables refreshing and
// a zero pruneInterval disables pruning.
func New(service Refresher, refreshInterval, pruneInterval time.Duration, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()
	return &Scheduler{
		scheduler:       s,
		service:         service,
		refreshInterval: refreshInterval,
		pruneInterval:   pruneInterval,
		logger:          logger,
	}
}

// Start schedules the periodic jobs and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	if s.refreshInterval > 0 {
		_, err := s.scheduler.Every(s.refreshInterval).WaitForSchedule().Do(s.refresh)
		if err != nil {
			return err
		}
	}

	if s.pruneInterval > 0 {
		_, err := s.scheduler.Every(s.pruneInterval).WaitForSchedule().Do(s.prune)
		if err != nil {
			return err
		}
	}

	if s.scheduler.Len() == 0 {
		s.logger.Info("Scheduler: nothing to schedule")
		return nil
	}

	s.logger.Info("Scheduler started",
		zap.Duration("refresh_interval", s.refreshInterval),
		zap.Duration("prune_interval", s.pruneInterval))
	s.scheduler.StartAsync()
	return nil
}

// refresh has no overall deadline; each location is bounded by the
// service's refresh timeout.
func (s *Scheduler) refresh() {
	start := time.Now()
	n := s.service.RefreshAll(context.Background())
	s.logger.Info("Scheduled forecast refresh completed",
		zap.Int("sessions", n),
		zap.Duration("duration", time.Since(start)))
}

func (s *Scheduler) prune() {
	if n := s.service.PruneSessions(); n > 0 {
		s.logger.Info("Pruned idle sessions", zap.Int("count", n))
	}
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil && s.scheduler.IsRunning() {
		s.scheduler.Stop()
	}
}
