package syncer

import (
	"context"
	"errors"
	"time"

	"github.com/takak2166/promptsync/internal/logger"
)

// Default schedule for the automatic push
const (
	DefaultFirstRun = time.Minute
	DefaultInterval = 24 * time.Hour
)

// Pusher is the part of the orchestrator the scheduler drives
type Pusher interface {
	Push(ctx context.Context) error
}

// Scheduler pushes periodically until its context ends
type Scheduler struct {
	pusher   Pusher
	firstRun time.Duration
	interval time.Duration
}

// NewScheduler runs the first push after firstRun, then every interval
func NewScheduler(p Pusher, firstRun, interval time.Duration) *Scheduler {
	if firstRun <= 0 {
		firstRun = DefaultFirstRun
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Scheduler{pusher: p, firstRun: firstRun, interval: interval}
}

// Run blocks until ctx is done. Push failures are logged and do not stop the schedule.
func (s *Scheduler) Run(ctx context.Context) {
	logger.Info("Scheduled push enabled", map[string]interface{}{
		"first_run": s.firstRun.String(),
		"interval":  s.interval.String(),
	})

	timer := time.NewTimer(s.firstRun)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			s.tick(ctx)
			timer.Reset(s.interval)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	err := s.pusher.Push(ctx)
	switch {
	case err == nil:
	case errors.Is(err, ErrSyncInProgress):
		logger.Info("Scheduled push skipped, sync already running")
	default:
		logger.Error("Scheduled push failed", err)
	}
}
