package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"pricetracker/internal/tracker"
	"pricetracker/logger"
)

// Sweeper is the periodic job the scheduler drives
type Sweeper interface {
	Sweep(ctx context.Context) (tracker.SweepStats, error)
}

// Scheduler runs the price sweep on a fixed interval. A tick that
// arrives while the previous sweep is still running is skipped, not
// queued.
type Scheduler struct {
	cron    *cron.Cron
	sweeper Sweeper
	log     *logger.Logger
}

// New creates a scheduler that sweeps every interval
func New(sweeper Sweeper, interval time.Duration) (*Scheduler, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("sweep interval must be positive, got %s", interval)
	}

	s := &Scheduler{
		sweeper: sweeper,
		log:     logger.ForComponent("scheduler"),
	}

	c := cron.New(cron.WithChain(
		cron.Recover(cronLogger{s.log}),
		cron.SkipIfStillRunning(cronLogger{s.log}),
	))

	spec := fmt.Sprintf("@every %s", interval)
	if _, err := c.AddFunc(spec, s.runSweep); err != nil {
		return nil, fmt.Errorf("failed to schedule sweep: %w", err)
	}

	s.cron = c
	return s, nil
}

// Start begins ticking in the background
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info().Msg("Sweep scheduler started")
}

// Stop stops ticking and waits for a running sweep to finish
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info().Msg("Sweep scheduler stopped")
}

func (s *Scheduler) runSweep() {
	stats, err := s.sweeper.Sweep(context.Background())
	if err != nil {
		if errors.Is(err, tracker.ErrSweepInProgress) {
			s.log.Warn().Msg("Skipping sweep, previous run still in progress")
			return
		}
		s.log.WithError(err).Error().Msg("Scheduled sweep failed")
		return
	}

	s.log.Info().
		Int("products", stats.Products).
		Int("updated", stats.Updated).
		Int("alertsSent", stats.AlertsSent).
		Int("failed", stats.Failed).
		Msg("Scheduled sweep completed")
}

// cronLogger adapts the zerolog logger to cron's logging interface
type cronLogger struct {
	log *logger.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.log.Debug().Msgf("%s %v", msg, keysAndValues)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.log.WithError(err).Error().Msgf("%s %v", msg, keysAndValues)
}
