package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/vervegrand/feedsync/internal/domain"
	"github.com/vervegrand/feedsync/internal/logging"
)

// SyncRunner starts a reconciliation run
type SyncRunner interface {
	RunSync(ctx context.Context, opts domain.SyncOptions) (*domain.SyncSummary, error)
}

// ScheduleParser accepts six-field specs with seconds as well as descriptors like "@every 1h".
var ScheduleParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// Scheduler triggers sync runs on a cron schedule. Ticks that arrive while a
// run is active are dropped.
type Scheduler struct {
	runner     SyncRunner
	options    domain.SyncOptions
	runTimeout time.Duration
	cron       *cron.Cron
	logger     zerolog.Logger

	// ctx is cancelled by Stop so an in-flight run ends early
	ctx    context.Context
	cancel context.CancelFunc
}

// NewScheduler validates spec and registers the sync job.
func NewScheduler(runner SyncRunner, spec string, options domain.SyncOptions, runTimeout time.Duration) (*Scheduler, error) {
	if runTimeout <= 0 {
		runTimeout = 4 * time.Hour
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		ctx:        ctx,
		cancel:     cancel,
		runner:     runner,
		options:    options,
		runTimeout: runTimeout,
		cron:       cron.New(cron.WithParser(ScheduleParser)),
		logger:     logging.Component("scheduler"),
	}

	if _, err := s.cron.AddFunc(spec, s.tick); err != nil {
		cancel()
		return nil, fmt.Errorf("invalid sync schedule %q: %w", spec, err)
	}
	return s, nil
}

// Start begins firing the schedule in the background
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info().Time("next_run", s.Next()).Msg("Scheduler started")
}

// Stop halts the schedule, cancels a running tick and waits for it to return
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	s.cancel()
	<-ctx.Done()
	s.logger.Info().Msg("Scheduler stopped")
}

// Next returns the time of the next scheduled run
func (s *Scheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	if !entries[0].Next.IsZero() {
		return entries[0].Next
	}
	return entries[0].Schedule.Next(time.Now())
}

func (s *Scheduler) tick() {
	ctx, cancel := context.WithTimeout(s.ctx, s.runTimeout)
	defer cancel()

	summary, err := s.runner.RunSync(ctx, s.options)
	switch {
	case errors.Is(err, domain.ErrSyncInProgress):
		s.logger.Warn().Msg("Scheduled run dropped, sync already in progress")
	case err != nil:
		s.logger.Error().Err(err).Msg("Scheduled run failed")
	default:
		s.logger.Info().Str("run_id", summary.RunID).Int("errors", summary.ErrorCount).Msg("Scheduled run finished")
	}
}
