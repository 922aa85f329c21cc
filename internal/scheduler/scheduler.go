// Package scheduler refreshes the dashboard cache on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Refresher is the part of the cache the scheduler drives.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Scheduler runs periodic cache refreshes. A run that is still going when
// the next tick fires makes that tick a no-op.
type Scheduler struct {
	cron     *cron.Cron
	target   Refresher
	schedule string
	timeout  time.Duration
	logger   *zap.Logger
	mu       sync.Mutex
	runs     int
	failures int
	started  bool
}

// New validates schedule and returns a stopped scheduler. schedule accepts the
// standard five-field syntax and descriptors such as "@every 5m".
func New(target Refresher, schedule string, timeout time.Duration, logger *zap.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if _, err := cron.ParseStandard(schedule); err != nil {
		return nil, fmt.Errorf("invalid refresh schedule %q: %w", schedule, err)
	}
	cl := cronLogger{logger.Sugar()}
	s := &Scheduler{
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		target:   target,
		schedule: schedule,
		timeout:  timeout,
		logger:   logger,
	}
	if _, err := s.cron.AddFunc(schedule, s.runOnce); err != nil {
		return nil, fmt.Errorf("failed to register refresh job: %w", err)
	}
	return s, nil
}

// Start begins firing the refresh job.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true
	s.cron.Start()
	s.logger.Info("Cache refresh scheduler started", zap.String("schedule", s.schedule))
}

// Stop halts the schedule and waits for a running refresh to finish or ctx
// to end, whichever comes first.
func (s *Scheduler) Stop(ctx context.Context) {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	s.mu.Unlock()

	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.logger.Info("Cache refresh scheduler stopped")
	case <-ctx.Done():
		s.logger.Warn("Cache refresh scheduler stop timed out", zap.Error(ctx.Err()))
	}
}

// Next returns when the job fires next. It is zero while stopped.
func (s *Scheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

// Runs returns how many refreshes ran and how many of them failed.
func (s *Scheduler) Runs() (runs, failures int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runs, s.failures
}

func (s *Scheduler) runOnce() {
	ctx := context.Background()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	err := s.target.Refresh(ctx)

	s.mu.Lock()
	s.runs++
	if err != nil {
		s.failures++
	}
	s.mu.Unlock()

	if err != nil {
		s.logger.Error("Scheduled cache refresh failed", zap.Error(err), zap.Duration("elapsed", time.Since(start)))
		return
	}
	s.logger.Info("Scheduled cache refresh complete", zap.Duration("elapsed", time.Since(start)))
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}
