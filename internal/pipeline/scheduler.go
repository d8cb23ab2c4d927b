package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// Runner executes one pipeline run.
type Runner interface {
	Run(ctx context.Context) (*RunReport, error)
}

// SchedulerConfig holds scheduler settings.
type SchedulerConfig struct {
	RunOnStart bool           // fire a run immediately instead of waiting for midnight
	Location   *time.Location // day boundary; nil means time.Local
}

// Scheduler fires a run at every local midnight.
type Scheduler struct {
	cfg    SchedulerConfig
	runner Runner
	logger *slog.Logger
	now    func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewScheduler creates a new Scheduler.
func NewScheduler(cfg SchedulerConfig, runner Runner, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	return &Scheduler{
		cfg:    cfg,
		runner: runner,
		logger: logger,
		now:    time.Now,
	}
}

// Start begins the scheduling loop.
func (s *Scheduler) Start(ctx context.Context) error {
	s.ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(1)
	go s.loop()

	s.logger.Info("scheduler started",
		"run_on_start", s.cfg.RunOnStart,
		"next_run", NextRun(s.now(), s.cfg.Location),
	)

	return nil
}

// Stop cancels any in-flight run and waits for the loop to exit.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) loop() {
	defer s.wg.Done()

	if s.cfg.RunOnStart {
		s.trigger()
	}

	for {
		next := NextRun(s.now(), s.cfg.Location)
		timer := time.NewTimer(time.Until(next))

		select {
		case <-s.ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			s.trigger()
		}
	}
}

func (s *Scheduler) trigger() {
	report, err := s.runner.Run(s.ctx)
	if err != nil {
		if errors.Is(err, ErrRunInProgress) {
			s.logger.Warn("previous run still active, skipping this slot")
			return
		}
		s.logger.Error("pipeline run error", "error", err)
		return
	}
	if report.Status == StatusFailed {
		s.logger.Warn("pipeline run failed", "run_id", report.Run.ID)
	}
}

// NextRun returns the first midnight in loc strictly after now.
func NextRun(now time.Time, loc *time.Location) time.Time {
	t := now.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day()+1, 0, 0, 0, 0, loc)
}
