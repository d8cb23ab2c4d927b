package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/rickgao/coincap-data/internal/config"
	"github.com/rickgao/coincap-data/internal/dataset"
	"github.com/rickgao/coincap-data/internal/objstore"
)

// Task names of the daily graph.
const (
	TaskExtract         = "data_extract"
	TaskCurrencyMarkets = "currency_markets_data"
	TaskTransform       = "transform_data"
	TaskHistory         = "currencies_historic_data"
	TaskDashboard       = "run_dashboard"
)

var (
	// ErrRunInProgress is returned by Run while another run is active.
	ErrRunInProgress = errors.New("pipeline: run already in progress")
	// ErrUpstreamFailed marks a step that did not run because its predecessor failed.
	ErrUpstreamFailed = errors.New("pipeline: upstream task failed")
)

// Trigger decides whether a step runs given its predecessor's status.
type Trigger int

const (
	// AllSuccess runs only after a successful predecessor.
	AllSuccess Trigger = iota
	// NoneFailed runs after a successful or skipped predecessor.
	NoneFailed
)

// Step is a task and its trigger rule.
type Step struct {
	Task    Task
	Trigger Trigger
}

// Recorder persists run reports.
type Recorder interface {
	RecordRun(ctx context.Context, report *RunReport) error
}

// Config holds graph execution settings.
type Config struct {
	Retries    int           // extra attempts for a failed task
	RetryDelay time.Duration // fixed wait between attempts
	RunTimeout time.Duration // hard limit on a whole run
}

// Pipeline executes a linear chain of steps.
type Pipeline struct {
	cfg      Config
	steps    []Step
	recorder Recorder
	logger   *slog.Logger
	now      func() time.Time

	running atomic.Bool
}

// New creates a Pipeline. recorder may be nil.
func New(cfg Config, steps []Step, recorder Recorder, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		cfg:      cfg,
		steps:    steps,
		recorder: recorder,
		logger:   logger,
		now:      time.Now,
	}
}

// DailySteps builds the daily chain:
// extract -> currency markets -> transform -> history -> dashboard.
func DailySteps(cfg config.PipelineConfig, fetcher Fetcher, store objstore.Store, logger *slog.Logger) []Step {
	return []Step{
		{Task: NewIngestTask(TaskExtract, fetcher, store, dataset.Core(), logger)},
		{Task: NewIngestTask(TaskCurrencyMarkets, fetcher, store, dataset.CurrencyMarkets(cfg.Currencies), logger)},
		{Task: NewTransformTask(store, logger)},
		{Task: NewHistoryTask(fetcher, store, cfg.Currencies, cfg.HistoryInterval, logger)},
		{Task: NewLaunchTask(cfg.DashboardCommand, logger), Trigger: NoneFailed},
	}
}

// Run executes every step once, in order, under the run timeout.
func (p *Pipeline) Run(ctx context.Context) (*RunReport, error) {
	if !p.running.CompareAndSwap(false, true) {
		return nil, ErrRunInProgress
	}
	defer p.running.Store(false)

	start := p.now()
	run := Run{
		ID:        uuid.New(),
		Date:      dataset.FormatDate(start),
		StartedAt: start,
	}
	logger := p.logger.With("run_id", run.ID.String(), "date", run.Date)
	logger.Info("pipeline run started", "steps", len(p.steps), "timeout", p.cfg.RunTimeout)

	runCtx := ctx
	if p.cfg.RunTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, p.cfg.RunTimeout)
		defer cancel()
	}

	report := &RunReport{Run: run, Status: StatusSuccess}
	prev := StatusSuccess
	for _, step := range p.steps {
		tr := p.runStep(runCtx, run, step, prev, logger)
		report.Tasks = append(report.Tasks, tr)
		prev = tr.Result.Status
		if prev == StatusFailed {
			report.Status = StatusFailed
		}
	}
	report.FinishedAt = p.now()

	logger.Info("pipeline run finished",
		"status", report.Status,
		"duration", report.FinishedAt.Sub(report.Run.StartedAt),
	)

	if p.recorder != nil {
		recCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		if err := p.recorder.RecordRun(recCtx, report); err != nil {
			logger.Error("failed to record run", "error", err)
		}
	}

	return report, nil
}

// runStep applies the trigger rule, then runs the task with retries.
func (p *Pipeline) runStep(ctx context.Context, run Run, step Step, prev Status, logger *slog.Logger) TaskReport {
	name := step.Task.Name()
	tr := TaskReport{Task: name, StartedAt: p.now()}

	switch {
	case prev == StatusFailed:
		tr.Result = Fail(ErrUpstreamFailed)
	case prev == StatusSkipped && step.Trigger == AllSuccess:
		tr.Result = Skip("upstream task skipped")
	default:
		tr.Result, tr.Attempts = p.runWithRetry(ctx, run, step.Task, logger)
	}
	tr.FinishedAt = p.now()

	attrs := []any{
		"task", name,
		"status", tr.Result.Status,
		"attempts", tr.Attempts,
		"duration", tr.FinishedAt.Sub(tr.StartedAt),
	}
	switch tr.Result.Status {
	case StatusFailed:
		logger.Error("task failed", append(attrs, "error", tr.Result.Err)...)
	case StatusSkipped:
		logger.Info("task skipped", append(attrs, "reason", tr.Result.Message)...)
	default:
		logger.Info("task succeeded", append(attrs, "summary", tr.Result.Message)...)
	}
	return tr
}

func (p *Pipeline) runWithRetry(ctx context.Context, run Run, task Task, logger *slog.Logger) (Result, int) {
	var res Result
	attempts := 0
	for attempt := 0; attempt <= p.cfg.Retries; attempt++ {
		if attempt > 0 {
			logger.Warn("retrying task",
				"task", task.Name(),
				"attempt", attempt,
				"delay", p.cfg.RetryDelay,
				"error", res.Err,
			)
			select {
			case <-ctx.Done():
				return Fail(fmt.Errorf("%w (last error: %v)", ctx.Err(), res.Err)), attempts
			case <-time.After(p.cfg.RetryDelay):
			}
		}

		attempts++
		res = task.Run(ctx, run)
		if res.Status != StatusFailed {
			return res, attempts
		}
		if ctx.Err() != nil {
			break
		}
	}
	return res, attempts
}
