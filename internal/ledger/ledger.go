package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/rickgao/coincap-data/internal/pipeline"
)

// DB is the part of *pgxpool.Pool the ledger uses.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Ledger writes run reports to PostgreSQL. It implements pipeline.Recorder.
type Ledger struct {
	db     DB
	logger *slog.Logger
}

// New creates a Ledger over an open pool.
func New(db DB, logger *slog.Logger) *Ledger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ledger{db: db, logger: logger}
}

// EnsureSchema creates the ledger tables if they do not exist.
func (l *Ledger) EnsureSchema(ctx context.Context) error {
	if _, err := l.db.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create ledger schema: %w", err)
	}
	return nil
}

// runRow is one pipeline_runs row.
type runRow struct {
	RunID      uuid.UUID
	RunDate    string
	Status     string
	StartedAt  time.Time
	FinishedAt time.Time
}

// taskRow is one pipeline_task_results row.
type taskRow struct {
	RunID      uuid.UUID
	Position   int
	Task       string
	Status     string
	Attempts   int
	Message    string
	Error      string
	StartedAt  time.Time
	FinishedAt time.Time
}

// rows converts a report into the rows written for it.
func rows(report *pipeline.RunReport) (runRow, []taskRow) {
	run := runRow{
		RunID:      report.Run.ID,
		RunDate:    report.Run.Date,
		Status:     report.Status.String(),
		StartedAt:  report.Run.StartedAt.UTC(),
		FinishedAt: report.FinishedAt.UTC(),
	}

	tasks := make([]taskRow, 0, len(report.Tasks))
	for i, t := range report.Tasks {
		row := taskRow{
			RunID:      report.Run.ID,
			Position:   i,
			Task:       t.Task,
			Status:     t.Result.Status.String(),
			Attempts:   t.Attempts,
			Message:    t.Result.Message,
			StartedAt:  t.StartedAt.UTC(),
			FinishedAt: t.FinishedAt.UTC(),
		}
		if t.Result.Err != nil {
			row.Error = t.Result.Err.Error()
		}
		tasks = append(tasks, row)
	}
	return run, tasks
}

// RecordRun implements pipeline.Recorder.
func (l *Ledger) RecordRun(ctx context.Context, report *pipeline.RunReport) error {
	run, tasks := rows(report)

	tx, err := l.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	batch.Queue(insertRunSQL, run.RunID, run.RunDate, run.Status, run.StartedAt, run.FinishedAt)
	for _, r := range tasks {
		batch.Queue(insertTaskSQL,
			r.RunID, r.Position, r.Task, r.Status, r.Attempts,
			r.Message, r.Error, r.StartedAt, r.FinishedAt,
		)
	}

	results := tx.SendBatch(ctx, batch)
	for i := 0; i < batch.Len(); i++ {
		if _, err := results.Exec(); err != nil {
			results.Close()
			return fmt.Errorf("insert ledger row %d: %w", i, err)
		}
	}
	if err := results.Close(); err != nil {
		return fmt.Errorf("close batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	l.logger.Debug("recorded run",
		"run_id", run.RunID,
		"status", run.Status,
		"tasks", len(tasks),
	)
	return nil
}

// RunSummary is a pipeline_runs row as read back.
type RunSummary struct {
	ID         uuid.UUID
	Date       string
	Status     string
	StartedAt  time.Time
	FinishedAt time.Time
}

// Duration returns how long the run took.
func (s RunSummary) Duration() time.Duration {
	return s.FinishedAt.Sub(s.StartedAt)
}

// RecentRuns returns up to limit runs, newest first.
func (l *Ledger) RecentRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	rs, err := l.db.Query(ctx, recentRunsSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}

	out, err := pgx.CollectRows(rs, func(row pgx.CollectableRow) (RunSummary, error) {
		var s RunSummary
		err := row.Scan(&s.ID, &s.Date, &s.Status, &s.StartedAt, &s.FinishedAt)
		return s, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan runs: %w", err)
	}
	return out, nil
}
