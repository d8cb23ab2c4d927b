package ledger

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pashagolub/pgxmock/v4"

	"github.com/rickgao/coincap-data/internal/pipeline"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("NewPool() error = %v", err)
	}
	t.Cleanup(mock.Close)
	return mock
}

// testReport returns a two-task run finished 90s after start.
func testReport() *pipeline.RunReport {
	start := time.Date(2023, 11, 14, 0, 0, 5, 0, time.UTC)
	return &pipeline.RunReport{
		Run: pipeline.Run{
			ID:        uuid.MustParse("0b6f3c1e-2f47-4f0a-8d6c-5b0a1e2d3c4f"),
			Date:      "2023_11_14",
			StartedAt: start,
		},
		FinishedAt: start.Add(90 * time.Second),
		Status:     pipeline.StatusSuccess,
		Tasks: []pipeline.TaskReport{
			{
				Task:       pipeline.TaskExtract,
				Result:     pipeline.Success("stored 3/3 datasets"),
				Attempts:   1,
				StartedAt:  start,
				FinishedAt: start.Add(time.Second),
			},
			{
				Task:       pipeline.TaskHistory,
				Result:     pipeline.Skip("no marker for bitcoin"),
				Attempts:   1,
				StartedAt:  start.Add(time.Second),
				FinishedAt: start.Add(2 * time.Second),
			},
		},
	}
}

// expectRows queues the inserts RecordRun sends for report. failAt >= 0
// makes the insert at that position return an error.
func expectRows(mock pgxmock.PgxPoolIface, report *pipeline.RunReport, failAt int) {
	run, tasks := rows(report)

	batch := mock.ExpectBatch()
	runExec := batch.ExpectExec("INSERT INTO pipeline_runs").
		WithArgs(run.RunID, run.RunDate, run.Status, run.StartedAt, run.FinishedAt)
	if failAt == 0 {
		runExec.WillReturnError(errors.New("insert failed"))
	} else {
		runExec.WillReturnResult(pgxmock.NewResult("INSERT", 1))
	}
	for i, r := range tasks {
		e := batch.ExpectExec("INSERT INTO pipeline_task_results").
			WithArgs(r.RunID, r.Position, r.Task, r.Status, r.Attempts, r.Message, r.Error, r.StartedAt, r.FinishedAt)
		if failAt == i+1 {
			e.WillReturnError(errors.New("insert failed"))
		} else {
			e.WillReturnResult(pgxmock.NewResult("INSERT", 1))
		}
	}
}

func TestRows(t *testing.T) {
	loc := time.FixedZone("test", 3600)
	start := time.Date(2023, 11, 14, 1, 0, 0, 0, loc)
	id := uuid.MustParse("6f1c2a8e-3b1d-4c55-9a0e-0d4f7e9b2c11")

	report := &pipeline.RunReport{
		Run:        pipeline.Run{ID: id, Date: "2023_11_14", StartedAt: start},
		FinishedAt: start.Add(90 * time.Second),
		Status:     pipeline.StatusFailed,
		Tasks: []pipeline.TaskReport{
			{
				Task:       pipeline.TaskExtract,
				Result:     pipeline.Success("stored 3/3 datasets"),
				Attempts:   1,
				StartedAt:  start,
				FinishedAt: start.Add(time.Second),
			},
			{
				Task:       pipeline.TaskTransform,
				Result:     pipeline.Fail(errors.New("list raw objects: timeout")),
				Attempts:   3,
				StartedAt:  start.Add(time.Second),
				FinishedAt: start.Add(80 * time.Second),
			},
			{
				Task:     pipeline.TaskHistory,
				Result:   pipeline.Fail(pipeline.ErrUpstreamFailed),
				Attempts: 0,
			},
		},
	}

	run, tasks := rows(report)

	if run.RunID != id {
		t.Errorf("RunID = %s, want %s", run.RunID, id)
	}
	if run.Status != "failed" {
		t.Errorf("Status = %q, want failed", run.Status)
	}
	if run.StartedAt.Location() != time.UTC {
		t.Errorf("StartedAt location = %v, want UTC", run.StartedAt.Location())
	}
	if !run.StartedAt.Equal(start) {
		t.Errorf("StartedAt = %v, want %v", run.StartedAt, start)
	}

	if len(tasks) != 3 {
		t.Fatalf("len(tasks) = %d, want 3", len(tasks))
	}
	if tasks[0].Message != "stored 3/3 datasets" || tasks[0].Error != "" {
		t.Errorf("tasks[0] = %+v", tasks[0])
	}
	if tasks[1].Position != 1 || tasks[1].Attempts != 3 {
		t.Errorf("tasks[1] position/attempts = %d/%d, want 1/3", tasks[1].Position, tasks[1].Attempts)
	}
	if tasks[1].Error != "list raw objects: timeout" {
		t.Errorf("tasks[1].Error = %q", tasks[1].Error)
	}
	if tasks[2].Status != "failed" || tasks[2].Error != pipeline.ErrUpstreamFailed.Error() {
		t.Errorf("tasks[2] = %+v", tasks[2])
	}
}

func TestRunSummary_Duration(t *testing.T) {
	start := time.Date(2023, 11, 14, 0, 0, 0, 0, time.UTC)
	s := RunSummary{StartedAt: start, FinishedAt: start.Add(42 * time.Second)}

	if got := s.Duration(); got != 42*time.Second {
		t.Errorf("Duration() = %v, want 42s", got)
	}
}

func TestEnsureSchema(t *testing.T) {
	mock := newMock(t)
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS pipeline_runs").
		WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))

	l := New(mock, discardLogger())
	if err := l.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("EnsureSchema() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestEnsureSchema_Error(t *testing.T) {
	mock := newMock(t)
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS pipeline_runs").
		WillReturnError(errors.New("permission denied"))

	l := New(mock, discardLogger())
	err := l.EnsureSchema(context.Background())
	if err == nil || !strings.Contains(err.Error(), "permission denied") {
		t.Errorf("EnsureSchema() error = %v, want permission denied", err)
	}
}

func TestRecordRun_Commits(t *testing.T) {
	mock := newMock(t)
	report := testReport()

	mock.ExpectBegin()
	expectRows(mock, report, -1)
	mock.ExpectCommit()

	l := New(mock, discardLogger())
	if err := l.RecordRun(context.Background(), report); err != nil {
		t.Fatalf("RecordRun() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestRecordRun_RollsBackOnInsertError(t *testing.T) {
	tests := []struct {
		name   string
		failAt int
		wantIn string
	}{
		{"run row", 0, "insert ledger row 0"},
		{"task row", 2, "insert ledger row 2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := newMock(t)
			report := testReport()

			mock.ExpectBegin()
			expectRows(mock, report, tt.failAt)
			mock.ExpectRollback()

			l := New(mock, discardLogger())
			err := l.RecordRun(context.Background(), report)
			if err == nil || !strings.Contains(err.Error(), tt.wantIn) {
				t.Fatalf("RecordRun() error = %v, want %q", err, tt.wantIn)
			}
			if err := mock.ExpectationsWereMet(); err != nil {
				t.Errorf("unmet expectations: %v", err)
			}
		})
	}
}

func TestRecordRun_BeginError(t *testing.T) {
	mock := newMock(t)
	mock.ExpectBegin().WillReturnError(errors.New("pool closed"))

	l := New(mock, discardLogger())
	if err := l.RecordRun(context.Background(), testReport()); err == nil {
		t.Fatal("RecordRun() error = nil, want begin error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestRecentRuns(t *testing.T) {
	mock := newMock(t)
	start := time.Date(2023, 11, 14, 0, 0, 5, 0, time.UTC)
	first := uuid.MustParse("0b6f3c1e-2f47-4f0a-8d6c-5b0a1e2d3c4f")
	second := uuid.MustParse("7d1e9a20-6c3b-4e8f-9a51-2b7c0d4e6f18")

	mock.ExpectQuery("SELECT run_id, run_date, status, started_at, finished_at").
		WithArgs(2).
		WillReturnRows(pgxmock.NewRows([]string{"run_id", "run_date", "status", "started_at", "finished_at"}).
			AddRow(first, "2023_11_14", "success", start, start.Add(90*time.Second)).
			AddRow(second, "2023_11_13", "failed", start.Add(-24*time.Hour), start.Add(-24*time.Hour+10*time.Minute)))

	l := New(mock, discardLogger())
	runs, err := l.RecentRuns(context.Background(), 2)
	if err != nil {
		t.Fatalf("RecentRuns() error = %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("len(runs) = %d, want 2", len(runs))
	}
	if runs[0].ID != first || runs[0].Status != "success" || runs[0].Duration() != 90*time.Second {
		t.Errorf("runs[0] = %+v", runs[0])
	}
	if runs[1].ID != second || runs[1].Date != "2023_11_13" || runs[1].Duration() != 10*time.Minute {
		t.Errorf("runs[1] = %+v", runs[1])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestRecentRuns_QueryError(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery("SELECT run_id").WithArgs(5).WillReturnError(errors.New("relation does not exist"))

	l := New(mock, discardLogger())
	if _, err := l.RecentRuns(context.Background(), 5); err == nil {
		t.Fatal("RecentRuns() error = nil, want query error")
	}
}

// Compile-time checks.
var (
	_ pipeline.Recorder = (*Ledger)(nil)
	_ DB                = (*pgxpool.Pool)(nil)
)
