package pipeline

import (
	"time"

	"github.com/google/uuid"
)

// Status is the outcome of a task or a run.
type Status int

const (
	StatusSuccess Status = iota
	StatusSkipped
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusSkipped:
		return "skipped"
	case StatusFailed:
		return "failed"
	}
	return "unknown"
}

// Result is what a task reports back to the graph.
type Result struct {
	Status  Status
	Message string // summary on success, reason on skip
	Err     error  // set when Status is StatusFailed
}

// Success reports a completed task.
func Success(msg string) Result {
	return Result{Status: StatusSuccess, Message: msg}
}

// Skip reports a task that chose not to run.
func Skip(reason string) Result {
	return Result{Status: StatusSkipped, Message: reason}
}

// Fail reports a task error. Failed tasks are eligible for retry.
func Fail(err error) Result {
	return Result{Status: StatusFailed, Err: err}
}

// Run identifies one execution of the graph.
type Run struct {
	ID        uuid.UUID
	Date      string // YYYY_MM_DD, namespaces every key written by the run
	StartedAt time.Time
}

// TaskReport is the final result of one step in a run.
type TaskReport struct {
	Task       string
	Result     Result
	Attempts   int
	StartedAt  time.Time
	FinishedAt time.Time
}

// RunReport is the outcome of a whole run.
type RunReport struct {
	Run        Run
	Tasks      []TaskReport
	FinishedAt time.Time
	Status     Status
}

// Task returns the report for the named task, or nil.
func (r *RunReport) Task(name string) *TaskReport {
	for i := range r.Tasks {
		if r.Tasks[i].Task == name {
			return &r.Tasks[i]
		}
	}
	return nil
}
