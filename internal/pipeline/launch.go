package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
)

// LaunchTask starts the dashboard process as the last step of a run. The
// process is detached from the run so it outlives the run timeout.
type LaunchTask struct {
	command []string
	logger  *slog.Logger
}

// NewLaunchTask creates a LaunchTask for command (argv form).
func NewLaunchTask(command []string, logger *slog.Logger) *LaunchTask {
	if logger == nil {
		logger = slog.Default()
	}
	return &LaunchTask{
		command: command,
		logger:  logger.With("task", TaskDashboard),
	}
}

// Name implements Task.
func (t *LaunchTask) Name() string { return TaskDashboard }

// Run implements Task.
func (t *LaunchTask) Run(ctx context.Context, run Run) Result {
	if len(t.command) == 0 {
		return Skip("no dashboard command configured")
	}
	if err := ctx.Err(); err != nil {
		return Fail(err)
	}

	cmd := exec.Command(t.command[0], t.command[1:]...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Env = append(os.Environ(), "COINCAP_RUN_DATE="+run.Date)

	if err := cmd.Start(); err != nil {
		return Fail(fmt.Errorf("start dashboard: %w", err))
	}

	pid := cmd.Process.Pid
	go func() {
		err := cmd.Wait()
		t.logger.Info("dashboard process exited", "pid", pid, "error", err)
	}()

	t.logger.Info("dashboard launched", "pid", pid, "command", t.command)
	return Success(fmt.Sprintf("started pid %d", pid))
}
