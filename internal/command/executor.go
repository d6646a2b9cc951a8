package command

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	mqerrors "github.com/mrz1836/mqomctl/internal/errors"
)

// Result captures one external invocation.
type Result struct {
	Command     string        `json:"command"`
	Dir         string        `json:"dir"`
	Env         []string      `json:"env,omitempty"`
	Stdout      string        `json:"stdout"`
	Stderr      string        `json:"stderr"`
	ExitCode    int           `json:"exit_code"`
	StartedAt   time.Time     `json:"started_at"`
	CompletedAt time.Time     `json:"completed_at"`
	Duration    time.Duration `json:"duration_ns"`
}

// Failed reports whether the command wrote anything to its error stream.
// The external collaborators signal failure this way; exit codes are
// recorded but not interpreted.
func (r *Result) Failed() bool {
	return r != nil && r.Stderr != ""
}

// Executor runs commands with an optional per-invocation timeout.
type Executor struct {
	runner     Runner
	timeout    time.Duration
	liveOutput io.Writer
}

// NewExecutor creates an executor backed by ShellRunner.
// A timeout of zero or less disables the deadline.
func NewExecutor(timeout time.Duration) *Executor {
	return NewExecutorWithRunner(timeout, &ShellRunner{})
}

// NewExecutorWithRunner creates an executor with a custom runner (for testing).
func NewExecutorWithRunner(timeout time.Duration, runner Runner) *Executor {
	if runner == nil {
		runner = &ShellRunner{}
	}
	return &Executor{runner: runner, timeout: timeout}
}

// SetLiveOutput streams command output to w as it is produced.
func (e *Executor) SetLiveOutput(w io.Writer) {
	e.liveOutput = w
}

// Timeout returns the configured per-invocation timeout.
func (e *Executor) Timeout() time.Duration {
	return e.timeout
}

// Run executes command in dir. The returned error is non-nil only when the
// command could not complete: missing directory, timeout or cancellation.
// A command that ran and failed is reported through the Result.
func (e *Executor) Run(ctx context.Context, dir string, env []string, command string) (*Result, error) {
	log := zerolog.Ctx(ctx)

	if dir != "" {
		if _, err := os.Stat(dir); err != nil {
			return nil, fmt.Errorf("work directory %s: %w", dir, err)
		}
	}

	cmdCtx := ctx
	if e.timeout > 0 {
		var cancel context.CancelFunc
		cmdCtx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	log.Debug().
		Str("command", command).
		Str("work_dir", dir).
		Msg("executing command")

	startedAt := time.Now()
	stdout, stderr, exitCode, runErr := e.execute(cmdCtx, dir, env, command)
	completedAt := time.Now()

	result := &Result{
		Command:     command,
		Dir:         dir,
		Env:         env,
		Stdout:      stdout,
		Stderr:      stderr,
		ExitCode:    exitCode,
		StartedAt:   startedAt,
		CompletedAt: completedAt,
		Duration:    completedAt.Sub(startedAt),
	}

	if errors.Is(cmdCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		log.Error().
			Str("command", command).
			Dur("timeout", e.timeout).
			Msg("command timed out")
		return result, fmt.Errorf("%w: %s", mqerrors.ErrCommandTimeout, command)
	}

	if ctx.Err() != nil {
		return result, ctx.Err()
	}

	event := log.Debug()
	if runErr != nil || stderr != "" {
		event = log.Warn()
	}
	event.
		Str("command", command).
		Int("exit_code", exitCode).
		Dur("duration_ms", result.Duration).
		Bool("stderr", stderr != "").
		Msg("command completed")

	return result, nil
}

func (e *Executor) execute(ctx context.Context, dir string, env []string, command string) (stdout, stderr string, exitCode int, err error) {
	if e.liveOutput != nil {
		if live, ok := e.runner.(LiveOutputRunner); ok {
			return live.RunWithLiveOutput(ctx, dir, env, command, e.liveOutput)
		}
	}
	return e.runner.Run(ctx, dir, env, command)
}

// Quote returns s as a single-quoted POSIX shell word.
func Quote(s string) string {
	if s == "" {
		return "''"
	}
	if strings.IndexFunc(s, needsQuoting) < 0 {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func needsQuoting(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return false
	}
	return !strings.ContainsRune("-_./=:,+@%", r)
}
