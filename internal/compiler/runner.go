package compiler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"github.com/Norgate-AV/respite/internal/codes"
)

// How long to wait for output pipes to close once a timed out process is killed
const waitDelay = 2 * time.Second

// Result is the outcome of one external invocation. Failures are data: a
// process that could not be started is a failed Result, not an error.
type Result struct {
	Success  bool
	ExitCode int

	Stdout string

	// Everything the process wrote to stderr, plus a note when it could not
	// be started or was stopped
	Diagnostics string

	Duration time.Duration
}

// Runner launches an external program and waits for it
type Runner interface {
	Run(ctx context.Context, cmd *ShellCommand) Result
}

// Commander interface for testing
type Commander interface {
	Run() error
}

// ExecRunner runs commands as child processes
type ExecRunner struct {
	// Limit for one invocation, 0 means none
	Timeout time.Duration

	execCommand func(ctx context.Context, name string, args ...string) Commander
}

// NewExecRunner creates a runner backed by os/exec
func NewExecRunner(timeout time.Duration) *ExecRunner {
	return &ExecRunner{
		Timeout: timeout,
		execCommand: func(ctx context.Context, name string, args ...string) Commander {
			return exec.CommandContext(ctx, name, args...)
		},
	}
}

// Run executes cmd, capturing stdout and stderr separately
func (r *ExecRunner) Run(ctx context.Context, cmd *ShellCommand) Result {
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	var stdout, stderr bytes.Buffer

	c := r.execCommand(ctx, cmd.Path, cmd.Args...)
	if ec, ok := c.(*exec.Cmd); ok {
		ec.Dir = cmd.Dir
		ec.Stdout = &stdout
		ec.Stderr = &stderr
		ec.WaitDelay = waitDelay
	}

	start := time.Now()
	err := c.Run()

	res := Result{Duration: time.Since(start)}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
			switch {
			case res.ExitCode < 0:
				// killed by a signal
				fmt.Fprintf(&stderr, "%s: %s\n", cmd.Path, exitErr.String())
			case stderr.Len() == 0:
				fmt.Fprintf(&stderr, "%s: exit code %d: %s\n", cmd.Path, res.ExitCode, codes.GetErrorMessage(res.ExitCode))
			}
		} else {
			res.ExitCode = -1
			fmt.Fprintf(&stderr, "failed to run %s: %v\n", cmd.Path, err)
		}

		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			fmt.Fprintf(&stderr, "%s: timed out after %s\n", cmd.Path, r.Timeout)
		}
	}

	res.Success = err == nil && codes.IsSuccess(res.ExitCode)
	res.Stdout = stdout.String()
	res.Diagnostics = stderr.String()

	return res
}
