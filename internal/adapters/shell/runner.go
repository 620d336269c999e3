// Package shell runs build commands as subprocesses with bounded parallelism.
package shell

import (
	"context"
	"errors"
	"os/exec"
	"sync/atomic"

	"go.trai.ch/knit/internal/core/ports"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

var _ ports.CommandRunner = (*Runner)(nil)

// Runner implements ports.CommandRunner over /bin/sh. Each StartCommand owns
// one worker goroutine; workers only run the subprocess and post the result,
// they never touch the graph.
type Runner struct {
	logger      ports.Logger
	parallelism int

	inflight atomic.Int64
	results  chan ports.CommandResult
	group    errgroup.Group
}

// NewRunner creates a runner that keeps at most parallelism subprocesses
// alive at once.
func NewRunner(logger ports.Logger, parallelism int) *Runner {
	if parallelism < 1 {
		parallelism = 1
	}
	return &Runner{
		logger:      logger,
		parallelism: parallelism,
		results:     make(chan ports.CommandResult, parallelism),
	}
}

// CanRunMore reports whether a subprocess slot is free.
func (r *Runner) CanRunMore() bool {
	return int(r.inflight.Load()) < r.parallelism
}

// HasInflight reports whether any command has started but not yet been
// delivered through WaitForCommand.
func (r *Runner) HasInflight() bool {
	return r.inflight.Load() > 0
}

// StartCommand launches command for edgeID. The command string is passed to
// the shell unchanged.
func (r *Runner) StartCommand(ctx context.Context, edgeID int, command string) {
	r.inflight.Add(1)
	r.group.Go(func() error {
		res := runCommand(ctx, edgeID, command)
		if res.Err != nil {
			r.logger.Error(res.Err)
		}
		r.results <- res
		return nil
	})
}

func runCommand(ctx context.Context, edgeID int, command string) ports.CommandResult {
	cmd := exec.CommandContext(ctx, "/bin/sh", "-c", command) //nolint:gosec // manifest-provided command
	output, err := cmd.CombinedOutput()

	res := ports.CommandResult{
		EdgeID: edgeID,
		Output: string(output),
	}
	switch {
	case err == nil:
		res.Success = true
	default:
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
		} else {
			res.ExitCode = -1
			res.Err = zerr.With(zerr.Wrap(err, "failed to start command"), "command", command)
		}
	}
	return res
}

// WaitForCommand blocks for the next completion, or until ctx is cancelled.
// Cancellation does not kill inflight subprocesses; Close waits for them.
func (r *Runner) WaitForCommand(ctx context.Context) (ports.CommandResult, error) {
	select {
	case res := <-r.results:
		r.inflight.Add(-1)
		return res, nil
	case <-ctx.Done():
		return ports.CommandResult{}, ctx.Err()
	}
}

// Close drains every worker goroutine. Pending results are discarded so
// workers blocked on the results channel can exit.
func (r *Runner) Close() error {
	done := make(chan struct{})
	go func() {
		_ = r.group.Wait()
		close(done)
	}()
	for {
		select {
		case <-r.results:
			r.inflight.Add(-1)
		case <-done:
			return nil
		}
	}
}
