// Package builder orchestrates one build: it pumps the plan through the
// command runner, updates mtimes and the build log on each completion, and
// reports progress.
package builder

import (
	"context"
	"time"

	"go.trai.ch/knit/internal/core/domain"
	"go.trai.ch/knit/internal/core/ports"
	"go.trai.ch/knit/internal/engine/plan"
	"go.trai.ch/knit/internal/engine/scan"
	"go.trai.ch/zerr"
)

// Config is the per-invocation build configuration.
type Config struct {
	// Parallelism bounds concurrent subprocesses.
	Parallelism int
	// KeepGoing stops the build after this many failures; values below one
	// mean "keep going until everything has either run or is blocked".
	KeepGoing int
	// DryRun synthesizes successes without running or touching anything.
	DryRun bool
}

// Builder owns a plan for the duration of one build call. All plan and graph
// mutation happens here, on the coordinator; workers only run subprocesses.
type Builder struct {
	state   *domain.State
	config  Config
	disk    ports.DiskInterface
	log     ports.BuildLog
	status  ports.Status
	metrics ports.Metrics

	scanner *scan.Scanner
	plan    *plan.Plan

	startTimes map[int]domain.TimeStamp
}

// New creates a Builder over state.
func New(
	state *domain.State,
	config Config,
	disk ports.DiskInterface,
	log ports.BuildLog,
	status ports.Status,
	metrics ports.Metrics,
) *Builder {
	return &Builder{
		state:      state,
		config:     config,
		disk:       disk,
		log:        log,
		status:     status,
		metrics:    metrics,
		scanner:    scan.NewScanner(disk, log, metrics),
		plan:       plan.New(),
		startTimes: make(map[int]domain.TimeStamp),
	}
}

// AddTarget analyzes the target's subgraph and schedules whatever is dirty.
// A target that is already up to date adds nothing, which is not an error.
func (b *Builder) AddTarget(node *domain.Node) error {
	if err := b.scanner.RecomputeDirty(node); err != nil {
		return err
	}
	_, err := b.plan.AddTarget(node)
	return err
}

// AlreadyUpToDate reports whether the plan is empty.
func (b *Builder) AlreadyUpToDate() bool {
	return !b.plan.MoreToDo()
}

// Build runs the plan to completion over runner. Completions are observed
// one at a time; an edge's subprocess starts strictly after every
// predecessor's completion has been processed here.
func (b *Builder) Build(ctx context.Context, runner ports.CommandRunner) error {
	defer b.metrics.Measure("build")()

	if b.AlreadyUpToDate() {
		b.status.NoWorkToDo()
		return nil
	}
	b.status.PlanReady(b.plan.CommandEdgeCount())

	failures := 0
	draining := false

	for b.plan.MoreToDo() || runner.HasInflight() {
		if !draining {
			b.startEdges(ctx, runner)
		}

		if !runner.HasInflight() {
			if draining || !b.plan.MoreToDo() {
				break
			}
			// Nothing runnable, nothing running, work left: a scheduler bug.
			return zerr.Wrap(domain.ErrPlanStall, "no ready edge and nothing in flight")
		}

		res, err := runner.WaitForCommand(ctx)
		if err != nil {
			return zerr.Wrap(err, "build interrupted")
		}
		edge := b.state.Edges[res.EdgeID]

		if res.Success {
			if err := b.finishEdge(edge); err != nil {
				return err
			}
			b.status.EdgeFinished(edge, true, res.Output)
			continue
		}

		failures++
		b.status.EdgeFinished(edge, false, res.Output)
		b.plan.EdgeFailed(edge)
		if b.config.KeepGoing >= 1 && failures >= b.config.KeepGoing {
			draining = true
		}
	}

	if failures > 0 {
		b.status.BuildStopped("subcommand failed")
		return zerr.With(zerr.Wrap(domain.ErrBuildStopped, "subcommand failed"), "failures", failures)
	}
	b.status.BuildFinished()
	return nil
}

// startEdges submits ready edges until the runner is full or nothing is
// ready. Phony and dry-run edges complete synthetically, without a
// subprocess, which can ready further edges within the same pass.
func (b *Builder) startEdges(ctx context.Context, runner ports.CommandRunner) {
	for runner.CanRunMore() {
		edge := b.plan.NextReadyEdge()
		if edge == nil {
			return
		}
		b.status.EdgeStarted(edge)

		if edge.IsPhony() || b.config.DryRun {
			b.plan.EdgeFinished(edge)
			b.status.EdgeFinished(edge, true, "")
			continue
		}

		b.startTimes[edge.ID] = domain.TimeStamp(time.Now().Unix())
		runner.StartCommand(ctx, edge.ID, edge.EvaluateCommand())
	}
}

// finishEdge handles a successful real completion: re-stat outputs, apply
// restat propagation, and append to the build log.
func (b *Builder) finishEdge(edge *domain.Edge) error {
	var unchanged []*domain.Node
	for _, out := range edge.Outputs {
		mtime, err := b.disk.Stat(out.Path.String())
		if err != nil {
			return err
		}
		if edge.Rule.Restat && mtime == out.MTime {
			unchanged = append(unchanged, out)
			continue
		}
		out.MTime = mtime
	}

	b.plan.EdgeFinished(edge)
	for _, out := range unchanged {
		if err := b.plan.CleanNode(b.scanner, out); err != nil {
			return err
		}
	}

	end := domain.TimeStamp(time.Now().Unix())
	if err := b.log.RecordCommand(edge, b.startTimes[edge.ID], end); err != nil {
		return err
	}
	return nil
}
