// Package app implements the application layer: it turns one CLI invocation
// into manifest loading, the self-rebuild fixpoint, target collection, and a
// build (or a subtool run).
package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"

	"go.trai.ch/knit/internal/adapters/buildlog"
	"go.trai.ch/knit/internal/adapters/config"
	"go.trai.ch/knit/internal/adapters/metrics"
	"go.trai.ch/knit/internal/adapters/shell"
	"go.trai.ch/knit/internal/adapters/status"
	"go.trai.ch/knit/internal/core/domain"
	"go.trai.ch/knit/internal/core/ports"
	"go.trai.ch/knit/internal/engine/builder"
	"go.trai.ch/zerr"
)

// logFileName is the build log's name under builddir.
const logFileName = ".ninja_log"

// Options is one fully-resolved invocation.
type Options struct {
	ManifestPath string
	Jobs         int
	// KeepGoing stops after this many failures; values below one mean
	// unlimited.
	KeepGoing  int
	DryRun     bool
	Verbose    bool
	Stats      bool
	StatusMode string // "", "line", or "fancy"
	Targets    []string
}

// App wires the long-lived adapters together.
type App struct {
	logger   ports.Logger
	disk     ports.DiskInterface
	loader   ports.ManifestLoader
	defaults *config.Loader

	out    io.Writer
	errOut io.Writer

	newRunner func(parallelism int) ports.CommandRunner
}

// New creates an App writing user-facing output to stdout/stderr.
func New(logger ports.Logger, disk ports.DiskInterface, loader ports.ManifestLoader, defaults *config.Loader) *App {
	a := &App{
		logger:   logger,
		disk:     disk,
		loader:   loader,
		defaults: defaults,
		out:      os.Stdout,
		errOut:   os.Stderr,
	}
	a.newRunner = func(parallelism int) ports.CommandRunner {
		return shell.NewRunner(a.logger, parallelism)
	}
	return a
}

// WithRunner substitutes the command runner factory. Used by tests to avoid
// spawning subprocesses.
func (a *App) WithRunner(factory func(parallelism int) ports.CommandRunner) *App {
	a.newRunner = factory
	return a
}

// WithOutput redirects user-facing output. Used by tests.
func (a *App) WithOutput(out, errOut io.Writer) *App {
	a.out = out
	a.errOut = errOut
	return a
}

// Defaults returns the .knit.yaml defaults for the working directory.
func (a *App) Defaults() (*config.Defaults, error) {
	return a.defaults.Load(".")
}

// GuessParallelism picks the default -j value from the CPU count.
func GuessParallelism() int {
	if n := runtime.NumCPU(); n > 1 {
		return n + 2
	}
	return 2
}

// Run executes a build invocation: load the manifest, rebuild it first if it
// is an output of the build (at most once), then build the requested targets.
func (a *App) Run(ctx context.Context, opts Options) error {
	if opts.Jobs < 1 {
		opts.Jobs = GuessParallelism()
	}

	stats := a.newMetrics(opts)
	printer := a.newStatus(opts)

	state, log, err := a.loadWithRebuild(ctx, opts, printer, stats)
	if err != nil {
		return err
	}
	defer log.Close() //nolint:errcheck // append handle; entries are flushed per edge

	targets, err := a.collectTargets(state, opts.Targets)
	if err != nil {
		return err
	}

	b := builder.New(state, buildConfig(opts), a.disk, log, printer, stats)
	for _, target := range targets {
		if err := b.AddTarget(target); err != nil {
			return err
		}
	}

	runner := a.newRunner(opts.Jobs)
	defer runner.Close() //nolint:errcheck // drain is best effort on exit

	buildErr := b.Build(ctx, runner)
	if opts.Stats {
		stats.Report(a.out)
		_, _ = fmt.Fprintf(a.out, "graph: %d nodes, %d edges\n", state.NodeCount(), len(state.Edges))
	}
	return buildErr
}

func buildConfig(opts Options) builder.Config {
	return builder.Config{
		Parallelism: opts.Jobs,
		KeepGoing:   opts.KeepGoing,
		DryRun:      opts.DryRun,
	}
}

func (a *App) newMetrics(opts Options) ports.Metrics {
	if opts.Stats {
		return metrics.NewStats()
	}
	return metrics.NewNoop()
}

func (a *App) newStatus(opts Options) ports.Status {
	if opts.StatusMode == "fancy" {
		return status.NewProgress()
	}
	return status.NewLinePrinter(a.out, a.errOut, opts.Verbose)
}

// loadWithRebuild parses the manifest and opens the build log. When the
// manifest is itself an output of the graph, its producing edge is built
// first; if that did any work, the whole State is discarded and the manifest
// re-parsed. The reload happens at most once per invocation so an
// always-dirty regeneration rule cannot oscillate.
func (a *App) loadWithRebuild(
	ctx context.Context,
	opts Options,
	printer ports.Status,
	stats ports.Metrics,
) (*domain.State, *buildlog.Log, error) {
	manifestPath, err := domain.CanonicalizePath(opts.ManifestPath)
	if err != nil {
		return nil, nil, err
	}

	for reloaded := false; ; reloaded = true {
		state, err := a.loader.Load(opts.ManifestPath)
		if err != nil {
			return nil, nil, err
		}
		log, err := a.openLog(state, opts)
		if err != nil {
			return nil, nil, err
		}

		node := state.LookupNode(manifestPath)
		if reloaded || node == nil || node.InEdge == nil {
			return state, log, nil
		}

		rebuilt, err := a.rebuildManifest(ctx, state, log, node, opts, printer, stats)
		_ = log.Close()
		if err != nil {
			return nil, nil, zerr.Wrap(err, "rebuilding manifest")
		}
		if !rebuilt {
			// Reopen: the close above released the append handle.
			log, err = a.openLog(state, opts)
			if err != nil {
				return nil, nil, err
			}
			return state, log, nil
		}
	}
}

// rebuildManifest builds the manifest node alone, reporting whether any work
// was performed.
func (a *App) rebuildManifest(
	ctx context.Context,
	state *domain.State,
	log ports.BuildLog,
	node *domain.Node,
	opts Options,
	printer ports.Status,
	stats ports.Metrics,
) (bool, error) {
	b := builder.New(state, buildConfig(opts), a.disk, log, printer, stats)
	if err := b.AddTarget(node); err != nil {
		return false, err
	}
	if b.AlreadyUpToDate() {
		return false, nil
	}

	runner := a.newRunner(opts.Jobs)
	defer runner.Close() //nolint:errcheck // drain is best effort
	if err := b.Build(ctx, runner); err != nil {
		return false, err
	}
	return true, nil
}

// openLog loads and opens <builddir>/.ninja_log, creating builddir on
// demand. Dry runs load history but never open the file for writing.
func (a *App) openLog(state *domain.State, opts Options) (*buildlog.Log, error) {
	logPath := logFileName
	if buildDir := state.Bindings.LookupVariable("builddir"); buildDir != "" {
		if err := a.disk.MakeDir(buildDir); err != nil {
			return nil, zerr.Wrap(err, "creating build directory")
		}
		logPath = buildDir + "/" + logFileName
	}

	log := buildlog.New(a.logger)
	if err := log.Load(logPath); err != nil {
		return nil, err
	}
	if !opts.DryRun {
		if err := log.OpenForWrite(logPath); err != nil {
			return nil, err
		}
	}
	return log, nil
}

// collectTargets resolves CLI target arguments, applying the defaults rule
// and the trailing-'^' ("first output consuming this node") syntax.
func (a *App) collectTargets(state *domain.State, args []string) ([]*domain.Node, error) {
	if len(args) == 0 {
		return state.DefaultNodes()
	}

	targets := make([]*domain.Node, 0, len(args))
	for _, arg := range args {
		firstDependent := strings.HasSuffix(arg, "^")
		arg = strings.TrimSuffix(arg, "^")

		path, err := domain.CanonicalizePath(arg)
		if err != nil {
			return nil, err
		}
		node := state.LookupNode(path)
		if node == nil {
			msg := fmt.Sprintf("unknown target %q", path)
			if suggestion := state.SpellcheckNode(path); suggestion != nil {
				msg += fmt.Sprintf(", did you mean %q?", suggestion.Path.String())
			}
			return nil, zerr.With(zerr.Wrap(domain.ErrUnknownTarget, msg), "target", path)
		}
		if firstDependent {
			if len(node.OutEdges) == 0 {
				return nil, zerr.With(zerr.Wrap(domain.ErrNoOutEdge, "no edge consumes target"), "target", path)
			}
			node = node.OutEdges[0].Outputs[0]
		}
		targets = append(targets, node)
	}
	return targets, nil
}
