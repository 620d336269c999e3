package domain

import "go.trai.ch/zerr"

var (
	// ErrParse is returned when the manifest is malformed.
	ErrParse = zerr.New("manifest parse error")

	// ErrEmptyPath is returned when a path canonicalizes to nothing.
	ErrEmptyPath = zerr.New("empty path")

	// ErrDuplicateOutput is returned when two edges claim the same output.
	ErrDuplicateOutput = zerr.New("multiple rules generate output")

	// ErrUnknownTarget is returned when a requested target does not resolve to a node.
	ErrUnknownTarget = zerr.New("unknown target")

	// ErrMissingInput is returned when a source file required by the wanted
	// subgraph is absent and nothing produces it.
	ErrMissingInput = zerr.New("missing input")

	// ErrCycleDetected is returned when the wanted subgraph contains a dependency cycle.
	ErrCycleDetected = zerr.New("dependency cycle")

	// ErrCommandFailed is returned when a subprocess exits non-zero.
	ErrCommandFailed = zerr.New("command failed")

	// ErrBuildStopped is returned when the failure budget is exhausted.
	ErrBuildStopped = zerr.New("build stopped")

	// ErrPlanStall indicates the plan has wanted edges but none can make
	// progress. It is a bug in the scheduler, not a user error.
	ErrPlanStall = zerr.New("plan stalled")

	// ErrNoOutEdge is returned for the "path^" target syntax when the node has
	// no consumers.
	ErrNoOutEdge = zerr.New("node has no out edge")
)
