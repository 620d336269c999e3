package ports

import "go.trai.ch/knit/internal/core/domain"

// Status projects coordinator events onto the user's terminal. It carries no
// build state of its own.
//
//go:generate mockgen -source=status.go -destination=mocks/mock_status.go -package=mocks
type Status interface {
	// PlanReady announces how many edges the build intends to run.
	PlanReady(total int)

	// EdgeStarted fires when a subprocess is submitted (or synthesized, for
	// phony and dry-run edges).
	EdgeStarted(edge *domain.Edge)

	// EdgeFinished fires when the coordinator observes a completion. Output is
	// the command's captured output, empty for quiet successes.
	EdgeFinished(edge *domain.Edge, success bool, output string)

	// NoWorkToDo fires instead of the above when the plan starts empty.
	NoWorkToDo()

	// BuildStopped reports an aborted build with a one-line reason.
	BuildStopped(reason string)

	// BuildFinished flushes any pending output after a completed build.
	BuildFinished()
}
