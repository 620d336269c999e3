package ports

import "io"

// Metrics is an optional sink for operation counts and timings (-d stats).
// The default implementation is a no-op.
//
//go:generate mockgen -source=metrics.go -destination=mocks/mock_metrics.go -package=mocks
type Metrics interface {
	// Measure starts timing the named operation and returns its stop func.
	Measure(name string) func()

	// Report writes the accumulated statistics.
	Report(w io.Writer)

	// Enabled reports whether measurements are actually collected.
	Enabled() bool
}
