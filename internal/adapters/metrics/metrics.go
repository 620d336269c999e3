// Package metrics implements the -d stats sink. The default wiring injects
// the no-op; the real collector is only installed when asked for.
package metrics

import (
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"go.trai.ch/knit/internal/core/ports"
)

var (
	_ ports.Metrics = (*Stats)(nil)
	_ ports.Metrics = (*Noop)(nil)
)

type sample struct {
	count int
	total time.Duration
}

// Stats accumulates operation counts and cumulative durations.
type Stats struct {
	mu  sync.Mutex
	ops map[string]*sample
}

// NewStats creates an empty collector.
func NewStats() *Stats {
	return &Stats{ops: make(map[string]*sample)}
}

// Measure starts timing the named operation and returns its stop func.
func (s *Stats) Measure(name string) func() {
	start := time.Now()
	return func() {
		elapsed := time.Since(start)
		s.mu.Lock()
		defer s.mu.Unlock()
		op, ok := s.ops[name]
		if !ok {
			op = &sample{}
			s.ops[name] = op
		}
		op.count++
		op.total += elapsed
	}
}

// Report writes one row per operation: count, average, and total time.
func (s *Stats) Report(w io.Writer) {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, 0, len(s.ops))
	for name := range s.ops {
		names = append(names, name)
	}
	sort.Strings(names)

	_, _ = fmt.Fprintf(w, "%-20s\t%6s\t%9s\t%9s\n", "metric", "count", "avg(us)", "total(ms)")
	for _, name := range names {
		op := s.ops[name]
		avg := float64(op.total.Microseconds()) / float64(op.count)
		_, _ = fmt.Fprintf(w, "%-20s\t%6d\t%9.1f\t%9.1f\n",
			name, op.count, avg, float64(op.total.Microseconds())/1000.0)
	}
}

// Enabled reports that measurements are collected.
func (s *Stats) Enabled() bool { return true }

// Noop discards all measurements.
type Noop struct{}

// NewNoop creates the no-op sink.
func NewNoop() *Noop { return &Noop{} }

// Measure returns a stop func that does nothing.
func (n *Noop) Measure(string) func() { return func() {} }

// Report writes nothing.
func (n *Noop) Report(io.Writer) {}

// Enabled reports that nothing is collected.
func (n *Noop) Enabled() bool { return false }
