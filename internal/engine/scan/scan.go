// Package scan implements the dirtiness analysis that decides which edges
// must run to bring a target up to date.
package scan

import (
	"strings"

	"go.trai.ch/knit/internal/core/domain"
	"go.trai.ch/knit/internal/core/ports"
	"go.trai.ch/zerr"
)

// Scanner walks the DAG from a target toward its sources, stats inputs and
// outputs, and marks the dirty subgraph. It consults the build log so a
// changed command dirties outputs even when timestamps are intact.
type Scanner struct {
	disk    ports.DiskInterface
	log     ports.BuildLog
	metrics ports.Metrics

	// stack is the DFS path of in-progress edges, for cycle reporting.
	stack []*domain.Edge
}

// NewScanner creates a Scanner.
func NewScanner(disk ports.DiskInterface, log ports.BuildLog, metrics ports.Metrics) *Scanner {
	return &Scanner{
		disk:    disk,
		log:     log,
		metrics: metrics,
	}
}

// RecomputeDirty analyzes the subgraph reachable from target, post-order, so
// every edge sees already-analyzed predecessors.
func (s *Scanner) RecomputeDirty(target *domain.Node) error {
	defer s.metrics.Measure("scan.recompute_dirty")()
	return s.visitNode(target, nil)
}

// visitNode analyzes the node's producing edge, if any. consumer is the edge
// the node feeds, nil for requested targets.
func (s *Scanner) visitNode(node *domain.Node, consumer *domain.Edge) error {
	if node.InEdge == nil {
		if err := s.statIfNecessary(node); err != nil {
			return err
		}
		if !node.Exists() {
			if consumer != nil && !consumer.IsPhony() {
				err := zerr.Wrap(domain.ErrMissingInput, "input is missing and has no producing edge")
				err = zerr.With(err, "input", node.Path.String())
				return zerr.With(err, "needed_by", consumer.Outputs[0].Path.String())
			}
			node.Dirty = true
		}
		return nil
	}
	return s.visitEdge(node.InEdge)
}

func (s *Scanner) visitEdge(edge *domain.Edge) error {
	switch edge.Mark {
	case domain.VisitDone:
		return nil
	case domain.VisitInStack:
		return s.cycleError(edge)
	case domain.VisitNone:
	}
	edge.Mark = domain.VisitInStack
	s.stack = append(s.stack, edge)

	for _, in := range edge.Inputs {
		if err := s.visitNode(in, edge); err != nil {
			return err
		}
		if in.InEdge == nil {
			continue
		}
		// Outputs of analyzed producers may still be unstatted when the
		// producer was found dirty before all of its outputs were checked.
		if err := s.statIfNecessary(in); err != nil {
			return err
		}
	}

	dirty := false
	mostRecent := domain.MTimeMissing
	for _, in := range edge.DependencyInputs() {
		if in.Dirty {
			dirty = true
		}
		if in.MTime > mostRecent {
			mostRecent = in.MTime
		}
	}

	if edge.IsPhony() {
		for _, in := range edge.DependencyInputs() {
			if !in.Exists() && in.InEdge == nil {
				dirty = true
			}
		}
		// Phony outputs have no file of their own; they adopt the most recent
		// input time so consumers compare against real timestamps.
		for _, out := range edge.Outputs {
			out.MTime = mostRecent
			out.Dirty = dirty
		}
	} else {
		if !dirty {
			outputsDirty, err := s.outputsDirty(edge, mostRecent)
			if err != nil {
				return err
			}
			dirty = outputsDirty
		}
		if dirty {
			for _, out := range edge.Outputs {
				out.Dirty = true
			}
		}
	}

	s.stack = s.stack[:len(s.stack)-1]
	edge.Mark = domain.VisitDone
	return nil
}

// outputsDirty applies the per-output staleness checks: missing file, no log
// entry, changed command hash, or inputs newer than the output.
func (s *Scanner) outputsDirty(edge *domain.Edge, mostRecentInput domain.TimeStamp) (bool, error) {
	commandHash := s.log.HashCommand(edge.EvaluateCommand())
	for _, out := range edge.Outputs {
		if err := s.statIfNecessary(out); err != nil {
			return false, err
		}
		if !out.Exists() {
			return true, nil
		}
		entry := s.log.Lookup(out.Path.String())
		if entry == nil {
			return true, nil
		}
		if entry.CommandHash != commandHash {
			return true, nil
		}
		if out.MTime < mostRecentInput {
			return true, nil
		}
	}
	return false, nil
}

// RecomputeOutputsDirty re-runs the output checks with current mtimes. The
// plan uses it after a restat edge reports unchanged outputs, to decide
// whether not-yet-started dependents still need to run.
func (s *Scanner) RecomputeOutputsDirty(edge *domain.Edge) (bool, error) {
	if edge.IsPhony() {
		return false, nil
	}
	mostRecent := domain.MTimeMissing
	for _, in := range edge.DependencyInputs() {
		if in.MTime > mostRecent {
			mostRecent = in.MTime
		}
	}
	return s.outputsDirty(edge, mostRecent)
}

func (s *Scanner) statIfNecessary(node *domain.Node) error {
	if node.StatusKnown() {
		return nil
	}
	defer s.metrics.Measure("disk.stat")()
	mtime, err := s.disk.Stat(node.Path.String())
	if err != nil {
		return err
	}
	node.MTime = mtime
	return nil
}

func (s *Scanner) cycleError(edge *domain.Edge) error {
	start := 0
	for i, e := range s.stack {
		if e == edge {
			start = i
			break
		}
	}
	var sb strings.Builder
	for _, e := range s.stack[start:] {
		sb.WriteString(e.Outputs[0].Path.String())
		sb.WriteString(" -> ")
	}
	sb.WriteString(edge.Outputs[0].Path.String())
	return zerr.With(zerr.Wrap(domain.ErrCycleDetected, "dependency cycle"), "cycle", sb.String())
}
