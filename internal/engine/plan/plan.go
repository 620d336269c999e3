// Package plan tracks the set of edges a build wants to run and which of
// them are ready, running, or finished.
package plan

import (
	"go.trai.ch/knit/internal/core/domain"
	"go.trai.ch/zerr"
)

// DirtyChecker re-runs the per-output staleness checks with current mtimes.
// Implemented by the scanner; the plan uses it for restat propagation.
type DirtyChecker interface {
	RecomputeOutputsDirty(edge *domain.Edge) (bool, error)
}

// Plan lives for one build call.
type Plan struct {
	// want holds every edge the build has decided to produce and not yet
	// finished or abandoned.
	want map[*domain.Edge]bool

	// unsatisfied counts, per wanted edge, the input nodes whose producing
	// edge has not finished yet. Order-only inputs count: they constrain
	// scheduling even though they do not dirty outputs.
	unsatisfied map[*domain.Edge]int

	ready    map[*domain.Edge]bool
	inflight map[*domain.Edge]bool

	commandEdges int
}

// New creates an empty plan.
func New() *Plan {
	return &Plan{
		want:        make(map[*domain.Edge]bool),
		unsatisfied: make(map[*domain.Edge]int),
		ready:       make(map[*domain.Edge]bool),
		inflight:    make(map[*domain.Edge]bool),
	}
}

// AddTarget schedules everything needed to produce node. It is idempotent
// per node and reports false when the target is already up to date (which is
// not an error).
func (p *Plan) AddTarget(node *domain.Node) (bool, error) {
	if node.InEdge == nil && node.Dirty {
		err := zerr.Wrap(domain.ErrMissingInput, "target is missing and has no producing edge")
		return false, zerr.With(err, "target", node.Path.String())
	}
	return p.addSubTarget(node), nil
}

// addSubTarget reports whether node's producer was (or already is) scheduled.
func (p *Plan) addSubTarget(node *domain.Node) bool {
	edge := node.InEdge
	if edge == nil || !node.Dirty {
		return false
	}
	if p.want[edge] || p.inflight[edge] {
		return true
	}

	p.want[edge] = true
	if !edge.IsPhony() {
		p.commandEdges++
	}

	unsatisfied := 0
	for _, in := range edge.Inputs {
		if p.addSubTarget(in) {
			unsatisfied++
		}
	}
	p.unsatisfied[edge] = unsatisfied
	if unsatisfied == 0 {
		p.ready[edge] = true
	}
	return true
}

// MoreToDo reports whether any wanted edge has not finished.
func (p *Plan) MoreToDo() bool {
	return len(p.want) > 0
}

// CommandEdgeCount returns how many non-phony edges the plan decided to run.
func (p *Plan) CommandEdgeCount() int {
	return p.commandEdges
}

// NextReadyEdge pops the ready edge that appeared earliest in the manifest,
// so scheduling is deterministic, and marks it inflight. It returns nil when
// nothing is ready.
func (p *Plan) NextReadyEdge() *domain.Edge {
	var next *domain.Edge
	for e := range p.ready {
		if next == nil || e.ID < next.ID {
			next = e
		}
	}
	if next == nil {
		return nil
	}
	delete(p.ready, next)
	p.inflight[next] = true
	return next
}

// EdgeFinished records a successful completion: outputs become clean and
// each consumer loses one unsatisfied input per output it consumes.
func (p *Plan) EdgeFinished(edge *domain.Edge) {
	delete(p.inflight, edge)
	delete(p.want, edge)
	delete(p.unsatisfied, edge)

	for _, out := range edge.Outputs {
		out.Dirty = false
		p.decrementConsumers(out)
	}
}

// EdgeFailed records a failed completion. The edge's transitive dependents
// are unreachable and silently leave the plan.
func (p *Plan) EdgeFailed(edge *domain.Edge) {
	delete(p.inflight, edge)
	delete(p.want, edge)
	delete(p.unsatisfied, edge)
	p.abandonDependents(edge)
}

func (p *Plan) abandonDependents(edge *domain.Edge) {
	for _, out := range edge.Outputs {
		for _, consumer := range out.OutEdges {
			if !p.want[consumer] {
				continue
			}
			delete(p.want, consumer)
			delete(p.ready, consumer)
			delete(p.unsatisfied, consumer)
			p.abandonDependents(consumer)
		}
	}
}

func (p *Plan) decrementConsumers(out *domain.Node) {
	for _, consumer := range out.OutEdges {
		if !p.want[consumer] || p.inflight[consumer] {
			continue
		}
		p.unsatisfied[consumer]--
		if p.unsatisfied[consumer] == 0 {
			p.ready[consumer] = true
		}
	}
}

// CleanNode propagates an unchanged restat output: dependents whose inputs
// are now all clean re-run the output checks, and those still up to date
// leave the plan without running.
func (p *Plan) CleanNode(checker DirtyChecker, node *domain.Node) error {
	node.Dirty = false
	for _, edge := range node.OutEdges {
		if !p.want[edge] || p.inflight[edge] {
			continue
		}
		if anyDirty(edge.DependencyInputs()) {
			continue
		}
		dirty, err := checker.RecomputeOutputsDirty(edge)
		if err != nil {
			return err
		}
		if dirty {
			continue
		}

		delete(p.want, edge)
		delete(p.ready, edge)
		delete(p.unsatisfied, edge)
		for _, out := range edge.Outputs {
			p.decrementConsumers(out)
			if err := p.CleanNode(checker, out); err != nil {
				return err
			}
		}
	}
	return nil
}

func anyDirty(nodes []*domain.Node) bool {
	for _, n := range nodes {
		if n.Dirty {
			return true
		}
	}
	return false
}
