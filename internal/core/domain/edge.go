package domain

import "strings"

// VisitMark is the traversal state of an edge during dirtiness analysis.
type VisitMark int

const (
	// VisitNone means the edge has not been reached yet.
	VisitNone VisitMark = iota
	// VisitInStack means the edge is on the current DFS stack.
	VisitInStack
	// VisitDone means the edge has been fully analyzed.
	VisitDone
)

// Edge is an invocation of a rule: it consumes input nodes and produces
// output nodes. Inputs are one sequence partitioned into three contiguous
// groups: explicit, implicit, order-only.
type Edge struct {
	Rule    *Rule
	Inputs  []*Node
	Outputs []*Node
	Env     *BindingEnv

	// ImplicitDeps and OrderOnlyDeps count the trailing input groups:
	// Inputs[len-OrderOnlyDeps-ImplicitDeps : len-OrderOnlyDeps] are implicit,
	// Inputs[len-OrderOnlyDeps:] are order-only.
	ImplicitDeps  int
	OrderOnlyDeps int

	// Mark is owned by the dirtiness analyzer.
	Mark VisitMark

	// ID is the edge's stable index in State.Edges.
	ID int
}

// IsPhony reports whether the edge uses the reserved phony rule.
func (e *Edge) IsPhony() bool {
	return e.Rule.Name == PhonyRuleName
}

// IsImplicit reports whether input index i is in the implicit group.
func (e *Edge) IsImplicit(i int) bool {
	return i >= len(e.Inputs)-e.OrderOnlyDeps-e.ImplicitDeps && !e.IsOrderOnly(i)
}

// IsOrderOnly reports whether input index i is in the order-only group.
func (e *Edge) IsOrderOnly(i int) bool {
	return i >= len(e.Inputs)-e.OrderOnlyDeps
}

// ExplicitInputs returns the explicit input group.
func (e *Edge) ExplicitInputs() []*Node {
	return e.Inputs[:len(e.Inputs)-e.OrderOnlyDeps-e.ImplicitDeps]
}

// DependencyInputs returns the inputs that participate in dirtiness:
// explicit plus implicit, excluding order-only.
func (e *Edge) DependencyInputs() []*Node {
	return e.Inputs[:len(e.Inputs)-e.OrderOnlyDeps]
}

// edgeEnv resolves the special $in/$out variables and applies the lexical
// lookup order: edge-local, then rule template, then enclosing scopes.
type edgeEnv struct {
	edge *Edge
	// inFlight guards against a rule binding referring to itself.
	inFlight map[string]bool
}

func (env *edgeEnv) LookupVariable(name string) string {
	switch name {
	case "in":
		return pathList(env.edge.ExplicitInputs())
	case "out":
		return pathList(env.edge.Outputs)
	}

	if env.edge.Env != nil {
		if v, ok := env.edge.Env.lookupLocal(name); ok {
			return v
		}
	}

	if tmpl, ok := env.edge.Rule.Bindings[name]; ok && !env.inFlight[name] {
		env.inFlight[name] = true
		v := tmpl.Evaluate(env)
		delete(env.inFlight, name)
		return v
	}

	if env.edge.Env != nil && env.edge.Env.parent != nil {
		return env.edge.Env.parent.LookupVariable(name)
	}
	return ""
}

// GetBinding evaluates a rule or edge binding in this edge's scope.
func (e *Edge) GetBinding(name string) string {
	env := &edgeEnv{edge: e, inFlight: make(map[string]bool)}
	return env.LookupVariable(name)
}

// EvaluateBinding expands a value template in this edge's scope, so an
// edge-local binding under a build declaration can reference $in, $out, rule
// bindings, and the enclosing scopes. The edge's inputs and outputs must be
// attached before evaluation.
func (e *Edge) EvaluateBinding(value *EvalString) string {
	env := &edgeEnv{edge: e, inFlight: make(map[string]bool)}
	return value.Evaluate(env)
}

// EvaluateCommand expands the rule's command template against the edge's
// scope. Phony edges have no command and evaluate to the empty string.
func (e *Edge) EvaluateCommand() string {
	return e.GetBinding("command")
}

// Description expands the rule's description template, falling back to the
// command when the rule declares none.
func (e *Edge) Description() string {
	if desc := e.GetBinding("description"); desc != "" {
		return desc
	}
	return e.EvaluateCommand()
}

func pathList(nodes []*Node) string {
	var sb strings.Builder
	for i, n := range nodes {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(n.Path.String())
	}
	return sb.String()
}
