// Package domain holds the in-memory build graph: nodes, edges, rules, and
// the lexical variable scopes commands are evaluated against.
package domain

import (
	"sort"

	"go.trai.ch/zerr"
)

const maxSuggestionDistance = 3

// State is the whole graph parsed from one manifest. It is built by the
// manifest loader, analyzed and scheduled by the engine, and discarded
// wholesale when the manifest rebuilds itself.
type State struct {
	paths map[InternedString]*Node

	// Edges in manifest order. An edge's ID is its index here.
	Edges []*Edge

	Rules    map[string]*Rule
	Bindings *BindingEnv

	defaults []*Node
}

// NewState creates an empty graph with the reserved phony rule predeclared
// and a fresh top-level scope.
func NewState() *State {
	s := &State{
		paths:    make(map[InternedString]*Node),
		Rules:    make(map[string]*Rule),
		Bindings: NewBindingEnv(nil),
	}
	s.Rules[PhonyRuleName] = NewRule(PhonyRuleName)
	return s
}

// AddRule registers a rule. Duplicate names are a manifest error.
func (s *State) AddRule(r *Rule) error {
	if _, exists := s.Rules[r.Name]; exists {
		return zerr.With(zerr.Wrap(ErrParse, "duplicate rule"), "rule", r.Name)
	}
	s.Rules[r.Name] = r
	return nil
}

// LookupRule returns the named rule, or nil.
func (s *State) LookupRule(name string) *Rule {
	return s.Rules[name]
}

// GetNode returns the node for a canonical path, creating it on first use.
func (s *State) GetNode(path string) *Node {
	key := NewInternedString(path)
	if n, ok := s.paths[key]; ok {
		return n
	}
	n := &Node{Path: key, MTime: MTimeUnknown}
	s.paths[key] = n
	return n
}

// LookupNode returns the node for a canonical path, or nil if the path is
// unknown to the graph.
func (s *State) LookupNode(path string) *Node {
	return s.paths[NewInternedString(path)]
}

// SpellcheckNode returns the known node nearest to path by edit distance, or
// nil when nothing is close enough. Suggestion only, never an error.
func (s *State) SpellcheckNode(path string) *Node {
	best := maxSuggestionDistance + 1
	var result *Node
	for key, node := range s.paths {
		if d := editDistance(path, key.String(), maxSuggestionDistance); d < best {
			best = d
			result = node
		}
	}
	return result
}

// AddEdge creates an edge for rule with a fresh edge-local scope nested in
// parent, and appends it to the edge list. Inputs and outputs are attached
// afterwards via AddIn/AddOut.
func (s *State) AddEdge(rule *Rule, parent *BindingEnv) *Edge {
	if parent == nil {
		parent = s.Bindings
	}
	e := &Edge{
		Rule: rule,
		Env:  NewBindingEnv(parent),
		ID:   len(s.Edges),
	}
	s.Edges = append(s.Edges, e)
	return e
}

// AddIn appends the canonical path as the next input of edge and links the
// node's out-edge list.
func (s *State) AddIn(edge *Edge, path string) {
	n := s.GetNode(path)
	edge.Inputs = append(edge.Inputs, n)
	n.OutEdges = append(n.OutEdges, edge)
}

// AddOut appends the canonical path as the next output of edge. A node may
// have at most one producing edge.
func (s *State) AddOut(edge *Edge, path string) error {
	n := s.GetNode(path)
	if n.InEdge != nil {
		err := zerr.Wrap(ErrDuplicateOutput, "output already has a producing edge")
		return zerr.With(zerr.With(err, "output", path), "rule", n.InEdge.Rule.Name)
	}
	n.InEdge = edge
	edge.Outputs = append(edge.Outputs, n)
	return nil
}

// AddDefault records an explicitly-declared default target.
func (s *State) AddDefault(path string) error {
	n := s.LookupNode(path)
	if n == nil {
		return zerr.With(zerr.Wrap(ErrUnknownTarget, "unknown default target"), "target", path)
	}
	s.defaults = append(s.defaults, n)
	return nil
}

// DefaultNodes returns the declared defaults, or every leaf output when none
// were declared.
func (s *State) DefaultNodes() ([]*Node, error) {
	if len(s.defaults) > 0 {
		return s.defaults, nil
	}
	return s.RootNodes()
}

// RootNodes returns the nodes no edge consumes. An edge-bearing graph with no
// roots is fully cyclic.
func (s *State) RootNodes() ([]*Node, error) {
	var roots []*Node
	for _, e := range s.Edges {
		for _, out := range e.Outputs {
			if len(out.OutEdges) == 0 {
				roots = append(roots, out)
			}
		}
	}
	if len(s.Edges) > 0 && len(roots) == 0 {
		return nil, zerr.Wrap(ErrCycleDetected, "could not determine root nodes of build graph")
	}
	return roots, nil
}

// NodeCount returns the size of the path-to-node index.
func (s *State) NodeCount() int {
	return len(s.paths)
}

// NodePaths returns every known path, sorted.
func (s *State) NodePaths() []string {
	paths := make([]string, 0, len(s.paths))
	for key := range s.paths {
		paths = append(paths, key.String())
	}
	sort.Strings(paths)
	return paths
}
