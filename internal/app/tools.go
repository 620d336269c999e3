package app

import (
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strconv"

	"github.com/spf13/pflag"
	"go.trai.ch/knit/internal/core/domain"
	"go.trai.ch/zerr"
)

// toolEntry is one -t subtool.
type toolEntry struct {
	name string
	desc string
	run  func(a *App, state *domain.State, args []string) error
}

var tools = []toolEntry{
	{"clean", "remove built files", (*App).toolClean},
	{"commands", "list all commands required to rebuild given targets", (*App).toolCommands},
	{"graph", "output graphviz dot file for targets", (*App).toolGraph},
	{"query", "show inputs/outputs for a path", (*App).toolQuery},
	{"rules", "list all rules", (*App).toolRules},
	{"targets", "list targets by their rule or depth in the DAG", (*App).toolTargets},
}

// RunTool dispatches a -t subtool. "list" needs no manifest; everything else
// parses it first.
func (a *App) RunTool(name string, args []string, opts Options) error {
	if name == "list" {
		_, _ = fmt.Fprintln(a.out, "knit subtools:")
		for _, tool := range tools {
			_, _ = fmt.Fprintf(a.out, "%10s  %s\n", tool.name, tool.desc)
		}
		return nil
	}

	for _, tool := range tools {
		if tool.name == name {
			state, err := a.loader.Load(opts.ManifestPath)
			if err != nil {
				return err
			}
			return tool.run(a, state, args)
		}
	}

	msg := fmt.Sprintf("unknown tool %q", name)
	names := make([]string, len(tools))
	for i, tool := range tools {
		names[i] = tool.name
	}
	if suggestion := domain.SpellcheckString(name, names); suggestion != "" {
		msg += fmt.Sprintf(", did you mean %q?", suggestion)
	}
	return zerr.New(msg)
}

// toolTargets lists targets: by depth from the roots (default), by rule, or
// every output.
func (a *App) toolTargets(state *domain.State, args []string) error {
	depth := 1
	if len(args) > 0 {
		switch args[0] {
		case "all":
			for _, e := range state.Edges {
				for _, out := range e.Outputs {
					_, _ = fmt.Fprintf(a.out, "%s: %s\n", out.Path.String(), e.Rule.Name)
				}
			}
			return nil
		case "rule":
			if len(args) > 1 {
				return a.targetsByRule(state, args[1])
			}
			return a.sourceList(state)
		case "depth":
			if len(args) > 1 {
				n, err := strconv.Atoi(args[1])
				if err != nil {
					return zerr.Wrap(err, "bad depth")
				}
				depth = n
			}
		default:
			return zerr.New(fmt.Sprintf("unknown targets mode %q (expected rule, depth or all)", args[0]))
		}
	}

	roots, err := state.RootNodes()
	if err != nil {
		return err
	}
	a.listTargets(roots, depth, 0)
	return nil
}

func (a *App) listTargets(nodes []*domain.Node, depth, indent int) {
	for _, n := range nodes {
		for range indent {
			_, _ = fmt.Fprint(a.out, "  ")
		}
		if n.InEdge != nil {
			_, _ = fmt.Fprintf(a.out, "%s: %s\n", n.Path.String(), n.InEdge.Rule.Name)
			if depth > 1 || depth <= 0 {
				a.listTargets(n.InEdge.Inputs, depth-1, indent+1)
			}
		} else {
			_, _ = fmt.Fprintln(a.out, n.Path.String())
		}
	}
}

func (a *App) targetsByRule(state *domain.State, ruleName string) error {
	outputs := make(map[string]bool)
	for _, e := range state.Edges {
		if e.Rule.Name != ruleName {
			continue
		}
		for _, out := range e.Outputs {
			outputs[out.Path.String()] = true
		}
	}
	for _, path := range sortedKeys(outputs) {
		_, _ = fmt.Fprintln(a.out, path)
	}
	return nil
}

// sourceList prints every input no edge produces.
func (a *App) sourceList(state *domain.State) error {
	seen := make(map[string]bool)
	for _, e := range state.Edges {
		for _, in := range e.Inputs {
			if in.InEdge == nil && !seen[in.Path.String()] {
				seen[in.Path.String()] = true
				_, _ = fmt.Fprintln(a.out, in.Path.String())
			}
		}
	}
	return nil
}

// toolQuery shows a node's producing rule, partitioned inputs, and consumers.
func (a *App) toolQuery(state *domain.State, args []string) error {
	if len(args) == 0 {
		return zerr.New("expected a target to query")
	}
	for _, arg := range args {
		path, err := domain.CanonicalizePath(arg)
		if err != nil {
			return err
		}
		node := state.LookupNode(path)
		if node == nil {
			msg := fmt.Sprintf("%s unknown", path)
			if suggestion := state.SpellcheckNode(path); suggestion != nil {
				msg += fmt.Sprintf(", did you mean %q?", suggestion.Path.String())
			}
			return zerr.Wrap(domain.ErrUnknownTarget, msg)
		}

		_, _ = fmt.Fprintf(a.out, "%s:\n", path)
		if edge := node.InEdge; edge != nil {
			_, _ = fmt.Fprintf(a.out, "  input: %s\n", edge.Rule.Name)
			for i, in := range edge.Inputs {
				marker := ""
				if edge.IsImplicit(i) {
					marker = "| "
				} else if edge.IsOrderOnly(i) {
					marker = "|| "
				}
				_, _ = fmt.Fprintf(a.out, "    %s%s\n", marker, in.Path.String())
			}
		}
		_, _ = fmt.Fprintln(a.out, "  outputs:")
		for _, edge := range node.OutEdges {
			for _, out := range edge.Outputs {
				_, _ = fmt.Fprintf(a.out, "    %s\n", out.Path.String())
			}
		}
	}
	return nil
}

// toolRules lists rule names with their description templates.
func (a *App) toolRules(state *domain.State, _ []string) error {
	names := make([]string, 0, len(state.Rules))
	for name := range state.Rules {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		rule := state.Rules[name]
		if desc, ok := rule.Bindings["description"]; ok {
			_, _ = fmt.Fprintf(a.out, "%s: %s\n", name, desc.Unparse())
		} else {
			_, _ = fmt.Fprintln(a.out, name)
		}
	}
	return nil
}

// toolCommands prints, post-order, every command needed for the targets.
func (a *App) toolCommands(state *domain.State, args []string) error {
	targets, err := a.collectTargets(state, args)
	if err != nil {
		return err
	}
	seen := make(map[*domain.Edge]bool)
	for _, target := range targets {
		a.printCommands(target.InEdge, seen)
	}
	return nil
}

func (a *App) printCommands(edge *domain.Edge, seen map[*domain.Edge]bool) {
	if edge == nil || seen[edge] {
		return
	}
	seen[edge] = true
	for _, in := range edge.Inputs {
		a.printCommands(in.InEdge, seen)
	}
	if !edge.IsPhony() {
		_, _ = fmt.Fprintln(a.out, edge.EvaluateCommand())
	}
}

// toolGraph writes the targets' subgraph as graphviz dot.
func (a *App) toolGraph(state *domain.State, args []string) error {
	targets, err := a.collectTargets(state, args)
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintln(a.out, "digraph knit {")
	_, _ = fmt.Fprintln(a.out, "node [fontsize=10, shape=box, height=0.25]")
	_, _ = fmt.Fprintln(a.out, "edge [fontsize=10]")
	visited := make(map[*domain.Edge]bool)
	for _, target := range targets {
		a.graphNode(target, visited)
	}
	_, _ = fmt.Fprintln(a.out, "}")
	return nil
}

func (a *App) graphNode(node *domain.Node, visited map[*domain.Edge]bool) {
	_, _ = fmt.Fprintf(a.out, "%q [label=%q]\n", node.Path.String(), node.Path.String())
	edge := node.InEdge
	if edge == nil || visited[edge] {
		return
	}
	visited[edge] = true

	if len(edge.Inputs) == 1 && len(edge.Outputs) == 1 {
		_, _ = fmt.Fprintf(a.out, "%q -> %q [label=%q]\n",
			edge.Inputs[0].Path.String(), edge.Outputs[0].Path.String(), edge.Rule.Name)
	} else {
		id := fmt.Sprintf("edge_%d", edge.ID)
		_, _ = fmt.Fprintf(a.out, "%s [label=%q, shape=ellipse]\n", id, edge.Rule.Name)
		for _, out := range edge.Outputs {
			_, _ = fmt.Fprintf(a.out, "%s -> %q\n", id, out.Path.String())
		}
		for _, in := range edge.Inputs {
			_, _ = fmt.Fprintf(a.out, "%q -> %s\n", in.Path.String(), id)
		}
	}
	for _, in := range edge.Inputs {
		a.graphNode(in, visited)
	}
}

// toolClean removes built outputs. -g also removes generator outputs; -r
// interprets the arguments as rule names.
func (a *App) toolClean(state *domain.State, args []string) error {
	flags := pflag.NewFlagSet("clean", pflag.ContinueOnError)
	generator := flags.BoolP("generator", "g", false, "also clean generator outputs")
	byRule := flags.BoolP("rules", "r", false, "interpret targets as rules")
	if err := flags.Parse(args); err != nil {
		return zerr.Wrap(err, "bad clean arguments")
	}
	rest := flags.Args()

	var removed int
	var err error
	switch {
	case *byRule:
		if len(rest) == 0 {
			return zerr.New("expected a rule to clean")
		}
		removed, err = a.cleanRules(state, rest)
	case len(rest) > 0:
		removed, err = a.cleanTargets(state, rest)
	default:
		removed, err = a.cleanAll(state, *generator)
	}
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(a.out, "knit: removed %d files.\n", removed)
	return nil
}

func (a *App) cleanAll(state *domain.State, generator bool) (int, error) {
	removed := 0
	for _, edge := range state.Edges {
		if edge.IsPhony() {
			continue
		}
		if edge.Rule.Generator && !generator {
			continue
		}
		n, err := a.removeOutputs(edge)
		if err != nil {
			return removed, err
		}
		removed += n
	}
	return removed, nil
}

func (a *App) cleanTargets(state *domain.State, args []string) (int, error) {
	targets, err := a.collectTargets(state, args)
	if err != nil {
		return 0, err
	}
	removed := 0
	seen := make(map[*domain.Edge]bool)
	for _, target := range targets {
		n, err := a.cleanSubgraph(target.InEdge, seen)
		if err != nil {
			return removed, err
		}
		removed += n
	}
	return removed, nil
}

func (a *App) cleanSubgraph(edge *domain.Edge, seen map[*domain.Edge]bool) (int, error) {
	if edge == nil || seen[edge] {
		return 0, nil
	}
	seen[edge] = true
	removed := 0
	if !edge.IsPhony() {
		n, err := a.removeOutputs(edge)
		if err != nil {
			return removed, err
		}
		removed += n
	}
	for _, in := range edge.Inputs {
		n, err := a.cleanSubgraph(in.InEdge, seen)
		if err != nil {
			return removed, err
		}
		removed += n
	}
	return removed, nil
}

func (a *App) cleanRules(state *domain.State, ruleNames []string) (int, error) {
	want := make(map[string]bool, len(ruleNames))
	for _, name := range ruleNames {
		if state.LookupRule(name) == nil {
			return 0, zerr.New(fmt.Sprintf("unknown rule %q", name))
		}
		want[name] = true
	}
	removed := 0
	for _, edge := range state.Edges {
		if !want[edge.Rule.Name] {
			continue
		}
		n, err := a.removeOutputs(edge)
		if err != nil {
			return removed, err
		}
		removed += n
	}
	return removed, nil
}

func (a *App) removeOutputs(edge *domain.Edge) (int, error) {
	removed := 0
	for _, out := range edge.Outputs {
		err := a.disk.RemoveFile(out.Path.String())
		switch {
		case err == nil:
			removed++
		case errors.Is(err, fs.ErrNotExist):
			// already clean
		default:
			return removed, zerr.With(zerr.Wrap(err, "failed to remove output"), "path", out.Path.String())
		}
	}
	return removed, nil
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
