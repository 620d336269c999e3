package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/knit/internal/core/domain"
)

func TestEdge_EvaluateCommand(t *testing.T) {
	s := domain.NewState()

	rule := domain.NewRule("cc")
	var cmd domain.EvalString
	cmd.AddText("gcc ")
	cmd.AddVar("cflags")
	cmd.AddText(" -c ")
	cmd.AddVar("in")
	cmd.AddText(" -o ")
	cmd.AddVar("out")
	rule.AddBinding("command", &cmd)
	require.NoError(t, s.AddRule(rule))

	s.Bindings.AddBinding("cflags", "-O2")

	e := s.AddEdge(rule, nil)
	s.AddIn(e, "a.c")
	s.AddIn(e, "a.h")
	e.ImplicitDeps = 1 // a.h is implicit, so excluded from $in
	require.NoError(t, s.AddOut(e, "a.o"))

	assert.Equal(t, "gcc -O2 -c a.c -o a.o", e.EvaluateCommand())
}

func TestEdge_LexicalLookupOrder(t *testing.T) {
	s := domain.NewState()
	s.Bindings.AddBinding("flags", "-file-scope")

	rule := domain.NewRule("r")
	var cmd domain.EvalString
	cmd.AddText("run ")
	cmd.AddVar("flags")
	rule.AddBinding("command", &cmd)

	// Edge-local binding shadows both the rule and the file scope.
	withLocal := s.AddEdge(rule, nil)
	withLocal.Env.AddBinding("flags", "-edge-scope")
	assert.Equal(t, "run -edge-scope", withLocal.EvaluateCommand())

	// Rule binding shadows the file scope.
	var ruleFlags domain.EvalString
	ruleFlags.AddText("-rule-scope")
	rule.AddBinding("flags", &ruleFlags)
	withoutLocal := s.AddEdge(rule, nil)
	assert.Equal(t, "run -rule-scope", withoutLocal.EvaluateCommand())

	// Without either, the file scope answers.
	delete(rule.Bindings, "flags")
	fallback := s.AddEdge(rule, nil)
	assert.Equal(t, "run -file-scope", fallback.EvaluateCommand())
}

func TestEdge_Description(t *testing.T) {
	s := domain.NewState()
	rule := domain.NewRule("cc")
	var cmd domain.EvalString
	cmd.AddText("gcc -c ")
	cmd.AddVar("in")
	rule.AddBinding("command", &cmd)

	e := s.AddEdge(rule, nil)
	s.AddIn(e, "a.c")

	// No description: falls back to the command.
	assert.Equal(t, "gcc -c a.c", e.Description())

	var desc domain.EvalString
	desc.AddText("CC ")
	desc.AddVar("out")
	rule.AddBinding("description", &desc)
	require.NoError(t, s.AddOut(e, "a.o"))
	assert.Equal(t, "CC a.o", e.Description())
}

func TestEdge_Phony(t *testing.T) {
	s := domain.NewState()
	e := s.AddEdge(s.LookupRule(domain.PhonyRuleName), nil)
	s.AddIn(e, "app")
	require.NoError(t, s.AddOut(e, "all"))

	assert.True(t, e.IsPhony())
	assert.Equal(t, "", e.EvaluateCommand())
}

func TestEdge_InputGroups(t *testing.T) {
	s := domain.NewState()
	rule := commandRule("cc", "cc")
	e := s.AddEdge(rule, nil)
	for _, in := range []string{"a.c", "b.c", "a.h", "dir"} {
		s.AddIn(e, in)
	}
	e.ImplicitDeps = 1
	e.OrderOnlyDeps = 1

	assert.Equal(t, []string{"a.c", "b.c"}, paths(e.ExplicitInputs()))
	assert.Equal(t, []string{"a.c", "b.c", "a.h"}, paths(e.DependencyInputs()))
	assert.False(t, e.IsImplicit(0))
	assert.True(t, e.IsImplicit(2))
	assert.False(t, e.IsOrderOnly(2))
	assert.True(t, e.IsOrderOnly(3))
}

func paths(nodes []*domain.Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.Path.String()
	}
	return out
}
