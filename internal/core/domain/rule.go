package domain

// PhonyRuleName is the reserved rule name for edges that produce no command.
const PhonyRuleName = "phony"

// Rule is a named command template. Bindings hold the unevaluated templates
// declared under the rule (at minimum "command"); they are resolved against an
// edge's scope at evaluation time.
type Rule struct {
	Name     string
	Bindings map[string]*EvalString

	// Generator outputs survive clean by default. The manifest reload does
	// not consult this flag: any edge that produces the manifest triggers it.
	Generator bool

	// Restat edges re-stat their outputs after running; unchanged outputs do
	// not dirty dependents.
	Restat bool
}

// NewRule creates a rule with no bindings.
func NewRule(name string) *Rule {
	return &Rule{
		Name:     name,
		Bindings: make(map[string]*EvalString),
	}
}

// AddBinding attaches a value template to the rule.
func (r *Rule) AddBinding(name string, value *EvalString) {
	r.Bindings[name] = value
}
