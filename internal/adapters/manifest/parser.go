// Package manifest parses build manifests into a domain.State.
package manifest

import (
	"fmt"

	"go.trai.ch/knit/internal/core/domain"
	"go.trai.ch/zerr"
)

// parser consumes one manifest file. include/subninja recurse through the
// owning Loader so nested files share the read cache.
type parser struct {
	loader *Loader
	state  *domain.State
	env    *domain.BindingEnv

	filename  string
	input     []byte
	pos       int
	line      int
	lineStart int
}

func newParser(loader *Loader, state *domain.State, env *domain.BindingEnv, filename string, input []byte) *parser {
	return &parser{
		loader:   loader,
		state:    state,
		env:      env,
		filename: filename,
		input:    input,
		line:     1,
	}
}

func (p *parser) errorf(format string, args ...any) error {
	err := zerr.Wrap(domain.ErrParse, fmt.Sprintf(format, args...))
	return zerr.With(err, "location", fmt.Sprintf("%s:%d:%d", p.filename, p.line, p.pos-p.lineStart+1))
}

func (p *parser) eof() bool {
	return p.pos >= len(p.input)
}

func (p *parser) peek() byte {
	if p.eof() {
		return 0
	}
	return p.input[p.pos]
}

func (p *parser) advance() byte {
	c := p.input[p.pos]
	p.pos++
	if c == '\n' {
		p.line++
		p.lineStart = p.pos
	}
	return c
}

func (p *parser) skipSpaces() {
	for !p.eof() && (p.peek() == ' ' || p.peek() == '\t') {
		p.pos++
	}
}

// skipBlankLines consumes empty lines and comment lines. It stops with pos at
// the first byte of a significant line.
func (p *parser) skipBlankLines() {
	for !p.eof() {
		mark := p.pos
		markLine, markStart := p.line, p.lineStart
		for !p.eof() && (p.peek() == ' ' || p.peek() == '\t') {
			p.pos++
		}
		switch {
		case p.eof():
			return
		case p.peek() == '\n':
			p.advance()
		case p.peek() == '#':
			for !p.eof() && p.advance() != '\n' {
			}
		default:
			// Significant line: rewind to its start (indentation included) so
			// the caller decides whether indentation is legal here.
			p.pos = mark
			p.line, p.lineStart = markLine, markStart
			return
		}
	}
}

func isIdentChar(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' ||
		c >= '0' && c <= '9' || c == '_' || c == '-' || c == '.'
}

func (p *parser) readIdent() string {
	start := p.pos
	for !p.eof() && isIdentChar(p.peek()) {
		p.pos++
	}
	return string(p.input[start:p.pos])
}

func (p *parser) expectNewline(context string) error {
	p.skipSpaces()
	if p.eof() {
		return nil
	}
	if p.peek() != '\n' {
		return p.errorf("expected newline after %s", context)
	}
	p.advance()
	return nil
}

// readEvalString parses a value template. In path mode it stops (without
// consuming) at space, ':', '|' or newline; in value mode only at newline.
func (p *parser) readEvalString(path bool) (*domain.EvalString, error) {
	var out domain.EvalString
	literalStart := p.pos

	flush := func(end int) {
		if end > literalStart {
			out.AddText(string(p.input[literalStart:end]))
		}
	}

	for !p.eof() {
		c := p.peek()
		if c == '\n' || (path && (c == ' ' || c == ':' || c == '|')) {
			break
		}
		if c != '$' {
			p.pos++
			continue
		}

		flush(p.pos)
		p.pos++
		if p.eof() {
			return nil, p.errorf("unexpected end of file after '$'")
		}
		switch esc := p.peek(); {
		case esc == '$' || esc == ' ' || esc == ':':
			out.AddText(string(esc))
			p.pos++
		case esc == '\n':
			p.advance()
			p.skipSpaces()
		case esc == '{':
			p.pos++
			name := p.readIdent()
			if name == "" || p.eof() || p.peek() != '}' {
				return nil, p.errorf("bad ${...} reference")
			}
			p.pos++
			out.AddVar(name)
		case isIdentChar(esc) && esc != '.':
			// A bare $name stops at '.', so "$out.rsp" is $out followed by
			// ".rsp"; only ${name} admits dots.
			start := p.pos
			for !p.eof() && isIdentChar(p.peek()) && p.peek() != '.' {
				p.pos++
			}
			out.AddVar(string(p.input[start:p.pos]))
		default:
			return nil, p.errorf("bad $-escape '$%c'", esc)
		}
		literalStart = p.pos
	}
	flush(p.pos)
	return &out, nil
}

// readPath reads and evaluates one path token, returning "" at a delimiter.
func (p *parser) readPath(env domain.Env) (string, error) {
	p.skipSpaces()
	if p.eof() || p.peek() == '\n' || p.peek() == ':' || p.peek() == '|' {
		return "", nil
	}
	es, err := p.readEvalString(true)
	if err != nil {
		return "", err
	}
	raw := es.Evaluate(env)
	canon, err := domain.CanonicalizePath(raw)
	if err != nil {
		return "", p.errorf("bad path %q: %v", raw, err)
	}
	return canon, nil
}

func (p *parser) readPaths(env domain.Env) ([]string, error) {
	var paths []string
	for {
		path, err := p.readPath(env)
		if err != nil {
			return nil, err
		}
		if path == "" {
			return paths, nil
		}
		paths = append(paths, path)
	}
}

// parseLet parses "ident = value" with pos already at the identifier.
func (p *parser) parseLet() (string, *domain.EvalString, error) {
	name := p.readIdent()
	if name == "" {
		return "", nil, p.errorf("expected variable name")
	}
	p.skipSpaces()
	if p.eof() || p.peek() != '=' {
		return "", nil, p.errorf("expected '=' after %q", name)
	}
	p.pos++
	p.skipSpaces()
	value, err := p.readEvalString(false)
	if err != nil {
		return "", nil, err
	}
	if err := p.expectNewline("binding"); err != nil {
		return "", nil, err
	}
	return name, value, nil
}

// parseIndentedBindings consumes the "  key = value" block following a rule
// or build declaration, handing each pair to bind.
func (p *parser) parseIndentedBindings(bind func(name string, value *domain.EvalString) error) error {
	for {
		p.skipBlankLines()
		if p.eof() || (p.peek() != ' ' && p.peek() != '\t') {
			return nil
		}
		p.skipSpaces()
		name, value, err := p.parseLet()
		if err != nil {
			return err
		}
		if err := bind(name, value); err != nil {
			return err
		}
	}
}

func (p *parser) parseRule() error {
	p.skipSpaces()
	name := p.readIdent()
	if name == "" {
		return p.errorf("expected rule name")
	}
	if err := p.expectNewline("rule name"); err != nil {
		return err
	}

	rule := domain.NewRule(name)
	err := p.parseIndentedBindings(func(key string, value *domain.EvalString) error {
		switch key {
		case "generator":
			rule.Generator = true
		case "restat":
			rule.Restat = true
		default:
			rule.AddBinding(key, value)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if _, ok := rule.Bindings["command"]; !ok {
		return p.errorf("rule %q is missing the command binding", name)
	}
	if addErr := p.state.AddRule(rule); addErr != nil {
		return p.errorf("duplicate rule %q", name)
	}
	return nil
}

func (p *parser) parseBuild() error {
	outs, err := p.readPaths(p.env)
	if err != nil {
		return err
	}
	if len(outs) == 0 {
		return p.errorf("expected output path")
	}
	p.skipSpaces()
	if p.eof() || p.peek() != ':' {
		return p.errorf("expected ':' after outputs")
	}
	p.pos++
	p.skipSpaces()

	ruleName := p.readIdent()
	if ruleName == "" {
		return p.errorf("expected rule name after ':'")
	}
	rule := p.state.LookupRule(ruleName)
	if rule == nil {
		return p.errorf("unknown rule %q", ruleName)
	}

	explicit, err := p.readPaths(p.env)
	if err != nil {
		return err
	}

	var implicit, orderOnly []string
	if !p.eof() && p.peek() == '|' {
		p.pos++
		if !p.eof() && p.peek() == '|' {
			p.pos++
			if orderOnly, err = p.readPaths(p.env); err != nil {
				return err
			}
		} else {
			if implicit, err = p.readPaths(p.env); err != nil {
				return err
			}
			if !p.eof() && p.peek() == '|' {
				p.pos++
				if p.eof() || p.peek() != '|' {
					return p.errorf("expected '||' before order-only inputs")
				}
				p.pos++
				if orderOnly, err = p.readPaths(p.env); err != nil {
					return err
				}
			}
		}
	}
	location := fmt.Sprintf("%s:%d:%d", p.filename, p.line, p.pos-p.lineStart+1)
	if err := p.expectNewline("build declaration"); err != nil {
		return err
	}

	edge := p.state.AddEdge(rule, p.env)
	for _, out := range outs {
		if addErr := p.state.AddOut(edge, out); addErr != nil {
			return zerr.With(addErr, "location", location)
		}
	}
	for _, in := range explicit {
		p.state.AddIn(edge, in)
	}
	for _, in := range implicit {
		p.state.AddIn(edge, in)
	}
	for _, in := range orderOnly {
		p.state.AddIn(edge, in)
	}
	edge.ImplicitDeps = len(implicit)
	edge.OrderOnlyDeps = len(orderOnly)

	// Inputs and outputs are attached first so edge-local bindings can
	// reference $in and $out.
	return p.parseIndentedBindings(func(key string, value *domain.EvalString) error {
		edge.Env.AddBinding(key, edge.EvaluateBinding(value))
		return nil
	})
}

func (p *parser) parseDefault() error {
	paths, err := p.readPaths(p.env)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return p.errorf("expected target name after default")
	}
	for _, path := range paths {
		if err := p.state.AddDefault(path); err != nil {
			return p.errorf("default target %q is unknown", path)
		}
	}
	return p.expectNewline("default declaration")
}

func (p *parser) parseFileInclude(newScope bool) error {
	path, err := p.readPath(p.env)
	if err != nil {
		return err
	}
	if path == "" {
		return p.errorf("expected path after include")
	}
	if err := p.expectNewline("include declaration"); err != nil {
		return err
	}

	env := p.env
	if newScope {
		env = domain.NewBindingEnv(p.env)
	}
	if err := p.loader.loadInto(path, p.state, env); err != nil {
		return err
	}
	return nil
}

func (p *parser) parse() error {
	for {
		p.skipBlankLines()
		if p.eof() {
			return nil
		}
		if p.peek() == ' ' || p.peek() == '\t' {
			return p.errorf("unexpected indent")
		}

		mark := p.pos
		token := p.readIdent()
		switch token {
		case "rule":
			if err := p.parseRule(); err != nil {
				return err
			}
		case "build":
			if err := p.parseBuild(); err != nil {
				return err
			}
		case "default":
			if err := p.parseDefault(); err != nil {
				return err
			}
		case "include":
			if err := p.parseFileInclude(false); err != nil {
				return err
			}
		case "subninja":
			if err := p.parseFileInclude(true); err != nil {
				return err
			}
		case "":
			return p.errorf("unexpected character %q", string(p.peek()))
		default:
			p.pos = mark
			name, value, err := p.parseLet()
			if err != nil {
				return err
			}
			p.env.AddBinding(name, value.Evaluate(p.env))
		}
	}
}
