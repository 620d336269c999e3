// Package status renders coordinator events for the user: a plain
// line-oriented printer, and a progrock-backed renderer for rich terminals.
package status

import (
	"fmt"
	"io"

	"go.trai.ch/knit/internal/core/domain"
	"go.trai.ch/knit/internal/core/ports"
)

var _ ports.Status = (*LinePrinter)(nil)

// LinePrinter writes one line per started edge, suitable for dumb terminals
// and log capture. In verbose mode it prints the full command instead of the
// edge description.
type LinePrinter struct {
	out     io.Writer
	errOut  io.Writer
	verbose bool

	total   int
	started int
}

// NewLinePrinter creates a printer writing progress to out and failures to errOut.
func NewLinePrinter(out, errOut io.Writer, verbose bool) *LinePrinter {
	return &LinePrinter{out: out, errOut: errOut, verbose: verbose}
}

// PlanReady records the edge count for the [n/total] prefix.
func (p *LinePrinter) PlanReady(total int) {
	p.total = total
	p.started = 0
}

// EdgeStarted prints the edge's description (or command, in verbose mode).
func (p *LinePrinter) EdgeStarted(edge *domain.Edge) {
	p.started++
	text := edge.Description()
	if p.verbose {
		text = edge.EvaluateCommand()
	}
	if text == "" {
		return // phony edges have nothing to say
	}
	_, _ = fmt.Fprintf(p.out, "[%d/%d] %s\n", p.started, p.total, text)
}

// EdgeFinished forwards captured output, prefixing failures with the command
// that produced them.
func (p *LinePrinter) EdgeFinished(edge *domain.Edge, success bool, output string) {
	if !success {
		_, _ = fmt.Fprintf(p.errOut, "FAILED: %s\n", edge.EvaluateCommand())
	}
	if output != "" {
		_, _ = fmt.Fprint(p.out, output)
		if output[len(output)-1] != '\n' {
			_, _ = fmt.Fprintln(p.out)
		}
	}
}

// NoWorkToDo reports an empty plan.
func (p *LinePrinter) NoWorkToDo() {
	_, _ = fmt.Fprintln(p.out, "knit: no work to do.")
}

// BuildStopped reports an aborted build.
func (p *LinePrinter) BuildStopped(reason string) {
	_, _ = fmt.Fprintf(p.out, "knit: build stopped: %s.\n", reason)
}

// BuildFinished is a no-op for the line printer.
func (p *LinePrinter) BuildFinished() {}
