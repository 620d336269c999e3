package status

import (
	"fmt"

	"github.com/opencontainers/go-digest"
	"github.com/vito/progrock"
	"go.trai.ch/knit/internal/core/domain"
	"go.trai.ch/knit/internal/core/ports"
)

var _ ports.Status = (*Progress)(nil)

// Progress implements ports.Status on a progrock recorder: one vertex per
// edge, with command output attached to the vertex.
type Progress struct {
	w        progrock.Writer
	rec      *progrock.Recorder
	vertices map[int]*progrock.VertexRecorder
}

// NewProgress creates a Progress with a default tape.
func NewProgress() *Progress {
	return NewProgressWithWriter(progrock.NewTape())
}

// NewProgressWithWriter creates a Progress recording onto w.
func NewProgressWithWriter(w progrock.Writer) *Progress {
	return &Progress{
		w:        w,
		rec:      progrock.NewRecorder(w),
		vertices: make(map[int]*progrock.VertexRecorder),
	}
}

// PlanReady is carried by the vertex tree; nothing to announce up front.
func (p *Progress) PlanReady(int) {}

// EdgeStarted opens a vertex named after the edge.
func (p *Progress) EdgeStarted(edge *domain.Edge) {
	name := edge.Description()
	if name == "" {
		name = "phony " + pathNames(edge.Outputs)
	}
	d := digest.FromString(pathNames(edge.Outputs))
	p.vertices[edge.ID] = p.rec.Vertex(d, name)
}

// EdgeFinished completes the edge's vertex, attaching captured output.
func (p *Progress) EdgeFinished(edge *domain.Edge, success bool, output string) {
	v, ok := p.vertices[edge.ID]
	if !ok {
		return
	}
	delete(p.vertices, edge.ID)
	if output != "" {
		_, _ = fmt.Fprint(v.Stdout(), output)
	}
	if success {
		v.Done(nil)
		return
	}
	v.Done(domain.ErrCommandFailed)
}

// NoWorkToDo records a single already-complete vertex.
func (p *Progress) NoWorkToDo() {
	v := p.rec.Vertex(digest.FromString("no-work"), "no work to do")
	v.Done(nil)
}

// BuildStopped records the stop reason as a failed vertex.
func (p *Progress) BuildStopped(reason string) {
	v := p.rec.Vertex(digest.FromString("stopped"), "build stopped: "+reason)
	v.Done(domain.ErrBuildStopped)
}

// BuildFinished closes the recording session.
func (p *Progress) BuildFinished() {
	if c, ok := p.w.(interface{ Close() error }); ok {
		_ = c.Close()
	}
}

func pathNames(nodes []*domain.Node) string {
	out := ""
	for i, n := range nodes {
		if i > 0 {
			out += " "
		}
		out += n.Path.String()
	}
	return out
}
