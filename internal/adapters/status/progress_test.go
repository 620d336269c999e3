package status_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/vito/progrock"
	"go.trai.ch/knit/internal/adapters/status"
)

func TestProgress_RecordsEdgeLifecycle(t *testing.T) {
	p := status.NewProgressWithWriter(progrock.NewTape())
	assert.NotNil(t, p)

	edge := ccEdge(t)
	p.PlanReady(1)
	p.EdgeStarted(edge)
	p.EdgeFinished(edge, true, "warning: unused variable\n")

	// Finishing an edge twice must not panic; the vertex is gone.
	p.EdgeFinished(edge, true, "")
	p.BuildFinished()
}

func TestProgress_NoWork(t *testing.T) {
	p := status.NewProgress()
	p.NoWorkToDo()
	p.BuildFinished()
}
