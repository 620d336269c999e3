package scan_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/knit/internal/adapters/buildlog"
	"go.trai.ch/knit/internal/adapters/fs"
	"go.trai.ch/knit/internal/adapters/manifest"
	"go.trai.ch/knit/internal/adapters/metrics"
	"go.trai.ch/knit/internal/core/domain"
	"go.trai.ch/knit/internal/core/ports/mocks"
	"go.trai.ch/knit/internal/engine/scan"
	"go.uber.org/mock/gomock"
)

type fixture struct {
	t       *testing.T
	disk    *fs.VirtualDisk
	log     *buildlog.Log
	scanner *scan.Scanner
	state   *domain.State
}

func newFixture(t *testing.T, manifestText string) *fixture {
	t.Helper()
	disk := fs.NewVirtualDisk()
	disk.Create("build.ninja", manifestText)

	state, err := manifest.NewLoader(disk).Load("build.ninja")
	require.NoError(t, err)

	logger := mocks.NewMockLogger(gomock.NewController(t))
	logger.EXPECT().Warn(gomock.Any()).AnyTimes()
	log := buildlog.New(logger)

	return &fixture{
		t:       t,
		disk:    disk,
		log:     log,
		scanner: scan.NewScanner(disk, log, metrics.NewNoop()),
		state:   state,
	}
}

// pretendBuilt stamps outputs on disk and records the edge in the log, as if
// a previous build had run it.
func (f *fixture) pretendBuilt(edge *domain.Edge) {
	f.t.Helper()
	f.disk.Tick()
	for _, out := range edge.Outputs {
		f.disk.Create(out.Path.String(), "")
	}
	require.NoError(f.t, f.log.RecordCommand(edge, 0, 0))
}

func (f *fixture) node(path string) *domain.Node {
	f.t.Helper()
	n := f.state.LookupNode(path)
	require.NotNil(f.t, n, "node %s", path)
	return n
}

const chainManifest = `
rule cc
  command = cc $in -o $out

build a.o: cc a.c
build app: cc a.o
`

func TestScanner_MissingOutputsAreDirty(t *testing.T) {
	f := newFixture(t, chainManifest)
	f.disk.Create("a.c", "")

	require.NoError(t, f.scanner.RecomputeDirty(f.node("app")))

	assert.True(t, f.node("a.o").Dirty)
	assert.True(t, f.node("app").Dirty)
	assert.False(t, f.node("a.c").Dirty)
}

func TestScanner_UpToDateChainIsClean(t *testing.T) {
	f := newFixture(t, chainManifest)
	f.disk.Create("a.c", "")
	f.pretendBuilt(f.state.Edges[0])
	f.pretendBuilt(f.state.Edges[1])

	require.NoError(t, f.scanner.RecomputeDirty(f.node("app")))

	assert.False(t, f.node("a.o").Dirty)
	assert.False(t, f.node("app").Dirty)
}

func TestScanner_CommandChangeDirties(t *testing.T) {
	f := newFixture(t, chainManifest)
	f.disk.Create("a.c", "")
	f.pretendBuilt(f.state.Edges[0])
	f.pretendBuilt(f.state.Edges[1])

	// Same files on disk, different command: reparse with a changed rule.
	f.disk.Create("build.ninja", `
rule cc
  command = cc -O2 $in -o $out

build a.o: cc a.c
build app: cc a.o
`)
	state, err := manifest.NewLoader(f.disk).Load("build.ninja")
	require.NoError(t, err)
	f.state = state

	require.NoError(t, f.scanner.RecomputeDirty(f.node("app")))

	assert.True(t, f.node("a.o").Dirty)
	assert.True(t, f.node("app").Dirty)
}

func TestScanner_NewerInputDirties(t *testing.T) {
	f := newFixture(t, chainManifest)
	f.disk.Create("a.c", "")
	f.pretendBuilt(f.state.Edges[0])
	f.pretendBuilt(f.state.Edges[1])

	// Touch the source after the outputs were built.
	f.disk.Tick()
	f.disk.Create("a.c", "changed")

	require.NoError(t, f.scanner.RecomputeDirty(f.node("app")))

	assert.True(t, f.node("a.o").Dirty)
	// Dirtiness propagates through the dirty intermediate.
	assert.True(t, f.node("app").Dirty)
}

func TestScanner_NoLogEntryDirties(t *testing.T) {
	f := newFixture(t, chainManifest)
	f.disk.Create("a.c", "")
	// Outputs exist with good mtimes but the log knows nothing about them.
	f.disk.Tick()
	f.disk.Create("a.o", "")
	f.disk.Create("app", "")

	require.NoError(t, f.scanner.RecomputeDirty(f.node("app")))

	assert.True(t, f.node("a.o").Dirty)
	assert.True(t, f.node("app").Dirty)
}

func TestScanner_MissingSourceFails(t *testing.T) {
	f := newFixture(t, chainManifest)

	err := f.scanner.RecomputeDirty(f.node("app"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrMissingInput))
}

func TestScanner_CycleFails(t *testing.T) {
	f := newFixture(t, `
rule cc
  command = cc $in -o $out

build a: cc b
build b: cc a
`)

	err := f.scanner.RecomputeDirty(f.node("a"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrCycleDetected))
}

func TestScanner_OrderOnlyDoesNotDirty(t *testing.T) {
	f := newFixture(t, `
rule cc
  command = cc $in -o $out

build gen.h: cc gen.in
build a.o: cc a.c || gen.h
`)
	f.disk.Create("a.c", "")
	f.disk.Create("gen.in", "")
	f.pretendBuilt(f.state.Edges[0])
	f.pretendBuilt(f.state.Edges[1])

	// Regenerate the order-only input after a.o was built.
	f.disk.Tick()
	f.disk.Create("gen.in", "changed")

	require.NoError(t, f.scanner.RecomputeDirty(f.node("a.o")))

	assert.True(t, f.node("gen.h").Dirty)
	assert.False(t, f.node("a.o").Dirty)
}

func TestScanner_PhonyPropagation(t *testing.T) {
	f := newFixture(t, `
rule cc
  command = cc $in -o $out

build app: cc a.c
build tests: cc t.c
build all: phony app tests
`)
	f.disk.Create("a.c", "")
	f.disk.Create("t.c", "")
	f.pretendBuilt(f.state.Edges[0])
	f.pretendBuilt(f.state.Edges[1])

	// Clean everywhere: the phony alias is clean too.
	require.NoError(t, f.scanner.RecomputeDirty(f.node("all")))
	assert.False(t, f.node("all").Dirty)

	// Dirty one input: the alias and anything beyond it goes dirty.
	f2 := newFixture(t, `
rule cc
  command = cc $in -o $out

build app: cc a.c
build tests: cc t.c
build all: phony app tests
`)
	f2.disk.Create("a.c", "")
	f2.disk.Create("t.c", "")
	f2.pretendBuilt(f2.state.Edges[0])
	f2.pretendBuilt(f2.state.Edges[1])
	f2.disk.Tick()
	f2.disk.Create("a.c", "changed")

	require.NoError(t, f2.scanner.RecomputeDirty(f2.node("all")))
	assert.True(t, f2.node("app").Dirty)
	assert.False(t, f2.node("tests").Dirty)
	assert.True(t, f2.node("all").Dirty)
}

func TestScanner_DirtyConsumersOfDirtyEdges(t *testing.T) {
	// Property: every wanted consumer of a dirty edge's output is dirty.
	f := newFixture(t, `
rule cc
  command = cc $in -o $out

build a.o: cc a.c
build b.o: cc b.c
build app: cc a.o b.o
`)
	f.disk.Create("a.c", "")
	f.disk.Create("b.c", "")
	for _, e := range f.state.Edges {
		f.pretendBuilt(e)
	}
	f.disk.Tick()
	f.disk.Create("b.c", "changed")

	require.NoError(t, f.scanner.RecomputeDirty(f.node("app")))

	assert.False(t, f.node("a.o").Dirty)
	assert.True(t, f.node("b.o").Dirty)
	assert.True(t, f.node("app").Dirty)
}
