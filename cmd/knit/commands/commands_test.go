package commands_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/knit/cmd/knit/commands"
	"go.trai.ch/knit/internal/adapters/config"
	"go.trai.ch/knit/internal/adapters/fs"
	"go.trai.ch/knit/internal/adapters/manifest"
	"go.trai.ch/knit/internal/app"
	"go.trai.ch/knit/internal/core/ports/mocks"
	"go.uber.org/mock/gomock"
)

const chainManifest = `
rule cc
  command = cc $in -o $out
  description = CC $out

build a.o: cc a.c
build app: cc a.o
`

type fixture struct {
	cli    *commands.CLI
	disk   *fs.VirtualDisk
	out    strings.Builder
	errOut strings.Builder
	cmdOut strings.Builder
	cmdErr strings.Builder
}

func newFixture(t *testing.T, files map[string]string) *fixture {
	t.Helper()
	t.Chdir(t.TempDir())

	disk := fs.NewVirtualDisk()
	for path, contents := range files {
		disk.Create(path, contents)
	}

	logger := mocks.NewMockLogger(gomock.NewController(t))
	logger.EXPECT().Warn(gomock.Any()).AnyTimes()
	logger.EXPECT().Info(gomock.Any()).AnyTimes()
	logger.EXPECT().Error(gomock.Any()).AnyTimes()

	f := &fixture{disk: disk}
	application := app.New(logger, disk, manifest.NewLoader(disk), config.NewLoader(disk)).
		WithOutput(&f.out, &f.errOut)

	f.cli = commands.New(&app.Components{App: application, Logger: logger})
	f.cli.SetOutput(&f.cmdOut, &f.cmdErr)
	return f
}

func TestSplitToolArgs(t *testing.T) {
	cases := []struct {
		in         []string
		wantEngine []string
		wantTool   []string
	}{
		{[]string{"app", "tests"}, []string{"app", "tests"}, nil},
		{[]string{"-j", "4", "-t", "clean", "-g", "app"}, []string{"-j", "4", "-t", "clean"}, []string{"-g", "app"}},
		{[]string{"-t=query", "a.o"}, []string{"-t=query"}, []string{"a.o"}},
		{[]string{"-tlist"}, []string{"-tlist"}, []string{}},
		{[]string{"--tool", "targets", "all"}, []string{"--tool", "targets"}, []string{"all"}},
		{nil, nil, nil},
	}

	for _, tc := range cases {
		engine, tool := commands.SplitToolArgs(tc.in)
		assert.Equal(t, tc.wantEngine, engine, "input %v", tc.in)
		assert.Len(t, tool, len(tc.wantTool), "input %v", tc.in)
		for i := range tool {
			assert.Equal(t, tc.wantTool[i], tool[i])
		}
	}
}

func TestCLI_DryRunBuild(t *testing.T) {
	f := newFixture(t, map[string]string{"build.ninja": chainManifest, "a.c": ""})

	require.NoError(t, f.cli.Execute(context.Background(), []string{"-n", "app"}))
	assert.Contains(t, f.out.String(), "[1/2] CC a.o")
	assert.Contains(t, f.out.String(), "[2/2] CC app")
}

func TestCLI_UnknownFlagIsUsageError(t *testing.T) {
	f := newFixture(t, map[string]string{"build.ninja": chainManifest, "a.c": ""})

	err := f.cli.Execute(context.Background(), []string{"--frobnicate"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, commands.ErrUsage))
}

func TestCLI_ToolListAndPassthrough(t *testing.T) {
	f := newFixture(t, map[string]string{"build.ninja": chainManifest, "a.c": ""})
	require.NoError(t, f.cli.Execute(context.Background(), []string{"-t", "list"}))
	assert.Contains(t, f.out.String(), "knit subtools:")

	// Tool flags are not top-level flags.
	f2 := newFixture(t, map[string]string{"build.ninja": chainManifest, "a.c": ""})
	f2.disk.Create("a.o", "")
	require.NoError(t, f2.cli.Execute(context.Background(), []string{"-t", "clean", "-g"}))
	assert.Contains(t, f2.disk.Removed(), "a.o")
}

func TestCLI_DebugModes(t *testing.T) {
	f := newFixture(t, map[string]string{"build.ninja": chainManifest, "a.c": ""})
	require.NoError(t, f.cli.Execute(context.Background(), []string{"-d", "list"}))
	assert.Contains(t, f.cmdOut.String(), "stats")

	f2 := newFixture(t, map[string]string{"build.ninja": chainManifest, "a.c": ""})
	err := f2.cli.Execute(context.Background(), []string{"-d", "bogus"})
	require.Error(t, err)
	assert.False(t, errors.Is(err, commands.ErrUsage))
}

func TestCLI_EnteringDirectory(t *testing.T) {
	f := newFixture(t, map[string]string{"build.ninja": chainManifest, "a.c": ""})

	require.NoError(t, f.cli.Execute(context.Background(), []string{"-C", ".", "-n", "app"}))
	assert.Contains(t, f.cmdOut.String(), "knit: Entering directory `.'")
}

func TestCLI_DefaultsFileApplies(t *testing.T) {
	f := newFixture(t, map[string]string{
		"build.ninja": chainManifest,
		"a.c":         "",
		".knit.yaml":  "verbose: true\n",
	})

	require.NoError(t, f.cli.Execute(context.Background(), []string{"-n", "app"}))
	// Verbose default: commands, not descriptions.
	assert.Contains(t, f.out.String(), "cc a.c -o a.o")
}
