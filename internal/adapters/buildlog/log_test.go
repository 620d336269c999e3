package buildlog_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/knit/internal/adapters/buildlog"
	"go.trai.ch/knit/internal/core/domain"
	"go.trai.ch/knit/internal/core/ports/mocks"
	"go.uber.org/mock/gomock"
)

func quietLogger(t *testing.T) *mocks.MockLogger {
	t.Helper()
	logger := mocks.NewMockLogger(gomock.NewController(t))
	logger.EXPECT().Warn(gomock.Any()).AnyTimes()
	return logger
}

func catEdge(t *testing.T, s *domain.State, in, out string) *domain.Edge {
	t.Helper()
	rule := s.LookupRule("cat")
	if rule == nil {
		rule = domain.NewRule("cat")
		var cmd domain.EvalString
		cmd.AddText("cat ")
		cmd.AddVar("in")
		cmd.AddText(" > ")
		cmd.AddVar("out")
		rule.AddBinding("command", &cmd)
		require.NoError(t, s.AddRule(rule))
	}
	e := s.AddEdge(rule, nil)
	s.AddIn(e, in)
	require.NoError(t, s.AddOut(e, out))
	return e
}

func TestLog_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".knit_log")
	s := domain.NewState()
	first := catEdge(t, s, "a.c", "a.o")
	second := catEdge(t, s, "a.o", "app")

	l := buildlog.New(quietLogger(t))
	require.NoError(t, l.OpenForWrite(path))
	require.NoError(t, l.RecordCommand(first, 10, 11))
	require.NoError(t, l.RecordCommand(second, 11, 13))
	require.NoError(t, l.Close())

	reloaded := buildlog.New(quietLogger(t))
	require.NoError(t, reloaded.Load(path))

	entry := reloaded.Lookup("a.o")
	require.NotNil(t, entry)
	assert.Equal(t, l.HashCommand(first.EvaluateCommand()), entry.CommandHash)
	assert.Equal(t, domain.TimeStamp(10), entry.StartTime)
	assert.Equal(t, domain.TimeStamp(11), entry.EndTime)

	entry = reloaded.Lookup("app")
	require.NotNil(t, entry)
	assert.Equal(t, l.HashCommand(second.EvaluateCommand()), entry.CommandHash)

	assert.Nil(t, reloaded.Lookup("b.o"))
}

func TestLog_LatestRecordWins(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".knit_log")
	s := domain.NewState()
	edge := catEdge(t, s, "a.c", "a.o")

	l := buildlog.New(quietLogger(t))
	require.NoError(t, l.OpenForWrite(path))
	require.NoError(t, l.RecordCommand(edge, 1, 2))
	require.NoError(t, l.RecordCommand(edge, 5, 7))
	require.NoError(t, l.Close())

	reloaded := buildlog.New(quietLogger(t))
	require.NoError(t, reloaded.Load(path))
	entry := reloaded.Lookup("a.o")
	require.NotNil(t, entry)
	assert.Equal(t, domain.TimeStamp(5), entry.StartTime)
	assert.Equal(t, domain.TimeStamp(7), entry.EndTime)
}

func TestLog_TruncatesAtFirstBadLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".knit_log")
	content := "# knit log v1\n" +
		"1\t2\ta.o\t00000000deadbeef\n" +
		"garbage line\n" +
		"3\t4\tapp\t00000000deadbeef\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	ctrl := gomock.NewController(t)
	logger := mocks.NewMockLogger(ctrl)
	logger.EXPECT().Warn(gomock.Any())

	l := buildlog.New(logger)
	require.NoError(t, l.Load(path))

	// The record before the corruption survives; everything after is dropped.
	assert.NotNil(t, l.Lookup("a.o"))
	assert.Nil(t, l.Lookup("app"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.False(t, strings.Contains(string(data), "garbage"))
	assert.False(t, strings.Contains(string(data), "app"))
}

func TestLog_MissingFileIsEmpty(t *testing.T) {
	l := buildlog.New(quietLogger(t))
	require.NoError(t, l.Load(filepath.Join(t.TempDir(), "absent")))
	assert.Nil(t, l.Lookup("a.o"))
}

func TestLog_Recompacts(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".knit_log")
	s := domain.NewState()
	edge := catEdge(t, s, "a.c", "a.o")

	l := buildlog.New(quietLogger(t))
	require.NoError(t, l.OpenForWrite(path))
	for i := range 1200 {
		require.NoError(t, l.RecordCommand(edge, domain.TimeStamp(i), domain.TimeStamp(i+1)))
	}
	require.NoError(t, l.Close())

	big, err := os.Stat(path)
	require.NoError(t, err)

	reloaded := buildlog.New(quietLogger(t))
	require.NoError(t, reloaded.Load(path))
	require.NotNil(t, reloaded.Lookup("a.o"))

	small, err := os.Stat(path)
	require.NoError(t, err)
	assert.Less(t, small.Size(), big.Size()/100)
}

func TestLog_HashDependsOnCommand(t *testing.T) {
	l := buildlog.New(quietLogger(t))
	assert.NotEqual(t, l.HashCommand("cc -O2"), l.HashCommand("cc -O3"))
	assert.Equal(t, l.HashCommand("cc -O2"), l.HashCommand("cc -O2"))
}
