package shell_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/knit/internal/adapters/shell"
	"go.trai.ch/knit/internal/core/ports/mocks"
	"go.uber.org/mock/gomock"
)

func newRunner(t *testing.T, parallelism int) *shell.Runner {
	t.Helper()
	logger := mocks.NewMockLogger(gomock.NewController(t))
	logger.EXPECT().Error(gomock.Any()).AnyTimes()
	return shell.NewRunner(logger, parallelism)
}

func TestRunner_Success(t *testing.T) {
	r := newRunner(t, 2)
	defer r.Close() //nolint:errcheck // best effort in test

	ctx := context.Background()
	r.StartCommand(ctx, 7, "echo hello")

	res, err := r.WaitForCommand(ctx)
	require.NoError(t, err)
	assert.Equal(t, 7, res.EdgeID)
	assert.True(t, res.Success)
	assert.Equal(t, "hello\n", res.Output)
}

func TestRunner_Failure(t *testing.T) {
	r := newRunner(t, 2)
	defer r.Close() //nolint:errcheck // best effort in test

	ctx := context.Background()
	r.StartCommand(ctx, 3, "echo boom >&2; exit 4")

	res, err := r.WaitForCommand(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, res.EdgeID)
	assert.False(t, res.Success)
	assert.Equal(t, 4, res.ExitCode)
	assert.Equal(t, "boom\n", res.Output)
	assert.NoError(t, res.Err)
}

func TestRunner_ParallelismBound(t *testing.T) {
	r := newRunner(t, 2)
	defer r.Close() //nolint:errcheck // best effort in test

	ctx := context.Background()
	assert.True(t, r.CanRunMore())
	r.StartCommand(ctx, 0, "true")
	r.StartCommand(ctx, 1, "true")
	assert.False(t, r.CanRunMore())

	_, err := r.WaitForCommand(ctx)
	require.NoError(t, err)
	assert.True(t, r.CanRunMore())

	_, err = r.WaitForCommand(ctx)
	require.NoError(t, err)
	assert.False(t, r.HasInflight())
}

func TestRunner_WaitHonorsContext(t *testing.T) {
	r := newRunner(t, 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.WaitForCommand(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
