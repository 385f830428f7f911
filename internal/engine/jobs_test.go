package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRevalidateJobSkipsEmptyCart(t *testing.T) {
	apiCli := &fakeAPI{stockErr: assert.AnError}
	eng, _ := newTestEngine(t, apiCli)

	job := &revalidateJob{engine: eng}
	assert.Equal(t, "revalidate-stock", job.Name())
	require.NoError(t, job.Run(context.Background()))
}

func TestRevalidateJobSkipsLocalFallback(t *testing.T) {
	apiCli := &fakeAPI{healthErr: assert.AnError, stockErr: assert.AnError}
	eng, _ := newTestEngine(t, apiCli)
	ctx := context.Background()

	require.NoError(t, eng.AddItem(ctx, jeansInput(1)))
	require.NoError(t, (&revalidateJob{engine: eng}).Run(ctx))
}

func TestCleanupJobCallsBackend(t *testing.T) {
	apiCli := &fakeAPI{}
	eng, _ := newTestEngine(t, apiCli)

	job := &cleanupJob{engine: eng}
	assert.Equal(t, "cleanup-expired", job.Name())
	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, 1, apiCli.cleanupCalls)
}

func TestCleanupJobSkipsLocalFallback(t *testing.T) {
	apiCli := &fakeAPI{healthErr: assert.AnError}
	eng, _ := newTestEngine(t, apiCli)

	require.NoError(t, (&cleanupJob{engine: eng}).Run(context.Background()))
	assert.Equal(t, 0, apiCli.cleanupCalls)
}
