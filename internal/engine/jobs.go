package engine

import (
	"context"
)

// revalidateJob drives the periodic bulk stock check. It no-ops cheaply when
// the cart is empty or the engine runs without server reservations.
type revalidateJob struct {
	engine *Engine
}

func (j *revalidateJob) Name() string { return "revalidate-stock" }

func (j *revalidateJob) Run(ctx context.Context) error {
	if j.engine.Mode() != ModeAPIBacked || j.engine.TotalItems() == 0 {
		return nil
	}
	return j.engine.Revalidate(ctx)
}

// cleanupJob asks the backend to purge expired holds. Fire-and-forget: no
// local state changes result from this call, and failures only reach the
// scheduler's log.
type cleanupJob struct {
	engine *Engine
}

func (j *cleanupJob) Name() string { return "cleanup-expired" }

func (j *cleanupJob) Run(ctx context.Context) error {
	if j.engine.Mode() != ModeAPIBacked {
		return nil
	}
	return j.engine.apiCli.CleanupExpired(ctx)
}
