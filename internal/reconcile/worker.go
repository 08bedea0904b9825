package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/arjunv/foldersync/internal/syncstate"
)

// execute runs actions through a bounded worker pool (§4.5 step 4),
// degrading to serial execution when there is at most one action. Workers
// share state only through the state mutex (§9 design notes), so the
// errgroup here never needs to propagate an error — a failing action is
// handled and recorded by runActionSafely, never returned.
func (r *Reconciler) execute(ctx context.Context, actions []action) {
	if len(actions) <= 1 {
		for _, a := range actions {
			r.runAction(ctx, a)
		}

		return
	}

	workers := r.MaxWorkers
	if workers < 1 {
		workers = DefaultMaxWorkers
	}
	if workers > len(actions) {
		workers = len(actions)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for _, a := range actions {
		a := a

		g.Go(func() error {
			r.runActionSafely(gctx, a)

			return nil
		})
	}

	_ = g.Wait()
}

// runActionSafely recovers from a panic in a single action so one bad path
// never takes down the whole pass (spec §7: "a failing single action never
// causes another path to be skipped").
func (r *Reconciler) runActionSafely(ctx context.Context, a action) {
	defer func() {
		if p := recover(); p != nil {
			r.Logger.Error("action panicked", slog.String("path", a.Path), slog.Any("panic", p))
			r.enqueueRetry(a.Path, a.Kind, fmt.Sprintf("panic: %v", p))
		}
	}()

	r.runAction(ctx, a)
}

// runAction executes one action, measuring duration and recording a
// history event (§4.5 step 5), either committing the state mutation or
// enqueueing a RetryItem on failure.
func (r *Reconciler) runAction(ctx context.Context, a action) {
	start := time.Now()

	err := r.dispatch(ctx, a)

	duration := time.Since(start)

	if err != nil {
		r.Logger.Warn("action failed", slog.String("path", a.Path), slog.String("action", string(a.Kind)), slog.String("error", err.Error()))
		r.recordHistory(a.Path, a.Kind, historyStatusError(), 0, duration, err.Error())
		r.enqueueRetry(a.Path, a.Kind, err.Error())

		return
	}

	r.recordHistory(a.Path, a.Kind, historyStatusOK(), actionSize(a), duration, "")
}

// dispatch routes an action to its concrete executor.
func (r *Reconciler) dispatch(ctx context.Context, a action) error {
	switch a.Kind {
	case syncstate.ActionSyncExisting:
		return r.syncExisting(ctx, a)
	case syncstate.ActionDownloadNew:
		return r.downloadNew(ctx, a)
	case syncstate.ActionUploadNew:
		return r.uploadNew(ctx, a)
	case syncstate.ActionLocalDeleted:
		return r.propagateLocalDelete(ctx, a)
	case syncstate.ActionRemoteDeleted:
		return r.propagateRemoteDelete(ctx, a)
	default:
		return fmt.Errorf("reconcile: unknown action kind %q", a.Kind)
	}
}

func actionSize(a action) int64 {
	if a.Remote != nil {
		return a.Remote.Size
	}
	if a.Local != nil {
		return a.Local.Size
	}

	return 0
}
