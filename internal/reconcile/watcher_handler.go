package reconcile

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/arjunv/foldersync/internal/syncstate"
)

// HandleChange implements watcher.Handler for a single created or modified
// local file (§4.8). Echo suppression and filtering happen before any
// network call: a path the debounce set just wrote, or one that fails
// should_sync, is dropped silently.
func (r *Reconciler) HandleChange(ctx context.Context, relPath string) {
	if !r.Filter.ShouldSync(relPath) {
		return
	}

	if r.Debounce.RecentlySynced(relPath) {
		return
	}

	local := r.localPath(relPath)

	info, err := os.Stat(local)
	if err != nil {
		if os.IsNotExist(err) {
			// Raced with a delete; let HandleDelete (or the next full
			// pass) handle it.
			return
		}

		r.Logger.Warn("statting changed file failed", slog.String("path", relPath), slog.String("error", err.Error()))

		return
	}

	r.Debounce.Mark(relPath)

	a := action{
		Path: relPath,
		Kind: syncstate.ActionUploadNew,
		Local: &localEntry{
			Path:  relPath,
			Size:  info.Size(),
			Mtime: info.ModTime().UTC(),
		},
	}

	if state, ok := r.Store.GetEntry(relPath); ok {
		a.State = &state
	}

	start := time.Now()

	if err := r.uploadNew(ctx, a); err != nil {
		r.Logger.Warn("watcher-triggered upload failed", slog.String("path", relPath), slog.String("error", err.Error()))
		r.recordHistory(relPath, syncstate.ActionUploadNew, historyStatusError(), info.Size(), time.Since(start), err.Error())
		r.enqueueRetry(relPath, syncstate.ActionUploadNew, err.Error())

		return
	}

	r.recordHistory(relPath, syncstate.ActionUploadNew, historyStatusOK(), info.Size(), time.Since(start), "")
}

// HandleDelete implements watcher.Handler for a single local deletion
// (§4.8): propagate the removal to the remote side and drop the state
// entry, unless the path is out of scope or the delete is an echo of a
// sync the reconciler itself just performed.
func (r *Reconciler) HandleDelete(ctx context.Context, relPath string) {
	if !r.Filter.ShouldSync(relPath) {
		return
	}

	if r.Debounce.RecentlySynced(relPath) {
		return
	}

	if _, ok := r.Store.GetEntry(relPath); !ok {
		// Never tracked (e.g. an ignored temp file slipping through a
		// race) — nothing to propagate.
		return
	}

	r.Debounce.Mark(relPath)

	start := time.Now()

	a := action{Path: relPath, Kind: syncstate.ActionLocalDeleted}

	if err := r.propagateLocalDelete(ctx, a); err != nil {
		r.Logger.Warn("watcher-triggered delete failed", slog.String("path", relPath), slog.String("error", err.Error()))
		r.recordHistory(relPath, syncstate.ActionLocalDeleted, historyStatusError(), 0, time.Since(start), err.Error())
		r.enqueueRetry(relPath, syncstate.ActionLocalDeleted, err.Error())

		return
	}

	r.recordHistory(relPath, syncstate.ActionLocalDeleted, historyStatusOK(), 0, time.Since(start), "")
}
