package reconcile

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/arjunv/foldersync/internal/remoteclient"
	"github.com/arjunv/foldersync/internal/syncstate"
)

// DeltaSync implements §4.7: the incremental variant of reconciliation,
// falling back to a full pass whenever the cursor is absent, invalid, or
// the server fails to return a new one.
func (r *Reconciler) DeltaSync(ctx context.Context) error {
	r.Debounce.Prune()
	r.processRetryQueue(ctx)

	cursor := r.Store.DeltaLink()

	if cursor == "" {
		if err := r.FullSync(ctx); err != nil {
			return err
		}

		return r.initDeltaCursor(ctx)
	}

	changes, newCursor, err := r.Client.ListChanges(ctx, cursor)
	if err != nil {
		r.Logger.Warn("delta query failed, falling back to full reconciliation", slog.String("error", err.Error()))

		return r.FullSync(ctx)
	}

	if newCursor == "" {
		r.Logger.Warn("delta query returned no cursor, falling back to full reconciliation")

		return r.FullSync(ctx)
	}

	for _, change := range changes {
		if change.IsFolder || !r.Filter.ShouldSync(change.Path) {
			continue
		}

		r.applyChange(ctx, change)
	}

	r.Store.SetDeltaLink(newCursor)
	r.Store.SetLastPoll(time.Now().UTC())

	return r.Store.Commit()
}

// initDeltaCursor performs an initial delta call purely to obtain a
// starting cursor right after the very first full sync (§4.7 step 1).
func (r *Reconciler) initDeltaCursor(ctx context.Context) error {
	_, cursor, err := r.Client.ListChanges(ctx, "")
	if err != nil {
		r.Logger.Warn("initial delta cursor fetch failed, will retry next poll", slog.String("error", err.Error()))

		return nil
	}

	if cursor == "" {
		return nil
	}

	r.Store.SetDeltaLink(cursor)

	return r.Store.Commit()
}

// applyChange handles one delta change per §4.7 step 3.
func (r *Reconciler) applyChange(ctx context.Context, change remoteclient.Change) {
	local := r.localPath(change.Path)

	if change.Deleted {
		r.Debounce.Mark(change.Path)

		if err := os.Remove(local); err != nil && !os.IsNotExist(err) {
			r.Logger.Warn("deleting locally for delta change failed", slog.String("path", change.Path), slog.String("error", err.Error()))
			r.enqueueRetry(change.Path, syncstate.ActionRemoteDeleted, err.Error())

			return
		}

		r.Store.RemoveEntry(change.Path)
		r.recordHistory(change.Path, syncstate.ActionRemoteDeleted, historyStatusOK(), 0, 0, "")

		return
	}

	state, hasState := r.Store.GetEntry(change.Path)

	if hasState {
		if info, err := os.Stat(local); err == nil && !info.ModTime().UTC().Equal(state.LocalMtime) {
			// Both sides changed — route through the same conflict path
			// full reconciliation uses.
			remote := remoteclient.RemoteEntry{
				Path:       change.Path,
				Size:       change.Size,
				Mtime:      change.Mtime,
				RemoteHash: change.RemoteHash,
			}

			a := action{
				Path:   change.Path,
				Kind:   syncstate.ActionSyncExisting,
				Remote: &remote,
				Local:  &localEntry{Path: change.Path, Size: info.Size(), Mtime: info.ModTime().UTC()},
				State:  &state,
			}

			if err := r.handleConflict(ctx, a, local); err != nil {
				r.Logger.Warn("conflict handling failed during delta sync", slog.String("path", change.Path), slog.String("error", err.Error()))
				r.enqueueRetry(change.Path, syncstate.ActionSyncExisting, err.Error())
			}

			return
		}
	}

	r.Debounce.Mark(change.Path)

	if err := os.MkdirAll(filepath.Dir(local), 0o755); err != nil {
		r.Logger.Warn("creating parent directory for delta download failed", slog.String("path", change.Path), slog.String("error", err.Error()))
		r.enqueueRetry(change.Path, syncstate.ActionDownloadNew, err.Error())

		return
	}

	if _, err := r.Client.Download(ctx, change.Path, local, nil); err != nil {
		r.Logger.Warn("delta download failed", slog.String("path", change.Path), slog.String("error", err.Error()))
		r.enqueueRetry(change.Path, syncstate.ActionDownloadNew, err.Error())

		return
	}

	localHash, _ := sha256File(local)

	r.Store.SetEntry(change.Path, syncstate.FileEntry{
		Size:        change.Size,
		LocalMtime:  currentMtime(local),
		RemoteMtime: time.Unix(change.Mtime, 0).UTC(),
		SyncedAt:    time.Now().UTC(),
		LocalHash:   localHash,
		RemoteHash:  change.RemoteHash,
	})

	r.recordHistory(change.Path, syncstate.ActionDownloadNew, historyStatusOK(), change.Size, 0, "")
}
