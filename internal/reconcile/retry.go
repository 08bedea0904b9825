package reconcile

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/arjunv/foldersync/internal/progress"
	"github.com/arjunv/foldersync/internal/syncstate"
)

// maxRetryAttempts is the terminal threshold: an item that has already
// failed this many times is dropped instead of re-enqueued (§4.6, P5).
const maxRetryAttempts = 5

// processRetryQueue runs at the start of every full reconciliation (§4.6).
// Items whose next_retry has not yet arrived are left untouched.
func (r *Reconciler) processRetryQueue(ctx context.Context) {
	now := time.Now().Unix()

	for _, item := range r.Store.RetryQueue() {
		if item.NextRetry > now {
			continue
		}

		if item.Attempts >= maxRetryAttempts {
			r.recordHistory(item.Path, item.Action, historyStatusRetryFailed(), 0, 0, item.Error)
			r.Store.RemoveRetry(item.Path, item.Action)

			if r.NotifyError != nil {
				r.NotifyError(fmt.Sprintf("giving up on %s after %d attempts: %s", item.Path, item.Attempts, item.Error))
			}

			continue
		}

		if err := r.retryOne(ctx, item.Path, item.Action); err != nil {
			r.Logger.Warn("retry attempt failed", "path", item.Path, "action", item.Action, "error", err.Error())
			r.recordHistory(item.Path, item.Action, historyStatusError(), 0, 0, err.Error())
			r.Store.AddRetry(item.Path, item.Action, err.Error())

			continue
		}

		r.recordHistory(item.Path, item.Action, historyStatusOK(), 0, 0, "")
		r.Store.RemoveRetry(item.Path, item.Action)
	}
}

func historyStatusRetryFailed() string { return "retry_failed" }

// retryOne re-attempts a single recorded action, performing only the I/O
// and state update — no three-way diff, since the path's membership in R/L
// was already decided when the item was first enqueued.
func (r *Reconciler) retryOne(ctx context.Context, path string, act syncstate.Action) error {
	local := r.localPath(path)

	switch act {
	case syncstate.ActionUploadNew, syncstate.ActionSyncExisting:
		return r.retryUpload(ctx, path, local)
	case syncstate.ActionDownloadNew:
		return r.retryDownload(ctx, path, local)
	case syncstate.ActionLocalDeleted:
		if _, err := r.Client.Delete(ctx, path); err != nil {
			return fmt.Errorf("retrying remote delete: %w", err)
		}

		r.Store.RemoveEntry(path)

		return nil
	case syncstate.ActionRemoteDeleted:
		if err := os.Remove(local); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("retrying local delete: %w", err)
		}

		r.Store.RemoveEntry(path)

		return nil
	default:
		return fmt.Errorf("reconcile: unknown retry action %q", act)
	}
}

func (r *Reconciler) retryUpload(ctx context.Context, path, local string) error {
	info, err := os.Stat(local)
	if err != nil {
		return fmt.Errorf("statting local file for retry upload: %w", err)
	}

	r.Debounce.Mark(path)
	r.Progress.Start(path, progress.Upload, info.Size())
	defer r.Progress.Clear(path)

	entry, err := r.Client.Upload(ctx, path, local, func(done, total int64) {
		r.Progress.Update(path, done, total)
	})
	if err != nil {
		return fmt.Errorf("retrying upload: %w", err)
	}

	localHash, _ := sha256File(local)

	size := info.Size()
	remoteMtime := info.ModTime().UTC()
	remoteHash := localHash

	if entry != nil {
		if entry.Size != 0 {
			size = entry.Size
		}
		if entry.Mtime != 0 {
			remoteMtime = time.Unix(entry.Mtime, 0).UTC()
		}
		if entry.RemoteHash != "" {
			remoteHash = entry.RemoteHash
		}
	}

	r.Store.SetEntry(path, syncstate.FileEntry{
		Size:        size,
		LocalMtime:  info.ModTime().UTC(),
		RemoteMtime: remoteMtime,
		SyncedAt:    time.Now().UTC(),
		LocalHash:   localHash,
		RemoteHash:  remoteHash,
	})

	return nil
}

func (r *Reconciler) retryDownload(ctx context.Context, path, local string) error {
	r.Debounce.Mark(path)

	if _, err := r.Client.Download(ctx, path, local, nil); err != nil {
		return fmt.Errorf("retrying download: %w", err)
	}

	info, err := os.Stat(local)
	if err != nil {
		return fmt.Errorf("statting downloaded file: %w", err)
	}

	localHash, _ := sha256File(local)

	r.Store.SetEntry(path, syncstate.FileEntry{
		Size:        info.Size(),
		LocalMtime:  info.ModTime().UTC(),
		RemoteMtime: info.ModTime().UTC(),
		SyncedAt:    time.Now().UTC(),
		LocalHash:   localHash,
	})

	return nil
}
