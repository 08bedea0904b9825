package reconcile

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/arjunv/foldersync/internal/history"
	"github.com/arjunv/foldersync/internal/progress"
	"github.com/arjunv/foldersync/internal/syncstate"
)

func historyStatusOK() string    { return history.StatusOK }
func historyStatusError() string { return history.StatusError }

// recordHistory appends one history event, best-effort: a logging failure
// must never abort the reconciliation pass.
func (r *Reconciler) recordHistory(path string, action syncstate.Action, status string, size int64, d time.Duration, errMsg string) {
	if r.History == nil {
		return
	}

	ev := history.Event{
		Timestamp:  time.Now().UTC(),
		Action:     string(action),
		Path:       path,
		Status:     status,
		Size:       size,
		DurationMs: d.Milliseconds(),
		Error:      errMsg,
	}

	if err := r.History.Append(ev); err != nil {
		r.Logger.Warn("failed to append history event", "error", err.Error())
	}
}

// enqueueRetry records a failed action in the retry queue.
func (r *Reconciler) enqueueRetry(path string, action syncstate.Action, errMsg string) {
	r.Store.AddRetry(path, action, errMsg)
}

// localPath resolves a relative path to its absolute filesystem location.
func (r *Reconciler) localPath(relPath string) string {
	return filepath.Join(r.LocalRoot, filepath.FromSlash(relPath))
}

// downloadNew handles the download_new action: fetch a remote-only file.
func (r *Reconciler) downloadNew(ctx context.Context, a action) error {
	r.Debounce.Mark(a.Path)

	local := r.localPath(a.Path)
	if err := os.MkdirAll(filepath.Dir(local), 0o755); err != nil {
		return fmt.Errorf("creating parent directory: %w", err)
	}

	r.Progress.Start(a.Path, progress.Download, a.Remote.Size)
	defer r.Progress.Clear(a.Path)

	if _, err := r.Client.Download(ctx, a.Path, local, func(done, total int64) {
		r.Progress.Update(a.Path, done, total)
	}); err != nil {
		return fmt.Errorf("downloading: %w", err)
	}

	localHash, _ := sha256File(local)

	r.Store.SetEntry(a.Path, syncstate.FileEntry{
		Size:        a.Remote.Size,
		LocalMtime:  currentMtime(local),
		RemoteMtime: time.Unix(a.Remote.Mtime, 0).UTC(),
		SyncedAt:    time.Now().UTC(),
		LocalHash:   localHash,
		RemoteHash:  a.Remote.RemoteHash,
	})

	return nil
}

// uploadNew handles the upload_new action: push a local-only file, per row
// 6 of §4.5 this also covers the R∧L∧¬S ambiguous case (treated as an
// overwriting upload).
func (r *Reconciler) uploadNew(ctx context.Context, a action) error {
	r.Debounce.Mark(a.Path)

	local := r.localPath(a.Path)

	r.Progress.Start(a.Path, progress.Upload, a.Local.Size)
	defer r.Progress.Clear(a.Path)

	entry, err := r.Client.Upload(ctx, a.Path, local, func(done, total int64) {
		r.Progress.Update(a.Path, done, total)
	})
	if err != nil {
		return fmt.Errorf("uploading: %w", err)
	}

	localHash, _ := sha256File(local)

	remoteMtime := a.Local.Mtime
	remoteHash := localHash
	size := a.Local.Size

	if entry != nil {
		if entry.Mtime != 0 {
			remoteMtime = time.Unix(entry.Mtime, 0).UTC()
		}
		if entry.RemoteHash != "" {
			remoteHash = entry.RemoteHash
		}
		if entry.Size != 0 {
			size = entry.Size
		}
	}

	r.Store.SetEntry(a.Path, syncstate.FileEntry{
		Size:        size,
		LocalMtime:  a.Local.Mtime,
		RemoteMtime: remoteMtime,
		SyncedAt:    time.Now().UTC(),
		LocalHash:   localHash,
		RemoteHash:  remoteHash,
	})

	return nil
}

// propagateLocalDelete handles the local_deleted action: the file is gone
// locally but still tracked and present remotely — delete it remotely too.
func (r *Reconciler) propagateLocalDelete(ctx context.Context, a action) error {
	r.Debounce.Mark(a.Path)

	if _, err := r.Client.Delete(ctx, a.Path); err != nil {
		return fmt.Errorf("deleting remote copy: %w", err)
	}

	r.Store.RemoveEntry(a.Path)

	return nil
}

// propagateRemoteDelete handles the remote_deleted action: the file is gone
// remotely but still present locally — remove the local copy.
func (r *Reconciler) propagateRemoteDelete(ctx context.Context, a action) error {
	r.Debounce.Mark(a.Path)

	local := r.localPath(a.Path)
	if err := os.Remove(local); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing local copy: %w", err)
	}

	r.Store.RemoveEntry(a.Path)

	return nil
}

// currentMtime returns the current mtime of path, or the zero time if it
// cannot be statted.
func currentMtime(path string) time.Time {
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}
	}

	return info.ModTime().UTC()
}
