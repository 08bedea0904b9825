package reconcile

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/arjunv/foldersync/internal/progress"
	"github.com/arjunv/foldersync/internal/syncstate"
)

// syncExisting implements the delicate §4.5 subroutine for a path present
// on all three sides.
func (r *Reconciler) syncExisting(ctx context.Context, a action) error {
	remoteChanged := a.Remote.Mtime != a.State.RemoteMtime.Unix()
	localChanged := !a.Local.Mtime.Equal(a.State.LocalMtime)

	if !remoteChanged && !localChanged {
		return nil
	}

	local := r.localPath(a.Path)

	// Hash short-circuit: exactly one side's mtime moved, but the content
	// hash is unchanged — this was a touch, not an edit.
	if remoteChanged != localChanged {
		if unchanged, ok := r.isTouchOnly(local, a, remoteChanged); ok && unchanged {
			entry := *a.State
			entry.LocalMtime = a.Local.Mtime
			entry.RemoteMtime = time.Unix(a.Remote.Mtime, 0).UTC()
			r.Store.SetEntry(a.Path, entry)

			return nil
		}
	}

	if remoteChanged && localChanged {
		return r.handleConflict(ctx, a, local)
	}

	if remoteChanged {
		return r.downloadChanged(ctx, a, local)
	}

	return r.uploadChanged(ctx, a, local)
}

// isTouchOnly reports whether the side that reported a changed mtime still
// has the content hash recorded in state, i.e. its content is actually
// identical (a touch). For a remote change the local file's hash must also
// still match. ok is false when hash data is unavailable and no
// determination can be made.
func (r *Reconciler) isTouchOnly(local string, a action, remoteChanged bool) (unchanged bool, ok bool) {
	if a.State.LocalHash == "" || a.State.RemoteHash == "" {
		return false, false
	}

	localHash, err := sha256File(local)
	if err != nil {
		return false, false
	}

	if remoteChanged {
		// Remote mtime moved; check the remote hash still matches what we
		// recorded, and the local file is untouched.
		return a.Remote.RemoteHash == a.State.RemoteHash && localHash == a.State.LocalHash, true
	}

	// Local mtime moved; check the local content hash is unchanged.
	return localHash == a.State.LocalHash, true
}

// handleConflict renames the local file aside, downloads the remote
// version into its place, and records a conflict history event.
func (r *Reconciler) handleConflict(ctx context.Context, a action, local string) error {
	r.Debounce.Mark(a.Path)

	conflictName := conflictFilename(a.Path)
	conflictLocal := r.localPath(conflictName)

	if err := os.Rename(local, conflictLocal); err != nil {
		return fmt.Errorf("renaming local conflict copy: %w", err)
	}

	r.recordHistory(a.Path, syncstate.ActionSyncExisting, "conflict", a.Local.Size, 0, "")

	if r.NotifyConflict != nil {
		r.NotifyConflict(a.Path)
	}

	r.Progress.Start(a.Path, progress.Download, a.Remote.Size)
	defer r.Progress.Clear(a.Path)

	if _, err := r.Client.Download(ctx, a.Path, local, func(done, total int64) {
		r.Progress.Update(a.Path, done, total)
	}); err != nil {
		return fmt.Errorf("downloading remote version after conflict: %w", err)
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

// downloadChanged handles the "only remote changed" branch.
func (r *Reconciler) downloadChanged(ctx context.Context, a action, local string) error {
	r.Debounce.Mark(a.Path)

	r.Progress.Start(a.Path, progress.Download, a.Remote.Size)
	defer r.Progress.Clear(a.Path)

	if _, err := r.Client.Download(ctx, a.Path, local, func(done, total int64) {
		r.Progress.Update(a.Path, done, total)
	}); err != nil {
		return fmt.Errorf("downloading changed remote file: %w", err)
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

// uploadChanged handles the "only local changed" branch.
func (r *Reconciler) uploadChanged(ctx context.Context, a action, local string) error {
	r.Debounce.Mark(a.Path)

	r.Progress.Start(a.Path, progress.Upload, a.Local.Size)
	defer r.Progress.Clear(a.Path)

	entry, err := r.Client.Upload(ctx, a.Path, local, func(done, total int64) {
		r.Progress.Update(a.Path, done, total)
	})
	if err != nil {
		return fmt.Errorf("uploading changed local file: %w", err)
	}

	size := a.Local.Size
	remoteMtime := a.Local.Mtime
	remoteHash := ""

	if entry != nil {
		if entry.Size != 0 {
			size = entry.Size
		}
		if entry.Mtime != 0 {
			remoteMtime = time.Unix(entry.Mtime, 0).UTC()
		}
		remoteHash = entry.RemoteHash
	}

	localHash, _ := sha256File(local)

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

// conflictFilename builds "{basename}_CONFLICT_{YYYYMMDD_HHMMSS}{ext}" for
// relPath, preserving its directory.
func conflictFilename(relPath string) string {
	dir := filepath.Dir(relPath)
	base := filepath.Base(relPath)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)

	stamp := time.Now().UTC().Format("20060102_150405")
	conflictBase := fmt.Sprintf("%s_CONFLICT_%s%s", stem, stamp, ext)

	if dir == "." {
		return conflictBase
	}

	return filepath.ToSlash(filepath.Join(dir, conflictBase))
}
