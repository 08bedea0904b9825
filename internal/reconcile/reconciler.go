// Package reconcile implements the three-way diff reconciler (C6), its
// incremental delta variant (C7), and the retry-queue processing (C5) that
// precedes every full pass.
package reconcile

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"

	"github.com/arjunv/foldersync/internal/debounce"
	"github.com/arjunv/foldersync/internal/filter"
	"github.com/arjunv/foldersync/internal/history"
	"github.com/arjunv/foldersync/internal/progress"
	"github.com/arjunv/foldersync/internal/remoteclient"
	"github.com/arjunv/foldersync/internal/syncstate"
)

// DefaultMaxWorkers is used when configuration specifies none or an
// invalid (< 1) value (§6: "min 1, default 4").
const DefaultMaxWorkers = 4

// Reconciler owns one reconciliation pass end to end: retry processing,
// three-way diff, action execution, and state commit. It holds no
// engine-wide lock itself — the lifecycle manager's engine_mutex serializes
// calls into it (§5).
type Reconciler struct {
	Store      *syncstate.Store
	Client     remoteclient.Client
	Filter     *filter.Filter
	Debounce   *debounce.Set
	Progress   *progress.Tracker
	History    *history.Log
	LocalRoot  string
	MaxWorkers int
	Logger     *slog.Logger

	// notifyConflict and notifyError are best-effort hooks invoked on
	// conflict detection and terminal retry failure. Nil is fine.
	NotifyConflict func(path string)
	NotifyError    func(msg string)
}

// localEntry is one row of a local filesystem walk.
type localEntry struct {
	Path  string
	Size  int64
	Mtime time.Time
}

// action is one emitted unit of work from the three-way diff.
type action struct {
	Path   string
	Kind   syncstate.Action
	Remote *remoteclient.RemoteEntry
	Local  *localEntry
	State  *syncstate.FileEntry
}

// FullSync runs one complete reconciliation pass: retry queue, three-way
// diff, bounded-pool execution, state commit (§4.5). Every pass gets a
// cycle ID so its actions can be correlated in logs.
func (r *Reconciler) FullSync(ctx context.Context) error {
	cycleID := uuid.New().String()
	r.Logger.Debug("full sync starting", slog.String("cycle_id", cycleID))

	r.Debounce.Prune()

	r.processRetryQueue(ctx)

	remoteEntries, err := r.Client.ListTree(ctx)
	if err != nil {
		return fmt.Errorf("reconcile: listing remote tree: %w", err)
	}

	localEntries, err := r.walkLocal()
	if err != nil {
		return fmt.Errorf("reconcile: walking local tree: %w", err)
	}

	actions := r.buildActions(remoteEntries, localEntries)

	r.execute(ctx, actions)

	r.Store.SetLastPoll(time.Now().UTC())

	if err := r.Store.Commit(); err != nil {
		return fmt.Errorf("reconcile: committing state: %w", err)
	}

	r.Logger.Debug("full sync complete", slog.String("cycle_id", cycleID), slog.Int("actions", len(actions)))

	return nil
}

// buildActions implements §4.5 steps 2-3: build R/L/S keyed by path, each
// filtered by should_sync, union the keyset, and emit exactly one action
// per path per the fixed policy table.
func (r *Reconciler) buildActions(remoteEntries []remoteclient.RemoteEntry, localEntries []localEntry) []action {
	remoteByPath := make(map[string]remoteclient.RemoteEntry)
	for _, e := range remoteEntries {
		if e.IsFolder || !r.Filter.ShouldSync(e.Path) {
			continue
		}

		remoteByPath[e.Path] = e
	}

	localByPath := make(map[string]localEntry)
	for _, e := range localEntries {
		if !r.Filter.ShouldSync(e.Path) {
			continue
		}

		localByPath[e.Path] = e
	}

	stateByPath := r.Store.Snapshot()
	for path := range stateByPath {
		if !r.Filter.ShouldSync(path) {
			delete(stateByPath, path)
			// Also purge from the persisted store itself (P3: no path
			// failing should_sync may remain tracked once excluded).
			r.Store.RemoveEntry(path)
		}
	}

	union := make(map[string]struct{})
	for p := range remoteByPath {
		union[p] = struct{}{}
	}
	for p := range localByPath {
		union[p] = struct{}{}
	}
	for p := range stateByPath {
		union[p] = struct{}{}
	}

	paths := make([]string, 0, len(union))
	for p := range union {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	actions := make([]action, 0, len(paths))

	for _, p := range paths {
		rEntry, inR := remoteByPath[p]
		lEntry, inL := localByPath[p]
		sEntry, inS := stateByPath[p]

		a := action{Path: p}
		if inR {
			re := rEntry
			a.Remote = &re
		}
		if inL {
			le := lEntry
			a.Local = &le
		}
		if inS {
			se := sEntry
			a.State = &se
		}

		switch {
		case inR && inL && inS:
			a.Kind = syncstate.ActionSyncExisting
		case inR && !inL && inS:
			a.Kind = syncstate.ActionLocalDeleted
		case !inR && inL && inS:
			a.Kind = syncstate.ActionRemoteDeleted
		case inR && !inL && !inS:
			a.Kind = syncstate.ActionDownloadNew
		case !inR && inL && !inS:
			a.Kind = syncstate.ActionUploadNew
		case inR && inL && !inS:
			// Row 6 of §4.5: R∧L∧¬S is treated identically to upload_new,
			// overwriting remote. Preserved intentionally per the open
			// question in spec §9 — do not silently switch to a
			// conflict-on-first-see policy.
			a.Kind = syncstate.ActionUploadNew
		case !inR && !inL && inS:
			// No-op: remove the stale entry, emit no action.
			r.Store.RemoveEntry(p)

			continue
		default:
			continue
		}

		actions = append(actions, a)
	}

	return actions
}

// walkLocal walks the sync root and returns every regular file found.
func (r *Reconciler) walkLocal() ([]localEntry, error) {
	var entries []localEntry

	err := filepath.Walk(r.LocalRoot, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if info.IsDir() {
			return nil
		}

		rel, relErr := filepath.Rel(r.LocalRoot, path)
		if relErr != nil {
			return relErr
		}

		entries = append(entries, localEntry{
			Path:  norm.NFC.String(filepath.ToSlash(rel)),
			Size:  info.Size(),
			Mtime: info.ModTime().UTC(),
		})

		return nil
	})
	if err != nil {
		return nil, err
	}

	return entries, nil
}

// sha256File computes the local SHA-256 hex digest of path.
func sha256File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}
