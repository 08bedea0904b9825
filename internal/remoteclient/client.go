// Package remoteclient defines the collaborator interface the reconciler
// depends on (§4.2) and a concrete HTTP implementation against a
// Microsoft-Graph-shaped JSON API reached through a share link.
package remoteclient

import (
	"context"
	"io"
)

// ProgressFunc is invoked after each chunk of a transfer completes.
// bytesDone is cumulative; bytesTotal is the full transfer size.
type ProgressFunc func(bytesDone, bytesTotal int64)

// RemoteEntry is one row of a full tree listing.
type RemoteEntry struct {
	Path       string
	Size       int64
	Mtime      int64 // unix seconds
	RemoteHash string
	IsFolder   bool
}

// Change is one row of an incremental delta listing.
type Change struct {
	Path       string
	Size       int64
	Mtime      int64
	RemoteHash string
	Deleted    bool
	IsFolder   bool
}

// Client is the collaborator interface the reconciler, delta sync, and
// watcher paths depend on. The reconciler never talks HTTP directly.
type Client interface {
	// ListTree returns a full recursive listing of the remote tree.
	ListTree(ctx context.Context) ([]RemoteEntry, error)

	// ListChanges returns changes since cursor (empty cursor means "from
	// the beginning"), plus a new cursor. newCursor is empty when the
	// server did not supply a terminal token — callers must then treat
	// delta as failed and fall back to full reconciliation.
	ListChanges(ctx context.Context, cursor string) (changes []Change, newCursor string, err error)

	// Download streams remote content at path to localPath, invoking
	// progress as bytes arrive.
	Download(ctx context.Context, path, localPath string, progress ProgressFunc) (bool, error)

	// Upload sends localPath's content to the remote path, transparently
	// choosing single-PUT or chunked upload. Returns server-reported
	// metadata for the uploaded item, or nil if the server returned none.
	Upload(ctx context.Context, path, localPath string, progress ProgressFunc) (*RemoteEntry, error)

	// Delete removes path remotely. A 404 counts as success (already gone).
	Delete(ctx context.Context, path string) (bool, error)

	// Validate checks that the share link resolves and is reachable.
	Validate(ctx context.Context) (bool, error)
}

// chunkReader names the io.ReaderAt capability a local file needs to be
// sectioned without holding it whole in memory. upload.go sections the
// *os.File directly and does not refer to this type.
type chunkReader interface {
	io.ReaderAt
}
