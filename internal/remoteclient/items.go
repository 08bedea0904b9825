package remoteclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// driveItemResponse mirrors one entry of the Graph-shaped JSON listing API.
// Unexported — callers receive normalized RemoteEntry/Change values.
type driveItemResponse struct {
	Path         string `json:"path"`
	Size         int64  `json:"size"`
	ModifiedAt   string `json:"lastModifiedDateTime"`
	QuickXorHash string `json:"quickXorHash,omitempty"`
	SHA256Hash   string `json:"sha256Hash,omitempty"`
	Folder       *struct{} `json:"folder,omitempty"`
	Deleted      *struct{} `json:"deleted,omitempty"`
}

func (d driveItemResponse) hash() string {
	if d.QuickXorHash != "" {
		return d.QuickXorHash
	}

	return d.SHA256Hash
}

func (d driveItemResponse) mtimeUnix() int64 {
	t, err := time.Parse(time.RFC3339, d.ModifiedAt)
	if err != nil {
		return 0
	}

	return t.Unix()
}

// treeListResponse is the JSON envelope for a full recursive listing.
type treeListResponse struct {
	Value []driveItemResponse `json:"value"`
}

// ListTree fetches a full recursive listing of the remote tree.
func (c *HTTPClient) ListTree(ctx context.Context) ([]RemoteEntry, error) {
	resp, err := c.do(ctx, http.MethodGet, "/root/children?recursive=true", nil, nil)
	if err != nil {
		return nil, fmt.Errorf("remoteclient: listing tree: %w", err)
	}
	defer resp.Body.Close()

	var tl treeListResponse
	if err := json.NewDecoder(resp.Body).Decode(&tl); err != nil {
		return nil, fmt.Errorf("remoteclient: decoding tree listing: %w", err)
	}

	entries := make([]RemoteEntry, 0, len(tl.Value))
	for _, item := range tl.Value {
		if item.Deleted != nil {
			continue
		}

		entries = append(entries, RemoteEntry{
			Path:       item.Path,
			Size:       item.Size,
			Mtime:      item.mtimeUnix(),
			RemoteHash: item.hash(),
			IsFolder:   item.Folder != nil,
		})
	}

	return entries, nil
}

// Delete removes path remotely. A 404 counts as success per §4.2.
func (c *HTTPClient) Delete(ctx context.Context, path string) (bool, error) {
	resp, err := c.do(ctx, http.MethodDelete, "/root:/"+path, nil, nil)
	if err != nil {
		if IsNotFound(err) {
			return true, nil
		}

		return false, fmt.Errorf("remoteclient: deleting %s: %w", path, err)
	}
	defer resp.Body.Close()

	return true, nil
}

// Validate checks that the share link resolves and is reachable.
func (c *HTTPClient) Validate(ctx context.Context) (bool, error) {
	resp, err := c.do(ctx, http.MethodGet, "/root", nil, nil)
	if err != nil {
		return false, fmt.Errorf("remoteclient: validating share link: %w", err)
	}
	defer resp.Body.Close()

	return true, nil
}
