package remoteclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// deltaResponse mirrors the delta endpoint's JSON response shape.
type deltaResponse struct {
	Value     []driveItemResponse `json:"value"`
	NextLink  string              `json:"@odata.nextLink"`
	DeltaLink string              `json:"@odata.deltaLink"`
}

// ListChanges fetches all pages of delta changes since cursor and returns
// the combined changes plus the new cursor. An empty cursor means "from the
// beginning". newCursor is empty when the server streamed without a
// terminal token — per §4.2, the caller must then treat delta as failed.
func (c *HTTPClient) ListChanges(ctx context.Context, cursor string) ([]Change, string, error) {
	path := deltaPath(cursor)

	var allChanges []Change

	for {
		resp, err := c.do(ctx, http.MethodGet, path, nil, nil)
		if err != nil {
			return nil, "", fmt.Errorf("remoteclient: fetching delta page: %w", err)
		}

		var dr deltaResponse
		decErr := json.NewDecoder(resp.Body).Decode(&dr)
		resp.Body.Close()

		if decErr != nil {
			return nil, "", fmt.Errorf("remoteclient: decoding delta page: %w", decErr)
		}

		for _, item := range dr.Value {
			allChanges = append(allChanges, Change{
				Path:       item.Path,
				Size:       item.Size,
				Mtime:      item.mtimeUnix(),
				RemoteHash: item.hash(),
				Deleted:    item.Deleted != nil,
				IsFolder:   item.Folder != nil,
			})
		}

		if dr.DeltaLink != "" {
			return allChanges, dr.DeltaLink, nil
		}

		if dr.NextLink != "" {
			path = dr.NextLink

			continue
		}

		// Neither link present: the server did not supply a terminal token.
		return allChanges, "", nil
	}
}

// deltaPath builds the relative path for a delta request. An empty cursor
// starts a fresh enumeration; a non-empty cursor is the deltaLink returned
// by a previous ListChanges call and is used as the request path as-is.
func deltaPath(cursor string) string {
	if cursor == "" {
		return "/root/delta"
	}

	return cursor
}
