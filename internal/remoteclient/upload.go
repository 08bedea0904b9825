package remoteclient

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"

	"github.com/arjunv/foldersync/pkg/quickxorhash"
)

// Per §4.2: single PUT below SimpleUploadMax, chunked above it in
// ChunkSize pieces.
const (
	SimpleUploadMax = 4 * 1024 * 1024
	ChunkSize       = 10 * 1024 * 1024
)

type uploadSessionResponse struct {
	UploadURL string `json:"uploadUrl"`
}

// Upload sends localPath's content to path, choosing single-PUT or chunked
// upload transparently based on size.
func (c *HTTPClient) Upload(ctx context.Context, path, localPath string, progress ProgressFunc) (*RemoteEntry, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return nil, fmt.Errorf("remoteclient: opening %s for upload: %w", localPath, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("remoteclient: stating %s: %w", localPath, err)
	}

	size := info.Size()

	localHash, err := quickXorHashFile(f)
	if err != nil {
		return nil, fmt.Errorf("remoteclient: hashing %s: %w", localPath, err)
	}

	if size <= SimpleUploadMax {
		return c.simpleUpload(ctx, path, f, size, localHash, progress)
	}

	return c.chunkedUpload(ctx, path, f, size, localHash, progress)
}

func (c *HTTPClient) simpleUpload(
	ctx context.Context, path string, f *os.File, size int64, localHash string, progress ProgressFunc,
) (*RemoteEntry, error) {
	data, err := io.ReadAll(io.NewSectionReader(f, 0, size))
	if err != nil {
		return nil, fmt.Errorf("remoteclient: reading %s: %w", path, err)
	}

	resp, err := c.do(ctx, http.MethodPut, "/root:/"+url.PathEscape(path)+":/content", bytes.NewReader(data), nil)
	if err != nil {
		return nil, fmt.Errorf("remoteclient: uploading %s: %w", path, err)
	}
	defer resp.Body.Close()

	if progress != nil {
		progress(size, size)
	}

	return decodeUploadedItem(resp.Body, localHash)
}

func (c *HTTPClient) chunkedUpload(
	ctx context.Context, path string, f *os.File, size int64, localHash string, progress ProgressFunc,
) (*RemoteEntry, error) {
	sessResp, err := c.do(ctx, http.MethodPost, "/root:/"+url.PathEscape(path)+":/createUploadSession", nil, nil)
	if err != nil {
		return nil, fmt.Errorf("remoteclient: creating upload session for %s: %w", path, err)
	}

	var session uploadSessionResponse
	decErr := json.NewDecoder(sessResp.Body).Decode(&session)
	sessResp.Body.Close()

	if decErr != nil {
		return nil, fmt.Errorf("remoteclient: decoding upload session: %w", decErr)
	}

	var lastEntry *RemoteEntry

	for offset := int64(0); offset < size; {
		chunkSize := int64(ChunkSize)
		if offset+chunkSize > size {
			chunkSize = size - offset
		}

		section := io.NewSectionReader(f, offset, chunkSize)

		req, err := http.NewRequestWithContext(ctx, http.MethodPut, session.UploadURL, section)
		if err != nil {
			return nil, fmt.Errorf("remoteclient: building chunk request at offset %d: %w", offset, err)
		}

		req.Header.Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", offset, offset+chunkSize-1, size))
		req.ContentLength = chunkSize

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("remoteclient: uploading chunk at offset %d: %w", offset, err)
		}

		offset += chunkSize

		if progress != nil {
			progress(offset, size)
		}

		if resp.StatusCode == http.StatusAccepted {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()

			continue
		}

		entry, decErr := decodeUploadedItem(resp.Body, localHash)
		resp.Body.Close()

		if decErr != nil {
			return nil, decErr
		}

		lastEntry = entry
	}

	return lastEntry, nil
}

func decodeUploadedItem(body io.Reader, localHash string) (*RemoteEntry, error) {
	var item driveItemResponse
	if err := json.NewDecoder(body).Decode(&item); err != nil {
		return nil, fmt.Errorf("remoteclient: decoding uploaded item: %w", err)
	}

	hash := item.hash()
	if hash == "" {
		hash = localHash
	}

	return &RemoteEntry{
		Path:       item.Path,
		Size:       item.Size,
		Mtime:      item.mtimeUnix(),
		RemoteHash: hash,
	}, nil
}

// quickXorHashFile computes the OneDrive-style content hash of f without
// disturbing its read offset for the subsequent upload.
func quickXorHashFile(f *os.File) (string, error) {
	h := quickxorhash.New()

	if _, err := io.Copy(h, io.NewSectionReader(f, 0, mustSize(f))); err != nil {
		return "", err
	}

	return base64.StdEncoding.EncodeToString(h.Sum(nil)), nil
}

func mustSize(f *os.File) int64 {
	info, err := f.Stat()
	if err != nil {
		return 0
	}

	return info.Size()
}
