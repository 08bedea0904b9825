package remoteclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
)

// Download streams path's remote content to localPath, creating parent
// directories as needed and reporting progress as bytes arrive.
func (c *HTTPClient) Download(ctx context.Context, path, localPath string, progress ProgressFunc) (bool, error) {
	resp, err := c.do(ctx, http.MethodGet, "/root:/"+url.PathEscape(path)+":/content", nil, nil)
	if err != nil {
		return false, fmt.Errorf("remoteclient: downloading %s: %w", path, err)
	}
	defer resp.Body.Close()

	out, err := os.Create(localPath)
	if err != nil {
		return false, fmt.Errorf("remoteclient: creating %s: %w", localPath, err)
	}
	defer out.Close()

	total := resp.ContentLength

	n, err := io.Copy(out, &progressReader{r: resp.Body, total: total, cb: progress})
	if err != nil {
		return false, fmt.Errorf("remoteclient: writing %s: %w", localPath, err)
	}

	if progress != nil {
		progress(n, total)
	}

	return true, nil
}

// progressReader wraps an io.Reader, invoking cb after each chunk so
// Download can report transfer progress without buffering the whole file.
type progressReader struct {
	r     io.Reader
	total int64
	done  int64
	cb    ProgressFunc
}

func (p *progressReader) Read(buf []byte) (int, error) {
	n, err := p.r.Read(buf)
	if n > 0 {
		p.done += int64(n)

		if p.cb != nil {
			p.cb(p.done, p.total)
		}
	}

	return n, err
}
