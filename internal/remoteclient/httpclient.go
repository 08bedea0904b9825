package remoteclient

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/sethvargo/go-retry"
)

// Per spec §6 ("exponential-backoff retry honoring Retry-After for 429"):
// base 1s, factor 2x (go-retry's NewExponential default), cap 60s, max 5
// retries, ±25% jitter to avoid thundering herd on shared rate limits.
const (
	maxRetries     = 5
	baseBackoff    = 1 * time.Second
	maxBackoff     = 60 * time.Second
	jitterPercent  = 25
	userAgent      = "foldersync/0.1"
)

// HTTPClient implements Client against a Microsoft-Graph-shaped JSON API
// reached through a resolved share link. It injects bearer tokens, retries
// transient failures with backoff (honoring Retry-After on 429), and
// refreshes the token exactly once per request on a 401.
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
	token      TokenSource
	logger     *slog.Logger
}

// NewHTTPClient constructs an HTTPClient. A nil httpClient falls back to
// http.DefaultClient; a nil logger falls back to slog.Default().
func NewHTTPClient(baseURL string, httpClient *http.Client, token TokenSource, logger *slog.Logger) *HTTPClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &HTTPClient{baseURL: baseURL, httpClient: httpClient, token: token, logger: logger}
}

// do executes an authenticated request with retry-on-transient-failure and
// single-refresh-on-401. body, if non-nil, must be an io.ReadSeeker so
// retries can rewind it.
func (c *HTTPClient) do(ctx context.Context, method, path string, body io.Reader, extraHeaders http.Header) (*http.Response, error) {
	exp, err := retry.NewExponential(baseBackoff)
	if err != nil {
		return nil, fmt.Errorf("remoteclient: constructing backoff: %w", err)
	}

	backoff := retry.WithMaxRetries(maxRetries, retry.WithJitterPercent(jitterPercent, retry.WithCappedDuration(maxBackoff, exp)))

	var refreshed bool
	var result *http.Response

	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := rewindBody(body); err != nil {
			return err
		}

		resp, err := c.doOnce(ctx, method, path, body, extraHeaders)
		if err != nil {
			return retry.RetryableError(err)
		}

		if resp.StatusCode == http.StatusUnauthorized && !refreshed {
			if refresher, ok := c.token.(Refresher); ok {
				resp.Body.Close()
				refreshed = true

				if rerr := refresher.Refresh(ctx); rerr != nil {
					return fmt.Errorf("remoteclient: refreshing token: %w", rerr)
				}

				return retry.RetryableError(fmt.Errorf("remoteclient: retrying after token refresh"))
			}
		}

		if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
			result = resp

			return nil
		}

		errBody, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		reqErr := &ResponseError{
			StatusCode: resp.StatusCode,
			RequestID:  resp.Header.Get("request-id"),
			Message:    string(errBody),
			Err:        classifyStatus(resp.StatusCode),
		}

		if isRetryable(resp.StatusCode) {
			// The server's Retry-After takes precedence over our own backoff
			// schedule — ignoring it risks extending a throttling window.
			if d, ok := retryAfterDelay(resp); ok {
				select {
				case <-time.After(d):
				case <-ctx.Done():
					return ctx.Err()
				}
			}

			return retry.RetryableError(reqErr)
		}

		return reqErr
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// doOnce performs a single attempt with no retry logic of its own.
func (c *HTTPClient) doOnce(ctx context.Context, method, path string, body io.Reader, extraHeaders http.Header) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("remoteclient: creating request: %w", err)
	}

	tok, err := c.token.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("remoteclient: obtaining token: %w", err)
	}

	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	req.Header.Set("User-Agent", userAgent)

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	for key, vals := range extraHeaders {
		for _, v := range vals {
			req.Header.Add(key, v)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}

	return resp, nil
}

// retryAfterDelay extracts a Retry-After header (seconds form) from a 429
// response, per spec §6's "exponential-backoff retry honoring Retry-After".
func retryAfterDelay(resp *http.Response) (time.Duration, bool) {
	if resp.StatusCode != http.StatusTooManyRequests {
		return 0, false
	}

	ra := resp.Header.Get("Retry-After")
	if ra == "" {
		return 0, false
	}

	seconds, err := strconv.Atoi(ra)
	if err != nil || seconds <= 0 {
		return 0, false
	}

	d := time.Duration(seconds) * time.Second
	if d > maxBackoff {
		d = maxBackoff
	}

	return d, true
}

// rewindBody seeks body back to offset 0 if it is an io.Seeker, so retries
// resend the full payload.
func rewindBody(body io.Reader) error {
	if body == nil {
		return nil
	}

	if seeker, ok := body.(io.Seeker); ok {
		if _, err := seeker.Seek(0, io.SeekStart); err != nil {
			return fmt.Errorf("remoteclient: rewinding request body: %w", err)
		}
	}

	return nil
}
