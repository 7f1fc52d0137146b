package attachment

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/ashureev/modmail/internal/domain"
	"github.com/hashicorp/go-retryablehttp"
)

// leveledSlog adapts slog to the retryablehttp logger. Intermediate failures
// are retried, so errors are logged as warnings.
type leveledSlog struct {
	inner *slog.Logger
}

func (l leveledSlog) Error(msg string, keysAndValues ...any) { l.inner.Warn(msg, keysAndValues...) }
func (l leveledSlog) Warn(msg string, keysAndValues ...any)  { l.inner.Warn(msg, keysAndValues...) }
func (l leveledSlog) Info(msg string, keysAndValues ...any)  { l.inner.Debug(msg, keysAndValues...) }
func (l leveledSlog) Debug(msg string, keysAndValues ...any) { l.inner.Debug(msg, keysAndValues...) }

// HTTPFetcher downloads attachments over HTTP with a bounded body size.
type HTTPFetcher struct {
	client   *http.Client
	maxBytes int64
}

// FetcherOption configures an HTTPFetcher.
type FetcherOption func(*retryablehttp.Client)

// WithMaxRetries sets the maximum number of retries per download.
func WithMaxRetries(n int) FetcherOption {
	return func(c *retryablehttp.Client) {
		c.RetryMax = n
	}
}

// WithRetryWait sets the backoff bounds between retries.
func WithRetryWait(minWait, maxWait time.Duration) FetcherOption {
	return func(c *retryablehttp.Client) {
		c.RetryWaitMin = minWait
		c.RetryWaitMax = maxWait
	}
}

// NewHTTPFetcher creates a fetcher that refuses bodies larger than maxBytes.
func NewHTTPFetcher(maxBytes int64, opts ...FetcherOption) *HTTPFetcher {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 2
	rc.RetryWaitMin = 500 * time.Millisecond
	rc.RetryWaitMax = 5 * time.Second
	rc.Logger = retryablehttp.LeveledLogger(leveledSlog{inner: slog.Default().With("subsystem", "attachment_fetcher")})
	for _, opt := range opts {
		opt(rc)
	}

	client := rc.StandardClient()
	client.Timeout = 2 * time.Minute
	return &HTTPFetcher{client: client, maxBytes: maxBytes}
}

// Fetch implements Fetcher.
func (f *HTTPFetcher) Fetch(ctx context.Context, a domain.Attachment) ([]byte, error) {
	if a.Size > f.maxBytes {
		return nil, fmt.Errorf("%w: %s is %d bytes", ErrTooLarge, a.Filename, a.Size)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get attachment: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			slog.Debug("failed to close attachment body", "error", closeErr)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("get attachment: unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read attachment: %w", err)
	}
	if int64(len(data)) > f.maxBytes {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", ErrTooLarge, a.Filename, f.maxBytes)
	}
	return data, nil
}
