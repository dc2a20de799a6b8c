// Package fetcher implements the Fetcher port over HTTP.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	stdlog "log"
	"log/slog"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/vigilhq/vigil/pkg/models"
	"github.com/vigilhq/vigil/pkg/ports"
)

const (
	defaultTimeout      = 30 * time.Second
	defaultRetryMax     = 3
	maxResponseBytes    = 8 << 20 // 8 MiB
	defaultUserAgent    = "vigil-monitor/1.0"
	defaultAcceptHeader = "text/html,application/json;q=0.9,*/*;q=0.8"
)

// HTTPFetcher fetches target content over HTTP with retries on
// transient transport failures.
type HTTPFetcher struct {
	client    *retryablehttp.Client
	userAgent string
	logger    *slog.Logger
}

// NewHTTPFetcher builds a fetcher with sane retry defaults.
func NewHTTPFetcher(logger *slog.Logger) *HTTPFetcher {
	client := retryablehttp.NewClient()
	client.Logger = stdlog.New(io.Discard, "", 0)
	client.RetryMax = defaultRetryMax
	client.HTTPClient.Timeout = defaultTimeout

	return &HTTPFetcher{
		client:    client,
		userAgent: defaultUserAgent,
		logger:    logger.With("module", "fetcher"),
	}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, target *models.Target) (*ports.FetchResult, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, target.URL, nil)
	if err != nil {
		return nil, ports.Permanent(fmt.Errorf("invalid target url %q: %w", target.URL, err))
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", defaultAcceptHeader)

	resp, err := f.client.Do(req)
	if err != nil {
		// The client already retried; whatever is left is a transport
		// problem a later run may not hit.
		if errors.Is(err, context.Canceled) {
			return nil, err
		}

		return nil, ports.Transient(fmt.Errorf("fetch %s: %w", target.URL, err))
	}
	defer resp.Body.Close()

	if err := classifyStatus(resp.StatusCode); err != nil {
		io.Copy(io.Discard, resp.Body)

		return nil, err
	}

	content, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, ports.Transient(fmt.Errorf("read response body: %w", err))
	}

	f.logger.DebugContext(ctx, "Fetched target",
		"target_id", target.ID, "status", resp.StatusCode, "bytes", len(content))

	return &ports.FetchResult{
		Content:    content,
		FetchedAt:  time.Now().UTC(),
		StatusCode: resp.StatusCode,
	}, nil
}

// classifyStatus maps HTTP status codes onto the retryability taxonomy.
// Auth failures and gone resources will not heal on their own; server
// errors and throttling might.
func classifyStatus(code int) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusUnauthorized,
		code == http.StatusForbidden,
		code == http.StatusNotFound,
		code == http.StatusGone:
		return ports.Permanent(fmt.Errorf("unexpected status %d", code))
	default:
		return ports.Transient(fmt.Errorf("unexpected status %d", code))
	}
}
