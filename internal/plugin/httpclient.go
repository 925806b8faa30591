package plugin

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/avast/retry-go/v4"
)

// HTTPClientOptions tunes the per-plugin HTTP client.
type HTTPClientOptions struct {
	Timeout    time.Duration // total request timeout, default 30s
	MaxRetries uint          // retry attempts for retryable failures, default 3
	UserAgent  string
}

// NewHTTPClient builds the HTTP client placed into a plugin Context.
// Idempotent requests (GET and HEAD) are retried with exponential
// backoff on connection errors and 5xx responses; everything else is
// passed through untouched.
func NewHTTPClient(log *slog.Logger, opts HTTPClientOptions) *http.Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.MaxRetries == 0 {
		opts.MaxRetries = 3
	}
	return &http.Client{
		Timeout: opts.Timeout,
		Transport: &retryTransport{
			base:      http.DefaultTransport,
			log:       log,
			retries:   opts.MaxRetries,
			userAgent: opts.UserAgent,
		},
	}
}

type retryTransport struct {
	base      http.RoundTripper
	log       *slog.Logger
	retries   uint
	userAgent string
}

func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.userAgent != "" && req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", t.userAgent)
	}

	// Only idempotent verbs without a body can be replayed safely.
	if req.Method != http.MethodGet && req.Method != http.MethodHead {
		return t.base.RoundTrip(req)
	}

	return retry.DoWithData(
		func() (*http.Response, error) {
			resp, err := t.base.RoundTrip(req)
			if err != nil {
				return nil, err
			}
			if resp.StatusCode >= 500 {
				resp.Body.Close()
				return nil, fmt.Errorf("server error: %s", resp.Status)
			}
			return resp, nil
		},
		retry.Attempts(t.retries),
		retry.Delay(500*time.Millisecond),
		retry.DelayType(retry.BackOffDelay),
		retry.Context(req.Context()),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			if t.log != nil {
				t.log.Debug("retrying http request", "attempt", n+1, "url", req.URL.String(), "error", err)
			}
		}),
	)
}
