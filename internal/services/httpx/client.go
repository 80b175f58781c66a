package httpx

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"watchsync/internal/config"
	"watchsync/internal/services"
)

const (
	DefaultTimeout         = 30 * time.Second
	DefaultIdleConnTimeout = 90 * time.Second
	MaxIdleConnsPerHost    = 8

	errorBodyLimit = 512
)

// Doer describes the HTTP client used by the catalog clients.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// RetryPolicy controls when a response is retried. Each request is retried at most once.
type RetryPolicy struct {
	// Retry429 waits Retry-After (capped at Max429Wait) and retries once.
	Retry429   bool
	Max429Wait time.Duration
	// Retry5xx waits Backoff5xx and retries once.
	Retry5xx   bool
	Backoff5xx time.Duration
}

// DefaultRetryPolicy retries 429 (cap 30s) and 5xx (1s backoff).
var DefaultRetryPolicy = RetryPolicy{
	Retry429:   true,
	Max429Wait: 30 * time.Second,
	Retry5xx:   true,
	Backoff5xx: time.Second,
}

// Options configures a Client.
type Options struct {
	Timeout           time.Duration
	RequestsPerSecond float64
	Retry             RetryPolicy
	// Doer overrides the underlying transport client, mainly for tests.
	Doer Doer
}

// Client paces and retries requests on top of a Doer.
type Client struct {
	doer    Doer
	limiter *rate.Limiter
	policy  RetryPolicy
}

// New builds a Client. A zero RequestsPerSecond disables pacing.
func New(opts Options) *Client {
	doer := opts.Doer
	if doer == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		doer = &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        32,
				MaxIdleConnsPerHost: MaxIdleConnsPerHost,
				IdleConnTimeout:     DefaultIdleConnTimeout,
			},
		}
	}
	var limiter *rate.Limiter
	if opts.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}
	return &Client{doer: doer, limiter: limiter, policy: opts.Retry}
}

// NewFromConfig builds a Client from the [sync] request settings.
func NewFromConfig(cfg *config.Config) *Client {
	if cfg == nil {
		return New(Options{Retry: DefaultRetryPolicy})
	}
	return New(Options{
		Timeout:           cfg.RequestTimeout(),
		RequestsPerSecond: cfg.Sync.RequestsPerSecond,
		Retry:             DefaultRetryPolicy,
	})
}

// Do sends req, waiting on the pacer first, and retries once on 429/5xx when
// the policy allows. 4xx other than 429 are never retried. The caller must
// close resp.Body when err is nil.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	resp, err := c.send(ctx, req)
	if err != nil {
		return nil, err
	}

	code := resp.StatusCode
	var wait time.Duration
	switch {
	case code == http.StatusTooManyRequests && c.policy.Retry429:
		wait = parseRetryAfter(resp.Header.Get("Retry-After"), c.policy.Max429Wait)
	case code >= 500 && c.policy.Retry5xx:
		wait = c.policy.Backoff5xx
	default:
		return resp, nil
	}

	retry, err := cloneRequest(ctx, req)
	if err != nil {
		// Body cannot be replayed; hand back the original response.
		return resp, nil
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	if err := sleep(ctx, wait); err != nil {
		return nil, err
	}
	return c.send(ctx, retry)
}

func (c *Client) send(ctx context.Context, req *http.Request) (*http.Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}
	return c.doer.Do(req)
}

func cloneRequest(ctx context.Context, req *http.Request) (*http.Request, error) {
	clone := req.Clone(ctx)
	if req.Body == nil || req.Body == http.NoBody {
		return clone, nil
	}
	if req.GetBody == nil {
		return nil, errors.New("request body is not replayable")
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, err
	}
	clone.Body = body
	return clone, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// parseRetryAfter parses Retry-After (seconds or HTTP-date); returns duration capped at max.
func parseRetryAfter(s string, max time.Duration) time.Duration {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Second
	}
	if sec, err := strconv.Atoi(s); err == nil && sec >= 0 {
		d := time.Duration(sec) * time.Second
		if d > max {
			return max
		}
		return d
	}
	t, err := http.ParseTime(s)
	if err != nil {
		return time.Second
	}
	until := time.Until(t)
	if until <= 0 {
		return 0
	}
	if until > max {
		return max
	}
	return until
}

// TransportError tags a failure that produced no HTTP response.
func TransportError(component, operation string, err error) error {
	return services.Wrap(services.ErrConnection, component, operation, "request failed", err)
}

// StatusError classifies a non-2xx response, including a short body excerpt.
// It returns nil for 2xx responses and does not close the body.
func StatusError(resp *http.Response, component, operation string) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
	msg := fmt.Sprintf("status %d", resp.StatusCode)
	if excerpt := strings.TrimSpace(string(body)); excerpt != "" {
		msg = fmt.Sprintf("%s: %s", msg, excerpt)
	}
	return services.Wrap(services.MarkerForStatus(resp.StatusCode), component, operation, msg, nil)
}
