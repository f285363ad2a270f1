// Package fetcher implements the portal's single point of outbound HTTP
// access: a retrying GET client with bounded concurrency and backoff on
// 429 (a 5xx is not retried), grounded in the connection-capped worker-pool idiom used
// elsewhere in this repo for bulk URL validation.
package fetcher

import (
	"context"
	"io"
	"math/rand"
	"net/http"
	"strconv"
	"time"

	"github.com/esacci/odpcore/internal/logger"
	"github.com/esacci/odpcore/internal/observability"
)

// Response is a fully-drained HTTP response body plus the status line.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Config tunes the retry/backoff/concurrency policy, per spec.md §4.1.
type Config struct {
	NumRetries  int
	BackoffBase time.Duration
	BackoffMax  time.Duration
	UserAgent   string
	MaxConns    int
}

// Fetcher is the portal's single outbound HTTP gateway. All calls are safe
// to issue concurrently; Fetcher imposes no ordering between them.
type Fetcher struct {
	client  *http.Client
	cfg     Config
	sem     chan struct{}
	metrics *observability.Provider
}

func New(client *http.Client, cfg Config, metrics *observability.Provider) *Fetcher {
	if cfg.NumRetries <= 0 {
		cfg.NumRetries = 3
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = 500 * time.Millisecond
	}
	if cfg.BackoffMax <= 0 {
		cfg.BackoffMax = 20 * time.Second
	}
	maxConns := cfg.MaxConns
	if maxConns <= 0 {
		maxConns = 50
	}
	return &Fetcher{
		client:  client,
		cfg:     cfg,
		sem:     make(chan struct{}, maxConns),
		metrics: metrics,
	}
}

// Get issues an HTTP GET against url, retrying per spec.md §4.1: a 200
// returns immediately, a 5xx returns (nil, nil) (transient unavailability,
// not an error the caller need surface), a 429 sleeps Retry-After plus a
// jittered backoff and retries, and any other status stops immediately.
func (f *Fetcher) Get(ctx context.Context, url string) (*Response, error) {
	select {
	case f.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { <-f.sem }()

	backoffMax := f.cfg.BackoffMax
	start := time.Now()

	for attempt := 0; attempt < f.cfg.NumRetries; attempt++ {
		resp, err := f.doOnce(ctx, url)
		if err != nil {
			return nil, err
		}

		switch {
		case resp.StatusCode == http.StatusOK:
			f.observe(start, "ok")
			return resp, nil

		case resp.StatusCode >= 500:
			f.observe(start, "server_error")
			return nil, nil

		case resp.StatusCode == http.StatusTooManyRequests:
			f.bumpRetry("rate_limited")
			retryAfter := parseRetryAfter(resp.Header.Get("Retry-After"), 100*time.Millisecond)
			jitter := time.Duration(rand.Int63n(int64(backoffMax) + 1))
			sleep := retryAfter + jitter
			if err := sleepCtx(ctx, sleep); err != nil {
				return nil, err
			}
			backoffMax = time.Duration(float64(backoffMax) * f.backoffMultiplier())
			continue

		default:
			f.observe(start, "rejected")
			return nil, nil
		}
	}

	f.observe(start, "retries_exhausted")
	return nil, nil
}

func (f *Fetcher) backoffMultiplier() float64 {
	return 2.0
}

func (f *Fetcher) doOnce(ctx context.Context, url string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, err
	}
	if f.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", f.cfg.UserAgent)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	return &Response{StatusCode: resp.StatusCode, Header: resp.Header.Clone(), Body: body}, nil
}

func (f *Fetcher) observe(start time.Time, statusClass string) {
	if f.metrics == nil {
		return
	}
	f.metrics.FetcherLatency.WithLabelValues(statusClass).Observe(time.Since(start).Seconds())
}

func (f *Fetcher) bumpRetry(reason string) {
	if f.metrics == nil {
		return
	}
	f.metrics.FetcherRetries.WithLabelValues(reason).Inc()
}

// WithRequestLogger attaches request-scoped logging fields for the duration
// of a single Get call; unused by Fetcher directly but kept so callers can
// build a logger consistent with the rest of the portal's components.
func WithRequestLogger(ctx context.Context, drsID string) context.Context {
	return logger.WithDrsID(ctx, drsID)
}

func parseRetryAfter(header string, def time.Duration) time.Duration {
	if header == "" {
		return def
	}
	if secs, err := strconv.Atoi(header); err == nil {
		return time.Duration(secs) * time.Second
	}
	if when, err := http.ParseTime(header); err == nil {
		if d := time.Until(when); d > 0 {
			return d
		}
	}
	return def
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
