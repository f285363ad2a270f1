package opensearch

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/esacci/odpcore/internal/fetcher"
	"github.com/esacci/odpcore/internal/observability"
)

// probePageSize is the first-page size used to estimate totalResults,
// per spec.md §4.2 step 1.
const probePageSize = 1000

// Extender is invoked once per retrieved page with that page's features.
// Accumulation must be order-independent: pages may arrive out of order
// under date partitioning.
type Extender func(features []Feature)

// Pager drives the OpenSearch probe/partition/page protocol against one
// base URL.
type Pager struct {
	fetcher *fetcher.Fetcher
	baseURL string
	metrics *observability.Provider
}

func NewPager(f *fetcher.Fetcher, baseURL string, metrics *observability.Provider) *Pager {
	return &Pager{fetcher: f, baseURL: baseURL, metrics: metrics}
}

// Scan executes the full protocol of spec.md §4.2 for q and returns the
// catalogue's reported totalResults (0 if the probe itself failed).
func (p *Pager) Scan(ctx context.Context, q Query, wantedMax int, ext Extender) (int, error) {
	probe := probePageSize
	if wantedMax > 0 && wantedMax < probe {
		probe = wantedMax
	}

	first := q
	first.StartPage = 1
	first.MaximumRecords = probe
	fc, err := p.fetchPage(ctx, first, 1)
	if err != nil {
		return 0, err
	}
	if fc == nil {
		return 0, nil
	}

	total := fc.Properties.TotalResults
	ext(fc.Features)

	if total < probe || (wantedMax > 0 && wantedMax < probePageSize) {
		return total, nil
	}

	if q.HasStart && q.HasEnd {
		return total, p.scanDatePartitioned(ctx, q, total, ext)
	}
	return total, p.scanSequential(ctx, q, total, ext, fc.Features)
}

// scanDatePartitioned implements spec.md §4.2 step 2: split [start,end)
// into equal sub-windows sized so each is expected to hold ~1000 results,
// and fan every sub-window out in parallel.
func (p *Pager) scanDatePartitioned(ctx context.Context, q Query, total int, ext Extender) error {
	spanDays := q.EndDate.Sub(q.StartDate).Hours() / 24
	if spanDays <= 0 {
		return nil
	}
	pagesNeeded := float64(total) / 1000.0
	if pagesNeeded < 1 {
		pagesNeeded = 1
	}
	deltaDays := int(math.Ceil(spanDays / pagesNeeded))
	if deltaDays < 1 {
		deltaDays = 1
	}
	delta := time.Duration(deltaDays) * 24 * time.Hour

	var windows []Query
	for t := q.StartDate; t.Before(q.EndDate); t = t.Add(delta) {
		end := t.Add(delta)
		if end.After(q.EndDate) {
			end = q.EndDate
		}
		w := q
		w.StartDate, w.HasStart = t, true
		w.EndDate, w.HasEnd = end, true
		w.StartPage = 1
		w.MaximumRecords = 10000
		windows = append(windows, w)
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error
	for i, w := range windows {
		wg.Add(1)
		go func(idx int, win Query) {
			defer wg.Done()
			fc, err := p.fetchPageRetrying(ctx, win, idx+1)
			if err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
				return
			}
			if fc != nil {
				ext(fc.Features)
			}
		}(i, w)
	}
	wg.Wait()
	return firstErr
}

// scanSequential implements spec.md §4.2 step 3: page in order, bounded
// parallelism ≤4 in-flight requests, stop once accumulated results reach
// totalResults. firstPageFeatures is the already-fetched probe page.
func (p *Pager) scanSequential(ctx context.Context, q Query, total int, ext Extender, firstPageFeatures []Feature) error {
	numResults := len(firstPageFeatures)
	if numResults >= total {
		return nil
	}

	const maxInFlight = 4
	sem := make(chan struct{}, maxInFlight)
	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error

	perPage := q.MaximumRecords
	if perPage <= 0 {
		perPage = probePageSize
	}
	page := 2
	for {
		mu.Lock()
		done := numResults >= total
		mu.Unlock()
		if done {
			break
		}

		sem <- struct{}{}
		wg.Add(1)
		go func(pg int) {
			defer wg.Done()
			defer func() { <-sem }()

			w := q
			w.StartPage = pg
			w.MaximumRecords = perPage
			fc, err := p.fetchPageRetrying(ctx, w, pg)
			if err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
				return
			}
			if fc == nil {
				return
			}
			ext(fc.Features)
			mu.Lock()
			numResults += len(fc.Features)
			mu.Unlock()
		}(page)
		page++

		// Cap the number of outstanding pages started so we don't spin
		// past totalResults speculatively; wait for the in-flight batch
		// before deciding whether another page is needed.
		if page%maxInFlight == 0 {
			wg.Wait()
		}
	}
	wg.Wait()
	return firstErr
}

// fetchPageRetrying implements spec.md §4.2's per-page failure policy:
// retry up to 2*startPage times with a 4s sleep between attempts before
// giving up and contributing nothing for that page.
func (p *Pager) fetchPageRetrying(ctx context.Context, q Query, startPage int) (*FeatureCollection, error) {
	maxAttempts := 2 * startPage
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		fc, err := p.fetchPage(ctx, q, startPage)
		if err == nil && fc != nil {
			return fc, nil
		}
		lastErr = err
		if attempt < maxAttempts-1 {
			t := time.NewTimer(4 * time.Second)
			select {
			case <-t.C:
			case <-ctx.Done():
				t.Stop()
				return nil, ctx.Err()
			}
		}
	}
	if lastErr != nil {
		return nil, nil // exhausted: page contributes 0, per spec.md §4.2
	}
	return nil, nil
}

func (p *Pager) fetchPage(ctx context.Context, q Query, startPage int) (*FeatureCollection, error) {
	q.StartPage = startPage
	u := p.baseURL + "?" + q.Values().Encode()
	if p.metrics != nil {
		defer func(t0 time.Time) {
			p.metrics.OpensearchPageDelay.Observe(time.Since(t0).Seconds())
		}(time.Now())
	}

	resp, err := p.fetcher.Get(ctx, u)
	if err != nil {
		p.bumpMetric("error")
		return nil, fmt.Errorf("opensearch: fetch page %d: %w", startPage, err)
	}
	if resp == nil {
		p.bumpMetric("empty")
		return nil, nil
	}
	var fc FeatureCollection
	if err := json.Unmarshal(resp.Body, &fc); err != nil {
		p.bumpMetric("malformed")
		return nil, fmt.Errorf("opensearch: decode page %d: %w", startPage, err)
	}
	p.bumpMetric("ok")
	return &fc, nil
}

func (p *Pager) bumpMetric(outcome string) {
	if p.metrics == nil {
		return
	}
	p.metrics.OpensearchRequests.WithLabelValues(outcome).Inc()
}
