package upstream

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/mutige-mungos/mungo-shift/internal/metrics"
	"github.com/mutige-mungos/mungo-shift/internal/models"
)

const (
	DefaultURL       = "https://raw.githubusercontent.com/DankestMemeLord/autoshift-codes/refs/heads/main/shiftcodes.json"
	DefaultUserAgent = "mungo-shift/1.0 (BL4 monitor)"
	DefaultTTL       = 5 * time.Minute

	flightKey = "upstream"
)

// Result is one cached upstream fetch.
type Result struct {
	List        []models.RawRecord
	FetchedAt   time.Time
	GeneratedAt string
}

type Options struct {
	URL        string
	TTL        time.Duration
	UserAgent  string
	HTTPClient *http.Client
	Metrics    *metrics.Metrics
	// Now is used for cache ageing and FetchedAt; defaults to time.Now.
	Now func() time.Time
}

// Fetcher owns the single upstream call. It keeps one cached Result for TTL
// and coalesces concurrent requests into one network call.
type Fetcher struct {
	url        string
	userAgent  string
	ttl        time.Duration
	httpClient *http.Client
	metrics    *metrics.Metrics
	now        func() time.Time

	group singleflight.Group

	mu     sync.Mutex
	cached *Result
	// generation is bumped by Reset so that a call started earlier
	// cannot repopulate the cache afterwards.
	generation uint64
}

func New(opts Options) *Fetcher {
	f := &Fetcher{
		url:        opts.URL,
		userAgent:  opts.UserAgent,
		ttl:        opts.TTL,
		httpClient: opts.HTTPClient,
		metrics:    opts.Metrics,
		now:        opts.Now,
	}
	if f.url == "" {
		f.url = DefaultURL
	}
	if f.userAgent == "" {
		f.userAgent = DefaultUserAgent
	}
	if f.ttl <= 0 {
		f.ttl = DefaultTTL
	}
	if f.httpClient == nil {
		f.httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if f.now == nil {
		f.now = time.Now
	}
	return f
}

// Fetch returns the upstream records. Unless force is set, a cached result
// younger than the TTL is returned without a network call. Concurrent
// callers share one in-flight request, forced or not. Failures leave the
// cache untouched and are reported as models.ErrUpstreamUnavailable.
func (f *Fetcher) Fetch(ctx context.Context, force bool) (*Result, error) {
	if !force {
		if cached := f.fresh(); cached != nil {
			return cached, nil
		}
	}

	// The shared call must not die with whichever caller started it.
	flightCtx := context.WithoutCancel(ctx)
	ch := f.group.DoChan(flightKey, func() (any, error) {
		return f.fetch(flightCtx)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Result), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Reset drops the cached result and detaches any in-flight request so the
// next Fetch always goes to the network.
func (f *Fetcher) Reset() {
	f.mu.Lock()
	f.cached = nil
	f.generation++
	f.mu.Unlock()
	f.group.Forget(flightKey)
}

func (f *Fetcher) fresh() *Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cached != nil && f.now().Sub(f.cached.FetchedAt) < f.ttl {
		return f.cached
	}
	return nil
}

func (f *Fetcher) fetch(ctx context.Context) (*Result, error) {
	f.mu.Lock()
	generation := f.generation
	f.mu.Unlock()

	start := time.Now()
	result, err := f.request(ctx)
	f.metrics.ObserveFetch(err, time.Since(start))
	if err != nil {
		slog.Warn("Upstream fetch failed", "url", f.url, "error", err)
		return nil, err
	}

	f.mu.Lock()
	if generation == f.generation {
		f.cached = result
	}
	f.mu.Unlock()

	slog.Info("Fetched upstream feed", "records", len(result.List), "generatedAt", result.GeneratedAt)
	return result, nil
}

func (f *Fetcher) request(ctx context.Context) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request for %s: %w", models.ErrUpstreamUnavailable, f.url, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Cache-Control", "no-store")

	res, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to fetch %s: %w", models.ErrUpstreamUnavailable, f.url, err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return nil, fmt.Errorf("%w: failed to fetch %s: status code %d", models.ErrUpstreamUnavailable, f.url, res.StatusCode)
	}

	normalized, err := Decode(res.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrUpstreamUnavailable, err)
	}

	return &Result{
		List:        normalized.List,
		FetchedAt:   f.now(),
		GeneratedAt: normalized.GeneratedAt,
	}, nil
}
