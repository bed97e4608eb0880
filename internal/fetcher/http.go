package fetcher

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/fundwatch/internal/model"
	"github.com/sells-group/fundwatch/internal/resilience"
)

// HTTPOptions configures the HTTP fetcher.
type HTTPOptions struct {
	UserAgent    string
	Timeout      time.Duration
	RateLimiters map[string]*rate.Limiter
}

// AdaptiveLimiter wraps a rate.Limiter with adaptive rate adjustment.
// On success it increases the rate by 20% (up to 2x initial).
// On 429 it halves the rate (down to initial/4 minimum).
type AdaptiveLimiter struct {
	mu          sync.Mutex
	limiter     *rate.Limiter
	initialRate rate.Limit
	maxRate     rate.Limit
	minRate     rate.Limit
	currentRate rate.Limit
}

// NewAdaptiveLimiter creates an adaptive rate limiter that auto-tunes.
func NewAdaptiveLimiter(initialRate rate.Limit, burst int) *AdaptiveLimiter {
	return &AdaptiveLimiter{
		limiter:     rate.NewLimiter(initialRate, burst),
		initialRate: initialRate,
		maxRate:     initialRate * 2,
		minRate:     initialRate / 4,
		currentRate: initialRate,
	}
}

// Wait blocks until the limiter allows an event.
func (a *AdaptiveLimiter) Wait(ctx context.Context) error {
	return a.limiter.Wait(ctx)
}

// OnSuccess increases the rate by 20%, up to 2x initial.
func (a *AdaptiveLimiter) OnSuccess() {
	a.mu.Lock()
	defer a.mu.Unlock()
	newRate := a.currentRate * 1.2
	if newRate > a.maxRate {
		newRate = a.maxRate
	}
	a.currentRate = newRate
	a.limiter.SetLimit(newRate)
}

// OnRateLimit halves the rate on 429 responses.
func (a *AdaptiveLimiter) OnRateLimit() {
	a.mu.Lock()
	defer a.mu.Unlock()
	newRate := a.currentRate * 0.5
	if newRate < a.minRate {
		newRate = a.minRate
	}
	a.currentRate = newRate
	a.limiter.SetLimit(newRate)
	zap.L().Warn("adaptive rate limit: reducing rate after 429",
		zap.Float64("new_rate", float64(newRate)),
	)
}

// Limit returns the current rate limit.
func (a *AdaptiveLimiter) Limit() rate.Limit {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.currentRate
}

// HTTPFetcher implements Fetcher using net/http with per-host rate
// limiting. Every call is a single attempt; the response status decides
// whether a failure is transient or permanent.
type HTTPFetcher struct {
	client           *http.Client
	opts             HTTPOptions
	limiters         map[string]*rate.Limiter
	adaptiveLimiters map[string]*AdaptiveLimiter
}

// DefaultRateLimiters returns the default per-host rate limiters. The
// SEC asks automated clients to stay under 10 requests per second; the
// fund statistics host gets a far lower floor because page pacing is
// handled above the fetcher anyway.
func DefaultRateLimiters() map[string]*rate.Limiter {
	return map[string]*rate.Limiter{
		"www.sec.gov":     rate.NewLimiter(10, 10),
		"data.sec.gov":    rate.NewLimiter(10, 10),
		"cefdata.com":     rate.NewLimiter(1, 1),
		"www.cefdata.com": rate.NewLimiter(1, 1),
	}
}

// SECRateLimiters returns limiters budgeting the given requests per
// second across the EDGAR hosts. One limiter is shared between the
// hosts so the budget covers them together.
func SECRateLimiters(rps float64) map[string]*rate.Limiter {
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}
	shared := rate.NewLimiter(rate.Limit(rps), burst)
	return map[string]*rate.Limiter{
		"www.sec.gov":  shared,
		"data.sec.gov": shared,
	}
}

// DefaultAdaptiveLimiters returns self-tuning limiters for the EDGAR
// hosts. They only govern hosts the caller gave no fixed budget for.
func DefaultAdaptiveLimiters() map[string]*AdaptiveLimiter {
	return map[string]*AdaptiveLimiter{
		"www.sec.gov":  NewAdaptiveLimiter(10, 10),
		"data.sec.gov": NewAdaptiveLimiter(10, 10),
	}
}

// NewHTTPFetcher creates a new HTTPFetcher with the given options.
func NewHTTPFetcher(opts HTTPOptions) *HTTPFetcher {
	if opts.Timeout == 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "fundwatch/1.0"
	}
	limiters := make(map[string]*rate.Limiter)
	for k, v := range opts.RateLimiters {
		limiters[k] = v
	}
	// An explicit budget always wins over the adaptive defaults.
	adaptive := DefaultAdaptiveLimiters()
	for host := range limiters {
		delete(adaptive, host)
	}
	transport := &http.Transport{
		MaxIdleConnsPerHost: 10,
		MaxConnsPerHost:     20,
		IdleConnTimeout:     90 * time.Second,
	}
	return &HTTPFetcher{
		client: &http.Client{
			Timeout:   opts.Timeout,
			Transport: transport,
		},
		opts:             opts,
		limiters:         limiters,
		adaptiveLimiters: adaptive,
	}
}

// adaptiveLimiterFor returns the adaptive limiter for the given host, if any.
func (f *HTTPFetcher) adaptiveLimiterFor(rawURL string) *AdaptiveLimiter {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil
	}
	return f.adaptiveLimiters[u.Host]
}

func (f *HTTPFetcher) limiterFor(rawURL string) *rate.Limiter {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rate.NewLimiter(20, 20)
	}
	if lim, ok := f.limiters[u.Host]; ok {
		return lim
	}
	return rate.NewLimiter(20, 20)
}

// wait blocks on the limiter governing the URL's host and reports which
// adaptive limiter, if any, should hear about the outcome.
func (f *HTTPFetcher) wait(ctx context.Context, rawURL string) (*AdaptiveLimiter, error) {
	if adaptive := f.adaptiveLimiterFor(rawURL); adaptive != nil {
		if err := adaptive.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "fetcher: rate limiter wait")
		}
		return adaptive, nil
	}
	if err := f.limiterFor(rawURL).Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "fetcher: rate limiter wait")
	}
	return nil, nil
}

// do performs one rate-limited request and classifies the outcome.
// There is deliberately no retry loop here: a transient failure must
// surface so the scan can schedule the whole ticker for a later round.
func (f *HTTPFetcher) do(ctx context.Context, req *http.Request) (*http.Response, error) {
	rawURL := req.URL.String()
	adaptive, err := f.wait(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	resp, err := f.client.Do(req)
	if err != nil {
		// Network-level failures are retryable by definition.
		return nil, resilience.NewTransientError(eris.Wrapf(err, "fetcher: get %s", rawURL), 0)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		if adaptive != nil {
			adaptive.OnSuccess()
		}
		return resp, nil

	case resilience.IsPermanentHTTPStatus(resp.StatusCode):
		_ = resp.Body.Close()
		return nil, resilience.NewPermanentError(
			eris.Errorf("fetcher: http %d from %s", resp.StatusCode, rawURL), resp.StatusCode)

	default:
		_ = resp.Body.Close()
		if resp.StatusCode == http.StatusTooManyRequests && adaptive != nil {
			adaptive.OnRateLimit()
		}
		return nil, resilience.NewTransientError(
			eris.Errorf("fetcher: http %d from %s", resp.StatusCode, rawURL), resp.StatusCode)
	}
}

// Fetch downloads the URL and returns the document.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) (*model.RawDocument, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "fetcher: create request")
	}
	req.Header.Set("User-Agent", f.opts.UserAgent)

	resp, err := f.do(ctx, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close() //nolint:errcheck

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resilience.NewTransientError(eris.Wrapf(err, "fetcher: read body %s", rawURL), 0)
	}

	return &model.RawDocument{
		URL:       rawURL,
		Body:      string(data),
		FetchedAt: time.Now().UTC(),
	}, nil
}

// FetchIfChanged downloads the URL only if the ETag has changed.
func (f *HTTPFetcher) FetchIfChanged(ctx context.Context, rawURL, etag string) (*model.RawDocument, string, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", false, eris.Wrap(err, "fetcher: create request")
	}
	req.Header.Set("User-Agent", f.opts.UserAgent)
	if etag != "" {
		req.Header.Set("If-None-Match", etag)
	}

	adaptive, err := f.wait(ctx, rawURL)
	if err != nil {
		return nil, "", false, err
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, "", false, resilience.NewTransientError(eris.Wrapf(err, "fetcher: get %s", rawURL), 0)
	}
	defer resp.Body.Close() //nolint:errcheck

	switch {
	case resp.StatusCode == http.StatusNotModified:
		return nil, etag, false, nil

	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		if adaptive != nil {
			adaptive.OnSuccess()
		}
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, "", false, resilience.NewTransientError(eris.Wrapf(err, "fetcher: read body %s", rawURL), 0)
		}
		doc := &model.RawDocument{URL: rawURL, Body: string(data), FetchedAt: time.Now().UTC()}
		return doc, resp.Header.Get("ETag"), true, nil

	case resilience.IsPermanentHTTPStatus(resp.StatusCode):
		return nil, "", false, resilience.NewPermanentError(
			eris.Errorf("fetcher: http %d from %s", resp.StatusCode, rawURL), resp.StatusCode)

	default:
		if resp.StatusCode == http.StatusTooManyRequests && adaptive != nil {
			adaptive.OnRateLimit()
		}
		return nil, "", false, resilience.NewTransientError(
			eris.Errorf("fetcher: http %d from %s", resp.StatusCode, rawURL), resp.StatusCode)
	}
}
