package fetcher

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/fundwatch/internal/model"
	"github.com/sells-group/fundwatch/internal/resilience"
)

// RenderOptions configures the headless-browser fetcher.
type RenderOptions struct {
	Timeout time.Duration

	// Gate maps a page URL to a challenge page that must be visited
	// first in the same browser context, or "" when none is needed.
	// Some hosts set cookies on the challenge page that the real page
	// requires.
	Gate func(url string) string

	// WaitTexts lists fragments polled for after navigation so that
	// late-hydrating values are present before the DOM is captured.
	// Waiting is best effort: a fragment that never appears does not
	// fail the fetch.
	WaitTexts []string
}

// RenderFetcher implements Fetcher with a headless browser for pages
// that assemble their content client-side. Like HTTPFetcher it makes a
// single attempt per call and classifies failures by document status.
type RenderFetcher struct {
	opts RenderOptions
}

// NewRenderFetcher creates a RenderFetcher with the given options.
func NewRenderFetcher(opts RenderOptions) *RenderFetcher {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	return &RenderFetcher{opts: opts}
}

// Fetch navigates to the URL in a fresh browser context and returns the
// rendered DOM.
func (f *RenderFetcher) Fetch(ctx context.Context, rawURL string) (*model.RawDocument, error) {
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, append(
		chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
	)...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	runCtx, cancelRun := context.WithTimeout(browserCtx, f.opts.Timeout)
	defer cancelRun()

	if f.opts.Gate != nil {
		if gate := f.opts.Gate(rawURL); gate != "" {
			if err := chromedp.Run(runCtx,
				chromedp.Navigate(gate),
				chromedp.WaitReady("body", chromedp.ByQuery),
			); err != nil {
				return nil, resilience.NewTransientError(eris.Wrapf(err, "fetcher: navigate gate %s", gate), 0)
			}
		}
	}

	resp, err := chromedp.RunResponse(runCtx, chromedp.Navigate(rawURL))
	if err != nil {
		return nil, resilience.NewTransientError(eris.Wrapf(err, "fetcher: navigate %s", rawURL), 0)
	}
	if resp != nil {
		status := int(resp.Status)
		switch {
		case status >= 200 && status < 300:
		case resilience.IsPermanentHTTPStatus(status):
			return nil, resilience.NewPermanentError(
				eris.Errorf("fetcher: http %d from %s", status, rawURL), status)
		default:
			return nil, resilience.NewTransientError(
				eris.Errorf("fetcher: http %d from %s", status, rawURL), status)
		}
	}

	if err := chromedp.Run(runCtx,
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(500*time.Millisecond),
	); err != nil {
		return nil, resilience.NewTransientError(eris.Wrapf(err, "fetcher: settle %s", rawURL), 0)
	}

	for _, text := range f.opts.WaitTexts {
		var present bool
		expr := fmt.Sprintf("document.body.innerText.includes(%q)", text)
		if err := chromedp.Run(runCtx,
			chromedp.Poll(expr, &present, chromedp.WithPollingTimeout(5*time.Second)),
		); err != nil {
			zap.L().Debug("render wait text never appeared",
				zap.String("url", rawURL),
				zap.String("text", text),
			)
		}
	}

	var html string
	if err := chromedp.Run(runCtx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return nil, resilience.NewTransientError(eris.Wrapf(err, "fetcher: capture dom %s", rawURL), 0)
	}

	return &model.RawDocument{
		URL:       rawURL,
		Body:      html,
		FetchedAt: time.Now().UTC(),
	}, nil
}
