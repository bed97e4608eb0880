package main

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/fundwatch/internal/edgar"
	"github.com/sells-group/fundwatch/internal/extract"
	"github.com/sells-group/fundwatch/internal/fetcher"
	"github.com/sells-group/fundwatch/internal/scan"
	"github.com/sells-group/fundwatch/internal/store"
)

// initStore opens the configured backend. Callers own Migrate and
// Close.
func initStore(ctx context.Context) (store.Store, error) {
	dsn := cfg.Store.Path
	if cfg.Store.Driver == "postgres" {
		dsn = cfg.Store.DatabaseURL
	}
	return store.Open(ctx, cfg.Store.Driver, dsn)
}

// newFundFetcher picks the transport for statistics pages: a headless
// browser when the site needs client-side rendering, plain rate-limited
// HTTP otherwise. The metric tables supply the render-wait markers;
// funds.wait_texts in the config overrides them.
func newFundFetcher(waitTexts []string) fetcher.Fetcher {
	if cfg.Funds.Render {
		if len(cfg.Funds.WaitTexts) > 0 {
			waitTexts = cfg.Funds.WaitTexts
		}
		return fetcher.NewRenderFetcher(fetcher.RenderOptions{
			Timeout:   time.Duration(cfg.Fetch.RenderTimeoutSecs) * time.Second,
			Gate:      scan.GateURL(cfg.Funds.BaseURL),
			WaitTexts: waitTexts,
		})
	}
	return fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
		Timeout:      time.Duration(cfg.Fetch.TimeoutSecs) * time.Second,
		RateLimiters: fetcher.DefaultRateLimiters(),
	})
}

// newEdgarFetcher returns the SEC transport: declared User-Agent and a
// request budget shared across both EDGAR hosts.
func newEdgarFetcher() fetcher.Fetcher {
	return fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
		UserAgent:    cfg.Edgar.UserAgent,
		Timeout:      time.Duration(cfg.Fetch.TimeoutSecs) * time.Second,
		RateLimiters: fetcher.SECRateLimiters(cfg.Edgar.RPS),
	})
}

func newExtractor() (*extract.Extractor, error) {
	tables, err := extract.LoadTables(cfg.Funds.TablesPath)
	if err != nil {
		return nil, err
	}
	return extract.NewExtractor(tables)
}

func newFundScanner(ex *extract.Extractor) *scan.FundScanner {
	return scan.NewFundScanner(newFundFetcher(ex.Tables().WaitTexts), ex, scan.FundOptions{
		BaseURL:       cfg.Funds.BaseURL,
		Rounds:        cfg.Scan.Rounds,
		MinDelay:      time.Duration(cfg.Scan.MinDelaySecs) * time.Second,
		MaxDelay:      time.Duration(cfg.Scan.MaxDelaySecs) * time.Second,
		BackoffFactor: cfg.Scan.BackoffFactor,
		Concurrency:   cfg.Scan.Concurrency,
		DebugDir:      cfg.Funds.DebugDir,
	})
}

func newFilingScanner() *scan.FilingScanner {
	f := newEdgarFetcher()

	var forms map[string]struct{}
	if len(cfg.Edgar.Forms) > 0 {
		forms = edgar.FormSet(cfg.Edgar.Forms)
	}

	return scan.NewFilingScanner(edgar.NewResolver(f), edgar.NewClient(f), scan.FilingOptions{
		WindowDays:  cfg.Edgar.WindowDays,
		Forms:       forms,
		Concurrency: cfg.Scan.Concurrency,
	})
}

// tickerList resolves the tickers for a scan: command arguments win,
// otherwise the configured list.
func tickerList(args, configured []string) ([]string, error) {
	if len(args) > 0 {
		return args, nil
	}
	if len(configured) > 0 {
		return configured, nil
	}
	return nil, eris.New("no tickers: pass them as arguments or set them in the config file")
}

// exportPath resolves an output file against the export directory.
// Absolute paths are kept as given.
func exportPath(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(cfg.Export.Dir, name)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
