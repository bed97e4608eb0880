package scan

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/fundwatch/internal/extract"
	"github.com/sells-group/fundwatch/internal/fetcher"
	"github.com/sells-group/fundwatch/internal/model"
	"github.com/sells-group/fundwatch/internal/resilience"
)

// FundOptions configures a fund statistics scan.
type FundOptions struct {
	// BaseURL is the statistics site root, e.g. https://cefdata.com.
	BaseURL string
	// Rounds bounds retry passes over tickers that failed retryably.
	Rounds int
	// MinDelay and MaxDelay bound the randomized pause between fetches.
	MinDelay time.Duration
	MaxDelay time.Duration
	// BackoffFactor widens the pause window on every retry round.
	BackoffFactor float64
	// Concurrency above one scans tickers in parallel.
	Concurrency int
	// DebugDir, when set, receives a copy of every fetched page.
	DebugDir string
}

// FundScanner fetches fund statistics pages and extracts the canonical
// metrics from each.
type FundScanner struct {
	fetcher   fetcher.Fetcher
	extractor *extract.Extractor
	opts      FundOptions
}

// NewFundScanner returns a scanner using the given fetcher and
// extractor.
func NewFundScanner(f fetcher.Fetcher, e *extract.Extractor, opts FundOptions) *FundScanner {
	return &FundScanner{fetcher: f, extractor: e, opts: opts}
}

// FundURL returns the statistics page address for a ticker.
func FundURL(baseURL, ticker string) string {
	return strings.TrimRight(baseURL, "/") + "/funds/" + strings.ToLower(strings.TrimSpace(ticker)) + "/"
}

// GateURL maps a fund page to the host's challenge page for the same
// ticker. The challenge page sets cookies the statistics page needs
// when rendered.
func GateURL(baseURL string) func(pageURL string) string {
	base := strings.TrimRight(baseURL, "/")
	return func(pageURL string) string {
		trimmed := strings.TrimRight(pageURL, "/")
		seg := trimmed[strings.LastIndex(trimmed, "/")+1:]
		if seg == "" {
			return ""
		}
		return base + "/ch/" + seg + "/"
	}
}

// Scan processes every ticker and returns one record per input, in
// input order. Transient failures and empty extractions are retried in
// rounds; permanent failures and tickers still failing after the last
// round come back with the failure note on their record.
func (s *FundScanner) Scan(ctx context.Context, tickers []string) []model.FundRecord {
	keys := make([]string, len(tickers))
	for i, t := range tickers {
		keys[i] = normalizeTicker(t)
	}

	pacer := resilience.NewPacer(s.opts.MinDelay, s.opts.MaxDelay, s.opts.BackoffFactor)
	var mu sync.Mutex
	extracted := make(map[string]map[string]string, len(keys))

	cfg := resilience.RoundsConfig{
		MaxRounds:   s.opts.Rounds,
		Pause:       pacer.Pause,
		Concurrency: s.opts.Concurrency,
		OnRound: func(round, remaining int) {
			pacer.Bump()
			resilience.RoundLogger("funds")(round, remaining)
		},
	}

	failures := resilience.Rounds(ctx, cfg, keys, func(ctx context.Context, ticker string) error {
		fields, err := s.scrapeOne(ctx, ticker)
		if err != nil {
			return err
		}
		mu.Lock()
		extracted[ticker] = fields
		mu.Unlock()
		return nil
	})

	records := make([]model.FundRecord, 0, len(keys))
	for _, t := range keys {
		rec := model.FundRecord{Ticker: t}
		if fields, ok := extracted[t]; ok {
			rec.Fields = fields
		} else if err, ok := failures[t]; ok {
			rec.Err = err.Error()
		}
		records = append(records, rec)
	}

	succeeded, failed := CountFund(records)
	zap.L().Info("fund scan complete",
		zap.Int("tickers", len(keys)),
		zap.Int("succeeded", succeeded),
		zap.Int("failed", failed),
	)
	return records
}

// scrapeOne fetches and extracts a single fund page. An empty
// extraction is retryable, not permanent.
func (s *FundScanner) scrapeOne(ctx context.Context, ticker string) (map[string]string, error) {
	url := FundURL(s.opts.BaseURL, ticker)
	doc, err := s.fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, eris.Wrapf(err, "scan: fetch fund page %s", ticker)
	}

	if s.opts.DebugDir != "" {
		s.dumpDebug(ticker, doc.Body)
	}

	fields, err := s.extractor.Extract(doc)
	if err != nil {
		return nil, eris.Wrapf(err, "scan: extract %s", ticker)
	}
	if len(fields) == 0 {
		return nil, eris.Errorf("scan: no recognizable metrics on %s", url)
	}

	zap.L().Debug("fund metrics extracted",
		zap.String("ticker", ticker),
		zap.Int("fields", len(fields)),
	)
	return fields, nil
}

// dumpDebug writes the fetched page under the debug directory. Dump
// failures are logged, never fatal.
func (s *FundScanner) dumpDebug(ticker, body string) {
	if err := os.MkdirAll(s.opts.DebugDir, 0o755); err != nil {
		zap.L().Warn("debug dir", zap.Error(err))
		return
	}
	path := filepath.Join(s.opts.DebugDir, "debug_"+ticker+".html")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		zap.L().Warn("debug dump failed", zap.String("ticker", ticker), zap.Error(err))
	}
}
