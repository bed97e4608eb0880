// Package edgar talks to the SEC EDGAR public data endpoints: the bulk
// ticker-to-CIK reference table, per-registrant submission indexes, and
// archived primary filing documents. All requests must carry a real
// User-Agent; that is the caller's fetcher's job.
package edgar

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/fundwatch/internal/fetcher"
	"github.com/sells-group/fundwatch/internal/model"
)

const tickersURL = "https://www.sec.gov/files/company_tickers.json"

// tickerEntry is one row of company_tickers.json. The feed is a JSON
// object keyed by arbitrary numeric strings, not an array.
type tickerEntry struct {
	CIK    int    `json:"cik_str"`
	Ticker string `json:"ticker"`
	Title  string `json:"title"`
}

// Resolver maps ticker symbols to zero-padded ten-digit CIK strings
// using the SEC's bulk reference table. The table is fetched once per
// run and held in memory; Refresh revalidates it with a conditional
// request so long-running processes can pick up new listings cheaply.
type Resolver struct {
	fetcher fetcher.Fetcher

	mu    sync.RWMutex
	table map[string]string
	etag  string
}

// NewResolver returns a Resolver with an empty table. Call Load before
// the first Lookup.
func NewResolver(f fetcher.Fetcher) *Resolver {
	return &Resolver{fetcher: f}
}

// Load fetches the reference table, replacing any previously loaded one.
func (r *Resolver) Load(ctx context.Context) error {
	doc, err := r.fetcher.Fetch(ctx, tickersURL)
	if err != nil {
		return eris.Wrap(err, "edgar: fetch ticker table")
	}
	var etag string
	r.mu.RLock()
	etag = r.etag
	r.mu.RUnlock()
	return r.install(doc, etag)
}

// Refresh revalidates the loaded table when the fetcher supports
// conditional requests, falling back to a full Load when it does not.
// A not-modified response keeps the current table.
func (r *Resolver) Refresh(ctx context.Context) error {
	cf, ok := r.fetcher.(fetcher.ConditionalFetcher)
	if !ok {
		return r.Load(ctx)
	}

	r.mu.RLock()
	etag := r.etag
	r.mu.RUnlock()

	doc, newETag, changed, err := cf.FetchIfChanged(ctx, tickersURL, etag)
	if err != nil {
		return eris.Wrap(err, "edgar: refresh ticker table")
	}
	if !changed {
		zap.L().Debug("ticker table unchanged", zap.String("etag", etag))
		return nil
	}
	return r.install(doc, newETag)
}

func (r *Resolver) install(doc *model.RawDocument, etag string) error {
	entries, err := fetcher.DecodeJSON[map[string]tickerEntry](doc)
	if err != nil {
		return eris.Wrap(err, "edgar: parse ticker table")
	}

	table := make(map[string]string, len(entries))
	for _, e := range entries {
		if e.Ticker == "" {
			continue
		}
		table[strings.ToUpper(e.Ticker)] = fmt.Sprintf("%010d", e.CIK)
	}

	r.mu.Lock()
	r.table = table
	r.etag = etag
	r.mu.Unlock()

	zap.L().Info("loaded ticker reference table", zap.Int("tickers", len(table)))
	return nil
}

// Lookup returns the ten-digit CIK for a ticker. The boolean is false
// when the ticker is absent from the reference table; absence is a
// normal per-ticker outcome, not an error.
func (r *Resolver) Lookup(ticker string) (string, bool) {
	key := strings.ToUpper(strings.TrimSpace(ticker))

	r.mu.RLock()
	defer r.mu.RUnlock()
	cik, ok := r.table[key]
	return cik, ok
}
