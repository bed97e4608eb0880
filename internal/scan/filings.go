package scan

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/fundwatch/internal/classify"
	"github.com/sells-group/fundwatch/internal/edgar"
	"github.com/sells-group/fundwatch/internal/model"
)

// FilingOptions configures an EDGAR filing scan.
type FilingOptions struct {
	// WindowDays is the lookback window for qualifying filings.
	WindowDays int
	// Forms narrows the qualifying form set; nil keeps the default.
	Forms map[string]struct{}
	// Concurrency above one scans tickers in parallel.
	Concurrency int
	// Now supplies the scan clock. Nil means time.Now.
	Now func() time.Time
}

// FilingScanner resolves tickers to CIK numbers, lists each
// registrant's recent filings, and classifies the qualifying documents
// for tradeability risk.
type FilingScanner struct {
	resolver *edgar.Resolver
	client   *edgar.Client
	opts     FilingOptions
}

// NewFilingScanner returns a scanner using the given resolver and
// EDGAR client.
func NewFilingScanner(r *edgar.Resolver, c *edgar.Client, opts FilingOptions) *FilingScanner {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &FilingScanner{resolver: r, client: c, opts: opts}
}

// Scan classifies recent filings for every ticker, returning records
// grouped by ticker in input order. Per-ticker and per-document
// failures land on their rows; only a failure to load the ticker
// reference table aborts the scan, since nothing can resolve without
// it. Every input ticker is represented in the output.
func (s *FilingScanner) Scan(ctx context.Context, tickers []string) ([]model.FilingRecord, error) {
	if err := s.resolver.Load(ctx); err != nil {
		return nil, err
	}

	limit := s.opts.Concurrency
	if limit < 1 {
		limit = 1
	}

	perTicker := make([][]model.FilingRecord, len(tickers))
	var g errgroup.Group
	g.SetLimit(limit)
	for i, raw := range tickers {
		ticker := normalizeTicker(raw)
		g.Go(func() error {
			perTicker[i] = s.scanTicker(ctx, ticker)
			return nil
		})
	}
	_ = g.Wait()

	var records []model.FilingRecord
	for _, rs := range perTicker {
		records = append(records, rs...)
	}

	succeeded, failed := CountFilings(records)
	zap.L().Info("filing scan complete",
		zap.Int("tickers", len(tickers)),
		zap.Int("records", len(records)),
		zap.Int("succeeded", succeeded),
		zap.Int("failed", failed),
	)
	return records, nil
}

// scanTicker produces the rows for one ticker. A ticker that cannot be
// resolved or listed gets a single terminal row; a ticker with no
// qualifying filings gets a single clean row so it stays visible in
// the output.
func (s *FilingScanner) scanTicker(ctx context.Context, ticker string) []model.FilingRecord {
	cik, ok := s.resolver.Lookup(ticker)
	if !ok {
		return []model.FilingRecord{{Ticker: ticker, Err: "CIK not found"}}
	}

	filings, err := s.client.Submissions(ctx, cik)
	if err != nil {
		return []model.FilingRecord{{Ticker: ticker, CIK: cik, Err: truncateErr(err)}}
	}

	qualifying := edgar.FilterFilings(filings, s.opts.Now(), s.opts.WindowDays, s.opts.Forms)
	zap.L().Debug("ticker scanned",
		zap.String("ticker", ticker),
		zap.Int("listed", len(filings)),
		zap.Int("qualifying", len(qualifying)),
	)
	if len(qualifying) == 0 {
		return []model.FilingRecord{{Ticker: ticker, CIK: cik}}
	}

	records := make([]model.FilingRecord, 0, len(qualifying))
	for _, f := range qualifying {
		records = append(records, s.classifyFiling(ctx, ticker, cik, f))
	}
	return records
}

// classifyFiling fetches one filing document and derives its flags and
// risk state. Fetch failures are recorded on the row and never retried.
func (s *FilingScanner) classifyFiling(ctx context.Context, ticker, cik string, f model.Filing) model.FilingRecord {
	rec := model.FilingRecord{
		Ticker:          ticker,
		CIK:             cik,
		Form:            f.Form,
		Date:            f.Date,
		Accession:       f.Accession,
		PrimaryDocument: f.PrimaryDoc,
	}

	doc, err := s.client.FetchDocument(ctx, cik, f)
	if err != nil {
		rec.Err = truncateErr(err)
		return rec
	}

	if classify.Prefilter(f.Form, doc.Body) {
		rec.Flags = classify.Classify(f.Form, doc.Body)
		rec.Classified = true
	}
	rec.State = classify.ReduceState(rec.Flags)
	return rec
}
