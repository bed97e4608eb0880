package scan

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/fundwatch/internal/extract"
	"github.com/sells-group/fundwatch/internal/model"
	"github.com/sells-group/fundwatch/internal/resilience"
)

const fundPage = `<html><body><table>
<tr><td>Total Leverage</td><td>38.8%</td></tr>
<tr><td>Current Distribution</td><td>0.0740</td></tr>
</table></body></html>`

const emptyPage = `<html><body><p>down for maintenance</p></body></html>`

type stubResult struct {
	body string
	err  error
}

// stubFetcher serves a canned sequence of results per URL; the last one
// repeats. URLs with no sequence come back 404.
type stubFetcher struct {
	mu      sync.Mutex
	results map[string][]stubResult
	calls   map[string]int
	urls    []string
}

func newStubFetcher() *stubFetcher {
	return &stubFetcher{results: map[string][]stubResult{}, calls: map[string]int{}}
}

func (s *stubFetcher) Fetch(_ context.Context, url string) (*model.RawDocument, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.urls = append(s.urls, url)
	n := s.calls[url]
	s.calls[url]++

	seq, ok := s.results[url]
	if !ok {
		return nil, resilience.NewPermanentError(errors.New("http 404"), 404)
	}
	if n >= len(seq) {
		n = len(seq) - 1
	}
	r := seq[n]
	if r.err != nil {
		return nil, r.err
	}
	return &model.RawDocument{URL: url, Body: r.body, FetchedAt: time.Now()}, nil
}

func (s *stubFetcher) callCount(url string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[url]
}

func newTestFundScanner(t *testing.T, f *stubFetcher, opts FundOptions) *FundScanner {
	t.Helper()
	ex, err := extract.NewExtractor(extract.DefaultTables())
	require.NoError(t, err)
	if opts.BaseURL == "" {
		opts.BaseURL = "https://cefdata.com"
	}
	return NewFundScanner(f, ex, opts)
}

func TestFundURL(t *testing.T) {
	assert.Equal(t, "https://cefdata.com/funds/bcv/", FundURL("https://cefdata.com", "BCV"))
	assert.Equal(t, "https://cefdata.com/funds/bcv/", FundURL("https://cefdata.com/", " bcv "))
	assert.Equal(t, "http://127.0.0.1:9/funds/xflt/", FundURL("http://127.0.0.1:9", "XFLT"))
}

func TestGateURL(t *testing.T) {
	gate := GateURL("https://cefdata.com")
	assert.Equal(t, "https://cefdata.com/ch/bcv/", gate("https://cefdata.com/funds/bcv/"))
	assert.Equal(t, "https://cefdata.com/ch/xflt/", gate("https://cefdata.com/funds/xflt"))
	assert.Equal(t, "", gate(""))
}

func TestFundScan_Success(t *testing.T) {
	stub := newStubFetcher()
	url := "https://cefdata.com/funds/bcv/"
	stub.results[url] = []stubResult{{body: fundPage}}

	s := newTestFundScanner(t, stub, FundOptions{Rounds: 3})
	records := s.Scan(context.Background(), []string{" bcv "})

	require.Len(t, records, 1)
	assert.Equal(t, "BCV", records[0].Ticker)
	assert.Equal(t, "38.8%", records[0].Fields["Total Leverage Ratio"])
	assert.Equal(t, "0.0740", records[0].Fields["Current Distribution"])
	assert.Empty(t, records[0].Err)
	assert.Equal(t, []string{url}, stub.urls)
}

func TestFundScan_PermanentFailureNotRetried(t *testing.T) {
	stub := newStubFetcher()
	url := "https://cefdata.com/funds/gone/"

	s := newTestFundScanner(t, stub, FundOptions{Rounds: 3})
	records := s.Scan(context.Background(), []string{"GONE"})

	require.Len(t, records, 1)
	assert.True(t, records[0].Empty())
	assert.Contains(t, records[0].Err, "fetch fund page")
	assert.Equal(t, 1, stub.callCount(url))
}

func TestFundScan_TransientFailureRecovers(t *testing.T) {
	stub := newStubFetcher()
	url := "https://cefdata.com/funds/bcv/"
	stub.results[url] = []stubResult{
		{err: resilience.NewTransientError(errors.New("http 503"), 503)},
		{body: fundPage},
	}

	s := newTestFundScanner(t, stub, FundOptions{Rounds: 3})
	records := s.Scan(context.Background(), []string{"BCV"})

	require.Len(t, records, 1)
	assert.Empty(t, records[0].Err)
	assert.Equal(t, "38.8%", records[0].Fields["Total Leverage Ratio"])
	assert.Equal(t, 2, stub.callCount(url))
}

func TestFundScan_EmptyPageRetriedThenRecovers(t *testing.T) {
	stub := newStubFetcher()
	url := "https://cefdata.com/funds/bcv/"
	stub.results[url] = []stubResult{{body: emptyPage}, {body: fundPage}}

	s := newTestFundScanner(t, stub, FundOptions{Rounds: 2})
	records := s.Scan(context.Background(), []string{"BCV"})

	require.Len(t, records, 1)
	assert.False(t, records[0].Empty())
	assert.Equal(t, 2, stub.callCount(url))
}

func TestFundScan_EmptyPageExhaustsRounds(t *testing.T) {
	stub := newStubFetcher()
	url := "https://cefdata.com/funds/bcv/"
	stub.results[url] = []stubResult{{body: emptyPage}}

	s := newTestFundScanner(t, stub, FundOptions{Rounds: 1})
	records := s.Scan(context.Background(), []string{"BCV"})

	require.Len(t, records, 1)
	assert.True(t, records[0].Empty())
	assert.Contains(t, records[0].Err, "no recognizable metrics")
	assert.Equal(t, 2, stub.callCount(url))
}

func TestFundScan_EveryTickerRepresented(t *testing.T) {
	stub := newStubFetcher()
	stub.results["https://cefdata.com/funds/bcv/"] = []stubResult{{body: fundPage}}
	stub.results["https://cefdata.com/funds/empty/"] = []stubResult{{body: emptyPage}}

	s := newTestFundScanner(t, stub, FundOptions{Rounds: 1})
	records := s.Scan(context.Background(), []string{"BCV", "GONE", "EMPTY"})

	require.Len(t, records, 3)
	assert.Equal(t, "BCV", records[0].Ticker)
	assert.Equal(t, "GONE", records[1].Ticker)
	assert.Equal(t, "EMPTY", records[2].Ticker)
	assert.False(t, records[0].Empty())
	assert.True(t, records[1].Empty())
	assert.True(t, records[2].Empty())
	assert.NotEmpty(t, records[1].Err)
	assert.NotEmpty(t, records[2].Err)
}

func TestFundScan_ParallelKeepsInputOrder(t *testing.T) {
	stub := newStubFetcher()
	for _, tk := range []string{"aaa", "bbb", "ccc", "ddd"} {
		stub.results["https://cefdata.com/funds/"+tk+"/"] = []stubResult{{body: fundPage}}
	}

	s := newTestFundScanner(t, stub, FundOptions{Rounds: 1, Concurrency: 4})
	records := s.Scan(context.Background(), []string{"AAA", "BBB", "CCC", "DDD"})

	require.Len(t, records, 4)
	for i, want := range []string{"AAA", "BBB", "CCC", "DDD"} {
		assert.Equal(t, want, records[i].Ticker)
		assert.False(t, records[i].Empty())
	}
}

func TestFundScan_DebugDump(t *testing.T) {
	stub := newStubFetcher()
	stub.results["https://cefdata.com/funds/bcv/"] = []stubResult{{body: fundPage}}
	dir := filepath.Join(t.TempDir(), "dumps")

	s := newTestFundScanner(t, stub, FundOptions{Rounds: 0, DebugDir: dir})
	s.Scan(context.Background(), []string{"BCV"})

	body, err := os.ReadFile(filepath.Join(dir, "debug_BCV.html"))
	require.NoError(t, err)
	assert.Equal(t, fundPage, string(body))
}

func TestFundScan_ContextCancelled(t *testing.T) {
	stub := newStubFetcher()
	stub.results["https://cefdata.com/funds/bcv/"] = []stubResult{{body: fundPage}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := newTestFundScanner(t, stub, FundOptions{Rounds: 3})
	records := s.Scan(ctx, []string{"BCV", "XFLT"})

	require.Len(t, records, 2)
	for _, r := range records {
		assert.True(t, r.Empty())
		assert.NotEmpty(t, r.Err)
	}
}

func TestCountFund(t *testing.T) {
	records := []model.FundRecord{
		{Ticker: "A", Fields: map[string]string{"NAV": "10"}},
		{Ticker: "B", Err: "http 404"},
		{Ticker: "C", Fields: map[string]string{"NAV": "12"}},
	}

	succeeded, failed := CountFund(records)
	assert.Equal(t, 2, succeeded)
	assert.Equal(t, 1, failed)
}
