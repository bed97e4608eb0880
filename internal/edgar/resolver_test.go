package edgar

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/fundwatch/internal/model"
	"github.com/sells-group/fundwatch/internal/resilience"
)

// stubFetcher serves canned bodies keyed by URL.
type stubFetcher struct {
	docs  map[string]string
	errs  map[string]error
	calls []string
}

func (s *stubFetcher) Fetch(_ context.Context, url string) (*model.RawDocument, error) {
	s.calls = append(s.calls, url)
	if err, ok := s.errs[url]; ok {
		return nil, err
	}
	body, ok := s.docs[url]
	if !ok {
		return nil, resilience.NewPermanentError(assert.AnError, 404)
	}
	return &model.RawDocument{URL: url, Body: body, FetchedAt: time.Now().UTC()}, nil
}

// conditionalStub adds ETag semantics on top of stubFetcher.
type conditionalStub struct {
	stubFetcher
	etag     string
	gotETags []string
}

func (s *conditionalStub) FetchIfChanged(ctx context.Context, url, etag string) (*model.RawDocument, string, bool, error) {
	s.gotETags = append(s.gotETags, etag)
	if etag != "" && etag == s.etag {
		return nil, etag, false, nil
	}
	doc, err := s.Fetch(ctx, url)
	if err != nil {
		return nil, "", false, err
	}
	return doc, s.etag, true, nil
}

const tickersBody = `{
	"0": {"cik_str": 320193, "ticker": "AAPL", "title": "Apple Inc."},
	"1": {"cik_str": 1069157, "ticker": "BCV", "title": "Bancroft Fund Ltd"},
	"2": {"cik_str": 4977, "ticker": "AFL", "title": "Aflac Inc"}
}`

func TestResolverLoadAndLookup(t *testing.T) {
	stub := &stubFetcher{docs: map[string]string{tickersURL: tickersBody}}
	r := NewResolver(stub)
	require.NoError(t, r.Load(context.Background()))

	cik, ok := r.Lookup("AAPL")
	assert.True(t, ok)
	assert.Equal(t, "0000320193", cik)

	cik, ok = r.Lookup("afl")
	assert.True(t, ok, "lookup should be case-insensitive")
	assert.Equal(t, "0000004977", cik)

	cik, ok = r.Lookup("  bcv  ")
	assert.True(t, ok, "lookup should trim whitespace")
	assert.Equal(t, "0001069157", cik)

	_, ok = r.Lookup("ZZZZ")
	assert.False(t, ok)
}

func TestResolverLookupBeforeLoad(t *testing.T) {
	r := NewResolver(&stubFetcher{})
	_, ok := r.Lookup("AAPL")
	assert.False(t, ok)
}

func TestResolverLoadFetchError(t *testing.T) {
	stub := &stubFetcher{errs: map[string]error{tickersURL: assert.AnError}}
	r := NewResolver(stub)
	err := r.Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetch ticker table")
}

func TestResolverLoadBadJSON(t *testing.T) {
	stub := &stubFetcher{docs: map[string]string{tickersURL: "<html>not json</html>"}}
	r := NewResolver(stub)
	err := r.Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse ticker table")
}

func TestResolverSkipsEmptyTicker(t *testing.T) {
	body := `{"0": {"cik_str": 1, "ticker": "", "title": "Mystery"}, "1": {"cik_str": 2, "ticker": "OK", "title": "Ok Corp"}}`
	stub := &stubFetcher{docs: map[string]string{tickersURL: body}}
	r := NewResolver(stub)
	require.NoError(t, r.Load(context.Background()))

	cik, ok := r.Lookup("OK")
	assert.True(t, ok)
	assert.Equal(t, "0000000002", cik)
	_, ok = r.Lookup("")
	assert.False(t, ok)
}

func TestResolverRefreshNotModified(t *testing.T) {
	stub := &conditionalStub{
		stubFetcher: stubFetcher{docs: map[string]string{tickersURL: tickersBody}},
		etag:        `"v1"`,
	}
	r := NewResolver(stub)

	require.NoError(t, r.Refresh(context.Background()))
	cik, ok := r.Lookup("AAPL")
	require.True(t, ok)
	assert.Equal(t, "0000320193", cik)

	// Second refresh revalidates with the stored ETag and keeps the table.
	require.NoError(t, r.Refresh(context.Background()))
	assert.Equal(t, []string{"", `"v1"`}, stub.gotETags)
	assert.Len(t, stub.calls, 1, "not-modified refresh must not refetch the body")

	cik, ok = r.Lookup("AAPL")
	assert.True(t, ok)
	assert.Equal(t, "0000320193", cik)
}

func TestResolverRefreshChanged(t *testing.T) {
	stub := &conditionalStub{
		stubFetcher: stubFetcher{docs: map[string]string{tickersURL: tickersBody}},
		etag:        `"v1"`,
	}
	r := NewResolver(stub)
	require.NoError(t, r.Refresh(context.Background()))

	stub.docs[tickersURL] = `{"0": {"cik_str": 99, "ticker": "NEW", "title": "New Fund"}}`
	stub.etag = `"v2"`

	require.NoError(t, r.Refresh(context.Background()))

	_, ok := r.Lookup("AAPL")
	assert.False(t, ok, "replaced table should drop old tickers")
	cik, ok := r.Lookup("NEW")
	assert.True(t, ok)
	assert.Equal(t, "0000000099", cik)
}

func TestResolverRefreshPlainFetcher(t *testing.T) {
	stub := &stubFetcher{docs: map[string]string{tickersURL: tickersBody}}
	r := NewResolver(stub)

	require.NoError(t, r.Refresh(context.Background()))
	assert.Len(t, stub.calls, 1, "plain fetcher falls back to a full load")

	cik, ok := r.Lookup("BCV")
	assert.True(t, ok)
	assert.Equal(t, "0001069157", cik)
}
