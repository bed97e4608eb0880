// Package fetcher downloads documents over plain HTTP and headless
// Chrome, with per-host rate limiting and JSON decoding helpers.
package fetcher

import (
	"context"

	"github.com/sells-group/fundwatch/internal/model"
)

// Fetcher defines the interface for downloading remote documents.
type Fetcher interface {
	// Fetch downloads the URL and returns the fetched document. It makes
	// exactly one attempt: a failure comes back classified as transient
	// or permanent and is never retried here. Retry policy belongs to
	// the scan loop that owns the batch.
	Fetch(ctx context.Context, url string) (*model.RawDocument, error)
}

// ConditionalFetcher is implemented by fetchers that support ETag-based
// conditional requests for cacheable feeds.
type ConditionalFetcher interface {
	Fetcher

	// FetchIfChanged downloads the URL only if the content no longer
	// matches etag. Returns (doc, newETag, changed, error); on a 304 the
	// document is nil and changed is false.
	FetchIfChanged(ctx context.Context, url, etag string) (*model.RawDocument, string, bool, error)
}
