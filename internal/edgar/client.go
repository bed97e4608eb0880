package edgar

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/fundwatch/internal/fetcher"
	"github.com/sells-group/fundwatch/internal/model"
)

const (
	submissionsURL = "https://data.sec.gov/submissions/CIK%s.json"
	archiveURL     = "https://www.sec.gov/Archives/edgar/data/%s/%s/%s"
)

// submissionsResponse mirrors the per-registrant submissions feed.
// Filing attributes arrive as parallel arrays that are not guaranteed
// to share a length.
type submissionsResponse struct {
	CIK     string `json:"cik"`
	Name    string `json:"name"`
	Filings struct {
		Recent recentFilings `json:"recent"`
	} `json:"filings"`
}

type recentFilings struct {
	AccessionNumber []string `json:"accessionNumber"`
	FilingDate      []string `json:"filingDate"`
	Form            []string `json:"form"`
	PrimaryDocument []string `json:"primaryDocument"`
}

// Client reads registrant submission indexes and filing documents.
type Client struct {
	fetcher fetcher.Fetcher
}

func NewClient(f fetcher.Fetcher) *Client {
	return &Client{fetcher: f}
}

// Submissions returns a registrant's recent filings in feed order,
// which EDGAR keeps reverse-chronological. Rows with an empty accession
// number are dropped; other attributes missing from a ragged array fall
// back to empty strings.
func (c *Client) Submissions(ctx context.Context, cik string) ([]model.Filing, error) {
	doc, err := c.fetcher.Fetch(ctx, fmt.Sprintf(submissionsURL, cik))
	if err != nil {
		return nil, eris.Wrapf(err, "edgar: fetch submissions for CIK %s", cik)
	}

	resp, err := fetcher.DecodeJSON[submissionsResponse](doc)
	if err != nil {
		return nil, eris.Wrapf(err, "edgar: parse submissions for CIK %s", cik)
	}

	recent := resp.Filings.Recent
	filings := make([]model.Filing, 0, len(recent.Form))
	for i := range recent.Form {
		acc := safeIndex(recent.AccessionNumber, i)
		if acc == "" {
			continue
		}
		filings = append(filings, model.Filing{
			Form:       recent.Form[i],
			Date:       safeIndex(recent.FilingDate, i),
			Accession:  acc,
			PrimaryDoc: safeIndex(recent.PrimaryDocument, i),
		})
	}
	return filings, nil
}

// FetchDocument retrieves a filing's primary document from the archive.
func (c *Client) FetchDocument(ctx context.Context, cik string, f model.Filing) (*model.RawDocument, error) {
	doc, err := c.fetcher.Fetch(ctx, DocumentURL(cik, f.Accession, f.PrimaryDoc))
	if err != nil {
		return nil, eris.Wrapf(err, "edgar: fetch document %s", f.Accession)
	}
	return doc, nil
}

// DocumentURL builds the archive URL for a filing's primary document.
// The path wants the CIK without leading zeros and the accession number
// without dashes.
func DocumentURL(cik, accession, primaryDoc string) string {
	short := strings.TrimLeft(cik, "0")
	if short == "" {
		short = "0"
	}
	return fmt.Sprintf(archiveURL, short, strings.ReplaceAll(accession, "-", ""), primaryDoc)
}

// safeIndex returns the string at index i, or empty string if out of bounds.
func safeIndex(s []string, i int) string {
	if i < len(s) {
		return s[i]
	}
	return ""
}
