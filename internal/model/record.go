// Package model defines the core record types shared by the fund and
// filing scan pipelines.
package model

import "time"

// RawDocument is an opaque fetched payload plus its provenance. It is
// immutable once fetched; the pipeline invocation that produced it is
// its only owner.
type RawDocument struct {
	URL       string    `json:"url"`
	Body      string    `json:"body"`
	FetchedAt time.Time `json:"fetched_at"`
}

// FundRecord holds the canonical metrics extracted from one fund's
// statistics page. Fields maps canonical metric name to its raw string
// value; metrics that could not be recovered are simply absent. Err
// carries the terminal failure note for tickers that produced no data.
type FundRecord struct {
	Ticker string            `json:"ticker"`
	Fields map[string]string `json:"fields,omitempty"`
	Err    string            `json:"error,omitempty"`
}

// Empty reports whether the record carries no extracted metrics.
func (r FundRecord) Empty() bool {
	return len(r.Fields) == 0
}

// Filing is one entry of a registrant's filing list feed, as provided
// by the source (typically reverse-chronological).
type Filing struct {
	Form       string `json:"form"`
	Date       string `json:"date"` // ISO-8601 filing date as published
	Accession  string `json:"accession"`
	PrimaryDoc string `json:"primary_document"`
}

// FilingRecord is one emitted row of the filing risk pipeline: the
// filing's identity, the signal flags derived from its document, and
// the single reduced risk state.
//
// Flags is nil and Classified is false when the document never passed
// the classification pre-filter; the row still carries its filing
// metadata. State is a pure function of Flags, computed exactly once.
type FilingRecord struct {
	Ticker          string          `json:"ticker"`
	CIK             string          `json:"cik"`
	Form            string          `json:"form"`
	Date            string          `json:"date"`
	Accession       string          `json:"accession"`
	PrimaryDocument string          `json:"primary_document"`
	Flags           map[string]bool `json:"flags,omitempty"`
	Classified      bool            `json:"classified"`
	State           RiskState       `json:"state"`
	Err             string          `json:"error,omitempty"`
}
