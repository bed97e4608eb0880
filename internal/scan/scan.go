// Package scan drives the two ingestion pipelines end to end: the fund
// statistics scan and the EDGAR filing risk scan. Scanners own batch
// sequencing, pacing, and retry policy; fetching, extraction, and
// classification live in their own packages.
package scan

import (
	"strings"

	"github.com/sells-group/fundwatch/internal/model"
)

// errNoteLimit caps the failure note recorded on a row.
const errNoteLimit = 120

// truncateErr renders an error as a record note.
func truncateErr(err error) string {
	msg := err.Error()
	if len(msg) > errNoteLimit {
		msg = msg[:errNoteLimit]
	}
	return msg
}

// normalizeTicker uppercases and trims a ticker symbol.
func normalizeTicker(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

// CountFund reports how many fund records carry metrics and how many
// ended with none.
func CountFund(records []model.FundRecord) (succeeded, failed int) {
	for _, r := range records {
		if r.Empty() {
			failed++
		} else {
			succeeded++
		}
	}
	return succeeded, failed
}

// CountFilings reports per-ticker outcomes. A ticker failed when its
// scan ended terminally, before any filing could be listed: an
// unresolved CIK or an unreadable filing feed. Per-document errors do
// not fail the ticker.
func CountFilings(records []model.FilingRecord) (succeeded, failed int) {
	terminal := make(map[string]bool)
	for _, r := range records {
		bad := r.Err != "" && r.Accession == ""
		terminal[r.Ticker] = terminal[r.Ticker] || bad
	}
	for _, bad := range terminal {
		if bad {
			failed++
		} else {
			succeeded++
		}
	}
	return succeeded, failed
}
