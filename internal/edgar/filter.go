package edgar

import (
	"time"

	"github.com/sells-group/fundwatch/internal/model"
)

// Forms are the filing types that can bear on tradeability: current
// reports, delisting and deregistration notices, merger proxies, tender
// offer materials, and fund liquidation paperwork.
var Forms = map[string]struct{}{
	"8-K":      {},
	"25":       {},
	"25-NSE":   {},
	"15-12B":   {},
	"15-12G":   {},
	"15-15D":   {},
	"S-4":      {},
	"F-4":      {},
	"DEFM14A":  {},
	"PREM14A":  {},
	"SC 13E3":  {},
	"SC 13E-3": {},
	"TO-T":     {},
	"TO-I":     {},
	"14D-9":    {},
	"6-K":      {},
	"N-8F":     {},
	"497":      {},
}

// FormSet builds a form filter from the given names. Use it to narrow a
// scan below the built-in Forms set.
func FormSet(names []string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return set
}

// FilterFilings keeps filings whose form is in the given set and whose
// filing date falls on or after now minus windowDays, at date
// granularity. A nil set means the built-in Forms. Entries with
// unparsable dates are dropped. Source order is preserved.
func FilterFilings(filings []model.Filing, now time.Time, windowDays int, forms map[string]struct{}) []model.Filing {
	if forms == nil {
		forms = Forms
	}
	c := now.AddDate(0, 0, -windowDays)
	cutoff := time.Date(c.Year(), c.Month(), c.Day(), 0, 0, 0, 0, time.UTC)

	var kept []model.Filing
	for _, f := range filings {
		date, err := time.Parse("2006-01-02", f.Date)
		if err != nil {
			continue
		}
		if date.Before(cutoff) {
			continue
		}
		if _, ok := forms[f.Form]; !ok {
			continue
		}
		kept = append(kept, f)
	}
	return kept
}
