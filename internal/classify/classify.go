// Package classify derives tradeability risk signals from filing
// documents. A cheap keyword pre-filter gates the per-flag matching;
// the reducer collapses a filing's flags into a single risk state.
package classify

import (
	"regexp"
	"sort"
)

// prefilterRe is the broad corporate-event screen. It is deliberately
// wider than the flag patterns: matching here only buys a document the
// full classification pass.
var prefilterRe = regexp.MustCompile(`(?i)(merger|agreement and plan of merger|plan of merger|going ?private|` +
	`acquisition|tender offer|cash merger|take-?private|` +
	`plan of liquidation|plan of dissolution|liquidat|wind down|` +
	`delist|deregist|chapter 11|bankruptcy|receivership)`)

// flagRule binds a signal flag to its document pattern.
type flagRule struct {
	name string
	re   *regexp.Regexp
}

// flagRules are the text-driven signals. Item number patterns target
// 8-K section headers ("Item 1.03 Bankruptcy or Receivership").
var flagRules = []flagRule{
	{"deal_announced", regexp.MustCompile(`(?i)(agreement and plan of merger|plan of merger|merger agreement)`)},
	{"tender_offer", regexp.MustCompile(`(?i)tender offer|14D-9`)},
	{"going_private", regexp.MustCompile(`(?i)going ?private|13E-3`)},
	{"liquidation", regexp.MustCompile(`(?i)plan of liquidation|plan of dissolution|liquidat`)},
	{"bankruptcy", regexp.MustCompile(`(?i)item\s*1\.03|chapter\s*11|bankruptcy|receivership`)},
	{"delist_notice", regexp.MustCompile(`(?i)item\s*3\.01|delist`)},
	{"deal_closed", regexp.MustCompile(`(?i)item\s*2\.01|completion of (the )?merger|closing of the merger`)},
}

// Form-driven signals need no document text at all.
var (
	deregistrationForms = map[string]struct{}{"15-12B": {}, "15-12G": {}, "15-15D": {}}
	delistedForms       = map[string]struct{}{"25": {}, "25-NSE": {}}
)

// Prefilter reports whether a filing merits the full flag pass: every
// current report (8-K) qualifies unconditionally, anything else must
// mention at least one corporate-event keyword. A filing that fails
// here is recorded with metadata only.
func Prefilter(form, body string) bool {
	return form == "8-K" || prefilterRe.MatchString(body)
}

// Classify computes every signal flag for a filing document. Text flags
// match against the raw body, markup included; deregistration and
// delisted key off the form type alone. All flags are always present
// in the result, false when unmatched.
func Classify(form, body string) map[string]bool {
	flags := make(map[string]bool, len(flagRules)+2)
	for _, r := range flagRules {
		flags[r.name] = r.re.MatchString(body)
	}
	_, dereg := deregistrationForms[form]
	flags["deregistration"] = dereg
	_, delisted := delistedForms[form]
	flags["delisted"] = delisted
	return flags
}

// FlagNames returns the full set of flags Classify emits, sorted. The
// exporter uses it for stable column ordering.
func FlagNames() []string {
	names := make([]string, 0, len(flagRules)+2)
	for _, r := range flagRules {
		names = append(names, r.name)
	}
	names = append(names, "deregistration", "delisted")
	sort.Strings(names)
	return names
}
