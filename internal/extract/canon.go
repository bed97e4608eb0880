package extract

import (
	"regexp"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

var (
	wsRe = regexp.MustCompile(`\s+`)

	// Trailing "(MM/DD/YYYY)" or "(M/D/YY)" suffix on a label. The date
	// is the as-of date of a periodically republished metric.
	labelDateRe = regexp.MustCompile(`\s*\((\d{1,2}/\d{1,2}/(?:\d{4}|\d{2}))\)\s*$`)
)

// CanonText NFKC-normalizes s, trims it, and collapses whitespace runs
// to single spaces. Pages mix non-breaking spaces and fancy slashes
// into labels; normalizing first keeps the tables exact-match.
func CanonText(s string) string {
	s = strings.TrimSpace(norm.NFKC.String(s))
	return wsRe.ReplaceAllString(s, " ")
}

// SplitLabelDate strips a trailing parenthesized as-of date from a
// label, returning the bare label and the parsed date. Labels without a
// parsable date suffix return the zero time, which orders before every
// real date during recency resolution.
func SplitLabelDate(label string) (string, time.Time) {
	loc := labelDateRe.FindStringSubmatchIndex(label)
	if loc == nil {
		return label, time.Time{}
	}

	bare := strings.TrimSpace(label[:loc[0]])
	raw := label[loc[2]:loc[3]]
	for _, layout := range []string{"1/2/2006", "1/2/06"} {
		if ts, err := time.Parse(layout, raw); err == nil {
			return bare, ts
		}
	}
	return bare, time.Time{}
}

// Canonicalize normalizes a raw label and resolves it to a canonical
// metric name. An exact target match wins over an alias lookup, and an
// alias only resolves when it points at a real target. ok is false when
// the label names no known metric.
func (t Tables) Canonicalize(raw string) (name string, asOf time.Time, ok bool) {
	label, asOf := SplitLabelDate(CanonText(raw))
	label = CanonText(label)

	if t.isTarget(label) {
		return label, asOf, true
	}
	if canon, found := t.Aliases[label]; found && t.isTarget(canon) {
		return canon, asOf, true
	}
	return "", asOf, false
}

func (t Tables) isTarget(name string) bool {
	for _, target := range t.Targets {
		if name == target {
			return true
		}
	}
	return false
}
