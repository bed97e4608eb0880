package extract

import "time"

// Candidate is one observed (label, value) pair before recency
// resolution. AsOf is the date embedded in the label, or the zero time
// when the label carried none.
type Candidate struct {
	Name  string
	Value string
	AsOf  time.Time
}

// ResolveRecency reduces candidates to one value per metric. The
// candidate with the greatest as-of date wins; undated candidates carry
// the zero time, so any dated sibling supersedes them while a lone
// undated candidate still counts. Equal dates keep the first-seen
// candidate.
func ResolveRecency(candidates []Candidate) map[string]string {
	best := make(map[string]Candidate)
	for _, c := range candidates {
		cur, seen := best[c.Name]
		if !seen || c.AsOf.After(cur.AsOf) {
			best[c.Name] = c
		}
	}

	out := make(map[string]string, len(best))
	for name, c := range best {
		out[name] = c.Value
	}
	return out
}
