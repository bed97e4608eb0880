package extract

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/fundwatch/internal/model"
)

// Extractor runs the matcher chain over fund statistics pages.
type Extractor struct {
	tables   Tables
	matchers []Matcher
}

// NewExtractor compiles the tables and builds the strategy chain:
// table rows, definition lists, then the regex fallback.
func NewExtractor(tables Tables) (*Extractor, error) {
	patterns := make(map[string]*regexp.Regexp, len(tables.Patterns))
	for name, expr := range tables.Patterns {
		re, err := regexp.Compile("(?i)" + expr)
		if err != nil {
			return nil, eris.Wrapf(err, "extract: compile pattern for %q", name)
		}
		patterns[name] = re
	}

	return &Extractor{
		tables: tables,
		matchers: []Matcher{
			&rowMatcher{tables: tables},
			&defListMatcher{tables: tables},
			&regexMatcher{patterns: patterns, order: tables.Targets},
		},
	}, nil
}

// Tables returns the tables the extractor was built with.
func (e *Extractor) Tables() Tables { return e.tables }

// Extract parses the document and returns one value per resolved
// metric. A metric missing from the page is absent from the map, never
// present with an empty value; an empty map is a valid result for a
// page that carries none of the targets.
func (e *Extractor) Extract(doc *model.RawDocument) (map[string]string, error) {
	parsed, err := goquery.NewDocumentFromReader(strings.NewReader(doc.Body))
	if err != nil {
		return nil, eris.Wrapf(err, "extract: parse %s", doc.URL)
	}

	var candidates []Candidate
	for _, m := range e.matchers {
		found := m.Match(parsed, e.missing(candidates))
		candidates = append(candidates, found...)
		zap.L().Debug("matcher pass",
			zap.String("matcher", m.Name()),
			zap.String("url", doc.URL),
			zap.Int("candidates", len(found)),
		)
	}

	return ResolveRecency(candidates), nil
}

// missing returns the target metrics no candidate has named yet.
func (e *Extractor) missing(candidates []Candidate) map[string]struct{} {
	missing := make(map[string]struct{}, len(e.tables.Targets))
	for _, name := range e.tables.Targets {
		missing[name] = struct{}{}
	}
	for _, c := range candidates {
		delete(missing, c.Name)
	}
	return missing
}
