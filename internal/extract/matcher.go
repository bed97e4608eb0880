package extract

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Matcher is one extraction strategy run over a parsed page. Matchers
// run in a fixed order; missing names the targets still unresolved, and
// strategies that scan the whole document may ignore it.
type Matcher interface {
	Name() string
	Match(doc *goquery.Document, missing map[string]struct{}) []Candidate
}

// rowMatcher scans two-cell table rows: <tr><td>Label</td><td>Value</td>.
type rowMatcher struct {
	tables Tables
}

func (m *rowMatcher) Name() string { return "table-rows" }

func (m *rowMatcher) Match(doc *goquery.Document, _ map[string]struct{}) []Candidate {
	var out []Candidate
	doc.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		cells := tr.Find("td")
		if cells.Length() != 2 {
			return
		}
		name, asOf, ok := m.tables.Canonicalize(cells.Eq(0).Text())
		if !ok {
			return
		}
		value := CanonText(cells.Eq(1).Text())
		if value == "" {
			return
		}
		out = append(out, Candidate{Name: name, Value: value, AsOf: asOf})
	})
	return out
}

// defListMatcher scans definition lists: <dl><dt>Label</dt><dd>Value</dd>.
type defListMatcher struct {
	tables Tables
}

func (m *defListMatcher) Name() string { return "definition-lists" }

func (m *defListMatcher) Match(doc *goquery.Document, _ map[string]struct{}) []Candidate {
	var out []Candidate
	doc.Find("dl").Each(func(_ int, dl *goquery.Selection) {
		dts := dl.Find("dt")
		dds := dl.Find("dd")
		n := dts.Length()
		if dds.Length() < n {
			n = dds.Length()
		}
		for i := 0; i < n; i++ {
			name, asOf, ok := m.tables.Canonicalize(dts.Eq(i).Text())
			if !ok {
				continue
			}
			value := CanonText(dds.Eq(i).Text())
			if value == "" {
				continue
			}
			out = append(out, Candidate{Name: name, Value: value, AsOf: asOf})
		}
	})
	return out
}

// regexMatcher is the fallback for metrics the structural scans missed.
// It finds a text node matching the metric's label pattern and recovers
// the value from the surrounding markup.
type regexMatcher struct {
	patterns map[string]*regexp.Regexp
	// order fixes the scan order so a run is reproducible.
	order []string
}

func (m *regexMatcher) Name() string { return "regex-fallback" }

func (m *regexMatcher) Match(doc *goquery.Document, missing map[string]struct{}) []Candidate {
	var out []Candidate
	for _, name := range m.order {
		if _, want := missing[name]; !want {
			continue
		}
		pat, ok := m.patterns[name]
		if !ok {
			continue
		}

		label := findLabelNode(doc, pat)
		if label == nil {
			continue
		}
		value := recoverValue(label, pat)
		if value == "" {
			continue
		}

		_, asOf := SplitLabelDate(nodeText(label))
		out = append(out, Candidate{Name: name, Value: value, AsOf: asOf})
	}
	return out
}

// findLabelNode returns the parent element of the first text node
// matching pat, in document order.
func findLabelNode(doc *goquery.Document, pat *regexp.Regexp) *html.Node {
	var found *html.Node
	var walk func(n *html.Node) bool
	walk = func(n *html.Node) bool {
		if n.Type == html.TextNode && pat.MatchString(n.Data) {
			found = n.Parent
			return found != nil
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if walk(c) {
				return true
			}
		}
		return false
	}
	for _, root := range doc.Nodes {
		if walk(root) {
			break
		}
	}
	return found
}

// recoverValue tries the fixed recovery order around the label element:
// sibling cell, second cell of the enclosing row, following definition
// value, then a bounded text lookahead.
func recoverValue(label *html.Node, pat *regexp.Regexp) string {
	if label.Type == html.ElementNode && (label.Data == "td" || label.Data == "th") {
		if sib := nextSiblingCell(label); sib != nil {
			if v := nodeText(sib); v != "" {
				return v
			}
		}
		if row := closestRow(label); row != nil {
			cells := childCells(row)
			if len(cells) >= 2 {
				if v := nodeText(cells[1]); v != "" {
					return v
				}
			}
		}
	}

	if label.Type == html.ElementNode && label.Data == "dt" {
		for sib := label.NextSibling; sib != nil; sib = sib.NextSibling {
			if sib.Type == html.ElementNode && sib.Data == "dd" {
				if v := nodeText(sib); v != "" {
					return v
				}
				break
			}
		}
	}

	return textLookahead(label, pat, 8)
}

// textLookahead walks forward in document order from the label for at
// most bound nodes, returning the first non-empty text that does not
// itself re-match the label pattern.
func textLookahead(label *html.Node, pat *regexp.Regexp, bound int) string {
	n := label
	for i := 0; i < bound; i++ {
		n = nextNode(n)
		if n == nil {
			return ""
		}
		if n.Type != html.TextNode {
			continue
		}
		v := CanonText(n.Data)
		if v != "" && !pat.MatchString(v) {
			return v
		}
	}
	return ""
}

// nextNode yields the document-order successor of n.
func nextNode(n *html.Node) *html.Node {
	if n.FirstChild != nil {
		return n.FirstChild
	}
	for ; n != nil; n = n.Parent {
		if n.NextSibling != nil {
			return n.NextSibling
		}
	}
	return nil
}

func nextSiblingCell(n *html.Node) *html.Node {
	for sib := n.NextSibling; sib != nil; sib = sib.NextSibling {
		if sib.Type == html.ElementNode && (sib.Data == "td" || sib.Data == "th") {
			return sib
		}
	}
	return nil
}

func closestRow(n *html.Node) *html.Node {
	for p := n.Parent; p != nil; p = p.Parent {
		if p.Type == html.ElementNode && p.Data == "tr" {
			return p
		}
	}
	return nil
}

func childCells(row *html.Node) []*html.Node {
	var cells []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && (c.Data == "td" || c.Data == "th") {
				cells = append(cells, c)
				continue
			}
			walk(c)
		}
	}
	walk(row)
	return cells
}

// nodeText collects the text content of a node subtree, joining text
// nodes with spaces and canonicalizing the result.
func nodeText(n *html.Node) string {
	var parts []string
	var walk func(*html.Node)
	walk = func(m *html.Node) {
		if m.Type == html.TextNode {
			parts = append(parts, m.Data)
			return
		}
		for c := m.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return CanonText(strings.Join(parts, " "))
}
