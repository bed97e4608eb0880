// Package extract pulls canonical fund metrics out of statistics pages.
// Extraction is table-driven: a target set names the metrics wanted, an
// alias table folds label variants onto canonical names, and a pattern
// table backs the regex fallback for pages whose markup defeats the
// structural scan.
package extract

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Tables bundles the label tables that drive extraction.
type Tables struct {
	// Targets lists the canonical metric names to extract.
	Targets []string `yaml:"targets"`
	// Aliases maps normalized raw labels to canonical names.
	Aliases map[string]string `yaml:"aliases"`
	// Patterns maps canonical names to case-insensitive label regexes
	// used by the fallback scan.
	Patterns map[string]string `yaml:"patterns"`
	// WaitTexts lists metric labels whose appearance signals that a
	// client-rendered page has finished hydrating.
	WaitTexts []string `yaml:"wait_texts"`
}

// DefaultTables returns the built-in metric tables for closed-end fund
// statistics pages.
func DefaultTables() Tables {
	return Tables{
		Targets: []string{
			"UNII / Share",
			"Earnings / Share",
			"Current Distribution",
			"Earn Coverage",
			"Duration",
			"Maturity",
			"Relative Leverage Cost",
			"Number of Shares Outstanding",
			"Estimated Total Assets",
			"Total Leverage Ratio",
			"Average Discount (1 Yr)",
			"Distribution Rate based on Market Price",
			"Dividend Growth (3 Yr)",
			"Credit Rating (Rated Bonds Only)",
			"AMT",
			"Expense Ratio",
		},
		Aliases: map[string]string{
			"UNII per Share":     "UNII / Share",
			"UNII/Share":         "UNII / Share",
			"Earnings per Share": "Earnings / Share",
			"Earnings/Share":     "Earnings / Share",
			"Rel Lev Cost":       "Relative Leverage Cost",
			"Outstanding Shares": "Number of Shares Outstanding",
			"Total Leverage":     "Total Leverage Ratio",
			"Avg Discount (3Yr)": "Average Discount (1 Yr)",
			"Market Yield":       "Distribution Rate based on Market Price",
			"Div Growth (3yr)":   "Dividend Growth (3 Yr)",
			"Credit Rating":      "Credit Rating (Rated Bonds Only)",
		},
		Patterns: map[string]string{
			"UNII / Share":                 `\bUNII\s*/\s*Share\b`,
			"Earnings / Share":             `\bEarnings\s*/\s*Share\b`,
			"Current Distribution":         `\bCurrent\s+Distribution\b`,
			"Earn Coverage":                `\bEarn\s+Coverage\b`,
			"Duration":                     `\bDuration\b`,
			"Maturity":                     `\bMaturity\b`,
			"Relative Leverage Cost":       `\b(Relative\s+Leverage\s+Cost|Rel\s+Lev\s*\.?\s*Cost)\b`,
			"Number of Shares Outstanding": `\bNumber\s+of\s+Shares\s+Outstanding\b|\bOutstanding\s+Shares\b`,
			"Estimated Total Assets":       `\bEstimated\s+Total\s+Assets\b`,
			"Total Leverage Ratio":         `\bTotal\s+Leverage\s+Ratio\b|\bTotal\s+Leverage\b`,
			"Average Discount (1 Yr)":      `\bAverage\s+Discount\s*\(\s*1\s*Yr\s*\)\b|\bAverage\s+Discount\s*\(\s*3\s*Yr\s*\)`,
			"Distribution Rate based on Market Price": `\bDistribution\s+Rate\s+based\s+on\s+Market\s+Price\b|\bMarket\s+Yield\b`,
			"Dividend Growth (3 Yr)":                  `\bDividend\s+Growth\s*\(\s*3\s*Yr\s*\)\b|\bDiv\s+Growth\s*\(\s*3yr\s*\)`,
			"Credit Rating (Rated Bonds Only)":        `\bCredit\s+Rating\s*\(Rated\s+Bonds\s+Only\)\b|\bCredit\s+Rating\b|\(rbo\)`,
			"AMT":           `\bAMT\b`,
			"Expense Ratio": `\bExpense\s+Ratio\b`,
		},
		WaitTexts: []string{
			"Number of Shares Outstanding",
			"Expense Ratio",
			"Current Distribution",
			"Distribution Rate based on Market Price",
		},
	}
}

// LoadTables reads metric tables from a YAML file. Sections absent from
// the file keep their built-in defaults, so an overlay can, say, add one
// alias without restating every pattern. An empty path returns the
// defaults unchanged.
func LoadTables(path string) (Tables, error) {
	tables := DefaultTables()
	if path == "" {
		return tables, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Tables{}, eris.Wrapf(err, "extract: read tables %s", path)
	}

	// The YAML has a top-level "metrics" key
	var wrapper struct {
		Metrics Tables `yaml:"metrics"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return Tables{}, eris.Wrapf(err, "extract: parse tables %s", path)
	}

	overlay := wrapper.Metrics
	if len(overlay.Targets) > 0 {
		tables.Targets = overlay.Targets
	}
	for k, v := range overlay.Aliases {
		tables.Aliases[k] = v
	}
	for k, v := range overlay.Patterns {
		tables.Patterns[k] = v
	}
	if len(overlay.WaitTexts) > 0 {
		tables.WaitTexts = overlay.WaitTexts
	}

	return tables, nil
}
