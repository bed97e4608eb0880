// Package export writes scan results in the workbook and CSV formats
// the research desk consumes.
package export

import (
	"encoding/csv"
	"os"
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/sells-group/fundwatch/internal/classify"
	"github.com/sells-group/fundwatch/internal/model"
)

// filingIdentityColumns lead every filing export row.
var filingIdentityColumns = []string{
	"ticker",
	"cik",
	"form",
	"date",
	"accession",
	"primary_document",
}

// WriteFilingCSV writes filing records as CSV: identity columns, then
// one column per classifier flag in canonical order, then the reduced
// state and any per-row error. Unclassified rows leave their flag cells
// empty so they read differently from an explicit false.
func WriteFilingCSV(path string, records []model.FilingRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "export: create %s", path)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	flagCols := classify.FlagNames()

	header := append([]string{}, filingIdentityColumns...)
	header = append(header, flagCols...)
	header = append(header, "state", "error")
	if err := w.Write(header); err != nil {
		return eris.Wrap(err, "export: write filing header")
	}

	for _, r := range records {
		row := []string{r.Ticker, r.CIK, r.Form, r.Date, r.Accession, r.PrimaryDocument}
		for _, name := range flagCols {
			if !r.Classified {
				row = append(row, "")
				continue
			}
			row = append(row, strconv.FormatBool(r.Flags[name]))
		}
		row = append(row, string(r.State), r.Err)
		if err := w.Write(row); err != nil {
			return eris.Wrapf(err, "export: write filing row %s", r.Accession)
		}
	}

	return nil
}
