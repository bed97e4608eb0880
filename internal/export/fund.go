package export

import (
	"encoding/csv"
	"os"
	"sort"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/fundwatch/internal/model"
)

// WriteFundWorkbook writes fund records to an XLSX workbook with two
// sheets: "Success" holds every record that extracted at least one
// metric (Ticker, one column per target, Error), "Failed" holds the
// tickers that produced nothing and why.
func WriteFundWorkbook(path string, records []model.FundRecord, targets []string) error {
	cols := sortedTargets(targets)

	wb := xlsx.NewFile()

	success, err := wb.AddSheet("Success")
	if err != nil {
		return eris.Wrap(err, "export: add success sheet")
	}
	writeRow(success, fundHeader(cols))

	failed, err := wb.AddSheet("Failed")
	if err != nil {
		return eris.Wrap(err, "export: add failed sheet")
	}
	writeRow(failed, []string{"Ticker", "Error"})

	for _, r := range records {
		if r.Empty() {
			writeRow(failed, []string{r.Ticker, r.Err})
			continue
		}
		writeRow(success, fundRow(r, cols))
	}

	if err := wb.Save(path); err != nil {
		return eris.Wrapf(err, "export: save workbook %s", path)
	}
	return nil
}

// WriteFundCSV is the flat variant: every record in one table, failures
// distinguished by an empty metric row and a populated Error column.
func WriteFundCSV(path string, records []model.FundRecord, targets []string) error {
	cols := sortedTargets(targets)

	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "export: create %s", path)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write(fundHeader(cols)); err != nil {
		return eris.Wrap(err, "export: write fund header")
	}
	for _, r := range records {
		if err := w.Write(fundRow(r, cols)); err != nil {
			return eris.Wrapf(err, "export: write fund row %s", r.Ticker)
		}
	}
	return nil
}

func fundHeader(cols []string) []string {
	header := append([]string{"Ticker"}, cols...)
	return append(header, "Error")
}

func fundRow(r model.FundRecord, cols []string) []string {
	row := make([]string, 0, len(cols)+2)
	row = append(row, r.Ticker)
	for _, c := range cols {
		row = append(row, r.Fields[c])
	}
	return append(row, r.Err)
}

func sortedTargets(targets []string) []string {
	cols := append([]string{}, targets...)
	sort.Strings(cols)
	return cols
}

func writeRow(sheet *xlsx.Sheet, values []string) {
	row := sheet.AddRow()
	for _, v := range values {
		row.AddCell().Value = v
	}
}
