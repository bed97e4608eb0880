package export

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/fundwatch/internal/model"
)

var fundTargets = []string{"Premium/Discount", "NAV", "Expense Ratio"}

func fundRecords() []model.FundRecord {
	return []model.FundRecord{
		{
			Ticker: "BCV",
			Fields: map[string]string{
				"NAV":              "22.18",
				"Premium/Discount": "-12.3%",
			},
		},
		{Ticker: "GAB", Err: "page structure not recognized"},
		{
			Ticker: "XFLT",
			Fields: map[string]string{"Expense Ratio": "1.02%"},
		},
	}
}

func sheetRows(t *testing.T, sheet *xlsx.Sheet) [][]string {
	t.Helper()
	var rows [][]string
	for _, row := range sheet.Rows {
		var cells []string
		for _, cell := range row.Cells {
			cells = append(cells, cell.String())
		}
		rows = append(rows, cells)
	}
	return rows
}

func TestWriteFundWorkbook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "funds.xlsx")
	require.NoError(t, WriteFundWorkbook(path, fundRecords(), fundTargets))

	wb, err := xlsx.OpenFile(path)
	require.NoError(t, err)

	success, ok := wb.Sheet["Success"]
	require.True(t, ok)
	rows := sheetRows(t, success)
	require.Len(t, rows, 3)

	// Metric columns are sorted for a stable layout.
	assert.Equal(t, []string{"Ticker", "Expense Ratio", "NAV", "Premium/Discount", "Error"}, rows[0])
	assert.Equal(t, []string{"BCV", "", "22.18", "-12.3%", ""}, rows[1])
	assert.Equal(t, []string{"XFLT", "1.02%", "", "", ""}, rows[2])

	failed, ok := wb.Sheet["Failed"]
	require.True(t, ok)
	rows = sheetRows(t, failed)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"Ticker", "Error"}, rows[0])
	assert.Equal(t, []string{"GAB", "page structure not recognized"}, rows[1])
}

func TestWriteFundWorkbookAllFailed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "funds.xlsx")
	records := []model.FundRecord{{Ticker: "BCV", Err: "gone"}}
	require.NoError(t, WriteFundWorkbook(path, records, fundTargets))

	wb, err := xlsx.OpenFile(path)
	require.NoError(t, err)
	assert.Len(t, sheetRows(t, wb.Sheet["Success"]), 1, "header only")
	assert.Len(t, sheetRows(t, wb.Sheet["Failed"]), 2)
}

func TestWriteFundCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "funds.csv")
	require.NoError(t, WriteFundCSV(path, fundRecords(), fundTargets))

	rows := readCSV(t, path)
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"Ticker", "Expense Ratio", "NAV", "Premium/Discount", "Error"}, rows[0])
	assert.Equal(t, []string{"BCV", "", "22.18", "-12.3%", ""}, rows[1])
	assert.Equal(t, []string{"GAB", "", "", "", "page structure not recognized"}, rows[2])
	assert.Equal(t, []string{"XFLT", "1.02%", "", "", ""}, rows[3])
}

func TestSortedTargetsCopies(t *testing.T) {
	targets := []string{"b", "a", "c"}
	cols := sortedTargets(targets)
	assert.Equal(t, []string{"a", "b", "c"}, cols)
	assert.Equal(t, []string{"b", "a", "c"}, targets, "caller's slice untouched")
}
