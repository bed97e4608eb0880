package export

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/fundwatch/internal/model"
)

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestWriteFilingCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.csv")

	records := []model.FilingRecord{
		{
			Ticker: "BCV", CIK: "0001069157", Form: "8-K", Date: "2026-08-01",
			Accession: "acc-1", PrimaryDocument: "doc1.htm",
			Classified: true,
			Flags: map[string]bool{
				"bankruptcy": false, "deal_announced": true, "deal_closed": false,
				"delist_notice": false, "delisted": false, "deregistration": false,
				"going_private": false, "liquidation": false, "tender_offer": true,
			},
			State: model.StateAnnounced,
		},
		{
			// Never passed the pre-filter: metadata only.
			Ticker: "GAB", CIK: "0000030125", Form: "497", Date: "2026-07-15",
			Accession: "acc-2", PrimaryDocument: "doc2.htm",
			State: model.StateNone,
		},
		{
			Ticker: "XFLT", CIK: "0001710680", Form: "8-K", Date: "2026-07-01",
			Accession: "acc-3", PrimaryDocument: "doc3.htm",
			Err: "fetch document: 503",
		},
	}

	require.NoError(t, WriteFilingCSV(path, records))
	rows := readCSV(t, path)
	require.Len(t, rows, 4)

	wantHeader := []string{
		"ticker", "cik", "form", "date", "accession", "primary_document",
		"bankruptcy", "deal_announced", "deal_closed", "delist_notice",
		"delisted", "deregistration", "going_private", "liquidation",
		"tender_offer", "state", "error",
	}
	assert.Equal(t, wantHeader, rows[0])

	assert.Equal(t, []string{
		"BCV", "0001069157", "8-K", "2026-08-01", "acc-1", "doc1.htm",
		"false", "true", "false", "false", "false", "false", "false", "false",
		"true", "TRANSACTION ANNOUNCED", "",
	}, rows[1])

	// Unclassified rows leave flag cells empty rather than false.
	assert.Equal(t, []string{
		"GAB", "0000030125", "497", "2026-07-15", "acc-2", "doc2.htm",
		"", "", "", "", "", "", "", "", "", "", "",
	}, rows[2])

	assert.Equal(t, "fetch document: 503", rows[3][16])
}

func TestWriteFilingCSVEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.csv")
	require.NoError(t, WriteFilingCSV(path, nil))

	rows := readCSV(t, path)
	require.Len(t, rows, 1, "header only")
	assert.Equal(t, "ticker", rows[0][0])
	assert.Equal(t, "error", rows[0][len(rows[0])-1])
}

func TestWriteFilingCSVCreateError(t *testing.T) {
	err := WriteFilingCSV(filepath.Join(t.TempDir(), "missing", "events.csv"), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "export: create")
}
