package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/fundwatch/internal/config"
)

func TestTickerList_ArgsWin(t *testing.T) {
	tickers, err := tickerList([]string{"BCV", "XFLT"}, []string{"PDI"})
	require.NoError(t, err)
	assert.Equal(t, []string{"BCV", "XFLT"}, tickers)
}

func TestTickerList_ConfiguredFallback(t *testing.T) {
	tickers, err := tickerList(nil, []string{"PDI", "PTY"})
	require.NoError(t, err)
	assert.Equal(t, []string{"PDI", "PTY"}, tickers)
}

func TestTickerList_Empty(t *testing.T) {
	_, err := tickerList(nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no tickers")
}

func TestExportPath(t *testing.T) {
	old := cfg
	cfg = &config.Config{Export: config.ExportConfig{Dir: "/data/exports"}}
	t.Cleanup(func() { cfg = old })

	assert.Equal(t, "/data/exports/out.xlsx", exportPath("out.xlsx"))
	assert.Equal(t, "/tmp/abs.csv", exportPath("/tmp/abs.csv"))
}
