package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFundRecordEmpty(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		record FundRecord
		want   bool
	}{
		{"nil fields", FundRecord{Ticker: "PDI"}, true},
		{"empty map", FundRecord{Ticker: "PDI", Fields: map[string]string{}}, true},
		{"one field", FundRecord{Ticker: "PDI", Fields: map[string]string{"Duration": "4.2"}}, false},
		{"error only", FundRecord{Ticker: "PDI", Err: "fetch failed"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.record.Empty())
		})
	}
}

func TestRiskStateValues(t *testing.T) {
	t.Parallel()

	tests := []struct {
		state RiskState
		want  string
	}{
		{StateNone, ""},
		{StateDelisted, "DELISTED"},
		{StateDeregistering, "DEREGISTERING"},
		{StateBankruptcy, "BANKRUPTCY"},
		{StateMergerClosed, "MERGER CLOSED"},
		{StateAnnounced, "TRANSACTION ANNOUNCED"},
		{StateLiquidation, "LIQUIDATION PLAN"},
		{StateDelistNotice, "DELIST NOTICE"},
	}

	for _, tt := range tests {
		t.Run(string(tt.state), func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, string(tt.state))
		})
	}
}

func TestRiskStateTerminal(t *testing.T) {
	t.Parallel()

	terminal := []RiskState{StateDelisted, StateMergerClosed, StateBankruptcy}
	for _, s := range terminal {
		assert.True(t, s.Terminal(), "state %q should be terminal", s)
	}

	open := []RiskState{StateNone, StateDeregistering, StateAnnounced, StateLiquidation, StateDelistNotice}
	for _, s := range open {
		assert.False(t, s.Terminal(), "state %q should not be terminal", s)
	}
}

func TestNewScanRun(t *testing.T) {
	t.Parallel()

	run := NewScanRun(ScanKindFunds, 12)

	require.NotEmpty(t, run.ID)
	assert.Equal(t, ScanKindFunds, run.Kind)
	assert.Equal(t, ScanStatusRunning, run.Status)
	assert.Equal(t, 12, run.Tickers)
	assert.False(t, run.StartedAt.IsZero())
	assert.Nil(t, run.FinishedAt)
}

func TestScanRunFinish(t *testing.T) {
	t.Parallel()

	t.Run("complete", func(t *testing.T) {
		t.Parallel()
		run := NewScanRun(ScanKindFilings, 5)
		run.Finish(4, 1, "")

		assert.Equal(t, ScanStatusComplete, run.Status)
		assert.Equal(t, 4, run.Succeeded)
		assert.Equal(t, 1, run.Failed)
		require.NotNil(t, run.FinishedAt)
		assert.Empty(t, run.Error)
	})

	t.Run("failed", func(t *testing.T) {
		t.Parallel()
		run := NewScanRun(ScanKindFilings, 5)
		run.Finish(0, 5, "resolver unavailable")

		assert.Equal(t, ScanStatusFailed, run.Status)
		assert.Equal(t, "resolver unavailable", run.Error)
		require.NotNil(t, run.FinishedAt)
	})
}
