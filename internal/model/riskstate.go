package model

// RiskState is the single tradeability risk label reduced from a
// filing's signal flags. The zero value means no risk signal.
type RiskState string

// Risk states in decreasing order of severity. The reducer in
// internal/classify picks the first state whose predicate matches, so
// a delisted fund stays DELISTED even when the same document also
// announces a merger.
const (
	StateNone          RiskState = ""
	StateDelisted      RiskState = "DELISTED"
	StateDeregistering RiskState = "DEREGISTERING"
	StateBankruptcy    RiskState = "BANKRUPTCY"
	StateMergerClosed  RiskState = "MERGER CLOSED"
	StateAnnounced     RiskState = "TRANSACTION ANNOUNCED"
	StateLiquidation   RiskState = "LIQUIDATION PLAN"
	StateDelistNotice  RiskState = "DELIST NOTICE"
)

// Terminal reports whether the state describes a fund that is past the
// point of trading on signal, i.e. the position should already be
// closed rather than monitored.
func (s RiskState) Terminal() bool {
	switch s {
	case StateDelisted, StateMergerClosed, StateBankruptcy:
		return true
	}
	return false
}
