package classify

import "github.com/sells-group/fundwatch/internal/model"

// stateRule maps a predicate over flags to the state it produces.
type stateRule struct {
	state model.RiskState
	match func(flags map[string]bool) bool
}

// stateRules order the states by severity; the first satisfied rule
// wins. Realized outcomes outrank announced intent: a filing that is
// both delisted and bankrupt reads DELISTED.
var stateRules = []stateRule{
	{model.StateDelisted, flag("delisted")},
	{model.StateDeregistering, flag("deregistration")},
	{model.StateBankruptcy, flag("bankruptcy")},
	{model.StateMergerClosed, flag("deal_closed")},
	{model.StateAnnounced, anyFlag("deal_announced", "tender_offer", "going_private")},
	{model.StateLiquidation, flag("liquidation")},
	{model.StateDelistNotice, flag("delist_notice")},
}

func flag(name string) func(map[string]bool) bool {
	return func(flags map[string]bool) bool { return flags[name] }
}

func anyFlag(names ...string) func(map[string]bool) bool {
	return func(flags map[string]bool) bool {
		for _, n := range names {
			if flags[n] {
				return true
			}
		}
		return false
	}
}

// ReduceState collapses a filing's flags into its single most severe
// risk state. It is pure and evaluated once per filing; nil flags (an
// unclassified filing) reduce to StateNone.
func ReduceState(flags map[string]bool) model.RiskState {
	for _, r := range stateRules {
		if r.match(flags) {
			return r.state
		}
	}
	return model.StateNone
}
