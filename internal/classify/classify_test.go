package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrefilter(t *testing.T) {
	tests := []struct {
		name string
		form string
		body string
		want bool
	}{
		{"8-K always passes", "8-K", "<html>routine earnings release</html>", true},
		{"8-K passes with empty body", "8-K", "", true},
		{"merger keyword", "S-4", "proposed Merger of the Fund", true},
		{"liquidation stem", "497", "the Board approved liquidating distributions", true},
		{"deregistration stem", "6-K", "intent to deregister the shares", true},
		{"chapter 11", "25", "filed for chapter 11 protection", true},
		{"keyword is case-insensitive", "S-4", "AGREEMENT AND PLAN OF MERGER", true},
		{"bland non-8-K fails", "S-4", "annual shareholder letter", false},
		{"empty non-8-K fails", "497", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Prefilter(tt.form, tt.body))
		})
	}
}

func TestClassifyTextFlags(t *testing.T) {
	tests := []struct {
		name string
		body string
		flag string
	}{
		{"merger agreement", "entered into an Agreement and Plan of Merger dated", "deal_announced"},
		{"plan of merger", "approved the plan of merger", "deal_announced"},
		{"tender offer", "commencement of a cash Tender Offer for all shares", "tender_offer"},
		{"14D-9 reference", "filed a Schedule 14D-9 with the Commission", "tender_offer"},
		{"going private", "a going private transaction under Rule 13e-3", "going_private"},
		{"goingprivate joined", "the goingprivate proposal", "going_private"},
		{"13E-3 reference", "Schedule 13E-3 Transaction Statement", "going_private"},
		{"plan of liquidation", "adopted a Plan of Liquidation for the Fund", "liquidation"},
		{"plan of dissolution", "approved the plan of dissolution", "liquidation"},
		{"liquidat stem", "intends to liquidate its portfolio", "liquidation"},
		{"item 1.03", "Item 1.03 Bankruptcy or Receivership", "bankruptcy"},
		{"item1.03 no space", "Item1.03 Bankruptcy", "bankruptcy"},
		{"chapter 11", "voluntary petition under Chapter 11", "bankruptcy"},
		{"receivership", "placed into receivership", "bankruptcy"},
		{"item 3.01", "Item 3.01 Notice of Delisting", "delist_notice"},
		{"delist stem", "received a delisting determination from NYSE", "delist_notice"},
		{"item 2.01", "Item 2.01 Completion of Acquisition or Disposition", "deal_closed"},
		{"completion of the merger", "announced the Completion of the Merger", "deal_closed"},
		{"completion of merger", "completion of merger with Parent", "deal_closed"},
		{"closing of the merger", "upon the closing of the merger", "deal_closed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flags := Classify("8-K", tt.body)
			assert.True(t, flags[tt.flag], "body %q should set %s", tt.body, tt.flag)
		})
	}
}

func TestClassifyFormFlags(t *testing.T) {
	for _, form := range []string{"15-12B", "15-12G", "15-15D"} {
		flags := Classify(form, "")
		assert.True(t, flags["deregistration"], "form %s sets deregistration", form)
		assert.False(t, flags["delisted"])
	}

	for _, form := range []string{"25", "25-NSE"} {
		flags := Classify(form, "")
		assert.True(t, flags["delisted"], "form %s sets delisted", form)
		assert.False(t, flags["deregistration"])
	}

	flags := Classify("8-K", "")
	assert.False(t, flags["deregistration"])
	assert.False(t, flags["delisted"])
}

func TestClassifyAnnouncedNotClosed(t *testing.T) {
	// An S-4 announcing a merger has a definitive agreement but no
	// closing language.
	body := "<html><body>The parties entered into an Agreement and Plan of Merger.</body></html>"
	flags := Classify("S-4", body)

	assert.True(t, flags["deal_announced"])
	assert.False(t, flags["deal_closed"])
	assert.False(t, flags["delisted"])
	assert.False(t, flags["deregistration"])
}

func TestClassifyAlwaysEmitsAllFlags(t *testing.T) {
	flags := Classify("8-K", "nothing of interest")
	assert.Len(t, flags, 9)
	for name, v := range flags {
		assert.False(t, v, "flag %s should be false for a bland body", name)
	}
}

func TestClassifyMatchesMarkup(t *testing.T) {
	// Flags match the raw document, tags and all. No HTML parsing or
	// entity decoding happens before the patterns run.
	body := `<div class="header">Item 2.01</div><p>Completion of the Merger</p>`
	flags := Classify("8-K", body)
	assert.True(t, flags["deal_closed"])

	// An undecoded entity between "Item" and the number defeats the
	// item pattern.
	entity := `<div>Item&nbsp;1.03</div>`
	flags = Classify("8-K", entity)
	assert.False(t, flags["bankruptcy"])
}

func TestFlagNames(t *testing.T) {
	want := []string{
		"bankruptcy",
		"deal_announced",
		"deal_closed",
		"delist_notice",
		"delisted",
		"deregistration",
		"going_private",
		"liquidation",
		"tender_offer",
	}
	assert.Equal(t, want, FlagNames())
}
