package payout

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestGroupExportRecords(t *testing.T) {
	jan := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	feb := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

	records := []exportRecord{
		{PlatformName: "AEBN", PeriodStart: jan, LineItemName: "A", Gross: d("100"), Commission: d("35"), Net: d("65"),
			Metadata: map[string]string{"Currency": "USD"}},
		{PlatformName: "AEBN", PeriodStart: jan, LineItemName: "B", Gross: d("50"), Commission: d("17.5"), Net: d("32.5"),
			Metadata: map[string]string{"Region": "EU"}},
		{PlatformName: "AEBN", PeriodStart: feb, LineItemName: "C", Gross: d("10"), Commission: d("3.5"), Net: d("6.5"),
			Metadata: map[string]string{}},
	}

	groups := groupExportRecords(records)
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(groups))
	}

	first := groups[0]
	if first.Month != "2024-01" {
		t.Errorf("Month = %q", first.Month)
	}
	if !first.Gross.Equal(d("150")) || !first.Net.Equal(d("97.5")) {
		t.Errorf("subtotals wrong: gross %s net %s", first.Gross, first.Net)
	}
	if len(first.Records) != 2 {
		t.Errorf("expected 2 records in january group, got %d", len(first.Records))
	}
	// metadata keys are the union across the group, sorted
	if len(first.MetaKeys) != 2 || first.MetaKeys[0] != "Currency" || first.MetaKeys[1] != "Region" {
		t.Errorf("MetaKeys = %v", first.MetaKeys)
	}

	second := groups[1]
	if second.Month != "2024-02" || !second.Gross.Equal(d("10")) {
		t.Errorf("february group wrong: %+v", second)
	}
	if len(second.MetaKeys) != 0 {
		t.Errorf("february group should have no metadata keys, got %v", second.MetaKeys)
	}
}
