package matcher

import (
	"testing"

	"RoyaltyDesk/api/constants"
	"RoyaltyDesk/api/revenue/normalize"
)

func testIndex() AliasIndex {
	return BuildAliasIndex([]VendorAliases{
		{VendorID: "v-acme", SubLabels: []string{"AcmeStudio", "  Acme Films  "}},
		{VendorID: "v-other", SubLabels: []string{"OtherLabel"}},
	})
}

func TestBuildAliasIndexNormalizes(t *testing.T) {
	idx := testIndex()
	if idx["acmestudio"] != "v-acme" {
		t.Errorf("lowercase key missing: %v", idx)
	}
	if idx["acme films"] != "v-acme" {
		t.Errorf("trimmed key missing: %v", idx)
	}
	if len(idx) != 3 {
		t.Errorf("expected 3 aliases, got %d", len(idx))
	}
}

func TestBuildAliasIndexSkipsEmptyLabels(t *testing.T) {
	idx := BuildAliasIndex([]VendorAliases{
		{VendorID: "v1", SubLabels: []string{"", "  "}},
	})
	if len(idx) != 0 {
		t.Errorf("blank labels should be skipped, got %v", idx)
	}
}

func TestResolveCaseInsensitive(t *testing.T) {
	idx := testIndex()
	vendorID, ok := idx.Resolve("ACMESTUDIO")
	if !ok || vendorID != "v-acme" {
		t.Errorf("Resolve(ACMESTUDIO) = %q, %v", vendorID, ok)
	}
}

func TestResolveFirstCommaTokenWins(t *testing.T) {
	idx := testIndex()
	vendorID, ok := idx.Resolve("AcmeStudio, OtherLabel")
	if !ok || vendorID != "v-acme" {
		t.Errorf("first matching token should win, got %q", vendorID)
	}
	// first token unknown, second matches
	vendorID, ok = idx.Resolve("UnknownTag, OtherLabel")
	if !ok || vendorID != "v-other" {
		t.Errorf("later token should match when earlier ones miss, got %q", vendorID)
	}
}

func TestResolveMiss(t *testing.T) {
	idx := testIndex()
	if _, ok := idx.Resolve("TotallyUnknown"); ok {
		t.Error("unknown label should not resolve")
	}
}

func TestMatchRecords(t *testing.T) {
	idx := testIndex()
	rows := []normalize.NormalizedRow{
		{RawVendorName: "AcmeStudio", Status: constants.RecordUnprocessed},
		{RawVendorName: "Nobody", Status: constants.RecordUnprocessed},
		{RawVendorName: "", Status: constants.RecordUnprocessed},
	}
	out := MatchRecords(rows, idx)

	if out[0].VendorID != "v-acme" || out[0].Status != constants.RecordMatched {
		t.Errorf("row 0 should match: %+v", out[0])
	}
	if out[1].VendorID != "" || out[1].Status != constants.RecordUnmatched {
		t.Errorf("row 1 should be unmatched: %+v", out[1])
	}
	if out[2].Status != constants.RecordUnmatched {
		t.Errorf("empty vendor should be unmatched: %+v", out[2])
	}
}
