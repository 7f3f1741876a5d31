package normalize

import (
	"strings"
	"testing"

	"RoyaltyDesk/api/constants"
	"RoyaltyDesk/api/revenue/sheetparser"
)

func mappedRow(cells map[string]string, columns ...string) sheetparser.MappedRow {
	if len(columns) == 0 {
		for k := range cells {
			columns = append(columns, k)
		}
	}
	return sheetparser.MappedRow{Columns: columns, Cells: cells}
}

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in   string
		want float64
	}{
		{"1,963.99", 1963.99},
		{"€50", 50},
		{"$ 1,200.00", 1200},
		{"  42.5  ", 42.5},
		{"garbage", 0},
		{"", 0},
	}
	for _, c := range cases {
		if got := ParseAmount(c.in); got != c.want {
			t.Errorf("ParseAmount(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestNormalizeFixed(t *testing.T) {
	rows := []sheetparser.MappedRow{
		mappedRow(map[string]string{
			"Studio": "AcmeStudio", "Title": "Scene One", "Total": "100.00", "Currency": "USD",
		}, "Studio", "Title", "Total", "Currency"),
		mappedRow(map[string]string{
			"Studio": "", "Title": "separator", "Total": "", "Currency": "",
		}, "Studio", "Title", "Total", "Currency"),
		mappedRow(map[string]string{
			"Studio": "OtherStudio", "Title": "Scene Two", "Total": "€1,963.99", "Currency": "EUR",
		}, "Studio", "Title", "Total", "Currency"),
	}

	out, err := NormalizeFixed(rows, "AEBN")
	if err != nil {
		t.Fatalf("NormalizeFixed: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 rows after filtering, got %d", len(out))
	}
	if out[0].RawVendorName != "AcmeStudio" || out[0].GrossRevenue != 100 {
		t.Errorf("unexpected first row %+v", out[0])
	}
	if out[1].GrossRevenue != 1963.99 {
		t.Errorf("amount not cleaned: %v", out[1].GrossRevenue)
	}
	if out[0].Status != constants.RecordUnprocessed {
		t.Errorf("status = %q", out[0].Status)
	}
	// canonical columns never leak into metadata
	for _, k := range []string{"Studio", "Total", "Title"} {
		if _, ok := out[0].Metadata[k]; ok {
			t.Errorf("%s should not be in metadata", k)
		}
	}
	if out[0].Metadata["Currency"] != "USD" {
		t.Errorf("Currency missing from metadata: %v", out[0].Metadata)
	}
}

func TestNormalizeFixedMissingColumns(t *testing.T) {
	rows := []sheetparser.MappedRow{
		mappedRow(map[string]string{"Studio": "Acme", "Total": "1"}, "Studio", "Total"),
	}
	_, err := NormalizeFixed(rows, "AEBN")
	if err == nil {
		t.Fatal("expected missing columns error")
	}
	if !strings.Contains(err.Error(), "Title") {
		t.Errorf("error should name the missing column: %v", err)
	}
}

func TestNormalizeFixedAmountAliases(t *testing.T) {
	rows := []sheetparser.MappedRow{
		mappedRow(map[string]string{
			"Label": "Acme", "Title": "Scene", "Netsales (CC)": "25.00",
		}, "Label", "Title", "Netsales (CC)"),
	}
	out, err := NormalizeFixed(rows, "Velvet")
	if err != nil {
		t.Fatalf("alias column should satisfy the amount requirement: %v", err)
	}
	if out[0].GrossRevenue != 25 {
		t.Errorf("GrossRevenue = %v", out[0].GrossRevenue)
	}
}

func TestNormalizeFixedAmountAliasMissing(t *testing.T) {
	rows := []sheetparser.MappedRow{
		mappedRow(map[string]string{"Label": "Acme", "Title": "Scene"}, "Label", "Title"),
	}
	_, err := NormalizeFixed(rows, "Velvet")
	if err == nil {
		t.Fatal("expected error when no amount alias present")
	}
	if !strings.Contains(err.Error(), "One of:") {
		t.Errorf("error should list the aliases: %v", err)
	}
}

func TestNormalizeFixedTitleDefault(t *testing.T) {
	rows := []sheetparser.MappedRow{
		mappedRow(map[string]string{"Studio": "Acme", "Payouts, $": "10"}, "Studio", "Payouts, $"),
	}
	out, err := NormalizeFixed(rows, "SEXLIKEREAL")
	if err != nil {
		t.Fatalf("NormalizeFixed: %v", err)
	}
	if out[0].LineItemName != "N/A" {
		t.Errorf("title should default to N/A, got %q", out[0].LineItemName)
	}
}

func TestNormalizeFixedUnknownStrategy(t *testing.T) {
	_, err := NormalizeFixed(nil, "NOPE")
	if err == nil {
		t.Fatal("expected strategy error")
	}
	if !strings.Contains(err.Error(), "NOPE") {
		t.Errorf("error should name the platform: %v", err)
	}
}

func TestNormalizeMapped(t *testing.T) {
	mapping := map[string]string{
		constants.FieldRawVendorName: "Partner",
		constants.FieldGrossRevenue:  "Earnings",
		constants.FieldLineItemName:  "Video",
	}
	rows := []sheetparser.MappedRow{
		mappedRow(map[string]string{
			"Partner": "Acme", "Earnings": "99.5", "Video": "Clip", "Region": "EU",
		}, "Partner", "Earnings", "Video", "Region"),
		mappedRow(map[string]string{
			"Partner": "", "Earnings": "0", "Video": "", "Region": "",
		}, "Partner", "Earnings", "Video", "Region"),
	}
	out := NormalizeMapped(rows, mapping)
	if len(out) != 1 {
		t.Fatalf("empty row should be dropped, got %d rows", len(out))
	}
	got := out[0]
	if got.RawVendorName != "Acme" || got.GrossRevenue != 99.5 || got.LineItemName != "Clip" {
		t.Errorf("unexpected row %+v", got)
	}
	if got.Metadata["Region"] != "EU" {
		t.Errorf("unmapped column should land in metadata: %v", got.Metadata)
	}
	if _, ok := got.Metadata["Earnings"]; ok {
		t.Error("mapped column should not land in metadata")
	}
}

func TestNormalizeMappedKeepsZeroAmountWithVendor(t *testing.T) {
	mapping := map[string]string{
		constants.FieldRawVendorName: "Partner",
		constants.FieldGrossRevenue:  "Earnings",
	}
	rows := []sheetparser.MappedRow{
		mappedRow(map[string]string{"Partner": "Acme", "Earnings": "not-a-number"}, "Partner", "Earnings"),
	}
	out := NormalizeMapped(rows, mapping)
	if len(out) != 1 {
		t.Fatalf("row with a vendor should survive, got %d rows", len(out))
	}
	if out[0].GrossRevenue != 0 {
		t.Errorf("unparsable amount should degrade to 0, got %v", out[0].GrossRevenue)
	}
}
