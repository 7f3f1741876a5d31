package sheetparser

import (
	"strings"
	"testing"
)

func TestScanForHeaderSkipsMetadataBlock(t *testing.T) {
	rows := [][]string{
		{"Payment Period", "Payment Date"},
		{"2024-01", "2024-02-15"},
		{""},
		{"Studio", "Title", "Payouts, $"},
		{"AcmeStudio", "Some Scene", "120.50"},
	}
	got := ScanForHeader(rows)
	if got != 3 {
		t.Fatalf("expected header at row 3, got %d", got)
	}
}

func TestScanForHeaderNoCandidate(t *testing.T) {
	rows := [][]string{
		{"foo", "bar"},
		{"1", "2"},
	}
	if got := ScanForHeader(rows); got != -1 {
		t.Fatalf("expected -1, got %d", got)
	}
}

func TestScanForHeaderLastMaxWins(t *testing.T) {
	// two rows tie on score, the one closer to the data wins
	rows := [][]string{
		{"Studio", "Title"},
		{"ignored", "ignored"},
		{"Studio", "Title"},
		{"AcmeStudio", "Scene"},
	}
	if got := ScanForHeader(rows); got != 2 {
		t.Fatalf("expected header at row 2, got %d", got)
	}
}

func TestRowScore(t *testing.T) {
	if got := RowScore([]string{"Studio", "Title", "Payouts, $"}); got < 3 {
		t.Fatalf("expected score >= 3, got %d", got)
	}
	if got := RowScore([]string{"foo", "bar"}); got != 0 {
		t.Fatalf("expected score 0, got %d", got)
	}
}

func TestExtractMetadata(t *testing.T) {
	rows := [][]string{
		{"Payment Period", "Payment Date"},
		{"2024-01", "2024-02-15"},
		{"unrelated"},
	}
	metadata, order := ExtractMetadata(rows)
	if metadata["Payment Period"] != "2024-01" {
		t.Errorf("Payment Period = %q", metadata["Payment Period"])
	}
	if metadata["Payment Date"] != "2024-02-15" {
		t.Errorf("Payment Date = %q", metadata["Payment Date"])
	}
	if len(order) != 2 || order[0] != "Payment Period" {
		t.Errorf("unexpected key order %v", order)
	}
}

func TestMapRowsMergesMetadata(t *testing.T) {
	rows := [][]string{
		{"Payment Period", "Payment Date"},
		{"2024-01", "2024-02-15"},
		{"Studio", "Title", "Total"},
		{"AcmeStudio", "Scene One", "100.00"},
		{"OtherStudio", "Scene Two", "50.00"},
	}
	mapped := MapRows(rows, 2)
	if len(mapped) != 2 {
		t.Fatalf("expected 2 mapped rows, got %d", len(mapped))
	}
	first := mapped[0]
	if first.Cells["Studio"] != "AcmeStudio" {
		t.Errorf("Studio = %q", first.Cells["Studio"])
	}
	if first.Cells["Payment Period"] != "2024-01" {
		t.Errorf("metadata not merged: %v", first.Cells)
	}
	// metadata keys come before header columns
	if first.Columns[0] != "Payment Period" {
		t.Errorf("unexpected column order %v", first.Columns)
	}
}

func TestMapRowsRowCellsWinOverMetadata(t *testing.T) {
	rows := [][]string{
		{"Studio", "Currency"},
		{"meta-studio", "USD"},
		{"Studio", "Title", "Total"},
		{"RealStudio", "Scene", "10"},
	}
	mapped := MapRows(rows, 2)
	if len(mapped) != 1 {
		t.Fatalf("expected 1 row, got %d", len(mapped))
	}
	if mapped[0].Cells["Studio"] != "RealStudio" {
		t.Errorf("row cell should win over metadata, got %q", mapped[0].Cells["Studio"])
	}
}

func TestParseFileCSV(t *testing.T) {
	csvData := "Studio,Title,Total\nAcmeStudio,Scene,100.00\n\nOther,Scene2,50\n"
	rows, err := ParseFile([]byte(csvData), "statement.csv")
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	// blank row is dropped
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	if rows[1][0] != "AcmeStudio" {
		t.Errorf("rows[1][0] = %q", rows[1][0])
	}
}

func TestParseFileRaggedCSV(t *testing.T) {
	csvData := "Studio,Title,Total\nAcmeStudio,Scene\n"
	if _, err := ParseFile([]byte(csvData), "ragged.csv"); err != nil {
		t.Fatalf("ragged rows should parse, got %v", err)
	}
}

func TestParseFileUnsupportedExtension(t *testing.T) {
	_, err := ParseFile([]byte("whatever"), "statement.pdf")
	if err == nil || !strings.Contains(err.Error(), "unsupported") {
		t.Fatalf("expected unsupported format error, got %v", err)
	}
}

func TestParseFileEmpty(t *testing.T) {
	_, err := ParseFile([]byte("\n\n"), "empty.csv")
	if err == nil {
		t.Fatal("expected error for empty file")
	}
}

func TestIsEmptyRow(t *testing.T) {
	if !IsEmptyRow([]string{"", "  ", "\t"}) {
		t.Error("whitespace row should be empty")
	}
	if IsEmptyRow([]string{"", "x"}) {
		t.Error("row with content should not be empty")
	}
}
