package sheetparser

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"RoyaltyDesk/api/constants"
	"RoyaltyDesk/internal/config"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
)

// ErrInvalidFile covers anything the decoders cannot turn into rows:
// corrupt workbooks, empty sheets, unreadable delimited text. Library
// internals are never surfaced past this sentinel.
var ErrInvalidFile = errors.New("invalid or empty file: no parseable rows found")

// ErrUnsupportedFormat is returned for extensions outside csv/xlsx/xls.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// MappedRow is one data row keyed by header text, enriched with the
// metadata harvested above the header. Columns preserves source order
// (metadata keys first, then header columns); Cells is the lookup.
type MappedRow struct {
	Columns []string
	Cells   map[string]string
}

// ParseFile decodes an uploaded statement into rows of cells. Blank rows
// are dropped so row indexes line up with what a human sees in the sheet.
func ParseFile(data []byte, filename string) ([][]string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	var rows [][]string
	var err error
	switch ext {
	case ".xlsx":
		rows, err = parseExcelFile(data)
	case ".xls":
		rows, err = parseXLSFile(data)
	case ".csv":
		rows, err = parseCSVFile(data)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFile, err)
	}
	rows = dropEmptyRows(rows)
	if len(rows) == 0 {
		return nil, ErrInvalidFile
	}
	return rows, nil
}

func parseExcelFile(data []byte) ([][]string, error) {
	xl, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer xl.Close()

	sheetName := xl.GetSheetName(0)
	if sheetName == "" {
		return nil, errors.New("no sheets found")
	}
	return xl.GetRows(sheetName)
}

func parseXLSFile(data []byte) ([][]string, error) {
	tmpFile, err := os.CreateTemp("", "statement-*.xls")
	if err != nil {
		return nil, err
	}
	defer os.Remove(tmpFile.Name())

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		return nil, err
	}
	tmpFile.Close()

	book, err := xls.Open(tmpFile.Name(), "utf-8")
	if err != nil {
		return nil, err
	}
	sheet := book.GetSheet(0)
	if sheet == nil {
		return nil, errors.New("no sheets found")
	}

	rows := [][]string{}
	for i := 0; i <= int(sheet.MaxRow); i++ {
		row := sheet.Row(i)
		if row == nil {
			rows = append(rows, []string{})
			continue
		}
		rowData := []string{}
		for j := 0; j < row.LastCol(); j++ {
			rowData = append(rowData, row.Col(j))
		}
		rows = append(rows, rowData)
	}
	return rows, nil
}

func parseCSVFile(data []byte) ([][]string, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true
	return r.ReadAll()
}

func dropEmptyRows(rows [][]string) [][]string {
	out := make([][]string, 0, len(rows))
	for _, row := range rows {
		if !IsEmptyRow(row) {
			out = append(out, row)
		}
	}
	return out
}

// IsEmptyRow reports whether every cell is blank.
func IsEmptyRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// RowScore counts how many header keywords occur in the row's
// concatenated, lowercased text.
func RowScore(row []string) int {
	rowString := strings.ToLower(strings.Join(row, " "))
	score := 0
	for _, keyword := range constants.HeaderKeywords {
		if strings.Contains(rowString, keyword) {
			score++
		}
	}
	return score
}

// ScanForHeader finds the most likely data-table header within the first
// HeaderScanDepth rows. Among rows scoring at least HeaderScoreThreshold it
// picks the last one reaching the running maximum, so metadata blocks above
// the real table lose to the header closest to the data. Returns -1 when no
// row qualifies.
func ScanForHeader(rows [][]string) int {
	bestRowIndex := -1
	maxScore := 0

	limit := len(rows)
	if limit > config.HeaderScanDepth {
		limit = config.HeaderScanDepth
	}

	for i := 0; i < limit; i++ {
		score := RowScore(rows[i])
		if score >= config.HeaderScoreThreshold && score >= maxScore {
			maxScore = score
			bestRowIndex = i
		}
	}
	return bestRowIndex
}

// ExtractMetadata scans the rows above the table header for secondary
// header/value pairs: a header-like row (score over threshold) followed by
// its value row. Value rows are skipped on the next iteration so they are
// never re-read as headers themselves. Returns the flat key-value map plus
// the keys in first-seen order.
func ExtractMetadata(rows [][]string) (map[string]string, []string) {
	metadata := make(map[string]string)
	order := []string{}

	for i := 0; i < len(rows)-1; i++ {
		if RowScore(rows[i]) < config.HeaderScoreThreshold {
			continue
		}
		keys := rows[i]
		values := rows[i+1]
		for j, key := range keys {
			k := strings.TrimSpace(key)
			if k == "" || j >= len(values) || values[j] == "" {
				continue
			}
			if _, seen := metadata[k]; !seen {
				order = append(order, k)
			}
			metadata[k] = values[j]
		}
		i++
	}
	return metadata, order
}

// MapRows turns raw rows into header-keyed row objects using the row at
// headerIdx as the header, merging the above-header metadata into every
// row. Row-level cells win over merged metadata on key collision.
func MapRows(rows [][]string, headerIdx int) []MappedRow {
	if headerIdx < 0 || headerIdx >= len(rows) {
		return nil
	}
	metadata, metaOrder := ExtractMetadata(rows[:headerIdx])
	header := rows[headerIdx]

	out := make([]MappedRow, 0, len(rows)-headerIdx-1)
	for _, row := range rows[headerIdx+1:] {
		cells := make(map[string]string, len(header)+len(metadata))
		columns := make([]string, 0, len(header)+len(metaOrder))

		for _, k := range metaOrder {
			cells[k] = metadata[k]
			columns = append(columns, k)
		}
		for j, col := range header {
			name := strings.TrimSpace(col)
			if name == "" {
				continue
			}
			val := ""
			if j < len(row) {
				val = row[j]
			}
			if _, seen := cells[name]; !seen {
				columns = append(columns, name)
			}
			cells[name] = val
		}
		out = append(out, MappedRow{Columns: columns, Cells: cells})
	}
	return out
}
