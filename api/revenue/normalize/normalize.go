package normalize

import (
	"fmt"
	"strconv"
	"strings"

	"RoyaltyDesk/api/constants"
	"RoyaltyDesk/api/revenue/sheetparser"
)

// NormalizedRow is the canonical line item produced from one source row.
// VendorID stays empty until the matcher resolves RawVendorName.
type NormalizedRow struct {
	RawVendorName string
	GrossRevenue  float64
	LineItemName  string
	Metadata      map[string]string
	VendorID      string
	Status        string
}

// MissingColumnsError lists the required columns absent from an upload so
// the caller can fix the file or supply a mapping.
type MissingColumnsError struct {
	Platform string
	Columns  []string
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf(constants.ErrMissingRequiredColumns, e.Platform, strings.Join(e.Columns, ", "))
}

// NoStrategyError signals an upload for a platform with no fixed strategy
// and no mapping supplied.
type NoStrategyError struct {
	Platform string
}

func (e *NoStrategyError) Error() string {
	return fmt.Sprintf(constants.ErrNoStrategyConfigured, e.Platform)
}

// NormalizeFixed applies a platform's fixed strategy: validates required
// columns against the first row, resolves the amount column among its
// aliases, then extracts canonical fields greedily. Rows missing either the
// vendor cell or the amount cell are blank/garbage separators and dropped.
func NormalizeFixed(rows []sheetparser.MappedRow, strategyKey string) ([]NormalizedRow, error) {
	strategy, ok := PlatformStrategies[strategyKey]
	if !ok {
		return nil, &NoStrategyError{Platform: strategyKey}
	}
	if len(rows) == 0 {
		return []NormalizedRow{}, nil
	}

	first := rows[0]
	missing := []string{}
	for _, col := range strategy.RequiredCols {
		if _, ok := first.Cells[col]; !ok {
			missing = append(missing, col)
		}
	}

	amountCol := ""
	for _, col := range strategy.AmountCols {
		if _, ok := first.Cells[col]; ok {
			amountCol = col
			break
		}
	}
	if amountCol == "" {
		if len(strategy.AmountCols) == 1 {
			missing = append(missing, strategy.AmountCols[0])
		} else {
			missing = append(missing, "One of: "+strings.Join(strategy.AmountCols, ", "))
		}
	}

	if len(missing) > 0 {
		return nil, &MissingColumnsError{Platform: strategyKey, Columns: missing}
	}

	out := make([]NormalizedRow, 0, len(rows))
	for _, row := range rows {
		vendor := strings.TrimSpace(row.Cells[strategy.VendorCol])
		amount := strings.TrimSpace(row.Cells[amountCol])
		if vendor == "" || amount == "" {
			continue
		}

		metadata := make(map[string]string)
		for _, col := range row.Columns {
			if col == strategy.VendorCol || col == amountCol || col == strategy.TitleCol {
				continue
			}
			metadata[col] = row.Cells[col]
		}

		title := "N/A"
		if strategy.TitleCol != "" {
			title = row.Cells[strategy.TitleCol]
		}

		out = append(out, NormalizedRow{
			RawVendorName: row.Cells[strategy.VendorCol],
			GrossRevenue:  ParseAmount(amount),
			LineItemName:  title,
			Metadata:      metadata,
			Status:        constants.RecordUnprocessed,
		})
	}
	return out, nil
}

// NormalizeMapped applies a caller-supplied mapping of canonical field name
// to source column name. Every source column is routed by inverse lookup:
// mapped columns feed the canonical fields, everything else lands in
// metadata. Rows with neither a vendor name nor a nonzero amount are
// dropped.
func NormalizeMapped(rows []sheetparser.MappedRow, mapping map[string]string) []NormalizedRow {
	// invert {field: column} once
	fieldByColumn := make(map[string]string, len(mapping))
	for field, col := range mapping {
		fieldByColumn[col] = field
	}

	out := make([]NormalizedRow, 0, len(rows))
	for _, row := range rows {
		metadata := make(map[string]string)
		var gross float64
		var title, vendor string

		for _, col := range row.Columns {
			val := row.Cells[col]
			switch fieldByColumn[col] {
			case constants.FieldGrossRevenue:
				gross = parsePlainNumber(val)
			case constants.FieldLineItemName:
				title = val
			case constants.FieldRawVendorName:
				vendor = val
			default:
				metadata[col] = val
			}
		}

		if strings.TrimSpace(vendor) == "" && gross == 0 {
			continue
		}

		out = append(out, NormalizedRow{
			RawVendorName: vendor,
			GrossRevenue:  gross,
			LineItemName:  title,
			Metadata:      metadata,
			Status:        constants.RecordUnprocessed,
		})
	}
	return out
}

var amountCleaner = strings.NewReplacer("€", "", "$", "", ",", "", " ", "", "\t", "")

// ParseAmount turns a currency-formatted cell into a number. Currency
// symbols, thousands separators and whitespace are stripped; anything still
// unparsable degrades to zero so one malformed cell never blocks a file.
func ParseAmount(value string) float64 {
	cleaned := strings.TrimSpace(amountCleaner.Replace(value))
	f, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0
	}
	return f
}

func parsePlainNumber(value string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0
	}
	return f
}
