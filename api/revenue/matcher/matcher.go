package matcher

import (
	"context"
	"strings"

	"RoyaltyDesk/api/constants"
	"RoyaltyDesk/api/revenue/normalize"

	"github.com/jackc/pgx/v5/pgxpool"
)

// AliasIndex maps a normalized vendor sub-label to the owning vendor id.
// Normalization rule for both sides: trim whitespace, lowercase.
type AliasIndex map[string]string

// VendorAliases is one vendor's alias list as loaded from the store.
type VendorAliases struct {
	VendorID  string
	SubLabels []string
}

// BuildAliasIndex flattens every vendor's sub-labels into one lookup table.
func BuildAliasIndex(vendors []VendorAliases) AliasIndex {
	idx := make(AliasIndex)
	for _, v := range vendors {
		for _, label := range v.SubLabels {
			normalized := strings.ToLower(strings.TrimSpace(label))
			if normalized != "" {
				idx[normalized] = v.VendorID
			}
		}
	}
	return idx
}

// Resolve matches a raw vendor string against the index. The string is
// split on commas and the first token with a match wins; later tokens are
// ignored even if they would match a different vendor.
func (idx AliasIndex) Resolve(raw string) (string, bool) {
	for _, part := range strings.Split(raw, ",") {
		normalized := strings.ToLower(strings.TrimSpace(part))
		if vendorID, ok := idx[normalized]; ok {
			return vendorID, true
		}
	}
	return "", false
}

// MatchRecords resolves every normalized row's raw vendor name, setting the
// vendor reference and MATCHED status on a hit, UNMATCHED with no vendor
// otherwise.
func MatchRecords(rows []normalize.NormalizedRow, idx AliasIndex) []normalize.NormalizedRow {
	for i := range rows {
		if rows[i].RawVendorName == "" {
			rows[i].VendorID = ""
			rows[i].Status = constants.RecordUnmatched
			continue
		}
		if vendorID, ok := idx.Resolve(rows[i].RawVendorName); ok {
			rows[i].VendorID = vendorID
			rows[i].Status = constants.RecordMatched
		} else {
			rows[i].VendorID = ""
			rows[i].Status = constants.RecordUnmatched
		}
	}
	return rows
}

// LoadAliasIndex fetches all vendor sub-labels and builds the index.
func LoadAliasIndex(ctx context.Context, pgxPool *pgxpool.Pool) (AliasIndex, error) {
	rows, err := pgxPool.Query(ctx, `SELECT vendor_id, COALESCE(sub_labels, '{}') FROM mastervendor`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	vendors := []VendorAliases{}
	for rows.Next() {
		var v VendorAliases
		if err := rows.Scan(&v.VendorID, &v.SubLabels); err == nil {
			vendors = append(vendors, v)
		}
	}
	return BuildAliasIndex(vendors), nil
}
