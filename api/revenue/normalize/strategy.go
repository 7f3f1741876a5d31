package normalize

// Strategy is a fixed per-platform declaration of which columns hold the
// canonical fields. AmountCols supports aliases; the first one present in
// the file wins. HeaderRow pins the header for platforms whose layout never
// moves; -1 means auto-detect.
type Strategy struct {
	VendorCol    string
	AmountCols   []string
	TitleCol     string
	RequiredCols []string
	HeaderRow    int
}

// PlatformStrategies maps a platform's strategy key to its fixed column
// layout.
var PlatformStrategies = map[string]Strategy{
	"AEBN": {
		VendorCol:    "Studio",
		AmountCols:   []string{"Total"},
		TitleCol:     "Title",
		RequiredCols: []string{"Studio", "Total", "Title"},
		HeaderRow:    -1,
	},
	"AVE": {
		VendorCol:    "Studio",
		AmountCols:   []string{"Total"},
		TitleCol:     "Title",
		RequiredCols: []string{"Studio", "Total", "Title"},
		HeaderRow:    18,
	},
	"SEXLIKEREAL": {
		VendorCol:    "Studio",
		AmountCols:   []string{"Payouts, $"},
		RequiredCols: []string{"Studio", "Payouts, $"},
		HeaderRow:    3,
	},
	"Velvet": {
		VendorCol:  "Label",
		AmountCols: []string{"Total Sale net vat", "Netsales (CC)"},
		TitleCol:   "Title",
		// amount column varies per statement, validated via the aliases
		RequiredCols: []string{"Label", "Title"},
		HeaderRow:    -1,
	},
	"AECASH": {
		VendorCol:    "Studio",
		AmountCols:   []string{"Total"},
		TitleCol:     "Title",
		RequiredCols: []string{"Studio", "Total", "Title"},
		HeaderRow:    -1,
	},
}
