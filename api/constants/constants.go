package constants

// Common error messages
const (
	ErrInvalidSession     = "invalid user_id or session"
	ErrInvalidJSON        = "Invalid JSON"
	ErrUserIDRequired     = "user_id required"
	ErrMethodNotAllowed   = "Method Not Allowed"
	ErrInvalidRequestBody = "Invalid request body"
	ErrDB                 = "DB error"
)

// Ingestion / parsing errors
const (
	ErrInvalidOrEmptyFile     = "Invalid or empty file: no parseable rows found"
	ErrUnsupportedFileFormat  = "Unsupported file format. Please upload a CSV, XLSX or XLS file"
	ErrMissingRequiredColumns = "Missing required columns for %s: %s"
	ErrNoStrategyConfigured   = "No strategy found for platform: %s. Please configure the matching logic first"
	ErrSumValidationFailed    = "Sum validation failed: rows sum to %.2f, but header total is %.2f"
	ErrInvalidVendorIDs       = "Invalid vendor IDs provided: %s"
)

// Referential lookup errors
const (
	ErrPlatformNotFound = "Platform not found"
	ErrVendorNotFound   = "Vendor not found"
	ErrPayoutNotFound   = "Payout not found"
	ErrPlatformExists   = "Platform with this name already exists"
	ErrVendorExists     = "Vendor with this vendor number or email already exists"
	ErrSplitExists      = "Split for this platform already exists for this vendor"
	ErrSplitNotFound    = "Split not found"
)

// Payout ledger errors
const (
	ErrRecordsNotFound       = "Some records were not found or belong to another vendor/payout"
	ErrConcurrentClaim       = "Records were claimed by another transaction. Please refresh and retry"
	ErrPayoutAlreadySettled  = "Payout has already been settled"
	ErrPaymentDateRequired   = "payment_date is required"
	ErrRecordIDsRequired     = "record_ids must not be empty"
)

// DB / SQL error templates
const (
	ErrTxStartFailed  = "failed to start transaction: "
	ErrTxCommitFailed = "failed to commit transaction: "
	ErrQueryFailed    = "query failed: "
)

// Record lifecycle statuses
const (
	RecordUnprocessed    = "UNPROCESSED"
	RecordMatched        = "MATCHED"
	RecordUnmatched      = "UNMATCHED"
	RecordPendingPayment = "PENDING_PAYMENT"
	RecordPaid           = "PAID"
)

// Payout lifecycle statuses
const (
	PayoutPending = "PENDING"
	PayoutPaid    = "PAID"
)

// Canonical normalized field names, also the keys of mapping templates
const (
	FieldGrossRevenue  = "grossRevenue"
	FieldLineItemName  = "lineItemName"
	FieldRawVendorName = "rawVendorName"
)

// Content Types
const (
	ContentTypeJSON = "application/json"
	ContentTypeText = "Content-Type"
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// Date formats
const (
	DateTimeFormat = "2006-01-02 15:04:05"
	DateFormat     = "2006-01-02"
	MonthFormat    = "2006-01"
)

// HeaderKeywords is the vocabulary used to score candidate header rows in
// uploaded statements. A row counting at least HeaderScoreThreshold of these
// (see internal/config) is treated as header-like.
var HeaderKeywords = []string{
	"studio",
	"revenue",
	"earnings",
	"title",
	"date",
	"period",
	"gross",
	"net",
	"commission",
	"vendor",
	"video",
	"sales",
	"amount",
	"currency",
	"payouts",
}
