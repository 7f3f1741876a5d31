package config

const (
	DefaultTimeZone = "UTC"

	// Header detection heuristics
	HeaderScoreThreshold = 2
	HeaderScanDepth      = 40

	// Manual report control-total tolerance
	ManualSumEpsilon = 0.02

	// Payout claim: rows per multi-row UPDATE statement. 3 parameters per
	// row keeps each statement well under the 65535 parameter ceiling.
	PayoutUpdateBatchSize = 2000

	// Re-match sweep over UNMATCHED records
	DefaultRematchSchedule = "30 2 * * *"
	RematchBatchSize       = 500
)
