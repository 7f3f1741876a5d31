package jobs

import (
	"context"
	"fmt"
	"strings"
	"time"

	"RoyaltyDesk/api/constants"
	"RoyaltyDesk/api/revenue/matcher"
	"RoyaltyDesk/internal/config"
	"RoyaltyDesk/internal/logger"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/robfig/cron/v3"
)

// RematchConfig holds configuration for the nightly re-match sweep
type RematchConfig struct {
	Schedule  string
	BatchSize int
	TimeZone  string
}

// NewDefaultRematchConfig creates a RematchConfig with default values
func NewDefaultRematchConfig() *RematchConfig {
	return &RematchConfig{
		Schedule:  config.DefaultRematchSchedule,
		BatchSize: config.RematchBatchSize,
		TimeZone:  config.DefaultTimeZone,
	}
}

// RunRematchScheduler starts the cron job that retries vendor matching for
// unmatched records, picking up sub-labels added since ingestion.
func RunRematchScheduler(cfg *RematchConfig, db *pgxpool.Pool) error {
	if cfg.Schedule == "" {
		cfg.Schedule = config.DefaultRematchSchedule
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = config.RematchBatchSize
	}
	if cfg.TimeZone == "" {
		cfg.TimeZone = config.DefaultTimeZone
	}

	loc, err := time.LoadLocation(cfg.TimeZone)
	if err != nil {
		loc = time.UTC
	}

	c := cron.New(cron.WithLocation(loc))

	_, err = c.AddFunc(cfg.Schedule, func() {
		err := ProcessUnmatchedRecords(db, cfg.BatchSize)
		if err != nil {
			logger.GlobalLogger.LogAudit(fmt.Sprintf("Rematch processor failed: %v", err))
		}
	})

	if err != nil {
		return fmt.Errorf("unable to schedule rematch processor: %v", err)
	}

	c.Start()
	logger.GlobalLogger.LogAudit("Rematch scheduler started")

	return nil
}

// ProcessUnmatchedRecords re-resolves unmatched, unclaimed records against
// the current alias index in keyset batches. Records that match are
// promoted to MATCHED with their vendor set; the rest stay as they are.
func ProcessUnmatchedRecords(db *pgxpool.Pool, batchSize int) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	aliasIdx, err := matcher.LoadAliasIndex(ctx, db)
	if err != nil {
		return fmt.Errorf("failed to load alias index: %v", err)
	}
	if len(aliasIdx) == 0 {
		return nil
	}

	scanned := 0
	promoted := 0
	lastID := ""

	for {
		rows, err := db.Query(ctx, `
			SELECT record_id, raw_vendor_name
			FROM revenue_record
			WHERE status = $1 AND payout_id IS NULL AND record_id::text > $2
			ORDER BY record_id
			LIMIT $3
		`, constants.RecordUnmatched, lastID, batchSize)
		if err != nil {
			return fmt.Errorf("failed to fetch unmatched records: %v", err)
		}

		type match struct {
			recordID string
			vendorID string
		}
		matches := []match{}
		fetched := 0
		for rows.Next() {
			var recordID, rawVendor string
			if err := rows.Scan(&recordID, &rawVendor); err != nil {
				rows.Close()
				return fmt.Errorf("failed to scan unmatched record: %v", err)
			}
			fetched++
			lastID = recordID
			if vendorID, ok := aliasIdx.Resolve(rawVendor); ok {
				matches = append(matches, match{recordID: recordID, vendorID: vendorID})
			}
		}
		rows.Close()
		scanned += fetched

		if len(matches) > 0 {
			values := make([]string, 0, len(matches))
			args := make([]interface{}, 0, 1+2*len(matches))
			args = append(args, constants.RecordMatched)
			for i, m := range matches {
				base := 2 + i*2
				values = append(values, fmt.Sprintf("($%d, $%d)", base, base+1))
				args = append(args, m.recordID, m.vendorID)
			}
			query := `
				UPDATE revenue_record AS r
				SET vendor_id = v.vid::uuid, status = $1
				FROM (VALUES ` + strings.Join(values, ", ") + `) AS v(id, vid)
				WHERE r.record_id = v.id::uuid
			`
			if _, err := db.Exec(ctx, query, args...); err != nil {
				return fmt.Errorf("failed to promote matched records: %v", err)
			}
			promoted += len(matches)
		}

		if fetched < batchSize {
			break
		}
	}

	if scanned > 0 {
		logger.GlobalLogger.LogAuditf("Rematch sweep scanned %d records, promoted %d", scanned, promoted)
	}
	return nil
}
