package payout

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"RoyaltyDesk/api/constants"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

func integrationPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("ROYALTYDESK_TEST_DB_URL")
	if dsn == "" {
		t.Skip("ROYALTYDESK_TEST_DB_URL not set")
	}
	pool, err := pgxpool.New(context.Background(), dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(pool.Close)
	return pool
}

func seedClaimFixture(t *testing.T, pool *pgxpool.Pool, recordCount int) (vendorID string, recordIDs []string) {
	t.Helper()
	ctx := context.Background()
	suffix := uuid.NewString()[:8]

	var platformID string
	err := pool.QueryRow(ctx, `
		INSERT INTO masterplatform (platform_name, default_split, status)
		VALUES ($1, 0.35, 'ACTIVE') RETURNING platform_id
	`, "it-platform-"+suffix).Scan(&platformID)
	if err != nil {
		t.Fatalf("seed platform: %v", err)
	}
	err = pool.QueryRow(ctx, `
		INSERT INTO mastervendor (company_name, vendor_number, email, sub_labels, payout_method, bank_details, status)
		VALUES ($1, $2, $3, '{}', 'WIRE', '{}', 'ACTIVE') RETURNING vendor_id
	`, "it-vendor-"+suffix, "VN-"+suffix, suffix+"@example.test").Scan(&vendorID)
	if err != nil {
		t.Fatalf("seed vendor: %v", err)
	}
	var reportID string
	err = pool.QueryRow(ctx, `
		INSERT INTO royalty_report (platform_id, source_file, report_month, payment_status, status, created_by)
		VALUES ($1, 'it.csv', '2024-01-01', 'UNPAID', 'PROCESSED', 'it')
		RETURNING report_id
	`, platformID).Scan(&reportID)
	if err != nil {
		t.Fatalf("seed report: %v", err)
	}
	for i := 0; i < recordCount; i++ {
		var recordID string
		err = pool.QueryRow(ctx, `
			INSERT INTO revenue_record
				(report_id, platform_id, vendor_id, raw_vendor_name, gross_revenue, line_item_name, metadata, period_start, period_end, status)
			VALUES ($1, $2, $3, 'it-raw', 100, $4, '{}', '2024-01-01', '2024-01-01', $5)
			RETURNING record_id
		`, reportID, platformID, vendorID, fmt.Sprintf("it-item-%d", i), constants.RecordMatched).Scan(&recordID)
		if err != nil {
			t.Fatalf("seed record: %v", err)
		}
		recordIDs = append(recordIDs, recordID)
	}
	return vendorID, recordIDs
}

func claimRecords(ctx context.Context, pool *pgxpool.Pool, vendorID string, recordIDs []string) (claimed int, err error) {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx, `
		SELECT record_id FROM revenue_record
		WHERE record_id = ANY($1) AND vendor_id = $2 AND payout_id IS NULL
		FOR UPDATE
	`, recordIDs, vendorID)
	if err != nil {
		return 0, err
	}
	batch := []recordSettlement{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, err
		}
		batch = append(batch, recordSettlement{RecordID: id})
	}
	rows.Close()
	if len(batch) != len(recordIDs) {
		return len(batch), tx.Rollback(ctx)
	}

	var payoutID string
	err = tx.QueryRow(ctx, `
		INSERT INTO payout (vendor_id, total_amount, status) VALUES ($1, 65, $2) RETURNING payout_id
	`, vendorID, constants.PayoutPending).Scan(&payoutID)
	if err != nil {
		return 0, err
	}
	query, args := buildRecordUpdateQuery(payoutID, batch)
	if _, err := tx.Exec(ctx, query, args...); err != nil {
		return 0, err
	}
	return len(batch), tx.Commit(ctx)
}

func TestConcurrentClaimOnlyOneWins(t *testing.T) {
	pool := integrationPool(t)
	vendorID, recordIDs := seedClaimFixture(t, pool, 3)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	type result struct {
		claimed int
		err     error
	}
	results := make(chan result, 2)
	for i := 0; i < 2; i++ {
		go func() {
			claimed, err := claimRecords(ctx, pool, vendorID, recordIDs)
			results <- result{claimed: claimed, err: err}
		}()
	}

	wins := 0
	for i := 0; i < 2; i++ {
		r := <-results
		if r.err != nil {
			t.Fatalf("claim errored: %v", r.err)
		}
		if r.claimed == len(recordIDs) {
			wins++
		}
	}
	if wins != 1 {
		t.Fatalf("expected exactly one winning claim, got %d", wins)
	}
}

func TestSettleTwiceIsRejected(t *testing.T) {
	pool := integrationPool(t)
	vendorID, recordIDs := seedClaimFixture(t, pool, 1)

	ctx := context.Background()
	if _, err := claimRecords(ctx, pool, vendorID, recordIDs); err != nil {
		t.Fatalf("claim: %v", err)
	}
	var payoutID string
	if err := pool.QueryRow(ctx, `SELECT payout_id FROM payout WHERE vendor_id = $1`, vendorID).Scan(&payoutID); err != nil {
		t.Fatalf("fetch payout: %v", err)
	}

	settle := func() (string, error) {
		tx, err := pool.Begin(ctx)
		if err != nil {
			return "", err
		}
		defer tx.Rollback(ctx)
		var status string
		if err := tx.QueryRow(ctx, `SELECT status FROM payout WHERE payout_id = $1 FOR UPDATE`, payoutID).Scan(&status); err != nil {
			return "", err
		}
		if status == constants.PayoutPaid {
			return status, nil
		}
		if _, err := tx.Exec(ctx, `UPDATE payout SET status = $1, payment_date = '2024-02-15' WHERE payout_id = $2`,
			constants.PayoutPaid, payoutID); err != nil {
			return "", err
		}
		return status, tx.Commit(ctx)
	}

	first, err := settle()
	if err != nil {
		t.Fatalf("first settle: %v", err)
	}
	if first != constants.PayoutPending {
		t.Fatalf("expected PENDING before first settle, got %q", first)
	}
	second, err := settle()
	if err != nil {
		t.Fatalf("second settle: %v", err)
	}
	if second != constants.PayoutPaid {
		t.Fatalf("second settle should observe PAID and refuse, got %q", second)
	}
}
