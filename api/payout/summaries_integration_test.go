package payout

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func TestLoadPayoutSummariesUnknownVendor(t *testing.T) {
	pool := integrationPool(t)

	_, err := loadPayoutSummaries(context.Background(), pool, uuid.NewString())
	if !errors.Is(err, errUnknownVendor) {
		t.Fatalf("expected unknown-vendor error, got %v", err)
	}
}

func TestLoadPayoutSummariesEmptyForKnownVendor(t *testing.T) {
	pool := integrationPool(t)
	vendorID, _ := seedClaimFixture(t, pool, 0)

	summaries, err := loadPayoutSummaries(context.Background(), pool, vendorID)
	if err != nil {
		t.Fatalf("known vendor with no records must not error: %v", err)
	}
	if len(summaries) != 0 {
		t.Fatalf("expected empty summaries, got %d", len(summaries))
	}
}

func TestLoadPayoutSummariesGrouping(t *testing.T) {
	pool := integrationPool(t)
	// two records, same platform and period, gross 100 each, split 0.35
	vendorID, recordIDs := seedClaimFixture(t, pool, 2)

	summaries, err := loadPayoutSummaries(context.Background(), pool, vendorID)
	if err != nil {
		t.Fatalf("loadPayoutSummaries: %v", err)
	}
	if len(summaries) != 1 {
		t.Fatalf("expected one group, got %d", len(summaries))
	}
	g := summaries[0]
	if !g.GrossRevenue.Equal(decimal.RequireFromString("200")) {
		t.Errorf("gross = %s, want 200", g.GrossRevenue)
	}
	if !g.Commission.Add(g.NetPayable).Equal(g.GrossRevenue) {
		t.Errorf("commission %s + net %s != gross %s", g.Commission, g.NetPayable, g.GrossRevenue)
	}
	if !g.CommissionRate.Equal(decimal.RequireFromString("0.35")) {
		t.Errorf("rate = %s, want 0.35", g.CommissionRate)
	}
	if g.Status != "Unpaid" {
		t.Errorf("status = %q", g.Status)
	}
	if len(g.RecordIDs) != len(recordIDs) {
		t.Errorf("expected %d record ids, got %d", len(recordIDs), len(g.RecordIDs))
	}
}
