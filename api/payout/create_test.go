package payout

import (
	"fmt"
	"strings"
	"testing"

	"RoyaltyDesk/api/constants"

	"github.com/shopspring/decimal"
)

func TestBuildRecordUpdateQuery(t *testing.T) {
	batch := []recordSettlement{
		{RecordID: "r1", Commission: decimal.NewFromFloat(20), Net: decimal.NewFromFloat(80)},
		{RecordID: "r2", Commission: decimal.NewFromFloat(5), Net: decimal.NewFromFloat(45)},
	}
	query, args := buildRecordUpdateQuery("p-1", batch)

	if len(args) != 2+3*len(batch) {
		t.Fatalf("expected %d args, got %d", 2+3*len(batch), len(args))
	}
	if args[0] != "p-1" || args[1] != constants.RecordPendingPayment {
		t.Errorf("leading args wrong: %v", args[:2])
	}
	if args[2] != "r1" || args[3] != "20" || args[4] != "80" {
		t.Errorf("first record args wrong: %v", args[2:5])
	}
	if !strings.Contains(query, "($3, $4, $5)") || !strings.Contains(query, "($6, $7, $8)") {
		t.Errorf("placeholders wrong:\n%s", query)
	}
	if !strings.Contains(query, "v.id::uuid") {
		t.Errorf("record id cast missing:\n%s", query)
	}
}

func TestBuildRecordUpdateQueryStaysUnderParamCeiling(t *testing.T) {
	// Postgres caps a statement at 65535 bind parameters
	batch := make([]recordSettlement, 2000)
	for i := range batch {
		batch[i] = recordSettlement{
			RecordID:   fmt.Sprintf("r%d", i),
			Commission: decimal.NewFromInt(1),
			Net:        decimal.NewFromInt(9),
		}
	}
	_, args := buildRecordUpdateQuery("p-1", batch)
	if len(args) >= 65535 {
		t.Fatalf("batch of %d produces %d params", len(batch), len(args))
	}
}

func TestSettlementMathAddsUp(t *testing.T) {
	gross := decimal.RequireFromString("150.37")
	rate := decimal.RequireFromString("0.35")
	commission := gross.Mul(rate)
	net := gross.Sub(commission)
	if !commission.Add(net).Equal(gross) {
		t.Errorf("commission %s + net %s != gross %s", commission, net, gross)
	}
}
