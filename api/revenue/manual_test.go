package revenue

import (
	"strings"
	"testing"
)

func TestValidateControlTotal(t *testing.T) {
	cases := []struct {
		name   string
		rows   []manualReportRow
		total  float64
		wantOK bool
	}{
		{
			name:   "exact match",
			rows:   []manualReportRow{{GrossRevenue: 100}, {GrossRevenue: 100}},
			total:  200,
			wantOK: true,
		},
		{
			name:   "difference inside epsilon accepted",
			rows:   []manualReportRow{{GrossRevenue: 99.99}, {GrossRevenue: 100}},
			total:  200.00,
			wantOK: true,
		},
		{
			name:   "difference just under epsilon accepted",
			rows:   []manualReportRow{{GrossRevenue: 100}, {GrossRevenue: 100.015}},
			total:  200.00,
			wantOK: true,
		},
		{
			name:   "difference beyond epsilon rejected",
			rows:   []manualReportRow{{GrossRevenue: 99.99}, {GrossRevenue: 100}},
			total:  200.02,
			wantOK: false,
		},
		{
			name:   "no rows against nonzero total rejected",
			rows:   nil,
			total:  50,
			wantOK: false,
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			err := validateControlTotal(c.rows, c.total)
			if c.wantOK && err != nil {
				t.Fatalf("expected accept, got %v", err)
			}
			if !c.wantOK {
				if err == nil {
					t.Fatal("expected rejection")
				}
				if !strings.Contains(err.Error(), "Sum validation failed") {
					t.Errorf("unexpected error text: %v", err)
				}
			}
		})
	}
}
