package payout

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"time"

	"RoyaltyDesk/api"
	"RoyaltyDesk/api/auth"
	"RoyaltyDesk/api/constants"

	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// PayoutSummary is one claimable bucket of a vendor's unassigned revenue,
// grouped by platform and statement period. CommissionRate is the vendor's
// split override when present, else the platform default, else zero.
type PayoutSummary struct {
	PlatformID     string          `json:"platform_id"`
	PlatformName   string          `json:"platform_name"`
	PeriodStart    string          `json:"period_start"`
	GrossRevenue   decimal.Decimal `json:"gross_revenue"`
	CommissionRate decimal.Decimal `json:"commission_rate"`
	Commission     decimal.Decimal `json:"commission"`
	NetPayable     decimal.Decimal `json:"net_payable"`
	Status         string          `json:"status"`
	RecordIDs      []string        `json:"record_ids"`
}

// errUnknownVendor distinguishes a vendor that does not exist from a real
// vendor with nothing owed (empty summaries).
var errUnknownVendor = errors.New("unknown vendor")

// GetPayoutSummaries previews what a vendor is owed before any payout is
// created. An unknown vendor is a 404; a known vendor with no unclaimed
// records yields an empty list.
func GetPayoutSummaries(pgxPool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID := r.URL.Query().Get("user_id")
		if userID == "" {
			api.RespondWithError(w, http.StatusBadRequest, constants.ErrUserIDRequired)
			return
		}
		validSession := false
		for _, session := range auth.GetActiveSessions() {
			if session.UserID == userID {
				validSession = true
				break
			}
		}
		if !validSession {
			api.RespondWithError(w, http.StatusUnauthorized, constants.ErrInvalidSession)
			return
		}
		vendorID := mux.Vars(r)["vendorID"]

		summaries, err := loadPayoutSummaries(ctx, pgxPool, vendorID)
		if errors.Is(err, errUnknownVendor) {
			api.RespondWithError(w, http.StatusNotFound, constants.ErrVendorNotFound)
			return
		}
		if err != nil {
			api.RespondWithError(w, http.StatusInternalServerError, constants.ErrQueryFailed+err.Error())
			return
		}
		api.RespondWithPayload(w, true, "", summaries)
	}
}

// loadPayoutSummaries verifies the vendor exists, then buckets its
// unclaimed records by platform and period with the commission math applied
// per bucket.
func loadPayoutSummaries(ctx context.Context, pgxPool *pgxpool.Pool, vendorID string) ([]PayoutSummary, error) {
	var vendorExists bool
	if err := pgxPool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM mastervendor WHERE vendor_id = $1)`, vendorID).Scan(&vendorExists); err != nil {
		return nil, err
	}
	if !vendorExists {
		return nil, errUnknownVendor
	}

	rows, err := pgxPool.Query(ctx, `
		SELECT rr.record_id, rr.platform_id, p.platform_name, rr.period_start,
		       rr.gross_revenue::text,
		       COALESCE(s.commission_rate, p.default_split, 0)::text
		FROM revenue_record rr
		JOIN masterplatform p ON p.platform_id = rr.platform_id
		LEFT JOIN vendor_platform_split s
		  ON s.vendor_id = rr.vendor_id AND s.platform_id = rr.platform_id
		WHERE rr.vendor_id = $1 AND rr.payout_id IS NULL
		ORDER BY rr.period_start, p.platform_name
	`, vendorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	type groupKey struct {
		platformID string
		period     string
	}
	groups := map[groupKey]*PayoutSummary{}
	order := []groupKey{}

	for rows.Next() {
		var (
			recordID, platformID, platformName string
			periodStart                        time.Time
			grossText, rateText                string
		)
		if err := rows.Scan(&recordID, &platformID, &platformName, &periodStart, &grossText, &rateText); err != nil {
			return nil, err
		}
		gross, err := decimal.NewFromString(grossText)
		if err != nil {
			gross = decimal.Zero
		}
		rate, err := decimal.NewFromString(rateText)
		if err != nil {
			rate = decimal.Zero
		}

		key := groupKey{platformID: platformID, period: periodStart.Format(constants.DateFormat)}
		summary, ok := groups[key]
		if !ok {
			summary = &PayoutSummary{
				PlatformID:     platformID,
				PlatformName:   platformName,
				PeriodStart:    key.period,
				CommissionRate: rate,
				Status:         "Unpaid",
			}
			groups[key] = summary
			order = append(order, key)
		}
		summary.GrossRevenue = summary.GrossRevenue.Add(gross)
		summary.RecordIDs = append(summary.RecordIDs, recordID)
	}

	out := make([]PayoutSummary, 0, len(order))
	for _, key := range order {
		s := groups[key]
		s.Commission = s.GrossRevenue.Mul(s.CommissionRate)
		s.NetPayable = s.GrossRevenue.Sub(s.Commission)
		out = append(out, *s)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].PeriodStart != out[j].PeriodStart {
			return out[i].PeriodStart < out[j].PeriodStart
		}
		return out[i].PlatformName < out[j].PlatformName
	})
	return out, nil
}
