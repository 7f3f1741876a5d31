package payout

import (
	"net/http"
	"time"

	"RoyaltyDesk/api"
	"RoyaltyDesk/api/auth"
	"RoyaltyDesk/api/constants"

	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// GetPayouts lists payouts newest-first, optionally filtered by vendor.
func GetPayouts(pgxPool *pgxpool.Pool) http.HandlerFunc {
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

		query := `
			SELECT p.payout_id, p.payout_number, p.vendor_id, v.company_name, v.vendor_number,
			       p.total_amount::text, p.status, p.payment_date, p.created_at,
			       COUNT(rr.record_id) AS record_count
			FROM payout p
			JOIN mastervendor v ON v.vendor_id = p.vendor_id
			LEFT JOIN revenue_record rr ON rr.payout_id = p.payout_id
		`
		args := []interface{}{}
		if vendorID := r.URL.Query().Get("vendor_id"); vendorID != "" {
			query += ` WHERE p.vendor_id = $1`
			args = append(args, vendorID)
		}
		query += `
			GROUP BY p.payout_id, p.payout_number, p.vendor_id, v.company_name, v.vendor_number,
			         p.total_amount, p.status, p.payment_date, p.created_at
			ORDER BY p.created_at DESC
		`

		rows, err := pgxPool.Query(ctx, query, args...)
		if err != nil {
			api.RespondWithError(w, http.StatusInternalServerError, constants.ErrQueryFailed+err.Error())
			return
		}
		defer rows.Close()

		out := []map[string]interface{}{}
		for rows.Next() {
			var (
				payoutID, vendorID, companyName, vendorNumber string
				payoutNumber                                  int64
				totalAmount, status                           string
				paymentDate                                   *time.Time
				createdAt                                     time.Time
				recordCount                                   int64
			)
			if err := rows.Scan(&payoutID, &payoutNumber, &vendorID, &companyName, &vendorNumber,
				&totalAmount, &status, &paymentDate, &createdAt, &recordCount); err != nil {
				api.RespondWithError(w, http.StatusInternalServerError, constants.ErrQueryFailed+err.Error())
				return
			}
			entry := map[string]interface{}{
				"payout_id":     payoutID,
				"payout_number": payoutNumber,
				"vendor_id":     vendorID,
				"company_name":  companyName,
				"vendor_number": vendorNumber,
				"total_amount":  totalAmount,
				"status":        status,
				"record_count":  recordCount,
				"created_at":    createdAt.Format(constants.DateTimeFormat),
			}
			if paymentDate != nil {
				entry["payment_date"] = paymentDate.Format(constants.DateFormat)
			} else {
				entry["payment_date"] = nil
			}
			out = append(out, entry)
		}
		api.RespondWithPayload(w, true, "", out)
	}
}

// GetPayout returns one payout with its claimed records.
func GetPayout(pgxPool *pgxpool.Pool) http.HandlerFunc {
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
		payoutID := mux.Vars(r)["payoutID"]

		var (
			payoutNumber                          int64
			vendorID, companyName, vendorNumber   string
			totalAmount, status                   string
			paymentDate                           *time.Time
			createdAt                             time.Time
		)
		err := pgxPool.QueryRow(ctx, `
			SELECT p.payout_number, p.vendor_id, v.company_name, v.vendor_number,
			       p.total_amount::text, p.status, p.payment_date, p.created_at
			FROM payout p
			JOIN mastervendor v ON v.vendor_id = p.vendor_id
			WHERE p.payout_id = $1
		`, payoutID).Scan(&payoutNumber, &vendorID, &companyName, &vendorNumber,
			&totalAmount, &status, &paymentDate, &createdAt)
		if err == pgx.ErrNoRows {
			api.RespondWithError(w, http.StatusNotFound, constants.ErrPayoutNotFound)
			return
		}
		if err != nil {
			api.RespondWithError(w, http.StatusInternalServerError, constants.ErrQueryFailed+err.Error())
			return
		}

		rows, err := pgxPool.Query(ctx, `
			SELECT rr.record_id, rr.platform_id, mp.platform_name, rr.line_item_name,
			       rr.gross_revenue::text, COALESCE(rr.commission_amount, 0)::text,
			       COALESCE(rr.net_amount, 0)::text, rr.period_start, rr.status
			FROM revenue_record rr
			JOIN masterplatform mp ON mp.platform_id = rr.platform_id
			WHERE rr.payout_id = $1
			ORDER BY rr.period_start, mp.platform_name, rr.line_item_name
		`, payoutID)
		if err != nil {
			api.RespondWithError(w, http.StatusInternalServerError, constants.ErrQueryFailed+err.Error())
			return
		}
		defer rows.Close()

		records := []map[string]interface{}{}
		for rows.Next() {
			var (
				recordID, platformID, platformName, lineItemName string
				gross, commission, net, recordStatus             string
				periodStart                                      time.Time
			)
			if err := rows.Scan(&recordID, &platformID, &platformName, &lineItemName,
				&gross, &commission, &net, &periodStart, &recordStatus); err != nil {
				api.RespondWithError(w, http.StatusInternalServerError, constants.ErrQueryFailed+err.Error())
				return
			}
			records = append(records, map[string]interface{}{
				"record_id":         recordID,
				"platform_id":       platformID,
				"platform_name":     platformName,
				"line_item_name":    lineItemName,
				"gross_revenue":     gross,
				"commission_amount": commission,
				"net_amount":        net,
				"period_start":      periodStart.Format(constants.DateFormat),
				"status":            recordStatus,
			})
		}

		payload := map[string]interface{}{
			"payout_id":     payoutID,
			"payout_number": payoutNumber,
			"vendor_id":     vendorID,
			"company_name":  companyName,
			"vendor_number": vendorNumber,
			"total_amount":  totalAmount,
			"status":        status,
			"created_at":    createdAt.Format(constants.DateTimeFormat),
			"records":       records,
		}
		if paymentDate != nil {
			payload["payment_date"] = paymentDate.Format(constants.DateFormat)
		} else {
			payload["payment_date"] = nil
		}
		api.RespondWithPayload(w, true, "", payload)
	}
}
