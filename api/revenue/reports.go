package revenue

import (
	"net/http"
	"time"

	"RoyaltyDesk/api"
	"RoyaltyDesk/api/auth"
	"RoyaltyDesk/api/constants"

	"github.com/jackc/pgx/v5/pgxpool"
)

// GetRoyaltyReports lists ingested reports newest-first with per-report
// record counts and revenue totals.
func GetRoyaltyReports(pgxPool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if r.Method != http.MethodGet {
			api.RespondWithError(w, http.StatusMethodNotAllowed, constants.ErrMethodNotAllowed)
			return
		}
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
			SELECT r.report_id, r.platform_id, p.platform_name, r.source_file, r.report_month,
			       r.declared_total, r.invoice_ref, r.payment_status, r.status, r.created_by, r.created_at,
			       COUNT(rr.record_id) AS total_records,
			       COUNT(rr.record_id) FILTER (WHERE rr.status = $1) AS unmatched_records,
			       COALESCE(SUM(rr.gross_revenue), 0) AS gross_total
			FROM royalty_report r
			JOIN masterplatform p ON p.platform_id = r.platform_id
			LEFT JOIN revenue_record rr ON rr.report_id = r.report_id
		`
		args := []interface{}{constants.RecordUnmatched}
		if platformID := r.URL.Query().Get("platform_id"); platformID != "" {
			query += ` WHERE r.platform_id = $2`
			args = append(args, platformID)
		}
		query += `
			GROUP BY r.report_id, r.platform_id, p.platform_name, r.source_file, r.report_month,
			         r.declared_total, r.invoice_ref, r.payment_status, r.status, r.created_by, r.created_at
			ORDER BY r.created_at DESC
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
				reportID, platformID, platformName, sourceFile string
				reportMonth, createdAt                         time.Time
				declaredTotal                                  *float64
				invoiceRef                                     *string
				paymentStatus, status, createdBy               string
				totalRecords, unmatchedRecords                 int64
				grossTotal                                     float64
			)
			if err := rows.Scan(&reportID, &platformID, &platformName, &sourceFile, &reportMonth,
				&declaredTotal, &invoiceRef, &paymentStatus, &status, &createdBy, &createdAt,
				&totalRecords, &unmatchedRecords, &grossTotal); err != nil {
				api.RespondWithError(w, http.StatusInternalServerError, constants.ErrQueryFailed+err.Error())
				return
			}
			out = append(out, map[string]interface{}{
				"report_id":         reportID,
				"platform_id":       platformID,
				"platform_name":     platformName,
				"source_file":       sourceFile,
				"report_month":      reportMonth.Format(constants.DateFormat),
				"declared_total":    declaredTotal,
				"invoice_ref":       invoiceRef,
				"payment_status":    paymentStatus,
				"status":            status,
				"created_by":        createdBy,
				"created_at":        createdAt.Format(constants.DateTimeFormat),
				"total_records":     totalRecords,
				"unmatched_records": unmatchedRecords,
				"gross_total":       grossTotal,
			})
		}
		api.RespondWithPayload(w, true, "", out)
	}
}
