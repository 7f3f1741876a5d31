package revenue

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strings"

	"RoyaltyDesk/api"
	"RoyaltyDesk/api/auth"
	"RoyaltyDesk/api/constants"
	"RoyaltyDesk/internal/config"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type manualReportRow struct {
	VendorID     string  `json:"vendor_id"`
	GrossRevenue float64 `json:"gross_revenue"`
	LineItemName string  `json:"line_item_name"`
}

type manualReportRequest struct {
	UserID        string            `json:"user_id"`
	PlatformID    string            `json:"platform_id"`
	Month         string            `json:"month"`
	TotalAmount   float64           `json:"total_amount"`
	InvoiceRef    string            `json:"invoice_ref"`
	PaymentStatus string            `json:"payment_status"`
	Rows          []manualReportRow `json:"rows"`
}

// validateControlTotal checks that typed rows sum to the declared total
// within the configured epsilon. Statements round per line, so an exact
// match cannot be required.
func validateControlTotal(rows []manualReportRow, total float64) error {
	sum := 0.0
	for _, row := range rows {
		sum += row.GrossRevenue
	}
	if math.Abs(sum-total) > config.ManualSumEpsilon {
		return fmt.Errorf(constants.ErrSumValidationFailed, sum, total)
	}
	return nil
}

// CreateManualReport records a statement typed in by hand. Rows must sum to
// the declared total within a small epsilon and every vendor id must exist;
// rows are stored MATCHED since the operator picked the vendors directly.
func CreateManualReport(pgxPool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if r.Method != http.MethodPost {
			api.RespondWithError(w, http.StatusMethodNotAllowed, constants.ErrMethodNotAllowed)
			return
		}
		var req manualReportRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			api.RespondWithError(w, http.StatusBadRequest, constants.ErrInvalidJSON)
			return
		}
		if req.UserID == "" {
			api.RespondWithError(w, http.StatusBadRequest, constants.ErrUserIDRequired)
			return
		}
		validSession := false
		for _, session := range auth.GetActiveSessions() {
			if session.UserID == req.UserID {
				validSession = true
				break
			}
		}
		if !validSession {
			api.RespondWithError(w, http.StatusUnauthorized, constants.ErrInvalidSession)
			return
		}
		if req.PlatformID == "" {
			api.RespondWithError(w, http.StatusBadRequest, "platform_id required")
			return
		}
		if len(req.Rows) == 0 {
			api.RespondWithError(w, http.StatusBadRequest, "rows must not be empty")
			return
		}
		reportMonth, err := parseReportMonth(req.Month)
		if err != nil {
			api.RespondWithError(w, http.StatusBadRequest, "month must be YYYY-MM or YYYY-MM-DD")
			return
		}

		if err := validateControlTotal(req.Rows, req.TotalAmount); err != nil {
			api.RespondWithError(w, http.StatusBadRequest, err.Error())
			return
		}

		var platformExists bool
		if err := pgxPool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM masterplatform WHERE platform_id = $1)`, req.PlatformID).Scan(&platformExists); err != nil {
			api.RespondWithError(w, http.StatusInternalServerError, constants.ErrQueryFailed+err.Error())
			return
		}
		if !platformExists {
			api.RespondWithError(w, http.StatusNotFound, constants.ErrPlatformNotFound)
			return
		}

		vendorIDs := []string{}
		seen := map[string]bool{}
		for _, row := range req.Rows {
			if row.VendorID != "" && !seen[row.VendorID] {
				seen[row.VendorID] = true
				vendorIDs = append(vendorIDs, row.VendorID)
			}
		}
		vendorNames := map[string]string{}
		if len(vendorIDs) > 0 {
			rows, err := pgxPool.Query(ctx, `SELECT vendor_id, company_name FROM mastervendor WHERE vendor_id = ANY($1)`, vendorIDs)
			if err != nil {
				api.RespondWithError(w, http.StatusInternalServerError, constants.ErrQueryFailed+err.Error())
				return
			}
			for rows.Next() {
				var id, name string
				if err := rows.Scan(&id, &name); err == nil {
					vendorNames[id] = name
				}
			}
			rows.Close()
		}
		missing := []string{}
		for _, row := range req.Rows {
			if row.VendorID == "" {
				missing = append(missing, "(empty)")
			} else if _, ok := vendorNames[row.VendorID]; !ok {
				missing = append(missing, row.VendorID)
			}
		}
		if len(missing) > 0 {
			api.RespondWithError(w, http.StatusBadRequest, fmt.Sprintf(constants.ErrInvalidVendorIDs, strings.Join(missing, ", ")))
			return
		}

		tx, err := pgxPool.Begin(ctx)
		if err != nil {
			api.RespondWithError(w, http.StatusInternalServerError, constants.ErrTxStartFailed+err.Error())
			return
		}
		defer tx.Rollback(ctx)

		var invoiceRef *string
		if req.InvoiceRef != "" {
			invoiceRef = &req.InvoiceRef
		}
		paymentStatus := req.PaymentStatus
		if paymentStatus == "" {
			paymentStatus = "UNPAID"
		}

		reportID := uuid.New().String()
		_, err = tx.Exec(ctx, `
			INSERT INTO royalty_report
				(report_id, platform_id, source_file, report_month, declared_total, invoice_ref, payment_status, status, created_by)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`, reportID, req.PlatformID, "MANUAL_ENTRY", reportMonth, req.TotalAmount, invoiceRef, paymentStatus, "PROCESSED", req.UserID)
		if err != nil {
			api.RespondWithError(w, http.StatusInternalServerError, constants.ErrQueryFailed+err.Error())
			return
		}

		copyRows := make([][]interface{}, 0, len(req.Rows))
		for _, row := range req.Rows {
			title := row.LineItemName
			if title == "" {
				title = "Manual Entry"
			}
			copyRows = append(copyRows, []interface{}{
				reportID, req.PlatformID, row.VendorID, vendorNames[row.VendorID], row.GrossRevenue,
				title, []byte("{}"), reportMonth, reportMonth, constants.RecordMatched,
			})
		}
		if _, err := tx.CopyFrom(ctx, pgx.Identifier{"revenue_record"}, revenueRecordColumns, pgx.CopyFromRows(copyRows)); err != nil {
			api.RespondWithError(w, http.StatusInternalServerError, constants.ErrQueryFailed+err.Error())
			return
		}

		if err := tx.Commit(ctx); err != nil {
			api.RespondWithError(w, http.StatusInternalServerError, constants.ErrTxCommitFailed+err.Error())
			return
		}

		api.LogInfo("manual report %s created with %d records", reportID, len(req.Rows))
		api.RespondWithPayload(w, true, "", map[string]interface{}{
			"report_id":     reportID,
			"total_records": len(req.Rows),
		})
	}
}
