package revenue

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"RoyaltyDesk/api"
	"RoyaltyDesk/api/auth"
	"RoyaltyDesk/api/constants"
	"RoyaltyDesk/api/revenue/matcher"
	"RoyaltyDesk/api/revenue/normalize"
	"RoyaltyDesk/api/revenue/sheetparser"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var revenueRecordColumns = []string{
	"report_id",
	"platform_id",
	"vendor_id",
	"raw_vendor_name",
	"gross_revenue",
	"line_item_name",
	"metadata",
	"period_start",
	"period_end",
	"status",
}

// UploadRoyaltyStatement ingests one statement file for a platform. The
// column layout is resolved in order: mapping supplied with the request,
// stored mapping template, fixed platform strategy. A supplied mapping is
// persisted as the platform's template for the next upload.
func UploadRoyaltyStatement(pgxPool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if r.Method != http.MethodPost {
			api.RespondWithError(w, http.StatusMethodNotAllowed, constants.ErrMethodNotAllowed)
			return
		}
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			api.RespondWithError(w, http.StatusBadRequest, constants.ErrInvalidRequestBody)
			return
		}
		userID := r.FormValue("user_id")
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

		platformID := r.FormValue("platform_id")
		if platformID == "" {
			api.RespondWithError(w, http.StatusBadRequest, "platform_id required")
			return
		}
		reportMonth, err := parseReportMonth(r.FormValue("month"))
		if err != nil {
			api.RespondWithError(w, http.StatusBadRequest, "month must be YYYY-MM or YYYY-MM-DD")
			return
		}

		var declaredTotal *float64
		if v := r.FormValue("total_amount"); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				api.RespondWithError(w, http.StatusBadRequest, "total_amount must be numeric")
				return
			}
			declaredTotal = &f
		}
		var invoiceRef *string
		if v := r.FormValue("invoice_ref"); v != "" {
			invoiceRef = &v
		}
		paymentStatus := r.FormValue("payment_status")
		if paymentStatus == "" {
			paymentStatus = "UNPAID"
		}
		var mapping map[string]string
		if v := r.FormValue("mappings"); v != "" {
			if err := json.Unmarshal([]byte(v), &mapping); err != nil {
				api.RespondWithError(w, http.StatusBadRequest, constants.ErrInvalidJSON)
				return
			}
		}

		file, fileHeader, err := r.FormFile("file")
		if err != nil {
			api.RespondWithError(w, http.StatusBadRequest, "file is required")
			return
		}
		defer file.Close()
		data, err := io.ReadAll(file)
		if err != nil {
			api.RespondWithError(w, http.StatusBadRequest, constants.ErrInvalidOrEmptyFile)
			return
		}

		var (
			platformName  string
			strategyKey   *string
			tmplHeaderIdx *int
			tmplRules     []byte
		)
		err = pgxPool.QueryRow(ctx, `
			SELECT p.platform_name, p.strategy_key, t.header_row_index, t.mapping_rules
			FROM masterplatform p
			LEFT JOIN mapping_template t ON t.platform_id = p.platform_id
			WHERE p.platform_id = $1
		`, platformID).Scan(&platformName, &strategyKey, &tmplHeaderIdx, &tmplRules)
		if err == pgx.ErrNoRows {
			api.RespondWithError(w, http.StatusNotFound, constants.ErrPlatformNotFound)
			return
		}
		if err != nil {
			api.RespondWithError(w, http.StatusInternalServerError, constants.ErrQueryFailed+err.Error())
			return
		}

		rawRows, err := sheetparser.ParseFile(data, fileHeader.Filename)
		if err != nil {
			if errors.Is(err, sheetparser.ErrUnsupportedFormat) {
				api.RespondWithError(w, http.StatusBadRequest, constants.ErrUnsupportedFileFormat)
			} else {
				api.RespondWithError(w, http.StatusBadRequest, constants.ErrInvalidOrEmptyFile)
			}
			return
		}

		var normalized []normalize.NormalizedRow
		headerIdx := -1
		switch {
		case len(mapping) > 0:
			headerIdx = sheetparser.ScanForHeader(rawRows)
			if headerIdx < 0 {
				headerIdx = 0
			}
			normalized = normalize.NormalizeMapped(sheetparser.MapRows(rawRows, headerIdx), mapping)
		case tmplRules != nil && tmplHeaderIdx != nil:
			stored := map[string]string{}
			if err := json.Unmarshal(tmplRules, &stored); err != nil {
				api.RespondWithError(w, http.StatusInternalServerError, "stored mapping template is corrupt")
				return
			}
			headerIdx = *tmplHeaderIdx
			if headerIdx < 0 || headerIdx >= len(rawRows) {
				api.RespondWithError(w, http.StatusBadRequest, constants.ErrInvalidOrEmptyFile)
				return
			}
			normalized = normalize.NormalizeMapped(sheetparser.MapRows(rawRows, headerIdx), stored)
		case strategyKey != nil && *strategyKey != "":
			strategy, ok := normalize.PlatformStrategies[*strategyKey]
			if !ok {
				api.RespondWithError(w, http.StatusBadRequest, fmt.Sprintf(constants.ErrNoStrategyConfigured, platformName))
				return
			}
			headerIdx = strategy.HeaderRow
			if headerIdx < 0 {
				headerIdx = sheetparser.ScanForHeader(rawRows)
			}
			if headerIdx < 0 || headerIdx >= len(rawRows) {
				api.RespondWithError(w, http.StatusBadRequest, constants.ErrInvalidOrEmptyFile)
				return
			}
			normalized, err = normalize.NormalizeFixed(sheetparser.MapRows(rawRows, headerIdx), *strategyKey)
			if err != nil {
				api.RespondWithError(w, http.StatusBadRequest, err.Error())
				return
			}
		default:
			api.RespondWithError(w, http.StatusBadRequest, fmt.Sprintf(constants.ErrNoStrategyConfigured, platformName))
			return
		}
		if len(normalized) == 0 {
			api.RespondWithError(w, http.StatusBadRequest, constants.ErrInvalidOrEmptyFile)
			return
		}

		aliasIdx, err := matcher.LoadAliasIndex(ctx, pgxPool)
		if err != nil {
			api.RespondWithError(w, http.StatusInternalServerError, constants.ErrQueryFailed+err.Error())
			return
		}
		normalized = matcher.MatchRecords(normalized, aliasIdx)

		tx, err := pgxPool.Begin(ctx)
		if err != nil {
			api.RespondWithError(w, http.StatusInternalServerError, constants.ErrTxStartFailed+err.Error())
			return
		}
		defer tx.Rollback(ctx)

		reportID := uuid.New().String()
		_, err = tx.Exec(ctx, `
			INSERT INTO royalty_report
				(report_id, platform_id, source_file, report_month, declared_total, invoice_ref, payment_status, status, created_by)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`, reportID, platformID, fileHeader.Filename, reportMonth, declaredTotal, invoiceRef, paymentStatus, "PROCESSED", userID)
		if err != nil {
			api.RespondWithError(w, http.StatusInternalServerError, constants.ErrQueryFailed+err.Error())
			return
		}

		if len(mapping) > 0 {
			rulesJSON, _ := json.Marshal(mapping)
			_, err = tx.Exec(ctx, `
				INSERT INTO mapping_template (platform_id, header_row_index, mapping_rules, updated_at)
				VALUES ($1, $2, $3, now())
				ON CONFLICT (platform_id) DO UPDATE SET
					header_row_index = EXCLUDED.header_row_index,
					mapping_rules    = EXCLUDED.mapping_rules,
					updated_at       = now()
			`, platformID, headerIdx, rulesJSON)
			if err != nil {
				api.RespondWithError(w, http.StatusInternalServerError, constants.ErrQueryFailed+err.Error())
				return
			}
		}

		matched := 0
		copyRows := make([][]interface{}, 0, len(normalized))
		for _, rec := range normalized {
			var vendorID interface{}
			if rec.VendorID != "" {
				vendorID = rec.VendorID
				matched++
			}
			metaJSON, _ := json.Marshal(rec.Metadata)
			copyRows = append(copyRows, []interface{}{
				reportID, platformID, vendorID, rec.RawVendorName, rec.GrossRevenue,
				rec.LineItemName, metaJSON, reportMonth, reportMonth, rec.Status,
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

		api.LogInfo("report %s ingested: %d records (%d matched) from %s", reportID, len(normalized), matched, fileHeader.Filename)
		api.RespondWithPayload(w, true, "", map[string]interface{}{
			"report_id":         reportID,
			"total_records":     len(normalized),
			"matched_records":   matched,
			"unmatched_records": len(normalized) - matched,
			"header_row_index":  headerIdx,
		})
	}
}

func parseReportMonth(value string) (time.Time, error) {
	if t, err := time.Parse(constants.MonthFormat, value); err == nil {
		return t, nil
	}
	return time.Parse(constants.DateFormat, value)
}
