package payout

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"RoyaltyDesk/api"
	"RoyaltyDesk/api/auth"
	"RoyaltyDesk/api/constants"
	"RoyaltyDesk/internal/config"
	"RoyaltyDesk/internal/logger"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type createPayoutRequest struct {
	UserID    string   `json:"user_id"`
	VendorID  string   `json:"vendor_id"`
	RecordIDs []string `json:"record_ids"`
}

type recordSettlement struct {
	RecordID   string
	Commission decimal.Decimal
	Net        decimal.Decimal
}

// CreatePayout claims a set of a vendor's unassigned records into one
// payout. Claiming is serialized with a row lock and recount inside the
// transaction so two concurrent requests over the same records cannot both
// succeed; the loser gets a conflict and must refresh.
func CreatePayout(pgxPool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		var req createPayoutRequest
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
		if req.VendorID == "" {
			api.RespondWithError(w, http.StatusBadRequest, "vendor_id required")
			return
		}
		if len(req.RecordIDs) == 0 {
			api.RespondWithError(w, http.StatusBadRequest, constants.ErrRecordIDsRequired)
			return
		}

		var vendorExists bool
		if err := pgxPool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM mastervendor WHERE vendor_id = $1)`, req.VendorID).Scan(&vendorExists); err != nil {
			api.RespondWithError(w, http.StatusInternalServerError, constants.ErrQueryFailed+err.Error())
			return
		}
		if !vendorExists {
			api.RespondWithError(w, http.StatusNotFound, constants.ErrVendorNotFound)
			return
		}

		var claimable int
		err := pgxPool.QueryRow(ctx, `
			SELECT COUNT(*) FROM revenue_record
			WHERE record_id = ANY($1) AND vendor_id = $2 AND payout_id IS NULL
		`, req.RecordIDs, req.VendorID).Scan(&claimable)
		if err != nil {
			api.RespondWithError(w, http.StatusInternalServerError, constants.ErrQueryFailed+err.Error())
			return
		}
		if claimable != len(req.RecordIDs) {
			api.RespondWithError(w, http.StatusBadRequest, constants.ErrRecordsNotFound)
			return
		}

		tx, err := pgxPool.Begin(ctx)
		if err != nil {
			api.RespondWithError(w, http.StatusInternalServerError, constants.ErrTxStartFailed+err.Error())
			return
		}
		defer tx.Rollback(ctx)

		// lock and recount; a concurrent claim shrinks this set
		rows, err := tx.Query(ctx, `
			SELECT rr.record_id, rr.gross_revenue::text,
			       COALESCE(s.commission_rate, p.default_split, 0)::text
			FROM revenue_record rr
			JOIN masterplatform p ON p.platform_id = rr.platform_id
			LEFT JOIN vendor_platform_split s
			  ON s.vendor_id = rr.vendor_id AND s.platform_id = rr.platform_id
			WHERE rr.record_id = ANY($1) AND rr.vendor_id = $2 AND rr.payout_id IS NULL
			FOR UPDATE OF rr
		`, req.RecordIDs, req.VendorID)
		if err != nil {
			api.RespondWithError(w, http.StatusInternalServerError, constants.ErrQueryFailed+err.Error())
			return
		}

		settlements := make([]recordSettlement, 0, len(req.RecordIDs))
		totalNet := decimal.Zero
		totalGross := decimal.Zero
		for rows.Next() {
			var recordID, grossText, rateText string
			if err := rows.Scan(&recordID, &grossText, &rateText); err != nil {
				rows.Close()
				api.RespondWithError(w, http.StatusInternalServerError, constants.ErrQueryFailed+err.Error())
				return
			}
			gross, gerr := decimal.NewFromString(grossText)
			if gerr != nil {
				gross = decimal.Zero
			}
			rate, rerr := decimal.NewFromString(rateText)
			if rerr != nil {
				rate = decimal.Zero
			}
			commission := gross.Mul(rate)
			settlements = append(settlements, recordSettlement{
				RecordID:   recordID,
				Commission: commission,
				Net:        gross.Sub(commission),
			})
			totalGross = totalGross.Add(gross)
			totalNet = totalNet.Add(gross.Sub(commission))
		}
		rows.Close()

		if len(settlements) != len(req.RecordIDs) {
			api.RespondWithError(w, http.StatusConflict, constants.ErrConcurrentClaim)
			return
		}

		var payoutID string
		var payoutNumber int64
		err = tx.QueryRow(ctx, `
			INSERT INTO payout (vendor_id, total_amount, status)
			VALUES ($1, $2, $3)
			RETURNING payout_id, payout_number
		`, req.VendorID, totalNet, constants.PayoutPending).Scan(&payoutID, &payoutNumber)
		if err != nil {
			api.RespondWithError(w, http.StatusInternalServerError, constants.ErrQueryFailed+err.Error())
			return
		}

		for start := 0; start < len(settlements); start += config.PayoutUpdateBatchSize {
			end := start + config.PayoutUpdateBatchSize
			if end > len(settlements) {
				end = len(settlements)
			}
			query, args := buildRecordUpdateQuery(payoutID, settlements[start:end])
			if _, err := tx.Exec(ctx, query, args...); err != nil {
				api.RespondWithError(w, http.StatusInternalServerError, constants.ErrQueryFailed+err.Error())
				return
			}
		}

		if err := tx.Commit(ctx); err != nil {
			api.RespondWithError(w, http.StatusInternalServerError, constants.ErrTxCommitFailed+err.Error())
			return
		}

		if logger.GlobalLogger != nil {
			logger.GlobalLogger.LogAuditf("payout %s (#%d) created for vendor %s over %d records, net %s",
				payoutID, payoutNumber, req.VendorID, len(settlements), totalNet.String())
		}
		api.RespondWithPayload(w, true, "", map[string]interface{}{
			"payout_id":     payoutID,
			"payout_number": payoutNumber,
			"vendor_id":     req.VendorID,
			"total_amount":  totalNet,
			"gross_amount":  totalGross,
			"record_count":  len(settlements),
			"status":        constants.PayoutPending,
		})
	}
}

// buildRecordUpdateQuery renders one multi-row UPDATE linking a batch of
// records to a payout and stamping their settlement amounts. Placeholders:
// $1 payout id, $2 record status, then three per record.
func buildRecordUpdateQuery(payoutID string, batch []recordSettlement) (string, []interface{}) {
	values := make([]string, 0, len(batch))
	args := make([]interface{}, 0, 2+3*len(batch))
	args = append(args, payoutID, constants.RecordPendingPayment)
	for i, s := range batch {
		base := 3 + i*3
		values = append(values, fmt.Sprintf("($%d, $%d, $%d)", base, base+1, base+2))
		args = append(args, s.RecordID, s.Commission.String(), s.Net.String())
	}
	query := `
		UPDATE revenue_record AS r
		SET payout_id = $1,
		    status = $2,
		    commission_amount = v.commission::numeric,
		    net_amount = v.net::numeric
		FROM (VALUES ` + strings.Join(values, ", ") + `) AS v(id, commission, net)
		WHERE r.record_id = v.id::uuid
	`
	return query, args
}
