package payout

import (
	"encoding/json"
	"net/http"
	"time"

	"RoyaltyDesk/api"
	"RoyaltyDesk/api/auth"
	"RoyaltyDesk/api/constants"
	"RoyaltyDesk/internal/logger"

	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type settlePayoutRequest struct {
	UserID      string `json:"user_id"`
	PaymentDate string `json:"payment_date"`
}

// SettlePayout marks a pending payout as paid along with every record it
// claimed. Settling an already settled payout is rejected rather than
// silently overwriting the recorded payment date.
func SettlePayout(pgxPool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		var req settlePayoutRequest
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
		if req.PaymentDate == "" {
			api.RespondWithError(w, http.StatusBadRequest, constants.ErrPaymentDateRequired)
			return
		}
		paymentDate, err := time.Parse(constants.DateFormat, req.PaymentDate)
		if err != nil {
			api.RespondWithError(w, http.StatusBadRequest, "payment_date must be YYYY-MM-DD")
			return
		}
		payoutID := mux.Vars(r)["payoutID"]

		tx, err := pgxPool.Begin(ctx)
		if err != nil {
			api.RespondWithError(w, http.StatusInternalServerError, constants.ErrTxStartFailed+err.Error())
			return
		}
		defer tx.Rollback(ctx)

		var status string
		err = tx.QueryRow(ctx, `SELECT status FROM payout WHERE payout_id = $1 FOR UPDATE`, payoutID).Scan(&status)
		if err == pgx.ErrNoRows {
			api.RespondWithError(w, http.StatusNotFound, constants.ErrPayoutNotFound)
			return
		}
		if err != nil {
			api.RespondWithError(w, http.StatusInternalServerError, constants.ErrQueryFailed+err.Error())
			return
		}
		if status == constants.PayoutPaid {
			api.RespondWithError(w, http.StatusConflict, constants.ErrPayoutAlreadySettled)
			return
		}

		if _, err := tx.Exec(ctx, `
			UPDATE payout SET status = $1, payment_date = $2 WHERE payout_id = $3
		`, constants.PayoutPaid, paymentDate, payoutID); err != nil {
			api.RespondWithError(w, http.StatusInternalServerError, constants.ErrQueryFailed+err.Error())
			return
		}
		if _, err := tx.Exec(ctx, `
			UPDATE revenue_record SET status = $1 WHERE payout_id = $2
		`, constants.RecordPaid, payoutID); err != nil {
			api.RespondWithError(w, http.StatusInternalServerError, constants.ErrQueryFailed+err.Error())
			return
		}

		if err := tx.Commit(ctx); err != nil {
			api.RespondWithError(w, http.StatusInternalServerError, constants.ErrTxCommitFailed+err.Error())
			return
		}

		if logger.GlobalLogger != nil {
			logger.GlobalLogger.LogAuditf("payout %s settled, payment date %s", payoutID, req.PaymentDate)
		}
		api.RespondWithPayload(w, true, "", map[string]interface{}{
			"payout_id":    payoutID,
			"status":       constants.PayoutPaid,
			"payment_date": req.PaymentDate,
		})
	}
}
