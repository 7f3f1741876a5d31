package master

import (
	"encoding/json"
	"net/http"
	"time"

	"RoyaltyDesk/api"
	"RoyaltyDesk/api/constants"

	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type vendorSplitInput struct {
	PlatformID     string  `json:"platform_id"`
	CommissionRate float64 `json:"commission_rate"`
}

type createVendorRequest struct {
	UserID       string             `json:"user_id"`
	CompanyName  string             `json:"company_name"`
	VendorNumber string             `json:"vendor_number"`
	Email        string             `json:"email"`
	SubLabels    []string           `json:"sub_labels"`
	PayoutMethod string             `json:"payout_method"`
	BankDetails  map[string]string  `json:"bank_details"`
	Splits       []vendorSplitInput `json:"splits"`
}

type updateVendorRequest struct {
	UserID       string            `json:"user_id"`
	CompanyName  *string           `json:"company_name"`
	Email        *string           `json:"email"`
	SubLabels    []string          `json:"sub_labels"`
	PayoutMethod *string           `json:"payout_method"`
	BankDetails  map[string]string `json:"bank_details"`
	Status       *string           `json:"status"`
}

type splitRequest struct {
	UserID         string  `json:"user_id"`
	PlatformID     string  `json:"platform_id"`
	CommissionRate float64 `json:"commission_rate"`
}

// CreateVendor registers a payee with its matching sub-labels and optional
// per-platform split overrides, all in one transaction.
func CreateVendor(pgxPool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		var req createVendorRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			api.RespondWithError(w, http.StatusBadRequest, constants.ErrInvalidJSON)
			return
		}
		if !validateSession(req.UserID) {
			api.RespondWithError(w, http.StatusUnauthorized, constants.ErrInvalidSession)
			return
		}
		if req.CompanyName == "" || req.VendorNumber == "" {
			api.RespondWithError(w, http.StatusBadRequest, "company_name and vendor_number required")
			return
		}

		var exists bool
		if err := pgxPool.QueryRow(ctx, `
			SELECT EXISTS (SELECT 1 FROM mastervendor WHERE vendor_number = $1 OR (email <> '' AND email = $2))
		`, req.VendorNumber, req.Email).Scan(&exists); err != nil {
			api.RespondWithError(w, http.StatusInternalServerError, constants.ErrQueryFailed+err.Error())
			return
		}
		if exists {
			api.RespondWithError(w, http.StatusConflict, constants.ErrVendorExists)
			return
		}

		tx, err := pgxPool.Begin(ctx)
		if err != nil {
			api.RespondWithError(w, http.StatusInternalServerError, constants.ErrTxStartFailed+err.Error())
			return
		}
		defer tx.Rollback(ctx)

		if req.SubLabels == nil {
			req.SubLabels = []string{}
		}
		bankJSON, _ := json.Marshal(req.BankDetails)
		var vendorID string
		err = tx.QueryRow(ctx, `
			INSERT INTO mastervendor (company_name, vendor_number, email, sub_labels, payout_method, bank_details, status)
			VALUES ($1, $2, $3, $4, $5, $6, 'ACTIVE')
			RETURNING vendor_id
		`, req.CompanyName, req.VendorNumber, req.Email, req.SubLabels, req.PayoutMethod, bankJSON).Scan(&vendorID)
		if err != nil {
			api.RespondWithError(w, http.StatusInternalServerError, constants.ErrQueryFailed+err.Error())
			return
		}

		for _, split := range req.Splits {
			if _, err := tx.Exec(ctx, `
				INSERT INTO vendor_platform_split (vendor_id, platform_id, commission_rate)
				VALUES ($1, $2, $3)
			`, vendorID, split.PlatformID, split.CommissionRate); err != nil {
				api.RespondWithError(w, http.StatusInternalServerError, constants.ErrQueryFailed+err.Error())
				return
			}
		}

		if err := tx.Commit(ctx); err != nil {
			api.RespondWithError(w, http.StatusInternalServerError, constants.ErrTxCommitFailed+err.Error())
			return
		}

		api.LogInfo("vendor %s created (%s)", req.CompanyName, vendorID)
		api.RespondWithPayload(w, true, "", map[string]interface{}{
			"vendor_id":     vendorID,
			"company_name":  req.CompanyName,
			"vendor_number": req.VendorNumber,
			"sub_labels":    req.SubLabels,
			"splits":        len(req.Splits),
			"status":        "ACTIVE",
		})
	}
}

// GetVendors lists vendors with their sub-labels.
func GetVendors(pgxPool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if !validateSession(r.URL.Query().Get("user_id")) {
			api.RespondWithError(w, http.StatusUnauthorized, constants.ErrInvalidSession)
			return
		}

		rows, err := pgxPool.Query(ctx, `
			SELECT vendor_id, company_name, vendor_number, email,
			       COALESCE(sub_labels, '{}'), payout_method, status, created_at
			FROM mastervendor
			ORDER BY company_name
		`)
		if err != nil {
			api.RespondWithError(w, http.StatusInternalServerError, constants.ErrQueryFailed+err.Error())
			return
		}
		defer rows.Close()

		out := []map[string]interface{}{}
		for rows.Next() {
			var (
				vendorID, companyName, vendorNumber, email string
				subLabels                                  []string
				payoutMethod, status                       string
				createdAt                                  time.Time
			)
			if err := rows.Scan(&vendorID, &companyName, &vendorNumber, &email, &subLabels, &payoutMethod, &status, &createdAt); err != nil {
				api.RespondWithError(w, http.StatusInternalServerError, constants.ErrQueryFailed+err.Error())
				return
			}
			out = append(out, map[string]interface{}{
				"vendor_id":     vendorID,
				"company_name":  companyName,
				"vendor_number": vendorNumber,
				"email":         email,
				"sub_labels":    subLabels,
				"payout_method": payoutMethod,
				"status":        status,
				"created_at":    createdAt.Format(constants.DateTimeFormat),
			})
		}
		api.RespondWithPayload(w, true, "", out)
	}
}

// GetVendor returns one vendor with bank details and split overrides.
func GetVendor(pgxPool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if !validateSession(r.URL.Query().Get("user_id")) {
			api.RespondWithError(w, http.StatusUnauthorized, constants.ErrInvalidSession)
			return
		}
		vendorID := mux.Vars(r)["vendorID"]

		var (
			companyName, vendorNumber, email string
			subLabels                        []string
			payoutMethod, status             string
			bankJSON                         []byte
			createdAt                        time.Time
		)
		err := pgxPool.QueryRow(ctx, `
			SELECT company_name, vendor_number, email, COALESCE(sub_labels, '{}'),
			       payout_method, bank_details, status, created_at
			FROM mastervendor WHERE vendor_id = $1
		`, vendorID).Scan(&companyName, &vendorNumber, &email, &subLabels, &payoutMethod, &bankJSON, &status, &createdAt)
		if err == pgx.ErrNoRows {
			api.RespondWithError(w, http.StatusNotFound, constants.ErrVendorNotFound)
			return
		}
		if err != nil {
			api.RespondWithError(w, http.StatusInternalServerError, constants.ErrQueryFailed+err.Error())
			return
		}

		bankDetails := map[string]string{}
		if len(bankJSON) > 0 {
			json.Unmarshal(bankJSON, &bankDetails)
		}

		splits := []map[string]interface{}{}
		rows, err := pgxPool.Query(ctx, `
			SELECT s.split_id, s.platform_id, p.platform_name, s.commission_rate::text
			FROM vendor_platform_split s
			JOIN masterplatform p ON p.platform_id = s.platform_id
			WHERE s.vendor_id = $1
			ORDER BY p.platform_name
		`, vendorID)
		if err != nil {
			api.RespondWithError(w, http.StatusInternalServerError, constants.ErrQueryFailed+err.Error())
			return
		}
		for rows.Next() {
			var splitID, platformID, platformName, rate string
			if err := rows.Scan(&splitID, &platformID, &platformName, &rate); err == nil {
				splits = append(splits, map[string]interface{}{
					"split_id":        splitID,
					"platform_id":     platformID,
					"platform_name":   platformName,
					"commission_rate": rate,
				})
			}
		}
		rows.Close()

		api.RespondWithPayload(w, true, "", map[string]interface{}{
			"vendor_id":     vendorID,
			"company_name":  companyName,
			"vendor_number": vendorNumber,
			"email":         email,
			"sub_labels":    subLabels,
			"payout_method": payoutMethod,
			"bank_details":  bankDetails,
			"status":        status,
			"created_at":    createdAt.Format(constants.DateTimeFormat),
			"splits":        splits,
		})
	}
}

// UpdateVendor patches vendor fields. A non-nil sub_labels replaces the
// whole alias list; the nightly re-match sweep picks the change up.
func UpdateVendor(pgxPool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		var req updateVendorRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			api.RespondWithError(w, http.StatusBadRequest, constants.ErrInvalidJSON)
			return
		}
		if !validateSession(req.UserID) {
			api.RespondWithError(w, http.StatusUnauthorized, constants.ErrInvalidSession)
			return
		}
		vendorID := mux.Vars(r)["vendorID"]

		var bankJSON interface{}
		if req.BankDetails != nil {
			b, _ := json.Marshal(req.BankDetails)
			bankJSON = b
		}
		var subLabels interface{}
		if req.SubLabels != nil {
			subLabels = req.SubLabels
		}

		tag, err := pgxPool.Exec(ctx, `
			UPDATE mastervendor
			SET company_name  = COALESCE($1, company_name),
			    email         = COALESCE($2, email),
			    sub_labels    = COALESCE($3, sub_labels),
			    payout_method = COALESCE($4, payout_method),
			    bank_details  = COALESCE($5, bank_details),
			    status        = COALESCE($6, status)
			WHERE vendor_id = $7
		`, req.CompanyName, req.Email, subLabels, req.PayoutMethod, bankJSON, req.Status, vendorID)
		if err != nil {
			api.RespondWithError(w, http.StatusInternalServerError, constants.ErrQueryFailed+err.Error())
			return
		}
		if tag.RowsAffected() == 0 {
			api.RespondWithError(w, http.StatusNotFound, constants.ErrVendorNotFound)
			return
		}
		api.RespondWithResult(w, true, "")
	}
}

// CreateVendorSplit adds a per-platform commission override for a vendor.
func CreateVendorSplit(pgxPool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		var req splitRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			api.RespondWithError(w, http.StatusBadRequest, constants.ErrInvalidJSON)
			return
		}
		if !validateSession(req.UserID) {
			api.RespondWithError(w, http.StatusUnauthorized, constants.ErrInvalidSession)
			return
		}
		if req.PlatformID == "" {
			api.RespondWithError(w, http.StatusBadRequest, "platform_id required")
			return
		}
		vendorID := mux.Vars(r)["vendorID"]

		var exists bool
		if err := pgxPool.QueryRow(ctx, `
			SELECT EXISTS (SELECT 1 FROM vendor_platform_split WHERE vendor_id = $1 AND platform_id = $2)
		`, vendorID, req.PlatformID).Scan(&exists); err != nil {
			api.RespondWithError(w, http.StatusInternalServerError, constants.ErrQueryFailed+err.Error())
			return
		}
		if exists {
			api.RespondWithError(w, http.StatusConflict, constants.ErrSplitExists)
			return
		}

		var splitID string
		err := pgxPool.QueryRow(ctx, `
			INSERT INTO vendor_platform_split (vendor_id, platform_id, commission_rate)
			VALUES ($1, $2, $3)
			RETURNING split_id
		`, vendorID, req.PlatformID, req.CommissionRate).Scan(&splitID)
		if err != nil {
			api.RespondWithError(w, http.StatusInternalServerError, constants.ErrQueryFailed+err.Error())
			return
		}
		api.RespondWithPayload(w, true, "", map[string]interface{}{
			"split_id":        splitID,
			"vendor_id":       vendorID,
			"platform_id":     req.PlatformID,
			"commission_rate": req.CommissionRate,
		})
	}
}

// GetVendorSplits lists a vendor's split overrides.
func GetVendorSplits(pgxPool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if !validateSession(r.URL.Query().Get("user_id")) {
			api.RespondWithError(w, http.StatusUnauthorized, constants.ErrInvalidSession)
			return
		}
		vendorID := mux.Vars(r)["vendorID"]

		rows, err := pgxPool.Query(ctx, `
			SELECT s.split_id, s.platform_id, p.platform_name, s.commission_rate::text
			FROM vendor_platform_split s
			JOIN masterplatform p ON p.platform_id = s.platform_id
			WHERE s.vendor_id = $1
			ORDER BY p.platform_name
		`, vendorID)
		if err != nil {
			api.RespondWithError(w, http.StatusInternalServerError, constants.ErrQueryFailed+err.Error())
			return
		}
		defer rows.Close()

		out := []map[string]interface{}{}
		for rows.Next() {
			var splitID, platformID, platformName, rate string
			if err := rows.Scan(&splitID, &platformID, &platformName, &rate); err != nil {
				api.RespondWithError(w, http.StatusInternalServerError, constants.ErrQueryFailed+err.Error())
				return
			}
			out = append(out, map[string]interface{}{
				"split_id":        splitID,
				"platform_id":     platformID,
				"platform_name":   platformName,
				"commission_rate": rate,
			})
		}
		api.RespondWithPayload(w, true, "", out)
	}
}

// UpdateVendorSplit changes an override's commission rate.
func UpdateVendorSplit(pgxPool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		var req splitRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			api.RespondWithError(w, http.StatusBadRequest, constants.ErrInvalidJSON)
			return
		}
		if !validateSession(req.UserID) {
			api.RespondWithError(w, http.StatusUnauthorized, constants.ErrInvalidSession)
			return
		}
		vars := mux.Vars(r)

		tag, err := pgxPool.Exec(ctx, `
			UPDATE vendor_platform_split
			SET commission_rate = $1
			WHERE split_id = $2 AND vendor_id = $3
		`, req.CommissionRate, vars["splitID"], vars["vendorID"])
		if err != nil {
			api.RespondWithError(w, http.StatusInternalServerError, constants.ErrQueryFailed+err.Error())
			return
		}
		if tag.RowsAffected() == 0 {
			api.RespondWithError(w, http.StatusNotFound, constants.ErrSplitNotFound)
			return
		}
		api.RespondWithResult(w, true, "")
	}
}
