package master

import (
	"encoding/json"
	"net/http"
	"time"

	"RoyaltyDesk/api"
	"RoyaltyDesk/api/auth"
	"RoyaltyDesk/api/constants"

	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type createPlatformRequest struct {
	UserID       string   `json:"user_id"`
	PlatformName string   `json:"platform_name"`
	StrategyKey  *string  `json:"strategy_key"`
	DefaultSplit *float64 `json:"default_split"`
}

type updatePlatformRequest struct {
	UserID       string   `json:"user_id"`
	StrategyKey  *string  `json:"strategy_key"`
	DefaultSplit *float64 `json:"default_split"`
	Status       *string  `json:"status"`
}

type upsertTemplateRequest struct {
	UserID         string            `json:"user_id"`
	HeaderRowIndex int               `json:"header_row_index"`
	MappingRules   map[string]string `json:"mapping_rules"`
}

func validateSession(userID string) bool {
	if userID == "" {
		return false
	}
	for _, session := range auth.GetActiveSessions() {
		if session.UserID == userID {
			return true
		}
	}
	return false
}

// CreatePlatform registers a revenue platform. Names are unique; the
// strategy key and default split are optional and can be set later.
func CreatePlatform(pgxPool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		var req createPlatformRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			api.RespondWithError(w, http.StatusBadRequest, constants.ErrInvalidJSON)
			return
		}
		if !validateSession(req.UserID) {
			api.RespondWithError(w, http.StatusUnauthorized, constants.ErrInvalidSession)
			return
		}
		if req.PlatformName == "" {
			api.RespondWithError(w, http.StatusBadRequest, "platform_name required")
			return
		}

		var exists bool
		if err := pgxPool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM masterplatform WHERE platform_name = $1)`, req.PlatformName).Scan(&exists); err != nil {
			api.RespondWithError(w, http.StatusInternalServerError, constants.ErrQueryFailed+err.Error())
			return
		}
		if exists {
			api.RespondWithError(w, http.StatusConflict, constants.ErrPlatformExists)
			return
		}

		defaultSplit := 0.0
		if req.DefaultSplit != nil {
			defaultSplit = *req.DefaultSplit
		}
		var platformID string
		err := pgxPool.QueryRow(ctx, `
			INSERT INTO masterplatform (platform_name, strategy_key, default_split, status)
			VALUES ($1, $2, $3, 'ACTIVE')
			RETURNING platform_id
		`, req.PlatformName, req.StrategyKey, defaultSplit).Scan(&platformID)
		if err != nil {
			api.RespondWithError(w, http.StatusInternalServerError, constants.ErrQueryFailed+err.Error())
			return
		}

		api.LogInfo("platform %s created (%s)", req.PlatformName, platformID)
		api.RespondWithPayload(w, true, "", map[string]interface{}{
			"platform_id":   platformID,
			"platform_name": req.PlatformName,
			"strategy_key":  req.StrategyKey,
			"default_split": defaultSplit,
			"status":        "ACTIVE",
		})
	}
}

// GetPlatforms lists platforms with their template presence flag.
func GetPlatforms(pgxPool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if !validateSession(r.URL.Query().Get("user_id")) {
			api.RespondWithError(w, http.StatusUnauthorized, constants.ErrInvalidSession)
			return
		}

		rows, err := pgxPool.Query(ctx, `
			SELECT p.platform_id, p.platform_name, p.strategy_key, p.default_split::text, p.status,
			       p.created_at, (t.template_id IS NOT NULL) AS has_template
			FROM masterplatform p
			LEFT JOIN mapping_template t ON t.platform_id = p.platform_id
			ORDER BY p.platform_name
		`)
		if err != nil {
			api.RespondWithError(w, http.StatusInternalServerError, constants.ErrQueryFailed+err.Error())
			return
		}
		defer rows.Close()

		out := []map[string]interface{}{}
		for rows.Next() {
			var (
				platformID, platformName  string
				strategyKey               *string
				defaultSplit, status      string
				createdAt                 time.Time
				hasTemplate               bool
			)
			if err := rows.Scan(&platformID, &platformName, &strategyKey, &defaultSplit, &status, &createdAt, &hasTemplate); err != nil {
				api.RespondWithError(w, http.StatusInternalServerError, constants.ErrQueryFailed+err.Error())
				return
			}
			out = append(out, map[string]interface{}{
				"platform_id":   platformID,
				"platform_name": platformName,
				"strategy_key":  strategyKey,
				"default_split": defaultSplit,
				"status":        status,
				"created_at":    createdAt.Format(constants.DateTimeFormat),
				"has_template":  hasTemplate,
			})
		}
		api.RespondWithPayload(w, true, "", out)
	}
}

// UpdatePlatform patches a platform's strategy key, default split or
// status. Omitted fields keep their value.
func UpdatePlatform(pgxPool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		var req updatePlatformRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			api.RespondWithError(w, http.StatusBadRequest, constants.ErrInvalidJSON)
			return
		}
		if !validateSession(req.UserID) {
			api.RespondWithError(w, http.StatusUnauthorized, constants.ErrInvalidSession)
			return
		}
		platformID := mux.Vars(r)["platformID"]

		tag, err := pgxPool.Exec(ctx, `
			UPDATE masterplatform
			SET strategy_key  = COALESCE($1, strategy_key),
			    default_split = COALESCE($2, default_split),
			    status        = COALESCE($3, status)
			WHERE platform_id = $4
		`, req.StrategyKey, req.DefaultSplit, req.Status, platformID)
		if err != nil {
			api.RespondWithError(w, http.StatusInternalServerError, constants.ErrQueryFailed+err.Error())
			return
		}
		if tag.RowsAffected() == 0 {
			api.RespondWithError(w, http.StatusNotFound, constants.ErrPlatformNotFound)
			return
		}
		api.RespondWithResult(w, true, "")
	}
}

// GetMappingTemplate returns a platform's stored column mapping.
func GetMappingTemplate(pgxPool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if !validateSession(r.URL.Query().Get("user_id")) {
			api.RespondWithError(w, http.StatusUnauthorized, constants.ErrInvalidSession)
			return
		}
		platformID := mux.Vars(r)["platformID"]

		var (
			templateID     string
			headerRowIndex int
			rulesJSON      []byte
			updatedAt      time.Time
		)
		err := pgxPool.QueryRow(ctx, `
			SELECT template_id, header_row_index, mapping_rules, updated_at
			FROM mapping_template WHERE platform_id = $1
		`, platformID).Scan(&templateID, &headerRowIndex, &rulesJSON, &updatedAt)
		if err == pgx.ErrNoRows {
			api.RespondWithError(w, http.StatusNotFound, "No mapping template for this platform")
			return
		}
		if err != nil {
			api.RespondWithError(w, http.StatusInternalServerError, constants.ErrQueryFailed+err.Error())
			return
		}

		rules := map[string]string{}
		json.Unmarshal(rulesJSON, &rules)
		api.RespondWithPayload(w, true, "", map[string]interface{}{
			"template_id":      templateID,
			"platform_id":      platformID,
			"header_row_index": headerRowIndex,
			"mapping_rules":    rules,
			"updated_at":       updatedAt.Format(constants.DateTimeFormat),
		})
	}
}

// UpsertMappingTemplate stores or replaces a platform's column mapping.
// Last writer wins; uploads pick up the new mapping immediately.
func UpsertMappingTemplate(pgxPool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		var req upsertTemplateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			api.RespondWithError(w, http.StatusBadRequest, constants.ErrInvalidJSON)
			return
		}
		if !validateSession(req.UserID) {
			api.RespondWithError(w, http.StatusUnauthorized, constants.ErrInvalidSession)
			return
		}
		if len(req.MappingRules) == 0 {
			api.RespondWithError(w, http.StatusBadRequest, "mapping_rules must not be empty")
			return
		}
		if req.HeaderRowIndex < 0 {
			api.RespondWithError(w, http.StatusBadRequest, "header_row_index must be >= 0")
			return
		}
		platformID := mux.Vars(r)["platformID"]

		var exists bool
		if err := pgxPool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM masterplatform WHERE platform_id = $1)`, platformID).Scan(&exists); err != nil {
			api.RespondWithError(w, http.StatusInternalServerError, constants.ErrQueryFailed+err.Error())
			return
		}
		if !exists {
			api.RespondWithError(w, http.StatusNotFound, constants.ErrPlatformNotFound)
			return
		}

		rulesJSON, _ := json.Marshal(req.MappingRules)
		var templateID string
		err := pgxPool.QueryRow(ctx, `
			INSERT INTO mapping_template (platform_id, header_row_index, mapping_rules, updated_at)
			VALUES ($1, $2, $3, now())
			ON CONFLICT (platform_id) DO UPDATE SET
				header_row_index = EXCLUDED.header_row_index,
				mapping_rules    = EXCLUDED.mapping_rules,
				updated_at       = now()
			RETURNING template_id
		`, platformID, req.HeaderRowIndex, rulesJSON).Scan(&templateID)
		if err != nil {
			api.RespondWithError(w, http.StatusInternalServerError, constants.ErrQueryFailed+err.Error())
			return
		}

		api.RespondWithPayload(w, true, "", map[string]interface{}{
			"template_id":      templateID,
			"platform_id":      platformID,
			"header_row_index": req.HeaderRowIndex,
			"mapping_rules":    req.MappingRules,
		})
	}
}
