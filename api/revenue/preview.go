package revenue

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"RoyaltyDesk/api"
	"RoyaltyDesk/api/auth"
	"RoyaltyDesk/api/constants"
	"RoyaltyDesk/api/revenue/sheetparser"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PreviewRoyaltyStatement parses an uploaded file without persisting
// anything. It reports the detected header row, the header columns, a
// handful of sample rows and a best-effort column mapping suggestion so the
// client can confirm or correct the mapping before the real upload.
func PreviewRoyaltyStatement(pgxPool *pgxpool.Pool) http.HandlerFunc {
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

		var (
			platformName  string
			strategyKey   *string
			tmplHeaderIdx *int
		)
		err := pgxPool.QueryRow(ctx, `
			SELECT p.platform_name, p.strategy_key, t.header_row_index
			FROM masterplatform p
			LEFT JOIN mapping_template t ON t.platform_id = p.platform_id
			WHERE p.platform_id = $1
		`, platformID).Scan(&platformName, &strategyKey, &tmplHeaderIdx)
		if err == pgx.ErrNoRows {
			api.RespondWithError(w, http.StatusNotFound, constants.ErrPlatformNotFound)
			return
		}
		if err != nil {
			api.RespondWithError(w, http.StatusInternalServerError, constants.ErrQueryFailed+err.Error())
			return
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

		rawRows, err := sheetparser.ParseFile(data, fileHeader.Filename)
		if err != nil {
			if errors.Is(err, sheetparser.ErrUnsupportedFormat) {
				api.RespondWithError(w, http.StatusBadRequest, constants.ErrUnsupportedFileFormat)
			} else {
				api.RespondWithError(w, http.StatusBadRequest, constants.ErrInvalidOrEmptyFile)
			}
			return
		}

		// a stored template pins the header, otherwise scan for it
		headerIdx := sheetparser.ScanForHeader(rawRows)
		if tmplHeaderIdx != nil && *tmplHeaderIdx >= 0 && *tmplHeaderIdx < len(rawRows) {
			headerIdx = *tmplHeaderIdx
		}

		if headerIdx < 0 || headerIdx >= len(rawRows) {
			// no header found, hand back the top of the file as-is
			limit := len(rawRows)
			if limit > 10 {
				limit = 10
			}
			api.RespondWithPayload(w, true, "", map[string]interface{}{
				"platform_name":     platformName,
				"header_row_index":  -1,
				"detected_headers":  []string{},
				"sample_rows":       rawRows[:limit],
				"suggested_mapping": map[string]string{},
				"metadata":          map[string]string{},
			})
			return
		}

		detectedHeaders := []string{}
		for _, cell := range rawRows[headerIdx] {
			if name := strings.TrimSpace(cell); name != "" {
				detectedHeaders = append(detectedHeaders, name)
			}
		}

		metadata, _ := sheetparser.ExtractMetadata(rawRows[:headerIdx])

		mapped := sheetparser.MapRows(rawRows, headerIdx)
		sampleLimit := len(mapped)
		if sampleLimit > 5 {
			sampleLimit = 5
		}
		sampleRows := make([]map[string]string, 0, sampleLimit)
		for _, row := range mapped[:sampleLimit] {
			sampleRows = append(sampleRows, row.Cells)
		}

		api.RespondWithPayload(w, true, "", map[string]interface{}{
			"platform_name":     platformName,
			"header_row_index":  headerIdx,
			"detected_headers":  detectedHeaders,
			"sample_rows":       sampleRows,
			"suggested_mapping": suggestMapping(detectedHeaders),
			"metadata":          metadata,
		})
	}
}

// suggestMapping guesses which header column feeds each canonical field.
// First plausible column wins per field.
func suggestMapping(headers []string) map[string]string {
	suggestion := map[string]string{}
	assign := func(field, column string) {
		if _, taken := suggestion[field]; !taken {
			suggestion[field] = column
		}
	}
	for _, header := range headers {
		h := strings.ToLower(header)
		switch {
		case strings.Contains(h, "studio") || strings.Contains(h, "label") || strings.Contains(h, "vendor"):
			assign(constants.FieldRawVendorName, header)
		case strings.Contains(h, "total") || strings.Contains(h, "amount") || strings.Contains(h, "payout") ||
			strings.Contains(h, "revenue") || strings.Contains(h, "earning") || strings.Contains(h, "net"):
			assign(constants.FieldGrossRevenue, header)
		case strings.Contains(h, "title") || strings.Contains(h, "video") || strings.Contains(h, "name"):
			assign(constants.FieldLineItemName, header)
		}
	}
	return suggestion
}
