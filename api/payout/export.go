package payout

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"time"

	"RoyaltyDesk/api"
	"RoyaltyDesk/api/auth"
	"RoyaltyDesk/api/constants"

	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

type exportRecord struct {
	PlatformName string
	PeriodStart  time.Time
	LineItemName string
	Gross        decimal.Decimal
	Commission   decimal.Decimal
	Net          decimal.Decimal
	Metadata     map[string]string
}

type exportGroup struct {
	PlatformName string
	Month        string
	Records      []exportRecord
	MetaKeys     []string
	Gross        decimal.Decimal
	Commission   decimal.Decimal
	Net          decimal.Decimal
}

// ExportPayoutStatement renders one payout as a downloadable workbook: a
// vendor header, a per platform-month summary, then a detail section per
// group. Detail columns are dynamic since each platform carries its own
// metadata keys.
func ExportPayoutStatement(pgxPool *pgxpool.Pool) http.HandlerFunc {
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
			payoutNumber              int64
			companyName, vendorNumber string
			totalAmount               string
			paymentDate               *time.Time
			createdAt                 time.Time
		)
		err := pgxPool.QueryRow(ctx, `
			SELECT p.payout_number, v.company_name, v.vendor_number,
			       p.total_amount::text, p.payment_date, p.created_at
			FROM payout p
			JOIN mastervendor v ON v.vendor_id = p.vendor_id
			WHERE p.payout_id = $1
		`, payoutID).Scan(&payoutNumber, &companyName, &vendorNumber, &totalAmount, &paymentDate, &createdAt)
		if err == pgx.ErrNoRows {
			api.RespondWithError(w, http.StatusNotFound, constants.ErrPayoutNotFound)
			return
		}
		if err != nil {
			api.RespondWithError(w, http.StatusInternalServerError, constants.ErrQueryFailed+err.Error())
			return
		}

		rows, err := pgxPool.Query(ctx, `
			SELECT mp.platform_name, rr.period_start, rr.line_item_name,
			       rr.gross_revenue::text, COALESCE(rr.commission_amount, 0)::text,
			       COALESCE(rr.net_amount, 0)::text, rr.metadata
			FROM revenue_record rr
			JOIN masterplatform mp ON mp.platform_id = rr.platform_id
			WHERE rr.payout_id = $1
			ORDER BY mp.platform_name, rr.period_start, rr.line_item_name
		`, payoutID)
		if err != nil {
			api.RespondWithError(w, http.StatusInternalServerError, constants.ErrQueryFailed+err.Error())
			return
		}

		records := []exportRecord{}
		for rows.Next() {
			var (
				rec                    exportRecord
				grossT, commT, netT    string
				metaJSON               []byte
			)
			if err := rows.Scan(&rec.PlatformName, &rec.PeriodStart, &rec.LineItemName,
				&grossT, &commT, &netT, &metaJSON); err != nil {
				rows.Close()
				api.RespondWithError(w, http.StatusInternalServerError, constants.ErrQueryFailed+err.Error())
				return
			}
			rec.Gross, _ = decimal.NewFromString(grossT)
			rec.Commission, _ = decimal.NewFromString(commT)
			rec.Net, _ = decimal.NewFromString(netT)
			rec.Metadata = map[string]string{}
			if len(metaJSON) > 0 {
				json.Unmarshal(metaJSON, &rec.Metadata)
			}
			records = append(records, rec)
		}
		rows.Close()

		groups := groupExportRecords(records)

		f := excelize.NewFile()
		defer f.Close()
		sheet := f.GetSheetName(0)

		row := 1
		setRow := func(values []interface{}) {
			f.SetSheetRow(sheet, fmt.Sprintf("A%d", row), &values)
			row++
		}

		setRow([]interface{}{"Vendor", companyName, vendorNumber})
		setRow([]interface{}{"Payout #", payoutNumber})
		dateLabel := createdAt.Format(constants.DateFormat)
		if paymentDate != nil {
			dateLabel = paymentDate.Format(constants.DateFormat)
		}
		setRow([]interface{}{"Date", dateLabel})
		setRow([]interface{}{"Total Payout", totalAmount})
		row++

		setRow([]interface{}{"Summary"})
		setRow([]interface{}{"Platform", "Month", "Gross", "Net Payout"})
		for _, g := range groups {
			setRow([]interface{}{g.PlatformName, g.Month, toFloat(g.Gross), toFloat(g.Net)})
		}
		row++

		for _, g := range groups {
			setRow([]interface{}{fmt.Sprintf("%s - %s", g.PlatformName, g.Month)})
			header := []interface{}{"Title"}
			for _, k := range g.MetaKeys {
				header = append(header, k)
			}
			header = append(header, "Gross", "Commission", "Net")
			setRow(header)
			for _, rec := range g.Records {
				line := []interface{}{rec.LineItemName}
				for _, k := range g.MetaKeys {
					line = append(line, rec.Metadata[k])
				}
				line = append(line, toFloat(rec.Gross), toFloat(rec.Commission), toFloat(rec.Net))
				setRow(line)
			}
			subtotal := []interface{}{"Subtotal"}
			for range g.MetaKeys {
				subtotal = append(subtotal, "")
			}
			subtotal = append(subtotal, toFloat(g.Gross), toFloat(g.Commission), toFloat(g.Net))
			setRow(subtotal)
			row++
		}

		w.Header().Set("Content-Type", constants.ContentTypeXLSX)
		w.Header().Set("Content-Disposition",
			fmt.Sprintf(`attachment; filename="payout_%d_%s.xlsx"`, payoutNumber, vendorNumber))
		if err := f.Write(w); err != nil {
			api.LogError("failed to stream payout workbook: %v", err)
		}
	}
}

// groupExportRecords buckets records by platform and month, collecting each
// bucket's metadata keys (sorted) and amount subtotals.
func groupExportRecords(records []exportRecord) []exportGroup {
	type key struct {
		platform string
		month    string
	}
	buckets := map[key]*exportGroup{}
	order := []key{}
	for _, rec := range records {
		k := key{platform: rec.PlatformName, month: rec.PeriodStart.Format(constants.MonthFormat)}
		g, ok := buckets[k]
		if !ok {
			g = &exportGroup{PlatformName: k.platform, Month: k.month}
			buckets[k] = g
			order = append(order, k)
		}
		g.Records = append(g.Records, rec)
		g.Gross = g.Gross.Add(rec.Gross)
		g.Commission = g.Commission.Add(rec.Commission)
		g.Net = g.Net.Add(rec.Net)
	}

	out := make([]exportGroup, 0, len(order))
	for _, k := range order {
		g := buckets[k]
		keySet := map[string]bool{}
		for _, rec := range g.Records {
			for mk := range rec.Metadata {
				keySet[mk] = true
			}
		}
		for mk := range keySet {
			g.MetaKeys = append(g.MetaKeys, mk)
		}
		sort.Strings(g.MetaKeys)
		out = append(out, *g)
	}
	return out
}

func toFloat(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}
