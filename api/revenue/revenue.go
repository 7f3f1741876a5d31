package revenue

import (
	"log"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
)

func StartRevenueService(pgxPool *pgxpool.Pool) {
	mux := http.NewServeMux()
	mux.HandleFunc("/revenue/preview", PreviewRoyaltyStatement(pgxPool))
	mux.HandleFunc("/revenue/upload", UploadRoyaltyStatement(pgxPool))
	mux.HandleFunc("/revenue/manual", CreateManualReport(pgxPool))
	mux.HandleFunc("/revenue/reports", GetRoyaltyReports(pgxPool))
	log.Println("Revenue Service started on :7143")
	err := http.ListenAndServe(":7143", mux)
	if err != nil {
		log.Fatalf("Revenue Service failed: %v", err)
	}
}
