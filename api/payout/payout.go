package payout

import (
	"log"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
)

func StartPayoutService(pgxPool *pgxpool.Pool) {
	r := mux.NewRouter()
	r.HandleFunc("/payout/vendors/{vendorID}/summaries", GetPayoutSummaries(pgxPool)).Methods(http.MethodGet)
	r.HandleFunc("/payout/create", CreatePayout(pgxPool)).Methods(http.MethodPost)
	r.HandleFunc("/payout/list", GetPayouts(pgxPool)).Methods(http.MethodGet)
	r.HandleFunc("/payout/{payoutID}/settle", SettlePayout(pgxPool)).Methods(http.MethodPost)
	r.HandleFunc("/payout/{payoutID}/export", ExportPayoutStatement(pgxPool)).Methods(http.MethodGet)
	r.HandleFunc("/payout/{payoutID}", GetPayout(pgxPool)).Methods(http.MethodGet)
	log.Println("Payout Service started on :9143")
	err := http.ListenAndServe(":9143", r)
	if err != nil {
		log.Fatalf("Payout Service failed: %v", err)
	}
}
