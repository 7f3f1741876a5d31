package master

import (
	"log"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
)

func StartMasterService(pgxPool *pgxpool.Pool) {
	r := mux.NewRouter()

	r.HandleFunc("/master/platforms", CreatePlatform(pgxPool)).Methods(http.MethodPost)
	r.HandleFunc("/master/platforms", GetPlatforms(pgxPool)).Methods(http.MethodGet)
	r.HandleFunc("/master/platforms/{platformID}", UpdatePlatform(pgxPool)).Methods(http.MethodPut)
	r.HandleFunc("/master/platforms/{platformID}/template", GetMappingTemplate(pgxPool)).Methods(http.MethodGet)
	r.HandleFunc("/master/platforms/{platformID}/template", UpsertMappingTemplate(pgxPool)).Methods(http.MethodPut)

	r.HandleFunc("/master/vendors", CreateVendor(pgxPool)).Methods(http.MethodPost)
	r.HandleFunc("/master/vendors", GetVendors(pgxPool)).Methods(http.MethodGet)
	r.HandleFunc("/master/vendors/{vendorID}", GetVendor(pgxPool)).Methods(http.MethodGet)
	r.HandleFunc("/master/vendors/{vendorID}", UpdateVendor(pgxPool)).Methods(http.MethodPut)
	r.HandleFunc("/master/vendors/{vendorID}/splits", CreateVendorSplit(pgxPool)).Methods(http.MethodPost)
	r.HandleFunc("/master/vendors/{vendorID}/splits", GetVendorSplits(pgxPool)).Methods(http.MethodGet)
	r.HandleFunc("/master/vendors/{vendorID}/splits/{splitID}", UpdateVendorSplit(pgxPool)).Methods(http.MethodPut)

	log.Println("Master Service started on :2143")
	err := http.ListenAndServe(":2143", r)
	if err != nil {
		log.Fatalf("Master Service failed: %v", err)
	}
}
