package api

import (
	"net/http"

	"github.com/gorilla/mux"
)

// NewRouter wires the report API routes. metrics may be nil.
func NewRouter(h *Handler, metrics http.Handler) *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/health", h.health).Methods("GET")
	r.HandleFunc("/ping", h.ping).Methods("GET")
	r.HandleFunc("/reports", h.triggerReport).Methods("POST")
	r.HandleFunc("/reports/{id}", h.getReport).Methods("GET")
	r.HandleFunc("/reports/{id}/download", h.downloadReport).Methods("GET")
	if metrics != nil {
		r.Handle("/metrics", metrics).Methods("GET")
	}

	return r
}
