package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/linesmerrill/autodoc-api/models"
)

// New creates a new mux router with the health route
func New() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/health", healthCheckHandler).Methods("GET")

	return r
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(models.HealthCheckResponse{Alive: true})
}
