package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/mguentner/mailtoken/config"
	"github.com/mguentner/mailtoken/middleware"
	"github.com/mguentner/mailtoken/operations"
	"github.com/mguentner/mailtoken/state"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
)

// NewRouter wires all endpoints. metrics may be nil to leave out /metrics.
func NewRouter(s *state.State, c *config.Config, flow *operations.Flow, metrics http.Handler) http.Handler {
	router := mux.NewRouter()
	router.HandleFunc("/api/login", RequestTokenHandler).Methods("POST")
	router.HandleFunc("/api/auth", AuthenticateHandler).Methods("POST")
	router.HandleFunc("/api/refresh", RefreshHandler).Methods("POST")
	router.HandleFunc("/api/keys", PublicKeyHandler).Methods("GET")
	router.HandleFunc("/api/tokens/{token}/status", TokenStatusHandler).Methods("GET")

	protectedRouter := router.PathPrefix("/api").Subrouter()
	protectedRouter.Use(middleware.WithJWTHandler)
	protectedRouter.HandleFunc("/info", ClaimsInfoHandler).Methods("GET")

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	router.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	if metrics != nil {
		router.Handle("/metrics", metrics)
	}
	corsHandler := cors.AllowAll().Handler(router)
	return middleware.WithRequestID(middleware.WithEnvironment(corsHandler, s, c, flow))
}

// DefaultMetricsHandler serves the default prometheus registry.
func DefaultMetricsHandler() http.Handler {
	return promhttp.Handler()
}
