package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/trogers1052/portfolio-service/internal/metrics"
)

// Authenticator wraps handlers that require a bearer identity
type Authenticator interface {
	Middleware(next http.Handler) http.Handler
}

// SetupRoutes configures all API routes
func SetupRoutes(handler *Handler, authn Authenticator, allowedOrigins []string) http.Handler {
	r := mux.NewRouter()
	r.Use(metrics.Middleware)

	r.HandleFunc("/health", handler.HealthCheck).Methods("GET")
	r.Handle("/metrics", metrics.Handler()).Methods("GET")

	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(authn.Middleware)
	api.HandleFunc("/securities/me", handler.GetHoldings).Methods("GET")
	api.HandleFunc("/securities/profit", handler.GetTotalProfit).Methods("GET")
	api.HandleFunc("/securities/tax", handler.GetTaxSummary).Methods("GET")
	api.HandleFunc("/securities/tax/collect", handler.CollectTax).Methods("POST")

	c := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:         300,
	})
	return c.Handler(r)
}
