// Package metrics provides Prometheus instrumentation for the portfolio service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// PortfolioQueries counts holdings/profit/tax computations by operation and outcome.
	PortfolioQueries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "portfolio_queries_total",
		Help: "Portfolio computations by operation and outcome",
	}, []string{"operation", "outcome"})

	// PortfolioQueryDuration tracks computation latency by operation.
	PortfolioQueryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "portfolio_query_duration_seconds",
		Help:    "Portfolio computation latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	// PriceLookupFailures counts listing lookups that produced no price.
	PriceLookupFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "portfolio_price_lookup_failures_total",
		Help: "Listing lookups that failed, by asset kind",
	}, []string{"asset_kind"})

	// SkippedHoldings counts holdings dropped because the asset could not be classified.
	SkippedHoldings = promauto.NewCounter(prometheus.CounterOpts{
		Name: "portfolio_skipped_holdings_total",
		Help: "Holdings skipped due to unclassifiable assets",
	})

	// FXCacheLookups counts exchange rate cache hits and misses.
	FXCacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "portfolio_fx_cache_lookups_total",
		Help: "Exchange rate cache lookups by result",
	}, []string{"result"})

	// OrdersIngested counts order events processed by the ledger consumer.
	OrdersIngested = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "portfolio_orders_ingested_total",
		Help: "Order events consumed by result",
	}, []string{"result"})

	// HTTPRequestsTotal counts HTTP requests by method, route, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "portfolio_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})

	// HTTPRequestDuration tracks request duration by method and route.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "portfolio_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
	}, []string{"method", "path"})
)

// ObserveQuery records the outcome and latency of a portfolio computation.
func ObserveQuery(operation string, start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	PortfolioQueries.WithLabelValues(operation, outcome).Inc()
	PortfolioQueryDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware records request metrics labelled with the mux route template.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		// Route templates keep label cardinality bounded.
		path := r.URL.Path
		if route := mux.CurrentRoute(r); route != nil {
			if tmpl, err := route.GetPathTemplate(); err == nil {
				path = tmpl
			}
		}
		HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.status)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
