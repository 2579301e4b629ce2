package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/trogers1052/portfolio-service/internal/auth"
	"github.com/trogers1052/portfolio-service/internal/currency"
	"github.com/trogers1052/portfolio-service/internal/models"
	"github.com/trogers1052/portfolio-service/internal/portfolio"
	"github.com/trogers1052/portfolio-service/internal/pricing"
	"go.uber.org/zap"
)

// DefaultProfitCurrency is used when the profit request names no currency
const DefaultProfitCurrency = models.CurrencyUSD

// PortfolioService is the read side the handlers expose
type PortfolioService interface {
	Holdings(ctx context.Context, userID uuid.UUID) ([]models.Holding, error)
	TotalProfit(ctx context.Context, userID uuid.UUID, kind models.AssetKind, target models.CurrencyCode) (models.MonetaryAmount, error)
	TaxSummary(ctx context.Context, userID uuid.UUID) (models.TaxSummary, error)
	CollectTax(ctx context.Context) ([]portfolio.TaxSnapshot, error)
}

// TaxPublisher publishes collected tax snapshots
type TaxPublisher interface {
	PublishTaxSnapshots(ctx context.Context, snapshots []portfolio.TaxSnapshot) error
}

// Pinger reports backing store health
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	service   PortfolioService
	publisher TaxPublisher
	db        Pinger
	logger    *zap.Logger
}

// NewHandler creates a new Handler. A nil publisher computes tax snapshots
// without publishing them.
func NewHandler(service PortfolioService, publisher TaxPublisher, db Pinger, logger *zap.Logger) *Handler {
	return &Handler{
		service:   service,
		publisher: publisher,
		db:        db,
		logger:    logger,
	}
}

// GetHoldings handles GET /api/v1/securities/me
func (h *Handler) GetHoldings(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.UserIDFromContext(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	holdings, err := h.service.Holdings(r.Context(), userID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	resp := make([]models.HoldingResponse, 0, len(holdings))
	for i := range holdings {
		resp = append(resp, holdings[i].ToResponse())
	}
	respondJSON(w, http.StatusOK, resp)
}

// GetTotalProfit handles GET /api/v1/securities/profit?currency=XXX
func (h *Handler) GetTotalProfit(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.UserIDFromContext(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	target := DefaultProfitCurrency
	if raw := r.URL.Query().Get("currency"); raw != "" {
		if target, err = models.ParseCurrencyCode(raw); err != nil {
			respondJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
			return
		}
	}

	total, err := h.service.TotalProfit(r.Context(), userID, models.AssetKindStock, target)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, models.TotalProfitResponse{
		TotalProfit: total.Amount,
		Currency:    total.Currency,
	})
}

// GetTaxSummary handles GET /api/v1/securities/tax
func (h *Handler) GetTaxSummary(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.UserIDFromContext(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	summary, err := h.service.TaxSummary(r.Context(), userID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, summary)
}

// CollectTax handles POST /api/v1/securities/tax/collect
func (h *Handler) CollectTax(w http.ResponseWriter, r *http.Request) {
	if err := auth.RequireRole(r.Context(), auth.RoleSupervisor, auth.RoleAdmin); err != nil {
		h.respondError(w, r, err)
		return
	}

	snapshots, err := h.service.CollectTax(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	published := false
	if h.publisher != nil {
		if err := h.publisher.PublishTaxSnapshots(r.Context(), snapshots); err != nil {
			h.respondError(w, r, err)
			return
		}
		published = true
	}

	h.logger.Info("tax collection finished",
		zap.Int("users", len(snapshots)),
		zap.Bool("published", published))

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"collected": len(snapshots),
		"published": published,
	})
}

// HealthCheck handles GET /health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if h.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.db.Ping(ctx); err != nil {
			respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
			return
		}
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

type errorResponse struct {
	Error string `json:"error"`
}

// statusFor maps domain errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, auth.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, auth.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, pricing.ErrPriceUnavailable),
		errors.Is(err, currency.ErrConversionUnavailable):
		return http.StatusFailedDependency
	case errors.Is(err, models.ErrCurrencyMismatch):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := http.StatusText(status)
	detailed := status == http.StatusFailedDependency || status == http.StatusUnprocessableEntity
	if detailed {
		msg = err.Error()
	}

	if status >= http.StatusInternalServerError || detailed {
		h.logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", status),
			zap.Error(err))
	}
	respondJSON(w, status, errorResponse{Error: msg})
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
