package httpapi

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/homefin/homefin-backend/internal/domain"
	"github.com/homefin/homefin-backend/internal/usecase/recalc"
)

// NetWorthService is the surface the HTTP layer needs from the net worth
// aggregator.
type NetWorthService interface {
	Series(ctx context.Context) ([]*domain.NetWorthSnapshot, error)
	RecalculateAll() (*recalc.Handle, bool)
	IsCalculating() bool
}

// PerformanceService is the surface the HTTP layer needs from the
// investment performance aggregator.
type PerformanceService interface {
	Series(ctx context.Context) ([]*domain.PerformanceSnapshot, error)
	RecalculateAll() (*recalc.Handle, bool)
	IsCalculating() bool
}

// NewRouter builds the HTTP API router.
func NewRouter(netWorth NetWorthService, performance PerformanceService) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	h := &handler{netWorth: netWorth, performance: performance}

	r.Get("/api/health", h.health)

	r.Get("/api/networth/series", h.getNetWorthSeries)
	r.Post("/api/networth/recalculate", h.recalculateNetWorth)
	r.Get("/api/networth/status", h.netWorthStatus)

	r.Get("/api/performance", h.getPerformanceSeries)
	r.Post("/api/performance/recalculate", h.recalculatePerformance)
	r.Get("/api/performance/status", h.performanceStatus)

	return r
}

type handler struct {
	netWorth    NetWorthService
	performance PerformanceService
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
