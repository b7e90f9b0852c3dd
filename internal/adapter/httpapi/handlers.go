package httpapi

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/homefin/homefin-backend/internal/domain"
)

type netWorthPoint struct {
	Year  int `json:"year"`
	Month int `json:"month"`

	WalletBalances         decimal.Decimal `json:"walletBalances"`
	NegativeWalletBalances decimal.Decimal `json:"negativeWalletBalances"`
	Investments            decimal.Decimal `json:"investments"`
	CreditCardDebt         decimal.Decimal `json:"creditCardDebt"`
	RecurringIncome        decimal.Decimal `json:"recurringIncome"`
	RecurringExpenses      decimal.Decimal `json:"recurringExpenses"`
	Assets                 decimal.Decimal `json:"assets"`
	Liabilities            decimal.Decimal `json:"liabilities"`
	NetWorth               decimal.Decimal `json:"netWorth"`

	CalculatedAt time.Time `json:"calculatedAt"`
}

type performancePoint struct {
	Year  int `json:"year"`
	Month int `json:"month"`

	InvestedValue           decimal.Decimal `json:"investedValue"`
	PortfolioValue          decimal.Decimal `json:"portfolioValue"`
	AccumulatedCapitalGains decimal.Decimal `json:"accumulatedCapitalGains"`
	MonthlyCapitalGains     decimal.Decimal `json:"monthlyCapitalGains"`

	CalculatedAt time.Time `json:"calculatedAt"`
}

type statusResponse struct {
	Calculating bool `json:"calculating"`
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) getNetWorthSeries(w http.ResponseWriter, r *http.Request) {
	series, err := h.netWorth.Series(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	points := make([]netWorthPoint, 0, len(series))
	for _, s := range series {
		points = append(points, toNetWorthPoint(s))
	}
	writeJSON(w, http.StatusOK, points)
}

func (h *handler) recalculateNetWorth(w http.ResponseWriter, r *http.Request) {
	_, started := h.netWorth.RecalculateAll()
	writeJSON(w, http.StatusAccepted, map[string]bool{
		"started":     started,
		"calculating": true,
	})
}

func (h *handler) netWorthStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, statusResponse{Calculating: h.netWorth.IsCalculating()})
}

func (h *handler) getPerformanceSeries(w http.ResponseWriter, r *http.Request) {
	series, err := h.performance.Series(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	points := make([]performancePoint, 0, len(series))
	for _, s := range series {
		points = append(points, toPerformancePoint(s))
	}
	writeJSON(w, http.StatusOK, points)
}

func (h *handler) recalculatePerformance(w http.ResponseWriter, r *http.Request) {
	_, started := h.performance.RecalculateAll()
	writeJSON(w, http.StatusAccepted, map[string]bool{
		"started":     started,
		"calculating": true,
	})
}

func (h *handler) performanceStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, statusResponse{Calculating: h.performance.IsCalculating()})
}

func toNetWorthPoint(s *domain.NetWorthSnapshot) netWorthPoint {
	return netWorthPoint{
		Year:                   s.Month.Year,
		Month:                  int(s.Month.Month),
		WalletBalances:         s.WalletBalances,
		NegativeWalletBalances: s.NegativeWalletBalances,
		Investments:            s.Investments,
		CreditCardDebt:         s.CreditCardDebt,
		RecurringIncome:        s.RecurringIncome,
		RecurringExpenses:      s.RecurringExpenses,
		Assets:                 s.Assets,
		Liabilities:            s.Liabilities,
		NetWorth:               s.NetWorth,
		CalculatedAt:           s.CalculatedAt,
	}
}

func toPerformancePoint(s *domain.PerformanceSnapshot) performancePoint {
	return performancePoint{
		Year:                    s.Month.Year,
		Month:                   int(s.Month.Month),
		InvestedValue:           s.InvestedValue,
		PortfolioValue:          s.PortfolioValue,
		AccumulatedCapitalGains: s.AccumulatedCapitalGains,
		MonthlyCapitalGains:     s.MonthlyCapitalGains,
		CalculatedAt:            s.CalculatedAt,
	}
}
