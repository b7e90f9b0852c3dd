package performance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/homefin/homefin-backend/internal/domain"
	"github.com/homefin/homefin-backend/internal/usecase/recalc"
	"github.com/homefin/homefin-backend/internal/usecase/valuation"
)

// Service aggregates monthly investment performance for the whole portfolio
// and maintains its snapshot cache. Same lifecycle as the net worth
// aggregator: past months are read through the cache, the current month is
// always recomputed, and a full rebuild runs under a single-flight guard.
type Service struct {
	SecurityRepo domain.SecurityRepository
	BondRepo     domain.BondRepository
	SnapshotRepo domain.PerformanceSnapshotRepository

	Valuation *valuation.Service

	guard  recalc.Guard
	logger *slog.Logger
	now    func() time.Time
}

// NewService creates a new performance Service instance
func NewService(
	securityRepo domain.SecurityRepository,
	bondRepo domain.BondRepository,
	snapshotRepo domain.PerformanceSnapshotRepository,
	valuationSvc *valuation.Service,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		SecurityRepo: securityRepo,
		BondRepo:     bondRepo,
		SnapshotRepo: snapshotRepo,
		Valuation:    valuationSvc,
		logger:       logger,
		now:          time.Now,
	}
}

// portfolioData is every operation record the aggregation needs, loaded once
// per series walk instead of once per month.
type portfolioData struct {
	securities          []*domain.Security
	purchasesBySecurity map[uuid.UUID][]*domain.SecurityPurchase
	salesBySecurity     map[uuid.UUID][]*domain.SecuritySale
	sales               []*domain.SecuritySale
	dividends           []*domain.Dividend
	bondOps             []*domain.BondOperation
}

// Series returns the performance snapshot for every month from the first
// investment operation through the current month, oldest first.
//
// Accumulated gains are a running total since inception, so the walk carries
// the total forward: cached months contribute their stored value, computed
// months extend it.
func (s *Service) Series(ctx context.Context) ([]*domain.PerformanceSnapshot, error) {
	data, err := s.loadData(ctx)
	if err != nil {
		return nil, err
	}

	earliest := earliestOperationMonth(data)
	if earliest == nil {
		return []*domain.PerformanceSnapshot{}, nil
	}

	current := domain.YearMonthOf(s.now())
	accumulated := decimal.Zero
	series := make([]*domain.PerformanceSnapshot, 0)
	for ym := *earliest; !ym.After(current); ym = ym.Next() {
		if ym != current {
			snapshot, err := s.SnapshotRepo.GetByMonth(ctx, ym)
			if err == nil {
				accumulated = snapshot.AccumulatedCapitalGains
				series = append(series, snapshot)
				continue
			}
			if !errors.Is(err, domain.ErrNotFound) {
				return nil, fmt.Errorf("failed to load performance snapshot for %s: %w", ym, err)
			}
		}

		snapshot, err := s.aggregate(ctx, data, ym, accumulated)
		if err != nil {
			return nil, err
		}
		if err := s.SnapshotRepo.Save(ctx, snapshot); err != nil {
			return nil, fmt.Errorf("failed to save performance snapshot for %s: %w", ym, err)
		}
		accumulated = snapshot.AccumulatedCapitalGains
		series = append(series, snapshot)
	}

	return series, nil
}

// RecalculateAll rebuilds the performance cache from scratch, coalescing
// concurrent requests onto the in-flight run.
func (s *Service) RecalculateAll() (*recalc.Handle, bool) {
	handle, started := s.guard.Run(func() error {
		ctx := context.Background()
		start := s.now()
		s.logger.Info("performance rebuild started")

		if err := s.rebuild(ctx); err != nil {
			s.logger.Error("performance rebuild failed", "error", err)
			return err
		}

		s.logger.Info("performance rebuild finished", "duration", s.now().Sub(start))
		return nil
	})
	return handle, started
}

// RecalculateIfEmpty starts a full rebuild when the performance cache has no
// rows at all. The handle is nil when snapshots already exist.
func (s *Service) RecalculateIfEmpty(ctx context.Context) (*recalc.Handle, bool, error) {
	has, err := s.SnapshotRepo.Has(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("failed to check performance snapshot cache: %w", err)
	}
	if has {
		return nil, false, nil
	}
	handle, started := s.RecalculateAll()
	return handle, started, nil
}

// IsCalculating reports whether a rebuild is currently in flight.
func (s *Service) IsCalculating() bool {
	return s.guard.Calculating()
}

func (s *Service) rebuild(ctx context.Context) error {
	if err := s.SnapshotRepo.DeleteAll(ctx); err != nil {
		return fmt.Errorf("failed to clear performance snapshots: %w", err)
	}

	data, err := s.loadData(ctx)
	if err != nil {
		return err
	}

	earliest := earliestOperationMonth(data)
	if earliest == nil {
		return nil
	}

	current := domain.YearMonthOf(s.now())
	accumulated := decimal.Zero
	for ym := *earliest; !ym.After(current); ym = ym.Next() {
		snapshot, err := s.aggregate(ctx, data, ym, accumulated)
		if err != nil {
			return err
		}
		if err := s.SnapshotRepo.Save(ctx, snapshot); err != nil {
			return fmt.Errorf("failed to save performance snapshot for %s: %w", ym, err)
		}
		accumulated = snapshot.AccumulatedCapitalGains
	}
	return nil
}

// aggregate computes one month's snapshot. Invested value is the cost basis
// still held at month end, portfolio value its market value, monthly gains
// the cash actually realized inside the month (dividends plus sale profits).
func (s *Service) aggregate(ctx context.Context, data *portfolioData, ym domain.YearMonth, prevAccumulated decimal.Decimal) (*domain.PerformanceSnapshot, error) {
	end := ym.EndTime()

	invested := decimal.Zero
	portfolio := decimal.Zero
	for _, sec := range data.securities {
		pos, err := s.Valuation.SecurityValueAt(ctx, sec, data.purchasesBySecurity[sec.ID], data.salesBySecurity[sec.ID], end)
		if err != nil {
			return nil, err
		}
		if pos.NegativeQuantity {
			continue
		}
		portfolio = portfolio.Add(pos.MarketValue)
		invested = invested.Add(securityCostBasisAt(data.purchasesBySecurity[sec.ID], data.salesBySecurity[sec.ID], end))
	}

	for _, pos := range s.Valuation.BondPositionsAt(data.bondOps, end) {
		if pos.NegativeQuantity {
			continue
		}
		portfolio = portfolio.Add(pos.MarketValue)
	}
	invested = invested.Add(bondCostBasisAt(data.bondOps, end))

	monthly := monthlyGains(data, ym)

	snapshot := &domain.PerformanceSnapshot{
		ID:                      uuid.New(),
		Month:                   ym,
		InvestedValue:           invested,
		PortfolioValue:          portfolio,
		MonthlyCapitalGains:     monthly,
		AccumulatedCapitalGains: prevAccumulated.Add(monthly),
		CalculatedAt:            s.now(),
	}

	s.logger.Debug("aggregated performance month",
		"month", ym.String(), "invested", invested, "portfolio", portfolio, "monthlyGains", monthly)
	return snapshot, nil
}

func (s *Service) loadData(ctx context.Context) (*portfolioData, error) {
	securities, err := s.SecurityRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list securities: %w", err)
	}
	purchases, err := s.SecurityRepo.ListPurchases(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list security purchases: %w", err)
	}
	sales, err := s.SecurityRepo.ListSales(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list security sales: %w", err)
	}
	dividends, err := s.SecurityRepo.ListDividends(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list dividends: %w", err)
	}
	bondOps, err := s.BondRepo.ListOperations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list bond operations: %w", err)
	}

	data := &portfolioData{
		securities:          securities,
		purchasesBySecurity: make(map[uuid.UUID][]*domain.SecurityPurchase),
		salesBySecurity:     make(map[uuid.UUID][]*domain.SecuritySale),
		sales:               sales,
		dividends:           dividends,
		bondOps:             bondOps,
	}
	for _, p := range purchases {
		data.purchasesBySecurity[p.SecurityID] = append(data.purchasesBySecurity[p.SecurityID], p)
	}
	for _, sale := range sales {
		data.salesBySecurity[sale.SecurityID] = append(data.salesBySecurity[sale.SecurityID], sale)
	}
	return data, nil
}

// earliestOperationMonth returns the month of the oldest investment
// operation of any kind, or nil for an empty portfolio.
func earliestOperationMonth(data *portfolioData) *domain.YearMonth {
	var earliest *time.Time
	consider := func(t time.Time) {
		if earliest == nil || t.Before(*earliest) {
			earliest = &t
		}
	}

	for _, purchases := range data.purchasesBySecurity {
		for _, p := range purchases {
			consider(p.Date)
		}
	}
	for _, sale := range data.sales {
		consider(sale.Date)
	}
	for _, d := range data.dividends {
		consider(d.Date)
	}
	for _, op := range data.bondOps {
		consider(op.Date)
	}

	if earliest == nil {
		return nil
	}
	ym := domain.YearMonthOf(*earliest)
	return &ym
}

// securityCostBasisAt replays the operation log into the acquisition cost of
// the units still held as of the date. Sells remove cost at the average cost
// captured on the sale record, so the basis is stable against later buys.
func securityCostBasisAt(purchases []*domain.SecurityPurchase, sales []*domain.SecuritySale, at time.Time) decimal.Decimal {
	cost := decimal.Zero
	for _, p := range purchases {
		if !p.Date.After(at) {
			cost = cost.Add(p.Quantity.Mul(p.UnitPrice))
		}
	}
	for _, s := range sales {
		if !s.Date.After(at) {
			cost = cost.Sub(s.Quantity.Mul(s.AverageCost))
		}
	}
	return cost
}

// bondCostBasisAt replays bond operations into the cost still invested as of
// the date. A sell removes its proceeds minus the recorded net profit, which
// is exactly the cost the sold units carried.
func bondCostBasisAt(operations []*domain.BondOperation, at time.Time) decimal.Decimal {
	cost := decimal.Zero
	for _, op := range operations {
		if op.Date.After(at) {
			continue
		}
		switch op.Type {
		case domain.OperationTypeBuy:
			cost = cost.Add(op.Quantity.Mul(op.UnitPrice))
		case domain.OperationTypeSell:
			proceeds := op.Quantity.Mul(op.UnitPrice)
			if op.NetProfit != nil {
				proceeds = proceeds.Sub(*op.NetProfit)
			}
			cost = cost.Sub(proceeds)
		}
	}
	return cost
}

// monthlyGains sums the capital gains realized inside the month: dividends
// received, profit on security sales over their average cost, and the net
// profit recorded on bond sells.
func monthlyGains(data *portfolioData, ym domain.YearMonth) decimal.Decimal {
	total := decimal.Zero
	for _, d := range data.dividends {
		if ym.Contains(d.Date) {
			total = total.Add(d.Amount)
		}
	}
	for _, sale := range data.sales {
		if ym.Contains(sale.Date) {
			profit := sale.UnitPrice.Sub(sale.AverageCost).Mul(sale.Quantity)
			total = total.Add(profit)
		}
	}
	for _, op := range data.bondOps {
		if op.Type == domain.OperationTypeSell && op.NetProfit != nil && ym.Contains(op.Date) {
			total = total.Add(*op.NetProfit)
		}
	}
	return total
}
