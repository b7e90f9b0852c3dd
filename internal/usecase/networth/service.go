package networth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/homefin/homefin-backend/internal/domain"
	"github.com/homefin/homefin-backend/internal/usecase/balance"
	"github.com/homefin/homefin-backend/internal/usecase/carddebt"
	"github.com/homefin/homefin-backend/internal/usecase/recalc"
	"github.com/homefin/homefin-backend/internal/usecase/recurring"
	"github.com/homefin/homefin-backend/internal/usecase/valuation"
)

// Service aggregates the household's monthly net worth and maintains the
// snapshot cache behind it. Past months are read through the cache and
// computed at most once; the current month is always recomputed because the
// underlying data is still moving.
type Service struct {
	WalletRepo      domain.WalletRepository
	TransactionRepo domain.WalletTransactionRepository
	SecurityRepo    domain.SecurityRepository
	BondRepo        domain.BondRepository
	SnapshotRepo    domain.NetWorthSnapshotRepository

	Balance   *balance.Service
	CardDebt  *carddebt.Service
	Valuation *valuation.Service
	Projector *recurring.Projector

	guard  recalc.Guard
	logger *slog.Logger
	now    func() time.Time
}

// NewService creates a new net worth Service instance
func NewService(
	walletRepo domain.WalletRepository,
	transactionRepo domain.WalletTransactionRepository,
	securityRepo domain.SecurityRepository,
	bondRepo domain.BondRepository,
	snapshotRepo domain.NetWorthSnapshotRepository,
	balanceSvc *balance.Service,
	cardDebtSvc *carddebt.Service,
	valuationSvc *valuation.Service,
	projector *recurring.Projector,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		WalletRepo:      walletRepo,
		TransactionRepo: transactionRepo,
		SecurityRepo:    securityRepo,
		BondRepo:        bondRepo,
		SnapshotRepo:    snapshotRepo,
		Balance:         balanceSvc,
		CardDebt:        cardDebtSvc,
		Valuation:       valuationSvc,
		Projector:       projector,
		logger:          logger,
		now:             time.Now,
	}
}

// Series returns the net worth snapshot for every month from the first
// recorded wallet transaction through the current month, oldest first.
// Cached months are served as stored; missing past months are computed and
// written back; the current month is recomputed on every call.
func (s *Service) Series(ctx context.Context) ([]*domain.NetWorthSnapshot, error) {
	earliest, err := s.earliestMonth(ctx)
	if err != nil {
		return nil, err
	}
	if earliest == nil {
		return []*domain.NetWorthSnapshot{}, nil
	}

	current := domain.YearMonthOf(s.now())
	series := make([]*domain.NetWorthSnapshot, 0)
	for ym := *earliest; !ym.After(current); ym = ym.Next() {
		if ym == current {
			snapshot, err := s.AggregateMonth(ctx, ym)
			if err != nil {
				return nil, err
			}
			if err := s.SnapshotRepo.Save(ctx, snapshot); err != nil {
				return nil, fmt.Errorf("failed to save snapshot for %s: %w", ym, err)
			}
			series = append(series, snapshot)
			continue
		}

		snapshot, err := s.SnapshotRepo.GetByMonth(ctx, ym)
		if err == nil {
			series = append(series, snapshot)
			continue
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("failed to load snapshot for %s: %w", ym, err)
		}

		snapshot, err = s.AggregateMonth(ctx, ym)
		if err != nil {
			return nil, err
		}
		if err := s.SnapshotRepo.Save(ctx, snapshot); err != nil {
			return nil, fmt.Errorf("failed to save snapshot for %s: %w", ym, err)
		}
		series = append(series, snapshot)
	}

	return series, nil
}

// AggregateMonth computes the net worth snapshot for one month from scratch.
// Everything is valued as of the last instant of the month.
func (s *Service) AggregateMonth(ctx context.Context, ym domain.YearMonth) (*domain.NetWorthSnapshot, error) {
	end := ym.EndTime()

	positiveBalances, negativeBalances, err := s.walletBalances(ctx, end)
	if err != nil {
		return nil, err
	}

	investments, err := s.investmentsAt(ctx, end)
	if err != nil {
		return nil, err
	}

	cardDebt, err := s.CardDebt.DebtAt(ctx, end)
	if err != nil {
		return nil, err
	}

	recurringIncome, err := s.Projector.ProjectedAmount(ctx, domain.TransactionTypeIncome, ym)
	if err != nil {
		return nil, err
	}
	recurringExpenses, err := s.Projector.ProjectedAmount(ctx, domain.TransactionTypeExpense, ym)
	if err != nil {
		return nil, err
	}

	assets := positiveBalances.Add(investments).Add(recurringIncome)
	liabilities := cardDebt.Add(negativeBalances).Add(recurringExpenses)

	snapshot := &domain.NetWorthSnapshot{
		ID:                     uuid.New(),
		Month:                  ym,
		WalletBalances:         positiveBalances,
		NegativeWalletBalances: negativeBalances,
		Investments:            investments,
		CreditCardDebt:         cardDebt,
		RecurringIncome:        recurringIncome,
		RecurringExpenses:      recurringExpenses,
		Assets:                 assets,
		Liabilities:            liabilities,
		NetWorth:               assets.Sub(liabilities),
		CalculatedAt:           s.now(),
	}

	s.logger.Debug("aggregated net worth month",
		"month", ym.String(), "assets", assets, "liabilities", liabilities, "netWorth", snapshot.NetWorth)
	return snapshot, nil
}

// RecalculateAll rebuilds the whole snapshot cache: every existing snapshot
// is deleted and every month from the first transaction through the current
// month is recomputed and saved in ascending order.
//
// At most one rebuild runs at a time. If one is already in flight the
// returned handle belongs to it and started is false.
func (s *Service) RecalculateAll() (*recalc.Handle, bool) {
	handle, started := s.guard.Run(func() error {
		ctx := context.Background()
		start := s.now()
		s.logger.Info("net worth rebuild started")

		if err := s.rebuild(ctx); err != nil {
			s.logger.Error("net worth rebuild failed", "error", err)
			return err
		}

		s.logger.Info("net worth rebuild finished", "duration", s.now().Sub(start))
		return nil
	})
	return handle, started
}

// RecalculateIfEmpty starts a full rebuild when the snapshot cache has no
// rows at all, so a fresh database builds its history in the background
// instead of on the first series read. The handle is nil when snapshots
// already exist.
func (s *Service) RecalculateIfEmpty(ctx context.Context) (*recalc.Handle, bool, error) {
	has, err := s.SnapshotRepo.Has(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("failed to check snapshot cache: %w", err)
	}
	if has {
		return nil, false, nil
	}
	handle, started := s.RecalculateAll()
	return handle, started, nil
}

// IsCalculating reports whether a rebuild is currently in flight. Advisory
// only; the guard itself is what prevents concurrent rebuilds.
func (s *Service) IsCalculating() bool {
	return s.guard.Calculating()
}

func (s *Service) rebuild(ctx context.Context) error {
	if err := s.SnapshotRepo.DeleteAll(ctx); err != nil {
		return fmt.Errorf("failed to clear snapshots: %w", err)
	}

	earliest, err := s.earliestMonth(ctx)
	if err != nil {
		return err
	}
	if earliest == nil {
		// No transactions recorded yet. The cache stays empty, which is the
		// correct series for an empty dataset.
		return nil
	}

	current := domain.YearMonthOf(s.now())
	for ym := *earliest; !ym.After(current); ym = ym.Next() {
		snapshot, err := s.AggregateMonth(ctx, ym)
		if err != nil {
			return err
		}
		if err := s.SnapshotRepo.Save(ctx, snapshot); err != nil {
			return fmt.Errorf("failed to save snapshot for %s: %w", ym, err)
		}
	}
	return nil
}

// earliestMonth returns the month of the oldest transaction across all
// wallets, or nil when no wallet has any transactions.
func (s *Service) earliestMonth(ctx context.Context) (*domain.YearMonth, error) {
	wallets, err := s.WalletRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list wallets: %w", err)
	}

	var earliest *time.Time
	for _, w := range wallets {
		first, err := s.TransactionRepo.FirstTransactionDate(ctx, w.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to find first transaction for wallet %s: %w", w.Name, err)
		}
		if first == nil {
			continue
		}
		if earliest == nil || first.Before(*earliest) {
			earliest = first
		}
	}
	if earliest == nil {
		return nil, nil
	}

	ym := domain.YearMonthOf(*earliest)
	return &ym, nil
}

// walletBalances resolves every wallet's balance as of the date and splits
// the totals: positive balances count as assets, negative ones (overdrafts)
// as liabilities, in absolute value.
func (s *Service) walletBalances(ctx context.Context, at time.Time) (positive, negative decimal.Decimal, err error) {
	wallets, err := s.WalletRepo.List(ctx)
	if err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("failed to list wallets: %w", err)
	}

	positive, negative = decimal.Zero, decimal.Zero
	for _, w := range wallets {
		bal, err := s.Balance.BalanceAt(ctx, w, at)
		if err != nil {
			return decimal.Zero, decimal.Zero, err
		}
		if bal.IsNegative() {
			negative = negative.Add(bal.Abs())
		} else {
			positive = positive.Add(bal)
		}
	}
	return positive, negative, nil
}

// investmentsAt values the whole investment portfolio as of the date:
// security positions at their resolved price plus non-archived bond positions
// at their last operation price. Positions whose replayed quantity went
// negative are data corruption and are left out of the total.
func (s *Service) investmentsAt(ctx context.Context, at time.Time) (decimal.Decimal, error) {
	total := decimal.Zero

	securities, err := s.SecurityRepo.List(ctx)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to list securities: %w", err)
	}
	purchases, err := s.SecurityRepo.ListPurchases(ctx)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to list security purchases: %w", err)
	}
	sales, err := s.SecurityRepo.ListSales(ctx)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to list security sales: %w", err)
	}

	purchasesBySecurity := make(map[uuid.UUID][]*domain.SecurityPurchase)
	for _, p := range purchases {
		purchasesBySecurity[p.SecurityID] = append(purchasesBySecurity[p.SecurityID], p)
	}
	salesBySecurity := make(map[uuid.UUID][]*domain.SecuritySale)
	for _, sale := range sales {
		salesBySecurity[sale.SecurityID] = append(salesBySecurity[sale.SecurityID], sale)
	}

	for _, sec := range securities {
		pos, err := s.Valuation.SecurityValueAt(ctx, sec, purchasesBySecurity[sec.ID], salesBySecurity[sec.ID], at)
		if err != nil {
			return decimal.Zero, err
		}
		if pos.NegativeQuantity {
			continue
		}
		total = total.Add(pos.MarketValue)
	}

	bonds, err := s.BondRepo.List(ctx)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to list bonds: %w", err)
	}
	operations, err := s.BondRepo.OperationsBefore(ctx, at)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to list bond operations: %w", err)
	}
	positions := s.Valuation.BondPositionsAt(operations, at)
	for _, b := range bonds {
		pos, ok := positions[b.ID]
		if !ok || pos.NegativeQuantity {
			continue
		}
		total = total.Add(pos.MarketValue)
	}

	return total, nil
}
