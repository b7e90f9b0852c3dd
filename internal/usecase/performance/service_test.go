package performance

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/homefin/homefin-backend/internal/domain"
	"github.com/homefin/homefin-backend/internal/usecase/valuation"
)

// MockSecurityRepository is a mock implementation of SecurityRepository for testing
type MockSecurityRepository struct {
	mock.Mock
}

func (m *MockSecurityRepository) List(ctx context.Context) ([]*domain.Security, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Security), args.Error(1)
}

func (m *MockSecurityRepository) ListPurchases(ctx context.Context) ([]*domain.SecurityPurchase, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.SecurityPurchase), args.Error(1)
}

func (m *MockSecurityRepository) ListSales(ctx context.Context) ([]*domain.SecuritySale, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.SecuritySale), args.Error(1)
}

func (m *MockSecurityRepository) ListDividends(ctx context.Context) ([]*domain.Dividend, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Dividend), args.Error(1)
}

func (m *MockSecurityRepository) ClosestPriceBefore(ctx context.Context, securityID uuid.UUID, date time.Time) (*domain.PricePoint, error) {
	args := m.Called(ctx, securityID, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PricePoint), args.Error(1)
}

// MockBondRepository is a mock implementation of BondRepository for testing
type MockBondRepository struct {
	mock.Mock
}

func (m *MockBondRepository) List(ctx context.Context) ([]*domain.Bond, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Bond), args.Error(1)
}

func (m *MockBondRepository) ListOperations(ctx context.Context) ([]*domain.BondOperation, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.BondOperation), args.Error(1)
}

func (m *MockBondRepository) OperationsBefore(ctx context.Context, date time.Time) ([]*domain.BondOperation, error) {
	args := m.Called(ctx, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.BondOperation), args.Error(1)
}

// fakePerformanceStore is an in-memory PerformanceSnapshotRepository, needed
// where the tests assert on store contents across rebuilds.
type fakePerformanceStore struct {
	mu        sync.Mutex
	snapshots map[domain.YearMonth]*domain.PerformanceSnapshot
}

func newFakePerformanceStore() *fakePerformanceStore {
	return &fakePerformanceStore{snapshots: make(map[domain.YearMonth]*domain.PerformanceSnapshot)}
}

func (f *fakePerformanceStore) GetByMonth(ctx context.Context, ym domain.YearMonth) (*domain.PerformanceSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.snapshots[ym]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return s, nil
}

func (f *fakePerformanceStore) Save(ctx context.Context, snapshot *domain.PerformanceSnapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snapshots[snapshot.Month] = snapshot
	return nil
}

func (f *fakePerformanceStore) Has(ctx context.Context) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.snapshots) > 0, nil
}

func (f *fakePerformanceStore) DeleteAll(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snapshots = make(map[domain.YearMonth]*domain.PerformanceSnapshot)
	return nil
}

func (f *fakePerformanceStore) ListOrdered(ctx context.Context) ([]*domain.PerformanceSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*domain.PerformanceSnapshot, 0, len(f.snapshots))
	for _, s := range f.snapshots {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month.Before(out[j].Month) })
	return out, nil
}

func newTestService() (*Service, *MockSecurityRepository, *MockBondRepository, *fakePerformanceStore) {
	securities := new(MockSecurityRepository)
	bonds := new(MockBondRepository)
	store := newFakePerformanceStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewService(securities, bonds, store, valuation.NewService(securities, logger), logger)
	return svc, securities, bonds, store
}

// stubPortfolio sets up one security bought three months of history ago:
// 10 units at 50 at inception, 4 sold at 70 the following month (average
// cost 50, profit 80), a 20 dividend the same month. Historical closing
// price is 60 everywhere, live price 80. No bonds.
//
// Expected series, oldest first:
//
//	inception: invested 500, portfolio 600, monthly 0,   accumulated 0
//	middle:    invested 300, portfolio 360, monthly 100, accumulated 100
//	current:   invested 300, portfolio 480, monthly 0,   accumulated 100
func stubPortfolio(securities *MockSecurityRepository, bonds *MockBondRepository) (inception domain.YearMonth) {
	current := domain.YearMonthOf(time.Now())
	inception = current.Prev().Prev()
	middle := current.Prev()

	sec := &domain.Security{
		ID:               uuid.New(),
		Symbol:           "ACME",
		Name:             "Acme Corp",
		CurrentQuantity:  decimal.NewFromInt(6),
		CurrentUnitPrice: decimal.NewFromInt(80),
	}

	securities.On("List", mock.Anything).Return([]*domain.Security{sec}, nil)
	securities.On("ListPurchases", mock.Anything).Return([]*domain.SecurityPurchase{
		{ID: uuid.New(), SecurityID: sec.ID, Quantity: decimal.NewFromInt(10), UnitPrice: decimal.NewFromInt(50), Date: inception.StartTime().AddDate(0, 0, 4)},
	}, nil)
	securities.On("ListSales", mock.Anything).Return([]*domain.SecuritySale{
		{ID: uuid.New(), SecurityID: sec.ID, Quantity: decimal.NewFromInt(4), UnitPrice: decimal.NewFromInt(70), AverageCost: decimal.NewFromInt(50), Date: middle.StartTime().AddDate(0, 0, 9)},
	}, nil)
	securities.On("ListDividends", mock.Anything).Return([]*domain.Dividend{
		{ID: uuid.New(), SecurityID: sec.ID, Date: middle.StartTime().AddDate(0, 0, 14), Amount: decimal.NewFromInt(20)},
	}, nil)
	securities.On("ClosestPriceBefore", mock.Anything, sec.ID, mock.Anything).Return(&domain.PricePoint{
		SecurityID:   sec.ID,
		ClosingPrice: decimal.NewFromInt(60),
	}, nil)

	bonds.On("ListOperations", mock.Anything).Return([]*domain.BondOperation{}, nil)
	return inception
}

func waitFor(t *testing.T, svc *Service) error {
	t.Helper()
	handle, started := svc.RecalculateAll()
	require.True(t, started)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return handle.Wait(ctx)
}

func TestRecalculateAll_SeriesValues(t *testing.T) {
	svc, securities, bonds, store := newTestService()
	inception := stubPortfolio(securities, bonds)

	require.NoError(t, waitFor(t, svc))

	series, err := store.ListOrdered(context.Background())
	require.NoError(t, err)
	require.Len(t, series, 3)

	assert.Equal(t, inception, series[0].Month)
	assert.True(t, decimal.NewFromInt(500).Equal(series[0].InvestedValue))
	assert.True(t, decimal.NewFromInt(600).Equal(series[0].PortfolioValue))
	assert.True(t, series[0].MonthlyCapitalGains.IsZero())
	assert.True(t, series[0].AccumulatedCapitalGains.IsZero())

	// Sale profit 80 plus dividend 20.
	assert.True(t, decimal.NewFromInt(300).Equal(series[1].InvestedValue))
	assert.True(t, decimal.NewFromInt(360).Equal(series[1].PortfolioValue))
	assert.True(t, decimal.NewFromInt(100).Equal(series[1].MonthlyCapitalGains))
	assert.True(t, decimal.NewFromInt(100).Equal(series[1].AccumulatedCapitalGains))

	// Current month is valued at the live price.
	assert.True(t, decimal.NewFromInt(300).Equal(series[2].InvestedValue))
	assert.True(t, decimal.NewFromInt(480).Equal(series[2].PortfolioValue))
	assert.True(t, series[2].MonthlyCapitalGains.IsZero())
	assert.True(t, decimal.NewFromInt(100).Equal(series[2].AccumulatedCapitalGains))
}

func TestSeries_EmptyPortfolio(t *testing.T) {
	svc, securities, bonds, _ := newTestService()
	securities.On("List", mock.Anything).Return([]*domain.Security{}, nil)
	securities.On("ListPurchases", mock.Anything).Return([]*domain.SecurityPurchase{}, nil)
	securities.On("ListSales", mock.Anything).Return([]*domain.SecuritySale{}, nil)
	securities.On("ListDividends", mock.Anything).Return([]*domain.Dividend{}, nil)
	bonds.On("ListOperations", mock.Anything).Return([]*domain.BondOperation{}, nil)

	series, err := svc.Series(context.Background())

	require.NoError(t, err)
	assert.NotNil(t, series)
	assert.Empty(t, series)
}

func TestSeries_ReadThroughCarriesAccumulatedGains(t *testing.T) {
	svc, securities, bonds, store := newTestService()
	inception := stubPortfolio(securities, bonds)
	current := domain.YearMonthOf(time.Now())

	// Past months already cached; the accumulated total must continue from
	// the last cached month, not restart at zero.
	accumulated := decimal.Zero
	for ym := inception; ym.Before(current); ym = ym.Next() {
		accumulated = accumulated.Add(decimal.NewFromInt(7))
		require.NoError(t, store.Save(context.Background(), &domain.PerformanceSnapshot{
			ID: uuid.New(), Month: ym, AccumulatedCapitalGains: accumulated,
		}))
	}

	series, err := svc.Series(context.Background())
	require.NoError(t, err)
	require.Len(t, series, 3)

	assert.True(t, decimal.NewFromInt(7).Equal(series[0].AccumulatedCapitalGains))
	assert.True(t, decimal.NewFromInt(14).Equal(series[1].AccumulatedCapitalGains))
	// Current month realizes nothing, so it carries 14 forward.
	assert.True(t, decimal.NewFromInt(14).Equal(series[2].AccumulatedCapitalGains))

	// Cached months were never recomputed: the only valuation happened for
	// the current month, at the live price.
	securities.AssertNotCalled(t, "ClosestPriceBefore")
}

func TestRecalculateIfEmpty_BuildsOnlyWhenCacheIsEmpty(t *testing.T) {
	svc, securities, bonds, store := newTestService()
	stubPortfolio(securities, bonds)

	handle, started, err := svc.RecalculateIfEmpty(context.Background())
	require.NoError(t, err)
	require.True(t, started)
	require.NotNil(t, handle)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, handle.Wait(ctx))

	series, err := store.ListOrdered(context.Background())
	require.NoError(t, err)
	assert.Len(t, series, 3)

	// A populated cache is left alone.
	handle, started, err = svc.RecalculateIfEmpty(context.Background())
	require.NoError(t, err)
	assert.False(t, started)
	assert.Nil(t, handle)
}

func TestRecalculateAll_SingleFlight(t *testing.T) {
	svc, securities, bonds, _ := newTestService()

	release := make(chan struct{})
	securities.On("List", mock.Anything).Run(func(mock.Arguments) {
		<-release
	}).Return([]*domain.Security{}, nil)
	securities.On("ListPurchases", mock.Anything).Return([]*domain.SecurityPurchase{}, nil)
	securities.On("ListSales", mock.Anything).Return([]*domain.SecuritySale{}, nil)
	securities.On("ListDividends", mock.Anything).Return([]*domain.Dividend{}, nil)
	bonds.On("ListOperations", mock.Anything).Return([]*domain.BondOperation{}, nil)

	first, started := svc.RecalculateAll()
	require.True(t, started)
	assert.True(t, svc.IsCalculating())

	second, started := svc.RecalculateAll()
	assert.False(t, started)
	assert.Same(t, first, second)

	close(release)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, first.Wait(ctx))

	securities.AssertNumberOfCalls(t, "List", 1)
	assert.False(t, svc.IsCalculating())
}

func TestRecalculateAll_FailurePropagatesAndClearsFlag(t *testing.T) {
	svc, securities, _, store := newTestService()
	securities.On("List", mock.Anything).Return(nil, errors.New("database unavailable"))

	handle, started := svc.RecalculateAll()
	require.True(t, started)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := handle.Wait(ctx)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "database unavailable")
	assert.False(t, svc.IsCalculating())

	remaining, listErr := store.ListOrdered(context.Background())
	require.NoError(t, listErr)
	assert.Empty(t, remaining)
}

func TestBondCostBasisAt(t *testing.T) {
	bondID := uuid.New()
	profit := decimal.NewFromInt(30)
	ops := []*domain.BondOperation{
		{BondID: bondID, Type: domain.OperationTypeBuy, Quantity: decimal.NewFromInt(5), UnitPrice: decimal.NewFromInt(100), Date: time.Date(2025, time.January, 10, 0, 0, 0, 0, time.UTC)},
		// Sells 2 for 230 with 30 profit: removes 200 of cost.
		{BondID: bondID, Type: domain.OperationTypeSell, Quantity: decimal.NewFromInt(2), UnitPrice: decimal.NewFromInt(115), NetProfit: &profit, Date: time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC)},
	}

	afterBuy := bondCostBasisAt(ops, time.Date(2025, time.February, 1, 0, 0, 0, 0, time.UTC))
	assert.True(t, decimal.NewFromInt(500).Equal(afterBuy))

	afterSell := bondCostBasisAt(ops, time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC))
	assert.True(t, decimal.NewFromInt(300).Equal(afterSell))
}

func TestSecurityCostBasisAt(t *testing.T) {
	secID := uuid.New()
	purchases := []*domain.SecurityPurchase{
		{SecurityID: secID, Quantity: decimal.NewFromInt(10), UnitPrice: decimal.NewFromInt(50), Date: time.Date(2025, time.January, 5, 0, 0, 0, 0, time.UTC)},
		{SecurityID: secID, Quantity: decimal.NewFromInt(10), UnitPrice: decimal.NewFromInt(70), Date: time.Date(2025, time.February, 5, 0, 0, 0, 0, time.UTC)},
	}
	sales := []*domain.SecuritySale{
		// Sold at the blended average of 60, removing cost at that average.
		{SecurityID: secID, Quantity: decimal.NewFromInt(5), UnitPrice: decimal.NewFromInt(90), AverageCost: decimal.NewFromInt(60), Date: time.Date(2025, time.March, 5, 0, 0, 0, 0, time.UTC)},
	}

	assert.True(t, decimal.NewFromInt(500).Equal(securityCostBasisAt(purchases, sales, time.Date(2025, time.January, 31, 0, 0, 0, 0, time.UTC))))
	assert.True(t, decimal.NewFromInt(1200).Equal(securityCostBasisAt(purchases, sales, time.Date(2025, time.February, 28, 0, 0, 0, 0, time.UTC))))
	assert.True(t, decimal.NewFromInt(900).Equal(securityCostBasisAt(purchases, sales, time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC))))
}
