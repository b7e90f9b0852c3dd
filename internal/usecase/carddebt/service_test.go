package carddebt

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/homefin/homefin-backend/internal/domain"
)

// MockCardPaymentRepository is a mock implementation of CardPaymentRepository for testing
type MockCardPaymentRepository struct {
	mock.Mock
}

func (m *MockCardPaymentRepository) ListPayments(ctx context.Context) ([]*domain.CardPayment, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.CardPayment), args.Error(1)
}

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
}

func TestDebtAt_SumsUnpaidInstallmentsDue(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockCardPaymentRepository)
	service := NewService(mockRepo)

	// Two pending installments due in the target month, nothing paid.
	payments := []*domain.CardPayment{
		{ID: uuid.New(), CardName: "Visa", DueDate: day(2025, time.June, 5), Amount: decimal.NewFromInt(150), Installment: 1},
		{ID: uuid.New(), CardName: "Visa", DueDate: day(2025, time.June, 20), Amount: decimal.NewFromInt(50), Installment: 2},
		// Due after the target date, not yet owed.
		{ID: uuid.New(), CardName: "Visa", DueDate: day(2025, time.July, 5), Amount: decimal.NewFromInt(150), Installment: 3},
	}
	mockRepo.On("ListPayments", ctx).Return(payments, nil)

	debt, err := service.DebtAt(ctx, day(2025, time.June, 30))

	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(200).Equal(debt))
	mockRepo.AssertExpectations(t)
}

func TestDebtAt_PaidInstallmentsExcludedOnlyFromPaymentDateOn(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockCardPaymentRepository)
	service := NewService(mockRepo)

	walletID := uuid.New()
	paidAt := day(2025, time.May, 10)
	payments := []*domain.CardPayment{
		{
			ID:          uuid.New(),
			CardName:    "Visa",
			DueDate:     day(2025, time.March, 5),
			Amount:      decimal.NewFromInt(300),
			WalletID:    &walletID,
			PaymentDate: &paidAt,
		},
	}
	mockRepo.On("ListPayments", ctx).Return(payments, nil)

	// Before the payment happened the installment was outstanding.
	marchDebt, err := service.DebtAt(ctx, day(2025, time.March, 31))
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(300).Equal(marchDebt))

	// From the payment date on it no longer counts.
	juneDebt, err := service.DebtAt(ctx, day(2025, time.June, 30))
	require.NoError(t, err)
	assert.True(t, juneDebt.IsZero())
}

func TestDebtAt_EmptyRecords(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockCardPaymentRepository)
	service := NewService(mockRepo)

	mockRepo.On("ListPayments", ctx).Return([]*domain.CardPayment{}, nil)

	debt, err := service.DebtAt(ctx, day(2025, time.June, 30))

	require.NoError(t, err)
	assert.True(t, debt.IsZero())
}

func TestDebtAt_RepositoryErrorPropagates(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockCardPaymentRepository)
	service := NewService(mockRepo)

	mockRepo.On("ListPayments", ctx).Return(nil, errors.New("database unavailable"))

	_, err := service.DebtAt(ctx, day(2025, time.June, 30))

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "database unavailable")
}

func TestEffectivePaidPaymentsByMonth(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockCardPaymentRepository)
	service := NewService(mockRepo)

	walletID := uuid.New()
	otherWalletID := uuid.New()
	paidMay := day(2025, time.May, 12)
	paidJune := day(2025, time.June, 3)

	payments := []*domain.CardPayment{
		// Paid by the wallet in May, with a rebate.
		{ID: uuid.New(), DueDate: day(2025, time.May, 5), Amount: decimal.NewFromInt(200), RebateUsed: decimal.NewFromInt(20), WalletID: &walletID, PaymentDate: &paidMay},
		// Paid by the wallet in June, different month.
		{ID: uuid.New(), DueDate: day(2025, time.June, 5), Amount: decimal.NewFromInt(100), WalletID: &walletID, PaymentDate: &paidJune},
		// Paid by another wallet in May.
		{ID: uuid.New(), DueDate: day(2025, time.May, 5), Amount: decimal.NewFromInt(80), WalletID: &otherWalletID, PaymentDate: &paidMay},
		// Still unpaid.
		{ID: uuid.New(), DueDate: day(2025, time.May, 5), Amount: decimal.NewFromInt(60)},
	}
	mockRepo.On("ListPayments", ctx).Return(payments, nil)

	paid, err := service.EffectivePaidPaymentsByMonth(ctx, walletID, domain.YearMonth{Year: 2025, Month: time.May})

	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(180).Equal(paid))
}
