package balance

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"github.com/homefin/homefin-backend/internal/domain"
	"github.com/homefin/homefin-backend/internal/usecase/carddebt"
)

// Service answers "what was wallet W's balance as of date D?". The current
// balance is the only persisted absolute value, so the historical balance is
// reconstructed by undoing everything that moved money after D: confirmed
// transactions, and card settlements (which move cash without an entry in
// the transaction log).
type Service struct {
	TransactionRepo domain.WalletTransactionRepository
	CardDebt        *carddebt.Service

	logger *slog.Logger
	now    func() time.Time
}

// NewService creates a new balance Service instance
func NewService(transactionRepo domain.WalletTransactionRepository, cardDebt *carddebt.Service, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		TransactionRepo: transactionRepo,
		CardDebt:        cardDebt,
		logger:          logger,
		now:             time.Now,
	}
}

// BalanceAt returns the wallet's balance as of the date.
//
// Every CONFIRMED transaction dated after the target is reverted: incomes
// are subtracted and expenses added back, mirroring their original effect on
// the live balance. PENDING transactions never touched the balance and are
// excluded entirely. Card payments settled in months after the target month
// are added back the same way. For a target of "now" nothing gets reverted
// and the result equals the persisted current balance exactly.
func (s *Service) BalanceAt(ctx context.Context, wallet *domain.Wallet, at time.Time) (decimal.Decimal, error) {
	result := wallet.CurrentBalance

	transactions, err := s.TransactionRepo.ConfirmedAfter(ctx, wallet.ID, at)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to load transactions for wallet %s: %w", wallet.Name, err)
	}

	for _, tx := range transactions {
		switch tx.Type {
		case domain.TransactionTypeIncome:
			result = result.Sub(tx.Amount)
		case domain.TransactionTypeExpense:
			result = result.Add(tx.Amount)
		}
	}

	result, err = s.revertCardPaymentsAfter(ctx, wallet, result, at)
	if err != nil {
		return decimal.Zero, err
	}

	s.logger.Debug("resolved historical wallet balance",
		"wallet", wallet.Name, "date", at, "reverted", len(transactions), "balance", result)
	return result, nil
}

// revertCardPaymentsAfter adds back every card settlement the wallet made in
// months strictly after the target month, up to the current month.
func (s *Service) revertCardPaymentsAfter(ctx context.Context, wallet *domain.Wallet, result decimal.Decimal, at time.Time) (decimal.Decimal, error) {
	current := domain.YearMonthOf(s.now())
	for ym := domain.YearMonthOf(at).Next(); !ym.After(current); ym = ym.Next() {
		paid, err := s.CardDebt.EffectivePaidPaymentsByMonth(ctx, wallet.ID, ym)
		if err != nil {
			return decimal.Zero, fmt.Errorf("failed to load card payments for wallet %s: %w", wallet.Name, err)
		}
		result = result.Add(paid)
	}
	return result, nil
}
