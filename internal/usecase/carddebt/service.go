package carddebt

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/homefin/homefin-backend/internal/domain"
)

// Service answers "what unpaid card debt existed as of date D?" from the
// installment payment records. A payment settled after D still counts as
// outstanding at D; a payment settled at or before D does not.
type Service struct {
	PaymentRepo domain.CardPaymentRepository
}

// NewService creates a new card-debt Service instance
func NewService(paymentRepo domain.CardPaymentRepository) *Service {
	return &Service{PaymentRepo: paymentRepo}
}

// DebtAt returns the outstanding debt across all cards as of the date:
// every installment due at or before the date that had not been settled yet.
func (s *Service) DebtAt(ctx context.Context, at time.Time) (decimal.Decimal, error) {
	payments, err := s.PaymentRepo.ListPayments(ctx)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to list card payments: %w", err)
	}

	debt := decimal.Zero
	for _, p := range payments {
		if p.DueDate.After(at) {
			continue
		}
		if p.PaidAsOf(at) {
			continue
		}
		debt = debt.Add(p.Amount)
	}
	return debt, nil
}

// EffectivePaidPaymentsByMonth returns the cash the wallet spent settling
// card installments during the month, net of rebates. The balance resolver
// uses it to undo payments when reconstructing historical balances, since
// card settlements move money without appearing in the transaction log.
func (s *Service) EffectivePaidPaymentsByMonth(ctx context.Context, walletID uuid.UUID, ym domain.YearMonth) (decimal.Decimal, error) {
	payments, err := s.PaymentRepo.ListPayments(ctx)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to list card payments: %w", err)
	}

	total := decimal.Zero
	for _, p := range payments {
		if !p.Paid() || *p.WalletID != walletID {
			continue
		}
		if !ym.Contains(*p.PaymentDate) {
			continue
		}
		total = total.Add(p.EffectiveAmount())
	}
	return total, nil
}
