package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CardPayment represents one installment of a credit-card debt. An unpaid
// installment has neither a settling wallet nor a payment date; once settled
// it records which wallet paid it and when.
type CardPayment struct {
	ID          uuid.UUID
	CardName    string
	DueDate     time.Time
	Amount      decimal.Decimal
	RebateUsed  decimal.Decimal // discount applied at payment time
	Installment int
	WalletID    *uuid.UUID
	PaymentDate *time.Time
}

// Paid reports whether the installment has been settled.
func (p *CardPayment) Paid() bool {
	return p.WalletID != nil && p.PaymentDate != nil
}

// PaidAsOf reports whether the installment was already settled at the given
// date. A payment made later does not retroactively clear the debt for
// months before it happened.
func (p *CardPayment) PaidAsOf(date time.Time) bool {
	return p.Paid() && !p.PaymentDate.After(date)
}

// EffectiveAmount returns the cash that actually left the wallet, net of
// rebates used at payment time.
func (p *CardPayment) EffectiveAmount() decimal.Decimal {
	return p.Amount.Sub(p.RebateUsed)
}
