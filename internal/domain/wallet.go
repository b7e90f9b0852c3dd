package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionType represents the direction of a wallet transaction
type TransactionType string

const (
	TransactionTypeIncome  TransactionType = "INCOME"
	TransactionTypeExpense TransactionType = "EXPENSE"
)

// TransactionStatus represents whether a transaction has hit the wallet balance
type TransactionStatus string

const (
	// TransactionStatusPending transactions have never touched the wallet's
	// current balance and are excluded from historical replay.
	TransactionStatusPending TransactionStatus = "PENDING"
	// TransactionStatusConfirmed transactions are reflected in the wallet's
	// current balance.
	TransactionStatusConfirmed TransactionStatus = "CONFIRMED"
)

// Wallet represents a cash account. Only the current balance is persisted as
// an absolute value; every historical balance is reconstructed from it by
// undoing the transaction log.
type Wallet struct {
	ID             uuid.UUID
	Name           string
	CurrentBalance decimal.Decimal
	Archived       bool
}

// Validate ensures the wallet adheres to domain rules
func (w *Wallet) Validate() error {
	if w.Name == "" {
		return errors.New("wallet name cannot be empty")
	}
	return nil
}

// WalletTransaction represents one entry of the append-only transaction log
type WalletTransaction struct {
	ID          uuid.UUID
	WalletID    uuid.UUID
	Type        TransactionType
	Status      TransactionStatus
	Date        time.Time
	Amount      decimal.Decimal // absolute value, always positive
	Description string

	// RecurringID links a materialized occurrence back to the recurring
	// definition that produced it. Nil for ad hoc transactions.
	RecurringID *uuid.UUID
}

// Validate ensures the transaction adheres to domain rules
func (t *WalletTransaction) Validate() error {
	if t.Type != TransactionTypeIncome && t.Type != TransactionTypeExpense {
		return errors.New("transaction type must be INCOME or EXPENSE")
	}
	if t.Status != TransactionStatusPending && t.Status != TransactionStatusConfirmed {
		return errors.New("transaction status must be PENDING or CONFIRMED")
	}
	if t.Amount.LessThanOrEqual(decimal.Zero) {
		return errors.New("transaction amount must be positive")
	}
	return nil
}
