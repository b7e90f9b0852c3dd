package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// The read-side interfaces below are the engine's only view of the source
// entities. Mutation and validation of wallets, transactions, securities,
// bonds, cards and recurring definitions happen elsewhere; this subsystem is
// read-only with respect to all of them and writes only its own snapshots.

// WalletRepository defines the read interface for wallets
type WalletRepository interface {
	// List retrieves all non-archived wallets
	List(ctx context.Context) ([]*Wallet, error)
}

// WalletTransactionRepository defines the read interface for the
// append-only wallet transaction log
type WalletTransactionRepository interface {
	// FirstTransactionDate returns the date of the earliest transaction on
	// the wallet, or nil if the wallet has no transactions
	FirstTransactionDate(ctx context.Context, walletID uuid.UUID) (*time.Time, error)

	// ConfirmedAfter retrieves all CONFIRMED transactions on the wallet
	// with date strictly after the given date
	ConfirmedAfter(ctx context.Context, walletID uuid.UUID, date time.Time) ([]*WalletTransaction, error)
}

// SecurityRepository defines the read interface for securities and their
// operation log
type SecurityRepository interface {
	// List retrieves all non-archived securities
	List(ctx context.Context) ([]*Security, error)

	// ListPurchases retrieves all purchases across all securities
	ListPurchases(ctx context.Context) ([]*SecurityPurchase, error)

	// ListSales retrieves all sales across all securities
	ListSales(ctx context.Context) ([]*SecuritySale, error)

	// ListDividends retrieves all dividends across all securities
	ListDividends(ctx context.Context) ([]*Dividend, error)

	// ClosestPriceBefore returns the most recent recorded closing price for
	// the security at or before the given date
	// Returns ErrNotFound if no price was recorded at or before the date
	ClosestPriceBefore(ctx context.Context, securityID uuid.UUID, date time.Time) (*PricePoint, error)
}

// BondRepository defines the read interface for bonds and their operations
type BondRepository interface {
	// List retrieves all non-archived bonds
	List(ctx context.Context) ([]*Bond, error)

	// ListOperations retrieves all bond operations
	ListOperations(ctx context.Context) ([]*BondOperation, error)

	// OperationsBefore retrieves all bond operations with date at or before
	// the given date
	OperationsBefore(ctx context.Context, date time.Time) ([]*BondOperation, error)
}

// CardPaymentRepository defines the read interface for credit-card
// installment payments
type CardPaymentRepository interface {
	// ListPayments retrieves all installment payments across all cards
	ListPayments(ctx context.Context) ([]*CardPayment, error)
}

// RecurringTransactionRepository defines the read interface for recurring
// transaction definitions
type RecurringTransactionRepository interface {
	// ListByType retrieves all recurring definitions of the given type
	ListByType(ctx context.Context, txType TransactionType) ([]*RecurringTransaction, error)

	// HasRealizedTransactions reports whether the definition already has
	// materialized wallet transactions inside the given month
	HasRealizedTransactions(ctx context.Context, recurringID uuid.UUID, ym YearMonth) (bool, error)
}

// NetWorthSnapshotRepository defines the persistence interface for the
// net-worth snapshot cache
type NetWorthSnapshotRepository interface {
	// GetByMonth retrieves the snapshot for a month
	// Returns ErrNotFound on a cache miss
	GetByMonth(ctx context.Context, ym YearMonth) (*NetWorthSnapshot, error)

	// Save upserts the snapshot for its month
	Save(ctx context.Context, snapshot *NetWorthSnapshot) error

	// Has reports whether any snapshot exists
	Has(ctx context.Context) (bool, error)

	// DeleteAll removes every snapshot
	DeleteAll(ctx context.Context) error

	// ListOrdered retrieves all snapshots ordered by year then month
	ListOrdered(ctx context.Context) ([]*NetWorthSnapshot, error)
}

// PerformanceSnapshotRepository defines the persistence interface for the
// investment-performance snapshot cache
type PerformanceSnapshotRepository interface {
	// GetByMonth retrieves the snapshot for a month
	// Returns ErrNotFound on a cache miss
	GetByMonth(ctx context.Context, ym YearMonth) (*PerformanceSnapshot, error)

	// Save upserts the snapshot for its month
	Save(ctx context.Context, snapshot *PerformanceSnapshot) error

	// Has reports whether any snapshot exists
	Has(ctx context.Context) (bool, error)

	// DeleteAll removes every snapshot
	DeleteAll(ctx context.Context) error

	// ListOrdered retrieves all snapshots ordered by year then month
	ListOrdered(ctx context.Context) ([]*PerformanceSnapshot, error)
}
