package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/homefin/homefin-backend/internal/domain"
)

// walletRepository implements domain.WalletRepository
type walletRepository struct {
	db *DB
}

// NewWalletRepository creates a new wallet repository
func NewWalletRepository(db *DB) domain.WalletRepository {
	return &walletRepository{db: db}
}

// List retrieves all non-archived wallets
func (r *walletRepository) List(ctx context.Context) ([]*domain.Wallet, error) {
	query := `
		SELECT id, name, current_balance, archived
		FROM wallets
		WHERE archived = FALSE
		ORDER BY name
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list wallets: %w", err)
	}
	defer rows.Close()

	var wallets []*domain.Wallet
	for rows.Next() {
		var wallet domain.Wallet
		var balanceStr string

		if err := rows.Scan(&wallet.ID, &wallet.Name, &balanceStr, &wallet.Archived); err != nil {
			return nil, fmt.Errorf("failed to scan wallet: %w", err)
		}

		balance, err := decimal.NewFromString(balanceStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse current_balance: %w", err)
		}
		wallet.CurrentBalance = balance

		wallets = append(wallets, &wallet)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate wallets: %w", err)
	}

	return wallets, nil
}

// walletTransactionRepository implements domain.WalletTransactionRepository
type walletTransactionRepository struct {
	db *DB
}

// NewWalletTransactionRepository creates a new wallet transaction repository
func NewWalletTransactionRepository(db *DB) domain.WalletTransactionRepository {
	return &walletTransactionRepository{db: db}
}

// FirstTransactionDate returns the date of the earliest transaction on the
// wallet, or nil if the wallet has no transactions
func (r *walletTransactionRepository) FirstTransactionDate(ctx context.Context, walletID uuid.UUID) (*time.Time, error) {
	query := `
		SELECT MIN(date)
		FROM wallet_transactions
		WHERE wallet_id = $1
	`

	var first sql.NullTime
	if err := r.db.QueryRowContext(ctx, query, walletID).Scan(&first); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get first transaction date: %w", err)
	}
	if !first.Valid {
		return nil, nil
	}

	return &first.Time, nil
}

// ConfirmedAfter retrieves all CONFIRMED transactions on the wallet with
// date strictly after the given date
func (r *walletTransactionRepository) ConfirmedAfter(ctx context.Context, walletID uuid.UUID, date time.Time) ([]*domain.WalletTransaction, error) {
	query := `
		SELECT id, wallet_id, type, status, date, amount, description, recurring_id
		FROM wallet_transactions
		WHERE wallet_id = $1 AND status = $2 AND date > $3
		ORDER BY date
	`

	rows, err := r.db.QueryContext(ctx, query, walletID, string(domain.TransactionStatusConfirmed), date)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var transactions []*domain.WalletTransaction
	for rows.Next() {
		var tx domain.WalletTransaction
		var amountStr string
		var recurringID sql.NullString

		if err := rows.Scan(&tx.ID, &tx.WalletID, &tx.Type, &tx.Status, &tx.Date, &amountStr, &tx.Description, &recurringID); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}

		amount, err := decimal.NewFromString(amountStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse amount: %w", err)
		}
		tx.Amount = amount

		if recurringID.Valid {
			id, err := uuid.Parse(recurringID.String)
			if err != nil {
				return nil, fmt.Errorf("failed to parse recurring_id: %w", err)
			}
			tx.RecurringID = &id
		}

		transactions = append(transactions, &tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transactions: %w", err)
	}

	return transactions, nil
}
