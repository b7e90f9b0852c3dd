package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/homefin/homefin-backend/internal/domain"
)

// recurringTransactionRepository implements domain.RecurringTransactionRepository
type recurringTransactionRepository struct {
	db *DB
}

// NewRecurringTransactionRepository creates a new recurring transaction repository
func NewRecurringTransactionRepository(db *DB) domain.RecurringTransactionRepository {
	return &recurringTransactionRepository{db: db}
}

// ListByType retrieves all recurring definitions of the given type
func (r *recurringTransactionRepository) ListByType(ctx context.Context, txType domain.TransactionType) ([]*domain.RecurringTransaction, error) {
	query := `
		SELECT id, wallet_id, type, frequency, start_date, end_date, amount, include_in_net_worth
		FROM recurring_transactions
		WHERE type = $1
		ORDER BY start_date
	`

	rows, err := r.db.QueryContext(ctx, query, string(txType))
	if err != nil {
		return nil, fmt.Errorf("failed to list recurring transactions: %w", err)
	}
	defer rows.Close()

	var definitions []*domain.RecurringTransaction
	for rows.Next() {
		var def domain.RecurringTransaction
		var amountStr string

		if err := rows.Scan(&def.ID, &def.WalletID, &def.Type, &def.Frequency, &def.StartDate, &def.EndDate, &amountStr, &def.IncludeInNetWorth); err != nil {
			return nil, fmt.Errorf("failed to scan recurring transaction: %w", err)
		}

		if def.Amount, err = decimal.NewFromString(amountStr); err != nil {
			return nil, fmt.Errorf("failed to parse amount: %w", err)
		}

		definitions = append(definitions, &def)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate recurring transactions: %w", err)
	}

	return definitions, nil
}

// HasRealizedTransactions reports whether the definition already has
// materialized wallet transactions inside the given month
func (r *recurringTransactionRepository) HasRealizedTransactions(ctx context.Context, recurringID uuid.UUID, ym domain.YearMonth) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1
			FROM wallet_transactions
			WHERE recurring_id = $1 AND date >= $2 AND date <= $3
		)
	`

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, recurringID, ym.StartTime(), ym.EndTime()).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check realized transactions: %w", err)
	}

	return exists, nil
}
