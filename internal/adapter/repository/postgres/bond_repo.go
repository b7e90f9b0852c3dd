package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/homefin/homefin-backend/internal/domain"
)

// bondRepository implements domain.BondRepository
type bondRepository struct {
	db *DB
}

// NewBondRepository creates a new bond repository
func NewBondRepository(db *DB) domain.BondRepository {
	return &bondRepository{db: db}
}

// List retrieves all non-archived bonds
func (r *bondRepository) List(ctx context.Context) ([]*domain.Bond, error) {
	query := `
		SELECT id, name, archived
		FROM bonds
		WHERE archived = FALSE
		ORDER BY name
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list bonds: %w", err)
	}
	defer rows.Close()

	var bonds []*domain.Bond
	for rows.Next() {
		var bond domain.Bond
		if err := rows.Scan(&bond.ID, &bond.Name, &bond.Archived); err != nil {
			return nil, fmt.Errorf("failed to scan bond: %w", err)
		}
		bonds = append(bonds, &bond)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate bonds: %w", err)
	}

	return bonds, nil
}

// ListOperations retrieves all bond operations
func (r *bondRepository) ListOperations(ctx context.Context) ([]*domain.BondOperation, error) {
	query := `
		SELECT id, bond_id, type, quantity, unit_price, date, net_profit
		FROM bond_operations
		ORDER BY date
	`
	return r.queryOperations(ctx, query)
}

// OperationsBefore retrieves all bond operations with date at or before the
// given date
func (r *bondRepository) OperationsBefore(ctx context.Context, date time.Time) ([]*domain.BondOperation, error) {
	query := `
		SELECT id, bond_id, type, quantity, unit_price, date, net_profit
		FROM bond_operations
		WHERE date <= $1
		ORDER BY date
	`
	return r.queryOperations(ctx, query, date)
}

func (r *bondRepository) queryOperations(ctx context.Context, query string, args ...interface{}) ([]*domain.BondOperation, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list bond operations: %w", err)
	}
	defer rows.Close()

	var operations []*domain.BondOperation
	for rows.Next() {
		var op domain.BondOperation
		var quantityStr, priceStr string
		var netProfit sql.NullString

		if err := rows.Scan(&op.ID, &op.BondID, &op.Type, &quantityStr, &priceStr, &op.Date, &netProfit); err != nil {
			return nil, fmt.Errorf("failed to scan bond operation: %w", err)
		}

		if op.Quantity, err = decimal.NewFromString(quantityStr); err != nil {
			return nil, fmt.Errorf("failed to parse quantity: %w", err)
		}
		if op.UnitPrice, err = decimal.NewFromString(priceStr); err != nil {
			return nil, fmt.Errorf("failed to parse unit_price: %w", err)
		}
		if netProfit.Valid {
			profit, err := decimal.NewFromString(netProfit.String)
			if err != nil {
				return nil, fmt.Errorf("failed to parse net_profit: %w", err)
			}
			op.NetProfit = &profit
		}

		operations = append(operations, &op)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate bond operations: %w", err)
	}

	return operations, nil
}
