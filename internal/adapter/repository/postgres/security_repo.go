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

// securityRepository implements domain.SecurityRepository
type securityRepository struct {
	db *DB
}

// NewSecurityRepository creates a new security repository
func NewSecurityRepository(db *DB) domain.SecurityRepository {
	return &securityRepository{db: db}
}

// List retrieves all non-archived securities
func (r *securityRepository) List(ctx context.Context) ([]*domain.Security, error) {
	query := `
		SELECT id, symbol, name, current_quantity, current_unit_price, average_unit_cost, archived
		FROM securities
		WHERE archived = FALSE
		ORDER BY symbol
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list securities: %w", err)
	}
	defer rows.Close()

	var securities []*domain.Security
	for rows.Next() {
		var sec domain.Security
		var quantityStr, priceStr, avgCostStr string

		if err := rows.Scan(&sec.ID, &sec.Symbol, &sec.Name, &quantityStr, &priceStr, &avgCostStr, &sec.Archived); err != nil {
			return nil, fmt.Errorf("failed to scan security: %w", err)
		}

		if sec.CurrentQuantity, err = decimal.NewFromString(quantityStr); err != nil {
			return nil, fmt.Errorf("failed to parse current_quantity: %w", err)
		}
		if sec.CurrentUnitPrice, err = decimal.NewFromString(priceStr); err != nil {
			return nil, fmt.Errorf("failed to parse current_unit_price: %w", err)
		}
		if sec.AverageUnitCost, err = decimal.NewFromString(avgCostStr); err != nil {
			return nil, fmt.Errorf("failed to parse average_unit_cost: %w", err)
		}

		securities = append(securities, &sec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate securities: %w", err)
	}

	return securities, nil
}

// ListPurchases retrieves all purchases across all securities
func (r *securityRepository) ListPurchases(ctx context.Context) ([]*domain.SecurityPurchase, error) {
	query := `
		SELECT id, security_id, quantity, unit_price, date
		FROM security_purchases
		ORDER BY date
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list security purchases: %w", err)
	}
	defer rows.Close()

	var purchases []*domain.SecurityPurchase
	for rows.Next() {
		var p domain.SecurityPurchase
		var quantityStr, priceStr string

		if err := rows.Scan(&p.ID, &p.SecurityID, &quantityStr, &priceStr, &p.Date); err != nil {
			return nil, fmt.Errorf("failed to scan security purchase: %w", err)
		}

		if p.Quantity, err = decimal.NewFromString(quantityStr); err != nil {
			return nil, fmt.Errorf("failed to parse quantity: %w", err)
		}
		if p.UnitPrice, err = decimal.NewFromString(priceStr); err != nil {
			return nil, fmt.Errorf("failed to parse unit_price: %w", err)
		}

		purchases = append(purchases, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate security purchases: %w", err)
	}

	return purchases, nil
}

// ListSales retrieves all sales across all securities
func (r *securityRepository) ListSales(ctx context.Context) ([]*domain.SecuritySale, error) {
	query := `
		SELECT id, security_id, quantity, unit_price, average_cost, date
		FROM security_sales
		ORDER BY date
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list security sales: %w", err)
	}
	defer rows.Close()

	var sales []*domain.SecuritySale
	for rows.Next() {
		var s domain.SecuritySale
		var quantityStr, priceStr, avgCostStr string

		if err := rows.Scan(&s.ID, &s.SecurityID, &quantityStr, &priceStr, &avgCostStr, &s.Date); err != nil {
			return nil, fmt.Errorf("failed to scan security sale: %w", err)
		}

		if s.Quantity, err = decimal.NewFromString(quantityStr); err != nil {
			return nil, fmt.Errorf("failed to parse quantity: %w", err)
		}
		if s.UnitPrice, err = decimal.NewFromString(priceStr); err != nil {
			return nil, fmt.Errorf("failed to parse unit_price: %w", err)
		}
		if s.AverageCost, err = decimal.NewFromString(avgCostStr); err != nil {
			return nil, fmt.Errorf("failed to parse average_cost: %w", err)
		}

		sales = append(sales, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate security sales: %w", err)
	}

	return sales, nil
}

// ListDividends retrieves all dividends across all securities
func (r *securityRepository) ListDividends(ctx context.Context) ([]*domain.Dividend, error) {
	query := `
		SELECT id, security_id, date, amount
		FROM dividends
		ORDER BY date
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list dividends: %w", err)
	}
	defer rows.Close()

	var dividends []*domain.Dividend
	for rows.Next() {
		var d domain.Dividend
		var amountStr string

		if err := rows.Scan(&d.ID, &d.SecurityID, &d.Date, &amountStr); err != nil {
			return nil, fmt.Errorf("failed to scan dividend: %w", err)
		}

		if d.Amount, err = decimal.NewFromString(amountStr); err != nil {
			return nil, fmt.Errorf("failed to parse amount: %w", err)
		}

		dividends = append(dividends, &d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate dividends: %w", err)
	}

	return dividends, nil
}

// ClosestPriceBefore returns the most recent recorded closing price for the
// security at or before the given date
func (r *securityRepository) ClosestPriceBefore(ctx context.Context, securityID uuid.UUID, date time.Time) (*domain.PricePoint, error) {
	query := `
		SELECT security_id, date, closing_price
		FROM security_prices
		WHERE security_id = $1 AND date <= $2
		ORDER BY date DESC
		LIMIT 1
	`

	var point domain.PricePoint
	var priceStr string

	err := r.db.QueryRowContext(ctx, query, securityID, date).Scan(&point.SecurityID, &point.Date, &priceStr)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get closest price: %w", err)
	}

	if point.ClosingPrice, err = decimal.NewFromString(priceStr); err != nil {
		return nil, fmt.Errorf("failed to parse closing_price: %w", err)
	}

	return &point, nil
}
