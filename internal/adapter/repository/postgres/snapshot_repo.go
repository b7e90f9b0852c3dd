package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/homefin/homefin-backend/internal/domain"
)

// netWorthSnapshotRepository implements domain.NetWorthSnapshotRepository
type netWorthSnapshotRepository struct {
	db *DB
}

// NewNetWorthSnapshotRepository creates a new net worth snapshot repository
func NewNetWorthSnapshotRepository(db *DB) domain.NetWorthSnapshotRepository {
	return &netWorthSnapshotRepository{db: db}
}

const netWorthSnapshotColumns = `
	id, year, month,
	wallet_balances, negative_wallet_balances, investments,
	credit_card_debt, recurring_income, recurring_expenses,
	assets, liabilities, net_worth, calculated_at
`

// GetByMonth retrieves the snapshot for a month
func (r *netWorthSnapshotRepository) GetByMonth(ctx context.Context, ym domain.YearMonth) (*domain.NetWorthSnapshot, error) {
	query := `
		SELECT ` + netWorthSnapshotColumns + `
		FROM net_worth_snapshots
		WHERE year = $1 AND month = $2
	`

	snapshot, err := scanNetWorthSnapshot(r.db.QueryRowContext(ctx, query, ym.Year, int(ym.Month)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get net worth snapshot: %w", err)
	}
	return snapshot, nil
}

// Save upserts the snapshot for its month
func (r *netWorthSnapshotRepository) Save(ctx context.Context, snapshot *domain.NetWorthSnapshot) error {
	query := `
		INSERT INTO net_worth_snapshots (` + netWorthSnapshotColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (year, month) DO UPDATE SET
			wallet_balances = EXCLUDED.wallet_balances,
			negative_wallet_balances = EXCLUDED.negative_wallet_balances,
			investments = EXCLUDED.investments,
			credit_card_debt = EXCLUDED.credit_card_debt,
			recurring_income = EXCLUDED.recurring_income,
			recurring_expenses = EXCLUDED.recurring_expenses,
			assets = EXCLUDED.assets,
			liabilities = EXCLUDED.liabilities,
			net_worth = EXCLUDED.net_worth,
			calculated_at = EXCLUDED.calculated_at
	`

	_, err := r.db.ExecContext(ctx, query,
		snapshot.ID,
		snapshot.Month.Year,
		int(snapshot.Month.Month),
		snapshot.WalletBalances.String(),
		snapshot.NegativeWalletBalances.String(),
		snapshot.Investments.String(),
		snapshot.CreditCardDebt.String(),
		snapshot.RecurringIncome.String(),
		snapshot.RecurringExpenses.String(),
		snapshot.Assets.String(),
		snapshot.Liabilities.String(),
		snapshot.NetWorth.String(),
		snapshot.CalculatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save net worth snapshot: %w", err)
	}

	return nil
}

// Has reports whether any snapshot exists
func (r *netWorthSnapshotRepository) Has(ctx context.Context) (bool, error) {
	var exists bool
	if err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM net_worth_snapshots)`).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check net worth snapshots: %w", err)
	}
	return exists, nil
}

// DeleteAll removes every snapshot
func (r *netWorthSnapshotRepository) DeleteAll(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM net_worth_snapshots`); err != nil {
		return fmt.Errorf("failed to delete net worth snapshots: %w", err)
	}
	return nil
}

// ListOrdered retrieves all snapshots ordered by year then month
func (r *netWorthSnapshotRepository) ListOrdered(ctx context.Context) ([]*domain.NetWorthSnapshot, error) {
	query := `
		SELECT ` + netWorthSnapshotColumns + `
		FROM net_worth_snapshots
		ORDER BY year, month
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list net worth snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []*domain.NetWorthSnapshot
	for rows.Next() {
		snapshot, err := scanNetWorthSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan net worth snapshot: %w", err)
		}
		snapshots = append(snapshots, snapshot)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate net worth snapshots: %w", err)
	}

	return snapshots, nil
}

// scanner covers both *sql.Row and *sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanNetWorthSnapshot(row scanner) (*domain.NetWorthSnapshot, error) {
	var snapshot domain.NetWorthSnapshot
	var month int
	fields := [9]string{}

	err := row.Scan(
		&snapshot.ID,
		&snapshot.Month.Year,
		&month,
		&fields[0], &fields[1], &fields[2],
		&fields[3], &fields[4], &fields[5],
		&fields[6], &fields[7], &fields[8],
		&snapshot.CalculatedAt,
	)
	if err != nil {
		return nil, err
	}
	snapshot.Month.Month = time.Month(month)

	targets := []*decimal.Decimal{
		&snapshot.WalletBalances, &snapshot.NegativeWalletBalances, &snapshot.Investments,
		&snapshot.CreditCardDebt, &snapshot.RecurringIncome, &snapshot.RecurringExpenses,
		&snapshot.Assets, &snapshot.Liabilities, &snapshot.NetWorth,
	}
	for i, target := range targets {
		value, err := decimal.NewFromString(fields[i])
		if err != nil {
			return nil, fmt.Errorf("failed to parse snapshot field: %w", err)
		}
		*target = value
	}

	return &snapshot, nil
}

// performanceSnapshotRepository implements domain.PerformanceSnapshotRepository
type performanceSnapshotRepository struct {
	db *DB
}

// NewPerformanceSnapshotRepository creates a new performance snapshot repository
func NewPerformanceSnapshotRepository(db *DB) domain.PerformanceSnapshotRepository {
	return &performanceSnapshotRepository{db: db}
}

const performanceSnapshotColumns = `
	id, year, month,
	invested_value, portfolio_value,
	accumulated_capital_gains, monthly_capital_gains, calculated_at
`

// GetByMonth retrieves the snapshot for a month
func (r *performanceSnapshotRepository) GetByMonth(ctx context.Context, ym domain.YearMonth) (*domain.PerformanceSnapshot, error) {
	query := `
		SELECT ` + performanceSnapshotColumns + `
		FROM performance_snapshots
		WHERE year = $1 AND month = $2
	`

	snapshot, err := scanPerformanceSnapshot(r.db.QueryRowContext(ctx, query, ym.Year, int(ym.Month)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get performance snapshot: %w", err)
	}
	return snapshot, nil
}

// Save upserts the snapshot for its month
func (r *performanceSnapshotRepository) Save(ctx context.Context, snapshot *domain.PerformanceSnapshot) error {
	query := `
		INSERT INTO performance_snapshots (` + performanceSnapshotColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (year, month) DO UPDATE SET
			invested_value = EXCLUDED.invested_value,
			portfolio_value = EXCLUDED.portfolio_value,
			accumulated_capital_gains = EXCLUDED.accumulated_capital_gains,
			monthly_capital_gains = EXCLUDED.monthly_capital_gains,
			calculated_at = EXCLUDED.calculated_at
	`

	_, err := r.db.ExecContext(ctx, query,
		snapshot.ID,
		snapshot.Month.Year,
		int(snapshot.Month.Month),
		snapshot.InvestedValue.String(),
		snapshot.PortfolioValue.String(),
		snapshot.AccumulatedCapitalGains.String(),
		snapshot.MonthlyCapitalGains.String(),
		snapshot.CalculatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save performance snapshot: %w", err)
	}

	return nil
}

// Has reports whether any snapshot exists
func (r *performanceSnapshotRepository) Has(ctx context.Context) (bool, error) {
	var exists bool
	if err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM performance_snapshots)`).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check performance snapshots: %w", err)
	}
	return exists, nil
}

// DeleteAll removes every snapshot
func (r *performanceSnapshotRepository) DeleteAll(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM performance_snapshots`); err != nil {
		return fmt.Errorf("failed to delete performance snapshots: %w", err)
	}
	return nil
}

// ListOrdered retrieves all snapshots ordered by year then month
func (r *performanceSnapshotRepository) ListOrdered(ctx context.Context) ([]*domain.PerformanceSnapshot, error) {
	query := `
		SELECT ` + performanceSnapshotColumns + `
		FROM performance_snapshots
		ORDER BY year, month
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list performance snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []*domain.PerformanceSnapshot
	for rows.Next() {
		snapshot, err := scanPerformanceSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan performance snapshot: %w", err)
		}
		snapshots = append(snapshots, snapshot)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate performance snapshots: %w", err)
	}

	return snapshots, nil
}

func scanPerformanceSnapshot(row scanner) (*domain.PerformanceSnapshot, error) {
	var snapshot domain.PerformanceSnapshot
	var month int
	fields := [4]string{}

	err := row.Scan(
		&snapshot.ID,
		&snapshot.Month.Year,
		&month,
		&fields[0], &fields[1], &fields[2], &fields[3],
		&snapshot.CalculatedAt,
	)
	if err != nil {
		return nil, err
	}
	snapshot.Month.Month = time.Month(month)

	targets := []*decimal.Decimal{
		&snapshot.InvestedValue, &snapshot.PortfolioValue,
		&snapshot.AccumulatedCapitalGains, &snapshot.MonthlyCapitalGains,
	}
	for i, target := range targets {
		value, err := decimal.NewFromString(fields[i])
		if err != nil {
			return nil, fmt.Errorf("failed to parse snapshot field: %w", err)
		}
		*target = value
	}

	return &snapshot, nil
}
