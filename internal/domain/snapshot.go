package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// NetWorthSnapshot is one cached monthly record of aggregated net worth.
// Snapshots exist so that the expensive historical reconstruction does not
// rerun on every chart load. There is at most one snapshot per (month, year);
// past months are historically final and never mutated individually, only
// truncated and rewritten by a full rebuild.
type NetWorthSnapshot struct {
	ID    uuid.UUID
	Month YearMonth

	WalletBalances         decimal.Decimal // positive wallet balances only
	NegativeWalletBalances decimal.Decimal // absolute value, counted as liability
	Investments            decimal.Decimal
	CreditCardDebt         decimal.Decimal
	RecurringIncome        decimal.Decimal
	RecurringExpenses      decimal.Decimal

	Assets      decimal.Decimal
	Liabilities decimal.Decimal
	NetWorth    decimal.Decimal

	CalculatedAt time.Time
}

// Validate ensures the snapshot adheres to domain rules
func (s *NetWorthSnapshot) Validate() error {
	return s.Month.Validate()
}

// PerformanceSnapshot is one cached monthly record of investment
// performance, scoped to the whole portfolio. Same lifecycle as
// NetWorthSnapshot.
type PerformanceSnapshot struct {
	ID    uuid.UUID
	Month YearMonth

	InvestedValue           decimal.Decimal // cost basis still held
	PortfolioValue          decimal.Decimal // market value
	AccumulatedCapitalGains decimal.Decimal // running total since inception
	MonthlyCapitalGains     decimal.Decimal // realized in this month only

	CalculatedAt time.Time
}

// Validate ensures the snapshot adheres to domain rules
func (s *PerformanceSnapshot) Validate() error {
	return s.Month.Validate()
}
