package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Frequency represents how often a recurring transaction repeats
type Frequency string

const (
	FrequencyDaily   Frequency = "DAILY"
	FrequencyWeekly  Frequency = "WEEKLY"
	FrequencyMonthly Frequency = "MONTHLY"
	FrequencyYearly  Frequency = "YEARLY"
)

// OpenEndedDate is the sentinel end date meaning "no end". It is stored in
// the database as-is, so it must never change.
var OpenEndedDate = time.Date(2100, time.December, 31, 0, 0, 0, 0, time.UTC)

// RecurringTransaction defines a repeating cash flow. Occurrences are
// materialized into real wallet transactions as they come due; months beyond
// the materialized horizon are covered by projections.
type RecurringTransaction struct {
	ID                uuid.UUID
	WalletID          uuid.UUID
	Type              TransactionType
	Frequency         Frequency
	StartDate         time.Time
	EndDate           time.Time
	Amount            decimal.Decimal
	Description       string
	IncludeInNetWorth bool
}

// Validate ensures the definition adheres to domain rules
func (r *RecurringTransaction) Validate() error {
	switch r.Frequency {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly, FrequencyYearly:
	default:
		return errors.New("frequency must be DAILY, WEEKLY, MONTHLY or YEARLY")
	}
	if r.Amount.LessThanOrEqual(decimal.Zero) {
		return errors.New("recurring amount must be positive")
	}
	if r.EndDate.Before(r.StartDate) {
		return errors.New("end date cannot be before start date")
	}
	return nil
}

// OpenEnded reports whether the definition has no real end date.
func (r *RecurringTransaction) OpenEnded() bool {
	return r.EndDate.Year() == OpenEndedDate.Year() &&
		r.EndDate.Month() == OpenEndedDate.Month() &&
		r.EndDate.Day() == OpenEndedDate.Day()
}

// ActiveDuring reports whether the definition covers any part of the month:
// it must have started by the end of the month and, unless open-ended, must
// not have ended before the month began.
func (r *RecurringTransaction) ActiveDuring(ym YearMonth) bool {
	if r.StartDate.After(ym.EndTime()) {
		return false
	}
	if r.OpenEnded() {
		return true
	}
	return !r.EndDate.Before(ym.StartTime())
}

// Advance returns the occurrence immediately after t for this frequency.
// Month and year steps clamp to the last day of the target month instead of
// letting overflow roll forward, so a schedule anchored on the 31st lands on
// Feb 28 rather than skipping February and drifting to March 3.
func (f Frequency) Advance(t time.Time) time.Time {
	switch f {
	case FrequencyDaily:
		return t.AddDate(0, 0, 1)
	case FrequencyWeekly:
		return t.AddDate(0, 0, 7)
	case FrequencyMonthly:
		return addMonthsClamped(t, 1)
	default:
		return addMonthsClamped(t, 12)
	}
}

func addMonthsClamped(t time.Time, months int) time.Time {
	year, month, day := t.Date()
	total := int(month) + months
	year += (total - 1) / 12
	month = time.Month((total-1)%12 + 1)
	if last := lastDayOfMonth(year, month); day > last {
		day = last
	}
	hour, minute, second := t.Clock()
	return time.Date(year, month, day, hour, minute, second, t.Nanosecond(), t.Location())
}

// lastDayOfMonth relies on time.Date normalizing day zero of the next month.
func lastDayOfMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
