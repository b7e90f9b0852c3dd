package recurring

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"github.com/homefin/homefin-backend/internal/domain"
)

// Projector expands recurring-transaction definitions into the aggregate
// cash flow expected in a month. It is consulted only forward from "now":
// past months are covered by materialized transactions and projecting them
// again would double count.
type Projector struct {
	Repo domain.RecurringTransactionRepository

	logger *slog.Logger
	now    func() time.Time
}

// NewProjector creates a new Projector instance
func NewProjector(repo domain.RecurringTransactionRepository, logger *slog.Logger) *Projector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Projector{
		Repo:   repo,
		logger: logger,
		now:    time.Now,
	}
}

// ProjectedAmount returns the total expected cash flow of the given type for
// the month: for every active definition flagged for net worth, the number
// of frequency occurrences landing inside the month times its amount.
// Definitions that already materialized transactions in the month are
// skipped.
func (p *Projector) ProjectedAmount(ctx context.Context, txType domain.TransactionType, ym domain.YearMonth) (decimal.Decimal, error) {
	if ym.Before(domain.YearMonthOf(p.now())) {
		// Realized months are served by actual transaction sums.
		return decimal.Zero, nil
	}

	definitions, err := p.Repo.ListByType(ctx, txType)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to list recurring definitions: %w", err)
	}

	total := decimal.Zero
	for _, def := range definitions {
		if !def.IncludeInNetWorth {
			continue
		}
		if !def.ActiveDuring(ym) {
			continue
		}

		realized, err := p.Repo.HasRealizedTransactions(ctx, def.ID, ym)
		if err != nil {
			return decimal.Zero, fmt.Errorf("failed to check realized transactions: %w", err)
		}
		if realized {
			continue
		}

		occurrences := OccurrencesIn(def, ym)
		if occurrences == 0 {
			continue
		}
		total = total.Add(def.Amount.Mul(decimal.NewFromInt(int64(occurrences))))
	}

	p.logger.Debug("projected recurring cash flow", "type", txType, "month", ym.String(), "amount", total)
	return total, nil
}

// OccurrencesIn counts how many occurrences of the definition's frequency
// land inside the month, bounded by the definition's own start and end.
func OccurrencesIn(def *domain.RecurringTransaction, ym domain.YearMonth) int {
	end := ym.EndTime()
	if !def.OpenEnded() && def.EndDate.Before(end) {
		end = def.EndDate
	}

	count := 0
	for t := firstOccurrenceOnOrAfter(def, ym.StartTime()); !t.After(end); t = def.Frequency.Advance(t) {
		count++
	}
	return count
}

// firstOccurrenceOnOrAfter returns the earliest occurrence of the definition
// at or after the bound. Daily and weekly schedules are fast-forwarded
// arithmetically; a daily definition years old would otherwise be stepped
// thousands of times per projected month.
func firstOccurrenceOnOrAfter(def *domain.RecurringTransaction, bound time.Time) time.Time {
	t := def.StartDate
	if !t.Before(bound) {
		return t
	}

	switch def.Frequency {
	case domain.FrequencyDaily, domain.FrequencyWeekly:
		stepDays := 1
		if def.Frequency == domain.FrequencyWeekly {
			stepDays = 7
		}
		days := int(bound.Sub(t).Hours() / 24)
		t = t.AddDate(0, 0, (days/stepDays)*stepDays)
	}

	for t.Before(bound) {
		t = def.Frequency.Advance(t)
	}
	return t
}
