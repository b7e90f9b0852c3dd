package valuation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/homefin/homefin-backend/internal/domain"
)

// PriceSource identifies which tier of the price fallback chain produced a
// position's unit price. Each tier is independently testable.
type PriceSource string

const (
	// PriceSourceLive is the security's current unit price, used when the
	// valuation date is today or later.
	PriceSourceLive PriceSource = "LIVE"
	// PriceSourceHistorical is the closest recorded closing price at or
	// before the valuation date.
	PriceSourceHistorical PriceSource = "HISTORICAL"
	// PriceSourceLastOperation is the unit price of the last buy/sell at or
	// before the valuation date, used when no closing price was recorded.
	PriceSourceLastOperation PriceSource = "LAST_OPERATION"
	// PriceSourceNone means no price information existed at all; the
	// position is valued at zero.
	PriceSourceNone PriceSource = "NONE"
)

// Position is a derived (asset, as-of quantity, as-of unit price) triple.
// It is owned by the computation that produced it and never persisted.
type Position struct {
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	MarketValue decimal.Decimal
	PriceSource PriceSource

	// NegativeQuantity flags that the operation log sold more than was ever
	// bought as of the date. That is upstream data corruption, not a
	// valuation error, so the value is reported as computed rather than
	// clamped.
	NegativeQuantity bool
}

// Service answers "what quantity was held, and at what price, as of date D?"
// for securities and bonds by replaying buy/sell operations up to D.
type Service struct {
	SecurityRepo domain.SecurityRepository

	logger *slog.Logger
	now    func() time.Time
}

// NewService creates a new valuation Service instance
func NewService(securityRepo domain.SecurityRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		SecurityRepo: securityRepo,
		logger:       logger,
		now:          time.Now,
	}
}

// QuantityAt replays the operation log and returns the quantity held as of
// the date: the sum of buy quantities with date <= at minus the sum of sell
// quantities with date <= at. Operations are commutative once filtered, so
// input order does not matter.
func QuantityAt(purchases []*domain.SecurityPurchase, sales []*domain.SecuritySale, at time.Time) decimal.Decimal {
	quantity := decimal.Zero
	for _, p := range purchases {
		if !p.Date.After(at) {
			quantity = quantity.Add(p.Quantity)
		}
	}
	for _, s := range sales {
		if !s.Date.After(at) {
			quantity = quantity.Sub(s.Quantity)
		}
	}
	return quantity
}

// SecurityValueAt resolves the security's position as of the date. Absence
// of price data degrades the value through the fallback chain instead of
// failing; only real datastore errors propagate.
func (s *Service) SecurityValueAt(
	ctx context.Context,
	sec *domain.Security,
	purchases []*domain.SecurityPurchase,
	sales []*domain.SecuritySale,
	at time.Time,
) (Position, error) {
	quantity := QuantityAt(purchases, sales, at)

	price, source, err := s.priceAt(ctx, sec, purchases, sales, at)
	if err != nil {
		return Position{}, fmt.Errorf("failed to resolve price for security %s: %w", sec.Symbol, err)
	}

	pos := Position{
		Quantity:    quantity,
		UnitPrice:   price,
		MarketValue: quantity.Mul(price),
		PriceSource: source,
	}

	if quantity.IsNegative() {
		pos.NegativeQuantity = true
		s.logger.Warn("security quantity resolved negative, upstream operation log is inconsistent",
			"security", sec.Symbol, "date", at, "quantity", quantity)
	}

	return pos, nil
}

// priceAt walks the fallback chain: live price for current dates, then the
// closest recorded closing price, then the last operation's unit price, then
// zero.
func (s *Service) priceAt(
	ctx context.Context,
	sec *domain.Security,
	purchases []*domain.SecurityPurchase,
	sales []*domain.SecuritySale,
	at time.Time,
) (decimal.Decimal, PriceSource, error) {
	now := s.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if !at.Before(today) {
		return sec.CurrentUnitPrice, PriceSourceLive, nil
	}

	point, err := s.SecurityRepo.ClosestPriceBefore(ctx, sec.ID, at)
	if err == nil {
		return point.ClosingPrice, PriceSourceHistorical, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return decimal.Zero, PriceSourceNone, err
	}

	// Price history gaps are expected for older securities; fall back to the
	// cost side so the series stays dense.
	if price, ok := lastOperationPrice(purchases, sales, at); ok {
		s.logger.Debug("no closing price recorded, valuing at last operation price",
			"security", sec.Symbol, "date", at)
		return price, PriceSourceLastOperation, nil
	}

	s.logger.Debug("no price information at all, valuing at zero",
		"security", sec.Symbol, "date", at)
	return decimal.Zero, PriceSourceNone, nil
}

// lastOperationPrice returns the unit price of the latest buy or sell at or
// before the date.
func lastOperationPrice(purchases []*domain.SecurityPurchase, sales []*domain.SecuritySale, at time.Time) (decimal.Decimal, bool) {
	var (
		price decimal.Decimal
		date  time.Time
		found bool
	)
	for _, p := range purchases {
		if !p.Date.After(at) && (!found || p.Date.After(date)) {
			price, date, found = p.UnitPrice, p.Date, true
		}
	}
	for _, s := range sales {
		if !s.Date.After(at) && (!found || s.Date.After(date)) {
			price, date, found = s.UnitPrice, s.Date, true
		}
	}
	return price, found
}

// BondPositionsAt replays bond operations and returns the position of every
// bond held as of the date. Bonds have no market price feed, so each
// position is valued at the unit price of its last operation at or before
// the date.
func (s *Service) BondPositionsAt(operations []*domain.BondOperation, at time.Time) map[uuid.UUID]Position {
	quantities := make(map[uuid.UUID]decimal.Decimal)
	prices := make(map[uuid.UUID]decimal.Decimal)
	priceDates := make(map[uuid.UUID]time.Time)

	for _, op := range operations {
		if op.Date.After(at) {
			continue
		}
		switch op.Type {
		case domain.OperationTypeBuy:
			quantities[op.BondID] = quantities[op.BondID].Add(op.Quantity)
		case domain.OperationTypeSell:
			quantities[op.BondID] = quantities[op.BondID].Sub(op.Quantity)
		}
		if last, ok := priceDates[op.BondID]; !ok || op.Date.After(last) {
			prices[op.BondID] = op.UnitPrice
			priceDates[op.BondID] = op.Date
		}
	}

	positions := make(map[uuid.UUID]Position, len(quantities))
	for bondID, quantity := range quantities {
		price := prices[bondID]
		pos := Position{
			Quantity:    quantity,
			UnitPrice:   price,
			MarketValue: quantity.Mul(price),
			PriceSource: PriceSourceLastOperation,
		}
		if quantity.IsNegative() {
			pos.NegativeQuantity = true
			s.logger.Warn("bond quantity resolved negative, upstream operation log is inconsistent",
				"bondID", bondID, "date", at, "quantity", quantity)
		}
		positions[bondID] = pos
	}
	return positions
}
