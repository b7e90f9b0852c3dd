package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Security represents a tradable asset (stock, ETF, crypto). CurrentQuantity
// and CurrentUnitPrice are the live values; positions at past dates are
// reconstructed from the purchase/sale log.
type Security struct {
	ID               uuid.UUID
	Symbol           string
	Name             string
	CurrentQuantity  decimal.Decimal
	CurrentUnitPrice decimal.Decimal
	AverageUnitCost  decimal.Decimal // average acquisition cost of held units
	Archived         bool
}

// SecurityPurchase represents a buy operation on a security
type SecurityPurchase struct {
	ID         uuid.UUID
	SecurityID uuid.UUID
	Quantity   decimal.Decimal
	UnitPrice  decimal.Decimal
	Date       time.Time
}

// SecuritySale represents a sell operation on a security. AverageCost is the
// average acquisition cost of the sold units, captured at sale time so
// realized profit stays stable when the average moves later.
type SecuritySale struct {
	ID          uuid.UUID
	SecurityID  uuid.UUID
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	AverageCost decimal.Decimal
	Date        time.Time
}

// Dividend represents a cash dividend received for a security
type Dividend struct {
	ID         uuid.UUID
	SecurityID uuid.UUID
	Date       time.Time
	Amount     decimal.Decimal
}

// PricePoint represents one recorded historical closing price. History is
// expected to be sparse, especially for older or delisted securities.
type PricePoint struct {
	SecurityID   uuid.UUID
	Date         time.Time
	ClosingPrice decimal.Decimal
}
