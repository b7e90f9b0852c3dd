package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OperationType represents the direction of a bond operation
type OperationType string

const (
	OperationTypeBuy  OperationType = "BUY"
	OperationTypeSell OperationType = "SELL"
)

// Bond represents a fixed-income asset. Bonds have no market price feed;
// positions are valued at the unit price of the last recorded operation.
type Bond struct {
	ID       uuid.UUID
	Name     string
	Archived bool
}

// BondOperation represents a buy or sell of a bond
type BondOperation struct {
	ID        uuid.UUID
	BondID    uuid.UUID
	Type      OperationType
	Quantity  decimal.Decimal
	UnitPrice decimal.Decimal
	Date      time.Time

	// NetProfit is the realized profit of a SELL, nil for buys and for
	// sells whose profit was never computed upstream.
	NetProfit *decimal.Decimal
}
