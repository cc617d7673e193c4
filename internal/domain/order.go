package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderPaid      OrderStatus = "paid"
	OrderSettled   OrderStatus = "settled"
	OrderRefunded  OrderStatus = "refunded"
	OrderCancelled OrderStatus = "cancelled"
)

// Order is a paid multi-vendor cart. Money fields are captured at payment
// time and never recomputed from listings afterwards.
type Order struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey"`
	CustomerRef  string          `gorm:"size:64"`
	Currency     string          `gorm:"size:3"`
	Subtotal     decimal.Decimal `gorm:"type:decimal(12,2)"`
	Shipping     decimal.Decimal `gorm:"type:decimal(12,2)"`
	Total        decimal.Decimal `gorm:"type:decimal(12,2)"`
	Commission   decimal.Decimal `gorm:"type:decimal(12,2)"`
	ProcessorFee decimal.Decimal `gorm:"type:decimal(12,2)"`
	PaymentRef   string          `gorm:"size:128"`
	Status       OrderStatus     `gorm:"size:20;index"`
	CreatedAt    time.Time
	UpdatedAt    time.Time

	Lines []OrderLine `gorm:"foreignKey:OrderID"`
}

// OrderLine is one purchased listing inside an order. The commission rate
// and amount are fixed on the line when the order is written, so a later
// rate change never rewrites what a historical line was charged.
type OrderLine struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey"`
	OrderID        uuid.UUID       `gorm:"type:uuid;index"`
	ProductID      uuid.UUID       `gorm:"type:uuid"`
	ListingID      string          `gorm:"size:120"`
	StoreID        string          `gorm:"size:64;index"`
	Segment        string          `gorm:"size:30"`
	Quantity       int
	UnitPrice      decimal.Decimal `gorm:"type:decimal(12,2)"`
	Shipping       decimal.Decimal `gorm:"type:decimal(12,2)"`
	CommissionRate decimal.Decimal `gorm:"type:decimal(6,4)"`
	Commission     decimal.Decimal `gorm:"type:decimal(12,2)"`
	NetToVendor    decimal.Decimal `gorm:"type:decimal(12,2)"`
}

// ProductSubtotal is unit price times quantity, excluding shipping.
func (l OrderLine) ProductSubtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Gross is the vendor-facing amount for the line: product subtotal plus the
// shipping collected for it.
func (l OrderLine) Gross() decimal.Decimal {
	return l.ProductSubtotal().Add(l.Shipping)
}

type PayoutStatus string

const (
	PayoutPending    PayoutStatus = "pending"
	PayoutProcessing PayoutStatus = "processing"
	PayoutCompleted  PayoutStatus = "completed"
	PayoutReversed   PayoutStatus = "reversed"
	PayoutOnHold     PayoutStatus = "on_hold"
)

// Payout is one vendor's settlement result for one order. A payout whose net
// is not positive is persisted with status on_hold rather than dropped, so
// the ledger still balances.
type Payout struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey"`
	OrderID     uuid.UUID       `gorm:"type:uuid;index"`
	StoreID     string          `gorm:"size:64;index"`
	Currency    string          `gorm:"size:3"`
	Gross       decimal.Decimal `gorm:"type:decimal(12,2)"`
	Commission  decimal.Decimal `gorm:"type:decimal(12,2)"`
	FeeShare    decimal.Decimal `gorm:"type:decimal(12,2)"`
	Net         decimal.Decimal `gorm:"type:decimal(12,2)"`
	Status      PayoutStatus    `gorm:"size:20;index"`
	TransferRef string          `gorm:"size:128"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
