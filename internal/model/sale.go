package model

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PaymentMethod string

const (
	PaymentCash        PaymentMethod = "cash"
	PaymentCard        PaymentMethod = "card"
	PaymentMobileMoney PaymentMethod = "mobile_money"
	PaymentInsurance   PaymentMethod = "insurance"
)

// Sale is a settled transaction. It has no update path.
type Sale struct {
	LedgerEntry
	ReceiptNumber  string          `gorm:"type:varchar(40);uniqueIndex;not null" json:"receipt_number"`
	CashierID      uuid.UUID       `gorm:"type:uuid;not null;index" json:"cashier_id"`
	CustomerID     *uuid.UUID      `gorm:"type:uuid;index" json:"customer_id,omitempty"`
	Customer       *Customer       `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`
	Subtotal       decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"subtotal"`
	DiscountAmount decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"discount_amount"`
	TaxAmount      decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"tax_amount"`
	Total          decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"total"`
	PaymentMethod  PaymentMethod   `gorm:"type:varchar(20);not null" json:"payment_method"`
	AmountPaid     decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"amount_paid"`
	ChangeDue      decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"change_due"`
	Notes          string          `gorm:"type:text" json:"notes,omitempty"`
	Items          []SaleItem      `gorm:"foreignKey:SaleID" json:"items"`
}

// SaleItem references the batch the stock came from so cost basis and expiry stay traceable.
type SaleItem struct {
	LedgerEntry
	SaleID    uuid.UUID       `gorm:"type:uuid;not null;index" json:"sale_id"`
	BatchID   uuid.UUID       `gorm:"type:uuid;not null;index" json:"batch_id"`
	ProductID uuid.UUID       `gorm:"type:uuid;not null;index" json:"product_id"`
	Quantity  int             `gorm:"not null;check:chk_sale_items_quantity,quantity > 0" json:"quantity"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"unit_price"`
	Discount  decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"discount"`
	Total     decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"total"`
}

// LineTotal is quantity × unit price − discount.
func LineTotal(quantity int, unitPrice, discount decimal.Decimal) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(quantity))).Sub(discount)
}

// SaleTotals holds the order-level amounts of a sale.
type SaleTotals struct {
	Subtotal decimal.Decimal
	Discount decimal.Decimal
	Tax      decimal.Decimal
	Total    decimal.Decimal
}

var hundred = decimal.NewFromInt(100)

// ComputeSaleTotals sums the line totals, applies taxRatePercent to the discounted subtotal
// (rounded to cents) and returns subtotal + tax − discount.
func ComputeSaleTotals(items []SaleItem, discount, taxRatePercent decimal.Decimal) SaleTotals {
	subtotal := decimal.Zero
	for _, it := range items {
		subtotal = subtotal.Add(it.Total)
	}
	tax := subtotal.Sub(discount).Mul(taxRatePercent).Div(hundred).Round(2)
	if tax.IsNegative() {
		tax = decimal.Zero
	}
	return SaleTotals{
		Subtotal: subtotal,
		Discount: discount,
		Tax:      tax,
		Total:    subtotal.Add(tax).Sub(discount),
	}
}
