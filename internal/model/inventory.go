package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductBatch is one receipt of stock for a product.
type ProductBatch struct {
	BaseModel
	ProductID       uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_product_batch_number" json:"product_id"`
	Product         *Product        `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	BatchNumber     string          `gorm:"type:varchar(64);not null;uniqueIndex:idx_product_batch_number" json:"batch_number"`
	ExpiryDate      time.Time       `gorm:"type:date;not null;index" json:"expiry_date"`
	CostPrice       decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"cost_price"`
	SellingPrice    decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"selling_price"`
	Quantity        int             `gorm:"not null;default:0;check:chk_product_batches_quantity,quantity >= 0" json:"quantity"`
	PurchaseOrderID *uuid.UUID      `gorm:"type:uuid;index" json:"purchase_order_id,omitempty"`
}

// IsExpired reports whether the batch can no longer be sold at t.
func (b *ProductBatch) IsExpired(t time.Time) bool {
	y, m, d := t.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, t.Location())
	ey, em, ed := b.ExpiryDate.Date()
	expiry := time.Date(ey, em, ed, 0, 0, 0, 0, t.Location())
	return !expiry.After(today)
}

type MovementType string

const (
	MovementSale       MovementType = "sale"
	MovementPurchase   MovementType = "purchase"
	MovementAdjustment MovementType = "adjustment"
	MovementReturn     MovementType = "return"
	MovementDamage     MovementType = "damage"
)

// IsValid reports whether t is one of the known causes.
func (t MovementType) IsValid() bool {
	switch t {
	case MovementSale, MovementPurchase, MovementAdjustment, MovementReturn, MovementDamage:
		return true
	}
	return false
}

// InventoryMovement is an append-only stock ledger entry. Quantity is the signed delta
// applied to the batch.
type InventoryMovement struct {
	LedgerEntry
	ProductID    uuid.UUID    `gorm:"type:uuid;not null;index" json:"product_id"`
	BatchID      uuid.UUID    `gorm:"type:uuid;not null;index" json:"batch_id"`
	Quantity     int          `gorm:"not null;check:chk_inventory_movements_quantity,quantity <> 0" json:"quantity"`
	MovementType MovementType `gorm:"type:varchar(20);not null;index" json:"movement_type"`
	ReferenceID  *uuid.UUID   `gorm:"type:uuid;index" json:"reference_id,omitempty"`
	Notes        string       `gorm:"type:text" json:"notes,omitempty"`
	CreatedBy    uuid.UUID    `gorm:"type:uuid;not null" json:"created_by"`
}
