package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PurchaseOrderStatus string

const (
	POStatusPending   PurchaseOrderStatus = "pending"
	POStatusSent      PurchaseOrderStatus = "sent"
	POStatusReceived  PurchaseOrderStatus = "received"
	POStatusCancelled PurchaseOrderStatus = "cancelled"
)

// poTransitions lists the statuses reachable from each status. Received and cancelled are terminal.
var poTransitions = map[PurchaseOrderStatus][]PurchaseOrderStatus{
	POStatusPending: {POStatusSent, POStatusReceived, POStatusCancelled},
	POStatusSent:    {POStatusReceived, POStatusCancelled},
}

// CanTransition reports whether a purchase order may move from one status to another.
func CanTransition(from, to PurchaseOrderStatus) bool {
	for _, next := range poTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no transition leaves s.
func (s PurchaseOrderStatus) IsTerminal() bool {
	return len(poTransitions[s]) == 0
}

type PurchaseOrder struct {
	BaseModel
	OrderNumber  string              `gorm:"type:varchar(40);uniqueIndex;not null" json:"order_number"`
	SupplierID   uuid.UUID           `gorm:"type:uuid;not null;index" json:"supplier_id"`
	Supplier     *Supplier           `gorm:"foreignKey:SupplierID" json:"supplier,omitempty"`
	Status       PurchaseOrderStatus `gorm:"type:varchar(20);not null;index;default:pending" json:"status"`
	OrderDate    time.Time           `gorm:"type:date;not null" json:"order_date"`
	ExpectedDate *time.Time          `gorm:"type:date" json:"expected_date,omitempty"`
	ReceivedAt   *time.Time          `json:"received_at,omitempty"`
	TotalAmount  decimal.Decimal     `gorm:"type:decimal(12,2);not null;default:0" json:"total_amount"`
	Notes        string              `gorm:"type:text" json:"notes,omitempty"`
	Items        []PurchaseOrderItem `gorm:"foreignKey:PurchaseOrderID" json:"items"`
}

type PurchaseOrderItem struct {
	BaseModel
	PurchaseOrderID uuid.UUID       `gorm:"type:uuid;not null;index" json:"purchase_order_id"`
	ProductID       uuid.UUID       `gorm:"type:uuid;not null;index" json:"product_id"`
	Product         *Product        `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	Quantity        int             `gorm:"not null;check:chk_purchase_order_items_quantity,quantity > 0" json:"quantity"`
	UnitCost        decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"unit_cost"`
	TotalCost       decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"total_cost"`
}

// ItemCost is quantity × unit cost.
func ItemCost(quantity int, unitCost decimal.Decimal) decimal.Decimal {
	return unitCost.Mul(decimal.NewFromInt(int64(quantity)))
}

// SellingPriceFor applies a percentage markup to cost, rounded to cents.
func SellingPriceFor(cost, markupPercent decimal.Decimal) decimal.Decimal {
	return cost.Add(cost.Mul(markupPercent).Div(hundred)).Round(2)
}
