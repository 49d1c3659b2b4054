package model

import (
	"time"

	"github.com/google/uuid"
)

type Category struct {
	BaseModel
	Name        string `gorm:"type:varchar(120);uniqueIndex;not null" json:"name" validate:"required,max=120"`
	Description string `gorm:"type:text" json:"description"`
}

type Supplier struct {
	BaseModel
	Name          string `gorm:"type:varchar(200);not null" json:"name" validate:"required,max=200"`
	ContactPerson string `gorm:"type:varchar(120)" json:"contact_person"`
	Phone         string `gorm:"type:varchar(32)" json:"phone" validate:"omitempty,phone"`
	Email         string `gorm:"type:varchar(255)" json:"email" validate:"omitempty,email"`
	Address       string `gorm:"type:text" json:"address"`
}

// Customer is the optional buyer reference on a sale.
type Customer struct {
	BaseModel
	Name  string `gorm:"type:varchar(200);not null" json:"name" validate:"required,max=200"`
	Phone string `gorm:"type:varchar(32);index" json:"phone" validate:"omitempty,phone"`
	Email string `gorm:"type:varchar(255)" json:"email" validate:"omitempty,email"`
}

// Product is catalog identity only; quantity on hand is derived from its batches.
type Product struct {
	BaseModel
	Name                 string     `gorm:"type:varchar(255);not null;index" json:"name" validate:"required,max=255"`
	GenericName          string     `gorm:"type:varchar(255)" json:"generic_name"`
	Brand                string     `gorm:"type:varchar(120)" json:"brand"`
	Barcode              *string    `gorm:"type:varchar(64);uniqueIndex" json:"barcode,omitempty" validate:"omitempty,max=64"`
	CategoryID           *uuid.UUID `gorm:"type:uuid;index" json:"category_id,omitempty"`
	Category             *Category  `gorm:"foreignKey:CategoryID" json:"category,omitempty" validate:"-"`
	Unit                 string     `gorm:"type:varchar(20)" json:"unit"`
	ReorderLevel         int        `gorm:"not null" json:"reorder_level" validate:"gte=0"`
	RequiresPrescription bool       `gorm:"default:false" json:"requires_prescription"`
	Description          string     `gorm:"type:text" json:"description"`
}

// StockLevel is the derived on-hand view of a product.
type StockLevel struct {
	ProductID     uuid.UUID  `json:"product_id"`
	ProductName   string     `json:"product_name"`
	OnHand        int        `json:"on_hand"`
	ReorderLevel  int        `json:"reorder_level"`
	NearestExpiry *time.Time `json:"nearest_expiry,omitempty"`
}

// IsLow reports whether on-hand quantity is at or below the reorder level.
func (s StockLevel) IsLow() bool {
	return s.OnHand <= s.ReorderLevel
}

// ProductWithStock is the catalog listing row.
type ProductWithStock struct {
	Product
	OnHand        int        `json:"on_hand"`
	NearestExpiry *time.Time `json:"nearest_expiry,omitempty"`
}
