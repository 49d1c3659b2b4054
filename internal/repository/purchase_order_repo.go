package repository

import (
	"context"

	"pharmacy-pos/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PurchaseOrderRepository creates and reads orders. Status changes go through LedgerTx
// so they happen under the order row lock.
type PurchaseOrderRepository interface {
	Create(ctx context.Context, po *model.PurchaseOrder) error
	FindAll(ctx context.Context, status model.PurchaseOrderStatus) ([]model.PurchaseOrder, error)
	FindByID(ctx context.Context, id uuid.UUID) (*model.PurchaseOrder, error)
}

type purchaseOrderRepo struct {
	db *gorm.DB
}

func NewPurchaseOrderRepo(db *gorm.DB) PurchaseOrderRepository {
	return &purchaseOrderRepo{db}
}

func (r *purchaseOrderRepo) Create(ctx context.Context, po *model.PurchaseOrder) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(po).Error; err != nil {
			return err
		}
		for i := range po.Items {
			po.Items[i].PurchaseOrderID = po.ID
		}
		if len(po.Items) == 0 {
			return nil
		}
		return tx.Omit("Product").Create(&po.Items).Error
	})
}

func (r *purchaseOrderRepo) FindAll(ctx context.Context, status model.PurchaseOrderStatus) ([]model.PurchaseOrder, error) {
	var orders []model.PurchaseOrder
	q := r.db.WithContext(ctx).Preload("Supplier")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	err := q.Order("order_date DESC").Order("created_at DESC").Find(&orders).Error
	return orders, err
}

func (r *purchaseOrderRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.PurchaseOrder, error) {
	var po model.PurchaseOrder
	err := r.db.WithContext(ctx).
		Preload("Supplier").
		Preload("Items.Product").
		First(&po, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &po, nil
}
