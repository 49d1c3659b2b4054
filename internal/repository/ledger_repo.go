package repository

import (
	"context"
	"errors"
	"time"

	"pharmacy-pos/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrNegativeStock is returned when a decrement would take a batch below zero.
var ErrNegativeStock = errors.New("batch quantity would go negative")

// LedgerTx is the set of writes that run inside one ledger transaction.
type LedgerTx interface {
	// LockBatches row-locks the batches in id order. Missing ids are absent from the result.
	LockBatches(ids []uuid.UUID) ([]model.ProductBatch, error)
	AdjustBatchQuantity(id uuid.UUID, delta int, updatedBy string) error
	FindBatchByNumber(productID uuid.UUID, batchNumber string) (*model.ProductBatch, error)
	CreateBatch(batch *model.ProductBatch) error
	AppendMovements(movements []model.InventoryMovement) error
	CreateSale(sale *model.Sale) error
	LockPurchaseOrder(id uuid.UUID) (*model.PurchaseOrder, error)
	UpdatePurchaseOrder(po *model.PurchaseOrder) error
}

type BatchFilter struct {
	ProductID   *uuid.UUID
	InStockOnly bool
	ExpiresBy   *time.Time
}

type MovementFilter struct {
	ProductID    *uuid.UUID
	BatchID      *uuid.UUID
	MovementType model.MovementType
	From, To     *time.Time
	Limit        int
}

type LedgerRepository interface {
	// WithTx runs fn in a database transaction. fn's error rolls everything back.
	WithTx(ctx context.Context, fn func(tx LedgerTx) error) error
	FindBatch(ctx context.Context, id uuid.UUID) (*model.ProductBatch, error)
	ListBatches(ctx context.Context, filter BatchFilter) ([]model.ProductBatch, error)
	ListMovements(ctx context.Context, filter MovementFilter) ([]model.InventoryMovement, error)
	StockLevels(ctx context.Context, productIDs ...uuid.UUID) ([]model.StockLevel, error)
}

type ledgerRepo struct {
	db *gorm.DB
}

func NewLedgerRepo(db *gorm.DB) LedgerRepository {
	return &ledgerRepo{db}
}

func (r *ledgerRepo) WithTx(ctx context.Context, fn func(tx LedgerTx) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&ledgerTx{tx})
	})
}

func (r *ledgerRepo) FindBatch(ctx context.Context, id uuid.UUID) (*model.ProductBatch, error) {
	var batch model.ProductBatch
	if err := r.db.WithContext(ctx).Preload("Product").First(&batch, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &batch, nil
}

func (r *ledgerRepo) ListBatches(ctx context.Context, filter BatchFilter) ([]model.ProductBatch, error) {
	var batches []model.ProductBatch
	q := r.db.WithContext(ctx).Preload("Product")
	if filter.ProductID != nil {
		q = q.Where("product_id = ?", *filter.ProductID)
	}
	if filter.InStockOnly {
		q = q.Where("quantity > 0")
	}
	if filter.ExpiresBy != nil {
		q = q.Where("expiry_date <= ?", *filter.ExpiresBy)
	}
	// first-expiry-first-out order for the POS picker
	err := q.Order("expiry_date ASC").Order("batch_number ASC").Find(&batches).Error
	return batches, err
}

func (r *ledgerRepo) ListMovements(ctx context.Context, filter MovementFilter) ([]model.InventoryMovement, error) {
	var movements []model.InventoryMovement
	q := r.db.WithContext(ctx)
	if filter.ProductID != nil {
		q = q.Where("product_id = ?", *filter.ProductID)
	}
	if filter.BatchID != nil {
		q = q.Where("batch_id = ?", *filter.BatchID)
	}
	if filter.MovementType != "" {
		q = q.Where("movement_type = ?", filter.MovementType)
	}
	if filter.From != nil {
		q = q.Where("created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		q = q.Where("created_at < ?", *filter.To)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	err := q.Order("created_at DESC").Find(&movements).Error
	return movements, err
}

func (r *ledgerRepo) StockLevels(ctx context.Context, productIDs ...uuid.UUID) ([]model.StockLevel, error) {
	var levels []model.StockLevel
	q := r.db.WithContext(ctx).Table("products p").
		Select(`p.id AS product_id, p.name AS product_name, p.reorder_level,
			COALESCE(SUM(b.quantity), 0) AS on_hand,
			MIN(b.expiry_date) FILTER (WHERE b.quantity > 0) AS nearest_expiry`).
		Joins("LEFT JOIN product_batches b ON b.product_id = p.id AND b.deleted_at IS NULL").
		Where("p.deleted_at IS NULL")
	if len(productIDs) > 0 {
		q = q.Where("p.id IN ?", productIDs)
	}
	err := q.Group("p.id, p.name, p.reorder_level").Order("p.name ASC").Scan(&levels).Error
	return levels, err
}

type ledgerTx struct {
	tx *gorm.DB
}

func (l *ledgerTx) LockBatches(ids []uuid.UUID) ([]model.ProductBatch, error) {
	var batches []model.ProductBatch
	if len(ids) == 0 {
		return batches, nil
	}
	err := l.tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id IN ?", ids).
		Order("id ASC").
		Find(&batches).Error
	return batches, err
}

// AdjustBatchQuantity applies delta in a single guarded UPDATE so the quantity can
// never be driven below zero even without a prior lock.
func (l *ledgerTx) AdjustBatchQuantity(id uuid.UUID, delta int, updatedBy string) error {
	res := l.tx.Model(&model.ProductBatch{}).
		Where("id = ? AND quantity + ? >= 0", id, delta).
		Updates(map[string]interface{}{
			"quantity":   gorm.Expr("quantity + ?", delta),
			"updated_by": updatedBy,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNegativeStock
	}
	return nil
}

func (l *ledgerTx) FindBatchByNumber(productID uuid.UUID, batchNumber string) (*model.ProductBatch, error) {
	var batch model.ProductBatch
	err := l.tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("product_id = ? AND batch_number = ?", productID, batchNumber).
		First(&batch).Error
	if err != nil {
		return nil, err
	}
	return &batch, nil
}

func (l *ledgerTx) CreateBatch(batch *model.ProductBatch) error {
	return l.tx.Omit("Product").Create(batch).Error
}

func (l *ledgerTx) AppendMovements(movements []model.InventoryMovement) error {
	if len(movements) == 0 {
		return nil
	}
	return l.tx.Create(&movements).Error
}

// CreateSale inserts the sale header then its items.
func (l *ledgerTx) CreateSale(sale *model.Sale) error {
	if err := l.tx.Omit(clause.Associations).Create(sale).Error; err != nil {
		return err
	}
	for i := range sale.Items {
		sale.Items[i].SaleID = sale.ID
	}
	if len(sale.Items) == 0 {
		return nil
	}
	return l.tx.Create(&sale.Items).Error
}

func (l *ledgerTx) LockPurchaseOrder(id uuid.UUID) (*model.PurchaseOrder, error) {
	var po model.PurchaseOrder
	err := l.tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&po, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	if err := l.tx.Where("purchase_order_id = ?", po.ID).Order("created_at ASC").Find(&po.Items).Error; err != nil {
		return nil, err
	}
	return &po, nil
}

func (l *ledgerTx) UpdatePurchaseOrder(po *model.PurchaseOrder) error {
	return l.tx.Model(po).
		Select("status", "received_at", "updated_by").
		Updates(po).Error
}
