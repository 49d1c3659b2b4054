package repository

import (
	"context"

	"pharmacy-pos/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProductFilter narrows FindAll. Zero values match everything.
type ProductFilter struct {
	Search       string
	CategoryID   *uuid.UUID
	LowStockOnly bool
}

type ProductRepository interface {
	Create(ctx context.Context, product *model.Product) error
	FindAll(ctx context.Context, filter ProductFilter) ([]model.ProductWithStock, error)
	FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error)
	FindByBarcode(ctx context.Context, barcode string) (*model.Product, error)
	Update(ctx context.Context, product *model.Product) error
	Delete(ctx context.Context, id uuid.UUID, deletedBy string) error
	OnHand(ctx context.Context, id uuid.UUID) (int, error)
	CountByCategory(ctx context.Context, categoryID uuid.UUID) (int64, error)
}

type productRepo struct {
	db *gorm.DB
}

func NewProductRepo(db *gorm.DB) ProductRepository {
	return &productRepo{db}
}

func (r *productRepo) Create(ctx context.Context, product *model.Product) error {
	return r.db.WithContext(ctx).Create(product).Error
}

// FindAll lists products with on-hand quantity summed over their batches and the
// nearest expiry among batches that still hold stock.
func (r *productRepo) FindAll(ctx context.Context, filter ProductFilter) ([]model.ProductWithStock, error) {
	var products []model.ProductWithStock
	q := r.db.WithContext(ctx).Table("products").
		Select(`products.*,
			COALESCE(SUM(b.quantity), 0) AS on_hand,
			MIN(b.expiry_date) FILTER (WHERE b.quantity > 0) AS nearest_expiry`).
		Joins("LEFT JOIN product_batches b ON b.product_id = products.id AND b.deleted_at IS NULL").
		Where("products.deleted_at IS NULL")
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		q = q.Where("(products.name ILIKE ? OR products.generic_name ILIKE ? OR products.barcode = ?)", like, like, filter.Search)
	}
	if filter.CategoryID != nil {
		q = q.Where("products.category_id = ?", *filter.CategoryID)
	}
	q = q.Group("products.id")
	if filter.LowStockOnly {
		q = q.Having("COALESCE(SUM(b.quantity), 0) <= products.reorder_level")
	}
	err := q.Order("products.name ASC").Scan(&products).Error
	return products, err
}

func (r *productRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	var product model.Product
	if err := r.db.WithContext(ctx).Preload("Category").First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *productRepo) FindByBarcode(ctx context.Context, barcode string) (*model.Product, error) {
	var product model.Product
	if err := r.db.WithContext(ctx).Preload("Category").First(&product, "barcode = ?", barcode).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *productRepo) Update(ctx context.Context, product *model.Product) error {
	return r.db.WithContext(ctx).Omit("Category").Save(product).Error
}

func (r *productRepo) Delete(ctx context.Context, id uuid.UUID, deletedBy string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.Product{}).Where("id = ?", id).Update("deleted_by", deletedBy).Error; err != nil {
			return err
		}
		res := tx.Delete(&model.Product{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

func (r *productRepo) OnHand(ctx context.Context, id uuid.UUID) (int, error) {
	var onHand int
	err := r.db.WithContext(ctx).Model(&model.ProductBatch{}).
		Select("COALESCE(SUM(quantity), 0)").
		Where("product_id = ?", id).
		Scan(&onHand).Error
	return onHand, err
}

func (r *productRepo) CountByCategory(ctx context.Context, categoryID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Product{}).Where("category_id = ?", categoryID).Count(&count).Error
	return count, err
}
