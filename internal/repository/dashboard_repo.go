package repository

import (
	"context"
	"time"

	"pharmacy-pos/internal/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// StockMovementData is one day of the stock movement chart.
type StockMovementData struct {
	Date     string `json:"date"`
	Inbound  int    `json:"inbound"`
	Outbound int    `json:"outbound"`
}

// DashboardRepository holds the read-only aggregate queries behind the dashboard.
type DashboardRepository interface {
	SalesTotal(ctx context.Context, from, to time.Time) (decimal.Decimal, int64, error)
	LowStockCount(ctx context.Context) (int64, error)
	PendingOrderCount(ctx context.Context) (int64, error)
	TotalProducts(ctx context.Context) (int64, error)
	ExpiringBatchCount(ctx context.Context, by time.Time) (int64, error)
	StockMovement(ctx context.Context, from, to time.Time) ([]StockMovementData, error)
}

type dashboardRepo struct {
	db *gorm.DB
}

func NewDashboardRepo(db *gorm.DB) DashboardRepository {
	return &dashboardRepo{db}
}

// SalesTotal sums sale totals with created_at in [from, to).
func (r *dashboardRepo) SalesTotal(ctx context.Context, from, to time.Time) (decimal.Decimal, int64, error) {
	var row struct {
		Total decimal.Decimal
		Count int64
	}
	err := r.db.WithContext(ctx).Model(&model.Sale{}).
		Select("COALESCE(SUM(total), 0) AS total, COUNT(*) AS count").
		Where("created_at >= ? AND created_at < ?", from, to).
		Scan(&row).Error
	if err != nil {
		return decimal.Zero, 0, err
	}
	return row.Total, row.Count, nil
}

// LowStockCount counts products whose on-hand quantity is at or below their reorder level.
func (r *dashboardRepo) LowStockCount(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Raw(`
		SELECT COUNT(*) FROM (
			SELECT p.id
			FROM products p
			LEFT JOIN product_batches b ON b.product_id = p.id AND b.deleted_at IS NULL
			WHERE p.deleted_at IS NULL
			GROUP BY p.id, p.reorder_level
			HAVING COALESCE(SUM(b.quantity), 0) <= p.reorder_level
		) AS low_stock`).Scan(&count).Error
	return count, err
}

func (r *dashboardRepo) PendingOrderCount(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.PurchaseOrder{}).
		Where("status = ?", model.POStatusPending).
		Count(&count).Error
	return count, err
}

func (r *dashboardRepo) TotalProducts(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Product{}).Count(&count).Error
	return count, err
}

// ExpiringBatchCount counts batches with stock left that expire on or before by.
func (r *dashboardRepo) ExpiringBatchCount(ctx context.Context, by time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.ProductBatch{}).
		Where("quantity > 0 AND expiry_date <= ?", by).
		Count(&count).Error
	return count, err
}

func (r *dashboardRepo) StockMovement(ctx context.Context, from, to time.Time) ([]StockMovementData, error) {
	var results []StockMovementData

	// Query untuk aggregate movements per hari
	rows, err := r.db.WithContext(ctx).Model(&model.InventoryMovement{}).
		Select(`
			TO_CHAR(DATE(created_at), 'YYYY-MM-DD') as date,
			COALESCE(SUM(CASE WHEN quantity > 0 THEN quantity ELSE 0 END), 0) as inbound,
			COALESCE(SUM(CASE WHEN quantity < 0 THEN -quantity ELSE 0 END), 0) as outbound
		`).
		Where("created_at >= ? AND created_at < ?", from, to).
		Group("DATE(created_at)").
		Order("date ASC").
		Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var data StockMovementData
		if err := rows.Scan(&data.Date, &data.Inbound, &data.Outbound); err != nil {
			return nil, err
		}
		results = append(results, data)
	}

	return results, rows.Err()
}
