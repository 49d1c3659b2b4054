package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CrudRepository covers catalog tables that need nothing beyond plain CRUD.
type CrudRepository[T any] interface {
	Create(ctx context.Context, item *T) error
	FindAll(ctx context.Context, search string) ([]T, error)
	FindByID(ctx context.Context, id uuid.UUID) (*T, error)
	Update(ctx context.Context, item *T) error
	Delete(ctx context.Context, id uuid.UUID, deletedBy string) error
}

type crudRepo[T any] struct {
	db           *gorm.DB
	searchColumn string
}

// NewCrudRepo returns a repository over T. search filters FindAll with ILIKE on searchColumn.
func NewCrudRepo[T any](db *gorm.DB, searchColumn string) CrudRepository[T] {
	return &crudRepo[T]{db: db, searchColumn: searchColumn}
}

func (r *crudRepo[T]) Create(ctx context.Context, item *T) error {
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *crudRepo[T]) FindAll(ctx context.Context, search string) ([]T, error) {
	var items []T
	q := r.db.WithContext(ctx)
	if search != "" && r.searchColumn != "" {
		q = q.Where(r.searchColumn+" ILIKE ?", "%"+search+"%")
	}
	if r.searchColumn != "" {
		q = q.Order(r.searchColumn + " ASC")
	}
	err := q.Find(&items).Error
	return items, err
}

func (r *crudRepo[T]) FindByID(ctx context.Context, id uuid.UUID) (*T, error) {
	var item T
	if err := r.db.WithContext(ctx).First(&item, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *crudRepo[T]) Update(ctx context.Context, item *T) error {
	return r.db.WithContext(ctx).Save(item).Error
}

// Delete soft deletes the row and records who did it.
func (r *crudRepo[T]) Delete(ctx context.Context, id uuid.UUID, deletedBy string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var item T
		if err := tx.Model(&item).Where("id = ?", id).Update("deleted_by", deletedBy).Error; err != nil {
			return err
		}
		res := tx.Delete(&item, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}
