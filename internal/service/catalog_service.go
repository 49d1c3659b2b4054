package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"pharmacy-pos/internal/model"
	"pharmacy-pos/internal/repository"
	"pharmacy-pos/internal/session"
)

// EntityService is plain CRUD over one catalog table.
type EntityService[T any] interface {
	List(ctx context.Context, search string) ([]T, error)
	Get(ctx context.Context, id uuid.UUID) (*T, error)
	Create(ctx context.Context, sess *session.Session, item *T) error
	Update(ctx context.Context, sess *session.Session, id uuid.UUID, item *T) (*T, error)
	Delete(ctx context.Context, sess *session.Session, id uuid.UUID) error
}

type entityService[T any] struct {
	name         string
	repo         repository.CrudRepository[T]
	base         func(*T) *model.BaseModel
	beforeDelete func(ctx context.Context, id uuid.UUID) error
}

func (s *entityService[T]) List(ctx context.Context, search string) ([]T, error) {
	return s.repo.FindAll(ctx, strings.TrimSpace(search))
}

func (s *entityService[T]) Get(ctx context.Context, id uuid.UUID) (*T, error) {
	item, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, storeErr(err, notFound(s.name))
	}
	return item, nil
}

func (s *entityService[T]) Create(ctx context.Context, sess *session.Session, item *T) error {
	if err := validate(item); err != nil {
		return err
	}
	b := s.base(item)
	*b = model.BaseModel{}
	b.Stamp(sess.Actor())
	return storeErr(s.repo.Create(ctx, item), notFound(s.name))
}

// Update replaces the editable fields of id with item, keeping identity and audit columns.
func (s *entityService[T]) Update(ctx context.Context, sess *session.Session, id uuid.UUID, item *T) (*T, error) {
	if err := validate(item); err != nil {
		return nil, err
	}
	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	*s.base(item) = *s.base(existing)
	s.base(item).Stamp(sess.Actor())
	if err := s.repo.Update(ctx, item); err != nil {
		return nil, storeErr(err, notFound(s.name))
	}
	return item, nil
}

func (s *entityService[T]) Delete(ctx context.Context, sess *session.Session, id uuid.UUID) error {
	if s.beforeDelete != nil {
		if err := s.beforeDelete(ctx, id); err != nil {
			return err
		}
	}
	return storeErr(s.repo.Delete(ctx, id, sess.Actor()), notFound(s.name))
}

// ProductRequest is the writable part of a product.
type ProductRequest struct {
	Name                 string     `json:"name" validate:"required,max=255"`
	GenericName          string     `json:"generic_name" validate:"max=255"`
	Brand                string     `json:"brand" validate:"max=120"`
	Barcode              *string    `json:"barcode,omitempty" validate:"omitempty,max=64"`
	CategoryID           *uuid.UUID `json:"category_id,omitempty"`
	Unit                 string     `json:"unit" validate:"max=20"`
	ReorderLevel         *int       `json:"reorder_level,omitempty" validate:"omitempty,gte=0"`
	RequiresPrescription bool       `json:"requires_prescription"`
	Description          string     `json:"description"`
}

type CatalogService interface {
	Categories() EntityService[model.Category]
	Suppliers() EntityService[model.Supplier]
	Customers() EntityService[model.Customer]

	ListProducts(ctx context.Context, filter repository.ProductFilter) ([]model.ProductWithStock, error)
	GetProduct(ctx context.Context, id uuid.UUID) (*model.Product, error)
	FindProductByBarcode(ctx context.Context, barcode string) (*model.Product, error)
	CreateProduct(ctx context.Context, sess *session.Session, req *ProductRequest) (*model.Product, error)
	UpdateProduct(ctx context.Context, sess *session.Session, id uuid.UUID, req *ProductRequest) (*model.Product, error)
	DeleteProduct(ctx context.Context, sess *session.Session, id uuid.UUID) error
}

type catalogService struct {
	categories   *entityService[model.Category]
	suppliers    *entityService[model.Supplier]
	customers    *entityService[model.Customer]
	products     repository.ProductRepository
	reorderLevel int
}

func NewCatalogService(
	categories repository.CrudRepository[model.Category],
	suppliers repository.CrudRepository[model.Supplier],
	customers repository.CrudRepository[model.Customer],
	products repository.ProductRepository,
	defaultReorderLevel int,
) CatalogService {
	s := &catalogService{products: products, reorderLevel: defaultReorderLevel}
	s.categories = &entityService[model.Category]{
		name: "category",
		repo: categories,
		base: func(c *model.Category) *model.BaseModel { return &c.BaseModel },
		beforeDelete: func(ctx context.Context, id uuid.UUID) error {
			n, err := products.CountByCategory(ctx, id)
			if err != nil {
				return err
			}
			if n > 0 {
				return fmt.Errorf("%w: category has %d products", ErrInUse, n)
			}
			return nil
		},
	}
	s.suppliers = &entityService[model.Supplier]{
		name: "supplier",
		repo: suppliers,
		base: func(v *model.Supplier) *model.BaseModel { return &v.BaseModel },
	}
	s.customers = &entityService[model.Customer]{
		name: "customer",
		repo: customers,
		base: func(c *model.Customer) *model.BaseModel { return &c.BaseModel },
	}
	return s
}

func (s *catalogService) Categories() EntityService[model.Category] { return s.categories }
func (s *catalogService) Suppliers() EntityService[model.Supplier]  { return s.suppliers }
func (s *catalogService) Customers() EntityService[model.Customer]  { return s.customers }

func (s *catalogService) ListProducts(ctx context.Context, filter repository.ProductFilter) ([]model.ProductWithStock, error) {
	filter.Search = strings.TrimSpace(filter.Search)
	return s.products.FindAll(ctx, filter)
}

func (s *catalogService) GetProduct(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	p, err := s.products.FindByID(ctx, id)
	if err != nil {
		return nil, storeErr(err, notFound("product"))
	}
	return p, nil
}

func (s *catalogService) FindProductByBarcode(ctx context.Context, barcode string) (*model.Product, error) {
	p, err := s.products.FindByBarcode(ctx, strings.TrimSpace(barcode))
	if err != nil {
		return nil, storeErr(err, notFound("product"))
	}
	return p, nil
}

func (s *catalogService) CreateProduct(ctx context.Context, sess *session.Session, req *ProductRequest) (*model.Product, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	if err := s.checkCategory(ctx, req.CategoryID); err != nil {
		return nil, err
	}
	p := &model.Product{ReorderLevel: s.reorderLevel}
	applyProduct(p, req)
	p.Stamp(sess.Actor())
	if err := s.products.Create(ctx, p); err != nil {
		return nil, storeErr(err, notFound("product"))
	}
	return p, nil
}

func (s *catalogService) UpdateProduct(ctx context.Context, sess *session.Session, id uuid.UUID, req *ProductRequest) (*model.Product, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	if err := s.checkCategory(ctx, req.CategoryID); err != nil {
		return nil, err
	}
	p, err := s.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	applyProduct(p, req)
	p.Category = nil
	p.Stamp(sess.Actor())
	if err := s.products.Update(ctx, p); err != nil {
		return nil, storeErr(err, notFound("product"))
	}
	return p, nil
}

// DeleteProduct refuses while any batch still holds stock.
func (s *catalogService) DeleteProduct(ctx context.Context, sess *session.Session, id uuid.UUID) error {
	onHand, err := s.products.OnHand(ctx, id)
	if err != nil {
		return err
	}
	if onHand > 0 {
		return fmt.Errorf("%w: product has %d units on hand", ErrInUse, onHand)
	}
	return storeErr(s.products.Delete(ctx, id, sess.Actor()), notFound("product"))
}

func (s *catalogService) checkCategory(ctx context.Context, id *uuid.UUID) error {
	if id == nil {
		return nil
	}
	_, err := s.categories.Get(ctx, *id)
	return err
}

func applyProduct(p *model.Product, req *ProductRequest) {
	p.Name = strings.TrimSpace(req.Name)
	p.GenericName = req.GenericName
	p.Brand = req.Brand
	p.Barcode = nil
	if req.Barcode != nil && strings.TrimSpace(*req.Barcode) != "" {
		code := strings.TrimSpace(*req.Barcode)
		p.Barcode = &code
	}
	p.CategoryID = req.CategoryID
	p.Unit = req.Unit
	if req.ReorderLevel != nil {
		p.ReorderLevel = *req.ReorderLevel
	}
	p.RequiresPrescription = req.RequiresPrescription
	p.Description = req.Description
}
