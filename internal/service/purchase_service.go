package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"pharmacy-pos/internal/metrics"
	"pharmacy-pos/internal/model"
	"pharmacy-pos/internal/repository"
	"pharmacy-pos/internal/session"
	"pharmacy-pos/internal/ws"
	"pharmacy-pos/pkg/cache"
)

type PurchaseOrderItemRequest struct {
	ProductID uuid.UUID       `json:"product_id" validate:"uuid_required"`
	Quantity  int             `json:"quantity" validate:"gt=0"`
	UnitCost  decimal.Decimal `json:"unit_cost" validate:"gte=0,money"`
}

type PurchaseOrderRequest struct {
	SupplierID   uuid.UUID                  `json:"supplier_id" validate:"uuid_required"`
	ExpectedDate *time.Time                 `json:"expected_date,omitempty"`
	Notes        string                     `json:"notes" validate:"max=1000"`
	Items        []PurchaseOrderItemRequest `json:"items" validate:"required,min=1,dive"`
}

// ReceiveItemRequest supplies the batch details for one order line.
type ReceiveItemRequest struct {
	ItemID       uuid.UUID        `json:"item_id" validate:"uuid_required"`
	BatchNumber  string           `json:"batch_number" validate:"max=64"`
	ExpiryDate   *time.Time       `json:"expiry_date" validate:"required"`
	SellingPrice *decimal.Decimal `json:"selling_price,omitempty" validate:"omitempty,gte=0,money"`
}

type ReceiveRequest struct {
	Items []ReceiveItemRequest `json:"items" validate:"required,min=1,dive"`
}

type PurchaseService interface {
	Create(ctx context.Context, sess *session.Session, req *PurchaseOrderRequest) (*model.PurchaseOrder, error)
	List(ctx context.Context, status model.PurchaseOrderStatus) ([]model.PurchaseOrder, error)
	Get(ctx context.Context, id uuid.UUID) (*model.PurchaseOrder, error)
	UpdateStatus(ctx context.Context, sess *session.Session, id uuid.UUID, status model.PurchaseOrderStatus) (*model.PurchaseOrder, error)
	Receive(ctx context.Context, sess *session.Session, id uuid.UUID, req *ReceiveRequest) (*model.PurchaseOrder, error)
}

type purchaseService struct {
	orders    repository.PurchaseOrderRepository
	ledger    repository.LedgerRepository
	suppliers repository.CrudRepository[model.Supplier]
	products  repository.ProductRepository
	locker    Locker
	markup    decimal.Decimal
	location  *time.Location
	events    *stockEvents
	log       logrus.FieldLogger
	now       func() time.Time
}

// PurchaseConfig carries the receipt pricing policy.
type PurchaseConfig struct {
	MarkupPercent decimal.Decimal
	Location      *time.Location
}

func NewPurchaseService(
	orders repository.PurchaseOrderRepository,
	ledger repository.LedgerRepository,
	suppliers repository.CrudRepository[model.Supplier],
	products repository.ProductRepository,
	locker Locker,
	publisher EventPublisher,
	invalidator CacheInvalidator,
	m *metrics.Metrics,
	log logrus.FieldLogger,
	cfg PurchaseConfig,
) PurchaseService {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	log = log.WithField("module", "purchase")
	return &purchaseService{
		orders:    orders,
		ledger:    ledger,
		suppliers: suppliers,
		products:  products,
		locker:    locker,
		markup:    cfg.MarkupPercent,
		location:  cfg.Location,
		events:    &stockEvents{ledger: ledger, events: publisher, cache: invalidator, metrics: m, log: log},
		log:       log,
		now:       time.Now,
	}
}

func (s *purchaseService) Create(ctx context.Context, sess *session.Session, req *PurchaseOrderRequest) (*model.PurchaseOrder, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	if _, err := s.suppliers.FindByID(ctx, req.SupplierID); err != nil {
		return nil, storeErr(err, notFound("supplier"))
	}

	now := s.now().In(s.location)
	po := &model.PurchaseOrder{
		OrderNumber:  orderNumber(now),
		SupplierID:   req.SupplierID,
		Status:       model.POStatusPending,
		OrderDate:    now,
		ExpectedDate: req.ExpectedDate,
		Notes:        req.Notes,
		TotalAmount:  decimal.Zero,
	}
	po.Stamp(sess.Actor())
	for i, it := range req.Items {
		if _, err := s.products.FindByID(ctx, it.ProductID); err != nil {
			return nil, storeErr(err, notFound(fmt.Sprintf("product in items[%d]", i)))
		}
		item := model.PurchaseOrderItem{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			UnitCost:  it.UnitCost,
			TotalCost: model.ItemCost(it.Quantity, it.UnitCost),
		}
		item.Stamp(sess.Actor())
		po.Items = append(po.Items, item)
		po.TotalAmount = po.TotalAmount.Add(item.TotalCost)
	}

	if err := s.orders.Create(ctx, po); err != nil {
		return nil, storeErr(err, notFound("purchase order"))
	}
	return po, nil
}

func (s *purchaseService) List(ctx context.Context, status model.PurchaseOrderStatus) ([]model.PurchaseOrder, error) {
	return s.orders.FindAll(ctx, status)
}

func (s *purchaseService) Get(ctx context.Context, id uuid.UUID) (*model.PurchaseOrder, error) {
	po, err := s.orders.FindByID(ctx, id)
	if err != nil {
		return nil, storeErr(err, notFound("purchase order"))
	}
	return po, nil
}

// UpdateStatus moves an order to sent or cancelled. Receipt has its own operation
// because it touches the ledger.
func (s *purchaseService) UpdateStatus(ctx context.Context, sess *session.Session, id uuid.UUID, status model.PurchaseOrderStatus) (*model.PurchaseOrder, error) {
	switch status {
	case model.POStatusSent, model.POStatusCancelled:
	case model.POStatusReceived:
		return nil, invalid("status", "use the receive operation")
	default:
		return nil, invalid("status", "unknown status")
	}

	var updated *model.PurchaseOrder
	err := s.ledger.WithTx(ctx, func(tx repository.LedgerTx) error {
		po, err := tx.LockPurchaseOrder(id)
		if err != nil {
			return storeErr(err, notFound("purchase order"))
		}
		if !model.CanTransition(po.Status, status) {
			return fmt.Errorf("%w: %s to %s", ErrInvalidTransition, po.Status, status)
		}
		po.Status = status
		po.UpdatedBy = sess.Actor()
		if err := tx.UpdatePurchaseOrder(po); err != nil {
			return err
		}
		updated = po
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Receive books every order line into a batch and marks the order received. The
// order row lock makes a second receipt see the terminal status and fail.
func (s *purchaseService) Receive(ctx context.Context, sess *session.Session, id uuid.UUID, req *ReceiveRequest) (*model.PurchaseOrder, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	overrides := make(map[uuid.UUID]ReceiveItemRequest, len(req.Items))
	for _, it := range req.Items {
		overrides[it.ItemID] = it
	}

	release := func() {}
	var err error
	if s.locker != nil {
		release, err = s.locker.Acquire(ctx, "purchase_order:receive:"+id.String())
	}
	if err != nil {
		if errors.Is(err, cache.ErrLockHeld) {
			return nil, ErrReceiptInProgress
		}
		// the row lock below still serializes receipts
		s.log.WithError(err).Warn("receipt lock unavailable")
		release = func() {}
	}
	defer release()

	now := s.now().In(s.location)
	var (
		received  *model.PurchaseOrder
		movements []model.InventoryMovement
	)
	err = s.ledger.WithTx(ctx, func(tx repository.LedgerTx) error {
		po, err := tx.LockPurchaseOrder(id)
		if err != nil {
			return storeErr(err, notFound("purchase order"))
		}
		if !model.CanTransition(po.Status, model.POStatusReceived) {
			return fmt.Errorf("%w: %s to %s", ErrInvalidTransition, po.Status, model.POStatusReceived)
		}

		known := make(map[uuid.UUID]bool, len(po.Items))
		for _, item := range po.Items {
			known[item.ID] = true
		}
		for itemID := range overrides {
			if !known[itemID] {
				return invalid("items", fmt.Sprintf("item %s is not on order %s", itemID, po.OrderNumber))
			}
		}

		movements = make([]model.InventoryMovement, 0, len(po.Items))
		for i, item := range po.Items {
			ov, ok := overrides[item.ID]
			if !ok || ov.ExpiryDate == nil {
				return invalid(fmt.Sprintf("items[%s].expiry_date", item.ID), "expiry date is required")
			}
			batchID, err := s.stockBatch(tx, po, i, item, ov, sess.Actor())
			if err != nil {
				return err
			}
			m := model.InventoryMovement{
				ProductID:    item.ProductID,
				BatchID:      batchID,
				Quantity:     item.Quantity,
				MovementType: model.MovementPurchase,
				ReferenceID:  &po.ID,
				CreatedBy:    sess.UserID,
			}
			m.CreatedAt = now
			movements = append(movements, m)
		}
		if err := tx.AppendMovements(movements); err != nil {
			return err
		}

		po.Status = model.POStatusReceived
		po.ReceivedAt = &now
		po.UpdatedBy = sess.Actor()
		if err := tx.UpdatePurchaseOrder(po); err != nil {
			return err
		}
		received = po
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"purchase_order_id": received.ID,
		"order_number":      received.OrderNumber,
		"lines":             len(received.Items),
	}).Info("purchase order received")
	s.events.publish(ws.EventPurchaseReceived, map[string]any{
		"purchase_order_id": received.ID,
		"order_number":      received.OrderNumber,
		"received_at":       received.ReceivedAt,
	})
	s.events.committed(ctx, model.MovementPurchase, movements)
	return received, nil
}

// stockBatch tops up the batch with the same product and number, or creates it.
func (s *purchaseService) stockBatch(tx repository.LedgerTx, po *model.PurchaseOrder, idx int, item model.PurchaseOrderItem, ov ReceiveItemRequest, actor string) (uuid.UUID, error) {
	number := strings.TrimSpace(ov.BatchNumber)
	if number == "" {
		number = fmt.Sprintf("%s-%02d", po.OrderNumber, idx+1)
	}

	existing, err := tx.FindBatchByNumber(item.ProductID, number)
	switch {
	case err == nil:
		if err := tx.AdjustBatchQuantity(existing.ID, item.Quantity, actor); err != nil {
			return uuid.Nil, err
		}
		return existing.ID, nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return uuid.Nil, err
	}

	price := model.SellingPriceFor(item.UnitCost, s.markup)
	if ov.SellingPrice != nil {
		price = *ov.SellingPrice
	}
	batch := &model.ProductBatch{
		ProductID:       item.ProductID,
		BatchNumber:     number,
		ExpiryDate:      *ov.ExpiryDate,
		CostPrice:       item.UnitCost,
		SellingPrice:    price,
		Quantity:        item.Quantity,
		PurchaseOrderID: &po.ID,
	}
	batch.Stamp(actor)
	if err := tx.CreateBatch(batch); err != nil {
		return uuid.Nil, err
	}
	return batch.ID, nil
}

// orderNumber is PO-YYYYMMDD-XXXXXX with a random suffix.
func orderNumber(t time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return fmt.Sprintf("PO-%s-%s", t.Format("20060102"), suffix)
}
