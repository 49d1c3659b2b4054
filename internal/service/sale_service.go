package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"pharmacy-pos/internal/access"
	"pharmacy-pos/internal/metrics"
	"pharmacy-pos/internal/model"
	"pharmacy-pos/internal/repository"
	"pharmacy-pos/internal/session"
	"pharmacy-pos/internal/ws"
)

type SaleLineRequest struct {
	BatchID   uuid.UUID        `json:"batch_id" validate:"uuid_required"`
	Quantity  int              `json:"quantity" validate:"gt=0"`
	UnitPrice *decimal.Decimal `json:"unit_price,omitempty" validate:"omitempty,gte=0,money"`
	Discount  decimal.Decimal  `json:"discount" validate:"gte=0,money"`
}

type SaleRequest struct {
	CustomerID    *uuid.UUID          `json:"customer_id,omitempty"`
	Items         []SaleLineRequest   `json:"items" validate:"required,min=1,dive"`
	PaymentMethod model.PaymentMethod `json:"payment_method" validate:"required,oneof=cash card mobile_money insurance"`
	Discount      decimal.Decimal     `json:"discount" validate:"gte=0,money"`
	AmountPaid    decimal.Decimal     `json:"amount_paid" validate:"gte=0,money"`
	Notes         string              `json:"notes" validate:"max=500"`
}

type SaleListFilter struct {
	CustomerID *uuid.UUID
	From, To   *time.Time
	Limit      int
}

type SaleService interface {
	Settle(ctx context.Context, sess *session.Session, req *SaleRequest) (*model.Sale, error)
	List(ctx context.Context, sess *session.Session, filter SaleListFilter) ([]model.Sale, error)
	Get(ctx context.Context, sess *session.Session, id uuid.UUID) (*model.Sale, error)
}

// SaleConfig carries the pricing policy applied at settlement.
type SaleConfig struct {
	TaxRatePercent decimal.Decimal
	Location       *time.Location
}

type saleService struct {
	ledger  repository.LedgerRepository
	sales   repository.SaleRepository
	cfg     SaleConfig
	events  *stockEvents
	metrics *metrics.Metrics
	log     logrus.FieldLogger
	now     func() time.Time
}

func NewSaleService(
	ledger repository.LedgerRepository,
	sales repository.SaleRepository,
	publisher EventPublisher,
	cache CacheInvalidator,
	m *metrics.Metrics,
	log logrus.FieldLogger,
	cfg SaleConfig,
) SaleService {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	log = log.WithField("module", "sale")
	return &saleService{
		ledger:  ledger,
		sales:   sales,
		cfg:     cfg,
		events:  &stockEvents{ledger: ledger, events: publisher, cache: cache, metrics: m, log: log},
		metrics: m,
		log:     log,
		now:     time.Now,
	}
}

// Settle records a sale and decrements its batches in one transaction. Either the
// sale, its items, the batch decrements and one sale movement per line all commit,
// or nothing does.
func (s *saleService) Settle(ctx context.Context, sess *session.Session, req *SaleRequest) (*model.Sale, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	// total requested per batch; a batch may appear on several lines
	requested := make(map[uuid.UUID]int, len(req.Items))
	batchIDs := make([]uuid.UUID, 0, len(req.Items))
	for _, line := range req.Items {
		if _, ok := requested[line.BatchID]; !ok {
			batchIDs = append(batchIDs, line.BatchID)
		}
		requested[line.BatchID] += line.Quantity
	}
	sort.Slice(batchIDs, func(i, j int) bool {
		return bytes.Compare(batchIDs[i][:], batchIDs[j][:]) < 0
	})

	now := s.now().In(s.cfg.Location)
	sale := &model.Sale{
		ReceiptNumber: receiptNumber(now),
		CashierID:     sess.UserID,
		CustomerID:    req.CustomerID,
		PaymentMethod: req.PaymentMethod,
		Notes:         req.Notes,
	}
	sale.ID = uuid.New()
	sale.CreatedAt = now

	var movements []model.InventoryMovement
	err := s.ledger.WithTx(ctx, func(tx repository.LedgerTx) error {
		locked, err := tx.LockBatches(batchIDs)
		if err != nil {
			return err
		}
		batches := make(map[uuid.UUID]model.ProductBatch, len(locked))
		for _, b := range locked {
			batches[b.ID] = b
		}

		for _, id := range batchIDs {
			b, ok := batches[id]
			if !ok {
				return fmt.Errorf("%w: %s", ErrBatchNotFound, id)
			}
			if b.IsExpired(now) {
				return fmt.Errorf("%w: %s expired %s", ErrBatchExpired, b.BatchNumber, b.ExpiryDate.Format("2006-01-02"))
			}
			if b.Quantity < requested[id] {
				return &InsufficientStockError{BatchID: id, BatchNumber: b.BatchNumber, Requested: requested[id], Available: b.Quantity}
			}
		}

		items := make([]model.SaleItem, len(req.Items))
		for i, line := range req.Items {
			b := batches[line.BatchID]
			price := b.SellingPrice
			if line.UnitPrice != nil {
				price = *line.UnitPrice
			}
			total := model.LineTotal(line.Quantity, price, line.Discount)
			if total.IsNegative() {
				return invalid(fmt.Sprintf("items[%d].discount", i), "discount exceeds line amount")
			}
			items[i] = model.SaleItem{
				SaleID:    sale.ID,
				BatchID:   b.ID,
				ProductID: b.ProductID,
				Quantity:  line.Quantity,
				UnitPrice: price,
				Discount:  line.Discount,
				Total:     total,
			}
			items[i].CreatedAt = now
		}

		totals := model.ComputeSaleTotals(items, req.Discount, s.cfg.TaxRatePercent)
		if totals.Total.IsNegative() {
			return invalid("discount", "discount exceeds subtotal")
		}
		sale.Items = items
		sale.Subtotal = totals.Subtotal
		sale.DiscountAmount = totals.Discount
		sale.TaxAmount = totals.Tax
		sale.Total = totals.Total
		if err := settlePayment(sale, req.AmountPaid); err != nil {
			return err
		}

		movements = make([]model.InventoryMovement, len(items))
		for i, item := range items {
			if err := tx.AdjustBatchQuantity(item.BatchID, -item.Quantity, sess.Actor()); err != nil {
				if errors.Is(err, repository.ErrNegativeStock) {
					b := batches[item.BatchID]
					return &InsufficientStockError{BatchID: b.ID, BatchNumber: b.BatchNumber, Requested: requested[b.ID], Available: b.Quantity}
				}
				return err
			}
			movements[i] = model.InventoryMovement{
				ProductID:    item.ProductID,
				BatchID:      item.BatchID,
				Quantity:     -item.Quantity,
				MovementType: model.MovementSale,
				ReferenceID:  &sale.ID,
				CreatedBy:    sess.UserID,
			}
			movements[i].CreatedAt = now
		}
		if err := tx.AppendMovements(movements); err != nil {
			return err
		}
		return tx.CreateSale(sale)
	})
	if err != nil {
		s.rejected(sess, err)
		return nil, err
	}

	s.metrics.SaleSettled()
	s.log.WithFields(logrus.Fields{
		"sale_id":        sale.ID,
		"receipt_number": sale.ReceiptNumber,
		"total":          sale.Total.StringFixed(2),
		"lines":          len(sale.Items),
	}).Info("sale settled")
	s.events.publish(ws.EventSaleCompleted, newSaleCompleted(sale))
	s.events.committed(ctx, model.MovementSale, movements)
	return sale, nil
}

func (s *saleService) rejected(sess *session.Session, err error) {
	entry := s.log.WithField("cashier_id", sess.UserID)
	var stockErr *InsufficientStockError
	switch {
	case errors.As(err, &stockErr):
		s.metrics.SaleRejected("insufficient_stock")
		entry.WithFields(logrus.Fields{
			"batch_id":  stockErr.BatchID,
			"requested": stockErr.Requested,
			"available": stockErr.Available,
		}).Warn("sale rejected: insufficient stock")
	case errors.Is(err, ErrBatchExpired):
		s.metrics.SaleRejected("expired_batch")
		entry.WithError(err).Warn("sale rejected")
	case errors.Is(err, ErrBatchNotFound):
		s.metrics.SaleRejected("batch_not_found")
		entry.WithError(err).Warn("sale rejected")
	case errors.Is(err, ErrValidation), errors.Is(err, ErrInsufficientPayment):
		s.metrics.SaleRejected("invalid")
	default:
		s.metrics.SaleRejected("error")
		entry.WithError(err).Error("sale settlement failed")
	}
}

// settlePayment fills amount paid and change. Cash must cover the total; other
// methods are charged exactly the total.
func settlePayment(sale *model.Sale, paid decimal.Decimal) error {
	if sale.PaymentMethod != model.PaymentCash {
		sale.AmountPaid = sale.Total
		sale.ChangeDue = decimal.Zero
		return nil
	}
	if paid.LessThan(sale.Total) {
		return fmt.Errorf("%w: paid %s, total %s", ErrInsufficientPayment, paid.StringFixed(2), sale.Total.StringFixed(2))
	}
	sale.AmountPaid = paid
	sale.ChangeDue = paid.Sub(sale.Total)
	return nil
}

// receiptNumber is RCP-YYYYMMDD-XXXXXXXX with a random suffix.
func receiptNumber(t time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("RCP-%s-%s", t.Format("20060102"), suffix)
}

type saleCompleted struct {
	SaleID        uuid.UUID           `json:"sale_id"`
	ReceiptNumber string              `json:"receipt_number"`
	CashierID     uuid.UUID           `json:"cashier_id"`
	Total         decimal.Decimal     `json:"total"`
	PaymentMethod model.PaymentMethod `json:"payment_method"`
	Lines         int                 `json:"lines"`
}

// OwnerID limits the event to the cashier who rang up the sale among cashiers.
func (e saleCompleted) OwnerID() uuid.UUID { return e.CashierID }

func newSaleCompleted(sale *model.Sale) saleCompleted {
	return saleCompleted{
		SaleID:        sale.ID,
		ReceiptNumber: sale.ReceiptNumber,
		CashierID:     sale.CashierID,
		Total:         sale.Total,
		PaymentMethod: sale.PaymentMethod,
		Lines:         len(sale.Items),
	}
}

func (s *saleService) List(ctx context.Context, sess *session.Session, filter SaleListFilter) ([]model.Sale, error) {
	f := repository.SaleFilter{CustomerID: filter.CustomerID, From: filter.From, To: filter.To, Limit: filter.Limit}
	switch sess.SalesScope() {
	case access.ScopeAll:
	case access.ScopeOwn:
		f.CashierID = &sess.UserID
	default:
		return nil, ErrAccessDenied
	}
	return s.sales.FindAll(ctx, f)
}

func (s *saleService) Get(ctx context.Context, sess *session.Session, id uuid.UUID) (*model.Sale, error) {
	scope := sess.SalesScope()
	if scope == access.ScopeNone {
		return nil, ErrAccessDenied
	}
	sale, err := s.sales.FindByID(ctx, id)
	if err != nil {
		return nil, storeErr(err, notFound("sale"))
	}
	// rows outside the caller's scope look the same as missing rows
	if scope == access.ScopeOwn && sale.CashierID != sess.UserID {
		return nil, notFound("sale")
	}
	return sale, nil
}
