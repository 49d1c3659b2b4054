package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"pharmacy-pos/internal/metrics"
	"pharmacy-pos/internal/model"
	"pharmacy-pos/internal/repository"
	"pharmacy-pos/internal/session"
)

// AdjustmentRequest changes one batch outside of sales and receipts. Quantity is the
// signed delta.
type AdjustmentRequest struct {
	BatchID      uuid.UUID          `json:"batch_id" validate:"uuid_required"`
	Quantity     int                `json:"quantity" validate:"ne=0"`
	MovementType model.MovementType `json:"movement_type" validate:"required,oneof=adjustment return damage"`
	Notes        string             `json:"notes" validate:"max=500"`
}

type InventoryService interface {
	ListBatches(ctx context.Context, filter repository.BatchFilter) ([]model.ProductBatch, error)
	GetBatch(ctx context.Context, id uuid.UUID) (*model.ProductBatch, error)
	ListMovements(ctx context.Context, filter repository.MovementFilter) ([]model.InventoryMovement, error)
	StockLevels(ctx context.Context) ([]model.StockLevel, error)
	AdjustStock(ctx context.Context, sess *session.Session, req *AdjustmentRequest) (*model.InventoryMovement, error)
}

type inventoryService struct {
	ledger repository.LedgerRepository
	events *stockEvents
	log    logrus.FieldLogger
	now    func() time.Time
}

func NewInventoryService(
	ledger repository.LedgerRepository,
	publisher EventPublisher,
	invalidator CacheInvalidator,
	m *metrics.Metrics,
	log logrus.FieldLogger,
) InventoryService {
	log = log.WithField("module", "inventory")
	return &inventoryService{
		ledger: ledger,
		events: &stockEvents{ledger: ledger, events: publisher, cache: invalidator, metrics: m, log: log},
		log:    log,
		now:    time.Now,
	}
}

func (s *inventoryService) ListBatches(ctx context.Context, filter repository.BatchFilter) ([]model.ProductBatch, error) {
	return s.ledger.ListBatches(ctx, filter)
}

func (s *inventoryService) GetBatch(ctx context.Context, id uuid.UUID) (*model.ProductBatch, error) {
	batch, err := s.ledger.FindBatch(ctx, id)
	if err != nil {
		return nil, storeErr(err, ErrBatchNotFound)
	}
	return batch, nil
}

func (s *inventoryService) ListMovements(ctx context.Context, filter repository.MovementFilter) ([]model.InventoryMovement, error) {
	if filter.MovementType != "" && !filter.MovementType.IsValid() {
		return nil, invalid("movement_type", "unknown movement type")
	}
	return s.ledger.ListMovements(ctx, filter)
}

func (s *inventoryService) StockLevels(ctx context.Context) ([]model.StockLevel, error) {
	return s.ledger.StockLevels(ctx)
}

// AdjustStock applies a manual correction and records it as one movement.
// Damage only removes stock and returns only add it.
func (s *inventoryService) AdjustStock(ctx context.Context, sess *session.Session, req *AdjustmentRequest) (*model.InventoryMovement, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	switch {
	case req.MovementType == model.MovementDamage && req.Quantity > 0:
		return nil, invalid("quantity", "damage must remove stock")
	case req.MovementType == model.MovementReturn && req.Quantity < 0:
		return nil, invalid("quantity", "return must add stock")
	}

	var movement model.InventoryMovement
	err := s.ledger.WithTx(ctx, func(tx repository.LedgerTx) error {
		locked, err := tx.LockBatches([]uuid.UUID{req.BatchID})
		if err != nil {
			return err
		}
		if len(locked) == 0 {
			return fmt.Errorf("%w: %s", ErrBatchNotFound, req.BatchID)
		}
		batch := locked[0]
		if err := tx.AdjustBatchQuantity(batch.ID, req.Quantity, sess.Actor()); err != nil {
			if errors.Is(err, repository.ErrNegativeStock) {
				return &InsufficientStockError{BatchID: batch.ID, BatchNumber: batch.BatchNumber, Requested: -req.Quantity, Available: batch.Quantity}
			}
			return err
		}
		movement = model.InventoryMovement{
			ProductID:    batch.ProductID,
			BatchID:      batch.ID,
			Quantity:     req.Quantity,
			MovementType: req.MovementType,
			Notes:        req.Notes,
			CreatedBy:    sess.UserID,
		}
		movement.CreatedAt = s.now()
		movements := []model.InventoryMovement{movement}
		if err := tx.AppendMovements(movements); err != nil {
			return err
		}
		movement = movements[0]
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"batch_id":      movement.BatchID,
		"quantity":      movement.Quantity,
		"movement_type": movement.MovementType,
	}).Info("stock adjusted")
	s.events.committed(ctx, movement.MovementType, []model.InventoryMovement{movement})
	return &movement, nil
}
