package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"pharmacy-pos/internal/metrics"
	"pharmacy-pos/internal/model"
	"pharmacy-pos/internal/repository"
	"pharmacy-pos/internal/ws"
)

// EventPublisher pushes realtime events to clients. *ws.Hub implements it.
type EventPublisher interface {
	Publish(eventType string, payload any)
}

// CacheInvalidator drops cached read models. *cache.Cache implements it.
type CacheInvalidator interface {
	Bump(ctx context.Context) error
}

// Locker hands out short-lived exclusive locks. *cache.Locker implements it.
type Locker interface {
	Acquire(ctx context.Context, key string) (func(), error)
}

// stockEvents runs the side effects that follow a committed ledger change.
type stockEvents struct {
	ledger  repository.LedgerRepository
	events  EventPublisher
	cache   CacheInvalidator
	metrics *metrics.Metrics
	log     logrus.FieldLogger
}

type stockChange struct {
	Action     string      `json:"action"`
	ProductIDs []uuid.UUID `json:"product_ids"`
	BatchIDs   []uuid.UUID `json:"batch_ids"`
}

// committed records metrics, invalidates the dashboard and broadcasts stock and
// low-stock events for the touched products. Failures are logged, never returned.
func (e *stockEvents) committed(ctx context.Context, movementType model.MovementType, movements []model.InventoryMovement) {
	e.metrics.MovementsAppended(string(movementType), len(movements))

	if e.cache != nil {
		if err := e.cache.Bump(ctx); err != nil {
			e.log.WithError(err).Warn("dashboard cache invalidation failed")
		}
	}

	productIDs := uniqueIDs(movements, func(m model.InventoryMovement) uuid.UUID { return m.ProductID })
	batchIDs := uniqueIDs(movements, func(m model.InventoryMovement) uuid.UUID { return m.BatchID })
	e.publish(ws.EventStockUpdate, stockChange{Action: string(movementType), ProductIDs: productIDs, BatchIDs: batchIDs})

	if len(productIDs) == 0 {
		return
	}
	levels, err := e.ledger.StockLevels(ctx, productIDs...)
	if err != nil {
		e.log.WithError(err).Warn("low stock check failed")
		return
	}
	for _, level := range levels {
		if level.IsLow() {
			e.publish(ws.EventLowStock, level)
		}
	}
}

func (e *stockEvents) publish(eventType string, payload any) {
	if e.events != nil {
		e.events.Publish(eventType, payload)
	}
}

func uniqueIDs(movements []model.InventoryMovement, key func(model.InventoryMovement) uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(movements))
	ids := make([]uuid.UUID, 0, len(movements))
	for _, m := range movements {
		id := key(m)
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return ids
}
