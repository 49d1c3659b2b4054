package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"pharmacy-pos/internal/model"
	"pharmacy-pos/internal/repository"
	"pharmacy-pos/internal/service"
)

type InventoryHandler struct {
	service  service.InventoryService
	location *time.Location
}

func NewInventoryHandler(s service.InventoryService, loc *time.Location) *InventoryHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &InventoryHandler{service: s, location: loc}
}

// GetBatches lists batches.
// Query params: product_id, in_stock (bool), expires_by (date)
func (h *InventoryHandler) GetBatches(c *fiber.Ctx) error {
	productID, err := queryUUID(c, "product_id")
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid product ID"})
	}
	expiresBy, err := queryTime(c, "expires_by", h.location)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid expires_by date"})
	}

	batches, err := h.service.ListBatches(c.UserContext(), repository.BatchFilter{
		ProductID:   productID,
		InStockOnly: c.QueryBool("in_stock"),
		ExpiresBy:   expiresBy,
	})
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(batches)
}

func (h *InventoryHandler) GetBatch(c *fiber.Ctx) error {
	id, ok := paramUUID(c, "id")
	if !ok {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid batch ID"})
	}

	batch, err := h.service.GetBatch(c.UserContext(), id)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(batch)
}

// GetMovements lists ledger entries, newest first.
// Query params: product_id, batch_id, type, from, to, limit
func (h *InventoryHandler) GetMovements(c *fiber.Ctx) error {
	filter := repository.MovementFilter{
		MovementType: model.MovementType(c.Query("type")),
		Limit:        queryInt(c, "limit", 100),
	}
	var err error
	if filter.ProductID, err = queryUUID(c, "product_id"); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid product ID"})
	}
	if filter.BatchID, err = queryUUID(c, "batch_id"); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid batch ID"})
	}
	if filter.From, err = queryTime(c, "from", h.location); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid from date"})
	}
	if filter.To, err = queryTime(c, "to", h.location); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid to date"})
	}

	movements, err := h.service.ListMovements(c.UserContext(), filter)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(movements)
}

// GetStockLevels returns on-hand quantity per product
func (h *InventoryHandler) GetStockLevels(c *fiber.Ctx) error {
	levels, err := h.service.StockLevels(c.UserContext())
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(levels)
}

// AdjustStock records a manual correction on one batch
// POST /api/v1/inventory/adjustments
func (h *InventoryHandler) AdjustStock(c *fiber.Ctx) error {
	var req service.AdjustmentRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidJSON(c)
	}

	movement, err := h.service.AdjustStock(c.UserContext(), currentSession(c), &req)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.Status(201).JSON(fiber.Map{"message": "Stock adjusted", "data": movement})
}
