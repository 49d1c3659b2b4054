package handler

import (
	"github.com/gofiber/fiber/v2"

	"pharmacy-pos/internal/model"
	"pharmacy-pos/internal/service"
)

type PurchaseHandler struct {
	service service.PurchaseService
}

func NewPurchaseHandler(s service.PurchaseService) *PurchaseHandler {
	return &PurchaseHandler{service: s}
}

// StatusRequest is the body of PUT /purchase-orders/:id/status
type StatusRequest struct {
	Status model.PurchaseOrderStatus `json:"status"`
}

func (h *PurchaseHandler) CreateOrder(c *fiber.Ctx) error {
	var req service.PurchaseOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidJSON(c)
	}

	po, err := h.service.Create(c.UserContext(), currentSession(c), &req)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.Status(201).JSON(fiber.Map{"message": "Purchase order created", "data": po})
}

// GetOrders lists purchase orders, optionally by ?status=
func (h *PurchaseHandler) GetOrders(c *fiber.Ctx) error {
	orders, err := h.service.List(c.UserContext(), model.PurchaseOrderStatus(c.Query("status")))
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(orders)
}

func (h *PurchaseHandler) GetOrder(c *fiber.Ctx) error {
	id, ok := paramUUID(c, "id")
	if !ok {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid purchase order ID"})
	}

	po, err := h.service.Get(c.UserContext(), id)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(po)
}

func (h *PurchaseHandler) UpdateStatus(c *fiber.Ctx) error {
	id, ok := paramUUID(c, "id")
	if !ok {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid purchase order ID"})
	}

	var req StatusRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidJSON(c)
	}

	po, err := h.service.UpdateStatus(c.UserContext(), currentSession(c), id, req.Status)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(fiber.Map{"message": "Purchase order updated", "data": po})
}

// ReceiveOrder books the delivered goods into stock
// POST /api/v1/purchase-orders/:id/receive
func (h *PurchaseHandler) ReceiveOrder(c *fiber.Ctx) error {
	id, ok := paramUUID(c, "id")
	if !ok {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid purchase order ID"})
	}

	var req service.ReceiveRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidJSON(c)
	}

	po, err := h.service.Receive(c.UserContext(), currentSession(c), id, &req)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(fiber.Map{"message": "Purchase order received", "data": po})
}
