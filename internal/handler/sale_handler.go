package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"pharmacy-pos/internal/service"
)

type SaleHandler struct {
	service  service.SaleService
	location *time.Location
}

func NewSaleHandler(s service.SaleService, loc *time.Location) *SaleHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &SaleHandler{service: s, location: loc}
}

// CreateSale settles a sale at the till
// POST /api/v1/sales
func (h *SaleHandler) CreateSale(c *fiber.Ctx) error {
	var req service.SaleRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidJSON(c)
	}

	sale, err := h.service.Settle(c.UserContext(), currentSession(c), &req)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.Status(201).JSON(fiber.Map{"message": "Sale completed", "data": sale})
}

// GetSales lists sales. Cashiers only see their own.
// Query params: from, to, customer_id, limit
func (h *SaleHandler) GetSales(c *fiber.Ctx) error {
	from, err := queryTime(c, "from", h.location)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid from date"})
	}
	to, err := queryTime(c, "to", h.location)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid to date"})
	}
	customerID, err := queryUUID(c, "customer_id")
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid customer ID"})
	}

	sales, err := h.service.List(c.UserContext(), currentSession(c), service.SaleListFilter{
		CustomerID: customerID,
		From:       from,
		To:         to,
		Limit:      queryInt(c, "limit", 100),
	})
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(sales)
}

func (h *SaleHandler) GetSale(c *fiber.Ctx) error {
	id, ok := paramUUID(c, "id")
	if !ok {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid sale ID"})
	}

	sale, err := h.service.Get(c.UserContext(), currentSession(c), id)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(sale)
}
