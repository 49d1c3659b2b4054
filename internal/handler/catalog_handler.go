package handler

import (
	"github.com/gofiber/fiber/v2"

	"pharmacy-pos/internal/repository"
	"pharmacy-pos/internal/service"
)

// EntityHandler serves list/get/create/update/delete for one catalog entity.
type EntityHandler[T any] struct {
	name    string
	service service.EntityService[T]
}

func NewEntityHandler[T any](name string, s service.EntityService[T]) *EntityHandler[T] {
	return &EntityHandler[T]{name: name, service: s}
}

// List accepts an optional ?search= filter.
func (h *EntityHandler[T]) List(c *fiber.Ctx) error {
	items, err := h.service.List(c.UserContext(), c.Query("search"))
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(items)
}

func (h *EntityHandler[T]) Get(c *fiber.Ctx) error {
	id, ok := paramUUID(c, "id")
	if !ok {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid " + h.name + " ID"})
	}
	item, err := h.service.Get(c.UserContext(), id)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(item)
}

func (h *EntityHandler[T]) Create(c *fiber.Ctx) error {
	item := new(T)
	if err := c.BodyParser(item); err != nil {
		return invalidJSON(c)
	}
	if err := h.service.Create(c.UserContext(), currentSession(c), item); err != nil {
		return errorResponse(c, err)
	}
	return c.Status(201).JSON(fiber.Map{"message": h.name + " created", "data": item})
}

func (h *EntityHandler[T]) Update(c *fiber.Ctx) error {
	id, ok := paramUUID(c, "id")
	if !ok {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid " + h.name + " ID"})
	}
	item := new(T)
	if err := c.BodyParser(item); err != nil {
		return invalidJSON(c)
	}
	updated, err := h.service.Update(c.UserContext(), currentSession(c), id, item)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(fiber.Map{"message": h.name + " updated", "data": updated})
}

func (h *EntityHandler[T]) Delete(c *fiber.Ctx) error {
	id, ok := paramUUID(c, "id")
	if !ok {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid " + h.name + " ID"})
	}
	if err := h.service.Delete(c.UserContext(), currentSession(c), id); err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(fiber.Map{"message": h.name + " deleted"})
}

type ProductHandler struct {
	service service.CatalogService
}

func NewProductHandler(s service.CatalogService) *ProductHandler {
	return &ProductHandler{service: s}
}

// GetProducts lists products with their on-hand stock.
// Query params: search, category_id, low_stock (bool), barcode
func (h *ProductHandler) GetProducts(c *fiber.Ctx) error {
	if barcode := c.Query("barcode"); barcode != "" {
		product, err := h.service.FindProductByBarcode(c.UserContext(), barcode)
		if err != nil {
			return errorResponse(c, err)
		}
		return c.JSON(product)
	}

	categoryID, err := queryUUID(c, "category_id")
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid category ID"})
	}
	products, err := h.service.ListProducts(c.UserContext(), repository.ProductFilter{
		Search:       c.Query("search"),
		CategoryID:   categoryID,
		LowStockOnly: c.QueryBool("low_stock"),
	})
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(products)
}

func (h *ProductHandler) GetProduct(c *fiber.Ctx) error {
	id, ok := paramUUID(c, "id")
	if !ok {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid product ID"})
	}
	product, err := h.service.GetProduct(c.UserContext(), id)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(product)
}

func (h *ProductHandler) CreateProduct(c *fiber.Ctx) error {
	var req service.ProductRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidJSON(c)
	}

	product, err := h.service.CreateProduct(c.UserContext(), currentSession(c), &req)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.Status(201).JSON(fiber.Map{"message": "Product created", "data": product})
}

func (h *ProductHandler) UpdateProduct(c *fiber.Ctx) error {
	id, ok := paramUUID(c, "id")
	if !ok {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid product ID"})
	}

	var req service.ProductRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidJSON(c)
	}

	updated, err := h.service.UpdateProduct(c.UserContext(), currentSession(c), id, &req)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(fiber.Map{"message": "Product updated", "data": updated})
}

func (h *ProductHandler) DeleteProduct(c *fiber.Ctx) error {
	id, ok := paramUUID(c, "id")
	if !ok {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid product ID"})
	}
	if err := h.service.DeleteProduct(c.UserContext(), currentSession(c), id); err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(fiber.Map{"message": "Product deleted"})
}
