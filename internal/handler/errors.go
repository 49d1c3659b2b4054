package handler

import (
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"pharmacy-pos/internal/middleware"
	"pharmacy-pos/internal/service"
	"pharmacy-pos/internal/session"
	"pharmacy-pos/pkg/jwt"
)

// errorResponse maps service errors onto HTTP statuses. Unknown errors are hidden
// behind a generic 500.
func errorResponse(c *fiber.Ctx, err error) error {
	var stockErr *service.InsufficientStockError
	if errors.As(err, &stockErr) {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error(), "details": stockErr})
	}
	var valErr *service.ValidationError
	if errors.As(err, &valErr) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error(), "details": valErr})
	}

	status := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrValidation), errors.Is(err, service.ErrPasswordMismatch):
		status = fiber.StatusBadRequest
	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrSessionExpired),
		errors.Is(err, service.ErrUserInactive),
		errors.Is(err, service.ErrWrongPassword),
		errors.Is(err, jwt.ErrInvalidToken),
		errors.Is(err, jwt.ErrMissingToken):
		status = fiber.StatusUnauthorized
	case errors.Is(err, service.ErrAccessDenied):
		status = fiber.StatusForbidden
	case errors.Is(err, service.ErrNotFound):
		status = fiber.StatusNotFound
	case errors.Is(err, service.ErrInsufficientStock),
		errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, service.ErrDuplicate),
		errors.Is(err, service.ErrEmailExists),
		errors.Is(err, service.ErrInUse),
		errors.Is(err, service.ErrReceiptInProgress),
		errors.Is(err, service.ErrInsufficientPayment),
		errors.Is(err, service.ErrBatchExpired):
		status = fiber.StatusConflict
	}

	if status == fiber.StatusInternalServerError {
		return c.Status(status).JSON(fiber.Map{"error": "Internal Server Error"})
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}

func invalidJSON(c *fiber.Ctx) error {
	return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
}

func currentSession(c *fiber.Ctx) *session.Session {
	return middleware.Session(c)
}

// paramUUID parses the named route parameter.
func paramUUID(c *fiber.Ctx, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Params(name))
	return id, err == nil
}

// queryUUID parses an optional UUID query parameter.
func queryUUID(c *fiber.Ctx, name string) (*uuid.UUID, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// queryTime accepts RFC 3339 timestamps or plain YYYY-MM-DD dates in loc.
func queryTime(c *fiber.Ctx, name string, loc *time.Location) (*time.Time, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	t, err := time.ParseInLocation("2006-01-02", raw, loc)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func queryInt(c *fiber.Ctx, name string, def int) int {
	n, err := strconv.Atoi(c.Query(name))
	if err != nil {
		return def
	}
	return n
}
