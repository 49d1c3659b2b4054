package handler

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"

	"pharmacy-pos/internal/service"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type ReportHandler struct {
	service  service.ReportService
	location *time.Location
}

func NewReportHandler(s service.ReportService, loc *time.Location) *ReportHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &ReportHandler{service: s, location: loc}
}

// SalesReport downloads an xlsx workbook of sales in [from, to).
// Query params: from, to (default: the last 7 days)
func (h *ReportHandler) SalesReport(c *fiber.Ctx) error {
	now := time.Now().In(h.location)
	to := time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, h.location)
	from := to.AddDate(0, 0, -7)

	if t, err := queryTime(c, "from", h.location); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid from date"})
	} else if t != nil {
		from = *t
	}
	if t, err := queryTime(c, "to", h.location); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid to date"})
	} else if t != nil {
		to = *t
	}

	data, err := h.service.SalesReport(c.UserContext(), currentSession(c), from, to)
	if err != nil {
		return errorResponse(c, err)
	}

	c.Attachment(fmt.Sprintf("sales_%s_%s.xlsx", from.Format("20060102"), to.Format("20060102")))
	c.Set(fiber.HeaderContentType, xlsxContentType)
	return c.Send(data)
}
