package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"pharmacy-pos/internal/report"
	"pharmacy-pos/internal/repository"
	"pharmacy-pos/internal/session"
)

type ReportService interface {
	SalesReport(ctx context.Context, sess *session.Session, from, to time.Time) ([]byte, error)
}

type reportService struct {
	sales    repository.SaleRepository
	location *time.Location
	log      logrus.FieldLogger
}

func NewReportService(sales repository.SaleRepository, loc *time.Location, log logrus.FieldLogger) ReportService {
	if loc == nil {
		loc = time.UTC
	}
	return &reportService{sales: sales, location: loc, log: log.WithField("module", "report")}
}

// SalesReport exports the sales in [from, to) with their lines. Super admin only.
func (s *reportService) SalesReport(ctx context.Context, sess *session.Session, from, to time.Time) ([]byte, error) {
	if err := requireSuperAdmin(sess); err != nil {
		return nil, err
	}
	if !to.After(from) {
		return nil, invalid("to", "must be after from")
	}
	sales, err := s.sales.FindAll(ctx, repository.SaleFilter{From: &from, To: &to, WithItems: true})
	if err != nil {
		return nil, err
	}
	data, err := report.SalesWorkbook(sales, s.location)
	if err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"from": from, "to": to, "sales": len(sales), "by": sess.Actor()}).Info("sales report exported")
	return data, nil
}
