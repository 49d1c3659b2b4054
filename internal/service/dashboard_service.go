package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"pharmacy-pos/internal/repository"
)

// ReadCache is a versioned read-through cache. *cache.Cache implements it.
type ReadCache interface {
	Key(ctx context.Context, parts ...string) (string, error)
	FetchJSON(ctx context.Context, key string, dest any, loader func(context.Context) (any, error)) error
}

// DashboardStats is the dashboard rollup for one business day.
type DashboardStats struct {
	Date            string          `json:"date"`
	TodaySales      decimal.Decimal `json:"today_sales"`
	TodaySaleCount  int64           `json:"today_sale_count"`
	LowStockCount   int64           `json:"low_stock_count"`
	PendingOrders   int64           `json:"pending_orders"`
	TotalProducts   int64           `json:"total_products"`
	ExpiringBatches int64           `json:"expiring_batches"`
	GeneratedAt     time.Time       `json:"generated_at"`
}

type DashboardService interface {
	GetDashboardStats(ctx context.Context) (*DashboardStats, error)
	GetStockMovement(ctx context.Context, days int) ([]repository.StockMovementData, error)
}

type DashboardConfig struct {
	Location          *time.Location
	ExpiryWarningDays int
}

type dashboardService struct {
	repo  repository.DashboardRepository
	cache ReadCache
	cfg   DashboardConfig
	log   logrus.FieldLogger
	now   func() time.Time
}

func NewDashboardService(repo repository.DashboardRepository, cache ReadCache, log logrus.FieldLogger, cfg DashboardConfig) DashboardService {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &dashboardService{repo: repo, cache: cache, cfg: cfg, log: log.WithField("module", "dashboard"), now: time.Now}
}

// dayBounds returns [start of day, start of next day) for t in loc.
func dayBounds(t time.Time, loc *time.Location) (time.Time, time.Time) {
	local := t.In(loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 0, 1)
}

// GetDashboardStats serves the rollup from cache when possible. A cache failure
// falls back to the database; any failed sub-query fails the whole rollup.
func (s *dashboardService) GetDashboardStats(ctx context.Context) (*DashboardStats, error) {
	from, _ := dayBounds(s.now(), s.cfg.Location)
	date := from.Format("2006-01-02")

	if s.cache != nil {
		key, err := s.cache.Key(ctx, "stats", date)
		if err == nil {
			var stats DashboardStats
			err = s.cache.FetchJSON(ctx, key, &stats, func(ctx context.Context) (any, error) {
				return s.compute(ctx)
			})
			if err != nil {
				return nil, err
			}
			return &stats, nil
		}
		s.log.WithError(err).Warn("dashboard cache unavailable")
	}
	return s.compute(ctx)
}

func (s *dashboardService) compute(ctx context.Context) (*DashboardStats, error) {
	now := s.now()
	from, to := dayBounds(now, s.cfg.Location)
	expiryCutoff := from.AddDate(0, 0, s.cfg.ExpiryWarningDays)
	stats := &DashboardStats{Date: from.Format("2006-01-02"), GeneratedAt: now}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		total, count, err := s.repo.SalesTotal(gctx, from, to)
		stats.TodaySales, stats.TodaySaleCount = total, count
		return err
	})
	g.Go(func() error {
		n, err := s.repo.LowStockCount(gctx)
		stats.LowStockCount = n
		return err
	})
	g.Go(func() error {
		n, err := s.repo.PendingOrderCount(gctx)
		stats.PendingOrders = n
		return err
	})
	g.Go(func() error {
		n, err := s.repo.TotalProducts(gctx)
		stats.TotalProducts = n
		return err
	})
	g.Go(func() error {
		n, err := s.repo.ExpiringBatchCount(gctx, expiryCutoff)
		stats.ExpiringBatches = n
		return err
	})
	if err := g.Wait(); err != nil {
		s.log.WithError(err).Error("dashboard rollup failed")
		return nil, err
	}
	return stats, nil
}

func (s *dashboardService) GetStockMovement(ctx context.Context, days int) ([]repository.StockMovementData, error) {
	if days <= 0 {
		days = 7
	}
	_, end := dayBounds(s.now(), s.cfg.Location)
	start := end.AddDate(0, 0, -days)
	return s.repo.StockMovement(ctx, start, end)
}
