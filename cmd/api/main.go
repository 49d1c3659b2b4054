package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"pharmacy-pos/internal/handler"
	"pharmacy-pos/internal/metrics"
	"pharmacy-pos/internal/middleware"
	"pharmacy-pos/internal/model"
	"pharmacy-pos/internal/repository"
	"pharmacy-pos/internal/service"
	"pharmacy-pos/internal/session"
	"pharmacy-pos/internal/ws"
	"pharmacy-pos/pkg/cache"
	"pharmacy-pos/pkg/config"
	"pharmacy-pos/pkg/database"
	"pharmacy-pos/pkg/jwt"
	"pharmacy-pos/pkg/logger"
	"pharmacy-pos/pkg/validator"
)

func main() {
	// 1. Load config
	cfg, envLoaded, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("invalid configuration")
	}
	log := logger.New(cfg.LogLevel, cfg.LogFormat)
	if !envLoaded {
		log.Warn(".env file not found, using process environment")
	}
	validator.SetPhoneRegion(cfg.PhoneRegion)
	loc := cfg.Location()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 2. Setup Database
	db, err := database.Connect(cfg.DSN(), log, database.Options{
		Tracing: cfg.TracingEnabled,
		Debug:   !cfg.IsProduction() && cfg.LogLevel == "debug",
	})
	if err != nil {
		log.WithError(err).Fatal("database connection failed")
	}
	if err := database.Migrate(db); err != nil {
		log.WithError(err).Fatal("migration failed")
	}

	productRepo := repository.NewProductRepo(db)
	ledgerRepo := repository.NewLedgerRepo(db)
	saleRepo := repository.NewSaleRepo(db)
	orderRepo := repository.NewPurchaseOrderRepo(db)
	dashRepo := repository.NewDashboardRepo(db)
	userRepo := repository.NewUserRepo(db)
	privilegeRepo := repository.NewPrivilegeRepo(db)
	roleRepo := repository.NewRoleRepo(db)
	categoryRepo := repository.NewCrudRepo[model.Category](db, "name")
	supplierRepo := repository.NewCrudRepo[model.Supplier](db, "name")
	customerRepo := repository.NewCrudRepo[model.Customer](db, "name")

	// 3. Seed default privileges, roles, and admin user
	if err := service.Seed(ctx, privilegeRepo, roleRepo, userRepo, service.AdminSeed{
		Email:    cfg.SeedAdminEmail,
		Password: cfg.SeedAdminPassword,
	}, log); err != nil {
		log.WithError(err).Fatal("seeding failed")
	}

	// 4. Optional Redis for the dashboard cache and receipt locks
	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.WithError(err).Warn("redis unavailable, cache disabled")
			_ = redisClient.Close()
			redisClient = nil
		} else {
			defer redisClient.Close()
		}
	}
	dashCache := cache.New(redisClient, "dashboard", cfg.DashboardCacheTTL)
	locker := cache.NewLocker(redisClient, time.Minute)

	// 5. Setup WebSocket Hub and session fan-out
	wsHub := ws.NewHub(log)
	go wsHub.Run(ctx)
	notifier := session.NewNotifier()
	caps := session.NewCapabilities(notifier)
	defer caps.Close()
	unfollow := wsHub.FollowSessions(notifier)
	defer unfollow()

	m := metrics.New()

	// 6. Dependency Injection (Wiring Layers)
	authService := service.NewAuthService(userRepo, roleRepo, jwt.NewManager(cfg.JWTSecret), notifier, caps, wsHub, log, service.AuthConfig{
		TokenTTL:      cfg.JWTTTL,
		ResetTokenTTL: cfg.ResetTokenTTL,
		IdleTimeout:   cfg.SessionIdleTimeout,
	})
	userService := service.NewUserService(userRepo, roleRepo, notifier, log)
	catalogService := service.NewCatalogService(categoryRepo, supplierRepo, customerRepo, productRepo, cfg.LowStockThreshold)
	invService := service.NewInventoryService(ledgerRepo, wsHub, dashCache, m, log)
	saleService := service.NewSaleService(ledgerRepo, saleRepo, wsHub, dashCache, m, log, service.SaleConfig{
		TaxRatePercent: cfg.TaxRate(),
		Location:       loc,
	})
	purchaseService := service.NewPurchaseService(orderRepo, ledgerRepo, supplierRepo, productRepo, locker, wsHub, dashCache, m, log, service.PurchaseConfig{
		MarkupPercent: cfg.MarkupPercent(),
		Location:      loc,
	})
	dashService := service.NewDashboardService(dashRepo, dashCache, log, service.DashboardConfig{
		Location:          loc,
		ExpiryWarningDays: cfg.ExpiryWarningDays,
	})
	reportService := service.NewReportService(saleRepo, loc, log)

	handlers := &handler.Handlers{
		Auth:       handler.NewAuthHandler(authService),
		Users:      handler.NewUserHandler(userService),
		Roles:      handler.NewRoleHandler(roleRepo, privilegeRepo),
		Dashboard:  handler.NewDashboardHandler(dashService),
		Products:   handler.NewProductHandler(catalogService),
		Categories: handler.NewEntityHandler("Category", catalogService.Categories()),
		Suppliers:  handler.NewEntityHandler("Supplier", catalogService.Suppliers()),
		Customers:  handler.NewEntityHandler("Customer", catalogService.Customers()),
		Inventory:  handler.NewInventoryHandler(invService, loc),
		Sales:      handler.NewSaleHandler(saleService, loc),
		Purchases:  handler.NewPurchaseHandler(purchaseService),
		Reports:    handler.NewReportHandler(reportService, loc),
	}

	// 7. Setup Fiber
	app := fiber.New(fiber.Config{
		AppName: cfg.AppName,
	})

	// Middleware
	app.Use(fiberlogger.New()) // Logging request
	app.Use(recover.New())     // Panic recovery
	app.Use(cors.New())        // CORS
	app.Use(m.Middleware())

	app.Get("/healthz", func(c *fiber.Ctx) error {
		sqlDB, err := db.DB()
		if err != nil || sqlDB.PingContext(c.UserContext()) != nil {
			return c.Status(503).JSON(fiber.Map{"status": "unavailable"})
		}
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", m.Handler())

	// 8. Routes
	handlers.Register(app.Group("/api/v1"), authService)

	// WebSocket Route
	app.Use("/ws", middleware.RequireWebSocket(authService))
	app.Get("/ws", handler.Socket(wsHub))

	// 9. Graceful Shutdown
	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.WithError(err).Panic("server stopped")
		}
	}()

	<-ctx.Done()

	log.Info("Shutting down server...")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.WithError(err).Fatal("Server forced to shutdown")
	}

	log.Info("Server exited")
}
