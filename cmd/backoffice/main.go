package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/sdthai/backoffice/internal/app"
	"github.com/sdthai/backoffice/internal/delivery"
	"github.com/sdthai/backoffice/internal/masterdata/products"
	"github.com/sdthai/backoffice/internal/orders"
	"github.com/sdthai/backoffice/internal/partners"
	"github.com/sdthai/backoffice/internal/platform/cache"
	"github.com/sdthai/backoffice/internal/platform/db"
	"github.com/sdthai/backoffice/internal/pos"
	"github.com/sdthai/backoffice/internal/production"
	"github.com/sdthai/backoffice/internal/returns"
	"github.com/sdthai/backoffice/internal/shared"
	"github.com/sdthai/backoffice/internal/stock"
	"github.com/sdthai/backoffice/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	catalogCache := cache.NewCache(redisClient, cfg.CatalogCacheTTL)
	auditLogger := shared.NewAuditLogger(pool)

	productsRepo := products.NewRepository(pool)
	productsService := products.NewService(productsRepo, catalogCache)
	productsHandler := products.NewHandler(logger, productsService)

	partnersRepo := partners.NewRepository(pool)
	partnersService := partners.NewService(partnersRepo)
	partnersHandler := partners.NewHandler(logger, partnersService)

	pricer, err := orders.NewPricer(cfg.VATRate, cfg.MinOrderValue)
	if err != nil {
		logger.Error("init pricer", slog.Any("error", err))
		os.Exit(1)
	}
	deadlinePolicy := orders.DeadlinePolicy{
		DeadlineTime:     cfg.DeadlineTime,
		DeadlineDays:     cfg.DeadlineDays,
		LateDeadlineTime: cfg.LateDeadlineTime,
		LateDeadlineDays: cfg.LateDeadlineDays,
	}
	ordersRepo := orders.NewRepository(pool)
	ordersService := orders.NewService(ordersRepo, partnersService, productsService, pricer, deadlinePolicy, auditLogger)
	ordersHandler := orders.NewHandler(logger, ordersService)

	stockRepo := stock.NewRepository(pool)
	stockService := stock.NewService(stockRepo, cfg.ExpiryAlertWindow)
	stockHandler := stock.NewHandler(logger, stockService)

	productionRepo := production.NewRepository(pool)
	productionService := production.NewService(productionRepo, productsService)
	productionHandler := production.NewHandler(logger, productionService)

	deliveryRepo := delivery.NewRepository(pool)
	deliveryService := delivery.NewService(deliveryRepo,
		delivery.NewOrdersAdapter(ordersService),
		delivery.NewStockAdapter(stockService))
	deliveryHandler := delivery.NewHandler(logger, deliveryService)

	posRepo := pos.NewRepository(pool)
	posService, err := pos.NewService(posRepo, partnersService, productsService, cfg.VATRate)
	if err != nil {
		logger.Error("init pos service", slog.Any("error", err))
		os.Exit(1)
	}
	posHandler := pos.NewHandler(logger, posService)

	returnsRepo := returns.NewRepository(pool)
	returnsService := returns.NewService(returnsRepo, partnersService, stockService)
	returnsHandler := returns.NewHandler(logger, returnsService)

	jobsClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init jobs client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobsClient.Close(); err != nil {
			logger.Warn("jobs client close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:            logger,
		Config:            cfg,
		ProductsHandler:   productsHandler,
		PartnersHandler:   partnersHandler,
		OrdersHandler:     ordersHandler,
		StockHandler:      stockHandler,
		ProductionHandler: productionHandler,
		DeliveryHandler:   deliveryHandler,
		POSHandler:        posHandler,
		ReturnsHandler:    returnsHandler,
		JobsClient:        jobsClient,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
