package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/encamino/encamino-backend/api"
	"github.com/encamino/encamino-backend/api/routes"
	"github.com/encamino/encamino-backend/internal/deliveries"
	"github.com/encamino/encamino-backend/internal/ledger"
	"github.com/encamino/encamino-backend/internal/orders"
	"github.com/encamino/encamino-backend/internal/payments"
	culqiwebhook "github.com/encamino/encamino-backend/internal/webhooks/culqi"
	"github.com/encamino/encamino-backend/pkg/config"
	"github.com/encamino/encamino-backend/pkg/culqi"
	"github.com/encamino/encamino-backend/pkg/db"
	"github.com/encamino/encamino-backend/pkg/lock"
	"github.com/encamino/encamino-backend/pkg/logger"
	"github.com/encamino/encamino-backend/pkg/metrics"
	"github.com/encamino/encamino-backend/pkg/migrate"
	"github.com/encamino/encamino-backend/pkg/redis"
)

const webhookIdempotencyTTL = 24 * time.Hour

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	culqiClient, err := culqi.NewClient(cfg.Culqi)
	if err != nil {
		logg.Error(context.Background(), "failed to create culqi client", err)
		os.Exit(1)
	}

	orderLock, err := lock.NewOrderLock(redisClient, cfg.Lock)
	if err != nil {
		logg.Error(context.Background(), "failed to create order lock", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	settlementMetrics := metrics.NewSettlementMetrics(registry)

	ledgerSvc, err := ledger.NewService(ledger.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create ledger service", err)
		os.Exit(1)
	}

	ordersRepo := orders.NewRepository(dbClient.DB())
	ordersSvc, err := orders.NewService(ordersRepo, ledgerSvc, dbClient, orderLock, orders.NewShipperCounter(), settlementMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	paymentsSvc, err := payments.NewService(payments.NewRepository(dbClient.DB()), ordersSvc, dbClient, orderLock, culqiClient, logg, settlementMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create payments service", err)
		os.Exit(1)
	}

	deliveriesSvc, err := deliveries.NewService(deliveries.NewRepository(dbClient.DB()), ordersRepo, ordersSvc, ledgerSvc, dbClient, orderLock, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create deliveries service", err)
		os.Exit(1)
	}

	webhookGuard, err := culqiwebhook.NewIdempotencyGuard(redisClient, webhookIdempotencyTTL, "culqi-webhook")
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook guard", err)
		os.Exit(1)
	}

	webhookSvc, err := culqiwebhook.NewService(culqiwebhook.ServiceParams{
		Payments: paymentsSvc,
		Guard:    webhookGuard,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	handler := routes.NewRouter(
		cfg,
		logg,
		dbClient,
		redisClient,
		registry,
		ordersSvc,
		paymentsSvc,
		deliveriesSvc,
		culqiClient,
		webhookSvc,
	)

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server := api.NewServer(addr, handler, logg)
	if err := server.Run(runCtx); err != nil {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "api server stopped")
}
