package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/tillworks/tillpoint-backend/api/controllers"
	"github.com/tillworks/tillpoint-backend/api/routes"
	"github.com/tillworks/tillpoint-backend/internal/cart"
	"github.com/tillworks/tillpoint-backend/internal/orders"
	"github.com/tillworks/tillpoint-backend/internal/payments"
	"github.com/tillworks/tillpoint-backend/internal/sessions"
	"github.com/tillworks/tillpoint-backend/internal/terminals"
	"github.com/tillworks/tillpoint-backend/internal/zreport"
	"github.com/tillworks/tillpoint-backend/pkg/config"
	"github.com/tillworks/tillpoint-backend/pkg/db"
	"github.com/tillworks/tillpoint-backend/pkg/logger"
	"github.com/tillworks/tillpoint-backend/pkg/metrics"
	"github.com/tillworks/tillpoint-backend/pkg/migrate"
	"github.com/tillworks/tillpoint-backend/pkg/outbox"
	"github.com/tillworks/tillpoint-backend/pkg/redis"
	"github.com/tillworks/tillpoint-backend/pkg/square"
)

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

	engineMetrics := metrics.NewEngineMetrics(prometheus.DefaultRegisterer)
	outboxSvc := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	cartStore, err := cart.NewRedisStore(redisClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create cart store", err)
		os.Exit(1)
	}
	cartSvc, err := cart.NewService(cartStore, cfg.Tax.Rate())
	if err != nil {
		logg.Error(context.Background(), "failed to create cart service", err)
		os.Exit(1)
	}

	terminalsSvc, err := terminals.NewService(terminals.NewRepository(dbClient.DB()), cfg.Orders.NumberPrefix)
	if err != nil {
		logg.Error(context.Background(), "failed to create terminals service", err)
		os.Exit(1)
	}

	sessionsSvc, err := sessions.NewService(sessions.NewRepository(dbClient.DB()), dbClient, outboxSvc, terminalsSvc, engineMetrics, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create sessions service", err)
		os.Exit(1)
	}

	ordersRepo := orders.NewRepository(dbClient.DB())
	ordersSvc, err := orders.NewService(ordersRepo, dbClient, cartSvc, outboxSvc, sessionsSvc, terminalsSvc, engineMetrics, cfg.Orders.NumberPrefix)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	var charger payments.CardCharger
	if cfg.Square.AccessToken != "" {
		squareClient, err := square.NewClient(context.Background(), cfg.Square, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to create square client", err)
			os.Exit(1)
		}
		charger = squareClient
	} else {
		logg.Warn(context.Background(), "square access token not set, card capture disabled")
	}

	paymentsSvc, err := payments.NewService(payments.NewRepository(dbClient.DB()), ordersRepo, dbClient, ordersSvc, charger, engineMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create payments service", err)
		os.Exit(1)
	}

	zreportSvc, err := zreport.NewService(zreport.NewRepository(dbClient.DB()), dbClient, sessionsSvc, outboxSvc)
	if err != nil {
		logg.Error(context.Background(), "failed to create z-report service", err)
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

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Deps{
			Config: cfg,
			Logger: logg,
			Pingers: map[string]controllers.Pinger{
				"database": dbClient,
				"redis":    redisClient,
			},
			Carts:     cartSvc,
			Orders:    ordersSvc,
			Payments:  paymentsSvc,
			Sessions:  sessionsSvc,
			Terminals: terminalsSvc,
			ZReports:  zreportSvc,
		}),
	}

	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		<-shutdownCtx.Done()
		drainCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(drainCtx); err != nil {
			logg.Error(ctx, "error draining api server", err)
		}
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "api server stopped")
}
