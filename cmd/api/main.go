package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/serviplace/serviplace-backend/api/routes"
	"github.com/serviplace/serviplace-backend/internal/admin"
	"github.com/serviplace/serviplace-backend/internal/auth"
	"github.com/serviplace/serviplace-backend/internal/dispatch"
	"github.com/serviplace/serviplace-backend/internal/negotiation"
	"github.com/serviplace/serviplace-backend/internal/orders"
	"github.com/serviplace/serviplace-backend/internal/pricing"
	"github.com/serviplace/serviplace-backend/internal/ratings"
	"github.com/serviplace/serviplace-backend/internal/realtime"
	"github.com/serviplace/serviplace-backend/internal/users"
	"github.com/serviplace/serviplace-backend/pkg/auth/session"
	"github.com/serviplace/serviplace-backend/pkg/config"
	"github.com/serviplace/serviplace-backend/pkg/db"
	"github.com/serviplace/serviplace-backend/pkg/logger"
	"github.com/serviplace/serviplace-backend/pkg/metrics"
	"github.com/serviplace/serviplace-backend/pkg/migrate"
	"github.com/serviplace/serviplace-backend/pkg/redis"
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

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	jobMetrics := metrics.NewJobMetrics(registry)

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       users.NewRepository(dbClient.DB()),
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
		os.Exit(1)
	}

	hub := realtime.NewHub(logg)
	oracle := pricing.NewCalculator()

	dispatchLock, err := dispatch.NewRedisLock(redisClient, "dispatch:sweep", cfg.Dispatch.LockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create dispatch lock", err)
		os.Exit(1)
	}
	dispatchService, err := dispatch.NewService(dispatch.ServiceParams{
		Repo:      dispatch.NewRepository(dbClient.DB()),
		Tx:        dbClient,
		Logger:    logg,
		Notifier:  hub,
		Lock:      dispatchLock,
		Metrics:   jobMetrics,
		Interval:  cfg.Dispatch.PollInterval,
		BatchSize: cfg.Dispatch.BatchSize,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create dispatch service", err)
		os.Exit(1)
	}

	ordersService, err := orders.NewService(orders.NewRepository(dbClient.DB()), dbClient, oracle, hub, dispatchService)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	negotiationService, err := negotiation.NewService(negotiation.NewRepository(dbClient.DB()), dbClient, hub)
	if err != nil {
		logg.Error(context.Background(), "failed to create negotiation service", err)
		os.Exit(1)
	}

	ratingsService, err := ratings.NewService(ratings.NewRepository(dbClient.DB()), dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create ratings service", err)
		os.Exit(1)
	}

	adminService, err := admin.NewService(admin.NewRepository(dbClient.DB()), dbClient, hub)
	if err != nil {
		logg.Error(context.Background(), "failed to create admin service", err)
		os.Exit(1)
	}

	realtimeHandler, err := realtime.NewHandler(realtime.HandlerParams{
		Hub:                hub,
		OrdersService:      ordersService,
		NegotiationService: negotiationService,
		JWTConfig:          cfg.JWT,
		Logger:             logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create realtime handler", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := dispatchService.Run(ctx); err != nil && err != context.Canceled {
			logg.Error(ctx, "dispatch worker stopped unexpectedly", err)
		}
	}()

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	logCtx := logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(logCtx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Deps{
			Config:             cfg,
			Logger:             logg,
			DB:                 dbClient,
			Redis:              redisClient,
			Session:            sessionManager,
			AuthService:        authService,
			OrdersService:      ordersService,
			NegotiationService: negotiationService,
			RatingsService:     ratingsService,
			AdminService:       adminService,
			DispatchService:    dispatchService,
			PricingOracle:      oracle,
			Hub:                hub,
			RealtimeHandler:    realtimeHandler,
			MetricsRegistry:    registry,
		}),
	}

	go func() {
		<-ctx.Done()
		if err := server.Shutdown(context.Background()); err != nil {
			logg.Error(context.Background(), "server shutdown failed", err)
		}
	}()

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(logCtx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
