package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/pongshipping/forwarding-backend/api/routes"
	"github.com/pongshipping/forwarding-backend/internal/deliveries"
	"github.com/pongshipping/forwarding-backend/internal/notifications"
	"github.com/pongshipping/forwarding-backend/internal/packages"
	"github.com/pongshipping/forwarding-backend/internal/prealerts"
	"github.com/pongshipping/forwarding-backend/internal/staffstats"
	"github.com/pongshipping/forwarding-backend/internal/transfers"
	"github.com/pongshipping/forwarding-backend/pkg/config"
	"github.com/pongshipping/forwarding-backend/pkg/db"
	"github.com/pongshipping/forwarding-backend/pkg/logger"
	"github.com/pongshipping/forwarding-backend/pkg/migrate"
	"github.com/pongshipping/forwarding-backend/pkg/outbox"
	"github.com/pongshipping/forwarding-backend/pkg/redis"
	"github.com/pongshipping/forwarding-backend/pkg/storage/gcs"
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

	gcsClient, err := gcs.NewClient(context.Background(), cfg.GCS, cfg.GCP, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap cloud storage", err)
		os.Exit(1)
	}
	defer func() {
		if err := gcsClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing cloud storage", err)
		}
	}()

	gormDB := dbClient.DB()
	events := outbox.NewService(outbox.NewRepository(gormDB), logg)

	statsRecorder, err := staffstats.NewRecorder(staffstats.NewRepository(gormDB), logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create staff stats recorder", err)
		os.Exit(1)
	}

	prealertSvc, err := prealerts.NewService(prealerts.NewRepository(gormDB), gcsClient, cfg.GCS, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create prealert service", err)
		os.Exit(1)
	}

	packageSvc, err := packages.NewService(packages.NewRepository(gormDB), dbClient, prealertSvc, events, statsRecorder, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create package service", err)
		os.Exit(1)
	}

	transferSvc, err := transfers.NewService(transfers.NewRepository(gormDB), dbClient, packageSvc, events, statsRecorder, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create transfer service", err)
		os.Exit(1)
	}

	deliverySvc, err := deliveries.NewService(deliveries.NewRepository(gormDB), dbClient, events, statsRecorder, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create delivery service", err)
		os.Exit(1)
	}

	notificationSvc, err := notifications.NewService(notifications.NewRepository(gormDB), logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create notification service", err)
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
		Handler: routes.New(routes.Dependencies{
			Config:        cfg,
			Logger:        logg,
			DB:            gormDB,
			Redis:         redisClient,
			PreAlerts:     prealertSvc,
			Packages:      packageSvc,
			Transfers:     transferSvc,
			Deliveries:    deliverySvc,
			Notifications: notificationSvc,
			StaffStats:    statsRecorder,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
