package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"

	"github.com/pongshipping/forwarding-backend/internal/notifications"
	"github.com/pongshipping/forwarding-backend/internal/staffstats"
	"github.com/pongshipping/forwarding-backend/pkg/config"
	"github.com/pongshipping/forwarding-backend/pkg/db"
	"github.com/pongshipping/forwarding-backend/pkg/logger"
	"github.com/pongshipping/forwarding-backend/pkg/mailer"
	"github.com/pongshipping/forwarding-backend/pkg/pubsub"
	"github.com/pongshipping/forwarding-backend/pkg/redis"
)

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "notifier-worker"})

	_ = godotenv.Load()

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)

	cfg.Service.Kind = "notifier-worker"

	logg = logger.New(logger.Options{
		ServiceName: "notifier-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	requireResource(ctx, logg, "database", err)
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(ctx, "failed to close database client", err)
		}
	}()

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	requireResource(ctx, logg, "redis", err)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(ctx, "failed to close redis client", err)
		}
	}()

	pubsubClient, err := pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, logg)
	requireResource(ctx, logg, "pubsub", err)
	defer func() {
		if err := pubsubClient.Close(); err != nil {
			logg.Error(ctx, "failed to close pubsub client", err)
		}
	}()

	subscription := pubsubClient.NotificationSubscription()
	if subscription == nil {
		requireResource(ctx, logg, "notification subscription", errors.New("subscription not configured"))
	}

	// Email delivery is optional; without credentials the consumer still
	// writes in-app notifications.
	var mailSender mailer.Sender
	if cfg.Mail.Enabled() {
		mailClient, err := mailer.NewClient(context.Background(), cfg.Mail, logg)
		requireResource(ctx, logg, "mailer", err)
		mailSender = mailClient
	} else {
		logg.Warn(ctx, "mail credentials not configured, email delivery disabled")
	}

	statsRecorder, err := staffstats.NewRecorder(staffstats.NewRepository(dbClient.DB()), logg)
	requireResource(ctx, logg, "staff stats recorder", err)

	consumer, err := notifications.NewConsumer(
		notifications.NewRepository(dbClient.DB()),
		subscription,
		redisClient,
		mailSender,
		statsRecorder,
		logg,
	)
	requireResource(ctx, logg, "notification consumer", err)

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	runCtx = logg.WithFields(runCtx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(runCtx, "notifier worker ready")

	if err := consumer.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(runCtx, "notifier worker failed", err)
		os.Exit(1)
	}

	logg.Info(runCtx, "notifier worker shutting down gracefully")
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
