package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pensionio/backoffice/internal/benefit"
	"github.com/pensionio/backoffice/internal/config"
	"github.com/pensionio/backoffice/internal/handler"
	"github.com/pensionio/backoffice/internal/infra/postgresql"
	"github.com/pensionio/backoffice/internal/infra/postgresql/migrations"
	infraredis "github.com/pensionio/backoffice/internal/infra/redis"
	"github.com/pensionio/backoffice/internal/observability"
	"github.com/pensionio/backoffice/internal/queue"
	"github.com/pensionio/backoffice/internal/repository"
	"github.com/pensionio/backoffice/internal/sender"
	"github.com/pensionio/backoffice/internal/service"
	"github.com/pensionio/backoffice/internal/transport"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	db, err := postgresql.NewPostgres(cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("postgres initialization failed", zap.Error(err))
	}

	if err := migrations.Migrate(db); err != nil {
		logger.Fatal("database migrations failed", zap.Error(err))
	}

	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("postgres underlying db init failed", zap.Error(err))
	}
	defer sqlDB.Close()

	rdb, err := infraredis.NewRedis(cfg.RedisURL)
	if err != nil {
		logger.Fatal("redis initialization failed", zap.Error(err))
	}
	defer rdb.Close()

	rabbit, err := queue.NewRabbitMQ(cfg.RabbitMQURL)
	if err != nil {
		logger.Fatal("rabbitmq initialization failed", zap.Error(err))
	}
	defer rabbit.Close()

	publisher := queue.NewRabbitMQPublisher(rabbit)
	consumer := queue.NewRabbitMQConsumer(rabbit, cfg.WorkerConcurrency, logger)

	claimRepo := repository.NewGormClaimRepo(db)
	memberRepo := repository.NewGormMemberRepo(db)
	contributionRepo := repository.NewGormContributionRepo(db)
	subscriptionRepo := repository.NewGormSubscriptionRepo(db)
	deliveryRepo := repository.NewGormDeliveryRepo(db)

	calculator := benefit.NewCalculator(benefit.Policy{
		TaxRate:       cfg.TaxRatePercent / 100,
		AdminFeeRate:  cfg.AdminFeeRatePercent / 100,
		RetirementAge: cfg.RetirementAge,
	})

	emitter := service.NewQueueEventEmitter(publisher, logger)

	claimService, err := service.NewClaimService(claimRepo, memberRepo, contributionRepo, calculator, emitter, logger)
	if err != nil {
		logger.Fatal("claim service init failed", zap.Error(err))
	}
	subscriptionService, err := service.NewSubscriptionService(subscriptionRepo, logger)
	if err != nil {
		logger.Fatal("subscription service init failed", zap.Error(err))
	}

	rateLimiter, err := infraredis.NewRedisRateLimiter(rdb, cfg.RateLimitPerSec)
	if err != nil {
		logger.Fatal("rate limiter init failed", zap.Error(err))
	}

	metrics := observability.NewMetrics()

	dispatcher, err := service.NewDispatcher(
		subscriptionRepo,
		deliveryRepo,
		consumer,
		sender.NewHTTPSender(),
		rateLimiter,
		cfg.WorkerConcurrency,
		logger,
	)
	if err != nil {
		logger.Fatal("dispatcher init failed", zap.Error(err))
	}
	dispatcher.SetMetrics(metrics)

	scanner := service.NewDeliveryScanner(deliveryRepo, publisher, logger)

	app := fiber.New(fiber.Config{
		ErrorHandler: transport.ErrorHandler(logger),
	})
	app.Use(recover.New())
	app.Use(metrics.HTTPMiddleware())
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	handler.RegisterHealthRoutes(app, sqlDB, rdb)
	if err := handler.RegisterClaimRoutes(app, claimService, metrics); err != nil {
		logger.Fatal("claim route registration failed", zap.Error(err))
	}
	if err := handler.RegisterWebhookRoutes(app, subscriptionService, deliveryRepo); err != nil {
		logger.Fatal("webhook route registration failed", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, groupCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("api listening", zap.Int("port", cfg.APIPort))
		return app.Listen(fmt.Sprintf(":%d", cfg.APIPort))
	})

	g.Go(func() error {
		<-groupCtx.Done()
		logger.Info("shutting down api")
		return app.Shutdown()
	})

	g.Go(func() error {
		return dispatcher.Start(groupCtx)
	})

	g.Go(func() error {
		err := scanner.Start(groupCtx)
		if err != nil && groupCtx.Err() != nil {
			return nil
		}
		return err
	})

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		logger.Fatal("service exited with error", zap.Error(err))
	}

	logger.Info("shutdown complete")
}
