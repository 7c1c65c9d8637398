package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/kursadbilgin/terminal-registry/internal/config"
	"github.com/kursadbilgin/terminal-registry/internal/handler"
	"github.com/kursadbilgin/terminal-registry/internal/infra/postgresql"
	"github.com/kursadbilgin/terminal-registry/internal/infra/postgresql/migrations"
	infraredis "github.com/kursadbilgin/terminal-registry/internal/infra/redis"
	"github.com/kursadbilgin/terminal-registry/internal/observability"
	"github.com/kursadbilgin/terminal-registry/internal/provider"
	"github.com/kursadbilgin/terminal-registry/internal/queue"
	"github.com/kursadbilgin/terminal-registry/internal/repository"
	"github.com/kursadbilgin/terminal-registry/internal/service"
	"github.com/kursadbilgin/terminal-registry/internal/transport"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 15 * time.Second

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

	db, err := postgresql.NewPostgres(cfg.DatabaseDSN, cfg.DatabaseMaxOpenConns)
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

	metrics := observability.NewMetrics()

	outcomeCache, err := infraredis.NewBatchOutcomeCache(rdb, time.Duration(cfg.BatchStatusCacheTTLSec)*time.Second)
	if err != nil {
		logger.Fatal("batch outcome cache init failed", zap.Error(err))
	}

	terminalRepo := repository.NewGormTerminalRepo(db)
	statusStore, err := service.NewBatchStatusStore(repository.NewGormBatchOutcomeRepo(db), outcomeCache, logger)
	if err != nil {
		logger.Fatal("batch status store init failed", zap.Error(err))
	}

	processor, err := service.NewBatchProcessor(terminalRepo, statusStore, service.NewTerminalBuilder(), cfg.BatchConcurrency, logger)
	if err != nil {
		logger.Fatal("batch processor init failed", zap.Error(err))
	}
	processor.SetPublisher(queue.NewRabbitMQPublisher(rabbit))
	processor.SetMetrics(metrics)

	if cfg.PersistRatePerSec > 0 {
		limiter, err := infraredis.NewRedisRateLimiter(rdb, cfg.PersistRatePerSec)
		if err != nil {
			logger.Fatal("rate limiter init failed", zap.Error(err))
		}
		processor.SetRateLimiter(limiter)
	}

	terminalService, err := service.NewTerminalService(terminalRepo, processor, statusStore, cfg.MaxBatchSize, logger)
	if err != nil {
		logger.Fatal("terminal service init failed", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	if cfg.BatchCallbackURL != "" {
		notifier, err := provider.NewWebhookNotifier(cfg.BatchCallbackURL, time.Duration(cfg.CallbackTimeoutSec)*time.Second)
		if err != nil {
			logger.Fatal("callback notifier init failed", zap.Error(err))
		}
		relay, err := service.NewCallbackRelay(notifier, logger)
		if err != nil {
			logger.Fatal("callback relay init failed", zap.Error(err))
		}
		relay.SetMetrics(metrics)

		consumer := queue.NewRabbitMQConsumer(rabbit, cfg.CallbackPrefetch, logger)
		g.Go(func() error {
			return consumer.ConsumeBatchCompleted(gctx, relay.Handle)
		})
		logger.Info("batch callback relay enabled", zap.String("endpoint", cfg.BatchCallbackURL))
	}

	app := fiber.New(fiber.Config{
		ErrorHandler:          transport.ErrorHandler(logger),
		DisableStartupMessage: true,
	})
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(metrics.HTTPMiddleware())
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	handler.RegisterHealthRoutes(app, sqlDB, rdb)
	if err := handler.RegisterTerminalRoutes(app, terminalService); err != nil {
		logger.Fatal("route registration failed", zap.Error(err))
	}

	g.Go(func() error {
		logger.Info("terminal-registry api started", zap.Int("port", cfg.APIPort))
		if err := app.Listen(fmt.Sprintf(":%d", cfg.APIPort)); err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		return app.ShutdownWithTimeout(shutdownTimeout)
	})

	if err := g.Wait(); err != nil {
		logger.Error("terminal-registry stopped with error", zap.Error(err))
		return
	}
	logger.Info("terminal-registry stopped")
}
