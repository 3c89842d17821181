package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"stockhub-backend/internal/access"
	"stockhub-backend/internal/audit"
	"stockhub-backend/internal/auth"
	"stockhub-backend/internal/config"
	"stockhub-backend/internal/database"
	"stockhub-backend/internal/events"
	"stockhub-backend/internal/logger"

	"github.com/go-redis/redis/v8"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	log, err := logger.New(cfg.Log.Level, cfg.Log.Format, "stockhub-backend")
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	for _, w := range cfg.Warnings {
		log.Warn(w)
	}

	db, err := database.Open(cfg.Database, log)
	if err != nil {
		return err
	}
	if err := database.Migrate(db); err != nil {
		return err
	}
	reports, err := database.Reports(db)
	if err != nil {
		return err
	}

	store := access.NewTableStore(db)
	var policy access.Policy = access.NewStorePolicy(store)
	var invalidator access.Invalidator
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		err := rdb.Ping(ctx).Err()
		cancel()
		if err != nil {
			log.Warn("redis unreachable, permission checks will read the table on every miss", zap.Error(err))
		}
		cached := access.NewCachedPolicy(store, rdb, cfg.Redis.PermissionCacheTTL, log)
		policy, invalidator = cached, cached
		log.Info("permission cache enabled", zap.String("addr", cfg.Redis.Addr))
	}

	var pub events.Publisher = events.NopPublisher{}
	if len(cfg.Kafka.Brokers) > 0 {
		pub = events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, log)
		log.Info("order events enabled", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.Topic))
	}
	defer pub.Close()

	app := fiber.New(fiber.Config{
		BodyLimit:    cfg.HTTP.BodyLimit,
		ErrorHandler: errorHandler(log),
	})
	app.Use(recover.New(recover.Config{EnableStackTrace: true}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(cfg.HTTP.CORSOrigins, ","),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
	}))
	app.Use(logger.Middleware(log, auth.CtxUserIDKey))
	app.Static("/uploads", cfg.Upload.Dir)

	registerRoutes(app, deps{
		cfg:         cfg,
		log:         log,
		db:          db,
		reports:     reports,
		store:       store,
		policy:      policy,
		invalidator: invalidator,
		pub:         pub,
		logs:        audit.NewLogger(db, log),
	})

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("port", cfg.HTTP.Port))
		errCh <- app.Listen(":" + cfg.HTTP.Port)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		log.Info("shutting down", zap.String("signal", sig.String()))
	}
	return app.ShutdownWithTimeout(10 * time.Second)
}

// errorHandler keeps internal details in the log and out of the response.
func errorHandler(log *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			return c.Status(fe.Code).JSON(fiber.Map{"error": fe.Message})
		}
		log.Error("unhandled error",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Error(err),
			zap.Stack("stack"))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}
}
