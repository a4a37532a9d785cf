package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/emilythestrangee/stackit/backend/internal/auth"
	"github.com/emilythestrangee/stackit/backend/internal/config"
	"github.com/emilythestrangee/stackit/backend/internal/database"
	"github.com/emilythestrangee/stackit/backend/internal/forum"
	"github.com/emilythestrangee/stackit/backend/internal/handlers"
	"github.com/emilythestrangee/stackit/backend/internal/kafka"
	"github.com/emilythestrangee/stackit/backend/internal/ledger"
	"github.com/emilythestrangee/stackit/backend/internal/live"
	"github.com/emilythestrangee/stackit/backend/internal/lock"
	"github.com/emilythestrangee/stackit/backend/internal/logger"
	"github.com/emilythestrangee/stackit/backend/internal/metrics"
	"github.com/emilythestrangee/stackit/backend/internal/notify"
	"github.com/emilythestrangee/stackit/backend/internal/server"
)

var configPath = flag.String("config", "", "path to config.yaml")

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Fatal("Server stopped with error", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	log.Info("Starting StackIt backend",
		zap.String("namespace", cfg.App.Namespace),
		zap.String("env", cfg.App.Env),
		zap.Int("port", cfg.App.Port),
	)

	db, err := database.New(cfg.Database, cfg.App.Namespace, log)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected", zap.String("driver", cfg.Database.Driver))

	m := metrics.New()

	var redisClient *redis.Client
	if cfg.Ledger.Lock == "redis" || cfg.Live.Broker == "redis" {
		redisClient, err = lock.NewRedisClient(cfg.Redis)
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		defer redisClient.Close()
		log.Info("Redis connected", zap.String("address", cfg.Redis.Address))
	}

	var broker live.Broker
	switch cfg.Live.Broker {
	case "redis":
		broker = live.NewRedisBroker(redisClient, cfg.App.Namespace, log)
	case "postgres":
		channel := database.TablePrefix(cfg.App.Namespace) + "live"
		broker = live.NewPostgresBroker(db.GetDB(), cfg.Database.PostgresDSN(), channel, log)
	default:
		broker = live.NewLocalBroker()
	}
	hub, err := live.NewHub(broker, log, m)
	if err != nil {
		return fmt.Errorf("failed to start live broker: %w", err)
	}
	defer hub.Close()

	store := notify.NewStoreNotifier(db.GetDB(), hub, log)
	var notifier notify.Notifier = store
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka)
		defer producer.Close()

		consumer := kafka.NewConsumer(cfg.Kafka, log)
		consumer.Start(store.Store)
		defer consumer.Stop()

		notifier = notify.NewQueueNotifier(producer, log)
		log.Info("Notifications routed through kafka", zap.String("topic", cfg.Kafka.Topic))
	}

	var locker lock.Locker = lock.NewKeyedMutex()
	if cfg.Ledger.Lock == "redis" {
		locker = lock.NewRedisLocker(redisClient, cfg.App.Namespace, cfg.Ledger.LockTTL, log)
	}
	defer locker.Close()

	tokens := auth.NewTokenService(cfg.Auth, cfg.App.Namespace)
	authService := auth.NewService(db.GetDB(), tokens, cfg.Auth, log)
	forumService := forum.New(db.GetDB(), notifier, hub, log)
	votes := ledger.New(db.GetDB(), cfg.Ledger,
		ledger.WithLocker(locker),
		ledger.WithNotifier(notifier),
		ledger.WithPublisher(hub),
		ledger.WithMetrics(m),
		ledger.WithLogger(log),
	)

	handler := handlers.NewHandler(authService, forumService, votes, hub, log)
	srv := server.New(cfg.App, db, handler, authService, m, log).HTTPServer()

	serveErr := make(chan error, 1)
	go func() {
		log.Info("Server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
	}
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// open live streams end once their subscriptions are cancelled
	if err := hub.Close(); err != nil {
		log.Warn("Error closing live hub", zap.Error(err))
	}
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	log.Info("Server exited")
	return nil
}
