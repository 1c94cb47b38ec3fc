package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/wms-platform/transfer-service/internal/config"
	"github.com/wms-platform/transfer-service/internal/infrastructure/ingest"
	mongoRepo "github.com/wms-platform/transfer-service/internal/infrastructure/mongodb"
	"github.com/wms-platform/transfer-service/pkg/cloudevents"
	"github.com/wms-platform/transfer-service/pkg/kafka"
	"github.com/wms-platform/transfer-service/pkg/logging"
	"github.com/wms-platform/transfer-service/pkg/metrics"
	"github.com/wms-platform/transfer-service/pkg/mongodb"
)

const serviceName = "transfer-service-worker"

// The worker keeps the read models current and the outbox collection small.
// It consumes snapshot events from the upstream owners and periodically
// deletes outbox events the publisher already delivered.
func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.New(logging.DefaultConfig(serviceName)).WithError(err).Error("Failed to load configuration")
		os.Exit(1)
	}

	// Setup enhanced logger
	logConfig := logging.DefaultConfig(serviceName)
	logConfig.Level = logging.LogLevel(cfg.Log.Level)
	logConfig.Format = cfg.Log.Format
	logConfig.Environment = cfg.Service.Environment
	logConfig.Version = cfg.Service.Version
	logger := logging.New(logConfig)
	logger.SetDefault()

	logger.Info("Starting transfer-service worker")

	ctx := context.Background()

	// Initialize Prometheus metrics
	m := metrics.New(metrics.DefaultConfig(serviceName))

	// Initialize MongoDB
	mongoClient, err := mongodb.NewClient(ctx, cfg.MongoClientConfig())
	if err != nil {
		logger.WithError(err).Error("Failed to connect to MongoDB")
		os.Exit(1)
	}
	defer mongoClient.Close(ctx)
	logger.Info("Connected to MongoDB", "database", cfg.MongoDB.Database)

	// Initialize CloudEvents factory
	eventFactory := cloudevents.NewEventFactory(cloudevents.SourceTransfers)

	// Initialize repositories
	pickingRepo := mongoRepo.NewPickingRepository(mongoClient.Database(), eventFactory)
	warehouseRepo := mongoRepo.NewWarehouseRepository(mongoClient.Database())

	// Initialize Kafka consumer with circuit breaker and instrumentation
	consumer := kafka.NewProductionConsumer(cfg.KafkaClientConfig(), m, logger)

	// Register snapshot handlers
	snapshotHandler := ingest.NewSnapshotHandler(pickingRepo, warehouseRepo, logger)
	snapshotHandler.Register(consumer)

	consumeCtx, cancelConsume := context.WithCancel(ctx)
	defer cancelConsume()

	// Start consumer in background
	go func() {
		if err := consumer.Start(consumeCtx); err != nil && !errors.Is(err, context.Canceled) {
			logger.WithError(err).Error("Consumer failed")
			os.Exit(1)
		}
	}()
	logger.Info("Snapshot consumer started",
		"topics", []string{kafka.Topics.TransfersInbound, kafka.Topics.WarehousesInbound},
		"group", cfg.Kafka.ConsumerGroup)

	// Periodically delete outbox events the publisher already delivered
	outboxRepo := pickingRepo.GetOutboxRepository()
	go func() {
		ticker := time.NewTicker(cfg.Outbox.CleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-consumeCtx.Done():
				return
			case <-ticker.C:
				deleted, err := outboxRepo.DeletePublished(consumeCtx, cfg.Outbox.RetainPublished)
				if err != nil {
					logger.WithError(err).Warn("Outbox cleanup failed")
					continue
				}
				if deleted > 0 {
					logger.Info("Outbox cleanup complete", "deleted", deleted)
				}
			}
		}
	}()
	logger.Info("Outbox cleanup scheduled",
		"interval", cfg.Outbox.CleanupInterval,
		"retainPublished", cfg.Outbox.RetainPublished)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down worker...")

	cancelConsume()
	if err := consumer.Close(); err != nil {
		logger.WithError(err).Error("Failed to close consumer")
	}
	logger.Info("Worker stopped")
}
