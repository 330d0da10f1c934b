package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/DhruvAgrawal511/xeno-backend/internal/config"
	"github.com/DhruvAgrawal511/xeno-backend/internal/consumer"
	"github.com/DhruvAgrawal511/xeno-backend/internal/handler"
	"github.com/DhruvAgrawal511/xeno-backend/internal/logger"
	"github.com/DhruvAgrawal511/xeno-backend/internal/queue"
	"github.com/DhruvAgrawal511/xeno-backend/internal/queue/redisstream"
	"github.com/DhruvAgrawal511/xeno-backend/internal/queue/sqs"
	"github.com/DhruvAgrawal511/xeno-backend/internal/repository"
	"github.com/DhruvAgrawal511/xeno-backend/internal/repository/clickhouse"
	"github.com/DhruvAgrawal511/xeno-backend/internal/repository/postgres"
	"github.com/DhruvAgrawal511/xeno-backend/internal/service"
	"github.com/DhruvAgrawal511/xeno-backend/internal/tracing"
	"github.com/DhruvAgrawal511/xeno-backend/internal/vendorsim"
)

const shutdownTimeout = 15 * time.Second

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// Initialize logger
	log, err := logger.New(cfg.Service.Environment, cfg.Service.LogLevel)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer func(log *zap.Logger) {
		_ = log.Sync()
	}(log)

	log.Info("Starting consumer service",
		zap.String("environment", cfg.Service.Environment),
		zap.String("consumer", cfg.Service.ConsumerName))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Init(ctx, cfg.Tracing, log)
	if err != nil {
		log.Fatal("Failed to initialize tracing", zap.Error(err))
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			log.Error("Failed to shut down tracing", zap.Error(err))
		}
	}()

	// Initialize Redis transport
	redisClient, err := redisstream.Connect(ctx, cfg.Redis.URL)
	if err != nil {
		log.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	transport := redisstream.NewTransport(redisClient, cfg.Redis, log)
	defer func() {
		if err := transport.Close(); err != nil {
			log.Error("Failed to close Redis client", zap.Error(err))
		}
	}()

	// Initialize Postgres store
	pool, err := postgres.NewPool(ctx, cfg.Postgres, log)
	if err != nil {
		log.Fatal("Failed to connect to Postgres", zap.Error(err))
	}
	store := postgres.NewStore(pool, log)
	defer func() {
		if err := store.Close(); err != nil {
			log.Error("Failed to close Postgres pool", zap.Error(err))
		}
	}()

	if err := store.InitSchema(ctx); err != nil {
		log.Fatal("Failed to initialize schema", zap.Error(err))
	}
	log.Info("Database schema initialized")

	// Initialize the optional ClickHouse archive
	var archive repository.ReceiptArchive
	if cfg.ClickHouse.Enabled() {
		chClient, err := clickhouse.NewClient(ctx, cfg.ClickHouse, log)
		if err != nil {
			log.Fatal("Failed to create ClickHouse client", zap.Error(err))
		}
		chRepo := clickhouse.NewRepository(chClient, log)
		defer func() {
			if err := chRepo.Close(); err != nil {
				log.Error("Failed to close ClickHouse client", zap.Error(err))
			}
		}()
		if err := chRepo.InitSchema(ctx); err != nil {
			log.Fatal("Failed to initialize ClickHouse schema", zap.Error(err))
		}
		archive = chRepo
	}

	sink, err := deadLetterSink(ctx, cfg, transport, log)
	if err != nil {
		log.Fatal("Failed to create dead-letter sink", zap.Error(err))
	}

	receiptService := service.NewReceiptService(transport, cfg.Streams, log)
	simulator := vendorsim.NewSimulator(receiptService, cfg.Vendor, log)

	loops := []*consumer.Consumer{
		consumer.NewConsumer(transport, sink,
			options(cfg, cfg.Streams.Customers, cfg.Streams.CustomersGroup, cfg.Consumer.BatchSize),
			consumer.PerEntry(consumer.NewCustomerIngestHandler(store, log), log), log),
		consumer.NewConsumer(transport, sink,
			options(cfg, cfg.Streams.Orders, cfg.Streams.OrdersGroup, cfg.Consumer.BatchSize),
			consumer.PerEntry(consumer.NewOrderIngestHandler(store, log), log), log),
		consumer.NewConsumer(transport, sink,
			options(cfg, cfg.Streams.Deliveries, cfg.Streams.DeliveryGroup, cfg.Consumer.BatchSize),
			consumer.PerEntry(consumer.NewDeliveryHandler(simulator, log), log), log),
		consumer.NewConsumer(transport, sink,
			options(cfg, cfg.Streams.Receipts, cfg.Streams.ReceiptsGroup, cfg.Consumer.ReceiptBatchSize),
			consumer.NewReceiptAggregator(store, archive, log), log),
	}

	// Start health check endpoint
	healthServer := &http.Server{
		Addr: ":" + cfg.Consumer.HealthCheckPort,
		Handler: handler.NewHealthHandler(map[string]handler.HealthCheck{
			"postgres": store.Ping,
			"redis":    transport.Ping,
		}, log),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Info("Health check server starting", zap.String("address", healthServer.Addr))
		if err := healthServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Health check server error", zap.Error(err))
		}
	}()

	g, gctx := errgroup.WithContext(ctx)
	for _, loop := range loops {
		g.Go(func() error {
			return loop.Run(gctx)
		})
	}

	log.Info("Consumers started", zap.Int("count", len(loops)))

	if err := g.Wait(); err != nil {
		log.Error("Consumer stopped with error", zap.Error(err))
	}

	log.Info("Shutting down consumer gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := simulator.Shutdown(shutdownCtx); err != nil {
		log.Warn("Vendor receipts still pending at shutdown", zap.Error(err))
	}
	if err := healthServer.Shutdown(shutdownCtx); err != nil {
		log.Error("Failed to shut down health check server", zap.Error(err))
	}
}

func options(cfg *config.Config, stream, group string, batchSize int64) consumer.Options {
	return consumer.Options{
		Stream:        stream,
		Group:         group,
		Consumer:      cfg.Service.ConsumerName,
		BatchSize:     batchSize,
		BlockTimeout:  cfg.Consumer.BlockTimeout,
		Backoff:       cfg.Consumer.Backoff,
		MaxDeliveries: cfg.Consumer.MaxDeliveries,
	}
}

func deadLetterSink(ctx context.Context, cfg *config.Config, transport queue.Publisher, log *zap.Logger) (queue.DeadLetterSink, error) {
	if cfg.Consumer.DeadLetterSink != "sqs" {
		log.Info("Dead letters go to sibling streams", zap.String("suffix", queue.DeadLetterStreamSuffix))
		return queue.NewStreamDeadLetterSink(transport), nil
	}

	client, err := sqs.NewClient(ctx, cfg.SQS, log)
	if err != nil {
		return nil, err
	}
	log.Info("Dead letters go to SQS", zap.String("queue_url", cfg.SQS.QueueURL))
	return sqs.NewDeadLetterSink(client, cfg.SQS.QueueURL, log), nil
}
