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

	"github.com/DhruvAgrawal511/xeno-backend/internal/config"
	"github.com/DhruvAgrawal511/xeno-backend/internal/handler"
	"github.com/DhruvAgrawal511/xeno-backend/internal/logger"
	"github.com/DhruvAgrawal511/xeno-backend/internal/queue/redisstream"
	"github.com/DhruvAgrawal511/xeno-backend/internal/repository"
	"github.com/DhruvAgrawal511/xeno-backend/internal/repository/clickhouse"
	"github.com/DhruvAgrawal511/xeno-backend/internal/repository/postgres"
	"github.com/DhruvAgrawal511/xeno-backend/internal/service"
	"github.com/DhruvAgrawal511/xeno-backend/internal/tracing"
	"github.com/DhruvAgrawal511/xeno-backend/internal/vendorsim"
)

const shutdownTimeout = 15 * time.Second

func main() {
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

	log.Info("Starting API service",
		zap.String("environment", cfg.Service.Environment),
		zap.String("port", cfg.Service.APIPort))

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
		archive = chRepo
	} else {
		log.Info("ClickHouse archive disabled, delivery metrics unavailable")
	}

	// Initialize services
	ingestService := service.NewIngestService(transport, store, cfg.Streams, log)
	segmentService := service.NewSegmentService(store, log)
	campaignService := service.NewCampaignService(store, transport, archive, cfg.Streams, log)
	receiptService := service.NewReceiptService(transport, cfg.Streams, log)
	simulator := vendorsim.NewSimulator(receiptService, cfg.Vendor, log)

	h := handler.NewHandler(handler.Services{
		Ingest:    ingestService,
		Segments:  segmentService,
		Campaigns: campaignService,
		Receipts:  receiptService,
		Vendor:    simulator,
	}, log)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Service.APIPort),
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("API server starting", zap.String("address", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("API server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down API service gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Failed to shut down API server", zap.Error(err))
	}
	if err := simulator.Shutdown(shutdownCtx); err != nil {
		log.Warn("Vendor receipts still pending at shutdown", zap.Error(err))
	}
}
