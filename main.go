package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"recycle-rewards-system/config"
	"recycle-rewards-system/handlers"
	"recycle-rewards-system/middleware"
	"recycle-rewards-system/services"
	"recycle-rewards-system/store"
	"recycle-rewards-system/utils"
	"recycle-rewards-system/workers"

	"github.com/go-redis/redis/v8"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const idempotencyTTL = 24 * time.Hour

func main() {
	cfg := config.Load()

	logger, err := utils.NewLogger(cfg.IsProduction())
	if err != nil {
		log.Fatal("failed to build logger:", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStore(cfg, logger)
	if err != nil {
		logger.Fatalf("failed to open store: %v", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := services.NewMetrics(registry)

	var archive services.ScanArchive
	if cfg.ArchiveEnabled() {
		r2, err := utils.NewR2Archive(ctx, utils.R2Config{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			AccessKeySecret: cfg.R2AccessKeySecret,
			Bucket:          cfg.R2Bucket,
			CDNBaseURL:      cfg.CDNBaseURL,
		})
		if err != nil {
			logger.Fatalf("failed to initialize R2 client: %v", err)
		}
		archive = r2
		logger.Infof("✅ Scan archive enabled (bucket %s)", cfg.R2Bucket)
	}

	classifier := services.NewHTTPClassifier(cfg.ClassifierURL, cfg.ClassifierModel, cfg.ClassifierToken, cfg.ClassifierRPS)

	accountService := services.NewAccountService(st, logger, metrics)
	catalogService := services.NewCatalogService(st, logger)
	historyService := services.NewHistoryService(st, logger, metrics)
	awardService := services.NewAwardService(accountService, historyService, classifier, archive, logger, metrics)
	redemptionService := services.NewRedemptionService(accountService, catalogService, historyService, logger, metrics)

	app := fiber.New(fiber.Config{
		BodyLimit: 12 * 1024 * 1024,
	})

	app.Use(cors.New(cors.Config{
		AllowOrigins:  strings.Join(cfg.AllowedOrigins, ","),
		AllowMethods:  "GET,POST,OPTIONS,HEAD",
		AllowHeaders:  "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, Idempotency-Key",
		ExposeHeaders: "Content-Length, Content-Type, X-Request-ID, X-Idempotency-Hit",
		MaxAge:        86400,
	}))

	// Health and metrics stay reachable without the gateway token.
	handlers.SetupHealthRoutes(app, registry)

	app.Use(middleware.GatewayAuthMiddleware(cfg.GatewayToken, logger))
	app.Use(middleware.Idempotency(responseCache(ctx, cfg, logger), idempotencyTTL, logger))

	handlers.SetupLedgerRoutes(app, accountService, awardService, redemptionService, historyService)
	handlers.SetupCatalogRoutes(app, catalogService)
	handlers.SetupClassifyRoutes(app, awardService)

	if cfg.CatalogFeedURL != "" {
		feed := workers.NewCatalogFeedClient(cfg.CatalogFeedURL, cfg.CatalogFeedToken)
		syncWorker := workers.NewCatalogSyncWorker(feed, catalogService, logger, cfg.CatalogSyncInterval)
		go syncWorker.Run(ctx)
		logger.Infof("✅ Catalog feed polling running (every %s)", cfg.CatalogSyncInterval)
	} else {
		logger.Warn("⚠️  CATALOG_FEED_URL not set, catalog feed polling disabled")
	}

	maintenance := services.NewMaintenanceScheduler(st, catalogService, logger, cfg.MaintenanceInterval)
	if err := maintenance.Start(); err != nil {
		logger.Fatalf("failed to start maintenance scheduler: %v", err)
	}

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			logger.Errorf("Server error: %v", err)
			stop()
		}
	}()

	logger.Infof("✅ Server running on http://localhost:%s", cfg.Port)
	logger.Infof("✅ CORS configured for origins: %s", strings.Join(cfg.AllowedOrigins, ","))

	<-ctx.Done()
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Errorf("Server shutdown error: %v", err)
	}
	if err := maintenance.Shutdown(); err != nil {
		logger.Errorf("Scheduler shutdown error: %v", err)
	}
}

// openStore connects to Postgres when DATABASE_URL is set and falls back to
// the in-memory store otherwise.
func openStore(cfg *config.Config, logger *zap.SugaredLogger) (store.Store, error) {
	if cfg.DatabaseURL == "" {
		if cfg.IsProduction() {
			return nil, errors.New("DATABASE_URL environment variable not set")
		}
		logger.Warn("⚠️  DATABASE_URL not set, using in-memory store (data is lost on restart)")
		return store.NewMemoryStore(), nil
	}

	gormLevel := gormlogger.Warn
	if cfg.IsProduction() {
		gormLevel = gormlogger.Error
	}
	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormLevel),
	})
	if err != nil {
		return nil, err
	}

	gs := store.NewGormStore(db)
	if err := gs.Migrate(); err != nil {
		return nil, err
	}
	logger.Info("✅ Connected to Postgres and migrated schema")
	return gs, nil
}

// responseCache prefers Redis so replays survive restarts and are shared
// across instances.
func responseCache(ctx context.Context, cfg *config.Config, logger *zap.SugaredLogger) middleware.ResponseCache {
	if cfg.RedisURL == "" {
		logger.Warn("⚠️  REDIS_URL not set, idempotency keys are kept in memory")
		return middleware.NewMemoryResponseCache()
	}
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatalf("invalid REDIS_URL: %v", err)
	}
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warnf("⚠️  Redis unreachable (%v), idempotency keys are kept in memory", err)
		_ = client.Close()
		return middleware.NewMemoryResponseCache()
	}
	logger.Info("✅ Idempotency cache backed by Redis")
	return middleware.NewRedisResponseCache(client)
}
