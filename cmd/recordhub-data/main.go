package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	"recordhub-data/internal/config"
	"recordhub-data/internal/database"
	httpapi "recordhub-data/internal/http"
	"recordhub-data/internal/logger"
	"recordhub-data/internal/repository"
	"recordhub-data/internal/service"
	"recordhub-data/internal/store"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "recordhub-data")
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	// DB 可用走 Postgres，连不上降级到内存 repo（本地 go run 不依赖任何外部服务）
	var db *sql.DB
	if cfg.DBEnabled {
		if d, err := database.NewPostgresDB(&cfg.Database); err == nil {
			db = d
			log.Info("DB enabled for recordhub-data")
		} else {
			log.Warn("DB enabled but connection failed, falling back to memory repositories", zap.Error(err))
		}
	}

	var (
		recordsRepo   repository.RecordsRepo
		fieldDefsRepo repository.FieldDefsRepo
		stockRepo     repository.StockEntriesRepo
		tenantsRepo   repository.TenantsRepo
	)
	if db != nil {
		recordsRepo = repository.NewPostgresRecordsRepo(db)
		fieldDefsRepo = repository.NewPostgresFieldDefsRepo(db)
		stockRepo = repository.NewPostgresStockEntriesRepo(db)
		tenantsRepo = repository.NewPostgresTenantsRepo(db)
	} else {
		recordsRepo = repository.NewMemoryRecordsRepo()
		fieldDefsRepo = repository.NewMemoryFieldDefsRepo()
		stockRepo = repository.NewMemoryStockEntriesRepo()
		tenantsRepo = repository.NewMemoryTenantsRepo()
	}

	// 统计缓存：Redis 未启用或连不上时用进程内缓存
	var kv store.KV
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			log.Warn("Redis enabled but unreachable, using in-process cache", zap.Error(err))
			_ = redisClient.Close()
			redisClient = nil
		}
	}
	if redisClient != nil {
		kv = store.NewRedisKV(redisClient)
	} else {
		kv = store.NewMemoryKV()
	}

	schemaFilter := service.NewSchemaFilter(fieldDefsRepo, log)
	fieldConfigSvc := service.NewFieldConfigService(fieldDefsRepo, log)
	recordSvc := service.NewRecordService(recordsRepo, schemaFilter, log)
	templateSvc := service.NewTemplateService(recordsRepo, fieldDefsRepo, log)
	notifier := service.NewWebhookNotifier(cfg.Webhook, log)
	importSvc := service.NewImportService(recordsRepo, fieldDefsRepo, cfg.Import.BatchSize, notifier, log)
	stockSvc := service.NewStockEntryService(stockRepo, log)
	statsSvc := service.NewStatsService(recordsRepo, kv, log)
	tenantSvc := service.NewTenantService(tenantsRepo, fieldConfigSvc, log)

	router := httpapi.NewRouter(log)
	router.RegisterRecordRoutes(
		httpapi.NewRecordsHandler(recordSvc, statsSvc, log),
		httpapi.NewExchangeHandler(templateSvc, importSvc, statsSvc, log),
	)
	router.RegisterFieldConfigRoutes(httpapi.NewFieldConfigHandler(fieldConfigSvc, log))
	router.RegisterStockEntryRoutes(httpapi.NewStockEntriesHandler(stockSvc, log))
	router.RegisterTenantRoutes(httpapi.NewTenantsHandler(tenantSvc, log))
	router.RegisterStatsRoutes(httpapi.NewStatsHandler(statsSvc, log))
	router.RegisterHealthRoutes()

	srv := service.NewServer(cfg.HTTP.Addr, router, log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		log.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			log.Error("server stopped", zap.Error(err))
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = srv.Stop(shutdownCtx)
	if redisClient != nil {
		_ = redisClient.Close()
	}
	if db != nil {
		_ = db.Close()
	}
}
