package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	_ "github.com/noah-isme/sma-finance-api/api/swagger"
	"github.com/noah-isme/sma-finance-api/internal/handler"
	"github.com/noah-isme/sma-finance-api/internal/models"
	"github.com/noah-isme/sma-finance-api/internal/repository"
	"github.com/noah-isme/sma-finance-api/internal/router"
	"github.com/noah-isme/sma-finance-api/internal/service"
	"github.com/noah-isme/sma-finance-api/pkg/cache"
	"github.com/noah-isme/sma-finance-api/pkg/config"
	"github.com/noah-isme/sma-finance-api/pkg/database"
	"github.com/noah-isme/sma-finance-api/pkg/docstore"
	"github.com/noah-isme/sma-finance-api/pkg/jobs"
	"github.com/noah-isme/sma-finance-api/pkg/logger"
	"github.com/noah-isme/sma-finance-api/pkg/storage"
)

// @title SMA Finance API
// @version 1.0.0
// @description School fee ledger and financial aggregation service.
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metrics := service.NewMetricsService()

	rawStore, closeStore, err := openStore(ctx, cfg, logr)
	if err != nil {
		logr.Fatal("document store unavailable", zap.String("driver", cfg.Store.Driver), zap.Error(err))
	}
	defer closeStore()
	store := docstore.Instrument(rawStore, metrics)

	cacheRepo := repository.NewCacheRepository(nil, "", logr)
	if cfg.Finance.CacheEnabled {
		client, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, finance cache disabled", zap.String("addr", cache.Addr(cfg.Redis)), zap.Error(err))
		} else {
			cacheRepo = repository.NewCacheRepository(client, "sma-finance:", logr)
		}
	}
	defer cacheRepo.Close() //nolint:errcheck
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Finance.CacheTTL, logr, cfg.Finance.CacheEnabled)

	validate := validator.New()
	feeRepo := repository.NewFeeRepository(store)
	obligationRepo := repository.NewStudentFeeRepository(store)
	studentRepo := repository.NewStudentRepository(store)
	incomeRepo := repository.NewCashbookRepository(store, models.CashbookIncome)
	expenseRepo := repository.NewCashbookRepository(store, models.CashbookExpense)
	sessionRepo := repository.NewSessionRepository(store)
	configRepo := repository.NewConfigurationRepository(store)
	reportRepo := repository.NewReportRepository(store)
	auditRepo := repository.NewAuditRepository(store)

	ledgerSvc := service.NewLedgerService(obligationRepo, feeRepo, studentRepo, cacheSvc, metrics, validate, logr, nil)
	feeSvc := service.NewFeeService(feeRepo, obligationRepo, cacheSvc, validate, logr, nil)
	incomeSvc := service.NewCashbookService(incomeRepo, cacheSvc, validate, logr, nil)
	expenseSvc := service.NewCashbookService(expenseRepo, cacheSvc, validate, logr, nil)
	financeSvc := service.NewFinanceService(incomeRepo, expenseRepo, obligationRepo, feeRepo, ledgerSvc, cacheSvc, logr, nil, service.FinanceServiceConfig{
		CacheTTL:      cfg.Finance.CacheTTL,
		SessionMonths: cfg.Finance.SessionMonths,
	})
	configSvc := service.NewConfigurationService(configRepo, sessionRepo, auditRepo, validate, logr, service.ConfigurationServiceConfig{
		Defaults: configurationDefaults(cfg),
	})
	sessionSvc := service.NewSessionService(sessionRepo, configSvc, validate, logr, nil)

	handlers := router.Handlers{
		Ledger:   handler.NewLedgerHandler(ledgerSvc),
		Fees:     handler.NewFeeHandler(feeSvc),
		Income:   handler.NewCashbookHandler(incomeSvc),
		Expenses: handler.NewCashbookHandler(expenseSvc),
		Finance:  handler.NewFinanceHandler(financeSvc),
		Sessions: handler.NewSessionHandler(sessionSvc),
	}
	if cfg.Configuration.Enabled {
		handlers.Configuration = handler.NewConfigurationHandler(configSvc)
	}

	var reportQueue *jobs.Queue
	if cfg.Reports.Enabled {
		files, err := storage.NewLocalStorage(cfg.Reports.StorageDir)
		if err != nil {
			logr.Fatal("report storage unavailable", zap.String("dir", cfg.Reports.StorageDir), zap.Error(err))
		}
		signer := storage.NewSignedURLSigner(cfg.Reports.SignedURLSecret, cfg.Reports.SignedURLTTL)
		exporter := service.NewExportService(service.ExportSources{
			Finance:  financeSvc,
			Ledger:   ledgerSvc,
			Income:   incomeSvc,
			Expenses: expenseSvc,
		}, files, signer, service.ExportConfig{APIPrefix: cfg.APIPrefix, ResultTTL: cfg.Reports.SignedURLTTL}, logr, nil)

		worker := service.NewReportWorker(reportRepo, exporter, cfg.Reports.WorkerRetries, logr, nil)
		reportQueue = jobs.NewQueue("finance-reports", worker.Handle, jobs.QueueConfig{
			Workers:    cfg.Reports.WorkerConcurrency,
			MaxRetries: cfg.Reports.WorkerRetries,
			RetryDelay: cfg.Reports.RetryDelay,
			Logger:     logr,
		})
		reportQueue.Start(ctx)
		defer reportQueue.Stop()

		reportSvc := service.NewReportService(reportRepo, reportQueue, exporter, logr, nil, service.ReportServiceConfig{
			ResultTTL:       cfg.Reports.SignedURLTTL,
			CleanupInterval: cfg.Reports.CleanupInterval,
		})
		reportSvc.RecoverPendingJobs(ctx)
		reportSvc.StartCleanup(ctx)
		handlers.Reports = handler.NewReportHandler(reportSvc)
	}

	deps := map[string]handler.Pinger{"store": store}
	if cfg.Finance.CacheEnabled {
		deps["cache"] = cacheRepo
	}
	var queueStats interface{ Stats() jobs.Stats }
	if reportQueue != nil {
		queueStats = reportQueue
	}
	handlers.Ops = handler.NewMetricsHandler(metrics, queueStats, deps)

	opts := router.Options{
		APIPrefix:      cfg.APIPrefix,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		Audit:          auditRepo,
		MetricsPath:    cfg.Metrics.Path,
		Docs:           cfg.Env != config.EnvProduction,
		Logger:         logr,
	}
	if cfg.Metrics.Enabled {
		opts.Metrics = metrics
	}
	if cfg.JWT.Enabled {
		opts.Tokens = service.NewTokenService(service.TokenConfig{
			Secret:   cfg.JWT.Secret,
			Issuer:   cfg.JWT.Issuer,
			Audience: cfg.JWT.Audience,
			Leeway:   cfg.JWT.Leeway,
		}, nil)
	} else {
		logr.Warn("JWT disabled, every request runs as an anonymous superadmin")
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router.New(handlers, opts),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env), zap.String("store", cfg.Store.Driver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logr.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
	cancel()
}

// openStore connects the configured document store backend and returns a
// function releasing its connection.
func openStore(ctx context.Context, cfg *config.Config, logr *zap.Logger) (docstore.Store, func(), error) {
	switch cfg.Store.Driver {
	case config.StorePostgres:
		db, err := database.NewPostgres(ctx, cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		store := docstore.NewPostgresStore(db)
		if cfg.Store.AutoMigrate {
			if err := store.EnsureSchema(ctx); err != nil {
				_ = db.Close()
				return nil, nil, fmt.Errorf("ensure schema: %w", err)
			}
		}
		return store, func() { _ = db.Close() }, nil
	case config.StoreMongo:
		client, db, err := database.NewMongo(ctx, cfg.Mongo, nil)
		if err != nil {
			return nil, nil, err
		}
		store := docstore.NewMongoStore(db)
		if cfg.Store.AutoMigrate {
			if err := store.EnsureIndexes(ctx, repository.Indexes); err != nil {
				_ = client.Disconnect(context.Background())
				return nil, nil, fmt.Errorf("ensure indexes: %w", err)
			}
		}
		return store, func() { _ = client.Disconnect(context.Background()) }, nil
	case config.StoreMemory, "":
		logr.Warn("using in-memory document store, data is lost on restart")
		return docstore.NewMemoryStore(), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

func configurationDefaults(cfg *config.Config) map[string]string {
	defaults := map[string]string{}
	if cfg.Finance.Currency != "" {
		defaults["currency"] = cfg.Finance.Currency
	}
	if cfg.Configuration.SchoolName != "" {
		defaults["school_name"] = cfg.Configuration.SchoolName
	}
	if cfg.Configuration.CurrentSessionID != "" {
		defaults[service.ConfigKeyCurrentSession] = cfg.Configuration.CurrentSessionID
	}
	return defaults
}
