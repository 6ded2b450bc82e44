package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/jsmart/jsmart-inventory/internal/adjustment"
	"github.com/jsmart/jsmart-inventory/internal/app"
	"github.com/jsmart/jsmart-inventory/internal/auth"
	"github.com/jsmart/jsmart-inventory/internal/catalog"
	"github.com/jsmart/jsmart-inventory/internal/notify"
	"github.com/jsmart/jsmart-inventory/internal/observability"
	"github.com/jsmart/jsmart-inventory/internal/platform/cache"
	"github.com/jsmart/jsmart-inventory/internal/platform/db"
	"github.com/jsmart/jsmart-inventory/internal/rbac"
	"github.com/jsmart/jsmart-inventory/internal/shared"
	"github.com/jsmart/jsmart-inventory/internal/stocks"
	"github.com/jsmart/jsmart-inventory/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "jsmart_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)

	authRepo := auth.NewRepository(dbpool)
	authService := auth.NewService(authRepo)
	authHandler := auth.NewHandler(logger, authService, sessionManager, csrfManager)

	auditLogger := shared.NewAuditLogger(dbpool)
	approvalRecorder := shared.NewApprovalRecorder(dbpool, logger)
	idempotencyStore := shared.NewIdempotencyStore(dbpool)

	catalogRepo := catalog.NewRepository(dbpool)
	catalogCache := catalog.NewCache(redisClient, cfg.ProductCacheTTL)
	catalogService := catalog.NewService(catalogRepo, catalogCache)
	catalogHandler := catalog.NewHandler(logger, catalogService)

	stocksRepo := stocks.NewRepository(dbpool)
	stocksService := stocks.NewService(stocksRepo)
	stocksHandler := stocks.NewHandler(logger, stocksService)

	rbacService := rbac.NewService(dbpool)
	rbacMiddleware := rbac.Middleware{Source: rbacService, Logger: logger}

	metrics := observability.NewMetrics()
	notifyCenter := notify.NewCenter(cfg.NotifyTTL)
	notifyHandler := notify.NewHandler(notifyCenter)

	evidenceStore, err := adjustment.NewEvidenceStore(cfg.EvidenceDir, cfg.EvidenceMaxSize)
	if err != nil {
		logger.Error("init evidence store", slog.Any("error", err))
		os.Exit(1)
	}
	formStore := adjustment.NewFormStore(redisClient, cfg.SessionTTL)

	jobClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()

	adjustmentRepo := adjustment.NewRepository(dbpool)
	adjustmentService := adjustment.NewService(adjustment.ServiceParams{
		Logger:   logger,
		Repo:     adjustmentRepo,
		Idempo:   idempotencyStore,
		Approval: approvalRecorder,
		Audit:    auditLogger,
		Catalog:  catalogService,
		Notifier: jobClient,
		Evidence: evidenceStore,
	})
	adjustmentHandler := adjustment.NewHandler(adjustment.HandlerParams{
		Logger:   logger,
		Service:  adjustmentService,
		Forms:    formStore,
		Evidence: evidenceStore,
		Catalog:  catalogService,
		Stocks:   stocksService,
		Notify:   notifyCenter,
		Metrics:  metrics,
	})

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:            logger,
		Config:            cfg,
		SessionManager:    sessionManager,
		CSRFManager:       csrfManager,
		AuthHandler:       authHandler,
		CatalogHandler:    catalogHandler,
		StocksHandler:     stocksHandler,
		AdjustmentHandler: adjustmentHandler,
		NotifyHandler:     notifyHandler,
		JobHandler:        jobHandler,
		RBACMiddleware:    rbacMiddleware,
		Metrics:           metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
