package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/jsmart/jsmart-inventory/internal/adjustment"
	"github.com/jsmart/jsmart-inventory/internal/app"
	"github.com/jsmart/jsmart-inventory/internal/platform/db"
	"github.com/jsmart/jsmart-inventory/internal/shared"
	"github.com/jsmart/jsmart-inventory/jobs"
)

const (
	evidenceRetention    = 24 * time.Hour
	idempotencyRetention = 48 * time.Hour
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
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

	evidenceStore, err := adjustment.NewEvidenceStore(cfg.EvidenceDir, cfg.EvidenceMaxSize)
	if err != nil {
		logger.Error("init evidence store", slog.Any("error", err))
		os.Exit(1)
	}
	adjustmentRepo := adjustment.NewRepository(dbpool)
	idempotencyStore := shared.NewIdempotencyStore(dbpool)

	mailer := &jobs.SMTPMailer{
		Addr: fmt.Sprintf("%s:%d", cfg.SMTPHost, cfg.SMTPPort),
		From: cfg.SMTPFrom,
	}
	reviewers := &jobs.PGReviewerDirectory{Pool: dbpool}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskAdjustmentSubmitted, Handler: jobs.NewAdjustmentSubmittedHandler(logger, mailer, reviewers)},
			{Type: jobs.TaskEvidencePurge, Handler: jobs.NewEvidencePurgeHandler(logger, adjustmentRepo, evidenceStore, evidenceRetention)},
			{Type: jobs.TaskIdempotencyCleanup, Handler: jobs.NewIdempotencyCleanupHandler(logger, idempotencyStore, idempotencyRetention)},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "0 3 * * *", Task: jobs.NewEvidencePurgeTask()},
			{Spec: "30 3 * * *", Task: jobs.NewIdempotencyCleanupTask()},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	healthServer := &http.Server{
		Addr: ":8081",
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"status":"ok"}`))
		}),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting worker", slog.String("redis", cfg.RedisAddr))
		return worker.Run(gctx)
	})
	g.Go(func() error {
		if err := healthServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return healthServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker stopped", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("worker shut down")
}
