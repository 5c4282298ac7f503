package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/mooc-credit-api/internal/repository"
	"github.com/noah-isme/mooc-credit-api/internal/service"
	"github.com/noah-isme/mooc-credit-api/pkg/cache"
	"github.com/noah-isme/mooc-credit-api/pkg/config"
	"github.com/noah-isme/mooc-credit-api/pkg/logger"
	"github.com/noah-isme/mooc-credit-api/pkg/mailer"
)

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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rdb, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Fatal("failed to connect redis", zap.Error(err))
	}
	defer rdb.Close()

	var metricsSvc *service.MetricsService
	if cfg.Metrics.Enabled {
		metricsSvc = service.NewMetricsService()
		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Port),
			Handler:           metricsSvc.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logr.Error("metrics listener failed", zap.Error(err))
			}
		}()
		defer srv.Close()
	}

	worker := service.NewMailWorker(
		repository.NewMailQueueRepository(rdb, cfg.Mail.QueueKey),
		mailer.NewSender(cfg.Mail, logr),
		metricsSvc,
		logr.Named("mail-worker"),
		service.MailWorkerConfig{
			PopTimeout:  cfg.Mail.PopTimeout,
			MaxAttempts: cfg.Mail.MaxRetries,
			ErrorDelay:  cfg.Mail.RetryDelay,
		},
	)

	logr.Info("mail worker starting", zap.String("queue", cfg.Mail.QueueKey))
	if err := worker.Run(ctx); err != nil {
		logr.Fatal("mail worker stopped", zap.Error(err))
	}
	logr.Info("mail worker stopped")
}
