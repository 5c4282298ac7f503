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

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	_ "github.com/noah-isme/mooc-credit-api/api/swagger"
	"github.com/noah-isme/mooc-credit-api/internal/handler"
	"github.com/noah-isme/mooc-credit-api/internal/repository"
	"github.com/noah-isme/mooc-credit-api/internal/router"
	"github.com/noah-isme/mooc-credit-api/internal/service"
	"github.com/noah-isme/mooc-credit-api/pkg/cache"
	"github.com/noah-isme/mooc-credit-api/pkg/config"
	"github.com/noah-isme/mooc-credit-api/pkg/database"
	"github.com/noah-isme/mooc-credit-api/pkg/jobs"
	"github.com/noah-isme/mooc-credit-api/pkg/logger"
)

// @title MEF MOOC Credit API
// @version 1.0.0
// @description Academic credit for MOOC bundles.
// @BasePath /
// @schemes http https
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := database.RunMigrations(db.DB, logr); err != nil {
			logr.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	rdb, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Fatal("failed to connect redis", zap.Error(err))
	}
	defer rdb.Close()

	var metricsSvc *service.MetricsService
	if cfg.Metrics.Enabled {
		metricsSvc = service.NewMetricsService()
	}
	validate := validator.New()

	studentRepo := repository.NewStudentRepository(db)
	coordinatorRepo := repository.NewCoordinatorRepository(db)
	departmentRepo := repository.NewDepartmentRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	moocRepo := repository.NewMoocRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	bundleRepo := repository.NewBundleRepository(db)
	denylistRepo := repository.NewTokenDenylistRepository(rdb)
	cacheRepo := repository.NewCacheRepository(rdb)
	mailQueueRepo := repository.NewMailQueueRepository(rdb, cfg.Mail.QueueKey)

	mailJobs := jobs.NewQueue("mail", service.MailPublishHandler(mailQueueRepo, metricsSvc), jobs.QueueConfig{
		Workers:    cfg.Mail.Workers,
		BufferSize: cfg.Mail.BufferSize,
		MaxRetries: cfg.Mail.MaxRetries,
		RetryDelay: cfg.Mail.RetryDelay,
		Logger:     logr.Named("mail-queue"),
		OnDone:     service.MailPublishDone(metricsSvc, logr),
	})
	mailJobs.Start(ctx)
	defer mailJobs.Stop()

	notifier := service.NewNotificationService(mailJobs, metricsSvc, logr)
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Cache.TTL, logr, cfg.Cache.Enabled)
	guard := service.NewAccessGuard(studentRepo, coordinatorRepo, departmentRepo, courseRepo)

	authSvc := service.NewAuthService(studentRepo, coordinatorRepo, denylistRepo, notifier, validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
		AdminUsername:     cfg.Admin.Username,
		AdminPassword:     cfg.Admin.Password,
	})
	bundleSvc := service.NewBundleService(service.BundleServiceParams{
		Bundles:     bundleRepo,
		Enrollments: enrollmentRepo,
		Courses:     courseRepo,
		Moocs:       moocRepo,
		Guard:       guard,
		Notifier:    notifier,
		Metrics:     metricsSvc,
		Validator:   validate,
		Logger:      logr,
		Policy: service.BundlePolicy{
			HoursPerCredit:         cfg.Bundle.HoursPerCredit,
			Tolerance:              cfg.Bundle.Tolerance,
			CloneKeepsCertificates: cfg.Bundle.CloneKeepsCertificates,
		},
	})
	enrollmentSvc := service.NewEnrollmentService(enrollmentRepo, courseRepo, studentRepo, guard, notifier, metricsSvc, validate, logr)
	courseSvc := service.NewCourseService(courseRepo, guard, validate, logr)
	catalogSvc := service.NewCatalogService(departmentRepo, coordinatorRepo, moocRepo, cacheSvc, cfg.Cache.TTL, logr)
	profileSvc := service.NewProfileService(studentRepo, guard)
	adminSvc := service.NewAdminService(coordinatorRepo, departmentRepo, studentRepo, cacheSvc, notifier, validate, logr, service.AdminServiceConfig{
		FrontendURL: cfg.FrontendURL,
	})

	engine := router.New(router.Params{
		APIPrefix:      cfg.APIPrefix,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		EnableDocs:     cfg.Env != config.EnvProduction,
		Logger:         logr,
		Metrics:        metricsSvc,
		Tokens:         authSvc,
		Auth:           handler.NewAuthHandler(authSvc),
		Student:        handler.NewStudentHandler(bundleSvc, enrollmentSvc, profileSvc),
		Coordinator:    handler.NewCoordinatorHandler(bundleSvc, courseSvc, enrollmentSvc),
		Admin:          handler.NewAdminHandler(adminSvc),
		General:        handler.NewGeneralHandler(catalogSvc),
		Ops: handler.NewMetricsHandler(metricsSvc, map[string]handler.Pinger{
			"postgres": db.PingContext,
			"redis":    func(ctx context.Context) error { return cache.Ping(ctx, rdb) },
		}),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}
