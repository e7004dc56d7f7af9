package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/assignment-tracker-api/api/swagger"
	"github.com/noah-isme/assignment-tracker-api/internal/handler"
	"github.com/noah-isme/assignment-tracker-api/internal/middleware"
	"github.com/noah-isme/assignment-tracker-api/internal/repository"
	"github.com/noah-isme/assignment-tracker-api/internal/service"
	"github.com/noah-isme/assignment-tracker-api/pkg/cache"
	"github.com/noah-isme/assignment-tracker-api/pkg/config"
	"github.com/noah-isme/assignment-tracker-api/pkg/database"
	"github.com/noah-isme/assignment-tracker-api/pkg/export"
	"github.com/noah-isme/assignment-tracker-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/assignment-tracker-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/assignment-tracker-api/pkg/middleware/requestid"
)

// @title Assignment Tracker API
// @version 1.0.0
// @description Semesters, assignments, CSV import and export for a personal assignment tracker
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	if cfg.Database.AutoMigrate {
		if err := database.RunMigrations(db.DB, logr); err != nil {
			logr.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	metricsSvc := service.NewMetricsService()

	var cacheRepo service.CacheRepository
	if cfg.Cache.Enabled {
		redisClient, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, caching disabled", zap.Error(err))
		} else {
			defer redisClient.Close() //nolint:errcheck
			cacheRepo = repository.NewCacheRepository(redisClient, logr)
		}
	}
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Cache.SemesterTTL, logr, cfg.Cache.Enabled && cacheRepo != nil)

	validate := service.NewValidator()
	userRepo := repository.NewUserRepository(db)
	semesterRepo := repository.NewSemesterRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
	})
	semesterSvc := service.NewSemesterService(semesterRepo, assignmentRepo, cacheSvc, metricsSvc, validate, logr, cfg.Cache.SemesterTTL)
	assignmentSvc := service.NewAssignmentService(assignmentRepo, semesterSvc, cacheSvc, validate, logr)
	transferSvc := service.NewTransferService(semesterSvc, assignmentSvc, export.NewRegistry(), metricsSvc, service.TransferConfig{
		MaxRows:  cfg.Import.MaxRows,
		MaxBytes: cfg.Import.MaxBytes,
	}, logr)

	var exportHandler *handler.ExportJobHandler
	if cfg.Exports.Enabled {
		exportSvc, queue, err := newExportJobs(cfg, semesterSvc, transferSvc, repository.NewExportJobRepository(db), logr)
		if err != nil {
			logr.Fatal("failed to init export jobs", zap.Error(err))
		}
		queue.Start(ctx)
		defer queue.Stop()
		exportSvc.RecoverPendingJobs(ctx)
		exportSvc.StartCleanup(ctx)
		exportHandler = handler.NewExportJobHandler(exportSvc)
	}

	metricsHandler := handler.NewMetricsHandler(metricsSvc, db)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	handler.Routes{
		Auth:        handler.NewAuthHandler(authSvc),
		Semesters:   handler.NewSemesterHandler(semesterSvc),
		Assignments: handler.NewAssignmentHandler(assignmentSvc),
		Transfer:    handler.NewTransferHandler(transferSvc),
		Exports:     exportHandler,
		Metrics:     metricsHandler,
		Tokens:      authSvc,
		Audit:       userRepo,
		Logger:      logr,
	}.Register(r.Group(apiPrefix(cfg.APIPrefix)))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Warn("graceful shutdown failed", zap.Error(err))
	}
	logr.Info("server stopped")
}

func apiPrefix(prefix string) string {
	prefix = "/" + strings.Trim(strings.TrimSpace(prefix), "/")
	if prefix == "/" {
		return "/api/v1"
	}
	return prefix
}
