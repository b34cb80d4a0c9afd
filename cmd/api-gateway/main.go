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
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/volunteer-roster-api/api/swagger"
	"github.com/noah-isme/volunteer-roster-api/internal/handler"
	internalmiddleware "github.com/noah-isme/volunteer-roster-api/internal/middleware"
	"github.com/noah-isme/volunteer-roster-api/internal/repository"
	"github.com/noah-isme/volunteer-roster-api/internal/service"
	"github.com/noah-isme/volunteer-roster-api/internal/store"
	"github.com/noah-isme/volunteer-roster-api/pkg/cache"
	"github.com/noah-isme/volunteer-roster-api/pkg/config"
	"github.com/noah-isme/volunteer-roster-api/pkg/export"
	"github.com/noah-isme/volunteer-roster-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/volunteer-roster-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/volunteer-roster-api/pkg/middleware/requestid"
)

// @title Volunteer Roster API
// @version 1.0.0
// @description Organizations, events, shifts and volunteer sign-ups with paired back-reference maintenance.
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backend, err := store.Open(ctx, cfg, logr)
	if err != nil {
		logr.Fatal("failed to open store", zap.Error(err))
	}
	defer backend.Close(context.Background()) //nolint:errcheck
	if err := backend.Prepare(ctx); err != nil {
		logr.Fatal("failed to prepare store", zap.String("driver", backend.Driver), zap.Error(err))
	}

	redisClient, err := cache.NewRedis(cfg.Redis, cfg.Cache)
	if err != nil {
		logr.Warn("redis unavailable, caching disabled", zap.Error(err))
	}
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close() //nolint:errcheck

	metrics := service.NewMetricsService()
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Cache.TTL, logr, cfg.Cache.Enabled && redisClient != nil)
	validate := validator.New()
	stores := backend.Stores

	repairs := service.NewRepairService(stores.References, stores.Repairs, metrics, service.RepairConfig{
		Workers:       cfg.Repair.Workers,
		MaxRetries:    cfg.Repair.MaxRetries,
		RetryDelay:    cfg.Repair.RetryDelay,
		SweepInterval: cfg.Repair.SweepInterval,
	}, logr)
	repairs.Start(ctx)
	defer repairs.Stop()

	maintainer := service.NewRelationshipMaintainer(stores.References, stores.Repairs, repairs, metrics, logr)
	rosterSvc := service.NewRosterService(stores, maintainer, cacheSvc, validate, logr)
	schedulingSvc := service.NewSchedulingService(stores, maintainer, cacheSvc, metrics,
		service.SchedulingConfig{ShiftPolicy: cfg.Roster.ShiftPolicy}, validate, logr)
	exportSvc := service.NewExportService(stores, export.NewCSVExporter(), export.NewPDFExporter(), validate, logr)
	consistencySvc := service.NewConsistencyService(stores, cacheSvc, logr)
	tokens := service.NewTokenService(service.TokenConfig{
		Secret:     cfg.JWT.Secret,
		Expiration: cfg.JWT.Expiration,
		Issuer:     cfg.JWT.Issuer,
	}, validate)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metrics, "/metrics", "/health"))

	checks := map[string]handler.ReadinessCheck{backend.Driver: backend.Ping}
	if redisClient != nil {
		checks["redis"] = cacheRepo.Ping
	}
	metricsHandler := handler.NewMetricsHandler(metrics, checks)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	handler.Routes{
		Tokens:      tokens,
		Roster:      handler.NewRosterHandler(rosterSvc),
		Scheduling:  handler.NewSchedulingHandler(schedulingSvc),
		Export:      handler.NewExportHandler(exportSvc),
		Consistency: handler.NewConsistencyHandler(consistencySvc),
		Metrics:     metricsHandler,
		Logger:      logr,
	}.Register(r.Group(cfg.APIPrefix))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "store", backend.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
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
